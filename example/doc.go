// Package example runs the pdugen pipeline on pdus.xml, a small message
// description with a counted list of records, packed flag bits, and a
// subclass holding a fixed array of points.
//
// The message subpackage is the Go backend's output for pdus.xml and is
// kept in the tree; regenerate it after editing the description.
package example

//go:generate go run ../cmd/pdugen -config pdugen.toml
