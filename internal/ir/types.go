package ir

import "strings"

// Primitive is a canonical fixed-width wire type name
type Primitive string

const (
	Uint8   Primitive = "uint8"
	Int8    Primitive = "int8"
	Uint16  Primitive = "uint16"
	Int16   Primitive = "int16"
	Uint32  Primitive = "uint32"
	Int32   Primitive = "int32"
	Uint64  Primitive = "uint64"
	Int64   Primitive = "int64"
	Float32 Primitive = "float32"
	Float64 Primitive = "float64"
)

// Primitives lists the canonical type vocabulary in width order
var Primitives = []Primitive{
	Uint8, Int8, Uint16, Int16, Uint32, Int32, Uint64, Int64, Float32, Float64,
}

// legacyNames maps the type names used by older XML descriptions
var legacyNames = map[string]Primitive{
	"unsigned byte":  Uint8,
	"byte":           Int8,
	"unsigned short": Uint16,
	"short":          Int16,
	"unsigned int":   Uint32,
	"int":            Int32,
	"unsigned long":  Uint64,
	"long":           Int64,
	"float":          Float32,
	"double":         Float64,
}

// ParsePrimitive resolves a canonical or legacy type name
func ParsePrimitive(name string) (Primitive, bool) {
	name = strings.TrimSpace(name)
	p := Primitive(name)
	if p.Valid() {
		return p, true
	}
	if p, ok := legacyNames[strings.ToLower(name)]; ok {
		return p, true
	}
	return "", false
}

// Valid reports whether p is one of the ten canonical names
func (p Primitive) Valid() bool {
	return p.Width() > 0
}

// Width returns the wire width in bytes, 0 for unknown names
func (p Primitive) Width() int {
	switch p {
	case Uint8, Int8:
		return 1
	case Uint16, Int16:
		return 2
	case Uint32, Int32, Float32:
		return 4
	case Uint64, Int64, Float64:
		return 8
	}
	return 0
}

// Bits returns the width in bits
func (p Primitive) Bits() int {
	return p.Width() * 8
}

func (p Primitive) Signed() bool {
	switch p {
	case Int8, Int16, Int32, Int64:
		return true
	}
	return false
}

func (p Primitive) Float() bool {
	return p == Float32 || p == Float64
}

func (p Primitive) String() string {
	return string(p)
}
