package ir

import "strings"

// RootName is the parent sentinel for classes without a base class
const RootName = "root"

// IsRoot reports whether a parent name denotes "no base class"
func IsRoot(parent string) bool {
	return parent == "" || strings.EqualFold(parent, RootName)
}

// ClassDescription is one PDU class. Attribute order is wire order.
type ClassDescription struct {
	Name          string
	Parent        string
	Comment       string
	Attributes    []*Attribute
	InitialValues []InitialValue

	Abstract       bool
	XMLRootElement bool
	AliasFor       string
	SpecialCase    string
	Interfaces     string
}

// HasParent reports whether the class inherits from another declared class
func (c *ClassDescription) HasParent() bool {
	return !IsRoot(c.Parent)
}

// Attribute returns the class's own attribute with the given name
func (c *ClassDescription) Attribute(name string) *Attribute {
	for _, a := range c.Attributes {
		if a.Name == name {
			return a
		}
	}
	return nil
}

// Attribute is one declared field of a class
type Attribute struct {
	Name    string
	Comment string
	Kind    Kind

	// Transient attributes exist in the model but are not on the wire
	Transient bool
}

func (a *Attribute) ShouldSerialize() bool {
	return !a.Transient
}

// Primitive returns the primitive kind, or nil when a is not a scalar
func (a *Attribute) Primitive() *PrimitiveKind {
	p, _ := a.Kind.(*PrimitiveKind)
	return p
}

// IsCountField reports whether a carries the length of a dynamic list
func (a *Attribute) IsCountField() bool {
	p := a.Primitive()
	return p != nil && p.CountFor != ""
}

// Kind is the attribute variant. Exactly one of:
// *PrimitiveKind, *ClassRefKind, *FixedListKind, *DynamicListKind.
type Kind interface {
	kind() string
}

// PrimitiveKind is a scalar field
type PrimitiveKind struct {
	Type      Primitive
	Default   string // literal, empty for zero
	BitFields []BitField

	// CountFor names the dynamic list whose length this field carries.
	// Set by Registry.Seal.
	CountFor string
}

// ClassRefKind embeds one instance of another class
type ClassRefKind struct {
	Class string
}

// FixedListKind is an array with a design-time length
type FixedListKind struct {
	Length int
	Elem   Element
}

// DynamicListKind is a variable-length list counted by a sibling primitive
type DynamicListKind struct {
	CountField string
	Elem       Element
}

func (*PrimitiveKind) kind() string   { return "primitive" }
func (*ClassRefKind) kind() string    { return "classref" }
func (*FixedListKind) kind() string   { return "fixedlist" }
func (*DynamicListKind) kind() string { return "dynamiclist" }

// KindName returns a short name for diagnostics
func KindName(k Kind) string {
	if k == nil {
		return "none"
	}
	return k.kind()
}

// Element is a list element type: a primitive or a class, never both
type Element struct {
	Primitive Primitive
	Class     string
}

func PrimitiveElem(p Primitive) Element { return Element{Primitive: p} }
func ClassElem(name string) Element     { return Element{Class: name} }

func (e Element) IsClass() bool {
	return e.Class != ""
}

func (e Element) String() string {
	if e.IsClass() {
		return e.Class
	}
	return string(e.Primitive)
}

// BitField is a named sub-range of a primitive attribute
type BitField struct {
	Name        string
	Mask        string // integer literal, e.g. "0xF0"
	Description string
	Owner       string // owning attribute name
}

// InitialValue overrides the default of an attribute in this class or an ancestor
type InitialValue struct {
	Attribute string
	Value     string
}
