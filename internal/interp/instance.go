package interp

import (
	"fmt"
	"math"

	"github.com/alexhholmes/pdugen/internal/ir"
)

// Instance is a dynamically typed object of one planned class. It holds the
// fields of the class and of all its ancestors, keyed by attribute name.
// Primitive values are stored as raw bits truncated to the field width.
type Instance struct {
	class string

	types     map[string]ir.Primitive
	prims     map[string]uint64
	objects   map[string]*Instance
	arrays    map[string][]uint64
	objArrays map[string][]*Instance
	lists     map[string][]*Instance
	primLists map[string][]uint64
}

func newInstance(class string) *Instance {
	return &Instance{
		class:     class,
		types:     make(map[string]ir.Primitive),
		prims:     make(map[string]uint64),
		objects:   make(map[string]*Instance),
		arrays:    make(map[string][]uint64),
		objArrays: make(map[string][]*Instance),
		lists:     make(map[string][]*Instance),
		primLists: make(map[string][]uint64),
	}
}

// Class returns the name of the instance's class
func (in *Instance) Class() string {
	return in.class
}

// Uint returns the raw bits of a primitive field
func (in *Instance) Uint(field string) uint64 {
	return in.prims[field]
}

// Int returns a primitive field sign-extended from its wire width
func (in *Instance) Int(field string) int64 {
	bits := in.types[field].Bits()
	if bits == 0 || bits == 64 {
		return int64(in.prims[field])
	}
	shift := 64 - bits
	return int64(in.prims[field]<<shift) >> shift
}

// Float returns a float32 or float64 field
func (in *Instance) Float(field string) float64 {
	if in.types[field] == ir.Float32 {
		return float64(math.Float32frombits(uint32(in.prims[field])))
	}
	return math.Float64frombits(in.prims[field])
}

// SetUint stores v truncated to the field's width
func (in *Instance) SetUint(field string, v uint64) error {
	t, ok := in.types[field]
	if !ok {
		return fmt.Errorf("%s has no primitive field %q", in.class, field)
	}
	in.prims[field] = truncate(t, v)
	return nil
}

// SetInt stores a signed value in two's complement
func (in *Instance) SetInt(field string, v int64) error {
	return in.SetUint(field, uint64(v))
}

// SetFloat stores a floating-point value in the field's format
func (in *Instance) SetFloat(field string, v float64) error {
	t, ok := in.types[field]
	if !ok {
		return fmt.Errorf("%s has no primitive field %q", in.class, field)
	}
	if t == ir.Float32 {
		in.prims[field] = uint64(math.Float32bits(float32(v)))
		return nil
	}
	in.prims[field] = math.Float64bits(v)
	return nil
}

// Object returns an embedded instance
func (in *Instance) Object(field string) *Instance {
	return in.objects[field]
}

// Array returns the storage of a fixed list of primitives
func (in *Instance) Array(field string) []uint64 {
	return in.arrays[field]
}

// ObjectArray returns the elements of a fixed list of objects
func (in *Instance) ObjectArray(field string) []*Instance {
	return in.objArrays[field]
}

// List returns the elements of a dynamic list of objects
func (in *Instance) List(field string) []*Instance {
	return in.lists[field]
}

// PrimitiveList returns the elements of a dynamic list of primitives
func (in *Instance) PrimitiveList(field string) []uint64 {
	return in.primLists[field]
}

// Append adds an element to a dynamic list of objects
func (in *Instance) Append(field string, elem *Instance) error {
	if _, ok := in.lists[field]; !ok {
		return fmt.Errorf("%s has no object list %q", in.class, field)
	}
	in.lists[field] = append(in.lists[field], elem)
	return nil
}

// AppendUint adds an element to a dynamic list of primitives
func (in *Instance) AppendUint(field string, v uint64) error {
	if _, ok := in.primLists[field]; !ok {
		return fmt.Errorf("%s has no primitive list %q", in.class, field)
	}
	in.primLists[field] = append(in.primLists[field], v)
	return nil
}

// Equal reports whether two instances hold the same class and field values
func (in *Instance) Equal(other *Instance) bool {
	if in == nil || other == nil {
		return in == other
	}
	if in.class != other.class || len(in.prims) != len(other.prims) {
		return false
	}
	for k, v := range in.prims {
		if ov, ok := other.prims[k]; !ok || ov != v {
			return false
		}
	}
	if !equalObjects(in.objects, other.objects) ||
		!equalUints(in.arrays, other.arrays) ||
		!equalUints(in.primLists, other.primLists) ||
		!equalObjectSlices(in.objArrays, other.objArrays) ||
		!equalObjectSlices(in.lists, other.lists) {
		return false
	}
	return true
}

func equalObjects(a, b map[string]*Instance) bool {
	if len(a) != len(b) {
		return false
	}
	for k, v := range a {
		if !v.Equal(b[k]) {
			return false
		}
	}
	return true
}

func equalUints(a, b map[string][]uint64) bool {
	if len(a) != len(b) {
		return false
	}
	for k, v := range a {
		w, ok := b[k]
		if !ok || len(v) != len(w) {
			return false
		}
		for i := range v {
			if v[i] != w[i] {
				return false
			}
		}
	}
	return true
}

func equalObjectSlices(a, b map[string][]*Instance) bool {
	if len(a) != len(b) {
		return false
	}
	for k, v := range a {
		w, ok := b[k]
		if !ok || len(v) != len(w) {
			return false
		}
		for i := range v {
			if !v[i].Equal(w[i]) {
				return false
			}
		}
	}
	return true
}

func truncate(t ir.Primitive, v uint64) uint64 {
	bits := t.Bits()
	if bits == 0 || bits == 64 {
		return v
	}
	return v & (1<<uint(bits) - 1)
}
