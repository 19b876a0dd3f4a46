package analyzer

import (
	"fmt"

	"github.com/alexhholmes/pdugen/internal/ir"
)

// Region represents one attribute's place in the marshalled byte stream
type Region struct {
	Kind     RegionKind
	Class    string // class declaring the attribute
	Attr     *ir.Attribute
	Start    int // Byte offset where region begins (-1 once a dynamic region precedes it)
	Boundary int // Byte offset where region ends (-1 if it depends on instance contents)
}

type RegionKind int

const (
	FixedRegion   RegionKind = iota // Size known at generation time
	DynamicRegion                   // Size depends on list contents
)

func (k RegionKind) String() string {
	if k == FixedRegion {
		return "fixed"
	}
	return "dynamic"
}

// AnalyzedLayout is the flattened wire layout of a class, ancestors first
type AnalyzedLayout struct {
	TypeName   string
	StaticSize int // -1 if any region is dynamic
	Regions    []Region
	Errors     []string // Validation errors
}

// Analyze flattens the inheritance chain of a class into wire regions and
// records byte offsets as far as they are known at generation time.
func Analyze(reg *ir.Registry, class string) (*AnalyzedLayout, error) {
	c, ok := reg.Lookup(class)
	if !ok {
		return nil, fmt.Errorf("unknown class: %s", class)
	}

	a := &AnalyzedLayout{TypeName: c.Name}

	// Phase 1: Collect the chain, root-most class first
	ancestors := reg.Ancestors(class)
	chain := make([]*ir.ClassDescription, 0, len(ancestors)+1)
	for i := len(ancestors) - 1; i >= 0; i-- {
		chain = append(chain, ancestors[i])
	}
	chain = append(chain, c)

	// Phase 2: Build regions in wire order
	offset := 0
	for _, owner := range chain {
		for _, attr := range owner.Attributes {
			if !attr.ShouldSerialize() {
				continue
			}
			region, err := buildRegion(reg, owner, attr, offset)
			if err != nil {
				a.Errors = append(a.Errors, fmt.Sprintf("%s.%s: %v", owner.Name, attr.Name, err))
				continue
			}
			a.Regions = append(a.Regions, region)
			offset = region.Boundary
		}
	}

	if len(a.Errors) > 0 {
		return a, fmt.Errorf("layout has %d errors", len(a.Errors))
	}

	a.StaticSize = offset
	if offset < 0 {
		a.StaticSize = -1
	}

	// Phase 3: Validate count fields
	if err := validateCountFields(a); err != nil {
		a.Errors = append(a.Errors, err.Error())
		return a, err
	}

	return a, nil
}

func buildRegion(reg *ir.Registry, owner *ir.ClassDescription, attr *ir.Attribute, start int) (Region, error) {
	r := Region{
		Class:    owner.Name,
		Attr:     attr,
		Start:    start,
		Boundary: -1,
	}

	size, err := attrSize(reg, attr)
	if err != nil {
		return r, err
	}
	if size < 0 {
		r.Kind = DynamicRegion
		return r, nil
	}

	r.Kind = FixedRegion
	if start >= 0 {
		r.Boundary = start + size
	}
	return r, nil
}

// attrSize returns the fixed size of one attribute, or -1 when it varies
func attrSize(reg *ir.Registry, attr *ir.Attribute) (int, error) {
	switch k := attr.Kind.(type) {
	case *ir.PrimitiveKind:
		return SizeOf(string(k.Type))
	case *ir.ClassRefKind:
		return StaticSize(reg, k.Class)
	case *ir.FixedListKind:
		if !k.Elem.IsClass() {
			n, err := SizeOf(string(k.Elem.Primitive))
			return k.Length * n, err
		}
		n, err := StaticSize(reg, k.Elem.Class)
		if err != nil || n < 0 {
			return n, err
		}
		return k.Length * n, nil
	case *ir.DynamicListKind:
		return -1, nil
	}
	return 0, fmt.Errorf("attribute has no kind")
}

func validateCountFields(a *AnalyzedLayout) error {
	// A list's count field must be on the wire before the list itself
	seen := make(map[string]bool)
	for _, region := range a.Regions {
		if dl, ok := region.Attr.Kind.(*ir.DynamicListKind); ok && !seen[dl.CountField] {
			return fmt.Errorf("field '%s' is read before its count field '%s'",
				region.Attr.Name, dl.CountField)
		}
		seen[region.Attr.Name] = true
	}
	return nil
}

// IsValid returns true if layout has no errors
func (a *AnalyzedLayout) IsValid() bool {
	return len(a.Errors) == 0
}
