package analyzer

import (
	"fmt"

	"github.com/alexhholmes/pdugen/internal/ir"
)

// SizeOf returns the wire size in bytes of a canonical primitive type name
func SizeOf(typeName string) (int, error) {
	p, ok := ir.ParsePrimitive(typeName)
	if !ok {
		return 0, fmt.Errorf("unknown type: %s", typeName)
	}
	return p.Width(), nil
}

// StaticSize returns the marshalled size of a class when it does not depend
// on instance contents. Returns -1 for classes that contain a dynamic list,
// directly, through an ancestor, or through an embedded class.
//
// Transient attributes do not count, matching the planned size actions.
func StaticSize(reg *ir.Registry, class string) (int, error) {
	return staticSize(reg, class, make(map[string]bool))
}

func staticSize(reg *ir.Registry, class string, visiting map[string]bool) (int, error) {
	c, ok := reg.Lookup(class)
	if !ok {
		return 0, fmt.Errorf("unknown class: %s", class)
	}
	if visiting[class] {
		return 0, fmt.Errorf("class %s contains itself", class)
	}
	visiting[class] = true
	defer delete(visiting, class)

	total := 0
	if c.HasParent() {
		n, err := staticSize(reg, c.Parent, visiting)
		if err != nil || n < 0 {
			return n, err
		}
		total = n
	}

	for _, a := range c.Attributes {
		if !a.ShouldSerialize() {
			continue
		}

		switch k := a.Kind.(type) {
		case *ir.PrimitiveKind:
			n, err := SizeOf(string(k.Type))
			if err != nil {
				return 0, fmt.Errorf("%s.%s: %w", class, a.Name, err)
			}
			total += n

		case *ir.ClassRefKind:
			n, err := staticSize(reg, k.Class, visiting)
			if err != nil || n < 0 {
				return n, err
			}
			total += n

		case *ir.FixedListKind:
			var elem int
			if k.Elem.IsClass() {
				n, err := staticSize(reg, k.Elem.Class, visiting)
				if err != nil || n < 0 {
					return n, err
				}
				elem = n
			} else {
				n, err := SizeOf(string(k.Elem.Primitive))
				if err != nil {
					return 0, fmt.Errorf("%s.%s: %w", class, a.Name, err)
				}
				elem = n
			}
			total += k.Length * elem

		case *ir.DynamicListKind:
			return -1, nil

		default:
			return 0, fmt.Errorf("%s.%s: attribute has no kind", class, a.Name)
		}
	}
	return total, nil
}
