package analyzer

import (
	"sort"

	"github.com/alexhholmes/pdugen/internal/ir"
	"go.uber.org/zap"
)

// Order returns every class of the registry so that each class comes
// strictly after its parent.
//
// Classes are attached under the synthetic root in passes: each pass places
// the remaining classes whose parent is already placed. The emission order is
// the pre-order walk of the resulting forest. A pass that places nothing
// while classes remain means unresolved or cyclic parents and is fatal.
func Order(reg *ir.Registry) ([]*ir.ClassDescription, error) {
	remaining := reg.Classes()
	children := make(map[string][]string) // parent -> children in attach order
	placed := map[string]bool{ir.RootName: true}

	for len(remaining) > 0 {
		var next []*ir.ClassDescription
		var attached []string
		for _, c := range remaining {
			parent := parentKey(c)
			if placed[parent] {
				children[parent] = append(children[parent], c.Name)
				attached = append(attached, c.Name)
				continue
			}
			next = append(next, c)
		}
		// Mark after the scan so one pass attaches exactly one tree level.
		for _, n := range attached {
			placed[n] = true
		}

		if len(attached) == 0 {
			return nil, orderError(next)
		}
		remaining = next
	}

	order := make([]*ir.ClassDescription, 0, reg.Len())
	stack := []string{ir.RootName}
	for len(stack) > 0 {
		name := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if c, ok := reg.Lookup(name); ok {
			order = append(order, c)
		}
		kids := children[name]
		for i := len(kids) - 1; i >= 0; i-- {
			stack = append(stack, kids[i])
		}
	}

	Logger().Debug("class order resolved", zap.Int("classes", len(order)))
	return order, nil
}

func parentKey(c *ir.ClassDescription) string {
	if !c.HasParent() {
		return ir.RootName
	}
	return c.Parent
}

func orderError(unplaced []*ir.ClassDescription) *OrderError {
	e := &OrderError{Parents: make(map[string]string, len(unplaced))}
	for _, c := range unplaced {
		e.Classes = append(e.Classes, c.Name)
		e.Parents[c.Name] = c.Parent
	}
	sort.Strings(e.Classes)
	return e
}
