package ir

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"go.uber.org/multierr"
)

// ErrSealed is returned when a class is added after Seal
var ErrSealed = errors.New("registry is sealed")

// Registry holds every class description of one generation run, keyed by name.
// It is populated by a front-end, sealed once, and read-only afterwards.
type Registry struct {
	classes map[string]*ClassDescription
	sealed  bool
}

func NewRegistry() *Registry {
	return &Registry{
		classes: make(map[string]*ClassDescription),
	}
}

// Add registers a class description
func (r *Registry) Add(c *ClassDescription) error {
	if r.sealed {
		return ErrSealed
	}
	if c == nil || c.Name == "" {
		return fmt.Errorf("class has no name")
	}
	if IsRoot(c.Name) {
		return fmt.Errorf("class name %q is reserved", c.Name)
	}
	if _, ok := r.classes[c.Name]; ok {
		return fmt.Errorf("duplicate class %q", c.Name)
	}
	if IsRoot(c.Parent) {
		c.Parent = RootName
	}
	r.classes[c.Name] = c
	return nil
}

// Lookup returns the class with the given name
func (r *Registry) Lookup(name string) (*ClassDescription, bool) {
	c, ok := r.classes[name]
	return c, ok
}

func (r *Registry) Len() int {
	return len(r.classes)
}

// Sealed reports whether Seal completed successfully
func (r *Registry) Sealed() bool {
	return r.sealed
}

// Classes returns all classes sorted by name. The order carries no
// inheritance meaning; see analyzer.Order for emission order.
func (r *Registry) Classes() []*ClassDescription {
	out := make([]*ClassDescription, 0, len(r.classes))
	for _, c := range r.classes {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].Name < out[j].Name
	})
	return out
}

// CountField resolves a dynamic list's count field within one class
func (r *Registry) CountField(class, name string) (*Attribute, *PrimitiveKind, error) {
	c, ok := r.classes[class]
	if !ok {
		return nil, nil, fmt.Errorf("unknown class %q", class)
	}
	a := c.Attribute(name)
	if a == nil {
		return nil, nil, fmt.Errorf("%s: count field %q not found", class, name)
	}
	p := a.Primitive()
	if p == nil {
		return nil, nil, fmt.Errorf("%s: count field %q must be a primitive, got %s",
			class, name, KindName(a.Kind))
	}
	return a, p, nil
}

// Ancestors returns the parent chain of a class, nearest first.
// It stops at the root sentinel, an unknown parent, or a repeated name.
func (r *Registry) Ancestors(class string) []*ClassDescription {
	var out []*ClassDescription
	seen := map[string]bool{class: true}

	c, ok := r.classes[class]
	for ok && c.HasParent() && !seen[c.Parent] {
		seen[c.Parent] = true
		c, ok = r.classes[c.Parent]
		if ok {
			out = append(out, c)
		}
	}
	return out
}

// FindAttribute searches a class and then its ancestors for an attribute
func (r *Registry) FindAttribute(class, name string) (*ClassDescription, *Attribute, bool) {
	c, ok := r.classes[class]
	if !ok {
		return nil, nil, false
	}
	chain := append([]*ClassDescription{c}, r.Ancestors(class)...)
	for _, owner := range chain {
		if a := owner.Attribute(name); a != nil {
			return owner, a, true
		}
	}
	return nil, nil, false
}

// Seal checks structural consistency, links count fields to their lists,
// and freezes the registry. All problems found are returned together.
func (r *Registry) Seal() error {
	if r.sealed {
		return nil
	}

	var errs error
	for _, c := range r.Classes() {
		errs = multierr.Append(errs, r.checkClass(c))
	}
	if errs == nil {
		errs = r.checkEmbedding()
	}
	if errs != nil {
		return errs
	}

	for _, c := range r.classes {
		for _, a := range c.Attributes {
			if dl, ok := a.Kind.(*DynamicListKind); ok {
				_, p, _ := r.CountField(c.Name, dl.CountField)
				p.CountFor = a.Name
			}
			if p := a.Primitive(); p != nil {
				for i := range p.BitFields {
					p.BitFields[i].Owner = a.Name
				}
			}
		}
	}

	r.sealed = true
	return nil
}

func (r *Registry) checkClass(c *ClassDescription) error {
	var errs error
	names := make(map[string]bool)
	counted := make(map[string]string) // count field -> list

	for _, a := range c.Attributes {
		if a.Name == "" {
			errs = multierr.Append(errs, fmt.Errorf("%s: attribute has no name", c.Name))
			continue
		}
		if names[a.Name] {
			errs = multierr.Append(errs, fmt.Errorf("%s: duplicate attribute %q", c.Name, a.Name))
		}
		names[a.Name] = true

		switch k := a.Kind.(type) {
		case *PrimitiveKind:
			if !k.Type.Valid() {
				errs = multierr.Append(errs, fmt.Errorf("%s.%s: unknown primitive type %q",
					c.Name, a.Name, k.Type))
			}
		case *ClassRefKind:
			errs = multierr.Append(errs, r.checkClassName(c, a, k.Class))
		case *FixedListKind:
			if k.Length <= 0 {
				errs = multierr.Append(errs, fmt.Errorf("%s.%s: fixed list length must be positive, got %d",
					c.Name, a.Name, k.Length))
			}
			errs = multierr.Append(errs, r.checkElem(c, a, k.Elem))
		case *DynamicListKind:
			errs = multierr.Append(errs, r.checkElem(c, a, k.Elem))
			_, p, err := r.CountField(c.Name, k.CountField)
			if err != nil {
				errs = multierr.Append(errs, fmt.Errorf("%s.%s: %w", c.Name, a.Name, err))
				continue
			}
			if p.Type.Float() {
				errs = multierr.Append(errs, fmt.Errorf("%s.%s: count field %q must be an integer type, got %s",
					c.Name, a.Name, k.CountField, p.Type))
			}
			if prev, dup := counted[k.CountField]; dup {
				errs = multierr.Append(errs, fmt.Errorf("%s: count field %q shared by %q and %q",
					c.Name, k.CountField, prev, a.Name))
			}
			counted[k.CountField] = a.Name
		default:
			errs = multierr.Append(errs, fmt.Errorf("%s.%s: attribute has no kind", c.Name, a.Name))
		}
	}
	return errs
}

func (r *Registry) checkElem(c *ClassDescription, a *Attribute, e Element) error {
	if e.IsClass() {
		if e.Primitive != "" {
			return fmt.Errorf("%s.%s: element is both %s and %s", c.Name, a.Name, e.Primitive, e.Class)
		}
		return r.checkClassName(c, a, e.Class)
	}
	if !e.Primitive.Valid() {
		return fmt.Errorf("%s.%s: unknown element type %q", c.Name, a.Name, e.Primitive)
	}
	return nil
}

func (r *Registry) checkClassName(c *ClassDescription, a *Attribute, name string) error {
	if _, ok := r.classes[name]; !ok {
		return fmt.Errorf("%s.%s: unknown class %q", c.Name, a.Name, name)
	}
	return nil
}

// embeds returns the classes constructed inline by an instance of class,
// including those of its ancestors.
func (r *Registry) embeds(class string) []string {
	var out []string
	c := r.classes[class]
	chain := append([]*ClassDescription{c}, r.Ancestors(class)...)
	for _, owner := range chain {
		for _, a := range owner.Attributes {
			switch k := a.Kind.(type) {
			case *ClassRefKind:
				out = append(out, k.Class)
			case *FixedListKind:
				if k.Elem.IsClass() {
					out = append(out, k.Elem.Class)
				}
			}
		}
	}
	return out
}

// checkEmbedding rejects classes that embed themselves by value.
// Dynamic lists start empty and do not count.
func (r *Registry) checkEmbedding() error {
	const (
		unvisited = iota
		visiting
		done
	)
	state := make(map[string]int)

	var visit func(name string, path []string) error
	visit = func(name string, path []string) error {
		switch state[name] {
		case visiting:
			return fmt.Errorf("class %q embeds itself: %s", name,
				strings.Join(append(path, name), " -> "))
		case done:
			return nil
		}
		state[name] = visiting
		for _, child := range r.embeds(name) {
			if err := visit(child, append(path, name)); err != nil {
				// leave the failed path settled so later roots do not see it as a cycle
				state[name] = done
				return err
			}
		}
		state[name] = done
		return nil
	}

	var errs error
	for _, c := range r.Classes() {
		if state[c.Name] == unvisited {
			errs = multierr.Append(errs, visit(c.Name, nil))
		}
	}
	return errs
}
