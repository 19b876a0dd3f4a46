package analyzer

import (
	"fmt"

	"github.com/alexhholmes/pdugen/internal/ir"
	"go.uber.org/multierr"
	"go.uber.org/zap"
)

// Op is one step of a planned method body
type Op int

const (
	OpSuper Op = iota // delegate to the parent class

	// marshal
	OpWrite        // write a primitive field
	OpWriteLength  // write the live length of List, not the field's value
	OpMarshal      // delegate to the embedded instance
	OpWriteArray   // write Length primitives
	OpMarshalArray // delegate to Length elements
	OpWriteList    // write each primitive element
	OpMarshalList  // delegate to each element

	// unmarshal
	OpRead           // read a primitive field
	OpUnmarshal      // unmarshal into the existing embedded instance
	OpReadArray      // read Length primitives into preallocated storage
	OpUnmarshalArray // unmarshal into Length preallocated elements
	OpReadList       // clear, then read Count primitives
	OpUnmarshalList  // clear, then construct and unmarshal Count elements

	// size
	OpSizeConst       // add Bytes
	OpSizeObject      // add the embedded instance's size
	OpSizeArray       // add each element's size
	OpSizeList        // add live length * Bytes
	OpSizeListObjects // add each element's size

	// constructor
	OpInitValue       // set a primitive to Value
	OpInitObject      // construct a default instance
	OpInitArray       // allocate Length zero primitives
	OpInitObjectArray // allocate Length default instances
	OpInitList        // start with an empty list
	OpAssign          // override an inherited attribute with Value
)

var opNames = map[Op]string{
	OpSuper:           "super",
	OpWrite:           "write",
	OpWriteLength:     "write-length",
	OpMarshal:         "marshal",
	OpWriteArray:      "write-array",
	OpMarshalArray:    "marshal-array",
	OpWriteList:       "write-list",
	OpMarshalList:     "marshal-list",
	OpRead:            "read",
	OpUnmarshal:       "unmarshal",
	OpReadArray:       "read-array",
	OpUnmarshalArray:  "unmarshal-array",
	OpReadList:        "read-list",
	OpUnmarshalList:   "unmarshal-list",
	OpSizeConst:       "size-const",
	OpSizeObject:      "size-object",
	OpSizeArray:       "size-array",
	OpSizeList:        "size-list",
	OpSizeListObjects: "size-list-objects",
	OpInitValue:       "init-value",
	OpInitObject:      "init-object",
	OpInitArray:       "init-array",
	OpInitObjectArray: "init-object-array",
	OpInitList:        "init-list",
	OpAssign:          "assign",
}

func (o Op) String() string {
	if s, ok := opNames[o]; ok {
		return s
	}
	return fmt.Sprintf("op(%d)", int(o))
}

// Action is one planned step. Only the fields relevant to Op are set.
type Action struct {
	Op     Op
	Attr   string       // attribute the step operates on
	Type   ir.Primitive // wire type of a primitive field or element
	Class  string       // class of an embedded instance or element; parent for OpSuper
	Length int          // fixed list length
	List   string       // OpWriteLength: the list whose length is written
	Count  string       // OpReadList/OpUnmarshalList: the count field
	Bytes  int          // OpSizeConst total, OpSizeList element width
	Value  string       // constructor literal
	Owner  string       // OpAssign: class declaring Attr
}

// ClassPlan is everything a backend needs to render one class
type ClassPlan struct {
	Class     *ir.ClassDescription
	Init      []Action
	Marshal   []Action
	Unmarshal []Action
	Size      []Action
	BitFields []BitAccessor
	Warnings  []string
}

// Name returns the planned class name
func (p *ClassPlan) Name() string {
	return p.Class.Name
}

// Options tune the planner
type Options struct {
	// PrimitiveDynamicLists allows dynamic lists of primitive elements.
	// Without it such lists are rejected as unsupported.
	PrimitiveDynamicLists bool
}

// Planner turns sealed class descriptions into action lists
type Planner struct {
	reg  *ir.Registry
	opts Options
	log  *zap.Logger
}

func NewPlanner(reg *ir.Registry, opts Options) *Planner {
	return &Planner{
		reg:  reg,
		opts: opts,
		log:  Logger(),
	}
}

// Plan produces the four action lists for one class
func (p *Planner) Plan(c *ir.ClassDescription) (*ClassPlan, error) {
	if !p.reg.Sealed() {
		return nil, fmt.Errorf("plan %s: registry is not sealed", c.Name)
	}

	plan := &ClassPlan{Class: c}
	if c.HasParent() {
		super := Action{Op: OpSuper, Class: c.Parent}
		plan.Init = append(plan.Init, super)
		plan.Marshal = append(plan.Marshal, super)
		plan.Unmarshal = append(plan.Unmarshal, super)
		plan.Size = append(plan.Size, super)
	}

	overrides, assigns := p.resolveInitialValues(c, plan)

	var errs error
	for idx, a := range c.Attributes {
		plan.Init = append(plan.Init, initAction(a, overrides))
		plan.BitFields = append(plan.BitFields, bitAccessors(a)...)

		if !a.ShouldSerialize() {
			if a.IsCountField() {
				errs = multierr.Append(errs, &PlanError{
					Kind: KindInvalid, Class: c.Name, Attribute: a.Name,
					Detail: fmt.Sprintf("count field for %q cannot be transient", a.Primitive().CountFor),
				})
			}
			continue
		}

		if err := p.checkCountOrder(c, idx, a); err != nil {
			errs = multierr.Append(errs, err)
			continue
		}

		m, u, s, err := p.wireActions(c, a)
		if err != nil {
			errs = multierr.Append(errs, err)
			continue
		}
		plan.Marshal = append(plan.Marshal, m)
		plan.Unmarshal = append(plan.Unmarshal, u)
		plan.Size = append(plan.Size, s)
	}
	if errs != nil {
		return nil, errs
	}

	plan.Init = append(plan.Init, assigns...)
	return plan, nil
}

// wireActions returns the marshal, unmarshal and size steps of one attribute
func (p *Planner) wireActions(c *ir.ClassDescription, a *ir.Attribute) (m, u, s Action, err error) {
	switch k := a.Kind.(type) {
	case *ir.PrimitiveKind:
		m = Action{Op: OpWrite, Attr: a.Name, Type: k.Type}
		if k.CountFor != "" {
			m = Action{Op: OpWriteLength, Attr: a.Name, Type: k.Type, List: k.CountFor}
		}
		u = Action{Op: OpRead, Attr: a.Name, Type: k.Type}
		s = Action{Op: OpSizeConst, Attr: a.Name, Type: k.Type, Bytes: k.Type.Width()}

	case *ir.ClassRefKind:
		m = Action{Op: OpMarshal, Attr: a.Name, Class: k.Class}
		u = Action{Op: OpUnmarshal, Attr: a.Name, Class: k.Class}
		s = Action{Op: OpSizeObject, Attr: a.Name, Class: k.Class}

	case *ir.FixedListKind:
		if k.Elem.IsClass() {
			m = Action{Op: OpMarshalArray, Attr: a.Name, Class: k.Elem.Class, Length: k.Length}
			u = Action{Op: OpUnmarshalArray, Attr: a.Name, Class: k.Elem.Class, Length: k.Length}
			s = Action{Op: OpSizeArray, Attr: a.Name, Class: k.Elem.Class, Length: k.Length}
			break
		}
		t := k.Elem.Primitive
		m = Action{Op: OpWriteArray, Attr: a.Name, Type: t, Length: k.Length}
		u = Action{Op: OpReadArray, Attr: a.Name, Type: t, Length: k.Length}
		s = Action{Op: OpSizeConst, Attr: a.Name, Type: t, Length: k.Length, Bytes: k.Length * t.Width()}

	case *ir.DynamicListKind:
		if k.Elem.IsClass() {
			m = Action{Op: OpMarshalList, Attr: a.Name, Class: k.Elem.Class}
			u = Action{Op: OpUnmarshalList, Attr: a.Name, Class: k.Elem.Class, Count: k.CountField}
			s = Action{Op: OpSizeListObjects, Attr: a.Name, Class: k.Elem.Class}
			break
		}
		if !p.opts.PrimitiveDynamicLists {
			return m, u, s, unsupported(c.Name, a.Name,
				"dynamic list of primitive %s elements", k.Elem.Primitive)
		}
		t := k.Elem.Primitive
		m = Action{Op: OpWriteList, Attr: a.Name, Type: t}
		u = Action{Op: OpReadList, Attr: a.Name, Type: t, Count: k.CountField}
		s = Action{Op: OpSizeList, Attr: a.Name, Type: t, Bytes: t.Width()}

	default:
		return m, u, s, &PlanError{Kind: KindInvalid, Class: c.Name, Attribute: a.Name,
			Detail: "attribute has no kind"}
	}
	return m, u, s, nil
}

// checkCountOrder requires a dynamic list's count field to be read before the list
func (p *Planner) checkCountOrder(c *ir.ClassDescription, idx int, a *ir.Attribute) error {
	dl, ok := a.Kind.(*ir.DynamicListKind)
	if !ok {
		return nil
	}
	for _, prev := range c.Attributes[:idx] {
		if prev.Name == dl.CountField {
			return nil
		}
	}
	return &PlanError{
		Kind: KindInvalid, Class: c.Name, Attribute: a.Name,
		Detail: fmt.Sprintf("count field %q must precede the list", dl.CountField),
	}
}

func initAction(a *ir.Attribute, overrides map[string]string) Action {
	switch k := a.Kind.(type) {
	case *ir.PrimitiveKind:
		v := "0"
		if k.Default != "" {
			v = k.Default
		}
		if o, ok := overrides[a.Name]; ok {
			v = o
		}
		return Action{Op: OpInitValue, Attr: a.Name, Type: k.Type, Value: v}
	case *ir.ClassRefKind:
		return Action{Op: OpInitObject, Attr: a.Name, Class: k.Class}
	case *ir.FixedListKind:
		if k.Elem.IsClass() {
			return Action{Op: OpInitObjectArray, Attr: a.Name, Class: k.Elem.Class, Length: k.Length}
		}
		return Action{Op: OpInitArray, Attr: a.Name, Type: k.Elem.Primitive, Length: k.Length}
	case *ir.DynamicListKind:
		return Action{Op: OpInitList, Attr: a.Name, Type: k.Elem.Primitive, Class: k.Elem.Class}
	}
	return Action{Op: OpInitList, Attr: a.Name}
}

// resolveInitialValues splits a class's initial values into overrides of its
// own primitives and assignments to inherited ones. Unknown targets are
// reported and skipped.
func (p *Planner) resolveInitialValues(c *ir.ClassDescription, plan *ClassPlan) (map[string]string, []Action) {
	overrides := make(map[string]string)
	var assigns []Action

	for _, iv := range c.InitialValues {
		owner, a, ok := p.reg.FindAttribute(c.Name, iv.Attribute)
		if !ok {
			p.warn(plan, fmt.Sprintf("no attribute matches initial value %q in class %s or its ancestors",
				iv.Attribute, c.Name), zap.String("attribute", iv.Attribute))
			continue
		}
		prim := a.Primitive()
		if prim == nil {
			p.warn(plan, fmt.Sprintf("initial value %q in class %s targets a %s attribute",
				iv.Attribute, c.Name, ir.KindName(a.Kind)), zap.String("attribute", iv.Attribute))
			continue
		}
		if owner == c {
			overrides[a.Name] = iv.Value
			continue
		}
		assigns = append(assigns, Action{
			Op: OpAssign, Attr: a.Name, Type: prim.Type, Value: iv.Value, Owner: owner.Name,
		})
	}
	return overrides, assigns
}

func (p *Planner) warn(plan *ClassPlan, msg string, fields ...zap.Field) {
	plan.Warnings = append(plan.Warnings, msg)
	p.log.Warn(msg, append(fields, zap.String("class", plan.Class.Name))...)
}

// Program is the planned output of one run, in emission order
type Program struct {
	Registry *ir.Registry
	Plans    []*ClassPlan
	byName   map[string]*ClassPlan
}

// Plan returns the plan of a class by name
func (p *Program) Plan(name string) (*ClassPlan, bool) {
	cp, ok := p.byName[name]
	return cp, ok
}

// Warnings returns every warning recorded while planning
func (p *Program) Warnings() []string {
	var out []string
	for _, cp := range p.Plans {
		out = append(out, cp.Warnings...)
	}
	return out
}

// PlanAll orders the registry and plans every class. Problems in several
// classes are reported together.
func PlanAll(reg *ir.Registry, opts Options) (*Program, error) {
	order, err := Order(reg)
	if err != nil {
		return nil, err
	}

	planner := NewPlanner(reg, opts)
	prog := &Program{
		Registry: reg,
		byName:   make(map[string]*ClassPlan, len(order)),
	}

	var errs error
	for _, c := range order {
		cp, err := planner.Plan(c)
		if err != nil {
			errs = multierr.Append(errs, err)
			continue
		}
		prog.Plans = append(prog.Plans, cp)
		prog.byName[c.Name] = cp
	}
	if errs != nil {
		return nil, errs
	}

	planner.log.Debug("planned classes", zap.Int("classes", len(prog.Plans)))
	return prog, nil
}
