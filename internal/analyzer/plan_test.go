package analyzer

import (
	"errors"
	"strings"
	"testing"

	"github.com/alexhholmes/pdugen/internal/ir"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func prim(name string, t ir.Primitive) *ir.Attribute {
	return &ir.Attribute{Name: name, Kind: &ir.PrimitiveKind{Type: t}}
}

func sealed(t *testing.T, classes ...*ir.ClassDescription) *ir.Registry {
	t.Helper()
	reg := ir.NewRegistry()
	for _, c := range classes {
		if err := reg.Add(c); err != nil {
			t.Fatalf("Add(%s) error: %v", c.Name, err)
		}
	}
	if err := reg.Seal(); err != nil {
		t.Fatalf("Seal() error: %v", err)
	}
	return reg
}

// fooBarClasses is Foo{field1 uint8, numItems uint16, items []Bar} with a 4-byte Bar
func fooBarClasses() []*ir.ClassDescription {
	return []*ir.ClassDescription{
		{Name: "Bar", Parent: "root", Attributes: []*ir.Attribute{prim("value", ir.Uint32)}},
		{Name: "Foo", Parent: "root", Attributes: []*ir.Attribute{
			{Name: "field1", Kind: &ir.PrimitiveKind{Type: ir.Uint8, Default: "0"}},
			prim("numItems", ir.Uint16),
			{Name: "items", Kind: &ir.DynamicListKind{CountField: "numItems", Elem: ir.ClassElem("Bar")}},
		}},
	}
}

func opString(acts []Action) string {
	parts := make([]string, len(acts))
	for i, a := range acts {
		parts[i] = a.Op.String()
		if a.Attr != "" {
			parts[i] += ":" + a.Attr
		}
	}
	return strings.Join(parts, " ")
}

func planOf(t *testing.T, reg *ir.Registry, class string, opts Options) *ClassPlan {
	t.Helper()
	c, ok := reg.Lookup(class)
	if !ok {
		t.Fatalf("no class %s", class)
	}
	cp, err := NewPlanner(reg, opts).Plan(c)
	if err != nil {
		t.Fatalf("Plan(%s) error: %v", class, err)
	}
	return cp
}

func TestPlanDynamicList(t *testing.T) {
	reg := sealed(t, fooBarClasses()...)
	cp := planOf(t, reg, "Foo", Options{})

	tests := []struct {
		name string
		acts []Action
		want string
	}{
		{"init", cp.Init, "init-value:field1 init-value:numItems init-list:items"},
		{"marshal", cp.Marshal, "write:field1 write-length:numItems marshal-list:items"},
		{"unmarshal", cp.Unmarshal, "read:field1 read:numItems unmarshal-list:items"},
		{"size", cp.Size, "size-const:field1 size-const:numItems size-list-objects:items"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := opString(tt.acts); got != tt.want {
				t.Errorf("%s = %s, want %s", tt.name, got, tt.want)
			}
		})
	}

	if wl := cp.Marshal[1]; wl.List != "items" || wl.Type != ir.Uint16 {
		t.Errorf("write-length = %+v, want list items of uint16", wl)
	}
	if ul := cp.Unmarshal[2]; ul.Count != "numItems" || ul.Class != "Bar" {
		t.Errorf("unmarshal-list = %+v, want count numItems of Bar", ul)
	}
	if sz := cp.Size[0].Bytes + cp.Size[1].Bytes; sz != 3 {
		t.Errorf("fixed size = %d, want 3", sz)
	}
}

func TestPlanSuperFirst(t *testing.T) {
	reg := sealed(t,
		&ir.ClassDescription{Name: "Base", Attributes: []*ir.Attribute{prim("kind", ir.Uint8)}},
		&ir.ClassDescription{Name: "Derived", Parent: "Base", Attributes: []*ir.Attribute{prim("extra", ir.Int16)}},
	)
	cp := planOf(t, reg, "Derived", Options{})

	for name, acts := range map[string][]Action{
		"init": cp.Init, "marshal": cp.Marshal, "unmarshal": cp.Unmarshal, "size": cp.Size,
	} {
		if len(acts) != 2 || acts[0].Op != OpSuper || acts[0].Class != "Base" {
			t.Errorf("%s = %s, want super first", name, opString(acts))
		}
	}

	base := planOf(t, reg, "Base", Options{})
	if base.Marshal[0].Op == OpSuper {
		t.Error("root class delegates to super")
	}
}

func TestPlanKinds(t *testing.T) {
	reg := sealed(t,
		&ir.ClassDescription{Name: "Vec", Attributes: []*ir.Attribute{prim("x", ir.Float32)}},
		&ir.ClassDescription{Name: "Mixed", Attributes: []*ir.Attribute{
			{Name: "origin", Kind: &ir.ClassRefKind{Class: "Vec"}},
			{Name: "marking", Kind: &ir.FixedListKind{Length: 11, Elem: ir.PrimitiveElem(ir.Uint8)}},
			{Name: "corners", Kind: &ir.FixedListKind{Length: 4, Elem: ir.ClassElem("Vec")}},
			{Name: "cache", Kind: &ir.PrimitiveKind{Type: ir.Uint32}, Transient: true},
		}},
	)
	cp := planOf(t, reg, "Mixed", Options{})

	if got, want := opString(cp.Init), "init-object:origin init-array:marking init-object-array:corners init-value:cache"; got != want {
		t.Errorf("init = %s, want %s", got, want)
	}
	if got, want := opString(cp.Marshal), "marshal:origin write-array:marking marshal-array:corners"; got != want {
		t.Errorf("marshal = %s, want %s", got, want)
	}
	if got, want := opString(cp.Unmarshal), "unmarshal:origin read-array:marking unmarshal-array:corners"; got != want {
		t.Errorf("unmarshal = %s, want %s", got, want)
	}
	if got, want := opString(cp.Size), "size-object:origin size-const:marking size-array:corners"; got != want {
		t.Errorf("size = %s, want %s", got, want)
	}
	if cp.Size[1].Bytes != 11 {
		t.Errorf("marking size = %d, want 11", cp.Size[1].Bytes)
	}
	if cp.Size[2].Length != 4 || cp.Size[2].Class != "Vec" {
		t.Errorf("corners size = %+v", cp.Size[2])
	}
}

func TestPlanInitialValues(t *testing.T) {
	core, logs := observer.New(zapcore.WarnLevel)
	SetLogger(zap.New(core))
	defer SetLogger(nil)

	reg := sealed(t,
		&ir.ClassDescription{Name: "Vec", Attributes: []*ir.Attribute{prim("x", ir.Float32)}},
		&ir.ClassDescription{Name: "Pdu", Attributes: []*ir.Attribute{
			{Name: "protocolVersion", Kind: &ir.PrimitiveKind{Type: ir.Uint8, Default: "7"}},
			prim("pduType", ir.Uint8),
		}},
		&ir.ClassDescription{Name: "EntityStatePdu", Parent: "Pdu",
			Attributes: []*ir.Attribute{
				{Name: "forceId", Kind: &ir.PrimitiveKind{Type: ir.Uint8, Default: "2"}},
				{Name: "origin", Kind: &ir.ClassRefKind{Class: "Vec"}},
			},
			InitialValues: []ir.InitialValue{
				{Attribute: "pduType", Value: "1"},
				{Attribute: "forceId", Value: "3"},
				{Attribute: "missing", Value: "9"},
				{Attribute: "origin", Value: "0"},
			},
		},
	)
	cp := planOf(t, reg, "EntityStatePdu", Options{})

	if got, want := opString(cp.Init), "super init-value:forceId init-object:origin assign:pduType"; got != want {
		t.Fatalf("init = %s, want %s", got, want)
	}
	if v := cp.Init[1].Value; v != "3" {
		t.Errorf("forceId = %s, want override 3", v)
	}
	assign := cp.Init[3]
	if assign.Value != "1" || assign.Owner != "Pdu" || assign.Type != ir.Uint8 {
		t.Errorf("assign = %+v", assign)
	}

	if len(cp.Warnings) != 2 {
		t.Fatalf("Warnings = %v, want 2", cp.Warnings)
	}
	if !strings.Contains(cp.Warnings[0], "missing") || !strings.Contains(cp.Warnings[1], "classref") {
		t.Errorf("Warnings = %v", cp.Warnings)
	}

	entries := logs.All()
	if len(entries) != 2 {
		t.Fatalf("logged %d warnings, want 2", len(entries))
	}
	for _, e := range entries {
		if e.Level != zapcore.WarnLevel {
			t.Errorf("level = %s, want warn", e.Level)
		}
		if e.ContextMap()["class"] != "EntityStatePdu" {
			t.Errorf("class field = %v", e.ContextMap()["class"])
		}
	}

	pdu := planOf(t, reg, "Pdu", Options{})
	if v := pdu.Init[0].Value; v != "7" {
		t.Errorf("protocolVersion = %s, want default 7", v)
	}
	if v := pdu.Init[1].Value; v != "0" {
		t.Errorf("pduType = %s, want 0", v)
	}
}

func TestPlanErrors(t *testing.T) {
	tests := []struct {
		name  string
		class *ir.ClassDescription
		kind  Kind
		want  string
	}{
		{
			name: "primitive dynamic list",
			class: &ir.ClassDescription{Name: "Samples", Attributes: []*ir.Attribute{
				prim("count", ir.Uint8),
				{Name: "values", Kind: &ir.DynamicListKind{CountField: "count", Elem: ir.PrimitiveElem(ir.Int16)}},
			}},
			kind: KindUnsupported,
			want: "Samples.values",
		},
		{
			name: "transient count field",
			class: &ir.ClassDescription{Name: "Hidden", Attributes: []*ir.Attribute{
				{Name: "count", Kind: &ir.PrimitiveKind{Type: ir.Uint8}, Transient: true},
				{Name: "items", Kind: &ir.DynamicListKind{CountField: "count", Elem: ir.ClassElem("Hidden")}},
			}},
			kind: KindInvalid,
			want: "cannot be transient",
		},
		{
			name: "count after list",
			class: &ir.ClassDescription{Name: "Late", Attributes: []*ir.Attribute{
				{Name: "items", Kind: &ir.DynamicListKind{CountField: "count", Elem: ir.ClassElem("Late")}},
				prim("count", ir.Uint8),
			}},
			kind: KindInvalid,
			want: "must precede the list",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			reg := sealed(t, tt.class)
			_, err := NewPlanner(reg, Options{}).Plan(tt.class)
			if err == nil {
				t.Fatal("expected error")
			}
			if !errors.Is(err, &PlanError{Kind: tt.kind}) {
				t.Errorf("error %v is not %s", err, tt.kind)
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Errorf("error = %v, want %q", err, tt.want)
			}
		})
	}
}

func TestPlanPrimitiveDynamicListOption(t *testing.T) {
	c := &ir.ClassDescription{Name: "Samples", Attributes: []*ir.Attribute{
		prim("count", ir.Uint8),
		{Name: "values", Kind: &ir.DynamicListKind{CountField: "count", Elem: ir.PrimitiveElem(ir.Int16)}},
	}}
	reg := sealed(t, c)

	_, err := NewPlanner(reg, Options{}).Plan(c)
	if !errors.Is(err, ErrUnsupported) {
		t.Fatalf("error = %v, want ErrUnsupported", err)
	}

	cp := planOf(t, reg, "Samples", Options{PrimitiveDynamicLists: true})
	if got, want := opString(cp.Marshal), "write-length:count write-list:values"; got != want {
		t.Errorf("marshal = %s, want %s", got, want)
	}
	if got := cp.Size[1]; got.Op != OpSizeList || got.Bytes != 2 {
		t.Errorf("size = %+v, want size-list of 2 bytes", got)
	}
}

func TestPlanUnsealed(t *testing.T) {
	reg := ir.NewRegistry()
	c := &ir.ClassDescription{Name: "A"}
	if err := reg.Add(c); err != nil {
		t.Fatal(err)
	}
	if _, err := NewPlanner(reg, Options{}).Plan(c); err == nil {
		t.Fatal("expected error for unsealed registry")
	}
}

func TestPlanAll(t *testing.T) {
	classes := append(fooBarClasses(),
		&ir.ClassDescription{Name: "SubFoo", Parent: "Foo",
			InitialValues: []ir.InitialValue{{Attribute: "nope", Value: "1"}}},
	)
	prog, err := PlanAll(sealed(t, classes...), Options{})
	if err != nil {
		t.Fatalf("PlanAll() error: %v", err)
	}

	var got []string
	for _, cp := range prog.Plans {
		got = append(got, cp.Name())
	}
	if strings.Join(got, " ") != "Bar Foo SubFoo" {
		t.Errorf("plans = %v", got)
	}
	if _, ok := prog.Plan("SubFoo"); !ok {
		t.Error("Plan(SubFoo) not found")
	}
	if _, ok := prog.Plan("Nope"); ok {
		t.Error("Plan(Nope) found")
	}
	if w := prog.Warnings(); len(w) != 1 {
		t.Errorf("Warnings() = %v, want 1", w)
	}
}

func TestPlanAllAggregatesErrors(t *testing.T) {
	bad := func(name string) *ir.ClassDescription {
		return &ir.ClassDescription{Name: name, Attributes: []*ir.Attribute{
			prim("n", ir.Uint8),
			{Name: "vals", Kind: &ir.DynamicListKind{CountField: "n", Elem: ir.PrimitiveElem(ir.Uint8)}},
		}}
	}
	_, err := PlanAll(sealed(t, bad("First"), bad("Second")), Options{})
	if err == nil {
		t.Fatal("expected error")
	}
	for _, name := range []string{"First.vals", "Second.vals"} {
		if !strings.Contains(err.Error(), name) {
			t.Errorf("error %q does not mention %s", err, name)
		}
	}
}

func TestPlanAllOrderError(t *testing.T) {
	reg := ir.NewRegistry()
	for _, c := range []*ir.ClassDescription{{Name: "A", Parent: "B"}, {Name: "B", Parent: "A"}} {
		if err := reg.Add(c); err != nil {
			t.Fatal(err)
		}
	}
	if err := reg.Seal(); err != nil {
		t.Fatalf("Seal() error: %v", err)
	}

	_, err := PlanAll(reg, Options{})
	var oe *OrderError
	if !errors.As(err, &oe) {
		t.Fatalf("error = %v, want *OrderError", err)
	}
}
