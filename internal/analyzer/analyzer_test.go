package analyzer

import (
	"testing"

	"github.com/alexhholmes/pdugen/internal/ir"
)

func TestAnalyzeFixedChain(t *testing.T) {
	reg := sealed(t,
		&ir.ClassDescription{Name: "Pdu", Attributes: []*ir.Attribute{
			prim("protocolVersion", ir.Uint8),
			prim("timestamp", ir.Uint32),
			{Name: "cache", Kind: &ir.PrimitiveKind{Type: ir.Uint64}, Transient: true},
		}},
		&ir.ClassDescription{Name: "EntityPdu", Parent: "Pdu", Attributes: []*ir.Attribute{
			{Name: "location", Kind: &ir.FixedListKind{Length: 3, Elem: ir.PrimitiveElem(ir.Float64)}},
			prim("flags", ir.Uint16),
		}},
	)

	a, err := Analyze(reg, "EntityPdu")
	if err != nil {
		t.Fatalf("Analyze() error: %v", err)
	}
	if !a.IsValid() {
		t.Fatalf("Analyze() errors: %v", a.Errors)
	}
	if a.StaticSize != 1+4+24+2 {
		t.Errorf("StaticSize = %d, want 31", a.StaticSize)
	}

	want := []struct {
		class, attr     string
		start, boundary int
	}{
		{"Pdu", "protocolVersion", 0, 1},
		{"Pdu", "timestamp", 1, 5},
		{"EntityPdu", "location", 5, 29},
		{"EntityPdu", "flags", 29, 31},
	}
	if len(a.Regions) != len(want) {
		t.Fatalf("got %d regions, want %d", len(a.Regions), len(want))
	}
	for i, w := range want {
		r := a.Regions[i]
		if r.Class != w.class || r.Attr.Name != w.attr || r.Start != w.start || r.Boundary != w.boundary {
			t.Errorf("region %d = %s.%s [%d, %d), want %s.%s [%d, %d)",
				i, r.Class, r.Attr.Name, r.Start, r.Boundary, w.class, w.attr, w.start, w.boundary)
		}
		if r.Kind != FixedRegion {
			t.Errorf("region %d kind = %s, want fixed", i, r.Kind)
		}
	}
}

func TestAnalyzeDynamic(t *testing.T) {
	reg := sealed(t, append(fooBarClasses(),
		&ir.ClassDescription{Name: "Tail", Parent: "Foo", Attributes: []*ir.Attribute{prim("crc", ir.Uint32)}},
	)...)

	a, err := Analyze(reg, "Tail")
	if err != nil {
		t.Fatalf("Analyze() error: %v", err)
	}
	if a.StaticSize != -1 {
		t.Errorf("StaticSize = %d, want -1", a.StaticSize)
	}

	kinds := []RegionKind{FixedRegion, FixedRegion, DynamicRegion, FixedRegion}
	starts := []int{0, 1, 3, -1}
	if len(a.Regions) != len(kinds) {
		t.Fatalf("got %d regions, want %d", len(a.Regions), len(kinds))
	}
	for i, r := range a.Regions {
		if r.Kind != kinds[i] || r.Start != starts[i] {
			t.Errorf("region %d (%s) = %s @%d, want %s @%d", i, r.Attr.Name, r.Kind, r.Start, kinds[i], starts[i])
		}
	}
	if a.Regions[2].Boundary != -1 {
		t.Errorf("dynamic region boundary = %d, want -1", a.Regions[2].Boundary)
	}
}

func TestAnalyzeCountAfterList(t *testing.T) {
	reg := sealed(t, &ir.ClassDescription{Name: "Late", Attributes: []*ir.Attribute{
		{Name: "items", Kind: &ir.DynamicListKind{CountField: "count", Elem: ir.ClassElem("Late")}},
		prim("count", ir.Uint8),
	}})

	a, err := Analyze(reg, "Late")
	if err == nil {
		t.Fatal("expected count field error")
	}
	if a.IsValid() {
		t.Error("layout reported valid")
	}
}

func TestAnalyzeUnknownClass(t *testing.T) {
	if _, err := Analyze(ir.NewRegistry(), "Missing"); err == nil {
		t.Fatal("expected error")
	}
}

func TestRegionKindString(t *testing.T) {
	if FixedRegion.String() != "fixed" || DynamicRegion.String() != "dynamic" {
		t.Errorf("got %s, %s", FixedRegion, DynamicRegion)
	}
}
