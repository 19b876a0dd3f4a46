package ir

import "testing"

func TestParsePrimitive(t *testing.T) {
	tests := []struct {
		in   string
		want Primitive
		ok   bool
	}{
		{"uint8", Uint8, true},
		{"float64", Float64, true},
		{" int32 ", Int32, true},
		{"unsigned short", Uint16, true},
		{"Unsigned Int", Uint32, true},
		{"byte", Int8, true},
		{"long", Int64, true},
		{"double", Float64, true},
		{"Uint8", "", false},
		{"bool", "", false},
		{"", "", false},
	}
	for _, tt := range tests {
		got, ok := ParsePrimitive(tt.in)
		if got != tt.want || ok != tt.ok {
			t.Errorf("ParsePrimitive(%q) = %q, %v, want %q, %v", tt.in, got, ok, tt.want, tt.ok)
		}
	}
}

func TestPrimitiveProperties(t *testing.T) {
	tests := []struct {
		p      Primitive
		width  int
		signed bool
		float  bool
	}{
		{Uint8, 1, false, false},
		{Int8, 1, true, false},
		{Uint16, 2, false, false},
		{Int16, 2, true, false},
		{Uint32, 4, false, false},
		{Int32, 4, true, false},
		{Uint64, 8, false, false},
		{Int64, 8, true, false},
		{Float32, 4, false, true},
		{Float64, 8, false, true},
	}
	if len(tests) != len(Primitives) {
		t.Fatalf("table covers %d types, vocabulary has %d", len(tests), len(Primitives))
	}
	for _, tt := range tests {
		t.Run(tt.p.String(), func(t *testing.T) {
			if !tt.p.Valid() {
				t.Error("not valid")
			}
			if tt.p.Width() != tt.width || tt.p.Bits() != tt.width*8 {
				t.Errorf("Width() = %d, Bits() = %d, want %d", tt.p.Width(), tt.p.Bits(), tt.width)
			}
			if tt.p.Signed() != tt.signed {
				t.Errorf("Signed() = %v", tt.p.Signed())
			}
			if tt.p.Float() != tt.float {
				t.Errorf("Float() = %v", tt.p.Float())
			}
		})
	}

	if Primitive("char").Valid() || Primitive("char").Width() != 0 {
		t.Error("unknown type reported valid")
	}
}

func TestIsRoot(t *testing.T) {
	for _, in := range []string{"", "root", "Root", "ROOT"} {
		if !IsRoot(in) {
			t.Errorf("IsRoot(%q) = false", in)
		}
	}
	for _, in := range []string{"Pdu", "roots"} {
		if IsRoot(in) {
			t.Errorf("IsRoot(%q) = true", in)
		}
	}
}
