package codegen

import (
	"strings"
	"testing"

	"github.com/alexhholmes/pdugen/internal/ir"
)

func TestNewBackend(t *testing.T) {
	for _, name := range []string{"go", "objc", "python", " Python "} {
		b, err := NewBackend(name, BackendOptions{Package: "dis"})
		if err != nil {
			t.Errorf("NewBackend(%q) error: %v", name, err)
			continue
		}
		if b.Name() != strings.ToLower(strings.TrimSpace(name)) {
			t.Errorf("NewBackend(%q).Name() = %q", name, b.Name())
		}
	}

	if _, err := NewBackend("java", BackendOptions{}); err == nil {
		t.Error("expected error for unknown backend")
	}
	if got := strings.Join(BackendNames(), ","); got != "go,objc,python" {
		t.Errorf("BackendNames() = %s", got)
	}
}

func TestSnakeCase(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"EntityStatePdu", "entity_state_pdu"},
		{"EntityID", "entity_id"},
		{"PDUHeader", "pdu_header"},
		{"Vector3Float", "vector3float"},
		{"pdu", "pdu"},
	}
	for _, tt := range tests {
		if got := snakeCase(tt.in); got != tt.want {
			t.Errorf("snakeCase(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestLiterals(t *testing.T) {
	tests := []struct {
		typ   ir.Primitive
		lit   string
		goLit string
		cLit  string
		pyLit string
	}{
		{ir.Uint8, "7", "7", "7", "7"},
		{ir.Uint16, "#FF", "0xFF", "0xFF", "0xFF"},
		{ir.Int32, "-#10", "-0x10", "-0x10", "-0x10"},
		{ir.Uint8, "010", "010", "010", "0o10"},
		{ir.Float32, "1.5f", "1.5", "1.5f", "1.5"},
		{ir.Float32, "2", "2", "2.0f", "2"},
		{ir.Float64, "0.25d", "0.25", "0.25", "0.25"},
	}
	for _, tt := range tests {
		t.Run(string(tt.typ)+"/"+tt.lit, func(t *testing.T) {
			if got := goLiteral(tt.typ, tt.lit); got != tt.goLit {
				t.Errorf("goLiteral = %q, want %q", got, tt.goLit)
			}
			if got := cLiteral(tt.typ, tt.lit); got != tt.cLit {
				t.Errorf("cLiteral = %q, want %q", got, tt.cLit)
			}
			if got := pyLiteral(tt.typ, tt.lit); got != tt.pyLit {
				t.Errorf("pyLiteral = %q, want %q", got, tt.pyLit)
			}
		})
	}
}

func TestWidthMask(t *testing.T) {
	tests := []struct {
		typ  ir.Primitive
		want uint64
	}{
		{ir.Uint8, 0xFF},
		{ir.Int16, 0xFFFF},
		{ir.Uint32, 0xFFFFFFFF},
		{ir.Int64, ^uint64(0)},
	}
	for _, tt := range tests {
		if got := widthMask(tt.typ); got != tt.want {
			t.Errorf("widthMask(%s) = %#x, want %#x", tt.typ, got, tt.want)
		}
	}
}
