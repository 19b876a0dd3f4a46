package analyzer

import (
	"strconv"
	"strings"

	"github.com/alexhholmes/pdugen/internal/ir"
)

// BitAccessor describes the getter/setter pair generated for one bit field.
//
// Every backend must emit exactly:
//
//	get: (field & mask) >> shift
//	set: field = (field & ^mask) | (value << shift)
//
// The setter does not re-mask the shifted value, so an oversized value
// spills into neighbouring bits. Generated code in the wild relies on this.
type BitAccessor struct {
	Name        string
	Field       string // owning primitive attribute
	Type        ir.Primitive
	Mask        string // literal as declared
	MaskValue   uint64
	Shift       int
	Description string
}

// ResolveShift returns how far a value must be shifted to line up with mask
// inside a primitive of the given type. It is the index of the lowest set bit.
//
// The scan also finds where the first run of ones ends, but only the start is
// used: a mask with several separate runs yields the first run's position.
// Unknown type names and zero or undecodable masks give 0.
func ResolveShift(typeName, mask string) int {
	p, ok := ir.ParsePrimitive(typeName)
	if !ok {
		return 0
	}
	v, ok := DecodeMask(mask)
	if !ok {
		return 0
	}
	start, _ := scanRun(p.Bits(), v)
	return start
}

// scanRun walks bits from least significant upward and returns the first
// run of ones as [start, end]. Both are 0 when no bit is set.
func scanRun(maxBits int, mask uint64) (start, end int) {
	started := false
	for idx := 0; idx < maxBits; idx++ {
		bit := mask & 0x1
		if bit == 1 && !started {
			started = true
			start = idx
		}
		if bit == 0 && started {
			return start, idx - 1
		}
		if bit == 1 && started && idx == maxBits-1 {
			return start, idx
		}
		mask >>= 1
	}
	return start, end
}

// DecodeMask parses an integer literal the way the XML descriptions write them:
// 0x/0X/# hex, leading-zero octal, decimal, with an optional sign.
func DecodeMask(s string) (uint64, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, false
	}

	neg := false
	switch s[0] {
	case '-':
		neg = true
		s = s[1:]
	case '+':
		s = s[1:]
	}

	base := 10
	switch {
	case strings.HasPrefix(s, "0x"), strings.HasPrefix(s, "0X"):
		base, s = 16, s[2:]
	case strings.HasPrefix(s, "#"):
		base, s = 16, s[1:]
	case len(s) > 1 && s[0] == '0':
		base, s = 8, s[1:]
	}

	v, err := strconv.ParseUint(s, base, 64)
	if err != nil {
		return 0, false
	}
	if neg {
		v = -v
	}
	return v, true
}

func bitAccessors(a *ir.Attribute) []BitAccessor {
	p := a.Primitive()
	if p == nil {
		return nil
	}
	out := make([]BitAccessor, 0, len(p.BitFields))
	for _, bf := range p.BitFields {
		v, _ := DecodeMask(bf.Mask)
		out = append(out, BitAccessor{
			Name:        bf.Name,
			Field:       a.Name,
			Type:        p.Type,
			Mask:        bf.Mask,
			MaskValue:   v,
			Shift:       ResolveShift(string(p.Type), bf.Mask),
			Description: bf.Description,
		})
	}
	return out
}
