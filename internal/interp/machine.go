// Package interp executes planned action lists against dynamically typed
// instances. It is the reference every backend's generated code must agree
// with: the same construction defaults, the same bytes on the wire, and the
// same marshalled size.
package interp

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/alexhholmes/pdugen/internal/analyzer"
	"github.com/alexhholmes/pdugen/internal/ir"
)

var (
	ErrShortBuffer  = errors.New("short buffer")
	ErrUnknownClass = errors.New("unknown class")
)

// maxListCount bounds a decoded count field before elements are allocated
const maxListCount = 1 << 24

// Machine runs the plans of one program
type Machine struct {
	prog *analyzer.Program
}

func New(prog *analyzer.Program) *Machine {
	return &Machine{prog: prog}
}

func (m *Machine) plan(class string) (*analyzer.ClassPlan, error) {
	cp, ok := m.prog.Plan(class)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownClass, class)
	}
	return cp, nil
}

// New constructs a default instance of class by running its init actions
func (m *Machine) New(class string) (*Instance, error) {
	in := newInstance(class)
	if err := m.construct(in, class); err != nil {
		return nil, err
	}
	return in, nil
}

func (m *Machine) construct(in *Instance, class string) error {
	cp, err := m.plan(class)
	if err != nil {
		return err
	}

	for _, act := range cp.Init {
		switch act.Op {
		case analyzer.OpSuper:
			if err := m.construct(in, act.Class); err != nil {
				return err
			}
		case analyzer.OpInitValue, analyzer.OpAssign:
			v, err := ParseLiteral(act.Type, act.Value)
			if err != nil {
				return fmt.Errorf("%s.%s: %w", class, act.Attr, err)
			}
			in.types[act.Attr] = act.Type
			in.prims[act.Attr] = v
		case analyzer.OpInitObject:
			obj, err := m.New(act.Class)
			if err != nil {
				return err
			}
			in.objects[act.Attr] = obj
		case analyzer.OpInitArray:
			in.arrays[act.Attr] = make([]uint64, act.Length)
		case analyzer.OpInitObjectArray:
			elems := make([]*Instance, act.Length)
			for i := range elems {
				if elems[i], err = m.New(act.Class); err != nil {
					return err
				}
			}
			in.objArrays[act.Attr] = elems
		case analyzer.OpInitList:
			if act.Class != "" {
				in.lists[act.Attr] = []*Instance{}
			} else {
				in.primLists[act.Attr] = []uint64{}
			}
		default:
			return fmt.Errorf("%s: unexpected init action %s", class, act.Op)
		}
	}
	return nil
}

// Marshal encodes an instance in big-endian wire order
func (m *Machine) Marshal(in *Instance) ([]byte, error) {
	return m.marshal(nil, in, in.class)
}

func (m *Machine) marshal(buf []byte, in *Instance, class string) ([]byte, error) {
	cp, err := m.plan(class)
	if err != nil {
		return nil, err
	}

	for _, act := range cp.Marshal {
		switch act.Op {
		case analyzer.OpSuper:
			buf, err = m.marshal(buf, in, act.Class)
		case analyzer.OpWrite:
			buf = put(buf, act.Type, in.prims[act.Attr])
		case analyzer.OpWriteLength:
			n := len(in.lists[act.List])
			if pl, ok := in.primLists[act.List]; ok {
				n = len(pl)
			}
			buf = put(buf, act.Type, uint64(n))
		case analyzer.OpMarshal:
			obj := in.objects[act.Attr]
			buf, err = m.marshal(buf, obj, obj.class)
		case analyzer.OpWriteArray:
			for _, v := range in.arrays[act.Attr] {
				buf = put(buf, act.Type, v)
			}
		case analyzer.OpMarshalArray:
			for _, obj := range in.objArrays[act.Attr] {
				if buf, err = m.marshal(buf, obj, obj.class); err != nil {
					return nil, err
				}
			}
		case analyzer.OpWriteList:
			for _, v := range in.primLists[act.Attr] {
				buf = put(buf, act.Type, v)
			}
		case analyzer.OpMarshalList:
			for _, obj := range in.lists[act.Attr] {
				if buf, err = m.marshal(buf, obj, obj.class); err != nil {
					return nil, err
				}
			}
		default:
			return nil, fmt.Errorf("%s: unexpected marshal action %s", class, act.Op)
		}
		if err != nil {
			return nil, err
		}
	}
	return buf, nil
}

// Decode constructs a default instance of class and unmarshals data into it
func (m *Machine) Decode(class string, data []byte) (*Instance, error) {
	in, err := m.New(class)
	if err != nil {
		return nil, err
	}
	if _, err := m.Unmarshal(in, data); err != nil {
		return nil, err
	}
	return in, nil
}

// Unmarshal repopulates an existing instance and returns the bytes consumed
func (m *Machine) Unmarshal(in *Instance, data []byte) (int, error) {
	r := &reader{data: data}
	if err := m.unmarshal(r, in, in.class); err != nil {
		return r.off, err
	}
	return r.off, nil
}

func (m *Machine) unmarshal(r *reader, in *Instance, class string) error {
	cp, err := m.plan(class)
	if err != nil {
		return err
	}

	for _, act := range cp.Unmarshal {
		switch act.Op {
		case analyzer.OpSuper:
			err = m.unmarshal(r, in, act.Class)
		case analyzer.OpRead:
			in.prims[act.Attr], err = r.read(act.Type)
		case analyzer.OpUnmarshal:
			obj := in.objects[act.Attr]
			err = m.unmarshal(r, obj, obj.class)
		case analyzer.OpReadArray:
			arr := in.arrays[act.Attr]
			for i := 0; i < act.Length && err == nil; i++ {
				arr[i], err = r.read(act.Type)
			}
		case analyzer.OpUnmarshalArray:
			for _, obj := range in.objArrays[act.Attr] {
				if err = m.unmarshal(r, obj, obj.class); err != nil {
					break
				}
			}
		case analyzer.OpReadList:
			var n int
			if n, err = count(in, act.Count); err != nil {
				break
			}
			list := in.primLists[act.Attr][:0]
			for i := 0; i < n && err == nil; i++ {
				var v uint64
				v, err = r.read(act.Type)
				list = append(list, v)
			}
			in.primLists[act.Attr] = list
		case analyzer.OpUnmarshalList:
			var n int
			if n, err = count(in, act.Count); err != nil {
				break
			}
			list := in.lists[act.Attr][:0]
			for i := 0; i < n && err == nil; i++ {
				var elem *Instance
				if elem, err = m.New(act.Class); err != nil {
					break
				}
				err = m.unmarshal(r, elem, act.Class)
				list = append(list, elem)
			}
			in.lists[act.Attr] = list
		default:
			err = fmt.Errorf("unexpected unmarshal action %s", act.Op)
		}
		if err != nil {
			return fmt.Errorf("%s.%s: %w", class, act.Attr, err)
		}
	}
	return nil
}

func count(in *Instance, field string) (int, error) {
	n := in.prims[field]
	if n > maxListCount {
		return 0, fmt.Errorf("count field %s = %d exceeds %d", field, n, maxListCount)
	}
	return int(n), nil
}

// Size returns the marshalled size of an instance without encoding it
func (m *Machine) Size(in *Instance) (int, error) {
	return m.size(in, in.class)
}

func (m *Machine) size(in *Instance, class string) (int, error) {
	cp, err := m.plan(class)
	if err != nil {
		return 0, err
	}

	total := 0
	for _, act := range cp.Size {
		var n int
		switch act.Op {
		case analyzer.OpSuper:
			n, err = m.size(in, act.Class)
		case analyzer.OpSizeConst:
			n = act.Bytes
		case analyzer.OpSizeObject:
			obj := in.objects[act.Attr]
			n, err = m.size(obj, obj.class)
		case analyzer.OpSizeArray:
			n, err = m.sumSizes(in.objArrays[act.Attr])
		case analyzer.OpSizeList:
			n = len(in.primLists[act.Attr]) * act.Bytes
		case analyzer.OpSizeListObjects:
			n, err = m.sumSizes(in.lists[act.Attr])
		default:
			err = fmt.Errorf("%s: unexpected size action %s", class, act.Op)
		}
		if err != nil {
			return 0, err
		}
		total += n
	}
	return total, nil
}

func (m *Machine) sumSizes(elems []*Instance) (int, error) {
	total := 0
	for _, e := range elems {
		n, err := m.size(e, e.class)
		if err != nil {
			return 0, err
		}
		total += n
	}
	return total, nil
}

// GetBits runs a bit field getter: (field & mask) >> shift
func (m *Machine) GetBits(in *Instance, name string) (uint64, error) {
	ba, err := m.bitField(in.class, name)
	if err != nil {
		return 0, err
	}
	return (in.prims[ba.Field] & ba.MaskValue) >> uint(ba.Shift), nil
}

// SetBits runs a bit field setter: field = (field &^ mask) | (v << shift).
// v is not masked, so oversized values overwrite neighbouring bits.
func (m *Machine) SetBits(in *Instance, name string, v uint64) error {
	ba, err := m.bitField(in.class, name)
	if err != nil {
		return err
	}
	field := (in.prims[ba.Field] &^ ba.MaskValue) | (v << uint(ba.Shift))
	return in.SetUint(ba.Field, field)
}

// bitField finds a bit accessor in a class or its ancestors
func (m *Machine) bitField(class, name string) (analyzer.BitAccessor, error) {
	for c := class; ; {
		cp, err := m.plan(c)
		if err != nil {
			return analyzer.BitAccessor{}, err
		}
		for _, ba := range cp.BitFields {
			if ba.Name == name {
				return ba, nil
			}
		}
		if !cp.Class.HasParent() {
			break
		}
		c = cp.Class.Parent
	}
	return analyzer.BitAccessor{}, fmt.Errorf("%s has no bit field %q", class, name)
}

// ParseLiteral converts a constructor literal to raw bits of type t
func ParseLiteral(t ir.Primitive, lit string) (uint64, error) {
	lit = strings.TrimSpace(lit)
	if t.Float() {
		f, err := strconv.ParseFloat(strings.TrimRight(lit, "fFdD"), 64)
		if err != nil {
			return 0, fmt.Errorf("invalid %s literal %q", t, lit)
		}
		if t == ir.Float32 {
			return uint64(math.Float32bits(float32(f))), nil
		}
		return math.Float64bits(f), nil
	}

	v, ok := analyzer.DecodeMask(lit)
	if !ok {
		return 0, fmt.Errorf("invalid %s literal %q", t, lit)
	}
	return truncate(t, v), nil
}

func put(buf []byte, t ir.Primitive, v uint64) []byte {
	switch t.Width() {
	case 1:
		return append(buf, byte(v))
	case 2:
		return binary.BigEndian.AppendUint16(buf, uint16(v))
	case 4:
		return binary.BigEndian.AppendUint32(buf, uint32(v))
	default:
		return binary.BigEndian.AppendUint64(buf, v)
	}
}

type reader struct {
	data []byte
	off  int
}

func (r *reader) read(t ir.Primitive) (uint64, error) {
	w := t.Width()
	if r.off+w > len(r.data) {
		return 0, fmt.Errorf("%w: need %d bytes at offset %d, have %d",
			ErrShortBuffer, w, r.off, len(r.data)-r.off)
	}
	b := r.data[r.off : r.off+w]
	r.off += w
	switch w {
	case 1:
		return uint64(b[0]), nil
	case 2:
		return uint64(binary.BigEndian.Uint16(b)), nil
	case 4:
		return uint64(binary.BigEndian.Uint32(b)), nil
	default:
		return binary.BigEndian.Uint64(b), nil
	}
}
