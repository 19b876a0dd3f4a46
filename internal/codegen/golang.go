package codegen

import (
	"fmt"
	"go/format"
	"strings"

	"github.com/alexhholmes/pdugen/internal/analyzer"
	"github.com/alexhholmes/pdugen/internal/ir"
)

// GoBackend renders one Go source file per class. Subclasses embed their
// parent struct by value, lists of classes hold pointers.
type GoBackend struct {
	pkg      string
	emitters map[ir.Primitive]typeEmitter
}

// typeEmitter holds marshal/unmarshal expression builders for a wire type
type typeEmitter struct {
	goType    string
	unsigned  string // unsigned type of the same width, used for bit masks
	marshal   func(val string) string
	unmarshal func(src string) string
}

func NewGo(pkg string) *GoBackend {
	if pkg == "" {
		pkg = "pdu"
	}
	g := &GoBackend{pkg: pkg}
	g.emitters = g.buildEmitters()
	return g
}

func (g *GoBackend) Name() string { return "go" }

// binaryPutFunc returns the binary.BigEndian.AppendXXX function for a width
func (g *GoBackend) binaryPutFunc(t ir.Primitive) string {
	switch t.Width() {
	case 2:
		return "AppendUint16"
	case 4:
		return "AppendUint32"
	default:
		return "AppendUint64"
	}
}

// binaryGetFunc returns the binary.BigEndian.UintXX function for a width
func (g *GoBackend) binaryGetFunc(t ir.Primitive) string {
	switch t.Width() {
	case 2:
		return "Uint16"
	case 4:
		return "Uint32"
	default:
		return "Uint64"
	}
}

func (g *GoBackend) endianPrefix() string {
	return "binary.BigEndian"
}

// buildEmitters returns the table from canonical types to Go expressions.
// Values are appended to buf; reads take a slice that starts at the value.
func (g *GoBackend) buildEmitters() map[ir.Primitive]typeEmitter {
	out := make(map[ir.Primitive]typeEmitter, len(ir.Primitives))
	for _, t := range ir.Primitives {
		t := t
		unsigned := fmt.Sprintf("uint%d", t.Bits())
		e := typeEmitter{goType: string(t), unsigned: unsigned}

		switch {
		case t.Width() == 1:
			e.marshal = func(v string) string {
				if t.Signed() {
					v = "byte(" + v + ")"
				}
				return fmt.Sprintf("append(buf, %s)", v)
			}
			e.unmarshal = func(src string) string {
				if t.Signed() {
					return fmt.Sprintf("int8(%s[0])", src)
				}
				return src + "[0]"
			}
		case t.Float():
			e.marshal = func(v string) string {
				return fmt.Sprintf("%s.%s(buf, math.Float%dbits(%s))",
					g.endianPrefix(), g.binaryPutFunc(t), t.Bits(), v)
			}
			e.unmarshal = func(src string) string {
				return fmt.Sprintf("math.Float%dfrombits(%s.%s(%s))",
					t.Bits(), g.endianPrefix(), g.binaryGetFunc(t), src)
			}
		default:
			e.marshal = func(v string) string {
				if t.Signed() {
					v = unsigned + "(" + v + ")"
				}
				return fmt.Sprintf("%s.%s(buf, %s)", g.endianPrefix(), g.binaryPutFunc(t), v)
			}
			e.unmarshal = func(src string) string {
				get := fmt.Sprintf("%s.%s(%s)", g.endianPrefix(), g.binaryGetFunc(t), src)
				if t.Signed() {
					return string(t) + "(" + get + ")"
				}
				return get
			}
		}
		out[t] = e
	}
	return out
}

// Module emits the package doc file
func (g *GoBackend) Module(prog *analyzer.Program) ([]File, error) {
	var code strings.Builder
	writeGoHeader(&code)
	code.WriteString(fmt.Sprintf("// Package %s holds %d generated PDU types.\n", g.pkg, len(prog.Plans)))
	code.WriteString("//\n// Every type has a New constructor, MarshalTo, UnmarshalFrom and\n")
	code.WriteString("// MarshalledSize. Fields are encoded big-endian in declaration order,\n")
	code.WriteString("// parent fields first.\n")
	code.WriteString(fmt.Sprintf("package %s\n", g.pkg))

	src, err := format.Source([]byte(code.String()))
	if err != nil {
		return nil, fmt.Errorf("format doc.go: %w", err)
	}
	return []File{{Name: "doc.go", Content: src}}, nil
}

// Class renders the struct, constructor, wire methods and bit accessors
func (g *GoBackend) Class(plan *analyzer.ClassPlan) ([]File, error) {
	var body strings.Builder

	steps := []func(*analyzer.ClassPlan, *strings.Builder) error{
		g.generateStruct,
		g.generateNewFunction,
		g.generateMarshal,
		g.generateUnmarshal,
		g.generateSize,
		g.generateBitAccessors,
	}
	for _, step := range steps {
		if err := step(plan, &body); err != nil {
			return nil, err
		}
	}

	var code strings.Builder
	writeGoHeader(&code)
	code.WriteString(fmt.Sprintf("package %s\n\n", g.pkg))
	code.WriteString(goImports(body.String()))
	code.WriteString(body.String())

	src, err := format.Source([]byte(code.String()))
	if err != nil {
		return nil, fmt.Errorf("format %s: %w", plan.Name(), err)
	}
	return []File{{Name: snakeCase(plan.Name()) + ".go", Content: src}}, nil
}

func writeGoHeader(code *strings.Builder) {
	code.WriteString("// Code generated by pdugen. DO NOT EDIT.\n\n")
}

// goImports returns the import block for the packages body refers to
func goImports(body string) string {
	var pkgs []string
	for _, p := range []struct{ path, use string }{
		{"encoding/binary", "binary.BigEndian."},
		{"fmt", "fmt.Errorf("},
		{"io", "io.ErrUnexpectedEOF"},
		{"math", "math.Float"},
	} {
		if strings.Contains(body, p.use) {
			pkgs = append(pkgs, p.path)
		}
	}
	if len(pkgs) == 0 {
		return ""
	}
	var code strings.Builder
	code.WriteString("import (\n")
	for _, p := range pkgs {
		code.WriteString(fmt.Sprintf("\t%q\n", p))
	}
	code.WriteString(")\n\n")
	return code.String()
}

func goField(name string) string {
	return initialCapital(name)
}

func (g *GoBackend) generateStruct(plan *analyzer.ClassPlan, code *strings.Builder) error {
	c := plan.Class
	if c.Comment != "" {
		code.WriteString(fmt.Sprintf("// %s %s\n", c.Name, c.Comment))
	}
	code.WriteString(fmt.Sprintf("type %s struct {\n", c.Name))
	if c.HasParent() {
		code.WriteString(fmt.Sprintf("\t%s\n\n", c.Parent))
	}

	for _, a := range c.Attributes {
		var typ string
		switch k := a.Kind.(type) {
		case *ir.PrimitiveKind:
			typ = g.emitters[k.Type].goType
		case *ir.ClassRefKind:
			typ = k.Class
		case *ir.FixedListKind:
			typ = fmt.Sprintf("[%d]%s", k.Length, g.elemType(k.Elem, false))
		case *ir.DynamicListKind:
			typ = "[]" + g.elemType(k.Elem, true)
		default:
			return unsupportedKind(plan, a)
		}

		comment := a.Comment
		if a.Transient {
			comment = strings.TrimSpace(comment + " (not serialized)")
		}
		if comment != "" {
			code.WriteString(fmt.Sprintf("\t%s %s // %s\n", goField(a.Name), typ, comment))
		} else {
			code.WriteString(fmt.Sprintf("\t%s %s\n", goField(a.Name), typ))
		}
	}
	code.WriteString("}\n\n")
	return nil
}

func (g *GoBackend) elemType(e ir.Element, pointer bool) string {
	if !e.IsClass() {
		return g.emitters[e.Primitive].goType
	}
	if pointer {
		return "*" + e.Class
	}
	return e.Class
}

// goLiteral rewrites a constructor literal into Go syntax
func goLiteral(t ir.Primitive, lit string) string {
	lit = strings.TrimSpace(lit)
	if t.Float() {
		return strings.TrimRight(lit, "fFdD")
	}
	if strings.HasPrefix(lit, "#") {
		return "0x" + lit[1:]
	}
	if strings.HasPrefix(lit, "-#") {
		return "-0x" + lit[2:]
	}
	return lit
}

func (g *GoBackend) generateNewFunction(plan *analyzer.ClassPlan, code *strings.Builder) error {
	name := plan.Name()
	code.WriteString(fmt.Sprintf("// New%s returns a %s with its default values\n", name, name))
	code.WriteString(fmt.Sprintf("func New%s() *%s {\n", name, name))
	code.WriteString(fmt.Sprintf("\tp := &%s{}\n", name))

	for _, act := range plan.Init {
		f := goField(act.Attr)
		switch act.Op {
		case analyzer.OpSuper:
			code.WriteString(fmt.Sprintf("\tp.%s = *New%s()\n", act.Class, act.Class))
		case analyzer.OpInitValue:
			code.WriteString(fmt.Sprintf("\tp.%s = %s\n", f, goLiteral(act.Type, act.Value)))
		case analyzer.OpAssign:
			code.WriteString(fmt.Sprintf("\tp.%s = %s // inherited from %s\n", f, goLiteral(act.Type, act.Value), act.Owner))
		case analyzer.OpInitObject:
			code.WriteString(fmt.Sprintf("\tp.%s = *New%s()\n", f, act.Class))
		case analyzer.OpInitArray:
			// zero value
		case analyzer.OpInitObjectArray:
			code.WriteString(fmt.Sprintf("\tfor i := range p.%s {\n", f))
			code.WriteString(fmt.Sprintf("\t\tp.%s[i] = *New%s()\n", f, act.Class))
			code.WriteString("\t}\n")
		case analyzer.OpInitList:
			code.WriteString(fmt.Sprintf("\tp.%s = []%s{}\n", f, g.elemType(ir.Element{Primitive: act.Type, Class: act.Class}, true)))
		default:
			return fmt.Errorf("%s: unexpected init action %s", name, act.Op)
		}
	}

	code.WriteString("\treturn p\n")
	code.WriteString("}\n\n")
	return nil
}

func (g *GoBackend) generateMarshal(plan *analyzer.ClassPlan, code *strings.Builder) error {
	name := plan.Name()
	code.WriteString("// MarshalTo appends the wire encoding to buf\n")
	code.WriteString(fmt.Sprintf("func (p *%s) MarshalTo(buf []byte) []byte {\n", name))

	for _, act := range plan.Marshal {
		f := goField(act.Attr)
		switch act.Op {
		case analyzer.OpSuper:
			code.WriteString(fmt.Sprintf("\tbuf = p.%s.MarshalTo(buf)\n", act.Class))
		case analyzer.OpWrite:
			code.WriteString(fmt.Sprintf("\tbuf = %s\n", g.emitters[act.Type].marshal("p."+f)))
		case analyzer.OpWriteLength:
			length := fmt.Sprintf("%s(len(p.%s))", g.emitters[act.Type].goType, goField(act.List))
			code.WriteString(fmt.Sprintf("\tbuf = %s // %s\n", g.emitters[act.Type].marshal(length), act.Attr))
		case analyzer.OpMarshal:
			code.WriteString(fmt.Sprintf("\tbuf = p.%s.MarshalTo(buf)\n", f))
		case analyzer.OpWriteArray, analyzer.OpWriteList:
			code.WriteString(fmt.Sprintf("\tfor _, v := range p.%s {\n", f))
			code.WriteString(fmt.Sprintf("\t\tbuf = %s\n", g.emitters[act.Type].marshal("v")))
			code.WriteString("\t}\n")
		case analyzer.OpMarshalArray:
			code.WriteString(fmt.Sprintf("\tfor i := range p.%s {\n", f))
			code.WriteString(fmt.Sprintf("\t\tbuf = p.%s[i].MarshalTo(buf)\n", f))
			code.WriteString("\t}\n")
		case analyzer.OpMarshalList:
			code.WriteString(fmt.Sprintf("\tfor _, e := range p.%s {\n", f))
			code.WriteString("\t\tbuf = e.MarshalTo(buf)\n")
			code.WriteString("\t}\n")
		default:
			return fmt.Errorf("%s: unexpected marshal action %s", name, act.Op)
		}
	}

	code.WriteString("\treturn buf\n")
	code.WriteString("}\n\n")
	return nil
}

func (g *GoBackend) generateUnmarshal(plan *analyzer.ClassPlan, code *strings.Builder) error {
	name := plan.Name()
	var body strings.Builder

	short := func(field string, need string) {
		body.WriteString(fmt.Sprintf("\tif len(buf) < %s {\n", need))
		body.WriteString(fmt.Sprintf("\t\treturn nil, fmt.Errorf(\"%s.%s: %%w\", io.ErrUnexpectedEOF)\n", name, field))
		body.WriteString("\t}\n")
	}
	delegate := func(target string) {
		body.WriteString(fmt.Sprintf("\tif buf, err = %s.UnmarshalFrom(buf); err != nil {\n", target))
		body.WriteString("\t\treturn nil, err\n")
		body.WriteString("\t}\n")
	}

	for _, act := range plan.Unmarshal {
		f := goField(act.Attr)
		switch act.Op {
		case analyzer.OpSuper:
			delegate("p." + act.Class)
		case analyzer.OpRead:
			w := act.Type.Width()
			short(act.Attr, fmt.Sprint(w))
			body.WriteString(fmt.Sprintf("\tp.%s = %s\n", f, g.emitters[act.Type].unmarshal("buf")))
			body.WriteString(fmt.Sprintf("\tbuf = buf[%d:]\n", w))
		case analyzer.OpUnmarshal:
			delegate("p." + f)
		case analyzer.OpReadArray:
			w := act.Type.Width()
			short(act.Attr, fmt.Sprint(act.Length*w))
			body.WriteString(fmt.Sprintf("\tfor i := range p.%s {\n", f))
			body.WriteString(fmt.Sprintf("\t\tp.%s[i] = %s\n", f, g.emitters[act.Type].unmarshal(fmt.Sprintf("buf[i*%d:]", w))))
			body.WriteString("\t}\n")
			body.WriteString(fmt.Sprintf("\tbuf = buf[%d:]\n", act.Length*w))
		case analyzer.OpUnmarshalArray:
			body.WriteString(fmt.Sprintf("\tfor i := range p.%s {\n", f))
			body.WriteString(fmt.Sprintf("\t\tif buf, err = p.%s[i].UnmarshalFrom(buf); err != nil {\n", f))
			body.WriteString("\t\t\treturn nil, err\n")
			body.WriteString("\t\t}\n")
			body.WriteString("\t}\n")
		case analyzer.OpReadList:
			w := act.Type.Width()
			body.WriteString(fmt.Sprintf("\tp.%s = p.%s[:0]\n", f, f))
			body.WriteString(fmt.Sprintf("\tfor i := 0; i < int(p.%s); i++ {\n", goField(act.Count)))
			body.WriteString(fmt.Sprintf("\t\tif len(buf) < %d {\n", w))
			body.WriteString(fmt.Sprintf("\t\t\treturn nil, fmt.Errorf(\"%s.%s[%%d]: %%w\", i, io.ErrUnexpectedEOF)\n", name, act.Attr))
			body.WriteString("\t\t}\n")
			body.WriteString(fmt.Sprintf("\t\tp.%s = append(p.%s, %s)\n", f, f, g.emitters[act.Type].unmarshal("buf")))
			body.WriteString(fmt.Sprintf("\t\tbuf = buf[%d:]\n", w))
			body.WriteString("\t}\n")
		case analyzer.OpUnmarshalList:
			body.WriteString(fmt.Sprintf("\tp.%s = p.%s[:0]\n", f, f))
			body.WriteString(fmt.Sprintf("\tfor i := 0; i < int(p.%s); i++ {\n", goField(act.Count)))
			body.WriteString(fmt.Sprintf("\t\te := New%s()\n", act.Class))
			body.WriteString("\t\tif buf, err = e.UnmarshalFrom(buf); err != nil {\n")
			body.WriteString("\t\t\treturn nil, err\n")
			body.WriteString("\t\t}\n")
			body.WriteString(fmt.Sprintf("\t\tp.%s = append(p.%s, e)\n", f, f))
			body.WriteString("\t}\n")
		default:
			return fmt.Errorf("%s: unexpected unmarshal action %s", name, act.Op)
		}
	}

	code.WriteString("// UnmarshalFrom decodes the wire encoding at the start of buf and\n")
	code.WriteString("// returns the remaining bytes. Lists are cleared before they are read.\n")
	code.WriteString(fmt.Sprintf("func (p *%s) UnmarshalFrom(buf []byte) ([]byte, error) {\n", name))
	if strings.Contains(body.String(), "err = ") {
		code.WriteString("\tvar err error\n")
	}
	code.WriteString(body.String())
	code.WriteString("\treturn buf, nil\n")
	code.WriteString("}\n\n")
	return nil
}

func (g *GoBackend) generateSize(plan *analyzer.ClassPlan, code *strings.Builder) error {
	name := plan.Name()
	code.WriteString("// MarshalledSize returns the number of bytes MarshalTo appends\n")
	code.WriteString(fmt.Sprintf("func (p *%s) MarshalledSize() int {\n", name))
	code.WriteString("\tsize := 0\n")

	for _, act := range plan.Size {
		f := goField(act.Attr)
		switch act.Op {
		case analyzer.OpSuper:
			code.WriteString(fmt.Sprintf("\tsize += p.%s.MarshalledSize()\n", act.Class))
		case analyzer.OpSizeConst:
			code.WriteString(fmt.Sprintf("\tsize += %d // %s\n", act.Bytes, act.Attr))
		case analyzer.OpSizeObject:
			code.WriteString(fmt.Sprintf("\tsize += p.%s.MarshalledSize()\n", f))
		case analyzer.OpSizeArray:
			code.WriteString(fmt.Sprintf("\tfor i := range p.%s {\n", f))
			code.WriteString(fmt.Sprintf("\t\tsize += p.%s[i].MarshalledSize()\n", f))
			code.WriteString("\t}\n")
		case analyzer.OpSizeList:
			code.WriteString(fmt.Sprintf("\tsize += len(p.%s) * %d\n", f, act.Bytes))
		case analyzer.OpSizeListObjects:
			code.WriteString(fmt.Sprintf("\tfor _, e := range p.%s {\n", f))
			code.WriteString("\t\tsize += e.MarshalledSize()\n")
			code.WriteString("\t}\n")
		default:
			return fmt.Errorf("%s: unexpected size action %s", name, act.Op)
		}
	}

	code.WriteString("\treturn size\n")
	code.WriteString("}\n\n")
	return nil
}

func (g *GoBackend) generateBitAccessors(plan *analyzer.ClassPlan, code *strings.Builder) error {
	name := plan.Name()
	for _, ba := range plan.BitFields {
		if ba.Type.Float() {
			return &analyzer.PlanError{Kind: analyzer.KindUnsupported, Class: name, Attribute: ba.Field,
				Detail: fmt.Sprintf("bit field %q on floating point field", ba.Name)}
		}
		e := g.emitters[ba.Type]
		f := goField(ba.Field)
		mask := fmt.Sprintf("0x%X", ba.MaskValue&widthMask(ba.Type))
		accessor := initialCapital(ba.Name)

		get := fmt.Sprintf("(p.%s & %s) >> %d", f, mask, ba.Shift)
		set := fmt.Sprintf("(p.%s &^ %s) | (v << %d)", f, mask, ba.Shift)
		if ba.Type.Signed() {
			u := e.unsigned
			get = fmt.Sprintf("%s((%s(p.%s) & %s) >> %d)", e.goType, u, f, mask, ba.Shift)
			set = fmt.Sprintf("%s((%s(p.%s) &^ %s) | (%s(v) << %d))", e.goType, u, f, mask, u, ba.Shift)
		}

		if ba.Description != "" {
			code.WriteString(fmt.Sprintf("// Get%s returns %s\n", accessor, ba.Description))
		} else {
			code.WriteString(fmt.Sprintf("// Get%s returns bits %s of %s\n", accessor, mask, f))
		}
		code.WriteString(fmt.Sprintf("func (p *%s) Get%s() %s {\n", name, accessor, e.goType))
		code.WriteString(fmt.Sprintf("\treturn %s\n", get))
		code.WriteString("}\n\n")

		code.WriteString(fmt.Sprintf("// Set%s stores v at bits %s of %s. v is not masked.\n", accessor, mask, f))
		code.WriteString(fmt.Sprintf("func (p *%s) Set%s(v %s) {\n", name, accessor, e.goType))
		code.WriteString(fmt.Sprintf("\tp.%s = %s\n", f, set))
		code.WriteString("}\n\n")
	}
	return nil
}

// widthMask returns the all-ones value of a type's width
func widthMask(t ir.Primitive) uint64 {
	if t.Bits() >= 64 {
		return ^uint64(0)
	}
	return 1<<uint(t.Bits()) - 1
}

func unsupportedKind(plan *analyzer.ClassPlan, a *ir.Attribute) error {
	return &analyzer.PlanError{Kind: analyzer.KindInvalid, Class: plan.Name(), Attribute: a.Name,
		Detail: "attribute has no kind"}
}
