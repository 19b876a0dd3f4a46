package codegen

import (
	"fmt"
	"strings"

	"github.com/alexhholmes/pdugen/internal/analyzer"
	"github.com/alexhholmes/pdugen/internal/ir"
)

// PythonBackend renders one module per class. Streams are expected to offer
// write_<type>/read_<type> methods for the names in its table.
type PythonBackend struct {
	stream map[ir.Primitive]string
}

func NewPython() *PythonBackend {
	return &PythonBackend{stream: map[ir.Primitive]string{
		ir.Uint8:   "unsigned_byte",
		ir.Int8:    "byte",
		ir.Uint16:  "unsigned_short",
		ir.Int16:   "short",
		ir.Uint32:  "unsigned_int",
		ir.Int32:   "int",
		ir.Uint64:  "unsigned_long",
		ir.Int64:   "long",
		ir.Float32: "float",
		ir.Float64: "double",
	}}
}

func (p *PythonBackend) Name() string { return "python" }

// Module writes a package __init__ importing every class in emission order
func (p *PythonBackend) Module(prog *analyzer.Program) ([]File, error) {
	var b strings.Builder
	p.license(&b)
	for _, cp := range prog.Plans {
		fmt.Fprintf(&b, "from .%s import %s\n", cp.Name(), cp.Name())
	}
	return []File{{Name: "__init__.py", Content: []byte(b.String())}}, nil
}

func (p *PythonBackend) license(b *strings.Builder) {
	b.WriteString("#\n")
	for _, l := range licenseLines {
		fmt.Fprintf(b, "# %s\n", l)
	}
	b.WriteString("#\n\n")
}

func (p *PythonBackend) Class(plan *analyzer.ClassPlan) ([]File, error) {
	c := plan.Class
	var b strings.Builder
	p.license(&b)

	refs := referencedClasses(plan)
	for _, ref := range refs {
		fmt.Fprintf(&b, "from .%s import %s\n", ref, ref)
	}
	if len(refs) > 0 {
		b.WriteString("\n")
	}
	b.WriteString("\n")

	parent := "object"
	if c.HasParent() {
		parent = c.Parent
	}
	fmt.Fprintf(&b, "class %s(%s):\n", c.Name, parent)
	if c.Comment != "" {
		fmt.Fprintf(&b, "    \"\"\"%s\"\"\"\n\n", pyDoc(c.Comment))
	}

	steps := []func(*analyzer.ClassPlan, *strings.Builder) error{
		p.writeInit,
		p.writeSerialize,
		p.writeParse,
		p.writeSize,
		p.writeBitFields,
	}
	for _, step := range steps {
		if err := step(plan, &b); err != nil {
			return nil, err
		}
	}

	return []File{{Name: c.Name + ".py", Content: []byte(b.String())}}, nil
}

// pyDoc keeps a comment from closing its docstring early
func pyDoc(s string) string {
	return strings.ReplaceAll(s, `"""`, `'''`)
}

func (p *PythonBackend) writeInit(plan *analyzer.ClassPlan, b *strings.Builder) error {
	c := plan.Class
	b.WriteString("    def __init__(self):\n")
	fmt.Fprintf(b, "        \"\"\"Initializer for %s\"\"\"\n", c.Name)

	comments := make(map[string]string)
	for _, a := range c.Attributes {
		comments[a.Name] = a.Comment
	}

	for _, act := range plan.Init {
		switch act.Op {
		case analyzer.OpSuper:
			fmt.Fprintf(b, "        super(%s, self).__init__()\n", c.Name)
			continue
		case analyzer.OpInitValue, analyzer.OpAssign:
			fmt.Fprintf(b, "        self.%s = %s\n", act.Attr, pyLiteral(act.Type, act.Value))
		case analyzer.OpInitObject:
			fmt.Fprintf(b, "        self.%s = %s()\n", act.Attr, act.Class)
		case analyzer.OpInitArray:
			zero := "0"
			if act.Type.Float() {
				zero = "0.0"
			}
			fmt.Fprintf(b, "        self.%s = [%s] * %d\n", act.Attr, zero, act.Length)
		case analyzer.OpInitObjectArray:
			fmt.Fprintf(b, "        self.%s = [%s() for _ in range(0, %d)]\n", act.Attr, act.Class, act.Length)
		case analyzer.OpInitList:
			fmt.Fprintf(b, "        self.%s = []\n", act.Attr)
		default:
			return fmt.Errorf("%s: unexpected init action %s", plan.Name(), act.Op)
		}
		if act.Op == analyzer.OpAssign {
			fmt.Fprintf(b, "        \"\"\"initialize value inherited from %s\"\"\"\n", act.Owner)
		} else if cm := comments[act.Attr]; cm != "" {
			fmt.Fprintf(b, "        \"\"\"%s\"\"\"\n", pyDoc(cm))
		}
	}
	b.WriteString("\n")
	return nil
}

func (p *PythonBackend) writeSerialize(plan *analyzer.ClassPlan, b *strings.Builder) error {
	c := plan.Class
	b.WriteString("    def serialize(self, outputStream):\n")
	b.WriteString("        \"\"\"serialize the class\"\"\"\n")
	for _, act := range plan.Marshal {
		w := p.stream[act.Type]
		switch act.Op {
		case analyzer.OpSuper:
			fmt.Fprintf(b, "        super(%s, self).serialize(outputStream)\n", c.Name)
		case analyzer.OpWrite:
			fmt.Fprintf(b, "        outputStream.write_%s(self.%s)\n", w, act.Attr)
		case analyzer.OpWriteLength:
			fmt.Fprintf(b, "        outputStream.write_%s(len(self.%s))\n", w, act.List)
		case analyzer.OpMarshal:
			fmt.Fprintf(b, "        self.%s.serialize(outputStream)\n", act.Attr)
		case analyzer.OpWriteArray, analyzer.OpWriteList:
			fmt.Fprintf(b, "        for element in self.%s:\n", act.Attr)
			fmt.Fprintf(b, "            outputStream.write_%s(element)\n", w)
		case analyzer.OpMarshalArray, analyzer.OpMarshalList:
			fmt.Fprintf(b, "        for anObj in self.%s:\n", act.Attr)
			b.WriteString("            anObj.serialize(outputStream)\n")
		default:
			return fmt.Errorf("%s: unexpected marshal action %s", plan.Name(), act.Op)
		}
	}
	b.WriteString("\n")
	return nil
}

func (p *PythonBackend) writeParse(plan *analyzer.ClassPlan, b *strings.Builder) error {
	c := plan.Class
	b.WriteString("    def parse(self, inputStream):\n")
	b.WriteString("        \"\"\"Parse a message. This may recursively call embedded objects.\"\"\"\n")
	for _, act := range plan.Unmarshal {
		r := p.stream[act.Type]
		switch act.Op {
		case analyzer.OpSuper:
			fmt.Fprintf(b, "        super(%s, self).parse(inputStream)\n", c.Name)
		case analyzer.OpRead:
			fmt.Fprintf(b, "        self.%s = inputStream.read_%s()\n", act.Attr, r)
		case analyzer.OpUnmarshal:
			fmt.Fprintf(b, "        self.%s.parse(inputStream)\n", act.Attr)
		case analyzer.OpReadArray:
			fmt.Fprintf(b, "        for idx in range(0, %d):\n", act.Length)
			fmt.Fprintf(b, "            self.%s[idx] = inputStream.read_%s()\n", act.Attr, r)
		case analyzer.OpUnmarshalArray:
			fmt.Fprintf(b, "        for anObj in self.%s:\n", act.Attr)
			b.WriteString("            anObj.parse(inputStream)\n")
		case analyzer.OpReadList:
			fmt.Fprintf(b, "        self.%s = []\n", act.Attr)
			fmt.Fprintf(b, "        for idx in range(0, self.%s):\n", act.Count)
			fmt.Fprintf(b, "            self.%s.append(inputStream.read_%s())\n", act.Attr, r)
		case analyzer.OpUnmarshalList:
			fmt.Fprintf(b, "        self.%s = []\n", act.Attr)
			fmt.Fprintf(b, "        for idx in range(0, self.%s):\n", act.Count)
			fmt.Fprintf(b, "            element = %s()\n", act.Class)
			b.WriteString("            element.parse(inputStream)\n")
			fmt.Fprintf(b, "            self.%s.append(element)\n", act.Attr)
		default:
			return fmt.Errorf("%s: unexpected unmarshal action %s", plan.Name(), act.Op)
		}
	}
	b.WriteString("\n")
	return nil
}

func (p *PythonBackend) writeSize(plan *analyzer.ClassPlan, b *strings.Builder) error {
	c := plan.Class
	b.WriteString("    def get_marshalled_size(self):\n")
	b.WriteString("        marshalSize = 0\n")
	for _, act := range plan.Size {
		switch act.Op {
		case analyzer.OpSuper:
			fmt.Fprintf(b, "        marshalSize += super(%s, self).get_marshalled_size()\n", c.Name)
		case analyzer.OpSizeConst:
			fmt.Fprintf(b, "        marshalSize += %d  # %s\n", act.Bytes, act.Attr)
		case analyzer.OpSizeObject:
			fmt.Fprintf(b, "        marshalSize += self.%s.get_marshalled_size()\n", act.Attr)
		case analyzer.OpSizeArray, analyzer.OpSizeListObjects:
			fmt.Fprintf(b, "        for anObj in self.%s:\n", act.Attr)
			b.WriteString("            marshalSize += anObj.get_marshalled_size()\n")
		case analyzer.OpSizeList:
			fmt.Fprintf(b, "        marshalSize += len(self.%s) * %d\n", act.Attr, act.Bytes)
		default:
			return fmt.Errorf("%s: unexpected size action %s", plan.Name(), act.Op)
		}
	}
	b.WriteString("        return marshalSize\n\n")
	return nil
}

func (p *PythonBackend) writeBitFields(plan *analyzer.ClassPlan, b *strings.Builder) error {
	for _, ba := range plan.BitFields {
		if ba.Type.Float() {
			return &analyzer.PlanError{Kind: analyzer.KindUnsupported, Class: plan.Name(), Attribute: ba.Field,
				Detail: fmt.Sprintf("bit field %q on floating point field", ba.Name)}
		}
		mask := fmt.Sprintf("0x%X", ba.MaskValue&widthMask(ba.Type))
		name := initialCapital(ba.Name)

		fmt.Fprintf(b, "    def get%s(self):\n", name)
		if ba.Description != "" {
			fmt.Fprintf(b, "        \"\"\"%s\"\"\"\n", pyDoc(ba.Description))
		}
		fmt.Fprintf(b, "        return (self.%s & %s) >> %d\n\n", ba.Field, mask, ba.Shift)

		fmt.Fprintf(b, "    def set%s(self, val):\n", name)
		fmt.Fprintf(b, "        self.%s = (self.%s & ~%s) | (val << %d)\n\n", ba.Field, ba.Field, mask, ba.Shift)
	}
	return nil
}

// pyLiteral rewrites a constructor literal into Python syntax
func pyLiteral(t ir.Primitive, lit string) string {
	lit = strings.TrimSpace(lit)
	if t.Float() {
		return strings.TrimRight(lit, "fFdD")
	}
	neg := strings.HasPrefix(lit, "-")
	body := strings.TrimPrefix(lit, "-")
	switch {
	case strings.HasPrefix(body, "#"):
		body = "0x" + body[1:]
	case len(body) > 1 && body[0] == '0' && body[1] != 'x' && body[1] != 'X':
		body = "0o" + body[1:]
	}
	if neg {
		return "-" + body
	}
	return body
}
