package codegen

import (
	"fmt"
	"strings"
	"unicode"

	"github.com/alexhholmes/pdugen/internal/analyzer"
	"github.com/alexhholmes/pdugen/internal/ir"
)

// objcType maps a wire type to its Objective-C scalar and stream selectors
type objcType struct {
	native string // C scalar type
	stream string // suffix of DataOutput write* / DataInput read*
	number string // NSNumber numberWith* suffix
	value  string // NSNumber *Value selector
}

// ObjCBackend renders a .h/.m pair per class against DataInput/DataOutput
// streams, using manual reference counting.
type ObjCBackend struct {
	types map[ir.Primitive]objcType
}

func NewObjC() *ObjCBackend {
	return &ObjCBackend{types: map[ir.Primitive]objcType{
		ir.Uint8:   {"uint8_t", "UnsignedByte", "UnsignedChar", "unsignedCharValue"},
		ir.Int8:    {"int8_t", "Byte", "Char", "charValue"},
		ir.Uint16:  {"uint16_t", "UnsignedShort", "UnsignedShort", "unsignedShortValue"},
		ir.Int16:   {"int16_t", "Short", "Short", "shortValue"},
		ir.Uint32:  {"uint32_t", "UnsignedInt", "UnsignedInt", "unsignedIntValue"},
		ir.Int32:   {"int32_t", "Int", "Int", "intValue"},
		ir.Uint64:  {"uint64_t", "UnsignedLong", "UnsignedLongLong", "unsignedLongLongValue"},
		ir.Int64:   {"int64_t", "Long", "LongLong", "longLongValue"},
		ir.Float32: {"float", "Float", "Float", "floatValue"},
		ir.Float64: {"double", "Double", "Double", "doubleValue"},
	}}
}

func (o *ObjCBackend) Name() string { return "objc" }

// UmbrellaHeader imports every generated class in emission order
const UmbrellaHeader = "Pdus.h"

func (o *ObjCBackend) Module(prog *analyzer.Program) ([]File, error) {
	var b strings.Builder
	o.license(&b)
	b.WriteString("#import <Foundation/Foundation.h>\n\n")
	for _, cp := range prog.Plans {
		fmt.Fprintf(&b, "#import %q\n", cp.Name()+".h")
	}
	return []File{{Name: UmbrellaHeader, Content: []byte(b.String())}}, nil
}

func (o *ObjCBackend) Class(plan *analyzer.ClassPlan) ([]File, error) {
	for _, ba := range plan.BitFields {
		if ba.Type.Float() {
			return nil, &analyzer.PlanError{Kind: analyzer.KindUnsupported, Class: plan.Name(), Attribute: ba.Field,
				Detail: fmt.Sprintf("bit field %q on floating point field", ba.Name)}
		}
	}

	header, err := o.header(plan)
	if err != nil {
		return nil, err
	}
	impl, err := o.implementation(plan)
	if err != nil {
		return nil, err
	}
	return []File{
		{Name: plan.Name() + ".h", Content: []byte(header)},
		{Name: plan.Name() + ".m", Content: []byte(impl)},
	}, nil
}

func (o *ObjCBackend) license(b *strings.Builder) {
	for _, l := range licenseLines {
		fmt.Fprintf(b, "// %s\n", l)
	}
	b.WriteString("\n")
}

func lowerFirst(s string) string {
	if s == "" {
		return s
	}
	r := []rune(s)
	r[0] = unicode.ToLower(r[0])
	return string(r)
}

// isArray reports whether an attribute is stored as an NSMutableArray
func isArray(a *ir.Attribute) bool {
	switch k := a.Kind.(type) {
	case *ir.DynamicListKind:
		return true
	case *ir.FixedListKind:
		return k.Elem.IsClass()
	}
	return false
}

func (o *ObjCBackend) header(plan *analyzer.ClassPlan) (string, error) {
	c := plan.Class
	var b strings.Builder
	o.license(&b)

	b.WriteString("#import <Foundation/Foundation.h>\n")
	b.WriteString("#import \"DataInput.h\"\n")
	b.WriteString("#import \"DataOutput.h\"\n")
	for _, ref := range referencedClasses(plan) {
		fmt.Fprintf(&b, "#import %q\n", ref+".h")
	}
	b.WriteString("\n")

	if c.Comment != "" {
		fmt.Fprintf(&b, "/** %s */\n", c.Comment)
	}
	parent := "NSObject"
	if c.HasParent() {
		parent = c.Parent
	}
	fmt.Fprintf(&b, "@interface %s : %s\n{\n", c.Name, parent)

	for _, a := range c.Attributes {
		if a.Comment != "" {
			fmt.Fprintf(&b, "  /** %s */\n", a.Comment)
		}
		switch k := a.Kind.(type) {
		case *ir.PrimitiveKind:
			fmt.Fprintf(&b, "  %s %s;\n", o.types[k.Type].native, a.Name)
		case *ir.ClassRefKind:
			fmt.Fprintf(&b, "  %s* %s;\n", k.Class, a.Name)
		case *ir.FixedListKind:
			if k.Elem.IsClass() {
				fmt.Fprintf(&b, "  NSMutableArray* %s;\n", a.Name)
			} else {
				fmt.Fprintf(&b, "  %s %s[%d];\n", o.types[k.Elem.Primitive].native, a.Name, k.Length)
			}
		case *ir.DynamicListKind:
			fmt.Fprintf(&b, "  NSMutableArray* %s;\n", a.Name)
		default:
			return "", unsupportedKind(plan, a)
		}
	}
	b.WriteString("}\n\n")

	for _, a := range c.Attributes {
		switch k := a.Kind.(type) {
		case *ir.PrimitiveKind:
			fmt.Fprintf(&b, "@property(readwrite, assign) %s %s;\n", o.types[k.Type].native, a.Name)
		case *ir.ClassRefKind:
			fmt.Fprintf(&b, "@property(readwrite, retain) %s* %s;\n", k.Class, a.Name)
		case *ir.FixedListKind:
			if k.Elem.IsClass() {
				fmt.Fprintf(&b, "@property(readwrite, retain) NSMutableArray* %s;\n", a.Name)
			} else {
				fmt.Fprintf(&b, "-(%s*)%s;\n", o.types[k.Elem.Primitive].native, a.Name)
			}
		case *ir.DynamicListKind:
			fmt.Fprintf(&b, "@property(readwrite, retain) NSMutableArray* %s;\n", a.Name)
		}
	}
	b.WriteString("\n")

	b.WriteString("-(id)init;\n")
	b.WriteString("-(void)marshalUsingStream:(DataOutput*)dataStream;\n")
	b.WriteString("-(void)unmarshalUsingStream:(DataInput*)dataStream;\n")
	b.WriteString("-(int)getMarshalledSize;\n")
	b.WriteString("-(BOOL)isEqual:(id)other;\n")
	for _, ba := range plan.BitFields {
		native := o.types[ba.Type].native
		if ba.Description != "" {
			fmt.Fprintf(&b, "/** %s */\n", ba.Description)
		}
		fmt.Fprintf(&b, "-(%s)%s;\n", native, lowerFirst(ba.Name))
		fmt.Fprintf(&b, "-(void)set%s:(%s)value;\n", initialCapital(ba.Name), native)
	}
	b.WriteString("\n@end\n")
	return b.String(), nil
}

func (o *ObjCBackend) implementation(plan *analyzer.ClassPlan) (string, error) {
	c := plan.Class
	var b strings.Builder
	o.license(&b)
	fmt.Fprintf(&b, "#import %q\n\n", c.Name+".h")
	fmt.Fprintf(&b, "@implementation %s\n\n", c.Name)

	var synth []string
	for _, a := range c.Attributes {
		if fl, ok := a.Kind.(*ir.FixedListKind); ok && !fl.Elem.IsClass() {
			continue
		}
		synth = append(synth, a.Name)
	}
	if len(synth) > 0 {
		fmt.Fprintf(&b, "@synthesize %s;\n\n", strings.Join(synth, ", "))
	}

	steps := []func(*analyzer.ClassPlan, *strings.Builder) error{
		o.writeInit,
		o.writeDealloc,
		o.writeMarshal,
		o.writeUnmarshal,
		o.writeSize,
		o.writeEquality,
		o.writeAccessors,
	}
	for _, step := range steps {
		if err := step(plan, &b); err != nil {
			return "", err
		}
	}

	b.WriteString("@end\n")
	return b.String(), nil
}

func (o *ObjCBackend) writeInit(plan *analyzer.ClassPlan, b *strings.Builder) error {
	b.WriteString("-(id)init\n{\n")
	b.WriteString("  self = [super init];\n")
	b.WriteString("  if(self)\n  {\n")
	for _, act := range plan.Init {
		switch act.Op {
		case analyzer.OpSuper:
			// [super init] above
		case analyzer.OpInitValue, analyzer.OpAssign:
			fmt.Fprintf(b, "    %s = %s;\n", act.Attr, cLiteral(act.Type, act.Value))
		case analyzer.OpInitObject:
			fmt.Fprintf(b, "    %s = [[%s alloc] init];\n", act.Attr, act.Class)
		case analyzer.OpInitArray:
			fmt.Fprintf(b, "    for(int idx = 0; idx < %d; idx++)\n", act.Length)
			fmt.Fprintf(b, "      %s[idx] = 0;\n", act.Attr)
		case analyzer.OpInitObjectArray:
			fmt.Fprintf(b, "    %s = [[NSMutableArray alloc] initWithCapacity:%d];\n", act.Attr, act.Length)
			fmt.Fprintf(b, "    for(int idx = 0; idx < %d; idx++)\n", act.Length)
			fmt.Fprintf(b, "      [%s addObject:[[[%s alloc] init] autorelease]];\n", act.Attr, act.Class)
		case analyzer.OpInitList:
			fmt.Fprintf(b, "    %s = [[NSMutableArray alloc] init];\n", act.Attr)
		default:
			return fmt.Errorf("%s: unexpected init action %s", plan.Name(), act.Op)
		}
	}
	b.WriteString("  }\n")
	b.WriteString("  return self;\n}\n\n")
	return nil
}

func (o *ObjCBackend) writeDealloc(plan *analyzer.ClassPlan, b *strings.Builder) error {
	b.WriteString("-(void)dealloc\n{\n")
	for _, a := range plan.Class.Attributes {
		if _, ok := a.Kind.(*ir.ClassRefKind); ok || isArray(a) {
			fmt.Fprintf(b, "  [%s release];\n", a.Name)
		}
	}
	b.WriteString("  [super dealloc];\n}\n\n")
	return nil
}

func (o *ObjCBackend) writeMarshal(plan *analyzer.ClassPlan, b *strings.Builder) error {
	b.WriteString("-(void)marshalUsingStream:(DataOutput*)dataStream\n{\n")
	for _, act := range plan.Marshal {
		t := o.types[act.Type]
		switch act.Op {
		case analyzer.OpSuper:
			b.WriteString("  [super marshalUsingStream:dataStream];\n")
		case analyzer.OpWrite:
			fmt.Fprintf(b, "  [dataStream write%s:%s];\n", t.stream, act.Attr)
		case analyzer.OpWriteLength:
			fmt.Fprintf(b, "  [dataStream write%s:(%s)[%s count]];\n", t.stream, t.native, act.List)
		case analyzer.OpMarshal:
			fmt.Fprintf(b, "  [%s marshalUsingStream:dataStream];\n", act.Attr)
		case analyzer.OpWriteArray:
			fmt.Fprintf(b, "  for(int idx = 0; idx < %d; idx++)\n", act.Length)
			fmt.Fprintf(b, "    [dataStream write%s:%s[idx]];\n", t.stream, act.Attr)
		case analyzer.OpMarshalArray, analyzer.OpMarshalList:
			fmt.Fprintf(b, "  for(int idx = 0; idx < [%s count]; idx++)\n  {\n", act.Attr)
			fmt.Fprintf(b, "    %s* element = [%s objectAtIndex:idx];\n", act.Class, act.Attr)
			b.WriteString("    [element marshalUsingStream:dataStream];\n  }\n")
		case analyzer.OpWriteList:
			fmt.Fprintf(b, "  for(int idx = 0; idx < [%s count]; idx++)\n", act.Attr)
			fmt.Fprintf(b, "    [dataStream write%s:[[%s objectAtIndex:idx] %s]];\n", t.stream, act.Attr, t.value)
		default:
			return fmt.Errorf("%s: unexpected marshal action %s", plan.Name(), act.Op)
		}
	}
	b.WriteString("}\n\n")
	return nil
}

func (o *ObjCBackend) writeUnmarshal(plan *analyzer.ClassPlan, b *strings.Builder) error {
	b.WriteString("-(void)unmarshalUsingStream:(DataInput*)dataStream\n{\n")
	for _, act := range plan.Unmarshal {
		t := o.types[act.Type]
		switch act.Op {
		case analyzer.OpSuper:
			b.WriteString("  [super unmarshalUsingStream:dataStream];\n")
		case analyzer.OpRead:
			fmt.Fprintf(b, "  %s = [dataStream read%s];\n", act.Attr, t.stream)
		case analyzer.OpUnmarshal:
			fmt.Fprintf(b, "  [%s unmarshalUsingStream:dataStream];\n", act.Attr)
		case analyzer.OpReadArray:
			fmt.Fprintf(b, "  for(int idx = 0; idx < %d; idx++)\n", act.Length)
			fmt.Fprintf(b, "    %s[idx] = [dataStream read%s];\n", act.Attr, t.stream)
		case analyzer.OpUnmarshalArray:
			fmt.Fprintf(b, "  for(int idx = 0; idx < [%s count]; idx++)\n", act.Attr)
			fmt.Fprintf(b, "    [[%s objectAtIndex:idx] unmarshalUsingStream:dataStream];\n", act.Attr)
		case analyzer.OpReadList:
			fmt.Fprintf(b, "  [%s removeAllObjects];\n", act.Attr)
			fmt.Fprintf(b, "  for(int idx = 0; idx < %s; idx++)\n", act.Count)
			fmt.Fprintf(b, "    [%s addObject:[NSNumber numberWith%s:[dataStream read%s]]];\n", act.Attr, t.number, t.stream)
		case analyzer.OpUnmarshalList:
			fmt.Fprintf(b, "  [%s removeAllObjects];\n", act.Attr)
			fmt.Fprintf(b, "  for(int idx = 0; idx < %s; idx++)\n  {\n", act.Count)
			fmt.Fprintf(b, "    %s* element = [[%s alloc] init];\n", act.Class, act.Class)
			b.WriteString("    [element unmarshalUsingStream:dataStream];\n")
			fmt.Fprintf(b, "    [%s addObject:element];\n", act.Attr)
			b.WriteString("    [element release];\n  }\n")
		default:
			return fmt.Errorf("%s: unexpected unmarshal action %s", plan.Name(), act.Op)
		}
	}
	b.WriteString("}\n\n")
	return nil
}

func (o *ObjCBackend) writeSize(plan *analyzer.ClassPlan, b *strings.Builder) error {
	b.WriteString("-(int)getMarshalledSize\n{\n")
	b.WriteString("  int marshalSize = 0;\n\n")
	for _, act := range plan.Size {
		switch act.Op {
		case analyzer.OpSuper:
			b.WriteString("  marshalSize += [super getMarshalledSize];\n")
		case analyzer.OpSizeConst:
			fmt.Fprintf(b, "  marshalSize += %d; // %s\n", act.Bytes, act.Attr)
		case analyzer.OpSizeObject:
			fmt.Fprintf(b, "  marshalSize += [%s getMarshalledSize];\n", act.Attr)
		case analyzer.OpSizeArray, analyzer.OpSizeListObjects:
			fmt.Fprintf(b, "  for(int idx = 0; idx < [%s count]; idx++)\n", act.Attr)
			fmt.Fprintf(b, "    marshalSize += [[%s objectAtIndex:idx] getMarshalledSize];\n", act.Attr)
		case analyzer.OpSizeList:
			fmt.Fprintf(b, "  marshalSize += [%s count] * %d;\n", act.Attr, act.Bytes)
		default:
			return fmt.Errorf("%s: unexpected size action %s", plan.Name(), act.Op)
		}
	}
	b.WriteString("  return marshalSize;\n}\n\n")
	return nil
}

// writeEquality compares every attribute, inherited ones through super.
// Count fields are skipped since their lists are compared directly.
func (o *ObjCBackend) writeEquality(plan *analyzer.ClassPlan, b *strings.Builder) error {
	c := plan.Class
	b.WriteString("-(BOOL)isEqual:(id)other\n{\n")
	fmt.Fprintf(b, "  if(![other isKindOfClass:[%s class]])\n    return NO;\n", c.Name)
	fmt.Fprintf(b, "  %s* rhs = (%s*)other;\n", c.Name, c.Name)
	if c.HasParent() {
		b.WriteString("  BOOL ivarsEqual = [super isEqual:rhs];\n\n")
	} else {
		b.WriteString("  BOOL ivarsEqual = YES;\n\n")
	}

	for _, a := range c.Attributes {
		switch k := a.Kind.(type) {
		case *ir.PrimitiveKind:
			if a.IsCountField() {
				continue
			}
			fmt.Fprintf(b, "  if(!(%s == rhs->%s)) ivarsEqual = NO;\n", a.Name, a.Name)
		case *ir.ClassRefKind:
			fmt.Fprintf(b, "  if(![%s isEqual:rhs->%s]) ivarsEqual = NO;\n", a.Name, a.Name)
		case *ir.FixedListKind:
			if k.Elem.IsClass() {
				fmt.Fprintf(b, "  if(![%s isEqualToArray:rhs->%s]) ivarsEqual = NO;\n", a.Name, a.Name)
				continue
			}
			fmt.Fprintf(b, "  for(int idx = 0; idx < %d; idx++)\n", k.Length)
			fmt.Fprintf(b, "    if(!(%s[idx] == rhs->%s[idx])) ivarsEqual = NO;\n", a.Name, a.Name)
		case *ir.DynamicListKind:
			fmt.Fprintf(b, "  if(![%s isEqualToArray:rhs->%s]) ivarsEqual = NO;\n", a.Name, a.Name)
		}
	}
	b.WriteString("\n  return ivarsEqual;\n}\n\n")
	return nil
}

func (o *ObjCBackend) writeAccessors(plan *analyzer.ClassPlan, b *strings.Builder) error {
	for _, a := range plan.Class.Attributes {
		fl, ok := a.Kind.(*ir.FixedListKind)
		if !ok || fl.Elem.IsClass() {
			continue
		}
		fmt.Fprintf(b, "-(%s*)%s\n{\n  return %s;\n}\n\n", o.types[fl.Elem.Primitive].native, a.Name, a.Name)
	}

	for _, ba := range plan.BitFields {
		native := o.types[ba.Type].native
		mask := fmt.Sprintf("0x%X", ba.MaskValue&widthMask(ba.Type))
		fmt.Fprintf(b, "-(%s)%s\n{\n", native, lowerFirst(ba.Name))
		fmt.Fprintf(b, "  return (%s & %s) >> %d;\n}\n\n", ba.Field, mask, ba.Shift)
		fmt.Fprintf(b, "-(void)set%s:(%s)value\n{\n", initialCapital(ba.Name), native)
		fmt.Fprintf(b, "  %s = (%s & ~%s) | (value << %d);\n}\n\n", ba.Field, ba.Field, mask, ba.Shift)
	}
	return nil
}

// cLiteral rewrites a constructor literal into C syntax
func cLiteral(t ir.Primitive, lit string) string {
	lit = strings.TrimSpace(lit)
	switch {
	case t == ir.Float32:
		lit = strings.TrimRight(lit, "fFdD")
		if !strings.ContainsAny(lit, ".eE") {
			lit += ".0"
		}
		return lit + "f"
	case t.Float():
		return strings.TrimRight(lit, "fFdD")
	case strings.HasPrefix(lit, "#"):
		return "0x" + lit[1:]
	case strings.HasPrefix(lit, "-#"):
		return "-0x" + lit[2:]
	}
	return lit
}
