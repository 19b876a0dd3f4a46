package parser

import (
	"encoding/xml"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/alexhholmes/pdugen/internal/ir"
	"go.uber.org/multierr"
)

// Document is the root <classes> element of a PDU description file
type Document struct {
	XMLName xml.Name   `xml:"classes"`
	Classes []XMLClass `xml:"class"`
}

// XMLClass is one <class> element
type XMLClass struct {
	Name           string            `xml:"name,attr"`
	InheritsFrom   string            `xml:"inheritsFrom,attr"`
	Comment        string            `xml:"comment,attr"`
	Abstract       string            `xml:"abstract,attr"`
	XMLRootElement string            `xml:"xmlRootElement,attr"`
	AliasFor       string            `xml:"aliasFor,attr"`
	SpecialCase    string            `xml:"specialCase,attr"`
	Implements     string            `xml:"implements,attr"`
	Attributes     []XMLAttribute    `xml:"attribute"`
	InitialValues  []XMLInitialValue `xml:"initialValue"`
}

// XMLAttribute is one <attribute> element. Exactly one child is expected.
type XMLAttribute struct {
	Name          string        `xml:"name,attr"`
	Comment       string        `xml:"comment,attr"`
	Serialize     string        `xml:"serialize,attr"`
	Primitive     *XMLPrimitive `xml:"primitive"`
	ClassRef      *XMLClassRef  `xml:"classRef"`
	PrimitiveList *XMLList      `xml:"primitivelist"`
	ObjectList    *XMLList      `xml:"objectlist"`
}

type XMLPrimitive struct {
	Type         string        `xml:"type,attr"`
	DefaultValue string        `xml:"defaultValue,attr"`
	BitFields    []XMLBitField `xml:"bitfield"`
}

type XMLClassRef struct {
	Name string `xml:"name,attr"`
}

// XMLList is a <primitivelist> or <objectlist>. A length makes it fixed,
// a countFieldName makes it dynamic.
type XMLList struct {
	Length         string        `xml:"length,attr"`
	CountFieldName string        `xml:"countFieldName,attr"`
	Primitive      *XMLPrimitive `xml:"primitive"`
	ClassRef       *XMLClassRef  `xml:"classRef"`
}

type XMLBitField struct {
	Name        string `xml:"name,attr"`
	Mask        string `xml:"mask,attr"`
	Description string `xml:"description,attr"`
}

type XMLInitialValue struct {
	Name  string `xml:"name,attr"`
	Value string `xml:"value,attr"`
}

// ParseFile reads a PDU description file and returns an unsealed registry
func ParseFile(filename string) (*ir.Registry, error) {
	f, err := os.Open(filename)
	if err != nil {
		return nil, fmt.Errorf("parse error: %w", err)
	}
	defer f.Close()

	reg, err := Parse(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", filename, err)
	}
	return reg, nil
}

// Parse decodes a PDU description. Every malformed class or attribute is
// reported; classes that convert cleanly are still registered.
func Parse(r io.Reader) (*ir.Registry, error) {
	var doc Document
	if err := xml.NewDecoder(r).Decode(&doc); err != nil {
		return nil, fmt.Errorf("parse error: %w", err)
	}

	reg := ir.NewRegistry()
	var errs error
	for _, xc := range doc.Classes {
		c, err := convertClass(xc)
		if err != nil {
			errs = multierr.Append(errs, err)
			continue
		}
		errs = multierr.Append(errs, reg.Add(c))
	}
	return reg, errs
}

func convertClass(xc XMLClass) (*ir.ClassDescription, error) {
	name := strings.TrimSpace(xc.Name)
	if name == "" {
		return nil, fmt.Errorf("class without name")
	}

	c := &ir.ClassDescription{
		Name:           name,
		Parent:         strings.TrimSpace(xc.InheritsFrom),
		Comment:        CleanComment(xc.Comment),
		Abstract:       parseBool(xc.Abstract, false),
		XMLRootElement: parseBool(xc.XMLRootElement, false),
		AliasFor:       strings.TrimSpace(xc.AliasFor),
		SpecialCase:    strings.TrimSpace(xc.SpecialCase),
		Interfaces:     strings.TrimSpace(xc.Implements),
	}

	var errs error
	for _, xa := range xc.Attributes {
		a, err := convertAttribute(xa)
		if err != nil {
			errs = multierr.Append(errs, fmt.Errorf("%s.%s: %w", name, xa.Name, err))
			continue
		}
		c.Attributes = append(c.Attributes, a)
	}

	for _, iv := range xc.InitialValues {
		c.InitialValues = append(c.InitialValues, ir.InitialValue{
			Attribute: strings.TrimSpace(iv.Name),
			Value:     strings.TrimSpace(iv.Value),
		})
	}

	if errs != nil {
		return nil, errs
	}
	return c, nil
}

func convertAttribute(xa XMLAttribute) (*ir.Attribute, error) {
	a := &ir.Attribute{
		Name:      strings.TrimSpace(xa.Name),
		Comment:   CleanComment(xa.Comment),
		Transient: !parseBool(xa.Serialize, true),
	}

	children := 0
	for _, present := range []bool{xa.Primitive != nil, xa.ClassRef != nil,
		xa.PrimitiveList != nil, xa.ObjectList != nil} {
		if present {
			children++
		}
	}
	if children != 1 {
		return nil, fmt.Errorf("expected one of primitive, classRef, primitivelist, objectlist; got %d", children)
	}

	var err error
	switch {
	case xa.Primitive != nil:
		a.Kind, err = convertPrimitive(xa.Primitive)
	case xa.ClassRef != nil:
		a.Kind, err = convertClassRef(xa.ClassRef)
	case xa.PrimitiveList != nil:
		a.Kind, err = convertList(xa.PrimitiveList)
	case xa.ObjectList != nil:
		a.Kind, err = convertList(xa.ObjectList)
	}
	if err != nil {
		return nil, err
	}
	return a, nil
}

func convertPrimitive(xp *XMLPrimitive) (*ir.PrimitiveKind, error) {
	t, ok := ir.ParsePrimitive(xp.Type)
	if !ok {
		return nil, fmt.Errorf("unknown primitive type %q", xp.Type)
	}
	p := &ir.PrimitiveKind{
		Type:    t,
		Default: strings.TrimSpace(xp.DefaultValue),
	}
	for _, bf := range xp.BitFields {
		if strings.TrimSpace(bf.Name) == "" || strings.TrimSpace(bf.Mask) == "" {
			return nil, fmt.Errorf("bitfield requires name and mask")
		}
		p.BitFields = append(p.BitFields, ir.BitField{
			Name:        strings.TrimSpace(bf.Name),
			Mask:        strings.TrimSpace(bf.Mask),
			Description: CleanComment(bf.Description),
		})
	}
	return p, nil
}

func convertClassRef(xr *XMLClassRef) (*ir.ClassRefKind, error) {
	name := strings.TrimSpace(xr.Name)
	if name == "" {
		return nil, fmt.Errorf("classRef without name")
	}
	return &ir.ClassRefKind{Class: name}, nil
}

func convertList(xl *XMLList) (ir.Kind, error) {
	var elem ir.Element
	switch {
	case xl.Primitive != nil && xl.ClassRef != nil:
		return nil, fmt.Errorf("list element is both primitive and classRef")
	case xl.Primitive != nil:
		p, err := convertPrimitive(xl.Primitive)
		if err != nil {
			return nil, err
		}
		if len(p.BitFields) > 0 {
			return nil, fmt.Errorf("bit fields on list elements are not supported")
		}
		elem = ir.PrimitiveElem(p.Type)
	case xl.ClassRef != nil:
		r, err := convertClassRef(xl.ClassRef)
		if err != nil {
			return nil, err
		}
		elem = ir.ClassElem(r.Class)
	default:
		return nil, fmt.Errorf("list without element type")
	}

	countField := strings.TrimSpace(xl.CountFieldName)
	length := strings.TrimSpace(xl.Length)
	switch {
	case countField != "" && length != "":
		return nil, fmt.Errorf("list has both length and countFieldName")
	case countField != "":
		return &ir.DynamicListKind{CountField: countField, Elem: elem}, nil
	case length != "":
		n, err := strconv.Atoi(length)
		if err != nil {
			return nil, fmt.Errorf("invalid list length: %s", length)
		}
		return &ir.FixedListKind{Length: n, Elem: elem}, nil
	}
	return nil, fmt.Errorf("list needs length or countFieldName")
}

func parseBool(s string, def bool) bool {
	s = strings.TrimSpace(s)
	if s == "" {
		return def
	}
	b, err := strconv.ParseBool(s)
	if err != nil {
		return def
	}
	return b
}
