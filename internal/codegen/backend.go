package codegen

import (
	"fmt"
	"sort"
	"strings"
	"unicode"

	"github.com/alexhholmes/pdugen/internal/analyzer"
)

// File is one generated artifact, relative to its backend directory
type File struct {
	Name    string
	Content []byte
}

// Backend renders planned classes into one target language. Each backend owns
// its own table from canonical type names to native types and stream methods.
type Backend interface {
	Name() string
	Class(plan *analyzer.ClassPlan) ([]File, error)
}

// ModuleBackend is implemented by backends that also emit program-wide files,
// such as package docs or umbrella imports.
type ModuleBackend interface {
	Backend
	Module(prog *analyzer.Program) ([]File, error)
}

// BackendOptions carries backend-specific settings from the run configuration
type BackendOptions struct {
	Package string // Go package name
}

var backends = map[string]func(BackendOptions) Backend{
	"objc":   func(BackendOptions) Backend { return NewObjC() },
	"python": func(BackendOptions) Backend { return NewPython() },
	"go":     func(o BackendOptions) Backend { return NewGo(o.Package) },
}

// NewBackend returns the backend registered under name
func NewBackend(name string, opts BackendOptions) (Backend, error) {
	ctor, ok := backends[strings.ToLower(strings.TrimSpace(name))]
	if !ok {
		return nil, fmt.Errorf("unknown backend %q (have %s)", name, strings.Join(BackendNames(), ", "))
	}
	return ctor(opts), nil
}

// BackendNames lists the registered backends
func BackendNames() []string {
	names := make([]string, 0, len(backends))
	for n := range backends {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// initialCapital returns s with the first letter upper-cased
func initialCapital(s string) string {
	if s == "" {
		return s
	}
	r := []rune(s)
	r[0] = unicode.ToUpper(r[0])
	return string(r)
}

// snakeCase converts a class name to a file stem: EntityStatePdu -> entity_state_pdu
func snakeCase(s string) string {
	var b strings.Builder
	r := []rune(s)
	for i, c := range r {
		if unicode.IsUpper(c) {
			prevLower := i > 0 && unicode.IsLower(r[i-1])
			nextLower := i+1 < len(r) && unicode.IsLower(r[i+1]) && i > 0 && unicode.IsUpper(r[i-1])
			if prevLower || nextLower {
				b.WriteByte('_')
			}
			b.WriteRune(unicode.ToLower(c))
			continue
		}
		b.WriteRune(c)
	}
	return b.String()
}

// referencedClasses returns the classes a plan depends on, parent first,
// then embedded and element classes in declaration order.
func referencedClasses(plan *analyzer.ClassPlan) []string {
	var out []string
	seen := map[string]bool{plan.Name(): true}
	add := func(name string) {
		if name != "" && !seen[name] {
			seen[name] = true
			out = append(out, name)
		}
	}
	if plan.Class.HasParent() {
		add(plan.Class.Parent)
	}
	for _, act := range plan.Init {
		switch act.Op {
		case analyzer.OpInitObject, analyzer.OpInitObjectArray, analyzer.OpInitList:
			add(act.Class)
		}
	}
	return out
}

// licenseLines is written at the top of every generated file
var licenseLines = []string{
	"This code is licensed under the BSD software license.",
	"Generated by pdugen. Do not edit.",
}
