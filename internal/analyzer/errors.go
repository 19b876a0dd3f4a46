package analyzer

import (
	"fmt"
	"strings"
)

// Kind categorizes a planning error
type Kind string

const (
	KindUnsupported Kind = "unsupported" // construct the planner refuses to emit
	KindUnresolved  Kind = "unresolved"  // reference to a missing class or field
	KindInvalid     Kind = "invalid"     // structurally inconsistent description
)

// PlanError reports a configuration problem found while planning one class
type PlanError struct {
	Kind      Kind
	Class     string
	Attribute string
	Detail    string
}

func (e *PlanError) Error() string {
	var b strings.Builder
	b.WriteString("plan ")
	b.WriteString(string(e.Kind))
	b.WriteString(": ")
	b.WriteString(e.Class)
	if e.Attribute != "" {
		b.WriteByte('.')
		b.WriteString(e.Attribute)
	}
	if e.Detail != "" {
		b.WriteString(": ")
		b.WriteString(e.Detail)
	}
	return b.String()
}

// Is matches any *PlanError of the same kind
func (e *PlanError) Is(target error) bool {
	t, ok := target.(*PlanError)
	return ok && t.Kind == e.Kind
}

// ErrUnsupported matches every unsupported-construct PlanError via errors.Is
var ErrUnsupported = &PlanError{Kind: KindUnsupported}

func unsupported(class, attr, format string, args ...any) *PlanError {
	return &PlanError{
		Kind:      KindUnsupported,
		Class:     class,
		Attribute: attr,
		Detail:    fmt.Sprintf(format, args...),
	}
}

// OrderError is returned when classes cannot be placed under the root:
// their parent is unknown or they take part in an inheritance cycle.
type OrderError struct {
	Classes []string          // unplaced classes, sorted
	Parents map[string]string // class -> declared parent
}

func (e *OrderError) Error() string {
	parts := make([]string, 0, len(e.Classes))
	for _, c := range e.Classes {
		parts = append(parts, fmt.Sprintf("%s (parent %q)", c, e.Parents[c]))
	}
	return fmt.Sprintf("unresolved or cyclic parent for %d classes: %s",
		len(e.Classes), strings.Join(parts, ", "))
}
