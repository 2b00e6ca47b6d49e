package command

import "fmt"

// Problem reasons reported by Validate.
const (
	ReasonEmpty       = "must not be empty"
	ReasonForbidden   = "must be empty for context-menu commands"
	ReasonUnknownType = "unknown command type"
)

// FieldError names the first structural problem found in a Spec.
type FieldError struct {
	Name   string
	Field  string
	Reason string
}

func (e *FieldError) Error() string {
	return fmt.Sprintf("command %q: %s: %s", e.Name, e.Field, e.Reason)
}

// Validate checks the structural rules every command must satisfy before it
// can be indexed or registered. Empty optional fields are never a problem.
func (s Spec) Validate() error {
	problem := func(field, reason string) error {
		return &FieldError{Name: s.Name, Field: field, Reason: reason}
	}

	if s.Name == "" {
		return problem("name", ReasonEmpty)
	}
	if !s.Type.Known() {
		return problem("type", ReasonUnknownType)
	}
	switch {
	case s.Type.RequiresDescription():
		if s.Description == "" {
			return problem("description", ReasonEmpty)
		}
	case s.Type.ContextMenu():
		if s.Description != "" {
			return problem("description", ReasonForbidden)
		}
		if len(s.Options) > 0 {
			return problem("options", ReasonForbidden)
		}
	}
	return nil
}
