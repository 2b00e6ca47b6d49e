package handler

import (
	"errors"
	"fmt"

	"github.com/xraph/herald/command"
)

// Rejection reasons.
const (
	ReasonEmpty       = command.ReasonEmpty
	ReasonForbidden   = command.ReasonForbidden
	ReasonUnknownType = command.ReasonUnknownType
	ReasonNoExecutor  = "executor is required"
	ReasonDuplicate   = "duplicate key, first registration kept"
)

// RejectionError describes why an entry was left out of an index.
type RejectionError struct {
	// Index is the entry's position in the input slice, or -1 when validated alone.
	Index int

	// Name is the command name or component custom id.
	Name string

	// Field is the offending field.
	Field string

	// Reason is a human-readable explanation.
	Reason string
}

func (e *RejectionError) Error() string {
	if e.Index >= 0 {
		return fmt.Sprintf("handler: entry %d (%q) rejected: %s: %s", e.Index, e.Name, e.Field, e.Reason)
	}
	return fmt.Sprintf("handler: %q rejected: %s: %s", e.Name, e.Field, e.Reason)
}

// ValidateCommand checks a command entry. It returns a *RejectionError or nil.
func ValidateCommand(c Command) error {
	if err := c.Spec.Validate(); err != nil {
		var fe *command.FieldError
		if errors.As(err, &fe) {
			return &RejectionError{Index: -1, Name: fe.Name, Field: fe.Field, Reason: fe.Reason}
		}
		return &RejectionError{Index: -1, Name: c.Name, Reason: err.Error()}
	}
	if c.Execute == nil {
		return &RejectionError{Index: -1, Name: c.Name, Field: "execute", Reason: ReasonNoExecutor}
	}
	return nil
}

// ValidateComponent checks a component entry. It returns a *RejectionError or nil.
func ValidateComponent(c Component) error {
	if c.Name == "" {
		return &RejectionError{Index: -1, Name: c.Name, Field: "name", Reason: ReasonEmpty}
	}
	if c.Execute == nil {
		return &RejectionError{Index: -1, Name: c.Name, Field: "execute", Reason: ReasonNoExecutor}
	}
	return nil
}
