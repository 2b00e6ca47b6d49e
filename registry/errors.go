package registry

import (
	"errors"
	"fmt"

	"github.com/xraph/herald/command"
)

// Sentinel errors returned by the sync engine.
var (
	// ErrInvalidSpec is returned when a desired command fails structural validation.
	ErrInvalidSpec = errors.New("registry: invalid command spec")

	// ErrDuplicateSpec is returned when two desired commands share a (name, type) key.
	ErrDuplicateSpec = errors.New("registry: duplicate command key")

	// ErrLocked is returned when another sync holds the scope's lock.
	ErrLocked = errors.New("registry: scope is being synced by another process")

	// ErrLockLost is returned when a scope lock expired while its sync was running.
	ErrLockLost = errors.New("registry: scope lock lost")

	// ErrNotFound is returned when no snapshot has been recorded for a scope.
	ErrNotFound = errors.New("registry: snapshot not found")
)

// Sync phases.
const (
	PhaseFetch     = "fetch"
	PhaseRemove    = "remove"
	PhaseReconcile = "reconcile"
	PhaseCreate    = "create"
)

// PhaseError wraps the transport error that aborted a sync. Err is the
// unmodified transport error, so errors.As reaches a *rest.APIError.
type PhaseError struct {
	Phase     string
	Op        string
	Key       command.Key
	CommandID string
	Err       error
}

func (e *PhaseError) Error() string {
	switch {
	case e.CommandID != "":
		return fmt.Sprintf("registry: %s: %s %s (id %s): %v", e.Phase, e.Op, e.Key, e.CommandID, e.Err)
	case e.Key.Name != "":
		return fmt.Sprintf("registry: %s: %s %s: %v", e.Phase, e.Op, e.Key, e.Err)
	default:
		return fmt.Sprintf("registry: %s: %s: %v", e.Phase, e.Op, e.Err)
	}
}

func (e *PhaseError) Unwrap() error { return e.Err }
