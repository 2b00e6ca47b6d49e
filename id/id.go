// Package id defines TypeID-based identifiers for Herald runs.
//
// Each inbound dispatch and each registry sync run gets a K-sortable
// (UUIDv7-based), URL-safe identifier in the format "prefix_suffix". The ids
// tie together log lines, spans and stored sync snapshots. Scope locks use
// the same format for their ownership tokens.
package id

import (
	"fmt"

	"go.jetify.com/typeid/v2"
)

// Prefix identifies the kind of run encoded in a TypeID.
type Prefix string

// Prefix constants.
const (
	PrefixDispatch Prefix = "dsp"
	PrefixSync     Prefix = "sync"
	PrefixLock     Prefix = "lock"
)

// ID wraps a TypeID.
//
//nolint:recvcheck // Value receivers for read-only methods, pointer receiver for UnmarshalText.
type ID struct {
	inner typeid.TypeID
	valid bool
}

// Nil is the zero-value ID.
var Nil ID

// New generates a new globally unique ID with the given prefix.
// It panics if prefix is not a valid TypeID prefix (programming error).
func New(prefix Prefix) ID {
	tid, err := typeid.Generate(string(prefix))
	if err != nil {
		panic(fmt.Sprintf("id: invalid prefix %q: %v", prefix, err))
	}

	return ID{inner: tid, valid: true}
}

// Parse parses a TypeID string (e.g., "sync_01h455vb4pex5vsknk084sn02q").
func Parse(s string) (ID, error) {
	if s == "" {
		return Nil, fmt.Errorf("id: parse %q: empty string", s)
	}

	tid, err := typeid.Parse(s)
	if err != nil {
		return Nil, fmt.Errorf("id: parse %q: %w", s, err)
	}

	return ID{inner: tid, valid: true}, nil
}

// NewDispatchID generates a new dispatch ID.
func NewDispatchID() ID { return New(PrefixDispatch) }

// NewSyncID generates a new sync run ID.
func NewSyncID() ID { return New(PrefixSync) }

// NewLockID generates a new lock ownership token.
func NewLockID() ID { return New(PrefixLock) }

// String returns "prefix_suffix", or "" for Nil.
func (i ID) String() string {
	if !i.valid {
		return ""
	}

	return i.inner.String()
}

// Prefix returns the prefix component of this ID.
func (i ID) Prefix() Prefix {
	if !i.valid {
		return ""
	}

	return Prefix(i.inner.Prefix())
}

// IsNil reports whether this ID is the zero value.
func (i ID) IsNil() bool {
	return !i.valid
}

// MarshalText implements encoding.TextMarshaler.
func (i ID) MarshalText() ([]byte, error) {
	if !i.valid {
		return []byte{}, nil
	}

	return []byte(i.inner.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (i *ID) UnmarshalText(data []byte) error {
	if len(data) == 0 {
		*i = Nil

		return nil
	}

	parsed, err := Parse(string(data))
	if err != nil {
		return err
	}

	*i = parsed

	return nil
}
