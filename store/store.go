// Package store defines the composite Store interface for sync persistence.
//
// A Store serializes sync runs per scope and keeps the latest reconciled
// command list of each scope. Backends live in subpackages.
package store

import (
	"context"
	"errors"

	"github.com/xraph/herald/registry"
)

// ErrClosed is returned when a store operation is attempted after Close.
var ErrClosed = errors.New("herald: store is closed")

// Store is the aggregate persistence interface.
type Store interface {
	registry.Locker
	registry.Recorder

	// Ping checks backend connectivity.
	Ping(ctx context.Context) error

	// Close releases the backend connection.
	Close() error
}
