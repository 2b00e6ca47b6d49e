package herald

import (
	"errors"

	"github.com/xraph/herald/dispatch"
	"github.com/xraph/herald/registry"
	"github.com/xraph/herald/signature"
)

// Sentinel errors returned by Herald operations.
var (
	// ErrNoPublicKey is returned when a Herald is created without a public key.
	ErrNoPublicKey = errors.New("herald: public key is required")

	// ErrInvalidPublicKey is returned when the public key is not 32 hex-encoded bytes.
	ErrInvalidPublicKey = signature.ErrInvalidPublicKey

	// ErrSignatureInvalid is recorded when a request fails verification.
	ErrSignatureInvalid = dispatch.ErrSignatureInvalid

	// ErrMalformedInteraction is recorded when a verified payload cannot be decoded.
	ErrMalformedInteraction = dispatch.ErrMalformedInteraction

	// ErrHandlerNotFound is recorded when no handler matches an interaction.
	ErrHandlerNotFound = dispatch.ErrHandlerNotFound

	// ErrHandlerFailed is recorded when a handler returns an error or panics.
	ErrHandlerFailed = dispatch.ErrHandlerFailed

	// ErrSyncLocked is returned when another process is syncing the same scope.
	ErrSyncLocked = registry.ErrLocked

	// ErrSyncLockLost is returned when a sync's scope lock expired mid-run.
	ErrSyncLockLost = registry.ErrLockLost

	// ErrShutdown is returned by Shutdown when called more than once.
	ErrShutdown = dispatch.ErrExecutorClosed
)
