package registry

import (
	"context"
	"time"

	"github.com/xraph/herald/command"
	"github.com/xraph/herald/id"
	"github.com/xraph/herald/internal/entity"
)

// Locker grants exclusive access to a scope for the duration of one sync.
type Locker interface {
	// Acquire takes the lock for scope for ttl or returns ErrLocked.
	Acquire(ctx context.Context, scope string, ttl time.Duration) (Lease, error)
}

// Lease is a held scope lock.
type Lease interface {
	// Extend resets the remaining lifetime of the lock to ttl. It returns
	// ErrLockLost when the lock expired and may have been taken by another
	// holder.
	Extend(ctx context.Context, ttl time.Duration) error

	// Release gives the lock back. It is safe to call after the lock expired
	// and never frees a lock taken by another holder.
	Release(ctx context.Context) error
}

// Recorder persists the outcome of successful sync runs.
type Recorder interface {
	// Record stores snap as the latest snapshot of its scope.
	Record(ctx context.Context, snap *Snapshot) error

	// Latest returns the latest snapshot of scope, or ErrNotFound.
	Latest(ctx context.Context, scope string) (*Snapshot, error)
}

// Snapshot is the reconciled command list of one successful sync run.
type Snapshot struct {
	entity.Entity

	RunID         id.ID            `json:"run_id"`
	Scope         string           `json:"scope"`
	ApplicationID string           `json:"application_id"`
	GuildID       string           `json:"guild_id,omitempty"`
	Commands      []command.Remote `json:"commands"`
	Deleted       int              `json:"deleted"`
	Patched       int              `json:"patched"`
	Created       int              `json:"created"`
	Unchanged     int              `json:"unchanged"`
}

// Scope names the command scope of an application: global, or one guild.
func Scope(appID, guildID string) string {
	if guildID == "" {
		return appID + ":global"
	}
	return appID + ":guild:" + guildID
}
