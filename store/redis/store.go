// Package redis provides a Redis-backed Store: scope locks use SET NX PX with
// token-checked release, snapshots are stored as JSON.
package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/xraph/herald/id"
	"github.com/xraph/herald/registry"
	"github.com/xraph/herald/store"
)

// compile-time interface check
var _ store.Store = (*Store)(nil)

// releaseScript deletes the lock only while it still holds our token.
var releaseScript = goredis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// extendScript resets the lock TTL only while it still holds our token.
var extendScript = goredis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("PEXPIRE", KEYS[1], ARGV[2])
end
return 0
`)

// Store implements store.Store using Redis.
type Store struct {
	rdb goredis.UniversalClient
}

// New creates a new Redis store.
func New(rdb goredis.UniversalClient) *Store {
	return &Store{rdb: rdb}
}

// Ping checks Redis connectivity.
func (s *Store) Ping(ctx context.Context) error {
	return s.rdb.Ping(ctx).Err()
}

// Close closes the Redis client.
func (s *Store) Close() error {
	return s.rdb.Close()
}

// Acquire takes the scope lock with SET NX and a TTL.
func (s *Store) Acquire(ctx context.Context, scope string, ttl time.Duration) (registry.Lease, error) {
	key := prefixLock + scope
	token := id.NewLockID().String()

	ok, err := s.rdb.SetNX(ctx, key, token, ttl).Result()
	if err != nil {
		return nil, fmt.Errorf("herald/redis: acquire %s: %w", scope, err)
	}
	if !ok {
		return nil, registry.ErrLocked
	}
	return &lease{rdb: s.rdb, scope: scope, key: key, token: token}, nil
}

type lease struct {
	rdb   goredis.UniversalClient
	scope string
	key   string
	token string
}

// Extend resets the key's TTL with PEXPIRE, guarded by the token.
func (l *lease) Extend(ctx context.Context, ttl time.Duration) error {
	n, err := extendScript.Run(ctx, l.rdb, []string{l.key}, l.token, ttl.Milliseconds()).Int64()
	if err != nil && !isRedisNil(err) {
		return fmt.Errorf("herald/redis: extend %s: %w", l.scope, err)
	}
	if n == 0 {
		return registry.ErrLockLost
	}
	return nil
}

// Release deletes the key while it still holds our token.
func (l *lease) Release(ctx context.Context) error {
	if err := releaseScript.Run(ctx, l.rdb, []string{l.key}, l.token).Err(); err != nil && !isRedisNil(err) {
		return fmt.Errorf("herald/redis: release %s: %w", l.scope, err)
	}
	return nil
}

// Record stores snap as the latest snapshot of its scope. CreatedAt is kept
// from the previous snapshot of the scope, if any.
func (s *Store) Record(ctx context.Context, snap *registry.Snapshot) error {
	key := prefixSnapshot + snap.Scope

	cp := *snap
	if prev, err := s.Latest(ctx, snap.Scope); err == nil {
		cp.CreatedAt = prev.CreatedAt
		cp.Touch()
	} else if !errors.Is(err, registry.ErrNotFound) {
		return err
	}

	raw, err := json.Marshal(&cp)
	if err != nil {
		return fmt.Errorf("herald/redis: marshal snapshot: %w", err)
	}
	if err := s.rdb.Set(ctx, key, raw, 0).Err(); err != nil {
		return fmt.Errorf("herald/redis: record %s: %w", snap.Scope, err)
	}
	return nil
}

// Latest returns the latest snapshot of scope.
func (s *Store) Latest(ctx context.Context, scope string) (*registry.Snapshot, error) {
	raw, err := s.rdb.Get(ctx, prefixSnapshot+scope).Bytes()
	if err != nil {
		if isRedisNil(err) {
			return nil, registry.ErrNotFound
		}
		return nil, fmt.Errorf("herald/redis: latest %s: %w", scope, err)
	}

	var snap registry.Snapshot
	if err := json.Unmarshal(raw, &snap); err != nil {
		return nil, fmt.Errorf("herald/redis: decode snapshot %s: %w", scope, err)
	}
	return &snap, nil
}

// isRedisNil checks if an error is a Redis nil (key not found).
func isRedisNil(err error) bool {
	return errors.Is(err, goredis.Nil)
}
