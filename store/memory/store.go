// Package memory provides an in-memory Store implementation for tests and
// single-process deployments.
package memory

import (
	"context"
	"slices"
	"sync"
	"time"

	"github.com/xraph/herald/id"
	"github.com/xraph/herald/registry"
	"github.com/xraph/herald/store"
)

// compile-time interface check.
var _ store.Store = (*Store)(nil)

type lock struct {
	token   string
	expires time.Time
}

// Store is an in-memory implementation of store.Store.
type Store struct {
	mu sync.Mutex

	locks     map[string]lock               // keyed by scope
	snapshots map[string]*registry.Snapshot // keyed by scope
	now       func() time.Time

	closed bool
}

// New creates a new in-memory store.
func New() *Store {
	return &Store{
		locks:     make(map[string]lock),
		snapshots: make(map[string]*registry.Snapshot),
		now:       time.Now,
	}
}

// Ping reports whether the store is open.
func (s *Store) Ping(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return store.ErrClosed
	}
	return nil
}

// Close marks the store as closed.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

// Acquire takes the scope lock until released or ttl elapses.
func (s *Store) Acquire(_ context.Context, scope string, ttl time.Duration) (registry.Lease, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil, store.ErrClosed
	}

	now := s.now()
	if l, held := s.locks[scope]; held && now.Before(l.expires) {
		return nil, registry.ErrLocked
	}

	token := id.NewLockID().String()
	s.locks[scope] = lock{token: token, expires: now.Add(ttl)}
	return &lease{store: s, scope: scope, token: token}, nil
}

type lease struct {
	store *Store
	scope string
	token string
}

// Extend pushes the expiry to ttl from now while the lock is still ours.
func (l *lease) Extend(_ context.Context, ttl time.Duration) error {
	s := l.store
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	cur, held := s.locks[l.scope]
	if !held || cur.token != l.token || !now.Before(cur.expires) {
		return registry.ErrLockLost
	}
	s.locks[l.scope] = lock{token: l.token, expires: now.Add(ttl)}
	return nil
}

// Release drops the lock. A lock that expired and was taken by someone else
// is left alone.
func (l *lease) Release(context.Context) error {
	s := l.store
	s.mu.Lock()
	defer s.mu.Unlock()
	if cur, held := s.locks[l.scope]; held && cur.token == l.token {
		delete(s.locks, l.scope)
	}
	return nil
}

// Record stores a copy of snap as the latest snapshot of its scope.
func (s *Store) Record(_ context.Context, snap *registry.Snapshot) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return store.ErrClosed
	}
	cp := *snap
	cp.Commands = slices.Clone(snap.Commands)
	if prev, ok := s.snapshots[snap.Scope]; ok {
		cp.CreatedAt = prev.CreatedAt
		cp.Touch()
	}
	s.snapshots[snap.Scope] = &cp
	return nil
}

// Latest returns a copy of the latest snapshot of scope.
func (s *Store) Latest(_ context.Context, scope string) (*registry.Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil, store.ErrClosed
	}
	snap, ok := s.snapshots[scope]
	if !ok {
		return nil, registry.ErrNotFound
	}
	cp := *snap
	cp.Commands = slices.Clone(snap.Commands)
	return &cp, nil
}
