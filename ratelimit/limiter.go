// Package ratelimit paces remote-mutating calls with a fixed-window budget.
//
// The pacer is proactive: it never inspects rate-limit response headers. Calls
// are grouped into phases. Within a phase, every full batch is followed by a
// pause of the configured window; a phase that ends on a partial batch is also
// followed by a pause before the next phase issues anything.
package ratelimit

import (
	"context"
	"sync"
	"time"
)

// Defaults sized for the platform's command-management quota.
const (
	DefaultBatchSize = 5
	DefaultWindow    = 20 * time.Second
)

// SleepFunc blocks for d or until ctx is done.
type SleepFunc func(ctx context.Context, d time.Duration) error

// Pacer implements fixed-window pacing for sequential calls.
type Pacer struct {
	mu      sync.Mutex
	batch   int
	window  time.Duration
	sleep   SleepFunc
	issued  int
	pending bool
	pauses  int
}

// PacerOption configures a Pacer.
type PacerOption func(*Pacer)

// WithSleep replaces the clock used to pause between batches.
func WithSleep(fn SleepFunc) PacerOption {
	return func(p *Pacer) {
		if fn != nil {
			p.sleep = fn
		}
	}
}

// New creates a pacer that allows batch calls and then pauses for window.
// A batch or window <= 0 disables pacing.
func New(batch int, window time.Duration, opts ...PacerOption) *Pacer {
	p := &Pacer{
		batch:  batch,
		window: window,
		sleep:  sleepContext,
	}
	for _, o := range opts {
		o(p)
	}
	return p
}

// Wait must be called before each paced call. It returns immediately while
// the current batch has room, and pauses for the window once a batch is full.
// It returns ctx.Err() if the context ends during the pause.
func (p *Pacer) Wait(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.enabled() && (p.pending || (p.issued > 0 && p.issued%p.batch == 0)) {
		if err := p.sleep(ctx, p.window); err != nil {
			return err
		}
		p.pending = false
		p.pauses++
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	p.issued++
	return nil
}

// EndPhase closes the current phase. If it issued any calls, the first call
// of the next phase waits for a window.
func (p *Pacer) EndPhase() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.issued > 0 {
		p.pending = true
	}
	p.issued = 0
}

// Issued returns the number of calls let through in the current phase.
func (p *Pacer) Issued() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.issued
}

// Pauses returns the total number of window pauses taken.
func (p *Pacer) Pauses() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.pauses
}

func (p *Pacer) enabled() bool {
	return p.batch > 0 && p.window > 0
}

func sleepContext(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
