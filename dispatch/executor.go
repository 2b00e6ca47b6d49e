package dispatch

import (
	"context"
	"errors"
	"log/slog"
	"runtime/debug"
	"sync"

	"github.com/xraph/herald/observability"
)

// ErrExecutorClosed is returned by Shutdown when called twice.
var ErrExecutorClosed = errors.New("dispatch: executor is closed")

// Executor runs deferred tasks outside the request path. The dispatcher never
// waits for a spawned task.
type Executor interface {
	Spawn(task func(ctx context.Context))
}

// ExecutorConfig holds GoExecutor settings.
type ExecutorConfig struct {
	// Concurrency caps the number of tasks running at once. Zero means unbounded.
	Concurrency int

	Metrics *observability.Metrics
}

// GoExecutor runs each task on its own goroutine and tracks it until it
// finishes, so the host can drain outstanding work on shutdown.
type GoExecutor struct {
	ctx    context.Context
	cancel context.CancelFunc
	sem    chan struct{}
	config ExecutorConfig
	logger *slog.Logger

	mu     sync.Mutex
	closed bool
	wg     sync.WaitGroup
}

// NewGoExecutor creates a GoExecutor. Task contexts derive from
// context.Background and are cancelled when Shutdown gives up waiting.
func NewGoExecutor(cfg ExecutorConfig, logger *slog.Logger) *GoExecutor {
	if logger == nil {
		logger = slog.Default()
	}
	ctx, cancel := context.WithCancel(context.Background())
	e := &GoExecutor{
		ctx:    ctx,
		cancel: cancel,
		config: cfg,
		logger: logger,
	}
	if cfg.Concurrency > 0 {
		e.sem = make(chan struct{}, cfg.Concurrency)
	}
	return e
}

// Spawn starts task in the background. Tasks spawned after Shutdown are dropped.
func (e *GoExecutor) Spawn(task func(ctx context.Context)) {
	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		e.logger.Warn("deferred task dropped, executor is shut down")
		return
	}
	e.wg.Add(1)
	e.mu.Unlock()

	go func() {
		defer e.wg.Done()
		if e.sem != nil {
			select {
			case e.sem <- struct{}{}:
				defer func() { <-e.sem }()
			case <-e.ctx.Done():
				return
			}
		}
		e.config.Metrics.TaskStarted()
		defer e.config.Metrics.TaskFinished()
		runTask(e.ctx, task, e.logger)
	}()
}

// Wait blocks until every spawned task has returned.
func (e *GoExecutor) Wait() {
	e.wg.Wait()
}

// Shutdown stops accepting tasks and waits for running ones. If ctx ends
// first, task contexts are cancelled and ctx.Err() is returned.
func (e *GoExecutor) Shutdown(ctx context.Context) error {
	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return ErrExecutorClosed
	}
	e.closed = true
	e.mu.Unlock()

	done := make(chan struct{})
	go func() {
		e.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		e.cancel()
		return nil
	case <-ctx.Done():
		e.cancel()
		return ctx.Err()
	}
}

// InlineExecutor runs each task immediately on the caller's goroutine. It
// makes deferred work deterministic in tests.
type InlineExecutor struct {
	Logger *slog.Logger
}

// Spawn runs task to completion before returning.
func (e InlineExecutor) Spawn(task func(ctx context.Context)) {
	logger := e.Logger
	if logger == nil {
		logger = slog.Default()
	}
	runTask(context.Background(), task, logger)
}

func runTask(ctx context.Context, task func(context.Context), logger *slog.Logger) {
	defer func() {
		if r := recover(); r != nil {
			logger.ErrorContext(ctx, "deferred task panicked",
				"panic", r,
				"stack", string(debug.Stack()),
			)
		}
	}()
	task(ctx)
}
