package dispatch_test

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/xraph/herald/dispatch"
)

func TestGoExecutorRunsAndWaits(t *testing.T) {
	e := dispatch.NewGoExecutor(dispatch.ExecutorConfig{Concurrency: 2}, nil)

	var n atomic.Int32
	for range 10 {
		e.Spawn(func(context.Context) { n.Add(1) })
	}
	e.Wait()

	if got := n.Load(); got != 10 {
		t.Fatalf("expected 10 tasks to run, got %d", got)
	}
}

func TestGoExecutorRecoversPanics(t *testing.T) {
	e := dispatch.NewGoExecutor(dispatch.ExecutorConfig{}, nil)

	var ran atomic.Bool
	e.Spawn(func(context.Context) { panic("boom") })
	e.Spawn(func(context.Context) { ran.Store(true) })
	e.Wait()

	if !ran.Load() {
		t.Fatal("a panicking task must not stop others")
	}
}

func TestGoExecutorShutdown(t *testing.T) {
	e := dispatch.NewGoExecutor(dispatch.ExecutorConfig{}, nil)

	release := make(chan struct{})
	var finished atomic.Bool
	e.Spawn(func(context.Context) {
		<-release
		finished.Store(true)
	})

	go func() {
		time.Sleep(10 * time.Millisecond)
		close(release)
	}()

	if err := e.Shutdown(context.Background()); err != nil {
		t.Fatalf("Shutdown: %v", err)
	}
	if !finished.Load() {
		t.Fatal("Shutdown must wait for running tasks")
	}

	var dropped atomic.Bool
	e.Spawn(func(context.Context) { dropped.Store(true) })
	e.Wait()
	if dropped.Load() {
		t.Fatal("tasks spawned after Shutdown must be dropped")
	}

	if err := e.Shutdown(context.Background()); !errors.Is(err, dispatch.ErrExecutorClosed) {
		t.Fatalf("expected ErrExecutorClosed, got %v", err)
	}
}

func TestGoExecutorShutdownTimeoutCancelsTasks(t *testing.T) {
	e := dispatch.NewGoExecutor(dispatch.ExecutorConfig{}, nil)

	cancelled := make(chan struct{})
	e.Spawn(func(ctx context.Context) {
		<-ctx.Done()
		close(cancelled)
	})

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	if err := e.Shutdown(ctx); !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected DeadlineExceeded, got %v", err)
	}

	select {
	case <-cancelled:
	case <-time.After(time.Second):
		t.Fatal("task context was not cancelled")
	}
}

func TestInlineExecutorRunsSynchronously(t *testing.T) {
	ran := false
	dispatch.InlineExecutor{}.Spawn(func(context.Context) { ran = true })
	if !ran {
		t.Fatal("expected task to have run")
	}

	// Panics are contained.
	dispatch.InlineExecutor{}.Spawn(func(context.Context) { panic("boom") })
}
