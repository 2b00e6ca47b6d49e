// Package registry keeps an application's remotely registered commands in
// sync with a desired list.
//
// A sync run fetches the remote state, then removes commands that are no
// longer desired, patches the ones that changed, and creates the new ones.
// Every mutating call is issued sequentially through a fixed-window pacer.
// Running Sync twice with the same desired list issues no mutating calls the
// second time.
package registry

import (
	"context"
	"log/slog"
	"time"

	"github.com/xraph/herald/command"
	"github.com/xraph/herald/observability"
	"github.com/xraph/herald/ratelimit"
)

// Transport is the remote API the sync engine drives. *rest.Client implements it.
type Transport interface {
	ExchangeCredentials(ctx context.Context, clientID, clientSecret string) (string, error)
	ListCommands(ctx context.Context, appID, token, guildID string) ([]command.Remote, error)
	CreateCommand(ctx context.Context, appID, token string, spec command.Spec, guildID string) (command.Remote, error)
	PatchCommand(ctx context.Context, appID, token, commandID string, patch map[string]any, guildID string) (command.Remote, error)
	DeleteCommand(ctx context.Context, appID, token, commandID, guildID string) error
}

// Credentials authenticate a sync run. The client id doubles as the
// application id.
type Credentials struct {
	ClientID     string
	ClientSecret string
}

// Config holds the sync engine's pacing and locking settings.
type Config struct {
	// BatchSize is the number of mutating calls issued before pausing.
	BatchSize int

	// Window is the pause between batches.
	Window time.Duration

	// LockTTL bounds how long a scope lock is held if the process dies
	// mid-sync. A running sync extends the lock before every paced call, to
	// LockTTL plus one Window, so long runs keep it.
	LockTTL time.Duration
}

// DefaultConfig returns a Config sized for the platform's command quota.
func DefaultConfig() Config {
	return Config{
		BatchSize: ratelimit.DefaultBatchSize,
		Window:    ratelimit.DefaultWindow,
		LockTTL:   10 * time.Minute,
	}
}

// Syncer reconciles remote commands. It holds no state between runs and is
// safe for concurrent use; use a Locker to serialize runs across processes.
type Syncer struct {
	transport Transport
	config    Config
	locker    Locker
	recorder  Recorder
	metrics   *observability.Metrics
	tracer    *observability.Tracer
	sleep     ratelimit.SleepFunc
	logger    *slog.Logger
}

// Option configures a Syncer.
type Option func(*Syncer)

// New creates a Syncer driving the given transport.
func New(transport Transport, opts ...Option) *Syncer {
	s := &Syncer{
		transport: transport,
		config:    DefaultConfig(),
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// WithConfig replaces the pacing and locking settings.
func WithConfig(cfg Config) Option {
	return func(s *Syncer) { s.config = cfg }
}

// WithLocker serializes sync runs per scope.
func WithLocker(l Locker) Option {
	return func(s *Syncer) { s.locker = l }
}

// WithRecorder stores a snapshot after every successful run.
func WithRecorder(r Recorder) Option {
	return func(s *Syncer) { s.recorder = r }
}

// WithMetrics sets the metric instruments.
func WithMetrics(m *observability.Metrics) Option {
	return func(s *Syncer) { s.metrics = m }
}

// WithTracer sets the tracer.
func WithTracer(t *observability.Tracer) Option {
	return func(s *Syncer) { s.tracer = t }
}

// WithSleep replaces the pause used between batches. Tests use it to observe
// pacing without waiting.
func WithSleep(fn ratelimit.SleepFunc) Option {
	return func(s *Syncer) { s.sleep = fn }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Syncer) {
		if l != nil {
			s.logger = l
		}
	}
}
