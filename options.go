package herald

import (
	"log/slog"
	"time"

	"github.com/xraph/herald/dispatch"
	"github.com/xraph/herald/handler"
	"github.com/xraph/herald/observability"
)

// Herald is the root interactions endpoint. It is immutable once built and
// safe for concurrent use.
type Herald struct {
	config     Config
	commands   []handler.Command
	components []handler.Component
	executor   dispatch.Executor
	owned      *dispatch.GoExecutor
	webhooks   dispatch.WebhookClient
	sink       dispatch.ErrorSink
	metrics    *observability.Metrics
	tracer     *observability.Tracer
	logger     *slog.Logger

	dispatcher *dispatch.Dispatcher
	rejected   []*handler.RejectionError
}

// Option configures a Herald instance.
type Option func(*Herald) error

// WithConfig replaces the whole configuration.
func WithConfig(cfg Config) Option {
	return func(h *Herald) error {
		h.config = cfg
		return nil
	}
}

// WithPublicKey sets the hex-encoded Ed25519 public key requests are verified against.
func WithPublicKey(key string) Option {
	return func(h *Herald) error {
		h.config.PublicKey = key
		return nil
	}
}

// WithCommands appends command handlers. Invalid entries are dropped when
// the Herald is built and reported by Rejected.
func WithCommands(cmds ...handler.Command) Option {
	return func(h *Herald) error {
		h.commands = append(h.commands, cmds...)
		return nil
	}
}

// WithComponents appends component handlers.
func WithComponents(comps ...handler.Component) Option {
	return func(h *Herald) error {
		h.components = append(h.components, comps...)
		return nil
	}
}

// WithExecutor sets the executor deferred tasks run on. Without it Herald
// owns a GoExecutor and drains it on Shutdown.
func WithExecutor(e dispatch.Executor) Option {
	return func(h *Herald) error {
		h.executor = e
		return nil
	}
}

// WithErrorSink sets where handler failures are reported.
func WithErrorSink(s dispatch.ErrorSink) Option {
	return func(h *Herald) error {
		h.sink = s
		return nil
	}
}

// WithWebhookClient sets the client used to edit original responses and send
// follow-ups. *rest.Client satisfies it.
func WithWebhookClient(c dispatch.WebhookClient) Option {
	return func(h *Herald) error {
		h.webhooks = c
		return nil
	}
}

// WithMetrics sets the metrics collector.
func WithMetrics(m *observability.Metrics) Option {
	return func(h *Herald) error {
		h.metrics = m
		return nil
	}
}

// WithTracer sets the tracer.
func WithTracer(t *observability.Tracer) Option {
	return func(h *Herald) error {
		h.tracer = t
		return nil
	}
}

// WithLogger sets the structured logger for the Herald instance.
func WithLogger(logger *slog.Logger) Option {
	return func(h *Herald) error {
		h.logger = logger
		return nil
	}
}

// WithMaxBodyBytes caps the size of inbound interaction requests.
func WithMaxBodyBytes(n int64) Option {
	return func(h *Herald) error {
		h.config.MaxBodyBytes = n
		return nil
	}
}

// WithMaxSkew rejects requests whose signed timestamp is older or newer than d.
func WithMaxSkew(d time.Duration) Option {
	return func(h *Herald) error {
		h.config.MaxSkew = d
		return nil
	}
}

// WithConcurrency caps the number of deferred tasks running at once.
func WithConcurrency(n int) Option {
	return func(h *Herald) error {
		h.config.Concurrency = n
		return nil
	}
}

// WithShutdownTimeout sets the maximum time Shutdown waits for deferred tasks.
func WithShutdownTimeout(d time.Duration) Option {
	return func(h *Herald) error {
		h.config.ShutdownTimeout = d
		return nil
	}
}

// WithErrorMessage replaces the ephemeral reply shown when a command fails.
func WithErrorMessage(msg string) Option {
	return func(h *Herald) error {
		h.config.ErrorMessage = msg
		return nil
	}
}

// WithWarnOnReject toggles the warning logged for each rejected handler entry.
func WithWarnOnReject(warn bool) Option {
	return func(h *Herald) error {
		h.config.WarnOnReject = warn
		return nil
	}
}
