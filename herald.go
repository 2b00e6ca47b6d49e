package herald

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/xraph/herald/command"
	"github.com/xraph/herald/dispatch"
	"github.com/xraph/herald/handler"
	"github.com/xraph/herald/registry"
	"github.com/xraph/herald/signature"
)

// New creates a new Herald with the given options. Handler entries that fail
// validation are dropped and reported by Rejected; they never fail New.
func New(opts ...Option) (*Herald, error) {
	h := &Herald{
		config: DefaultConfig(),
		logger: slog.Default(),
	}
	for _, opt := range opts {
		if err := opt(h); err != nil {
			return nil, err
		}
	}
	if h.logger == nil {
		h.logger = slog.Default()
	}
	if h.config.PublicKey == "" {
		return nil, ErrNoPublicKey
	}

	var vopts []signature.VerifierOption
	if h.config.MaxSkew > 0 {
		vopts = append(vopts, signature.WithMaxSkew(h.config.MaxSkew))
	}
	verifier, err := signature.NewVerifier(h.config.PublicKey, vopts...)
	if err != nil {
		return nil, fmt.Errorf("herald: %w", err)
	}

	h.wire(verifier)
	return h, nil
}

// wire builds the indexes and dispatcher after options have been applied.
func (h *Herald) wire(verifier *signature.Verifier) {
	var iopts []handler.IndexOption
	if h.config.WarnOnReject {
		iopts = append(iopts, handler.WithWarnings(h.logger))
	}
	commands, rejectedCommands := handler.BuildCommandIndex(h.commands, iopts...)
	components, rejectedComponents := handler.BuildComponentIndex(h.components, iopts...)
	h.rejected = append(rejectedCommands, rejectedComponents...)

	if h.executor == nil {
		h.owned = dispatch.NewGoExecutor(dispatch.ExecutorConfig{
			Concurrency: h.config.Concurrency,
			Metrics:     h.metrics,
		}, h.logger)
		h.executor = h.owned
	}

	h.dispatcher = dispatch.New(dispatch.Config{
		Verifier:     verifier,
		Commands:     commands,
		Components:   components,
		Executor:     h.executor,
		Webhooks:     h.webhooks,
		ErrorSink:    h.sink,
		ErrorMessage: h.config.ErrorMessage,
		Metrics:      h.metrics,
		Tracer:       h.tracer,
		Logger:       h.logger,
	})

	h.logger.Info("herald ready",
		"commands", commands.Len(),
		"components", components.Len(),
		"rejected", len(h.rejected),
	)
}

// Dispatch verifies, parses and routes one interaction request. body must
// be the exact bytes received. The caller writes Outcome.Status and
// Outcome.Body, then calls Outcome.Release to start deferred work.
func (h *Herald) Dispatch(ctx context.Context, header http.Header, body []byte) *dispatch.Outcome {
	return h.dispatcher.Dispatch(ctx, header, body)
}

// Commands returns the command index.
func (h *Herald) Commands() *handler.CommandIndex {
	return h.dispatcher.Commands()
}

// Components returns the component index.
func (h *Herald) Components() *handler.ComponentIndex {
	return h.dispatcher.Components()
}

// CommandSpecs returns the definitions of every accepted command, in
// registration order.
func (h *Herald) CommandSpecs() []command.Spec {
	return h.Commands().Specs()
}

// Rejected returns the handler entries dropped by validation. Command
// rejections come first.
func (h *Herald) Rejected() []*handler.RejectionError {
	return append([]*handler.RejectionError(nil), h.rejected...)
}

// Config returns the configuration the Herald was built with.
func (h *Herald) Config() Config {
	return h.config
}

// MaxBodyBytes returns the inbound request size cap. Zero means no cap.
func (h *Herald) MaxBodyBytes() int64 {
	return h.config.MaxBodyBytes
}

// Logger returns the Herald's logger.
func (h *Herald) Logger() *slog.Logger {
	return h.logger
}

// SyncCommands reconciles the platform's registered commands in guildID
// (empty for global) with the accepted command handlers.
func (h *Herald) SyncCommands(ctx context.Context, s *registry.Syncer, creds registry.Credentials, guildID string) ([]command.Remote, error) {
	return s.Sync(ctx, creds, h.CommandSpecs(), guildID)
}

// PlanCommands computes what SyncCommands would do without changing anything.
func (h *Herald) PlanCommands(ctx context.Context, s *registry.Syncer, creds registry.Credentials, guildID string) (*registry.Plan, error) {
	return s.Plan(ctx, creds, h.CommandSpecs(), guildID)
}

// Shutdown waits for deferred tasks on the executor Herald owns, bounded by
// Config.ShutdownTimeout. A caller-supplied executor is left alone.
func (h *Herald) Shutdown(ctx context.Context) error {
	if h.owned == nil {
		return nil
	}
	if h.config.ShutdownTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, h.config.ShutdownTimeout)
		defer cancel()
	}
	if err := h.owned.Shutdown(ctx); err != nil {
		return fmt.Errorf("herald: shutdown: %w", err)
	}
	return nil
}
