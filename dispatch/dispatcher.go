// Package dispatch turns a signed interaction request into a handler
// invocation and a synchronous response.
//
// Each call walks Received → Verified → Parsed → Routed and ends Completed or
// Rejected. Nothing is parsed before the signature checks out. Work a handler
// defers is held on the Outcome and only handed to the Executor by
// Outcome.Release, which the transport calls once the response is written.
package dispatch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"runtime/debug"
	"time"

	"github.com/xraph/herald/handler"
	"github.com/xraph/herald/id"
	"github.com/xraph/herald/interaction"
	"github.com/xraph/herald/observability"
	"github.com/xraph/herald/signature"
)

// Sentinel errors recorded on Outcome.Err.
var (
	// ErrSignatureInvalid is recorded when verification fails or headers are missing.
	ErrSignatureInvalid = errors.New("dispatch: invalid request signature")

	// ErrMalformedInteraction is recorded when the payload cannot be decoded.
	ErrMalformedInteraction = errors.New("dispatch: malformed interaction")

	// ErrUnknownInteraction is recorded for interaction types with no route.
	ErrUnknownInteraction = errors.New("dispatch: unsupported interaction type")

	// ErrHandlerNotFound is recorded when no command or component matches.
	ErrHandlerNotFound = errors.New("dispatch: handler not found")

	// ErrHandlerFailed wraps a handler error or panic.
	ErrHandlerFailed = errors.New("dispatch: handler failed")

	// ErrNoResponse is wrapped into ErrHandlerFailed when a handler returns
	// without producing a response.
	ErrNoResponse = errors.New("dispatch: handler produced no response")

	// ErrNoWebhookClient is returned by EditOriginal and Followup when the
	// dispatcher has no webhook client.
	ErrNoWebhookClient = errors.New("dispatch: no webhook client configured")
)

// DefaultErrorMessage is the ephemeral reply sent when a command handler fails.
const DefaultErrorMessage = "Something went wrong while running this command."

// ErrorSink receives handler failures for external error tracking.
type ErrorSink interface {
	Report(ctx context.Context, err error, in *interaction.Interaction)
}

// ErrorSinkFunc adapts a function to ErrorSink.
type ErrorSinkFunc func(ctx context.Context, err error, in *interaction.Interaction)

// Report calls f.
func (f ErrorSinkFunc) Report(ctx context.Context, err error, in *interaction.Interaction) {
	f(ctx, err, in)
}

// WebhookClient edits and follows up interaction responses. *rest.Client implements it.
type WebhookClient interface {
	EditOriginalResponse(ctx context.Context, appID, token string, msg *interaction.Message) (*interaction.Message, error)
	SendFollowupMessage(ctx context.Context, appID, token string, msg *interaction.Message) (*interaction.Message, error)
}

// Config wires a Dispatcher. Verifier is required; everything else is optional.
type Config struct {
	Verifier   *signature.Verifier
	Commands   *handler.CommandIndex
	Components *handler.ComponentIndex
	Executor   Executor
	Webhooks   WebhookClient
	ErrorSink  ErrorSink

	// ErrorMessage replaces DefaultErrorMessage.
	ErrorMessage string

	Metrics *observability.Metrics
	Tracer  *observability.Tracer
	Logger  *slog.Logger
}

// Dispatcher routes verified interactions. It is immutable and safe for
// concurrent use.
type Dispatcher struct {
	cfg    Config
	logger *slog.Logger
}

// New creates a Dispatcher. A nil Executor defaults to a GoExecutor.
func New(cfg Config) *Dispatcher {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.Executor == nil {
		cfg.Executor = NewGoExecutor(ExecutorConfig{Metrics: cfg.Metrics}, cfg.Logger)
	}
	if cfg.ErrorMessage == "" {
		cfg.ErrorMessage = DefaultErrorMessage
	}
	return &Dispatcher{cfg: cfg, logger: cfg.Logger}
}

// Commands returns the command index.
func (d *Dispatcher) Commands() *handler.CommandIndex { return d.cfg.Commands }

// Components returns the component index.
func (d *Dispatcher) Components() *handler.ComponentIndex { return d.cfg.Components }

// Dispatch processes one inbound request. body must be the exact bytes
// received. The returned Outcome is never nil.
func (d *Dispatcher) Dispatch(ctx context.Context, header http.Header, body []byte) *Outcome {
	start := time.Now()
	out := &Outcome{DispatchID: id.NewDispatchID(), State: StateReceived, exec: d.cfg.Executor}

	ctx, span := d.cfg.Tracer.StartDispatchSpan(ctx, out.DispatchID.String(), "")
	defer func() {
		d.cfg.Tracer.EndDispatchSpan(span, out.State.String(), out.Status, out.Err)
		d.cfg.Metrics.RecordInteraction(out.kind.String(), out.Status, time.Since(start).Seconds())
		d.logger.DebugContext(ctx, "interaction dispatched",
			"dispatch_id", out.DispatchID.String(),
			"interaction_id", out.interactionID(),
			"kind", out.kind.String(),
			"state", out.State.String(),
			"status", out.Status,
		)
	}()

	if !d.cfg.Verifier.Verify(header, body) {
		return out.reject(http.StatusUnauthorized, ErrSignatureInvalid)
	}
	out.State = StateVerified

	in, err := interaction.Parse(body)
	if err != nil {
		return out.reject(http.StatusBadRequest, fmt.Errorf("%w: %w", ErrMalformedInteraction, err))
	}
	out.State = StateParsed
	out.Interaction = in
	out.kind = in.Kind()

	switch out.kind {
	case interaction.KindPing:
		return out.complete(http.StatusOK, interaction.Pong())
	case interaction.KindApplicationCommand:
		return d.dispatchCommand(ctx, out, in)
	case interaction.KindMessageComponent:
		return d.dispatchComponent(ctx, out, in)
	default:
		return out.reject(http.StatusNotImplemented, fmt.Errorf("%w: %d", ErrUnknownInteraction, in.Type))
	}
}

func (d *Dispatcher) dispatchCommand(ctx context.Context, out *Outcome, in *interaction.Interaction) *Outcome {
	data, err := in.CommandData()
	if err != nil {
		return out.reject(http.StatusBadRequest, fmt.Errorf("%w: %w", ErrMalformedInteraction, err))
	}
	cmd, ok := d.cfg.Commands.Lookup(data.Key())
	if !ok {
		return out.reject(http.StatusNotFound, fmt.Errorf("%w: command %s", ErrHandlerNotFound, data.Key()))
	}
	out.State = StateRouted

	out.rt = &callRuntime{d: d}
	c := handler.NewCommandContext(in, data, d.cfg.Commands, out.rt)
	resp, err := d.invoke(func() (*interaction.Response, error) { return cmd.Execute(ctx, c) }, c.Context)
	if err != nil {
		d.handlerFailed(ctx, out, err)
		return out.complete(http.StatusOK, interaction.EphemeralReply(d.cfg.ErrorMessage))
	}
	return out.complete(http.StatusOK, resp)
}

func (d *Dispatcher) dispatchComponent(ctx context.Context, out *Outcome, in *interaction.Interaction) *Outcome {
	data, err := in.ComponentData()
	if err != nil {
		return out.reject(http.StatusBadRequest, fmt.Errorf("%w: %w", ErrMalformedInteraction, err))
	}
	comp, ok := d.cfg.Components.Lookup(data.CustomID)
	if !ok {
		return out.reject(http.StatusNotFound, fmt.Errorf("%w: component %q", ErrHandlerNotFound, data.CustomID))
	}
	out.State = StateRouted

	out.rt = &callRuntime{d: d}
	c := handler.NewComponentContext(in, data, out.rt)
	resp, err := d.invoke(func() (*interaction.Response, error) { return comp.Execute(ctx, c) }, c.Context)
	if err != nil {
		d.handlerFailed(ctx, out, err)
		return out.complete(http.StatusInternalServerError, nil)
	}
	return out.complete(http.StatusOK, resp)
}

// invoke runs a handler, recovering panics. The returned response is the
// handler's return value, falling back to what it passed to Respond.
func (d *Dispatcher) invoke(fn func() (*interaction.Response, error), hc *handler.Context) (resp *interaction.Response, err error) {
	defer func() {
		if r := recover(); r != nil {
			resp = nil
			err = &panicError{value: r, stack: debug.Stack()}
		}
	}()

	resp, err = fn()
	if err != nil {
		return nil, err
	}
	if resp == nil {
		if recorded, ok := hc.Response(); ok && recorded != nil {
			return recorded, nil
		}
		return nil, ErrNoResponse
	}
	return resp, nil
}

func (d *Dispatcher) handlerFailed(ctx context.Context, out *Outcome, err error) {
	out.Err = fmt.Errorf("%w: %w", ErrHandlerFailed, err)
	out.rt.discard()

	attrs := []any{
		"dispatch_id", out.DispatchID.String(),
		"interaction_id", out.interactionID(),
		"kind", out.kind.String(),
		"error", err,
		"interaction", string(out.Interaction.Raw),
	}
	var pe *panicError
	if errors.As(err, &pe) {
		attrs = append(attrs, "stack", string(pe.stack))
	}
	d.logger.ErrorContext(ctx, "handler failed", attrs...)
	d.cfg.Metrics.RecordHandlerError(out.kind.String())

	if d.cfg.ErrorSink != nil {
		d.reportSafely(ctx, out.Err, out.Interaction)
	}
}

// reportSafely keeps a misbehaving sink from escaping the dispatch boundary.
func (d *Dispatcher) reportSafely(ctx context.Context, err error, in *interaction.Interaction) {
	defer func() {
		if r := recover(); r != nil {
			d.logger.ErrorContext(ctx, "error sink panicked", "panic", r)
		}
	}()
	d.cfg.ErrorSink.Report(ctx, err, in)
}

type panicError struct {
	value any
	stack []byte
}

func (e *panicError) Error() string {
	return fmt.Sprintf("panic: %v", e.value)
}
