// Package api serves the interactions endpoint over HTTP.
//
// Routes:
//
//	POST /interactions  signed interaction callbacks
//	GET  /health        liveness probe
//	GET  /commands      definitions of the served commands
package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"runtime/debug"
	"time"

	"github.com/xraph/herald/command"
	"github.com/xraph/herald/dispatch"
)

// Endpoint is what the handler serves. *herald.Herald implements it.
type Endpoint interface {
	Dispatch(ctx context.Context, header http.Header, body []byte) *dispatch.Outcome
	CommandSpecs() []command.Spec
	MaxBodyBytes() int64
}

// Handler is the root HTTP handler for the interactions endpoint.
type Handler struct {
	endpoint Endpoint
	logger   *slog.Logger
	mux      *http.ServeMux
}

// NewHandler creates a new interactions handler.
func NewHandler(e Endpoint, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}

	h := &Handler{
		endpoint: e,
		logger:   logger,
		mux:      http.NewServeMux(),
	}

	h.registerRoutes()
	return h
}

func (h *Handler) registerRoutes() {
	h.mux.HandleFunc("POST /interactions", h.interactions)
	h.mux.HandleFunc("GET /health", h.health)
	h.mux.HandleFunc("GET /commands", h.commands)
}

// ServeHTTP implements http.Handler.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.withMiddleware(h.mux).ServeHTTP(w, r)
}

func (h *Handler) interactions(w http.ResponseWriter, r *http.Request) {
	var reader io.Reader = r.Body
	if limit := h.endpoint.MaxBodyBytes(); limit > 0 {
		reader = http.MaxBytesReader(w, r.Body, limit)
	}
	body, err := io.ReadAll(reader)
	r.Body.Close() //nolint:errcheck // request body
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			w.WriteHeader(http.StatusRequestEntityTooLarge)
			return
		}
		w.WriteHeader(http.StatusBadRequest)
		return
	}

	out := h.endpoint.Dispatch(r.Context(), r.Header, body)

	payload, err := out.Body()
	if err != nil {
		h.logger.ErrorContext(r.Context(), "encode interaction response",
			"dispatch_id", out.DispatchID.String(),
			"error", err,
		)
		w.WriteHeader(http.StatusInternalServerError)
		return
	}

	if payload != nil {
		w.Header().Set("Content-Type", "application/json")
	}
	w.WriteHeader(out.Status)
	if payload != nil {
		if _, err := w.Write(payload); err != nil {
			h.logger.WarnContext(r.Context(), "write interaction response",
				"dispatch_id", out.DispatchID.String(),
				"error", err,
			)
		}
	}

	// Deferred work starts only once the response is on the wire.
	if err := http.NewResponseController(w).Flush(); err != nil && !errors.Is(err, http.ErrNotSupported) {
		h.logger.DebugContext(r.Context(), "flush interaction response", "error", err)
	}
	out.Release()
}

func (h *Handler) health(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(http.StatusOK)
	io.WriteString(w, "OK") //nolint:errcheck // best effort
}

func (h *Handler) commands(w http.ResponseWriter, _ *http.Request) {
	specs := h.endpoint.CommandSpecs()
	if specs == nil {
		specs = []command.Spec{}
	}
	writeJSON(w, http.StatusOK, specs)
}

func (h *Handler) withMiddleware(next http.Handler) http.Handler {
	return h.panicRecovery(h.logging(next))
}

func (h *Handler) logging(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rw := &responseWriter{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rw, r)
		h.logger.Info("api request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", rw.status,
			"duration_ms", time.Since(start).Milliseconds(),
		)
	})
}

func (h *Handler) panicRecovery(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rec := recover(); rec != nil {
				h.logger.Error("panic recovered",
					"error", rec,
					"stack", string(debug.Stack()),
				)
				w.WriteHeader(http.StatusInternalServerError)
			}
		}()
		next.ServeHTTP(w, r)
	})
}

// responseWriter wraps http.ResponseWriter to capture the status code.
type responseWriter struct {
	http.ResponseWriter
	status int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.status = code
	rw.ResponseWriter.WriteHeader(code)
}

// Unwrap lets http.ResponseController reach the underlying writer.
func (rw *responseWriter) Unwrap() http.ResponseWriter {
	return rw.ResponseWriter
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v) //nolint:errcheck // best effort
}
