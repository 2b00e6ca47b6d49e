package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/spf13/pflag"

	"github.com/xraph/herald"
	"github.com/xraph/herald/api"
	"github.com/xraph/herald/command"
	"github.com/xraph/herald/handler"
	"github.com/xraph/herald/interaction"
	"github.com/xraph/herald/observability"
)

func runServe(ctx context.Context, cfg config, args []string) error {
	fs := pflag.NewFlagSet("serve", pflag.ContinueOnError)
	cfg.commonFlags(fs)
	fs.StringVar(&cfg.Addr, "addr", cfg.Addr, "listen address")
	fs.StringVar(&cfg.PublicKey, "public-key", cfg.PublicKey, "hex-encoded Ed25519 public key")
	fs.Int64Var(&cfg.MaxBodyBytes, "max-body-bytes", cfg.MaxBodyBytes, "maximum request body size")
	fs.DurationVar(&cfg.MaxSkew, "max-skew", cfg.MaxSkew, "reject signed timestamps older than this (0 disables)")
	fs.DurationVar(&cfg.ShutdownTimeout, "shutdown-timeout", cfg.ShutdownTimeout, "time allowed for deferred work on shutdown")
	if err := parseFlags(fs, args); err != nil {
		return err
	}

	logger := cfg.logger(os.Stderr)

	h, err := herald.New(
		herald.WithPublicKey(cfg.PublicKey),
		herald.WithMaxBodyBytes(cfg.MaxBodyBytes),
		herald.WithMaxSkew(cfg.MaxSkew),
		herald.WithShutdownTimeout(cfg.ShutdownTimeout),
		herald.WithWebhookClient(cfg.restClient()),
		herald.WithTracer(observability.NewTracer()),
		herald.WithLogger(logger),
		herald.WithCommands(builtinCommands(logger)...),
	)
	if err != nil {
		return err
	}

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           api.NewHandler(h, logger),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("listening", "addr", cfg.Addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("serve: %w", err)
		}
	case <-ctx.Done():
		logger.Info("shutting down")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Warn("http shutdown", "error", err)
	}
	return h.Shutdown(shutdownCtx)
}

// builtinCommands are served by "herald serve". Sync them with a manifest
// declaring the same definitions.
func builtinCommands(logger *slog.Logger) []handler.Command {
	return []handler.Command{
		{
			Spec: command.Spec{Name: "ping", Description: "Replies with pong"},
			Execute: func(_ context.Context, c *handler.CommandContext) (*interaction.Response, error) {
				return c.Respond(interaction.Reply("pong"))
			},
		},
		{
			Spec: command.Spec{Name: "commands", Description: "Lists the commands this app serves"},
			Execute: func(_ context.Context, c *handler.CommandContext) (*interaction.Response, error) {
				names := make([]string, 0, c.Commands.Len())
				for _, k := range c.Commands.Keys() {
					if k.Type == command.ChatInput {
						names = append(names, "/"+k.Name)
					} else {
						names = append(names, k.Name)
					}
				}
				return c.Respond(interaction.EphemeralReply(strings.Join(names, ", ")))
			},
		},
		{
			Spec: command.Spec{
				Name:        "echo",
				Description: "Repeats your text after a moment",
				Options: []command.Option{
					{Type: command.OptionString, Name: "text", Description: "What to repeat", Required: true},
				},
			},
			Execute: func(_ context.Context, c *handler.CommandContext) (*interaction.Response, error) {
				opt, ok := c.Data.Option("text")
				if !ok {
					return nil, errors.New("echo: missing text option")
				}
				text, err := opt.String()
				if err != nil {
					return nil, fmt.Errorf("echo: %w", err)
				}
				c.Defer(func(ctx context.Context) {
					if _, err := c.EditOriginal(ctx, &interaction.Message{Content: text}); err != nil {
						logger.ErrorContext(ctx, "echo edit failed",
							"interaction_id", c.Interaction.ID,
							"error", err,
						)
					}
				})
				return c.Respond(interaction.Deferred(false))
			},
		},
	}
}
