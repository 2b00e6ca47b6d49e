package main

import (
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/spf13/pflag"

	"github.com/xraph/herald/rest"
)

// config is read from HERALD_* variables; flags override it.
type config struct {
	Addr            string        `env:"HERALD_ADDR"             envDefault:":8080"`
	PublicKey       string        `env:"HERALD_PUBLIC_KEY"`
	ClientID        string        `env:"HERALD_CLIENT_ID"`
	ClientSecret    string        `env:"HERALD_CLIENT_SECRET"`
	APIBaseURL      string        `env:"HERALD_API_BASE_URL"`
	RedisURL        string        `env:"HERALD_REDIS_URL"`
	Manifest        string        `env:"HERALD_MANIFEST"         envDefault:"commands.yaml"`
	GuildID         string        `env:"HERALD_GUILD_ID"`
	MaxBodyBytes    int64         `env:"HERALD_MAX_BODY_BYTES"   envDefault:"1048576"`
	MaxSkew         time.Duration `env:"HERALD_MAX_SKEW"`
	ShutdownTimeout time.Duration `env:"HERALD_SHUTDOWN_TIMEOUT" envDefault:"30s"`
	SyncWindow      time.Duration `env:"HERALD_SYNC_WINDOW"      envDefault:"20s"`
	LogLevel        string        `env:"HERALD_LOG_LEVEL"        envDefault:"info"`
	LogFormat       string        `env:"HERALD_LOG_FORMAT"       envDefault:"text"`
}

func loadConfig() (config, error) {
	var cfg config
	if err := env.Parse(&cfg); err != nil {
		return cfg, fmt.Errorf("parse env: %w", err)
	}
	return cfg, nil
}

// commonFlags binds the flags every subcommand shares.
func (c *config) commonFlags(fs *pflag.FlagSet) {
	fs.StringVar(&c.LogLevel, "log-level", c.LogLevel, "log level (debug, info, warn, error)")
	fs.StringVar(&c.LogFormat, "log-format", c.LogFormat, "log format (text, json)")
	fs.BoolP("help", "h", false, "show help")
}

// credentialFlags binds the flags of subcommands that talk to the REST API.
func (c *config) credentialFlags(fs *pflag.FlagSet) {
	fs.StringVar(&c.ClientID, "client-id", c.ClientID, "application client id")
	fs.StringVar(&c.ClientSecret, "client-secret", c.ClientSecret, "application client secret")
	fs.StringVar(&c.APIBaseURL, "api-base-url", c.APIBaseURL, "REST API base URL (default "+rest.DefaultBaseURL+")")
	fs.StringVarP(&c.GuildID, "guild", "g", c.GuildID, "guild id; empty targets global commands")
}

func (c config) restClient() *rest.Client {
	var opts []rest.Option
	if c.APIBaseURL != "" {
		opts = append(opts, rest.WithBaseURL(c.APIBaseURL))
	}
	return rest.NewClient(opts...)
}

func (c config) logger(w io.Writer) *slog.Logger {
	var level slog.Level
	if err := level.UnmarshalText([]byte(c.LogLevel)); err != nil {
		level = slog.LevelInfo
	}
	opts := &slog.HandlerOptions{Level: level}
	if strings.EqualFold(c.LogFormat, "json") {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}
