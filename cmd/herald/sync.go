package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	goredis "github.com/redis/go-redis/v9"
	"github.com/spf13/pflag"

	"github.com/xraph/herald/manifest"
	"github.com/xraph/herald/observability"
	"github.com/xraph/herald/registry"
	redisstore "github.com/xraph/herald/store/redis"
)

func runSync(ctx context.Context, cfg config, args []string) error {
	return withSyncer(ctx, cfg, "sync", args, func(cfg config, s *registry.Syncer, m *manifest.Manifest) error {
		result, err := s.Sync(ctx, cfg.credentials(), m.Commands, cfg.GuildID)
		if err != nil {
			return err
		}
		fmt.Printf("%d commands registered in %s\n", len(result), scopeName(cfg.GuildID))
		return nil
	})
}

func runPlan(ctx context.Context, cfg config, args []string) error {
	return withSyncer(ctx, cfg, "plan", args, func(cfg config, s *registry.Syncer, m *manifest.Manifest) error {
		plan, err := s.Plan(ctx, cfg.credentials(), m.Commands, cfg.GuildID)
		if err != nil {
			return err
		}
		printPlan(plan, cfg.GuildID)
		return nil
	})
}

func runExport(ctx context.Context, cfg config, args []string) error {
	fs := pflag.NewFlagSet("export", pflag.ContinueOnError)
	cfg.commonFlags(fs)
	cfg.credentialFlags(fs)
	if err := parseFlags(fs, args); err != nil {
		return err
	}
	if err := cfg.requireCredentials(); err != nil {
		return err
	}

	client := cfg.restClient()
	token, err := client.ExchangeCredentials(ctx, cfg.ClientID, cfg.ClientSecret)
	if err != nil {
		return err
	}
	remote, err := client.ListCommands(ctx, cfg.ClientID, token, cfg.GuildID)
	if err != nil {
		return err
	}

	out, err := manifest.Marshal(manifest.FromRemote(cfg.GuildID, remote))
	if err != nil {
		return err
	}
	_, err = os.Stdout.Write(out)
	return err
}

// withSyncer parses the shared sync/plan flags, loads the manifest and
// builds a Syncer, locking through Redis when HERALD_REDIS_URL is set.
func withSyncer(ctx context.Context, cfg config, name string, args []string, fn func(config, *registry.Syncer, *manifest.Manifest) error) error {
	fs := pflag.NewFlagSet(name, pflag.ContinueOnError)
	cfg.commonFlags(fs)
	cfg.credentialFlags(fs)
	fs.StringVarP(&cfg.Manifest, "manifest", "f", cfg.Manifest, "path to the YAML or JSON command manifest")
	fs.StringVar(&cfg.RedisURL, "redis-url", cfg.RedisURL, "Redis URL for the sync lock and snapshots")
	fs.DurationVar(&cfg.SyncWindow, "window", cfg.SyncWindow, "pause after every batch of mutating calls")
	if err := parseFlags(fs, args); err != nil {
		return err
	}
	if err := cfg.requireCredentials(); err != nil {
		return err
	}

	m, err := manifest.Load(cfg.Manifest)
	if err != nil {
		return err
	}
	if cfg.GuildID == "" {
		cfg.GuildID = m.GuildID
	}

	logger := cfg.logger(os.Stderr)
	rcfg := registry.DefaultConfig()
	rcfg.Window = cfg.SyncWindow

	opts := []registry.Option{
		registry.WithConfig(rcfg),
		registry.WithTracer(observability.NewTracer()),
		registry.WithLogger(logger),
	}

	if cfg.RedisURL != "" {
		ropts, err := goredis.ParseURL(cfg.RedisURL)
		if err != nil {
			return fmt.Errorf("parse redis url: %w", err)
		}
		st := redisstore.New(goredis.NewClient(ropts))
		defer st.Close()
		if err := st.Ping(ctx); err != nil {
			return fmt.Errorf("redis: %w", err)
		}
		opts = append(opts, registry.WithLocker(st), registry.WithRecorder(st))
	}

	return fn(cfg, registry.New(cfg.restClient(), opts...), m)
}

func (c config) credentials() registry.Credentials {
	return registry.Credentials{ClientID: c.ClientID, ClientSecret: c.ClientSecret}
}

func (c config) requireCredentials() error {
	if c.ClientID == "" || c.ClientSecret == "" {
		return errors.New("client id and secret are required (HERALD_CLIENT_ID, HERALD_CLIENT_SECRET)")
	}
	return nil
}

func scopeName(guildID string) string {
	if guildID == "" {
		return "global scope"
	}
	return "guild " + guildID
}

func printPlan(plan *registry.Plan, guildID string) {
	if plan.Empty() {
		fmt.Printf("%s is up to date (%d commands)\n", scopeName(guildID), len(plan.Changes))
		return
	}
	fmt.Printf("%s: %d calls\n", scopeName(guildID), plan.Calls())
	for _, r := range plan.Deletes {
		fmt.Printf("  - delete %s (%s)\n", r.Key(), r.ID)
	}
	for _, c := range plan.Patches() {
		fmt.Printf("  ~ patch  %s (%s): %s\n", c.Desired.Key(), c.Remote.ID, strings.Join(c.Diff.Fields(), ", "))
	}
	for _, s := range plan.Creates {
		fmt.Printf("  + create %s\n", s.Key())
	}
}
