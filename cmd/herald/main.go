// herald runs a Discord interactions endpoint and keeps registered
// application commands in sync with a manifest.
//
// Usage:
//
//	herald serve   [flags]   serve POST /interactions and GET /health
//	herald sync    [flags]   reconcile registered commands with the manifest
//	herald plan    [flags]   show what sync would change
//	herald export  [flags]   print registered commands as a manifest
//	herald keygen            print a test Ed25519 key pair
//
// Every flag has a HERALD_* environment variable counterpart.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/pflag"
)

type subcommand struct {
	name    string
	summary string
	run     func(ctx context.Context, cfg config, args []string) error
}

var subcommands = []subcommand{
	{"serve", "serve the interactions endpoint", runServe},
	{"sync", "reconcile registered commands with the manifest", runSync},
	{"plan", "show what sync would change", runPlan},
	{"export", "print registered commands as a manifest", runExport},
	{"keygen", "print a test Ed25519 key pair", runKeygen},
}

func main() {
	if err := run(os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run(args []string) error {
	if len(args) == 0 || args[0] == "-h" || args[0] == "--help" || args[0] == "help" {
		printUsage()
		return nil
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	for _, sc := range subcommands {
		if sc.name == args[0] {
			err := sc.run(ctx, cfg, args[1:])
			if errors.Is(err, pflag.ErrHelp) {
				return nil
			}
			return err
		}
	}

	printUsage()
	return fmt.Errorf("unknown command %q", args[0])
}

// parseFlags parses args and reports pflag.ErrHelp when help was requested.
func parseFlags(fs *pflag.FlagSet, args []string) error {
	if err := fs.Parse(args); err != nil {
		return err
	}
	if help, _ := fs.GetBool("help"); help {
		fmt.Fprintf(os.Stderr, "Usage of herald %s:\n", fs.Name())
		fs.PrintDefaults()
		return pflag.ErrHelp
	}
	return nil
}

func printUsage() {
	fmt.Fprintln(os.Stderr, "Usage: herald <command> [flags]")
	fmt.Fprintln(os.Stderr)
	fmt.Fprintln(os.Stderr, "Commands:")
	for _, sc := range subcommands {
		fmt.Fprintf(os.Stderr, "  %-8s %s\n", sc.name, sc.summary)
	}
	fmt.Fprintln(os.Stderr)
	fmt.Fprintln(os.Stderr, "Run 'herald <command> --help' for flags.")
}
