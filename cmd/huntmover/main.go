// Command huntmover drives one or more synthetic-tracking sweep runs:
// load configuration, wire up logging/storage/the run pipeline, and
// dispatch to the run/simulate/config/version subcommands.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"huntmover/internal/cli"
	"huntmover/internal/geom"
	"huntmover/internal/huntconfig"
	"huntmover/internal/logging"
	"huntmover/internal/runpipeline"
	"huntmover/internal/storage"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, "huntmover:", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := huntconfig.Load()
	if err != nil {
		return fmt.Errorf("loading configuration: %w", err)
	}

	log, err := logging.Setup(cfg)
	if err != nil {
		return fmt.Errorf("setting up logging: %w", err)
	}

	store, err := storage.New(cfg.Storage.DatabasePath)
	if err != nil {
		return fmt.Errorf("opening storage at %s: %w", cfg.Storage.DatabasePath, err)
	}
	defer store.Close()

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	pipe := runpipeline.New(ctx, 1, log, store, geom.NewCache())
	defer pipe.Stop()

	root := cli.NewRoot(cfg, log, store, pipe)
	rootCmd := cli.NewRootCmd(root)
	return rootCmd.ExecuteContext(ctx)
}
