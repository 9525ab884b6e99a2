/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

// Command reviewer reviews code changes with a tool-using model. It runs
// either as an HTTP server streaming reviews to clients or as a one-shot
// terminal command.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/chainguard-dev/clog"
	"github.com/sethvargo/go-envconfig"
	"github.com/spf13/cobra"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		clog.FatalContextf(ctx, "reviewer: %v", err)
	}
}

type rootOptions struct {
	configPath string
	logLevel   string
	cfg        *config
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}
	cmd := &cobra.Command{
		Use:           "reviewer",
		Short:         "Review code changes with a tool-using model",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			ctx, err := withLogger(cmd.Context(), opts.logLevel)
			if err != nil {
				return err
			}
			cfg, err := loadConfig(ctx, opts.configPath, envconfig.OsLookuper())
			if err != nil {
				return err
			}
			opts.cfg = cfg
			cmd.SetContext(ctx)
			return nil
		},
	}
	cmd.PersistentFlags().StringVar(&opts.configPath, "config", "", "YAML config file; environment variables override it")
	cmd.PersistentFlags().StringVar(&opts.logLevel, "log-level", envOr("LOG_LEVEL", "info"), "log level (debug, info, warn, error)")

	cmd.AddCommand(newServeCmd(opts), newReviewCmd(opts))
	return cmd
}

// withLogger installs a text logger on stderr at level.
func withLogger(ctx context.Context, level string) (context.Context, error) {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(level)); err != nil {
		return nil, fmt.Errorf("invalid log level %q: %w", level, err)
	}
	log := clog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: lvl}))
	return clog.WithLogger(ctx, log), nil
}

func envOr(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return fallback
}
