/*
Copyright © 2025 NVIDIA Corporation
SPDX-License-Identifier: Apache-2.0
*/
package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/urfave/cli/v3"

	"github.com/BenjaminLowry/rattler-build/pkg/logging"
)

const (
	name           = "rattler-render"
	versionDefault = "dev"
)

var (
	// overridden during build with ldflags
	buildVersion = versionDefault
	commit       = "unknown"
	date         = "unknown"
)

// Execute runs the CLI with the process arguments and exits on failure.
// This is called by main.main().
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().Run(ctx, os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(exitCode(err))
	}
}

func newRootCmd() *cli.Command {
	return &cli.Command{
		Name:                  name,
		Usage:                 "Render conda recipe templates into concrete package recipes",
		Version:               fmt.Sprintf("%s (commit %s, built %s)", buildVersion, commit, date),
		EnableShellCompletion: true,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "log-level",
				Usage:   "Log level (debug, info, warn, error)",
				Sources: cli.EnvVars(logging.EnvLogLevel),
			},
		},
		Before: func(ctx context.Context, cmd *cli.Command) (context.Context, error) {
			logging.SetDefaultStructuredLoggerWithLevel(name, buildVersion, cmd.String("log-level"))
			slog.Debug("starting",
				"name", name,
				"version", buildVersion,
				"commit", commit,
				"date", date)
			return ctx, nil
		},
		Commands: []*cli.Command{
			renderCmd(),
			matchCmd(),
			compareCmd(),
			serveCmd(),
		},
	}
}

// exitCode maps an error to the process exit status: 2 for cancellation
// and timeouts, 1 otherwise.
func exitCode(err error) int {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return 2
	}
	return 1
}
