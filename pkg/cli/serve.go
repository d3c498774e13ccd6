/*
Copyright © 2025 NVIDIA Corporation
SPDX-License-Identifier: Apache-2.0
*/
package cli

import (
	"context"

	"github.com/urfave/cli/v3"
	"golang.org/x/time/rate"

	"github.com/BenjaminLowry/rattler-build/pkg/server"
)

func serveCmd() *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "Serve the render and match operations over HTTP",
		Description: `Starts an HTTP server exposing POST /v1/render and POST /v1/match
together with /health, /ready and /metrics. The server stops gracefully on
SIGINT or SIGTERM.`,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "address",
				Usage: "Address to listen on (default: all interfaces)",
			},
			&cli.IntFlag{
				Name:    "port",
				Value:   8080,
				Usage:   "Port to listen on",
				Sources: cli.EnvVars("PORT"),
			},
			&cli.FloatFlag{
				Name:  "rate-limit",
				Value: 20,
				Usage: "Render and match requests allowed per second",
			},
			&cli.IntFlag{
				Name:  "rate-limit-burst",
				Value: 40,
				Usage: "Maximum burst of requests above the rate limit",
			},
			&cli.DurationFlag{
				Name:  "timeout",
				Usage: "Maximum time to render a single request (default: 1m)",
			},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			cfg := server.NewConfig()
			cfg.Address = cmd.String("address")
			cfg.Port = cmd.Int("port")
			cfg.RateLimit = rate.Limit(cmd.Float("rate-limit"))
			cfg.RateLimitBurst = cmd.Int("rate-limit-burst")
			if cmd.IsSet("timeout") {
				cfg.RenderTimeout = cmd.Duration("timeout")
			}

			s := server.New(
				server.WithConfig(cfg),
				server.WithName(name),
				server.WithVersion(buildVersion),
			)
			return s.Start(ctx)
		},
	}
}
