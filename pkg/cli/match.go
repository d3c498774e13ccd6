/*
Copyright © 2025 NVIDIA Corporation
SPDX-License-Identifier: Apache-2.0
*/
package cli

import (
	"context"
	"errors"
	"fmt"

	"github.com/urfave/cli/v3"

	"github.com/BenjaminLowry/rattler-build/pkg/matchspec"
	"github.com/BenjaminLowry/rattler-build/pkg/version"
)

// errNoMatch is returned by match when the package does not satisfy the spec.
var errNoMatch = errors.New("package does not match")

// matchResult is the printed outcome of the match command.
type matchResult struct {
	Spec    string `json:"spec" yaml:"spec"`
	Package string `json:"package" yaml:"package"`
	Matches bool   `json:"matches" yaml:"matches"`
}

func matchCmd() *cli.Command {
	return &cli.Command{
		Name:                  "match",
		EnableShellCompletion: true,
		Usage:                 "Check whether a package satisfies a dependency spec",
		ArgsUsage:             "SPEC NAME VERSION [BUILD]",
		Description: `Match parses a dependency spec and tests a concrete package against it.
The command fails when the package does not match:

  rattler-render match "python >=3.10,<3.13 *_cpython" python 3.11.4 h955ad1f_0_cpython`,
		Flags: []cli.Flag{
			&cli.IntFlag{
				Name:  "build-number",
				Usage: "Build number of the package",
			},
			&cli.StringFlag{
				Name:  "channel",
				Usage: "Channel the package comes from",
			},
			&cli.StringFlag{
				Name:  "subdir",
				Usage: "Platform subdirectory of the package",
			},
			newOutputFlag(),
			newFormatFlag(),
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			args := cmd.Args().Slice()
			if len(args) < 3 || len(args) > 4 {
				return fmt.Errorf("expected SPEC NAME VERSION [BUILD], got %d arguments", len(args))
			}
			spec, err := matchspec.Parse(args[0])
			if err != nil {
				return err
			}
			ver, err := version.Parse(args[2])
			if err != nil {
				return err
			}
			candidate := matchspec.Candidate{
				Name:        args[1],
				Version:     ver,
				BuildNumber: cmd.Int("build-number"),
				Channel:     cmd.String("channel"),
				Subdir:      cmd.String("subdir"),
			}
			pkg := args[1] + " " + ver.String()
			if len(args) == 4 {
				candidate.Build = args[3]
				pkg += " " + args[3]
			}

			res := matchResult{
				Spec:    spec.String(),
				Package: pkg,
				Matches: matchspec.Satisfies(spec, candidate),
			}
			if err := writeOutput(ctx, cmd, res); err != nil {
				return err
			}
			if !res.Matches {
				return fmt.Errorf("%w: %s", errNoMatch, res.Spec)
			}
			return nil
		},
	}
}
