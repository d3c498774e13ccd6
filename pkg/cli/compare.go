/*
Copyright © 2025 NVIDIA Corporation
SPDX-License-Identifier: Apache-2.0
*/
package cli

import (
	"context"
	"fmt"

	"github.com/urfave/cli/v3"

	"github.com/BenjaminLowry/rattler-build/pkg/version"
)

// compareResult is the printed outcome of the compare command.
type compareResult struct {
	Left     string `json:"left" yaml:"left"`
	Right    string `json:"right" yaml:"right"`
	Order    int    `json:"order" yaml:"order"`
	Relation string `json:"relation" yaml:"relation"`
}

func compareCmd() *cli.Command {
	return &cli.Command{
		Name:                  "compare",
		EnableShellCompletion: true,
		Usage:                 "Compare two package versions",
		ArgsUsage:             "VERSION VERSION",
		Description: `Compare orders two versions the way the package index does:

  rattler-render compare 1.0.0rc1 1.0.0
  rattler-render compare 1.1.0.post1 1.1.0`,
		Flags: []cli.Flag{
			newOutputFlag(),
			newFormatFlag(),
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			args := cmd.Args().Slice()
			if len(args) != 2 {
				return fmt.Errorf("expected two versions, got %d arguments", len(args))
			}
			left, err := version.Parse(args[0])
			if err != nil {
				return err
			}
			right, err := version.Parse(args[1])
			if err != nil {
				return err
			}
			return writeOutput(ctx, cmd, compareVersions(left, right))
		},
	}
}

func compareVersions(left, right version.Version) compareResult {
	order := left.Compare(right)
	relation := "=="
	switch {
	case order < 0:
		relation = "<"
	case order > 0:
		relation = ">"
	}
	return compareResult{
		Left:     left.String(),
		Right:    right.String(),
		Order:    order,
		Relation: relation,
	}
}
