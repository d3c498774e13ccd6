/*
Copyright © 2025 NVIDIA Corporation
SPDX-License-Identifier: Apache-2.0
*/
package cli

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/urfave/cli/v3"

	"github.com/BenjaminLowry/rattler-build/pkg/serializer"
)

// newOutputFlag returns the --output flag. Flags hold their parsed state,
// so every command gets its own instance.
func newOutputFlag() *cli.StringFlag {
	return &cli.StringFlag{
		Name:    "output",
		Aliases: []string{"o"},
		Usage:   "Output file path (default: stdout)",
	}
}

// newFormatFlag returns the --format flag.
func newFormatFlag() *cli.StringFlag {
	return &cli.StringFlag{
		Name:    "format",
		Aliases: []string{"t"},
		Value:   string(serializer.FormatYAML),
		Usage:   fmt.Sprintf("Output format (supported values: %s)", strings.Join(serializer.SupportedFormats(), ", ")),
	}
}

// parseOutputFormat validates the --format flag.
func parseOutputFormat(cmd *cli.Command) (serializer.Format, error) {
	f := serializer.Format(strings.ToLower(strings.TrimSpace(cmd.String("format"))))
	if f.IsUnknown() {
		return "", fmt.Errorf("unknown output format: %q, supported values: %v", cmd.String("format"), serializer.SupportedFormats())
	}
	return f, nil
}

// outputFormat returns the --format flag, or the format implied by the
// --output file extension when --format is not given.
func outputFormat(cmd *cli.Command) (serializer.Format, error) {
	if out := cmd.String("output"); !cmd.IsSet("format") && out != "" && out != "-" {
		return serializer.FormatFromPath(out), nil
	}
	return parseOutputFormat(cmd)
}

// writeOutput serializes v to the --output destination.
func writeOutput(ctx context.Context, cmd *cli.Command, v any) error {
	format, err := outputFormat(cmd)
	if err != nil {
		return err
	}
	ser, err := serializer.NewFileWriterOrStdout(format, cmd.String("output"))
	if err != nil {
		return err
	}
	defer func() {
		if err := ser.Close(); err != nil {
			slog.Warn("failed to close serializer", "error", err)
		}
	}()
	return ser.Serialize(ctx, v)
}
