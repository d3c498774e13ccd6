/*
Copyright © 2025 NVIDIA Corporation
SPDX-License-Identifier: Apache-2.0
*/
package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/urfave/cli/v3"

	"github.com/BenjaminLowry/rattler-build/pkg/defaults"
	"github.com/BenjaminLowry/rattler-build/pkg/platform"
	"github.com/BenjaminLowry/rattler-build/pkg/recipe"
	"github.com/BenjaminLowry/rattler-build/pkg/variant"
)

func renderCmd() *cli.Command {
	return &cli.Command{
		Name:                  "render",
		EnableShellCompletion: true,
		Usage:                 "Render recipe files into one recipe per variant",
		ArgsUsage:             "RECIPE [RECIPE...]",
		Description: `Render evaluates the templates and conditionals of each recipe file,
expands the variant matrix and prints the resulting recipes.

Variant configuration files are merged in order; later files win:

  rattler-render render -m conda_build_config.yaml -m local.yaml recipe.yaml

Several recipes are rendered concurrently. Every recipe is reported
unless --fail-fast is given. Use "-" to read a recipe from stdin.`,
		Flags: []cli.Flag{
			&cli.StringSliceFlag{
				Name:    "variant-config",
				Aliases: []string{"m"},
				Usage:   "Variant configuration file (repeatable)",
			},
			&cli.StringFlag{
				Name:  "target-platform",
				Usage: fmt.Sprintf("Platform the package is built for (supported values: %s)", strings.Join(platform.Supported(), ", ")),
			},
			&cli.StringFlag{
				Name:  "build-platform",
				Usage: "Platform the build runs on (default: current platform)",
			},
			&cli.StringFlag{
				Name:  "host-platform",
				Usage: "Platform of the host environment (default: target platform)",
			},
			&cli.StringMapFlag{
				Name:    "define",
				Aliases: []string{"D"},
				Usage:   "Override a context variable (key=value, repeatable)",
			},
			&cli.StringMapFlag{
				Name:  "subpackage",
				Usage: "Version for pin_subpackage (name=version, repeatable)",
			},
			&cli.StringMapFlag{
				Name:  "resolved",
				Usage: "Resolved version for pin_compatible (name=version, repeatable)",
			},
			&cli.IntFlag{
				Name:  "workers",
				Value: defaults.RenderWorkers,
				Usage: "Variant combinations rendered concurrently per recipe",
			},
			&cli.BoolFlag{
				Name:  "fail-fast",
				Usage: "Stop at the first recipe that fails to render",
			},
			&cli.DurationFlag{
				Name:  "timeout",
				Value: defaults.RenderTimeout,
				Usage: "Maximum time for the whole render",
			},
			newOutputFlag(),
			newFormatFlag(),
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			paths := cmd.Args().Slice()
			if len(paths) == 0 {
				return errors.New("at least one recipe file is required")
			}
			if _, err := outputFormat(cmd); err != nil {
				return err
			}
			opts, err := rendererOptions(cmd)
			if err != nil {
				return err
			}

			ctx, cancel := context.WithTimeout(ctx, cmd.Duration("timeout"))
			defer cancel()

			inputs, err := readInputs(paths)
			if err != nil {
				return err
			}
			r := recipe.NewRenderer(opts...)

			if len(inputs) == 1 {
				outputs, err := r.Render(ctx, inputs[0].Data)
				if err != nil {
					return fmt.Errorf("%s: %w", inputs[0].Name, err)
				}
				slog.Info("recipe rendered", "recipe", inputs[0].Name, "variants", len(outputs))
				return writeOutput(ctx, cmd, recipe.Outputs(outputs))
			}

			results, err := r.RenderBatch(ctx, inputs)
			if err != nil {
				return err
			}
			report := newBatchReport(results)
			if err := writeOutput(ctx, cmd, report); err != nil {
				return err
			}
			if failed := report.failed(); failed > 0 {
				return fmt.Errorf("%d of %d recipes failed to render", failed, len(report))
			}
			return nil
		},
	}
}

// rendererOptions turns the render flags into Renderer options.
func rendererOptions(cmd *cli.Command) ([]recipe.Option, error) {
	targets, err := targetsFromCmd(cmd)
	if err != nil {
		return nil, err
	}
	cfg, err := loadVariantConfigs(cmd.StringSlice("variant-config"))
	if err != nil {
		return nil, err
	}
	return []recipe.Option{
		recipe.WithTargets(targets),
		recipe.WithVariantConfig(cfg),
		recipe.WithOverrides(cmd.StringMap("define")),
		recipe.WithPins(cmd.StringMap("subpackage"), cmd.StringMap("resolved")),
		recipe.WithWorkers(cmd.Int("workers")),
		recipe.WithFailFast(cmd.Bool("fail-fast")),
	}, nil
}

// targetsFromCmd resolves the platform flags. The target defaults to the
// current platform and the host to the target.
func targetsFromCmd(cmd *cli.Command) (platform.Targets, error) {
	target := platform.Current()
	if s := cmd.String("target-platform"); s != "" {
		p, err := platform.Parse(s)
		if err != nil {
			return platform.Targets{}, fmt.Errorf("target-platform: %w", err)
		}
		target = p
	}
	t := platform.NewTargets(target)
	if s := cmd.String("build-platform"); s != "" {
		p, err := platform.Parse(s)
		if err != nil {
			return platform.Targets{}, fmt.Errorf("build-platform: %w", err)
		}
		t.Build = p
	}
	if s := cmd.String("host-platform"); s != "" {
		p, err := platform.Parse(s)
		if err != nil {
			return platform.Targets{}, fmt.Errorf("host-platform: %w", err)
		}
		t.Host = p
	}
	return t, nil
}

// loadVariantConfigs parses and merges variant configuration files in
// order. No files yields a nil config.
func loadVariantConfigs(paths []string) (*variant.Config, error) {
	var merged *variant.Config
	for _, path := range paths {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read variant config: %w", err)
		}
		cfg, err := variant.ParseConfig(data)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", path, err)
		}
		if merged == nil {
			merged = cfg
			continue
		}
		merged = merged.Merge(cfg)
	}
	return merged, nil
}

func readInputs(paths []string) ([]recipe.Input, error) {
	inputs := make([]recipe.Input, 0, len(paths))
	for _, path := range paths {
		var (
			data []byte
			err  error
		)
		if path == "-" {
			data, err = io.ReadAll(os.Stdin)
		} else {
			data, err = os.ReadFile(path)
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read recipe: %w", err)
		}
		inputs = append(inputs, recipe.Input{Name: path, Data: data})
	}
	return inputs, nil
}

// batchEntry is the printed outcome of one recipe of a batch render.
type batchEntry struct {
	Recipe  string         `json:"recipe" yaml:"recipe"`
	Outputs recipe.Outputs `json:"outputs,omitempty" yaml:"outputs,omitempty"`
	Error   string         `json:"error,omitempty" yaml:"error,omitempty"`
}

type batchReport []batchEntry

func newBatchReport(results []recipe.Result) batchReport {
	report := make(batchReport, 0, len(results))
	for _, res := range results {
		e := batchEntry{Recipe: res.Name, Outputs: res.Outputs}
		if res.Err != nil {
			e.Error = res.Err.Error()
		}
		report = append(report, e)
	}
	return report
}

func (b batchReport) failed() int {
	n := 0
	for _, e := range b {
		if e.Error != "" {
			n++
		}
	}
	return n
}

// TableHeader implements serializer.Tabular.
func (b batchReport) TableHeader() []string {
	return append([]string{"RECIPE"}, recipe.Outputs(nil).TableHeader()...)
}

// TableRows implements serializer.Tabular. A failed recipe prints its
// error in place of the outputs.
func (b batchReport) TableRows() [][]string {
	var rows [][]string
	for _, e := range b {
		if e.Error != "" {
			rows = append(rows, []string{e.Recipe, "ERROR: " + e.Error})
			continue
		}
		for _, row := range e.Outputs.TableRows() {
			rows = append(rows, append([]string{e.Recipe}, row...))
		}
	}
	return rows
}
