// Copyright (c) 2025, NVIDIA CORPORATION.  All rights reserved.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package recipe

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"maps"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/BenjaminLowry/rattler-build/pkg/defaults"
	rerrors "github.com/BenjaminLowry/rattler-build/pkg/errors"
	"github.com/BenjaminLowry/rattler-build/pkg/expr"
	"github.com/BenjaminLowry/rattler-build/pkg/platform"
	"github.com/BenjaminLowry/rattler-build/pkg/selector"
	"github.com/BenjaminLowry/rattler-build/pkg/tree"
	"github.com/BenjaminLowry/rattler-build/pkg/variant"
)

// Output is one rendered variant of a recipe.
type Output struct {
	Combination variant.Combination `json:"variant" yaml:"variant"`
	Recipe      *Recipe             `json:"recipe" yaml:"recipe"`
}

// Outputs lists rendered variants. It prints as one table row per variant.
type Outputs []Output

// TableHeader implements serializer.Tabular.
func (o Outputs) TableHeader() []string {
	return []string{"PACKAGE", "VERSION", "BUILD", "SUBDIR", "VARIANT"}
}

// TableRows implements serializer.Tabular.
func (o Outputs) TableRows() [][]string {
	rows := make([][]string, 0, len(o))
	for _, out := range o {
		r := out.Recipe
		rows = append(rows, []string{r.Package.Name, r.Package.Version.String(), r.Build.String, r.Subdir, out.Combination.String()})
	}
	return rows
}

// Renderer turns recipe documents into typed recipes, one per variant
// combination. A Renderer is safe for concurrent use.
type Renderer struct {
	// Targets are the build, host and target platforms.
	Targets platform.Targets

	// Overrides replace context section entries by name.
	Overrides map[string]string

	// VariantConfig holds the candidate values of variant keys.
	// Nil renders every recipe exactly once.
	VariantConfig *variant.Config

	// Workers bounds the combinations rendered concurrently.
	Workers int

	// Subpackages maps names to versions for pin_subpackage, and
	// Resolved does the same for pin_compatible. Pins of unknown
	// packages are kept unresolved in the output.
	Subpackages map[string]string
	Resolved    map[string]string

	// FailFast stops a batch render at the first failing recipe.
	FailFast bool
}

// Option configures a Renderer.
type Option func(*Renderer)

// WithTargets sets the platforms.
func WithTargets(t platform.Targets) Option {
	return func(r *Renderer) {
		r.Targets = t
	}
}

// WithOverrides sets context overrides.
func WithOverrides(overrides map[string]string) Option {
	return func(r *Renderer) {
		r.Overrides = maps.Clone(overrides)
	}
}

// WithVariantConfig sets the variant configuration.
func WithVariantConfig(cfg *variant.Config) Option {
	return func(r *Renderer) {
		r.VariantConfig = cfg
	}
}

// WithWorkers sets the per-recipe concurrency.
func WithWorkers(n int) Option {
	return func(r *Renderer) {
		r.Workers = n
	}
}

// WithPins sets the known versions for pin_subpackage and pin_compatible.
func WithPins(subpackages, resolved map[string]string) Option {
	return func(r *Renderer) {
		r.Subpackages = maps.Clone(subpackages)
		r.Resolved = maps.Clone(resolved)
	}
}

// WithFailFast stops batch renders at the first error.
func WithFailFast(failFast bool) Option {
	return func(r *Renderer) {
		r.FailFast = failFast
	}
}

// NewRenderer returns a Renderer for the current platform unless
// configured otherwise.
func NewRenderer(opts ...Option) *Renderer {
	r := &Renderer{
		Targets: platform.NewTargets(platform.Current()),
		Workers: defaults.RenderWorkers,
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.Workers < 1 {
		r.Workers = 1
	}
	return r
}

// job carries the shared read-only state of one recipe render.
type job struct {
	id      string
	section *tree.Value
	body    *tree.Value
}

// Render renders one recipe document into one Output per surviving variant
// combination, in combination order. Rendering is all or nothing: any
// failure returns a *StageError and no outputs.
func (r *Renderer) Render(ctx context.Context, data []byte) ([]Output, error) {
	start := time.Now()
	j := &job{id: uuid.New().String()}

	outputs, err := r.render(ctx, j, data)
	renderDuration.Observe(time.Since(start).Seconds())
	if err != nil {
		renderErrorsTotal.WithLabelValues(errorLabel(err)).Inc()
		slog.Debug("render failed", "render_id", j.id, "error", err)
		return nil, err
	}
	renderVariantsTotal.Add(float64(len(outputs)))
	slog.Debug("render complete",
		"render_id", j.id,
		"variants", len(outputs),
		"duration", time.Since(start).Round(time.Microsecond),
	)
	return outputs, nil
}

func (r *Renderer) render(ctx context.Context, j *job, data []byte) ([]Output, error) {
	r.stage(j, StageLoading)
	root, err := tree.Parse(data)
	if err != nil {
		return nil, stageError(StageLoading, err)
	}
	if root.Kind != tree.KindMapping {
		return nil, stageError(StageLoading, fieldError("", root, ErrInvalidField, "recipe must be a mapping"))
	}
	j.section = root.Get("context")
	j.body = withoutKey(root, "context")

	r.stage(j, StageContextBuilt)
	if _, err := r.context(j, variant.Combination{}); err != nil {
		return nil, stageError(StageContextBuilt, err)
	}

	r.stage(j, StageVariantExpanding)
	refs, err := references(root)
	if err != nil {
		return nil, stageError(StageVariantExpanding, err)
	}
	used := variant.UsedKeys(refs, r.VariantConfig)
	combos, err := variant.Expand(used, r.VariantConfig)
	if err != nil {
		return nil, stageError(StageVariantExpanding, err)
	}
	slog.Debug("variant matrix expanded", "render_id", j.id, "used_keys", used, "combinations", len(combos))

	// Combinations do not cancel each other, so every error is computed and
	// the lowest failing index is reported regardless of scheduling.
	slots := make([]*Output, len(combos))
	errs := make([]error, len(combos))
	var g errgroup.Group
	g.SetLimit(r.Workers)
	for i, combo := range combos {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				errs[i] = err
				return err
			}
			slots[i], errs[i] = r.renderCombination(j, combo)
			return errs[i]
		})
	}
	if err := g.Wait(); err != nil {
		for _, err := range errs {
			if err != nil {
				return nil, stageError(StageRendering, err)
			}
		}
	}

	outputs := make([]Output, 0, len(slots))
	for _, o := range slots {
		if o != nil {
			outputs = append(outputs, *o)
		}
	}
	r.stage(j, StageDone)
	return outputs, nil
}

// errorLabel returns the metrics label of a render failure.
func errorLabel(err error) string {
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return "TIMEOUT"
	case errors.Is(err, context.Canceled):
		return "CANCELED"
	}
	if code := rerrors.CodeOf(err); code != "" {
		return string(code)
	}
	return string(rerrors.ErrCodeInternal)
}

// renderCombination renders, normalises and assembles the recipe for one
// combination. A nil Output means the combination is skipped.
func (r *Renderer) renderCombination(j *job, combo variant.Combination) (*Output, error) {
	ctx, err := r.context(j, combo)
	if err == nil {
		ctx, err = ctx.Resolve()
	}
	if err != nil {
		return nil, stageError(StageContextBuilt, err)
	}
	pruned, err := selector.Prune(j.body, ctx)
	if err != nil {
		return nil, stageError(StageRendering, err)
	}
	rendered, err := expr.RenderTree(pruned, ctx)
	if err != nil {
		return nil, stageError(StageRendering, err)
	}

	skip, err := skipped(rendered.Get("build").Get("skip"), ctx)
	if err != nil {
		return nil, stageError(StageRendering, err)
	}
	if skip {
		renderSkippedTotal.Inc()
		slog.Debug("variant skipped", "render_id", j.id, "variant", combo.String())
		return nil, nil
	}

	rec, err := Assemble(rendered, combo)
	if err != nil {
		return nil, stageError(assemblyStage(err), err)
	}
	if rec.Subdir == "" {
		rec.Subdir = r.Targets.Target.String()
	}
	return &Output{Combination: combo, Recipe: rec}, nil
}

// context builds the template context for combo. Section entries shadow
// variant values and overrides shadow both.
func (r *Renderer) context(j *job, combo variant.Combination) (*expr.Context, error) {
	vars := r.Targets.Variables()
	maps.Copy(vars, combo.Vars())
	ctx, err := expr.NewContext(vars).WithSection(j.section, r.Overrides)
	if err != nil {
		return nil, tree.WrapNode("context", j.section, err)
	}
	return ctx.WithPins(r.Subpackages, r.Resolved), nil
}

func (r *Renderer) stage(j *job, s Stage) {
	slog.Debug("render stage", "render_id", j.id, "stage", string(s))
}

// skipped evaluates build.skip: a boolean, a selector, or a list of them
// of which any may be true.
func skipped(v *tree.Value, env selector.Env) (bool, error) {
	switch {
	case v.IsNull():
		return false, nil
	case v.Kind == tree.KindSequence:
		for i, it := range v.Items {
			skip, err := skipped(it, env)
			if err != nil {
				return false, tree.WrapNode(tree.IndexPath("build.skip", i), it, err)
			}
			if skip {
				return true, nil
			}
		}
		return false, nil
	case v.Kind == tree.KindString:
		skip, err := selector.Evaluate(v.Scalar, env)
		return skip, tree.WrapNode("build.skip", v, err)
	case v.IsScalar():
		skip, _ := v.Truthy()
		return skip, nil
	default:
		return false, fieldError("build.skip", v, ErrInvalidField, "skip must be a boolean, a selector or a list")
	}
}

func withoutKey(v *tree.Value, key string) *tree.Value {
	out := &tree.Value{Kind: v.Kind, Loc: v.Loc}
	for _, e := range v.Entries {
		if e.Key != key {
			out.Entries = append(out.Entries, e)
		}
	}
	return out
}

// Input is one recipe document of a batch.
type Input struct {
	Name string
	Data []byte
}

// Result is the outcome of rendering one Input.
type Result struct {
	Name    string
	Outputs []Output
	Err     error
}

// RenderBatch renders independent recipes concurrently. Results are in
// input order. Without FailFast every recipe is rendered and failures are
// reported per result; with FailFast the first failure is returned and
// remaining recipes are abandoned.
func (r *Renderer) RenderBatch(ctx context.Context, inputs []Input) ([]Result, error) {
	results := make([]Result, len(inputs))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(defaults.BatchWorkers)

	for i, in := range inputs {
		results[i].Name = in.Name
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				results[i].Err = err
				return nil
			}
			outputs, err := r.Render(gctx, in.Data)
			results[i].Outputs, results[i].Err = outputs, err
			if err != nil {
				slog.Error("recipe render failed", "recipe", in.Name, "error", err)
				if r.FailFast {
					return fmt.Errorf("%s: %w", in.Name, err)
				}
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return results, err
	}
	return results, nil
}
