// Package recipe renders recipe documents into typed, per-variant build
// plans.
//
// # Overview
//
// A recipe is a YAML document whose string values may hold ${{ }}
// templates and whose mappings may be if/then/else conditionals. Rendering
// a recipe against a variant configuration yields one Recipe per variant
// combination the recipe actually uses.
//
// # Pipeline
//
// Every render moves through fixed stages; a failure in any of them
// aborts the whole recipe and is reported as a *StageError carrying the
// stage, the document path and the source position:
//
//	loading             parse YAML into a tree with positions
//	context             build the template context (platform, overrides)
//	variant_expanding   discover referenced keys, expand the matrix
//	rendering           per combination: resolve context, prune
//	                    conditionals, substitute templates, evaluate skip
//	version_normalizing parse versions and dependency specs
//	assembling          validate fields and build the Recipe
//
// Combinations are rendered concurrently on an errgroup bounded by
// Renderer.Workers; outputs keep combination order.
//
// # Usage
//
//	cfg, err := variant.ParseConfig(variantYAML)
//	if err != nil {
//	    return err
//	}
//	r := recipe.NewRenderer(
//	    recipe.WithTargets(platform.NewTargets("linux-64")),
//	    recipe.WithVariantConfig(cfg),
//	)
//	outputs, err := r.Render(ctx, recipeYAML)
//	if err != nil {
//	    var se *recipe.StageError
//	    if errors.As(err, &se) {
//	        slog.Error("render failed", "stage", se.Stage, "path", se.Path, "code", se.Code())
//	    }
//	    return err
//	}
//	for _, o := range outputs {
//	    fmt.Println(o.Recipe.Identifier(), o.Combination)
//	}
//
// # Pinning
//
// Dependencies in build, host, run and run_constrained that carry no
// version or build constraint and are named like a variant key take that
// key's value as constraint ("python" becomes "python 3.11.*"). A declared
// constraint that the variant value violates is a VARIANT_CONFLICT.
//
// # Metrics
//
// The package registers Prometheus collectors for render duration,
// rendered and skipped variants and errors by code.
package recipe
