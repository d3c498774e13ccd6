// Package errors provides structured error types for better observability
// and programmatic error handling across the rendering pipeline.
//
// Every stage reports failures with one of the taxonomy codes (RENDER,
// SELECTOR, VERSION_PARSE, CONSTRAINT_PARSE, MATCHSPEC_PARSE,
// ZIP_LENGTH_MISMATCH, VARIANT_CONFLICT, RECIPE_PARSE). Callers branch on the
// code with HasCode or CodeOf and on the precise cause with errors.Is.
//
// Example usage:
//
//	err := errors.WrapWithContext(
//	    errors.ErrCodeVariantConflict,
//	    "variant value violates dependency constraint",
//	    cause,
//	    map[string]any{
//	        "dependency": "python >=3.10",
//	        "value":      "3.9",
//	    },
//	)
package errors
