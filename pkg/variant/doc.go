// Package variant expands a variant configuration into the build matrix of
// a recipe.
//
// A variant configuration maps keys to ordered candidate values:
//
//	python:
//	  - "3.10"
//	  - "3.11"
//	numpy:
//	  - "1.26"
//	  - "2.0"
//	zip_keys:
//	  - [python, numpy]
//
// Only keys the recipe actually references take part in the matrix. Keys
// in one zip_keys group advance together instead of multiplying, so the
// example above yields two combinations rather than four.
//
// Pin applies a combination to a dependency: an unconstrained dependency
// named like a key takes the key's value as its version constraint, and a
// constrained dependency whose key value violates the constraint is a
// VARIANT_CONFLICT.
package variant
