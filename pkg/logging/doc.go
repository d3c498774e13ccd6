// Package logging provides structured logging utilities for the recipe renderer.
//
// # Overview
//
// This package wraps the standard library slog package with project defaults
// so the CLI and the rendering pipeline log in one consistent format. It
// supports environment-based level configuration, module/version context
// injection, and source location tracking for debug logs.
//
// # Log Levels
//
// Supported log levels (case-insensitive):
//   - DEBUG: stage transitions, cache hits, per-variant decisions (with source location)
//   - INFO: render summaries (default)
//   - WARN/WARNING: skipped variants, deferred pins
//   - ERROR: failed renders
//
// # Usage
//
//	func main() {
//	    logging.SetDefaultStructuredLogger("rattler-render", version)
//	    slog.Info("render started", "recipe", path)
//	}
//
// Setting an explicit level:
//
//	logging.SetDefaultStructuredLoggerWithLevel("rattler-render", "v1.0.0", "debug")
//
// # Environment Configuration
//
// The LOG_LEVEL environment variable controls verbosity when no explicit level
// is passed:
//
//	LOG_LEVEL=debug rattler-render render recipe.yaml
//
// # Output Format
//
// All logs are written to stderr in JSON format:
//
//	{
//	    "time": "2025-01-15T10:30:00.123Z",
//	    "level": "INFO",
//	    "msg": "recipe rendered",
//	    "module": "rattler-render",
//	    "version": "v1.0.0",
//	    "variants": 4
//	}
package logging
