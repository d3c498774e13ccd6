// Package cli implements the rattler-render command-line interface.
//
// # Commands
//
// render - Render recipe files:
//
//	rattler-render render [-m VARIANTS.yaml]... [--target-platform linux-64] RECIPE...
//
// Evaluates the templates and conditionals of each recipe, expands the
// variant matrix and prints one rendered recipe per variant combination.
// Several recipes are rendered concurrently; --fail-fast stops at the first
// failure.
//
// match - Test a package against a dependency spec:
//
//	rattler-render match "numpy >=1.26,<2" numpy 1.26.4
//
// compare - Order two versions:
//
//	rattler-render compare 1.0.0rc1 1.0.0
//
// serve - Serve render and match over HTTP:
//
//	rattler-render serve --port 8080 --rate-limit 20
//
// # Global Flags
//
//	--log-level    Log level: debug, info, warn, error (default: info)
//	--help, -h     Show command help
//	--version, -v  Show version information
//
// # Output Flags
//
//	--output, -o   Output file path (default: stdout)
//	--format, -t   Output format: yaml, json, table (default: yaml, or
//	               the --output file extension)
//
// # Environment Variables
//
//	LOG_LEVEL      Set logging verbosity when --log-level is not given
//	PORT           Port for serve when --port is not given
//
// # Exit Codes
//
//	0  Success
//	1  General error (invalid arguments, render failure, no match)
//	2  Context canceled or timeout
//
// Version information is embedded at build time using ldflags:
//
//	go build -ldflags="-X 'github.com/BenjaminLowry/rattler-build/pkg/cli.buildVersion=1.0.0'"
package cli
