// Package cli contains the command line interface for shellcore.
//
// # Usage
//
// The CLI provides logging and profiling configuration alongside the
// eval, repl, and init subcommands:
//
//	shellcore --log-level=debug --pprof-mode=cpu eval program.sh
//
// # Configuration Loader
//
// The package includes a Kong configuration loader ([resolve]) that reads a
// YAML config section and converts its entries into Kong flag values, a
// hyphen/underscore-tolerant stand-in for the environment-variable-style
// resolver Kong expects.
//
// # Logging Options
//
//   - --log-level: Set minimum log level (trace, debug, info, warn, error)
//   - --log-format: Set log output format (json, text)
//   - --log-time-layout: Set timestamp format (RFC3339, RFC3339Nano, etc.)
//   - --log-callsite: Include caller information in log output
//
// # Profiling Options
//
// Profiling is only available when built with the pprof build tag:
//
//	go build -tags pprof -o shellcore .
//
//   - --pprof-mode: Enable profiling (allocs, block, clock, cpu, goroutine,
//     heap, mem, mutex, thread, trace)
//   - --pprof-dir: Set profile output directory (default:
//     ~/.cache/shellcore/pprof)
//
// # Examples
//
//	# Debug logging with CPU profiling
//	shellcore --log-level=debug --pprof-mode=cpu eval program.sh
//
//	# Interactive session with history persisted to a custom path
//	shellcore repl --history=/tmp/shellcore.history
//
//	# Scaffold a new profile directory overlaying "base"
//	shellcore init team-dev --parents=base
package cli
