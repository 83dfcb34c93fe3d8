// Package cmd provides the eval, repl, and init subcommands that drive a
// session's closure evaluator from the command line.
package cmd

var (
	// CacheIdentifier is the kong variable identifier containing the path to
	// the runtime cache directory.
	CacheIdentifier = "cache"

	// ConfigIdentifier is the kong variable identifier containing the path to
	// the configuration file, without its file extension.
	ConfigIdentifier = "config"
)
