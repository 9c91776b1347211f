// Package main hosts the rulecast CLI entrypoint and command graph.
//
// The Cobra-based command tree ingests rulebook documents into manifests,
// inspects the manifest catalog, compiles storyboards, validates contracts
// and configuration, and runs the HTTP API. It centralizes configuration
// resolution, contract loading, and logger setup in commandContext so
// subcommands only describe their own input and output.
//
// Keep this package lean: new behavior belongs in the internal packages
// first and is surfaced here through commands or flags.
package main
