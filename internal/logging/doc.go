// Package logging assembles structured slog loggers and formatting helpers used
// across rulecast.
//
// It owns the console/JSON handlers, centralizes level and output plumbing, and
// exposes context-aware helpers so ingestion stages automatically tag log lines
// with document IDs, stage names, and correlation IDs. A no-op logger is
// provided for tests and wiring code that cannot fail.
package logging
