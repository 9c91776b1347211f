// Package config loads, normalizes, and validates rulecast configuration data.
//
// It supplies repository defaults, expands user paths (including tilde
// shortcuts), reads TOML files, and honours environment fallbacks such as
// AWS_ACCESS_KEY_ID for the S3 manifest backend. The Config type centralizes
// every knob the CLI and HTTP server need: where the governance contract
// lives, where manifests and storyboards are written, OCR fallback policy,
// and storyboard pacing.
//
// The governance contract itself is not configuration; it is loaded by the
// contract package from the path configured here.
package config
