// Package catalog indexes accepted manifests and records every ingestion
// attempt in SQLite.
//
// The manifests table keeps the latest accepted manifest per document id so
// the CLI and HTTP API can list and locate manifests without scanning the
// storage backend. The ingestions table is append-only: each pipeline run
// writes one row with its outcome status and in-band error code.
//
// Schema changes bump schemaVersion in schema.go; users delete catalog.db to
// adopt the new schema. Manifests themselves live in the configured storage
// backend, so the catalog can always be rebuilt by re-ingesting.
package catalog
