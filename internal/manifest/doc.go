// Package manifest builds and persists the canonical description of an
// ingested rulebook.
//
// Builder validates metadata, enforces the OCR budget, runs heading detection
// and component extraction, and assembles a self-describing Manifest. Any
// failure aborts the whole document: Build never returns a partial manifest.
//
// Persistence is separate. FileStore writes one JSON file per document using
// temp-file + fsync + rename under a per-document flock; ObjectStore uploads
// the fully buffered document with a single S3 PutObject. A manifest is
// immutable once built; re-ingesting a source produces a new manifest that
// replaces the stored one as a whole.
package manifest
