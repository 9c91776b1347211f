// Package services defines shared utilities consumed by the ingestion stages,
// the storyboard compiler, and the outer CLI/HTTP surfaces.
//
// Key responsibilities:
//   - Context helpers that stamp document IDs, stage names, and correlation
//     identifiers for logging.
//   - Structured error markers plus the Wrap helper that attach an in-band
//     error code (INGEST_HEADING_MISSING, INGEST_OCR_EXCEEDED, ...) and
//     translate failures into catalog statuses (rejected vs failed).
//
// Use these helpers when wiring new stage logic so error classification and
// observability stay uniform across the pipeline.
package services
