// Package textutil provides text processing helpers shared by the ingestion
// and storyboard packages.
//
// The primary use cases are:
//   - Normalizing extracted text (NFC, whitespace collapsing)
//   - Building URL-safe slugs for headings and scene ids
//   - Counting words for narration pacing
//   - Sanitizing identifiers for safe filesystem use
package textutil
