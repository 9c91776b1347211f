// Package pages normalizes extracted rulebook pages before structure
// detection.
//
// Normalization keeps page and block order exactly as extracted. Pages whose
// text density falls below the configured threshold are handed to a
// Recoverer, concurrently across pages; every invocation is recorded as an
// OCR fallback Event. Budget enforcement over those events happens later in
// the manifest builder, which sees the whole document.
package pages
