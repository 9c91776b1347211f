// Package ingestion orchestrates one rulebook document through page
// normalization, manifest construction, persistence, and cataloging.
//
// Each Ingest call owns its input exclusively and runs its stages in order
// under a per-stage context so logs carry document_id and stage. The active
// contract is captured once at the start of a run; a concurrent reload never
// changes the rules mid-document. Every attempt, accepted or not, is
// appended to the catalog's ingestion history.
package ingestion
