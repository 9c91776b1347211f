// Package api exposes ingestion, manifest lookup, and storyboard compilation
// over HTTP using gin.
//
// Every response uses the same envelope: {success, data, error}. Rejected
// documents carry their in-band error code (INGEST_HEADING_MISSING and so
// on) in error.code, and missing metadata fields are listed in error.fields.
// Each request is tagged with an X-Request-ID (generated when absent) that
// flows into the request context and every log line the request produces.
//
// # Routes
//
//	GET  /healthz
//	GET  /v1/contract
//	POST /v1/contract/reload
//	POST /v1/manifests
//	GET  /v1/manifests
//	GET  /v1/manifests/:id
//	GET  /v1/manifests/:id/history
//	POST /v1/manifests/:id/storyboard
//	POST /v1/storyboards
//
// There is no authentication layer; bind the server to a trusted interface.
package api
