package api

import (
	"time"

	"rulecast/internal/catalog"
	"rulecast/internal/manifest"
)

// dateTimeFormat is used for RFC3339 timestamps in API payloads.
const dateTimeFormat = "2006-01-02T15:04:05.000Z07:00"

// Envelope wraps every response body.
type Envelope struct {
	Success bool       `json:"success"`
	Data    any        `json:"data,omitempty"`
	Error   *ErrorBody `json:"error,omitempty"`
}

// ErrorBody describes a failed request.
type ErrorBody struct {
	Code    string   `json:"code"`
	Message string   `json:"message"`
	Fields  []string `json:"fields,omitempty"`
	// IngestionID is set when the failure belongs to a recorded attempt.
	IngestionID string `json:"ingestionId,omitempty"`
}

// Health is the /healthz payload.
type Health struct {
	Status          string         `json:"status"`
	ContractVersion string         `json:"contractVersion"`
	Catalog         bool           `json:"catalog"`
	Ingestions      map[string]int `json:"ingestions,omitempty"`
}

// ContractReload reports the contract active after a reload request.
type ContractReload struct {
	Reloaded bool   `json:"reloaded"`
	Version  string `json:"version"`
	Source   string `json:"source"`
}

// IngestResponse is returned for an accepted document.
type IngestResponse struct {
	IngestionID string             `json:"ingestionId"`
	DocumentID  string             `json:"documentId"`
	Location    string             `json:"location"`
	DurationMs  int64              `json:"durationMs"`
	Manifest    *manifest.Manifest `json:"manifest"`
}

// ManifestSummary is one row of the manifest listing.
type ManifestSummary struct {
	DocumentID  string `json:"documentId"`
	IngestionID string `json:"ingestionId"`
	Title       string `json:"title"`
	GameID      string `json:"gameId"`
	Version     string `json:"version"`
	ContentHash string `json:"contentHash,omitempty"`
	Location    string `json:"location"`
	Headings    int    `json:"headings"`
	Components  int    `json:"components"`
	OCRPages    int    `json:"ocrPages"`
	Ingestions  int    `json:"ingestions"`
	CreatedAt   string `json:"createdAt"`
	UpdatedAt   string `json:"updatedAt"`
}

// AttemptView is one ingestion attempt.
type AttemptView struct {
	IngestionID string `json:"ingestionId"`
	Status      string `json:"status"`
	ErrorCode   string `json:"errorCode,omitempty"`
	Message     string `json:"message,omitempty"`
	StartedAt   string `json:"startedAt"`
	DurationMs  int64  `json:"durationMs"`
}

// FromManifestRecord converts a catalog row into its wire form.
func FromManifestRecord(rec catalog.ManifestRecord) ManifestSummary {
	return ManifestSummary{
		DocumentID:  rec.DocumentID,
		IngestionID: rec.IngestionID,
		Title:       rec.Title,
		GameID:      rec.GameID,
		Version:     rec.Version,
		ContentHash: rec.ContentHash,
		Location:    rec.Location,
		Headings:    rec.HeadingCount,
		Components:  rec.ComponentCount,
		OCRPages:    rec.OCRPages,
		Ingestions:  rec.IngestionsTotal,
		CreatedAt:   formatTime(rec.CreatedAt),
		UpdatedAt:   formatTime(rec.UpdatedAt),
	}
}

// FromAttempt converts a history row into its wire form.
func FromAttempt(attempt catalog.Attempt) AttemptView {
	return AttemptView{
		IngestionID: attempt.IngestionID,
		Status:      string(attempt.Status),
		ErrorCode:   attempt.ErrorCode,
		Message:     attempt.ErrorMessage,
		StartedAt:   formatTime(attempt.StartedAt),
		DurationMs:  attempt.Duration.Milliseconds(),
	}
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(dateTimeFormat)
}
