package catalog

import "time"

// Status is the outcome of one ingestion attempt.
type Status string

const (
	// StatusAccepted means a manifest was built and persisted.
	StatusAccepted Status = "accepted"
	// StatusRejected means the document failed a governance check.
	StatusRejected Status = "rejected"
	// StatusFailed means the attempt stopped on an operational error.
	StatusFailed Status = "failed"
)

var knownStatuses = map[Status]struct{}{
	StatusAccepted: {},
	StatusRejected: {},
	StatusFailed:   {},
}

// ParseStatus converts a string into a Status, returning ok=false when unknown.
func ParseStatus(value string) (Status, bool) {
	status := Status(value)
	_, ok := knownStatuses[status]
	return status, ok
}

// ManifestRecord is the catalog entry for the latest accepted manifest of a
// document.
type ManifestRecord struct {
	DocumentID      string    `json:"documentId"`
	IngestionID     string    `json:"ingestionId"`
	Title           string    `json:"title"`
	GameID          string    `json:"gameId"`
	Version         string    `json:"version"`
	ContentHash     string    `json:"contentHash"`
	Location        string    `json:"location"`
	HeadingCount    int       `json:"headingCount"`
	ComponentCount  int       `json:"componentCount"`
	OCRPages        int       `json:"ocrPages"`
	CreatedAt       time.Time `json:"createdAt"`
	UpdatedAt       time.Time `json:"updatedAt"`
	IngestionsTotal int       `json:"ingestionsTotal"`
}

// Attempt is one row of ingestion history.
type Attempt struct {
	ID           int64         `json:"id"`
	IngestionID  string        `json:"ingestionId"`
	DocumentID   string        `json:"documentId"`
	Status       Status        `json:"status"`
	ErrorCode    string        `json:"errorCode,omitempty"`
	ErrorMessage string        `json:"errorMessage,omitempty"`
	StartedAt    time.Time     `json:"startedAt"`
	Duration     time.Duration `json:"durationNs"`
}
