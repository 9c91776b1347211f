package catalog

import (
	"database/sql"
	"errors"
	"time"
)

const manifestColumns = "m.document_id, m.ingestion_id, m.title, m.game_id, m.version, m.content_hash, m.location, m.heading_count, m.component_count, m.ocr_pages, m.created_at, m.updated_at, (SELECT COUNT(1) FROM ingestions i WHERE i.document_id = m.document_id)"

const attemptColumns = "id, ingestion_id, document_id, status, error_code, error_message, started_at, duration_ms"

type rowScanner interface {
	Scan(dest ...any) error
}

func scanManifest(scanner rowScanner) (*ManifestRecord, error) {
	var (
		rec        ManifestRecord
		createdRaw string
		updatedRaw string
	)
	if err := scanner.Scan(
		&rec.DocumentID,
		&rec.IngestionID,
		&rec.Title,
		&rec.GameID,
		&rec.Version,
		&rec.ContentHash,
		&rec.Location,
		&rec.HeadingCount,
		&rec.ComponentCount,
		&rec.OCRPages,
		&createdRaw,
		&updatedRaw,
		&rec.IngestionsTotal,
	); err != nil {
		return nil, err
	}
	if created, err := parseTimeString(createdRaw); err == nil {
		rec.CreatedAt = created
	}
	if updated, err := parseTimeString(updatedRaw); err == nil {
		rec.UpdatedAt = updated
	}
	return &rec, nil
}

func scanAttempt(scanner rowScanner) (*Attempt, error) {
	var (
		attempt    Attempt
		statusStr  string
		code       sql.NullString
		message    sql.NullString
		startedRaw string
		durationMS int64
	)
	if err := scanner.Scan(
		&attempt.ID,
		&attempt.IngestionID,
		&attempt.DocumentID,
		&statusStr,
		&code,
		&message,
		&startedRaw,
		&durationMS,
	); err != nil {
		return nil, err
	}
	attempt.Status = Status(statusStr)
	attempt.ErrorCode = code.String
	attempt.ErrorMessage = message.String
	attempt.Duration = time.Duration(durationMS) * time.Millisecond
	if started, err := parseTimeString(startedRaw); err == nil {
		attempt.StartedAt = started
	}
	return &attempt, nil
}

func nullableString(value string) any {
	if value == "" {
		return nil
	}
	return value
}

func formatTime(value time.Time) string {
	if value.IsZero() {
		value = time.Now()
	}
	return value.UTC().Format(time.RFC3339Nano)
}

func parseTimeString(value string) (time.Time, error) {
	if value == "" {
		return time.Time{}, errors.New("empty")
	}
	if t, err := time.Parse(time.RFC3339Nano, value); err == nil {
		return t, nil
	}
	return time.Parse("2006-01-02 15:04:05", value)
}
