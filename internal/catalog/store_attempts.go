package catalog

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// RecordAttempt appends one ingestion outcome to the history table.
func (s *Store) RecordAttempt(ctx context.Context, attempt Attempt) error {
	if strings.TrimSpace(attempt.IngestionID) == "" {
		return errors.New("record attempt: ingestion id is empty")
	}
	if _, ok := knownStatuses[attempt.Status]; !ok {
		return fmt.Errorf("record attempt: unknown status %q", attempt.Status)
	}
	err := s.execWithRetry(ctx,
		`INSERT INTO ingestions (
            ingestion_id, document_id, status, error_code, error_message, started_at, duration_ms
        ) VALUES (?, ?, ?, ?, ?, ?, ?)`,
		attempt.IngestionID,
		attempt.DocumentID,
		string(attempt.Status),
		nullableString(attempt.ErrorCode),
		nullableString(attempt.ErrorMessage),
		formatTime(attempt.StartedAt),
		attempt.Duration.Milliseconds(),
	)
	if err != nil {
		return fmt.Errorf("record attempt %s: %w", attempt.IngestionID, err)
	}
	return nil
}

// History returns ingestion attempts for a document, newest first.
func (s *Store) History(ctx context.Context, documentID string, limit int) ([]Attempt, error) {
	ctx = ensureContext(ctx)
	query := "SELECT " + attemptColumns + " FROM ingestions WHERE document_id = ? ORDER BY id DESC"
	args := []any{documentID}
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("ingestion history: %w", err)
	}
	defer rows.Close()

	var attempts []Attempt
	for rows.Next() {
		attempt, err := scanAttempt(rows)
		if err != nil {
			return nil, fmt.Errorf("scan attempt: %w", err)
		}
		attempts = append(attempts, *attempt)
	}
	return attempts, rows.Err()
}

// Stats returns a count of ingestion attempts grouped by status.
func (s *Store) Stats(ctx context.Context) (map[Status]int, error) {
	ctx = ensureContext(ctx)
	rows, err := s.db.QueryContext(ctx, `SELECT status, COUNT(1) FROM ingestions GROUP BY status`)
	if err != nil {
		return nil, fmt.Errorf("ingestion stats: %w", err)
	}
	defer rows.Close()

	stats := make(map[Status]int)
	for rows.Next() {
		var status string
		var count int
		if err := rows.Scan(&status, &count); err != nil {
			return nil, err
		}
		stats[Status(status)] = count
	}
	return stats, rows.Err()
}
