package catalog

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
)

// RecordManifest upserts the latest accepted manifest for a document. The
// original created_at is preserved across re-ingestion.
func (s *Store) RecordManifest(ctx context.Context, rec ManifestRecord) error {
	if strings.TrimSpace(rec.DocumentID) == "" {
		return errors.New("record manifest: document id is empty")
	}
	updated := formatTime(rec.UpdatedAt)
	created := updated
	if !rec.CreatedAt.IsZero() {
		created = formatTime(rec.CreatedAt)
	}
	err := s.execWithRetry(ctx,
		`INSERT INTO manifests (
            document_id, ingestion_id, title, game_id, version, content_hash, location,
            heading_count, component_count, ocr_pages, created_at, updated_at
        ) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
        ON CONFLICT(document_id) DO UPDATE SET
            ingestion_id = excluded.ingestion_id,
            title = excluded.title,
            game_id = excluded.game_id,
            version = excluded.version,
            content_hash = excluded.content_hash,
            location = excluded.location,
            heading_count = excluded.heading_count,
            component_count = excluded.component_count,
            ocr_pages = excluded.ocr_pages,
            updated_at = excluded.updated_at`,
		rec.DocumentID,
		rec.IngestionID,
		rec.Title,
		rec.GameID,
		rec.Version,
		rec.ContentHash,
		rec.Location,
		rec.HeadingCount,
		rec.ComponentCount,
		rec.OCRPages,
		created,
		updated,
	)
	if err != nil {
		return fmt.Errorf("record manifest %s: %w", rec.DocumentID, err)
	}
	return nil
}

// Get returns the catalog entry for a document, or nil when none exists.
func (s *Store) Get(ctx context.Context, documentID string) (*ManifestRecord, error) {
	ctx = ensureContext(ctx)
	row := s.db.QueryRowContext(ctx,
		"SELECT "+manifestColumns+" FROM manifests m WHERE m.document_id = ?", documentID)
	rec, err := scanManifest(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get manifest %s: %w", documentID, err)
	}
	return rec, nil
}

// List returns catalog entries ordered by most recently updated. A limit of
// zero or less returns every entry.
func (s *Store) List(ctx context.Context, limit int) ([]ManifestRecord, error) {
	ctx = ensureContext(ctx)
	query := "SELECT " + manifestColumns + " FROM manifests m ORDER BY m.updated_at DESC, m.document_id"
	args := []any{}
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list manifests: %w", err)
	}
	defer rows.Close()

	var records []ManifestRecord
	for rows.Next() {
		rec, err := scanManifest(rows)
		if err != nil {
			return nil, fmt.Errorf("scan manifest: %w", err)
		}
		records = append(records, *rec)
	}
	return records, rows.Err()
}
