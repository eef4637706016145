package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// Document is one processed syllabus in the ledger.
type Document struct {
	ID              int64     `json:"id"`
	Fingerprint     string    `json:"fingerprint"`
	Path            string    `json:"path"`
	SubjectID       int64     `json:"subject_id,omitempty"`
	RunID           string    `json:"run_id"`
	ReferencesFound int       `json:"references_found"`
	ProcessedAt     time.Time `json:"processed_at"`
}

// RecordDocument appends doc to the ledger and sets its ID.
func (c conn) RecordDocument(ctx context.Context, doc *Document) error {
	if doc.ProcessedAt.IsZero() {
		doc.ProcessedAt = time.Now().UTC()
	}
	var subjectID sql.NullInt64
	if doc.SubjectID != 0 {
		subjectID = sql.NullInt64{Int64: doc.SubjectID, Valid: true}
	}
	res, err := c.q.ExecContext(ctx, `
		INSERT INTO documents (fingerprint, path, subject_id, run_id, references_found, processed_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		doc.Fingerprint, doc.Path, subjectID, doc.RunID, doc.ReferencesFound,
		doc.ProcessedAt.Format(time.RFC3339))
	if err != nil {
		return fmt.Errorf("recording document %s: %w", doc.Path, err)
	}
	doc.ID, err = res.LastInsertId()
	return err
}

// LastDocument returns the most recent ledger entry with fingerprint.
func (c conn) LastDocument(ctx context.Context, fingerprint string) (*Document, error) {
	row := c.q.QueryRowContext(ctx, `
		SELECT id, fingerprint, path, subject_id, run_id, references_found, processed_at
		FROM documents WHERE fingerprint = ? ORDER BY id DESC LIMIT 1`, fingerprint)
	doc, err := scanDocument(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	return doc, err
}

// ListDocuments returns up to limit ledger entries, newest first.
func (c conn) ListDocuments(ctx context.Context, limit int) ([]Document, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := c.q.QueryContext(ctx, `
		SELECT id, fingerprint, path, subject_id, run_id, references_found, processed_at
		FROM documents ORDER BY id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("listing documents: %w", err)
	}
	defer rows.Close()

	var docs []Document
	for rows.Next() {
		doc, err := scanDocument(rows)
		if err != nil {
			return nil, err
		}
		docs = append(docs, *doc)
	}
	return docs, rows.Err()
}

func scanDocument(s scanner) (*Document, error) {
	var doc Document
	var path, runID sql.NullString
	var subjectID sql.NullInt64
	var processedAt string
	if err := s.Scan(&doc.ID, &doc.Fingerprint, &path, &subjectID, &runID, &doc.ReferencesFound, &processedAt); err != nil {
		return nil, err
	}
	doc.Path = path.String
	doc.RunID = runID.String
	doc.SubjectID = subjectID.Int64
	if t, err := time.Parse(time.RFC3339, processedAt); err == nil {
		doc.ProcessedAt = t
	}
	return &doc, nil
}
