package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/matsen/bibcat/internal/normalize"
	"github.com/matsen/bibcat/internal/reference"
)

// selectTitleFields contains the standard field list for title queries.
const selectTitleFields = `id, normalized_author, normalized_title,
	original_author, original_title, year, publisher,
	edition, format, physical_availability, online_availability,
	type_bib, is_article`

// FindTitleByKey returns the title with the given identity key.
// Stores with legacy duplicates may hold several; the lowest id wins.
func (c conn) FindTitleByKey(ctx context.Context, key string) (*reference.Title, error) {
	row := c.q.QueryRowContext(ctx,
		`SELECT `+selectTitleFields+` FROM titles WHERE identity_key = ? ORDER BY id LIMIT 1`, key)
	t, err := scanTitle(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	return t, err
}

// GetTitle returns the title with the given id.
func (c conn) GetTitle(ctx context.Context, id int64) (*reference.Title, error) {
	row := c.q.QueryRowContext(ctx, `SELECT `+selectTitleFields+` FROM titles WHERE id = ?`, id)
	t, err := scanTitle(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	return t, err
}

// InsertTitle stores t and sets its ID. If a title with the same identity
// key already exists, that title is returned instead and created is false.
func (c conn) InsertTitle(ctx context.Context, t *reference.Title) (stored *reference.Title, created bool, err error) {
	key := normalize.Key(t.NormalizedAuthor, t.NormalizedTitle)
	if existing, err := c.FindTitleByKey(ctx, key); err == nil {
		return existing, false, nil
	} else if !errors.Is(err, ErrNotFound) {
		return nil, false, err
	}

	res, err := c.q.ExecContext(ctx, `
		INSERT INTO titles (
			normalized_author, normalized_title, original_author, original_title,
			year, publisher, edition, format,
			physical_availability, online_availability, type_bib, is_article, identity_key
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		t.NormalizedAuthor, t.NormalizedTitle, t.OriginalAuthor, t.OriginalTitle,
		nullableStringValue(t.Year), nullableStringValue(t.PublisherOrURL),
		nullableStringValue(t.Edition), nullableStringValue(t.Format),
		nullableStringValue(t.PhysicalAvailability), nullableStringValue(t.OnlineAvailability),
		string(t.Kind), boolInt(t.Article), key,
	)
	if IsUniqueViolation(err) {
		existing, ferr := c.FindTitleByKey(ctx, key)
		if ferr != nil {
			return nil, false, fmt.Errorf("reading title after conflict: %w", ferr)
		}
		return existing, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("inserting title: %w", err)
	}

	cp := *t
	if cp.ID, err = res.LastInsertId(); err != nil {
		return nil, false, fmt.Errorf("reading title id: %w", err)
	}
	return &cp, true, nil
}

// Associate links a title to a subject. Linking an already linked pair is
// a no-op; the return value reports whether a link was added.
func (c conn) Associate(ctx context.Context, titleID, subjectID int64) (bool, error) {
	res, err := c.q.ExecContext(ctx, `
		INSERT INTO title_subject (title_id, subject_id)
		SELECT ?, ?
		WHERE NOT EXISTS (SELECT 1 FROM title_subject WHERE title_id = ? AND subject_id = ?)`,
		titleID, subjectID, titleID, subjectID)
	if err != nil {
		return false, fmt.Errorf("associating title %d with subject %d: %w", titleID, subjectID, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// InsertAcquisition stores the acquisition of a title and sets its ID.
func (c conn) InsertAcquisition(ctx context.Context, a *reference.Acquisition) error {
	res, err := c.q.ExecContext(ctx, `
		INSERT INTO acquisitions (title_id, status, available_printed, available_digital)
		VALUES (?, ?, ?, ?)`,
		a.TitleID, string(a.Status), boolInt(a.AvailablePrinted), boolInt(a.AvailableDigital))
	if err != nil {
		return fmt.Errorf("inserting acquisition for title %d: %w", a.TitleID, err)
	}
	a.ID, err = res.LastInsertId()
	return err
}

// AcquisitionFor returns the acquisition of a title, the lowest id when a
// legacy store holds several.
func (c conn) AcquisitionFor(ctx context.Context, titleID int64) (*reference.Acquisition, error) {
	row := c.q.QueryRowContext(ctx, `
		SELECT id, title_id, status, available_printed, available_digital
		FROM acquisitions WHERE title_id = ? ORDER BY id LIMIT 1`, titleID)
	a, err := scanAcquisition(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	return a, err
}

// Counts is a summary of the store's contents.
type Counts struct {
	Careers      int `json:"careers"`
	Subjects     int `json:"subjects"`
	Titles       int `json:"titles"`
	Acquisitions int `json:"acquisitions"`
	Links        int `json:"links"`
	Documents    int `json:"documents"`
}

// Count returns row counts of every relation.
func (c conn) Count(ctx context.Context) (Counts, error) {
	var counts Counts
	for _, q := range []struct {
		table string
		dst   *int
	}{
		{"careers", &counts.Careers},
		{"subjects", &counts.Subjects},
		{"titles", &counts.Titles},
		{"acquisitions", &counts.Acquisitions},
		{"title_subject", &counts.Links},
		{"documents", &counts.Documents},
	} {
		if err := c.q.QueryRowContext(ctx, "SELECT COUNT(*) FROM "+q.table).Scan(q.dst); err != nil {
			return Counts{}, fmt.Errorf("counting %s: %w", q.table, err)
		}
	}
	return counts, nil
}

func scanTitle(s scanner) (*reference.Title, error) {
	var t reference.Title
	var author, title, origAuthor, origTitle sql.NullString
	var year, publisher, edition, format, physical, online, kind sql.NullString
	var article sql.NullInt64

	err := s.Scan(&t.ID, &author, &title, &origAuthor, &origTitle, &year, &publisher,
		&edition, &format, &physical, &online, &kind, &article)
	if err != nil {
		return nil, err
	}

	t.NormalizedAuthor = author.String
	t.NormalizedTitle = title.String
	t.OriginalAuthor = origAuthor.String
	t.OriginalTitle = origTitle.String
	t.Year = year.String
	t.PublisherOrURL = publisher.String
	t.Edition = edition.String
	t.Format = format.String
	t.PhysicalAvailability = physical.String
	t.OnlineAvailability = online.String
	t.Kind = reference.ParseKind(kind.String)
	t.Article = article.Int64 != 0
	return &t, nil
}

func scanAcquisition(s scanner) (*reference.Acquisition, error) {
	var a reference.Acquisition
	var status sql.NullString
	var printed, digital sql.NullBool
	if err := s.Scan(&a.ID, &a.TitleID, &status, &printed, &digital); err != nil {
		return nil, err
	}
	a.Status = parseStatus(status.String)
	a.AvailablePrinted = printed.Bool
	a.AvailableDigital = digital.Bool
	return &a, nil
}

// parseStatus reads both current and legacy ("disponible") status values.
func parseStatus(s string) reference.Status {
	switch s {
	case string(reference.StatusAvailable), "disponible":
		return reference.StatusAvailable
	}
	return reference.StatusUnavailable
}
