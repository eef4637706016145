package storage

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/matsen/bibcat/internal/normalize"
)

// createSchema creates the relations if they don't exist. Column sets match
// the oldest stores in the field; newer columns are added by Migrate.
func createSchema(db *sql.DB) error {
	schema := `
		CREATE TABLE IF NOT EXISTS careers (
			id INTEGER PRIMARY KEY,
			name TEXT NOT NULL UNIQUE,
			facultad TEXT NOT NULL DEFAULT 'Ciencias Sociales'
		);

		CREATE TABLE IF NOT EXISTS subjects (
			id INTEGER PRIMARY KEY,
			name TEXT NOT NULL,
			career_id INTEGER REFERENCES careers(id),
			UNIQUE(name, career_id)
		);

		CREATE TABLE IF NOT EXISTS titles (
			id INTEGER PRIMARY KEY,
			normalized_author TEXT,
			normalized_title TEXT,
			original_author TEXT,
			original_title TEXT,
			year TEXT,
			publisher TEXT,
			type_bib TEXT
		);

		CREATE TABLE IF NOT EXISTS acquisitions (
			id INTEGER PRIMARY KEY,
			title_id INTEGER REFERENCES titles(id),
			status TEXT,
			available_printed BOOLEAN DEFAULT 0,
			available_digital BOOLEAN DEFAULT 0
		);

		CREATE TABLE IF NOT EXISTS title_subject (
			title_id INTEGER REFERENCES titles(id),
			subject_id INTEGER REFERENCES subjects(id)
		);

		CREATE TABLE IF NOT EXISTS documents (
			id INTEGER PRIMARY KEY,
			fingerprint TEXT NOT NULL,
			path TEXT,
			subject_id INTEGER REFERENCES subjects(id),
			run_id TEXT,
			references_found INTEGER NOT NULL DEFAULT 0,
			processed_at TEXT NOT NULL
		);

		CREATE INDEX IF NOT EXISTS idx_documents_fingerprint ON documents(fingerprint);
	`
	_, err := db.Exec(schema)
	return err
}

// optionalColumns are added to existing stores when missing, in order.
var optionalColumns = []struct {
	table, name, decl string
}{
	{"titles", "edition", "TEXT"},
	{"titles", "format", "TEXT"},
	{"titles", "physical_availability", "TEXT"},
	{"titles", "online_availability", "TEXT"},
	{"titles", "is_article", "INTEGER NOT NULL DEFAULT 0"},
	{"titles", "identity_key", "TEXT"},
}

// uniqueIndexes are created when the existing data allows; otherwise a
// plain index of the same columns is created.
var uniqueIndexes = []struct {
	name, fallback, table, columns string
}{
	{"ux_titles_identity", "idx_titles_identity", "titles", "identity_key"},
	{"ux_title_subject", "idx_title_subject", "title_subject", "title_id, subject_id"},
	{"ux_acquisitions_title", "idx_acquisitions_title", "acquisitions", "title_id"},
}

// MigrationReport describes what Migrate changed.
type MigrationReport struct {
	AddedColumns []string `json:"added_columns"`
	Backfilled   int      `json:"backfilled_keys"`
	Articles     int      `json:"flagged_articles"`
	Unique       []string `json:"unique_indexes"`
	NonUnique    []string `json:"non_unique_indexes"`
}

// Migrate adds missing optional columns, backfills identity keys and
// builds indexes. It never drops or rewrites existing data, and running it
// again is a no-op.
func (d *DB) Migrate(ctx context.Context) (*MigrationReport, error) {
	report := &MigrationReport{}

	for _, col := range optionalColumns {
		have, err := d.columns(ctx, col.table)
		if err != nil {
			return nil, err
		}
		if have[col.name] {
			continue
		}
		stmt := fmt.Sprintf("ALTER TABLE %s ADD COLUMN %s %s", col.table, col.name, col.decl)
		if _, err := d.db.ExecContext(ctx, stmt); err != nil {
			return nil, fmt.Errorf("adding column %s.%s: %w", col.table, col.name, err)
		}
		report.AddedColumns = append(report.AddedColumns, col.table+"."+col.name)

		if col.name == "is_article" {
			n, err := d.flagLegacyArticles(ctx)
			if err != nil {
				return nil, err
			}
			report.Articles = n
		}
	}

	n, err := d.backfillIdentityKeys(ctx)
	if err != nil {
		return nil, err
	}
	report.Backfilled = n

	for _, idx := range uniqueIndexes {
		unique, err := d.ensureIndex(ctx, idx.name, idx.fallback, idx.table, idx.columns)
		if err != nil {
			return nil, err
		}
		if unique {
			report.Unique = append(report.Unique, idx.name)
		} else {
			report.NonUnique = append(report.NonUnique, idx.fallback)
		}
		if idx.table == "titles" {
			d.uniqueKey = unique
		}
	}
	return report, nil
}

// columns returns the column names of table.
func (d *DB) columns(ctx context.Context, table string) (map[string]bool, error) {
	rows, err := d.db.QueryContext(ctx, fmt.Sprintf("PRAGMA table_info(%s)", table))
	if err != nil {
		return nil, fmt.Errorf("reading columns of %s: %w", table, err)
	}
	defer rows.Close()

	cols := make(map[string]bool)
	for rows.Next() {
		var (
			cid     int
			name    string
			ctype   string
			notnull int
			dflt    sql.NullString
			pk      int
		)
		if err := rows.Scan(&cid, &name, &ctype, &notnull, &dflt, &pk); err != nil {
			return nil, fmt.Errorf("scanning columns of %s: %w", table, err)
		}
		cols[name] = true
	}
	return cols, rows.Err()
}

// flagLegacyArticles marks titles whose publisher holds a link. It runs
// once, when is_article is first added; afterwards the stored flag is the
// only source of truth.
func (d *DB) flagLegacyArticles(ctx context.Context) (int, error) {
	res, err := d.db.ExecContext(ctx, `
		UPDATE titles SET is_article = 1
		WHERE lower(publisher) LIKE '%http%' OR lower(publisher) LIKE '%www%'`)
	if err != nil {
		return 0, fmt.Errorf("flagging legacy articles: %w", err)
	}
	n, err := res.RowsAffected()
	return int(n), err
}

// backfillIdentityKeys computes identity_key for rows that lack one.
func (d *DB) backfillIdentityKeys(ctx context.Context) (int, error) {
	rows, err := d.db.QueryContext(ctx, `
		SELECT id, COALESCE(normalized_author, ''), COALESCE(normalized_title, '')
		FROM titles WHERE identity_key IS NULL OR identity_key = ''`)
	if err != nil {
		return 0, fmt.Errorf("selecting titles without keys: %w", err)
	}

	type pending struct {
		id  int64
		key string
	}
	var todo []pending
	for rows.Next() {
		var p pending
		var author, title string
		if err := rows.Scan(&p.id, &author, &title); err != nil {
			rows.Close()
			return 0, fmt.Errorf("scanning title: %w", err)
		}
		p.key = normalize.Key(author, title)
		todo = append(todo, p)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return 0, err
	}

	for _, p := range todo {
		if _, err := d.db.ExecContext(ctx, "UPDATE titles SET identity_key = ? WHERE id = ?", p.key, p.id); err != nil {
			return 0, fmt.Errorf("backfilling key for title %d: %w", p.id, err)
		}
	}
	return len(todo), nil
}

// ensureIndex creates the unique index, or the plain fallback when
// existing rows violate uniqueness. It reports whether the unique index
// is in place.
func (d *DB) ensureIndex(ctx context.Context, name, fallback, table, columns string) (bool, error) {
	var existing string
	err := d.db.QueryRowContext(ctx,
		"SELECT name FROM sqlite_master WHERE type = 'index' AND name = ?", name).Scan(&existing)
	if err == nil {
		return true, nil
	}
	if err != sql.ErrNoRows {
		return false, fmt.Errorf("checking index %s: %w", name, err)
	}

	_, err = d.db.ExecContext(ctx, fmt.Sprintf("CREATE UNIQUE INDEX %s ON %s(%s)", name, table, columns))
	if err == nil {
		return true, nil
	}
	if !IsUniqueViolation(err) {
		return false, fmt.Errorf("creating index %s: %w", name, err)
	}

	if _, err := d.db.ExecContext(ctx, fmt.Sprintf("CREATE INDEX IF NOT EXISTS %s ON %s(%s)", fallback, table, columns)); err != nil {
		return false, fmt.Errorf("creating index %s: %w", fallback, err)
	}
	return false, nil
}
