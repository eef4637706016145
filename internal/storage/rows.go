package storage

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/matsen/bibcat/internal/reference"
)

// Row is one (career, subject, title) triple with the title's acquisition.
type Row struct {
	Career      reference.Career
	Subject     reference.Subject
	Title       reference.Title
	Acquisition *reference.Acquisition
}

// Rows returns every linked triple ordered by career, subject and title id.
// Acquisition is the title's lowest-id acquisition, nil when it has none.
func (c conn) Rows(ctx context.Context) ([]Row, error) {
	rows, err := c.q.QueryContext(ctx, `
		SELECT c.id, c.name, c.facultad, s.id, s.name,
			t.id, t.normalized_author, t.normalized_title,
			t.original_author, t.original_title, t.year, t.publisher,
			t.edition, t.format, t.physical_availability, t.online_availability,
			t.type_bib, t.is_article,
			a.id, a.status, a.available_printed, a.available_digital
		FROM careers c
		JOIN subjects s ON s.career_id = c.id
		JOIN (SELECT DISTINCT title_id, subject_id FROM title_subject) ts ON ts.subject_id = s.id
		JOIN titles t ON t.id = ts.title_id
		LEFT JOIN acquisitions a ON a.id = (
			SELECT MIN(id) FROM acquisitions WHERE title_id = t.id
		)
		ORDER BY c.id, s.id, t.id`)
	if err != nil {
		return nil, fmt.Errorf("querying report rows: %w", err)
	}
	defer rows.Close()

	var out []Row
	for rows.Next() {
		var r Row
		var author, title, origAuthor, origTitle sql.NullString
		var year, publisher, edition, format, physical, online, kind sql.NullString
		var article sql.NullInt64
		var acqID sql.NullInt64
		var status sql.NullString
		var printed, digital sql.NullBool

		err := rows.Scan(&r.Career.ID, &r.Career.Name, &r.Career.Faculty, &r.Subject.ID, &r.Subject.Name,
			&r.Title.ID, &author, &title, &origAuthor, &origTitle, &year, &publisher,
			&edition, &format, &physical, &online, &kind, &article,
			&acqID, &status, &printed, &digital)
		if err != nil {
			return nil, fmt.Errorf("scanning report row: %w", err)
		}
		r.Subject.CareerID = r.Career.ID
		r.Title.NormalizedAuthor = author.String
		r.Title.NormalizedTitle = title.String
		r.Title.OriginalAuthor = origAuthor.String
		r.Title.OriginalTitle = origTitle.String
		r.Title.Year = year.String
		r.Title.PublisherOrURL = publisher.String
		r.Title.Edition = edition.String
		r.Title.Format = format.String
		r.Title.PhysicalAvailability = physical.String
		r.Title.OnlineAvailability = online.String
		r.Title.Kind = reference.ParseKind(kind.String)
		r.Title.Article = article.Int64 != 0
		if acqID.Valid {
			r.Acquisition = &reference.Acquisition{
				ID:               acqID.Int64,
				TitleID:          r.Title.ID,
				Status:           parseStatus(status.String),
				AvailablePrinted: printed.Bool,
				AvailableDigital: digital.Bool,
			}
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// CareerTitles lists the titles of one career.
type CareerTitles struct {
	Career reference.Career  `json:"career"`
	Titles []reference.Title `json:"titles"`
}

// AvailableByCareer returns, per career, the distinct titles whose
// acquisition status is available. Careers without any are omitted.
func (c conn) AvailableByCareer(ctx context.Context) ([]CareerTitles, error) {
	rows, err := c.Rows(ctx)
	if err != nil {
		return nil, err
	}

	var out []CareerTitles
	seen := make(map[[2]int64]bool)
	for _, r := range rows {
		if r.Acquisition == nil || r.Acquisition.Status != reference.StatusAvailable {
			continue
		}
		if seen[[2]int64{r.Career.ID, r.Title.ID}] {
			continue
		}
		seen[[2]int64{r.Career.ID, r.Title.ID}] = true
		if len(out) == 0 || out[len(out)-1].Career.ID != r.Career.ID {
			out = append(out, CareerTitles{Career: r.Career})
		}
		last := &out[len(out)-1]
		last.Titles = append(last.Titles, r.Title)
	}
	return out, nil
}
