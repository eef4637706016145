package report

import (
	"context"
	"strconv"

	"github.com/matsen/bibcat/internal/language"
	"github.com/matsen/bibcat/internal/logger"
	"github.com/matsen/bibcat/internal/reference"
	"github.com/matsen/bibcat/internal/storage"
)

// Row is one report line.
type Row struct {
	Faculty       string
	Career        string
	Subject       string
	Author        string
	Title         string
	Edition       string
	Publisher     string
	Year          string
	Language      string
	Kind          reference.Kind
	Format        string
	Printed       int
	Digital       int
	Basic         int
	Complementary int
	Link          string
	InLibrary     int
}

// Record renders the row in Columns order.
func (r Row) Record() []string {
	rec := make([]string, len(Columns))
	set := func(col, v string) {
		for i, c := range Columns {
			if c == col {
				rec[i] = v
				return
			}
		}
	}
	set(ColFaculty, r.Faculty)
	set(ColCareer, r.Career)
	set(ColSubject, r.Subject)
	set(ColAuthor, r.Author)
	set(ColTitle, r.Title)
	set(ColEdition, r.Edition)
	set(ColPublisher, r.Publisher)
	set(ColYear, r.Year)
	set(ColLanguage, r.Language)
	set(ColKind, string(r.Kind))
	set(ColFormat, r.Format)
	set(ColPrinted, strconv.Itoa(r.Printed))
	set(ColDigital, strconv.Itoa(r.Digital))
	set(ColBasic, strconv.Itoa(r.Basic))
	set(ColComplementary, strconv.Itoa(r.Complementary))
	set(ColLink, r.Link)
	set(ColRequested, "1")
	set(ColInLibrary, strconv.Itoa(r.InLibrary))
	return rec
}

// Source is the read side of the store the generator needs.
type Source interface {
	Rows(ctx context.Context) ([]storage.Row, error)
}

// Generator builds report rows from the store.
type Generator struct {
	Store    Source
	Detector language.Detector
	Log      *logger.Logger
}

// Rows returns one Row per (career, subject, title) in store order.
// Language detection is cached per title for the duration of the call.
func (g *Generator) Rows(ctx context.Context) ([]Row, error) {
	stored, err := g.Store.Rows(ctx)
	if err != nil {
		return nil, err
	}

	detector := g.Detector
	if detector == nil {
		detector = language.Heuristic{}
	}
	detector = language.NewCached(detector)

	out := make([]Row, 0, len(stored))
	for _, s := range stored {
		out = append(out, g.row(ctx, detector, s))
	}
	if g.Log != nil {
		g.Log.Info("report rows built", "rows", len(out))
	}
	return out, nil
}

func (g *Generator) row(ctx context.Context, detector language.Detector, s storage.Row) Row {
	t := s.Title
	r := Row{
		Faculty:   s.Career.Faculty,
		Career:    s.Career.Name,
		Subject:   s.Subject.Name,
		Author:    t.NormalizedAuthor,
		Title:     t.NormalizedTitle,
		Edition:   t.Edition,
		Publisher: t.PublisherOrURL,
		Year:      t.Year,
		Kind:      t.Kind,
		Format:    t.Format,
		Printed:   CopyCount(t.PhysicalAvailability),
		Digital:   OnlineFlag(t.OnlineAvailability),
		InLibrary: InLibrary(s.Acquisition),
	}
	if t.NormalizedTitle != "" {
		r.Language = detector.Detect(ctx, t.NormalizedTitle)
	}
	if t.Kind == reference.KindComplementary {
		r.Complementary = 1
	} else {
		r.Basic = 1
	}
	if t.Article {
		r.Link = t.PublisherOrURL
	}
	return r
}
