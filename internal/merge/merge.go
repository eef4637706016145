// Package merge decides, for each incoming reference, whether it is a new
// title or one already in the store, and records it against the
// requesting subject.
package merge

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/matsen/bibcat/internal/catalog"
	"github.com/matsen/bibcat/internal/logger"
	"github.com/matsen/bibcat/internal/normalize"
	"github.com/matsen/bibcat/internal/reference"
	"github.com/matsen/bibcat/internal/storage"
)

// Outcome describes what Merge did with one reference.
type Outcome struct {
	Title reference.Title `json:"title"`

	// Created is true when a new title was stored; false means an
	// existing title was reused unchanged.
	Created bool `json:"created"`

	// Linked is true when the subject association was new.
	Linked bool `json:"linked"`

	LookedUp bool `json:"looked_up"`
	Found    bool `json:"found"`
}

// Engine merges references into the store.
type Engine struct {
	DB         *storage.DB
	Normalizer *normalize.Normalizer
	Catalog    catalog.Finder

	// CatalogImpliesDigital marks every title found in the catalog as
	// digitally available, not only those with an electronic format.
	CatalogImpliesDigital bool

	Log *logger.Logger
}

// New returns an Engine with local normalization, no catalog and the
// found-implies-digital rule enabled.
func New(db *storage.DB) *Engine {
	return &Engine{
		DB:                    db,
		Normalizer:            normalize.Local,
		Catalog:               catalog.Offline{},
		CatalogImpliesDigital: true,
		Log:                   logger.Nop(),
	}
}

func (e *Engine) log() *logger.Logger {
	if e.Log == nil {
		return logger.Nop()
	}
	return e.Log
}

func (e *Engine) normalizer() *normalize.Normalizer {
	if e.Normalizer == nil {
		return normalize.Local
	}
	return e.Normalizer
}

// Merge records raw as requested by ref with the given bibliography kind.
//
// A reference whose identity key already exists is only linked to the
// subject; the stored title is never modified. Otherwise books are looked
// up in the catalog before anything is written, and the title, its
// acquisition and the link are written in one transaction.
func (e *Engine) Merge(ctx context.Context, ref reference.SubjectRef, raw reference.RawReference, kind reference.Kind) (Outcome, error) {
	log := e.log().With("subject", ref.Subject, "title", raw.Title)
	pair := e.normalizer().Normalize(ctx, raw.Author, raw.Title)

	existing, err := e.DB.FindTitleByKey(ctx, pair.Key())
	if err == nil {
		out := Outcome{Title: *existing}
		err = e.DB.WithTx(ctx, func(tx *storage.Tx) error {
			_, subject, err := tx.ResolveSubject(ctx, ref)
			if err != nil {
				return err
			}
			out.Linked, err = tx.Associate(ctx, existing.ID, subject.ID)
			return err
		})
		if err != nil {
			return Outcome{}, fmt.Errorf("linking existing title %d: %w", existing.ID, err)
		}
		log.Debug("duplicate title reused", "title_id", existing.ID, "linked", out.Linked)
		return out, nil
	}
	if !errors.Is(err, storage.ErrNotFound) {
		return Outcome{}, fmt.Errorf("checking identity: %w", err)
	}

	out := Outcome{}
	title := reference.Title{
		NormalizedAuthor: pair.Author,
		NormalizedTitle:  pair.Title,
		OriginalAuthor:   raw.Author,
		OriginalTitle:    raw.Title,
		Year:             strings.TrimSpace(raw.Year),
		PublisherOrURL:   raw.PublisherOrURL(),
		Kind:             kind,
		Article:          raw.IsArticle(),
	}

	var printed, digital bool
	if title.Article {
		digital = true
		title.OnlineAvailability = reference.OnlinePhrase
	} else {
		out.LookedUp = true
		if rec, ok := e.Catalog.Find(ctx, catalog.SearchTerm(pair.Title, pair.Author)); ok {
			out.Found = true
			e.enrich(ctx, &title, rec)
			printed = true
			digital = e.CatalogImpliesDigital || rec.HasDigitalFormat() || title.OnlineAvailability == reference.OnlinePhrase
		}
	}

	err = e.DB.WithTx(ctx, func(tx *storage.Tx) error {
		_, subject, err := tx.ResolveSubject(ctx, ref)
		if err != nil {
			return err
		}
		stored, created, err := tx.InsertTitle(ctx, &title)
		if err != nil {
			return err
		}
		out.Title, out.Created = *stored, created

		if created {
			acq := reference.NewAcquisition(stored.ID, printed, digital)
			if err := tx.InsertAcquisition(ctx, &acq); err != nil {
				return err
			}
		}
		out.Linked, err = tx.Associate(ctx, stored.ID, subject.ID)
		return err
	})
	if err != nil {
		return Outcome{}, fmt.Errorf("storing %q: %w", title.NormalizedTitle, err)
	}

	if out.Created {
		log.Info("title created", "title_id", out.Title.ID, "article", title.Article, "found", out.Found,
			"printed", printed, "digital", digital)
	} else {
		log.Info("catalog form matches existing title", "title_id", out.Title.ID)
	}
	return out, nil
}

// enrich overwrites the title's names with the catalog's normalized forms
// and copies every metadata field the record carries.
func (e *Engine) enrich(ctx context.Context, t *reference.Title, rec *catalog.Record) {
	pair := e.normalizer().Normalize(ctx, rec.Author, rec.Title)
	t.NormalizedAuthor = pair.Author
	t.NormalizedTitle = pair.Title
	t.OriginalAuthor = rec.Author
	t.OriginalTitle = rec.Title

	copyIfPresent(&t.PublisherOrURL, rec.Publisher)
	copyIfPresent(&t.Year, rec.CreationDate)
	copyIfPresent(&t.Edition, rec.Edition)
	copyIfPresent(&t.Format, rec.Format)
	copyIfPresent(&t.PhysicalAvailability, rec.PhysicalAvailability)
	if strings.TrimSpace(rec.OnlineAvailability) != "" {
		t.OnlineAvailability = strings.TrimSpace(rec.OnlineAvailability)
	} else {
		t.OnlineAvailability = reference.InCatalogPhrase
	}
}

func copyIfPresent(dst *string, v string) {
	if v = strings.TrimSpace(v); v != "" {
		*dst = v
	}
}
