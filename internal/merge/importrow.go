package merge

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/matsen/bibcat/internal/reference"
	"github.com/matsen/bibcat/internal/storage"
)

// Entry is a fully described title from an external source such as a
// previously generated report. No catalog lookup is made for it.
type Entry struct {
	Ref     reference.SubjectRef
	Raw     reference.RawReference
	Kind    reference.Kind
	Edition string
	Format  string

	PhysicalAvailability string
	OnlineAvailability   string

	Printed bool
	Digital bool
}

// Import records e merge-only: an entry whose identity key exists is linked
// to its subject and otherwise left alone (Created false); a new one is
// stored with an acquisition built from its Printed and Digital flags.
func (e *Engine) Import(ctx context.Context, entry Entry) (Outcome, error) {
	pair := e.normalizer().Normalize(ctx, entry.Raw.Author, entry.Raw.Title)

	var out Outcome
	err := e.DB.WithTx(ctx, func(tx *storage.Tx) error {
		_, subject, err := tx.ResolveSubject(ctx, entry.Ref)
		if err != nil {
			return err
		}

		existing, err := tx.FindTitleByKey(ctx, pair.Key())
		switch {
		case err == nil:
			out.Title = *existing
		case errors.Is(err, storage.ErrNotFound):
			title := reference.Title{
				NormalizedAuthor:     pair.Author,
				NormalizedTitle:      pair.Title,
				OriginalAuthor:       entry.Raw.Author,
				OriginalTitle:        entry.Raw.Title,
				Year:                 strings.TrimSpace(entry.Raw.Year),
				PublisherOrURL:       entry.Raw.PublisherOrURL(),
				Edition:              strings.TrimSpace(entry.Edition),
				Format:               strings.TrimSpace(entry.Format),
				PhysicalAvailability: strings.TrimSpace(entry.PhysicalAvailability),
				OnlineAvailability:   strings.TrimSpace(entry.OnlineAvailability),
				Kind:                 entry.Kind,
				Article:              entry.Raw.IsArticle(),
			}
			stored, created, err := tx.InsertTitle(ctx, &title)
			if err != nil {
				return err
			}
			out.Title, out.Created = *stored, created
			if created {
				acq := reference.NewAcquisition(stored.ID, entry.Printed, entry.Digital)
				if err := tx.InsertAcquisition(ctx, &acq); err != nil {
					return err
				}
			}
		default:
			return err
		}

		out.Linked, err = tx.Associate(ctx, out.Title.ID, subject.ID)
		return err
	})
	if err != nil {
		return Outcome{}, fmt.Errorf("importing %q: %w", entry.Raw.Title, err)
	}
	return out, nil
}
