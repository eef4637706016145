// Package pipeline runs syllabus documents through extraction, merging
// and reporting, one document and one reference at a time.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/blake2b"
	"golang.org/x/sync/semaphore"

	"github.com/matsen/bibcat/internal/extract"
	"github.com/matsen/bibcat/internal/logger"
	"github.com/matsen/bibcat/internal/merge"
	"github.com/matsen/bibcat/internal/pdf"
	"github.com/matsen/bibcat/internal/reference"
	"github.com/matsen/bibcat/internal/storage"
)

// ErrBusy is returned when a run is already in flight.
var ErrBusy = errors.New("a processing run is already in progress")

// ProgressReporter receives progress updates during a run.
type ProgressReporter interface {
	OnProgress(current, total int, path string)
}

// ProgressFunc is a function adapter for ProgressReporter.
type ProgressFunc func(current, total int, path string)

// OnProgress implements ProgressReporter.
func (f ProgressFunc) OnProgress(current, total int, path string) {
	f(current, total, path)
}

// Options select the career the documents are filed under.
type Options struct {
	Career  string
	Faculty string
}

// Stats summarizes one run.
type Stats struct {
	RunID       string        `json:"run_id"`
	Documents   int           `json:"documents"`
	Skipped     int           `json:"skipped"`
	Reprocessed int           `json:"reprocessed"`
	References  int           `json:"references"`
	Created     int           `json:"created"`
	Reused      int           `json:"reused"`
	Failed      int           `json:"failed"`
	Errors      []string      `json:"errors,omitempty"`
	Duration    time.Duration `json:"duration"`
}

// Runner processes documents against one store. Only one Run may be in
// flight at a time.
type Runner struct {
	DB        *storage.DB
	Engine    *merge.Engine
	Extractor extract.Extractor

	// Text extracts a document's text; defaults to pdf.ExtractText.
	Text func(path string) (string, error)

	Defaults Options
	Log      *logger.Logger

	progress ProgressReporter
	sem      *semaphore.Weighted
	status   tracker
}

// NewRunner creates a runner for db.
func NewRunner(db *storage.DB, engine *merge.Engine, extractor extract.Extractor) *Runner {
	return &Runner{
		DB:        db,
		Engine:    engine,
		Extractor: extractor,
		Text:      pdf.ExtractText,
		Log:       logger.Nop(),
		sem:       semaphore.NewWeighted(1),
	}
}

// SetProgressReporter sets the progress reporter for the runner.
func (r *Runner) SetProgressReporter(p ProgressReporter) {
	r.progress = p
}

// Start reserves the runner and returns the new run's id. The caller
// must follow up with Execute; ErrBusy means another run holds it.
func (r *Runner) Start() (string, error) {
	if !r.sem.TryAcquire(1) {
		return "", ErrBusy
	}
	id := uuid.NewString()
	r.status.begin(id)
	return id, nil
}

// Reserve holds the store for a writer other than a run, such as a
// report import. It returns ErrBusy while a run or another reservation
// is in flight; release must be called exactly once.
func (r *Runner) Reserve() (release func(), err error) {
	if !r.sem.TryAcquire(1) {
		return nil, ErrBusy
	}
	var once sync.Once
	return func() { once.Do(func() { r.sem.Release(1) }) }, nil
}

// Execute processes paths under the run reserved by Start and releases it.
func (r *Runner) Execute(ctx context.Context, runID string, paths []string, opts Options) (*Stats, error) {
	defer r.sem.Release(1)
	stats, err := r.process(ctx, runID, paths, r.resolve(opts))
	r.status.finish(stats, err)
	return stats, err
}

// Run processes paths in order. It returns ErrBusy if another run is in
// flight. Documents and references that fail are counted and skipped;
// only cancellation ends a run early.
func (r *Runner) Run(ctx context.Context, paths []string, opts Options) (*Stats, error) {
	id, err := r.Start()
	if err != nil {
		return nil, err
	}
	return r.Execute(ctx, id, paths, opts)
}

// Status reports the current or last run.
func (r *Runner) Status() RunStatus {
	return r.status.snapshot()
}

func (r *Runner) resolve(opts Options) Options {
	if opts.Career == "" {
		opts.Career = r.Defaults.Career
	}
	if opts.Faculty == "" {
		opts.Faculty = r.Defaults.Faculty
	}
	return opts
}

func (r *Runner) log() *logger.Logger {
	if r.Log == nil {
		return logger.Nop()
	}
	return r.Log
}

func (r *Runner) process(ctx context.Context, runID string, paths []string, opts Options) (*Stats, error) {
	start := time.Now()
	stats := &Stats{RunID: runID}
	log := r.log().With("run_id", runID)
	log.Info("run started", "documents", len(paths), "career", opts.Career, "faculty", opts.Faculty)

	for i, path := range paths {
		select {
		case <-ctx.Done():
			stats.Duration = time.Since(start)
			return stats, ctx.Err()
		default:
		}

		if r.progress != nil {
			r.progress.OnProgress(i+1, len(paths), path)
		}
		r.status.progress(i+1, len(paths), path)

		if err := r.document(ctx, runID, path, opts, stats, log.With("document", filepath.Base(path))); err != nil {
			if ctx.Err() != nil {
				stats.Duration = time.Since(start)
				return stats, ctx.Err()
			}
			stats.Skipped++
			stats.Errors = append(stats.Errors, fmt.Sprintf("%s: %v", filepath.Base(path), err))
		}
	}

	stats.Duration = time.Since(start)
	log.Info("run finished",
		"documents", stats.Documents, "skipped", stats.Skipped,
		"references", stats.References, "created", stats.Created,
		"reused", stats.Reused, "failed", stats.Failed, "duration", stats.Duration)
	return stats, nil
}

// document processes one file. A returned error means the document was
// skipped as a whole.
func (r *Runner) document(ctx context.Context, runID, path string, opts Options, stats *Stats, log *logger.Logger) error {
	text, err := r.Text(path)
	if err != nil {
		log.Warn("text extraction failed", "error", err)
		return err
	}

	fingerprint := Fingerprint(text)
	switch prev, err := r.DB.LastDocument(ctx, fingerprint); {
	case err == nil:
		stats.Reprocessed++
		log.Info("document already processed", "previous_run", prev.RunID, "processed_at", prev.ProcessedAt)
	case !errors.Is(err, storage.ErrNotFound):
		return err
	}

	subj, err := r.Extractor.Subject(ctx, text)
	if err != nil {
		log.Warn("subject extraction failed", "error", err)
		return fmt.Errorf("extracting subject: %w", err)
	}
	info, ok := subj.Get()
	if !ok {
		log.Warn("could not extract subject, skipping document", "response", subj.Raw())
		return errors.New("subject could not be extracted")
	}
	if info.Career != "" && info.Career != opts.Career {
		log.Debug("ignoring extracted career", "extracted", info.Career, "using", opts.Career)
	}

	ref := reference.SubjectRef{Career: opts.Career, Faculty: opts.Faculty, Subject: info.Subject}
	_, subject, err := r.DB.ResolveSubject(ctx, ref)
	if err != nil {
		return err
	}

	var bib reference.Bibliography
	refs, err := r.Extractor.References(ctx, text)
	if err != nil {
		log.Warn("bibliography extraction failed, treating as empty", "error", err)
	} else {
		refs.Match(
			func(b reference.Bibliography) { bib = b },
			func(raw string) { log.Warn("bibliography unparseable, treating as empty", "response", raw) },
		)
	}

	stats.Documents++
	found := 0
	for _, group := range []struct {
		kind reference.Kind
		refs []reference.RawReference
	}{
		{reference.KindBasic, bib.Basic},
		{reference.KindComplementary, bib.Complementary},
	} {
		for _, raw := range group.refs {
			if err := ctx.Err(); err != nil {
				return err
			}
			found++
			stats.References++
			out, err := r.Engine.Merge(ctx, ref, raw, group.kind)
			if err != nil {
				stats.Failed++
				stats.Errors = append(stats.Errors, fmt.Sprintf("%s: %v", filepath.Base(path), err))
				log.Error("reference failed", "title", raw.Title, "error", err)
				continue
			}
			if out.Created {
				stats.Created++
			} else {
				stats.Reused++
			}
		}
	}

	doc := &storage.Document{
		Fingerprint:     fingerprint,
		Path:            path,
		SubjectID:       subject.ID,
		RunID:           runID,
		ReferencesFound: found,
	}
	if err := r.DB.RecordDocument(ctx, doc); err != nil {
		log.Warn("recording document failed", "error", err)
	}
	log.Info("document processed", "subject", info.Subject, "references", found)
	return nil
}

// Fingerprint returns the hex BLAKE2b-256 digest of a document's text.
func Fingerprint(text string) string {
	sum := blake2b.Sum256([]byte(text))
	return fmt.Sprintf("%x", sum[:])
}
