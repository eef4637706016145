package pipeline

import (
	"context"
	"fmt"

	"github.com/matsen/bibcat/internal/language"
	"github.com/matsen/bibcat/internal/logger"
	"github.com/matsen/bibcat/internal/report"
	"github.com/matsen/bibcat/internal/storage"
)

// ReportResult names the file a report was written to.
type ReportResult struct {
	Path string `json:"path"`
	Rows int    `json:"rows"`
}

// WriteReport builds the consolidated report from db and writes it with w.
func WriteReport(ctx context.Context, db *storage.DB, detector language.Detector, w *report.Writer, log *logger.Logger) (*ReportResult, error) {
	gen := &report.Generator{Store: db, Detector: detector, Log: log}
	rows, err := gen.Rows(ctx)
	if err != nil {
		return nil, fmt.Errorf("building report: %w", err)
	}
	path, err := w.Write(rows)
	if err != nil {
		return nil, err
	}
	return &ReportResult{Path: path, Rows: len(rows)}, nil
}

// Notify lists, per career, the titles with an available acquisition and
// logs one notice per career.
func Notify(ctx context.Context, db *storage.DB, log *logger.Logger) ([]storage.CareerTitles, error) {
	if log == nil {
		log = logger.Nop()
	}
	groups, err := db.AvailableByCareer(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing available titles: %w", err)
	}
	for _, g := range groups {
		titles := make([]string, 0, len(g.Titles))
		for _, t := range g.Titles {
			titles = append(titles, fmt.Sprintf("%s de %s", t.NormalizedTitle, t.NormalizedAuthor))
		}
		log.Info("notifying career of available titles", "career", g.Career.Name, "titles", titles)
	}
	return groups, nil
}
