package importer

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/matsen/bibcat/internal/logger"
	"github.com/matsen/bibcat/internal/merge"
)

// Result tallies one import.
type Result struct {
	Created int      `json:"created"`
	Skipped int      `json:"skipped"`
	Invalid int      `json:"invalid"`
	Errors  []string `json:"errors,omitempty"`
}

// Importer replays report rows through the merge engine.
type Importer struct {
	Engine         *merge.Engine
	DefaultFaculty string
	Log            *logger.Logger
}

// ImportFile imports the report at path.
func (im *Importer) ImportFile(ctx context.Context, path string) (Result, error) {
	f, err := os.Open(path)
	if err != nil {
		return Result{}, fmt.Errorf("opening %s: %w", path, err)
	}
	defer f.Close()
	return im.Import(ctx, f)
}

// Import imports every valid row of r. Bad rows and failed writes are
// tallied and do not stop the import; only an unreadable header does.
func (im *Importer) Import(ctx context.Context, r io.Reader) (Result, error) {
	log := im.Log
	if log == nil {
		log = logger.Nop()
	}

	rows, errs := ParseReport(r, im.DefaultFaculty)
	var res Result
	for _, err := range errs {
		var rowErr *RowError
		if !errors.As(err, &rowErr) {
			return Result{}, err
		}
		res.Invalid++
		res.Errors = append(res.Errors, rowErr.Error())
		log.Warn("import row skipped", "line", rowErr.Line, "reason", rowErr.Reason)
	}

	for _, row := range rows {
		out, err := im.Engine.Import(ctx, row.Entry)
		if err != nil {
			res.Errors = append(res.Errors, fmt.Sprintf("line %d: %v", row.Line, err))
			log.Error("import row failed", "line", row.Line, "error", err)
			continue
		}
		if out.Created {
			res.Created++
		} else {
			res.Skipped++
			log.Debug("duplicate title skipped", "line", row.Line, "title_id", out.Title.ID)
		}
	}

	log.Info("import finished", "created", res.Created, "skipped", res.Skipped,
		"invalid", res.Invalid, "errors", len(res.Errors)-res.Invalid)
	return res, nil
}
