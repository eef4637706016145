package report

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/matsen/bibcat/internal/logger"
)

// ErrWriteExhausted is returned when every write attempt failed.
var ErrWriteExhausted = errors.New("report could not be written")

// bom is the UTF-8 byte-order mark spreadsheet tools expect.
const bom = "\ufeff"

// Writer writes reports to a fixed path, falling back to
// timestamp-suffixed names when the path cannot be written.
type Writer struct {
	Path     string
	Attempts int
	Backoff  time.Duration
	Log      *logger.Logger

	// Overridable for tests.
	Create func(name string) (io.WriteCloser, error)
	Now    func() time.Time
	Sleep  func(time.Duration)
}

// NewWriter returns a Writer with 3 attempts and a 2 s backoff.
func NewWriter(path string) *Writer {
	return &Writer{Path: path, Attempts: 3, Backoff: 2 * time.Second}
}

// Write writes rows and returns the name actually written.
func (w *Writer) Write(rows []Row) (string, error) {
	create := w.Create
	if create == nil {
		create = func(name string) (io.WriteCloser, error) { return os.Create(name) }
	}
	now := w.Now
	if now == nil {
		now = time.Now
	}
	sleep := w.Sleep
	if sleep == nil {
		sleep = time.Sleep
	}
	log := w.Log
	if log == nil {
		log = logger.Nop()
	}
	attempts := w.Attempts
	if attempts < 1 {
		attempts = 1
	}

	name := w.Path
	var lastErr error
	for i := 1; i <= attempts; i++ {
		if i > 1 {
			sleep(w.Backoff)
			name = suffixed(w.Path, now())
		}
		lastErr = writeFile(create, name, rows)
		if lastErr == nil {
			log.Info("report written", "path", name, "rows", len(rows), "attempt", i)
			return name, nil
		}
		log.Warn("report write failed", "path", name, "attempt", i, "of", attempts, "error", lastErr)
	}
	return "", fmt.Errorf("%w after %d attempts: %v", ErrWriteExhausted, attempts, lastErr)
}

// suffixed returns path with a _YYYYMMDD_HHMMSS suffix before the extension.
func suffixed(path string, t time.Time) string {
	ext := filepath.Ext(path)
	return strings.TrimSuffix(path, ext) + "_" + t.Format("20060102_150405") + ext
}

func writeFile(create func(string) (io.WriteCloser, error), name string, rows []Row) (err error) {
	f, err := create(name)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := f.Close(); err == nil {
			err = cerr
		}
	}()
	return Encode(f, rows)
}

// Encode writes the BOM, the header and rows as semicolon-delimited CSV.
func Encode(out io.Writer, rows []Row) error {
	if _, err := io.WriteString(out, bom); err != nil {
		return err
	}
	cw := csv.NewWriter(out)
	cw.Comma = ';'
	if err := cw.Write(Columns); err != nil {
		return err
	}
	for _, r := range rows {
		if err := cw.Write(r.Record()); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}
