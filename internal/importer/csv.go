// Package importer replays previously generated reports into the store.
package importer

import (
	"bufio"
	"bytes"
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/matsen/bibcat/internal/merge"
	"github.com/matsen/bibcat/internal/normalize"
	"github.com/matsen/bibcat/internal/reference"
	"github.com/matsen/bibcat/internal/report"
)

// Row is one parsed report line.
type Row struct {
	Line  int
	Entry merge.Entry
}

// RowError describes a line that cannot be imported.
type RowError struct {
	Line   int
	Reason string
}

func (e *RowError) Error() string {
	return fmt.Sprintf("line %d: %s", e.Line, e.Reason)
}

// aliases maps folded alternative header texts onto report columns.
var aliases = map[string]string{
	"autor":                                   report.ColAuthor,
	"titulo":                                  report.ColTitle,
	"editorial":                               report.ColPublisher,
	"editorial / volumen":                     report.ColPublisher,
	"tipo bibliografia":                       report.ColKind,
	"total de ejemplares en catalogo impreso": report.ColPrinted,
	"total de ejemplares en catalogo digital": report.ColDigital,
	"basica":                                  report.ColBasic,
}

// canonical maps a header cell onto its report column, or "" if unknown.
func canonical(header string) string {
	folded := normalize.Fold(strings.TrimPrefix(header, "\ufeff"))
	for _, col := range report.Columns {
		if normalize.Fold(col) == folded {
			return col
		}
	}
	return aliases[folded]
}

// ParseReport reads a semicolon-delimited report. A leading BOM is
// tolerated and header cells are matched after trimming and folding.
// Lines without author or title are returned as *RowError values.
func ParseReport(r io.Reader, defaultFaculty string) ([]Row, []error) {
	br := bufio.NewReader(r)
	if b, err := br.Peek(3); err == nil && bytes.Equal(b, []byte("\ufeff")) {
		br.Discard(3)
	}

	cr := csv.NewReader(br)
	cr.Comma = ';'
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true

	header, err := cr.Read()
	if err != nil {
		return nil, []error{fmt.Errorf("reading header: %w", err)}
	}
	index := make(map[string]int)
	for i, h := range header {
		if col := canonical(h); col != "" {
			if _, dup := index[col]; !dup {
				index[col] = i
			}
		}
	}
	for _, required := range []string{report.ColAuthor, report.ColTitle} {
		if _, ok := index[required]; !ok {
			return nil, []error{fmt.Errorf("header has no %q column", required)}
		}
	}

	var rows []Row
	var errs []error
	line := 1
	for {
		rec, err := cr.Read()
		if err == io.EOF {
			break
		}
		line++
		if err != nil {
			errs = append(errs, &RowError{Line: line, Reason: err.Error()})
			continue
		}
		if blank(rec) {
			continue
		}

		get := func(col string) string {
			i, ok := index[col]
			if !ok || i >= len(rec) {
				return ""
			}
			return strings.TrimSpace(rec[i])
		}

		row, rerr := toRow(line, get, defaultFaculty)
		if rerr != nil {
			errs = append(errs, rerr)
			continue
		}
		rows = append(rows, row)
	}
	return rows, errs
}

func toRow(line int, get func(string) string, defaultFaculty string) (Row, error) {
	author, title := get(report.ColAuthor), get(report.ColTitle)
	if author == "" || title == "" {
		return Row{}, &RowError{Line: line, Reason: "missing author or title"}
	}
	career, subject := get(report.ColCareer), get(report.ColSubject)
	if career == "" || subject == "" {
		return Row{}, &RowError{Line: line, Reason: "missing career or subject"}
	}
	faculty := get(report.ColFaculty)
	if faculty == "" {
		faculty = defaultFaculty
	}

	printed := count(get(report.ColPrinted))
	digital := count(get(report.ColDigital))

	raw := reference.RawReference{
		Author:    author,
		Title:     title,
		Year:      get(report.ColYear),
		Publisher: get(report.ColPublisher),
		Type:      "book",
	}
	if link := get(report.ColLink); isLink(link) {
		raw.URL = link
		raw.Type = "article"
	}

	entry := merge.Entry{
		Ref:     reference.SubjectRef{Career: career, Faculty: faculty, Subject: subject},
		Raw:     raw,
		Kind:    kind(get),
		Edition: get(report.ColEdition),
		Format:  get(report.ColFormat),
		Printed: printed > 0,
		Digital: digital > 0,
	}
	if printed > 0 {
		entry.PhysicalAvailability = fmt.Sprintf("%d copias", printed)
	}
	if digital > 0 {
		entry.OnlineAvailability = reference.OnlinePhrase
	}
	return Row{Line: line, Entry: entry}, nil
}

// kind prefers the 0/1 flag columns and falls back to the kind text.
func kind(get func(string) string) reference.Kind {
	switch {
	case count(get(report.ColBasic)) == 1:
		return reference.KindBasic
	case count(get(report.ColComplementary)) == 1:
		return reference.KindComplementary
	}
	return reference.ParseKind(get(report.ColKind))
}

// count parses "16" or spreadsheet floats like "16.0"; anything else is 0.
func count(s string) int {
	if s == "" {
		return 0
	}
	if n, err := strconv.Atoi(s); err == nil {
		return n
	}
	if f, err := strconv.ParseFloat(strings.Replace(s, ",", ".", 1), 64); err == nil {
		return int(f)
	}
	return 0
}

func isLink(s string) bool {
	s = strings.ToLower(s)
	return strings.Contains(s, "http") || strings.Contains(s, "www")
}

func blank(rec []string) bool {
	for _, v := range rec {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}
