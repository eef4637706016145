// Package extract turns syllabus text into a subject and a bibliography
// using a language model.
package extract

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/matsen/bibcat/internal/llm"
	"github.com/matsen/bibcat/internal/reference"
)

// subjectWindow is how much of the document is sent for subject detection.
const subjectWindow = 1000

// Section headings, lower-case.
const (
	basicHeading         = "bibliografía básica"
	complementaryHeading = "bibliografía complementaria"
)

// SubjectInfo names the course a syllabus belongs to.
type SubjectInfo struct {
	Subject string `json:"subject"`
	Career  string `json:"career"`
}

// Extractor is the reference-extraction capability.
type Extractor interface {
	Subject(ctx context.Context, text string) (llm.Result[SubjectInfo], error)
	References(ctx context.Context, text string) (llm.Result[reference.Bibliography], error)
}

// LLM extracts with a language model.
type LLM struct {
	Model llm.Completer
}

// New returns an LLM extractor.
func New(model llm.Completer) *LLM {
	return &LLM{Model: model}
}

const subjectPrompt = `Del siguiente texto de un programa de asignatura, extrae el nombre de la
asignatura (suele ir tras "Nombre de la Asignatura:" o similar) y el de la
carrera (en el encabezado: "Grado en", "Diplomatura en", "Doctorado en"...).

Responde solo con JSON: {"subject": "Nombre de la Asignatura", "career": "Nombre de la Carrera"}

Texto:
%s`

// Subject extracts the subject and career from the head of the document.
// A parsed answer without a subject name is reported as unparseable.
func (e *LLM) Subject(ctx context.Context, text string) (llm.Result[SubjectInfo], error) {
	res, err := llm.AskJSON[SubjectInfo](ctx, e.Model, fmt.Sprintf(subjectPrompt, head(text, subjectWindow)), 200)
	if err != nil {
		return res, err
	}
	if info, ok := res.Get(); ok {
		info.Subject = strings.TrimSpace(info.Subject)
		info.Career = strings.TrimSpace(info.Career)
		if info.Subject == "" {
			return llm.Unparseable[SubjectInfo](res.Raw()), nil
		}
		return llm.Parsed(info, res.Raw()), nil
	}
	return res, nil
}

const referencesPrompt = `Extrae la bibliografía del texto siguiente, dividida en "Bibliografía básica"
y "Bibliografía complementaria".

Distingue libros de artículos web:
- con URL (http://, https://, www.) es un artículo: type="article"
- con editorial, ISBN o formato de libro es un libro: type="book"

Para cada entrada indica author, year, title, publisher (si aplica), url (si aplica) y type.

Responde solo con JSON:
{
  "basic": [{"author": "...", "year": "2020", "title": "...", "publisher": "...", "type": "book"}],
  "complementary": [{"author": "...", "year": "2011", "title": "...", "url": "http://...", "type": "article"}]
}

Texto:
%s`

// References extracts the bibliography from the document's bibliography
// section.
func (e *LLM) References(ctx context.Context, text string) (llm.Result[reference.Bibliography], error) {
	prompt := fmt.Sprintf(referencesPrompt, BibliographySection(text))
	res, err := llm.AskJSON[looseBibliography](ctx, e.Model, prompt, 2000)
	if err != nil {
		return llm.Unparseable[reference.Bibliography](res.Raw()), err
	}
	loose, ok := res.Get()
	if !ok {
		return llm.Unparseable[reference.Bibliography](res.Raw()), nil
	}
	return llm.Parsed(loose.bibliography(), res.Raw()), nil
}

// BibliographySection returns the basic and complementary bibliography
// sections of text, or the whole text when neither heading is present.
func BibliographySection(text string) string {
	lower := strings.ToLower(text)
	// ToLower can change byte lengths; fall back to the whole text then.
	if len(lower) != len(text) {
		return text
	}

	var b strings.Builder
	basic := strings.Index(lower, basicHeading)
	comp := strings.Index(lower, complementaryHeading)
	if basic >= 0 {
		end := len(text)
		if c := strings.Index(lower[basic:], complementaryHeading); c >= 0 {
			end = basic + c
		}
		b.WriteString(text[basic:end])
	}
	if comp >= 0 {
		b.WriteString(text[comp:])
	}
	if b.Len() == 0 {
		return text
	}
	return b.String()
}

// head returns at most n runes of s.
func head(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	return string([]rune(s)[:n])
}

// looseBibliography accepts years and other fields as numbers or null.
type looseBibliography struct {
	Basic         []looseReference `json:"basic"`
	Complementary []looseReference `json:"complementary"`
}

type looseReference struct {
	Author    looseString `json:"author"`
	Title     looseString `json:"title"`
	Year      looseString `json:"year"`
	Publisher looseString `json:"publisher"`
	URL       looseString `json:"url"`
	Type      looseString `json:"type"`
}

func (b looseBibliography) bibliography() reference.Bibliography {
	return reference.Bibliography{
		Basic:         convert(b.Basic),
		Complementary: convert(b.Complementary),
	}
}

func convert(in []looseReference) []reference.RawReference {
	out := make([]reference.RawReference, 0, len(in))
	for _, r := range in {
		out = append(out, reference.RawReference{
			Author:    string(r.Author),
			Title:     string(r.Title),
			Year:      string(r.Year),
			Publisher: string(r.Publisher),
			URL:       string(r.URL),
			Type:      string(r.Type),
		})
	}
	return out
}

type looseString string

func (s *looseString) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	switch {
	case bytes.Equal(data, []byte("null")):
		*s = ""
	case len(data) > 0 && data[0] == '"':
		var v string
		if err := json.Unmarshal(data, &v); err != nil {
			return err
		}
		*s = looseString(strings.TrimSpace(v))
	default:
		*s = looseString(data)
	}
	return nil
}
