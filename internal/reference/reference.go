// Package reference defines the core domain types for syllabus bibliographies.
package reference

import "strings"

// Kind classifies a reference as required or supplementary reading.
type Kind string

const (
	KindBasic         Kind = "basic"
	KindComplementary Kind = "complementary"
)

// ParseKind maps free text onto a Kind. Anything that mentions
// "complement" is complementary; everything else is basic.
func ParseKind(s string) Kind {
	if strings.Contains(strings.ToLower(s), "complement") {
		return KindComplementary
	}
	return KindBasic
}

// Status is the availability status of an acquisition.
type Status string

const (
	StatusAvailable   Status = "available"
	StatusUnavailable Status = "unavailable"
)

// OnlinePhrase is the exact catalog phrase meaning "available online".
const OnlinePhrase = "Disponible en línea"

// InCatalogPhrase marks a title found in the catalog without an online statement.
const InCatalogPhrase = "Disponible en catálogo Primo"

// RawReference is a bibliography entry as extracted from a syllabus.
type RawReference struct {
	Author    string `json:"author"`
	Title     string `json:"title"`
	Year      string `json:"year,omitempty"`
	Publisher string `json:"publisher,omitempty"`
	URL       string `json:"url,omitempty"`
	Type      string `json:"type,omitempty"` // "book" or "article"
}

// IsArticle reports whether the reference is a web article: it carries a
// URL or is explicitly tagged "article". Everything else is a book.
func (r RawReference) IsArticle() bool {
	return strings.TrimSpace(r.URL) != "" || strings.EqualFold(strings.TrimSpace(r.Type), "article")
}

// PublisherOrURL returns the value stored in Title.PublisherOrURL.
func (r RawReference) PublisherOrURL() string {
	if r.IsArticle() {
		return strings.TrimSpace(r.URL)
	}
	return strings.TrimSpace(r.Publisher)
}

// Bibliography is the extracted reading list of one document.
type Bibliography struct {
	Basic         []RawReference `json:"basic"`
	Complementary []RawReference `json:"complementary"`
}

// Len returns the total number of references.
func (b Bibliography) Len() int {
	return len(b.Basic) + len(b.Complementary)
}

// Career is an academic degree programme.
type Career struct {
	ID      int64  `json:"id"`
	Name    string `json:"name"`
	Faculty string `json:"faculty"`
}

// Subject is a course within a career.
type Subject struct {
	ID       int64  `json:"id"`
	Name     string `json:"name"`
	CareerID int64  `json:"career_id"`
}

// Title is a deduplicated bibliographic work.
type Title struct {
	ID                   int64  `json:"id"`
	NormalizedAuthor     string `json:"normalized_author"`
	NormalizedTitle      string `json:"normalized_title"`
	OriginalAuthor       string `json:"original_author"`
	OriginalTitle        string `json:"original_title"`
	Year                 string `json:"year,omitempty"`
	PublisherOrURL       string `json:"publisher_or_url,omitempty"`
	Edition              string `json:"edition,omitempty"`
	Format               string `json:"format,omitempty"`
	PhysicalAvailability string `json:"physical_availability,omitempty"`
	OnlineAvailability   string `json:"online_availability,omitempty"`
	Kind                 Kind   `json:"bibliography_kind"`
	Article              bool   `json:"article"`
}

// Acquisition is the availability record of one title.
type Acquisition struct {
	ID               int64  `json:"id"`
	TitleID          int64  `json:"title_id"`
	Status           Status `json:"status"`
	AvailablePrinted bool   `json:"available_printed"`
	AvailableDigital bool   `json:"available_digital"`
}

// NewAcquisition derives the status from the two availability flags.
func NewAcquisition(titleID int64, printed, digital bool) Acquisition {
	status := StatusUnavailable
	if printed || digital {
		status = StatusAvailable
	}
	return Acquisition{
		TitleID:          titleID,
		Status:           status,
		AvailablePrinted: printed,
		AvailableDigital: digital,
	}
}

// SubjectRef names the subject a reference is requested for.
type SubjectRef struct {
	Career  string `json:"career"`
	Faculty string `json:"faculty"`
	Subject string `json:"subject"`
}
