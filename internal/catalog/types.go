// Package catalog looks titles up in the library discovery catalog.
//
// Lookup is the raw capability and may fail in many ways. Guard wraps a
// Lookup into a Finder: rate limited, time bounded and failure-opaque.
package catalog

import (
	"context"
	"strings"
)

// Record is the catalog's metadata for one matched item.
type Record struct {
	Title                string `json:"title"`
	Author               string `json:"author"`
	Publisher            string `json:"publisher,omitempty"`
	CreationDate         string `json:"creation_date,omitempty"`
	Edition              string `json:"edition,omitempty"`
	Format               string `json:"format,omitempty"`
	PhysicalAvailability string `json:"physical_availability,omitempty"`
	OnlineAvailability   string `json:"online_availability,omitempty"`
}

// Complete reports whether the record has both title and author.
func (r *Record) Complete() bool {
	return r != nil && strings.TrimSpace(r.Title) != "" && strings.TrimSpace(r.Author) != ""
}

// digitalMarkers in a format string signal electronic access.
var digitalMarkers = []string{"online", "digital", "electr", "en línea"}

// HasDigitalFormat reports whether the format names an electronic resource.
func (r *Record) HasDigitalFormat() bool {
	f := strings.ToLower(r.Format)
	for _, m := range digitalMarkers {
		if strings.Contains(f, m) {
			return true
		}
	}
	return false
}

// Lookup searches the catalog. A nil record with a nil error means no match.
type Lookup interface {
	Lookup(ctx context.Context, term string) (*Record, error)
}

// Finder is the failure-opaque view the merge engine depends on.
type Finder interface {
	Find(ctx context.Context, term string) (*Record, bool)
}

// SearchTerm builds the query string for a title.
func SearchTerm(title, author string) string {
	return strings.TrimSpace(strings.TrimSpace(title) + " " + strings.TrimSpace(author))
}
