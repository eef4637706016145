package catalog

import (
	"fmt"
	"strings"

	"github.com/matsen/bibcat/internal/reference"
)

// searchResponse is the subset of the Primo search response we read.
type searchResponse struct {
	Info struct {
		Total int `json:"total"`
	} `json:"info"`
	Docs []document `json:"docs"`
}

type document struct {
	PNX      pnx      `json:"pnx"`
	Delivery delivery `json:"delivery"`
}

// pnx sections map field names to value lists.
type pnx struct {
	Display map[string][]string `json:"display"`
	Addata  map[string][]string `json:"addata"`
	Search  map[string][]string `json:"search"`
}

type delivery struct {
	Availability     []string  `json:"availability"`
	DeliveryCategory []string  `json:"deliveryCategory"`
	Holding          []holding `json:"holding"`
}

type holding struct {
	AvailabilityStatus string `json:"availabilityStatus"`
	LibraryCode        string `json:"libraryCode"`
	CallNumber         string `json:"callNumber"`
}

// source names one field of one PNX section.
type source struct {
	section string
	field   string
}

// Strategy chains: the first source with a non-empty value wins.
var (
	titleSources     = []source{{"display", "title"}, {"addata", "btitle"}, {"addata", "atitle"}, {"search", "title"}}
	authorSources    = []source{{"display", "creator"}, {"display", "contributor"}, {"addata", "au"}, {"addata", "aulast"}, {"search", "creatorcontrib"}}
	publisherSources = []source{{"display", "publisher"}, {"addata", "pub"}}
	dateSources      = []source{{"display", "creationdate"}, {"addata", "date"}, {"search", "creationdate"}}
	editionSources   = []source{{"display", "edition"}, {"addata", "edition"}}
	formatSources    = []source{{"display", "format"}, {"display", "type"}, {"addata", "format"}}
)

func (d document) record() *Record {
	return &Record{
		Title:                d.PNX.first(titleSources),
		Author:               d.PNX.first(authorSources),
		Publisher:            d.PNX.first(publisherSources),
		CreationDate:         d.PNX.first(dateSources),
		Edition:              d.PNX.first(editionSources),
		Format:               d.PNX.first(formatSources),
		PhysicalAvailability: d.Delivery.physical(),
		OnlineAvailability:   d.Delivery.online(),
	}
}

func (p pnx) section(name string) map[string][]string {
	switch name {
	case "display":
		return p.Display
	case "addata":
		return p.Addata
	case "search":
		return p.Search
	}
	return nil
}

func (p pnx) first(chain []source) string {
	for _, s := range chain {
		for _, v := range p.section(s.section)[s.field] {
			if v = cleanValue(v); v != "" {
				return v
			}
		}
	}
	return ""
}

// cleanValue drops PNX subfield markers ("Bourdieu, Pierre$$QBourdieu")
// and surrounding punctuation.
func cleanValue(v string) string {
	if i := strings.Index(v, "$$"); i >= 0 {
		v = v[:i]
	}
	v = strings.Join(strings.Fields(v), " ")
	return strings.Trim(v, " /:;,")
}

// physical renders holdings as "(N copias, K disponible, 0 solicitudes)".
func (d delivery) physical() string {
	if len(d.Holding) == 0 {
		return ""
	}
	available := 0
	for _, h := range d.Holding {
		if strings.EqualFold(h.AvailabilityStatus, "available") {
			available++
		}
	}
	return fmt.Sprintf("(%d copias, %d disponible, 0 solicitudes)", len(d.Holding), available)
}

// online returns the exact online phrase when delivery signals full text.
func (d delivery) online() string {
	for _, a := range d.Availability {
		if strings.HasPrefix(strings.ToLower(a), "fulltext") {
			return reference.OnlinePhrase
		}
	}
	for _, c := range d.DeliveryCategory {
		if c == "Alma-E" || c == "Remote Search Resource" {
			return reference.OnlinePhrase
		}
	}
	return ""
}
