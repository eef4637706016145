package catalog

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/matsen/bibcat/internal/reference"
)

const bourdieuResponse = `{
  "info": {"total": 2},
  "docs": [
    {
      "pnx": {
        "display": {"title": [""], "type": ["book"]},
        "addata": {}
      },
      "delivery": {}
    },
    {
      "pnx": {
        "display": {
          "title": ["La distinción : criterio y bases sociales del gusto /"],
          "creator": ["Bourdieu, Pierre$$QBourdieu, Pierre"],
          "publisher": ["Madrid : Taurus"],
          "creationdate": ["1988"],
          "format": ["597 p. ; 24 cm."]
        },
        "addata": {"btitle": ["La distinción"], "au": ["Bourdieu, Pierre"]}
      },
      "delivery": {
        "availability": ["available_in_library"],
        "holding": [
          {"availabilityStatus": "available", "libraryCode": "CEN"},
          {"availabilityStatus": "unavailable", "libraryCode": "CEN"},
          {"availabilityStatus": "available", "libraryCode": "HUM"}
        ]
      }
    }
  ]
}`

func TestPrimoLookup(t *testing.T) {
	var gotQuery, gotKey string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.Query().Get("q")
		gotKey = r.URL.Query().Get("apikey")
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(bourdieuResponse))
	}))
	defer server.Close()

	p := NewPrimo(WithBaseURL(server.URL), WithAPIKey("secret"))
	rec, err := p.Lookup(context.Background(), "La Distinción Pierre Bourdieu")
	if err != nil {
		t.Fatalf("Lookup() error = %v", err)
	}
	if gotQuery != "any,contains,La Distinción Pierre Bourdieu" {
		t.Errorf("q = %q", gotQuery)
	}
	if gotKey != "secret" {
		t.Errorf("apikey = %q", gotKey)
	}
	if rec == nil {
		t.Fatal("Lookup() returned no record")
	}

	want := Record{
		Title:                "La distinción : criterio y bases sociales del gusto",
		Author:               "Bourdieu, Pierre",
		Publisher:            "Madrid : Taurus",
		CreationDate:         "1988",
		Format:               "597 p. ; 24 cm.",
		PhysicalAvailability: "(3 copias, 2 disponible, 0 solicitudes)",
	}
	if *rec != want {
		t.Errorf("Lookup() = %+v\nwant %+v", *rec, want)
	}
}

func TestPrimoLookupOnline(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"docs": [{"pnx": {"addata": {"atitle": ["Panorama social"], "aulast": ["CEPAL"]}},
			"delivery": {"availability": ["fulltext_linktorsrc"], "deliveryCategory": ["Alma-E"]}}]}`))
	}))
	defer server.Close()

	rec, err := NewPrimo(WithBaseURL(server.URL)).Lookup(context.Background(), "panorama")
	if err != nil {
		t.Fatal(err)
	}
	if rec.Title != "Panorama social" || rec.Author != "CEPAL" {
		t.Errorf("fallback sources not used: %+v", rec)
	}
	if rec.OnlineAvailability != reference.OnlinePhrase {
		t.Errorf("OnlineAvailability = %q", rec.OnlineAvailability)
	}
	if rec.PhysicalAvailability != "" {
		t.Errorf("PhysicalAvailability = %q, want empty", rec.PhysicalAvailability)
	}
}

func TestPrimoLookupEmpty(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"info": {"total": 0}, "docs": []}`))
	}))
	defer server.Close()

	rec, err := NewPrimo(WithBaseURL(server.URL)).Lookup(context.Background(), "nada")
	if err != nil || rec != nil {
		t.Errorf("Lookup() = %v, %v; want nil, nil", rec, err)
	}
}

func TestPrimoLookupErrors(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
		check  func(error) bool
	}{
		{"rate limited", http.StatusTooManyRequests, "", IsRateLimited},
		{"not found", http.StatusNotFound, "", IsNotFound},
		{"server error", http.StatusInternalServerError, "boom", func(err error) bool {
			return err != nil && !IsNotFound(err) && !IsRateLimited(err)
		}},
		{"bad json", http.StatusOK, "<html>", func(err error) bool { return err != nil }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				w.Write([]byte(tt.body))
			}))
			defer server.Close()

			_, err := NewPrimo(WithBaseURL(server.URL)).Lookup(context.Background(), "x")
			if !tt.check(err) {
				t.Errorf("unexpected error %v", err)
			}
		})
	}
}

func TestCleanValue(t *testing.T) {
	tests := []struct{ in, want string }{
		{"Bourdieu, Pierre$$QBourdieu", "Bourdieu, Pierre"},
		{"  La distinción  /", "La distinción"},
		{"$$Cfoo", ""},
	}
	for _, tt := range tests {
		if got := cleanValue(tt.in); got != tt.want {
			t.Errorf("cleanValue(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestHasDigitalFormat(t *testing.T) {
	tests := []struct {
		format string
		want   bool
	}{
		{"Recurso electrónico", true},
		{"Online resource", true},
		{"597 p. ; 24 cm.", false},
		{"", false},
	}
	for _, tt := range tests {
		r := &Record{Format: tt.format}
		if got := r.HasDigitalFormat(); got != tt.want {
			t.Errorf("HasDigitalFormat(%q) = %v, want %v", tt.format, got, tt.want)
		}
	}
}
