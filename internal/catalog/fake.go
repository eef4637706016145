package catalog

import (
	"context"
	"strings"
	"sync"
)

// Fake is an in-memory Lookup keyed by case-insensitive search term.
type Fake struct {
	mu      sync.Mutex
	records map[string]*Record
	Err     error
	calls   []string
}

// NewFake returns an empty Fake.
func NewFake() *Fake {
	return &Fake{records: make(map[string]*Record)}
}

// Add registers rec as the answer for term.
func (f *Fake) Add(term string, rec Record) *Fake {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.records[fakeKey(term)] = &rec
	return f
}

// Lookup implements Lookup.
func (f *Fake) Lookup(_ context.Context, term string) (*Record, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, term)
	if f.Err != nil {
		return nil, f.Err
	}
	rec, ok := f.records[fakeKey(term)]
	if !ok {
		return nil, nil
	}
	cp := *rec
	return &cp, nil
}

// Calls returns the terms searched so far.
func (f *Fake) Calls() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.calls...)
}

func fakeKey(term string) string {
	return strings.Join(strings.Fields(strings.ToLower(term)), " ")
}
