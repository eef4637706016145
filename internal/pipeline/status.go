package pipeline

import (
	"sync"
	"time"
)

// RunStatus is a point-in-time view of the current or last run.
type RunStatus struct {
	RunID     string    `json:"run_id,omitempty"`
	Running   bool      `json:"running"`
	Current   int       `json:"current"`
	Total     int       `json:"total"`
	Document  string    `json:"document,omitempty"`
	StartedAt time.Time `json:"started_at,omitempty"`
	Stats     *Stats    `json:"stats,omitempty"`
	Error     string    `json:"error,omitempty"`
}

type tracker struct {
	mu sync.Mutex
	s  RunStatus
}

func (t *tracker) begin(id string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.s = RunStatus{RunID: id, Running: true, StartedAt: time.Now()}
}

func (t *tracker) progress(current, total int, doc string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.s.Current, t.s.Total, t.s.Document = current, total, doc
}

func (t *tracker) finish(stats *Stats, err error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.s.Running = false
	t.s.Stats = stats
	if err != nil {
		t.s.Error = err.Error()
	}
}

func (t *tracker) snapshot() RunStatus {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.s
}
