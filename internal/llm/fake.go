package llm

import (
	"context"
	"strings"
	"sync"
)

// Scripted is a Completer that answers from a fixed script. The first
// rule whose substring occurs in the prompt wins. It is used by tests and
// by offline runs.
type Scripted struct {
	mu    sync.Mutex
	rules []scriptRule
	Err   error
	calls []string
}

type scriptRule struct {
	contains string
	answer   string
}

// On registers an answer for prompts containing substr.
func (s *Scripted) On(substr, answer string) *Scripted {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rules = append(s.rules, scriptRule{contains: substr, answer: answer})
	return s
}

// Complete implements Completer.
func (s *Scripted) Complete(_ context.Context, prompt string, _ int) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls = append(s.calls, prompt)
	if s.Err != nil {
		return "", s.Err
	}
	for _, r := range s.rules {
		if strings.Contains(prompt, r.contains) {
			return r.answer, nil
		}
	}
	return "", nil
}

// Calls returns the prompts received so far.
func (s *Scripted) Calls() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, len(s.calls))
	copy(out, s.calls)
	return out
}
