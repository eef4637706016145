// Package llm provides the language-model capability used by extraction,
// normalization and language detection.
package llm

import (
	"encoding/json"
	"strings"
)

// Result is the outcome of asking the model for structured output: either
// a parsed value or the raw text the model produced. Callers must handle
// both branches.
type Result[T any] struct {
	value  T
	raw    string
	parsed bool
}

// Parsed wraps a successfully decoded value.
func Parsed[T any](v T, raw string) Result[T] {
	return Result[T]{value: v, raw: raw, parsed: true}
}

// Unparseable wraps output that could not be decoded.
func Unparseable[T any](raw string) Result[T] {
	return Result[T]{raw: raw}
}

// Get returns the value and whether it was parsed.
func (r Result[T]) Get() (T, bool) {
	return r.value, r.parsed
}

// Raw returns the model's text as received.
func (r Result[T]) Raw() string {
	return r.raw
}

// Match calls exactly one of the two branches.
func (r Result[T]) Match(onParsed func(T), onUnparseable func(raw string)) {
	if r.parsed {
		onParsed(r.value)
		return
	}
	onUnparseable(r.raw)
}

// DecodeJSON parses a model response into T. Markdown code fences and
// leading or trailing prose around the JSON object are tolerated.
func DecodeJSON[T any](response string) Result[T] {
	text := ExtractJSON(response)
	var v T
	if text == "" {
		return Unparseable[T](response)
	}
	if err := json.Unmarshal([]byte(text), &v); err != nil {
		return Unparseable[T](response)
	}
	return Parsed(v, response)
}

// ExtractJSON isolates the outermost JSON object or array in text.
func ExtractJSON(response string) string {
	text := strings.TrimSpace(response)
	if strings.HasPrefix(text, "```") {
		text = extractFromCodeBlock(text)
	}

	start := strings.IndexAny(text, "{[")
	if start < 0 {
		return ""
	}
	closer := byte('}')
	if text[start] == '[' {
		closer = ']'
	}
	end := strings.LastIndexByte(text, closer)
	if end < start {
		return ""
	}
	return text[start : end+1]
}

// extractFromCodeBlock extracts content from a markdown code block.
func extractFromCodeBlock(text string) string {
	lines := strings.Split(text, "\n")
	if len(lines) < 2 {
		return text
	}

	// Remove first line (```json or ```)
	start := 1
	end := len(lines)
	if strings.TrimSpace(lines[len(lines)-1]) == "```" {
		end = len(lines) - 1
	}

	return strings.Join(lines[start:end], "\n")
}
