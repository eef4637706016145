package language

import (
	"context"
	"strings"
	"unicode"

	"github.com/matsen/bibcat/internal/normalize"
)

// stopwords are frequent function words per language, accent-folded.
var stopwords = map[string][]string{
	Spanish:    {"el", "la", "los", "las", "de", "del", "y", "en", "una", "un", "para", "por", "con", "sobre", "entre", "hacia", "social", "sociedad"},
	English:    {"the", "of", "and", "in", "to", "for", "a", "an", "on", "with", "social", "work", "policy", "society"},
	French:     {"le", "la", "les", "des", "du", "et", "une", "pour", "dans", "sur", "sociologie", "francaise"},
	Portuguese: {"o", "os", "as", "do", "da", "dos", "das", "e", "em", "uma", "para", "sociedade", "portuguesa"},
	Italian:    {"il", "lo", "gli", "di", "della", "delle", "e", "per", "una", "nel", "capitale", "sociale"},
	German:     {"der", "die", "das", "und", "des", "den", "ein", "eine", "zur", "gesellschaft", "uber"},
	Catalan:    {"el", "els", "les", "de", "i", "la", "una", "per", "amb", "societat"},
	Galician:   {"o", "os", "da", "do", "e", "unha", "sociedade", "galega"},
	Basque:     {"eta", "euskal", "gizartea", "eta", "baten"},
}

// order breaks ties toward the most common languages in the collection.
var order = []string{Spanish, English, French, Portuguese, Italian, German, Catalan, Galician, Basque}

// Heuristic detects by counting stopwords. It needs no network.
type Heuristic struct{}

// Detect implements Detector.
func (Heuristic) Detect(_ context.Context, title string) string {
	if strings.TrimSpace(title) == "" {
		return ""
	}
	words := strings.FieldsFunc(normalize.Fold(title), func(r rune) bool {
		return !unicode.IsLetter(r)
	})
	if len(words) == 0 {
		return None
	}
	if len(words) == 1 && isCode(title) {
		return None
	}

	best, bestScore := Other, 0
	for _, lang := range order {
		score := 0
		for _, w := range words {
			for _, s := range stopwords[lang] {
				if w == s {
					score++
					break
				}
			}
		}
		if score > bestScore {
			best, bestScore = lang, score
		}
	}
	if bestScore == 0 && hasSpanishMarks(title) {
		return Spanish
	}
	return best
}

// isCode reports whether a single-token title looks like an acronym.
func isCode(title string) bool {
	t := strings.TrimSpace(title)
	for _, r := range t {
		if unicode.IsLower(r) {
			return false
		}
	}
	return true
}

func hasSpanishMarks(s string) bool {
	return strings.ContainsAny(s, "ñÑ¿¡")
}
