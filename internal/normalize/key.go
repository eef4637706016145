// Package normalize canonicalizes author and title strings.
//
// Normalization has two outputs: a display form (Normalize) and an identity
// key (Key) used for deduplication. The key is what must be stable: inputs
// that differ only in case, whitespace or diacritics produce the same key.
package normalize

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// keySeparator joins author and title in a key. It cannot occur in folded text.
const keySeparator = "\x1f"

// Key returns the identity key for an author/title pair.
func Key(author, title string) string {
	return Fold(author) + keySeparator + Fold(title)
}

// Fold lower-cases s, strips diacritics and collapses whitespace.
func Fold(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	folded, _, err := transform.String(t, s)
	if err != nil {
		folded = s
	}
	return strings.Join(strings.Fields(strings.ToLower(folded)), " ")
}

// SameIdentity reports whether two pairs share an identity key.
func SameIdentity(authorA, titleA, authorB, titleB string) bool {
	return Key(authorA, titleA) == Key(authorB, titleB)
}
