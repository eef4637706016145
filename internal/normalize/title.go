package normalize

import (
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// minorWords stay lower-case inside a title (es, en, fr, pt, it, ca).
var minorWords = map[string]bool{
	// es
	"el": true, "la": true, "los": true, "las": true, "un": true, "una": true,
	"unos": true, "unas": true, "de": true, "del": true, "al": true, "y": true,
	"e": true, "o": true, "u": true, "en": true, "con": true, "por": true,
	"para": true, "sin": true, "sobre": true, "entre": true, "desde": true,
	"hasta": true, "hacia": true, "según": true, "ni": true, "que": true,
	"lo": true, "su": true, "sus": true,
	// en
	"a": true, "an": true, "the": true, "and": true, "or": true, "nor": true,
	"of": true, "in": true, "on": true, "at": true, "to": true, "for": true,
	"by": true, "with": true, "from": true, "as": true, "but": true, "vs": true,
	// fr
	"le": true, "les": true, "des": true, "du": true, "et": true, "ou": true,
	"une": true, "au": true, "aux": true,
	// pt / it / ca
	"os": true, "do": true, "da": true, "dos": true, "das": true,
	"em": true, "no": true, "na": true, "nos": true, "nas": true, "um": true,
	"uma": true, "ao": true, "il": true, "gli": true, "di": true, "della": true,
	"ed": true, "i": true, "per": true, "els": true, "amb": true,
}

// decorative runes are removed anywhere in a title.
const decorative = "\"“”«»*•·"

// leadingJunk and trailingJunk are trimmed from the ends.
const (
	leadingJunk  = "-–—•·*>'‘’ "
	trailingJunk = ".,;:'‘’ "
)

var (
	lowerCaser = cases.Lower(language.Spanish)
	titleCaser = cases.Title(language.Spanish, cases.NoLower)
)

// TitleCase renders a title in title case: first word and substantive words
// capitalized, minor words lower-case except at the start or after a colon.
// A title typed entirely in capitals is lowered first; otherwise words in
// capitals are kept as acronyms.
func TitleCase(title string) string {
	title = CleanTitle(title)
	if title == "" {
		return ""
	}
	shouting := isShouting(title)

	words := strings.Fields(title)
	for i, w := range words {
		if shouting {
			w = lowerCaser.String(w)
		}
		bare := strings.ToLower(strings.Trim(w, "()[]¿?¡!,;:"))
		startsClause := i == 0 || strings.HasSuffix(words[i-1], ":") || strings.HasSuffix(words[i-1], "?")
		switch {
		case !startsClause && minorWords[bare]:
			w = lowerCaser.String(w)
		case isAcronym(w):
		default:
			w = titleCaser.String(w)
		}
		words[i] = w
	}
	return strings.Join(words, " ")
}

// CleanTitle collapses whitespace and strips decorative punctuation.
func CleanTitle(title string) string {
	title = strings.Map(func(r rune) rune {
		if strings.ContainsRune(decorative, r) {
			return -1
		}
		return r
	}, title)
	title = strings.Join(strings.Fields(title), " ")
	title = strings.TrimLeft(title, leadingJunk)
	title = strings.TrimRight(title, trailingJunk)
	return title
}

// isShouting reports whether every cased letter in s is upper-case and
// there are at least two words.
func isShouting(s string) bool {
	letters := 0
	for _, r := range s {
		if unicode.IsLower(r) {
			return false
		}
		if unicode.IsUpper(r) {
			letters++
		}
	}
	return letters > 1 && len(strings.Fields(s)) > 1
}

// isAcronym reports whether w is two or more capitals with no lower-case.
func isAcronym(w string) bool {
	upper := 0
	for _, r := range w {
		if unicode.IsLower(r) {
			return false
		}
		if unicode.IsUpper(r) {
			upper++
		}
	}
	return upper >= 2
}
