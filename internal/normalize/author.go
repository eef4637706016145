package normalize

import (
	"regexp"
	"strings"
	"unicode"
)

// initialPattern matches a single-letter initial such as "D." or "j.".
var initialPattern = regexp.MustCompile(`(?:^|[\s,.])\pL\.`)

// glued initials like "J.K." are spaced out to "J. K.".
var gluedInitial = regexp.MustCompile(`\.(\pL)`)

// authorSeparators split multiple authors that are not comma-separated.
// Spanish "y" is left alone since it also joins compound surnames.
var authorSeparators = regexp.MustCompile(`\s*(?:;|&|\sand\s)\s*`)

// nameParticles stay lower-case when not leading a name.
var nameParticles = map[string]bool{
	"de": true, "del": true, "la": true, "las": true, "los": true, "da": true,
	"das": true, "do": true, "dos": true, "di": true, "du": true, "van": true,
	"von": true, "der": true, "den": true, "y": true, "e": true,
}

// HasInitials reports whether an author string contains an abbreviated
// given name.
func HasInitials(author string) bool {
	return initialPattern.MatchString(author)
}

// FormatAuthors renders an author string as "Given Names Surname", with
// multiple authors comma-joined. "Surname, Given" inputs are flipped.
// The output is a fixed point: FormatAuthors(FormatAuthors(s)) equals
// FormatAuthors(s).
func FormatAuthors(author string) string {
	author = strings.Join(strings.Fields(author), " ")
	author = strings.Trim(author, " ,;")
	author = trimFinalPeriod(author)
	if author == "" {
		return ""
	}

	var names []string
	for _, chunk := range authorSeparators.Split(author, -1) {
		for _, n := range splitChunk(chunk) {
			if n = formatName(n); n != "" {
				names = append(names, n)
			}
		}
	}
	return joinNames(names)
}

// joinNames comma-joins names unless the result would read back as
// "Surname, Given" pairs, as with single-word names like "Bourdieu" and
// "Passeron"; those lists are joined with "; " so formatting is stable.
func joinNames(names []string) string {
	if len(names) > 1 && len(names)%2 == 0 && inverted(names) {
		return strings.Join(names, "; ")
	}
	return strings.Join(names, ", ")
}

// trimFinalPeriod drops a trailing period unless it closes an initial.
func trimFinalPeriod(author string) string {
	if !strings.HasSuffix(author, ".") {
		return author
	}
	fields := strings.Fields(strings.ReplaceAll(author, ",", " "))
	last := fields[len(fields)-1]
	if strings.Count(last, ".") > 1 {
		return author
	}
	if r := []rune(strings.TrimSuffix(last, ".")); len(r) == 1 && unicode.IsLetter(r[0]) {
		return author
	}
	return strings.TrimSuffix(author, ".")
}

// splitChunk splits a comma-separated chunk into individual names, pairing
// "Surname, Given" segments when the pattern fits.
func splitChunk(chunk string) []string {
	parts := strings.Split(chunk, ",")
	for i := range parts {
		parts[i] = strings.TrimSpace(parts[i])
	}
	parts = dropEmpty(parts)
	if len(parts) <= 1 {
		return parts
	}

	if len(parts)%2 == 0 && inverted(parts) {
		var names []string
		for i := 0; i < len(parts); i += 2 {
			names = append(names, parts[i+1]+" "+parts[i])
		}
		return names
	}
	return parts
}

// inverted reports whether parts alternate surname/given segments.
func inverted(parts []string) bool {
	for i := 0; i < len(parts); i += 2 {
		surname, given := parts[i], parts[i+1]
		if len(strings.Fields(surname)) != 1 || HasInitials(surname) {
			return false
		}
		if len(strings.Fields(given)) > 3 {
			return false
		}
	}
	return true
}

// formatName capitalizes one name, keeping particles lower-case.
func formatName(name string) string {
	name = gluedInitial.ReplaceAllString(name, ". $1")
	words := strings.Fields(name)
	for i, w := range words {
		if isAcronym(w) || isShouting(name) {
			w = lowerCaser.String(w)
		}
		if i > 0 && i < len(words)-1 && nameParticles[strings.ToLower(w)] {
			words[i] = strings.ToLower(w)
			continue
		}
		words[i] = titleCaser.String(w)
	}
	return strings.Join(words, " ")
}

func dropEmpty(ss []string) []string {
	out := ss[:0]
	for _, s := range ss {
		if s != "" {
			out = append(out, s)
		}
	}
	return out
}
