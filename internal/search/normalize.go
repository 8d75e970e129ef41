package search

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// stripDiacritics decomposes to NFD and removes combining marks, so that
// accented and unaccented forms compare equal.
var stripDiacritics = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

// normalizeString lowercases and strips diacritics. Every string operator
// compares normalized forms.
func normalizeString(s string) string {
	stripped, _, err := transform.String(stripDiacritics, s)
	if err != nil {
		stripped = s
	}
	return strings.ToLower(stripped)
}

// normalizeForScoring additionally drops everything that is not a letter,
// digit or space, matching the scoring engine's token chunking.
func normalizeForScoring(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range normalizeString(s) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) || r == ' ' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// tokenizeQuery splits a raw query into scoring tokens.
func tokenizeQuery(query string) []string {
	return strings.Fields(query)
}
