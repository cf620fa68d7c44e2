package correlation

import (
	"strings"
	"unicode"
)

const (
	// MaxKeywords caps how many search terms are sent to each connector.
	MaxKeywords = 5
	// minKeywordLen drops short filler tokens.
	minKeywordLen = 5
)

var stopWords = map[string]struct{}{
	"there": {}, "which": {}, "their": {}, "about": {}, "would": {},
	"these": {}, "other": {}, "where": {}, "after": {}, "before": {},
	"being": {}, "could": {}, "should": {}, "while": {}, "within": {},
	"across": {}, "during": {}, "through": {}, "those": {}, "because": {},
}

// ExtractKeywords lowercases text, strips punctuation, drops short tokens and
// stop words, and returns up to MaxKeywords distinct terms in order of first
// appearance.
func ExtractKeywords(text string) []string {
	cleaned := strings.Map(func(r rune) rune {
		if unicode.IsLetter(r) || unicode.IsDigit(r) || unicode.IsSpace(r) {
			return unicode.ToLower(r)
		}
		return -1
	}, text)

	seen := make(map[string]struct{})
	out := make([]string, 0, MaxKeywords)
	for _, w := range strings.Fields(cleaned) {
		if len([]rune(w)) < minKeywordLen {
			continue
		}
		if _, stop := stopWords[w]; stop {
			continue
		}
		if _, dup := seen[w]; dup {
			continue
		}
		seen[w] = struct{}{}
		out = append(out, w)
		if len(out) == MaxKeywords {
			break
		}
	}
	return out
}
