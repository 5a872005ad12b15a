package venuematch

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Stopwords carry no identity signal in venue names. "The Tattooed Moose"
// and "Tattooed Moose" must normalize identically.
var stopwords = map[string]bool{
	"the": true, "a": true, "an": true, "at": true,
	"in": true, "of": true, "and": true, "or": true, "on": true,
}

var deaccent = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

// normalizeName lowercases, folds diacritics, strips punctuation, and drops
// stopwords, returning the canonical form and its tokens.
func normalizeName(name string) (string, []string) {
	folded, _, err := transform.String(deaccent, strings.ToLower(name))
	if err != nil {
		folded = strings.ToLower(name)
	}

	var b strings.Builder
	for _, r := range folded {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(r)
		} else {
			b.WriteByte(' ')
		}
	}

	var tokens []string
	for _, tok := range strings.Fields(b.String()) {
		if !stopwords[tok] {
			tokens = append(tokens, tok)
		}
	}
	return strings.Join(tokens, " "), tokens
}

// NameSimilarity scores two venue names in [0, 1]. Exact normalized match
// scores 1.0, substring containment either direction 0.9, otherwise the
// shared-token fraction relative to the shorter name.
func NameSimilarity(a, b string) float64 {
	normA, toksA := normalizeName(a)
	normB, toksB := normalizeName(b)
	if normA == "" || normB == "" {
		return 0
	}
	if normA == normB {
		return 1.0
	}
	if strings.Contains(normA, normB) || strings.Contains(normB, normA) {
		return 0.9
	}

	setA := make(map[string]bool, len(toksA))
	for _, t := range toksA {
		setA[t] = true
	}
	shared := 0
	seen := make(map[string]bool, len(toksB))
	for _, t := range toksB {
		if setA[t] && !seen[t] {
			shared++
			seen[t] = true
		}
	}
	minLen := len(toksA)
	if len(toksB) < minLen {
		minLen = len(toksB)
	}
	if minLen == 0 {
		return 0
	}
	return float64(shared) / float64(minLen)
}
