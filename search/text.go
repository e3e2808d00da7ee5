package search

import "strings"

// Stop words excluded from lexical ranking
var stopWords = map[string]bool{
	"the": true, "a": true, "an": true, "be": true, "is": true, "are": true,
	"was": true, "to": true, "of": true, "and": true, "in": true, "that": true,
	"have": true, "it": true, "for": true, "not": true, "on": true, "with": true,
	"as": true, "you": true, "do": true, "at": true, "this": true, "but": true,
	"by": true, "from": true,
}

// tokenizeAndFilter splits text into words, lowercases, trims punctuation, and removes stop words
func tokenizeAndFilter(text string) []string {
	words := strings.Fields(text)
	filtered := make([]string, 0, len(words))

	for _, word := range words {
		// Lowercase and trim punctuation
		cleaned := strings.ToLower(strings.Trim(word, ".,!?;:'\"-()[]{}"))

		// Skip stop words and empty strings
		if cleaned != "" && !stopWords[cleaned] {
			filtered = append(filtered, cleaned)
		}
	}

	return filtered
}

// lexicalRank sums the term frequency of each query token in the
// document. Zero means the note is not a lexical candidate.
func lexicalRank(document string, queryTokens []string) float64 {
	if len(queryTokens) == 0 {
		return 0
	}

	counts := make(map[string]int)
	for _, token := range tokenizeAndFilter(document) {
		counts[token]++
	}

	var rank float64
	for _, token := range queryTokens {
		rank += float64(counts[token])
	}
	return rank
}
