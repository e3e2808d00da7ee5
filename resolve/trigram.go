package resolve

// trigramSet extracts the set of character trigrams from a normalized
// string, padded the way pg_trgm pads: two spaces before, one after.
// Padding lets short strings and shared prefixes contribute trigrams.
func trigramSet(s string) map[string]bool {
	if s == "" {
		return nil
	}
	padded := "  " + s + " "
	runes := []rune(padded)
	set := make(map[string]bool, len(runes))
	for i := 0; i+3 <= len(runes); i++ {
		set[string(runes[i:i+3])] = true
	}
	return set
}

// TrigramSimilarity computes the Jaccard similarity of the trigram sets
// of two normalized strings. Returns a score in [0,1]; 1 means the
// strings are identical.
func TrigramSimilarity(a, b string) float64 {
	if a == b {
		if a == "" {
			return 0
		}
		return 1
	}
	setA := trigramSet(a)
	setB := trigramSet(b)
	if len(setA) == 0 || len(setB) == 0 {
		return 0
	}

	intersection := 0
	for gram := range setA {
		if setB[gram] {
			intersection++
		}
	}
	union := len(setA) + len(setB) - intersection
	if union == 0 {
		return 0
	}
	return float64(intersection) / float64(union)
}
