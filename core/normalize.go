package core

import "strings"

// NormalizeMention canonicalizes a mention surface form for comparison:
// leading/trailing whitespace is trimmed, internal whitespace runs
// collapse to a single space, and the result is case-folded. The
// normalized form is the key entities are matched and deduplicated on;
// display names keep their original casing.
func NormalizeMention(text string) string {
	return strings.ToLower(strings.Join(strings.Fields(text), " "))
}
