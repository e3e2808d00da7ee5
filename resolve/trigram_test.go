package resolve

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTrigramSimilarity(t *testing.T) {
	t.Run("identical strings", func(t *testing.T) {
		assert.Equal(t, 1.0, TrigramSimilarity("project apollo", "project apollo"))
	})

	t.Run("empty strings", func(t *testing.T) {
		assert.Equal(t, 0.0, TrigramSimilarity("", ""))
		assert.Equal(t, 0.0, TrigramSimilarity("apollo", ""))
		assert.Equal(t, 0.0, TrigramSimilarity("", "apollo"))
	})

	t.Run("close variants score high", func(t *testing.T) {
		score := TrigramSimilarity("kubernetes", "kuberntes")
		assert.Greater(t, score, 0.5)
	})

	t.Run("unrelated strings score low", func(t *testing.T) {
		score := TrigramSimilarity("kubernetes", "sarah chen")
		assert.Less(t, score, 0.2)
	})

	t.Run("symmetric", func(t *testing.T) {
		a := TrigramSimilarity("project apollo", "apollo project")
		b := TrigramSimilarity("apollo project", "project apollo")
		assert.Equal(t, a, b)
	})

	t.Run("substring is partial match", func(t *testing.T) {
		score := TrigramSimilarity("apollo", "project apollo")
		assert.Greater(t, score, 0.0)
		assert.Less(t, score, 1.0)
	})
}
