package mock

import (
	"context"
	"strings"
	"unicode"

	"github.com/poiesic/notewell/ai"
)

// MockEntityExtractor is a test double for ai.EntityExtractor.
// It allows custom behavior injection via function fields.
type MockEntityExtractor struct {
	// ExtractEntitiesFunc is called by ExtractEntities if set.
	// If nil, uses default capitalized-word extraction.
	ExtractEntitiesFunc func(ctx context.Context, text string) ([]ai.ExtractedEntity, error)

	callCount int
}

// NewMockEntityExtractor creates a mock entity extractor with default behavior.
// Note: Returns concrete type to allow test assertions via GetMockExtractor().
func NewMockEntityExtractor() *MockEntityExtractor {
	return &MockEntityExtractor{}
}

// ExtractEntities extracts simple mock entities from text.
// Default behavior: treats capitalized words (outside sentence starts)
// as person entities with real spans, which is enough to exercise the
// resolution and linking paths.
func (m *MockEntityExtractor) ExtractEntities(ctx context.Context, text string) ([]ai.ExtractedEntity, error) {
	m.callCount++

	if m.ExtractEntitiesFunc != nil {
		return m.ExtractEntitiesFunc(ctx, text)
	}

	entities := make([]ai.ExtractedEntity, 0, 4)
	offset := 0
	first := true
	for _, field := range strings.Fields(text) {
		idx := strings.Index(text[offset:], field)
		if idx < 0 {
			break
		}
		start := offset + idx
		offset = start + len(field)

		word := strings.TrimFunc(field, unicode.IsPunct)
		if word == "" {
			first = false
			continue
		}
		capitalized := unicode.IsUpper([]rune(word)[0])
		if capitalized && !first && len(entities) < 4 {
			wordStart := start + strings.Index(field, word)
			entities = append(entities, ai.ExtractedEntity{
				Text:       word,
				Type:       "person",
				Confidence: 0.9,
				SpanStart:  wordStart,
				SpanEnd:    wordStart + len(word),
			})
		}
		first = false
	}

	return entities, nil
}

// CallCount returns the number of times ExtractEntities was called.
func (m *MockEntityExtractor) CallCount() int {
	return m.callCount
}

// Reset clears the call count and custom functions.
func (m *MockEntityExtractor) Reset() {
	m.callCount = 0
	m.ExtractEntitiesFunc = nil
}
