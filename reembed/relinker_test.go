package reembed

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/poiesic/notewell/ai"
	"github.com/poiesic/notewell/ai/mock"
	"github.com/poiesic/notewell/core"
	"github.com/poiesic/notewell/resolve"
	"github.com/poiesic/notewell/storage"
	"github.com/poiesic/notewell/storage/badger"
)

func setupRelinkerTest(t *testing.T) (storage.NoteRepository, storage.EntityRepository, resolve.Resolver, func()) {
	t.Helper()
	noteRepo, entityRepo, backend, err := badger.NewMemoryRepositories()
	require.NoError(t, err)

	resolver, err := resolve.NewResolver(entityRepo, resolve.DefaultConfig())
	require.NoError(t, err)

	return noteRepo, entityRepo, resolver, func() {
		entityRepo.Close()
		noteRepo.Close()
		backend.Close()
	}
}

func relinkerConfig() *Config {
	config := DefaultConfig()
	config.RetryDelay = time.Millisecond
	return config
}

func TestRelinker_Run(t *testing.T) {
	noteRepo, entityRepo, resolver, cleanup := setupRelinkerTest(t)
	defer cleanup()
	ctx := context.Background()

	notes := addTestNotes(t, noteRepo, "Met Sarah at standup", "Pinged Sarah about the review")

	extractor := mock.NewMockEntityExtractor()
	extractor.ExtractEntitiesFunc = func(ctx context.Context, text string) ([]ai.ExtractedEntity, error) {
		return []ai.ExtractedEntity{
			{Text: "Sarah", Type: "person", Confidence: 0.9, SpanStart: -1, SpanEnd: -1},
		}, nil
	}

	var progress bytes.Buffer
	relinker := NewRelinker(noteRepo, resolver, extractor, relinkerConfig(), &progress)
	require.NoError(t, relinker.Run(ctx))

	// Both notes linked to the same registry entity
	for _, note := range notes {
		mentions, err := noteRepo.GetMentionsByNote(ctx, note.Id)
		require.NoError(t, err)
		require.Len(t, mentions, 1)
		assert.Equal(t, "Sarah", mentions[0].MentionedText)
	}
	assert.Contains(t, progress.String(), "added 2 links")

	entities, err := entityRepo.GetEntitiesByType(ctx, core.EntityTypePerson)
	require.NoError(t, err)
	require.Len(t, entities, 1)
	assert.Equal(t, uint64(2), entities[0].MentionCount)

	// The fresh extraction snapshot lands on the note
	updated, err := noteRepo.GetNote(ctx, notes[0].Id)
	require.NoError(t, err)
	require.Len(t, updated.RawMentions, 1)
	assert.Equal(t, "Sarah", updated.RawMentions[0].Text)
}

func TestRelinker_Idempotent(t *testing.T) {
	noteRepo, entityRepo, resolver, cleanup := setupRelinkerTest(t)
	defer cleanup()
	ctx := context.Background()

	notes := addTestNotes(t, noteRepo, "Met Sarah at standup")

	extractor := mock.NewMockEntityExtractor()
	extractor.ExtractEntitiesFunc = func(ctx context.Context, text string) ([]ai.ExtractedEntity, error) {
		return []ai.ExtractedEntity{
			{Text: "Sarah", Type: "person", Confidence: 0.9, SpanStart: -1, SpanEnd: -1},
		}, nil
	}

	relinker := NewRelinker(noteRepo, resolver, extractor, relinkerConfig(), &bytes.Buffer{})
	require.NoError(t, relinker.Run(ctx))
	require.NoError(t, relinker.Run(ctx))

	// The second pass finds the link already present and adds nothing
	mentions, err := noteRepo.GetMentionsByNote(ctx, notes[0].Id)
	require.NoError(t, err)
	assert.Len(t, mentions, 1)

	entities, err := entityRepo.GetEntitiesByType(ctx, core.EntityTypePerson)
	require.NoError(t, err)
	require.Len(t, entities, 1)
	assert.Equal(t, uint64(1), entities[0].MentionCount)
}

func TestRelinker_ExtractionFailuresCollected(t *testing.T) {
	noteRepo, _, resolver, cleanup := setupRelinkerTest(t)
	defer cleanup()
	ctx := context.Background()

	notes := addTestNotes(t, noteRepo, "unparseable scribble", "Met Sarah at standup")

	extractor := mock.NewMockEntityExtractor()
	extractor.ExtractEntitiesFunc = func(ctx context.Context, text string) ([]ai.ExtractedEntity, error) {
		if strings.Contains(text, "scribble") {
			return nil, errors.New("extraction refused")
		}
		return []ai.ExtractedEntity{
			{Text: "Sarah", Type: "person", Confidence: 0.9, SpanStart: -1, SpanEnd: -1},
		}, nil
	}

	relinker := NewRelinker(noteRepo, resolver, extractor, relinkerConfig(), &bytes.Buffer{})
	err := relinker.Run(ctx)

	// The failing note surfaces in the joined error, the other is linked
	require.Error(t, err)
	assert.Contains(t, err.Error(), "extraction refused")

	mentions, err := noteRepo.GetMentionsByNote(ctx, notes[1].Id)
	require.NoError(t, err)
	assert.Len(t, mentions, 1)

	mentions, err = noteRepo.GetMentionsByNote(ctx, notes[0].Id)
	require.NoError(t, err)
	assert.Empty(t, mentions)
}
