package ingestion

import (
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

type testEnv struct {
	pipeline  *Pipeline
	noteRepo  storage.NoteRepository
	embedder  *mock.MockEmbedder
	extractor *mock.MockEntityExtractor
}

func newTestEnv(t *testing.T, opts ...Option) *testEnv {
	t.Helper()

	noteRepo, entityRepo, backend, err := badger.NewMemoryRepositories()
	require.NoError(t, err)
	t.Cleanup(func() {
		entityRepo.Close()
		noteRepo.Close()
		backend.Close()
	})

	resolver, err := resolve.NewResolver(entityRepo, resolve.DefaultConfig())
	require.NoError(t, err)

	embedder := mock.NewMockEmbedder()
	extractor := mock.NewMockEntityExtractor()
	provider := mock.NewMockProviderWithServices(embedder, extractor)

	opts = append([]Option{WithRetryBackoff(time.Millisecond)}, opts...)
	pipeline, err := NewPipeline(noteRepo, resolver, provider, opts...)
	require.NoError(t, err)
	t.Cleanup(pipeline.Release)

	return &testEnv{
		pipeline:  pipeline,
		noteRepo:  noteRepo,
		embedder:  embedder,
		extractor: extractor,
	}
}

func TestIngestLinksEntities(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	result, err := env.pipeline.Ingest(ctx, &IngestRequest{
		Text: "Met with Sarah about Apollo",
	})
	require.NoError(t, err)
	assert.Empty(t, result.Warnings)
	require.Len(t, result.LinkedEntities, 2)

	names := []string{result.LinkedEntities[0].Name, result.LinkedEntities[1].Name}
	assert.Contains(t, names, "Sarah")
	assert.Contains(t, names, "Apollo")
	for _, linked := range result.LinkedEntities {
		assert.True(t, linked.IsNew)
		assert.NotZero(t, linked.EntityId)
		assert.NotZero(t, linked.MentionId)
	}

	note, err := env.noteRepo.GetNote(ctx, result.NoteId)
	require.NoError(t, err)
	assert.True(t, note.HasVector())
	assert.Len(t, note.Vector, mock.DefaultMockDims)
	assert.Len(t, note.RawMentions, 2)

	mentions, err := env.noteRepo.GetMentionsByNote(ctx, result.NoteId)
	require.NoError(t, err)
	assert.Len(t, mentions, 2)
}

func TestIngestExtractionFailureWarns(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	env.extractor.ExtractEntitiesFunc = func(ctx context.Context, text string) ([]ai.ExtractedEntity, error) {
		return nil, errors.New("model overloaded")
	}

	result, err := env.pipeline.Ingest(ctx, &IngestRequest{Text: "Met with Sarah"})
	require.NoError(t, err)
	require.Len(t, result.Warnings, 1)
	assert.Equal(t, core.WarningExtraction, result.Warnings[0].Kind)
	assert.Empty(t, result.LinkedEntities)

	// One retry, then give up
	assert.Equal(t, 2, env.extractor.CallCount())

	// The note still lands, with its vector but without mentions
	note, err := env.noteRepo.GetNote(ctx, result.NoteId)
	require.NoError(t, err)
	assert.True(t, note.HasVector())
	assert.Empty(t, note.RawMentions)
}

func TestIngestRetryRecoversExtraction(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	calls := 0
	env.extractor.ExtractEntitiesFunc = func(ctx context.Context, text string) ([]ai.ExtractedEntity, error) {
		calls++
		if calls == 1 {
			return nil, errors.New("transient")
		}
		return []ai.ExtractedEntity{
			{Text: "Sarah", Type: "person", Confidence: 0.9, SpanStart: 9, SpanEnd: 14},
		}, nil
	}

	result, err := env.pipeline.Ingest(ctx, &IngestRequest{Text: "Met with Sarah"})
	require.NoError(t, err)
	assert.Empty(t, result.Warnings)
	assert.Len(t, result.LinkedEntities, 1)
	assert.Equal(t, 2, calls)
}

func TestIngestEmbeddingFailureWarns(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	env.embedder.EmbedTextFunc = func(ctx context.Context, text string) ([]float32, error) {
		return nil, errors.New("embedding service down")
	}

	result, err := env.pipeline.Ingest(ctx, &IngestRequest{Text: "Met with Sarah"})
	require.NoError(t, err)
	require.Len(t, result.Warnings, 1)
	assert.Equal(t, core.WarningEmbedding, result.Warnings[0].Kind)

	// Vectorless but fully linked
	assert.Len(t, result.LinkedEntities, 1)
	note, err := env.noteRepo.GetNote(ctx, result.NoteId)
	require.NoError(t, err)
	assert.False(t, note.HasVector())
}

func TestIngestDimsMismatchDropsVector(t *testing.T) {
	env := newTestEnv(t, WithEmbeddingDims(1536))
	ctx := context.Background()

	// Mock vectors are 384-dim, which fails the 1536 check
	result, err := env.pipeline.Ingest(ctx, &IngestRequest{Text: "Met with Sarah"})
	require.NoError(t, err)
	require.Len(t, result.Warnings, 1)
	assert.Equal(t, core.WarningEmbedding, result.Warnings[0].Kind)

	note, err := env.noteRepo.GetNote(ctx, result.NoteId)
	require.NoError(t, err)
	assert.False(t, note.HasVector())
}

func TestIngestLowConfidenceCandidatesNotLinked(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	env.extractor.ExtractEntitiesFunc = func(ctx context.Context, text string) ([]ai.ExtractedEntity, error) {
		return []ai.ExtractedEntity{
			{Text: "Sarah", Type: "person", Confidence: 0.3, SpanStart: 9, SpanEnd: 14},
		}, nil
	}

	result, err := env.pipeline.Ingest(ctx, &IngestRequest{Text: "Met with Sarah"})
	require.NoError(t, err)
	assert.Empty(t, result.LinkedEntities)
	assert.Empty(t, result.Warnings)

	// The raw extraction snapshot keeps sub-threshold candidates
	note, err := env.noteRepo.GetNote(ctx, result.NoteId)
	require.NoError(t, err)
	require.Len(t, note.RawMentions, 1)
	assert.Equal(t, 0.3, note.RawMentions[0].Confidence)
}

func TestIngestResolutionFailureWarns(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	env.extractor.ExtractEntitiesFunc = func(ctx context.Context, text string) ([]ai.ExtractedEntity, error) {
		return []ai.ExtractedEntity{
			{Text: "Saturn", Type: "planet", Confidence: 0.9, SpanStart: -1, SpanEnd: -1},
			{Text: "Sarah", Type: "person", Confidence: 0.9, SpanStart: -1, SpanEnd: -1},
		}, nil
	}

	result, err := env.pipeline.Ingest(ctx, &IngestRequest{Text: "Saturn talk with Sarah"})
	require.NoError(t, err)

	// The bad candidate degrades to a warning, the good one still links
	require.Len(t, result.Warnings, 1)
	assert.Equal(t, core.WarningResolution, result.Warnings[0].Kind)
	require.Len(t, result.LinkedEntities, 1)
	assert.Equal(t, "Sarah", result.LinkedEntities[0].Name)
}

func TestIngestRejectsInvalidNotes(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	_, err := env.pipeline.Ingest(ctx, &IngestRequest{Text: ""})
	assert.ErrorIs(t, err, core.ErrEmptyText)

	_, err = env.pipeline.Ingest(ctx, &IngestRequest{
		Text: strings.Repeat("x", core.MaxNoteLength+1),
	})
	assert.ErrorIs(t, err, core.ErrTextTooLong)

	notes, err := env.noteRepo.GetRecentNotes(ctx, 10)
	require.NoError(t, err)
	assert.Empty(t, notes)
}

func TestIngestCancelledBeforePersist(t *testing.T) {
	env := newTestEnv(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	env.extractor.ExtractEntitiesFunc = func(ctx context.Context, text string) ([]ai.ExtractedEntity, error) {
		cancel()
		return nil, nil
	}

	_, err := env.pipeline.Ingest(ctx, &IngestRequest{Text: "Met with Sarah"})
	assert.ErrorIs(t, err, context.Canceled)

	notes, err := env.noteRepo.GetRecentNotes(context.Background(), 10)
	require.NoError(t, err)
	assert.Empty(t, notes)
}

func TestIngestBulk(t *testing.T) {
	env := newTestEnv(t, WithPoolSize(2))
	ctx := context.Background()

	reqs := []*IngestRequest{
		{Text: "Kickoff with Sarah"},
		{Text: ""}, // invalid, must not sink the batch
		{Text: "Apollo retro with Marcus"},
	}

	outcomes, err := env.pipeline.IngestBulk(ctx, reqs)
	require.NoError(t, err)
	require.Len(t, outcomes, 3)

	require.NoError(t, outcomes[0].Err)
	assert.ErrorIs(t, outcomes[1].Err, core.ErrEmptyText)
	require.NoError(t, outcomes[2].Err)

	// Outcomes stay aligned with requests
	note0, err := env.noteRepo.GetNote(ctx, outcomes[0].Result.NoteId)
	require.NoError(t, err)
	assert.Equal(t, "Kickoff with Sarah", note0.Text)

	notes, err := env.noteRepo.GetRecentNotes(ctx, 10)
	require.NoError(t, err)
	assert.Len(t, notes, 2)
}

func TestIngestSharedEntityAcrossNotes(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	first, err := env.pipeline.Ingest(ctx, &IngestRequest{Text: "Paired with Sarah"})
	require.NoError(t, err)
	require.Len(t, first.LinkedEntities, 1)
	assert.True(t, first.LinkedEntities[0].IsNew)

	second, err := env.pipeline.Ingest(ctx, &IngestRequest{Text: "Review from Sarah"})
	require.NoError(t, err)
	require.Len(t, second.LinkedEntities, 1)
	assert.False(t, second.LinkedEntities[0].IsNew)
	assert.Equal(t, first.LinkedEntities[0].EntityId, second.LinkedEntities[0].EntityId)

	noteIDs, err := env.noteRepo.GetNoteIDsByEntity(ctx, first.LinkedEntities[0].EntityId)
	require.NoError(t, err)
	assert.Len(t, noteIDs, 2)
}

func TestNewPipelineValidation(t *testing.T) {
	noteRepo, entityRepo, backend, err := badger.NewMemoryRepositories()
	require.NoError(t, err)
	defer backend.Close()
	defer noteRepo.Close()
	defer entityRepo.Close()

	resolver, err := resolve.NewResolver(entityRepo, resolve.DefaultConfig())
	require.NoError(t, err)
	provider := mock.NewMockProvider()

	_, err = NewPipeline(nil, resolver, provider)
	assert.ErrorIs(t, err, ErrNoteRepositoryRequired)

	_, err = NewPipeline(noteRepo, nil, provider)
	assert.ErrorIs(t, err, ErrResolverRequired)

	_, err = NewPipeline(noteRepo, resolver, nil)
	assert.ErrorIs(t, err, ErrAIProviderRequired)

	_, err = NewPipeline(noteRepo, resolver, provider, WithStepTimeout(0))
	assert.Error(t, err)
}
