package search

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/poiesic/notewell/ai/mock"
	"github.com/poiesic/notewell/core"
	"github.com/poiesic/notewell/storage"
	"github.com/poiesic/notewell/storage/badger"
)

func newTestSearcher(t *testing.T, opts ...Option) (*Searcher, storage.NoteRepository, storage.EntityRepository, *mock.MockEmbedder) {
	t.Helper()

	noteRepo, entityRepo, backend, err := badger.NewMemoryRepositories()
	require.NoError(t, err)
	t.Cleanup(func() {
		entityRepo.Close()
		noteRepo.Close()
		backend.Close()
	})

	embedder := mock.NewMockEmbedder()
	provider := mock.NewMockProviderWithServices(embedder, mock.NewMockEntityExtractor())

	searcher, err := NewSearcher(noteRepo, entityRepo, provider, opts...)
	require.NoError(t, err)
	return searcher, noteRepo, entityRepo, embedder
}

func addNote(t *testing.T, repo storage.NoteRepository, text string, ts time.Time, vector []float32) *core.Note {
	t.Helper()
	note := &core.Note{Text: text, Timestamp: ts, Vector: vector}
	_, err := repo.AddNote(context.Background(), note, nil)
	require.NoError(t, err)
	return note
}

func TestSearchBlendsSignals(t *testing.T) {
	searcher, noteRepo, _, embedder := newTestSearcher(t)
	ctx := context.Background()
	now := time.Now().Add(-time.Minute)

	embedder.EmbedTextFunc = func(ctx context.Context, text string) ([]float32, error) {
		return []float32{1, 0, 0, 0}, nil
	}

	// Lexical + perfect vector match
	noteA := addNote(t, noteRepo, "Kubernetes upgrade plan for kubernetes cluster", now, []float32{1, 0, 0, 0})
	// Lexical only: orthogonal vector falls below the cosine floor
	noteB := addNote(t, noteRepo, "kubernetes incident postmortem", now.Add(time.Second), []float32{0, 1, 0, 0})
	// Vector only: no keyword overlap
	noteC := addNote(t, noteRepo, "database migration runbook", now.Add(2*time.Second), []float32{0.8, 0.6, 0, 0})
	// Neither signal
	addNote(t, noteRepo, "gardening ideas", now.Add(3*time.Second), nil)

	results, err := searcher.Search(ctx, "kubernetes", SearchOptions{})
	require.NoError(t, err)
	require.Len(t, results, 3)

	// 0.4·1 + 0.6·1, then 0.6·0.9, then text-only 0.5
	assert.Equal(t, noteA.Id, results[0].Note.Id)
	assert.InDelta(t, 1.0, results[0].FinalScore, 0.01)
	assert.Equal(t, 1.0, results[0].TextRank)
	require.NotNil(t, results[0].SimilarityScore)

	assert.Equal(t, noteC.Id, results[1].Note.Id)
	assert.InDelta(t, 0.54, results[1].FinalScore, 0.01)
	assert.Equal(t, 0.0, results[1].TextRank)

	assert.Equal(t, noteB.Id, results[2].Note.Id)
	assert.InDelta(t, 0.5, results[2].FinalScore, 0.01)
	assert.Nil(t, results[2].SimilarityScore)
}

func TestSearchEmbeddingFailureFallsBackToLexical(t *testing.T) {
	searcher, noteRepo, _, embedder := newTestSearcher(t)
	ctx := context.Background()
	now := time.Now().Add(-time.Minute)

	embedder.EmbedTextFunc = func(ctx context.Context, text string) ([]float32, error) {
		return nil, errors.New("embedding service down")
	}

	noteA := addNote(t, noteRepo, "kubernetes kubernetes rollout", now, []float32{1, 0, 0, 0})
	noteB := addNote(t, noteRepo, "kubernetes basics", now.Add(time.Second), []float32{1, 0, 0, 0})

	results, err := searcher.Search(ctx, "kubernetes", SearchOptions{})
	require.NoError(t, err)
	require.Len(t, results, 2)

	// Stored vectors carry no weight without a query embedding
	assert.Equal(t, noteA.Id, results[0].Note.Id)
	assert.Equal(t, 1.0, results[0].FinalScore)
	assert.Nil(t, results[0].SimilarityScore)
	assert.Equal(t, noteB.Id, results[1].Note.Id)
	assert.Equal(t, 0.5, results[1].FinalScore)
}

func TestSearchDaysBack(t *testing.T) {
	searcher, noteRepo, _, embedder := newTestSearcher(t)
	ctx := context.Background()

	embedder.EmbedTextFunc = func(ctx context.Context, text string) ([]float32, error) {
		return nil, errors.New("lexical only")
	}

	addNote(t, noteRepo, "kubernetes migration kickoff", time.Now().AddDate(0, 0, -10), nil)
	recent := addNote(t, noteRepo, "kubernetes migration wrap-up", time.Now().Add(-time.Hour), nil)

	results, err := searcher.Search(ctx, "kubernetes", SearchOptions{DaysBack: 3})
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, recent.Id, results[0].Note.Id)

	// No window returns both
	results, err = searcher.Search(ctx, "kubernetes", SearchOptions{})
	require.NoError(t, err)
	assert.Len(t, results, 2)
}

func TestSearchEntityFilter(t *testing.T) {
	searcher, noteRepo, entityRepo, embedder := newTestSearcher(t)
	ctx := context.Background()
	now := time.Now().Add(-time.Minute)

	embedder.EmbedTextFunc = func(ctx context.Context, text string) ([]float32, error) {
		return nil, errors.New("lexical only")
	}

	entities, err := entityRepo.AddEntities(ctx, &core.Entity{
		CanonicalName: "Sarah Chen",
		Type:          core.EntityTypePerson,
		Confidence:    0.9,
		FirstSeen:     now,
		LastSeen:      now,
	})
	require.NoError(t, err)
	sarah := entities[0]

	withMention := &core.Note{Text: "standup recap with the team", Timestamp: now}
	_, err = noteRepo.AddNote(ctx, withMention, []*core.EntityMention{{
		EntityId: sarah.Id, MentionedText: "Sarah", Confidence: 0.9,
		SpanStart: core.SpanAbsent, SpanEnd: core.SpanAbsent,
	}})
	require.NoError(t, err)
	addNote(t, noteRepo, "standup recap, nobody around", now.Add(time.Second), nil)

	// Filter is case-insensitive on the canonical name
	results, err := searcher.Search(ctx, "standup recap", SearchOptions{EntityFilter: "SARAH chen"})
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, withMention.Id, results[0].Note.Id)

	// An unknown entity matches nothing
	results, err = searcher.Search(ctx, "standup recap", SearchOptions{EntityFilter: "Marcus"})
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestSearchLimit(t *testing.T) {
	searcher, noteRepo, _, embedder := newTestSearcher(t)
	ctx := context.Background()
	now := time.Now().Add(-time.Hour)

	embedder.EmbedTextFunc = func(ctx context.Context, text string) ([]float32, error) {
		return nil, errors.New("lexical only")
	}

	for i := 0; i < 5; i++ {
		addNote(t, noteRepo, "kubernetes touchpoint", now.Add(time.Duration(i)*time.Minute), nil)
	}

	results, err := searcher.Search(ctx, "kubernetes", SearchOptions{Limit: 2})
	require.NoError(t, err)
	require.Len(t, results, 2)

	// Equal scores break ties newest first
	assert.True(t, results[0].Note.Timestamp.After(results[1].Note.Timestamp))
}

func TestSearchEmptyQuery(t *testing.T) {
	searcher, _, _, _ := newTestSearcher(t)

	_, err := searcher.Search(context.Background(), "   ", SearchOptions{})
	assert.ErrorIs(t, err, ErrEmptyQuery)
}

type recordingMonitor struct {
	started    bool
	vector     int
	lexical    []core.ID
	filtered   []core.ID
	finishedAt int
}

func (m *recordingMonitor) Start(_ string)                                   { m.started = true }
func (m *recordingMonitor) AfterVectorSearch(matches []core.SimilarityMatch) { m.vector = len(matches) }
func (m *recordingMonitor) AfterLexicalScan(ids []core.ID)                   { m.lexical = ids }
func (m *recordingMonitor) AfterEntityFilter(ids []core.ID)                  { m.filtered = ids }
func (m *recordingMonitor) Finish(results []*core.RankedNote)                { m.finishedAt = len(results) }

func TestSearchWithMonitor(t *testing.T) {
	searcher, noteRepo, _, embedder := newTestSearcher(t)
	ctx := context.Background()
	now := time.Now().Add(-time.Minute)

	embedder.EmbedTextFunc = func(ctx context.Context, text string) ([]float32, error) {
		return []float32{1, 0, 0, 0}, nil
	}
	addNote(t, noteRepo, "kubernetes rollout", now, []float32{1, 0, 0, 0})

	monitor := &recordingMonitor{}
	results, err := searcher.SearchWithMonitor(ctx, "kubernetes", SearchOptions{}, monitor)
	require.NoError(t, err)

	assert.True(t, monitor.started)
	assert.Equal(t, 1, monitor.vector)
	assert.Len(t, monitor.lexical, 1)
	assert.Equal(t, len(results), monitor.finishedAt)
}

func TestNewSearcherValidation(t *testing.T) {
	noteRepo, entityRepo, backend, err := badger.NewMemoryRepositories()
	require.NoError(t, err)
	defer backend.Close()
	defer noteRepo.Close()
	defer entityRepo.Close()
	provider := mock.NewMockProvider()

	_, err = NewSearcher(nil, entityRepo, provider)
	assert.ErrorIs(t, err, ErrNoteRepositoryRequired)

	_, err = NewSearcher(noteRepo, nil, provider)
	assert.ErrorIs(t, err, ErrEntityRepositoryRequired)

	_, err = NewSearcher(noteRepo, entityRepo, nil)
	assert.ErrorIs(t, err, ErrAIProviderRequired)

	_, err = NewSearcher(noteRepo, entityRepo, provider, WithWeights(-1, 1))
	assert.Error(t, err)
}
