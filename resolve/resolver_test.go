package resolve

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/poiesic/notewell/ai"
	"github.com/poiesic/notewell/core"
	"github.com/poiesic/notewell/storage"
	"github.com/poiesic/notewell/storage/badger"
)

func newTestResolver(t *testing.T) (Resolver, storage.NoteRepository, storage.EntityRepository) {
	t.Helper()
	noteRepo, entityRepo, backend, err := badger.NewMemoryRepositories()
	require.NoError(t, err)
	t.Cleanup(func() {
		entityRepo.Close()
		noteRepo.Close()
		backend.Close()
	})

	resolver, err := NewResolver(entityRepo, DefaultConfig())
	require.NoError(t, err)
	return resolver, noteRepo, entityRepo
}

func TestResolveCreatesThenMatchesExactly(t *testing.T) {
	resolver, _, _ := newTestResolver(t)
	ctx := context.Background()

	first, err := resolver.Resolve(ctx, ai.ExtractedEntity{
		Text: "John", Type: "person", Confidence: 0.9,
		SpanStart: -1, SpanEnd: -1,
	})
	require.NoError(t, err)
	assert.True(t, first.IsNew)
	assert.Equal(t, "John", first.Entity.CanonicalName)
	assert.Equal(t, core.EntityTypePerson, first.Entity.Type)

	second, err := resolver.Resolve(ctx, ai.ExtractedEntity{
		Text: "John", Type: "person", Confidence: 0.8,
		SpanStart: -1, SpanEnd: -1,
	})
	require.NoError(t, err)
	assert.False(t, second.IsNew)
	assert.Equal(t, first.Entity.Id, second.Entity.Id)
}

func TestResolveNormalizesSurfaceForms(t *testing.T) {
	resolver, _, _ := newTestResolver(t)
	ctx := context.Background()

	first, err := resolver.Resolve(ctx, ai.ExtractedEntity{
		Text: "Sarah Chen", Type: "person", Confidence: 0.9,
	})
	require.NoError(t, err)

	// Case and internal whitespace differences collapse to the same entity
	second, err := resolver.Resolve(ctx, ai.ExtractedEntity{
		Text: "  SARAH   CHEN ", Type: "person", Confidence: 0.9,
	})
	require.NoError(t, err)
	assert.False(t, second.IsNew)
	assert.Equal(t, first.Entity.Id, second.Entity.Id)
	// Canonical name keeps the original casing
	assert.Equal(t, "Sarah Chen", second.Entity.CanonicalName)
}

func TestResolveFuzzyAddsAlias(t *testing.T) {
	resolver, _, entityRepo := newTestResolver(t)
	ctx := context.Background()

	first, err := resolver.Resolve(ctx, ai.ExtractedEntity{
		Text: "Project Apollo", Type: "project", Confidence: 0.9,
	})
	require.NoError(t, err)

	// One dropped letter keeps trigram similarity above the threshold
	second, err := resolver.Resolve(ctx, ai.ExtractedEntity{
		Text: "Project Apolo", Type: "project", Confidence: 0.85,
	})
	require.NoError(t, err)
	assert.False(t, second.IsNew)
	assert.Equal(t, first.Entity.Id, second.Entity.Id)

	// The variant is recorded as an alias, so the next hit is exact
	entity, err := entityRepo.GetEntity(ctx, first.Entity.Id)
	require.NoError(t, err)
	assert.True(t, entity.HasAlias("project apolo"))

	third, err := resolver.Resolve(ctx, ai.ExtractedEntity{
		Text: "project apolo", Type: "project", Confidence: 0.85,
	})
	require.NoError(t, err)
	assert.Equal(t, first.Entity.Id, third.Entity.Id)
}

func TestResolveScopedByType(t *testing.T) {
	resolver, _, _ := newTestResolver(t)
	ctx := context.Background()

	person, err := resolver.Resolve(ctx, ai.ExtractedEntity{
		Text: "Apollo", Type: "person", Confidence: 0.9,
	})
	require.NoError(t, err)

	project, err := resolver.Resolve(ctx, ai.ExtractedEntity{
		Text: "Apollo", Type: "project", Confidence: 0.9,
	})
	require.NoError(t, err)

	assert.True(t, project.IsNew)
	assert.NotEqual(t, person.Entity.Id, project.Entity.Id)
}

func TestResolveOrganizationFoldsToConcept(t *testing.T) {
	resolver, _, _ := newTestResolver(t)
	ctx := context.Background()

	res, err := resolver.Resolve(ctx, ai.ExtractedEntity{
		Text: "Acme Corp", Type: "organization", Confidence: 0.9,
	})
	require.NoError(t, err)
	assert.Equal(t, core.EntityTypeConcept, res.Entity.Type)

	// The concept-typed surface form resolves to the same entity
	same, err := resolver.Resolve(ctx, ai.ExtractedEntity{
		Text: "acme corp", Type: "concept", Confidence: 0.8,
	})
	require.NoError(t, err)
	assert.Equal(t, res.Entity.Id, same.Entity.Id)
}

func TestResolveInvalidCandidate(t *testing.T) {
	resolver, _, _ := newTestResolver(t)
	ctx := context.Background()

	_, err := resolver.Resolve(ctx, ai.ExtractedEntity{Text: "", Type: "person"})
	assert.ErrorIs(t, err, ErrInvalidCandidate)

	_, err = resolver.Resolve(ctx, ai.ExtractedEntity{Text: "Sarah", Type: "planet"})
	assert.ErrorIs(t, err, ErrInvalidCandidate)
}

func TestResolveRaisesConfidence(t *testing.T) {
	resolver, _, entityRepo := newTestResolver(t)
	ctx := context.Background()

	first, err := resolver.Resolve(ctx, ai.ExtractedEntity{
		Text: "React", Type: "technology", Confidence: 0.6,
	})
	require.NoError(t, err)
	assert.Equal(t, 0.6, first.Entity.Confidence)

	// Higher mention confidence lifts the aggregate
	_, err = resolver.Resolve(ctx, ai.ExtractedEntity{
		Text: "React", Type: "technology", Confidence: 0.95,
	})
	require.NoError(t, err)
	entity, err := entityRepo.GetEntity(ctx, first.Entity.Id)
	require.NoError(t, err)
	assert.Equal(t, 0.95, entity.Confidence)

	// Lower confidence never drags it back down
	_, err = resolver.Resolve(ctx, ai.ExtractedEntity{
		Text: "React", Type: "technology", Confidence: 0.5,
	})
	require.NoError(t, err)
	entity, err = entityRepo.GetEntity(ctx, first.Entity.Id)
	require.NoError(t, err)
	assert.Equal(t, 0.95, entity.Confidence)
}

func TestMergePicksSurvivorByMentionCount(t *testing.T) {
	resolver, noteRepo, entityRepo := newTestResolver(t)
	ctx := context.Background()
	now := time.Now().UTC()

	busy, err := resolver.Resolve(ctx, ai.ExtractedEntity{
		Text: "Sarah Chen", Type: "person", Confidence: 0.9,
	})
	require.NoError(t, err)
	quiet, err := resolver.Resolve(ctx, ai.ExtractedEntity{
		Text: "S Chen", Type: "person", Confidence: 0.8,
	})
	require.NoError(t, err)

	// Two mentions for busy, one for quiet
	for i, entityID := range []core.ID{busy.Entity.Id, busy.Entity.Id, quiet.Entity.Id} {
		note := &core.Note{Text: "standup notes", Timestamp: now.Add(time.Duration(i) * time.Minute)}
		_, err := noteRepo.AddNote(ctx, note, []*core.EntityMention{{
			EntityId: entityID, MentionedText: "chen", Confidence: 0.9,
			SpanStart: core.SpanAbsent, SpanEnd: core.SpanAbsent,
		}})
		require.NoError(t, err)
	}

	merged, err := resolver.Merge(ctx, quiet.Entity.Id, busy.Entity.Id)
	require.NoError(t, err)

	// Higher mention count survives regardless of argument order
	assert.Equal(t, busy.Entity.Id, merged.Id)
	assert.Equal(t, uint64(3), merged.MentionCount)
	assert.True(t, merged.HasAlias("s chen"))

	_, err = entityRepo.GetEntity(ctx, quiet.Entity.Id)
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestSearchEntities(t *testing.T) {
	resolver, _, _ := newTestResolver(t)
	ctx := context.Background()

	for _, seed := range []struct{ text, typ string }{
		{"Project Apollo", "project"},
		{"Apollo Client", "technology"},
		{"Sarah Chen", "person"},
	} {
		_, err := resolver.Resolve(ctx, ai.ExtractedEntity{Text: seed.text, Type: seed.typ, Confidence: 0.9})
		require.NoError(t, err)
	}

	matches, err := resolver.SearchEntities(ctx, "apollo", 10)
	require.NoError(t, err)
	require.Len(t, matches, 2)
	assert.GreaterOrEqual(t, matches[0].Score, matches[1].Score)
	for _, m := range matches {
		assert.Contains(t, m.Entity.CanonicalName, "Apollo")
	}

	// Exact hit scores 1.0 and sorts first
	matches, err = resolver.SearchEntities(ctx, "Project Apollo", 10)
	require.NoError(t, err)
	require.NotEmpty(t, matches)
	assert.Equal(t, "Project Apollo", matches[0].Entity.CanonicalName)
	assert.Equal(t, 1.0, matches[0].Score)

	_, err = resolver.SearchEntities(ctx, "   ", 10)
	assert.ErrorIs(t, err, ErrInvalidCandidate)
}

func TestResolveConcurrentSameCandidate(t *testing.T) {
	resolver, _, entityRepo := newTestResolver(t)
	ctx := context.Background()

	// Parallel resolutions of an unseen surface form race to create the
	// entity. Exactly one creation wins; the rest must settle on the
	// winner instead of degrading or erroring.
	const callers = 8
	resolutions := make([]*Resolution, callers)
	errs := make([]error, callers)

	var wg sync.WaitGroup
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			resolutions[i], errs[i] = resolver.Resolve(ctx, ai.ExtractedEntity{
				Text: "Marcus", Type: "person", Confidence: 0.9,
				SpanStart: -1, SpanEnd: -1,
			})
		}(i)
	}
	wg.Wait()

	for i := 0; i < callers; i++ {
		require.NoError(t, errs[i], "caller %d", i)
		require.NotNil(t, resolutions[i].Entity, "caller %d", i)
	}

	people, err := entityRepo.GetEntitiesByType(ctx, core.EntityTypePerson)
	require.NoError(t, err)
	require.Len(t, people, 1)

	created := 0
	for i := 0; i < callers; i++ {
		assert.Equal(t, people[0].Id, resolutions[i].Entity.Id, "caller %d", i)
		if resolutions[i].IsNew {
			created++
		}
	}
	assert.Equal(t, 1, created)
}
