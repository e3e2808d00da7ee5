package search

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/poiesic/notewell/ai"
	"github.com/poiesic/notewell/core"
	"github.com/poiesic/notewell/storage"
)

const (
	// DefaultLimit bounds result sets when the caller passes no limit.
	DefaultLimit = 10

	defaultTextWeight   = 0.4
	defaultVectorWeight = 0.6
	defaultMinCosine    = 0.3
)

// SearchOptions narrows and bounds one search call.
type SearchOptions struct {
	// Limit caps the result count. Zero means DefaultLimit.
	Limit int

	// DaysBack restricts results to a trailing window of whole days,
	// inclusive. Zero means no time restriction.
	DaysBack int

	// EntityFilter restricts results to notes mentioning the named
	// entity. Matched case-insensitively against canonical names and
	// aliases across all entity types.
	EntityFilter string
}

// Searcher ranks notes by a blend of keyword overlap and embedding
// similarity against the query.
type Searcher struct {
	noteRepository   storage.NoteRepository
	entityRepository storage.EntityRepository
	embedder         ai.Embedder
	textWeight       float64
	vectorWeight     float64
	minCosine        float32
	logger           *slog.Logger
}

// Option configures a Searcher.
type Option func(*Searcher) error

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(s *Searcher) error {
		if logger == nil {
			logger = slog.Default()
		}
		s.logger = logger
		return nil
	}
}

// WithWeights sets the lexical and vector blend weights.
// Defaults are 0.4 and 0.6.
func WithWeights(text, vector float64) Option {
	return func(s *Searcher) error {
		if text < 0 || vector < 0 || text+vector == 0 {
			return fmt.Errorf("weights must be non-negative and not both zero")
		}
		s.textWeight = text
		s.vectorWeight = vector
		return nil
	}
}

// WithMinCosine sets the cosine floor below which vector matches are
// discarded. Default is 0.3.
func WithMinCosine(minCosine float32) Option {
	return func(s *Searcher) error {
		if minCosine < -1 || minCosine > 1 {
			return fmt.Errorf("min cosine must be in [-1,1]")
		}
		s.minCosine = minCosine
		return nil
	}
}

// NewSearcher creates a new searcher.
func NewSearcher(
	noteRepository storage.NoteRepository,
	entityRepository storage.EntityRepository,
	provider ai.AIProvider,
	opts ...Option,
) (*Searcher, error) {
	if noteRepository == nil {
		return nil, ErrNoteRepositoryRequired
	}
	if entityRepository == nil {
		return nil, ErrEntityRepositoryRequired
	}
	if provider == nil {
		return nil, ErrAIProviderRequired
	}

	s := &Searcher{
		noteRepository:   noteRepository,
		entityRepository: entityRepository,
		embedder:         provider.Embedder(),
		textWeight:       defaultTextWeight,
		vectorWeight:     defaultVectorWeight,
		minCosine:        defaultMinCosine,
		logger:           slog.Default(),
	}

	// Apply options
	for _, opt := range opts {
		if err := opt(s); err != nil {
			return nil, err
		}
	}

	return s, nil
}

// Search ranks notes against the query.
// Returns up to opts.Limit results, best first.
func (s *Searcher) Search(ctx context.Context, query string, opts SearchOptions) ([]*core.RankedNote, error) {
	return s.SearchWithMonitor(ctx, query, opts, nil)
}

// SearchWithMonitor ranks notes against the query with monitoring.
// The monitor receives callbacks at each stage of the search process.
func (s *Searcher) SearchWithMonitor(ctx context.Context, query string, opts SearchOptions, monitor SearchMonitor) ([]*core.RankedNote, error) {
	if monitor == nil {
		monitor = &noopMonitor{}
	}
	if strings.TrimSpace(query) == "" {
		return nil, ErrEmptyQuery
	}

	limit := opts.Limit
	if limit <= 0 {
		limit = DefaultLimit
	}

	monitor.Start(query)

	// 1. Collect the candidate window
	end := time.Now()
	start := time.Unix(0, 0)
	if opts.DaysBack > 0 {
		start = end.Add(-time.Duration(opts.DaysBack) * 24 * time.Hour)
	}
	notes, err := s.noteRepository.GetNotesByDateRange(ctx, start, end.Add(time.Second))
	if err != nil {
		s.logger.Error("error scanning notes for search", "err", err)
		return nil, err
	}
	noteByID := make(map[core.ID]*core.Note, len(notes))
	for _, note := range notes {
		noteByID[note.Id] = note
	}

	// 2. Vector similarity. An embedding failure degrades to
	// lexical-only scoring rather than failing the search.
	simByID := make(map[core.ID]float64)
	if embedding, embedErr := s.embedder.EmbedText(ctx, query); embedErr != nil {
		s.logger.Warn("query embedding failed, falling back to lexical ranking", "err", embedErr)
	} else {
		candidateCap := limit * 4
		if candidateCap < 50 {
			candidateCap = 50
		}
		matches, simErr := s.noteRepository.FindSimilar(ctx, embedding, s.minCosine, candidateCap)
		if simErr != nil {
			s.logger.Error("error querying for similar notes", "err", simErr)
			return nil, simErr
		}
		for _, match := range matches {
			if _, inWindow := noteByID[match.NoteId]; inWindow {
				// Map cosine [-1,1] onto [0,1]
				simByID[match.NoteId] = (1 + float64(match.Cosine)) / 2
			}
		}
		monitor.AfterVectorSearch(matches)
	}

	// 3. Lexical ranking over the window
	queryTokens := tokenizeAndFilter(query)
	rankByID := make(map[core.ID]float64)
	var maxRank float64
	lexicalIds := make([]core.ID, 0, len(notes))
	for _, note := range notes {
		rank := lexicalRank(note.Text, queryTokens)
		if rank == 0 {
			continue
		}
		rankByID[note.Id] = rank
		lexicalIds = append(lexicalIds, note.Id)
		if rank > maxRank {
			maxRank = rank
		}
	}
	monitor.AfterLexicalScan(lexicalIds)

	// 4. Optional entity filter
	var allowed map[core.ID]bool
	if opts.EntityFilter != "" {
		allowed, err = s.notesMentioning(ctx, opts.EntityFilter)
		if err != nil {
			return nil, err
		}
		filteredIds := make([]core.ID, 0, len(allowed))
		for id := range allowed {
			filteredIds = append(filteredIds, id)
		}
		monitor.AfterEntityFilter(filteredIds)
	}

	// 5. Blend and rank
	results := make([]*core.RankedNote, 0, len(rankByID)+len(simByID))
	for id, note := range noteByID {
		rank, isLexical := rankByID[id]
		sim, hasSim := simByID[id]
		if !isLexical && !hasSim {
			continue
		}
		if allowed != nil && !allowed[id] {
			continue
		}

		textRank := 0.0
		if maxRank > 0 {
			textRank = rank / maxRank
		}

		ranked := &core.RankedNote{Note: note, TextRank: textRank}
		if hasSim {
			ranked.SimilarityScore = &sim
			ranked.FinalScore = s.textWeight*textRank + s.vectorWeight*sim
		} else {
			// No usable vector signal: lexical rank stands alone
			ranked.FinalScore = textRank
		}
		results = append(results, ranked)
	}

	sort.Slice(results, func(i, j int) bool {
		if results[i].FinalScore != results[j].FinalScore {
			return results[i].FinalScore > results[j].FinalScore
		}
		if !results[i].Note.Timestamp.Equal(results[j].Note.Timestamp) {
			return results[i].Note.Timestamp.After(results[j].Note.Timestamp)
		}
		return results[i].Note.Id < results[j].Note.Id
	})
	if len(results) > limit {
		results = results[:limit]
	}
	monitor.Finish(results)

	return results, nil
}

// notesMentioning resolves the filter name against canonical names and
// aliases across every entity type and returns the IDs of notes with at
// least one mention of a matching entity.
func (s *Searcher) notesMentioning(ctx context.Context, name string) (map[core.ID]bool, error) {
	normalized := core.NormalizeMention(name)
	allowed := make(map[core.ID]bool)

	for _, entityType := range core.AllEntityTypes() {
		entity, err := s.entityRepository.FindEntityByName(ctx, normalized, entityType)
		if err != nil {
			if errors.Is(err, storage.ErrNotFound) {
				continue
			}
			return nil, err
		}
		noteIDs, err := s.noteRepository.GetNoteIDsByEntity(ctx, entity.Id)
		if err != nil {
			return nil, err
		}
		for _, id := range noteIDs {
			allowed[id] = true
		}
	}

	return allowed, nil
}
