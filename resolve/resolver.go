// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.


package resolve

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"

	"github.com/poiesic/notewell/ai"
	"github.com/poiesic/notewell/core"
	"github.com/poiesic/notewell/storage"
)

// Resolution is the outcome of resolving one extraction candidate.
type Resolution struct {
	// Entity is the registry entity the candidate resolved to.
	Entity *core.Entity

	// IsNew is true when resolution created the entity.
	IsNew bool

	// Candidate is the extraction candidate that was resolved.
	Candidate ai.ExtractedEntity
}

// EntityMatch is one fuzzy search hit.
type EntityMatch struct {
	Entity *core.Entity
	Score  float64
}

// Resolver maps extracted surface forms onto the deduplicated entity
// registry: exact normalized match first, then fuzzy trigram match,
// then creation. Implementations must be safe for concurrent use.
type Resolver interface {
	// Resolve maps one extraction candidate to a registry entity,
	// creating it if no existing entity matches. The same surface form
	// resolved twice always lands on the same entity.
	Resolve(ctx context.Context, candidate ai.ExtractedEntity) (*Resolution, error)

	// Merge folds one entity into another. The survivor is chosen by
	// mention count, then earlier first-seen, then lower ID.
	// Returns the surviving entity.
	Merge(ctx context.Context, a, b core.ID) (*core.Entity, error)

	// SearchEntities finds registry entities whose names or aliases
	// loosely match the query, best first.
	SearchEntities(ctx context.Context, query string, limit int) ([]EntityMatch, error)
}

type resolver struct {
	entities storage.EntityRepository
	config   *Config
	logger   *slog.Logger
}

// NewResolver creates a resolver over the given entity repository.
//
// Returns the Resolver interface to enforce abstraction.
func NewResolver(entities storage.EntityRepository, config *Config) (Resolver, error) {
	if config == nil {
		config = DefaultConfig()
	}
	if err := config.Validate(); err != nil {
		return nil, err
	}
	return &resolver{
		entities: entities,
		config:   config,
		logger:   slog.Default().With("component", "resolver"),
	}, nil
}

// Resolve implements the three-stage lookup. Entity creation commits
// independently of any surrounding note transaction: entities are
// shared records, and a lost creation race is handled by re-reading
// the committed winner.
func (r *resolver) Resolve(ctx context.Context, candidate ai.ExtractedEntity) (*Resolution, error) {
	text := strings.TrimSpace(candidate.Text)
	if text == "" {
		return nil, fmt.Errorf("%w: empty text", ErrInvalidCandidate)
	}
	entityType, err := core.ParseEntityType(candidate.Type)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidCandidate, err)
	}
	normalized := core.NormalizeMention(text)

	// Stage 1: exact normalized match on canonical name or alias
	entity, err := r.entities.FindEntityByName(ctx, normalized, entityType)
	if err == nil {
		if err := r.raiseConfidence(ctx, entity, candidate.Confidence); err != nil {
			return nil, err
		}
		return &Resolution{Entity: entity, Candidate: candidate}, nil
	}
	if !errors.Is(err, storage.ErrNotFound) {
		return nil, err
	}

	// Stage 2: fuzzy match over entities of the same type
	entity, score, err := r.fuzzyMatch(ctx, normalized, entityType)
	if err != nil {
		return nil, err
	}
	if entity != nil {
		r.logger.Debug("fuzzy matched",
			"text", text,
			"entity", entity.CanonicalName,
			"score", score)
		// Record the new surface form so the next occurrence matches
		// exactly. A duplicate-key here means a racing writer claimed
		// the alias; the match itself still stands.
		if err := r.entities.AddAlias(ctx, entity.Id, normalized); err != nil && !errors.Is(err, storage.ErrDuplicateKey) {
			return nil, err
		}
		if err := r.raiseConfidence(ctx, entity, candidate.Confidence); err != nil {
			return nil, err
		}
		return &Resolution{Entity: entity, Candidate: candidate}, nil
	}

	// Stage 3: create. On a duplicate-key race, the winner's committed
	// entity is re-read once and used instead.
	created := &core.Entity{
		CanonicalName: text,
		Type:          entityType,
		Confidence:    candidate.Confidence,
	}
	if _, err := r.entities.AddEntities(ctx, created); err != nil {
		if !errors.Is(err, storage.ErrDuplicateKey) {
			return nil, err
		}
		winner, findErr := r.entities.FindEntityByName(ctx, normalized, entityType)
		if findErr != nil {
			return nil, fmt.Errorf("%w: lost creation race for %q and re-read failed: %v", ErrResolutionFailed, text, findErr)
		}
		return &Resolution{Entity: winner, Candidate: candidate}, nil
	}

	r.logger.Debug("created entity", "name", text, "type", entityType.String())
	return &Resolution{Entity: created, IsNew: true, Candidate: candidate}, nil
}

// fuzzyMatch scans same-type entities and returns the best candidate at
// or above FuzzyThreshold, or nil when none qualifies. Candidates tied
// within TieEpsilon of the best score are ordered by mention count,
// then earlier first-seen, then lower ID.
func (r *resolver) fuzzyMatch(ctx context.Context, normalized string, entityType core.EntityType) (*core.Entity, float64, error) {
	candidates, err := r.entities.GetEntitiesByType(ctx, entityType)
	if err != nil {
		return nil, 0, err
	}

	type scored struct {
		entity *core.Entity
		score  float64
	}
	var qualified []scored
	for _, entity := range candidates {
		score := bestFormScore(normalized, entity)
		if score >= r.config.FuzzyThreshold {
			qualified = append(qualified, scored{entity, score})
		}
	}
	if len(qualified) == 0 {
		return nil, 0, nil
	}

	best := qualified[0].score
	for _, q := range qualified[1:] {
		if q.score > best {
			best = q.score
		}
	}
	epsilon := r.config.TieEpsilon
	slices.SortFunc(qualified, func(a, b scored) int {
		aTied := best-a.score <= epsilon
		bTied := best-b.score <= epsilon
		if aTied != bTied {
			if aTied {
				return -1
			}
			return 1
		}
		if !aTied {
			// Outside the tie band plain score order applies
			if a.score != b.score {
				if a.score > b.score {
					return -1
				}
				return 1
			}
		}
		if a.entity.MentionCount != b.entity.MentionCount {
			if a.entity.MentionCount > b.entity.MentionCount {
				return -1
			}
			return 1
		}
		if !a.entity.FirstSeen.Equal(b.entity.FirstSeen) {
			if a.entity.FirstSeen.Before(b.entity.FirstSeen) {
				return -1
			}
			return 1
		}
		if a.entity.Id != b.entity.Id {
			if a.entity.Id < b.entity.Id {
				return -1
			}
			return 1
		}
		return 0
	})

	return qualified[0].entity, qualified[0].score, nil
}

// raiseConfidence lifts the entity's rolling confidence to the mention
// confidence if higher. The aggregate only moves up outside merges.
func (r *resolver) raiseConfidence(ctx context.Context, entity *core.Entity, confidence float64) error {
	if confidence <= entity.Confidence {
		return nil
	}
	// Re-read so the write doesn't clobber aliases added since fetch
	fresh, err := r.entities.GetEntity(ctx, entity.Id)
	if err != nil {
		return err
	}
	if confidence <= fresh.Confidence {
		*entity = *fresh
		return nil
	}
	fresh.Confidence = confidence
	if _, err := r.entities.UpdateEntities(ctx, fresh); err != nil {
		return err
	}
	*entity = *fresh
	return nil
}

// Merge folds the lower-ranked of the two entities into the other.
func (r *resolver) Merge(ctx context.Context, a, b core.ID) (*core.Entity, error) {
	entities, err := r.entities.GetEntities(ctx, a, b)
	if err != nil {
		return nil, err
	}
	if len(entities) != 2 {
		return nil, storage.ErrNotFound
	}

	survivor, loser := entities[0], entities[1]
	if !survives(survivor, loser) {
		survivor, loser = loser, survivor
	}

	r.logger.Info("merging entities",
		"survivor", survivor.CanonicalName,
		"loser", loser.CanonicalName)
	return r.entities.MergeEntities(ctx, survivor.Id, loser.Id)
}

// survives reports whether a outranks b as merge survivor: higher
// mention count, then earlier first-seen, then lower ID.
func survives(a, b *core.Entity) bool {
	if a.MentionCount != b.MentionCount {
		return a.MentionCount > b.MentionCount
	}
	if !a.FirstSeen.Equal(b.FirstSeen) {
		return a.FirstSeen.Before(b.FirstSeen)
	}
	return a.Id < b.Id
}

// SearchEntities ranks every registry entity against the query by its
// best surface-form similarity. An exact normalized hit scores 1.0.
func (r *resolver) SearchEntities(ctx context.Context, query string, limit int) ([]EntityMatch, error) {
	normalized := core.NormalizeMention(query)
	if normalized == "" {
		return nil, fmt.Errorf("%w: empty query", ErrInvalidCandidate)
	}

	entities, err := r.entities.GetAllEntities(ctx)
	if err != nil {
		return nil, err
	}

	var matches []EntityMatch
	for _, entity := range entities {
		score := bestFormScore(normalized, entity)
		if score >= r.config.SearchThreshold {
			matches = append(matches, EntityMatch{Entity: entity, Score: score})
		}
	}

	slices.SortFunc(matches, func(a, b EntityMatch) int {
		if a.Score != b.Score {
			if a.Score > b.Score {
				return -1
			}
			return 1
		}
		if a.Entity.MentionCount != b.Entity.MentionCount {
			if a.Entity.MentionCount > b.Entity.MentionCount {
				return -1
			}
			return 1
		}
		if a.Entity.Id < b.Entity.Id {
			return -1
		}
		if a.Entity.Id > b.Entity.Id {
			return 1
		}
		return 0
	})

	if limit > 0 && len(matches) > limit {
		matches = matches[:limit]
	}
	return matches, nil
}

// bestFormScore is the maximum trigram similarity between the
// normalized query and any surface form of the entity.
func bestFormScore(normalized string, entity *core.Entity) float64 {
	best := TrigramSimilarity(normalized, core.NormalizeMention(entity.CanonicalName))
	for _, alias := range entity.Aliases {
		if score := TrigramSimilarity(normalized, alias); score > best {
			best = score
		}
	}
	return best
}
