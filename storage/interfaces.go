package storage

import (
	"context"
	"time"

	"github.com/poiesic/notewell/core"
)

// Repository provides common storage operations shared across all repositories.
// Implementations must be thread-safe and support concurrent access.
type Repository interface {
	// WithTransaction executes a function within a transaction.
	// If fn returns an error, the transaction is rolled back.
	// If fn returns nil, the transaction is committed.
	// The context passed to fn may contain transaction state.
	WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error

	// Close closes the storage backend and releases resources.
	Close() error
}

// NoteRepository provides operations for managing notes and the mention
// rows they own.
type NoteRepository interface {
	Repository

	// AddNote inserts a note together with its mention rows as one
	// transactional unit. Mention NoteId fields are populated from the
	// generated note ID; each linked entity's MentionCount is raised and
	// its LastSeen advanced to the note timestamp if later. On any
	// failure nothing is written.
	// Returns ErrDuplicateKey if a mention duplicates an existing
	// (note, entity, span) link.
	AddNote(ctx context.Context, note *core.Note, mentions []*core.EntityMention) (*core.Note, error)

	// UpdateNotes updates existing notes.
	// Updates the UpdatedAt timestamp automatically.
	// Returns ErrNotFound if any note doesn't exist.
	UpdateNotes(ctx context.Context, notes ...*core.Note) ([]*core.Note, error)

	// DeleteNotes removes notes by their IDs, cascade-deleting their
	// mention rows and lowering the affected entities' MentionCount.
	// Returns ErrNotFound if any note doesn't exist.
	DeleteNotes(ctx context.Context, ids ...core.ID) error

	// GetNote retrieves a single note by ID.
	// Returns ErrNotFound if the note doesn't exist.
	GetNote(ctx context.Context, id core.ID) (*core.Note, error)

	// GetNotes retrieves multiple notes by their IDs.
	// Returns only the notes that exist (no error for missing notes).
	GetNotes(ctx context.Context, ids ...core.ID) ([]*core.Note, error)

	// GetNotesByDateRange retrieves notes within a time range.
	// Returns notes where start <= Timestamp < end, ordered by timestamp.
	GetNotesByDateRange(ctx context.Context, start, end time.Time) ([]*core.Note, error)

	// GetRecentNotes retrieves the N most recent notes, newest first.
	GetRecentNotes(ctx context.Context, limit int) ([]*core.Note, error)

	// FindSimilar computes cosine similarity between the given vector and
	// every stored note embedding. Returns matches with cosine >=
	// minCosine, highest first, up to limit results. Notes without an
	// embedding are skipped, never errored on.
	FindSimilar(ctx context.Context, vector []float32, minCosine float32, limit int) ([]core.SimilarityMatch, error)

	// AddMention links one entity occurrence to an existing note. The
	// mention insert and the entity MentionCount/LastSeen update commit
	// atomically. Returns ErrDuplicateKey for a repeated
	// (note, entity, span) link and ErrNotFound if the note or entity
	// doesn't exist.
	AddMention(ctx context.Context, mention *core.EntityMention) (*core.EntityMention, error)

	// GetMentionsByNote retrieves the mention rows owned by a note.
	GetMentionsByNote(ctx context.Context, noteID core.ID) ([]*core.EntityMention, error)

	// GetMentionsByEntity retrieves all mention rows linked to an entity.
	GetMentionsByEntity(ctx context.Context, entityID core.ID) ([]*core.EntityMention, error)

	// GetNoteIDsByEntity retrieves IDs of notes with at least one mention
	// of the entity. Returns only note IDs, not full notes.
	GetNoteIDsByEntity(ctx context.Context, entityID core.ID) ([]core.ID, error)
}

// EntityRepository provides operations for managing the entity registry.
type EntityRepository interface {
	Repository

	// AddEntities adds one or more entities to the registry.
	// For entities with ID=0, generates new IDs from sequence.
	// Sets FirstSeen/InsertedAt timestamps if not already set.
	// Returns ErrDuplicateKey if the normalized (name-or-alias, type)
	// pair is already registered to a live entity.
	AddEntities(ctx context.Context, entities ...*core.Entity) ([]*core.Entity, error)

	// UpdateEntities updates existing entities, maintaining the name and
	// alias index. Updates the UpdatedAt timestamp automatically.
	// Returns ErrNotFound if any entity doesn't exist.
	UpdateEntities(ctx context.Context, entities ...*core.Entity) ([]*core.Entity, error)

	// DeleteEntities removes entities by their IDs.
	// Returns ErrEntityInUse if any entity still has live mentions;
	// administrative deletion requires merging or deleting the owning
	// notes first. Returns ErrNotFound if any entity doesn't exist.
	DeleteEntities(ctx context.Context, ids ...core.ID) error

	// GetEntity retrieves a single entity by ID.
	// Returns ErrNotFound if the entity doesn't exist.
	GetEntity(ctx context.Context, id core.ID) (*core.Entity, error)

	// GetEntities retrieves multiple entities by their IDs.
	// Returns only the entities that exist (no error for missing entities).
	GetEntities(ctx context.Context, ids ...core.ID) ([]*core.Entity, error)

	// FindEntityByName looks up an entity by a normalized surface form,
	// matching either the canonical name or any alias, scoped to the
	// given type. Returns ErrNotFound if no live entity matches.
	FindEntityByName(ctx context.Context, normalized string, entityType core.EntityType) (*core.Entity, error)

	// GetEntitiesByType retrieves all live entities of one type.
	GetEntitiesByType(ctx context.Context, entityType core.EntityType) ([]*core.Entity, error)

	// GetAllEntities retrieves every live entity in the registry.
	GetAllEntities(ctx context.Context) ([]*core.Entity, error)

	// AddAlias idempotently records an additional normalized surface form
	// for an entity. Returns ErrDuplicateKey if the alias is already
	// registered to a different entity of the same type.
	AddAlias(ctx context.Context, entityID core.ID, alias string) error

	// MergeEntities folds the loser entity into the survivor in one
	// transaction: every mention row is reassigned, alias sets are
	// unioned (the loser's canonical name becomes a survivor alias),
	// mention counts are summed, FirstSeen/LastSeen take the wider
	// bounds, confidence takes the maximum, and the loser is deleted.
	// There is no intermediate state where a mention references a
	// deleted entity.
	MergeEntities(ctx context.Context, survivorID, loserID core.ID) (*core.Entity, error)
}
