package badger

import (
	"context"
	"fmt"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/poiesic/notewell/core"
	"github.com/poiesic/notewell/storage"
)

// EntityRepository implements storage.EntityRepository for BadgerDB.
type EntityRepository struct {
	backend *Backend
	idSeq   *badger.Sequence
}

var _ storage.EntityRepository = (*EntityRepository)(nil)

// NewEntityRepository creates a new EntityRepository.
func NewEntityRepository(backend *Backend) (storage.EntityRepository, error) {
	idSeq, err := backend.GetSequence(entityIDSeq)
	if err != nil {
		return nil, err
	}

	return &EntityRepository{
		backend: backend,
		idSeq:   idSeq,
	}, nil
}

// Close releases the ID sequence.
func (r *EntityRepository) Close() error {
	return r.idSeq.Release()
}

// WithTransaction delegates to the backend.
func (r *EntityRepository) WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	return r.backend.WithTransaction(ctx, fn)
}

// AddEntities adds one or more entities to the registry, claiming the
// name index key for the canonical name and every alias. A surface form
// already registered to another entity fails the whole batch with
// ErrDuplicateKey.
func (r *EntityRepository) AddEntities(ctx context.Context, entities ...*core.Entity) ([]*core.Entity, error) {
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		for _, entity := range entities {
			if entity.Id == 0 {
				nextID, err := nextSequenceID(r.idSeq)
				if err != nil {
					return err
				}
				entity.Id = nextID
			}

			now := time.Now().UTC()
			entity.InsertedAt = now
			entity.UpdatedAt = now
			if entity.FirstSeen.IsZero() {
				entity.FirstSeen = now
			}
			if entity.LastSeen.IsZero() {
				entity.LastSeen = entity.FirstSeen
			}

			for _, form := range surfaceForms(entity) {
				if err := claimNameKey(tx, form, entity.Type, entity.Id); err != nil {
					return err
				}
			}

			key := makeEntityKey(entity.Id)
			if err := tx.Set(key, storage.MarshalEntity(entity)); err != nil {
				return err
			}
		}
		return tx.Commit()
	}, true)

	return entities, err
}

// UpdateEntities updates existing entities, maintaining the name index.
func (r *EntityRepository) UpdateEntities(ctx context.Context, entities ...*core.Entity) ([]*core.Entity, error) {
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		for _, entity := range entities {
			key := makeEntityKey(entity.Id)

			// Read old entity to diff the name index
			old, err := readEntity(tx, key)
			if err != nil {
				return err
			}
			if old == nil {
				return storage.ErrNotFound
			}

			entity.UpdatedAt = time.Now().UTC()

			oldForms := surfaceFormSet(old)
			newForms := surfaceFormSet(entity)

			for form := range oldForms {
				if !newForms[form] {
					if err := tx.Delete(makeEntityNameKey(form, old.Type)); err != nil {
						return err
					}
				}
			}
			for form := range newForms {
				if !oldForms[form] || old.Type != entity.Type {
					if err := claimNameKey(tx, form, entity.Type, entity.Id); err != nil {
						return err
					}
				}
			}
			// Drop the whole old index on a type change
			if old.Type != entity.Type {
				for form := range oldForms {
					if err := tx.Delete(makeEntityNameKey(form, old.Type)); err != nil {
						return err
					}
				}
			}

			if err := tx.Set(key, storage.MarshalEntity(entity)); err != nil {
				return err
			}
		}
		return tx.Commit()
	}, true)

	return entities, err
}

// DeleteEntities removes entities by their IDs. An entity still
// referenced by mention rows is refused with ErrEntityInUse; merge it
// or delete the owning notes first.
func (r *EntityRepository) DeleteEntities(ctx context.Context, ids ...core.ID) error {
	return r.backend.WithTx(func(tx *badger.Txn) error {
		for _, id := range ids {
			key := makeEntityKey(id)

			entity, err := readEntity(tx, key)
			if err != nil {
				return err
			}
			if entity == nil {
				return storage.ErrNotFound
			}

			mentions, err := readMentionsByPrefix(tx, makePartialMentionEntityKey(id))
			if err != nil {
				return err
			}
			if len(mentions) > 0 {
				return fmt.Errorf("%w: entity %d has %d mentions", storage.ErrEntityInUse, id, len(mentions))
			}

			for _, form := range surfaceForms(entity) {
				if err := tx.Delete(makeEntityNameKey(form, entity.Type)); err != nil {
					return err
				}
			}

			if err := tx.Delete(key); err != nil {
				return err
			}
		}
		return tx.Commit()
	}, true)
}

// GetEntity retrieves a single entity by ID.
func (r *EntityRepository) GetEntity(ctx context.Context, id core.ID) (*core.Entity, error) {
	var result *core.Entity
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		var err error
		result, err = readEntity(tx, makeEntityKey(id))
		if err != nil {
			return err
		}
		if result == nil {
			return storage.ErrNotFound
		}
		return nil
	}, false)
	return result, err
}

// GetEntities retrieves multiple entities by their IDs.
func (r *EntityRepository) GetEntities(ctx context.Context, ids ...core.ID) ([]*core.Entity, error) {
	var result []*core.Entity
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		for _, id := range ids {
			entity, err := readEntity(tx, makeEntityKey(id))
			if err != nil {
				return err
			}
			if entity != nil {
				result = append(result, entity)
			}
		}
		return nil
	}, false)
	return result, err
}

// FindEntityByName looks up an entity by a normalized surface form,
// matching the canonical name or any alias, scoped to the given type.
func (r *EntityRepository) FindEntityByName(ctx context.Context, normalized string, entityType core.EntityType) (*core.Entity, error) {
	var result *core.Entity
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		nameKey := makeEntityNameKey(normalized, entityType)
		item, err := tx.Get(nameKey)
		if err != nil {
			if err == badger.ErrKeyNotFound {
				return storage.ErrNotFound
			}
			return err
		}

		var entityID core.ID
		err = item.Value(func(val []byte) error {
			entityID, err = storage.UnmarshalID(val)
			return err
		})
		if err != nil {
			return err
		}

		result, err = readEntity(tx, makeEntityKey(entityID))
		if err != nil {
			return err
		}
		if result == nil {
			return storage.ErrNotFound
		}
		return nil
	}, false)
	return result, err
}

// GetEntitiesByType retrieves all live entities of one type.
func (r *EntityRepository) GetEntitiesByType(ctx context.Context, entityType core.EntityType) ([]*core.Entity, error) {
	all, err := r.GetAllEntities(ctx)
	if err != nil {
		return nil, err
	}
	var results []*core.Entity
	for _, entity := range all {
		if entity.Type == entityType {
			results = append(results, entity)
		}
	}
	return results, nil
}

// GetAllEntities retrieves every entity in the registry.
func (r *EntityRepository) GetAllEntities(ctx context.Context) ([]*core.Entity, error) {
	var results []*core.Entity
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = true
		iter := tx.NewIterator(opts)
		defer iter.Close()

		prefix := []byte(entityRecordPrefix + ":")
		for iter.Seek(prefix); iter.Valid(); iter.Next() {
			item := iter.Item()
			key := item.Key()

			// Stop once past the entity keys
			if !hasPrefix(key, prefix) {
				break
			}

			var entity *core.Entity
			err := item.Value(func(val []byte) error {
				var err error
				entity, err = storage.UnmarshalEntity(val)
				return err
			})
			if err != nil {
				return err
			}

			if entity != nil {
				results = append(results, entity)
			}
		}
		return nil
	}, false)

	return results, err
}

// AddAlias idempotently records an additional normalized surface form
// for an entity.
func (r *EntityRepository) AddAlias(ctx context.Context, entityID core.ID, alias string) error {
	return r.backend.WithTx(func(tx *badger.Txn) error {
		entity, err := readEntity(tx, makeEntityKey(entityID))
		if err != nil {
			return err
		}
		if entity == nil {
			return storage.ErrNotFound
		}

		normalized := core.NormalizeMention(alias)
		if normalized == core.NormalizeMention(entity.CanonicalName) || entity.HasAlias(normalized) {
			return nil
		}

		if err := claimNameKey(tx, normalized, entity.Type, entity.Id); err != nil {
			return err
		}

		entity.Aliases = append(entity.Aliases, normalized)
		entity.UpdatedAt = time.Now().UTC()
		if err := tx.Set(makeEntityKey(entity.Id), storage.MarshalEntity(entity)); err != nil {
			return err
		}
		return tx.Commit()
	}, true)
}

// MergeEntities folds the loser entity into the survivor in one
// transaction. Mention rows are reassigned before the loser is deleted,
// so no committed state ever has a mention referencing a dead entity.
func (r *EntityRepository) MergeEntities(ctx context.Context, survivorID, loserID core.ID) (*core.Entity, error) {
	if survivorID == loserID {
		return nil, fmt.Errorf("%w: cannot merge an entity into itself", storage.ErrInvalidQuery)
	}

	var survivor *core.Entity
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		var err error
		survivor, err = readEntity(tx, makeEntityKey(survivorID))
		if err != nil {
			return err
		}
		if survivor == nil {
			return storage.ErrNotFound
		}
		loser, err := readEntity(tx, makeEntityKey(loserID))
		if err != nil {
			return err
		}
		if loser == nil {
			return storage.ErrNotFound
		}

		// Reassign every mention row. A reassigned mention whose
		// (note, survivor, span) link already exists is dropped rather
		// than duplicated; MentionCount counts live rows only.
		mentions, err := readMentionsByPrefix(tx, makePartialMentionEntityKey(loserID))
		if err != nil {
			return err
		}
		var kept uint64
		for _, mention := range mentions {
			if err := tx.Delete(makeMentionEntityKey(loserID, mention.Id)); err != nil {
				return err
			}
			if err := tx.Delete(makeMentionDedupeKey(mention)); err != nil {
				return err
			}
			mention.EntityId = survivorID
			dedupeKey := makeMentionDedupeKey(mention)
			if _, err := tx.Get(dedupeKey); err == nil {
				// Survivor already linked at this span; drop the row
				if err := tx.Delete(makeMentionKey(mention.Id)); err != nil {
					return err
				}
				if err := tx.Delete(makeMentionNoteKey(mention.NoteId, mention.Id)); err != nil {
					return err
				}
				continue
			} else if err != badger.ErrKeyNotFound {
				return err
			}
			idValue := storage.MarshalID(mention.Id)
			if err := tx.Set(makeMentionKey(mention.Id), storage.MarshalMention(mention)); err != nil {
				return err
			}
			if err := tx.Set(makeMentionEntityKey(survivorID, mention.Id), idValue); err != nil {
				return err
			}
			if err := tx.Set(dedupeKey, idValue); err != nil {
				return err
			}
			kept++
		}

		// Union the alias sets; the loser's canonical name survives as
		// an alias of the survivor. Every surface form is re-claimed in
		// the survivor's type so the name index stays unique: a form a
		// different live entity of that type already owns fails the
		// whole merge.
		survivorCanonical := core.NormalizeMention(survivor.CanonicalName)
		for _, form := range surfaceForms(loser) {
			if err := tx.Delete(makeEntityNameKey(form, loser.Type)); err != nil {
				return err
			}
			if err := claimNameKey(tx, form, survivor.Type, survivorID); err != nil {
				return err
			}
			if form != survivorCanonical && !survivor.HasAlias(form) {
				survivor.Aliases = append(survivor.Aliases, form)
			}
		}

		survivor.MentionCount += kept
		if loser.FirstSeen.Before(survivor.FirstSeen) {
			survivor.FirstSeen = loser.FirstSeen
		}
		if loser.LastSeen.After(survivor.LastSeen) {
			survivor.LastSeen = loser.LastSeen
		}
		if loser.Confidence > survivor.Confidence {
			survivor.Confidence = loser.Confidence
		}
		survivor.UpdatedAt = time.Now().UTC()

		if err := tx.Delete(makeEntityKey(loserID)); err != nil {
			return err
		}
		if err := tx.Set(makeEntityKey(survivorID), storage.MarshalEntity(survivor)); err != nil {
			return err
		}
		return tx.Commit()
	}, true)

	if err != nil {
		return nil, err
	}
	return survivor, nil
}

// Helper methods

// hasPrefix checks if a byte slice has a given prefix
func hasPrefix(s, prefix []byte) bool {
	return len(s) >= len(prefix) && string(s[:len(prefix)]) == string(prefix)
}

// readEntity reads an entity from the transaction.
func readEntity(tx *badger.Txn, key []byte) (*core.Entity, error) {
	item, err := tx.Get(key)
	if err != nil {
		if err == badger.ErrKeyNotFound {
			return nil, nil
		}
		return nil, err
	}

	var entity *core.Entity
	err = item.Value(func(val []byte) error {
		var err error
		entity, err = storage.UnmarshalEntity(val)
		return err
	})
	return entity, err
}

// surfaceForms returns the normalized canonical name followed by the
// aliases, which are stored normalized already.
func surfaceForms(entity *core.Entity) []string {
	forms := make([]string, 0, len(entity.Aliases)+1)
	forms = append(forms, core.NormalizeMention(entity.CanonicalName))
	forms = append(forms, entity.Aliases...)
	return forms
}

func surfaceFormSet(entity *core.Entity) map[string]bool {
	set := make(map[string]bool)
	for _, form := range surfaceForms(entity) {
		set[form] = true
	}
	return set
}

// claimNameKey points a (type, surface form) index key at an entity.
// A key already owned by a different entity fails with ErrDuplicateKey.
func claimNameKey(tx *badger.Txn, normalized string, entityType core.EntityType, entityID core.ID) error {
	nameKey := makeEntityNameKey(normalized, entityType)
	item, err := tx.Get(nameKey)
	if err == nil {
		var ownerID core.ID
		err = item.Value(func(val []byte) error {
			var err error
			ownerID, err = storage.UnmarshalID(val)
			return err
		})
		if err != nil {
			return err
		}
		if ownerID != entityID {
			return fmt.Errorf("%w: %q already registered to entity %d", storage.ErrDuplicateKey, normalized, ownerID)
		}
		return nil
	}
	if err != badger.ErrKeyNotFound {
		return err
	}
	return tx.Set(nameKey, storage.MarshalID(entityID))
}
