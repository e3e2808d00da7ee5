package badger

import (
	"context"
	"slices"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/poiesic/notewell/core"
	"github.com/poiesic/notewell/storage"
)

// NoteRepository implements storage.NoteRepository for BadgerDB.
type NoteRepository struct {
	backend    *Backend
	noteSeq    *badger.Sequence
	mentionSeq *badger.Sequence
}

var _ storage.NoteRepository = (*NoteRepository)(nil)

// NewNoteRepository creates a new NoteRepository.
func NewNoteRepository(backend *Backend) (storage.NoteRepository, error) {
	noteSeq, err := backend.GetSequence(noteIDSeq)
	if err != nil {
		return nil, err
	}
	mentionSeq, err := backend.GetSequence(mentionIDSeq)
	if err != nil {
		noteSeq.Release()
		return nil, err
	}

	return &NoteRepository{
		backend:    backend,
		noteSeq:    noteSeq,
		mentionSeq: mentionSeq,
	}, nil
}

// Close releases the ID sequences.
func (r *NoteRepository) Close() error {
	if err := r.noteSeq.Release(); err != nil {
		return err
	}
	return r.mentionSeq.Release()
}

// FindSimilar delegates to the backend.
func (r *NoteRepository) FindSimilar(ctx context.Context, vector []float32, minCosine float32, limit int) ([]core.SimilarityMatch, error) {
	return r.backend.FindSimilar(ctx, vector, minCosine, limit)
}

// WithTransaction delegates to the backend.
func (r *NoteRepository) WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	return r.backend.WithTransaction(ctx, fn)
}

// AddNote inserts a note and its mention rows as one transactional unit.
// Entity mention counts and LastSeen are updated in the same transaction,
// so a failure at any point leaves nothing behind.
func (r *NoteRepository) AddNote(ctx context.Context, note *core.Note, mentions []*core.EntityMention) (*core.Note, error) {
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		// Always generate new ID from sequence
		nextID, err := nextSequenceID(r.noteSeq)
		if err != nil {
			return err
		}
		note.Id = nextID

		note.InsertedAt = time.Now().UTC()
		note.UpdatedAt = note.InsertedAt

		// Store primary record
		key := makeNoteKey(note.Id)
		value := storage.MarshalNote(note)
		if err := tx.Set(key, value); err != nil {
			return err
		}

		// Update date index
		dateKey := makeNoteDateKey(note.Timestamp, note.Id)
		if err := tx.Set(dateKey, storage.MarshalID(note.Id)); err != nil {
			return err
		}

		for _, mention := range mentions {
			mention.NoteId = note.Id
			if err := r.writeMention(tx, mention, note.Timestamp); err != nil {
				return err
			}
		}
		return tx.Commit()
	}, true)

	return note, err
}

// AddMention links one entity occurrence to an existing note. The
// mention insert and the entity stat update commit atomically.
func (r *NoteRepository) AddMention(ctx context.Context, mention *core.EntityMention) (*core.EntityMention, error) {
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		note, err := r.readNote(tx, makeNoteKey(mention.NoteId))
		if err != nil {
			return err
		}
		if note == nil {
			return storage.ErrNotFound
		}
		if err := r.writeMention(tx, mention, note.Timestamp); err != nil {
			return err
		}
		return tx.Commit()
	}, true)

	return mention, err
}

// writeMention inserts a mention row inside an open transaction: the
// record, its note and entity index entries, the dedupe key, and the
// linked entity's MentionCount/LastSeen bump. The dedupe key enforces
// at most one link per (note, entity, span).
func (r *NoteRepository) writeMention(tx *badger.Txn, mention *core.EntityMention, noteTimestamp time.Time) error {
	// Duplicate link check before anything is written
	dedupeKey := makeMentionDedupeKey(mention)
	if _, err := tx.Get(dedupeKey); err == nil {
		return storage.ErrDuplicateKey
	} else if err != badger.ErrKeyNotFound {
		return err
	}

	nextID, err := nextSequenceID(r.mentionSeq)
	if err != nil {
		return err
	}
	mention.Id = nextID
	mention.InsertedAt = time.Now().UTC()

	if err := tx.Set(makeMentionKey(mention.Id), storage.MarshalMention(mention)); err != nil {
		return err
	}
	idValue := storage.MarshalID(mention.Id)
	if err := tx.Set(makeMentionNoteKey(mention.NoteId, mention.Id), idValue); err != nil {
		return err
	}
	if err := tx.Set(makeMentionEntityKey(mention.EntityId, mention.Id), idValue); err != nil {
		return err
	}
	if err := tx.Set(dedupeKey, idValue); err != nil {
		return err
	}

	return bumpEntityStats(tx, mention.EntityId, noteTimestamp)
}

// UpdateNotes updates existing notes. Mention rows are untouched.
func (r *NoteRepository) UpdateNotes(ctx context.Context, notes ...*core.Note) ([]*core.Note, error) {
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		for _, note := range notes {
			key := makeNoteKey(note.Id)

			// Read old note to detect changes
			old, err := r.readNote(tx, key)
			if err != nil {
				return err
			}
			if old == nil {
				return storage.ErrNotFound
			}

			// Update timestamp
			note.UpdatedAt = time.Now().UTC()

			// Store updated record
			value := storage.MarshalNote(note)
			if err := tx.Set(key, value); err != nil {
				return err
			}

			// Update date index if timestamp changed
			if !old.Timestamp.Equal(note.Timestamp) {
				oldDateKey := makeNoteDateKey(old.Timestamp, old.Id)
				if err := tx.Delete(oldDateKey); err != nil {
					return err
				}
				newDateKey := makeNoteDateKey(note.Timestamp, note.Id)
				if err := tx.Set(newDateKey, storage.MarshalID(note.Id)); err != nil {
					return err
				}
			}
		}
		return tx.Commit()
	}, true)

	return notes, err
}

// DeleteNotes removes notes by their IDs, cascade-deleting mention rows
// and lowering the affected entities' mention counts.
func (r *NoteRepository) DeleteNotes(ctx context.Context, ids ...core.ID) error {
	return r.backend.WithTx(func(tx *badger.Txn) error {
		for _, id := range ids {
			key := makeNoteKey(id)

			// Read note to get metadata for index cleanup
			note, err := r.readNote(tx, key)
			if err != nil {
				return err
			}
			if note == nil {
				return storage.ErrNotFound
			}

			// Cascade: delete every mention row owned by the note
			mentions, err := readMentionsByPrefix(tx, makePartialMentionNoteKey(id))
			if err != nil {
				return err
			}
			for _, mention := range mentions {
				if err := deleteMentionRow(tx, mention); err != nil {
					return err
				}
				if err := decrementEntityStats(tx, mention.EntityId); err != nil {
					return err
				}
			}

			// Delete from date index
			dateKey := makeNoteDateKey(note.Timestamp, note.Id)
			if err := tx.Delete(dateKey); err != nil {
				return err
			}

			// Delete primary record
			if err := tx.Delete(key); err != nil {
				return err
			}
		}
		return tx.Commit()
	}, true)
}

// GetNote retrieves a single note by ID.
func (r *NoteRepository) GetNote(ctx context.Context, id core.ID) (*core.Note, error) {
	var result *core.Note
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		key := makeNoteKey(id)
		var err error
		result, err = r.readNote(tx, key)
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

// GetNotes retrieves multiple notes by their IDs.
func (r *NoteRepository) GetNotes(ctx context.Context, ids ...core.ID) ([]*core.Note, error) {
	var result []*core.Note
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		for _, id := range ids {
			key := makeNoteKey(id)
			note, err := r.readNote(tx, key)
			if err != nil {
				return err
			}
			if note != nil {
				result = append(result, note)
			}
		}
		return nil
	}, false)
	return result, err
}

// GetNotesByDateRange retrieves notes within a time range.
func (r *NoteRepository) GetNotesByDateRange(ctx context.Context, start, end time.Time) ([]*core.Note, error) {
	if start.Equal(end) {
		end = start.Add(1 * time.Microsecond)
	}

	var results []*core.Note
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		startKey := makePartialNoteDateKey(start)
		endKey := makePartialNoteDateKey(end)
		iter := tx.NewIterator(badger.DefaultIteratorOptions)
		defer iter.Close()

		for iter.Seek(startKey); iter.Valid(); iter.Next() {
			key := iter.Item().Key()
			if slices.Compare(key, endKey) > 0 {
				break
			}

			// Read the ID from the index
			var noteID core.ID
			if err := iter.Item().Value(func(val []byte) error {
				var err error
				noteID, err = storage.UnmarshalID(val)
				return err
			}); err != nil {
				return err
			}

			// Look up the full record
			note, err := r.readNote(tx, makeNoteKey(noteID))
			if err != nil {
				return err
			}
			if note != nil {
				results = append(results, note)
			}
		}
		return nil
	}, false)

	return results, err
}

// GetRecentNotes retrieves the N most recent notes, ordered by timestamp descending.
func (r *NoteRepository) GetRecentNotes(ctx context.Context, limit int) ([]*core.Note, error) {
	var results []*core.Note
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		// Use reverse iterator to get most recent notes first
		opts := badger.DefaultIteratorOptions
		opts.Reverse = true

		iter := tx.NewIterator(opts)
		defer iter.Close()

		// Seek to the last possible key in the date index
		startKey := makePartialNoteDateKey(time.Date(9999, 12, 31, 23, 59, 59, 999999999, time.UTC))

		prefix := []byte(noteDatePrefix + ":")

		count := 0
		for iter.Seek(startKey); iter.Valid() && count < limit; iter.Next() {
			key := iter.Item().Key()

			// Check if we're still in the date index
			if len(key) < len(prefix) || slices.Compare(key[:len(prefix)], prefix) != 0 {
				break
			}

			// Read the ID from the index
			var noteID core.ID
			if err := iter.Item().Value(func(val []byte) error {
				var err error
				noteID, err = storage.UnmarshalID(val)
				return err
			}); err != nil {
				return err
			}

			// Look up the full record
			note, err := r.readNote(tx, makeNoteKey(noteID))
			if err != nil {
				return err
			}
			if note != nil {
				results = append(results, note)
				count++
			}
		}
		return nil
	}, false)

	return results, err
}

// GetMentionsByNote retrieves the mention rows owned by a note.
func (r *NoteRepository) GetMentionsByNote(ctx context.Context, noteID core.ID) ([]*core.EntityMention, error) {
	var results []*core.EntityMention
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		var err error
		results, err = readMentionsByPrefix(tx, makePartialMentionNoteKey(noteID))
		return err
	}, false)
	return results, err
}

// GetMentionsByEntity retrieves all mention rows linked to an entity.
func (r *NoteRepository) GetMentionsByEntity(ctx context.Context, entityID core.ID) ([]*core.EntityMention, error) {
	var results []*core.EntityMention
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		var err error
		results, err = readMentionsByPrefix(tx, makePartialMentionEntityKey(entityID))
		return err
	}, false)
	return results, err
}

// GetNoteIDsByEntity retrieves IDs of notes with at least one mention of the entity.
func (r *NoteRepository) GetNoteIDsByEntity(ctx context.Context, entityID core.ID) ([]core.ID, error) {
	var noteIDs []core.ID
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		mentions, err := readMentionsByPrefix(tx, makePartialMentionEntityKey(entityID))
		if err != nil {
			return err
		}
		seen := make(map[core.ID]bool)
		for _, mention := range mentions {
			if !seen[mention.NoteId] {
				seen[mention.NoteId] = true
				noteIDs = append(noteIDs, mention.NoteId)
			}
		}
		return nil
	}, false)
	return noteIDs, err
}

// Helper methods

// nextSequenceID draws the next ID from a sequence.
// BadgerDB sequences can return 0 on first call, so 0 is skipped.
func nextSequenceID(seq *badger.Sequence) (core.ID, error) {
	next, err := seq.Next()
	if err != nil {
		return 0, err
	}
	if next == 0 {
		next, err = seq.Next()
		if err != nil {
			return 0, err
		}
	}
	return core.ID(next), nil
}

// readNote reads a note from the transaction.
func (r *NoteRepository) readNote(tx *badger.Txn, key []byte) (*core.Note, error) {
	item, err := tx.Get(key)
	if err != nil {
		if err == badger.ErrKeyNotFound {
			return nil, nil
		}
		return nil, err
	}

	var note *core.Note
	err = item.Value(func(val []byte) error {
		var unmarshalErr error
		note, unmarshalErr = storage.UnmarshalNote(val)
		return unmarshalErr
	})
	return note, err
}

// readMention reads a mention from the transaction.
func readMention(tx *badger.Txn, key []byte) (*core.EntityMention, error) {
	item, err := tx.Get(key)
	if err != nil {
		if err == badger.ErrKeyNotFound {
			return nil, nil
		}
		return nil, err
	}

	var mention *core.EntityMention
	err = item.Value(func(val []byte) error {
		var unmarshalErr error
		mention, unmarshalErr = storage.UnmarshalMention(val)
		return unmarshalErr
	})
	return mention, err
}

// readMentionsByPrefix collects the mention rows behind one index prefix
// (per-note or per-entity).
func readMentionsByPrefix(tx *badger.Txn, prefix []byte) ([]*core.EntityMention, error) {
	var results []*core.EntityMention
	iter := tx.NewIterator(badger.DefaultIteratorOptions)
	defer iter.Close()

	for iter.Seek(prefix); iter.Valid(); iter.Next() {
		key := iter.Item().Key()
		if len(key) < len(prefix) || slices.Compare(key[:len(prefix)], prefix) != 0 {
			break
		}

		var mentionID core.ID
		if err := iter.Item().Value(func(val []byte) error {
			var err error
			mentionID, err = storage.UnmarshalID(val)
			return err
		}); err != nil {
			return nil, err
		}

		mention, err := readMention(tx, makeMentionKey(mentionID))
		if err != nil {
			return nil, err
		}
		if mention != nil {
			results = append(results, mention)
		}
	}
	return results, nil
}

// deleteMentionRow removes a mention record and its three index entries.
// The entity stat update is the caller's responsibility.
func deleteMentionRow(tx *badger.Txn, mention *core.EntityMention) error {
	if err := tx.Delete(makeMentionKey(mention.Id)); err != nil {
		return err
	}
	if err := tx.Delete(makeMentionNoteKey(mention.NoteId, mention.Id)); err != nil {
		return err
	}
	if err := tx.Delete(makeMentionEntityKey(mention.EntityId, mention.Id)); err != nil {
		return err
	}
	return tx.Delete(makeMentionDedupeKey(mention))
}

// bumpEntityStats raises an entity's MentionCount and advances LastSeen
// to the note timestamp if later.
func bumpEntityStats(tx *badger.Txn, entityID core.ID, noteTimestamp time.Time) error {
	entity, err := readEntity(tx, makeEntityKey(entityID))
	if err != nil {
		return err
	}
	if entity == nil {
		return storage.ErrNotFound
	}
	entity.MentionCount++
	if noteTimestamp.After(entity.LastSeen) {
		entity.LastSeen = noteTimestamp
	}
	entity.UpdatedAt = time.Now().UTC()
	return tx.Set(makeEntityKey(entity.Id), storage.MarshalEntity(entity))
}

// decrementEntityStats lowers an entity's MentionCount after a mention
// row was removed. A missing entity is tolerated here: cascade deletion
// may race an administrative merge that already removed it.
func decrementEntityStats(tx *badger.Txn, entityID core.ID) error {
	entity, err := readEntity(tx, makeEntityKey(entityID))
	if err != nil {
		return err
	}
	if entity == nil {
		return nil
	}
	if entity.MentionCount > 0 {
		entity.MentionCount--
	}
	entity.UpdatedAt = time.Now().UTC()
	return tx.Set(makeEntityKey(entity.Id), storage.MarshalEntity(entity))
}
