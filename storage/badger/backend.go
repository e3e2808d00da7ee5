package badger

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"os"
	"slices"

	"github.com/dgraph-io/badger/v4"
	"github.com/dgraph-io/badger/v4/options"
	"github.com/poiesic/notewell/core"
	"github.com/poiesic/notewell/storage"
)

const (
	defaultSequenceBandwidth = 100

	// maxTxAttempts bounds the commit retries of a write transaction
	// that loses a serializability conflict to a concurrent writer.
	maxTxAttempts = 10
)

// Backend wraps a BadgerDB instance and provides low-level operations.
type Backend struct {
	db     *badger.DB
	logger *slog.Logger
}

// badgerLoggerAdapter adapts slog.Logger to badger.Logger interface.
type badgerLoggerAdapter struct {
	logger *slog.Logger
}

var _ badger.Logger = (*badgerLoggerAdapter)(nil)

func (bl *badgerLoggerAdapter) Errorf(msg string, items ...any) {
	bl.logger.Error(fmt.Sprintf(msg, items...))
}

func (bl *badgerLoggerAdapter) Warningf(msg string, items ...any) {
	bl.logger.Warn(fmt.Sprintf(msg, items...))
}

func (bl *badgerLoggerAdapter) Infof(msg string, items ...any) {
	bl.logger.Info(fmt.Sprintf(msg, items...))
}

func (bl *badgerLoggerAdapter) Debugf(msg string, items ...any) {
	bl.logger.Debug(fmt.Sprintf(msg, items...))
}

// OpenBackend opens a BadgerDB database at the specified path.
// Creates the directory if it doesn't exist.
func OpenBackend(filePath string, inMemory bool) (*Backend, error) {
	var opts badger.Options

	if inMemory {
		opts = badger.DefaultOptions("").WithInMemory(true)
	} else {
		// Ensure directory exists
		info, err := os.Stat(filePath)
		if err != nil {
			if os.IsNotExist(err) {
				if err := os.MkdirAll(filePath, 0755); err != nil {
					return nil, err
				}
				info, err = os.Stat(filePath)
				if err != nil {
					return nil, err
				}
			} else {
				return nil, err
			}
		}
		if !info.IsDir() {
			return nil, fmt.Errorf("%s is not a directory", filePath)
		}
		opts = badger.DefaultOptions(filePath)
	}

	opts.Logger = &badgerLoggerAdapter{logger: slog.Default()}
	opts.Compression = options.None

	db, err := badger.Open(opts)
	if err != nil {
		return nil, err
	}

	return &Backend{
		db:     db,
		logger: slog.Default(),
	}, nil
}

// Close closes the BadgerDB database.
func (b *Backend) Close() error {
	return b.db.Close()
}

// IsClosed returns true if the database is closed.
func (b *Backend) IsClosed() bool {
	return b.db.IsClosed()
}

// WithTx executes a function within a BadgerDB transaction.
// If isWrite is true, creates a read-write transaction.
// The transaction is automatically discarded if fn returns an error.
//
// Write transactions that lose Badger's conflict detection to a
// concurrent writer are rerun against committed state, up to
// maxTxAttempts times. fn must therefore read everything it mutates
// inside the transaction. A conflict that persists past the bound is
// reported as ErrTransactionFailed.
func (b *Backend) WithTx(fn func(tx *badger.Txn) error, isWrite bool) error {
	if !isWrite {
		tx := b.db.NewTransaction(false)
		defer tx.Discard()
		return fn(tx)
	}

	for attempt := 0; attempt < maxTxAttempts; attempt++ {
		tx := b.db.NewTransaction(true)
		err := fn(tx)
		tx.Discard()
		if !errors.Is(err, badger.ErrConflict) {
			return err
		}
	}
	return fmt.Errorf("%w: conflict persisted after %d attempts", storage.ErrTransactionFailed, maxTxAttempts)
}

// GetSequence returns a BadgerDB sequence for generating sequential IDs.
func (b *Backend) GetSequence(name string) (*badger.Sequence, error) {
	return b.db.GetSequence([]byte(name), defaultSequenceBandwidth)
}

// WithTransaction executes a function within a transaction.
// Implements storage.Repository interface.
func (b *Backend) WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	return b.WithTx(func(tx *badger.Txn) error {
		// Execute the callback function
		if err := fn(ctx); err != nil {
			return err
		}
		// Commit the transaction
		return tx.Commit()
	}, true)
}

// FindSimilar scans every stored note and computes cosine similarity
// against the query vector. Notes without an embedding are skipped.
func (b *Backend) FindSimilar(ctx context.Context, vector []float32, minCosine float32, limit int) ([]core.SimilarityMatch, error) {
	var results []core.SimilarityMatch

	err := b.WithTx(func(tx *badger.Txn) error {
		// Iterate through all note records
		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte(noteRecordPrefix)
		iter := tx.NewIterator(opts)
		defer iter.Close()

		for iter.Rewind(); iter.Valid(); iter.Next() {
			item := iter.Item()
			key := item.Key()

			// Skip index keys (date index and sequence key)
			if bytes.Equal(key, []byte(noteIDSeq)) ||
				bytes.HasPrefix(key, []byte(noteDatePrefix)) {
				continue
			}

			// Read the note
			var note *core.Note
			err := item.Value(func(val []byte) error {
				var err error
				note, err = storage.UnmarshalNote(val)
				return err
			})
			if err != nil {
				return err
			}
			if note == nil {
				continue
			}

			// Skip notes without embeddings
			if !note.HasVector() {
				continue
			}

			cosine := cosineSimilarity(vector, note.Vector)

			// Filter by threshold
			if cosine >= minCosine {
				results = append(results, core.SimilarityMatch{
					NoteId: note.Id,
					Cosine: cosine,
				})
			}
		}

		return nil
	}, false)

	if err != nil {
		return nil, err
	}

	// Sort by similarity descending
	slices.SortFunc(results, func(a, b core.SimilarityMatch) int {
		if a.Cosine > b.Cosine {
			return -1
		}
		if a.Cosine < b.Cosine {
			return 1
		}
		return 0
	})

	// Limit to maxHits
	if len(results) > limit {
		results = results[:limit]
	}

	return results, nil
}

// cosineSimilarity computes dot(a,b)/(|a||b|). Embedding providers do
// not all return unit vectors, so the magnitudes are not assumed.
func cosineSimilarity(a, b []float32) float32 {
	minLen := len(a)
	if len(b) < minLen {
		minLen = len(b)
	}
	var dot, normA, normB float64
	for i := 0; i < minLen; i++ {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return float32(dot / (math.Sqrt(normA) * math.Sqrt(normB)))
}
