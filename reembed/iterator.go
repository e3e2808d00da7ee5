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


package reembed

import (
	"context"
	"time"

	"github.com/poiesic/notewell/core"
	"github.com/poiesic/notewell/storage"
)

const (
	// DefaultBatchSize is the default number of notes to fetch in each batch
	DefaultBatchSize = 100
)

// NoteIterator iterates over all notes in batches.
type NoteIterator struct {
	repo      storage.NoteRepository
	batchSize int
}

// NewNoteIterator creates a new note iterator.
// batchSize: number of notes to fetch in each batch (must be > 0)
func NewNoteIterator(repo storage.NoteRepository, batchSize int) *NoteIterator {
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}

	return &NoteIterator{
		repo:      repo,
		batchSize: batchSize,
	}
}

// ForEach iterates over all notes, calling fn for each batch.
// Iteration stops on first error from fn or when all notes are processed.
// Context cancellation is checked between batches.
func (it *NoteIterator) ForEach(ctx context.Context, fn func([]*core.Note) error) error {
	// Use a very wide date range to get all notes
	startTime := time.Date(1970, 1, 1, 0, 0, 0, 0, time.UTC)
	endTime := time.Date(2100, 12, 31, 23, 59, 59, 0, time.UTC)

	// Check context before starting
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}

	// Fetch all notes using date range query
	notes, err := it.repo.GetNotesByDateRange(ctx, startTime, endTime)
	if err != nil {
		return err
	}

	if len(notes) == 0 {
		// No notes to process
		return nil
	}

	// Process notes in batches of batchSize
	for i := 0; i < len(notes); i += it.batchSize {
		end := i + it.batchSize
		if end > len(notes) {
			end = len(notes)
		}

		batch := notes[i:end]

		// Call user function with batch
		if err := fn(batch); err != nil {
			return err
		}

		// Check context after each batch
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}
	}

	return nil
}
