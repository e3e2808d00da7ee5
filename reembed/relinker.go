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
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/poiesic/notewell/ai"
	"github.com/poiesic/notewell/core"
	"github.com/poiesic/notewell/resolve"
	"github.com/poiesic/notewell/storage"
)

// Relinker re-runs entity extraction over stored notes and fills in
// missing mention links. Notes ingested while the extraction service
// was down, or before a prompt change, pick up their entities here.
//
// Relinking is additive: existing mention rows are kept, and a
// re-extracted mention that already exists is skipped. The raw
// extraction snapshot on each note is replaced with the fresh run.
type Relinker struct {
	noteRepo  storage.NoteRepository
	resolver  resolve.Resolver
	extractor ai.EntityExtractor
	config    *Config
	progress  io.Writer
	iterator  *NoteIterator
}

// NewRelinker creates a new relinker.
// progress: where to write progress output (typically os.Stderr)
func NewRelinker(
	noteRepo storage.NoteRepository,
	resolver resolve.Resolver,
	extractor ai.EntityExtractor,
	config *Config,
	progress io.Writer,
) *Relinker {
	if config == nil {
		config = DefaultConfig()
	}

	return &Relinker{
		noteRepo:  noteRepo,
		resolver:  resolver,
		extractor: extractor,
		config:    config,
		progress:  progress,
		iterator:  NewNoteIterator(noteRepo, config.BatchSize),
	}
}

// Run executes the relinking operation over every note in the database.
// Per-note extraction failures are collected and reported at the end;
// they never stop the run.
func (r *Relinker) Run(ctx context.Context) error {
	startTime := time.Date(1970, 1, 1, 0, 0, 0, 0, time.UTC)
	endTime := time.Date(2100, 12, 31, 23, 59, 59, 0, time.UTC)

	allNotes, err := r.noteRepo.GetNotesByDateRange(ctx, startTime, endTime)
	if err != nil {
		return fmt.Errorf("failed to query notes: %w", err)
	}

	totalNotes := len(allNotes)
	if totalNotes == 0 {
		fmt.Fprintf(r.progress, "No notes found in database (0 notes)\n")
		return nil
	}

	fmt.Fprintf(r.progress, "Starting relinking of %d notes (batch size: %d)\n",
		totalNotes, r.config.BatchSize)

	tracker := NewProgressTracker(r.progress, totalNotes, r.config.ReportInterval)
	tracker.Start()

	processed := 0
	linksAdded := 0
	var noteErrors []error

	err = r.iterator.ForEach(ctx, func(notes []*core.Note) error {
		added, errs := r.processBatch(ctx, notes)
		linksAdded += added
		noteErrors = append(noteErrors, errs...)

		processed += len(notes)
		tracker.Update(processed)
		return nil
	})
	if err != nil {
		return err
	}

	tracker.Finish()

	elapsed := tracker.Elapsed()
	fmt.Fprintf(r.progress, "Relinking complete. Processed %d notes, added %d links in %v (%d failures)\n",
		totalNotes, linksAdded, elapsed.Round(time.Second), len(noteErrors))

	return errors.Join(noteErrors...)
}

// processBatch relinks one batch. Returns the number of mention links
// added and the per-note failures.
func (r *Relinker) processBatch(ctx context.Context, notes []*core.Note) (int, []error) {
	linksAdded := 0
	var noteErrors []error

	for _, note := range notes {
		var candidates []ai.ExtractedEntity
		err := RetryWithBackoff(ctx, func() error {
			var err error
			candidates, err = r.extractor.ExtractEntities(ctx, note.Text)
			return err
		}, r.config.MaxRetries, r.config.RetryDelay)
		if err != nil {
			noteErrors = append(noteErrors, fmt.Errorf("note %d extraction failed: %w", note.Id, err))
			continue
		}

		var resolutions []*resolve.Resolution
		for _, candidate := range candidates {
			if candidate.Confidence < r.config.MinMentionConfidence {
				continue
			}
			res, resolveErr := r.resolver.Resolve(ctx, candidate)
			if resolveErr != nil {
				noteErrors = append(noteErrors, fmt.Errorf("note %d: could not resolve %q: %w", note.Id, candidate.Text, resolveErr))
				continue
			}
			resolutions = append(resolutions, res)
		}

		mentions, _ := resolve.BuildMentions(resolutions)
		for _, mention := range mentions {
			mention.NoteId = note.Id
			if _, addErr := r.noteRepo.AddMention(ctx, mention); addErr != nil {
				if errors.Is(addErr, storage.ErrDuplicateKey) {
					// Already linked, nothing to do
					continue
				}
				noteErrors = append(noteErrors, fmt.Errorf("note %d: link failed: %w", note.Id, addErr))
				continue
			}
			linksAdded++
		}

		// Refresh the extraction snapshot
		note.RawMentions = make([]core.RawMention, len(candidates))
		for i, c := range candidates {
			note.RawMentions[i] = core.RawMention{
				Text:       c.Text,
				Type:       c.Type,
				Confidence: c.Confidence,
				SpanStart:  c.SpanStart,
				SpanEnd:    c.SpanEnd,
			}
		}
		if _, updateErr := r.noteRepo.UpdateNotes(ctx, note); updateErr != nil {
			noteErrors = append(noteErrors, fmt.Errorf("note %d: snapshot update failed: %w", note.Id, updateErr))
		}
	}

	return linksAdded, noteErrors
}
