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


package core

import (
	"fmt"
	"time"
)

// MaxNoteLength is the maximum accepted note text length in bytes.
// Over-long input is rejected rather than truncated so no data is
// silently lost.
const MaxNoteLength = 10000

// ValidateNote validates a Note according to domain rules.
//
// Validation rules:
//   - Text must not be empty and must not exceed MaxNoteLength
//   - Timestamp must not be in the future
//   - Vector, if present, must have exactly dims elements (dims 0 skips the check)
//
// NOT validated (populated during ingestion):
//   - RawMentions (can be empty until extraction runs)
//   - ID (0 is valid from database sequences)
func ValidateNote(note *Note, dims int) error {
	if note == nil {
		return fmt.Errorf("%w: note is nil", ErrInvalidNote)
	}

	if note.Text == "" {
		return fmt.Errorf("%w: %w", ErrInvalidNote, ErrEmptyText)
	}

	if len(note.Text) > MaxNoteLength {
		return fmt.Errorf("%w: %w: %d bytes", ErrInvalidNote, ErrTextTooLong, len(note.Text))
	}

	if !IsValidTimestamp(note.Timestamp) {
		return fmt.Errorf("%w: %w", ErrInvalidNote, ErrInvalidTimestamp)
	}

	if dims > 0 && note.HasVector() && len(note.Vector) != dims {
		return fmt.Errorf("%w: %w: have %d, want %d", ErrInvalidNote, ErrInvalidVectorDims, len(note.Vector), dims)
	}

	return nil
}

// ValidateEntity validates an Entity according to domain rules.
//
// Validation rules:
//   - CanonicalName must not be empty
//   - Type must be a known EntityType
//   - Confidence must fall in [0,1]
func ValidateEntity(entity *Entity) error {
	if entity == nil {
		return fmt.Errorf("%w: entity is nil", ErrInvalidEntity)
	}

	if entity.CanonicalName == "" {
		return fmt.Errorf("%w: %w", ErrInvalidEntity, ErrEmptyCanonicalName)
	}

	if err := ValidateEntityType(entity.Type); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidEntity, err)
	}

	if entity.Confidence < 0 || entity.Confidence > 1 {
		return fmt.Errorf("%w: %w: %f", ErrInvalidEntity, ErrInvalidConfidence, entity.Confidence)
	}

	return nil
}

// ValidateMention validates an EntityMention according to domain rules.
//
// Validation rules:
//   - NoteId and EntityId must be set
//   - Confidence must fall in [0,1]
//   - Span offsets are either both SpanAbsent or 0 <= start <= end
func ValidateMention(mention *EntityMention) error {
	if mention == nil {
		return fmt.Errorf("%w: mention is nil", ErrInvalidMention)
	}

	if mention.NoteId == 0 || mention.EntityId == 0 {
		return fmt.Errorf("%w: note and entity ids required", ErrInvalidMention)
	}

	if mention.Confidence < 0 || mention.Confidence > 1 {
		return fmt.Errorf("%w: %w: %f", ErrInvalidMention, ErrInvalidConfidence, mention.Confidence)
	}

	spanAbsent := mention.SpanStart == SpanAbsent && mention.SpanEnd == SpanAbsent
	spanValid := mention.SpanStart >= 0 && mention.SpanEnd >= mention.SpanStart
	if !spanAbsent && !spanValid {
		return fmt.Errorf("%w: %w: [%d,%d)", ErrInvalidMention, ErrInvalidSpan, mention.SpanStart, mention.SpanEnd)
	}

	return nil
}

// ValidateEntityType validates that an EntityType has a valid value.
func ValidateEntityType(t EntityType) error {
	switch t {
	case EntityTypePerson, EntityTypeProject, EntityTypeTechnology, EntityTypeConcept:
		return nil
	default:
		return fmt.Errorf("%w: value %d", ErrInvalidEntityType, t)
	}
}

// IsValidTimestamp checks if a timestamp is valid (not in the future).
func IsValidTimestamp(ts time.Time) bool {
	return !ts.After(time.Now())
}
