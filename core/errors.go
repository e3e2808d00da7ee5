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

import "errors"

// Domain validation errors
var (
	// ErrInvalidNote indicates a Note failed validation.
	ErrInvalidNote = errors.New("invalid note")

	// ErrInvalidEntity indicates an Entity failed validation.
	ErrInvalidEntity = errors.New("invalid entity")

	// ErrInvalidMention indicates an EntityMention failed validation.
	ErrInvalidMention = errors.New("invalid entity mention")

	// ErrInvalidEntityType indicates an unknown EntityType value.
	ErrInvalidEntityType = errors.New("invalid entity type")

	// ErrInvalidTimestamp indicates a timestamp is in the future.
	ErrInvalidTimestamp = errors.New("timestamp cannot be in the future")

	// ErrEmptyText indicates the note Text field is empty.
	ErrEmptyText = errors.New("text cannot be empty")

	// ErrTextTooLong indicates the note Text field exceeds the maximum length.
	ErrTextTooLong = errors.New("text exceeds maximum length")

	// ErrEmptyCanonicalName indicates the entity CanonicalName field is empty.
	ErrEmptyCanonicalName = errors.New("canonical name cannot be empty")

	// ErrInvalidConfidence indicates a confidence value outside [0,1].
	ErrInvalidConfidence = errors.New("confidence must be between 0 and 1")

	// ErrInvalidSpan indicates mention offsets that are negative or inverted.
	ErrInvalidSpan = errors.New("invalid mention span")

	// ErrInvalidVectorDims indicates an embedding whose dimension does not
	// match the configured value.
	ErrInvalidVectorDims = errors.New("embedding dimension mismatch")
)
