package core

//go:generate go run ../cmd/musgen

import (
	"encoding/binary"
	"fmt"
	"time"

	"github.com/go-crypt/x/blake2b"
)

// ID is a unique identifier for domain entities.
// It is generated using content-based hashing or database sequences.
type ID uint64

// IDFromContent generates a deterministic ID from text content using BLAKE2b hashing.
// This ensures that identical content produces identical IDs.
func IDFromContent(text string) ID {
	h, _ := blake2b.New(8, nil) // 8 bytes = 64 bits
	h.Write([]byte(text))
	sum := h.Sum(nil)
	return ID(binary.LittleEndian.Uint64(sum))
}

// EntityType categorizes a registry entity.
type EntityType int

const (
	// EntityTypePerson represents a named individual.
	EntityTypePerson EntityType = iota + 1
	// EntityTypeProject represents a project, initiative or codename.
	EntityTypeProject
	// EntityTypeTechnology represents a technology, tool or framework.
	EntityTypeTechnology
	// EntityTypeConcept represents a topic, idea or organization.
	EntityTypeConcept
)

// AllEntityTypes returns every valid entity type.
func AllEntityTypes() []EntityType {
	return []EntityType{
		EntityTypePerson,
		EntityTypeProject,
		EntityTypeTechnology,
		EntityTypeConcept,
	}
}

// String returns the lowercase name of the entity type.
func (t EntityType) String() string {
	switch t {
	case EntityTypePerson:
		return "person"
	case EntityTypeProject:
		return "project"
	case EntityTypeTechnology:
		return "technology"
	case EntityTypeConcept:
		return "concept"
	default:
		return fmt.Sprintf("entitytype(%d)", int(t))
	}
}

// ParseEntityType maps an extraction-service type string to an EntityType.
// Organizations are folded into the concept type, matching the registry
// schema. Unknown strings return ErrInvalidEntityType.
func ParseEntityType(s string) (EntityType, error) {
	switch s {
	case "person":
		return EntityTypePerson, nil
	case "project":
		return EntityTypeProject, nil
	case "technology":
		return EntityTypeTechnology, nil
	case "concept", "organization":
		return EntityTypeConcept, nil
	default:
		return 0, fmt.Errorf("%w: %q", ErrInvalidEntityType, s)
	}
}

// SpanAbsent marks a mention whose character offsets are unknown.
const SpanAbsent = -1

// Entity is a deduplicated real-world referent (person, project,
// technology or concept) tracked across notes.
type Entity struct {
	Id            ID
	CanonicalName string // Primary display name, original casing
	Type          EntityType
	Aliases       []string // Normalized alternate surface forms, excludes the canonical name
	MentionCount  uint64   // Count of live EntityMention rows referencing this entity
	Confidence    float64  // Rolling aggregate in [0,1], monotonic non-decreasing except on merge
	FirstSeen     time.Time
	LastSeen      time.Time
	Metadata      map[string]string // Extension fields, never read by resolution
	InsertedAt    time.Time
	UpdatedAt     time.Time
}

// HasAlias reports whether the entity already carries the given
// normalized alias.
func (e *Entity) HasAlias(alias string) bool {
	for _, a := range e.Aliases {
		if a == alias {
			return true
		}
	}
	return false
}

// EntityMention records one occurrence of an entity within a note.
// Mentions are owned by their note and cascade-deleted with it.
type EntityMention struct {
	Id            ID
	NoteId        ID
	EntityId      ID
	MentionedText string  // Verbatim surface form from the note
	Confidence    float64 // Extraction confidence, independent of the entity aggregate
	SpanStart     int     // Character offset into the note text, SpanAbsent if unknown
	SpanEnd       int
	InsertedAt    time.Time
}

// DedupeKey returns the content string hashed to detect duplicate links.
// Two mentions of the same entity in the same note collide only when
// their spans also match.
func (m *EntityMention) DedupeKey() string {
	return fmt.Sprintf("(%d,%d,%d,%d)", m.NoteId, m.EntityId, m.SpanStart, m.SpanEnd)
}

// RawMention is the extraction-service snapshot stored on a note.
// It is informational only; the authoritative linkage is EntityMention.
type RawMention struct {
	Text       string
	Type       string
	Confidence float64
	SpanStart  int
	SpanEnd    int
}

// Note is a single ingested work note. The Vector field may be empty,
// which is a valid first-class state: such notes are ranked by lexical
// relevance alone.
type Note struct {
	Id          ID
	Text        string
	Timestamp   time.Time // When the note was originally written
	SessionId   string
	Tags        []string
	Vector      []float32    // Embedding, empty = absent (populated during ingestion)
	RawMentions []RawMention // Extraction snapshot (populated during ingestion)
	InsertedAt  time.Time
	UpdatedAt   time.Time
}

// HasVector reports whether the note carries an embedding.
func (n *Note) HasVector() bool {
	return len(n.Vector) > 0
}

// SimilarityMatch represents a note match from vector similarity search.
type SimilarityMatch struct {
	NoteId ID
	Cosine float32 // Raw cosine similarity in [-1,1]
}

// RankedNote is one hybrid search result. SimilarityScore is nil when
// the note has no stored embedding or no query embedding was available;
// such notes are scored by TextRank alone.
type RankedNote struct {
	Note            *Note
	FinalScore      float64
	TextRank        float64
	SimilarityScore *float64
}

// LinkedEntity summarizes one entity linked to a note during ingestion.
type LinkedEntity struct {
	EntityId   ID
	MentionId  ID
	Name       string // Canonical name after resolution
	Type       EntityType
	Confidence float64
	IsNew      bool // True when resolution created the entity
}

// WarningKind identifies the pipeline stage a warning originated from.
type WarningKind int

const (
	// WarningExtraction indicates the entity-extraction call failed.
	WarningExtraction WarningKind = iota + 1
	// WarningEmbedding indicates the embedding call failed.
	WarningEmbedding
	// WarningResolution indicates a candidate mention could not be resolved.
	WarningResolution
)

// String returns the lowercase name of the warning kind.
func (k WarningKind) String() string {
	switch k {
	case WarningExtraction:
		return "extraction"
	case WarningEmbedding:
		return "embedding"
	case WarningResolution:
		return "resolution"
	default:
		return fmt.Sprintf("warningkind(%d)", int(k))
	}
}

// Warning reports a degraded-but-tolerated ingestion sub-step failure.
type Warning struct {
	Kind    WarningKind
	Message string
}

// IngestResult is returned by every successful ingestion. Failures of
// optional sub-steps appear in Warnings, never as a hard error.
type IngestResult struct {
	NoteId         ID
	LinkedEntities []LinkedEntity
	Warnings       []Warning
}
