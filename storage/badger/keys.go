package badger

import (
	"encoding/binary"
	"fmt"
	"time"

	"github.com/poiesic/notewell/core"
)

// Key prefixes for different data types
const (
	noteRecordPrefix    = "noterec"
	noteDatePrefix      = "noterecd"
	noteIDSeq           = "noterecseq"
	entityRecordPrefix  = "entrec"
	entityNamePrefix    = "entname"
	entityIDSeq         = "entrecseq"
	mentionRecordPrefix = "menrec"
	mentionIDSeq        = "menrecseq"
	mentionNotePrefix   = "mennote"
	mentionEntityPrefix = "menent"
	mentionDedupePrefix = "menuq"
)

// makeNoteKey generates a key for a note by ID.
func makeNoteKey(id core.ID) []byte {
	return []byte(fmt.Sprintf("%s:%d", noteRecordPrefix, id))
}

// makeNoteDateKey generates a composite key for the date index.
// Format: prefix:timestamp:id
func makeNoteDateKey(timestamp time.Time, id core.ID) []byte {
	prefix := noteDatePrefix + ":"
	prefixBytes := []byte(prefix)
	prefixSize := len(prefixBytes)
	totalSize := prefixSize + 16 // 8 bytes for timestamp + 8 bytes for ID
	buf := make([]byte, totalSize)
	offset := copy(buf, prefixBytes)
	// Write in BigEndian order so lexicographic sort works correctly
	binary.BigEndian.PutUint64(buf[offset:], uint64(timestamp.UnixMicro()))
	offset += 8
	binary.BigEndian.PutUint64(buf[offset:], uint64(id))
	return buf
}

// makePartialNoteDateKey generates a partial key for date range queries.
// Format: prefix:timestamp
func makePartialNoteDateKey(timestamp time.Time) []byte {
	prefix := noteDatePrefix + ":"
	prefixBytes := []byte(prefix)
	prefixSize := len(prefixBytes)
	totalSize := prefixSize + 8 // 8 bytes for timestamp
	buf := make([]byte, totalSize)
	offset := copy(buf, prefixBytes)
	// Write in BigEndian order so lexicographic sort works correctly
	binary.BigEndian.PutUint64(buf[offset:], uint64(timestamp.UnixMicro()))
	return buf
}

// makeEntityKey generates a key for an entity by ID.
func makeEntityKey(id core.ID) []byte {
	return []byte(fmt.Sprintf("%s:%d", entityRecordPrefix, id))
}

// makeEntityNameKey generates a composite key for entity lookup by
// (type, normalized surface form). Both the canonical name and every
// alias of an entity own one of these keys.
func makeEntityNameKey(normalized string, entityType core.EntityType) []byte {
	return []byte(fmt.Sprintf("%s:%d:%s", entityNamePrefix, int(entityType), normalized))
}

// makePartialEntityNameKey generates a partial key for scanning all
// registered surface forms of one type.
func makePartialEntityNameKey(entityType core.EntityType) []byte {
	return []byte(fmt.Sprintf("%s:%d:", entityNamePrefix, int(entityType)))
}

// makeMentionKey generates a key for a mention by ID.
func makeMentionKey(id core.ID) []byte {
	return []byte(fmt.Sprintf("%s:%d", mentionRecordPrefix, id))
}

// makeMentionNoteKey generates a composite key for the note index.
// Format: prefix:noteID:mentionID
func makeMentionNoteKey(noteID, mentionID core.ID) []byte {
	prefix := mentionNotePrefix + ":"
	prefixBytes := []byte(prefix)
	prefixSize := len(prefixBytes)
	totalSize := prefixSize + 16 // 8 bytes for noteID + 8 bytes for mentionID
	buf := make([]byte, totalSize)
	offset := copy(buf, prefixBytes)
	// Write in BigEndian order so lexicographic sort works correctly
	binary.BigEndian.PutUint64(buf[offset:], uint64(noteID))
	offset += 8
	binary.BigEndian.PutUint64(buf[offset:], uint64(mentionID))
	return buf
}

// makePartialMentionNoteKey generates a partial key for per-note mention queries.
func makePartialMentionNoteKey(noteID core.ID) []byte {
	prefix := mentionNotePrefix + ":"
	prefixBytes := []byte(prefix)
	prefixSize := len(prefixBytes)
	totalSize := prefixSize + 8 // 8 bytes for noteID
	buf := make([]byte, totalSize)
	offset := copy(buf, prefixBytes)
	binary.BigEndian.PutUint64(buf[offset:], uint64(noteID))
	return buf
}

// makeMentionEntityKey generates a composite key for the entity index.
// Format: prefix:entityID:mentionID
func makeMentionEntityKey(entityID, mentionID core.ID) []byte {
	prefix := mentionEntityPrefix + ":"
	prefixBytes := []byte(prefix)
	prefixSize := len(prefixBytes)
	totalSize := prefixSize + 16 // 8 bytes for entityID + 8 bytes for mentionID
	buf := make([]byte, totalSize)
	offset := copy(buf, prefixBytes)
	// Write in BigEndian order so lexicographic sort works correctly
	binary.BigEndian.PutUint64(buf[offset:], uint64(entityID))
	offset += 8
	binary.BigEndian.PutUint64(buf[offset:], uint64(mentionID))
	return buf
}

// makePartialMentionEntityKey generates a partial key for per-entity mention queries.
func makePartialMentionEntityKey(entityID core.ID) []byte {
	prefix := mentionEntityPrefix + ":"
	prefixBytes := []byte(prefix)
	prefixSize := len(prefixBytes)
	totalSize := prefixSize + 8 // 8 bytes for entityID
	buf := make([]byte, totalSize)
	offset := copy(buf, prefixBytes)
	binary.BigEndian.PutUint64(buf[offset:], uint64(entityID))
	return buf
}

// makeMentionDedupeKey generates the uniqueness key enforcing one link
// per (note, entity, span) triple.
func makeMentionDedupeKey(mention *core.EntityMention) []byte {
	hash := core.IDFromContent(mention.DedupeKey())
	return []byte(fmt.Sprintf("%s:%d", mentionDedupePrefix, hash))
}
