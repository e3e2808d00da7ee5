package resolve

import (
	"github.com/poiesic/notewell/core"
)

// BuildMentions converts resolutions into mention rows ready for
// storage, deduplicating repeated (entity, span) pairs within the note.
// NoteId is left zero; storage.NoteRepository.AddNote populates it.
// The returned LinkedEntity summaries parallel the kept mentions.
func BuildMentions(resolutions []*Resolution) ([]*core.EntityMention, []core.LinkedEntity) {
	mentions := make([]*core.EntityMention, 0, len(resolutions))
	linked := make([]core.LinkedEntity, 0, len(resolutions))
	seen := make(map[string]bool, len(resolutions))

	for _, res := range resolutions {
		mention := &core.EntityMention{
			EntityId:      res.Entity.Id,
			MentionedText: res.Candidate.Text,
			Confidence:    res.Candidate.Confidence,
			SpanStart:     res.Candidate.SpanStart,
			SpanEnd:       res.Candidate.SpanEnd,
		}
		key := mention.DedupeKey()
		if seen[key] {
			continue
		}
		seen[key] = true

		mentions = append(mentions, mention)
		linked = append(linked, core.LinkedEntity{
			EntityId:   res.Entity.Id,
			Name:       res.Entity.CanonicalName,
			Type:       res.Entity.Type,
			Confidence: res.Candidate.Confidence,
			IsNew:      res.IsNew,
		})
	}
	return mentions, linked
}
