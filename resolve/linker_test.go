package resolve

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/poiesic/notewell/ai"
	"github.com/poiesic/notewell/core"
)

func TestBuildMentions(t *testing.T) {
	apollo := &core.Entity{Id: 1, CanonicalName: "Project Apollo", Type: core.EntityTypeProject}
	sarah := &core.Entity{Id: 2, CanonicalName: "Sarah Chen", Type: core.EntityTypePerson}

	resolutions := []*Resolution{
		{Entity: apollo, Candidate: ai.ExtractedEntity{Text: "Apollo", Confidence: 0.9, SpanStart: 0, SpanEnd: 6}},
		{Entity: sarah, IsNew: true, Candidate: ai.ExtractedEntity{Text: "Sarah", Confidence: 0.95, SpanStart: 20, SpanEnd: 25}},
		// Same entity at a different span is a distinct mention
		{Entity: apollo, Candidate: ai.ExtractedEntity{Text: "apollo", Confidence: 0.8, SpanStart: 40, SpanEnd: 46}},
		// Exact duplicate (entity, span) is dropped
		{Entity: apollo, Candidate: ai.ExtractedEntity{Text: "Apollo", Confidence: 0.7, SpanStart: 0, SpanEnd: 6}},
	}

	mentions, linked := BuildMentions(resolutions)

	assert.Len(t, mentions, 3)
	assert.Len(t, linked, 3)

	assert.Equal(t, apollo.Id, mentions[0].EntityId)
	assert.Equal(t, "Apollo", mentions[0].MentionedText)
	assert.Equal(t, 0, mentions[0].SpanStart)
	assert.Equal(t, 6, mentions[0].SpanEnd)

	assert.Equal(t, "Sarah Chen", linked[1].Name)
	assert.True(t, linked[1].IsNew)
	assert.Equal(t, core.EntityTypePerson, linked[1].Type)

	assert.Equal(t, 40, mentions[2].SpanStart)
}

func TestBuildMentionsAbsentSpansCollide(t *testing.T) {
	react := &core.Entity{Id: 3, CanonicalName: "React", Type: core.EntityTypeTechnology}

	// Without offsets, two mentions of the same entity collapse to one
	resolutions := []*Resolution{
		{Entity: react, Candidate: ai.ExtractedEntity{Text: "React", Confidence: 0.9, SpanStart: -1, SpanEnd: -1}},
		{Entity: react, Candidate: ai.ExtractedEntity{Text: "react", Confidence: 0.8, SpanStart: -1, SpanEnd: -1}},
	}

	mentions, linked := BuildMentions(resolutions)
	assert.Len(t, mentions, 1)
	assert.Len(t, linked, 1)
	assert.Equal(t, "React", mentions[0].MentionedText)
}

func TestBuildMentionsEmpty(t *testing.T) {
	mentions, linked := BuildMentions(nil)
	assert.Empty(t, mentions)
	assert.Empty(t, linked)
}
