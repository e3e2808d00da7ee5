// Code generated by musgen-go. DO NOT EDIT.

package core

import (
	"github.com/mus-format/mus-go/ord"
	"github.com/mus-format/mus-go/raw"
	"github.com/mus-format/mus-go/varint"
)

var (
	map72jZCFqYkwATK4y8zC6PhQΞΞ   = ord.NewMapSer[string, string](ord.String, ord.String)
	sliceEmΣyC7WEΣz9jZΣBqaYkDqwΞΞ = ord.NewSliceSer[string](ord.String)
	sliceU1lAn0Npdy0yeh6KAxjcjgΞΞ = ord.NewSliceSer[RawMention](RawMentionMUS)
	sliceeAV3fad3BltbyrUZCs9jRgΞΞ = ord.NewSliceSer[float32](varint.Float32)
)

var IDMUS = iDMUS{}

type iDMUS struct{}

func (s iDMUS) Marshal(v ID, bs []byte) (n int) {
	return varint.Uint64.Marshal(uint64(v), bs)
}

func (s iDMUS) Unmarshal(bs []byte) (v ID, n int, err error) {
	tmp, n, err := varint.Uint64.Unmarshal(bs)
	if err != nil {
		return
	}
	v = ID(tmp)
	return
}

func (s iDMUS) Size(v ID) (size int) {
	return varint.Uint64.Size(uint64(v))
}

func (s iDMUS) Skip(bs []byte) (n int, err error) {
	return varint.Uint64.Skip(bs)
}

var EntityTypeMUS = entityTypeMUS{}

type entityTypeMUS struct{}

func (s entityTypeMUS) Marshal(v EntityType, bs []byte) (n int) {
	return varint.Int.Marshal(int(v), bs)
}

func (s entityTypeMUS) Unmarshal(bs []byte) (v EntityType, n int, err error) {
	tmp, n, err := varint.Int.Unmarshal(bs)
	if err != nil {
		return
	}
	v = EntityType(tmp)
	return
}

func (s entityTypeMUS) Size(v EntityType) (size int) {
	return varint.Int.Size(int(v))
}

func (s entityTypeMUS) Skip(bs []byte) (n int, err error) {
	return varint.Int.Skip(bs)
}

var RawMentionMUS = rawMentionMUS{}

type rawMentionMUS struct{}

func (s rawMentionMUS) Marshal(v RawMention, bs []byte) (n int) {
	n = ord.String.Marshal(v.Text, bs)
	n += ord.String.Marshal(v.Type, bs[n:])
	n += varint.Float64.Marshal(v.Confidence, bs[n:])
	n += varint.Int.Marshal(v.SpanStart, bs[n:])
	return n + varint.Int.Marshal(v.SpanEnd, bs[n:])
}

func (s rawMentionMUS) Unmarshal(bs []byte) (v RawMention, n int, err error) {
	v.Text, n, err = ord.String.Unmarshal(bs)
	if err != nil {
		return
	}
	var n1 int
	v.Type, n1, err = ord.String.Unmarshal(bs[n:])
	n += n1
	if err != nil {
		return
	}
	v.Confidence, n1, err = varint.Float64.Unmarshal(bs[n:])
	n += n1
	if err != nil {
		return
	}
	v.SpanStart, n1, err = varint.Int.Unmarshal(bs[n:])
	n += n1
	if err != nil {
		return
	}
	v.SpanEnd, n1, err = varint.Int.Unmarshal(bs[n:])
	n += n1
	return
}

func (s rawMentionMUS) Size(v RawMention) (size int) {
	size = ord.String.Size(v.Text)
	size += ord.String.Size(v.Type)
	size += varint.Float64.Size(v.Confidence)
	size += varint.Int.Size(v.SpanStart)
	return size + varint.Int.Size(v.SpanEnd)
}

func (s rawMentionMUS) Skip(bs []byte) (n int, err error) {
	n, err = ord.String.Skip(bs)
	if err != nil {
		return
	}
	var n1 int
	n1, err = ord.String.Skip(bs[n:])
	n += n1
	if err != nil {
		return
	}
	n1, err = varint.Float64.Skip(bs[n:])
	n += n1
	if err != nil {
		return
	}
	n1, err = varint.Int.Skip(bs[n:])
	n += n1
	if err != nil {
		return
	}
	n1, err = varint.Int.Skip(bs[n:])
	n += n1
	return
}

var NoteMUS = noteMUS{}

type noteMUS struct{}

func (s noteMUS) Marshal(v Note, bs []byte) (n int) {
	n = IDMUS.Marshal(v.Id, bs)
	n += ord.String.Marshal(v.Text, bs[n:])
	n += raw.TimeUnixMicro.Marshal(v.Timestamp, bs[n:])
	n += ord.String.Marshal(v.SessionId, bs[n:])
	n += sliceEmΣyC7WEΣz9jZΣBqaYkDqwΞΞ.Marshal(v.Tags, bs[n:])
	n += sliceeAV3fad3BltbyrUZCs9jRgΞΞ.Marshal(v.Vector, bs[n:])
	n += sliceU1lAn0Npdy0yeh6KAxjcjgΞΞ.Marshal(v.RawMentions, bs[n:])
	n += raw.TimeUnixMicro.Marshal(v.InsertedAt, bs[n:])
	return n + raw.TimeUnixMicro.Marshal(v.UpdatedAt, bs[n:])
}

func (s noteMUS) Unmarshal(bs []byte) (v Note, n int, err error) {
	v.Id, n, err = IDMUS.Unmarshal(bs)
	if err != nil {
		return
	}
	var n1 int
	v.Text, n1, err = ord.String.Unmarshal(bs[n:])
	n += n1
	if err != nil {
		return
	}
	v.Timestamp, n1, err = raw.TimeUnixMicro.Unmarshal(bs[n:])
	n += n1
	if err != nil {
		return
	}
	v.SessionId, n1, err = ord.String.Unmarshal(bs[n:])
	n += n1
	if err != nil {
		return
	}
	v.Tags, n1, err = sliceEmΣyC7WEΣz9jZΣBqaYkDqwΞΞ.Unmarshal(bs[n:])
	n += n1
	if err != nil {
		return
	}
	v.Vector, n1, err = sliceeAV3fad3BltbyrUZCs9jRgΞΞ.Unmarshal(bs[n:])
	n += n1
	if err != nil {
		return
	}
	v.RawMentions, n1, err = sliceU1lAn0Npdy0yeh6KAxjcjgΞΞ.Unmarshal(bs[n:])
	n += n1
	if err != nil {
		return
	}
	v.InsertedAt, n1, err = raw.TimeUnixMicro.Unmarshal(bs[n:])
	n += n1
	if err != nil {
		return
	}
	v.UpdatedAt, n1, err = raw.TimeUnixMicro.Unmarshal(bs[n:])
	n += n1
	return
}

func (s noteMUS) Size(v Note) (size int) {
	size = IDMUS.Size(v.Id)
	size += ord.String.Size(v.Text)
	size += raw.TimeUnixMicro.Size(v.Timestamp)
	size += ord.String.Size(v.SessionId)
	size += sliceEmΣyC7WEΣz9jZΣBqaYkDqwΞΞ.Size(v.Tags)
	size += sliceeAV3fad3BltbyrUZCs9jRgΞΞ.Size(v.Vector)
	size += sliceU1lAn0Npdy0yeh6KAxjcjgΞΞ.Size(v.RawMentions)
	size += raw.TimeUnixMicro.Size(v.InsertedAt)
	return size + raw.TimeUnixMicro.Size(v.UpdatedAt)
}

func (s noteMUS) Skip(bs []byte) (n int, err error) {
	n, err = IDMUS.Skip(bs)
	if err != nil {
		return
	}
	var n1 int
	n1, err = ord.String.Skip(bs[n:])
	n += n1
	if err != nil {
		return
	}
	n1, err = raw.TimeUnixMicro.Skip(bs[n:])
	n += n1
	if err != nil {
		return
	}
	n1, err = ord.String.Skip(bs[n:])
	n += n1
	if err != nil {
		return
	}
	n1, err = sliceEmΣyC7WEΣz9jZΣBqaYkDqwΞΞ.Skip(bs[n:])
	n += n1
	if err != nil {
		return
	}
	n1, err = sliceeAV3fad3BltbyrUZCs9jRgΞΞ.Skip(bs[n:])
	n += n1
	if err != nil {
		return
	}
	n1, err = sliceU1lAn0Npdy0yeh6KAxjcjgΞΞ.Skip(bs[n:])
	n += n1
	if err != nil {
		return
	}
	n1, err = raw.TimeUnixMicro.Skip(bs[n:])
	n += n1
	if err != nil {
		return
	}
	n1, err = raw.TimeUnixMicro.Skip(bs[n:])
	n += n1
	return
}

var EntityMUS = entityMUS{}

type entityMUS struct{}

func (s entityMUS) Marshal(v Entity, bs []byte) (n int) {
	n = IDMUS.Marshal(v.Id, bs)
	n += ord.String.Marshal(v.CanonicalName, bs[n:])
	n += EntityTypeMUS.Marshal(v.Type, bs[n:])
	n += sliceEmΣyC7WEΣz9jZΣBqaYkDqwΞΞ.Marshal(v.Aliases, bs[n:])
	n += varint.Uint64.Marshal(v.MentionCount, bs[n:])
	n += varint.Float64.Marshal(v.Confidence, bs[n:])
	n += raw.TimeUnixMicro.Marshal(v.FirstSeen, bs[n:])
	n += raw.TimeUnixMicro.Marshal(v.LastSeen, bs[n:])
	n += map72jZCFqYkwATK4y8zC6PhQΞΞ.Marshal(v.Metadata, bs[n:])
	n += raw.TimeUnixMicro.Marshal(v.InsertedAt, bs[n:])
	return n + raw.TimeUnixMicro.Marshal(v.UpdatedAt, bs[n:])
}

func (s entityMUS) Unmarshal(bs []byte) (v Entity, n int, err error) {
	v.Id, n, err = IDMUS.Unmarshal(bs)
	if err != nil {
		return
	}
	var n1 int
	v.CanonicalName, n1, err = ord.String.Unmarshal(bs[n:])
	n += n1
	if err != nil {
		return
	}
	v.Type, n1, err = EntityTypeMUS.Unmarshal(bs[n:])
	n += n1
	if err != nil {
		return
	}
	v.Aliases, n1, err = sliceEmΣyC7WEΣz9jZΣBqaYkDqwΞΞ.Unmarshal(bs[n:])
	n += n1
	if err != nil {
		return
	}
	v.MentionCount, n1, err = varint.Uint64.Unmarshal(bs[n:])
	n += n1
	if err != nil {
		return
	}
	v.Confidence, n1, err = varint.Float64.Unmarshal(bs[n:])
	n += n1
	if err != nil {
		return
	}
	v.FirstSeen, n1, err = raw.TimeUnixMicro.Unmarshal(bs[n:])
	n += n1
	if err != nil {
		return
	}
	v.LastSeen, n1, err = raw.TimeUnixMicro.Unmarshal(bs[n:])
	n += n1
	if err != nil {
		return
	}
	v.Metadata, n1, err = map72jZCFqYkwATK4y8zC6PhQΞΞ.Unmarshal(bs[n:])
	n += n1
	if err != nil {
		return
	}
	v.InsertedAt, n1, err = raw.TimeUnixMicro.Unmarshal(bs[n:])
	n += n1
	if err != nil {
		return
	}
	v.UpdatedAt, n1, err = raw.TimeUnixMicro.Unmarshal(bs[n:])
	n += n1
	return
}

func (s entityMUS) Size(v Entity) (size int) {
	size = IDMUS.Size(v.Id)
	size += ord.String.Size(v.CanonicalName)
	size += EntityTypeMUS.Size(v.Type)
	size += sliceEmΣyC7WEΣz9jZΣBqaYkDqwΞΞ.Size(v.Aliases)
	size += varint.Uint64.Size(v.MentionCount)
	size += varint.Float64.Size(v.Confidence)
	size += raw.TimeUnixMicro.Size(v.FirstSeen)
	size += raw.TimeUnixMicro.Size(v.LastSeen)
	size += map72jZCFqYkwATK4y8zC6PhQΞΞ.Size(v.Metadata)
	size += raw.TimeUnixMicro.Size(v.InsertedAt)
	return size + raw.TimeUnixMicro.Size(v.UpdatedAt)
}

func (s entityMUS) Skip(bs []byte) (n int, err error) {
	n, err = IDMUS.Skip(bs)
	if err != nil {
		return
	}
	var n1 int
	n1, err = ord.String.Skip(bs[n:])
	n += n1
	if err != nil {
		return
	}
	n1, err = EntityTypeMUS.Skip(bs[n:])
	n += n1
	if err != nil {
		return
	}
	n1, err = sliceEmΣyC7WEΣz9jZΣBqaYkDqwΞΞ.Skip(bs[n:])
	n += n1
	if err != nil {
		return
	}
	n1, err = varint.Uint64.Skip(bs[n:])
	n += n1
	if err != nil {
		return
	}
	n1, err = varint.Float64.Skip(bs[n:])
	n += n1
	if err != nil {
		return
	}
	n1, err = raw.TimeUnixMicro.Skip(bs[n:])
	n += n1
	if err != nil {
		return
	}
	n1, err = raw.TimeUnixMicro.Skip(bs[n:])
	n += n1
	if err != nil {
		return
	}
	n1, err = map72jZCFqYkwATK4y8zC6PhQΞΞ.Skip(bs[n:])
	n += n1
	if err != nil {
		return
	}
	n1, err = raw.TimeUnixMicro.Skip(bs[n:])
	n += n1
	if err != nil {
		return
	}
	n1, err = raw.TimeUnixMicro.Skip(bs[n:])
	n += n1
	return
}

var EntityMentionMUS = entityMentionMUS{}

type entityMentionMUS struct{}

func (s entityMentionMUS) Marshal(v EntityMention, bs []byte) (n int) {
	n = IDMUS.Marshal(v.Id, bs)
	n += IDMUS.Marshal(v.NoteId, bs[n:])
	n += IDMUS.Marshal(v.EntityId, bs[n:])
	n += ord.String.Marshal(v.MentionedText, bs[n:])
	n += varint.Float64.Marshal(v.Confidence, bs[n:])
	n += varint.Int.Marshal(v.SpanStart, bs[n:])
	n += varint.Int.Marshal(v.SpanEnd, bs[n:])
	return n + raw.TimeUnixMicro.Marshal(v.InsertedAt, bs[n:])
}

func (s entityMentionMUS) Unmarshal(bs []byte) (v EntityMention, n int, err error) {
	v.Id, n, err = IDMUS.Unmarshal(bs)
	if err != nil {
		return
	}
	var n1 int
	v.NoteId, n1, err = IDMUS.Unmarshal(bs[n:])
	n += n1
	if err != nil {
		return
	}
	v.EntityId, n1, err = IDMUS.Unmarshal(bs[n:])
	n += n1
	if err != nil {
		return
	}
	v.MentionedText, n1, err = ord.String.Unmarshal(bs[n:])
	n += n1
	if err != nil {
		return
	}
	v.Confidence, n1, err = varint.Float64.Unmarshal(bs[n:])
	n += n1
	if err != nil {
		return
	}
	v.SpanStart, n1, err = varint.Int.Unmarshal(bs[n:])
	n += n1
	if err != nil {
		return
	}
	v.SpanEnd, n1, err = varint.Int.Unmarshal(bs[n:])
	n += n1
	if err != nil {
		return
	}
	v.InsertedAt, n1, err = raw.TimeUnixMicro.Unmarshal(bs[n:])
	n += n1
	return
}

func (s entityMentionMUS) Size(v EntityMention) (size int) {
	size = IDMUS.Size(v.Id)
	size += IDMUS.Size(v.NoteId)
	size += IDMUS.Size(v.EntityId)
	size += ord.String.Size(v.MentionedText)
	size += varint.Float64.Size(v.Confidence)
	size += varint.Int.Size(v.SpanStart)
	size += varint.Int.Size(v.SpanEnd)
	return size + raw.TimeUnixMicro.Size(v.InsertedAt)
}

func (s entityMentionMUS) Skip(bs []byte) (n int, err error) {
	n, err = IDMUS.Skip(bs)
	if err != nil {
		return
	}
	var n1 int
	n1, err = IDMUS.Skip(bs[n:])
	n += n1
	if err != nil {
		return
	}
	n1, err = IDMUS.Skip(bs[n:])
	n += n1
	if err != nil {
		return
	}
	n1, err = ord.String.Skip(bs[n:])
	n += n1
	if err != nil {
		return
	}
	n1, err = varint.Float64.Skip(bs[n:])
	n += n1
	if err != nil {
		return
	}
	n1, err = varint.Int.Skip(bs[n:])
	n += n1
	if err != nil {
		return
	}
	n1, err = varint.Int.Skip(bs[n:])
	n += n1
	if err != nil {
		return
	}
	n1, err = raw.TimeUnixMicro.Skip(bs[n:])
	n += n1
	return
}
