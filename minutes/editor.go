package minutes

import (
	"fmt"
	"strconv"
	"strings"
)

type (
	// Position selects where InsertAt places a new entry.
	Position struct {
		kind  positionKind
		index int
	}

	positionKind int

	Field string
)

const (
	positionStart positionKind = iota
	positionEnd
	positionAfter
)

const (
	FieldSpeaker Field = "speaker"
	FieldText    Field = "text"
)

var (
	Start = Position{kind: positionStart}
	End   = Position{kind: positionEnd}
)

// After places the new entry immediately after index.
func After(index int) Position {
	return Position{kind: positionAfter, index: index}
}

// ParsePosition accepts "start", "end" or a decimal index.
func ParsePosition(s string) (Position, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "start":
		return Start, nil
	case "end":
		return End, nil
	}
	i, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return Position{}, fmt.Errorf("parse position %q: %w", s, err)
	}
	return After(i), nil
}

func (p Position) String() string {
	switch p.kind {
	case positionStart:
		return "start"
	case positionEnd:
		return "end"
	}
	return strconv.Itoa(p.index)
}

func ParseField(s string) (Field, error) {
	switch f := Field(strings.ToLower(strings.TrimSpace(s))); f {
	case FieldSpeaker, FieldText:
		return f, nil
	}
	return "", fmt.Errorf("field %q: %w", s, ErrInvalidField)
}

// InsertAt inserts a blank manual entry.
func InsertAt(ds []DiscussionEntry, pos Position) ([]DiscussionEntry, error) {
	return InsertEntryAt(ds, pos, DiscussionEntry{})
}

// InsertEntryAt inserts e as a manual entry; any provenance it carried is
// replaced by the inserted mark.
func InsertEntryAt(ds []DiscussionEntry, pos Position, e DiscussionEntry) ([]DiscussionEntry, error) {
	var at int
	switch pos.kind {
	case positionStart:
		at = 0
	case positionEnd:
		at = len(ds)
	default:
		if pos.index < 0 || pos.index >= len(ds) {
			return ds, fmt.Errorf("insert after %d of %d: %w", pos.index, len(ds), ErrIndexOutOfRange)
		}
		at = pos.index + 1
	}

	e.source = nil
	e.inserted = true
	out := make([]DiscussionEntry, 0, len(ds)+1)
	out = append(out, ds[:at]...)
	out = append(out, e)
	return append(out, ds[at:]...), nil
}

func RemoveAt(ds []DiscussionEntry, index int) ([]DiscussionEntry, error) {
	if index < 0 || index >= len(ds) {
		return ds, fmt.Errorf("remove %d of %d: %w", index, len(ds), ErrIndexOutOfRange)
	}

	out := make([]DiscussionEntry, 0, len(ds)-1)
	out = append(out, ds[:index]...)
	return append(out, ds[index+1:]...), nil
}

// SetField updates one entry. A speaker set on a transcribed entry lasts
// until the next reconstruction, which retargets it from the mapping.
func SetField(ds []DiscussionEntry, index int, field Field, value string) ([]DiscussionEntry, error) {
	if field != FieldSpeaker && field != FieldText {
		return ds, fmt.Errorf("set %q: %w", field, ErrInvalidField)
	}
	if index < 0 || index >= len(ds) {
		return ds, fmt.Errorf("set %s at %d of %d: %w", field, index, len(ds), ErrIndexOutOfRange)
	}

	out := make([]DiscussionEntry, len(ds))
	copy(out, ds)
	if field == FieldSpeaker {
		out[index].Speaker = value
	} else {
		out[index].Text = value
	}
	return out, nil
}
