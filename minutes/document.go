package minutes

import "encoding/json"

type (
	// DiscussionEntry is one line of the minutes. Entries built from the
	// transcript remember their source utterance and entries placed by the
	// editor are marked as inserted. Entries built elsewhere, decoded from
	// JSON for instance, carry neither and are reconciled by position.
	DiscussionEntry struct {
		Speaker   string `json:"speaker"`
		Text      string `json:"text"`
		Timestamp int64  `json:"timestamp"`

		source   *origin
		inserted bool
	}

	origin struct {
		index int
		text  string
	}

	Vote struct {
		Subject string `json:"subject"`
		For     int    `json:"for"`
		Against int    `json:"against"`
		Abstain int    `json:"abstain"`
		Outcome string `json:"outcome,omitempty"`
	}

	// Document is the minutes. A document returned by Reconstruct remembers
	// the fingerprint of its transcript, and editor changes keep it.
	Document struct {
		Attendance  []string
		Discussions []DiscussionEntry
		Decisions   []string
		Votes       []Vote

		basis string
	}

	documentJSON struct {
		Attendance  []string          `json:"présences"`
		Discussions []DiscussionEntry `json:"discussions"`
		Decisions   []string          `json:"décisions"`
		Votes       []Vote            `json:"votes"`
	}
)

// Transcribed reports whether the entry was derived from an utterance.
func (e DiscussionEntry) Transcribed() bool {
	return e.source != nil
}

// Inserted reports whether the entry was placed by the editor.
func (e DiscussionEntry) Inserted() bool {
	return e.inserted
}

func (d Document) Clone() Document {
	c := Document{
		Attendance:  make([]string, len(d.Attendance)),
		Discussions: make([]DiscussionEntry, len(d.Discussions)),
		Decisions:   make([]string, len(d.Decisions)),
		Votes:       make([]Vote, len(d.Votes)),
		basis:       d.basis,
	}
	copy(c.Attendance, d.Attendance)
	copy(c.Discussions, d.Discussions)
	copy(c.Decisions, d.Decisions)
	copy(c.Votes, d.Votes)
	return c
}

// MarshalJSON writes the document in the schema the renderers consume.
// Empty sections are arrays, never null.
func (d Document) MarshalJSON() ([]byte, error) {
	c := d.Clone()
	return json.Marshal(documentJSON{
		Attendance:  c.Attendance,
		Discussions: c.Discussions,
		Decisions:   c.Decisions,
		Votes:       c.Votes,
	})
}

// UnmarshalJSON reads the schema written by MarshalJSON. The decoded
// document has no tracked structure, so reconstructing from it falls back
// to matching entries by position.
func (d *Document) UnmarshalJSON(data []byte) error {
	var dj documentJSON
	if err := json.Unmarshal(data, &dj); err != nil {
		return err
	}
	*d = Document{
		Attendance:  dj.Attendance,
		Discussions: dj.Discussions,
		Decisions:   dj.Decisions,
		Votes:       dj.Votes,
	}
	*d = d.Clone()
	return nil
}
