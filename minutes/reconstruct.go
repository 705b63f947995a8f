package minutes

import (
	"sort"
	"strings"
)

// Reconstruct derives the minutes for t under the effective mapping.
//
// A previous document reconstructed from the same transcript is tracked:
// its structure is kept whatever the user did to it. Inserted entries stay
// verbatim, utterances the user removed stay removed, and text the user
// edited is carried forward.
//
// Any other previous document is matched by position. The entry at index i
// is taken as utterance i unless it records a different source; its edited
// text is carried forward. Entries past the end of the transcript are kept
// verbatim.
//
// Either way the speaker of every transcribed entry follows the current
// mapping, and decisions and votes pass through. The result never shares
// backing arrays with prev.
func Reconstruct(t Transcript, mapping map[string]string, participants Participants, prev *Document) Document {
	doc := Document{
		Attendance: attendance(mapping, participants),
		Decisions:  []string{},
		Votes:      []Vote{},
		basis:      t.fingerprint,
	}

	fresh := make([]DiscussionEntry, t.Len())
	for i, u := range t.utterances {
		fresh[i] = DiscussionEntry{
			Speaker:   speakerFor(mapping, u.SpeakerLabel),
			Text:      u.Text,
			Timestamp: u.Start,
			source:    &origin{index: i, text: u.Text},
		}
	}

	if prev == nil {
		doc.Discussions = fresh
		return doc
	}

	doc.Decisions = append(doc.Decisions, prev.Decisions...)
	doc.Votes = append(doc.Votes, prev.Votes...)
	if prev.basis != "" && prev.basis == t.fingerprint {
		doc.Discussions = reconcileTracked(fresh, prev.Discussions)
	} else {
		doc.Discussions = reconcileByPosition(t, fresh, prev.Discussions)
	}
	return doc
}

// reconcileTracked replays the previous structure over fresh entries.
// Entries with no source are the user's and are kept as they are.
func reconcileTracked(fresh, prev []DiscussionEntry) []DiscussionEntry {
	out := make([]DiscussionEntry, 0, len(prev))
	for _, e := range prev {
		if e.source == nil || e.source.index >= len(fresh) {
			out = append(out, e)
			continue
		}
		next := fresh[e.source.index]
		if e.Text != e.source.text {
			next.Text = e.Text
		}
		out = append(out, next)
	}
	return out
}

func reconcileByPosition(t Transcript, fresh, prev []DiscussionEntry) []DiscussionEntry {
	out := make([]DiscussionEntry, len(fresh), max(len(fresh), len(prev)))
	copy(out, fresh)

	for i, e := range prev {
		if i >= len(fresh) {
			out = append(out, e)
			continue
		}
		raw := t.utterances[i].Text
		if e.source != nil && (e.source.index != i || e.source.text != raw) {
			continue
		}
		if e.inserted {
			continue
		}
		if e.Text != raw {
			out[i].Text = e.Text
		}
	}
	return out
}

func speakerFor(mapping map[string]string, label string) string {
	if name := strings.TrimSpace(mapping[label]); name != "" {
		return name
	}
	return label
}

func attendance(mapping map[string]string, participants Participants) []string {
	set := make(map[string]struct{}, len(mapping)+len(participants))
	for _, name := range mapping {
		if name = strings.TrimSpace(name); name != "" {
			set[name] = struct{}{}
		}
	}
	for _, name := range participants {
		if name = strings.TrimSpace(name); name != "" {
			set[name] = struct{}{}
		}
	}

	names := make([]string, 0, len(set))
	for name := range set {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
