package minutes

import (
	"fmt"
	"strings"
)

type (
	// Mapping assigns display names to speaker labels. The label set is
	// fixed by the transcript it was initialized from; an empty name means
	// the speaker is not identified yet.
	Mapping struct {
		labels []string
		names  map[string]string
	}

	// Participants are attendees entered by hand, usually people who never spoke.
	Participants []string
)

// InitializeMapping must be called once per new transcript. Calling it again
// would discard every name already entered.
func InitializeMapping(t Transcript) Mapping {
	labels := t.Labels()
	names := make(map[string]string, len(labels))
	for _, l := range labels {
		names[l] = ""
	}
	return Mapping{labels: labels, names: names}
}

func (m Mapping) Labels() []string {
	l := make([]string, len(m.labels))
	copy(l, m.labels)
	return l
}

func (m Mapping) Name(label string) (string, bool) {
	n, ok := m.names[label]
	return n, ok
}

// SetName returns a copy of m with label renamed. The name is trimmed and
// changed reports whether the stored name differed from it.
func SetName(m Mapping, label, name string) (Mapping, bool, error) {
	name = strings.TrimSpace(name)
	cur, ok := m.names[label]
	if !ok {
		return m, false, fmt.Errorf("set name for %q: %w", label, ErrMappingKeyUnknown)
	}
	if cur == name {
		return m, false, nil
	}

	names := make(map[string]string, len(m.names))
	for k, v := range m.names {
		names[k] = v
	}
	names[label] = name
	return Mapping{labels: m.labels, names: names}, true, nil
}

// Effective drops unidentified speakers so they fall back to their raw label.
func (m Mapping) Effective() map[string]string {
	eff := make(map[string]string, len(m.names))
	for k, v := range m.names {
		if v == "" {
			continue
		}
		eff[k] = v
	}
	return eff
}

// AddParticipant appends name unless it is blank or already listed.
func AddParticipant(list Participants, name string) (Participants, bool) {
	name = strings.TrimSpace(name)
	if name == "" {
		return list, false
	}
	for _, p := range list {
		if p == name {
			return list, false
		}
	}

	out := make(Participants, len(list), len(list)+1)
	copy(out, list)
	return append(out, name), true
}

func RemoveParticipant(list Participants, index int) (Participants, error) {
	if index < 0 || index >= len(list) {
		return list, fmt.Errorf("remove participant %d of %d: %w", index, len(list), ErrIndexOutOfRange)
	}

	out := make(Participants, 0, len(list)-1)
	out = append(out, list[:index]...)
	return append(out, list[index+1:]...), nil
}
