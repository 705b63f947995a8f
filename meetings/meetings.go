package meetings

import (
	"errors"
	"time"

	"pvcse/minutes"
)

var (
	ErrMeetingNotFound = errors.New("meeting not found")
	ErrNoTranscript    = errors.New("meeting has no transcript yet")
)

type (
	// Meeting is a snapshot of one editing session. Session is a value, so a
	// snapshot never changes after it is returned.
	Meeting struct {
		ID            string
		CreatedAt     time.Time
		Source        string
		HasTranscript bool
		Session       minutes.Session
	}

	// Speaker pairs a diarization label with the name entered for it.
	Speaker struct {
		Label string `json:"label"`
		Name  string `json:"name"`
	}
)

func (m Meeting) Speakers() []Speaker {
	labels := m.Session.Mapping.Labels()
	speakers := make([]Speaker, len(labels))
	for n, l := range labels {
		name, _ := m.Session.Mapping.Name(l)
		speakers[n] = Speaker{Label: l, Name: name}
	}
	return speakers
}
