package minutes

import (
	"bytes"
	"fmt"

	"pvcse/b3"
)

type (
	// Utterance is one diarized speaker turn. Offsets are milliseconds.
	Utterance struct {
		SpeakerLabel string
		Text         string
		Start        int64
		End          int64
	}

	// Transcript is read-only once built. Two transcripts with the same
	// utterances share a fingerprint.
	Transcript struct {
		utterances  []Utterance
		err         string
		fingerprint string
	}
)

func NewTranscript(utterances []Utterance) Transcript {
	u := make([]Utterance, len(utterances))
	copy(u, utterances)

	var b bytes.Buffer
	for _, x := range u {
		fmt.Fprintf(&b, "%q %q %d %d\n", x.SpeakerLabel, x.Text, x.Start, x.End)
	}
	return Transcript{utterances: u, fingerprint: b3.Sum(b.Bytes())}
}

// FailedTranscript carries the provider's error indicator and no utterances.
func FailedTranscript(msg string) Transcript {
	return Transcript{err: msg}
}

func (t Transcript) Len() int {
	return len(t.utterances)
}

func (t Transcript) At(i int) Utterance {
	return t.utterances[i]
}

func (t Transcript) Utterances() []Utterance {
	u := make([]Utterance, len(t.utterances))
	copy(u, t.utterances)
	return u
}

// Fingerprint identifies the utterance content. It is empty for a zero or
// failed transcript.
func (t Transcript) Fingerprint() string {
	return t.fingerprint
}

func (t Transcript) Err() string {
	return t.err
}

// Labels returns the distinct speaker labels in order of first appearance.
func (t Transcript) Labels() []string {
	seen := make(map[string]struct{})
	var labels []string
	for _, u := range t.utterances {
		if _, ok := seen[u.SpeakerLabel]; ok {
			continue
		}
		seen[u.SpeakerLabel] = struct{}{}
		labels = append(labels, u.SpeakerLabel)
	}
	return labels
}
