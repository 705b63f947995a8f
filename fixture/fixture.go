package fixture

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"pvcse/meetings"
	"pvcse/minutes"
)

type (
	file struct {
		Utterances []utterance `json:"utterances"`
	}

	utterance struct {
		Speaker string `json:"speaker"`
		Text    string `json:"text"`
		Start   int64  `json:"start"`
		End     int64  `json:"end"`
	}
)

// Load reads a recorded transcript. found is false when path does not exist.
func Load(path string) (t minutes.Transcript, found bool, err error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return minutes.Transcript{}, false, nil
	}
	if err != nil {
		return minutes.Transcript{}, false, fmt.Errorf("reading fixture: %w", err)
	}

	var f file
	if err := json.Unmarshal(data, &f); err != nil {
		return minutes.Transcript{}, true, fmt.Errorf("decoding fixture %s: %w", path, err)
	}

	us := make([]minutes.Utterance, len(f.Utterances))
	for n, u := range f.Utterances {
		us[n] = minutes.Utterance{SpeakerLabel: u.Speaker, Text: u.Text, Start: u.Start, End: u.End}
	}
	return minutes.NewTranscript(us), true, nil
}

// Save writes t atomically so a crash never leaves a truncated fixture.
func Save(path string, t minutes.Transcript) error {
	f := file{Utterances: make([]utterance, t.Len())}
	for n, u := range t.Utterances() {
		f.Utterances[n] = utterance{Speaker: u.SpeakerLabel, Text: u.Text, Start: u.Start, End: u.End}
	}

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(f); err != nil {
		return fmt.Errorf("encoding fixture: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("creating fixture dir: %w", err)
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, buf.Bytes(), 0o644); err != nil {
		return fmt.Errorf("writing fixture: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("writing fixture: %w", err)
	}
	return nil
}

// Replay serves the recorded transcript instead of calling a provider.
type Replay struct {
	Path string
}

var _ meetings.Transcriber = Replay{}

func (r Replay) Name() string {
	return "mock"
}

func (r Replay) Transcribe(ctx context.Context, audioPath string) (minutes.Transcript, error) {
	t, found, err := Load(r.Path)
	if err != nil {
		return minutes.Transcript{}, fmt.Errorf("%w: %v", minutes.ErrAcquisition, err)
	}
	if !found {
		return minutes.Transcript{}, fmt.Errorf("%w: fixture %s not found, run a live transcription first to record one", minutes.ErrAcquisition, r.Path)
	}
	return t, nil
}

// Recorder keeps the fixture in step with the latest session, so Replay
// and the export command always see the last transcribed meeting.
type Recorder struct {
	Path string
}

var _ meetings.Recorder = Recorder{}

func (r Recorder) Record(t minutes.Transcript) error {
	return Save(r.Path, t)
}
