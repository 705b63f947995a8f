package meetings

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"pvcse/minutes"
	"pvcse/render"
)

type (
	fakeTranscriber struct {
		t     minutes.Transcript
		err   error
		calls int
		seen  []string
	}

	fakeRepo struct {
		cached map[string]minutes.Transcript
		saves  int
	}

	fakeRecorder struct {
		recorded []minutes.Transcript
	}
)

func (f *fakeRecorder) Record(t minutes.Transcript) error {
	f.recorded = append(f.recorded, t)
	return nil
}

func (f *fakeTranscriber) Name() string { return "fake" }

func (f *fakeTranscriber) Transcribe(ctx context.Context, audioPath string) (minutes.Transcript, error) {
	f.calls++
	f.seen = append(f.seen, audioPath)
	if _, err := os.Stat(audioPath); err != nil {
		return minutes.Transcript{}, err
	}
	return f.t, f.err
}

func (f *fakeRepo) GetTranscriptByHash(ctx context.Context, hash, provider string) (minutes.Transcript, bool, error) {
	t, ok := f.cached[provider+"/"+hash]
	return t, ok, nil
}

func (f *fakeRepo) SaveTranscript(ctx context.Context, hash, provider string, t minutes.Transcript) error {
	f.saves++
	f.cached[provider+"/"+hash] = t
	return nil
}

func sampleTranscript() minutes.Transcript {
	return minutes.NewTranscript([]minutes.Utterance{
		{SpeakerLabel: "A", Text: "Ouverture de la séance.", Start: 0},
		{SpeakerLabel: "B", Text: "Point sur les congés.", Start: 4200},
	})
}

func writeAudio(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "upload.mp3")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write audio: %v", err)
	}
	return path
}

func newTestService(tr *fakeTranscriber) (*Service, *fakeRepo) {
	r := &fakeRepo{cached: map[string]minutes.Transcript{}}
	return NewService(r, tr, ""), r
}

func TestServiceTranscribeRemovesArtifact(t *testing.T) {
	tr := &fakeTranscriber{t: sampleTranscript()}
	svc, repo := newTestService(tr)
	m := svc.Create()

	audio := writeAudio(t, "audio-1")
	got, err := svc.Transcribe(context.Background(), m.ID, audio)
	if err != nil {
		t.Fatalf("transcribe: %v", err)
	}
	if _, err := os.Stat(audio); !os.IsNotExist(err) {
		t.Fatalf("audio artifact not removed")
	}
	if !got.HasTranscript || got.Source != "fake" || len(got.Session.Document.Discussions) != 2 {
		t.Fatalf("unexpected meeting %+v", got)
	}
	if repo.saves != 1 {
		t.Fatalf("expected transcript cached, saves=%d", repo.saves)
	}
	if sp := got.Speakers(); len(sp) != 2 || sp[0].Label != "A" || sp[0].Name != "" {
		t.Fatalf("unexpected speakers %+v", sp)
	}
}

func TestServiceTranscribeFailureKeepsSession(t *testing.T) {
	tr := &fakeTranscriber{t: sampleTranscript()}
	svc, _ := newTestService(tr)
	m := svc.Create()
	if _, err := svc.Transcribe(context.Background(), m.ID, writeAudio(t, "first")); err != nil {
		t.Fatalf("transcribe: %v", err)
	}
	if _, _, err := svc.RenameSpeaker(m.ID, "A", "Alice"); err != nil {
		t.Fatalf("rename: %v", err)
	}

	tr.err = errors.New("provider unreachable")
	audio := writeAudio(t, "second")
	_, err := svc.Transcribe(context.Background(), m.ID, audio)
	if err == nil {
		t.Fatalf("expected error")
	}
	if _, statErr := os.Stat(audio); !os.IsNotExist(statErr) {
		t.Fatalf("audio artifact not removed after failure")
	}

	got, _ := svc.Get(m.ID)
	if got.Session.Document.Discussions[0].Speaker != "Alice" {
		t.Fatalf("session lost after failed transcription: %+v", got.Session.Document.Discussions[0])
	}
}

func TestServiceTranscribeErrorIndicator(t *testing.T) {
	tr := &fakeTranscriber{t: minutes.FailedTranscript("language not supported")}
	svc, repo := newTestService(tr)
	m := svc.Create()

	_, err := svc.Transcribe(context.Background(), m.ID, writeAudio(t, "x"))
	if !errors.Is(err, minutes.ErrAcquisition) {
		t.Fatalf("expected ErrAcquisition, got %v", err)
	}
	if repo.saves != 0 {
		t.Fatalf("failed transcript was cached")
	}
}

func TestServiceTranscribeUsesCache(t *testing.T) {
	tr := &fakeTranscriber{t: sampleTranscript()}
	svc, _ := newTestService(tr)
	m := svc.Create()

	for i := 0; i < 2; i++ {
		got, err := svc.Transcribe(context.Background(), m.ID, writeAudio(t, "same audio"))
		if err != nil {
			t.Fatalf("transcribe %d: %v", i, err)
		}
		if i == 1 && got.Source != "cache" {
			t.Fatalf("expected cache source, got %q", got.Source)
		}
	}
	if tr.calls != 1 {
		t.Fatalf("expected one provider call, got %d", tr.calls)
	}
}

func TestServiceUnknownMeeting(t *testing.T) {
	svc, _ := newTestService(&fakeTranscriber{})
	audio := writeAudio(t, "x")

	if _, err := svc.Transcribe(context.Background(), "nope", audio); !errors.Is(err, ErrMeetingNotFound) {
		t.Fatalf("expected ErrMeetingNotFound, got %v", err)
	}
	if _, err := os.Stat(audio); !os.IsNotExist(err) {
		t.Fatalf("audio artifact not removed for unknown meeting")
	}
	if _, err := svc.Get("nope"); !errors.Is(err, ErrMeetingNotFound) {
		t.Fatalf("expected ErrMeetingNotFound, got %v", err)
	}
}

func TestServiceRequiresTranscript(t *testing.T) {
	svc, _ := newTestService(&fakeTranscriber{})
	m := svc.Create()

	if _, err := svc.InsertDiscussion(m.ID, minutes.End); !errors.Is(err, ErrNoTranscript) {
		t.Fatalf("expected ErrNoTranscript, got %v", err)
	}
	if _, err := svc.Export(m.ID, render.JSON, &bytes.Buffer{}); !errors.Is(err, ErrNoTranscript) {
		t.Fatalf("expected ErrNoTranscript, got %v", err)
	}
}

func TestServiceEditingFlow(t *testing.T) {
	svc, _ := newTestService(&fakeTranscriber{t: sampleTranscript()})
	m := svc.Create()
	if _, err := svc.Transcribe(context.Background(), m.ID, writeAudio(t, "flow")); err != nil {
		t.Fatalf("transcribe: %v", err)
	}

	if _, err := svc.SetDiscussionField(m.ID, 0, minutes.FieldText, "Séance ouverte à 9h."); err != nil {
		t.Fatalf("set field: %v", err)
	}
	if _, err := svc.InsertDiscussion(m.ID, minutes.Start); err != nil {
		t.Fatalf("insert: %v", err)
	}
	if _, changed, err := svc.AddParticipant(m.ID, "Carol"); err != nil || !changed {
		t.Fatalf("add participant: changed=%v err=%v", changed, err)
	}
	got, changed, err := svc.RenameSpeaker(m.ID, "A", "Alice")
	if err != nil || !changed {
		t.Fatalf("rename: changed=%v err=%v", changed, err)
	}

	ds := got.Session.Document.Discussions
	if len(ds) != 3 {
		t.Fatalf("expected 3 entries, got %d", len(ds))
	}
	if ds[0].Transcribed() || ds[0].Text != "" {
		t.Fatalf("inserted entry changed: %+v", ds[0])
	}
	if ds[1].Speaker != "Alice" || ds[1].Text != "Séance ouverte à 9h." {
		t.Fatalf("edit not preserved: %+v", ds[1])
	}
	if att := got.Session.Document.Attendance; len(att) != 2 || att[0] != "Alice" || att[1] != "Carol" {
		t.Fatalf("unexpected attendance %v", att)
	}

	if _, err := svc.RemoveDiscussion(m.ID, 10); !errors.Is(err, minutes.ErrIndexOutOfRange) {
		t.Fatalf("expected ErrIndexOutOfRange, got %v", err)
	}
	after, _ := svc.Get(m.ID)
	if len(after.Session.Document.Discussions) != 3 {
		t.Fatalf("document changed by failed remove")
	}

	if _, err := svc.Export(m.ID, render.Word, &bytes.Buffer{}); !errors.Is(err, minutes.ErrUnsupportedFormat) {
		t.Fatalf("expected ErrUnsupportedFormat, got %v", err)
	}
	var buf bytes.Buffer
	rd, err := svc.Export(m.ID, render.Markdown, &buf)
	if err != nil {
		t.Fatalf("export: %v", err)
	}
	if rd.FileName() != "pv_cse.md" || !bytes.Contains(buf.Bytes(), []byte("Séance ouverte à 9h.")) {
		t.Fatalf("unexpected export %s:\n%s", rd.FileName(), buf.String())
	}
}

func TestServiceRecordsEverySession(t *testing.T) {
	one := minutes.NewTranscript([]minutes.Utterance{{SpeakerLabel: "A", Text: "réunion un"}})
	two := minutes.NewTranscript([]minutes.Utterance{{SpeakerLabel: "A", Text: "réunion deux"}})
	tr := &fakeTranscriber{}
	svc, _ := newTestService(tr)
	rec := &fakeRecorder{}
	svc.RecordTo(rec)

	for _, step := range []struct {
		audio string
		t     minutes.Transcript
	}{{"audio un", one}, {"audio deux", two}, {"audio un", two}} {
		tr.t = step.t
		m := svc.Create()
		if _, err := svc.Transcribe(context.Background(), m.ID, writeAudio(t, step.audio)); err != nil {
			t.Fatalf("transcribe %q: %v", step.audio, err)
		}
	}

	if tr.calls != 2 {
		t.Fatalf("expected the third transcription from cache, provider calls=%d", tr.calls)
	}
	if len(rec.recorded) != 3 {
		t.Fatalf("expected 3 recorded transcripts, got %d", len(rec.recorded))
	}
	if got := rec.recorded[2].At(0).Text; got != "réunion un" {
		t.Fatalf("cache hit not recorded, last recorded %q", got)
	}
}

func TestServiceDoesNotRecordFailures(t *testing.T) {
	svc, _ := newTestService(&fakeTranscriber{err: errors.New("provider unreachable")})
	rec := &fakeRecorder{}
	svc.RecordTo(rec)

	m := svc.Create()
	if _, err := svc.Transcribe(context.Background(), m.ID, writeAudio(t, "x")); err == nil {
		t.Fatalf("expected error")
	}
	if len(rec.recorded) != 0 {
		t.Fatalf("failed acquisition recorded")
	}
}
