package whisperx

import (
	"strings"
	"testing"
)

func TestDecodeResult(t *testing.T) {
	in := `{"segments":[
		{"start":0.031,"end":2.5,"text":" Bonjour à tous.","speaker":"SPEAKER_00"},
		{"start":2.75,"end":4.0,"text":" On commence ?"},
		{"start":4.1234,"end":6,"text":"Oui.","speaker":"SPEAKER_01"}
	],"language":"fr"}`

	tr, err := decodeResult(strings.NewReader(in))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if tr.Len() != 3 {
		t.Fatalf("expected 3 utterances, got %d", tr.Len())
	}
	if u := tr.At(0); u.SpeakerLabel != "SPEAKER_00" || u.Text != "Bonjour à tous." || u.Start != 31 || u.End != 2500 {
		t.Fatalf("unexpected first utterance %+v", u)
	}
	if u := tr.At(1); u.SpeakerLabel != UnknownSpeaker {
		t.Fatalf("expected unknown speaker, got %q", u.SpeakerLabel)
	}
	if u := tr.At(2); u.Start != 4123 || u.End != 6000 {
		t.Fatalf("unexpected offsets %+v", u)
	}
}

func TestDecodeResultInvalid(t *testing.T) {
	if _, err := decodeResult(strings.NewReader("[")); err == nil {
		t.Fatalf("expected error")
	}
}

func TestArgs(t *testing.T) {
	w := WhisperxTranscriber{Model: "large-v2", Device: "auto", Language: "fr", HFToken: "hf_x"}
	got := strings.Join(w.args("/tmp/a.mp3", "/tmp/out"), " ")
	want := "/tmp/a.mp3 --diarize --output_format json --output_dir /tmp/out --model large-v2 --language fr --hf_token hf_x"
	if got != want {
		t.Fatalf("got %q, want %q", got, want)
	}
}
