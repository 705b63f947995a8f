package minutes

import (
	"bytes"
	"encoding/json"
	"testing"
)

func TestReconstructIdempotent(t *testing.T) {
	tr := twoSpeakers()
	m := map[string]string{"A": "Alice", "B": "Bob"}
	p := Participants{"Carol", "Bob"}

	a, err := json.Marshal(Reconstruct(tr, m, p, nil))
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	b, err := json.Marshal(Reconstruct(tr, m, p, nil))
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if !bytes.Equal(a, b) {
		t.Fatalf("reconstruction not deterministic:\n%s\n%s", a, b)
	}
}

func TestReconstructPreservesEdits(t *testing.T) {
	tr := twoSpeakers()
	doc := Reconstruct(tr, map[string]string{}, nil, nil)

	ds, err := SetField(doc.Discussions, 0, FieldText, "Ouverture de la séance à 9h.")
	if err != nil {
		t.Fatalf("set field: %v", err)
	}
	doc.Discussions = ds

	next := Reconstruct(tr, map[string]string{"A": "Alice", "B": "Bob"}, nil, &doc)
	if len(next.Discussions) != 2 {
		t.Fatalf("expected 2 discussions, got %d", len(next.Discussions))
	}
	if next.Discussions[0].Text != "Ouverture de la séance à 9h." {
		t.Fatalf("edit lost: %q", next.Discussions[0].Text)
	}
	if next.Discussions[0].Speaker != "Alice" {
		t.Fatalf("speaker not retargeted: %q", next.Discussions[0].Speaker)
	}
	if next.Discussions[1].Speaker != "Bob" || next.Discussions[1].Text != "Point sur les congés." || next.Discussions[1].Timestamp != 4200 {
		t.Fatalf("second entry not recomputed: %+v", next.Discussions[1])
	}
}

func TestReconstructRepeatedRenamesKeepEdit(t *testing.T) {
	tr := twoSpeakers()
	doc := Reconstruct(tr, map[string]string{}, nil, nil)
	doc.Discussions, _ = SetField(doc.Discussions, 1, FieldText, "Congés reportés.")

	for _, name := range []string{"B", "Be", "Bob", "Bob"} {
		doc = Reconstruct(tr, map[string]string{"B": name}, nil, &doc)
	}
	if doc.Discussions[1].Text != "Congés reportés." || doc.Discussions[1].Speaker != "Bob" {
		t.Fatalf("unexpected entry after renames: %+v", doc.Discussions[1])
	}
}

func TestReconstructAttendance(t *testing.T) {
	doc := Reconstruct(twoSpeakers(), map[string]string{"A": "Alice", "B": "Bob"}, Participants{"Bob", "Carol"}, nil)
	want := []string{"Alice", "Bob", "Carol"}
	if len(doc.Attendance) != len(want) {
		t.Fatalf("attendance: got %v, want %v", doc.Attendance, want)
	}
	for i := range want {
		if doc.Attendance[i] != want[i] {
			t.Fatalf("attendance: got %v, want %v", doc.Attendance, want)
		}
	}
}

func TestReconstructFallbackLabel(t *testing.T) {
	m := InitializeMapping(twoSpeakers())
	m, _, _ = SetName(m, "B", "Bob")

	doc := Reconstruct(twoSpeakers(), m.Effective(), nil, nil)
	if doc.Discussions[0].Speaker != "A" {
		t.Fatalf("expected raw label A, got %q", doc.Discussions[0].Speaker)
	}
	if len(doc.Attendance) != 1 || doc.Attendance[0] != "Bob" {
		t.Fatalf("unexpected attendance %v", doc.Attendance)
	}
}

func TestReconstructEmptyTranscript(t *testing.T) {
	doc := Reconstruct(NewTranscript(nil), map[string]string{}, nil, nil)
	b, err := json.Marshal(doc)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	want := `{"présences":[],"discussions":[],"décisions":[],"votes":[]}`
	if string(b) != want {
		t.Fatalf("got %s, want %s", b, want)
	}
}

func TestReconstructKeepsOrderAndNegativeOffsets(t *testing.T) {
	tr := NewTranscript([]Utterance{
		{SpeakerLabel: "A", Text: "deux", Start: 500},
		{SpeakerLabel: "A", Text: "un", Start: -20},
	})
	doc := Reconstruct(tr, nil, nil, nil)
	if doc.Discussions[0].Text != "deux" || doc.Discussions[1].Timestamp != -20 {
		t.Fatalf("order or offsets changed: %+v", doc.Discussions)
	}
}

func TestReconstructKeepsManualStructure(t *testing.T) {
	tr := NewTranscript([]Utterance{
		{SpeakerLabel: "A", Text: "un", Start: 1},
		{SpeakerLabel: "B", Text: "deux", Start: 2},
		{SpeakerLabel: "A", Text: "trois", Start: 3},
	})
	doc := Reconstruct(tr, nil, nil, nil)

	doc.Discussions, _ = InsertAt(doc.Discussions, After(0))
	doc.Discussions, _ = SetField(doc.Discussions, 1, FieldSpeaker, "Secrétaire")
	doc.Discussions, _ = SetField(doc.Discussions, 1, FieldText, "Suspension de séance.")
	doc.Discussions, _ = RemoveAt(doc.Discussions, 2)
	doc.Discussions, _ = SetField(doc.Discussions, 2, FieldText, "trois, corrigé")

	next := Reconstruct(tr, map[string]string{"A": "Alice"}, nil, &doc)
	if len(next.Discussions) != 3 {
		t.Fatalf("expected 3 entries, got %+v", next.Discussions)
	}
	if e := next.Discussions[0]; e.Speaker != "Alice" || e.Text != "un" {
		t.Fatalf("entry 0: %+v", e)
	}
	if e := next.Discussions[1]; e.Speaker != "Secrétaire" || e.Text != "Suspension de séance." || e.Transcribed() {
		t.Fatalf("manual entry touched: %+v", e)
	}
	if e := next.Discussions[2]; e.Speaker != "Alice" || e.Text != "trois, corrigé" || e.Timestamp != 3 {
		t.Fatalf("entry 2: %+v", e)
	}
}

func TestReconstructForeignPreviousIgnored(t *testing.T) {
	other := NewTranscript([]Utterance{{SpeakerLabel: "A", Text: "autre réunion"}})
	prev := Reconstruct(other, nil, nil, nil)
	prev.Decisions = []string{"Budget adopté"}

	doc := Reconstruct(twoSpeakers(), nil, nil, &prev)
	if len(doc.Discussions) != 2 || doc.Discussions[0].Text != "Ouverture de la séance." {
		t.Fatalf("expected fresh discussions, got %+v", doc.Discussions)
	}
	if len(doc.Decisions) != 1 || doc.Decisions[0] != "Budget adopté" {
		t.Fatalf("decisions not carried: %v", doc.Decisions)
	}
}

func TestReconstructDoesNotAliasPrevious(t *testing.T) {
	tr := twoSpeakers()
	prev := Reconstruct(tr, nil, nil, nil)
	next := Reconstruct(tr, map[string]string{"A": "Alice"}, nil, &prev)

	next.Discussions[1].Text = "modifié"
	if prev.Discussions[1].Text != "Point sur les congés." {
		t.Fatalf("previous document mutated")
	}
	if prev.Discussions[0].Speaker != "A" {
		t.Fatalf("previous speaker mutated: %q", prev.Discussions[0].Speaker)
	}
}

func TestReconstructFromHandBuiltPrevious(t *testing.T) {
	tr := NewTranscript([]Utterance{
		{SpeakerLabel: "A", Text: "un", Start: 1},
		{SpeakerLabel: "B", Text: "deux", Start: 2},
	})
	prev := Document{Discussions: []DiscussionEntry{
		{Speaker: "A", Text: "un, corrigé"},
		{Speaker: "B", Text: "deux"},
		{Speaker: "Secrétaire", Text: "Clôture."},
	}}

	doc := Reconstruct(tr, map[string]string{"A": "Alice", "B": "Bob"}, nil, &prev)
	ds := doc.Discussions
	if len(ds) != 3 {
		t.Fatalf("expected 3 entries, got %+v", ds)
	}
	if ds[0].Speaker != "Alice" || ds[0].Text != "un, corrigé" || ds[0].Timestamp != 1 {
		t.Fatalf("entry 0: %+v", ds[0])
	}
	if ds[1].Speaker != "Bob" || ds[1].Text != "deux" {
		t.Fatalf("entry 1: %+v", ds[1])
	}
	if ds[2].Speaker != "Secrétaire" || ds[2].Text != "Clôture." {
		t.Fatalf("entry past the transcript not kept: %+v", ds[2])
	}
}

func TestReconstructFromDecodedDocument(t *testing.T) {
	tr := twoSpeakers()
	doc := Reconstruct(tr, map[string]string{"A": "Alice"}, Participants{"Carol"}, nil)
	doc.Discussions, _ = SetField(doc.Discussions, 1, FieldText, "Congés reportés.")
	doc.Decisions = []string{"Budget adopté"}
	doc.Votes = []Vote{{Subject: "Budget", For: 5}}

	data, err := json.Marshal(doc)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var decoded Document
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if len(decoded.Attendance) != 2 || len(decoded.Decisions) != 1 || decoded.Votes[0].For != 5 {
		t.Fatalf("decoded document lost sections: %+v", decoded)
	}

	next := Reconstruct(tr, map[string]string{"A": "Alice", "B": "Bob"}, Participants{"Carol"}, &decoded)
	if e := next.Discussions[1]; e.Speaker != "Bob" || e.Text != "Congés reportés." {
		t.Fatalf("entry 1: %+v", e)
	}
	if e := next.Discussions[0]; e.Speaker != "Alice" || e.Text != "Ouverture de la séance." {
		t.Fatalf("entry 0: %+v", e)
	}
	if len(next.Decisions) != 1 || next.Decisions[0] != "Budget adopté" {
		t.Fatalf("decisions not carried: %v", next.Decisions)
	}
}

func TestDocumentUnmarshalEmptySections(t *testing.T) {
	var doc Document
	if err := json.Unmarshal([]byte(`{"discussions":[{"speaker":"A","text":"x","timestamp":3}]}`), &doc); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	b, _ := json.Marshal(doc)
	want := `{"présences":[],"discussions":[{"speaker":"A","text":"x","timestamp":3}],"décisions":[],"votes":[]}`
	if string(b) != want {
		t.Fatalf("got %s, want %s", b, want)
	}
}

func TestReconstructAttendanceTrimsNames(t *testing.T) {
	doc := Reconstruct(twoSpeakers(), map[string]string{"A": "Alice "}, Participants{"Alice"}, nil)
	if len(doc.Attendance) != 1 || doc.Attendance[0] != "Alice" {
		t.Fatalf("unexpected attendance %q", doc.Attendance)
	}
	if doc.Discussions[0].Speaker != "Alice" {
		t.Fatalf("unexpected speaker %q", doc.Discussions[0].Speaker)
	}
}
