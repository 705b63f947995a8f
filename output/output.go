package output

import (
	"fmt"
	"io"
	"strings"
	"time"
)

const (
	markDone = "✔"
	markFail = "✘"
	markNote = "›"
)

// Formatter prints the CLI's progress lines. Each line starts with a mark
// so a failed run stands out in a scrolled terminal.
type Formatter struct {
	w io.Writer
}

func NewFormatter(w io.Writer) *Formatter {
	return &Formatter{w: w}
}

func (f *Formatter) line(mark, format string, args ...any) {
	fmt.Fprintf(f.w, mark+" "+format+"\n", args...)
}

func (f *Formatter) Transcribing(path, provider string) {
	f.line(markNote, "transcribing %s (%s)", path, provider)
}

func (f *Formatter) TranscribeDone(utterances int, took time.Duration, source string) {
	f.line(markDone, "%d utterances from %s in %s", utterances, source, took.Round(time.Second))
}

// Speakers lists the diarization labels still waiting for a name.
func (f *Formatter) Speakers(labels []string) {
	if len(labels) == 0 {
		f.line(markNote, "no speaker detected")
		return
	}
	f.line(markNote, "speakers to name: %s (export --speaker LABEL=Name)", strings.Join(labels, ", "))
}

func (f *Formatter) FixtureWritten(path string) {
	f.line(markNote, "session saved to %s", path)
}

func (f *Formatter) Exported(path string) {
	f.line(markDone, "minutes written to %s", path)
}

func (f *Formatter) Listening(addr string) {
	f.line(markNote, "minutes API on %s", addr)
}

func (f *Formatter) Fail(err error) {
	f.line(markFail, "%v", err)
}

// Check reports one doctor prerequisite. A nil problem means it is met.
func (f *Formatter) Check(name string, problem error, detail string) bool {
	if problem != nil {
		f.line(markFail, "%s: %v", name, problem)
		return false
	}
	f.line(markDone, "%s: %s", name, detail)
	return true
}

func (f *Formatter) CheckSummary(failed int) {
	if failed == 0 {
		f.line(markDone, "ready to transcribe")
		return
	}
	f.line(markFail, "%d prerequisite(s) missing", failed)
}
