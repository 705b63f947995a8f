package whisperx

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"sync"

	"github.com/shopspring/decimal"

	"pvcse/meetings"
	"pvcse/minutes"
)

type (
	transcribeResult struct {
		Segments []segment `json:"segments"`
	}

	segment struct {
		Text    string          `json:"text"`
		Start   decimal.Decimal `json:"start"`
		End     decimal.Decimal `json:"end"`
		Speaker string          `json:"speaker"`
	}
)

// UnknownSpeaker labels segments the diarization pass could not attribute.
const UnknownSpeaker = "UNKNOWN"

var thousand = decimal.NewFromInt(1000)

// WhisperxTranscriber runs the whisperx CLI locally with diarization enabled.
type WhisperxTranscriber struct {
	Binary   string
	Model    string
	Device   string
	Language string
	HFToken  string
}

var _ meetings.Transcriber = WhisperxTranscriber{}

func (w WhisperxTranscriber) Name() string {
	return "whisperx"
}

func (w WhisperxTranscriber) Transcribe(ctx context.Context, filePath string) (minutes.Transcript, error) {
	outDir, err := os.MkdirTemp("", "whisperx-*")
	if err != nil {
		return minutes.Transcript{}, fmt.Errorf("transcribing with whisperx: %w", err)
	}
	defer os.RemoveAll(outDir)

	cmd := exec.CommandContext(ctx, w.binary(), w.args(filePath, outDir)...)
	stderr, err := cmd.StderrPipe()
	if err != nil {
		return minutes.Transcript{}, fmt.Errorf("transcribing with whisperx: %w", err)
	}
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return minutes.Transcript{}, fmt.Errorf("transcribing with whisperx: %w", err)
	}
	if err := cmd.Start(); err != nil {
		return minutes.Transcript{}, fmt.Errorf("%w: starting whisperx: %v", minutes.ErrAcquisition, err)
	}

	var wg sync.WaitGroup
	wg.Add(2)
	go logLines(&wg, stderr)
	go logLines(&wg, stdout)
	wg.Wait()

	if err := cmd.Wait(); err != nil {
		return minutes.Transcript{}, fmt.Errorf("%w: whisperx: %v", minutes.ErrAcquisition, err)
	}

	base := strings.TrimSuffix(filepath.Base(filePath), filepath.Ext(filePath))
	resultFile, err := os.Open(filepath.Join(outDir, base+".json"))
	if err != nil {
		return minutes.Transcript{}, fmt.Errorf("%w: opening whisperx result: %v", minutes.ErrAcquisition, err)
	}
	defer resultFile.Close()

	t, err := decodeResult(resultFile)
	if err != nil {
		return minutes.Transcript{}, fmt.Errorf("%w: %v", minutes.ErrAcquisition, err)
	}
	return t, nil
}

func (w WhisperxTranscriber) binary() string {
	if w.Binary != "" {
		return w.Binary
	}
	return "whisperx"
}

func (w WhisperxTranscriber) args(filePath, outDir string) []string {
	args := []string{filePath, "--diarize", "--output_format", "json", "--output_dir", outDir}
	if w.Model != "" {
		args = append(args, "--model", w.Model)
	}
	if w.Device != "" && w.Device != "auto" {
		args = append(args, "--device", w.Device)
	}
	if w.Language != "" {
		args = append(args, "--language", w.Language)
	}
	if w.HFToken != "" {
		args = append(args, "--hf_token", w.HFToken)
	}
	return args
}

func logLines(wg *sync.WaitGroup, r io.Reader) {
	defer wg.Done()
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		log.Println(scanner.Text())
	}
}

func decodeResult(r io.Reader) (minutes.Transcript, error) {
	var tr transcribeResult
	if err := json.NewDecoder(r).Decode(&tr); err != nil {
		return minutes.Transcript{}, fmt.Errorf("decoding whisperx json result: %w", err)
	}

	us := make([]minutes.Utterance, len(tr.Segments))
	for n, s := range tr.Segments {
		speaker := s.Speaker
		if speaker == "" {
			speaker = UnknownSpeaker
		}
		us[n] = minutes.Utterance{
			SpeakerLabel: speaker,
			Text:         strings.TrimSpace(s.Text),
			Start:        s.Start.Mul(thousand).IntPart(),
			End:          s.End.Mul(thousand).IntPart(),
		}
	}
	return minutes.NewTranscript(us), nil
}
