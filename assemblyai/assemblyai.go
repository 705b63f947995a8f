package assemblyai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"time"

	"pvcse/meetings"
	"pvcse/minutes"
)

const DefaultBaseURL = "https://api.assemblyai.com"

type (
	// Transcriber uploads audio to AssemblyAI and waits for the diarized result.
	Transcriber struct {
		APIKey       string
		BaseURL      string
		Language     string
		PollInterval time.Duration
		Client       *http.Client
	}

	uploadResponse struct {
		UploadURL string `json:"upload_url"`
	}

	transcriptRequest struct {
		AudioURL      string `json:"audio_url"`
		SpeakerLabels bool   `json:"speaker_labels"`
		LanguageCode  string `json:"language_code,omitempty"`
		Punctuate     bool   `json:"punctuate"`
		FormatText    bool   `json:"format_text"`
	}

	transcriptResponse struct {
		ID         string      `json:"id"`
		Status     string      `json:"status"`
		Error      string      `json:"error"`
		Utterances []utterance `json:"utterances"`
	}

	utterance struct {
		Speaker string `json:"speaker"`
		Text    string `json:"text"`
		Start   int64  `json:"start"`
		End     int64  `json:"end"`
	}
)

var _ meetings.Transcriber = (*Transcriber)(nil)

func New(apiKey, language string) *Transcriber {
	return &Transcriber{
		APIKey:       apiKey,
		BaseURL:      DefaultBaseURL,
		Language:     language,
		PollInterval: 3 * time.Second,
		Client:       &http.Client{Timeout: 10 * time.Minute},
	}
}

func (t *Transcriber) Name() string {
	return "assemblyai"
}

func (t *Transcriber) Transcribe(ctx context.Context, audioPath string) (minutes.Transcript, error) {
	uploadURL, err := t.upload(ctx, audioPath)
	if err != nil {
		return minutes.Transcript{}, fmt.Errorf("%w: uploading audio: %v", minutes.ErrAcquisition, err)
	}

	var submitted transcriptResponse
	err = t.do(ctx, http.MethodPost, "/v2/transcript", transcriptRequest{
		AudioURL:      uploadURL,
		SpeakerLabels: true,
		LanguageCode:  t.Language,
		Punctuate:     true,
		FormatText:    true,
	}, &submitted)
	if err != nil {
		return minutes.Transcript{}, fmt.Errorf("%w: submitting transcript: %v", minutes.ErrAcquisition, err)
	}
	log.Printf("assemblyai: transcript %s submitted", submitted.ID)

	res, err := t.wait(ctx, submitted.ID)
	if err != nil {
		return minutes.Transcript{}, fmt.Errorf("%w: %v", minutes.ErrAcquisition, err)
	}

	us := make([]minutes.Utterance, len(res.Utterances))
	for n, u := range res.Utterances {
		us[n] = minutes.Utterance{SpeakerLabel: u.Speaker, Text: u.Text, Start: u.Start, End: u.End}
	}
	return minutes.NewTranscript(us), nil
}

func (t *Transcriber) upload(ctx context.Context, audioPath string) (string, error) {
	f, err := os.Open(audioPath)
	if err != nil {
		return "", err
	}
	defer f.Close()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, t.baseURL()+"/v2/upload", f)
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/octet-stream")

	var res uploadResponse
	if err := t.send(req, &res); err != nil {
		return "", err
	}
	return res.UploadURL, nil
}

func (t *Transcriber) wait(ctx context.Context, id string) (transcriptResponse, error) {
	interval := t.PollInterval
	if interval <= 0 {
		interval = 3 * time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		var res transcriptResponse
		if err := t.do(ctx, http.MethodGet, "/v2/transcript/"+id, nil, &res); err != nil {
			return res, fmt.Errorf("polling transcript %s: %w", id, err)
		}
		switch res.Status {
		case "completed":
			return res, nil
		case "error":
			return res, fmt.Errorf("transcription error: %s", res.Error)
		}

		select {
		case <-ctx.Done():
			return res, ctx.Err()
		case <-ticker.C:
		}
	}
}

func (t *Transcriber) do(ctx context.Context, method, path string, body, out any) error {
	var r io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return err
		}
		r = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, t.baseURL()+path, r)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	return t.send(req, out)
}

func (t *Transcriber) send(req *http.Request, out any) error {
	req.Header.Set("Authorization", t.APIKey)

	client := t.Client
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		b, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("assemblyai http %d: %s", resp.StatusCode, string(b))
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decoding assemblyai response: %w", err)
	}
	return nil
}

func (t *Transcriber) baseURL() string {
	if t.BaseURL != "" {
		return t.BaseURL
	}
	return DefaultBaseURL
}
