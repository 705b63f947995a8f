package meetings

import (
	"context"

	"pvcse/minutes"
)

type (
	// Transcriber turns an audio artifact into a diarized transcript. It
	// must not remove audioPath; the service owns the artifact.
	Transcriber interface {
		Name() string
		Transcribe(ctx context.Context, audioPath string) (minutes.Transcript, error)
	}

	// Recorder is handed the transcript of every session the service
	// starts, whether it came from the provider or the cache.
	Recorder interface {
		Record(t minutes.Transcript) error
	}
)

// SupportedAudio lists the upload extensions accepted for transcription.
var SupportedAudio = []string{".mp3", ".wav", ".m4a"}
