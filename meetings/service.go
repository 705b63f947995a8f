package meetings

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"sync"
	"time"

	"github.com/google/uuid"

	"pvcse/b3"
	"pvcse/minutes"
	"pvcse/render"
)

type (
	repo interface {
		GetTranscriptByHash(ctx context.Context, blake3Hash, provider string) (minutes.Transcript, bool, error)
		SaveTranscript(ctx context.Context, blake3Hash, provider string, t minutes.Transcript) error
	}

	// Service keeps one Session per meeting. Operations on a meeting are
	// applied whole or not at all.
	Service struct {
		r     repo
		t     Transcriber
		rec   Recorder
		title string

		mu       sync.Mutex
		meetings map[string]*Meeting
	}
)

func NewService(r repo, t Transcriber, title string) *Service {
	return &Service{r: r, t: t, title: title, meetings: make(map[string]*Meeting)}
}

// RecordTo makes the service hand every new session's transcript to rec.
func (s *Service) RecordTo(rec Recorder) {
	s.rec = rec
}

func (s *Service) Create() Meeting {
	m := &Meeting{ID: uuid.NewString(), CreatedAt: time.Now()}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.meetings[m.ID] = m
	return *m
}

func (s *Service) Get(id string) (Meeting, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	m, ok := s.meetings[id]
	if !ok {
		return Meeting{}, fmt.Errorf("meeting %s: %w", id, ErrMeetingNotFound)
	}
	return *m, nil
}

// Transcribe acquires a transcript for the audio at audioPath and starts a
// fresh session from it. audioPath is removed whatever the outcome. On
// failure the meeting keeps its previous session.
func (s *Service) Transcribe(ctx context.Context, id, audioPath string) (Meeting, error) {
	defer func() {
		if err := os.Remove(audioPath); err != nil && !os.IsNotExist(err) {
			log.Printf("removing audio artifact %s: %v", audioPath, err)
		}
	}()

	if _, err := s.Get(id); err != nil {
		return Meeting{}, err
	}

	t, source, err := s.acquire(ctx, audioPath)
	if err != nil {
		return Meeting{}, fmt.Errorf("transcribe meeting %s: %w", id, err)
	}
	if s.rec != nil {
		if err := s.rec.Record(t); err != nil {
			log.Printf("recording transcript of meeting %s: %v", id, err)
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	m, ok := s.meetings[id]
	if !ok {
		return Meeting{}, fmt.Errorf("meeting %s: %w", id, ErrMeetingNotFound)
	}
	m.Session = minutes.NewSession(t)
	m.HasTranscript = true
	m.Source = source
	return *m, nil
}

func (s *Service) acquire(ctx context.Context, audioPath string) (minutes.Transcript, string, error) {
	hash, err := b3.HashFile(audioPath)
	if err != nil {
		return minutes.Transcript{}, "", fmt.Errorf("%w: %v", minutes.ErrAcquisition, err)
	}

	t, found, err := s.r.GetTranscriptByHash(ctx, hash, s.t.Name())
	if err != nil {
		log.Printf("transcript cache lookup: %v", err)
	}
	if found {
		log.Printf("transcript cache hit for %s", hash)
		return t, "cache", nil
	}

	log.Printf("transcribing %s with %s", audioPath, s.t.Name())
	start := time.Now()
	t, err = s.t.Transcribe(ctx, audioPath)
	if err != nil {
		return minutes.Transcript{}, "", err
	}
	if t.Err() != "" {
		return minutes.Transcript{}, "", fmt.Errorf("%w: transcription error: %s", minutes.ErrAcquisition, t.Err())
	}
	log.Printf("transcribed %d utterances in %s", t.Len(), time.Since(start).Round(time.Second))

	if err := s.r.SaveTranscript(ctx, hash, s.t.Name(), t); err != nil {
		log.Printf("caching transcript: %v", err)
	}
	return t, s.t.Name(), nil
}

func (s *Service) RenameSpeaker(id, label, name string) (Meeting, bool, error) {
	var changed bool
	m, err := s.update(id, func(sess minutes.Session) (minutes.Session, error) {
		var err error
		sess, changed, err = sess.Rename(label, name)
		return sess, err
	})
	return m, changed, err
}

func (s *Service) AddParticipant(id, name string) (Meeting, bool, error) {
	var changed bool
	m, err := s.update(id, func(sess minutes.Session) (minutes.Session, error) {
		sess, changed = sess.AddParticipant(name)
		return sess, nil
	})
	return m, changed, err
}

func (s *Service) RemoveParticipant(id string, index int) (Meeting, error) {
	return s.update(id, func(sess minutes.Session) (minutes.Session, error) {
		return sess.RemoveParticipant(index)
	})
}

func (s *Service) InsertDiscussion(id string, pos minutes.Position) (Meeting, error) {
	return s.update(id, func(sess minutes.Session) (minutes.Session, error) {
		return sess.Insert(pos)
	})
}

func (s *Service) RemoveDiscussion(id string, index int) (Meeting, error) {
	return s.update(id, func(sess minutes.Session) (minutes.Session, error) {
		return sess.Remove(index)
	})
}

func (s *Service) SetDiscussionField(id string, index int, field minutes.Field, value string) (Meeting, error) {
	return s.update(id, func(sess minutes.Session) (minutes.Session, error) {
		return sess.SetField(index, field, value)
	})
}

// Export renders the meeting's current document. It returns the renderer so
// callers can label the download.
func (s *Service) Export(id string, f render.Format, w io.Writer) (render.Renderer, error) {
	m, err := s.Get(id)
	if err != nil {
		return nil, err
	}
	if !m.HasTranscript {
		return nil, fmt.Errorf("export meeting %s: %w", id, ErrNoTranscript)
	}

	r, err := render.For(f, render.Options{Title: s.title})
	if err != nil {
		return nil, err
	}
	if err := r.Render(w, m.Session.Document); err != nil {
		return nil, fmt.Errorf("export meeting %s: %w", id, err)
	}
	return r, nil
}

func (s *Service) update(id string, fn func(minutes.Session) (minutes.Session, error)) (Meeting, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	m, ok := s.meetings[id]
	if !ok {
		return Meeting{}, fmt.Errorf("meeting %s: %w", id, ErrMeetingNotFound)
	}
	if !m.HasTranscript {
		return *m, fmt.Errorf("meeting %s: %w", id, ErrNoTranscript)
	}

	next, err := fn(m.Session)
	if err != nil {
		return *m, err
	}
	m.Session = next
	return *m, nil
}
