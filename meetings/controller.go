package meetings

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"
	"time"

	"pvcse/minutes"
	"pvcse/render"
)

const maxUpload = 512 << 20

type (
	controller struct {
		svc *Service
	}

	meetingView struct {
		ID            string           `json:"id"`
		CreatedAt     time.Time        `json:"created_at"`
		Source        string           `json:"source,omitempty"`
		HasTranscript bool             `json:"has_transcript"`
		Speakers      []Speaker        `json:"speakers"`
		Participants  []string         `json:"participants"`
		Document      minutes.Document `json:"document"`
		Changed       *bool            `json:"changed,omitempty"`
	}

	nameRequest struct {
		Name string `json:"name"`
	}

	insertRequest struct {
		Position json.RawMessage `json:"position"`
	}

	fieldRequest struct {
		Field string `json:"field"`
		Value string `json:"value"`
	}
)

// InstallController registers the meeting editing endpoints on mux.
func InstallController(mux *http.ServeMux, svc *Service) {
	c := controller{svc}
	mux.HandleFunc("POST /meetings", c.create)
	mux.HandleFunc("GET /meetings/{id}", c.get)
	mux.HandleFunc("POST /meetings/{id}/audio", c.upload)
	mux.HandleFunc("PUT /meetings/{id}/speakers/{label}", c.renameSpeaker)
	mux.HandleFunc("POST /meetings/{id}/participants", c.addParticipant)
	mux.HandleFunc("DELETE /meetings/{id}/participants/{index}", c.removeParticipant)
	mux.HandleFunc("POST /meetings/{id}/discussions", c.insertDiscussion)
	mux.HandleFunc("DELETE /meetings/{id}/discussions/{index}", c.removeDiscussion)
	mux.HandleFunc("PATCH /meetings/{id}/discussions/{index}", c.setDiscussionField)
	mux.HandleFunc("GET /meetings/{id}/export", c.export)
}

func (c controller) create(w http.ResponseWriter, r *http.Request) {
	writeMeeting(w, http.StatusCreated, c.svc.Create(), nil)
}

func (c controller) get(w http.ResponseWriter, r *http.Request) {
	m, err := c.svc.Get(r.PathValue("id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeMeeting(w, http.StatusOK, m, nil)
}

func (c controller) upload(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxUpload)
	file, header, err := r.FormFile("file")
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": fmt.Sprintf("reading upload: %v", err)})
		return
	}
	defer file.Close()

	ext := strings.ToLower(filepath.Ext(header.Filename))
	if !slices.Contains(SupportedAudio, ext) {
		writeJSON(w, http.StatusUnsupportedMediaType, map[string]string{"error": fmt.Sprintf("unsupported audio type %q, expected one of %s", ext, strings.Join(SupportedAudio, ", "))})
		return
	}

	tmp, err := os.CreateTemp("", "pvcse-*"+ext)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	_, err = io.Copy(tmp, file)
	if closeErr := tmp.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		os.Remove(tmp.Name())
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": fmt.Sprintf("storing upload: %v", err)})
		return
	}

	m, err := c.svc.Transcribe(r.Context(), r.PathValue("id"), tmp.Name())
	if err != nil {
		writeError(w, err)
		return
	}
	writeMeeting(w, http.StatusOK, m, nil)
}

func (c controller) renameSpeaker(w http.ResponseWriter, r *http.Request) {
	var req nameRequest
	if !decode(w, r, &req) {
		return
	}
	m, changed, err := c.svc.RenameSpeaker(r.PathValue("id"), r.PathValue("label"), req.Name)
	if err != nil {
		writeError(w, err)
		return
	}
	writeMeeting(w, http.StatusOK, m, &changed)
}

func (c controller) addParticipant(w http.ResponseWriter, r *http.Request) {
	var req nameRequest
	if !decode(w, r, &req) {
		return
	}
	m, changed, err := c.svc.AddParticipant(r.PathValue("id"), req.Name)
	if err != nil {
		writeError(w, err)
		return
	}
	writeMeeting(w, http.StatusOK, m, &changed)
}

func (c controller) removeParticipant(w http.ResponseWriter, r *http.Request) {
	index, ok := pathIndex(w, r)
	if !ok {
		return
	}
	m, err := c.svc.RemoveParticipant(r.PathValue("id"), index)
	if err != nil {
		writeError(w, err)
		return
	}
	writeMeeting(w, http.StatusOK, m, nil)
}

func (c controller) insertDiscussion(w http.ResponseWriter, r *http.Request) {
	var req insertRequest
	if !decode(w, r, &req) {
		return
	}

	pos := minutes.End
	if len(req.Position) > 0 {
		var raw any
		if err := json.Unmarshal(req.Position, &raw); err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
			return
		}
		p, err := minutes.ParsePosition(fmt.Sprint(raw))
		if err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
			return
		}
		pos = p
	}

	m, err := c.svc.InsertDiscussion(r.PathValue("id"), pos)
	if err != nil {
		writeError(w, err)
		return
	}
	writeMeeting(w, http.StatusOK, m, nil)
}

func (c controller) removeDiscussion(w http.ResponseWriter, r *http.Request) {
	index, ok := pathIndex(w, r)
	if !ok {
		return
	}
	m, err := c.svc.RemoveDiscussion(r.PathValue("id"), index)
	if err != nil {
		writeError(w, err)
		return
	}
	writeMeeting(w, http.StatusOK, m, nil)
}

func (c controller) setDiscussionField(w http.ResponseWriter, r *http.Request) {
	index, ok := pathIndex(w, r)
	if !ok {
		return
	}
	var req fieldRequest
	if !decode(w, r, &req) {
		return
	}
	field, err := minutes.ParseField(req.Field)
	if err != nil {
		writeError(w, err)
		return
	}
	m, err := c.svc.SetDiscussionField(r.PathValue("id"), index, field, req.Value)
	if err != nil {
		writeError(w, err)
		return
	}
	writeMeeting(w, http.StatusOK, m, nil)
}

func (c controller) export(w http.ResponseWriter, r *http.Request) {
	format := r.URL.Query().Get("format")
	if format == "" {
		format = string(render.PDF)
	}
	f, err := render.ParseFormat(format)
	if err != nil {
		writeError(w, err)
		return
	}

	var buf bytes.Buffer
	rd, err := c.svc.Export(r.PathValue("id"), f, &buf)
	if err != nil {
		writeError(w, err)
		return
	}
	w.Header().Set("Content-Type", rd.ContentType())
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", rd.FileName()))
	w.Header().Set("Content-Length", strconv.Itoa(buf.Len()))
	if _, err := buf.WriteTo(w); err != nil {
		log.Printf("writing export: %v", err)
	}
}

func decode(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": fmt.Sprintf("decoding request: %v", err)})
		return false
	}
	return true
}

func pathIndex(w http.ResponseWriter, r *http.Request) (int, bool) {
	index, err := strconv.Atoi(r.PathValue("index"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": fmt.Sprintf("index %q: %v", r.PathValue("index"), err)})
		return 0, false
	}
	return index, true
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, ErrMeetingNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrNoTranscript):
		return http.StatusConflict
	case errors.Is(err, minutes.ErrIndexOutOfRange),
		errors.Is(err, minutes.ErrInvalidField),
		errors.Is(err, minutes.ErrMappingKeyUnknown):
		return http.StatusBadRequest
	case errors.Is(err, minutes.ErrUnsupportedFormat):
		return http.StatusUnsupportedMediaType
	case errors.Is(err, minutes.ErrAcquisition):
		return http.StatusBadGateway
	}
	return http.StatusInternalServerError
}

func writeError(w http.ResponseWriter, err error) {
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		log.Printf("request failed: %v", err)
	}
	writeJSON(w, status, map[string]string{"error": err.Error()})
}

func writeMeeting(w http.ResponseWriter, status int, m Meeting, changed *bool) {
	participants := []string(m.Session.Participants)
	if participants == nil {
		participants = []string{}
	}
	writeJSON(w, status, meetingView{
		ID:            m.ID,
		CreatedAt:     m.CreatedAt,
		Source:        m.Source,
		HasTranscript: m.HasTranscript,
		Speakers:      m.Speakers(),
		Participants:  participants,
		Document:      m.Session.Document,
		Changed:       changed,
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		log.Printf("writing response: %v", err)
	}
}
