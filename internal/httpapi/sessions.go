package httpapi

import (
	"errors"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/membox/afterwords/internal/audio"
	"github.com/membox/afterwords/internal/chat"
	"github.com/membox/afterwords/internal/lease"
	"github.com/membox/afterwords/internal/session"
)

// maxSampleBytes caps the uploaded voice sample. ElevenLabs only needs
// a minute or so of speech for an instant clone.
const maxSampleBytes = 10 << 20

type sessionResponse struct {
	lease.Lease
	SecondsLeft      int64 `json:"seconds_left"`
	Active           bool  `json:"active"`
	CleanupScheduled *bool `json:"cleanup_scheduled,omitempty"`
}

type messageRequest struct {
	Message string `json:"message"`
}

type messageResponse struct {
	VoiceID     string `json:"voice_id"`
	AudioKey    string `json:"audio_key"`
	SecondsLeft int64  `json:"seconds_left"`
}

// handleCreateSession accepts a multipart form: text fields "who",
// "relation", "lang", "message" plus the "voice_sample" file. The
// sample is stored first so the first turn can clone from it.
func (s *Server) handleCreateSession(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(maxSampleBytes); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "expected multipart form: "+err.Error())
		return
	}

	who := strings.TrimSpace(r.FormValue("who"))
	relation := strings.TrimSpace(r.FormValue("relation"))
	lang := strings.TrimSpace(r.FormValue("lang"))
	message := strings.TrimSpace(r.FormValue("message"))
	if who == "" || message == "" {
		respondError(w, http.StatusBadRequest, "invalid_request", "fields who and message are required")
		return
	}
	if relation == "" {
		relation = "friend"
	}
	if lang == "" {
		lang = "en"
	}

	file, header, err := r.FormFile("voice_sample")
	if err != nil {
		respondError(w, http.StatusBadRequest, "missing_voice_sample", "file field voice_sample is required")
		return
	}
	defer file.Close()

	sample, err := io.ReadAll(io.LimitReader(file, maxSampleBytes+1))
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid_voice_sample", err.Error())
		return
	}
	if len(sample) == 0 {
		respondError(w, http.StatusBadRequest, "invalid_voice_sample", "voice sample is empty")
		return
	}
	if len(sample) > maxSampleBytes {
		respondError(w, http.StatusRequestEntityTooLarge, "voice_sample_too_large", "voice sample exceeds 10MB")
		return
	}

	format := audio.Detect(sample)
	if format == audio.FormatUnknown {
		respondError(w, http.StatusBadRequest, "invalid_voice_sample",
			"voice_sample does not look like audio (got "+header.Filename+")")
		return
	}

	sampleKey := "samples/" + uuid.NewString() + format.Ext()
	if err := s.objects.Upload(r.Context(), sampleKey, sample); err != nil {
		respondError(w, http.StatusBadGateway, "sample_upload_failed", err.Error())
		return
	}

	res, err := s.sessions.Create(r.Context(), session.CreateRequest{
		Who:          who,
		Relation:     relation,
		Lang:         lang,
		AudioKey:     sampleKey,
		FirstMessage: message,
	})
	if err != nil {
		respondError(w, http.StatusBadGateway, "session_create_failed", err.Error())
		return
	}
	s.metrics.SessionEvents.WithLabelValues("created").Inc()

	respondJSON(w, http.StatusCreated, sessionResponse{
		Lease:            res.Lease,
		SecondsLeft:      res.Lease.SecondsLeft(time.Now()),
		Active:           true,
		CleanupScheduled: &res.CleanupScheduled,
	})
}

// handleGetSession restores a session on page reload. Liveness is
// reported, never enforced here: an expired lease still comes back with
// active=false so the client can render the ended state.
func (s *Server) handleGetSession(w http.ResponseWriter, r *http.Request) {
	id := strings.TrimSpace(chi.URLParam(r, "id"))
	if id == "" {
		respondError(w, http.StatusBadRequest, "invalid_session_id", "missing session id")
		return
	}

	l, found, err := s.sessions.Restore(r.Context(), id)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "restore_failed", err.Error())
		return
	}
	if !found {
		respondError(w, http.StatusNotFound, "session_not_found", "no session with id "+id)
		return
	}
	s.metrics.SessionEvents.WithLabelValues("restored").Inc()

	now := time.Now()
	respondJSON(w, http.StatusOK, sessionResponse{
		Lease:       l,
		SecondsLeft: l.SecondsLeft(now),
		Active:      l.ActiveAt(now),
	})
}

// handlePostMessage runs one chat turn. This is the interactive write
// path where expiry is checked: an active lease past its expiry gets
// terminated before the turn is refused.
func (s *Server) handlePostMessage(w http.ResponseWriter, r *http.Request) {
	id := strings.TrimSpace(chi.URLParam(r, "id"))
	if id == "" {
		respondError(w, http.StatusBadRequest, "invalid_session_id", "missing session id")
		return
	}

	var req messageRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}
	if strings.TrimSpace(req.Message) == "" {
		respondError(w, http.StatusBadRequest, "invalid_request", "message is required")
		return
	}

	l, found, err := s.sessions.Restore(r.Context(), id)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "restore_failed", err.Error())
		return
	}
	if !found {
		respondError(w, http.StatusNotFound, "session_not_found", "no session with id "+id)
		return
	}

	now := time.Now()
	if !l.ActiveAt(now) {
		if l.Status == lease.StatusActive {
			// Lease outlived its expiry without anyone noticing; close it
			// now so the cleanup job finds a terminal status.
			_ = s.sessions.Terminate(r.Context(), id, "expired on message attempt")
			s.metrics.SessionEvents.WithLabelValues("expired").Inc()
		}
		respondError(w, http.StatusConflict, "session_over", "session is no longer active")
		return
	}

	turn, err := s.turns.Turn(r.Context(), chat.TurnRequest{
		Who:       l.Who,
		Relation:  l.Relation,
		Lang:      l.Lang,
		Text:      req.Message,
		VoiceID:   l.VoiceID,
		SampleKey: l.AudioKey,
	})
	if err != nil {
		respondError(w, http.StatusBadGateway, "turn_failed", err.Error())
		return
	}

	if err := s.sessions.AppendTurn(r.Context(), id, req.Message, turn.AudioKey, turn.VoiceID); err != nil {
		if errors.Is(err, lease.ErrNotFound) {
			respondError(w, http.StatusNotFound, "session_not_found", "session vanished mid-turn")
			return
		}
		respondError(w, http.StatusInternalServerError, "persist_failed", err.Error())
		return
	}

	respondJSON(w, http.StatusOK, messageResponse{
		VoiceID:     turn.VoiceID,
		AudioKey:    turn.AudioKey,
		SecondsLeft: l.SecondsLeft(time.Now()),
	})
}

// handleEndSession marks the lease ended. Ending an already-over or
// unknown session succeeds; the client only wants "it is over now".
func (s *Server) handleEndSession(w http.ResponseWriter, r *http.Request) {
	id := strings.TrimSpace(chi.URLParam(r, "id"))
	if id == "" {
		respondError(w, http.StatusBadRequest, "invalid_session_id", "missing session id")
		return
	}

	if err := s.sessions.Terminate(r.Context(), id, "ended by user"); err != nil {
		respondError(w, http.StatusInternalServerError, "end_failed", err.Error())
		return
	}
	s.metrics.SessionEvents.WithLabelValues("ended").Inc()
	respondJSON(w, http.StatusOK, map[string]any{
		"session_id": id,
		"status":     lease.StatusEnded,
	})
}
