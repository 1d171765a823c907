package httpapi

import (
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/membox/afterwords/internal/lease"
)

type countdownEvent struct {
	Type        string `json:"type"`
	SessionID   string `json:"session_id"`
	SecondsLeft int64  `json:"seconds_left,omitempty"`
	Status      string `json:"status,omitempty"`
}

// handleSessionWS streams a per-second countdown for the session time
// box. The socket is push-only: once the lease goes inactive a final
// session_over event is sent and the connection closes. The timer is
// advisory; the write path re-checks expiry on every message.
func (s *Server) handleSessionWS(w http.ResponseWriter, r *http.Request) {
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

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	defer conn.Close()

	s.metrics.SessionEvents.WithLabelValues("ws_connected").Inc()
	defer s.metrics.SessionEvents.WithLabelValues("ws_disconnected").Inc()

	// Read pump exists only to notice the peer going away.
	gone := make(chan struct{})
	go func() {
		defer close(gone)
		conn.SetReadLimit(512)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	// First tick immediately so the client renders the timer without a
	// one-second blank.
	_ = conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
	if err := conn.WriteJSON(countdownEvent{
		Type:        "countdown",
		SessionID:   id,
		SecondsLeft: l.SecondsLeft(time.Now()),
	}); err != nil {
		return
	}

	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-gone:
			return
		case <-r.Context().Done():
			return
		case <-ticker.C:
		}

		cur, found, err := s.sessions.Restore(r.Context(), id)
		if err != nil {
			return
		}

		now := time.Now()
		if !found || !cur.ActiveAt(now) {
			status := string(lease.StatusExpired)
			if found && cur.Status == lease.StatusEnded {
				status = string(lease.StatusEnded)
			}
			_ = conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
			_ = conn.WriteJSON(countdownEvent{
				Type:      "session_over",
				SessionID: id,
				Status:    status,
			})
			return
		}

		_ = conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
		if err := conn.WriteJSON(countdownEvent{
			Type:        "countdown",
			SessionID:   id,
			SecondsLeft: cur.SecondsLeft(now),
		}); err != nil {
			return
		}
	}
}
