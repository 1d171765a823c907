package httpapi

import (
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/membox/afterwords/internal/objectstore"
)

// handleGetAudio serves one synthesized reply from the object store.
// Keys are opaque uuid-based names handed out by the message endpoint;
// uploaded samples live under a samples/ prefix and are not reachable
// here.
func (s *Server) handleGetAudio(w http.ResponseWriter, r *http.Request) {
	key := strings.TrimSpace(chi.URLParam(r, "key"))
	if key == "" || strings.Contains(key, "/") {
		respondError(w, http.StatusBadRequest, "invalid_audio_key", "missing or malformed audio key")
		return
	}

	data, err := s.objects.Download(r.Context(), key)
	if err != nil {
		if errors.Is(err, objectstore.ErrNotFound) {
			respondError(w, http.StatusNotFound, "audio_not_found", "no audio with key "+key)
			return
		}
		respondError(w, http.StatusBadGateway, "audio_fetch_failed", err.Error())
		return
	}

	w.Header().Set("Content-Type", "audio/mpeg")
	w.Header().Set("Cache-Control", "private, max-age=600")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}
