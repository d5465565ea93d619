package server

import (
	"encoding/json"
	"fmt"
	"net/http"
)

// handleValidateSources streams one validation run as server-sent events.
// Each message is a single JSON object on a data line. The stream ends
// after the complete event, or without one when the run hits the ceiling
// or the client goes away.
func (s *Server) handleValidateSources(w http.ResponseWriter, r *http.Request) {
	_, cfg, status, err := s.adminActor(r)
	if err != nil {
		writeErr(w, status, err)
		return
	}

	keyword := r.URL.Query().Get("q")
	if keyword == "" {
		writeErr(w, http.StatusBadRequest, fmt.Errorf("q parameter is required"))
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		writeErr(w, http.StatusInternalServerError, fmt.Errorf("streaming is not supported"))
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	for ev := range s.orch.Run(r.Context(), cfg.SourceConfig, keyword) {
		data, err := json.Marshal(ev)
		if err != nil {
			continue
		}
		if _, err := fmt.Fprintf(w, "data: %s\n\n", data); err != nil {
			// Client gone; the run winds down on its own.
			return
		}
		flusher.Flush()
	}
}
