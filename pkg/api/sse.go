package api

import (
	"fmt"
	"net/http"

	"github.com/mattyatplay-coder/vibeboard/pkg/bus"
)

// handleEvents streams generation lifecycle events over SSE. The subject is
// sent as the SSE event name so clients can listen per lifecycle stage.
func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	if s.events == nil {
		writeError(w, http.StatusServiceUnavailable, "event bus not configured")
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, http.StatusInternalServerError, "streaming not supported")
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	messages := make(chan *bus.Message, 64)
	sub, err := s.events.Subscribe(r.Context(), "generation.>", func(msg *bus.Message) {
		select {
		case messages <- msg:
		default:
			// Slow consumer; drop rather than block the bus.
		}
	})
	if err != nil {
		return
	}
	defer sub.Unsubscribe()

	for {
		select {
		case <-r.Context().Done():
			return
		case msg := <-messages:
			fmt.Fprintf(w, "event: %s\ndata: %s\n\n", msg.Subject, msg.Data)
			flusher.Flush()
		}
	}
}
