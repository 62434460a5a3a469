package httpapi

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/google/uuid"

	"github.com/arena-ledger/arena-ledger/internal/infrastructure/sse"
)

// streamEvents serves the live settlement journal over SSE. An optional
// wallet query parameter narrows the stream to entries touching it.
func (s *Server) streamEvents(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		respondError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "streaming unsupported")
		return
	}

	var wallet *string
	if v := r.URL.Query().Get("wallet"); v != "" {
		wallet = &v
	}
	client := sse.NewClient(uuid.NewString(), wallet, 32)
	s.eventHub.Register(client)
	defer s.eventHub.Unregister(client.ClientID)

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	for {
		select {
		case <-r.Context().Done():
			return
		case entry, open := <-client.MessageChan:
			if !open {
				return
			}
			data, err := json.Marshal(entry)
			if err != nil {
				continue
			}
			fmt.Fprintf(w, "event: settlement\ndata: %s\n\n", data)
			flusher.Flush()
		}
	}
}
