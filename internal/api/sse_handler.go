package api

import (
	"bytes"
	"encoding/json"
	"fmt"
	"ms-groups/internal/models"
	"net/http"

	"github.com/go-chi/chi/v5"
)

// StreamGroups sends the page's current fragments, then every fragment
// appended afterwards, as server-sent events.
func (h *Handler) StreamGroups(w http.ResponseWriter, r *http.Request) {
	pageID := chi.URLParam(r, "pageID")

	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "Streaming unsupported", http.StatusInternalServerError)
		return
	}

	ctx := r.Context()
	// subscribe before reading the backlog so nothing falls in between
	events := h.Emitter.Subscribe(ctx, pageID)

	_, backlog, ok := h.lookupFragments(w, r, pageID)
	if !ok {
		return
	}

	setupSSEHeaders(w)
	fmt.Fprintf(w, "event: connected\ndata: {\"status\":\"connected\",\"pageID\":%q}\n\n", pageID)

	seen := make(map[string]bool, len(backlog))
	for _, f := range backlog {
		seen[fragmentKey(f)] = true
		h.writeFragment(w, f)
	}
	flusher.Flush()

	h.Logger.Info("SSE", fmt.Sprintf("Client connected to fragment stream for page: %s", pageID))

	for {
		select {
		case f, ok := <-events:
			if !ok {
				fmt.Fprint(w, "event: closed\ndata: {}\n\n")
				flusher.Flush()
				h.Logger.Debug("SSE", fmt.Sprintf("Stream closed for page: %s", pageID))
				return
			}
			if seen[fragmentKey(f)] {
				continue
			}
			h.writeFragment(w, f)
			flusher.Flush()
		case <-ctx.Done():
			h.Logger.Debug("SSE", fmt.Sprintf("Client disconnected from page: %s", pageID))
			return
		}
	}
}

func (h *Handler) writeFragment(w http.ResponseWriter, f models.Fragment) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(f); err != nil {
		h.Logger.Error("SSE", fmt.Sprintf("Failed to serialize fragment: %v", err))
		return
	}
	fmt.Fprintf(w, "event: fragment\ndata: %s\n\n", bytes.TrimRight(buf.Bytes(), "\n"))
}

func fragmentKey(f models.Fragment) string {
	return fmt.Sprintf("%s/%d", f.BatchID, f.Seq)
}

func setupSSEHeaders(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "text/event-stream;charset=UTF-8")
	w.Header().Set("Cache-Control", "no-cache, no-store, max-age=0, must-revalidate")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Content-Type-Options", "nosniff")
}
