package server

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/seon-creator/SSG-EDU-Project/internal/metrics"
	"github.com/seon-creator/SSG-EDU-Project/internal/service"
)

// streamLine is the wire form of one newline-delimited JSON event.
type streamLine struct {
	Type  string `json:"type"`
	Turn  any    `json:"turn,omitempty"`
	Delta string `json:"delta,omitempty"`
	Error string `json:"error,omitempty"`
}

func lineForEvent(ev service.Event) streamLine {
	line := streamLine{Type: string(ev.Type), Delta: ev.Delta}
	if ev.Turn != nil {
		line.Turn = ev.Turn
	}
	return line
}

// streamAnswer streams the assistant reply as newline-delimited JSON.
// The first line carries the persisted user turn, subsequent lines carry
// answer deltas. A failure mid-stream is reported as a final error line
// because the status code has already been sent.
func (h *handlers) streamAnswer(w http.ResponseWriter, r *http.Request) {
	var req messageRequest
	if !decodeBody(w, r, &req) {
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		respondError(w, http.StatusInternalServerError, "streaming unsupported")
		return
	}

	start := time.Now()
	events, errs := h.chat.StreamAnswer(r.Context(), chi.URLParam(r, "sessionID"), userID(r), req.Content)

	enc := json.NewEncoder(w)
	headersSent := false
	for ev := range events {
		if !headersSent {
			w.Header().Set("Content-Type", "application/x-ndjson")
			w.Header().Set("Cache-Control", "no-cache")
			w.WriteHeader(http.StatusOK)
			headersSent = true
		}
		if err := enc.Encode(lineForEvent(ev)); err != nil {
			return
		}
		flusher.Flush()
	}

	err := <-errs
	h.stats.Record(metrics.OpChatStream, time.Since(start), err != nil)
	if err != nil {
		if !headersSent {
			respondServiceError(w, err)
			return
		}
		_ = enc.Encode(streamLine{Type: "error", Error: err.Error()})
		flusher.Flush()
	}
}
