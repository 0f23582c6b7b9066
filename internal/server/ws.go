package server

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 4096,
	// Cross-origin policy is enforced by the gateway in front of this service.
	CheckOrigin: func(*http.Request) bool { return true },
}

const wsWriteTimeout = 10 * time.Second

// streamAnswerWS streams answers over a WebSocket. The client sends one
// JSON message per question and receives the same event frames as the
// NDJSON endpoint. The connection stays open for follow-up questions.
func (h *handlers) streamAnswerWS(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("websocket upgrade failed", "error", err)
		return
	}
	defer conn.Close()

	sessionID := chi.URLParam(r, "sessionID")
	uid := userID(r)

	for {
		var req messageRequest
		if err := conn.ReadJSON(&req); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				h.logger.Debug("websocket closed", "session_id", sessionID, "error", err)
			}
			return
		}

		events, errs := h.chat.StreamAnswer(r.Context(), sessionID, uid, req.Content)
		for ev := range events {
			_ = conn.SetWriteDeadline(time.Now().Add(wsWriteTimeout))
			if err := conn.WriteJSON(lineForEvent(ev)); err != nil {
				return
			}
		}
		if err := <-errs; err != nil {
			_ = conn.SetWriteDeadline(time.Now().Add(wsWriteTimeout))
			if werr := conn.WriteJSON(streamLine{Type: "error", Error: err.Error()}); werr != nil {
				return
			}
			continue
		}

		_ = conn.SetWriteDeadline(time.Now().Add(wsWriteTimeout))
		if err := conn.WriteJSON(streamLine{Type: "done"}); err != nil {
			return
		}
	}
}
