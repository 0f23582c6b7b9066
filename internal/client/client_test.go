package client

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/seon-creator/SSG-EDU-Project/internal/models"
)

func TestCreateSession(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/chat/sessions", r.URL.Path)
		assert.Equal(t, "user-1", r.Header.Get("X-User-ID"))

		var req sessionRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "Checkup", req.Name)

		w.WriteHeader(http.StatusCreated)
		_ = json.NewEncoder(w).Encode(models.Session{ID: "s-1", UserID: "user-1", Name: req.Name})
	}))
	defer srv.Close()

	c := New(srv.URL, "user-1")
	session, err := c.CreateSession(context.Background(), "Checkup")
	require.NoError(t, err)
	assert.Equal(t, "s-1", session.ID)
	assert.Equal(t, "Checkup", session.Name)
}

func TestAskServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusConflict)
		_ = json.NewEncoder(w).Encode(apiError{Error: "session awaits an assistant reply"})
	}))
	defer srv.Close()

	c := New(srv.URL, "user-1")
	_, err := c.Ask(context.Background(), "s-1", "question")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "409")
	assert.Contains(t, err.Error(), "awaits an assistant reply")
}

func TestAskStream(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat/sessions/s-1/messages/stream", r.URL.Path)

		w.Header().Set("Content-Type", "application/x-ndjson")
		flusher := w.(http.Flusher)
		enc := json.NewEncoder(w)
		_ = enc.Encode(StreamEvent{Type: "user_turn", Turn: &models.Turn{ID: "t-1", Content: "q"}})
		flusher.Flush()
		for _, delta := range []string{"Rest", " well."} {
			_ = enc.Encode(StreamEvent{Type: "assistant_delta", Delta: delta})
			flusher.Flush()
		}
	}))
	defer srv.Close()

	c := New(srv.URL, "user-1")
	var events []StreamEvent
	err := c.AskStream(context.Background(), "s-1", "q", func(ev StreamEvent) error {
		events = append(events, ev)
		return nil
	})
	require.NoError(t, err)

	require.Len(t, events, 3)
	assert.Equal(t, "user_turn", events[0].Type)
	require.NotNil(t, events[0].Turn)
	assert.Equal(t, "Rest", events[1].Delta)
	assert.Equal(t, " well.", events[2].Delta)
}

func TestAskStreamErrorLine(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/x-ndjson")
		enc := json.NewEncoder(w)
		_ = enc.Encode(StreamEvent{Type: "user_turn", Turn: &models.Turn{ID: "t-1"}})
		_ = enc.Encode(StreamEvent{Type: "error", Error: "model unavailable"})
	}))
	defer srv.Close()

	c := New(srv.URL, "user-1")
	err := c.AskStream(context.Background(), "s-1", "q", func(StreamEvent) error { return nil })
	require.Error(t, err)
	assert.Contains(t, err.Error(), "model unavailable")
}

func TestAskStreamWS(t *testing.T) {
	upgrader := websocket.Upgrader{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "user-1", r.Header.Get("X-User-ID"))
		conn, err := upgrader.Upgrade(w, r, nil)
		require.NoError(t, err)
		defer conn.Close()

		var req messageRequest
		require.NoError(t, conn.ReadJSON(&req))
		assert.Equal(t, "q", req.Content)

		_ = conn.WriteJSON(StreamEvent{Type: "user_turn", Turn: &models.Turn{ID: "t-1", Content: req.Content}})
		_ = conn.WriteJSON(StreamEvent{Type: "assistant_delta", Delta: "Hi"})
		_ = conn.WriteJSON(StreamEvent{Type: "done"})
	}))
	defer srv.Close()

	c := New(srv.URL, "user-1")
	var events []StreamEvent
	err := c.AskStreamWS(context.Background(), "s-1", "q", func(ev StreamEvent) error {
		events = append(events, ev)
		return nil
	})
	require.NoError(t, err)

	require.Len(t, events, 2)
	assert.Equal(t, "user_turn", events[0].Type)
	assert.Equal(t, "Hi", events[1].Delta)
}

func TestDailyReportNotFound(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusNotFound)
		_ = json.NewEncoder(w).Encode(apiError{Error: "no messages recorded for that date"})
	}))
	defer srv.Close()

	c := New(srv.URL, "user-1")
	report, err := c.DailyReport(context.Background(), "2025-03-14")
	require.NoError(t, err)
	assert.Nil(t, report)
}

func TestListReportsQuery(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "2025-03-01", r.URL.Query().Get("start_date"))
		assert.Equal(t, "2025-03-31", r.URL.Query().Get("end_date"))
		fmt.Fprint(w, `[{"id":"r-1","report_date":"2025-03-14"}]`)
	}))
	defer srv.Close()

	c := New(srv.URL, "user-1")
	reports, err := c.ListReports(context.Background(), "2025-03-01", "2025-03-31")
	require.NoError(t, err)
	require.Len(t, reports, 1)
	assert.Equal(t, "r-1", reports[0].ID)
}

func TestDeleteSession(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodDelete, r.Method)
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	c := New(srv.URL, "user-1")
	require.NoError(t, c.DeleteSession(context.Background(), "s-1"))
}
