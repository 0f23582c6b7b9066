// Package client provides a Go client for the medichat HTTP API.
package client

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/gorilla/websocket"

	"github.com/seon-creator/SSG-EDU-Project/internal/models"
)

// Client talks to a medichat server on behalf of one user.
type Client struct {
	baseURL    string
	userID     string
	httpClient *http.Client
}

// New creates a client for the given server and user.
// If baseURL is empty, uses MEDICHAT_SERVER_URL env var or defaults to
// localhost:8080. Timeout can be configured via MEDICHAT_CLIENT_TIMEOUT
// (default 10m, streams can run long).
func New(baseURL, userID string) *Client {
	if baseURL == "" {
		baseURL = os.Getenv("MEDICHAT_SERVER_URL")
	}
	if baseURL == "" {
		baseURL = "http://localhost:8080"
	}
	baseURL = strings.TrimRight(baseURL, "/")

	timeout := 10 * time.Minute
	if t := os.Getenv("MEDICHAT_CLIENT_TIMEOUT"); t != "" {
		if d, err := time.ParseDuration(t); err == nil {
			timeout = d
		}
	}

	return &Client{
		baseURL: baseURL,
		userID:  userID,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

type apiError struct {
	Error string `json:"error"`
}

// do performs one JSON request and decodes the response into result.
func (c *Client) do(ctx context.Context, method, path string, body, result any) error {
	var reqBody io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
		reqBody = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reqBody)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("X-User-ID", c.userID)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("execute request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		raw, _ := io.ReadAll(resp.Body)
		var ae apiError
		if json.Unmarshal(raw, &ae) == nil && ae.Error != "" {
			return fmt.Errorf("server error (%d): %s", resp.StatusCode, ae.Error)
		}
		return fmt.Errorf("server error (%d): %s", resp.StatusCode, strings.TrimSpace(string(raw)))
	}

	if result != nil && resp.StatusCode != http.StatusNoContent {
		if err := json.NewDecoder(resp.Body).Decode(result); err != nil {
			return fmt.Errorf("decode response: %w", err)
		}
	}
	return nil
}

type sessionRequest struct {
	Name string `json:"name"`
}

type messageRequest struct {
	Content string `json:"content"`
}

// CreateSession opens a new chat session.
func (c *Client) CreateSession(ctx context.Context, name string) (*models.Session, error) {
	var session models.Session
	if err := c.do(ctx, http.MethodPost, "/chat/sessions", sessionRequest{Name: name}, &session); err != nil {
		return nil, err
	}
	return &session, nil
}

// ListSessions returns the user's sessions, newest first.
func (c *Client) ListSessions(ctx context.Context, skip, limit int) ([]models.Session, error) {
	q := url.Values{}
	if skip > 0 {
		q.Set("skip", strconv.Itoa(skip))
	}
	if limit > 0 {
		q.Set("limit", strconv.Itoa(limit))
	}
	path := "/chat/sessions"
	if len(q) > 0 {
		path += "?" + q.Encode()
	}

	var sessions []models.Session
	if err := c.do(ctx, http.MethodGet, path, nil, &sessions); err != nil {
		return nil, err
	}
	return sessions, nil
}

// GetSession fetches one session.
func (c *Client) GetSession(ctx context.Context, sessionID string) (*models.Session, error) {
	var session models.Session
	if err := c.do(ctx, http.MethodGet, "/chat/sessions/"+sessionID, nil, &session); err != nil {
		return nil, err
	}
	return &session, nil
}

// RenameSession changes a session's display name.
func (c *Client) RenameSession(ctx context.Context, sessionID, name string) (*models.Session, error) {
	var session models.Session
	if err := c.do(ctx, http.MethodPatch, "/chat/sessions/"+sessionID, sessionRequest{Name: name}, &session); err != nil {
		return nil, err
	}
	return &session, nil
}

// EndSession closes a session.
func (c *Client) EndSession(ctx context.Context, sessionID string) (*models.Session, error) {
	var session models.Session
	if err := c.do(ctx, http.MethodPost, "/chat/sessions/"+sessionID+"/end", nil, &session); err != nil {
		return nil, err
	}
	return &session, nil
}

// DeleteSession removes a session and its turns.
func (c *Client) DeleteSession(ctx context.Context, sessionID string) error {
	return c.do(ctx, http.MethodDelete, "/chat/sessions/"+sessionID, nil, nil)
}

// TitleSession asks the server to synthesize a title from the first exchange.
func (c *Client) TitleSession(ctx context.Context, sessionID string) (*models.Session, error) {
	var session models.Session
	if err := c.do(ctx, http.MethodPost, "/chat/sessions/"+sessionID+"/title", nil, &session); err != nil {
		return nil, err
	}
	return &session, nil
}

// HistoryPage is one page of a session's turn log.
type HistoryPage struct {
	Turns   []models.Turn `json:"turns"`
	Total   int           `json:"total"`
	HasMore bool          `json:"has_more"`
}

// GetHistory returns one page of a session's turns in chronological order.
func (c *Client) GetHistory(ctx context.Context, sessionID string, page, limit int) (*HistoryPage, error) {
	q := url.Values{}
	if page > 0 {
		q.Set("page", strconv.Itoa(page))
	}
	if limit > 0 {
		q.Set("limit", strconv.Itoa(limit))
	}
	path := "/chat/sessions/" + sessionID + "/history"
	if len(q) > 0 {
		path += "?" + q.Encode()
	}

	var hist HistoryPage
	if err := c.do(ctx, http.MethodGet, path, nil, &hist); err != nil {
		return nil, err
	}
	return &hist, nil
}

// AnswerResult is a completed question/answer exchange.
type AnswerResult struct {
	UserTurn      *models.Turn `json:"user_turn"`
	AssistantTurn *models.Turn `json:"assistant_turn"`
	Answer        string       `json:"answer"`
	Sources       []string     `json:"sources"`
}

// Ask sends a question and waits for the full answer.
func (c *Client) Ask(ctx context.Context, sessionID, content string) (*AnswerResult, error) {
	var result AnswerResult
	path := "/chat/sessions/" + sessionID + "/messages/bot"
	if err := c.do(ctx, http.MethodPost, path, messageRequest{Content: content}, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// StreamEvent is one frame of a streamed answer.
type StreamEvent struct {
	Type  string       `json:"type"`
	Turn  *models.Turn `json:"turn,omitempty"`
	Delta string       `json:"delta,omitempty"`
	Error string       `json:"error,omitempty"`
}

// AskStream sends a question and streams the answer as it is generated.
// The onEvent callback is invoked per frame; return an error to abort.
func (c *Client) AskStream(ctx context.Context, sessionID, content string, onEvent func(StreamEvent) error) error {
	raw, err := json.Marshal(messageRequest{Content: content})
	if err != nil {
		return fmt.Errorf("marshal request: %w", err)
	}

	path := c.baseURL + "/chat/sessions/" + sessionID + "/messages/stream"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, path, bytes.NewReader(raw))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("X-User-ID", c.userID)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("execute request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		raw, _ := io.ReadAll(resp.Body)
		var ae apiError
		if json.Unmarshal(raw, &ae) == nil && ae.Error != "" {
			return fmt.Errorf("server error (%d): %s", resp.StatusCode, ae.Error)
		}
		return fmt.Errorf("server error (%d)", resp.StatusCode)
	}

	scanner := bufio.NewScanner(resp.Body)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := bytes.TrimSpace(scanner.Bytes())
		if len(line) == 0 {
			continue
		}
		var ev StreamEvent
		if err := json.Unmarshal(line, &ev); err != nil {
			return fmt.Errorf("decode stream event: %w", err)
		}
		if ev.Type == "error" {
			return fmt.Errorf("stream error: %s", ev.Error)
		}
		if err := onEvent(ev); err != nil {
			return err
		}
	}
	return scanner.Err()
}

// AskStreamWS streams an answer over the WebSocket endpoint. The connection
// is opened per call and closed when the answer completes.
func (c *Client) AskStreamWS(ctx context.Context, sessionID, content string, onEvent func(StreamEvent) error) error {
	wsURL := c.baseURL
	wsURL = strings.Replace(wsURL, "http://", "ws://", 1)
	wsURL = strings.Replace(wsURL, "https://", "wss://", 1)
	wsURL += "/chat/sessions/" + sessionID + "/messages/ws"

	dialer := websocket.Dialer{HandshakeTimeout: 10 * time.Second}
	header := http.Header{}
	header.Set("X-User-ID", c.userID)

	conn, _, err := dialer.DialContext(ctx, wsURL, header)
	if err != nil {
		return fmt.Errorf("websocket connect: %w", err)
	}
	defer conn.Close()

	// Close the connection when the context is cancelled so the read loop
	// unblocks.
	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			conn.Close()
		case <-done:
		}
	}()

	if err := conn.WriteJSON(messageRequest{Content: content}); err != nil {
		return fmt.Errorf("send question: %w", err)
	}

	for {
		var ev StreamEvent
		if err := conn.ReadJSON(&ev); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return fmt.Errorf("read event: %w", err)
		}

		switch ev.Type {
		case "error":
			return fmt.Errorf("stream error: %s", ev.Error)
		case "done":
			return nil
		default:
			if err := onEvent(ev); err != nil {
				return err
			}
		}
	}
}

// DailyReport fetches (or generates) the daily clinical report for a date.
// Returns nil when the user has no messages on that date.
func (c *Client) DailyReport(ctx context.Context, date string) (*models.DailyReport, error) {
	var report models.DailyReport
	err := c.do(ctx, http.MethodGet, "/chat/daily-report/"+date, nil, &report)
	if err != nil {
		if strings.Contains(err.Error(), "(404)") {
			return nil, nil
		}
		return nil, err
	}
	return &report, nil
}

// ListReports returns daily reports, optionally bounded by dates (YYYY-MM-DD).
func (c *Client) ListReports(ctx context.Context, startDate, endDate string) ([]models.DailyReport, error) {
	q := url.Values{}
	if startDate != "" {
		q.Set("start_date", startDate)
	}
	if endDate != "" {
		q.Set("end_date", endDate)
	}
	path := "/chat/reports"
	if len(q) > 0 {
		path += "?" + q.Encode()
	}

	var reports []models.DailyReport
	if err := c.do(ctx, http.MethodGet, path, nil, &reports); err != nil {
		return nil, err
	}
	return reports, nil
}
