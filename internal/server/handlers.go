package server

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/seon-creator/SSG-EDU-Project/internal/metrics"
	"github.com/seon-creator/SSG-EDU-Project/internal/models"
)

type handlers struct {
	chat    ChatAPI
	reports ReportAPI
	logger  *slog.Logger
	stats   *metrics.Collector
}

type sessionRequest struct {
	Name string `json:"name"`
}

type messageRequest struct {
	Content string `json:"content"`
}

func decodeBody(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return false
	}
	return true
}

func queryInt(r *http.Request, key string, fallback int) int {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return fallback
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	return n
}

func (h *handlers) createSession(w http.ResponseWriter, r *http.Request) {
	var req sessionRequest
	if !decodeBody(w, r, &req) {
		return
	}

	session, err := h.chat.CreateSession(r.Context(), userID(r), req.Name)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, session)
}

func (h *handlers) listSessions(w http.ResponseWriter, r *http.Request) {
	skip := queryInt(r, "skip", 0)
	limit := queryInt(r, "limit", 0)

	sessions, err := h.chat.ListSessions(r.Context(), userID(r), skip, limit)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	if sessions == nil {
		sessions = []models.Session{}
	}
	respondJSON(w, http.StatusOK, sessions)
}

func (h *handlers) getSession(w http.ResponseWriter, r *http.Request) {
	session, err := h.chat.GetSession(r.Context(), chi.URLParam(r, "sessionID"), userID(r))
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, session)
}

func (h *handlers) renameSession(w http.ResponseWriter, r *http.Request) {
	var req sessionRequest
	if !decodeBody(w, r, &req) {
		return
	}

	session, err := h.chat.RenameSession(r.Context(), chi.URLParam(r, "sessionID"), userID(r), req.Name)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, session)
}

func (h *handlers) deleteSession(w http.ResponseWriter, r *http.Request) {
	if err := h.chat.DeleteSession(r.Context(), chi.URLParam(r, "sessionID"), userID(r)); err != nil {
		respondServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *handlers) endSession(w http.ResponseWriter, r *http.Request) {
	session, err := h.chat.EndSession(r.Context(), chi.URLParam(r, "sessionID"), userID(r))
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, session)
}

func (h *handlers) titleSession(w http.ResponseWriter, r *http.Request) {
	session, err := h.chat.TitleSession(r.Context(), chi.URLParam(r, "sessionID"), userID(r))
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, session)
}

func (h *handlers) getHistory(w http.ResponseWriter, r *http.Request) {
	page := queryInt(r, "page", 1)
	limit := queryInt(r, "limit", 0)

	start := time.Now()
	history, err := h.chat.GetHistory(r.Context(), chi.URLParam(r, "sessionID"), userID(r), page, limit)
	h.stats.Record(metrics.OpHistory, time.Since(start), err != nil)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, history)
}

func (h *handlers) createUserTurn(w http.ResponseWriter, r *http.Request) {
	var req messageRequest
	if !decodeBody(w, r, &req) {
		return
	}

	turn, err := h.chat.CreateTurn(r.Context(), chi.URLParam(r, "sessionID"), userID(r), models.RoleUser, req.Content)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, turn)
}

func (h *handlers) getAnswer(w http.ResponseWriter, r *http.Request) {
	var req messageRequest
	if !decodeBody(w, r, &req) {
		return
	}

	start := time.Now()
	result, err := h.chat.GetAnswer(r.Context(), chi.URLParam(r, "sessionID"), userID(r), req.Content)
	h.stats.Record(metrics.OpChatAnswer, time.Since(start), err != nil)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, result)
}

func (h *handlers) getDailyReport(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	report, generated, err := h.reports.GetOrCreateDailyReport(r.Context(), userID(r), chi.URLParam(r, "date"))
	h.stats.Record(metrics.OpReport, time.Since(start), err != nil)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	if report == nil {
		respondError(w, http.StatusNotFound, "no messages recorded for that date")
		return
	}

	status := http.StatusOK
	if generated {
		status = http.StatusCreated
	}
	respondJSON(w, status, report)
}

func (h *handlers) listReports(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	reports, err := h.reports.ListReports(r.Context(), userID(r), q.Get("start_date"), q.Get("end_date"))
	if err != nil {
		respondServiceError(w, err)
		return
	}
	if reports == nil {
		reports = []models.DailyReport{}
	}
	respondJSON(w, http.StatusOK, reports)
}
