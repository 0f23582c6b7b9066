// Package server exposes the chat and report services over HTTP.
package server

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/seon-creator/SSG-EDU-Project/internal/metrics"
	"github.com/seon-creator/SSG-EDU-Project/internal/models"
	"github.com/seon-creator/SSG-EDU-Project/internal/service"
)

// ChatAPI is the chat service surface the handlers consume.
type ChatAPI interface {
	CreateSession(ctx context.Context, userID, name string) (*models.Session, error)
	GetSession(ctx context.Context, sessionID, userID string) (*models.Session, error)
	ListSessions(ctx context.Context, userID string, skip, limit int) ([]models.Session, error)
	RenameSession(ctx context.Context, sessionID, userID, name string) (*models.Session, error)
	EndSession(ctx context.Context, sessionID, userID string) (*models.Session, error)
	DeleteSession(ctx context.Context, sessionID, userID string) error
	CreateTurn(ctx context.Context, sessionID, userID string, role models.Role, content string) (*models.Turn, error)
	GetAnswer(ctx context.Context, sessionID, userID, content string) (*service.AnswerResult, error)
	StreamAnswer(ctx context.Context, sessionID, userID, content string) (<-chan service.Event, <-chan error)
	GetHistory(ctx context.Context, sessionID, userID string, page, limit int) (*service.HistoryPage, error)
	TitleSession(ctx context.Context, sessionID, userID string) (*models.Session, error)
}

// ReportAPI is the report service surface the handlers consume.
type ReportAPI interface {
	GetOrCreateDailyReport(ctx context.Context, userID, date string) (*models.DailyReport, bool, error)
	ListReports(ctx context.Context, userID, startDate, endDate string) ([]models.DailyReport, error)
}

// Server is the HTTP front of the chat backend.
type Server struct {
	http   *http.Server
	logger *slog.Logger
}

// New builds the server with all routes wired.
func New(addr string, chat ChatAPI, reports ReportAPI, logger *slog.Logger) *Server {
	h := &handlers{chat: chat, reports: reports, logger: logger, stats: metrics.NewCollector()}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger(logger))
	r.Use(middleware.Recoverer)

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Get("/stats", func(w http.ResponseWriter, _ *http.Request) {
		respondJSON(w, http.StatusOK, h.stats.Snapshot())
	})

	r.Route("/chat", func(cr chi.Router) {
		cr.Use(requireUser)

		cr.Post("/sessions", h.createSession)
		cr.Get("/sessions", h.listSessions)
		cr.Route("/sessions/{sessionID}", func(sr chi.Router) {
			sr.Get("/", h.getSession)
			sr.Patch("/", h.renameSession)
			sr.Delete("/", h.deleteSession)
			sr.Post("/end", h.endSession)
			sr.Post("/title", h.titleSession)
			sr.Get("/history", h.getHistory)
			sr.Post("/messages/user", h.createUserTurn)
			sr.Post("/messages/bot", h.getAnswer)
			sr.Post("/messages/stream", h.streamAnswer)
			sr.Get("/messages/ws", h.streamAnswerWS)
		})

		cr.Get("/daily-report/{date}", h.getDailyReport)
		cr.Get("/reports", h.listReports)
	})

	return &Server{
		http: &http.Server{
			Addr:              addr,
			Handler:           r,
			ReadHeaderTimeout: 10 * time.Second,
		},
		logger: logger,
	}
}

// Run serves until the context is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	errChan := make(chan error, 1)
	go func() {
		s.logger.Info("HTTP server listening", "addr", s.http.Addr)
		if err := s.http.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errChan <- err
		}
	}()

	select {
	case err := <-errChan:
		return err
	case <-ctx.Done():
	}

	s.logger.Info("shutting down HTTP server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	return s.http.Shutdown(shutdownCtx)
}

// Handler returns the underlying handler, used by tests.
func (s *Server) Handler() http.Handler {
	return s.http.Handler
}
