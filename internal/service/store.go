package service

import (
	"context"
	"time"

	"github.com/seon-creator/SSG-EDU-Project/internal/llm"
	"github.com/seon-creator/SSG-EDU-Project/internal/models"
)

// Store is the session/turn/report persistence surface consumed by the
// services. *db.Client satisfies it.
type Store interface {
	CreateSession(ctx context.Context, id, userID, name string, startTime time.Time) (*models.Session, error)
	GetSession(ctx context.Context, id string) (*models.Session, error)
	ListSessions(ctx context.Context, userID string, skip, limit int) ([]models.Session, error)
	ListSessionsOverlapping(ctx context.Context, userID string, start, end time.Time) ([]models.Session, error)
	UpdateSessionName(ctx context.Context, id, name string) (*models.Session, error)
	EndSession(ctx context.Context, id string, endTime time.Time) (*models.Session, error)
	DeleteSession(ctx context.Context, id string) error

	AppendTurn(ctx context.Context, turn *models.Turn) (*models.Turn, error)
	ListTurns(ctx context.Context, sessionID string, skip, limit int) ([]models.Turn, error)
	ListTurnsBetween(ctx context.Context, sessionID string, start, end time.Time) ([]models.Turn, error)
	CountTurns(ctx context.Context, sessionID string) (int, error)
	LastTurn(ctx context.Context, sessionID string) (*models.Turn, error)

	GetDailyReport(ctx context.Context, userID, date string) (*models.DailyReport, error)
	CreateDailyReport(ctx context.Context, report *models.DailyReport) (*models.DailyReport, error)
	ListDailyReports(ctx context.Context, userID string, startDate, endDate string) ([]models.DailyReport, error)
}

// Retriever finds knowledge fragments for a query. *knowledge.Retriever
// satisfies it.
type Retriever interface {
	Retrieve(ctx context.Context, query string) ([]models.Fragment, error)
}

// Generator is the generative-model surface consumed by the services.
// *llm.Model satisfies it.
type Generator interface {
	Chat(ctx context.Context, messages []llm.Message) (string, error)
	ChatStream(ctx context.Context, messages []llm.Message) (<-chan string, <-chan error)
	Generate(ctx context.Context, prompt string) (string, error)
	GenerateWithSystem(ctx context.Context, systemPrompt, userPrompt string) (string, error)
}
