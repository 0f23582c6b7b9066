package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/seon-creator/SSG-EDU-Project/internal/db"
	"github.com/seon-creator/SSG-EDU-Project/internal/models"
)

// ChatService implements the conversational pipeline: sessions, turns,
// retrieval-augmented answers and streaming.
type ChatService struct {
	store      Store
	retriever  Retriever
	model      Generator
	titleModel Generator
	locks      *sessionLocks

	genTimeout    time.Duration
	streamTimeout time.Duration
}

// NewChatService creates the chat service. titleModel may be the same
// Generator as model; it backs the cheaper title calls.
func NewChatService(store Store, retriever Retriever, model, titleModel Generator, genTimeout, streamTimeout time.Duration) *ChatService {
	if genTimeout <= 0 {
		genTimeout = 60 * time.Second
	}
	if streamTimeout <= 0 {
		streamTimeout = 5 * time.Minute
	}
	return &ChatService{
		store:         store,
		retriever:     retriever,
		model:         model,
		titleModel:    titleModel,
		locks:         newSessionLocks(),
		genTimeout:    genTimeout,
		streamTimeout: streamTimeout,
	}
}

// CreateSession opens a new session for the user. An empty name gets the
// default display name.
func (s *ChatService) CreateSession(ctx context.Context, userID, name string) (*models.Session, error) {
	if strings.TrimSpace(userID) == "" {
		return nil, fmt.Errorf("%w: user id required", ErrValidation)
	}

	now := time.Now().UTC()
	name = strings.TrimSpace(name)
	if name == "" {
		name = models.DefaultSessionName(now)
	}

	session, err := s.store.CreateSession(ctx, uuid.NewString(), userID, name, now)
	if err != nil {
		return nil, fmt.Errorf("create session: %w", err)
	}
	return session, nil
}

// GetSession returns the session after an ownership check.
func (s *ChatService) GetSession(ctx context.Context, sessionID, userID string) (*models.Session, error) {
	return s.authorize(ctx, sessionID, userID)
}

// ListSessions returns the user's sessions, newest first.
func (s *ChatService) ListSessions(ctx context.Context, userID string, skip, limit int) ([]models.Session, error) {
	if skip < 0 || limit < 0 {
		return nil, fmt.Errorf("%w: negative skip or limit", ErrValidation)
	}
	if limit == 0 {
		limit = 50
	}
	sessions, err := s.store.ListSessions(ctx, userID, skip, limit)
	if err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}
	return sessions, nil
}

// RenameSession updates the session's display name.
func (s *ChatService) RenameSession(ctx context.Context, sessionID, userID, name string) (*models.Session, error) {
	if _, err := s.authorize(ctx, sessionID, userID); err != nil {
		return nil, err
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, fmt.Errorf("%w: session name required", ErrValidation)
	}
	session, err := s.store.UpdateSessionName(ctx, sessionID, name)
	if err != nil {
		// The session can disappear between the ownership check and the
		// update when a delete races in.
		if errors.Is(err, db.ErrNotFound) {
			return nil, fmt.Errorf("%w: session %s", ErrNotFound, sessionID)
		}
		return nil, fmt.Errorf("rename session: %w", err)
	}
	return session, nil
}

// EndSession closes the session's active interval.
func (s *ChatService) EndSession(ctx context.Context, sessionID, userID string) (*models.Session, error) {
	if _, err := s.authorize(ctx, sessionID, userID); err != nil {
		return nil, err
	}
	session, err := s.store.EndSession(ctx, sessionID, time.Now().UTC())
	if err != nil {
		if errors.Is(err, db.ErrNotFound) {
			return nil, fmt.Errorf("%w: session %s", ErrNotFound, sessionID)
		}
		return nil, fmt.Errorf("end session: %w", err)
	}
	return session, nil
}

// DeleteSession removes the session and all of its turns.
func (s *ChatService) DeleteSession(ctx context.Context, sessionID, userID string) error {
	if _, err := s.authorize(ctx, sessionID, userID); err != nil {
		return err
	}
	if err := s.store.DeleteSession(ctx, sessionID); err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	return nil
}

// CreateTurn appends a turn without invoking the model. The role must
// continue the session's alternation.
func (s *ChatService) CreateTurn(ctx context.Context, sessionID, userID string, role models.Role, content string) (*models.Turn, error) {
	if _, err := s.authorize(ctx, sessionID, userID); err != nil {
		return nil, err
	}
	if !role.Valid() {
		return nil, fmt.Errorf("%w: unknown role %q", ErrValidation, role)
	}
	content, err := validateTurnContent(content)
	if err != nil {
		return nil, err
	}

	release := s.locks.acquire(sessionID)
	defer release()

	return s.appendTurnLocked(ctx, sessionID, role, content, nil)
}

// HistoryPage is one page of a session's turn log.
type HistoryPage struct {
	Turns   []models.Turn `json:"turns"`
	Total   int           `json:"total"`
	HasMore bool          `json:"has_more"`
}

// DefaultHistoryLimit is the page size when the caller does not specify one.
const DefaultHistoryLimit = 200

// GetHistory returns one page of turns in ascending timestamp order.
// Pages are 1-based.
func (s *ChatService) GetHistory(ctx context.Context, sessionID, userID string, page, limit int) (*HistoryPage, error) {
	if _, err := s.authorize(ctx, sessionID, userID); err != nil {
		return nil, err
	}
	if page < 1 {
		return nil, fmt.Errorf("%w: page must be >= 1", ErrValidation)
	}
	if limit < 0 {
		return nil, fmt.Errorf("%w: negative limit", ErrValidation)
	}
	if limit == 0 || limit > DefaultHistoryLimit {
		limit = DefaultHistoryLimit
	}

	total, err := s.store.CountTurns(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("count turns: %w", err)
	}

	skip := (page - 1) * limit
	turns := []models.Turn{}
	if skip < total {
		turns, err = s.store.ListTurns(ctx, sessionID, skip, limit)
		if err != nil {
			return nil, fmt.Errorf("list turns: %w", err)
		}
	}

	return &HistoryPage{
		Turns:   turns,
		Total:   total,
		HasMore: skip+len(turns) < total,
	}, nil
}

// authorize loads the session and checks ownership.
func (s *ChatService) authorize(ctx context.Context, sessionID, userID string) (*models.Session, error) {
	if strings.TrimSpace(sessionID) == "" || strings.TrimSpace(userID) == "" {
		return nil, fmt.Errorf("%w: session id and user id required", ErrValidation)
	}
	session, err := s.store.GetSession(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("get session: %w", err)
	}
	if session == nil {
		return nil, fmt.Errorf("%w: session %s", ErrNotFound, sessionID)
	}
	if session.UserID != userID {
		return nil, fmt.Errorf("%w: session %s", ErrUnauthorized, sessionID)
	}
	return session, nil
}
