package service

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/seon-creator/SSG-EDU-Project/internal/db"
	"github.com/seon-creator/SSG-EDU-Project/internal/llm"
	"github.com/seon-creator/SSG-EDU-Project/internal/models"
)

// fakeStore is an in-memory Store for unit tests.
type fakeStore struct {
	mu       sync.Mutex
	sessions map[string]*models.Session
	turns    map[string][]models.Turn
	reports  map[string]*models.DailyReport
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		sessions: map[string]*models.Session{},
		turns:    map[string][]models.Turn{},
		reports:  map[string]*models.DailyReport{},
	}
}

func (f *fakeStore) CreateSession(ctx context.Context, id, userID, name string, startTime time.Time) (*models.Session, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	session := &models.Session{ID: id, UserID: userID, Name: name, StartTime: startTime}
	f.sessions[id] = session
	copied := *session
	return &copied, nil
}

func (f *fakeStore) GetSession(ctx context.Context, id string) (*models.Session, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	session, ok := f.sessions[id]
	if !ok {
		return nil, nil
	}
	copied := *session
	return &copied, nil
}

func (f *fakeStore) ListSessions(ctx context.Context, userID string, skip, limit int) ([]models.Session, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []models.Session
	for _, s := range f.sessions {
		if s.UserID == userID {
			out = append(out, *s)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].StartTime.After(out[j].StartTime) })
	return page(out, skip, limit), nil
}

func (f *fakeStore) ListSessionsOverlapping(ctx context.Context, userID string, start, end time.Time) ([]models.Session, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []models.Session
	for _, s := range f.sessions {
		if s.UserID == userID && s.ActiveDuring(start, end) {
			out = append(out, *s)
		}
	}
	return out, nil
}

func (f *fakeStore) UpdateSessionName(ctx context.Context, id, name string) (*models.Session, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	session, ok := f.sessions[id]
	if !ok {
		return nil, fmt.Errorf("update session name: %w", db.ErrNotFound)
	}
	session.Name = name
	copied := *session
	return &copied, nil
}

func (f *fakeStore) EndSession(ctx context.Context, id string, endTime time.Time) (*models.Session, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	session, ok := f.sessions[id]
	if !ok {
		return nil, fmt.Errorf("end session: %w", db.ErrNotFound)
	}
	session.EndTime = &endTime
	copied := *session
	return &copied, nil
}

func (f *fakeStore) DeleteSession(ctx context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.sessions, id)
	delete(f.turns, id)
	return nil
}

func (f *fakeStore) AppendTurn(ctx context.Context, turn *models.Turn) (*models.Turn, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	copied := *turn
	f.turns[turn.SessionID] = append(f.turns[turn.SessionID], copied)
	return &copied, nil
}

func (f *fakeStore) sortedTurns(sessionID string) []models.Turn {
	turns := append([]models.Turn(nil), f.turns[sessionID]...)
	sort.Slice(turns, func(i, j int) bool { return turns[i].CreatedAt.Before(turns[j].CreatedAt) })
	return turns
}

func (f *fakeStore) ListTurns(ctx context.Context, sessionID string, skip, limit int) ([]models.Turn, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return page(f.sortedTurns(sessionID), skip, limit), nil
}

func (f *fakeStore) ListTurnsBetween(ctx context.Context, sessionID string, start, end time.Time) ([]models.Turn, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []models.Turn
	for _, t := range f.sortedTurns(sessionID) {
		if !t.CreatedAt.Before(start) && t.CreatedAt.Before(end) {
			out = append(out, t)
		}
	}
	return out, nil
}

func (f *fakeStore) CountTurns(ctx context.Context, sessionID string) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.turns[sessionID]), nil
}

func (f *fakeStore) LastTurn(ctx context.Context, sessionID string) (*models.Turn, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	turns := f.sortedTurns(sessionID)
	if len(turns) == 0 {
		return nil, nil
	}
	last := turns[len(turns)-1]
	return &last, nil
}

func reportKey(userID, date string) string { return userID + "|" + date }

func (f *fakeStore) GetDailyReport(ctx context.Context, userID, date string) (*models.DailyReport, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	report, ok := f.reports[reportKey(userID, date)]
	if !ok {
		return nil, nil
	}
	copied := *report
	return &copied, nil
}

func (f *fakeStore) CreateDailyReport(ctx context.Context, report *models.DailyReport) (*models.DailyReport, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	key := reportKey(report.UserID, report.ReportDate)
	if _, exists := f.reports[key]; exists {
		return nil, fmt.Errorf("%w: duplicate report", db.ErrAlreadyExists)
	}
	copied := *report
	f.reports[key] = &copied
	returned := copied
	return &returned, nil
}

func (f *fakeStore) ListDailyReports(ctx context.Context, userID string, startDate, endDate string) ([]models.DailyReport, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []models.DailyReport
	for _, r := range f.reports {
		if r.UserID != userID {
			continue
		}
		if startDate != "" && r.ReportDate < startDate {
			continue
		}
		if endDate != "" && r.ReportDate > endDate {
			continue
		}
		out = append(out, *r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ReportDate > out[j].ReportDate })
	return out, nil
}

func page[T any](items []T, skip, limit int) []T {
	if skip >= len(items) {
		return []T{}
	}
	items = items[skip:]
	if limit > 0 && limit < len(items) {
		items = items[:limit]
	}
	return append([]T{}, items...)
}

// fakeGenerator is a deterministic Generator test double with call counting.
type fakeGenerator struct {
	mu        sync.Mutex
	response  string
	err       error
	deltas    []string
	streamErr error

	// block, when non-nil, makes Chat wait until the channel is closed
	block chan struct{}

	// genBlock, when non-nil, makes GenerateWithSystem signal genStarted
	// and wait until the channel is closed
	genBlock   chan struct{}
	genStarted chan struct{}

	chatCalls   int
	genCalls    int
	streamCalls int
}

func (g *fakeGenerator) Chat(ctx context.Context, messages []llm.Message) (string, error) {
	g.mu.Lock()
	g.chatCalls++
	block := g.block
	g.mu.Unlock()

	if block != nil {
		select {
		case <-block:
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}
	if g.err != nil {
		return "", g.err
	}
	return g.response, nil
}

func (g *fakeGenerator) Generate(ctx context.Context, prompt string) (string, error) {
	g.mu.Lock()
	g.genCalls++
	g.mu.Unlock()
	if g.err != nil {
		return "", g.err
	}
	return g.response, nil
}

func (g *fakeGenerator) GenerateWithSystem(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	g.mu.Lock()
	g.genCalls++
	block := g.genBlock
	started := g.genStarted
	g.mu.Unlock()

	if started != nil {
		select {
		case started <- struct{}{}:
		default:
		}
	}
	if block != nil {
		select {
		case <-block:
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}
	if g.err != nil {
		return "", g.err
	}
	return g.response, nil
}

func (g *fakeGenerator) ChatStream(ctx context.Context, messages []llm.Message) (<-chan string, <-chan error) {
	g.mu.Lock()
	g.streamCalls++
	g.mu.Unlock()

	contentChan := make(chan string)
	errChan := make(chan error, 1)
	go func() {
		defer close(contentChan)
		defer close(errChan)
		for _, delta := range g.deltas {
			select {
			case contentChan <- delta:
			case <-ctx.Done():
				errChan <- ctx.Err()
				return
			}
		}
		if g.streamErr != nil {
			errChan <- g.streamErr
		}
	}()
	return contentChan, errChan
}

func (g *fakeGenerator) counts() (chat, gen, stream int) {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.chatCalls, g.genCalls, g.streamCalls
}

// fakeRetriever returns fixed fragments.
type fakeRetriever struct {
	fragments []models.Fragment
	err       error
}

func (r *fakeRetriever) Retrieve(ctx context.Context, query string) ([]models.Fragment, error) {
	if r.err != nil {
		return nil, r.err
	}
	return r.fragments, nil
}

func newTestChatService(store Store, gen *fakeGenerator, retriever Retriever) *ChatService {
	if retriever == nil {
		retriever = &fakeRetriever{}
	}
	return NewChatService(store, retriever, gen, gen, time.Second, time.Second)
}

func assertAlternating(turns []models.Turn) error {
	for i, turn := range turns {
		want := models.RoleUser
		if i%2 == 1 {
			want = models.RoleAssistant
		}
		if turn.Role != want {
			return fmt.Errorf("turn %d: role %s, want %s", i, turn.Role, want)
		}
		if i > 0 && !turns[i].CreatedAt.After(turns[i-1].CreatedAt) {
			return fmt.Errorf("turn %d: timestamp not strictly increasing", i)
		}
	}
	return nil
}
