package db

import (
	"context"
	"fmt"
	"time"

	"github.com/surrealdb/surrealdb.go"

	"github.com/seon-creator/SSG-EDU-Project/internal/models"
)

// ---------------------------------------------------------------------------
// Sessions
// ---------------------------------------------------------------------------

// CreateSession persists a new chat session.
func (c *Client) CreateSession(ctx context.Context, id, userID, name string, startTime time.Time) (*models.Session, error) {
	sql := `
		CREATE type::record("session", $id) SET
			user_id = $user_id,
			name = $name,
			start_time = type::datetime($start_time)
		RETURN record::id(id) AS id, user_id, name, start_time, end_time
	`
	results, err := surrealdb.Query[[]models.Session](ctx, c.db, sql, map[string]any{
		"id":         id,
		"user_id":    userID,
		"name":       name,
		"start_time": startTime.UTC().Format(time.RFC3339Nano),
	})
	if err != nil {
		return nil, fmt.Errorf("create session: %w", wrapQueryError(err))
	}
	if results == nil || len(*results) == 0 || len((*results)[0].Result) == 0 {
		return nil, fmt.Errorf("create session: no result returned")
	}
	return &(*results)[0].Result[0], nil
}

// GetSession retrieves a session by ID. Returns nil if not found.
func (c *Client) GetSession(ctx context.Context, id string) (*models.Session, error) {
	results, err := surrealdb.Query[[]models.Session](ctx, c.db, `
		SELECT record::id(id) AS id, user_id, name, start_time, end_time
		FROM type::record("session", $id)
	`, map[string]any{"id": id})
	if err != nil {
		return nil, fmt.Errorf("get session: %w", err)
	}
	if results == nil || len(*results) == 0 || len((*results)[0].Result) == 0 {
		return nil, nil
	}
	return &(*results)[0].Result[0], nil
}

// ListSessions returns a user's sessions newest-first with skip/limit paging.
func (c *Client) ListSessions(ctx context.Context, userID string, skip, limit int) ([]models.Session, error) {
	results, err := surrealdb.Query[[]models.Session](ctx, c.db, `
		SELECT record::id(id) AS id, user_id, name, start_time, end_time
		FROM session
		WHERE user_id = $user_id
		ORDER BY start_time DESC
		LIMIT $limit START $skip
	`, map[string]any{"user_id": userID, "skip": skip, "limit": limit})
	if err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}
	if results == nil || len(*results) == 0 {
		return []models.Session{}, nil
	}
	return (*results)[0].Result, nil
}

// ListSessionsOverlapping returns the user's sessions whose active interval
// [start_time, end_time ?? +inf) intersects [start, end).
func (c *Client) ListSessionsOverlapping(ctx context.Context, userID string, start, end time.Time) ([]models.Session, error) {
	results, err := surrealdb.Query[[]models.Session](ctx, c.db, `
		SELECT record::id(id) AS id, user_id, name, start_time, end_time
		FROM session
		WHERE user_id = $user_id
			AND start_time < type::datetime($end)
			AND (end_time IS NONE OR end_time > type::datetime($start))
		ORDER BY start_time ASC
	`, map[string]any{
		"user_id": userID,
		"start":   start.UTC().Format(time.RFC3339Nano),
		"end":     end.UTC().Format(time.RFC3339Nano),
	})
	if err != nil {
		return nil, fmt.Errorf("list sessions overlapping: %w", err)
	}
	if results == nil || len(*results) == 0 {
		return []models.Session{}, nil
	}
	return (*results)[0].Result, nil
}

// UpdateSessionName renames a session. Returns ErrNotFound if the session
// does not exist.
func (c *Client) UpdateSessionName(ctx context.Context, id, name string) (*models.Session, error) {
	results, err := surrealdb.Query[[]models.Session](ctx, c.db, `
		UPDATE type::record("session", $id) SET name = $name
		RETURN record::id(id) AS id, user_id, name, start_time, end_time
	`, map[string]any{"id": id, "name": name})
	if err != nil {
		return nil, fmt.Errorf("update session name: %w", err)
	}
	if results == nil || len(*results) == 0 || len((*results)[0].Result) == 0 {
		return nil, fmt.Errorf("update session name: %w", ErrNotFound)
	}
	return &(*results)[0].Result[0], nil
}

// EndSession closes a session by stamping its end time. Returns ErrNotFound
// if the session does not exist.
func (c *Client) EndSession(ctx context.Context, id string, endTime time.Time) (*models.Session, error) {
	results, err := surrealdb.Query[[]models.Session](ctx, c.db, `
		UPDATE type::record("session", $id) SET end_time = type::datetime($end_time)
		RETURN record::id(id) AS id, user_id, name, start_time, end_time
	`, map[string]any{"id": id, "end_time": endTime.UTC().Format(time.RFC3339Nano)})
	if err != nil {
		return nil, fmt.Errorf("end session: %w", err)
	}
	if results == nil || len(*results) == 0 || len((*results)[0].Result) == 0 {
		return nil, fmt.Errorf("end session: %w", ErrNotFound)
	}
	return &(*results)[0].Result[0], nil
}

// DeleteSession removes a session and all of its turns.
func (c *Client) DeleteSession(ctx context.Context, id string) error {
	_, err := surrealdb.Query[any](ctx, c.db, `
		DELETE turn WHERE session_id = $id;
		DELETE type::record("session", $id);
	`, map[string]any{"id": id})
	if err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	return nil
}

// ---------------------------------------------------------------------------
// Turns
// ---------------------------------------------------------------------------

// AppendTurn persists a new turn. The caller is responsible for the
// alternation invariant and for assigning a strictly increasing timestamp.
func (c *Client) AppendTurn(ctx context.Context, turn *models.Turn) (*models.Turn, error) {
	sources := turn.Sources
	if sources == nil {
		sources = []string{}
	}
	sql := `
		CREATE type::record("turn", $id) SET
			session_id = $session_id,
			role = $role,
			content = $content,
			sources = $sources,
			created_at = type::datetime($created_at)
		RETURN record::id(id) AS id, session_id, role, content, sources, created_at
	`
	results, err := surrealdb.Query[[]models.Turn](ctx, c.db, sql, map[string]any{
		"id":         turn.ID,
		"session_id": turn.SessionID,
		"role":       string(turn.Role),
		"content":    turn.Content,
		"sources":    sources,
		"created_at": turn.CreatedAt.UTC().Format(time.RFC3339Nano),
	})
	if err != nil {
		return nil, fmt.Errorf("append turn: %w", wrapQueryError(err))
	}
	if results == nil || len(*results) == 0 || len((*results)[0].Result) == 0 {
		return nil, fmt.Errorf("append turn: no result returned")
	}
	return &(*results)[0].Result[0], nil
}

// ListTurns returns a session's turns in timestamp order with skip/limit
// paging.
func (c *Client) ListTurns(ctx context.Context, sessionID string, skip, limit int) ([]models.Turn, error) {
	results, err := surrealdb.Query[[]models.Turn](ctx, c.db, `
		SELECT record::id(id) AS id, session_id, role, content, sources, created_at
		FROM turn
		WHERE session_id = $session_id
		ORDER BY created_at ASC
		LIMIT $limit START $skip
	`, map[string]any{"session_id": sessionID, "skip": skip, "limit": limit})
	if err != nil {
		return nil, fmt.Errorf("list turns: %w", err)
	}
	if results == nil || len(*results) == 0 {
		return []models.Turn{}, nil
	}
	return (*results)[0].Result, nil
}

// ListTurnsBetween returns a session's turns with created_at in [start, end),
// in timestamp order.
func (c *Client) ListTurnsBetween(ctx context.Context, sessionID string, start, end time.Time) ([]models.Turn, error) {
	results, err := surrealdb.Query[[]models.Turn](ctx, c.db, `
		SELECT record::id(id) AS id, session_id, role, content, sources, created_at
		FROM turn
		WHERE session_id = $session_id
			AND created_at >= type::datetime($start)
			AND created_at < type::datetime($end)
		ORDER BY created_at ASC
	`, map[string]any{
		"session_id": sessionID,
		"start":      start.UTC().Format(time.RFC3339Nano),
		"end":        end.UTC().Format(time.RFC3339Nano),
	})
	if err != nil {
		return nil, fmt.Errorf("list turns between: %w", err)
	}
	if results == nil || len(*results) == 0 {
		return []models.Turn{}, nil
	}
	return (*results)[0].Result, nil
}

type countRow struct {
	Count int `json:"count"`
}

// CountTurns returns the number of turns in a session.
func (c *Client) CountTurns(ctx context.Context, sessionID string) (int, error) {
	results, err := surrealdb.Query[[]countRow](ctx, c.db, `
		SELECT count() FROM turn WHERE session_id = $session_id GROUP ALL
	`, map[string]any{"session_id": sessionID})
	if err != nil {
		return 0, fmt.Errorf("count turns: %w", err)
	}
	if results == nil || len(*results) == 0 || len((*results)[0].Result) == 0 {
		return 0, nil
	}
	return (*results)[0].Result[0].Count, nil
}

// LastTurn returns the most recent turn of a session, or nil for an empty
// session.
func (c *Client) LastTurn(ctx context.Context, sessionID string) (*models.Turn, error) {
	results, err := surrealdb.Query[[]models.Turn](ctx, c.db, `
		SELECT record::id(id) AS id, session_id, role, content, sources, created_at
		FROM turn
		WHERE session_id = $session_id
		ORDER BY created_at DESC
		LIMIT 1
	`, map[string]any{"session_id": sessionID})
	if err != nil {
		return nil, fmt.Errorf("last turn: %w", err)
	}
	if results == nil || len(*results) == 0 || len((*results)[0].Result) == 0 {
		return nil, nil
	}
	return &(*results)[0].Result[0], nil
}

// ---------------------------------------------------------------------------
// Daily reports
// ---------------------------------------------------------------------------

// GetDailyReport retrieves the report for (user, date). Returns nil if none
// exists.
func (c *Client) GetDailyReport(ctx context.Context, userID, date string) (*models.DailyReport, error) {
	results, err := surrealdb.Query[[]models.DailyReport](ctx, c.db, `
		SELECT record::id(id) AS id, user_id, report_date, symptoms, severity, diagnosis, advice, created_at
		FROM daily_report
		WHERE user_id = $user_id AND report_date = $date
		LIMIT 1
	`, map[string]any{"user_id": userID, "date": date})
	if err != nil {
		return nil, fmt.Errorf("get daily report: %w", err)
	}
	if results == nil || len(*results) == 0 || len((*results)[0].Result) == 0 {
		return nil, nil
	}
	return &(*results)[0].Result[0], nil
}

// CreateDailyReport inserts a report. The unique (user_id, report_date)
// index makes a concurrent duplicate insert fail with ErrAlreadyExists.
func (c *Client) CreateDailyReport(ctx context.Context, report *models.DailyReport) (*models.DailyReport, error) {
	sql := `
		CREATE type::record("daily_report", $id) SET
			user_id = $user_id,
			report_date = $report_date,
			symptoms = $symptoms,
			severity = $severity,
			diagnosis = $diagnosis,
			advice = $advice,
			created_at = type::datetime($created_at)
		RETURN record::id(id) AS id, user_id, report_date, symptoms, severity, diagnosis, advice, created_at
	`
	results, err := surrealdb.Query[[]models.DailyReport](ctx, c.db, sql, map[string]any{
		"id":          report.ID,
		"user_id":     report.UserID,
		"report_date": report.ReportDate,
		"symptoms":    report.Symptoms,
		"severity":    string(report.Severity),
		"diagnosis":   report.Diagnosis,
		"advice":      report.Advice,
		"created_at":  report.CreatedAt.UTC().Format(time.RFC3339Nano),
	})
	if err != nil {
		return nil, fmt.Errorf("create daily report: %w", wrapQueryError(err))
	}
	if results == nil || len(*results) == 0 || len((*results)[0].Result) == 0 {
		return nil, fmt.Errorf("create daily report: no result returned")
	}
	return &(*results)[0].Result[0], nil
}

// ListDailyReports returns a user's reports, optionally bounded by an
// inclusive [startDate, endDate] range, newest-first.
func (c *Client) ListDailyReports(ctx context.Context, userID string, startDate, endDate string) ([]models.DailyReport, error) {
	sql := `SELECT record::id(id) AS id, user_id, report_date, symptoms, severity, diagnosis, advice, created_at
		FROM daily_report WHERE user_id = $user_id`
	vars := map[string]any{"user_id": userID}
	if startDate != "" {
		sql += ` AND report_date >= $start`
		vars["start"] = startDate
	}
	if endDate != "" {
		sql += ` AND report_date <= $end`
		vars["end"] = endDate
	}
	sql += ` ORDER BY report_date DESC`

	results, err := surrealdb.Query[[]models.DailyReport](ctx, c.db, sql, vars)
	if err != nil {
		return nil, fmt.Errorf("list daily reports: %w", err)
	}
	if results == nil || len(*results) == 0 {
		return []models.DailyReport{}, nil
	}
	return (*results)[0].Result, nil
}

// ---------------------------------------------------------------------------
// Knowledge base
// ---------------------------------------------------------------------------

// GetDocumentBySource retrieves a document by its source path. Returns nil if
// none exists. Used by ingestion to skip unchanged files via content hash.
func (c *Client) GetDocumentBySource(ctx context.Context, source string) (*models.Document, error) {
	results, err := surrealdb.Query[[]models.Document](ctx, c.db, `
		SELECT record::id(id) AS id, title, source, hash, created_at
		FROM document WHERE source = $source LIMIT 1
	`, map[string]any{"source": source})
	if err != nil {
		return nil, fmt.Errorf("get document by source: %w", err)
	}
	if results == nil || len(*results) == 0 || len((*results)[0].Result) == 0 {
		return nil, nil
	}
	return &(*results)[0].Result[0], nil
}

// GetDocument retrieves a document by id. Returns nil if none exists.
func (c *Client) GetDocument(ctx context.Context, id string) (*models.Document, error) {
	results, err := surrealdb.Query[[]models.Document](ctx, c.db, `
		SELECT record::id(id) AS id, title, source, hash, created_at
		FROM type::record("document", $id)
	`, map[string]any{"id": id})
	if err != nil {
		return nil, fmt.Errorf("get document: %w", err)
	}
	if results == nil || len(*results) == 0 || len((*results)[0].Result) == 0 {
		return nil, nil
	}
	return &(*results)[0].Result[0], nil
}

// UpsertDocument creates or replaces a document record and removes any
// chunks of a previous version.
func (c *Client) UpsertDocument(ctx context.Context, doc *models.Document) (*models.Document, error) {
	sql := `
		DELETE chunk WHERE document_id = $id;
		UPSERT type::record("document", $id) SET
			title = $title,
			source = $source,
			hash = $hash,
			created_at = IF created_at THEN created_at ELSE time::now() END
		RETURN record::id(id) AS id, title, source, hash, created_at;
	`
	results, err := surrealdb.Query[[]models.Document](ctx, c.db, sql, map[string]any{
		"id":     doc.ID,
		"title":  doc.Title,
		"source": doc.Source,
		"hash":   doc.Hash,
	})
	if err != nil {
		return nil, fmt.Errorf("upsert document: %w", wrapQueryError(err))
	}
	if results == nil || len(*results) < 2 || len((*results)[1].Result) == 0 {
		return nil, fmt.Errorf("upsert document: no result returned")
	}
	return &(*results)[1].Result[0], nil
}

// CreateChunk persists one embedded chunk of a document.
func (c *Client) CreateChunk(ctx context.Context, chunk *models.Chunk) error {
	_, err := surrealdb.Query[any](ctx, c.db, `
		CREATE type::record("chunk", $id) SET
			document_id = $document_id,
			position = $position,
			content = $content,
			embedding = $embedding
	`, map[string]any{
		"id":          chunk.ID,
		"document_id": chunk.DocumentID,
		"position":    chunk.Position,
		"content":     chunk.Content,
		"embedding":   chunk.Embedding,
	})
	if err != nil {
		return fmt.Errorf("create chunk: %w", wrapQueryError(err))
	}
	return nil
}

// ChunkMatch is a retrieval hit with its similarity score.
type ChunkMatch struct {
	ID         string  `json:"id"`
	DocumentID string  `json:"document_id"`
	Position   int     `json:"position"`
	Content    string  `json:"content"`
	Score      float64 `json:"score"`
}

// SearchChunks performs KNN vector search over chunk embeddings.
// HNSW with ef=40 for better recall; ties keep insertion order via the
// secondary sort on position.
func (c *Client) SearchChunks(ctx context.Context, embedding []float32, k int) ([]ChunkMatch, error) {
	sql := fmt.Sprintf(`
		SELECT record::id(id) AS id, document_id, position, content,
			vector::similarity::cosine(embedding, $emb) AS score
		FROM chunk
		WHERE embedding <|%d,40|> $emb
		ORDER BY score DESC, position ASC
		LIMIT $limit
	`, k)
	results, err := surrealdb.Query[[]ChunkMatch](ctx, c.db, sql, map[string]any{
		"emb":   embedding,
		"limit": k,
	})
	if err != nil {
		return nil, fmt.Errorf("search chunks: %w", err)
	}
	if results == nil || len(*results) == 0 {
		return []ChunkMatch{}, nil
	}
	return (*results)[0].Result, nil
}

// SearchChunksKeyword performs BM25 full-text search over chunk content.
// Used when no embedder is configured.
func (c *Client) SearchChunksKeyword(ctx context.Context, query string, k int) ([]ChunkMatch, error) {
	results, err := surrealdb.Query[[]ChunkMatch](ctx, c.db, `
		SELECT record::id(id) AS id, document_id, position, content, search::score(0) AS score
		FROM chunk
		WHERE content @0@ $q
		ORDER BY score DESC, position ASC
		LIMIT $limit
	`, map[string]any{"q": query, "limit": k})
	if err != nil {
		return nil, fmt.Errorf("search chunks keyword: %w", err)
	}
	if results == nil || len(*results) == 0 {
		return []ChunkMatch{}, nil
	}
	return (*results)[0].Result, nil
}

// CountChunks returns the number of chunks in the knowledge base.
func (c *Client) CountChunks(ctx context.Context) (int, error) {
	results, err := surrealdb.Query[[]countRow](ctx, c.db, `
		SELECT count() FROM chunk GROUP ALL
	`, nil)
	if err != nil {
		return 0, fmt.Errorf("count chunks: %w", err)
	}
	if results == nil || len(*results) == 0 || len((*results)[0].Result) == 0 {
		return 0, nil
	}
	return (*results)[0].Result[0].Count, nil
}
