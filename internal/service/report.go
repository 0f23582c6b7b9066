package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/singleflight"

	"github.com/seon-creator/SSG-EDU-Project/internal/db"
	"github.com/seon-creator/SSG-EDU-Project/internal/models"
)

// ReportService derives structured daily clinical reports from a user's
// messages. At most one report exists per (user, date); creation is an
// idempotent find-or-create.
type ReportService struct {
	store   Store
	model   Generator
	group   singleflight.Group
	timeout time.Duration
}

// NewReportService creates the report service. The model is typically the
// cheaper extraction model.
func NewReportService(store Store, model Generator, timeout time.Duration) *ReportService {
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	return &ReportService{store: store, model: model, timeout: timeout}
}

// aggregateSeparator joins turn contents into the day's aggregate text.
const aggregateSeparator = "\n"

// MessagesForUserOnDate concatenates all of the user's turn contents for one
// UTC calendar day, across every session active on that day, in timestamp
// order. The second return value is false when the day has no messages; that
// is a normal outcome, not an error.
func (s *ReportService) MessagesForUserOnDate(ctx context.Context, userID, date string) (string, bool, error) {
	day, err := models.ParseReportDate(date)
	if err != nil {
		return "", false, fmt.Errorf("%w: %v", ErrValidation, err)
	}
	start, end := models.DayInterval(day)

	sessions, err := s.store.ListSessionsOverlapping(ctx, userID, start, end)
	if err != nil {
		return "", false, fmt.Errorf("list sessions: %w", err)
	}

	var turns []models.Turn
	for _, session := range sessions {
		sessionTurns, err := s.store.ListTurnsBetween(ctx, session.ID, start, end)
		if err != nil {
			return "", false, fmt.Errorf("list turns for session %s: %w", session.ID, err)
		}
		turns = append(turns, sessionTurns...)
	}

	if len(turns) == 0 {
		return "", false, nil
	}

	sort.Slice(turns, func(i, j int) bool {
		return turns[i].CreatedAt.Before(turns[j].CreatedAt)
	})

	contents := make([]string, len(turns))
	for i, t := range turns {
		contents[i] = t.Content
	}
	return strings.Join(contents, aggregateSeparator), true, nil
}

const reportSystemPrompt = `You extract structured clinical summaries from a patient's chat messages.
Respond with exactly one JSON object and nothing else, matching this schema:
{"symptoms": ["..."], "severity": "low" | "medium" | "high", "diagnosis": "...", "advice": ["..."]}
Rules:
- symptoms: the symptoms the patient mentioned, as short phrases
- severity: your overall assessment of the day
- diagnosis: one cautious sentence; this is a preliminary impression, not a medical diagnosis
- advice: concrete recommendations for the patient
Do not wrap the JSON in markdown fences or add commentary.`

// GetOrCreateDailyReport returns the user's report for the given date,
// generating and persisting it if absent. The second return value is true
// only when this call generated the report. A (nil, false, nil) return means
// the user had no messages that day and there is nothing to report.
//
// Concurrent calls for the same (user, date) are collapsed in-process via
// singleflight; across processes the store's unique index decides the winner
// and the loser re-reads the winner's report.
func (s *ReportService) GetOrCreateDailyReport(ctx context.Context, userID, date string) (*models.DailyReport, bool, error) {
	if strings.TrimSpace(userID) == "" {
		return nil, false, fmt.Errorf("%w: user id required", ErrValidation)
	}
	if _, err := models.ParseReportDate(date); err != nil {
		return nil, false, fmt.Errorf("%w: %v", ErrValidation, err)
	}

	// Fast path: already generated.
	existing, err := s.store.GetDailyReport(ctx, userID, date)
	if err != nil {
		return nil, false, fmt.Errorf("get report: %w", err)
	}
	if existing != nil {
		return existing, false, nil
	}

	type outcome struct {
		report    *models.DailyReport
		generated bool
	}

	// leader is written only inside the flight callback, which singleflight
	// runs on this goroutine when this call is the flight leader. Followers
	// never execute the callback, so their leader stays false.
	key := userID + "|" + date
	leader := false
	v, err, _ := s.group.Do(key, func() (any, error) {
		leader = true
		// Re-check under the flight: another call may have just persisted.
		existing, err := s.store.GetDailyReport(ctx, userID, date)
		if err != nil {
			return nil, fmt.Errorf("get report: %w", err)
		}
		if existing != nil {
			return outcome{report: existing}, nil
		}

		aggregate, found, err := s.MessagesForUserOnDate(ctx, userID, date)
		if err != nil {
			return nil, err
		}
		if !found {
			return outcome{}, nil
		}

		report, err := s.synthesize(ctx, userID, date, aggregate)
		if err != nil {
			return nil, err
		}
		return outcome{report: report, generated: true}, nil
	})
	if err != nil {
		return nil, false, err
	}

	out := v.(outcome)
	return out.report, out.generated && leader, nil
}

// synthesize runs the extraction model call and persists the result. A
// unique-index conflict means another process won the race; its report is
// returned instead.
func (s *ReportService) synthesize(ctx context.Context, userID, date, aggregate string) (*models.DailyReport, error) {
	genCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	raw, err := s.model.GenerateWithSystem(genCtx, reportSystemPrompt,
		fmt.Sprintf("Patient messages for %s:\n%s", date, aggregate))
	if err != nil {
		return nil, fmt.Errorf("%w: generate report: %v", ErrUpstream, err)
	}

	fields, err := parseReportFields(raw)
	if err != nil {
		return nil, err
	}

	report, err := s.store.CreateDailyReport(ctx, &models.DailyReport{
		ID:         uuid.NewString(),
		UserID:     userID,
		ReportDate: date,
		Symptoms:   fields.Symptoms,
		Severity:   fields.Severity,
		Diagnosis:  fields.Diagnosis,
		Advice:     fields.Advice,
		CreatedAt:  time.Now().UTC(),
	})
	if err != nil {
		if errors.Is(err, db.ErrAlreadyExists) {
			winner, readErr := s.store.GetDailyReport(ctx, userID, date)
			if readErr != nil {
				return nil, fmt.Errorf("re-read report after conflict: %w", readErr)
			}
			if winner == nil {
				return nil, fmt.Errorf("report conflict but no winner found: %w", err)
			}
			return winner, nil
		}
		return nil, fmt.Errorf("create report: %w", err)
	}
	return report, nil
}

// ListReports returns the user's reports, newest first, optionally bounded
// by an inclusive date range.
func (s *ReportService) ListReports(ctx context.Context, userID, startDate, endDate string) ([]models.DailyReport, error) {
	if strings.TrimSpace(userID) == "" {
		return nil, fmt.Errorf("%w: user id required", ErrValidation)
	}
	for _, d := range []string{startDate, endDate} {
		if d == "" {
			continue
		}
		if _, err := models.ParseReportDate(d); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrValidation, err)
		}
	}

	reports, err := s.store.ListDailyReports(ctx, userID, startDate, endDate)
	if err != nil {
		return nil, fmt.Errorf("list reports: %w", err)
	}
	return reports, nil
}

// reportFields is the schema the extraction model must produce. Pointer
// fields distinguish absent keys from empty values; absence is an extraction
// failure, never silently defaulted.
type reportFields struct {
	Symptoms  *[]string `json:"symptoms"`
	Severity  *string   `json:"severity"`
	Diagnosis *string   `json:"diagnosis"`
	Advice    *[]string `json:"advice"`
}

type parsedReport struct {
	Symptoms  []string
	Severity  models.Severity
	Diagnosis string
	Advice    []string
}

// parseReportFields locates the first balanced JSON object in the model
// output and validates it against the report schema.
func parseReportFields(raw string) (*parsedReport, error) {
	span, ok := extractJSON(raw)
	if !ok {
		return nil, fmt.Errorf("%w: no JSON object in model output", ErrExtraction)
	}

	var fields reportFields
	if err := json.Unmarshal([]byte(span), &fields); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrExtraction, err)
	}

	if fields.Symptoms == nil || fields.Severity == nil || fields.Diagnosis == nil || fields.Advice == nil {
		return nil, fmt.Errorf("%w: missing required report fields", ErrExtraction)
	}

	severity := models.Severity(strings.ToLower(strings.TrimSpace(*fields.Severity)))
	if severity == "" {
		severity = models.SeverityLow
	}
	if !severity.Valid() {
		return nil, fmt.Errorf("%w: invalid severity %q", ErrExtraction, *fields.Severity)
	}

	return &parsedReport{
		Symptoms:  *fields.Symptoms,
		Severity:  severity,
		Diagnosis: strings.TrimSpace(*fields.Diagnosis),
		Advice:    *fields.Advice,
	}, nil
}

// extractJSON returns the first balanced {...} span in s, skipping braces
// inside JSON strings.
func extractJSON(s string) (string, bool) {
	start := strings.IndexByte(s, '{')
	if start < 0 {
		return "", false
	}

	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(s); i++ {
		c := s[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}
		switch c {
		case '"':
			inString = true
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return s[start : i+1], true
			}
		}
	}
	return "", false
}
