package models

import (
	"fmt"
	"time"
)

// Severity grades a daily report.
type Severity string

const (
	SeverityLow    Severity = "low"
	SeverityMedium Severity = "medium"
	SeverityHigh   Severity = "high"
)

// Valid reports whether the severity is one of the three known grades.
func (s Severity) Valid() bool {
	return s == SeverityLow || s == SeverityMedium || s == SeverityHigh
}

// DailyReport is a structured clinical summary of one user's messages for
// one calendar day. At most one report exists per (UserID, ReportDate);
// the store enforces this with a unique index.
type DailyReport struct {
	ID         string    `json:"id"`
	UserID     string    `json:"user_id"`
	ReportDate string    `json:"report_date"` // "2006-01-02", UTC calendar day
	Symptoms   []string  `json:"symptoms"`
	Severity   Severity  `json:"severity"`
	Diagnosis  string    `json:"diagnosis"`
	Advice     []string  `json:"advice"`
	CreatedAt  time.Time `json:"created_at"`
}

// ReportDateLayout is the wire and storage format for report dates.
const ReportDateLayout = "2006-01-02"

// ParseReportDate parses an ISO-8601 calendar date.
func ParseReportDate(s string) (time.Time, error) {
	t, err := time.ParseInLocation(ReportDateLayout, s, time.UTC)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q (want YYYY-MM-DD): %w", s, err)
	}
	return t, nil
}

// DayInterval returns the UTC half-open interval [start, end) covering the
// calendar day of t.
func DayInterval(t time.Time) (time.Time, time.Time) {
	t = t.UTC()
	start := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
	return start, start.AddDate(0, 0, 1)
}
