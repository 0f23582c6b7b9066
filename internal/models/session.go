// Package models defines data structures for the medical assistant chat core.
package models

import (
	"fmt"
	"time"
)

// Session represents a bounded conversation between one user and the assistant.
// A session is active over [StartTime, EndTime); a nil EndTime means still open.
type Session struct {
	ID        string     `json:"id"`
	UserID    string     `json:"user_id"`
	Name      string     `json:"name"`
	StartTime time.Time  `json:"start_time"`
	EndTime   *time.Time `json:"end_time,omitempty"`
}

// DefaultSessionName returns the display name assigned to unnamed sessions.
func DefaultSessionName(now time.Time) string {
	return fmt.Sprintf("New chat %s", now.UTC().Format("2006-01-02 15:04"))
}

// ActiveDuring reports whether the session's active interval intersects
// [start, end). A session with no end time is treated as open-ended.
func (s *Session) ActiveDuring(start, end time.Time) bool {
	if !s.StartTime.Before(end) {
		return false
	}
	if s.EndTime == nil {
		return true
	}
	return s.EndTime.After(start)
}
