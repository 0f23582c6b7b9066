package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseReportDate(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantErr bool
	}{
		{"valid date", "2025-03-14", false},
		{"leap day", "2024-02-29", false},
		{"not a date", "tomorrow", true},
		{"wrong order", "14-03-2025", true},
		{"datetime not accepted", "2025-03-14T10:00:00Z", true},
		{"empty", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseReportDate(tt.input)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, time.UTC, got.Location())
			assert.Equal(t, tt.input, got.Format(ReportDateLayout))
		})
	}
}

func TestDayInterval(t *testing.T) {
	at := time.Date(2025, 3, 14, 17, 45, 12, 0, time.UTC)
	start, end := DayInterval(at)

	assert.Equal(t, time.Date(2025, 3, 14, 0, 0, 0, 0, time.UTC), start)
	assert.Equal(t, time.Date(2025, 3, 15, 0, 0, 0, 0, time.UTC), end)
	assert.Equal(t, 24*time.Hour, end.Sub(start))
}

func TestSessionActiveDuring(t *testing.T) {
	dayStart := time.Date(2025, 3, 14, 0, 0, 0, 0, time.UTC)
	dayEnd := dayStart.AddDate(0, 0, 1)
	at := func(h int) time.Time { return dayStart.Add(time.Duration(h) * time.Hour) }
	closed := func(t time.Time) *time.Time { return &t }

	tests := []struct {
		name    string
		session Session
		want    bool
	}{
		{"open session started that day", Session{StartTime: at(9)}, true},
		{"open session started earlier", Session{StartTime: dayStart.AddDate(0, 0, -3)}, true},
		{"starts after the day", Session{StartTime: dayEnd}, false},
		{"closed within the day", Session{StartTime: at(9), EndTime: closed(at(10))}, true},
		{"closed before the day", Session{StartTime: dayStart.AddDate(0, 0, -2), EndTime: closed(dayStart)}, false},
		{"spans the whole day", Session{StartTime: dayStart.AddDate(0, 0, -1), EndTime: closed(dayEnd.AddDate(0, 0, 1))}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.session.ActiveDuring(dayStart, dayEnd))
		})
	}
}

func TestRoleAlternation(t *testing.T) {
	assert.Equal(t, RoleAssistant, RoleUser.Other())
	assert.Equal(t, RoleUser, RoleAssistant.Other())
	assert.True(t, RoleUser.Valid())
	assert.False(t, Role("bot").Valid())
}
