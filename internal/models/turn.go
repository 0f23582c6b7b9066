package models

import "time"

// Role identifies the author of a turn. The set is closed: turns are either
// authored by the user or by the assistant, and roles strictly alternate
// within a session starting with RoleUser.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Valid reports whether the role is one of the two known values.
func (r Role) Valid() bool {
	return r == RoleUser || r == RoleAssistant
}

// Other returns the role expected to follow this one.
func (r Role) Other() Role {
	if r == RoleUser {
		return RoleAssistant
	}
	return RoleUser
}

// Turn is a single message within a session. Timestamps are strictly
// increasing per session. Sources carries knowledge-fragment attributions
// and is only populated on assistant turns.
type Turn struct {
	ID        string    `json:"id"`
	SessionID string    `json:"session_id"`
	Role      Role      `json:"role"`
	Content   string    `json:"content"`
	Sources   []string  `json:"sources,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// MaxTurnContentLen caps turn content at 50,000 code points, matching the
// upstream request validation.
const MaxTurnContentLen = 50000
