package models

import "time"

// SessionState is derived from the clock, never stored.
type SessionState string

const (
	SessionStateOpen    SessionState = "OPEN"
	SessionStateExpired SessionState = "EXPIRED"
)

// Session is a time-boxed window during which one redemption code is valid
// for one course.
type Session struct {
	ID        string    `db:"id" json:"id"`
	CourseID  string    `db:"course_id" json:"course_id"`
	Code      string    `db:"code" json:"code"`
	StartTS   time.Time `db:"start_ts" json:"start_ts"`
	EndTS     time.Time `db:"end_ts" json:"end_ts"`
	CreatedBy *string   `db:"created_by" json:"created_by,omitempty"`
}

// State returns OPEN while now is not after the end timestamp.
func (s *Session) State(now time.Time) SessionState {
	if now.After(s.EndTS) {
		return SessionStateExpired
	}
	return SessionStateOpen
}

// Open reports whether the session still accepts redemptions at now.
func (s *Session) Open(now time.Time) bool {
	return s.State(now) == SessionStateOpen
}

// SessionFilter scopes session listings.
type SessionFilter struct {
	CourseID string
	Since    *time.Time
}
