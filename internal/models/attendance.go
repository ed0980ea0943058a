package models

import "time"

// AttendanceMethod records how a user redeemed a session.
type AttendanceMethod string

const (
	MethodQR   AttendanceMethod = "qr"
	MethodCode AttendanceMethod = "code"
	MethodNFC  AttendanceMethod = "nfc"
)

// Valid returns true when the method is a supported value.
func (m AttendanceMethod) Valid() bool {
	switch m {
	case MethodQR, MethodCode, MethodNFC:
		return true
	default:
		return false
	}
}

// Attendance is an append-only redemption record; at most one exists per
// (session, user).
type Attendance struct {
	ID        string           `db:"id" json:"id"`
	SessionID string           `db:"session_id" json:"session_id"`
	UserID    string           `db:"user_id" json:"user_id"`
	Method    AttendanceMethod `db:"method" json:"method"`
	Timestamp time.Time        `db:"ts" json:"timestamp"`
}

// AttendanceRecord extends a row with the user and course it refers to.
type AttendanceRecord struct {
	Attendance
	UserName   string `db:"user_name" json:"user_name"`
	UserEmail  string `db:"user_email" json:"user_email"`
	CourseID   string `db:"course_id" json:"course_id"`
	CourseCode string `db:"course_code" json:"course_code"`
}

// AttendanceFilter defines report query filters.
type AttendanceFilter struct {
	CourseID  string
	SessionID string
	UserID    string
	From      *time.Time
	To        *time.Time
	Search    string
	Page      int
	PageSize  int
}
