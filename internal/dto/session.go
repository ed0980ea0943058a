package dto

import (
	"time"

	"github.com/noah-isme/smart-attendance/internal/models"
)

// CreateSessionRequest opens a session. TTLMinutes of zero selects the
// configured default.
type CreateSessionRequest struct {
	CourseID   string `json:"course_id" validate:"required"`
	TTLMinutes int    `json:"ttl_minutes" validate:"gte=0"`
	CreatedBy  string `json:"-"`
}

// RedeemRequest presents a value for a session. SessionID comes from the
// route and UserID from the bearer token.
type RedeemRequest struct {
	SessionID string                  `json:"-" validate:"required"`
	UserID    string                  `json:"-" validate:"required"`
	Value     string                  `json:"value" validate:"required,max=256"`
	Method    models.AttendanceMethod `json:"method" validate:"required,attendance_method"`
}

// RedeemCodeRequest captures POST /redeem, where the student only
// knows the code shown in class.
type RedeemCodeRequest struct {
	Code string `json:"code" validate:"required,max=32"`
}

// RedemptionResult is returned after a successful redemption.
type RedemptionResult struct {
	AttendanceID string                  `json:"attendance_id"`
	SessionID    string                  `json:"session_id"`
	UserID       string                  `json:"user_id"`
	Method       models.AttendanceMethod `json:"method"`
	Timestamp    time.Time               `json:"timestamp"`
}

// SessionResponse decorates a session with its clock-derived state.
type SessionResponse struct {
	models.Session
	State            models.SessionState `json:"state"`
	RemainingSeconds int64               `json:"remaining_seconds"`
}

// NewSessionResponse derives the state of s at now.
func NewSessionResponse(s models.Session, now time.Time) SessionResponse {
	resp := SessionResponse{Session: s, State: s.State(now)}
	if resp.State == models.SessionStateOpen {
		resp.RemainingSeconds = int64(s.EndTS.Sub(now).Seconds())
	}
	return resp
}

// AbsenteesResponse lists roster members without a redemption.
type AbsenteesResponse struct {
	SessionID string        `json:"session_id"`
	Count     int           `json:"count"`
	Absentees []models.User `json:"absentees"`
}

// NotifyResponse reports how many absentee notifications were delivered.
type NotifyResponse struct {
	SessionID string `json:"session_id"`
	Sent      int    `json:"sent"`
}

// QRLinkResponse carries an unauthenticated QR display link.
type QRLinkResponse struct {
	Token     string    `json:"token"`
	Path      string    `json:"path"`
	ExpiresAt time.Time `json:"expires_at"`
}
