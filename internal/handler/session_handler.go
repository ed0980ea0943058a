package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/smart-attendance/internal/dto"
	"github.com/noah-isme/smart-attendance/internal/models"
	"github.com/noah-isme/smart-attendance/pkg/notify"
	"github.com/noah-isme/smart-attendance/pkg/response"
)

type sessionService interface {
	CreateSession(ctx context.Context, req dto.CreateSessionRequest) (*models.Session, error)
	GetSession(ctx context.Context, id string) (*models.Session, error)
	ListSessions(ctx context.Context, courseID string, sinceDays int) ([]models.Session, error)
	Redeem(ctx context.Context, req dto.RedeemRequest) (*dto.RedemptionResult, error)
	RedeemCode(ctx context.Context, userID, code string) (*dto.RedemptionResult, error)
	ComputeAbsentees(ctx context.Context, sessionID string) ([]models.User, error)
	NotifyAbsentees(ctx context.Context, sessionID string, notifier notify.Notifier) (int, error)
	SessionQR(ctx context.Context, sessionID string) ([]byte, error)
	QRLink(ctx context.Context, sessionID string) (string, time.Time, error)
	ResolveQRLink(ctx context.Context, token string) ([]byte, error)
	Now() time.Time
}

// SessionHandler exposes attendance sessions and redemption.
type SessionHandler struct {
	service   sessionService
	qrBaseURL string
}

// NewSessionHandler constructs a SessionHandler. qrBaseURL prefixes the path
// returned for QR display links.
func NewSessionHandler(svc sessionService, qrBaseURL string) *SessionHandler {
	return &SessionHandler{service: svc, qrBaseURL: qrBaseURL}
}

// Create godoc
// @Summary Open an attendance session
// @Description Creates a session for a course with a fresh redemption code. ttl_minutes of 0 uses the default.
// @Tags Sessions
// @Accept json
// @Produce json
// @Param payload body dto.CreateSessionRequest true "Session payload"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /sessions [post]
func (h *SessionHandler) Create(c *gin.Context) {
	claims := requireClaims(c)
	if claims == nil {
		return
	}
	var req dto.CreateSessionRequest
	if !bindJSON(c, &req, "invalid session payload") {
		return
	}
	req.CreatedBy = claims.UserID

	session, err := h.service.CreateSession(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, dto.NewSessionResponse(*session, h.service.Now()))
}

// List godoc
// @Summary List sessions of a course
// @Tags Sessions
// @Produce json
// @Param course_id query string false "Course ID"
// @Param since_days query int false "Only sessions started in the last N days"
// @Success 200 {object} response.Envelope
// @Router /sessions [get]
func (h *SessionHandler) List(c *gin.Context) {
	sessions, err := h.service.ListSessions(c.Request.Context(), c.Query("course_id"), queryInt(c, "since_days", 0))
	if err != nil {
		response.Error(c, err)
		return
	}
	now := h.service.Now()
	out := make([]dto.SessionResponse, 0, len(sessions))
	for _, s := range sessions {
		out = append(out, dto.NewSessionResponse(s, now))
	}
	response.JSON(c, http.StatusOK, out, nil)
}

// Get godoc
// @Summary Get a session
// @Description Students receive the session without its code.
// @Tags Sessions
// @Produce json
// @Param id path string true "Session ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /sessions/{id} [get]
func (h *SessionHandler) Get(c *gin.Context) {
	session, err := h.service.GetSession(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	if claims := claimsFromContext(c); claims == nil || claims.Role == models.RoleStudent {
		session.Code = ""
	}
	response.JSON(c, http.StatusOK, dto.NewSessionResponse(*session, h.service.Now()), nil)
}

// QR godoc
// @Summary Render the session QR code
// @Tags Sessions
// @Produce png
// @Param id path string true "Session ID"
// @Success 200 {file} binary
// @Failure 410 {object} response.Envelope
// @Router /sessions/{id}/qr [get]
func (h *SessionHandler) QR(c *gin.Context) {
	png, err := h.service.SessionQR(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Attachment(c, "image/png", "", png)
}

// QRLink godoc
// @Summary Issue a signed link that displays the QR without a token
// @Tags Sessions
// @Produce json
// @Param id path string true "Session ID"
// @Success 200 {object} response.Envelope
// @Router /sessions/{id}/qr-link [get]
func (h *SessionHandler) QRLink(c *gin.Context) {
	token, expiresAt, err := h.service.QRLink(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, dto.QRLinkResponse{
		Token:     token,
		Path:      h.qrBaseURL + "/qr/" + token,
		ExpiresAt: expiresAt,
	}, nil)
}

// PublicQR godoc
// @Summary Render a session QR from a signed link
// @Tags Sessions
// @Produce png
// @Param token path string true "Signed link token"
// @Success 200 {file} binary
// @Failure 404 {object} response.Envelope
// @Failure 410 {object} response.Envelope
// @Router /qr/{token} [get]
func (h *SessionHandler) PublicQR(c *gin.Context) {
	png, err := h.service.ResolveQRLink(c.Request.Context(), c.Param("token"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Attachment(c, "image/png", "", png)
}

// Redeem godoc
// @Summary Mark attendance for a session
// @Description method is one of qr, code, nfc. The user is taken from the bearer token.
// @Tags Sessions
// @Accept json
// @Produce json
// @Param id path string true "Session ID"
// @Param payload body dto.RedeemRequest true "Redemption payload"
// @Success 201 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Failure 410 {object} response.Envelope
// @Failure 422 {object} response.Envelope
// @Router /sessions/{id}/redeem [post]
func (h *SessionHandler) Redeem(c *gin.Context) {
	claims := requireClaims(c)
	if claims == nil {
		return
	}
	var req dto.RedeemRequest
	if !bindJSON(c, &req, "invalid redemption payload") {
		return
	}
	req.SessionID = c.Param("id")
	req.UserID = claims.UserID

	result, err := h.service.Redeem(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, result)
}

// RedeemCode godoc
// @Summary Mark attendance by code only
// @Tags Sessions
// @Accept json
// @Produce json
// @Param payload body dto.RedeemCodeRequest true "Code payload"
// @Success 201 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /redeem [post]
func (h *SessionHandler) RedeemCode(c *gin.Context) {
	claims := requireClaims(c)
	if claims == nil {
		return
	}
	var req dto.RedeemCodeRequest
	if !bindJSON(c, &req, "invalid redemption payload") {
		return
	}
	result, err := h.service.RedeemCode(c.Request.Context(), claims.UserID, req.Code)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, result)
}

// Absentees godoc
// @Summary List absentees of a session
// @Tags Sessions
// @Produce json
// @Param id path string true "Session ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /sessions/{id}/absentees [get]
func (h *SessionHandler) Absentees(c *gin.Context) {
	sessionID := c.Param("id")
	users, err := h.service.ComputeAbsentees(c.Request.Context(), sessionID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, dto.AbsenteesResponse{SessionID: sessionID, Count: len(users), Absentees: users}, nil)
}

// NotifyAbsentees godoc
// @Summary Notify absentees of a session
// @Tags Sessions
// @Produce json
// @Param id path string true "Session ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /sessions/{id}/absentees/notify [post]
func (h *SessionHandler) NotifyAbsentees(c *gin.Context) {
	sessionID := c.Param("id")
	sent, err := h.service.NotifyAbsentees(c.Request.Context(), sessionID, nil)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, dto.NotifyResponse{SessionID: sessionID, Sent: sent}, nil)
}
