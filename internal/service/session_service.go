package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/noah-isme/smart-attendance/internal/dto"
	"github.com/noah-isme/smart-attendance/internal/models"
	"github.com/noah-isme/smart-attendance/internal/repository"
	appErrors "github.com/noah-isme/smart-attendance/pkg/errors"
	"github.com/noah-isme/smart-attendance/pkg/notify"
	"github.com/noah-isme/smart-attendance/pkg/storage"
)

// NotificationSubject is the subject line of absentee notifications.
const NotificationSubject = "Attendance Alert"

type sessionRepository interface {
	Create(ctx context.Context, session *models.Session) error
	FindByID(ctx context.Context, id string) (*models.Session, error)
	List(ctx context.Context, filter models.SessionFilter) ([]models.Session, error)
	ActiveCodeExists(ctx context.Context, code string, now time.Time) (bool, error)
	FindOpenByCode(ctx context.Context, code string, now time.Time) (*models.Session, error)
	InsertAttendance(ctx context.Context, record *models.Attendance) error
	RedeemerIDs(ctx context.Context, sessionID string) ([]string, error)
}

type sessionCourseReader interface {
	FindByID(ctx context.Context, id string) (*models.Course, error)
	Roster(ctx context.Context, courseID string) ([]models.User, error)
	IsEnrolled(ctx context.Context, courseID, userID string) (bool, error)
}

// CardResolver maps an NFC card identifier to its owner; "" means unassigned.
type CardResolver interface {
	ResolveCard(ctx context.Context, cardID string) (string, error)
}

type codeRegistry interface {
	Reserve(ctx context.Context, code, sessionID string, ttl time.Duration) (bool, error)
	Release(ctx context.Context, code, sessionID string) error
	Lookup(ctx context.Context, code string) (string, error)
}

type qrCodec interface {
	Encode(code string) ([]byte, error)
	Decode(payload string) (string, error)
}

type linkSigner interface {
	Sign(resourceID string, now, notAfter time.Time) (string, time.Time, error)
	Verify(token string, now time.Time) (string, error)
}

type sessionMetrics interface {
	RecordRedemption(method, outcome string)
	RecordSessionCreated()
	RecordCodeCollision()
	RecordNotification(delivered bool)
}

// SessionConfig tunes issuance and redemption policy.
type SessionConfig struct {
	DefaultTTL        time.Duration
	MaxTTL            time.Duration
	CodeAttempts      int
	RequireEnrollment bool
}

// SessionDependencies groups the collaborators of SessionService. Registry,
// Signer, Notifier and Metrics are optional.
type SessionDependencies struct {
	Sessions  sessionRepository
	Courses   sessionCourseReader
	Cards     CardResolver
	Registry  codeRegistry
	Codec     qrCodec
	Signer    linkSigner
	Codes     CodeGenerator
	Notifier  notify.Notifier
	Metrics   sessionMetrics
	Validator *validator.Validate
	Logger    *zap.Logger
}

// SessionService issues attendance sessions and records redemptions.
type SessionService struct {
	sessions  sessionRepository
	courses   sessionCourseReader
	cards     CardResolver
	registry  codeRegistry
	codec     qrCodec
	signer    linkSigner
	codes     CodeGenerator
	notifier  notify.Notifier
	metrics   sessionMetrics
	validator *validator.Validate
	logger    *zap.Logger
	config    SessionConfig
	now       func() time.Time

	// issueMu serialises code allocation with the session insert so two
	// requests in this process never both claim a free code.
	issueMu sync.Mutex
}

// NewSessionService constructs a SessionService.
func NewSessionService(deps SessionDependencies, cfg SessionConfig) *SessionService {
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}
	if deps.Codes == nil {
		deps.Codes = NewRandomCodeGenerator(6)
	}
	if deps.Notifier == nil {
		deps.Notifier = notify.NewLogNotifier(deps.Logger)
	}
	if deps.Metrics == nil {
		deps.Metrics = (*MetricsService)(nil)
	}
	if cfg.DefaultTTL <= 0 {
		cfg.DefaultTTL = 20 * time.Minute
	}
	if cfg.MaxTTL < cfg.DefaultTTL {
		cfg.MaxTTL = cfg.DefaultTTL
	}
	if cfg.CodeAttempts <= 0 {
		cfg.CodeAttempts = 8
	}
	return &SessionService{
		sessions:  deps.Sessions,
		courses:   deps.Courses,
		cards:     deps.Cards,
		registry:  deps.Registry,
		codec:     deps.Codec,
		signer:    deps.Signer,
		codes:     deps.Codes,
		notifier:  deps.Notifier,
		metrics:   deps.Metrics,
		validator: ensureValidator(deps.Validator),
		logger:    deps.Logger,
		config:    cfg,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// CreateSession opens a session for a course with a fresh redemption code.
func (s *SessionService) CreateSession(ctx context.Context, req dto.CreateSessionRequest) (*models.Session, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid session payload")
	}

	ttl := s.config.DefaultTTL
	if req.TTLMinutes > 0 {
		ttl = time.Duration(req.TTLMinutes) * time.Minute
	}
	if ttl > s.config.MaxTTL {
		return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("ttl_minutes must not exceed %d", int(s.config.MaxTTL.Minutes())))
	}

	if _, err := s.courses.FindByID(ctx, req.CourseID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.ErrInvalidCourse
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load course")
	}

	now := s.now()
	session := &models.Session{
		ID:       uuid.NewString(),
		CourseID: req.CourseID,
		StartTS:  now,
		EndTS:    now.Add(ttl),
	}
	if req.CreatedBy != "" {
		createdBy := req.CreatedBy
		session.CreatedBy = &createdBy
	}

	if err := s.issue(ctx, session, ttl); err != nil {
		return nil, err
	}

	s.metrics.RecordSessionCreated()
	s.logger.Info("session created",
		zap.String("session_id", session.ID),
		zap.String("course_id", session.CourseID),
		zap.Time("end_ts", session.EndTS),
	)
	return session, nil
}

// issue allocates a code and stores the session under issueMu. Across
// processes the Redis registry is the only guard.
func (s *SessionService) issue(ctx context.Context, session *models.Session, ttl time.Duration) error {
	s.issueMu.Lock()
	defer s.issueMu.Unlock()

	code, err := s.allocateCode(ctx, session.ID, session.StartTS, ttl)
	if err != nil {
		return err
	}
	session.Code = code

	if err := s.sessions.Create(ctx, session); err != nil {
		if s.registry != nil {
			if relErr := s.registry.Release(ctx, code, session.ID); relErr != nil {
				s.logger.Warn("failed to release code reservation", zap.String("session_id", session.ID), zap.Error(relErr))
			}
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create session")
	}
	return nil
}

// allocateCode draws codes until one is free among open sessions and, when a
// registry is configured, reserved for sessionID.
func (s *SessionService) allocateCode(ctx context.Context, sessionID string, now time.Time, ttl time.Duration) (string, error) {
	for attempt := 0; attempt < s.config.CodeAttempts; attempt++ {
		code, err := s.codes.Generate()
		if err != nil {
			return "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to generate code")
		}

		taken, err := s.sessions.ActiveCodeExists(ctx, code, now)
		if err != nil {
			return "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check code")
		}
		if taken {
			s.metrics.RecordCodeCollision()
			continue
		}

		if s.registry != nil {
			reserved, err := s.registry.Reserve(ctx, code, sessionID, ttl)
			if err != nil {
				// The database check above already holds for this process.
				s.logger.Warn("code registry unavailable", zap.Error(err))
				return code, nil
			}
			if !reserved {
				s.metrics.RecordCodeCollision()
				continue
			}
		}
		return code, nil
	}
	return "", appErrors.New(appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "could not allocate a unique session code")
}

// GetSession loads a session by id.
func (s *SessionService) GetSession(ctx context.Context, id string) (*models.Session, error) {
	session, err := s.sessions.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.ErrSessionNotFound
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load session")
	}
	return session, nil
}

// ListSessions returns sessions of a course, newest first. sinceDays of zero
// returns every session.
func (s *SessionService) ListSessions(ctx context.Context, courseID string, sinceDays int) ([]models.Session, error) {
	if sinceDays < 0 {
		return nil, appErrors.Clone(appErrors.ErrValidation, "since_days must not be negative")
	}
	filter := models.SessionFilter{CourseID: courseID}
	if sinceDays > 0 {
		since := s.now().AddDate(0, 0, -sinceDays)
		filter.Since = &since
	}
	sessions, err := s.sessions.List(ctx, filter)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list sessions")
	}
	return sessions, nil
}

// Now exposes the service clock so callers derive session state consistently.
func (s *SessionService) Now() time.Time {
	return s.now()
}

// Redeem validates a presented value and records attendance. Checks run in a
// fixed order and stop at the first failure: session exists, session open,
// value matches, not yet marked.
func (s *SessionService) Redeem(ctx context.Context, req dto.RedeemRequest) (*dto.RedemptionResult, error) {
	result, outcome, err := s.redeem(ctx, req)
	s.metrics.RecordRedemption(string(req.Method), outcome)
	if err != nil {
		fields := []zap.Field{
			zap.String("session_id", req.SessionID),
			zap.String("user_id", req.UserID),
			zap.String("method", string(req.Method)),
			zap.String("outcome", outcome),
		}
		if outcome == OutcomeError {
			s.logger.Error("redemption failed", append(fields, zap.Error(err))...)
		} else {
			s.logger.Info("redemption rejected", fields...)
		}
		return nil, err
	}
	s.logger.Info("attendance marked",
		zap.String("session_id", result.SessionID),
		zap.String("user_id", result.UserID),
		zap.String("method", string(result.Method)),
	)
	return result, nil
}

func (s *SessionService) redeem(ctx context.Context, req dto.RedeemRequest) (*dto.RedemptionResult, string, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, OutcomeError, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid redemption payload")
	}

	session, err := s.sessions.FindByID(ctx, req.SessionID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, OutcomeNotFound, appErrors.ErrSessionNotFound
		}
		return nil, OutcomeError, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load session")
	}

	now := s.now()
	if !session.Open(now) {
		return nil, OutcomeExpired, appErrors.ErrSessionExpired
	}

	matched, err := s.matches(ctx, session, req)
	if err != nil {
		return nil, OutcomeError, err
	}
	if !matched {
		return nil, OutcomeMismatch, appErrors.ErrCodeMismatch
	}

	if s.config.RequireEnrollment {
		enrolled, err := s.courses.IsEnrolled(ctx, session.CourseID, req.UserID)
		if err != nil {
			return nil, OutcomeError, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check enrollment")
		}
		if !enrolled {
			return nil, OutcomeNotEnrolled, appErrors.ErrNotEnrolled
		}
	}

	record := &models.Attendance{
		ID:        uuid.NewString(),
		SessionID: session.ID,
		UserID:    req.UserID,
		Method:    req.Method,
		Timestamp: now,
	}
	if err := s.sessions.InsertAttendance(ctx, record); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, OutcomeAlreadyMarked, appErrors.ErrAlreadyMarked
		}
		return nil, OutcomeError, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to record attendance")
	}

	return &dto.RedemptionResult{
		AttendanceID: record.ID,
		SessionID:    record.SessionID,
		UserID:       record.UserID,
		Method:       record.Method,
		Timestamp:    record.Timestamp,
	}, OutcomeSuccess, nil
}

func (s *SessionService) matches(ctx context.Context, session *models.Session, req dto.RedeemRequest) (bool, error) {
	switch req.Method {
	case models.MethodCode:
		return req.Value == session.Code, nil
	case models.MethodQR:
		if s.codec == nil {
			return req.Value == session.Code, nil
		}
		code, err := s.codec.Decode(req.Value)
		if err != nil {
			return false, nil
		}
		return code == session.Code, nil
	case models.MethodNFC:
		if s.cards == nil {
			return false, nil
		}
		owner, err := s.cards.ResolveCard(ctx, strings.TrimSpace(req.Value))
		if err != nil {
			return false, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to resolve card")
		}
		return owner != "" && owner == req.UserID, nil
	default:
		return false, nil
	}
}

// RedeemCode marks attendance for the open session whose code the student
// typed, without the student knowing the session id.
func (s *SessionService) RedeemCode(ctx context.Context, userID, code string) (*dto.RedemptionResult, error) {
	if code == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "code is required")
	}

	sessionID, err := s.sessionIDForCode(ctx, code)
	if err != nil {
		s.metrics.RecordRedemption(string(models.MethodCode), OutcomeNotFound)
		return nil, err
	}
	return s.Redeem(ctx, dto.RedeemRequest{
		SessionID: sessionID,
		UserID:    userID,
		Value:     code,
		Method:    models.MethodCode,
	})
}

func (s *SessionService) sessionIDForCode(ctx context.Context, code string) (string, error) {
	if s.registry != nil {
		id, err := s.registry.Lookup(ctx, code)
		if err != nil {
			s.logger.Warn("code registry lookup failed", zap.Error(err))
		} else if id != "" {
			return id, nil
		}
	}
	session, err := s.sessions.FindOpenByCode(ctx, code, s.now())
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", appErrors.Clone(appErrors.ErrSessionNotFound, "no open session uses this code")
		}
		return "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to look up code")
	}
	return session.ID, nil
}

// ComputeAbsentees returns roster members with no attendance row for the
// session, ordered by name. It also works after the session has expired.
func (s *SessionService) ComputeAbsentees(ctx context.Context, sessionID string) ([]models.User, error) {
	session, err := s.GetSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	return s.absentees(ctx, session)
}

func (s *SessionService) absentees(ctx context.Context, session *models.Session) ([]models.User, error) {
	roster, err := s.courses.Roster(ctx, session.CourseID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load roster")
	}
	redeemers, err := s.sessions.RedeemerIDs(ctx, session.ID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load attendance")
	}

	present := make(map[string]struct{}, len(redeemers))
	for _, id := range redeemers {
		present[id] = struct{}{}
	}

	absent := make([]models.User, 0, len(roster))
	for _, user := range roster {
		if _, ok := present[user.ID]; !ok {
			absent = append(absent, user)
		}
	}
	sort.SliceStable(absent, func(i, j int) bool {
		if absent[i].Name != absent[j].Name {
			return absent[i].Name < absent[j].Name
		}
		return absent[i].ID < absent[j].ID
	})
	return absent, nil
}

// NotifyAbsentees sends one notification per absentee through notifier, or
// the service default when nil, and returns how many were accepted. A failed
// send is logged and does not stop the others.
func (s *SessionService) NotifyAbsentees(ctx context.Context, sessionID string, notifier notify.Notifier) (int, error) {
	if notifier == nil {
		notifier = s.notifier
	}
	session, err := s.GetSession(ctx, sessionID)
	if err != nil {
		return 0, err
	}
	absent, err := s.absentees(ctx, session)
	if err != nil {
		return 0, err
	}

	courseLabel := session.CourseID
	if course, err := s.courses.FindByID(ctx, session.CourseID); err == nil {
		courseLabel = course.Code
	} else {
		s.logger.Warn("course lookup failed for notification", zap.String("course_id", session.CourseID), zap.Error(err))
	}

	sent := 0
	for _, user := range absent {
		if err := ctx.Err(); err != nil {
			return sent, err
		}
		msg := notify.Message{
			To:      user.Email,
			Name:    user.Name,
			Subject: NotificationSubject,
			Body:    fmt.Sprintf("Dear %s, you missed session %s of %s.", user.Name, session.ID, courseLabel),
		}
		if err := notifier.Notify(ctx, msg); err != nil {
			s.metrics.RecordNotification(false)
			s.logger.Warn("absentee notification failed",
				zap.String("session_id", session.ID),
				zap.String("user_id", user.ID),
				zap.Error(err),
			)
			continue
		}
		s.metrics.RecordNotification(true)
		sent++
	}

	s.logger.Info("absentees notified",
		zap.String("session_id", session.ID),
		zap.Int("absentees", len(absent)),
		zap.Int("sent", sent),
	)
	return sent, nil
}

// SessionQR renders the session code as a PNG while the session is open.
func (s *SessionService) SessionQR(ctx context.Context, sessionID string) ([]byte, error) {
	session, err := s.GetSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if !session.Open(s.now()) {
		return nil, appErrors.ErrSessionExpired
	}
	if s.codec == nil {
		return nil, appErrors.New(appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "qr rendering not configured")
	}
	png, err := s.codec.Encode(session.Code)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render qr")
	}
	return png, nil
}

// QRLink issues a signed token for displaying the session QR without a
// bearer token. The link never outlives the session.
func (s *SessionService) QRLink(ctx context.Context, sessionID string) (string, time.Time, error) {
	if s.signer == nil {
		return "", time.Time{}, appErrors.New(appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "qr links not configured")
	}
	session, err := s.GetSession(ctx, sessionID)
	if err != nil {
		return "", time.Time{}, err
	}
	now := s.now()
	if !session.Open(now) {
		return "", time.Time{}, appErrors.ErrSessionExpired
	}
	token, expiresAt, err := s.signer.Sign(session.ID, now, session.EndTS)
	if err != nil {
		return "", time.Time{}, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to sign qr link")
	}
	return token, expiresAt, nil
}

// ResolveQRLink verifies a QR link token and renders the session QR.
func (s *SessionService) ResolveQRLink(ctx context.Context, token string) ([]byte, error) {
	if s.signer == nil {
		return nil, appErrors.ErrNotFound
	}
	sessionID, err := s.signer.Verify(token, s.now())
	if err != nil {
		if errors.Is(err, storage.ErrLinkExpired) {
			return nil, appErrors.Clone(appErrors.ErrSessionExpired, "qr link has expired")
		}
		return nil, appErrors.Clone(appErrors.ErrNotFound, "qr link not found")
	}
	return s.SessionQR(ctx, sessionID)
}
