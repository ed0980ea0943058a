package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/smart-attendance/internal/models"
)

const sessionColumns = `id, course_id, code, start_ts, end_ts, created_by`

// SessionRepository persists attendance sessions and their redemption log.
type SessionRepository struct {
	db *sqlx.DB
}

// NewSessionRepository constructs the repository.
func NewSessionRepository(db *sqlx.DB) *SessionRepository {
	return &SessionRepository{db: db}
}

// Create stores a new session.
func (r *SessionRepository) Create(ctx context.Context, session *models.Session) error {
	if session.ID == "" {
		session.ID = uuid.NewString()
	}
	const query = `INSERT INTO sessions (id, course_id, code, start_ts, end_ts, created_by) VALUES (:id, :course_id, :code, :start_ts, :end_ts, :created_by)`
	if _, err := r.db.NamedExecContext(ctx, query, session); err != nil {
		return translateWriteErr("create session", err)
	}
	return nil
}

// FindByID returns a session by identifier.
func (r *SessionRepository) FindByID(ctx context.Context, id string) (*models.Session, error) {
	query := r.db.Rebind(`SELECT ` + sessionColumns + ` FROM sessions WHERE id = ?`)
	var session models.Session
	if err := r.db.GetContext(ctx, &session, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find session: %w", err)
	}
	return &session, nil
}

// List returns sessions newest first.
func (r *SessionRepository) List(ctx context.Context, filter models.SessionFilter) ([]models.Session, error) {
	where := []string{"1=1"}
	args := []interface{}{}
	if filter.CourseID != "" {
		where = append(where, "course_id = ?")
		args = append(args, filter.CourseID)
	}
	if filter.Since != nil {
		where = append(where, "start_ts >= ?")
		args = append(args, *filter.Since)
	}
	query := r.db.Rebind(fmt.Sprintf(`SELECT %s FROM sessions WHERE %s ORDER BY start_ts DESC`, sessionColumns, strings.Join(where, " AND ")))
	var sessions []models.Session
	if err := r.db.SelectContext(ctx, &sessions, query, args...); err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}
	return sessions, nil
}

// ActiveCodeExists reports whether a session open at now already uses code.
func (r *SessionRepository) ActiveCodeExists(ctx context.Context, code string, now time.Time) (bool, error) {
	query := r.db.Rebind(`SELECT 1 FROM sessions WHERE code = ? AND end_ts >= ? LIMIT 1`)
	var exists int
	if err := r.db.GetContext(ctx, &exists, query, code, now); err != nil {
		if err == sql.ErrNoRows {
			return false, nil
		}
		return false, fmt.Errorf("check active code: %w", err)
	}
	return true, nil
}

// FindOpenByCode returns the session open at now that carries code.
func (r *SessionRepository) FindOpenByCode(ctx context.Context, code string, now time.Time) (*models.Session, error) {
	query := r.db.Rebind(`SELECT ` + sessionColumns + ` FROM sessions WHERE code = ? AND end_ts >= ? ORDER BY start_ts DESC LIMIT 1`)
	var session models.Session
	if err := r.db.GetContext(ctx, &session, query, code, now); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find session by code: %w", err)
	}
	return &session, nil
}

// InsertAttendance appends a redemption. The (session_id, user_id) constraint
// makes this the single atomic check-then-insert; a collision surfaces as
// ErrDuplicate.
func (r *SessionRepository) InsertAttendance(ctx context.Context, record *models.Attendance) error {
	if record.ID == "" {
		record.ID = uuid.NewString()
	}
	if record.Timestamp.IsZero() {
		record.Timestamp = time.Now().UTC()
	}
	const query = `INSERT INTO attendance (id, session_id, user_id, method, ts) VALUES (:id, :session_id, :user_id, :method, :ts)`
	if _, err := r.db.NamedExecContext(ctx, query, record); err != nil {
		return translateWriteErr("insert attendance", err)
	}
	return nil
}

// RedeemerIDs lists the users that already redeemed a session.
func (r *SessionRepository) RedeemerIDs(ctx context.Context, sessionID string) ([]string, error) {
	query := r.db.Rebind(`SELECT user_id FROM attendance WHERE session_id = ?`)
	var ids []string
	if err := r.db.SelectContext(ctx, &ids, query, sessionID); err != nil {
		return nil, fmt.Errorf("list redeemers: %w", err)
	}
	return ids, nil
}

// ListAttendance returns joined attendance rows matching the filter with a total count.
func (r *SessionRepository) ListAttendance(ctx context.Context, filter models.AttendanceFilter) ([]models.AttendanceRecord, int, error) {
	base := `FROM attendance a
JOIN sessions s ON s.id = a.session_id
JOIN courses c ON c.id = s.course_id
JOIN users u ON u.id = a.user_id`
	where := []string{"1=1"}
	args := []interface{}{}
	if filter.CourseID != "" {
		where = append(where, "s.course_id = ?")
		args = append(args, filter.CourseID)
	}
	if filter.SessionID != "" {
		where = append(where, "a.session_id = ?")
		args = append(args, filter.SessionID)
	}
	if filter.UserID != "" {
		where = append(where, "a.user_id = ?")
		args = append(args, filter.UserID)
	}
	if filter.From != nil {
		where = append(where, "a.ts >= ?")
		args = append(args, *filter.From)
	}
	if filter.To != nil {
		where = append(where, "a.ts <= ?")
		args = append(args, *filter.To)
	}
	if filter.Search != "" {
		where = append(where, `(LOWER(u.name) LIKE ? ESCAPE '\' OR LOWER(u.email) LIKE ? ESCAPE '\' OR LOWER(c.code) LIKE ? ESCAPE '\')`)
		pattern := containsPattern(filter.Search)
		args = append(args, pattern, pattern, pattern)
	}
	whereClause := strings.Join(where, " AND ")

	limit := ""
	if filter.PageSize > 0 {
		page := filter.Page
		if page < 1 {
			page = 1
		}
		limit = fmt.Sprintf(" LIMIT %d OFFSET %d", filter.PageSize, (page-1)*filter.PageSize)
	}

	query := r.db.Rebind(fmt.Sprintf(`SELECT a.id, a.session_id, a.user_id, a.method, a.ts,
u.name AS user_name, u.email AS user_email, s.course_id, c.code AS course_code
%s WHERE %s
ORDER BY a.ts DESC%s`, base, whereClause, limit))
	var rows []models.AttendanceRecord
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list attendance: %w", err)
	}

	var total int
	if err := r.db.GetContext(ctx, &total, r.db.Rebind(fmt.Sprintf("SELECT COUNT(*) %s WHERE %s", base, whereClause)), args...); err != nil {
		return nil, 0, fmt.Errorf("count attendance: %w", err)
	}
	return rows, total, nil
}
