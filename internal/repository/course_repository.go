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

// CourseRepository handles persistence of courses and their rosters.
type CourseRepository struct {
	db *sqlx.DB
}

// NewCourseRepository constructs the repository.
func NewCourseRepository(db *sqlx.DB) *CourseRepository {
	return &CourseRepository{db: db}
}

// Create persists a new course.
func (r *CourseRepository) Create(ctx context.Context, course *models.Course) error {
	if course.ID == "" {
		course.ID = uuid.NewString()
	}
	if course.CreatedAt.IsZero() {
		course.CreatedAt = time.Now().UTC()
	}
	course.Code = strings.ToUpper(strings.TrimSpace(course.Code))
	const query = `INSERT INTO courses (id, code, title, created_at) VALUES (:id, :code, :title, :created_at)`
	if _, err := r.db.NamedExecContext(ctx, query, course); err != nil {
		return translateWriteErr("create course", err)
	}
	return nil
}

// FindByID returns a course by its ID.
func (r *CourseRepository) FindByID(ctx context.Context, id string) (*models.Course, error) {
	query := r.db.Rebind(`SELECT id, code, title, created_at FROM courses WHERE id = ?`)
	var course models.Course
	if err := r.db.GetContext(ctx, &course, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find course: %w", err)
	}
	return &course, nil
}

// List returns all courses ordered by code.
func (r *CourseRepository) List(ctx context.Context) ([]models.Course, error) {
	const query = `SELECT id, code, title, created_at FROM courses ORDER BY code ASC`
	var courses []models.Course
	if err := r.db.SelectContext(ctx, &courses, query); err != nil {
		return nil, fmt.Errorf("list courses: %w", err)
	}
	return courses, nil
}

// Enroll adds a user to a course roster.
func (r *CourseRepository) Enroll(ctx context.Context, enrollment *models.Enrollment) error {
	if enrollment.EnrolledAt.IsZero() {
		enrollment.EnrolledAt = time.Now().UTC()
	}
	const query = `INSERT INTO enrollments (course_id, user_id, enrolled_at) VALUES (:course_id, :user_id, :enrolled_at)`
	if _, err := r.db.NamedExecContext(ctx, query, enrollment); err != nil {
		return translateWriteErr("enroll user", err)
	}
	return nil
}

// IsEnrolled checks roster membership.
func (r *CourseRepository) IsEnrolled(ctx context.Context, courseID, userID string) (bool, error) {
	query := r.db.Rebind(`SELECT 1 FROM enrollments WHERE course_id = ? AND user_id = ? LIMIT 1`)
	var exists int
	if err := r.db.GetContext(ctx, &exists, query, courseID, userID); err != nil {
		if err == sql.ErrNoRows {
			return false, nil
		}
		return false, fmt.Errorf("check enrollment: %w", err)
	}
	return true, nil
}

// Roster returns the users enrolled in a course ordered by name.
func (r *CourseRepository) Roster(ctx context.Context, courseID string) ([]models.User, error) {
	query := r.db.Rebind(`SELECT u.id, u.name, u.email, u.password_hash, u.role, u.created_at, u.updated_at
FROM enrollments e
JOIN users u ON u.id = e.user_id
WHERE e.course_id = ?
ORDER BY u.name ASC, u.id ASC`)
	var users []models.User
	if err := r.db.SelectContext(ctx, &users, query, courseID); err != nil {
		return nil, fmt.Errorf("course roster: %w", err)
	}
	return users, nil
}
