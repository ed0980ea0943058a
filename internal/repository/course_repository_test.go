package repository

import (
	"context"
	"database/sql"
	"errors"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/smart-attendance/internal/models"
)

func TestCourseRepositoryRosterOrderedByName(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewCourseRepository(db)

	now := time.Now()
	rows := sqlmock.NewRows([]string{"id", "name", "email", "password_hash", "role", "created_at", "updated_at"}).
		AddRow("u1", "Amit", "amit@example.com", "", "student", now, now).
		AddRow("u2", "Priya", "priya@example.com", "", "student", now, now)
	mock.ExpectQuery(regexp.QuoteMeta("WHERE e.course_id = $1\nORDER BY u.name ASC, u.id ASC")).
		WithArgs("course-1").
		WillReturnRows(rows)

	users, err := repo.Roster(context.Background(), "course-1")
	require.NoError(t, err)
	require.Len(t, users, 2)
	assert.Equal(t, "Amit", users[0].Name)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCourseRepositoryEnrollDuplicate(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewCourseRepository(db)

	mock.ExpectExec("INSERT INTO enrollments").WillReturnError(&pq.Error{Code: "23505"})

	err := repo.Enroll(context.Background(), &models.Enrollment{CourseID: "course-1", UserID: "u1"})
	assert.True(t, errors.Is(err, ErrDuplicate))
}

func TestCourseRepositoryIsEnrolled(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewCourseRepository(db)

	mock.ExpectQuery("SELECT 1 FROM enrollments").WithArgs("course-1", "u1").WillReturnError(sql.ErrNoRows)

	ok, err := repo.IsEnrolled(context.Background(), "course-1", "u1")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestCourseRepositoryCreateNormalisesCode(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewCourseRepository(db)

	mock.ExpectExec("INSERT INTO courses").WillReturnResult(sqlmock.NewResult(1, 1))

	course := &models.Course{Code: " cs101 ", Title: "Intro"}
	require.NoError(t, repo.Create(context.Background(), course))
	assert.Equal(t, "CS101", course.Code)
	assert.NotEmpty(t, course.ID)
}
