package service

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/smart-attendance/internal/dto"
	"github.com/noah-isme/smart-attendance/internal/models"
	"github.com/noah-isme/smart-attendance/internal/repository"
	appErrors "github.com/noah-isme/smart-attendance/pkg/errors"
)

type mockCourseRepo struct {
	courses     map[string]*models.Course
	enrollments map[string]bool
}

func (m *mockCourseRepo) Create(_ context.Context, course *models.Course) error {
	course.Code = strings.ToUpper(strings.TrimSpace(course.Code))
	for _, c := range m.courses {
		if c.Code == course.Code {
			return fmt.Errorf("insert course: %w", repository.ErrDuplicate)
		}
	}
	course.ID = "course-" + strings.ToLower(course.Code)
	m.courses[course.ID] = course
	return nil
}

func (m *mockCourseRepo) FindByID(_ context.Context, id string) (*models.Course, error) {
	if c, ok := m.courses[id]; ok {
		return c, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockCourseRepo) List(context.Context) ([]models.Course, error) {
	out := []models.Course{}
	for _, c := range m.courses {
		out = append(out, *c)
	}
	return out, nil
}

func (m *mockCourseRepo) Enroll(_ context.Context, e *models.Enrollment) error {
	key := e.CourseID + "|" + e.UserID
	if m.enrollments[key] {
		return fmt.Errorf("enroll user: %w", repository.ErrDuplicate)
	}
	m.enrollments[key] = true
	return nil
}

func (m *mockCourseRepo) Roster(_ context.Context, courseID string) ([]models.User, error) {
	var out []models.User
	for key := range m.enrollments {
		if strings.HasPrefix(key, courseID+"|") {
			out = append(out, models.User{ID: strings.TrimPrefix(key, courseID+"|")})
		}
	}
	return out, nil
}

func newCourseService() *CourseService {
	repo := &mockCourseRepo{courses: map[string]*models.Course{}, enrollments: map[string]bool{}}
	return NewCourseService(repo, newMockUserRepo(), nil, nil)
}

func TestCourseServiceCreateAndEnroll(t *testing.T) {
	svc := newCourseService()

	course, err := svc.Create(context.Background(), dto.CreateCourseRequest{Code: "cs101", Title: "Intro"})
	require.NoError(t, err)
	assert.Equal(t, "CS101", course.Code)

	_, err = svc.Create(context.Background(), dto.CreateCourseRequest{Code: "CS101", Title: "Again"})
	assert.ErrorIs(t, err, appErrors.ErrConflict)

	_, err = svc.Enroll(context.Background(), course.ID, dto.EnrollRequest{UserID: "u-amit"})
	require.NoError(t, err)
	_, err = svc.Enroll(context.Background(), course.ID, dto.EnrollRequest{UserID: "u-amit"})
	assert.ErrorIs(t, err, appErrors.ErrConflict)

	roster, err := svc.Roster(context.Background(), course.ID)
	require.NoError(t, err)
	require.Len(t, roster, 1)
	assert.Equal(t, "u-amit", roster[0].ID)
}

func TestCourseServiceEnrollErrors(t *testing.T) {
	svc := newCourseService()
	course, err := svc.Create(context.Background(), dto.CreateCourseRequest{Code: "MA201", Title: "Calculus"})
	require.NoError(t, err)

	_, err = svc.Enroll(context.Background(), "missing", dto.EnrollRequest{UserID: "u-amit"})
	assert.ErrorIs(t, err, appErrors.ErrInvalidCourse)

	_, err = svc.Enroll(context.Background(), course.ID, dto.EnrollRequest{UserID: "ghost"})
	assert.ErrorIs(t, err, appErrors.ErrNotFound)

	_, err = svc.Enroll(context.Background(), course.ID, dto.EnrollRequest{})
	assert.ErrorIs(t, err, appErrors.ErrValidation)
}
