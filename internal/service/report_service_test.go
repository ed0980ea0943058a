package service

import (
	"bytes"
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/smart-attendance/internal/dto"
	"github.com/noah-isme/smart-attendance/internal/models"
	appErrors "github.com/noah-isme/smart-attendance/pkg/errors"
)

type mockAttendanceReader struct {
	rows       []models.AttendanceRecord
	lastFilter models.AttendanceFilter
}

func (m *mockAttendanceReader) ListAttendance(_ context.Context, filter models.AttendanceFilter) ([]models.AttendanceRecord, int, error) {
	m.lastFilter = filter
	return m.rows, len(m.rows), nil
}

func sampleRecords() []models.AttendanceRecord {
	ts := time.Date(2026, 3, 2, 9, 3, 0, 0, time.UTC)
	return []models.AttendanceRecord{{
		Attendance: models.Attendance{ID: "a1", SessionID: "s1", UserID: "u-amit", Method: models.MethodCode, Timestamp: ts},
		UserName:   "Amit",
		UserEmail:  "amit@example.com",
		CourseID:   "course-cs101",
		CourseCode: "CS101",
	}}
}

func TestReportAttendanceBuildsFilter(t *testing.T) {
	repo := &mockAttendanceReader{rows: sampleRecords()}
	svc := NewReportService(repo, nil, nil)

	rows, pagination, err := svc.Attendance(context.Background(), dto.AttendanceReportQuery{
		CourseID: "course-cs101",
		From:     "2026-03-01",
		To:       "2026-03-02",
		Search:   " amit ",
	})
	require.NoError(t, err)
	assert.Len(t, rows, 1)
	assert.Equal(t, 1, pagination.TotalCount)
	assert.Equal(t, 50, pagination.PageSize)

	f := repo.lastFilter
	assert.Equal(t, "amit", f.Search)
	assert.Equal(t, time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC), *f.From)
	assert.True(t, f.To.After(time.Date(2026, 3, 2, 23, 59, 59, 0, time.UTC)))
	assert.True(t, f.To.Before(time.Date(2026, 3, 3, 0, 0, 0, 0, time.UTC)))
}

func TestReportAttendanceRejectsBadDates(t *testing.T) {
	svc := NewReportService(&mockAttendanceReader{}, nil, nil)

	_, _, err := svc.Attendance(context.Background(), dto.AttendanceReportQuery{From: "03/01/2026"})
	assert.ErrorIs(t, err, appErrors.ErrValidation)

	_, _, err = svc.Attendance(context.Background(), dto.AttendanceReportQuery{From: "2026-03-05", To: "2026-03-01"})
	assert.ErrorIs(t, err, appErrors.ErrValidation)
}

func TestParseReportDate(t *testing.T) {
	parsed, err := parseReportDate("from", "2026-03-01")
	require.NoError(t, err)
	assert.Equal(t, time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC), parsed)

	for _, bad := range []string{"2026-02-30", "03/01/2026", "2026-3-1"} {
		_, err := parseReportDate("to", bad)
		assert.ErrorIs(t, err, appErrors.ErrValidation, bad)
		assert.Contains(t, err.Error(), "to must be a YYYY-MM-DD date", bad)
	}
}

func TestReportHistoryScopesToUser(t *testing.T) {
	repo := &mockAttendanceReader{}
	svc := NewReportService(repo, nil, nil)

	rows, err := svc.History(context.Background(), "u-amit")
	require.NoError(t, err)
	assert.NotNil(t, rows)
	assert.Equal(t, "u-amit", repo.lastFilter.UserID)
}

func TestReportExport(t *testing.T) {
	repo := &mockAttendanceReader{rows: sampleRecords()}
	svc := NewReportService(repo, nil, nil)
	svc.now = func() time.Time { return time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC) }

	file, err := svc.Export(context.Background(), dto.AttendanceReportQuery{Format: "csv"})
	require.NoError(t, err)
	assert.Equal(t, "attendance_20260302_100000.csv", file.Filename)
	assert.Equal(t, "text/csv", file.ContentType)
	lines := strings.Split(strings.TrimSpace(string(file.Body)), "\n")
	require.Len(t, lines, 2)
	assert.Equal(t, "s1,CS101,Amit,amit@example.com,code,2026-03-02T09:03:00Z", lines[1])
	assert.Equal(t, maxExportRows, repo.lastFilter.PageSize)

	file, err = svc.Export(context.Background(), dto.AttendanceReportQuery{Format: "pdf"})
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(file.Body, []byte("%PDF")))

	_, err = svc.Export(context.Background(), dto.AttendanceReportQuery{Format: "docx"})
	assert.ErrorIs(t, err, appErrors.ErrValidation)
}
