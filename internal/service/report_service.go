package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/smart-attendance/internal/dto"
	"github.com/noah-isme/smart-attendance/internal/models"
	appErrors "github.com/noah-isme/smart-attendance/pkg/errors"
	"github.com/noah-isme/smart-attendance/pkg/export"
)

const (
	reportDateLayout = "2006-01-02"
	maxExportRows    = 10000
)

type attendanceReader interface {
	ListAttendance(ctx context.Context, filter models.AttendanceFilter) ([]models.AttendanceRecord, int, error)
}

// ExportFile is a rendered report ready to be streamed.
type ExportFile struct {
	Filename    string
	ContentType string
	Body        []byte
}

// ReportService answers attendance report queries.
type ReportService struct {
	repo      attendanceReader
	validator *validator.Validate
	logger    *zap.Logger
	now       func() time.Time
}

// NewReportService constructs a ReportService.
func NewReportService(repo attendanceReader, validate *validator.Validate, logger *zap.Logger) *ReportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ReportService{
		repo:      repo,
		validator: ensureValidator(validate),
		logger:    logger,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// Attendance returns joined rows matching the query with pagination metadata.
func (s *ReportService) Attendance(ctx context.Context, query dto.AttendanceReportQuery) ([]models.AttendanceRecord, *models.Pagination, error) {
	filter, err := s.filterFromQuery(query)
	if err != nil {
		return nil, nil, err
	}
	if filter.Page < 1 {
		filter.Page = 1
	}
	if filter.PageSize <= 0 {
		filter.PageSize = 50
	}

	rows, total, err := s.repo.ListAttendance(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load attendance")
	}
	return ensureRecords(rows), &models.Pagination{Page: filter.Page, PageSize: filter.PageSize, TotalCount: total}, nil
}

// History returns every attendance row of one user, newest first.
func (s *ReportService) History(ctx context.Context, userID string) ([]models.AttendanceRecord, error) {
	rows, _, err := s.repo.ListAttendance(ctx, models.AttendanceFilter{UserID: userID})
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load history")
	}
	return ensureRecords(rows), nil
}

// Export renders every row matching the query as CSV or PDF.
func (s *ReportService) Export(ctx context.Context, query dto.AttendanceReportQuery) (*ExportFile, error) {
	format, err := export.ParseFormat(query.Format)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "unsupported export format")
	}
	filter, err := s.filterFromQuery(query)
	if err != nil {
		return nil, err
	}
	filter.Page, filter.PageSize = 1, maxExportRows

	rows, total, err := s.repo.ListAttendance(ctx, filter)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load attendance")
	}
	if total > len(rows) {
		s.logger.Warn("attendance export truncated", zap.Int("total", total), zap.Int("exported", len(rows)))
	}

	table := export.Table{
		Title:   "Attendance Report",
		Columns: []string{"Session", "Course", "Name", "Email", "Method", "Timestamp"},
		Rows:    make([][]string, 0, len(rows)),
	}
	for _, r := range rows {
		table.Rows = append(table.Rows, []string{
			r.SessionID,
			r.CourseCode,
			r.UserName,
			r.UserEmail,
			string(r.Method),
			r.Timestamp.UTC().Format(time.RFC3339),
		})
	}

	body, err := export.Render(format, table)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render export")
	}
	return &ExportFile{
		Filename:    fmt.Sprintf("attendance_%s.%s", s.now().Format("20060102_150405"), format),
		ContentType: format.ContentType(),
		Body:        body,
	}, nil
}

func (s *ReportService) filterFromQuery(query dto.AttendanceReportQuery) (models.AttendanceFilter, error) {
	if err := s.validator.Struct(query); err != nil {
		return models.AttendanceFilter{}, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid report query")
	}
	filter := models.AttendanceFilter{
		CourseID:  query.CourseID,
		SessionID: query.SessionID,
		Search:    strings.TrimSpace(query.Search),
		Page:      query.Page,
		PageSize:  query.PageSize,
	}
	if query.From != "" {
		from, err := parseReportDate("from", query.From)
		if err != nil {
			return models.AttendanceFilter{}, err
		}
		filter.From = &from
	}
	if query.To != "" {
		to, err := parseReportDate("to", query.To)
		if err != nil {
			return models.AttendanceFilter{}, err
		}
		// inclusive through the end of the day
		end := to.Add(24*time.Hour - time.Nanosecond)
		filter.To = &end
	}
	if filter.From != nil && filter.To != nil && filter.To.Before(*filter.From) {
		return models.AttendanceFilter{}, appErrors.Clone(appErrors.ErrValidation, "to must not be before from")
	}
	return filter, nil
}

func parseReportDate(field, value string) (time.Time, error) {
	parsed, err := time.Parse(reportDateLayout, value)
	if err != nil {
		return time.Time{}, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, fmt.Sprintf("%s must be a YYYY-MM-DD date", field))
	}
	return parsed, nil
}

func ensureRecords(rows []models.AttendanceRecord) []models.AttendanceRecord {
	if rows == nil {
		return []models.AttendanceRecord{}
	}
	return rows
}
