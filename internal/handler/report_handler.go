package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/smart-attendance/internal/dto"
	"github.com/noah-isme/smart-attendance/internal/models"
	"github.com/noah-isme/smart-attendance/internal/service"
	appErrors "github.com/noah-isme/smart-attendance/pkg/errors"
	"github.com/noah-isme/smart-attendance/pkg/response"
)

type reportService interface {
	Attendance(ctx context.Context, query dto.AttendanceReportQuery) ([]models.AttendanceRecord, *models.Pagination, error)
	History(ctx context.Context, userID string) ([]models.AttendanceRecord, error)
	Export(ctx context.Context, query dto.AttendanceReportQuery) (*service.ExportFile, error)
}

// ReportHandler exposes attendance reports.
type ReportHandler struct {
	service reportService
}

// NewReportHandler constructs a ReportHandler.
func NewReportHandler(svc reportService) *ReportHandler {
	return &ReportHandler{service: svc}
}

// Attendance godoc
// @Summary Query attendance records
// @Tags Reports
// @Produce json
// @Param course_id query string false "Course ID"
// @Param session_id query string false "Session ID"
// @Param from query string false "From date (YYYY-MM-DD)"
// @Param to query string false "To date (YYYY-MM-DD, inclusive)"
// @Param q query string false "Search over name, email and course code"
// @Param page query int false "Page"
// @Param page_size query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /attendance [get]
func (h *ReportHandler) Attendance(c *gin.Context) {
	var query dto.AttendanceReportQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid report query"))
		return
	}
	rows, pagination, err := h.service.Attendance(c.Request.Context(), query)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, rows, pagination)
}

// Export godoc
// @Summary Export attendance records
// @Tags Reports
// @Produce text/csv
// @Produce application/pdf
// @Param format query string false "csv or pdf"
// @Success 200 {file} binary
// @Router /attendance/export [get]
func (h *ReportHandler) Export(c *gin.Context) {
	var query dto.AttendanceReportQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid report query"))
		return
	}
	file, err := h.service.Export(c.Request.Context(), query)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Attachment(c, file.ContentType, file.Filename, file.Body)
}

// History godoc
// @Summary Attendance history of the current user
// @Tags Reports
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /me/attendance [get]
func (h *ReportHandler) History(c *gin.Context) {
	claims := requireClaims(c)
	if claims == nil {
		return
	}
	rows, err := h.service.History(c.Request.Context(), claims.UserID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, rows, nil)
}
