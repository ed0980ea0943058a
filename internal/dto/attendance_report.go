package dto

// AttendanceReportQuery binds GET /attendance and /attendance/export query
// strings. Dates use YYYY-MM-DD and the range is inclusive.
type AttendanceReportQuery struct {
	CourseID  string `form:"course_id"`
	SessionID string `form:"session_id"`
	From      string `form:"from" validate:"omitempty,datetime=2006-01-02"`
	To        string `form:"to" validate:"omitempty,datetime=2006-01-02"`
	Search    string `form:"q" validate:"max=100"`
	Page      int    `form:"page" validate:"gte=0"`
	PageSize  int    `form:"page_size" validate:"gte=0,lte=500"`
	Format    string `form:"format" validate:"omitempty,oneof=csv pdf CSV PDF"`
}
