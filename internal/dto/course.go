package dto

// CreateCourseRequest captures POST /courses payload.
type CreateCourseRequest struct {
	Code  string `json:"code" validate:"required,max=32"`
	Title string `json:"title" validate:"required,max=200"`
}

// EnrollRequest captures POST /courses/:id/enrollments payload.
type EnrollRequest struct {
	UserID string `json:"user_id" validate:"required"`
}
