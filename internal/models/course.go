package models

import "time"

// Course groups sessions and owns a roster of enrollments.
type Course struct {
	ID        string    `db:"id" json:"id"`
	Code      string    `db:"code" json:"code"`
	Title     string    `db:"title" json:"title"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// Enrollment places a user on a course roster.
type Enrollment struct {
	CourseID   string    `db:"course_id" json:"course_id"`
	UserID     string    `db:"user_id" json:"user_id"`
	EnrolledAt time.Time `db:"enrolled_at" json:"enrolled_at"`
}
