package models

import "time"

// Rating is the single score a student leaves for an enrolled course.
type Rating struct {
	ID           string    `db:"id" json:"id"`
	EnrollmentID string    `db:"enrollment_id" json:"enrollment_id"`
	CourseID     string    `db:"course_id" json:"course_id"`
	Score        int       `db:"score" json:"score"`
	Comment      *string   `db:"comment" json:"comment,omitempty"`
	RatedAt      time.Time `db:"rated_at" json:"rated_at"`
}
