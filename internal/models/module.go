package models

// Module is an ordered section of a course.
type Module struct {
	ID          string  `db:"id" json:"id"`
	CourseID    string  `db:"course_id" json:"course_id"`
	Title       string  `db:"title" json:"title"`
	Position    int     `db:"position" json:"position"`
	Description *string `db:"description" json:"description,omitempty"`
}
