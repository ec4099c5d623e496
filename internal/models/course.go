package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// CourseLevel describes the difficulty of a course.
type CourseLevel string

// Supported course levels.
const (
	CourseLevelBeginner     CourseLevel = "beginner"
	CourseLevelIntermediate CourseLevel = "intermediate"
	CourseLevelAdvanced     CourseLevel = "advanced"
)

// Valid reports whether l is one of the supported levels.
func (l CourseLevel) Valid() bool {
	switch l {
	case CourseLevelBeginner, CourseLevelIntermediate, CourseLevelAdvanced:
		return true
	}
	return false
}

// Course is a purchasable unit of content taught by one instructor.
type Course struct {
	ID            string          `db:"id" json:"id"`
	Title         string          `db:"title" json:"title"`
	Description   *string         `db:"description" json:"description,omitempty"`
	CategoryID    string          `db:"category_id" json:"category_id"`
	InstructorID  string          `db:"instructor_id" json:"instructor_id"`
	Price         decimal.Decimal `db:"price" json:"price"`
	DurationHours int             `db:"duration_hours" json:"duration_hours"`
	Level         CourseLevel     `db:"level" json:"level"`
	CreatedAt     time.Time       `db:"created_at" json:"created_at"`
}

// CourseFilter provides filters for listing courses.
type CourseFilter struct {
	CategoryID   string
	InstructorID string
	Level        CourseLevel
	Page         int
	PageSize     int
}
