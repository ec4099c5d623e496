package models

// LessonType describes the lesson medium.
type LessonType string

// Supported lesson types.
const (
	LessonTypeVideo LessonType = "video"
	LessonTypeText  LessonType = "text"
	LessonTypeQuiz  LessonType = "quiz"
)

// Valid reports whether t is one of the supported types.
func (t LessonType) Valid() bool {
	switch t {
	case LessonTypeVideo, LessonTypeText, LessonTypeQuiz:
		return true
	}
	return false
}

// Lesson is an ordered unit of a module.
type Lesson struct {
	ID              string     `db:"id" json:"id"`
	ModuleID        string     `db:"module_id" json:"module_id"`
	Title           string     `db:"title" json:"title"`
	Position        int        `db:"position" json:"position"`
	DurationMinutes int        `db:"duration_minutes" json:"duration_minutes"`
	Type            LessonType `db:"type" json:"type"`
}

// LessonScope is a lesson together with the course its module belongs to.
type LessonScope struct {
	Lesson
	CourseID string `db:"course_id" json:"course_id"`
}
