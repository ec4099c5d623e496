package models

import "time"

// LessonProgress tracks one enrollment's progress on one lesson.
type LessonProgress struct {
	ID             string     `db:"id" json:"id"`
	EnrollmentID   string     `db:"enrollment_id" json:"enrollment_id"`
	LessonID       string     `db:"lesson_id" json:"lesson_id"`
	Completed      bool       `db:"completed" json:"completed"`
	CompletedAt    *time.Time `db:"completed_at" json:"completed_at,omitempty"`
	WatchedMinutes int        `db:"watched_minutes" json:"watched_minutes"`
}
