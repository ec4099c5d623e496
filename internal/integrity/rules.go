// Package integrity holds the cross-entity rules shared by every store. The
// checks are pure: callers look up the referenced rows inside their own
// transaction or critical section and commit only when the check passes.
package integrity

import (
	"github.com/noah-isme/edutech-api/internal/models"
	appErrors "github.com/noah-isme/edutech-api/pkg/errors"
)

// CheckRating verifies that a rating targets the course of its enrollment.
func CheckRating(rating *models.Rating, enrollment *models.Enrollment) error {
	if enrollment == nil {
		return appErrors.OnField(appErrors.ErrReferenceNotFound, "enrollment_id", "enrollment not found")
	}
	if rating.CourseID != enrollment.CourseID {
		return appErrors.OnField(appErrors.ErrConsistency, "course_id", "rating course must match the enrollment course")
	}
	return nil
}

// CheckProgress verifies a progress row against the lesson it tracks.
func CheckProgress(progress *models.LessonProgress, lesson *models.Lesson) error {
	if lesson == nil {
		return appErrors.OnField(appErrors.ErrReferenceNotFound, "lesson_id", "lesson not found")
	}
	if progress.Completed != (progress.CompletedAt != nil) {
		return appErrors.OnField(appErrors.ErrValidation, "completed_at", "completed_at must be set exactly when completed is true")
	}
	if progress.WatchedMinutes < 0 {
		return appErrors.OnField(appErrors.ErrValidation, "watched_minutes", "watched_minutes must not be negative")
	}
	if progress.WatchedMinutes > lesson.DurationMinutes {
		return appErrors.OnField(appErrors.ErrConsistency, "watched_minutes", "watched_minutes exceeds lesson duration")
	}
	return nil
}

// CheckProgressScope verifies that the tracked lesson belongs to the course
// the enrollment is for.
func CheckProgressScope(lessonCourseID string, enrollment *models.Enrollment) error {
	if enrollment == nil {
		return appErrors.OnField(appErrors.ErrReferenceNotFound, "enrollment_id", "enrollment not found")
	}
	if lessonCourseID != enrollment.CourseID {
		return appErrors.OnField(appErrors.ErrConsistency, "lesson_id", "lesson does not belong to the enrolled course")
	}
	return nil
}

// CheckLessonDuration rejects a lesson duration below the largest watch time
// already recorded against the lesson.
func CheckLessonDuration(duration, maxWatched int) error {
	if duration < maxWatched {
		return appErrors.OnField(appErrors.ErrConsistency, "duration_minutes", "duration_minutes is below recorded watch time")
	}
	return nil
}
