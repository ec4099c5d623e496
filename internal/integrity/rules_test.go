package integrity

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/edutech-api/internal/models"
	appErrors "github.com/noah-isme/edutech-api/pkg/errors"
)

func TestCheckRating(t *testing.T) {
	enrollment := &models.Enrollment{ID: "e1", CourseID: "c1"}

	assert.NoError(t, CheckRating(&models.Rating{EnrollmentID: "e1", CourseID: "c1"}, enrollment))

	err := CheckRating(&models.Rating{EnrollmentID: "e1", CourseID: "c2"}, enrollment)
	require.Error(t, err)
	assert.True(t, errors.Is(err, appErrors.ErrConsistency))
	assert.Equal(t, "course_id", appErrors.FromError(err).Field)

	err = CheckRating(&models.Rating{EnrollmentID: "missing", CourseID: "c1"}, nil)
	assert.True(t, errors.Is(err, appErrors.ErrReferenceNotFound))
}

func TestCheckProgress(t *testing.T) {
	lesson := &models.Lesson{ID: "l1", DurationMinutes: 10}
	now := time.Now()

	tests := []struct {
		name     string
		progress models.LessonProgress
		lesson   *models.Lesson
		want     *appErrors.Error
	}{
		{name: "full watch", progress: models.LessonProgress{WatchedMinutes: 10, Completed: true, CompletedAt: &now}, lesson: lesson},
		{name: "partial watch", progress: models.LessonProgress{WatchedMinutes: 3}, lesson: lesson},
		{name: "overrun", progress: models.LessonProgress{WatchedMinutes: 11}, lesson: lesson, want: appErrors.ErrConsistency},
		{name: "completed without timestamp", progress: models.LessonProgress{Completed: true}, lesson: lesson, want: appErrors.ErrValidation},
		{name: "timestamp without completion", progress: models.LessonProgress{CompletedAt: &now}, lesson: lesson, want: appErrors.ErrValidation},
		{name: "missing lesson", progress: models.LessonProgress{}, want: appErrors.ErrReferenceNotFound},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			err := CheckProgress(&tc.progress, tc.lesson)
			if tc.want == nil {
				assert.NoError(t, err)
				return
			}
			assert.True(t, errors.Is(err, tc.want), "got %v", err)
		})
	}
}

func TestCheckProgressScope(t *testing.T) {
	enrollment := &models.Enrollment{ID: "e1", CourseID: "c1"}

	assert.NoError(t, CheckProgressScope("c1", enrollment))
	assert.True(t, errors.Is(CheckProgressScope("c2", enrollment), appErrors.ErrConsistency))
	assert.True(t, errors.Is(CheckProgressScope("c1", nil), appErrors.ErrReferenceNotFound))
}

func TestCheckLessonDuration(t *testing.T) {
	assert.NoError(t, CheckLessonDuration(10, 10))
	assert.NoError(t, CheckLessonDuration(10, 0))
	assert.True(t, errors.Is(CheckLessonDuration(5, 6), appErrors.ErrConsistency))
}
