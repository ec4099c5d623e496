package memory

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/edutech-api/internal/models"
)

var fixedNow = time.Date(2024, time.June, 15, 12, 0, 0, 0, time.UTC)

func day(year int, month time.Month, d int) time.Time {
	return time.Date(year, month, d, 0, 0, 0, 0, time.UTC)
}

func money(v string) decimal.Decimal {
	return decimal.RequireFromString(v)
}

// fixture builds a small catalogue:
//
//	category cat-prog: course c1 (5 lessons, instructor i1) and c2 (1 lesson, instructor i1)
//	category cat-design: course c3 (no lessons, instructor i2)
//	students s1..s4
type fixture struct {
	t     *testing.T
	ctx   context.Context
	store *Store
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{t: t, ctx: context.Background(), store: New(WithClock(func() time.Time { return fixedNow }))}

	f.must(f.store.Categories().Create(f.ctx, &models.Category{ID: "cat-prog", Name: "Programming"}))
	f.must(f.store.Categories().Create(f.ctx, &models.Category{ID: "cat-design", Name: "Design"}))
	f.must(f.store.Instructors().Create(f.ctx, &models.Instructor{ID: "i1", Name: "Rob", Email: "rob@example.com", Specialty: "Go"}))
	f.must(f.store.Instructors().Create(f.ctx, &models.Instructor{ID: "i2", Name: "Dana", Email: "dana@example.com", Specialty: "UX"}))

	f.course("c1", "Go Fundamentals", "cat-prog", "i1", "200.00", 5)
	f.course("c2", "Advanced Go", "cat-prog", "i1", "150.50", 1)
	f.course("c3", "Color Theory", "cat-design", "i2", "99.00", 0)

	for i, name := range []string{"Ana", "Bruno", "Carla", "Diego"} {
		f.must(f.store.Students().Create(f.ctx, &models.Student{
			ID:        fmt.Sprintf("s%d", i+1),
			Name:      name,
			Email:     fmt.Sprintf("student%d@example.com", i+1),
			BirthDate: day(1995, time.January, i+1),
		}))
	}
	return f
}

func (f *fixture) must(err error) {
	f.t.Helper()
	require.NoError(f.t, err)
}

func (f *fixture) course(id, title, categoryID, instructorID, price string, lessons int) {
	f.t.Helper()
	f.must(f.store.Courses().Create(f.ctx, &models.Course{
		ID: id, Title: title, CategoryID: categoryID, InstructorID: instructorID,
		Price: money(price), DurationHours: 10, Level: models.CourseLevelBeginner,
	}))
	if lessons == 0 {
		return
	}
	moduleID := id + "-m1"
	f.must(f.store.Modules().Create(f.ctx, &models.Module{ID: moduleID, CourseID: id, Title: "Module 1", Position: 1}))
	for i := 1; i <= lessons; i++ {
		f.must(f.store.Lessons().Create(f.ctx, &models.Lesson{
			ID: fmt.Sprintf("%s-l%d", id, i), ModuleID: moduleID, Title: fmt.Sprintf("Lesson %d", i),
			Position: i, DurationMinutes: 10, Type: models.LessonTypeVideo,
		}))
	}
}

func (f *fixture) enroll(id, studentID, courseID string, status models.EnrollmentStatus, paid string, enrolledOn time.Time, completedOn *time.Time) {
	f.t.Helper()
	f.must(f.store.Enrollments().Create(f.ctx, &models.Enrollment{
		ID: id, StudentID: studentID, CourseID: courseID, EnrolledOn: enrolledOn,
		CompletedOn: completedOn, Status: status, AmountPaid: money(paid),
	}))
}

func (f *fixture) complete(enrollmentID, lessonID string) {
	f.t.Helper()
	at := fixedNow
	f.must(f.store.Progress().Create(f.ctx, &models.LessonProgress{
		EnrollmentID: enrollmentID, LessonID: lessonID, Completed: true, CompletedAt: &at, WatchedMinutes: 10,
	}))
}

func (f *fixture) rate(enrollmentID, courseID string, score int) {
	f.t.Helper()
	f.must(f.store.Ratings().Create(f.ctx, &models.Rating{EnrollmentID: enrollmentID, CourseID: courseID, Score: score}))
}
