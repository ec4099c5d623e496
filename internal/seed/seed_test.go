package seed

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/edutech-api/internal/models"
	"github.com/noah-isme/edutech-api/internal/repository/memory"
	"github.com/noah-isme/edutech-api/internal/service"
	appErrors "github.com/noah-isme/edutech-api/pkg/errors"
)

var seedNow = time.Date(2024, 6, 15, 9, 0, 0, 0, time.UTC)

func newMemoryServices(store *memory.Store) Services {
	deps := service.Dependencies{
		Metrics: service.NewMetricsService(),
		Now:     func() time.Time { return seedNow },
	}
	return Services{
		Students:    service.NewStudentService(store.Students(), deps),
		Instructors: service.NewInstructorService(store.Instructors(), deps),
		Categories:  service.NewCategoryService(store.Categories(), deps),
		Courses:     service.NewCourseService(store.Courses(), deps),
		Modules:     service.NewModuleService(store.Modules(), deps),
		Lessons:     service.NewLessonService(store.Lessons(), deps),
		Enrollments: service.NewEnrollmentService(store.Enrollments(), deps),
		Progress:    service.NewProgressService(store.Progress(), deps),
		Ratings:     service.NewRatingService(store.Ratings(), deps),
	}
}

func smallOptions() Options {
	opts := DefaultOptions()
	opts.Categories = 3
	opts.Instructors = 3
	opts.Courses = 4
	opts.Students = 6
	opts.Enrollments = 12
	opts.Seed = 42
	opts.AsOf = seedNow
	return opts
}

func TestRunPopulatesStore(t *testing.T) {
	ctx := context.Background()
	store := memory.New(memory.WithClock(func() time.Time { return seedNow }))
	svc := newMemoryServices(store)

	sum, err := New(svc, store.Maintenance(), nil, smallOptions()).Run(ctx)
	require.NoError(t, err)

	// at least five categories are always taken from the base list
	assert.Equal(t, 5, sum.Categories)
	assert.Equal(t, 3, sum.Instructors)
	assert.Equal(t, 4, sum.Courses)
	assert.Equal(t, 6, sum.Students)
	assert.Equal(t, 12, sum.Enrollments)
	assert.GreaterOrEqual(t, sum.Modules, 4*3)
	assert.LessOrEqual(t, sum.Modules, 4*5)
	assert.GreaterOrEqual(t, sum.Lessons, sum.Modules*3)
	assert.LessOrEqual(t, sum.Lessons, sum.Modules*6)
	assert.GreaterOrEqual(t, sum.Progress, sum.Enrollments*3)

	categories, err := svc.Categories.List(ctx)
	require.NoError(t, err)
	assert.Len(t, categories, 5)

	enrollments, page, err := svc.Enrollments.List(ctx, models.EnrollmentFilter{Page: 1, PageSize: 100})
	require.NoError(t, err)
	assert.Equal(t, 12, page.TotalCount)

	completed := 0
	pairs := map[string]bool{}
	byID := map[string]models.Enrollment{}
	for _, e := range enrollments {
		byID[e.ID] = e
		key := e.StudentID + "|" + e.CourseID
		assert.False(t, pairs[key], "duplicate enrollment %s", key)
		pairs[key] = true

		if e.Status == models.EnrollmentStatusCompleted {
			completed++
			require.NotNil(t, e.CompletedOn)
			assert.False(t, e.CompletedOn.Before(e.EnrolledOn))
		}
		assert.True(t, e.AmountPaid.Equal(e.AmountPaid.Round(2)), "amount %s", e.AmountPaid)

		progress, err := svc.Progress.ListByEnrollment(ctx, e.ID)
		require.NoError(t, err)
		for _, p := range progress {
			if e.Status == models.EnrollmentStatusCancelled {
				assert.False(t, p.Completed)
			}
			assert.Equal(t, p.Completed, p.CompletedAt != nil)
		}
	}

	ratings, err := svc.Ratings.List(ctx, "")
	require.NoError(t, err)
	assert.Len(t, ratings, completed)
	assert.Equal(t, completed, sum.Ratings)
	for _, r := range ratings {
		done := byID[r.EnrollmentID].CompletedOn
		require.NotNil(t, done)
		assert.False(t, r.RatedAt.Before(*done), "rating %s before completion", r.ID)
		assert.False(t, r.RatedAt.After(done.AddDate(0, 0, 60)), "rating %s too late", r.ID)
	}
}

func TestRunWithoutResetConflicts(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	svc := newMemoryServices(store)

	_, err := New(svc, store.Maintenance(), nil, smallOptions()).Run(ctx)
	require.NoError(t, err)

	_, err = New(svc, store.Maintenance(), nil, smallOptions()).Run(ctx)
	require.Error(t, err)
	assert.True(t, errors.Is(err, appErrors.ErrUniqueness))

	opts := smallOptions()
	opts.Reset = true
	sum, err := New(svc, store.Maintenance(), nil, opts).Run(ctx)
	require.NoError(t, err)

	students, page, err := svc.Students.List(ctx, models.StudentFilter{Page: 1, PageSize: 100})
	require.NoError(t, err)
	assert.Len(t, students, sum.Students)
	assert.Equal(t, sum.Students, page.TotalCount)
}

func TestRunRejectsBadOptions(t *testing.T) {
	store := memory.New()
	svc := newMemoryServices(store)

	cases := map[string]func(*Options){
		"no instructors":   func(o *Options) { o.Instructors = 0 },
		"module range":     func(o *Options) { o.MinModules, o.MaxModules = 4, 2 },
		"lesson range":     func(o *Options) { o.MinLessons = 0 },
		"negative courses": func(o *Options) { o.Courses = -1 },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			opts := smallOptions()
			mutate(&opts)
			_, err := New(svc, store.Maintenance(), nil, opts).Run(context.Background())
			assert.Error(t, err)
		})
	}

	opts := smallOptions()
	opts.Reset = true
	_, err := New(svc, nil, nil, opts).Run(context.Background())
	assert.ErrorContains(t, err, "cannot be reset")
}

func TestRunIsReproducibleForASeed(t *testing.T) {
	ctx := context.Background()
	ids := func() []string {
		store := memory.New(memory.WithClock(func() time.Time { return seedNow }))
		svc := newMemoryServices(store)
		_, err := New(svc, nil, nil, smallOptions()).Run(ctx)
		require.NoError(t, err)

		enrollments, _, err := svc.Enrollments.List(ctx, models.EnrollmentFilter{Page: 1, PageSize: 100})
		require.NoError(t, err)
		out := make([]string, 0, len(enrollments))
		for _, e := range enrollments {
			out = append(out, e.ID+"|"+e.StudentID+"|"+e.CourseID+"|"+e.AmountPaid.StringFixed(2))
		}
		return out
	}

	first := ids()
	assert.ElementsMatch(t, first, ids())
	assert.Len(t, first, 12)
}
