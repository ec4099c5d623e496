package service

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/noah-isme/edutech-api/internal/models"
	"github.com/noah-isme/edutech-api/pkg/config"
	appErrors "github.com/noah-isme/edutech-api/pkg/errors"
)

// fakeReportRepo implements the reports exercised here; any other call
// panics through the nil embedded interface.
type fakeReportRepo struct {
	reportRepository

	dashboardCalls int
	limit          int
	threshold      decimal.Decimal
	minAverage     decimal.Decimal
	year           int
	asOf           time.Time
	courseErr      error

	// dashboardRow and afterDashboard override the canned dashboard when set.
	dashboardRow   func() *models.DashboardRow
	afterDashboard func()
}

func (f *fakeReportRepo) Dashboard(ctx context.Context) (*models.DashboardRow, error) {
	f.dashboardCalls++
	if f.dashboardRow != nil {
		row := f.dashboardRow()
		if f.afterDashboard != nil {
			f.afterDashboard()
		}
		return row, nil
	}
	return &models.DashboardRow{TotalStudents: 4, TotalCourses: 3, ActiveEnrollments: 2, TotalRevenue: decimal.RequireFromString("449.50")}, nil
}

func (f *fakeReportRepo) TopCoursesByRevenue(ctx context.Context, limit int) ([]models.CourseRevenueRow, error) {
	f.limit = limit
	return []models.CourseRevenueRow{{CourseID: "c1", Title: "Go", Revenue: decimal.RequireFromString("200.00")}}, nil
}

func (f *fakeReportRepo) LowCompletionCourses(ctx context.Context, threshold decimal.Decimal) ([]models.LowCompletionRow, error) {
	f.threshold = threshold
	return []models.LowCompletionRow{}, nil
}

func (f *fakeReportRepo) TopRatedInstructors(ctx context.Context, minAverage decimal.Decimal) ([]models.TopRatedInstructorRow, error) {
	f.minAverage = minAverage
	return []models.TopRatedInstructorRow{}, nil
}

func (f *fakeReportRepo) MonthlyEnrollments(ctx context.Context, year int) ([]models.MonthlyEnrollmentRow, error) {
	f.year = year
	return []models.MonthlyEnrollmentRow{{Month: "2024-01", EnrollmentCount: 1}}, nil
}

func (f *fakeReportRepo) InactiveStudents(ctx context.Context, asOf time.Time) ([]models.InactiveStudentRow, error) {
	f.asOf = asOf
	return []models.InactiveStudentRow{}, nil
}

func (f *fakeReportRepo) CourseReport(ctx context.Context, courseID string) (*models.CourseReportRow, error) {
	if f.courseErr != nil {
		return nil, f.courseErr
	}
	return &models.CourseReportRow{CourseID: courseID}, nil
}

func newReportService(repo reportRepository, cache *CacheService, metrics *MetricsService) *ReportService {
	svc := NewReportService(repo, cache, metrics, zap.NewNop(), ReportServiceConfig{})
	svc.now = func() time.Time { return testNow }
	return svc
}

func TestReportServiceRejectsUnknownReport(t *testing.T) {
	svc := newReportService(&fakeReportRepo{}, nil, nil)

	_, err := svc.Run(context.Background(), models.ReportName("nope"), ReportQuery{})
	requireAppError(t, err, appErrors.ErrNotFound, "")
}

func TestReportServiceValidatesParameters(t *testing.T) {
	svc := newReportService(&fakeReportRepo{}, nil, nil)
	ctx := context.Background()

	cases := []struct {
		name   string
		report models.ReportName
		query  ReportQuery
		field  string
	}{
		{"outline needs course", models.ReportLessonOutline, ReportQuery{}, "course_id"},
		{"course report needs course", models.ReportCourseReport, ReportQuery{}, "course_id"},
		{"bad level", models.ReportCourseCatalog, ReportQuery{Filter: models.ReportFilter{Level: "expert"}}, "level"},
		{"limit too large", models.ReportTopCoursesByRevenue, ReportQuery{Limit: 101}, "limit"},
		{"negative limit", models.ReportTopCoursesByRevenue, ReportQuery{Limit: -1}, "limit"},
		{"threshold above one", models.ReportLowCompletionCourses, ReportQuery{Threshold: decimal.NewNullDecimal(decimal.RequireFromString("1.5"))}, "threshold"},
		{"min average above five", models.ReportTopRatedInstructors, ReportQuery{MinAverage: decimal.NewNullDecimal(decimal.NewFromInt(6))}, "min_average"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := svc.Run(ctx, tc.report, tc.query)
			requireAppError(t, err, appErrors.ErrValidation, tc.field)
		})
	}
}

func TestReportServiceAppliesDefaults(t *testing.T) {
	repo := &fakeReportRepo{}
	svc := newReportService(repo, nil, nil)
	ctx := context.Background()

	_, err := svc.Run(ctx, models.ReportTopCoursesByRevenue, ReportQuery{})
	require.NoError(t, err)
	assert.Equal(t, 5, repo.limit)

	_, err = svc.Run(ctx, models.ReportTopCoursesByRevenue, ReportQuery{Limit: 2})
	require.NoError(t, err)
	assert.Equal(t, 2, repo.limit)

	_, err = svc.Run(ctx, models.ReportLowCompletionCourses, ReportQuery{})
	require.NoError(t, err)
	assert.Equal(t, "0.3", repo.threshold.String())

	_, err = svc.Run(ctx, models.ReportTopRatedInstructors, ReportQuery{})
	require.NoError(t, err)
	assert.Equal(t, "4.5", repo.minAverage.String())

	_, err = svc.Run(ctx, models.ReportMonthlyEnrollments, ReportQuery{})
	require.NoError(t, err)
	assert.Equal(t, 2024, repo.year)

	_, err = svc.Run(ctx, models.ReportInactiveStudents, ReportQuery{})
	require.NoError(t, err)
	assert.Equal(t, testNow, repo.asOf)

	asOf := time.Date(2023, time.March, 1, 0, 0, 0, 0, time.UTC)
	_, err = svc.Run(ctx, models.ReportMonthlyEnrollments, ReportQuery{Filter: models.ReportFilter{AsOf: asOf}})
	require.NoError(t, err)
	assert.Equal(t, 2023, repo.year)
}

func TestReportServiceConfigFrom(t *testing.T) {
	cfg := ReportServiceConfigFrom(config.ReportsConfig{LowCompletionThreshold: 0.25, TopRatedMinAverage: 4.0, TopRevenueLimit: 3, CacheTTL: time.Minute})

	assert.True(t, decimal.RequireFromString("0.25").Equal(cfg.LowCompletionThreshold))
	assert.True(t, decimal.NewFromInt(4).Equal(cfg.TopRatedMinAverage))
	assert.Equal(t, 3, cfg.TopRevenueLimit)
}

func TestReportServiceMapsMissingCourse(t *testing.T) {
	repo := &fakeReportRepo{courseErr: sql.ErrNoRows}
	svc := newReportService(repo, nil, nil)

	_, err := svc.Run(context.Background(), models.ReportCourseReport, ReportQuery{Filter: models.ReportFilter{CourseID: "ghost"}})
	requireAppError(t, err, appErrors.ErrNotFound, "")

	repo.courseErr = errors.New("db down")
	_, err = svc.Run(context.Background(), models.ReportCourseReport, ReportQuery{Filter: models.ReportFilter{CourseID: "c1"}})
	requireAppError(t, err, appErrors.ErrInternal, "")
}

func TestReportServiceCachesResults(t *testing.T) {
	repo := &fakeReportRepo{}
	cacheRepo := newFakeCacheRepo()
	metrics := NewMetricsService()
	cache := NewCacheService(cacheRepo, metrics, time.Minute, zap.NewNop(), true)
	svc := newReportService(repo, cache, metrics)
	ctx := context.Background()

	first, err := svc.Run(ctx, models.ReportDashboard, ReportQuery{})
	require.NoError(t, err)
	assert.False(t, first.CacheHit)
	assert.Equal(t, []string{"reports:dashboard:g0"}, cacheRepo.keys())

	second, err := svc.Run(ctx, models.ReportDashboard, ReportQuery{})
	require.NoError(t, err)
	assert.True(t, second.CacheHit)
	assert.Equal(t, 1, repo.dashboardCalls)

	row, ok := second.Rows.(*models.DashboardRow)
	require.True(t, ok)
	assert.Equal(t, 4, row.TotalStudents)
	assert.Equal(t, "449.5", row.TotalRevenue.String())

	require.NoError(t, cache.Invalidate(ctx, reportCachePattern))
	third, err := svc.Run(ctx, models.ReportDashboard, ReportQuery{})
	require.NoError(t, err)
	assert.False(t, third.CacheHit)
	assert.Equal(t, 2, repo.dashboardCalls)

	snap := metrics.Snapshot()
	assert.Equal(t, uint64(3), snap.ReportsServed)
	assert.Equal(t, uint64(1), snap.CacheHits)
	assert.Equal(t, uint64(2), snap.CacheMisses)
}

func TestReportServiceFallsBackWhenCacheFails(t *testing.T) {
	repo := &fakeReportRepo{}
	cacheRepo := newFakeCacheRepo()
	cacheRepo.failGet = errors.New("redis unavailable")
	cache := NewCacheService(cacheRepo, nil, time.Minute, zap.NewNop(), true)
	svc := newReportService(repo, cache, nil)

	result, err := svc.Run(context.Background(), models.ReportDashboard, ReportQuery{})
	require.NoError(t, err)
	assert.False(t, result.CacheHit)
	assert.Equal(t, 1, repo.dashboardCalls)
}

func TestReportServiceDropsResultComputedBeforeWrite(t *testing.T) {
	ctx := context.Background()
	cacheRepo := newFakeCacheRepo()
	cache := NewCacheService(cacheRepo, nil, time.Minute, zap.NewNop(), true)

	students := newFakeStudentRepo()
	studentSvc := NewStudentService(students, testDeps(cache))

	written := false
	repo := &fakeReportRepo{
		dashboardRow: func() *models.DashboardRow {
			return &models.DashboardRow{TotalStudents: len(students.students)}
		},
	}
	// A student is committed after the dashboard was computed but before
	// its result reaches the cache.
	repo.afterDashboard = func() {
		if written {
			return
		}
		written = true
		_, err := studentSvc.Create(ctx, validStudent())
		require.NoError(t, err)
	}
	svc := newReportService(repo, cache, nil)

	first, err := svc.Run(ctx, models.ReportDashboard, ReportQuery{})
	require.NoError(t, err)
	assert.Equal(t, 0, first.Rows.(*models.DashboardRow).TotalStudents)

	second, err := svc.Run(ctx, models.ReportDashboard, ReportQuery{})
	require.NoError(t, err)
	assert.False(t, second.CacheHit)
	assert.Equal(t, 1, second.Rows.(*models.DashboardRow).TotalStudents)

	third, err := svc.Run(ctx, models.ReportDashboard, ReportQuery{})
	require.NoError(t, err)
	assert.True(t, third.CacheHit)
	assert.Equal(t, 1, third.Rows.(*models.DashboardRow).TotalStudents)
	assert.Equal(t, 2, repo.dashboardCalls)
}

func TestReportServiceBypassesCacheAfterFailedInvalidation(t *testing.T) {
	ctx := context.Background()
	repo := &fakeReportRepo{}
	cacheRepo := newFakeCacheRepo()
	metrics := NewMetricsService()
	cache := NewCacheService(cacheRepo, metrics, time.Minute, zap.NewNop(), true)
	clock := testNow
	cache.now = func() time.Time { return clock }
	svc := newReportService(repo, cache, metrics)

	_, err := svc.Run(ctx, models.ReportDashboard, ReportQuery{})
	require.NoError(t, err)
	require.Len(t, cacheRepo.keys(), 1)

	cacheRepo.failIncr = errors.New("redis unavailable")
	err = cache.Invalidate(ctx, reportCachePattern)
	require.Error(t, err)
	assert.Equal(t, uint64(1), metrics.Snapshot().CacheInvalidationErrors)
	cacheRepo.failIncr = nil

	result, err := svc.Run(ctx, models.ReportDashboard, ReportQuery{})
	require.NoError(t, err)
	assert.False(t, result.CacheHit)
	assert.Empty(t, cacheRepo.keys())
	assert.Equal(t, 2, repo.dashboardCalls)

	clock = clock.Add(time.Minute + time.Second)
	_, err = svc.Run(ctx, models.ReportDashboard, ReportQuery{})
	require.NoError(t, err)
	assert.Len(t, cacheRepo.keys(), 1)

	result, err = svc.Run(ctx, models.ReportDashboard, ReportQuery{})
	require.NoError(t, err)
	assert.True(t, result.CacheHit)
	assert.Equal(t, 3, repo.dashboardCalls)
}

func TestReportCacheKey(t *testing.T) {
	key := ReportCacheKey(models.ReportCourseRoster, 0, map[string]string{"title": "Go", "course_id": "C1", "student_id": ""})
	assert.Equal(t, "reports:course-roster:g0:course_id=C1&title=Go", key)
	assert.Equal(t, "reports:dashboard:g0", ReportCacheKey(models.ReportDashboard, 0, nil))
	assert.Equal(t, "reports:dashboard:g3", ReportCacheKey(models.ReportDashboard, 3, nil))

	smuggled := ReportCacheKey(models.ReportCourseCatalog, 0, map[string]string{"course_id": "c1:title=go"})
	split := ReportCacheKey(models.ReportCourseCatalog, 0, map[string]string{"course_id": "c1", "title": "go"})
	assert.NotEqual(t, smuggled, split)

	ampersand := ReportCacheKey(models.ReportCourseCatalog, 0, map[string]string{"course_id": "c1&title=go"})
	assert.NotEqual(t, ampersand, split)
}
