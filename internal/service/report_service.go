package service

import (
	"context"
	"database/sql"
	"errors"
	"strconv"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/noah-isme/edutech-api/internal/models"
	"github.com/noah-isme/edutech-api/pkg/config"
	appErrors "github.com/noah-isme/edutech-api/pkg/errors"
)

type reportRepository interface {
	CourseCatalog(ctx context.Context, filter models.ReportFilter) ([]models.CourseCatalogRow, error)
	CourseRoster(ctx context.Context, filter models.ReportFilter) ([]models.CourseRosterRow, error)
	LessonOutline(ctx context.Context, courseID string) ([]models.LessonOutlineRow, error)
	CourseRatings(ctx context.Context) ([]models.CourseRatingRow, error)
	CourseEnrollmentCounts(ctx context.Context) ([]models.CourseEnrollmentCountRow, error)
	CategoryRevenue(ctx context.Context) ([]models.CategoryRevenueRow, error)
	TopActiveCourse(ctx context.Context) ([]models.TopActiveCourseRow, error)
	EnrollmentCompletion(ctx context.Context, filter models.ReportFilter) ([]models.EnrollmentCompletionRow, error)
	CourseReport(ctx context.Context, courseID string) (*models.CourseReportRow, error)
	InstructorSummary(ctx context.Context) ([]models.InstructorSummaryRow, error)
	TopCoursesByRevenue(ctx context.Context, limit int) ([]models.CourseRevenueRow, error)
	InactiveStudents(ctx context.Context, asOf time.Time) ([]models.InactiveStudentRow, error)
	Dashboard(ctx context.Context) (*models.DashboardRow, error)
	LowCompletionCourses(ctx context.Context, threshold decimal.Decimal) ([]models.LowCompletionRow, error)
	TopRatedInstructors(ctx context.Context, minAverage decimal.Decimal) ([]models.TopRatedInstructorRow, error)
	PopularCategories(ctx context.Context) ([]models.PopularCategoryRow, error)
	MonthlyEnrollments(ctx context.Context, year int) ([]models.MonthlyEnrollmentRow, error)
}

// ReportServiceConfig holds report defaults.
type ReportServiceConfig struct {
	LowCompletionThreshold decimal.Decimal
	TopRatedMinAverage     decimal.Decimal
	TopRevenueLimit        int
	CacheTTL               time.Duration
}

// ReportServiceConfigFrom converts the loaded configuration. Thresholds are
// read as floats and fixed to two decimals.
func ReportServiceConfigFrom(cfg config.ReportsConfig) ReportServiceConfig {
	return ReportServiceConfig{
		LowCompletionThreshold: decimal.NewFromFloat(cfg.LowCompletionThreshold).Round(2),
		TopRatedMinAverage:     decimal.NewFromFloat(cfg.TopRatedMinAverage).Round(2),
		TopRevenueLimit:        cfg.TopRevenueLimit,
		CacheTTL:               cfg.CacheTTL,
	}
}

func (c ReportServiceConfig) withDefaults() ReportServiceConfig {
	if c.LowCompletionThreshold.IsZero() {
		c.LowCompletionThreshold = decimal.RequireFromString("0.30")
	}
	if c.TopRatedMinAverage.IsZero() {
		c.TopRatedMinAverage = decimal.RequireFromString("4.5")
	}
	if c.TopRevenueLimit <= 0 {
		c.TopRevenueLimit = 5
	}
	return c
}

// ReportQuery carries the optional report parameters. Zero values select the
// configured defaults; AsOf defaults to today.
type ReportQuery struct {
	Filter     models.ReportFilter
	Threshold  decimal.NullDecimal
	MinAverage decimal.NullDecimal
	Limit      int
}

// ReportResult is one computed report.
type ReportResult struct {
	Name       models.ReportName `json:"name"`
	Rows       interface{}       `json:"rows"`
	CacheHit   bool              `json:"-"`
	Duration   time.Duration     `json:"-"`
	ComputedAt time.Time         `json:"-"`
}

// ReportService runs the aggregate reports, optionally through the cache.
type ReportService struct {
	repo    reportRepository
	cache   *CacheService
	metrics *MetricsService
	logger  *zap.Logger
	cfg     ReportServiceConfig
	now     func() time.Time
}

// NewReportService constructs the report service. cache and metrics may be nil.
func NewReportService(repo reportRepository, cache *CacheService, metrics *MetricsService, logger *zap.Logger, cfg ReportServiceConfig) *ReportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ReportService{
		repo:    repo,
		cache:   cache,
		metrics: metrics,
		logger:  logger,
		cfg:     cfg.withDefaults(),
		now:     func() time.Time { return time.Now().UTC() },
	}
}

// Run validates the query and produces the named report.
func (s *ReportService) Run(ctx context.Context, name models.ReportName, q ReportQuery) (*ReportResult, error) {
	if !name.Valid() {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "unknown report "+string(name))
	}
	f := q.Filter
	if f.Level != "" && !f.Level.Valid() {
		return nil, appErrors.OnField(appErrors.ErrValidation, "level", "level must be one of beginner, intermediate, advanced")
	}
	if f.AsOf.IsZero() {
		f.AsOf = s.now()
	}
	asOf := f.AsOf.Format(dateLayout)

	switch name {
	case models.ReportCourseCatalog:
		return runReport(ctx, s, name, map[string]string{"category_id": f.CategoryID, "level": string(f.Level)},
			func(ctx context.Context) ([]models.CourseCatalogRow, error) { return s.repo.CourseCatalog(ctx, f) })
	case models.ReportCourseRoster:
		return runReport(ctx, s, name, map[string]string{"course_id": f.CourseID, "title": f.TitleLike},
			func(ctx context.Context) ([]models.CourseRosterRow, error) { return s.repo.CourseRoster(ctx, f) })
	case models.ReportLessonOutline:
		if f.CourseID == "" {
			return nil, courseIDRequired()
		}
		return runReport(ctx, s, name, map[string]string{"course_id": f.CourseID},
			func(ctx context.Context) ([]models.LessonOutlineRow, error) { return s.repo.LessonOutline(ctx, f.CourseID) })
	case models.ReportCourseRatings:
		return runReport(ctx, s, name, nil, s.repo.CourseRatings)
	case models.ReportCourseEnrollmentCounts:
		return runReport(ctx, s, name, nil, s.repo.CourseEnrollmentCounts)
	case models.ReportCategoryRevenue:
		return runReport(ctx, s, name, nil, s.repo.CategoryRevenue)
	case models.ReportTopActiveCourse:
		return runReport(ctx, s, name, nil, s.repo.TopActiveCourse)
	case models.ReportEnrollmentCompletion:
		return runReport(ctx, s, name, map[string]string{"course_id": f.CourseID, "student_id": f.StudentID},
			func(ctx context.Context) ([]models.EnrollmentCompletionRow, error) { return s.repo.EnrollmentCompletion(ctx, f) })
	case models.ReportCourseReport:
		if f.CourseID == "" {
			return nil, courseIDRequired()
		}
		return runReport(ctx, s, name, map[string]string{"course_id": f.CourseID},
			func(ctx context.Context) (*models.CourseReportRow, error) { return s.repo.CourseReport(ctx, f.CourseID) })
	case models.ReportInstructorSummary:
		return runReport(ctx, s, name, nil, s.repo.InstructorSummary)
	case models.ReportTopCoursesByRevenue:
		limit := s.cfg.TopRevenueLimit
		if q.Limit != 0 {
			if q.Limit < 1 || q.Limit > 100 {
				return nil, appErrors.OnField(appErrors.ErrValidation, "limit", "limit must be between 1 and 100")
			}
			limit = q.Limit
		}
		return runReport(ctx, s, name, map[string]string{"limit": strconv.Itoa(limit)},
			func(ctx context.Context) ([]models.CourseRevenueRow, error) { return s.repo.TopCoursesByRevenue(ctx, limit) })
	case models.ReportInactiveStudents:
		return runReport(ctx, s, name, map[string]string{"as_of": asOf},
			func(ctx context.Context) ([]models.InactiveStudentRow, error) { return s.repo.InactiveStudents(ctx, f.AsOf) })
	case models.ReportDashboard:
		return runReport(ctx, s, name, nil, s.repo.Dashboard)
	case models.ReportLowCompletionCourses:
		threshold := s.cfg.LowCompletionThreshold
		if q.Threshold.Valid {
			if q.Threshold.Decimal.IsNegative() || q.Threshold.Decimal.GreaterThan(decimal.NewFromInt(1)) {
				return nil, appErrors.OnField(appErrors.ErrValidation, "threshold", "threshold must be between 0 and 1")
			}
			threshold = q.Threshold.Decimal
		}
		return runReport(ctx, s, name, map[string]string{"threshold": threshold.String()},
			func(ctx context.Context) ([]models.LowCompletionRow, error) { return s.repo.LowCompletionCourses(ctx, threshold) })
	case models.ReportTopRatedInstructors:
		minAverage := s.cfg.TopRatedMinAverage
		if q.MinAverage.Valid {
			if q.MinAverage.Decimal.IsNegative() || q.MinAverage.Decimal.GreaterThan(decimal.NewFromInt(5)) {
				return nil, appErrors.OnField(appErrors.ErrValidation, "min_average", "min_average must be between 0 and 5")
			}
			minAverage = q.MinAverage.Decimal
		}
		return runReport(ctx, s, name, map[string]string{"min_average": minAverage.String()},
			func(ctx context.Context) ([]models.TopRatedInstructorRow, error) { return s.repo.TopRatedInstructors(ctx, minAverage) })
	case models.ReportPopularCategories:
		return runReport(ctx, s, name, nil, s.repo.PopularCategories)
	default:
		year := f.AsOf.Year()
		return runReport(ctx, s, name, map[string]string{"year": strconv.Itoa(year)},
			func(ctx context.Context) ([]models.MonthlyEnrollmentRow, error) { return s.repo.MonthlyEnrollments(ctx, year) })
	}
}

// runReport serves a report from the cache when possible and computes and
// stores it otherwise.
func runReport[T any](ctx context.Context, s *ReportService, name models.ReportName, params map[string]string, compute func(context.Context) (T, error)) (*ReportResult, error) {
	start := time.Now()

	// The generation is read before computing: a write committed meanwhile
	// advances it, so these rows land under a key nobody reads again.
	gen, cacheable := s.cache.Generation(ctx)
	key := ReportCacheKey(name, gen, params)

	var rows T
	hit := cacheable && s.cache.Get(ctx, key, &rows)
	if !hit {
		var err error
		rows, err = compute(ctx)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return nil, appErrors.Clone(appErrors.ErrNotFound, "course not found")
			}
			s.logger.Error("report failed", zap.String("report", string(name)), zap.Error(err))
			return nil, mapRepoErr(err, "report", "run")
		}
		if cacheable {
			s.cache.Set(ctx, key, rows, s.cfg.CacheTTL)
		}
	}

	elapsed := time.Since(start)
	s.metrics.ObserveReport(string(name), hit, elapsed)
	s.logger.Debug("report served", zap.String("report", string(name)), zap.Bool("cache_hit", hit), zap.Duration("elapsed", elapsed))
	return &ReportResult{Name: name, Rows: rows, CacheHit: hit, Duration: elapsed, ComputedAt: s.now()}, nil
}

func courseIDRequired() error {
	return appErrors.OnField(appErrors.ErrValidation, "course_id", "course_id is required")
}
