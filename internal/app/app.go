// Package app assembles the store, cache and services shared by the API
// server and the seeder.
package app

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/noah-isme/edutech-api/internal/repository"
	"github.com/noah-isme/edutech-api/internal/repository/memory"
	"github.com/noah-isme/edutech-api/internal/service"
	"github.com/noah-isme/edutech-api/pkg/cache"
	"github.com/noah-isme/edutech-api/pkg/config"
	"github.com/noah-isme/edutech-api/pkg/database"
	"github.com/noah-isme/edutech-api/pkg/export"
)

// Maintenance covers store-wide operations.
type Maintenance interface {
	Reset(ctx context.Context) error
	Ping(ctx context.Context) error
}

// Platform holds every service wired against one store.
type Platform struct {
	Students    *service.StudentService
	Instructors *service.InstructorService
	Categories  *service.CategoryService
	Courses     *service.CourseService
	Modules     *service.ModuleService
	Lessons     *service.LessonService
	Enrollments *service.EnrollmentService
	Progress    *service.ProgressService
	Ratings     *service.RatingService
	Reports     *service.ReportService
	Exports     *service.ExportService
	Metrics     *service.MetricsService
	Cache       *service.CacheService

	Store Maintenance
	// Redis is nil when report caching is disabled or Redis is unreachable.
	Redis *repository.CacheRepository

	closers []func() error
}

// Open connects the configured store and builds the services on top of it.
func Open(cfg *config.Config, logger *zap.Logger) (*Platform, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	p := &Platform{Metrics: service.NewMetricsService()}

	cacheRepo := p.openCache(cfg, logger)
	p.Cache = service.NewCacheService(cacheRepo, p.Metrics, cfg.Reports.CacheTTL, logger, cfg.Reports.CacheEnabled && p.Redis != nil)

	deps := service.Dependencies{
		Validator: service.NewValidator(),
		Logger:    logger,
		Cache:     p.Cache,
		Metrics:   p.Metrics,
	}

	switch cfg.StoreDriver {
	case config.StoreDriverMemory:
		p.wireMemory(deps, logger, cfg)
	case config.StoreDriverPostgres, "":
		if err := p.wirePostgres(deps, logger, cfg); err != nil {
			_ = p.Close()
			return nil, err
		}
	default:
		_ = p.Close()
		return nil, fmt.Errorf("unknown store driver %q", cfg.StoreDriver)
	}

	csv := export.NewCSVExporter(export.WithByteOrderMark(cfg.Reports.CSVByteOrderMark))
	p.Exports = service.NewExportService(p.Reports, logger, csv, nil)
	return p, nil
}

func (p *Platform) openCache(cfg *config.Config, logger *zap.Logger) *repository.CacheRepository {
	if !cfg.Reports.CacheEnabled {
		return repository.NewCacheRepository(nil, logger)
	}
	client, err := cache.NewRedis(cfg.Redis)
	if err != nil {
		logger.Warn("redis unavailable, report caching disabled", zap.String("addr", cache.Addr(cfg.Redis)), zap.Error(err))
		return repository.NewCacheRepository(nil, logger)
	}
	p.Redis = repository.NewCacheRepository(client, logger)
	p.closers = append(p.closers, p.Redis.Close)
	return p.Redis
}

func (p *Platform) wirePostgres(deps service.Dependencies, logger *zap.Logger, cfg *config.Config) error {
	dsn := database.DSN(cfg.Database)
	logger.Info("connecting to postgres", zap.String("dsn", database.MaskDSN(dsn)))

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		return fmt.Errorf("connect postgres: %w", err)
	}
	p.closers = append(p.closers, db.Close)

	if cfg.Database.RunMigrations {
		if err := database.RunMigrations(db.DB); err != nil {
			return err
		}
		logger.Info("migrations applied")
	}

	p.Students = service.NewStudentService(repository.NewStudentRepository(db), deps)
	p.Instructors = service.NewInstructorService(repository.NewInstructorRepository(db), deps)
	p.Categories = service.NewCategoryService(repository.NewCategoryRepository(db), deps)
	p.Courses = service.NewCourseService(repository.NewCourseRepository(db), deps)
	p.Modules = service.NewModuleService(repository.NewModuleRepository(db), deps)
	p.Lessons = service.NewLessonService(repository.NewLessonRepository(db), deps)
	p.Enrollments = service.NewEnrollmentService(repository.NewEnrollmentRepository(db), deps)
	p.Progress = service.NewProgressService(repository.NewProgressRepository(db), deps)
	p.Ratings = service.NewRatingService(repository.NewRatingRepository(db), deps)
	p.Reports = service.NewReportService(repository.NewReportRepository(db), p.Cache, p.Metrics, logger, service.ReportServiceConfigFrom(cfg.Reports))
	p.Store = repository.NewMaintenanceRepository(db)
	return nil
}

func (p *Platform) wireMemory(deps service.Dependencies, logger *zap.Logger, cfg *config.Config) {
	logger.Warn("using in-memory store, data is lost on exit")
	store := memory.New()

	p.Students = service.NewStudentService(store.Students(), deps)
	p.Instructors = service.NewInstructorService(store.Instructors(), deps)
	p.Categories = service.NewCategoryService(store.Categories(), deps)
	p.Courses = service.NewCourseService(store.Courses(), deps)
	p.Modules = service.NewModuleService(store.Modules(), deps)
	p.Lessons = service.NewLessonService(store.Lessons(), deps)
	p.Enrollments = service.NewEnrollmentService(store.Enrollments(), deps)
	p.Progress = service.NewProgressService(store.Progress(), deps)
	p.Ratings = service.NewRatingService(store.Ratings(), deps)
	p.Reports = service.NewReportService(store.Reports(), p.Cache, p.Metrics, logger, service.ReportServiceConfigFrom(cfg.Reports))
	p.Store = store.Maintenance()
}

// Close releases the database and Redis connections in reverse order.
func (p *Platform) Close() error {
	var errs []error
	for i := len(p.closers) - 1; i >= 0; i-- {
		if err := p.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	p.closers = nil
	return errors.Join(errs...)
}
