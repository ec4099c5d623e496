package handler

import (
	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	"github.com/noah-isme/edutech-api/internal/middleware"
	"github.com/noah-isme/edutech-api/internal/service"
	"github.com/noah-isme/edutech-api/pkg/logger"
	corsmiddleware "github.com/noah-isme/edutech-api/pkg/middleware/cors"
	reqidmiddleware "github.com/noah-isme/edutech-api/pkg/middleware/requestid"
)

type resourceHandler interface {
	List(c *gin.Context)
	Get(c *gin.Context)
	Create(c *gin.Context)
	Update(c *gin.Context)
	Delete(c *gin.Context)
}

// Handlers groups every HTTP handler mounted by the router.
type Handlers struct {
	Students    *StudentHandler
	Instructors *InstructorHandler
	Categories  *CategoryHandler
	Courses     *CourseHandler
	Modules     *ModuleHandler
	Lessons     *LessonHandler
	Enrollments *EnrollmentHandler
	Progress    *ProgressHandler
	Ratings     *RatingHandler
	Reports     *ReportHandler
	Health      *HealthHandler
	Metrics     *MetricsHandler
}

// RouterConfig carries the cross-cutting settings of the HTTP surface.
type RouterConfig struct {
	APIPrefix      string
	AllowedOrigins []string
	AuthEnabled    bool
	Tokens         middleware.TokenValidator
	EnableDocs     bool
	Logger         *zap.Logger
	Metrics        *service.MetricsService
}

// NewRouter builds the gin engine with middleware and every route.
func NewRouter(cfg RouterConfig, h Handlers) *gin.Engine {
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(cfg.Logger))
	r.Use(corsmiddleware.New(cfg.AllowedOrigins))
	r.Use(middleware.Metrics(cfg.Metrics))

	r.GET("/health", h.Health.Health)
	r.GET("/ready", h.Health.Ready)
	r.GET("/metrics", h.Metrics.Prometheus)
	if cfg.EnableDocs {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	api := r.Group(cfg.APIPrefix)
	api.GET("/metrics/summary", h.Metrics.Summary)

	guard := middleware.WriteGuard(cfg.AuthEnabled, cfg.Tokens)
	mount(api, "/students", h.Students, guard)
	mount(api, "/instructors", h.Instructors, guard)
	mount(api, "/categories", h.Categories, guard)
	mount(api, "/courses", h.Courses, guard)
	mount(api, "/modules", h.Modules, guard)
	mount(api, "/lessons", h.Lessons, guard)
	mount(api, "/enrollments", h.Enrollments, guard)
	mount(api, "/progress", h.Progress, guard)
	mount(api, "/ratings", h.Ratings, guard)

	reports := api.Group("/reports")
	reports.GET("", h.Reports.Index)
	reports.GET("/:name", h.Reports.Get)
	reports.GET("/:name/export", h.Reports.Export)

	return r
}

func mount(api *gin.RouterGroup, path string, h resourceHandler, guard []gin.HandlerFunc) {
	group := api.Group(path)
	group.GET("", h.List)
	group.GET("/:id", h.Get)

	writes := group.Group("", guard...)
	writes.POST("", h.Create)
	writes.PUT("/:id", h.Update)
	writes.DELETE("/:id", h.Delete)
}
