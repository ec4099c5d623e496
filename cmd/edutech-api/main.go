package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	_ "github.com/noah-isme/edutech-api/api/swagger"
	"github.com/noah-isme/edutech-api/internal/app"
	"github.com/noah-isme/edutech-api/internal/handler"
	"github.com/noah-isme/edutech-api/internal/middleware"
	"github.com/noah-isme/edutech-api/internal/service"
	"github.com/noah-isme/edutech-api/pkg/config"
	"github.com/noah-isme/edutech-api/pkg/logger"
)

// @title EduTech API
// @version 1.0.0
// @description Online course catalogue, enrollments, learning progress and reports.
// @BasePath /api/v1
// @schemes http
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logr, err := logger.New(cfg)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logr.Sync() //nolint:errcheck

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	platform, err := app.Open(cfg, logr)
	if err != nil {
		logr.Fatal("failed to open store", zap.String("driver", cfg.StoreDriver), zap.Error(err))
	}
	defer platform.Close() //nolint:errcheck

	checks := map[string]handler.Pinger{"store": platform.Store}
	if platform.Redis != nil {
		checks["redis"] = platform.Redis
	}

	var tokens middleware.TokenValidator
	if cfg.Auth.Enabled {
		tokens = service.NewTokenService(cfg.Auth.JWTSecret)
	}

	router := handler.NewRouter(handler.RouterConfig{
		APIPrefix:      cfg.APIPrefix,
		AllowedOrigins: cfg.CORS.AllowedOrigins,
		AuthEnabled:    cfg.Auth.Enabled,
		Tokens:         tokens,
		EnableDocs:     cfg.Env != config.EnvProduction,
		Logger:         logr,
		Metrics:        platform.Metrics,
	}, handler.Handlers{
		Students:    handler.NewStudentHandler(platform.Students),
		Instructors: handler.NewInstructorHandler(platform.Instructors),
		Categories:  handler.NewCategoryHandler(platform.Categories),
		Courses:     handler.NewCourseHandler(platform.Courses),
		Modules:     handler.NewModuleHandler(platform.Modules),
		Lessons:     handler.NewLessonHandler(platform.Lessons),
		Enrollments: handler.NewEnrollmentHandler(platform.Enrollments),
		Progress:    handler.NewProgressHandler(platform.Progress),
		Ratings:     handler.NewRatingHandler(platform.Ratings),
		Reports:     handler.NewReportHandler(platform.Reports, platform.Exports),
		Health:      handler.NewHealthHandler(checks),
		Metrics:     handler.NewMetricsHandler(platform.Metrics),
	})

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go func() {
		logr.Sugar().Infow("server starting", "addr", srv.Addr, "env", cfg.Env, "store", cfg.StoreDriver, "auth", cfg.Auth.Enabled)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logr.Sugar().Fatalw("server failed", "error", err)
		}
	}()

	<-ctx.Done()
	logr.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logr.Error("graceful shutdown failed", zap.Error(err))
	}
}
