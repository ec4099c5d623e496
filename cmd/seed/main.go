package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/edutech-api/internal/app"
	"github.com/noah-isme/edutech-api/internal/models"
	"github.com/noah-isme/edutech-api/internal/seed"
	"github.com/noah-isme/edutech-api/internal/service"
	"github.com/noah-isme/edutech-api/pkg/config"
	"github.com/noah-isme/edutech-api/pkg/database"
	"github.com/noah-isme/edutech-api/pkg/logger"
)

func main() {
	defaults := seed.DefaultOptions()
	opts := defaults

	flag.BoolVar(&opts.Reset, "reset", false, "truncate every table before seeding")
	flag.IntVar(&opts.Categories, "categories", defaults.Categories, "number of categories (5 to 8)")
	flag.IntVar(&opts.Instructors, "instructors", defaults.Instructors, "number of instructors")
	flag.IntVar(&opts.Courses, "courses", defaults.Courses, "number of courses")
	flag.IntVar(&opts.Students, "students", defaults.Students, "number of students")
	flag.IntVar(&opts.Enrollments, "enrollments", defaults.Enrollments, "number of enrollments")
	flag.IntVar(&opts.MinModules, "min-modules", defaults.MinModules, "minimum modules per course")
	flag.IntVar(&opts.MaxModules, "max-modules", defaults.MaxModules, "maximum modules per course")
	flag.IntVar(&opts.MinLessons, "min-lessons", defaults.MinLessons, "minimum lessons per module")
	flag.IntVar(&opts.MaxLessons, "max-lessons", defaults.MaxLessons, "maximum lessons per module")
	flag.Uint64Var(&opts.Seed, "seed", 0, "random seed, 0 picks one")
	adminToken := flag.Duration("admin-token", 0, "also print an admin bearer token valid for this long")
	flag.Parse()

	if err := opts.Validate(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		flag.Usage()
		os.Exit(2)
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logr, err := logger.New(cfg)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logr.Sync() //nolint:errcheck

	if cfg.StoreDriver == config.StoreDriverMemory {
		logr.Warn("seeding the in-memory store only checks the generator, nothing is kept")
	} else {
		fmt.Printf("Connecting to %s\n", database.MaskDSN(database.DSN(cfg.Database)))
	}

	platform, err := app.Open(cfg, logr)
	if err != nil {
		logr.Fatal("failed to open store", zap.Error(err))
	}
	defer platform.Close() //nolint:errcheck

	seeder := seed.New(seed.Services{
		Students:    platform.Students,
		Instructors: platform.Instructors,
		Categories:  platform.Categories,
		Courses:     platform.Courses,
		Modules:     platform.Modules,
		Lessons:     platform.Lessons,
		Enrollments: platform.Enrollments,
		Progress:    platform.Progress,
		Ratings:     platform.Ratings,
	}, platform.Store, logr, opts)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
	defer cancel()

	sum, err := seeder.Run(ctx)
	if err != nil {
		logr.Fatal("seed failed", zap.Error(err))
	}

	fmt.Printf("Seeded %d categories, %d instructors, %d courses (%d modules, %d lessons), %d students, %d enrollments, %d progress rows, %d ratings\n",
		sum.Categories, sum.Instructors, sum.Courses, sum.Modules, sum.Lessons,
		sum.Students, sum.Enrollments, sum.Progress, sum.Ratings)

	if *adminToken > 0 {
		token, err := service.NewTokenService(cfg.Auth.JWTSecret).Issue("seed-admin", models.RoleAdmin, "admin@edutech.local", *adminToken)
		if err != nil {
			logr.Fatal("failed to issue admin token", zap.Error(err))
		}
		fmt.Printf("Admin token: %s\n", token)
	}
}
