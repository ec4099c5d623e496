package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
)

// MaintenanceRepository covers store-wide operations: readiness and resets.
type MaintenanceRepository struct {
	db *sqlx.DB
}

// NewMaintenanceRepository constructs a MaintenanceRepository.
func NewMaintenanceRepository(db *sqlx.DB) *MaintenanceRepository {
	return &MaintenanceRepository{db: db}
}

// Reset truncates every domain table in one statement.
func (r *MaintenanceRepository) Reset(ctx context.Context) error {
	const query = `TRUNCATE TABLE ratings, lesson_progress, enrollments, lessons, modules, courses, students, instructors, categories`
	if _, err := r.db.ExecContext(ctx, query); err != nil {
		return fmt.Errorf("truncate tables: %w", err)
	}
	return nil
}

// Ping reports whether the database is reachable.
func (r *MaintenanceRepository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}
