package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/edutech-api/internal/integrity"
	"github.com/noah-isme/edutech-api/internal/models"
)

const progressColumns = "id, enrollment_id, lesson_id, completed, completed_at, watched_minutes"

// ProgressRepository manages lesson progress rows.
type ProgressRepository struct {
	db *sqlx.DB
}

// NewProgressRepository constructs a ProgressRepository.
func NewProgressRepository(db *sqlx.DB) *ProgressRepository {
	return &ProgressRepository{db: db}
}

// ListByEnrollment returns the progress rows of one enrollment.
func (r *ProgressRepository) ListByEnrollment(ctx context.Context, enrollmentID string) ([]models.LessonProgress, error) {
	var rows []models.LessonProgress
	query := "SELECT " + progressColumns + " FROM lesson_progress WHERE enrollment_id = $1 ORDER BY id ASC"
	if err := r.db.SelectContext(ctx, &rows, query, enrollmentID); err != nil {
		return nil, fmt.Errorf("list progress: %w", err)
	}
	return rows, nil
}

// FindByID fetches a progress row by ID.
func (r *ProgressRepository) FindByID(ctx context.Context, id string) (*models.LessonProgress, error) {
	var progress models.LessonProgress
	if err := r.db.GetContext(ctx, &progress, "SELECT "+progressColumns+" FROM lesson_progress WHERE id = $1", id); err != nil {
		return nil, err
	}
	return &progress, nil
}

// Create records progress after checking it against the enrollment and
// lesson, both share-locked for the duration of the transaction.
func (r *ProgressRepository) Create(ctx context.Context, progress *models.LessonProgress) (err error) {
	if progress.ID == "" {
		progress.ID = uuid.NewString()
	}
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin create progress: %w", err)
	}
	defer func() {
		if err != nil {
			rollback(tx)
		}
	}()

	if err = checkProgressTx(ctx, tx, progress); err != nil {
		return err
	}
	const query = `INSERT INTO lesson_progress (id, enrollment_id, lesson_id, completed, completed_at, watched_minutes)
        VALUES (:id, :enrollment_id, :lesson_id, :completed, :completed_at, :watched_minutes)`
	if _, err = tx.NamedExecContext(ctx, query, progress); err != nil {
		return translateWriteError("create progress", err)
	}
	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit create progress: %w", err)
	}
	return nil
}

// Update changes the completion state and watch time of a progress row.
func (r *ProgressRepository) Update(ctx context.Context, progress *models.LessonProgress) (err error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin update progress: %w", err)
	}
	defer func() {
		if err != nil {
			rollback(tx)
		}
	}()

	var current models.LessonProgress
	if err = tx.GetContext(ctx, &current, "SELECT "+progressColumns+" FROM lesson_progress WHERE id = $1 FOR UPDATE", progress.ID); err != nil {
		return err
	}
	progress.EnrollmentID = current.EnrollmentID
	progress.LessonID = current.LessonID

	if err = checkProgressTx(ctx, tx, progress); err != nil {
		return err
	}
	const query = `UPDATE lesson_progress SET completed = :completed, completed_at = :completed_at, watched_minutes = :watched_minutes WHERE id = :id`
	if _, err = tx.NamedExecContext(ctx, query, progress); err != nil {
		return translateWriteError("update progress", err)
	}
	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit update progress: %w", err)
	}
	return nil
}

// Delete removes a progress row.
func (r *ProgressRepository) Delete(ctx context.Context, id string) error {
	return deleteWithPolicy(ctx, r.db, integrity.EntityProgress, "lesson_progress", id)
}

func checkProgressTx(ctx context.Context, tx *sqlx.Tx, progress *models.LessonProgress) error {
	enrollment, err := lockEnrollment(ctx, tx, progress.EnrollmentID)
	if err != nil {
		return err
	}
	var scope models.LessonScope
	var lesson *models.Lesson
	const lessonQuery = `SELECT l.id, l.module_id, l.title, l.position, l.duration_minutes, l.type, m.course_id
        FROM lessons l JOIN modules m ON m.id = l.module_id WHERE l.id = $1 FOR SHARE OF l`
	switch err := tx.GetContext(ctx, &scope, lessonQuery, progress.LessonID); {
	case errors.Is(err, sql.ErrNoRows):
	case err != nil:
		return fmt.Errorf("lock lesson: %w", err)
	default:
		lesson = &scope.Lesson
	}

	if err := integrity.CheckProgress(progress, lesson); err != nil {
		return err
	}
	return integrity.CheckProgressScope(scope.CourseID, enrollment)
}

// lockEnrollment share-locks an enrollment row, returning nil when it does not
// exist.
func lockEnrollment(ctx context.Context, tx *sqlx.Tx, id string) (*models.Enrollment, error) {
	var enrollment models.Enrollment
	err := tx.GetContext(ctx, &enrollment, "SELECT "+enrollmentColumns+" FROM enrollments WHERE id = $1 FOR SHARE", id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("lock enrollment: %w", err)
	}
	return &enrollment, nil
}
