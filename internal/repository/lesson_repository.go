package repository

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/edutech-api/internal/integrity"
	"github.com/noah-isme/edutech-api/internal/models"
)

// LessonRepository manages persistence for lessons.
type LessonRepository struct {
	db *sqlx.DB
}

// NewLessonRepository constructs a LessonRepository.
func NewLessonRepository(db *sqlx.DB) *LessonRepository {
	return &LessonRepository{db: db}
}

// ListByModule returns the lessons of a module in position order.
func (r *LessonRepository) ListByModule(ctx context.Context, moduleID string) ([]models.Lesson, error) {
	const query = `SELECT id, module_id, title, position, duration_minutes, type FROM lessons WHERE module_id = $1 ORDER BY position ASC`
	var lessons []models.Lesson
	if err := r.db.SelectContext(ctx, &lessons, query, moduleID); err != nil {
		return nil, fmt.Errorf("list lessons: %w", err)
	}
	return lessons, nil
}

// FindByID fetches a lesson by ID.
func (r *LessonRepository) FindByID(ctx context.Context, id string) (*models.Lesson, error) {
	var lesson models.Lesson
	if err := r.db.GetContext(ctx, &lesson, `SELECT id, module_id, title, position, duration_minutes, type FROM lessons WHERE id = $1`, id); err != nil {
		return nil, err
	}
	return &lesson, nil
}

// Create inserts a new lesson.
func (r *LessonRepository) Create(ctx context.Context, lesson *models.Lesson) error {
	if lesson.ID == "" {
		lesson.ID = uuid.NewString()
	}
	const query = `INSERT INTO lessons (id, module_id, title, position, duration_minutes, type)
        VALUES (:id, :module_id, :title, :position, :duration_minutes, :type)`
	if _, err := r.db.NamedExecContext(ctx, query, lesson); err != nil {
		return translateWriteError("create lesson", err)
	}
	return nil
}

// Update modifies a lesson. The row is locked so concurrent progress writes
// cannot record more watch time than the new duration allows.
func (r *LessonRepository) Update(ctx context.Context, lesson *models.Lesson) (err error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin update lesson: %w", err)
	}
	defer func() {
		if err != nil {
			rollback(tx)
		}
	}()

	var locked string
	if err = tx.GetContext(ctx, &locked, `SELECT id FROM lessons WHERE id = $1 FOR UPDATE`, lesson.ID); err != nil {
		return translateWriteError("lock lesson", err)
	}
	var maxWatched int
	if err = tx.GetContext(ctx, &maxWatched, `SELECT COALESCE(MAX(watched_minutes), 0) FROM lesson_progress WHERE lesson_id = $1`, lesson.ID); err != nil {
		return fmt.Errorf("max watched minutes: %w", err)
	}
	if err = integrity.CheckLessonDuration(lesson.DurationMinutes, maxWatched); err != nil {
		return err
	}

	const query = `UPDATE lessons SET title = :title, position = :position, duration_minutes = :duration_minutes, type = :type WHERE id = :id`
	if _, err = tx.NamedExecContext(ctx, query, lesson); err != nil {
		return translateWriteError("update lesson", err)
	}
	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit update lesson: %w", err)
	}
	return nil
}

// Delete removes a lesson that has no recorded progress.
func (r *LessonRepository) Delete(ctx context.Context, id string) error {
	return deleteWithPolicy(ctx, r.db, integrity.EntityLesson, "lessons", id)
}
