package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/edutech-api/internal/integrity"
	"github.com/noah-isme/edutech-api/internal/models"
)

const courseColumns = "id, title, description, category_id, instructor_id, price, duration_hours, level, created_at"

// CourseRepository manages persistence for courses.
type CourseRepository struct {
	db *sqlx.DB
}

// NewCourseRepository constructs a CourseRepository.
func NewCourseRepository(db *sqlx.DB) *CourseRepository {
	return &CourseRepository{db: db}
}

// List returns courses matching the provided filters.
func (r *CourseRepository) List(ctx context.Context, filter models.CourseFilter) ([]models.Course, int, error) {
	var builder strings.Builder
	builder.WriteString("FROM courses WHERE 1=1")
	var args []interface{}
	if filter.CategoryID != "" {
		args = append(args, filter.CategoryID)
		builder.WriteString(fmt.Sprintf(" AND category_id = $%d", len(args)))
	}
	if filter.InstructorID != "" {
		args = append(args, filter.InstructorID)
		builder.WriteString(fmt.Sprintf(" AND instructor_id = $%d", len(args)))
	}
	if filter.Level != "" {
		args = append(args, filter.Level)
		builder.WriteString(fmt.Sprintf(" AND level = $%d", len(args)))
	}
	base := builder.String()

	page, size := models.Normalize(filter.Page, filter.PageSize)
	query := fmt.Sprintf("SELECT %s %s ORDER BY title ASC, id ASC LIMIT %d OFFSET %d", courseColumns, base, size, (page-1)*size)

	var courses []models.Course
	if err := r.db.SelectContext(ctx, &courses, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list courses: %w", err)
	}
	var total int
	if err := r.db.GetContext(ctx, &total, "SELECT COUNT(*) "+base, args...); err != nil {
		return nil, 0, fmt.Errorf("count courses: %w", err)
	}
	return courses, total, nil
}

// FindByID fetches a course by ID.
func (r *CourseRepository) FindByID(ctx context.Context, id string) (*models.Course, error) {
	var course models.Course
	if err := r.db.GetContext(ctx, &course, "SELECT "+courseColumns+" FROM courses WHERE id = $1", id); err != nil {
		return nil, err
	}
	return &course, nil
}

// Create inserts a new course. Missing category or instructor surfaces as a
// reference error from the foreign keys.
func (r *CourseRepository) Create(ctx context.Context, course *models.Course) error {
	if course.ID == "" {
		course.ID = uuid.NewString()
	}
	if course.CreatedAt.IsZero() {
		course.CreatedAt = time.Now().UTC()
	}
	const query = `INSERT INTO courses (id, title, description, category_id, instructor_id, price, duration_hours, level, created_at)
        VALUES (:id, :title, :description, :category_id, :instructor_id, :price, :duration_hours, :level, :created_at)`
	if _, err := r.db.NamedExecContext(ctx, query, course); err != nil {
		return translateWriteError("create course", err)
	}
	return nil
}

// Update modifies an existing course.
func (r *CourseRepository) Update(ctx context.Context, course *models.Course) error {
	const query = `UPDATE courses SET title = :title, description = :description, category_id = :category_id,
        instructor_id = :instructor_id, price = :price, duration_hours = :duration_hours, level = :level WHERE id = :id`
	res, err := r.db.NamedExecContext(ctx, query, course)
	if err != nil {
		return translateWriteError("update course", err)
	}
	return ensureAffected(res)
}

// Delete removes a course together with its modules and lessons. Courses with
// enrollments are kept.
func (r *CourseRepository) Delete(ctx context.Context, id string) error {
	return deleteWithPolicy(ctx, r.db, integrity.EntityCourse, "courses", id)
}
