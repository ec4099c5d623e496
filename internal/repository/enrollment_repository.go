package repository

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/edutech-api/internal/integrity"
	"github.com/noah-isme/edutech-api/internal/models"
)

const enrollmentColumns = "id, student_id, course_id, enrolled_on, completed_on, status, amount_paid"

// EnrollmentRepository manages student enrollments.
type EnrollmentRepository struct {
	db *sqlx.DB
}

// NewEnrollmentRepository constructs an EnrollmentRepository.
func NewEnrollmentRepository(db *sqlx.DB) *EnrollmentRepository {
	return &EnrollmentRepository{db: db}
}

// List returns enrollments matching the provided filters.
func (r *EnrollmentRepository) List(ctx context.Context, filter models.EnrollmentFilter) ([]models.Enrollment, int, error) {
	var builder strings.Builder
	builder.WriteString("FROM enrollments WHERE 1=1")
	var args []interface{}
	if filter.StudentID != "" {
		args = append(args, filter.StudentID)
		builder.WriteString(fmt.Sprintf(" AND student_id = $%d", len(args)))
	}
	if filter.CourseID != "" {
		args = append(args, filter.CourseID)
		builder.WriteString(fmt.Sprintf(" AND course_id = $%d", len(args)))
	}
	if filter.Status != "" {
		args = append(args, filter.Status)
		builder.WriteString(fmt.Sprintf(" AND status = $%d", len(args)))
	}
	base := builder.String()

	page, size := models.Normalize(filter.Page, filter.PageSize)
	query := fmt.Sprintf("SELECT %s %s ORDER BY enrolled_on DESC, id ASC LIMIT %d OFFSET %d", enrollmentColumns, base, size, (page-1)*size)

	var enrollments []models.Enrollment
	if err := r.db.SelectContext(ctx, &enrollments, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list enrollments: %w", err)
	}
	var total int
	if err := r.db.GetContext(ctx, &total, "SELECT COUNT(*) "+base, args...); err != nil {
		return nil, 0, fmt.Errorf("count enrollments: %w", err)
	}
	return enrollments, total, nil
}

// FindByID fetches an enrollment by ID.
func (r *EnrollmentRepository) FindByID(ctx context.Context, id string) (*models.Enrollment, error) {
	var enrollment models.Enrollment
	if err := r.db.GetContext(ctx, &enrollment, "SELECT "+enrollmentColumns+" FROM enrollments WHERE id = $1", id); err != nil {
		return nil, err
	}
	return &enrollment, nil
}

// Create inserts a new enrollment. The (student, course) pair is unique.
func (r *EnrollmentRepository) Create(ctx context.Context, enrollment *models.Enrollment) error {
	if enrollment.ID == "" {
		enrollment.ID = uuid.NewString()
	}
	const query = `INSERT INTO enrollments (id, student_id, course_id, enrolled_on, completed_on, status, amount_paid)
        VALUES (:id, :student_id, :course_id, :enrolled_on, :completed_on, :status, :amount_paid)`
	if _, err := r.db.NamedExecContext(ctx, query, enrollment); err != nil {
		return translateWriteError("create enrollment", err)
	}
	return nil
}

// Update modifies the lifecycle fields of an enrollment. Student and course
// are fixed once enrolled.
func (r *EnrollmentRepository) Update(ctx context.Context, enrollment *models.Enrollment) error {
	const query = `UPDATE enrollments SET enrolled_on = :enrolled_on, completed_on = :completed_on, status = :status,
        amount_paid = :amount_paid WHERE id = :id`
	res, err := r.db.NamedExecContext(ctx, query, enrollment)
	if err != nil {
		return translateWriteError("update enrollment", err)
	}
	return ensureAffected(res)
}

// Delete removes an enrollment with its progress and rating.
func (r *EnrollmentRepository) Delete(ctx context.Context, id string) error {
	return deleteWithPolicy(ctx, r.db, integrity.EntityEnrollment, "enrollments", id)
}
