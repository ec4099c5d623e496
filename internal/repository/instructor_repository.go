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

// InstructorRepository manages persistence for instructors.
type InstructorRepository struct {
	db *sqlx.DB
}

// NewInstructorRepository constructs an InstructorRepository.
func NewInstructorRepository(db *sqlx.DB) *InstructorRepository {
	return &InstructorRepository{db: db}
}

// List returns instructors matching the provided filters.
func (r *InstructorRepository) List(ctx context.Context, filter models.InstructorFilter) ([]models.Instructor, int, error) {
	var builder strings.Builder
	builder.WriteString("FROM instructors WHERE 1=1")
	var args []interface{}
	if filter.Search != "" {
		args = append(args, "%"+strings.ToLower(filter.Search)+"%")
		builder.WriteString(fmt.Sprintf(" AND (LOWER(name) LIKE $%d OR LOWER(specialty) LIKE $%d)", len(args), len(args)))
	}
	base := builder.String()

	page, size := models.Normalize(filter.Page, filter.PageSize)
	query := fmt.Sprintf("SELECT id, name, email, specialty, biography %s ORDER BY name ASC, id ASC LIMIT %d OFFSET %d", base, size, (page-1)*size)

	var instructors []models.Instructor
	if err := r.db.SelectContext(ctx, &instructors, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list instructors: %w", err)
	}
	var total int
	if err := r.db.GetContext(ctx, &total, "SELECT COUNT(*) "+base, args...); err != nil {
		return nil, 0, fmt.Errorf("count instructors: %w", err)
	}
	return instructors, total, nil
}

// FindByID fetches an instructor by ID.
func (r *InstructorRepository) FindByID(ctx context.Context, id string) (*models.Instructor, error) {
	var instructor models.Instructor
	if err := r.db.GetContext(ctx, &instructor, `SELECT id, name, email, specialty, biography FROM instructors WHERE id = $1`, id); err != nil {
		return nil, err
	}
	return &instructor, nil
}

// Create inserts a new instructor.
func (r *InstructorRepository) Create(ctx context.Context, instructor *models.Instructor) error {
	if instructor.ID == "" {
		instructor.ID = uuid.NewString()
	}
	const query = `INSERT INTO instructors (id, name, email, specialty, biography)
        VALUES (:id, :name, :email, :specialty, :biography)`
	if _, err := r.db.NamedExecContext(ctx, query, instructor); err != nil {
		return translateWriteError("create instructor", err)
	}
	return nil
}

// Update modifies an existing instructor.
func (r *InstructorRepository) Update(ctx context.Context, instructor *models.Instructor) error {
	const query = `UPDATE instructors SET name = :name, email = :email, specialty = :specialty, biography = :biography WHERE id = :id`
	res, err := r.db.NamedExecContext(ctx, query, instructor)
	if err != nil {
		return translateWriteError("update instructor", err)
	}
	return ensureAffected(res)
}

// Delete removes an instructor without courses.
func (r *InstructorRepository) Delete(ctx context.Context, id string) error {
	return deleteWithPolicy(ctx, r.db, integrity.EntityInstructor, "instructors", id)
}
