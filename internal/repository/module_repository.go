package repository

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/edutech-api/internal/integrity"
	"github.com/noah-isme/edutech-api/internal/models"
)

// ModuleRepository manages persistence for course modules.
type ModuleRepository struct {
	db *sqlx.DB
}

// NewModuleRepository constructs a ModuleRepository.
func NewModuleRepository(db *sqlx.DB) *ModuleRepository {
	return &ModuleRepository{db: db}
}

// ListByCourse returns the modules of a course in position order.
func (r *ModuleRepository) ListByCourse(ctx context.Context, courseID string) ([]models.Module, error) {
	const query = `SELECT id, course_id, title, position, description FROM modules WHERE course_id = $1 ORDER BY position ASC`
	var modules []models.Module
	if err := r.db.SelectContext(ctx, &modules, query, courseID); err != nil {
		return nil, fmt.Errorf("list modules: %w", err)
	}
	return modules, nil
}

// FindByID fetches a module by ID.
func (r *ModuleRepository) FindByID(ctx context.Context, id string) (*models.Module, error) {
	var module models.Module
	if err := r.db.GetContext(ctx, &module, `SELECT id, course_id, title, position, description FROM modules WHERE id = $1`, id); err != nil {
		return nil, err
	}
	return &module, nil
}

// Create inserts a new module.
func (r *ModuleRepository) Create(ctx context.Context, module *models.Module) error {
	if module.ID == "" {
		module.ID = uuid.NewString()
	}
	const query = `INSERT INTO modules (id, course_id, title, position, description) VALUES (:id, :course_id, :title, :position, :description)`
	if _, err := r.db.NamedExecContext(ctx, query, module); err != nil {
		return translateWriteError("create module", err)
	}
	return nil
}

// Update modifies an existing module. The owning course is fixed.
func (r *ModuleRepository) Update(ctx context.Context, module *models.Module) error {
	const query = `UPDATE modules SET title = :title, position = :position, description = :description WHERE id = :id`
	res, err := r.db.NamedExecContext(ctx, query, module)
	if err != nil {
		return translateWriteError("update module", err)
	}
	return ensureAffected(res)
}

// Delete removes a module and its lessons.
func (r *ModuleRepository) Delete(ctx context.Context, id string) error {
	return deleteWithPolicy(ctx, r.db, integrity.EntityModule, "modules", id)
}
