package repository

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/edutech-api/internal/integrity"
	"github.com/noah-isme/edutech-api/internal/models"
)

// CategoryRepository manages persistence for course categories.
type CategoryRepository struct {
	db *sqlx.DB
}

// NewCategoryRepository constructs a CategoryRepository.
func NewCategoryRepository(db *sqlx.DB) *CategoryRepository {
	return &CategoryRepository{db: db}
}

// List returns every category ordered by name.
func (r *CategoryRepository) List(ctx context.Context) ([]models.Category, error) {
	var categories []models.Category
	if err := r.db.SelectContext(ctx, &categories, `SELECT id, name, description FROM categories ORDER BY name ASC, id ASC`); err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	return categories, nil
}

// FindByID fetches a category by ID.
func (r *CategoryRepository) FindByID(ctx context.Context, id string) (*models.Category, error) {
	var category models.Category
	if err := r.db.GetContext(ctx, &category, `SELECT id, name, description FROM categories WHERE id = $1`, id); err != nil {
		return nil, err
	}
	return &category, nil
}

// Create inserts a new category.
func (r *CategoryRepository) Create(ctx context.Context, category *models.Category) error {
	if category.ID == "" {
		category.ID = uuid.NewString()
	}
	const query = `INSERT INTO categories (id, name, description) VALUES (:id, :name, :description)`
	if _, err := r.db.NamedExecContext(ctx, query, category); err != nil {
		return translateWriteError("create category", err)
	}
	return nil
}

// Update modifies an existing category.
func (r *CategoryRepository) Update(ctx context.Context, category *models.Category) error {
	res, err := r.db.NamedExecContext(ctx, `UPDATE categories SET name = :name, description = :description WHERE id = :id`, category)
	if err != nil {
		return translateWriteError("update category", err)
	}
	return ensureAffected(res)
}

// Delete removes a category without courses.
func (r *CategoryRepository) Delete(ctx context.Context, id string) error {
	return deleteWithPolicy(ctx, r.db, integrity.EntityCategory, "categories", id)
}
