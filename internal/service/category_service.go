package service

import (
	"context"
	"strings"

	"github.com/noah-isme/edutech-api/internal/models"
)

type categoryRepository interface {
	List(ctx context.Context) ([]models.Category, error)
	FindByID(ctx context.Context, id string) (*models.Category, error)
	Create(ctx context.Context, category *models.Category) error
	Update(ctx context.Context, category *models.Category) error
	Delete(ctx context.Context, id string) error
}

// CategoryRequest holds the payload for creating or updating a category.
type CategoryRequest struct {
	ID          string  `json:"id" validate:"omitempty,max=64"`
	Name        string  `json:"name" validate:"required,notblank,max=120"`
	Description *string `json:"description" validate:"omitempty,max=2000"`
}

// CategoryService handles category use-cases.
type CategoryService struct {
	repo categoryRepository
	deps Dependencies
}

// NewCategoryService constructs the category service.
func NewCategoryService(repo categoryRepository, deps Dependencies) *CategoryService {
	return &CategoryService{repo: repo, deps: deps.withDefaults()}
}

// List returns every category sorted by name.
func (s *CategoryService) List(ctx context.Context) ([]models.Category, error) {
	items, err := s.repo.List(ctx)
	if err != nil {
		return nil, mapRepoErr(err, "category", "list")
	}
	return items, nil
}

// Get returns one category.
func (s *CategoryService) Get(ctx context.Context, id string) (*models.Category, error) {
	item, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, mapRepoErr(err, "category", "load")
	}
	return item, nil
}

// Create adds a category.
func (s *CategoryService) Create(ctx context.Context, req CategoryRequest) (*models.Category, error) {
	if err := validate(s.deps.Validator, req, "category"); err != nil {
		return nil, err
	}
	item := &models.Category{ID: strings.TrimSpace(req.ID), Name: strings.TrimSpace(req.Name), Description: trimmedPtr(req.Description)}
	if err := s.repo.Create(ctx, item); err != nil {
		return nil, mapRepoErr(err, "category", "create")
	}
	s.deps.mutated(ctx, "category", "create", item.ID)
	return item, nil
}

// Update renames or re-describes a category.
func (s *CategoryService) Update(ctx context.Context, id string, req CategoryRequest) (*models.Category, error) {
	if err := validate(s.deps.Validator, req, "category"); err != nil {
		return nil, err
	}
	item := &models.Category{ID: id, Name: strings.TrimSpace(req.Name), Description: trimmedPtr(req.Description)}
	if err := s.repo.Update(ctx, item); err != nil {
		return nil, mapRepoErr(err, "category", "update")
	}
	s.deps.mutated(ctx, "category", "update", id)
	return item, nil
}

// Delete removes a category without courses.
func (s *CategoryService) Delete(ctx context.Context, id string) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		return mapRepoErr(err, "category", "delete")
	}
	s.deps.mutated(ctx, "category", "delete", id)
	return nil
}
