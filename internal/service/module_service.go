package service

import (
	"context"
	"strings"

	"github.com/noah-isme/edutech-api/internal/models"
)

type moduleRepository interface {
	ListByCourse(ctx context.Context, courseID string) ([]models.Module, error)
	FindByID(ctx context.Context, id string) (*models.Module, error)
	Create(ctx context.Context, module *models.Module) error
	Update(ctx context.Context, module *models.Module) error
	Delete(ctx context.Context, id string) error
}

// CreateModuleRequest holds the payload for creating a module.
type CreateModuleRequest struct {
	ID          string  `json:"id" validate:"omitempty,max=64"`
	CourseID    string  `json:"course_id" validate:"required,notblank"`
	Title       string  `json:"title" validate:"required,notblank,max=255"`
	Position    int     `json:"position" validate:"gte=1"`
	Description *string `json:"description" validate:"omitempty,max=4000"`
}

// UpdateModuleRequest holds the payload for updating a module. The owning
// course cannot change.
type UpdateModuleRequest struct {
	Title       string  `json:"title" validate:"required,notblank,max=255"`
	Position    int     `json:"position" validate:"gte=1"`
	Description *string `json:"description" validate:"omitempty,max=4000"`
}

// ModuleService handles module use-cases.
type ModuleService struct {
	repo moduleRepository
	deps Dependencies
}

// NewModuleService constructs the module service.
func NewModuleService(repo moduleRepository, deps Dependencies) *ModuleService {
	return &ModuleService{repo: repo, deps: deps.withDefaults()}
}

// ListByCourse returns a course's modules by position.
func (s *ModuleService) ListByCourse(ctx context.Context, courseID string) ([]models.Module, error) {
	items, err := s.repo.ListByCourse(ctx, courseID)
	if err != nil {
		return nil, mapRepoErr(err, "module", "list")
	}
	return items, nil
}

// Get returns one module.
func (s *ModuleService) Get(ctx context.Context, id string) (*models.Module, error) {
	item, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, mapRepoErr(err, "module", "load")
	}
	return item, nil
}

// Create adds a module at a free position of a course.
func (s *ModuleService) Create(ctx context.Context, req CreateModuleRequest) (*models.Module, error) {
	if err := validate(s.deps.Validator, req, "module"); err != nil {
		return nil, err
	}
	item := &models.Module{
		ID:          strings.TrimSpace(req.ID),
		CourseID:    strings.TrimSpace(req.CourseID),
		Title:       strings.TrimSpace(req.Title),
		Position:    req.Position,
		Description: trimmedPtr(req.Description),
	}
	if err := s.repo.Create(ctx, item); err != nil {
		return nil, mapRepoErr(err, "module", "create")
	}
	s.deps.mutated(ctx, "module", "create", item.ID)
	return item, nil
}

// Update changes title, position and description.
func (s *ModuleService) Update(ctx context.Context, id string, req UpdateModuleRequest) (*models.Module, error) {
	if err := validate(s.deps.Validator, req, "module"); err != nil {
		return nil, err
	}
	item := &models.Module{ID: id, Title: strings.TrimSpace(req.Title), Position: req.Position, Description: trimmedPtr(req.Description)}
	if err := s.repo.Update(ctx, item); err != nil {
		return nil, mapRepoErr(err, "module", "update")
	}
	s.deps.mutated(ctx, "module", "update", id)
	return s.Get(ctx, id)
}

// Delete removes a module and its lessons unless a lesson has progress.
func (s *ModuleService) Delete(ctx context.Context, id string) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		return mapRepoErr(err, "module", "delete")
	}
	s.deps.mutated(ctx, "module", "delete", id)
	return nil
}
