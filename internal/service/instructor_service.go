package service

import (
	"context"
	"strings"

	"github.com/noah-isme/edutech-api/internal/models"
)

type instructorRepository interface {
	List(ctx context.Context, filter models.InstructorFilter) ([]models.Instructor, int, error)
	FindByID(ctx context.Context, id string) (*models.Instructor, error)
	Create(ctx context.Context, instructor *models.Instructor) error
	Update(ctx context.Context, instructor *models.Instructor) error
	Delete(ctx context.Context, id string) error
}

// InstructorRequest holds the payload for creating or updating an instructor.
type InstructorRequest struct {
	ID        string  `json:"id" validate:"omitempty,max=64"`
	Name      string  `json:"name" validate:"required,notblank,max=255"`
	Email     string  `json:"email" validate:"required,email,max=255"`
	Specialty string  `json:"specialty" validate:"required,notblank,max=255"`
	Biography *string `json:"biography" validate:"omitempty,max=4000"`
}

// InstructorService handles instructor use-cases.
type InstructorService struct {
	repo instructorRepository
	deps Dependencies
}

// NewInstructorService constructs the instructor service.
func NewInstructorService(repo instructorRepository, deps Dependencies) *InstructorService {
	return &InstructorService{repo: repo, deps: deps.withDefaults()}
}

// List returns instructors and pagination metadata.
func (s *InstructorService) List(ctx context.Context, filter models.InstructorFilter) ([]models.Instructor, *models.Pagination, error) {
	items, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, mapRepoErr(err, "instructor", "list")
	}
	return items, paginationFor(filter.Page, filter.PageSize, total), nil
}

// Get returns one instructor.
func (s *InstructorService) Get(ctx context.Context, id string) (*models.Instructor, error) {
	item, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, mapRepoErr(err, "instructor", "load")
	}
	return item, nil
}

// Create registers an instructor.
func (s *InstructorService) Create(ctx context.Context, req InstructorRequest) (*models.Instructor, error) {
	if err := validate(s.deps.Validator, req, "instructor"); err != nil {
		return nil, err
	}
	item := instructorFrom(req)
	item.ID = strings.TrimSpace(req.ID)
	if err := s.repo.Create(ctx, item); err != nil {
		return nil, mapRepoErr(err, "instructor", "create")
	}
	s.deps.mutated(ctx, "instructor", "create", item.ID)
	return item, nil
}

// Update replaces an instructor's fields.
func (s *InstructorService) Update(ctx context.Context, id string, req InstructorRequest) (*models.Instructor, error) {
	if err := validate(s.deps.Validator, req, "instructor"); err != nil {
		return nil, err
	}
	item := instructorFrom(req)
	item.ID = id
	if err := s.repo.Update(ctx, item); err != nil {
		return nil, mapRepoErr(err, "instructor", "update")
	}
	s.deps.mutated(ctx, "instructor", "update", id)
	return item, nil
}

// Delete removes an instructor who teaches no course.
func (s *InstructorService) Delete(ctx context.Context, id string) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		return mapRepoErr(err, "instructor", "delete")
	}
	s.deps.mutated(ctx, "instructor", "delete", id)
	return nil
}

func instructorFrom(req InstructorRequest) *models.Instructor {
	return &models.Instructor{
		Name:      strings.TrimSpace(req.Name),
		Email:     strings.TrimSpace(req.Email),
		Specialty: strings.TrimSpace(req.Specialty),
		Biography: trimmedPtr(req.Biography),
	}
}
