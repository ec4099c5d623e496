package service

import (
	"context"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/noah-isme/edutech-api/internal/models"
)

type courseRepository interface {
	List(ctx context.Context, filter models.CourseFilter) ([]models.Course, int, error)
	FindByID(ctx context.Context, id string) (*models.Course, error)
	Create(ctx context.Context, course *models.Course) error
	Update(ctx context.Context, course *models.Course) error
	Delete(ctx context.Context, id string) error
}

// CourseRequest holds the payload for creating or updating a course.
type CourseRequest struct {
	ID            string          `json:"id" validate:"omitempty,max=64"`
	Title         string          `json:"title" validate:"required,notblank,max=255"`
	Description   *string         `json:"description" validate:"omitempty,max=4000"`
	CategoryID    string          `json:"category_id" validate:"required,notblank"`
	InstructorID  string          `json:"instructor_id" validate:"required,notblank"`
	Price         decimal.Decimal `json:"price"`
	DurationHours int             `json:"duration_hours" validate:"gt=0"`
	Level         string          `json:"level" validate:"required,course_level"`
}

// CourseService handles course use-cases.
type CourseService struct {
	repo courseRepository
	deps Dependencies
}

// NewCourseService constructs the course service.
func NewCourseService(repo courseRepository, deps Dependencies) *CourseService {
	return &CourseService{repo: repo, deps: deps.withDefaults()}
}

// List returns courses matching the filter.
func (s *CourseService) List(ctx context.Context, filter models.CourseFilter) ([]models.Course, *models.Pagination, error) {
	items, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, mapRepoErr(err, "course", "list")
	}
	return items, paginationFor(filter.Page, filter.PageSize, total), nil
}

// Get returns one course.
func (s *CourseService) Get(ctx context.Context, id string) (*models.Course, error) {
	item, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, mapRepoErr(err, "course", "load")
	}
	return item, nil
}

// Create adds a course under an existing category and instructor.
func (s *CourseService) Create(ctx context.Context, req CourseRequest) (*models.Course, error) {
	item, err := s.build(req)
	if err != nil {
		return nil, err
	}
	item.ID = strings.TrimSpace(req.ID)
	if err := s.repo.Create(ctx, item); err != nil {
		return nil, mapRepoErr(err, "course", "create")
	}
	s.deps.mutated(ctx, "course", "create", item.ID)
	return item, nil
}

// Update replaces a course's fields. Its creation time is kept.
func (s *CourseService) Update(ctx context.Context, id string, req CourseRequest) (*models.Course, error) {
	item, err := s.build(req)
	if err != nil {
		return nil, err
	}
	item.ID = id
	if err := s.repo.Update(ctx, item); err != nil {
		return nil, mapRepoErr(err, "course", "update")
	}
	s.deps.mutated(ctx, "course", "update", id)
	return s.Get(ctx, id)
}

// Delete removes a course together with its modules and lessons. Courses
// with enrollments or ratings are kept.
func (s *CourseService) Delete(ctx context.Context, id string) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		return mapRepoErr(err, "course", "delete")
	}
	s.deps.mutated(ctx, "course", "delete", id)
	return nil
}

func (s *CourseService) build(req CourseRequest) (*models.Course, error) {
	if err := validate(s.deps.Validator, req, "course"); err != nil {
		return nil, err
	}
	if err := checkMoney("price", req.Price); err != nil {
		return nil, err
	}
	return &models.Course{
		Title:         strings.TrimSpace(req.Title),
		Description:   trimmedPtr(req.Description),
		CategoryID:    strings.TrimSpace(req.CategoryID),
		InstructorID:  strings.TrimSpace(req.InstructorID),
		Price:         req.Price,
		DurationHours: req.DurationHours,
		Level:         models.CourseLevel(req.Level),
	}, nil
}
