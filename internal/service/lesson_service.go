package service

import (
	"context"
	"strings"

	"github.com/noah-isme/edutech-api/internal/models"
)

type lessonRepository interface {
	ListByModule(ctx context.Context, moduleID string) ([]models.Lesson, error)
	FindByID(ctx context.Context, id string) (*models.Lesson, error)
	Create(ctx context.Context, lesson *models.Lesson) error
	Update(ctx context.Context, lesson *models.Lesson) error
	Delete(ctx context.Context, id string) error
}

// CreateLessonRequest holds the payload for creating a lesson.
type CreateLessonRequest struct {
	ID              string `json:"id" validate:"omitempty,max=64"`
	ModuleID        string `json:"module_id" validate:"required,notblank"`
	Title           string `json:"title" validate:"required,notblank,max=255"`
	Position        int    `json:"position" validate:"gte=1"`
	DurationMinutes int    `json:"duration_minutes" validate:"gte=1"`
	Type            string `json:"type" validate:"required,lesson_type"`
}

// UpdateLessonRequest holds the payload for updating a lesson within its
// module.
type UpdateLessonRequest struct {
	Title           string `json:"title" validate:"required,notblank,max=255"`
	Position        int    `json:"position" validate:"gte=1"`
	DurationMinutes int    `json:"duration_minutes" validate:"gte=1"`
	Type            string `json:"type" validate:"required,lesson_type"`
}

// LessonService handles lesson use-cases.
type LessonService struct {
	repo lessonRepository
	deps Dependencies
}

// NewLessonService constructs the lesson service.
func NewLessonService(repo lessonRepository, deps Dependencies) *LessonService {
	return &LessonService{repo: repo, deps: deps.withDefaults()}
}

// ListByModule returns a module's lessons by position.
func (s *LessonService) ListByModule(ctx context.Context, moduleID string) ([]models.Lesson, error) {
	items, err := s.repo.ListByModule(ctx, moduleID)
	if err != nil {
		return nil, mapRepoErr(err, "lesson", "list")
	}
	return items, nil
}

// Get returns one lesson.
func (s *LessonService) Get(ctx context.Context, id string) (*models.Lesson, error) {
	item, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, mapRepoErr(err, "lesson", "load")
	}
	return item, nil
}

// Create adds a lesson at a free position of a module.
func (s *LessonService) Create(ctx context.Context, req CreateLessonRequest) (*models.Lesson, error) {
	if err := validate(s.deps.Validator, req, "lesson"); err != nil {
		return nil, err
	}
	item := &models.Lesson{
		ID:              strings.TrimSpace(req.ID),
		ModuleID:        strings.TrimSpace(req.ModuleID),
		Title:           strings.TrimSpace(req.Title),
		Position:        req.Position,
		DurationMinutes: req.DurationMinutes,
		Type:            models.LessonType(req.Type),
	}
	if err := s.repo.Create(ctx, item); err != nil {
		return nil, mapRepoErr(err, "lesson", "create")
	}
	s.deps.mutated(ctx, "lesson", "create", item.ID)
	return item, nil
}

// Update changes a lesson. Shrinking it below recorded watch time fails with
// a consistency violation.
func (s *LessonService) Update(ctx context.Context, id string, req UpdateLessonRequest) (*models.Lesson, error) {
	if err := validate(s.deps.Validator, req, "lesson"); err != nil {
		return nil, err
	}
	item := &models.Lesson{
		ID:              id,
		Title:           strings.TrimSpace(req.Title),
		Position:        req.Position,
		DurationMinutes: req.DurationMinutes,
		Type:            models.LessonType(req.Type),
	}
	if err := s.repo.Update(ctx, item); err != nil {
		return nil, mapRepoErr(err, "lesson", "update")
	}
	s.deps.mutated(ctx, "lesson", "update", id)
	return s.Get(ctx, id)
}

// Delete removes a lesson without recorded progress.
func (s *LessonService) Delete(ctx context.Context, id string) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		return mapRepoErr(err, "lesson", "delete")
	}
	s.deps.mutated(ctx, "lesson", "delete", id)
	return nil
}
