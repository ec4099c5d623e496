package service

import (
	"context"
	"strings"
	"time"

	"github.com/noah-isme/edutech-api/internal/models"
)

type progressRepository interface {
	ListByEnrollment(ctx context.Context, enrollmentID string) ([]models.LessonProgress, error)
	FindByID(ctx context.Context, id string) (*models.LessonProgress, error)
	Create(ctx context.Context, progress *models.LessonProgress) error
	Update(ctx context.Context, progress *models.LessonProgress) error
	Delete(ctx context.Context, id string) error
}

// CreateProgressRequest records progress of an enrollment on one lesson.
// completed and completed_at must agree; the store enforces the watched time
// against the lesson duration.
type CreateProgressRequest struct {
	ID             string     `json:"id" validate:"omitempty,max=64"`
	EnrollmentID   string     `json:"enrollment_id" validate:"required,notblank"`
	LessonID       string     `json:"lesson_id" validate:"required,notblank"`
	Completed      bool       `json:"completed"`
	CompletedAt    *time.Time `json:"completed_at"`
	WatchedMinutes int        `json:"watched_minutes" validate:"gte=0"`
}

// UpdateProgressRequest changes completion and watch time.
type UpdateProgressRequest struct {
	Completed      bool       `json:"completed"`
	CompletedAt    *time.Time `json:"completed_at"`
	WatchedMinutes int        `json:"watched_minutes" validate:"gte=0"`
}

// ProgressService handles lesson progress use-cases.
type ProgressService struct {
	repo progressRepository
	deps Dependencies
}

// NewProgressService constructs the progress service.
func NewProgressService(repo progressRepository, deps Dependencies) *ProgressService {
	return &ProgressService{repo: repo, deps: deps.withDefaults()}
}

// ListByEnrollment returns the progress rows of an enrollment.
func (s *ProgressService) ListByEnrollment(ctx context.Context, enrollmentID string) ([]models.LessonProgress, error) {
	items, err := s.repo.ListByEnrollment(ctx, enrollmentID)
	if err != nil {
		return nil, mapRepoErr(err, "progress", "list")
	}
	return items, nil
}

// Get returns one progress row.
func (s *ProgressService) Get(ctx context.Context, id string) (*models.LessonProgress, error) {
	item, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, mapRepoErr(err, "progress", "load")
	}
	return item, nil
}

// Create records progress.
func (s *ProgressService) Create(ctx context.Context, req CreateProgressRequest) (*models.LessonProgress, error) {
	if err := validate(s.deps.Validator, req, "progress"); err != nil {
		return nil, err
	}
	item := &models.LessonProgress{
		ID:             strings.TrimSpace(req.ID),
		EnrollmentID:   strings.TrimSpace(req.EnrollmentID),
		LessonID:       strings.TrimSpace(req.LessonID),
		Completed:      req.Completed,
		CompletedAt:    utcPtr(req.CompletedAt),
		WatchedMinutes: req.WatchedMinutes,
	}
	if err := s.repo.Create(ctx, item); err != nil {
		return nil, mapRepoErr(err, "progress", "create")
	}
	s.deps.mutated(ctx, "progress", "create", item.ID)
	return item, nil
}

// Update changes completion state and watch time.
func (s *ProgressService) Update(ctx context.Context, id string, req UpdateProgressRequest) (*models.LessonProgress, error) {
	if err := validate(s.deps.Validator, req, "progress"); err != nil {
		return nil, err
	}
	item := &models.LessonProgress{
		ID:             id,
		Completed:      req.Completed,
		CompletedAt:    utcPtr(req.CompletedAt),
		WatchedMinutes: req.WatchedMinutes,
	}
	if err := s.repo.Update(ctx, item); err != nil {
		return nil, mapRepoErr(err, "progress", "update")
	}
	s.deps.mutated(ctx, "progress", "update", id)
	return s.Get(ctx, id)
}

// Delete removes a progress row.
func (s *ProgressService) Delete(ctx context.Context, id string) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		return mapRepoErr(err, "progress", "delete")
	}
	s.deps.mutated(ctx, "progress", "delete", id)
	return nil
}

func utcPtr(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := t.UTC()
	return &v
}
