package service

import (
	"context"
	"strings"
	"time"

	"github.com/noah-isme/edutech-api/internal/models"
)

type ratingRepository interface {
	List(ctx context.Context, courseID string) ([]models.Rating, error)
	FindByID(ctx context.Context, id string) (*models.Rating, error)
	Create(ctx context.Context, rating *models.Rating) error
	Update(ctx context.Context, rating *models.Rating) error
	Delete(ctx context.Context, id string) error
}

// CreateRatingRequest holds the payload for rating an enrolled course.
type CreateRatingRequest struct {
	ID           string  `json:"id" validate:"omitempty,max=64"`
	EnrollmentID string  `json:"enrollment_id" validate:"required,notblank"`
	CourseID     string  `json:"course_id" validate:"required,notblank"`
	Score        int     `json:"score" validate:"min=1,max=5"`
	Comment      *string `json:"comment" validate:"omitempty,max=2000"`

	// RatedAt defaults to the time the rating is stored.
	RatedAt *time.Time `json:"rated_at"`
}

// UpdateRatingRequest holds the fields of a rating that may change.
type UpdateRatingRequest struct {
	CourseID string  `json:"course_id" validate:"required,notblank"`
	Score    int     `json:"score" validate:"min=1,max=5"`
	Comment  *string `json:"comment" validate:"omitempty,max=2000"`
}

// RatingService handles rating use-cases.
type RatingService struct {
	repo ratingRepository
	deps Dependencies
}

// NewRatingService constructs the rating service.
func NewRatingService(repo ratingRepository, deps Dependencies) *RatingService {
	return &RatingService{repo: repo, deps: deps.withDefaults()}
}

// List returns ratings, optionally restricted to one course.
func (s *RatingService) List(ctx context.Context, courseID string) ([]models.Rating, error) {
	items, err := s.repo.List(ctx, courseID)
	if err != nil {
		return nil, mapRepoErr(err, "rating", "list")
	}
	return items, nil
}

// Get returns one rating.
func (s *RatingService) Get(ctx context.Context, id string) (*models.Rating, error) {
	item, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, mapRepoErr(err, "rating", "load")
	}
	return item, nil
}

// Create stores the rating of an enrollment.
func (s *RatingService) Create(ctx context.Context, req CreateRatingRequest) (*models.Rating, error) {
	if err := validate(s.deps.Validator, req, "rating"); err != nil {
		return nil, err
	}
	item := &models.Rating{
		ID:           strings.TrimSpace(req.ID),
		EnrollmentID: strings.TrimSpace(req.EnrollmentID),
		CourseID:     strings.TrimSpace(req.CourseID),
		Score:        req.Score,
		Comment:      trimmedPtr(req.Comment),
	}
	if req.RatedAt != nil {
		item.RatedAt = req.RatedAt.UTC()
	}
	if err := s.repo.Create(ctx, item); err != nil {
		return nil, mapRepoErr(err, "rating", "create")
	}
	s.deps.mutated(ctx, "rating", "create", item.ID)
	return item, nil
}

// Update changes score, comment and course of a rating.
func (s *RatingService) Update(ctx context.Context, id string, req UpdateRatingRequest) (*models.Rating, error) {
	if err := validate(s.deps.Validator, req, "rating"); err != nil {
		return nil, err
	}
	item := &models.Rating{ID: id, CourseID: strings.TrimSpace(req.CourseID), Score: req.Score, Comment: trimmedPtr(req.Comment)}
	if err := s.repo.Update(ctx, item); err != nil {
		return nil, mapRepoErr(err, "rating", "update")
	}
	s.deps.mutated(ctx, "rating", "update", id)
	return s.Get(ctx, id)
}

// Delete removes a rating.
func (s *RatingService) Delete(ctx context.Context, id string) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		return mapRepoErr(err, "rating", "delete")
	}
	s.deps.mutated(ctx, "rating", "delete", id)
	return nil
}
