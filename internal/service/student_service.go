package service

import (
	"context"
	"strings"
	"time"

	"github.com/noah-isme/edutech-api/internal/models"
	appErrors "github.com/noah-isme/edutech-api/pkg/errors"
)

var earliestBirthDate = time.Date(1900, time.January, 1, 0, 0, 0, 0, time.UTC)

type studentRepository interface {
	List(ctx context.Context, filter models.StudentFilter) ([]models.Student, int, error)
	FindByID(ctx context.Context, id string) (*models.Student, error)
	Create(ctx context.Context, student *models.Student) error
	Update(ctx context.Context, student *models.Student) error
	Delete(ctx context.Context, id string) error
}

// StudentRequest holds the payload for creating or updating a student. ID is
// honoured on create only.
type StudentRequest struct {
	ID        string `json:"id" validate:"omitempty,max=64"`
	Name      string `json:"name" validate:"required,notblank,max=255"`
	Email     string `json:"email" validate:"required,email,max=255"`
	BirthDate string `json:"birth_date" validate:"required,datetime=2006-01-02"`
}

// StudentService handles student use-cases.
type StudentService struct {
	repo studentRepository
	deps Dependencies
}

// NewStudentService constructs the student service.
func NewStudentService(repo studentRepository, deps Dependencies) *StudentService {
	return &StudentService{repo: repo, deps: deps.withDefaults()}
}

// List returns students and pagination metadata.
func (s *StudentService) List(ctx context.Context, filter models.StudentFilter) ([]models.Student, *models.Pagination, error) {
	students, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, mapRepoErr(err, "student", "list")
	}
	return students, paginationFor(filter.Page, filter.PageSize, total), nil
}

// Get returns one student.
func (s *StudentService) Get(ctx context.Context, id string) (*models.Student, error) {
	student, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, mapRepoErr(err, "student", "load")
	}
	return student, nil
}

// Create registers a new student.
func (s *StudentService) Create(ctx context.Context, req StudentRequest) (*models.Student, error) {
	student, err := s.build(req)
	if err != nil {
		return nil, err
	}
	student.ID = strings.TrimSpace(req.ID)
	if err := s.repo.Create(ctx, student); err != nil {
		return nil, mapRepoErr(err, "student", "create")
	}
	s.deps.mutated(ctx, "student", "create", student.ID)
	return student, nil
}

// Update replaces a student's name, email and birth date.
func (s *StudentService) Update(ctx context.Context, id string, req StudentRequest) (*models.Student, error) {
	current, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, mapRepoErr(err, "student", "load")
	}
	student, err := s.build(req)
	if err != nil {
		return nil, err
	}
	student.ID = id
	student.RegisteredAt = current.RegisteredAt
	if err := s.repo.Update(ctx, student); err != nil {
		return nil, mapRepoErr(err, "student", "update")
	}
	s.deps.mutated(ctx, "student", "update", id)
	return student, nil
}

// Delete removes a student without enrollments.
func (s *StudentService) Delete(ctx context.Context, id string) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		return mapRepoErr(err, "student", "delete")
	}
	s.deps.mutated(ctx, "student", "delete", id)
	return nil
}

func (s *StudentService) build(req StudentRequest) (*models.Student, error) {
	if err := validate(s.deps.Validator, req, "student"); err != nil {
		return nil, err
	}
	birth, err := parseDate("birth_date", req.BirthDate)
	if err != nil {
		return nil, err
	}
	today := s.deps.Now().UTC()
	if birth.Before(earliestBirthDate) || birth.After(today) {
		return nil, appErrors.OnField(appErrors.ErrValidation, "birth_date", "birth_date must be between 1900-01-01 and today")
	}
	return &models.Student{
		Name:      strings.TrimSpace(req.Name),
		Email:     strings.TrimSpace(req.Email),
		BirthDate: birth,
	}, nil
}
