package service

import (
	"context"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/noah-isme/edutech-api/internal/models"
	appErrors "github.com/noah-isme/edutech-api/pkg/errors"
)

type enrollmentRepository interface {
	List(ctx context.Context, filter models.EnrollmentFilter) ([]models.Enrollment, int, error)
	FindByID(ctx context.Context, id string) (*models.Enrollment, error)
	Create(ctx context.Context, enrollment *models.Enrollment) error
	Update(ctx context.Context, enrollment *models.Enrollment) error
	Delete(ctx context.Context, id string) error
}

// CreateEnrollmentRequest holds the payload for enrolling a student.
type CreateEnrollmentRequest struct {
	ID          string          `json:"id" validate:"omitempty,max=64"`
	StudentID   string          `json:"student_id" validate:"required,notblank"`
	CourseID    string          `json:"course_id" validate:"required,notblank"`
	EnrolledOn  string          `json:"enrolled_on" validate:"required,datetime=2006-01-02"`
	CompletedOn *string         `json:"completed_on" validate:"omitempty,datetime=2006-01-02"`
	Status      string          `json:"status" validate:"required,enrollment_status"`
	AmountPaid  decimal.Decimal `json:"amount_paid"`
}

// UpdateEnrollmentRequest holds the lifecycle fields that may change after
// enrolling.
type UpdateEnrollmentRequest struct {
	EnrolledOn  string          `json:"enrolled_on" validate:"required,datetime=2006-01-02"`
	CompletedOn *string         `json:"completed_on" validate:"omitempty,datetime=2006-01-02"`
	Status      string          `json:"status" validate:"required,enrollment_status"`
	AmountPaid  decimal.Decimal `json:"amount_paid"`
}

// EnrollmentService handles enrollment use-cases.
type EnrollmentService struct {
	repo enrollmentRepository
	deps Dependencies
}

// NewEnrollmentService constructs the enrollment service.
func NewEnrollmentService(repo enrollmentRepository, deps Dependencies) *EnrollmentService {
	return &EnrollmentService{repo: repo, deps: deps.withDefaults()}
}

// List returns enrollments matching the filter.
func (s *EnrollmentService) List(ctx context.Context, filter models.EnrollmentFilter) ([]models.Enrollment, *models.Pagination, error) {
	if filter.Status != "" && !filter.Status.Valid() {
		return nil, nil, appErrors.OnField(appErrors.ErrValidation, "status", "status must be one of active, completed, cancelled")
	}
	items, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, mapRepoErr(err, "enrollment", "list")
	}
	return items, paginationFor(filter.Page, filter.PageSize, total), nil
}

// Get returns one enrollment.
func (s *EnrollmentService) Get(ctx context.Context, id string) (*models.Enrollment, error) {
	item, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, mapRepoErr(err, "enrollment", "load")
	}
	return item, nil
}

// Create enrolls a student in a course.
func (s *EnrollmentService) Create(ctx context.Context, req CreateEnrollmentRequest) (*models.Enrollment, error) {
	if err := validate(s.deps.Validator, req, "enrollment"); err != nil {
		return nil, err
	}
	item, err := enrollmentFrom(req.EnrolledOn, req.CompletedOn, req.Status, req.AmountPaid)
	if err != nil {
		return nil, err
	}
	item.ID = strings.TrimSpace(req.ID)
	item.StudentID = strings.TrimSpace(req.StudentID)
	item.CourseID = strings.TrimSpace(req.CourseID)
	if err := s.repo.Create(ctx, item); err != nil {
		return nil, mapRepoErr(err, "enrollment", "create")
	}
	s.deps.mutated(ctx, "enrollment", "create", item.ID)
	return item, nil
}

// Update changes dates, status and amount of an enrollment.
func (s *EnrollmentService) Update(ctx context.Context, id string, req UpdateEnrollmentRequest) (*models.Enrollment, error) {
	if err := validate(s.deps.Validator, req, "enrollment"); err != nil {
		return nil, err
	}
	item, err := enrollmentFrom(req.EnrolledOn, req.CompletedOn, req.Status, req.AmountPaid)
	if err != nil {
		return nil, err
	}
	item.ID = id
	if err := s.repo.Update(ctx, item); err != nil {
		return nil, mapRepoErr(err, "enrollment", "update")
	}
	s.deps.mutated(ctx, "enrollment", "update", id)
	return s.Get(ctx, id)
}

// Delete removes an enrollment with its progress and rating.
func (s *EnrollmentService) Delete(ctx context.Context, id string) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		return mapRepoErr(err, "enrollment", "delete")
	}
	s.deps.mutated(ctx, "enrollment", "delete", id)
	return nil
}

func enrollmentFrom(enrolledRaw string, completedRaw *string, status string, amount decimal.Decimal) (*models.Enrollment, error) {
	enrolledOn, err := parseDate("enrolled_on", enrolledRaw)
	if err != nil {
		return nil, err
	}
	completedOn, err := parseOptionalDate("completed_on", completedRaw)
	if err != nil {
		return nil, err
	}
	if completedOn != nil && completedOn.Before(enrolledOn) {
		return nil, appErrors.OnField(appErrors.ErrValidation, "completed_on", "completed_on must not precede enrolled_on")
	}
	if err := checkMoney("amount_paid", amount); err != nil {
		return nil, err
	}
	return &models.Enrollment{
		EnrolledOn:  enrolledOn,
		CompletedOn: completedOn,
		Status:      models.EnrollmentStatus(status),
		AmountPaid:  amount,
	}, nil
}
