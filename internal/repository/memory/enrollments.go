package memory

import (
	"context"
	"database/sql"
	"sort"

	"github.com/google/uuid"

	"github.com/noah-isme/edutech-api/internal/integrity"
	"github.com/noah-isme/edutech-api/internal/models"
	appErrors "github.com/noah-isme/edutech-api/pkg/errors"
)

// EnrollmentRepository is the in-memory enrollment store.
type EnrollmentRepository struct {
	s *Store
}

// List returns enrollments matching the filter, newest first.
func (r *EnrollmentRepository) List(ctx context.Context, filter models.EnrollmentFilter) ([]models.Enrollment, int, error) {
	if err := ctx.Err(); err != nil {
		return nil, 0, err
	}
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	all := sortedValues(r.s.enrollments, func(a, b models.Enrollment) bool {
		if !a.EnrolledOn.Equal(b.EnrolledOn) {
			return a.EnrolledOn.After(b.EnrolledOn)
		}
		return a.ID < b.ID
	})
	matched := all[:0]
	for _, e := range all {
		if filter.StudentID != "" && e.StudentID != filter.StudentID {
			continue
		}
		if filter.CourseID != "" && e.CourseID != filter.CourseID {
			continue
		}
		if filter.Status != "" && e.Status != filter.Status {
			continue
		}
		matched = append(matched, e)
	}
	return paginate(matched, filter.Page, filter.PageSize), len(matched), nil
}

// FindByID fetches an enrollment by ID.
func (r *EnrollmentRepository) FindByID(ctx context.Context, id string) (*models.Enrollment, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	e, ok := r.s.enrollments[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return &e, nil
}

// Create enrolls a student in a course at most once.
func (r *EnrollmentRepository) Create(ctx context.Context, enrollment *models.Enrollment) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if enrollment.ID == "" {
		enrollment.ID = uuid.NewString()
	}
	if _, ok := r.s.enrollments[enrollment.ID]; ok {
		return uniqueness("id")
	}
	if _, ok := r.s.students[enrollment.StudentID]; !ok {
		return missingReference("student_id")
	}
	if _, ok := r.s.courses[enrollment.CourseID]; !ok {
		return missingReference("course_id")
	}
	key := pairKey{enrollment.StudentID, enrollment.CourseID}
	if _, taken := r.s.enrollmentPairs[key]; taken {
		return uniqueness("course_id")
	}
	if err := checkCompletionDate(enrollment); err != nil {
		return err
	}
	r.s.enrollments[enrollment.ID] = *enrollment
	r.s.enrollmentPairs[key] = enrollment.ID
	return nil
}

// Update changes lifecycle fields. Student and course stay fixed.
func (r *EnrollmentRepository) Update(ctx context.Context, enrollment *models.Enrollment) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	current, ok := r.s.enrollments[enrollment.ID]
	if !ok {
		return sql.ErrNoRows
	}
	enrollment.StudentID = current.StudentID
	enrollment.CourseID = current.CourseID
	if err := checkCompletionDate(enrollment); err != nil {
		return err
	}
	r.s.enrollments[enrollment.ID] = *enrollment
	return nil
}

// Delete removes an enrollment with its progress and rating.
func (r *EnrollmentRepository) Delete(ctx context.Context, id string) error {
	return r.s.deleteEntity(ctx, integrity.EntityEnrollment, id, func() bool {
		_, ok := r.s.enrollments[id]
		return ok
	})
}

func checkCompletionDate(e *models.Enrollment) error {
	if e.CompletedOn != nil && dateOnly(*e.CompletedOn).Before(dateOnly(e.EnrolledOn)) {
		return appErrors.OnField(appErrors.ErrValidation, "completed_on", "completed_on must not precede enrolled_on")
	}
	return nil
}

// ProgressRepository is the in-memory lesson progress store.
type ProgressRepository struct {
	s *Store
}

// ListByEnrollment returns the progress rows of one enrollment.
func (r *ProgressRepository) ListByEnrollment(ctx context.Context, enrollmentID string) ([]models.LessonProgress, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	out := []models.LessonProgress{}
	for _, p := range r.s.progress {
		if p.EnrollmentID == enrollmentID {
			out = append(out, p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// FindByID fetches a progress row by ID.
func (r *ProgressRepository) FindByID(ctx context.Context, id string) (*models.LessonProgress, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	p, ok := r.s.progress[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return &p, nil
}

// Create records progress for a lesson of the enrolled course.
func (r *ProgressRepository) Create(ctx context.Context, progress *models.LessonProgress) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if progress.ID == "" {
		progress.ID = uuid.NewString()
	}
	if _, ok := r.s.progress[progress.ID]; ok {
		return uniqueness("id")
	}
	if err := r.check(progress); err != nil {
		return err
	}
	key := pairKey{progress.EnrollmentID, progress.LessonID}
	if _, taken := r.s.progressPairs[key]; taken {
		return uniqueness("lesson_id")
	}
	r.s.progress[progress.ID] = *progress
	r.s.progressPairs[key] = progress.ID
	return nil
}

// Update changes completion state and watch time of a progress row.
func (r *ProgressRepository) Update(ctx context.Context, progress *models.LessonProgress) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	current, ok := r.s.progress[progress.ID]
	if !ok {
		return sql.ErrNoRows
	}
	progress.EnrollmentID = current.EnrollmentID
	progress.LessonID = current.LessonID
	if err := r.check(progress); err != nil {
		return err
	}
	r.s.progress[progress.ID] = *progress
	return nil
}

// Delete removes a progress row.
func (r *ProgressRepository) Delete(ctx context.Context, id string) error {
	return r.s.deleteEntity(ctx, integrity.EntityProgress, id, func() bool {
		_, ok := r.s.progress[id]
		return ok
	})
}

func (r *ProgressRepository) check(progress *models.LessonProgress) error {
	var lesson *models.Lesson
	if l, ok := r.s.lessons[progress.LessonID]; ok {
		lesson = &l
	}
	if err := integrity.CheckProgress(progress, lesson); err != nil {
		return err
	}
	var enrollment *models.Enrollment
	if e, ok := r.s.enrollments[progress.EnrollmentID]; ok {
		enrollment = &e
	}
	return integrity.CheckProgressScope(r.s.lessonCourse(*lesson), enrollment)
}

// RatingRepository is the in-memory rating store.
type RatingRepository struct {
	s *Store
}

// List returns ratings, optionally for one course, newest first.
func (r *RatingRepository) List(ctx context.Context, courseID string) ([]models.Rating, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	out := []models.Rating{}
	for _, rt := range r.s.ratings {
		if courseID == "" || rt.CourseID == courseID {
			out = append(out, rt)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].RatedAt.Equal(out[j].RatedAt) {
			return out[i].RatedAt.After(out[j].RatedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

// FindByID fetches a rating by ID.
func (r *RatingRepository) FindByID(ctx context.Context, id string) (*models.Rating, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	rt, ok := r.s.ratings[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return &rt, nil
}

// Create stores the single rating of an enrollment.
func (r *RatingRepository) Create(ctx context.Context, rating *models.Rating) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if rating.ID == "" {
		rating.ID = uuid.NewString()
	}
	if _, ok := r.s.ratings[rating.ID]; ok {
		return uniqueness("id")
	}
	if err := r.check(rating); err != nil {
		return err
	}
	if _, taken := r.s.ratingEnrollments[rating.EnrollmentID]; taken {
		return uniqueness("enrollment_id")
	}
	if rating.RatedAt.IsZero() {
		rating.RatedAt = r.s.now()
	}
	r.s.ratings[rating.ID] = *rating
	r.s.ratingEnrollments[rating.EnrollmentID] = rating.ID
	return nil
}

// Update changes course, score and comment, re-checking the course.
func (r *RatingRepository) Update(ctx context.Context, rating *models.Rating) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	current, ok := r.s.ratings[rating.ID]
	if !ok {
		return sql.ErrNoRows
	}
	rating.EnrollmentID = current.EnrollmentID
	rating.RatedAt = current.RatedAt
	if err := r.check(rating); err != nil {
		return err
	}
	r.s.ratings[rating.ID] = *rating
	return nil
}

// Delete removes a rating.
func (r *RatingRepository) Delete(ctx context.Context, id string) error {
	return r.s.deleteEntity(ctx, integrity.EntityRating, id, func() bool {
		_, ok := r.s.ratings[id]
		return ok
	})
}

func (r *RatingRepository) check(rating *models.Rating) error {
	var enrollment *models.Enrollment
	if e, ok := r.s.enrollments[rating.EnrollmentID]; ok {
		enrollment = &e
	}
	if err := integrity.CheckRating(rating, enrollment); err != nil {
		return err
	}
	if _, ok := r.s.courses[rating.CourseID]; !ok {
		return missingReference("course_id")
	}
	return nil
}
