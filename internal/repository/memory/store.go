// Package memory is an in-process store implementing the same repository
// contracts as the PostgreSQL store. Writers hold the write lock while they
// validate and commit, so a failed write leaves no trace; reports hold the
// read lock for the whole computation.
package memory

import (
	"context"
	"database/sql"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/noah-isme/edutech-api/internal/integrity"
	"github.com/noah-isme/edutech-api/internal/models"
	appErrors "github.com/noah-isme/edutech-api/pkg/errors"
)

// Option customises a Store.
type Option func(*Store)

// WithClock overrides the clock used for default timestamps.
func WithClock(now func() time.Time) Option {
	return func(s *Store) {
		if now != nil {
			s.now = now
		}
	}
}

type pairKey struct {
	left  string
	right string
}

type positionKey struct {
	parent   string
	position int
}

// Store keeps every entity in maps guarded by one read/write lock.
type Store struct {
	mu  sync.RWMutex
	now func() time.Time

	students    map[string]models.Student
	instructors map[string]models.Instructor
	categories  map[string]models.Category
	courses     map[string]models.Course
	modules     map[string]models.Module
	lessons     map[string]models.Lesson
	enrollments map[string]models.Enrollment
	progress    map[string]models.LessonProgress
	ratings     map[string]models.Rating

	studentEmails     map[string]string
	instructorEmails  map[string]string
	categoryNames     map[string]string
	modulePositions   map[positionKey]string
	lessonPositions   map[positionKey]string
	enrollmentPairs   map[pairKey]string
	progressPairs     map[pairKey]string
	ratingEnrollments map[string]string
}

// New builds an empty store.
func New(opts ...Option) *Store {
	s := &Store{now: func() time.Time { return time.Now().UTC() }}
	for _, opt := range opts {
		opt(s)
	}
	s.reset()
	return s
}

func (s *Store) reset() {
	s.students = map[string]models.Student{}
	s.instructors = map[string]models.Instructor{}
	s.categories = map[string]models.Category{}
	s.courses = map[string]models.Course{}
	s.modules = map[string]models.Module{}
	s.lessons = map[string]models.Lesson{}
	s.enrollments = map[string]models.Enrollment{}
	s.progress = map[string]models.LessonProgress{}
	s.ratings = map[string]models.Rating{}

	s.studentEmails = map[string]string{}
	s.instructorEmails = map[string]string{}
	s.categoryNames = map[string]string{}
	s.modulePositions = map[positionKey]string{}
	s.lessonPositions = map[positionKey]string{}
	s.enrollmentPairs = map[pairKey]string{}
	s.progressPairs = map[pairKey]string{}
	s.ratingEnrollments = map[string]string{}
}

// Students exposes the student repository view.
func (s *Store) Students() *StudentRepository { return &StudentRepository{s: s} }

// Instructors exposes the instructor repository view.
func (s *Store) Instructors() *InstructorRepository { return &InstructorRepository{s: s} }

// Categories exposes the category repository view.
func (s *Store) Categories() *CategoryRepository { return &CategoryRepository{s: s} }

// Courses exposes the course repository view.
func (s *Store) Courses() *CourseRepository { return &CourseRepository{s: s} }

// Modules exposes the module repository view.
func (s *Store) Modules() *ModuleRepository { return &ModuleRepository{s: s} }

// Lessons exposes the lesson repository view.
func (s *Store) Lessons() *LessonRepository { return &LessonRepository{s: s} }

// Enrollments exposes the enrollment repository view.
func (s *Store) Enrollments() *EnrollmentRepository { return &EnrollmentRepository{s: s} }

// Progress exposes the lesson progress repository view.
func (s *Store) Progress() *ProgressRepository { return &ProgressRepository{s: s} }

// Ratings exposes the rating repository view.
func (s *Store) Ratings() *RatingRepository { return &RatingRepository{s: s} }

// Reports exposes the report queries.
func (s *Store) Reports() *ReportRepository { return &ReportRepository{s: s} }

// Maintenance exposes readiness and reset operations.
func (s *Store) Maintenance() *MaintenanceRepository { return &MaintenanceRepository{s: s} }

// MaintenanceRepository covers store-wide operations.
type MaintenanceRepository struct {
	s *Store
}

// Reset drops every entity.
func (r *MaintenanceRepository) Reset(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	r.s.reset()
	return nil
}

// Ping always succeeds for the in-memory store.
func (r *MaintenanceRepository) Ping(ctx context.Context) error {
	return ctx.Err()
}

func normalizeKey(value string) string {
	return strings.ToLower(strings.TrimSpace(value))
}

func dateOnly(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

func uniqueness(field string) error {
	return appErrors.OnField(appErrors.ErrUniqueness, field, field+" already exists")
}

func missingReference(field string) error {
	return appErrors.OnField(appErrors.ErrReferenceNotFound, field, "referenced record not found")
}

// paginate slices items for the requested page after normalising bounds.
func paginate[T any](items []T, page, size int) []T {
	page, size = models.Normalize(page, size)
	start := (page - 1) * size
	if start >= len(items) {
		return []T{}
	}
	end := start + size
	if end > len(items) {
		end = len(items)
	}
	return items[start:end]
}

func sortedValues[T any](m map[string]T, less func(a, b T) bool) []T {
	out := make([]T, 0, len(m))
	for _, v := range m {
		out = append(out, v)
	}
	sort.Slice(out, func(i, j int) bool { return less(out[i], out[j]) })
	return out
}

// deletePlan collects every row removed by one delete, cascades included.
type deletePlan map[integrity.Entity][]string

// planDelete walks the deletion graph from (entity, id). A restrict edge with
// dependents aborts the whole plan before anything is removed.
func (s *Store) planDelete(entity integrity.Entity, id string, plan deletePlan) error {
	plan[entity] = append(plan[entity], id)
	for _, edge := range integrity.Edges(entity) {
		children := s.children(entity, id, edge.Child)
		if len(children) == 0 {
			continue
		}
		if edge.Policy == integrity.Restrict {
			return appErrors.OnField(appErrors.ErrDependencyConflict, string(edge.Child),
				string(entity)+" has dependent "+string(edge.Child)+" records")
		}
		for _, child := range children {
			if err := s.planDelete(edge.Child, child, plan); err != nil {
				return err
			}
		}
	}
	return nil
}

// children returns the ids of child rows referencing parent id.
func (s *Store) children(parent integrity.Entity, id string, child integrity.Entity) []string {
	var ids []string
	switch child {
	case integrity.EntityCourse:
		for _, c := range s.courses {
			if (parent == integrity.EntityCategory && c.CategoryID == id) || (parent == integrity.EntityInstructor && c.InstructorID == id) {
				ids = append(ids, c.ID)
			}
		}
	case integrity.EntityEnrollment:
		for _, e := range s.enrollments {
			if (parent == integrity.EntityStudent && e.StudentID == id) || (parent == integrity.EntityCourse && e.CourseID == id) {
				ids = append(ids, e.ID)
			}
		}
	case integrity.EntityModule:
		for _, m := range s.modules {
			if m.CourseID == id {
				ids = append(ids, m.ID)
			}
		}
	case integrity.EntityLesson:
		for _, l := range s.lessons {
			if l.ModuleID == id {
				ids = append(ids, l.ID)
			}
		}
	case integrity.EntityProgress:
		for _, p := range s.progress {
			if (parent == integrity.EntityLesson && p.LessonID == id) || (parent == integrity.EntityEnrollment && p.EnrollmentID == id) {
				ids = append(ids, p.ID)
			}
		}
	case integrity.EntityRating:
		for _, r := range s.ratings {
			if (parent == integrity.EntityCourse && r.CourseID == id) || (parent == integrity.EntityEnrollment && r.EnrollmentID == id) {
				ids = append(ids, r.ID)
			}
		}
	}
	return ids
}

// apply removes every planned row together with its index entries.
func (s *Store) apply(plan deletePlan) {
	for entity, ids := range plan {
		for _, id := range ids {
			s.remove(entity, id)
		}
	}
}

func (s *Store) remove(entity integrity.Entity, id string) {
	switch entity {
	case integrity.EntityStudent:
		if v, ok := s.students[id]; ok {
			delete(s.studentEmails, normalizeKey(v.Email))
			delete(s.students, id)
		}
	case integrity.EntityInstructor:
		if v, ok := s.instructors[id]; ok {
			delete(s.instructorEmails, normalizeKey(v.Email))
			delete(s.instructors, id)
		}
	case integrity.EntityCategory:
		if v, ok := s.categories[id]; ok {
			delete(s.categoryNames, normalizeKey(v.Name))
			delete(s.categories, id)
		}
	case integrity.EntityCourse:
		delete(s.courses, id)
	case integrity.EntityModule:
		if v, ok := s.modules[id]; ok {
			delete(s.modulePositions, positionKey{v.CourseID, v.Position})
			delete(s.modules, id)
		}
	case integrity.EntityLesson:
		if v, ok := s.lessons[id]; ok {
			delete(s.lessonPositions, positionKey{v.ModuleID, v.Position})
			delete(s.lessons, id)
		}
	case integrity.EntityEnrollment:
		if v, ok := s.enrollments[id]; ok {
			delete(s.enrollmentPairs, pairKey{v.StudentID, v.CourseID})
			delete(s.enrollments, id)
		}
	case integrity.EntityProgress:
		if v, ok := s.progress[id]; ok {
			delete(s.progressPairs, pairKey{v.EnrollmentID, v.LessonID})
			delete(s.progress, id)
		}
	case integrity.EntityRating:
		if v, ok := s.ratings[id]; ok {
			delete(s.ratingEnrollments, v.EnrollmentID)
			delete(s.ratings, id)
		}
	}
}

// deleteEntity runs planDelete and apply under the write lock.
func (s *Store) deleteEntity(ctx context.Context, entity integrity.Entity, id string, exists func() bool) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if !exists() {
		return sql.ErrNoRows
	}
	plan := deletePlan{}
	if err := s.planDelete(entity, id, plan); err != nil {
		return err
	}
	s.apply(plan)
	return nil
}

// lessonCourse resolves the course a lesson belongs to.
func (s *Store) lessonCourse(lesson models.Lesson) string {
	return s.modules[lesson.ModuleID].CourseID
}
