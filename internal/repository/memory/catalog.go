package memory

import (
	"context"
	"database/sql"
	"sort"

	"github.com/google/uuid"

	"github.com/noah-isme/edutech-api/internal/integrity"
	"github.com/noah-isme/edutech-api/internal/models"
)

// CourseRepository is the in-memory course store.
type CourseRepository struct {
	s *Store
}

// List returns courses matching the filter ordered by title.
func (r *CourseRepository) List(ctx context.Context, filter models.CourseFilter) ([]models.Course, int, error) {
	if err := ctx.Err(); err != nil {
		return nil, 0, err
	}
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	all := sortedValues(r.s.courses, courseByTitle)
	matched := all[:0]
	for _, c := range all {
		if filter.CategoryID != "" && c.CategoryID != filter.CategoryID {
			continue
		}
		if filter.InstructorID != "" && c.InstructorID != filter.InstructorID {
			continue
		}
		if filter.Level != "" && c.Level != filter.Level {
			continue
		}
		matched = append(matched, c)
	}
	return paginate(matched, filter.Page, filter.PageSize), len(matched), nil
}

// FindByID fetches a course by ID.
func (r *CourseRepository) FindByID(ctx context.Context, id string) (*models.Course, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	c, ok := r.s.courses[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return &c, nil
}

// Create stores a course once its category and instructor exist.
func (r *CourseRepository) Create(ctx context.Context, course *models.Course) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if course.ID == "" {
		course.ID = uuid.NewString()
	}
	if _, ok := r.s.courses[course.ID]; ok {
		return uniqueness("id")
	}
	if err := r.checkRefs(course); err != nil {
		return err
	}
	if course.CreatedAt.IsZero() {
		course.CreatedAt = r.s.now()
	}
	r.s.courses[course.ID] = *course
	return nil
}

// Update replaces a course's fields.
func (r *CourseRepository) Update(ctx context.Context, course *models.Course) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	current, ok := r.s.courses[course.ID]
	if !ok {
		return sql.ErrNoRows
	}
	if err := r.checkRefs(course); err != nil {
		return err
	}
	course.CreatedAt = current.CreatedAt
	r.s.courses[course.ID] = *course
	return nil
}

// Delete removes a course with its modules and lessons unless it has
// enrollments.
func (r *CourseRepository) Delete(ctx context.Context, id string) error {
	return r.s.deleteEntity(ctx, integrity.EntityCourse, id, func() bool {
		_, ok := r.s.courses[id]
		return ok
	})
}

func (r *CourseRepository) checkRefs(course *models.Course) error {
	if _, ok := r.s.categories[course.CategoryID]; !ok {
		return missingReference("category_id")
	}
	if _, ok := r.s.instructors[course.InstructorID]; !ok {
		return missingReference("instructor_id")
	}
	return nil
}

func courseByTitle(a, b models.Course) bool {
	if a.Title != b.Title {
		return a.Title < b.Title
	}
	return a.ID < b.ID
}

// ModuleRepository is the in-memory module store.
type ModuleRepository struct {
	s *Store
}

// ListByCourse returns a course's modules by position.
func (r *ModuleRepository) ListByCourse(ctx context.Context, courseID string) ([]models.Module, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	out := []models.Module{}
	for _, m := range r.s.modules {
		if m.CourseID == courseID {
			out = append(out, m)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Position < out[j].Position })
	return out, nil
}

// FindByID fetches a module by ID.
func (r *ModuleRepository) FindByID(ctx context.Context, id string) (*models.Module, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	m, ok := r.s.modules[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return &m, nil
}

// Create stores a module at a free position of an existing course.
func (r *ModuleRepository) Create(ctx context.Context, module *models.Module) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if module.ID == "" {
		module.ID = uuid.NewString()
	}
	if _, ok := r.s.modules[module.ID]; ok {
		return uniqueness("id")
	}
	if _, ok := r.s.courses[module.CourseID]; !ok {
		return missingReference("course_id")
	}
	key := positionKey{module.CourseID, module.Position}
	if _, taken := r.s.modulePositions[key]; taken {
		return uniqueness("position")
	}
	r.s.modules[module.ID] = *module
	r.s.modulePositions[key] = module.ID
	return nil
}

// Update changes title, position and description. The course is fixed.
func (r *ModuleRepository) Update(ctx context.Context, module *models.Module) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	current, ok := r.s.modules[module.ID]
	if !ok {
		return sql.ErrNoRows
	}
	module.CourseID = current.CourseID
	key := positionKey{module.CourseID, module.Position}
	if owner, taken := r.s.modulePositions[key]; taken && owner != module.ID {
		return uniqueness("position")
	}
	delete(r.s.modulePositions, positionKey{current.CourseID, current.Position})
	r.s.modules[module.ID] = *module
	r.s.modulePositions[key] = module.ID
	return nil
}

// Delete removes a module and its lessons.
func (r *ModuleRepository) Delete(ctx context.Context, id string) error {
	return r.s.deleteEntity(ctx, integrity.EntityModule, id, func() bool {
		_, ok := r.s.modules[id]
		return ok
	})
}

// LessonRepository is the in-memory lesson store.
type LessonRepository struct {
	s *Store
}

// ListByModule returns a module's lessons by position.
func (r *LessonRepository) ListByModule(ctx context.Context, moduleID string) ([]models.Lesson, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	out := []models.Lesson{}
	for _, l := range r.s.lessons {
		if l.ModuleID == moduleID {
			out = append(out, l)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Position < out[j].Position })
	return out, nil
}

// FindByID fetches a lesson by ID.
func (r *LessonRepository) FindByID(ctx context.Context, id string) (*models.Lesson, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	l, ok := r.s.lessons[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return &l, nil
}

// Create stores a lesson at a free position of an existing module.
func (r *LessonRepository) Create(ctx context.Context, lesson *models.Lesson) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if lesson.ID == "" {
		lesson.ID = uuid.NewString()
	}
	if _, ok := r.s.lessons[lesson.ID]; ok {
		return uniqueness("id")
	}
	if _, ok := r.s.modules[lesson.ModuleID]; !ok {
		return missingReference("module_id")
	}
	key := positionKey{lesson.ModuleID, lesson.Position}
	if _, taken := r.s.lessonPositions[key]; taken {
		return uniqueness("position")
	}
	r.s.lessons[lesson.ID] = *lesson
	r.s.lessonPositions[key] = lesson.ID
	return nil
}

// Update changes a lesson. The duration may not drop below the watch time
// already recorded against it.
func (r *LessonRepository) Update(ctx context.Context, lesson *models.Lesson) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	current, ok := r.s.lessons[lesson.ID]
	if !ok {
		return sql.ErrNoRows
	}
	lesson.ModuleID = current.ModuleID
	maxWatched := 0
	for _, p := range r.s.progress {
		if p.LessonID == lesson.ID && p.WatchedMinutes > maxWatched {
			maxWatched = p.WatchedMinutes
		}
	}
	if err := integrity.CheckLessonDuration(lesson.DurationMinutes, maxWatched); err != nil {
		return err
	}
	key := positionKey{lesson.ModuleID, lesson.Position}
	if owner, taken := r.s.lessonPositions[key]; taken && owner != lesson.ID {
		return uniqueness("position")
	}
	delete(r.s.lessonPositions, positionKey{current.ModuleID, current.Position})
	r.s.lessons[lesson.ID] = *lesson
	r.s.lessonPositions[key] = lesson.ID
	return nil
}

// Delete removes a lesson without recorded progress.
func (r *LessonRepository) Delete(ctx context.Context, id string) error {
	return r.s.deleteEntity(ctx, integrity.EntityLesson, id, func() bool {
		_, ok := r.s.lessons[id]
		return ok
	})
}
