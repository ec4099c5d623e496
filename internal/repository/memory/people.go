package memory

import (
	"context"
	"database/sql"
	"strings"

	"github.com/google/uuid"

	"github.com/noah-isme/edutech-api/internal/integrity"
	"github.com/noah-isme/edutech-api/internal/models"
)

// StudentRepository is the in-memory student store.
type StudentRepository struct {
	s *Store
}

// List returns students ordered by name.
func (r *StudentRepository) List(ctx context.Context, filter models.StudentFilter) ([]models.Student, int, error) {
	if err := ctx.Err(); err != nil {
		return nil, 0, err
	}
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	needle := strings.ToLower(filter.Search)
	all := sortedValues(r.s.students, func(a, b models.Student) bool {
		if a.Name != b.Name {
			return a.Name < b.Name
		}
		return a.ID < b.ID
	})
	matched := all[:0]
	for _, st := range all {
		if needle == "" || strings.Contains(strings.ToLower(st.Name), needle) || strings.Contains(strings.ToLower(st.Email), needle) {
			matched = append(matched, st)
		}
	}
	return paginate(matched, filter.Page, filter.PageSize), len(matched), nil
}

// FindByID fetches a student by ID.
func (r *StudentRepository) FindByID(ctx context.Context, id string) (*models.Student, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	st, ok := r.s.students[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return &st, nil
}

// Create stores a new student with a case-insensitively unique email.
func (r *StudentRepository) Create(ctx context.Context, student *models.Student) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if student.ID == "" {
		student.ID = uuid.NewString()
	}
	if _, ok := r.s.students[student.ID]; ok {
		return uniqueness("id")
	}
	key := normalizeKey(student.Email)
	if _, taken := r.s.studentEmails[key]; taken {
		return uniqueness("email")
	}
	if student.RegisteredAt.IsZero() {
		student.RegisteredAt = r.s.now()
	}
	r.s.students[student.ID] = *student
	r.s.studentEmails[key] = student.ID
	return nil
}

// Update replaces a student's mutable fields.
func (r *StudentRepository) Update(ctx context.Context, student *models.Student) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	current, ok := r.s.students[student.ID]
	if !ok {
		return sql.ErrNoRows
	}
	key := normalizeKey(student.Email)
	if owner, taken := r.s.studentEmails[key]; taken && owner != student.ID {
		return uniqueness("email")
	}
	delete(r.s.studentEmails, normalizeKey(current.Email))
	student.RegisteredAt = current.RegisteredAt
	r.s.students[student.ID] = *student
	r.s.studentEmails[key] = student.ID
	return nil
}

// Delete removes a student without enrollments.
func (r *StudentRepository) Delete(ctx context.Context, id string) error {
	return r.s.deleteEntity(ctx, integrity.EntityStudent, id, func() bool {
		_, ok := r.s.students[id]
		return ok
	})
}

// InstructorRepository is the in-memory instructor store.
type InstructorRepository struct {
	s *Store
}

// List returns instructors ordered by name.
func (r *InstructorRepository) List(ctx context.Context, filter models.InstructorFilter) ([]models.Instructor, int, error) {
	if err := ctx.Err(); err != nil {
		return nil, 0, err
	}
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	needle := strings.ToLower(filter.Search)
	all := sortedValues(r.s.instructors, func(a, b models.Instructor) bool {
		if a.Name != b.Name {
			return a.Name < b.Name
		}
		return a.ID < b.ID
	})
	matched := all[:0]
	for _, in := range all {
		if needle == "" || strings.Contains(strings.ToLower(in.Name), needle) || strings.Contains(strings.ToLower(in.Specialty), needle) {
			matched = append(matched, in)
		}
	}
	return paginate(matched, filter.Page, filter.PageSize), len(matched), nil
}

// FindByID fetches an instructor by ID.
func (r *InstructorRepository) FindByID(ctx context.Context, id string) (*models.Instructor, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	in, ok := r.s.instructors[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return &in, nil
}

// Create stores a new instructor with a case-insensitively unique email.
func (r *InstructorRepository) Create(ctx context.Context, instructor *models.Instructor) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if instructor.ID == "" {
		instructor.ID = uuid.NewString()
	}
	if _, ok := r.s.instructors[instructor.ID]; ok {
		return uniqueness("id")
	}
	key := normalizeKey(instructor.Email)
	if _, taken := r.s.instructorEmails[key]; taken {
		return uniqueness("email")
	}
	r.s.instructors[instructor.ID] = *instructor
	r.s.instructorEmails[key] = instructor.ID
	return nil
}

// Update replaces an instructor's fields.
func (r *InstructorRepository) Update(ctx context.Context, instructor *models.Instructor) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	current, ok := r.s.instructors[instructor.ID]
	if !ok {
		return sql.ErrNoRows
	}
	key := normalizeKey(instructor.Email)
	if owner, taken := r.s.instructorEmails[key]; taken && owner != instructor.ID {
		return uniqueness("email")
	}
	delete(r.s.instructorEmails, normalizeKey(current.Email))
	r.s.instructors[instructor.ID] = *instructor
	r.s.instructorEmails[key] = instructor.ID
	return nil
}

// Delete removes an instructor without courses.
func (r *InstructorRepository) Delete(ctx context.Context, id string) error {
	return r.s.deleteEntity(ctx, integrity.EntityInstructor, id, func() bool {
		_, ok := r.s.instructors[id]
		return ok
	})
}

// CategoryRepository is the in-memory category store.
type CategoryRepository struct {
	s *Store
}

// List returns every category ordered by name.
func (r *CategoryRepository) List(ctx context.Context) ([]models.Category, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	return sortedValues(r.s.categories, func(a, b models.Category) bool {
		if a.Name != b.Name {
			return a.Name < b.Name
		}
		return a.ID < b.ID
	}), nil
}

// FindByID fetches a category by ID.
func (r *CategoryRepository) FindByID(ctx context.Context, id string) (*models.Category, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	c, ok := r.s.categories[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return &c, nil
}

// Create stores a new category with a case-insensitively unique name.
func (r *CategoryRepository) Create(ctx context.Context, category *models.Category) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if category.ID == "" {
		category.ID = uuid.NewString()
	}
	if _, ok := r.s.categories[category.ID]; ok {
		return uniqueness("id")
	}
	key := normalizeKey(category.Name)
	if _, taken := r.s.categoryNames[key]; taken {
		return uniqueness("name")
	}
	r.s.categories[category.ID] = *category
	r.s.categoryNames[key] = category.ID
	return nil
}

// Update replaces a category's fields.
func (r *CategoryRepository) Update(ctx context.Context, category *models.Category) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	current, ok := r.s.categories[category.ID]
	if !ok {
		return sql.ErrNoRows
	}
	key := normalizeKey(category.Name)
	if owner, taken := r.s.categoryNames[key]; taken && owner != category.ID {
		return uniqueness("name")
	}
	delete(r.s.categoryNames, normalizeKey(current.Name))
	r.s.categories[category.ID] = *category
	r.s.categoryNames[key] = category.ID
	return nil
}

// Delete removes a category without courses.
func (r *CategoryRepository) Delete(ctx context.Context, id string) error {
	return r.s.deleteEntity(ctx, integrity.EntityCategory, id, func() bool {
		_, ok := r.s.categories[id]
		return ok
	})
}
