// Package seed populates a store with realistic catalogue and learner data.
// Every row goes through the service layer so the integrity rules apply.
package seed

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/brianvoe/gofakeit/v7"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/noah-isme/edutech-api/internal/models"
	"github.com/noah-isme/edutech-api/internal/service"
)

const dateLayout = "2006-01-02"

var baseCategories = []struct{ name, description string }{
	{"Programming", "Languages and paradigms"},
	{"Data", "SQL, modelling and analysis"},
	{"DevOps", "Infrastructure, CI/CD and cloud"},
	{"Frontend", "UI, UX and frameworks"},
	{"Backend", "APIs and architecture"},
	{"Career", "Soft skills and practices"},
	{"Security", "Application security"},
	{"Mobile", "iOS, Android and cross-platform"},
}

var specialties = []string{
	"SQL & Data", "Backend", "DevOps", "Frontend", "PostgreSQL",
	"Python & Data", "Architecture", "Cloud", "Quality", "Security",
}

// Options controls how much data is generated.
type Options struct {
	Reset       bool
	Categories  int
	Instructors int
	Courses     int
	Students    int
	Enrollments int
	MinModules  int
	MaxModules  int
	MinLessons  int
	MaxLessons  int
	Seed        uint64
	// AsOf anchors generated dates. Zero means today.
	AsOf time.Time
}

// DefaultOptions mirrors the command line defaults.
func DefaultOptions() Options {
	return Options{
		Categories:  6,
		Instructors: 10,
		Courses:     20,
		Students:    30,
		Enrollments: 80,
		MinModules:  3,
		MaxModules:  5,
		MinLessons:  3,
		MaxLessons:  6,
	}
}

// Validate rejects counts and ranges the generator cannot honour.
func (o Options) Validate() error {
	if o.Instructors < 1 || o.Courses < 0 || o.Students < 0 || o.Enrollments < 0 {
		return fmt.Errorf("seed: need at least one instructor and non-negative counts")
	}
	if o.MinModules < 1 || o.MaxModules < o.MinModules {
		return fmt.Errorf("seed: invalid module range %d..%d", o.MinModules, o.MaxModules)
	}
	if o.MinLessons < 1 || o.MaxLessons < o.MinLessons {
		return fmt.Errorf("seed: invalid lesson range %d..%d", o.MinLessons, o.MaxLessons)
	}
	return nil
}

// Services are the write paths the seeder drives.
type Services struct {
	Students    *service.StudentService
	Instructors *service.InstructorService
	Categories  *service.CategoryService
	Courses     *service.CourseService
	Modules     *service.ModuleService
	Lessons     *service.LessonService
	Enrollments *service.EnrollmentService
	Progress    *service.ProgressService
	Ratings     *service.RatingService
}

// Resetter wipes every table of the store.
type Resetter interface {
	Reset(ctx context.Context) error
}

// Summary counts the rows created by a run.
type Summary struct {
	Categories  int `json:"categories"`
	Instructors int `json:"instructors"`
	Courses     int `json:"courses"`
	Modules     int `json:"modules"`
	Lessons     int `json:"lessons"`
	Students    int `json:"students"`
	Enrollments int `json:"enrollments"`
	Progress    int `json:"progress"`
	Ratings     int `json:"ratings"`
}

type lessonRef struct {
	id       string
	duration int
}

type courseRef struct {
	id      string
	price   decimal.Decimal
	lessons []lessonRef
}

type enrollmentRef struct {
	id         string
	course     *courseRef
	status      models.EnrollmentStatus
	enrolledOn  time.Time
	completedOn time.Time
}

// Seeder generates data with a seeded faker. Identifiers come from the same
// faker, so two stores seeded with the same seed hold identical rows.
type Seeder struct {
	svc    Services
	reset  Resetter
	logger *zap.Logger
	opts   Options
	faker  *gofakeit.Faker
	today  time.Time
}

// New constructs a Seeder. A zero Options.Seed draws a random seed.
func New(svc Services, reset Resetter, logger *zap.Logger, opts Options) *Seeder {
	if logger == nil {
		logger = zap.NewNop()
	}
	now := opts.AsOf
	if now.IsZero() {
		now = time.Now()
	}
	now = now.UTC()
	return &Seeder{
		svc:    svc,
		reset:  reset,
		logger: logger,
		opts:   opts,
		faker:  gofakeit.New(opts.Seed),
		today:  time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC),
	}
}

// Run generates every entity in dependency order and stops at the first
// error.
func (s *Seeder) Run(ctx context.Context) (Summary, error) {
	var sum Summary
	if err := s.opts.Validate(); err != nil {
		return sum, err
	}
	if s.opts.Reset {
		if s.reset == nil {
			return sum, fmt.Errorf("seed: reset requested but store cannot be reset")
		}
		s.logger.Info("resetting store")
		if err := s.reset.Reset(ctx); err != nil {
			return sum, fmt.Errorf("seed: reset: %w", err)
		}
	}

	categories, err := s.categories(ctx)
	if err != nil {
		return sum, err
	}
	sum.Categories = len(categories)

	instructors, err := s.instructors(ctx)
	if err != nil {
		return sum, err
	}
	sum.Instructors = len(instructors)

	courses, err := s.courses(ctx, categories, instructors, &sum)
	if err != nil {
		return sum, err
	}
	sum.Courses = len(courses)

	students, err := s.students(ctx)
	if err != nil {
		return sum, err
	}
	sum.Students = len(students)

	enrollments, err := s.enrollments(ctx, students, courses)
	if err != nil {
		return sum, err
	}
	sum.Enrollments = len(enrollments)

	if sum.Progress, err = s.progress(ctx, enrollments); err != nil {
		return sum, err
	}
	if sum.Ratings, err = s.ratings(ctx, enrollments); err != nil {
		return sum, err
	}

	s.logger.Info("seed finished",
		zap.Int("categories", sum.Categories),
		zap.Int("instructors", sum.Instructors),
		zap.Int("courses", sum.Courses),
		zap.Int("lessons", sum.Lessons),
		zap.Int("students", sum.Students),
		zap.Int("enrollments", sum.Enrollments),
		zap.Int("progress", sum.Progress),
		zap.Int("ratings", sum.Ratings),
	)
	return sum, nil
}

// categories takes at least five names from the fixed list.
func (s *Seeder) categories(ctx context.Context) ([]string, error) {
	n := s.opts.Categories
	if n < 5 {
		n = 5
	}
	if n > len(baseCategories) {
		n = len(baseCategories)
	}
	ids := make([]string, 0, n)
	for _, idx := range s.shuffled(len(baseCategories))[:n] {
		base := baseCategories[idx]
		description := base.description
		category, err := s.svc.Categories.Create(ctx, service.CategoryRequest{ID: s.faker.UUID(), Name: base.name, Description: &description})
		if err != nil {
			return nil, fmt.Errorf("seed: category %q: %w", base.name, err)
		}
		ids = append(ids, category.ID)
	}
	return ids, nil
}

func (s *Seeder) instructors(ctx context.Context) ([]string, error) {
	ids := make([]string, 0, s.opts.Instructors)
	for i := 0; i < s.opts.Instructors; i++ {
		bio := s.faker.Phrase()
		instructor, err := s.svc.Instructors.Create(ctx, service.InstructorRequest{
			ID:        s.faker.UUID(),
			Name:      s.faker.Name(),
			Email:     s.uniqueEmail("i", i),
			Specialty: specialties[s.faker.IntRange(0, len(specialties)-1)],
			Biography: &bio,
		})
		if err != nil {
			return nil, fmt.Errorf("seed: instructor: %w", err)
		}
		ids = append(ids, instructor.ID)
	}
	return ids, nil
}

func (s *Seeder) courses(ctx context.Context, categories, instructors []string, sum *Summary) ([]*courseRef, error) {
	levels := []string{string(models.CourseLevelBeginner), string(models.CourseLevelIntermediate), string(models.CourseLevelAdvanced)}
	prefixes := []string{"Course", "Bootcamp", "Track"}

	out := make([]*courseRef, 0, s.opts.Courses)
	for i := 1; i <= s.opts.Courses; i++ {
		description := s.faker.Phrase()
		price := decimal.NewFromFloat(49.9 + s.faker.Float64Range(0, 450)).Round(2)
		course, err := s.svc.Courses.Create(ctx, service.CourseRequest{
			ID:            s.faker.UUID(),
			Title:         fmt.Sprintf("%s %s %d", s.pick(prefixes), titleCase(s.faker.Word()), i),
			Description:   &description,
			CategoryID:    s.pick(categories),
			InstructorID:  s.pick(instructors),
			Price:         price,
			DurationHours: s.faker.IntRange(8, 48),
			Level:         s.pick(levels),
		})
		if err != nil {
			return nil, fmt.Errorf("seed: course %d: %w", i, err)
		}
		ref := &courseRef{id: course.ID, price: course.Price}
		if err := s.outline(ctx, ref, sum); err != nil {
			return nil, err
		}
		out = append(out, ref)
	}
	return out, nil
}

func (s *Seeder) outline(ctx context.Context, course *courseRef, sum *Summary) error {
	lessonTypes := []string{string(models.LessonTypeVideo), string(models.LessonTypeText), string(models.LessonTypeQuiz)}

	modules := s.faker.IntRange(s.opts.MinModules, s.opts.MaxModules)
	for m := 1; m <= modules; m++ {
		description := s.faker.Phrase()
		module, err := s.svc.Modules.Create(ctx, service.CreateModuleRequest{
			ID:          s.faker.UUID(),
			CourseID:    course.id,
			Title:       fmt.Sprintf("Module %d: %s", m, titleCase(s.faker.Word())),
			Position:    m,
			Description: &description,
		})
		if err != nil {
			return fmt.Errorf("seed: module: %w", err)
		}
		sum.Modules++

		lessons := s.faker.IntRange(s.opts.MinLessons, s.opts.MaxLessons)
		for l := 1; l <= lessons; l++ {
			lesson, err := s.svc.Lessons.Create(ctx, service.CreateLessonRequest{
				ID:              s.faker.UUID(),
				ModuleID:        module.ID,
				Title:           fmt.Sprintf("Lesson %d.%d: %s", m, l, titleCase(s.faker.Word())),
				Position:        l,
				DurationMinutes: s.faker.IntRange(5, 45),
				Type:            s.pick(lessonTypes),
			})
			if err != nil {
				return fmt.Errorf("seed: lesson: %w", err)
			}
			sum.Lessons++
			course.lessons = append(course.lessons, lessonRef{id: lesson.ID, duration: lesson.DurationMinutes})
		}
	}
	return nil
}

func (s *Seeder) students(ctx context.Context) ([]string, error) {
	ids := make([]string, 0, s.opts.Students)
	for i := 0; i < s.opts.Students; i++ {
		birth := s.today.AddDate(0, 0, -s.faker.IntRange(18*365, 45*365))
		student, err := s.svc.Students.Create(ctx, service.StudentRequest{
			ID:        s.faker.UUID(),
			Name:      s.faker.Name(),
			Email:     s.uniqueEmail("s", i),
			BirthDate: birth.Format(dateLayout),
		})
		if err != nil {
			return nil, fmt.Errorf("seed: student: %w", err)
		}
		ids = append(ids, student.ID)
	}
	return ids, nil
}

// enrollments draws unique (student, course) pairs, giving up after six
// attempts per requested row.
func (s *Seeder) enrollments(ctx context.Context, students []string, courses []*courseRef) ([]enrollmentRef, error) {
	out := make([]enrollmentRef, 0, s.opts.Enrollments)
	if len(students) == 0 || len(courses) == 0 {
		return out, nil
	}
	type pair struct{ student, course string }
	taken := make(map[pair]struct{})

	for attempts := s.opts.Enrollments * 6; len(out) < s.opts.Enrollments && attempts > 0; attempts-- {
		student := s.pick(students)
		course := courses[s.faker.IntRange(0, len(courses)-1)]
		key := pair{student, course.id}
		if _, ok := taken[key]; ok {
			continue
		}
		taken[key] = struct{}{}

		enrolledOn := s.today.AddDate(0, 0, -s.faker.IntRange(0, 240))
		var (
			completedOn *string
			doneOn      time.Time
		)
		status := models.EnrollmentStatusCancelled
		switch r := s.faker.Float64(); {
		case r < 0.45:
			status = models.EnrollmentStatusCompleted
			doneOn = enrolledOn.AddDate(0, 0, s.faker.IntRange(7, 120))
			done := doneOn.Format(dateLayout)
			completedOn = &done
		case r < 0.80:
			status = models.EnrollmentStatusActive
		}
		discount := decimal.NewFromFloat(s.faker.Float64Range(0, 0.2)).Round(2)
		paid := course.price.Mul(decimal.NewFromInt(1).Sub(discount)).Round(2)

		enrollment, err := s.svc.Enrollments.Create(ctx, service.CreateEnrollmentRequest{
			ID:          s.faker.UUID(),
			StudentID:   student,
			CourseID:    course.id,
			EnrolledOn:  enrolledOn.Format(dateLayout),
			CompletedOn: completedOn,
			Status:      string(status),
			AmountPaid:  paid,
		})
		if err != nil {
			return nil, fmt.Errorf("seed: enrollment: %w", err)
		}
		out = append(out, enrollmentRef{id: enrollment.ID, course: course, status: status, enrolledOn: enrolledOn, completedOn: doneOn})
	}
	return out, nil
}

// progress records 3 to 10 lessons per enrollment. A lesson is complete only
// when fully watched on an enrollment that was not cancelled.
func (s *Seeder) progress(ctx context.Context, enrollments []enrollmentRef) (int, error) {
	rows := 0
	for _, e := range enrollments {
		lessons := e.course.lessons
		if len(lessons) == 0 {
			continue
		}
		k := s.faker.IntRange(3, 10)
		if k > len(lessons) {
			k = len(lessons)
		}
		for _, idx := range s.shuffled(len(lessons))[:k] {
			lesson := lessons[idx]
			watched := s.faker.IntRange(0, lesson.duration)
			req := service.CreateProgressRequest{
				ID:             s.faker.UUID(),
				EnrollmentID:   e.id,
				LessonID:       lesson.id,
				WatchedMinutes: watched,
			}
			if watched == lesson.duration && e.status != models.EnrollmentStatusCancelled {
				at := e.enrolledOn.AddDate(0, 0, s.faker.IntRange(1, 90))
				req.Completed = true
				req.CompletedAt = &at
			}
			if _, err := s.svc.Progress.Create(ctx, req); err != nil {
				return rows, fmt.Errorf("seed: progress: %w", err)
			}
			rows++
		}
	}
	return rows, nil
}

// ratings adds one rating per completed enrollment, dated up to 60 days after
// completion.
func (s *Seeder) ratings(ctx context.Context, enrollments []enrollmentRef) (int, error) {
	count := 0
	for _, e := range enrollments {
		if e.status != models.EnrollmentStatusCompleted {
			continue
		}
		comment := s.faker.Phrase()
		ratedAt := e.completedOn.AddDate(0, 0, s.faker.IntRange(0, 60))
		if _, err := s.svc.Ratings.Create(ctx, service.CreateRatingRequest{
			ID:           s.faker.UUID(),
			EnrollmentID: e.id,
			CourseID:     e.course.id,
			Score:        s.faker.IntRange(1, 5),
			Comment:      &comment,
			RatedAt:      &ratedAt,
		}); err != nil {
			return count, fmt.Errorf("seed: rating: %w", err)
		}
		count++
	}
	return count, nil
}

func (s *Seeder) pick(values []string) string {
	return values[s.faker.IntRange(0, len(values)-1)]
}

// uniqueEmail prefixes a generated address with the row index so retries are
// never needed.
func (s *Seeder) uniqueEmail(kind string, i int) string {
	return fmt.Sprintf("%s%d.%s", kind, i, s.faker.Email())
}

// shuffled returns the indexes 0..n-1 in random order.
func (s *Seeder) shuffled(n int) []int {
	idx := make([]int, n)
	for i := range idx {
		idx[i] = i
	}
	s.faker.ShuffleInts(idx)
	return idx
}

func titleCase(word string) string {
	if word == "" {
		return word
	}
	return strings.ToUpper(word[:1]) + word[1:]
}
