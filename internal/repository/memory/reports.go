package memory

import (
	"context"
	"database/sql"
	"sort"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/noah-isme/edutech-api/internal/models"
)

// ReportRepository computes the aggregate reports from the in-memory state.
// Orderings and tie-breaks match the SQL implementation.
type ReportRepository struct {
	s *Store
}

// ratio is an exact fraction used to order averages and rates without
// rounding.
type ratio struct {
	num int64
	den int64
}

func (r ratio) less(o ratio) bool { return r.num*o.den < o.num*r.den }

func (r ratio) round() decimal.Decimal {
	return decimal.NewFromInt(r.num).DivRound(decimal.NewFromInt(r.den), 2)
}

func (r ratio) atLeast(min decimal.Decimal) bool {
	return decimal.NewFromInt(r.num).GreaterThanOrEqual(min.Mul(decimal.NewFromInt(r.den)))
}

func (r ratio) below(max decimal.Decimal) bool {
	return decimal.NewFromInt(r.num).LessThan(max.Mul(decimal.NewFromInt(r.den)))
}

func (r ratio) nullable() decimal.NullDecimal {
	if r.den == 0 {
		return decimal.NullDecimal{}
	}
	return decimal.NewNullDecimal(r.round())
}

func billable(e models.Enrollment) bool {
	return e.Status != models.EnrollmentStatusCancelled
}

// lessonTotals counts lessons per course.
func (s *Store) lessonTotals() map[string]int {
	totals := map[string]int{}
	for _, l := range s.lessons {
		totals[s.lessonCourse(l)]++
	}
	return totals
}

// completedByEnrollment counts completed progress rows per enrollment.
func (s *Store) completedByEnrollment() map[string]int {
	done := map[string]int{}
	for _, p := range s.progress {
		if p.Completed {
			done[p.EnrollmentID]++
		}
	}
	return done
}

// CourseCatalog lists courses with category and instructor names.
func (r *ReportRepository) CourseCatalog(ctx context.Context, filter models.ReportFilter) ([]models.CourseCatalogRow, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	rows := []models.CourseCatalogRow{}
	for _, c := range sortedValues(r.s.courses, courseByTitle) {
		if filter.CategoryID != "" && c.CategoryID != filter.CategoryID {
			continue
		}
		if filter.Level != "" && c.Level != filter.Level {
			continue
		}
		rows = append(rows, models.CourseCatalogRow{
			CourseID:       c.ID,
			Title:          c.Title,
			CategoryName:   r.s.categories[c.CategoryID].Name,
			InstructorName: r.s.instructors[c.InstructorID].Name,
			Level:          c.Level,
			Price:          c.Price,
		})
	}
	return rows, nil
}

// CourseRoster lists the students enrolled in the matching courses.
func (r *ReportRepository) CourseRoster(ctx context.Context, filter models.ReportFilter) ([]models.CourseRosterRow, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	needle := strings.ToLower(filter.TitleLike)
	rows := []models.CourseRosterRow{}
	for _, e := range r.s.enrollments {
		c := r.s.courses[e.CourseID]
		if filter.CourseID != "" && c.ID != filter.CourseID {
			continue
		}
		if needle != "" && !strings.Contains(strings.ToLower(c.Title), needle) {
			continue
		}
		st := r.s.students[e.StudentID]
		rows = append(rows, models.CourseRosterRow{
			EnrollmentID: e.ID,
			CourseID:     c.ID,
			CourseTitle:  c.Title,
			StudentID:    st.ID,
			StudentName:  st.Name,
			StudentEmail: st.Email,
			Status:       e.Status,
			EnrolledOn:   e.EnrolledOn,
		})
	}
	sort.Slice(rows, func(i, j int) bool {
		if rows[i].StudentName != rows[j].StudentName {
			return rows[i].StudentName < rows[j].StudentName
		}
		return rows[i].EnrollmentID < rows[j].EnrollmentID
	})
	return rows, nil
}

// LessonOutline lists a course's lessons in module then lesson order.
func (r *ReportRepository) LessonOutline(ctx context.Context, courseID string) ([]models.LessonOutlineRow, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	course, ok := r.s.courses[courseID]
	rows := []models.LessonOutlineRow{}
	if !ok {
		return rows, nil
	}
	for _, l := range r.s.lessons {
		m := r.s.modules[l.ModuleID]
		if m.CourseID != courseID {
			continue
		}
		rows = append(rows, models.LessonOutlineRow{
			CourseTitle:     course.Title,
			ModuleID:        m.ID,
			ModuleTitle:     m.Title,
			ModulePosition:  m.Position,
			LessonID:        l.ID,
			LessonTitle:     l.Title,
			LessonPosition:  l.Position,
			DurationMinutes: l.DurationMinutes,
			Type:            l.Type,
		})
	}
	sort.Slice(rows, func(i, j int) bool {
		if rows[i].ModulePosition != rows[j].ModulePosition {
			return rows[i].ModulePosition < rows[j].ModulePosition
		}
		return rows[i].LessonPosition < rows[j].LessonPosition
	})
	return rows, nil
}

// CourseRatings averages ratings per course, unrated courses last.
func (r *ReportRepository) CourseRatings(ctx context.Context) ([]models.CourseRatingRow, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	scores := map[string]ratio{}
	for _, rt := range r.s.ratings {
		agg := scores[rt.CourseID]
		agg.num += int64(rt.Score)
		agg.den++
		scores[rt.CourseID] = agg
	}

	type entry struct {
		row models.CourseRatingRow
		avg ratio
	}
	entries := make([]entry, 0, len(r.s.courses))
	for _, c := range r.s.courses {
		avg := scores[c.ID]
		entries = append(entries, entry{
			row: models.CourseRatingRow{CourseID: c.ID, Title: c.Title, AverageScore: avg.nullable(), RatingCount: int(avg.den)},
			avg: avg,
		})
	}
	sort.Slice(entries, func(i, j int) bool {
		a, b := entries[i], entries[j]
		if (a.avg.den == 0) != (b.avg.den == 0) {
			return b.avg.den == 0
		}
		if a.avg.den != 0 && (a.avg.less(b.avg) || b.avg.less(a.avg)) {
			return b.avg.less(a.avg)
		}
		return a.row.CourseID < b.row.CourseID
	})

	rows := make([]models.CourseRatingRow, len(entries))
	for i, e := range entries {
		rows[i] = e.row
	}
	return rows, nil
}

// CourseEnrollmentCounts counts distinct students per course.
func (r *ReportRepository) CourseEnrollmentCounts(ctx context.Context) ([]models.CourseEnrollmentCountRow, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	students := map[string]map[string]struct{}{}
	for _, e := range r.s.enrollments {
		if students[e.CourseID] == nil {
			students[e.CourseID] = map[string]struct{}{}
		}
		students[e.CourseID][e.StudentID] = struct{}{}
	}
	rows := make([]models.CourseEnrollmentCountRow, 0, len(r.s.courses))
	for _, c := range r.s.courses {
		rows = append(rows, models.CourseEnrollmentCountRow{CourseID: c.ID, Title: c.Title, StudentCount: len(students[c.ID])})
	}
	sort.Slice(rows, func(i, j int) bool {
		if rows[i].StudentCount != rows[j].StudentCount {
			return rows[i].StudentCount > rows[j].StudentCount
		}
		return rows[i].CourseID < rows[j].CourseID
	})
	return rows, nil
}

// CategoryRevenue sums non-cancelled payments per category.
func (r *ReportRepository) CategoryRevenue(ctx context.Context) ([]models.CategoryRevenueRow, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	revenue := map[string]decimal.Decimal{}
	for _, e := range r.s.enrollments {
		if !billable(e) {
			continue
		}
		catID := r.s.courses[e.CourseID].CategoryID
		revenue[catID] = revenue[catID].Add(e.AmountPaid)
	}
	rows := make([]models.CategoryRevenueRow, 0, len(revenue))
	for catID, total := range revenue {
		rows = append(rows, models.CategoryRevenueRow{CategoryID: catID, Name: r.s.categories[catID].Name, Revenue: total.Round(2)})
	}
	sort.Slice(rows, func(i, j int) bool {
		if !rows[i].Revenue.Equal(rows[j].Revenue) {
			return rows[i].Revenue.GreaterThan(rows[j].Revenue)
		}
		return rows[i].CategoryID < rows[j].CategoryID
	})
	return rows, nil
}

// TopActiveCourse returns at most one course, the one with most active
// enrollments, lowest id on ties.
func (r *ReportRepository) TopActiveCourse(ctx context.Context) ([]models.TopActiveCourseRow, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	active := map[string]int{}
	for _, e := range r.s.enrollments {
		if e.Status == models.EnrollmentStatusActive {
			active[e.CourseID]++
		}
	}
	rows := []models.TopActiveCourseRow{}
	var best string
	for courseID, n := range active {
		if best == "" || n > active[best] || (n == active[best] && courseID < best) {
			best = courseID
		}
	}
	if best != "" {
		rows = append(rows, models.TopActiveCourseRow{CourseID: best, Title: r.s.courses[best].Title, ActiveCount: active[best]})
	}
	return rows, nil
}

// EnrollmentCompletion computes the completion percentage per enrollment.
func (r *ReportRepository) EnrollmentCompletion(ctx context.Context, filter models.ReportFilter) ([]models.EnrollmentCompletionRow, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	totals := r.s.lessonTotals()
	done := r.s.completedByEnrollment()
	rows := []models.EnrollmentCompletionRow{}
	for _, e := range r.s.enrollments {
		if filter.CourseID != "" && e.CourseID != filter.CourseID {
			continue
		}
		if filter.StudentID != "" && e.StudentID != filter.StudentID {
			continue
		}
		total := totals[e.CourseID]
		completed := done[e.ID]
		rows = append(rows, models.EnrollmentCompletionRow{
			EnrollmentID:     e.ID,
			StudentID:        e.StudentID,
			StudentName:      r.s.students[e.StudentID].Name,
			CourseID:         e.CourseID,
			CourseTitle:      r.s.courses[e.CourseID].Title,
			CompletedLessons: completed,
			TotalLessons:     total,
			Percentage:       ratio{num: int64(completed) * 100, den: int64(total)}.nullable(),
		})
	}
	sort.Slice(rows, func(i, j int) bool {
		a, b := rows[i], rows[j]
		if a.StudentName != b.StudentName {
			return a.StudentName < b.StudentName
		}
		if a.CourseTitle != b.CourseTitle {
			return a.CourseTitle < b.CourseTitle
		}
		return a.EnrollmentID < b.EnrollmentID
	})
	return rows, nil
}

// CourseReport summarises one course. A missing course yields sql.ErrNoRows.
func (r *ReportRepository) CourseReport(ctx context.Context, courseID string) (*models.CourseReportRow, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	c, ok := r.s.courses[courseID]
	if !ok {
		return nil, sql.ErrNoRows
	}
	students := map[string]struct{}{}
	revenue := decimal.Zero
	for _, e := range r.s.enrollments {
		if e.CourseID != courseID {
			continue
		}
		students[e.StudentID] = struct{}{}
		if billable(e) {
			revenue = revenue.Add(e.AmountPaid)
		}
	}
	var avg ratio
	for _, rt := range r.s.ratings {
		if rt.CourseID == courseID {
			avg.num += int64(rt.Score)
			avg.den++
		}
	}
	return &models.CourseReportRow{
		CourseID:       c.ID,
		Title:          c.Title,
		InstructorName: r.s.instructors[c.InstructorID].Name,
		StudentCount:   len(students),
		Revenue:        revenue.Round(2),
		AverageRating:  avg.nullable(),
	}, nil
}

// InstructorSummary aggregates courses, students and ratings per instructor.
func (r *ReportRepository) InstructorSummary(ctx context.Context) ([]models.InstructorSummaryRow, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	courses := map[string]int{}
	for _, c := range r.s.courses {
		courses[c.InstructorID]++
	}
	students := map[string]map[string]struct{}{}
	for _, e := range r.s.enrollments {
		instructorID := r.s.courses[e.CourseID].InstructorID
		if students[instructorID] == nil {
			students[instructorID] = map[string]struct{}{}
		}
		students[instructorID][e.StudentID] = struct{}{}
	}
	scores := map[string]ratio{}
	for _, rt := range r.s.ratings {
		instructorID := r.s.courses[rt.CourseID].InstructorID
		agg := scores[instructorID]
		agg.num += int64(rt.Score)
		agg.den++
		scores[instructorID] = agg
	}

	rows := make([]models.InstructorSummaryRow, 0, len(r.s.instructors))
	for _, in := range r.s.instructors {
		rows = append(rows, models.InstructorSummaryRow{
			InstructorID:  in.ID,
			Name:          in.Name,
			CourseCount:   courses[in.ID],
			StudentCount:  len(students[in.ID]),
			AverageRating: scores[in.ID].nullable(),
		})
	}
	sort.Slice(rows, func(i, j int) bool {
		a, b := rows[i], rows[j]
		if a.StudentCount != b.StudentCount {
			return a.StudentCount > b.StudentCount
		}
		if a.CourseCount != b.CourseCount {
			return a.CourseCount > b.CourseCount
		}
		return a.InstructorID < b.InstructorID
	})
	return rows, nil
}

// TopCoursesByRevenue ranks courses by non-cancelled revenue.
func (r *ReportRepository) TopCoursesByRevenue(ctx context.Context, limit int) ([]models.CourseRevenueRow, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	revenue := map[string]decimal.Decimal{}
	for _, e := range r.s.enrollments {
		if billable(e) {
			revenue[e.CourseID] = revenue[e.CourseID].Add(e.AmountPaid)
		}
	}
	rows := make([]models.CourseRevenueRow, 0, len(revenue))
	for courseID, total := range revenue {
		rows = append(rows, models.CourseRevenueRow{CourseID: courseID, Title: r.s.courses[courseID].Title, Revenue: total.Round(2)})
	}
	sort.Slice(rows, func(i, j int) bool {
		if !rows[i].Revenue.Equal(rows[j].Revenue) {
			return rows[i].Revenue.GreaterThan(rows[j].Revenue)
		}
		return rows[i].CourseID < rows[j].CourseID
	})
	if limit >= 0 && len(rows) > limit {
		rows = rows[:limit]
	}
	return rows, nil
}

// InactiveStudents lists students without a completion in the six months
// ending at asOf.
func (r *ReportRepository) InactiveStudents(ctx context.Context, asOf time.Time) ([]models.InactiveStudentRow, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	from, to := models.InactivityWindow(asOf)
	active := map[string]bool{}
	for _, e := range r.s.enrollments {
		if e.Status != models.EnrollmentStatusCompleted || e.CompletedOn == nil {
			continue
		}
		day := dateOnly(*e.CompletedOn)
		if !day.Before(from) && !day.After(to) {
			active[e.StudentID] = true
		}
	}
	rows := []models.InactiveStudentRow{}
	for _, st := range r.s.students {
		if !active[st.ID] {
			rows = append(rows, models.InactiveStudentRow{StudentID: st.ID, Name: st.Name, Email: st.Email})
		}
	}
	sort.Slice(rows, func(i, j int) bool {
		if rows[i].Name != rows[j].Name {
			return rows[i].Name < rows[j].Name
		}
		return rows[i].StudentID < rows[j].StudentID
	})
	return rows, nil
}

// Dashboard returns the platform totals.
func (r *ReportRepository) Dashboard(ctx context.Context) (*models.DashboardRow, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	row := &models.DashboardRow{
		TotalStudents: len(r.s.students),
		TotalCourses:  len(r.s.courses),
		TotalRevenue:  decimal.Zero,
	}
	for _, e := range r.s.enrollments {
		if e.Status == models.EnrollmentStatusActive {
			row.ActiveEnrollments++
		}
		if billable(e) {
			row.TotalRevenue = row.TotalRevenue.Add(e.AmountPaid)
		}
	}
	row.TotalRevenue = row.TotalRevenue.Round(2)
	return row, nil
}

// LowCompletionCourses returns courses whose completion rate is strictly
// below threshold. Courses without lessons are skipped.
func (r *ReportRepository) LowCompletionCourses(ctx context.Context, threshold decimal.Decimal) ([]models.LowCompletionRow, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	totals := r.s.lessonTotals()
	enrollments := map[string]int{}
	done := map[string]int{}
	completed := r.s.completedByEnrollment()
	for _, e := range r.s.enrollments {
		enrollments[e.CourseID]++
		done[e.CourseID] += completed[e.ID]
	}

	type entry struct {
		row  models.LowCompletionRow
		rate ratio
	}
	var entries []entry
	for _, c := range r.s.courses {
		total := totals[c.ID]
		if total == 0 {
			continue
		}
		divisor := enrollments[c.ID]
		if divisor < 1 {
			divisor = 1
		}
		rate := ratio{num: int64(done[c.ID]), den: int64(total * divisor)}
		if !rate.below(threshold) {
			continue
		}
		entries = append(entries, entry{
			row: models.LowCompletionRow{
				CourseID:         c.ID,
				Title:            c.Title,
				CompletedLessons: done[c.ID],
				TotalLessons:     total,
				Enrollments:      enrollments[c.ID],
				CompletionRate:   rate.round(),
			},
			rate: rate,
		})
	}
	sort.Slice(entries, func(i, j int) bool {
		a, b := entries[i], entries[j]
		if a.rate.less(b.rate) || b.rate.less(a.rate) {
			return a.rate.less(b.rate)
		}
		return a.row.CourseID < b.row.CourseID
	})
	rows := make([]models.LowCompletionRow, len(entries))
	for i, e := range entries {
		rows[i] = e.row
	}
	return rows, nil
}

// TopRatedInstructors returns instructors whose unrounded average rating is at
// least minAverage.
func (r *ReportRepository) TopRatedInstructors(ctx context.Context, minAverage decimal.Decimal) ([]models.TopRatedInstructorRow, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	scores := map[string]ratio{}
	for _, rt := range r.s.ratings {
		instructorID := r.s.courses[rt.CourseID].InstructorID
		agg := scores[instructorID]
		agg.num += int64(rt.Score)
		agg.den++
		scores[instructorID] = agg
	}

	type entry struct {
		row models.TopRatedInstructorRow
		avg ratio
	}
	var entries []entry
	for instructorID, avg := range scores {
		if !avg.atLeast(minAverage) {
			continue
		}
		entries = append(entries, entry{
			row: models.TopRatedInstructorRow{
				InstructorID:  instructorID,
				Name:          r.s.instructors[instructorID].Name,
				AverageRating: avg.round(),
				RatingCount:   int(avg.den),
			},
			avg: avg,
		})
	}
	sort.Slice(entries, func(i, j int) bool {
		a, b := entries[i], entries[j]
		if a.avg.less(b.avg) || b.avg.less(a.avg) {
			return b.avg.less(a.avg)
		}
		return a.row.InstructorID < b.row.InstructorID
	})
	rows := make([]models.TopRatedInstructorRow, len(entries))
	for i, e := range entries {
		rows[i] = e.row
	}
	return rows, nil
}

// PopularCategories counts enrollments of every status per category.
func (r *ReportRepository) PopularCategories(ctx context.Context) ([]models.PopularCategoryRow, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	counts := map[string]int{}
	for _, e := range r.s.enrollments {
		counts[r.s.courses[e.CourseID].CategoryID]++
	}
	rows := make([]models.PopularCategoryRow, 0, len(r.s.categories))
	for _, cat := range r.s.categories {
		rows = append(rows, models.PopularCategoryRow{CategoryID: cat.ID, Name: cat.Name, EnrollmentCount: counts[cat.ID]})
	}
	sort.Slice(rows, func(i, j int) bool {
		if rows[i].EnrollmentCount != rows[j].EnrollmentCount {
			return rows[i].EnrollmentCount > rows[j].EnrollmentCount
		}
		return rows[i].CategoryID < rows[j].CategoryID
	})
	return rows, nil
}

// MonthlyEnrollments counts enrollments per month of the given year.
func (r *ReportRepository) MonthlyEnrollments(ctx context.Context, year int) ([]models.MonthlyEnrollmentRow, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	counts := map[string]int{}
	for _, e := range r.s.enrollments {
		if e.EnrolledOn.Year() == year {
			counts[e.EnrolledOn.Format("2006-01")]++
		}
	}
	rows := make([]models.MonthlyEnrollmentRow, 0, len(counts))
	for month, n := range counts {
		rows = append(rows, models.MonthlyEnrollmentRow{Month: month, EnrollmentCount: n})
	}
	sort.Slice(rows, func(i, j int) bool { return rows[i].Month < rows[j].Month })
	return rows, nil
}
