package memory

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/edutech-api/internal/models"
)

func populated(t *testing.T) *fixture {
	f := newFixture(t)
	completedMarch := day(2024, time.March, 1)
	completedApril := day(2024, time.April, 10)

	f.enroll("e1", "s1", "c1", models.EnrollmentStatusActive, "100.00", day(2024, time.January, 10), nil)
	f.enroll("e2", "s2", "c1", models.EnrollmentStatusCompleted, "100.00", day(2024, time.February, 1), &completedMarch)
	f.enroll("e3", "s3", "c1", models.EnrollmentStatusCancelled, "200.00", day(2024, time.March, 5), nil)
	f.enroll("e4", "s3", "c2", models.EnrollmentStatusCompleted, "150.50", day(2024, time.March, 20), &completedApril)
	f.enroll("e5", "s4", "c2", models.EnrollmentStatusCancelled, "150.50", day(2024, time.April, 2), nil)
	f.enroll("e6", "s1", "c3", models.EnrollmentStatusActive, "99.00", day(2024, time.May, 3), nil)

	f.complete("e1", "c1-l1")
	f.complete("e1", "c1-l2")
	for _, lesson := range []string{"c1-l1", "c1-l2", "c1-l3", "c1-l4", "c1-l5"} {
		f.complete("e2", lesson)
	}

	f.rate("e1", "c1", 5)
	f.rate("e2", "c1", 5)
	f.rate("e3", "c1", 4)
	f.rate("e4", "c2", 3)
	f.rate("e6", "c3", 5)
	return f
}

func TestEnrollmentCompletionPercentages(t *testing.T) {
	f := populated(t)
	rows, err := f.store.Reports().EnrollmentCompletion(f.ctx, models.ReportFilter{StudentID: "s1"})
	require.NoError(t, err)
	require.Len(t, rows, 2)

	assert.Equal(t, "c3", rows[0].CourseID)
	assert.False(t, rows[0].Percentage.Valid, "zero-lesson course has no percentage")

	assert.Equal(t, "e1", rows[1].EnrollmentID)
	assert.Equal(t, 2, rows[1].CompletedLessons)
	assert.Equal(t, 5, rows[1].TotalLessons)
	require.True(t, rows[1].Percentage.Valid)
	assert.Equal(t, "40.00", rows[1].Percentage.Decimal.StringFixed(2))

	all, err := f.store.Reports().EnrollmentCompletion(f.ctx, models.ReportFilter{CourseID: "c2"})
	require.NoError(t, err)
	require.Len(t, all, 2)
	for _, row := range all {
		assert.Equal(t, "0.00", row.Percentage.Decimal.StringFixed(2), "no progress shows zero")
	}
}

func TestCategoryRevenueExcludesCancelled(t *testing.T) {
	f := populated(t)
	rows, err := f.store.Reports().CategoryRevenue(f.ctx)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "Programming", rows[0].Name)
	assert.True(t, money("350.50").Equal(rows[0].Revenue))
	assert.Equal(t, "Design", rows[1].Name)
	assert.True(t, money("99.00").Equal(rows[1].Revenue))
}

func TestCourseRatingsAverageAndOrder(t *testing.T) {
	f := populated(t)
	require.NoError(t, f.store.Courses().Create(f.ctx, &models.Course{
		ID: "c4", Title: "Unrated", CategoryID: "cat-design", InstructorID: "i2",
		Price: money("10.00"), DurationHours: 1, Level: models.CourseLevelAdvanced,
	}))

	rows, err := f.store.Reports().CourseRatings(f.ctx)
	require.NoError(t, err)
	require.Len(t, rows, 4)

	ids := []string{rows[0].CourseID, rows[1].CourseID, rows[2].CourseID, rows[3].CourseID}
	assert.Equal(t, []string{"c3", "c1", "c2", "c4"}, ids)
	assert.Equal(t, "4.67", rows[1].AverageScore.Decimal.StringFixed(2))
	assert.Equal(t, 3, rows[1].RatingCount)
	assert.False(t, rows[3].AverageScore.Valid)
	assert.Equal(t, 0, rows[3].RatingCount)
}

func TestInstructorSummaryCountsDistinctStudents(t *testing.T) {
	f := populated(t)
	require.NoError(t, f.store.Instructors().Create(f.ctx, &models.Instructor{ID: "i3", Name: "Idle", Email: "idle@example.com", Specialty: "None"}))

	rows, err := f.store.Reports().InstructorSummary(f.ctx)
	require.NoError(t, err)
	require.Len(t, rows, 3)

	assert.Equal(t, "i1", rows[0].InstructorID)
	assert.Equal(t, 4, rows[0].StudentCount)
	assert.Equal(t, 2, rows[0].CourseCount)
	assert.Equal(t, "4.25", rows[0].AverageRating.Decimal.StringFixed(2))

	assert.Equal(t, "i2", rows[1].InstructorID)
	assert.Equal(t, 1, rows[1].StudentCount)

	assert.Equal(t, "i3", rows[2].InstructorID)
	assert.Equal(t, 0, rows[2].CourseCount)
	assert.False(t, rows[2].AverageRating.Valid)
}

func TestDashboardEchoesState(t *testing.T) {
	f := populated(t)
	row, err := f.store.Reports().Dashboard(f.ctx)
	require.NoError(t, err)
	assert.Equal(t, 4, row.TotalStudents)
	assert.Equal(t, 3, row.TotalCourses)
	assert.Equal(t, 2, row.ActiveEnrollments)
	assert.Equal(t, "449.50", row.TotalRevenue.StringFixed(2))

	empty := New()
	row, err = empty.Reports().Dashboard(f.ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, row.TotalStudents)
	assert.True(t, row.TotalRevenue.IsZero())
}

func TestTopActiveCourseTieBreaksOnLowestID(t *testing.T) {
	f := populated(t)
	rows, err := f.store.Reports().TopActiveCourse(f.ctx)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "c1", rows[0].CourseID)
	assert.Equal(t, 1, rows[0].ActiveCount)

	rows, err = newFixture(t).store.Reports().TopActiveCourse(f.ctx)
	require.NoError(t, err)
	assert.Empty(t, rows)
}

func TestCourseReport(t *testing.T) {
	f := populated(t)
	row, err := f.store.Reports().CourseReport(f.ctx, "c1")
	require.NoError(t, err)
	assert.Equal(t, "Rob", row.InstructorName)
	assert.Equal(t, 3, row.StudentCount)
	assert.Equal(t, "200.00", row.Revenue.StringFixed(2))
	assert.Equal(t, "4.67", row.AverageRating.Decimal.StringFixed(2))

	_, err = f.store.Reports().CourseReport(f.ctx, "ghost")
	assert.Error(t, err)
}

func TestRevenueAndPopularityRankings(t *testing.T) {
	f := populated(t)

	top, err := f.store.Reports().TopCoursesByRevenue(f.ctx, 5)
	require.NoError(t, err)
	require.Len(t, top, 3)
	assert.Equal(t, []string{"c1", "c2", "c3"}, []string{top[0].CourseID, top[1].CourseID, top[2].CourseID})
	assert.Equal(t, "150.50", top[1].Revenue.StringFixed(2))

	limited, err := f.store.Reports().TopCoursesByRevenue(f.ctx, 1)
	require.NoError(t, err)
	assert.Len(t, limited, 1)

	counts, err := f.store.Reports().CourseEnrollmentCounts(f.ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, counts[0].StudentCount)
	assert.Equal(t, "c1", counts[0].CourseID)

	popular, err := f.store.Reports().PopularCategories(f.ctx)
	require.NoError(t, err)
	require.Len(t, popular, 2)
	assert.Equal(t, 5, popular[0].EnrollmentCount)
	assert.Equal(t, 1, popular[1].EnrollmentCount)
}

func TestLowCompletionCourses(t *testing.T) {
	f := populated(t)
	rows, err := f.store.Reports().LowCompletionCourses(f.ctx, money("0.30"))
	require.NoError(t, err)
	require.Len(t, rows, 1, "c1 sits at 7/15 and c3 has no lessons")
	assert.Equal(t, "c2", rows[0].CourseID)
	assert.Equal(t, 2, rows[0].Enrollments)
	assert.True(t, rows[0].CompletionRate.IsZero())

	rows, err = f.store.Reports().LowCompletionCourses(f.ctx, money("0.50"))
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "c1", rows[1].CourseID)
	assert.Equal(t, "0.47", rows[1].CompletionRate.StringFixed(2))
}

func TestTopRatedInstructors(t *testing.T) {
	f := populated(t)
	rows, err := f.store.Reports().TopRatedInstructors(f.ctx, money("4.5"))
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "Dana", rows[0].Name)
	assert.Equal(t, "5.00", rows[0].AverageRating.StringFixed(2))
	assert.Equal(t, 1, rows[0].RatingCount)

	rows, err = f.store.Reports().TopRatedInstructors(f.ctx, money("4.25"))
	require.NoError(t, err)
	assert.Len(t, rows, 2, "threshold is inclusive")
}

func TestInactiveStudents(t *testing.T) {
	f := populated(t)
	rows, err := f.store.Reports().InactiveStudents(f.ctx, day(2024, time.June, 15))
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "Ana", rows[0].Name)
	assert.Equal(t, "Diego", rows[1].Name)

	rows, err = f.store.Reports().InactiveStudents(f.ctx, day(2025, time.June, 15))
	require.NoError(t, err)
	assert.Len(t, rows, 4)
}

func TestMonthlyEnrollments(t *testing.T) {
	f := populated(t)
	rows, err := f.store.Reports().MonthlyEnrollments(f.ctx, 2024)
	require.NoError(t, err)
	assert.Equal(t, []models.MonthlyEnrollmentRow{
		{Month: "2024-01", EnrollmentCount: 1},
		{Month: "2024-02", EnrollmentCount: 1},
		{Month: "2024-03", EnrollmentCount: 2},
		{Month: "2024-04", EnrollmentCount: 1},
		{Month: "2024-05", EnrollmentCount: 1},
	}, rows)

	rows, err = f.store.Reports().MonthlyEnrollments(f.ctx, 2023)
	require.NoError(t, err)
	assert.Empty(t, rows)
}

func TestCatalogRosterAndOutline(t *testing.T) {
	f := populated(t)

	catalog, err := f.store.Reports().CourseCatalog(f.ctx, models.ReportFilter{})
	require.NoError(t, err)
	require.Len(t, catalog, 3)
	assert.Equal(t, "Advanced Go", catalog[0].Title)
	assert.Equal(t, "Programming", catalog[0].CategoryName)
	assert.Equal(t, "Rob", catalog[0].InstructorName)

	design, err := f.store.Reports().CourseCatalog(f.ctx, models.ReportFilter{CategoryID: "cat-design"})
	require.NoError(t, err)
	assert.Len(t, design, 1)

	roster, err := f.store.Reports().CourseRoster(f.ctx, models.ReportFilter{TitleLike: "GO"})
	require.NoError(t, err)
	require.Len(t, roster, 5)
	assert.Equal(t, []string{"e1", "e2", "e3", "e4", "e5"}, []string{
		roster[0].EnrollmentID, roster[1].EnrollmentID, roster[2].EnrollmentID, roster[3].EnrollmentID, roster[4].EnrollmentID,
	})

	outline, err := f.store.Reports().LessonOutline(f.ctx, "c1")
	require.NoError(t, err)
	require.Len(t, outline, 5)
	for i, row := range outline {
		assert.Equal(t, i+1, row.LessonPosition)
	}
}

func TestReportsAreIdempotent(t *testing.T) {
	f := populated(t)
	reports := f.store.Reports()

	first, err := reports.CourseRatings(f.ctx)
	require.NoError(t, err)
	second, err := reports.CourseRatings(f.ctx)
	require.NoError(t, err)
	assert.Equal(t, first, second)

	summaryA, err := reports.InstructorSummary(f.ctx)
	require.NoError(t, err)
	summaryB, err := reports.InstructorSummary(f.ctx)
	require.NoError(t, err)
	assert.Equal(t, summaryA, summaryB)
}
