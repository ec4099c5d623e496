package repository

import (
	"context"
	"database/sql"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/edutech-api/internal/models"
)

func TestReportRepositoryCourseCatalogFilters(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewReportRepository(db)

	rows := sqlmock.NewRows([]string{"course_id", "title", "category_name", "instructor_name", "level", "price"}).
		AddRow("c1", "Go Basics", "Programming", "Rob", "beginner", "99.90")
	mock.ExpectQuery(regexp.QuoteMeta("WHERE 1=1 AND c.category_id = $1 AND c.level = $2 ORDER BY c.title ASC, c.id ASC")).
		WithArgs("cat1", models.CourseLevelBeginner).
		WillReturnRows(rows)

	got, err := repo.CourseCatalog(context.Background(), models.ReportFilter{CategoryID: "cat1", Level: models.CourseLevelBeginner})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.True(t, decimal.RequireFromString("99.90").Equal(got[0].Price))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestReportRepositoryCourseRosterEscapesTitle(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewReportRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("AND LOWER(c.title) LIKE $1 ORDER BY s.name ASC, e.id ASC")).
		WithArgs(`%100\% go%`).
		WillReturnRows(sqlmock.NewRows([]string{"enrollment_id"}))

	got, err := repo.CourseRoster(context.Background(), models.ReportFilter{TitleLike: "100% Go"})
	require.NoError(t, err)
	assert.Empty(t, got)
	assert.NotNil(t, got)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestReportRepositoryCourseReportMissing(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewReportRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("(SELECT ROUND(AVG(r.score), 2) FROM ratings r WHERE r.course_id = c.id) AS average_rating")).
		WithArgs("ghost").
		WillReturnError(sql.ErrNoRows)

	_, err := repo.CourseReport(context.Background(), "ghost")
	assert.ErrorIs(t, err, sql.ErrNoRows)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestReportRepositoryEnrollmentCompletionNullPercentage(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewReportRepository(db)

	rows := sqlmock.NewRows([]string{"enrollment_id", "student_id", "student_name", "course_id", "course_title", "completed_lessons", "total_lessons", "percentage"}).
		AddRow("e1", "s1", "Ana", "c1", "Go", 2, 5, "40.00").
		AddRow("e2", "s1", "Ana", "c2", "Empty", 0, 0, nil)
	mock.ExpectQuery(regexp.QuoteMeta("AND e.student_id = $1 ORDER BY s.name ASC, c.title ASC, e.id ASC")).
		WithArgs("s1").
		WillReturnRows(rows)

	got, err := repo.EnrollmentCompletion(context.Background(), models.ReportFilter{StudentID: "s1"})
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.True(t, got[0].Percentage.Valid)
	assert.Equal(t, "40.00", got[0].Percentage.Decimal.StringFixed(2))
	assert.False(t, got[1].Percentage.Valid)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestReportRepositoryInactiveStudentsWindow(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewReportRepository(db)

	asOf := time.Date(2024, time.August, 31, 10, 0, 0, 0, time.UTC)
	mock.ExpectQuery(regexp.QuoteMeta("AND e.completed_on BETWEEN $1 AND $2")).
		WithArgs(time.Date(2024, time.February, 29, 0, 0, 0, 0, time.UTC), time.Date(2024, time.August, 31, 0, 0, 0, 0, time.UTC)).
		WillReturnRows(sqlmock.NewRows([]string{"student_id", "name", "email"}).AddRow("s1", "Ana", "ana@example.com"))

	got, err := repo.InactiveStudents(context.Background(), asOf)
	require.NoError(t, err)
	assert.Len(t, got, 1)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestReportRepositoryDashboard(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewReportRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("(SELECT COUNT(*) FROM students) AS total_students")).
		WillReturnRows(sqlmock.NewRows([]string{"total_students", "total_courses", "active_enrollments", "total_revenue"}).
			AddRow(3, 2, 1, "350.50"))

	got, err := repo.Dashboard(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 3, got.TotalStudents)
	assert.Equal(t, 2, got.TotalCourses)
	assert.Equal(t, 1, got.ActiveEnrollments)
	assert.Equal(t, "350.50", got.TotalRevenue.StringFixed(2))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestReportRepositoryThresholdQueries(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewReportRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("WHERE rate < $1")).
		WithArgs(sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows([]string{"course_id", "title", "completed_lessons", "total_lessons", "enrollments", "completion_rate"}).
			AddRow("c1", "Go", 1, 5, 2, "0.10"))
	mock.ExpectQuery(regexp.QuoteMeta("HAVING AVG(r.score) >= $1")).
		WithArgs(sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows([]string{"instructor_id", "name", "average_rating", "rating_count"}))
	mock.ExpectQuery(regexp.QuoteMeta("WHERE EXTRACT(YEAR FROM enrolled_on) = $1")).
		WithArgs(2024).
		WillReturnRows(sqlmock.NewRows([]string{"month", "enrollment_count"}).AddRow("2024-03", 4))

	low, err := repo.LowCompletionCourses(context.Background(), decimal.RequireFromString("0.30"))
	require.NoError(t, err)
	require.Len(t, low, 1)
	assert.Equal(t, 2, low[0].Enrollments)

	top, err := repo.TopRatedInstructors(context.Background(), decimal.RequireFromString("4.5"))
	require.NoError(t, err)
	assert.Empty(t, top)

	monthly, err := repo.MonthlyEnrollments(context.Background(), 2024)
	require.NoError(t, err)
	assert.Equal(t, []models.MonthlyEnrollmentRow{{Month: "2024-03", EnrollmentCount: 4}}, monthly)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLikePattern(t *testing.T) {
	assert.Equal(t, `%go\_lang%`, likePattern("Go_Lang"))
}
