package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"

	"github.com/noah-isme/edutech-api/internal/models"
)

// ReportRepository runs the aggregate report queries. Each report is a single
// statement so it reads one consistent snapshot.
type ReportRepository struct {
	db *sqlx.DB
}

// NewReportRepository constructs the repository.
func NewReportRepository(db *sqlx.DB) *ReportRepository {
	return &ReportRepository{db: db}
}

const lessonTotalsCTE = `lesson_totals AS (
        SELECT m.course_id, COUNT(l.id) AS total
        FROM modules m JOIN lessons l ON l.module_id = m.id
        GROUP BY m.course_id
    )`

// CourseCatalog lists courses with category and instructor names.
func (r *ReportRepository) CourseCatalog(ctx context.Context, filter models.ReportFilter) ([]models.CourseCatalogRow, error) {
	var builder strings.Builder
	builder.WriteString(`SELECT c.id AS course_id, c.title, cat.name AS category_name, i.name AS instructor_name, c.level, c.price
        FROM courses c
        JOIN categories cat ON cat.id = c.category_id
        JOIN instructors i ON i.id = c.instructor_id
        WHERE 1=1`)
	var args []interface{}
	if filter.CategoryID != "" {
		args = append(args, filter.CategoryID)
		builder.WriteString(fmt.Sprintf(" AND c.category_id = $%d", len(args)))
	}
	if filter.Level != "" {
		args = append(args, filter.Level)
		builder.WriteString(fmt.Sprintf(" AND c.level = $%d", len(args)))
	}
	builder.WriteString(" ORDER BY c.title ASC, c.id ASC")

	rows := []models.CourseCatalogRow{}
	if err := r.db.SelectContext(ctx, &rows, builder.String(), args...); err != nil {
		return nil, fmt.Errorf("course catalog: %w", err)
	}
	return rows, nil
}

// CourseRoster lists the students enrolled in the matching courses.
func (r *ReportRepository) CourseRoster(ctx context.Context, filter models.ReportFilter) ([]models.CourseRosterRow, error) {
	var builder strings.Builder
	builder.WriteString(`SELECT e.id AS enrollment_id, c.id AS course_id, c.title AS course_title, s.id AS student_id,
        s.name AS student_name, s.email AS student_email, e.status, e.enrolled_on
        FROM enrollments e
        JOIN courses c ON c.id = e.course_id
        JOIN students s ON s.id = e.student_id
        WHERE 1=1`)
	var args []interface{}
	if filter.CourseID != "" {
		args = append(args, filter.CourseID)
		builder.WriteString(fmt.Sprintf(" AND c.id = $%d", len(args)))
	}
	if filter.TitleLike != "" {
		args = append(args, likePattern(filter.TitleLike))
		builder.WriteString(fmt.Sprintf(" AND LOWER(c.title) LIKE $%d", len(args)))
	}
	builder.WriteString(" ORDER BY s.name ASC, e.id ASC")

	rows := []models.CourseRosterRow{}
	if err := r.db.SelectContext(ctx, &rows, builder.String(), args...); err != nil {
		return nil, fmt.Errorf("course roster: %w", err)
	}
	return rows, nil
}

// LessonOutline lists a course's lessons in module then lesson order.
func (r *ReportRepository) LessonOutline(ctx context.Context, courseID string) ([]models.LessonOutlineRow, error) {
	const query = `SELECT c.title AS course_title, m.id AS module_id, m.title AS module_title, m.position AS module_position,
        l.id AS lesson_id, l.title AS lesson_title, l.position AS lesson_position, l.duration_minutes, l.type
        FROM courses c
        JOIN modules m ON m.course_id = c.id
        JOIN lessons l ON l.module_id = m.id
        WHERE c.id = $1
        ORDER BY m.position ASC, l.position ASC`
	rows := []models.LessonOutlineRow{}
	if err := r.db.SelectContext(ctx, &rows, query, courseID); err != nil {
		return nil, fmt.Errorf("lesson outline: %w", err)
	}
	return rows, nil
}

// CourseRatings averages ratings per course, unrated courses last.
func (r *ReportRepository) CourseRatings(ctx context.Context) ([]models.CourseRatingRow, error) {
	const query = `SELECT c.id AS course_id, c.title, ROUND(AVG(r.score), 2) AS average_score, COUNT(r.id) AS rating_count
        FROM courses c
        LEFT JOIN ratings r ON r.course_id = c.id
        GROUP BY c.id, c.title
        ORDER BY AVG(r.score) DESC NULLS LAST, c.id ASC`
	rows := []models.CourseRatingRow{}
	if err := r.db.SelectContext(ctx, &rows, query); err != nil {
		return nil, fmt.Errorf("course ratings: %w", err)
	}
	return rows, nil
}

// CourseEnrollmentCounts counts distinct students per course.
func (r *ReportRepository) CourseEnrollmentCounts(ctx context.Context) ([]models.CourseEnrollmentCountRow, error) {
	const query = `SELECT c.id AS course_id, c.title, COUNT(DISTINCT e.student_id) AS student_count
        FROM courses c
        LEFT JOIN enrollments e ON e.course_id = c.id
        GROUP BY c.id, c.title
        ORDER BY student_count DESC, c.id ASC`
	rows := []models.CourseEnrollmentCountRow{}
	if err := r.db.SelectContext(ctx, &rows, query); err != nil {
		return nil, fmt.Errorf("course enrollment counts: %w", err)
	}
	return rows, nil
}

// CategoryRevenue sums non-cancelled payments per category.
func (r *ReportRepository) CategoryRevenue(ctx context.Context) ([]models.CategoryRevenueRow, error) {
	const query = `SELECT cat.id AS category_id, cat.name, ROUND(SUM(e.amount_paid), 2) AS revenue
        FROM categories cat
        JOIN courses c ON c.category_id = cat.id
        JOIN enrollments e ON e.course_id = c.id
        WHERE e.status <> 'cancelled'
        GROUP BY cat.id, cat.name
        ORDER BY revenue DESC, cat.id ASC`
	rows := []models.CategoryRevenueRow{}
	if err := r.db.SelectContext(ctx, &rows, query); err != nil {
		return nil, fmt.Errorf("category revenue: %w", err)
	}
	return rows, nil
}

// TopActiveCourse returns at most one course, the one with most active
// enrollments.
func (r *ReportRepository) TopActiveCourse(ctx context.Context) ([]models.TopActiveCourseRow, error) {
	const query = `SELECT c.id AS course_id, c.title, COUNT(*) AS active_count
        FROM courses c
        JOIN enrollments e ON e.course_id = c.id
        WHERE e.status = 'active'
        GROUP BY c.id, c.title
        ORDER BY active_count DESC, c.id ASC
        LIMIT 1`
	rows := []models.TopActiveCourseRow{}
	if err := r.db.SelectContext(ctx, &rows, query); err != nil {
		return nil, fmt.Errorf("top active course: %w", err)
	}
	return rows, nil
}

// EnrollmentCompletion computes the completion percentage per enrollment.
func (r *ReportRepository) EnrollmentCompletion(ctx context.Context, filter models.ReportFilter) ([]models.EnrollmentCompletionRow, error) {
	var builder strings.Builder
	builder.WriteString(`WITH ` + lessonTotalsCTE + `,
    done AS (
        SELECT enrollment_id, COUNT(*) AS completed
        FROM lesson_progress WHERE completed
        GROUP BY enrollment_id
    )
    SELECT e.id AS enrollment_id, s.id AS student_id, s.name AS student_name, c.id AS course_id, c.title AS course_title,
        COALESCE(d.completed, 0) AS completed_lessons, COALESCE(lt.total, 0) AS total_lessons,
        CASE WHEN COALESCE(lt.total, 0) = 0 THEN NULL
             ELSE ROUND(COALESCE(d.completed, 0)::NUMERIC * 100 / lt.total, 2) END AS percentage
    FROM enrollments e
    JOIN students s ON s.id = e.student_id
    JOIN courses c ON c.id = e.course_id
    LEFT JOIN lesson_totals lt ON lt.course_id = c.id
    LEFT JOIN done d ON d.enrollment_id = e.id
    WHERE 1=1`)
	var args []interface{}
	if filter.CourseID != "" {
		args = append(args, filter.CourseID)
		builder.WriteString(fmt.Sprintf(" AND e.course_id = $%d", len(args)))
	}
	if filter.StudentID != "" {
		args = append(args, filter.StudentID)
		builder.WriteString(fmt.Sprintf(" AND e.student_id = $%d", len(args)))
	}
	builder.WriteString(" ORDER BY s.name ASC, c.title ASC, e.id ASC")

	rows := []models.EnrollmentCompletionRow{}
	if err := r.db.SelectContext(ctx, &rows, builder.String(), args...); err != nil {
		return nil, fmt.Errorf("enrollment completion: %w", err)
	}
	return rows, nil
}

// CourseReport summarises one course. A missing course yields sql.ErrNoRows.
func (r *ReportRepository) CourseReport(ctx context.Context, courseID string) (*models.CourseReportRow, error) {
	const query = `SELECT c.id AS course_id, c.title, i.name AS instructor_name,
        (SELECT COUNT(DISTINCT e.student_id) FROM enrollments e WHERE e.course_id = c.id) AS student_count,
        (SELECT ROUND(COALESCE(SUM(e.amount_paid), 0), 2) FROM enrollments e WHERE e.course_id = c.id AND e.status <> 'cancelled') AS revenue,
        (SELECT ROUND(AVG(r.score), 2) FROM ratings r WHERE r.course_id = c.id) AS average_rating
        FROM courses c
        JOIN instructors i ON i.id = c.instructor_id
        WHERE c.id = $1`
	var row models.CourseReportRow
	if err := r.db.GetContext(ctx, &row, query, courseID); err != nil {
		return nil, err
	}
	return &row, nil
}

// InstructorSummary aggregates courses, students and ratings per instructor.
func (r *ReportRepository) InstructorSummary(ctx context.Context) ([]models.InstructorSummaryRow, error) {
	const query = `SELECT i.id AS instructor_id, i.name,
        (SELECT COUNT(*) FROM courses c WHERE c.instructor_id = i.id) AS course_count,
        (SELECT COUNT(DISTINCT e.student_id) FROM enrollments e JOIN courses c ON c.id = e.course_id WHERE c.instructor_id = i.id) AS student_count,
        (SELECT ROUND(AVG(r.score), 2) FROM ratings r JOIN courses c ON c.id = r.course_id WHERE c.instructor_id = i.id) AS average_rating
        FROM instructors i
        ORDER BY student_count DESC, course_count DESC, i.id ASC`
	rows := []models.InstructorSummaryRow{}
	if err := r.db.SelectContext(ctx, &rows, query); err != nil {
		return nil, fmt.Errorf("instructor summary: %w", err)
	}
	return rows, nil
}

// TopCoursesByRevenue ranks courses by non-cancelled revenue.
func (r *ReportRepository) TopCoursesByRevenue(ctx context.Context, limit int) ([]models.CourseRevenueRow, error) {
	const query = `SELECT c.id AS course_id, c.title, ROUND(SUM(e.amount_paid), 2) AS revenue
        FROM courses c
        JOIN enrollments e ON e.course_id = c.id
        WHERE e.status <> 'cancelled'
        GROUP BY c.id, c.title
        ORDER BY revenue DESC, c.id ASC
        LIMIT $1`
	rows := []models.CourseRevenueRow{}
	if err := r.db.SelectContext(ctx, &rows, query, limit); err != nil {
		return nil, fmt.Errorf("top courses by revenue: %w", err)
	}
	return rows, nil
}

// InactiveStudents lists students without a completion in the six months
// ending at asOf.
func (r *ReportRepository) InactiveStudents(ctx context.Context, asOf time.Time) ([]models.InactiveStudentRow, error) {
	from, to := models.InactivityWindow(asOf)
	const query = `SELECT s.id AS student_id, s.name, s.email
        FROM students s
        WHERE NOT EXISTS (
            SELECT 1 FROM enrollments e
            WHERE e.student_id = s.id AND e.status = 'completed'
              AND e.completed_on BETWEEN $1 AND $2
        )
        ORDER BY s.name ASC, s.id ASC`
	rows := []models.InactiveStudentRow{}
	if err := r.db.SelectContext(ctx, &rows, query, from, to); err != nil {
		return nil, fmt.Errorf("inactive students: %w", err)
	}
	return rows, nil
}

// Dashboard returns the platform totals, each computed independently.
func (r *ReportRepository) Dashboard(ctx context.Context) (*models.DashboardRow, error) {
	const query = `SELECT
        (SELECT COUNT(*) FROM students) AS total_students,
        (SELECT COUNT(*) FROM courses) AS total_courses,
        (SELECT COUNT(*) FROM enrollments WHERE status = 'active') AS active_enrollments,
        (SELECT ROUND(COALESCE(SUM(amount_paid), 0), 2) FROM enrollments WHERE status <> 'cancelled') AS total_revenue`
	var row models.DashboardRow
	if err := r.db.GetContext(ctx, &row, query); err != nil {
		return nil, fmt.Errorf("dashboard: %w", err)
	}
	return &row, nil
}

// LowCompletionCourses returns courses whose completion rate is strictly
// below threshold. The rate divides completed progress rows by lessons times
// enrollments, with at least one enrollment assumed. Courses without lessons
// have no rate and are skipped.
func (r *ReportRepository) LowCompletionCourses(ctx context.Context, threshold decimal.Decimal) ([]models.LowCompletionRow, error) {
	const query = `WITH ` + lessonTotalsCTE + `,
    enrollment_counts AS (
        SELECT course_id, COUNT(*) AS enrollments FROM enrollments GROUP BY course_id
    ),
    done AS (
        SELECT e.course_id, COUNT(*) AS completed
        FROM lesson_progress lp JOIN enrollments e ON e.id = lp.enrollment_id
        WHERE lp.completed
        GROUP BY e.course_id
    ),
    rates AS (
        SELECT c.id AS course_id, c.title, COALESCE(d.completed, 0) AS completed_lessons, lt.total AS total_lessons,
            COALESCE(ec.enrollments, 0) AS enrollments,
            COALESCE(d.completed, 0)::NUMERIC / (lt.total * GREATEST(COALESCE(ec.enrollments, 0), 1)) AS rate
        FROM courses c
        JOIN lesson_totals lt ON lt.course_id = c.id
        LEFT JOIN enrollment_counts ec ON ec.course_id = c.id
        LEFT JOIN done d ON d.course_id = c.id
    )
    SELECT course_id, title, completed_lessons, total_lessons, enrollments, ROUND(rate, 2) AS completion_rate
    FROM rates
    WHERE rate < $1
    ORDER BY rate ASC, course_id ASC`
	rows := []models.LowCompletionRow{}
	if err := r.db.SelectContext(ctx, &rows, query, threshold); err != nil {
		return nil, fmt.Errorf("low completion courses: %w", err)
	}
	return rows, nil
}

// TopRatedInstructors returns instructors whose unrounded average rating is at
// least minAverage.
func (r *ReportRepository) TopRatedInstructors(ctx context.Context, minAverage decimal.Decimal) ([]models.TopRatedInstructorRow, error) {
	const query = `SELECT i.id AS instructor_id, i.name, ROUND(AVG(r.score), 2) AS average_rating, COUNT(r.id) AS rating_count
        FROM instructors i
        JOIN courses c ON c.instructor_id = i.id
        JOIN ratings r ON r.course_id = c.id
        GROUP BY i.id, i.name
        HAVING AVG(r.score) >= $1
        ORDER BY AVG(r.score) DESC, i.id ASC`
	rows := []models.TopRatedInstructorRow{}
	if err := r.db.SelectContext(ctx, &rows, query, minAverage); err != nil {
		return nil, fmt.Errorf("top rated instructors: %w", err)
	}
	return rows, nil
}

// PopularCategories counts enrollments of every status per category.
func (r *ReportRepository) PopularCategories(ctx context.Context) ([]models.PopularCategoryRow, error) {
	const query = `SELECT cat.id AS category_id, cat.name, COUNT(e.id) AS enrollment_count
        FROM categories cat
        LEFT JOIN courses c ON c.category_id = cat.id
        LEFT JOIN enrollments e ON e.course_id = c.id
        GROUP BY cat.id, cat.name
        ORDER BY enrollment_count DESC, cat.id ASC`
	rows := []models.PopularCategoryRow{}
	if err := r.db.SelectContext(ctx, &rows, query); err != nil {
		return nil, fmt.Errorf("popular categories: %w", err)
	}
	return rows, nil
}

// MonthlyEnrollments counts enrollments per month of the given year.
func (r *ReportRepository) MonthlyEnrollments(ctx context.Context, year int) ([]models.MonthlyEnrollmentRow, error) {
	const query = `SELECT TO_CHAR(enrolled_on, 'YYYY-MM') AS month, COUNT(*) AS enrollment_count
        FROM enrollments
        WHERE EXTRACT(YEAR FROM enrolled_on) = $1
        GROUP BY month
        ORDER BY month ASC`
	rows := []models.MonthlyEnrollmentRow{}
	if err := r.db.SelectContext(ctx, &rows, query, year); err != nil {
		return nil, fmt.Errorf("monthly enrollments: %w", err)
	}
	return rows, nil
}

// likePattern builds a case-insensitive substring pattern, escaping LIKE
// wildcards in the needle.
func likePattern(needle string) string {
	replacer := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return "%" + replacer.Replace(strings.ToLower(needle)) + "%"
}
