package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// ReportName identifies one of the aggregate reports.
type ReportName string

// Supported reports.
const (
	ReportCourseCatalog          ReportName = "course-catalog"
	ReportCourseRoster           ReportName = "course-roster"
	ReportLessonOutline          ReportName = "lesson-outline"
	ReportCourseRatings          ReportName = "course-ratings"
	ReportCourseEnrollmentCounts ReportName = "course-enrollment-counts"
	ReportCategoryRevenue        ReportName = "category-revenue"
	ReportTopActiveCourse        ReportName = "top-active-course"
	ReportEnrollmentCompletion   ReportName = "enrollment-completion"
	ReportCourseReport           ReportName = "course-report"
	ReportInstructorSummary      ReportName = "instructor-summary"
	ReportTopCoursesByRevenue    ReportName = "top-courses-by-revenue"
	ReportInactiveStudents       ReportName = "inactive-students"
	ReportDashboard              ReportName = "dashboard"
	ReportLowCompletionCourses   ReportName = "low-completion-courses"
	ReportTopRatedInstructors    ReportName = "top-rated-instructors"
	ReportPopularCategories      ReportName = "popular-categories"
	ReportMonthlyEnrollments     ReportName = "monthly-enrollments"
)

// ReportNames lists every report in presentation order.
var ReportNames = []ReportName{
	ReportCourseCatalog,
	ReportCourseRoster,
	ReportLessonOutline,
	ReportCourseRatings,
	ReportCourseEnrollmentCounts,
	ReportCategoryRevenue,
	ReportTopActiveCourse,
	ReportEnrollmentCompletion,
	ReportCourseReport,
	ReportInstructorSummary,
	ReportTopCoursesByRevenue,
	ReportInactiveStudents,
	ReportDashboard,
	ReportLowCompletionCourses,
	ReportTopRatedInstructors,
	ReportPopularCategories,
	ReportMonthlyEnrollments,
}

// Valid reports whether n names a known report.
func (n ReportName) Valid() bool {
	for _, name := range ReportNames {
		if name == n {
			return true
		}
	}
	return false
}

// ReportFilter carries every optional report parameter. Each report reads
// only the fields it understands.
type ReportFilter struct {
	CourseID   string      `json:"course_id,omitempty"`
	StudentID  string      `json:"student_id,omitempty"`
	CategoryID string      `json:"category_id,omitempty"`
	TitleLike  string      `json:"title,omitempty"`
	Level      CourseLevel `json:"level,omitempty"`
	AsOf       time.Time   `json:"as_of"`
}

// CourseCatalogRow is one course with its category and instructor names.
type CourseCatalogRow struct {
	CourseID       string          `db:"course_id" json:"course_id"`
	Title          string          `db:"title" json:"title"`
	CategoryName   string          `db:"category_name" json:"category_name"`
	InstructorName string          `db:"instructor_name" json:"instructor_name"`
	Level          CourseLevel     `db:"level" json:"level"`
	Price          decimal.Decimal `db:"price" json:"price"`
}

// CourseRosterRow is one enrolled student of a course.
type CourseRosterRow struct {
	EnrollmentID string           `db:"enrollment_id" json:"enrollment_id"`
	CourseID     string           `db:"course_id" json:"course_id"`
	CourseTitle  string           `db:"course_title" json:"course_title"`
	StudentID    string           `db:"student_id" json:"student_id"`
	StudentName  string           `db:"student_name" json:"student_name"`
	StudentEmail string           `db:"student_email" json:"student_email"`
	Status       EnrollmentStatus `db:"status" json:"status"`
	EnrolledOn   time.Time        `db:"enrolled_on" json:"enrolled_on"`
}

// LessonOutlineRow is one lesson positioned within its module.
type LessonOutlineRow struct {
	CourseTitle     string     `db:"course_title" json:"course_title"`
	ModuleID        string     `db:"module_id" json:"module_id"`
	ModuleTitle     string     `db:"module_title" json:"module_title"`
	ModulePosition  int        `db:"module_position" json:"module_position"`
	LessonID        string     `db:"lesson_id" json:"lesson_id"`
	LessonTitle     string     `db:"lesson_title" json:"lesson_title"`
	LessonPosition  int        `db:"lesson_position" json:"lesson_position"`
	DurationMinutes int        `db:"duration_minutes" json:"duration_minutes"`
	Type            LessonType `db:"type" json:"type"`
}

// CourseRatingRow aggregates ratings per course.
type CourseRatingRow struct {
	CourseID     string              `db:"course_id" json:"course_id"`
	Title        string              `db:"title" json:"title"`
	AverageScore decimal.NullDecimal `db:"average_score" json:"average_score"`
	RatingCount  int                 `db:"rating_count" json:"rating_count"`
}

// CourseEnrollmentCountRow counts distinct students per course.
type CourseEnrollmentCountRow struct {
	CourseID     string `db:"course_id" json:"course_id"`
	Title        string `db:"title" json:"title"`
	StudentCount int    `db:"student_count" json:"student_count"`
}

// CategoryRevenueRow sums paid amounts per category.
type CategoryRevenueRow struct {
	CategoryID string          `db:"category_id" json:"category_id"`
	Name       string          `db:"name" json:"name"`
	Revenue    decimal.Decimal `db:"revenue" json:"revenue"`
}

// TopActiveCourseRow is the course with the most active enrollments.
type TopActiveCourseRow struct {
	CourseID    string `db:"course_id" json:"course_id"`
	Title       string `db:"title" json:"title"`
	ActiveCount int    `db:"active_count" json:"active_count"`
}

// EnrollmentCompletionRow is the completion percentage of one enrollment.
// Percentage is null when the course has no lessons.
type EnrollmentCompletionRow struct {
	EnrollmentID     string              `db:"enrollment_id" json:"enrollment_id"`
	StudentID        string              `db:"student_id" json:"student_id"`
	StudentName      string              `db:"student_name" json:"student_name"`
	CourseID         string              `db:"course_id" json:"course_id"`
	CourseTitle      string              `db:"course_title" json:"course_title"`
	CompletedLessons int                 `db:"completed_lessons" json:"completed_lessons"`
	TotalLessons     int                 `db:"total_lessons" json:"total_lessons"`
	Percentage       decimal.NullDecimal `db:"percentage" json:"percentage"`
}

// CourseReportRow summarises a single course.
type CourseReportRow struct {
	CourseID       string              `db:"course_id" json:"course_id"`
	Title          string              `db:"title" json:"title"`
	InstructorName string              `db:"instructor_name" json:"instructor_name"`
	StudentCount   int                 `db:"student_count" json:"student_count"`
	Revenue        decimal.Decimal     `db:"revenue" json:"revenue"`
	AverageRating  decimal.NullDecimal `db:"average_rating" json:"average_rating"`
}

// InstructorSummaryRow aggregates an instructor's courses.
type InstructorSummaryRow struct {
	InstructorID  string              `db:"instructor_id" json:"instructor_id"`
	Name          string              `db:"name" json:"name"`
	CourseCount   int                 `db:"course_count" json:"course_count"`
	StudentCount  int                 `db:"student_count" json:"student_count"`
	AverageRating decimal.NullDecimal `db:"average_rating" json:"average_rating"`
}

// CourseRevenueRow is the non-cancelled revenue of one course.
type CourseRevenueRow struct {
	CourseID string          `db:"course_id" json:"course_id"`
	Title    string          `db:"title" json:"title"`
	Revenue  decimal.Decimal `db:"revenue" json:"revenue"`
}

// InactiveStudentRow is a student without a recent completion.
type InactiveStudentRow struct {
	StudentID string `db:"student_id" json:"student_id"`
	Name      string `db:"name" json:"name"`
	Email     string `db:"email" json:"email"`
}

// DashboardRow is the platform-wide snapshot.
type DashboardRow struct {
	TotalStudents     int             `db:"total_students" json:"total_students"`
	TotalCourses      int             `db:"total_courses" json:"total_courses"`
	ActiveEnrollments int             `db:"active_enrollments" json:"active_enrollments"`
	TotalRevenue      decimal.Decimal `db:"total_revenue" json:"total_revenue"`
}

// LowCompletionRow is a course whose completion rate falls below the
// threshold. CompletionRate is a ratio in [0,1].
type LowCompletionRow struct {
	CourseID         string          `db:"course_id" json:"course_id"`
	Title            string          `db:"title" json:"title"`
	CompletedLessons int             `db:"completed_lessons" json:"completed_lessons"`
	TotalLessons     int             `db:"total_lessons" json:"total_lessons"`
	Enrollments      int             `db:"enrollments" json:"enrollments"`
	CompletionRate   decimal.Decimal `db:"completion_rate" json:"completion_rate"`
}

// TopRatedInstructorRow is an instructor at or above the rating threshold.
type TopRatedInstructorRow struct {
	InstructorID  string          `db:"instructor_id" json:"instructor_id"`
	Name          string          `db:"name" json:"name"`
	AverageRating decimal.Decimal `db:"average_rating" json:"average_rating"`
	RatingCount   int             `db:"rating_count" json:"rating_count"`
}

// PopularCategoryRow counts enrollments per category.
type PopularCategoryRow struct {
	CategoryID      string `db:"category_id" json:"category_id"`
	Name            string `db:"name" json:"name"`
	EnrollmentCount int    `db:"enrollment_count" json:"enrollment_count"`
}

// MonthlyEnrollmentRow counts enrollments in one YYYY-MM month.
type MonthlyEnrollmentRow struct {
	Month           string `db:"month" json:"month"`
	EnrollmentCount int    `db:"enrollment_count" json:"enrollment_count"`
}

// InactivityWindow returns the inclusive [from, to] date range used by the
// inactive-students report: the six calendar months ending on asOf. The day
// is clamped to the end of the target month, so 31 August maps to 28 or 29
// February.
func InactivityWindow(asOf time.Time) (time.Time, time.Time) {
	to := time.Date(asOf.Year(), asOf.Month(), asOf.Day(), 0, 0, 0, 0, time.UTC)
	firstOfTarget := time.Date(to.Year(), to.Month()-6, 1, 0, 0, 0, 0, time.UTC)
	lastDay := firstOfTarget.AddDate(0, 1, -1).Day()
	day := to.Day()
	if day > lastDay {
		day = lastDay
	}
	from := time.Date(firstOfTarget.Year(), firstOfTarget.Month(), day, 0, 0, 0, 0, time.UTC)
	return from, to
}
