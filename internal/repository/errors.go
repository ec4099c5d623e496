package repository

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	appErrors "github.com/noah-isme/edutech-api/pkg/errors"
)

const (
	pqUniqueViolation     = "23505"
	pqForeignKeyViolation = "23503"
	pqCheckViolation      = "23514"
	pqRaiseException      = "P0001"
)

// constraintFields maps named constraints to the payload field they guard.
var constraintFields = map[string]string{
	"ux_categories_name":                    "name",
	"ux_instructors_email":                  "email",
	"ux_students_email":                     "email",
	"ux_modules_course_position":            "position",
	"ux_lessons_module_position":            "position",
	"ux_enrollments_student_course":         "course_id",
	"ux_lesson_progress_enrollment_lesson":  "lesson_id",
	"ux_ratings_enrollment":                 "enrollment_id",
	"ck_enrollments_completion_after_start": "completed_on",
	"ck_lesson_progress_completion":         "completed_at",
}

// triggerFields names the field checked by the integrity trigger on a table.
var triggerFields = map[string]string{
	"ratings":         "course_id",
	"lesson_progress": "watched_minutes",
}

// translateWriteError maps driver errors raised by inserts and updates onto
// domain errors. Unknown failures are wrapped with op.
func translateWriteError(op string, err error) error {
	return translate(op, err, false)
}

// translateDeleteError is translateWriteError for deletes, where a foreign key
// violation means dependents still exist.
func translateDeleteError(op string, err error) error {
	return translate(op, err, true)
}

func translate(op string, err error, deleting bool) error {
	if err == nil {
		return nil
	}
	var domainErr *appErrors.Error
	if errors.As(err, &domainErr) {
		return domainErr
	}
	if errors.Is(err, sql.ErrNoRows) {
		return err
	}
	var pqErr *pq.Error
	if !errors.As(err, &pqErr) {
		return fmt.Errorf("%s: %w", op, err)
	}

	field := fieldFor(pqErr)
	switch string(pqErr.Code) {
	case pqUniqueViolation:
		return appErrors.OnField(appErrors.ErrUniqueness, field, field+" already exists")
	case pqForeignKeyViolation:
		if deleting {
			return appErrors.OnField(appErrors.ErrDependencyConflict, field, "record still has dependents")
		}
		return appErrors.OnField(appErrors.ErrReferenceNotFound, field, "referenced record not found")
	case pqCheckViolation:
		return appErrors.OnField(appErrors.ErrValidation, field, "value violates "+pqErr.Constraint)
	case pqRaiseException:
		if f, ok := triggerFields[pqErr.Table]; ok && field == "" {
			field = f
		}
		return appErrors.OnField(appErrors.ErrConsistency, field, pqErr.Message)
	}
	return fmt.Errorf("%s: %w", op, err)
}

// fieldFor resolves the offending column from the constraint name. Postgres
// names unnamed foreign keys <table>_<column>_fkey.
func fieldFor(pqErr *pq.Error) string {
	if pqErr.Column != "" {
		return pqErr.Column
	}
	if field, ok := constraintFields[pqErr.Constraint]; ok {
		return field
	}
	if strings.HasSuffix(pqErr.Constraint, "_fkey") && pqErr.Table != "" {
		return strings.TrimSuffix(strings.TrimPrefix(pqErr.Constraint, pqErr.Table+"_"), "_fkey")
	}
	return pqErr.Constraint
}

// ensureAffected turns a write that touched no row into sql.ErrNoRows.
func ensureAffected(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return sql.ErrNoRows
	}
	return nil
}

func rollback(tx *sqlx.Tx) {
	_ = tx.Rollback()
}
