package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/edutech-api/internal/integrity"
	appErrors "github.com/noah-isme/edutech-api/pkg/errors"
)

// restrictProbe detects rows that block deleting a parent, either directly or
// through one of the parent's cascades.
type restrictProbe struct {
	child integrity.Entity
	query string
}

// restrictProbes lists, per deleted entity, one EXISTS probe for every
// restrict edge reachable from it.
var restrictProbes = map[integrity.Entity][]restrictProbe{
	integrity.EntityCategory: {
		{child: integrity.EntityCourse, query: `SELECT EXISTS (SELECT 1 FROM courses WHERE category_id = $1)`},
	},
	integrity.EntityInstructor: {
		{child: integrity.EntityCourse, query: `SELECT EXISTS (SELECT 1 FROM courses WHERE instructor_id = $1)`},
	},
	integrity.EntityStudent: {
		{child: integrity.EntityEnrollment, query: `SELECT EXISTS (SELECT 1 FROM enrollments WHERE student_id = $1)`},
	},
	integrity.EntityCourse: {
		{child: integrity.EntityEnrollment, query: `SELECT EXISTS (SELECT 1 FROM enrollments WHERE course_id = $1)`},
		{child: integrity.EntityRating, query: `SELECT EXISTS (SELECT 1 FROM ratings WHERE course_id = $1)`},
		{child: integrity.EntityProgress, query: `SELECT EXISTS (SELECT 1 FROM lesson_progress lp JOIN lessons l ON l.id = lp.lesson_id JOIN modules m ON m.id = l.module_id WHERE m.course_id = $1)`},
	},
	integrity.EntityModule: {
		{child: integrity.EntityProgress, query: `SELECT EXISTS (SELECT 1 FROM lesson_progress lp JOIN lessons l ON l.id = lp.lesson_id WHERE l.module_id = $1)`},
	},
	integrity.EntityLesson: {
		{child: integrity.EntityProgress, query: `SELECT EXISTS (SELECT 1 FROM lesson_progress WHERE lesson_id = $1)`},
	},
}

// deleteWithPolicy removes one row inside a transaction. Restrict probes run
// first; cascade edges are carried out by ON DELETE CASCADE in the same
// statement, so the parent and its dependents go together or not at all.
func deleteWithPolicy(ctx context.Context, db *sqlx.DB, parent integrity.Entity, table, id string) (err error) {
	op := fmt.Sprintf("delete %s", parent)
	tx, err := db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin %s: %w", op, err)
	}
	defer func() {
		if err != nil {
			rollback(tx)
		}
	}()

	var locked string
	if err = tx.GetContext(ctx, &locked, fmt.Sprintf("SELECT id FROM %s WHERE id = $1 FOR UPDATE", table), id); err != nil {
		return translateDeleteError(op, err)
	}

	for _, probe := range restrictProbes[parent] {
		var blocked bool
		if err = tx.GetContext(ctx, &blocked, probe.query, id); err != nil {
			return fmt.Errorf("%s: probe %s: %w", op, probe.child, err)
		}
		if blocked {
			err = appErrors.OnField(appErrors.ErrDependencyConflict, string(probe.child),
				fmt.Sprintf("%s has dependent %s records", parent, probe.child))
			return err
		}
	}

	if _, err = tx.ExecContext(ctx, fmt.Sprintf("DELETE FROM %s WHERE id = $1", table), id); err != nil {
		return translateDeleteError(op, err)
	}
	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit %s: %w", op, err)
	}
	return nil
}
