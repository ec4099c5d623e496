package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/edutech-api/internal/integrity"
	"github.com/noah-isme/edutech-api/internal/models"
)

const ratingColumns = "id, enrollment_id, course_id, score, comment, rated_at"

// RatingRepository manages course ratings.
type RatingRepository struct {
	db *sqlx.DB
}

// NewRatingRepository constructs a RatingRepository.
func NewRatingRepository(db *sqlx.DB) *RatingRepository {
	return &RatingRepository{db: db}
}

// List returns ratings, optionally restricted to one course.
func (r *RatingRepository) List(ctx context.Context, courseID string) ([]models.Rating, error) {
	query := "SELECT " + ratingColumns + " FROM ratings"
	var args []interface{}
	if courseID != "" {
		args = append(args, courseID)
		query += fmt.Sprintf(" WHERE course_id = $%d", len(args))
	}
	query += " ORDER BY rated_at DESC, id ASC"

	var ratings []models.Rating
	if err := r.db.SelectContext(ctx, &ratings, query, args...); err != nil {
		return nil, fmt.Errorf("list ratings: %w", err)
	}
	return ratings, nil
}

// FindByID fetches a rating by ID.
func (r *RatingRepository) FindByID(ctx context.Context, id string) (*models.Rating, error) {
	var rating models.Rating
	if err := r.db.GetContext(ctx, &rating, "SELECT "+ratingColumns+" FROM ratings WHERE id = $1", id); err != nil {
		return nil, err
	}
	return &rating, nil
}

// Create stores a rating once it is known to target the enrolled course.
func (r *RatingRepository) Create(ctx context.Context, rating *models.Rating) (err error) {
	if rating.ID == "" {
		rating.ID = uuid.NewString()
	}
	if rating.RatedAt.IsZero() {
		rating.RatedAt = time.Now().UTC()
	}
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin create rating: %w", err)
	}
	defer func() {
		if err != nil {
			rollback(tx)
		}
	}()

	enrollment, err := lockEnrollment(ctx, tx, rating.EnrollmentID)
	if err != nil {
		return err
	}
	if err = integrity.CheckRating(rating, enrollment); err != nil {
		return err
	}
	const query = `INSERT INTO ratings (id, enrollment_id, course_id, score, comment, rated_at)
        VALUES (:id, :enrollment_id, :course_id, :score, :comment, :rated_at)`
	if _, err = tx.NamedExecContext(ctx, query, rating); err != nil {
		return translateWriteError("create rating", err)
	}
	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit create rating: %w", err)
	}
	return nil
}

// Update changes score, comment and course of a rating, re-checking the
// course against the enrollment.
func (r *RatingRepository) Update(ctx context.Context, rating *models.Rating) (err error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin update rating: %w", err)
	}
	defer func() {
		if err != nil {
			rollback(tx)
		}
	}()

	var current models.Rating
	if err = tx.GetContext(ctx, &current, "SELECT "+ratingColumns+" FROM ratings WHERE id = $1 FOR UPDATE", rating.ID); err != nil {
		return err
	}
	rating.EnrollmentID = current.EnrollmentID
	rating.RatedAt = current.RatedAt

	enrollment, err := lockEnrollment(ctx, tx, rating.EnrollmentID)
	if err != nil {
		return err
	}
	if err = integrity.CheckRating(rating, enrollment); err != nil {
		return err
	}
	const query = `UPDATE ratings SET course_id = :course_id, score = :score, comment = :comment WHERE id = :id`
	if _, err = tx.NamedExecContext(ctx, query, rating); err != nil {
		return translateWriteError("update rating", err)
	}
	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit update rating: %w", err)
	}
	return nil
}

// Delete removes a rating.
func (r *RatingRepository) Delete(ctx context.Context, id string) error {
	return deleteWithPolicy(ctx, r.db, integrity.EntityRating, "ratings", id)
}
