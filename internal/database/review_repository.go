package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/morchidhub/guide-backend/internal/models"
)

// ReviewRepository persists reviews together with the guide rating aggregate
type ReviewRepository struct {
	db DB
}

// NewReviewRepository creates a new review repository
func NewReviewRepository(db DB) *ReviewRepository {
	return &ReviewRepository{db: db}
}

// CreateWithAggregate inserts the review and folds its rating into the guide
// aggregate in one transaction. The guide must be approved. A second review
// by the same tourist returns ErrDuplicateReview and leaves the aggregate as is.
func (r *ReviewRepository) CreateWithAggregate(ctx context.Context, review *models.Review) (models.RatingAggregate, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return models.RatingAggregate{}, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	agg, err := lockAggregate(ctx, tx, review.GuideID, true)
	if err != nil {
		return models.RatingAggregate{}, err
	}

	if review.ID == uuid.Nil {
		review.ID = uuid.New()
	}

	err = tx.QueryRowContext(ctx, `
		INSERT INTO reviews (id, guide_id, tourist_id, route_id, rating, comment, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, NOW())
		ON CONFLICT (tourist_id, guide_id) DO NOTHING
		RETURNING created_at`,
		review.ID, review.GuideID, review.TouristID, review.RouteID, review.Rating, review.Comment,
	).Scan(&review.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.RatingAggregate{}, ErrDuplicateReview
		}
		if isUniqueViolation(err, "") {
			return models.RatingAggregate{}, ErrDuplicateReview
		}
		return models.RatingAggregate{}, fmt.Errorf("failed to insert review: %w", err)
	}

	agg = agg.Add(review.Rating)
	if err := storeAggregate(ctx, tx, review.GuideID, agg); err != nil {
		return models.RatingAggregate{}, err
	}

	if err := tx.Commit(); err != nil {
		return models.RatingAggregate{}, fmt.Errorf("failed to commit review: %w", err)
	}
	return agg, nil
}

// Delete removes a review and takes its rating out of the guide aggregate
func (r *ReviewRepository) Delete(ctx context.Context, review *models.Review) (models.RatingAggregate, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return models.RatingAggregate{}, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	agg, err := lockAggregate(ctx, tx, review.GuideID, false)
	if err != nil {
		return models.RatingAggregate{}, err
	}

	var rating int
	err = tx.QueryRowContext(ctx, `DELETE FROM reviews WHERE id = $1 AND guide_id = $2 RETURNING rating`,
		review.ID, review.GuideID).Scan(&rating)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.RatingAggregate{}, ErrNotFound
		}
		return models.RatingAggregate{}, fmt.Errorf("failed to delete review: %w", err)
	}

	agg = agg.Remove(rating)
	if err := storeAggregate(ctx, tx, review.GuideID, agg); err != nil {
		return models.RatingAggregate{}, err
	}

	if err := tx.Commit(); err != nil {
		return models.RatingAggregate{}, fmt.Errorf("failed to commit review deletion: %w", err)
	}
	return agg, nil
}

// GetByID retrieves a review
func (r *ReviewRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Review, error) {
	var review models.Review
	err := r.db.GetContext(ctx, &review, `
		SELECT id, guide_id, tourist_id, route_id, rating, comment, created_at
		FROM reviews WHERE id = $1`, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get review: %w", err)
	}
	return &review, nil
}

// ListByGuide returns a page of a guide's reviews, newest first
func (r *ReviewRepository) ListByGuide(ctx context.Context, guideID uuid.UUID, limit, offset int) ([]models.ReviewWithAuthor, error) {
	reviews := []models.ReviewWithAuthor{}
	err := r.db.SelectContext(ctx, &reviews, `
		SELECT r.id, r.guide_id, r.tourist_id, r.route_id, r.rating, r.comment, r.created_at,
		       u.full_name AS tourist_name
		FROM reviews r
		LEFT JOIN users u ON u.id = r.tourist_id
		WHERE r.guide_id = $1
		ORDER BY r.created_at DESC, r.id DESC
		LIMIT $2 OFFSET $3`, guideID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to list reviews: %w", err)
	}
	return reviews, nil
}

func lockAggregate(ctx context.Context, tx *sqlx.Tx, guideID uuid.UUID, approvedOnly bool) (models.RatingAggregate, error) {
	query := `SELECT rating_sum, total_reviews FROM guides WHERE id = $1 FOR UPDATE`
	if approvedOnly {
		query = `SELECT rating_sum, total_reviews FROM guides WHERE id = $1 AND approval_status = 'approved' FOR UPDATE`
	}

	var agg models.RatingAggregate
	if err := tx.QueryRowContext(ctx, query, guideID).Scan(&agg.Sum, &agg.Count); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.RatingAggregate{}, ErrNotFound
		}
		return models.RatingAggregate{}, fmt.Errorf("failed to lock guide rating: %w", err)
	}
	return agg, nil
}

func storeAggregate(ctx context.Context, tx *sqlx.Tx, guideID uuid.UUID, agg models.RatingAggregate) error {
	_, err := tx.ExecContext(ctx, `
		UPDATE guides
		SET rating_sum = $2, total_reviews = $3, average_rating = $4, updated_at = NOW()
		WHERE id = $1`, guideID, agg.Sum, agg.Count, agg.Mean())
	if err != nil {
		return fmt.Errorf("failed to update guide rating: %w", err)
	}
	return nil
}
