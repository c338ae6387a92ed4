package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/morchidhub/guide-backend/internal/models"
)

const guideColumns = `
	g.id, g.user_id, g.languages, g.specialties, g.cities_covered,
	g.years_of_experience, g.bio, g.cine_number, g.license_number,
	g.has_official_license, g.profile_photo_url, g.license_card_url,
	g.cine_card_url, g.documents_submitted_at, g.approval_status,
	g.rejection_reason, g.is_verified, g.reviewed_by, g.reviewed_at,
	g.rating_sum, g.total_reviews, g.average_rating, g.eco_score,
	g.created_at, g.updated_at`

// GuideMutation mutates a locked guide. It returns false when nothing changed,
// in which case no write is issued.
type GuideMutation func(g *models.GuideProfile) (changed bool, err error)

// GuideRepository handles guide profile database operations
type GuideRepository struct {
	db DB
}

// NewGuideRepository creates a new guide repository
func NewGuideRepository(db DB) *GuideRepository {
	return &GuideRepository{db: db}
}

// GetByID retrieves a guide by its ID
func (r *GuideRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.GuideProfile, error) {
	return r.getOne(ctx, `SELECT `+guideColumns+` FROM guides g WHERE g.id = $1`, id)
}

// GetByUserID retrieves the guide profile owned by a user
func (r *GuideRepository) GetByUserID(ctx context.Context, userID uuid.UUID) (*models.GuideProfile, error) {
	return r.getOne(ctx, `SELECT `+guideColumns+` FROM guides g WHERE g.user_id = $1`, userID)
}

func (r *GuideRepository) getOne(ctx context.Context, query string, arg interface{}) (*models.GuideProfile, error) {
	var row models.GuideRow
	if err := r.db.GetContext(ctx, &row, query, arg); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get guide: %w", err)
	}
	return row.ToProfile()
}

// ListByStatus returns guides in the given approval status, newest first
func (r *GuideRepository) ListByStatus(ctx context.Context, status models.ApprovalStatus) ([]*models.GuideProfile, error) {
	rows := []models.GuideRow{}
	err := r.db.SelectContext(ctx, &rows, `
		SELECT `+guideColumns+`
		FROM guides g
		WHERE g.approval_status = $1
		ORDER BY g.created_at DESC, g.id DESC`, string(status))
	if err != nil {
		return nil, fmt.Errorf("failed to list guides by status: %w", err)
	}

	guides := make([]*models.GuideProfile, 0, len(rows))
	for i := range rows {
		g, err := rows[i].ToProfile()
		if err != nil {
			return nil, err
		}
		guides = append(guides, g)
	}
	return guides, nil
}

// UpdateProfile updates the professional attributes of a guide
func (r *GuideRepository) UpdateProfile(ctx context.Context, g *models.GuideProfile) error {
	result, err := r.db.ExecContext(ctx, `
		UPDATE guides
		SET languages = $2, specialties = $3, cities_covered = $4,
		    years_of_experience = $5, bio = $6, updated_at = NOW()
		WHERE id = $1`,
		g.ID, pq.Array(g.Languages), pq.Array(g.Specialties), pq.Array(g.CitiesCovered),
		g.YearsOfExperience, g.Bio,
	)
	if err != nil {
		return fmt.Errorf("failed to update guide profile: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// UpdateLocked loads the guide with a row lock, applies fn and persists the
// verification columns. Concurrent calls on the same guide are serialized.
func (r *GuideRepository) UpdateLocked(ctx context.Context, id uuid.UUID, fn GuideMutation) (*models.GuideProfile, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	var row models.GuideRow
	err = tx.GetContext(ctx, &row, `SELECT `+guideColumns+` FROM guides g WHERE g.id = $1 FOR UPDATE`, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to lock guide: %w", err)
	}

	guide, err := row.ToProfile()
	if err != nil {
		return nil, err
	}

	changed, err := fn(guide)
	if err != nil {
		return nil, err
	}
	if !changed {
		return guide, nil
	}

	guide.UpdatedAt = time.Now()
	if err := writeVerification(ctx, tx, guide); err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit guide update: %w", err)
	}
	return guide, nil
}

func writeVerification(ctx context.Context, tx *sqlx.Tx, g *models.GuideProfile) error {
	var reason sql.NullString
	if r, ok := g.Approval.RejectionReason(); ok {
		reason = sql.NullString{String: r, Valid: true}
	}

	_, err := tx.ExecContext(ctx, `
		UPDATE guides
		SET cine_number = $2, license_number = $3, has_official_license = $4,
		    profile_photo_url = $5, license_card_url = $6, cine_card_url = $7,
		    documents_submitted_at = $8, approval_status = $9, rejection_reason = $10,
		    is_verified = $11, reviewed_by = $12, reviewed_at = $13, updated_at = $14
		WHERE id = $1`,
		g.ID,
		nullIfEmpty(g.CINENumber),
		nullIfEmpty(g.LicenseNumber),
		g.HasOfficialLicense,
		nullIfEmpty(g.Documents.ProfilePhotoURL),
		nullIfEmpty(g.Documents.LicenseCardURL),
		nullIfEmpty(g.Documents.CINECardURL),
		g.DocumentsSubmittedAt,
		string(g.Approval.Status()),
		reason,
		g.IsVerified(),
		g.ReviewedBy,
		g.ReviewedAt,
		g.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to update guide verification: %w", err)
	}
	return nil
}

func nullIfEmpty(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
