package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/morchidhub/guide-backend/internal/models"
)

const userColumns = `
	id, full_name, email, phone, date_of_birth, password_hash,
	role, is_admin, is_active, last_login_at, created_at, updated_at`

// UserRepository handles user database operations
type UserRepository struct {
	db DB
}

// NewUserRepository creates a new user repository
func NewUserRepository(db DB) *UserRepository {
	return &UserRepository{
		db: db,
	}
}

// Create inserts a user and, when guide is non-nil, its guide profile in the
// same transaction. The guide always starts in pending_approval.
func (r *UserRepository) Create(ctx context.Context, user *models.User, guide *models.GuideProfile) error {
	now := time.Now()
	if user.ID == uuid.Nil {
		user.ID = uuid.New()
	}
	user.CreatedAt = now
	user.UpdatedAt = now

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO users (
			id, full_name, email, phone, date_of_birth, password_hash,
			role, is_admin, is_active, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
		user.ID, user.FullName, user.Email, user.Phone, user.DateOfBirth, user.PasswordHash,
		user.Role, user.IsAdmin, user.IsActive, user.CreatedAt, user.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err, "users_email_key") {
			return ErrDuplicateEmail
		}
		return fmt.Errorf("failed to create user: %w", err)
	}

	if guide != nil {
		if guide.ID == uuid.Nil {
			guide.ID = uuid.New()
		}
		guide.UserID = user.ID
		guide.Approval = models.PendingApproval()
		guide.CreatedAt = now
		guide.UpdatedAt = now

		_, err = tx.ExecContext(ctx, `
			INSERT INTO guides (
				id, user_id, languages, specialties, cities_covered,
				years_of_experience, bio, approval_status, is_verified,
				created_at, updated_at
			) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, FALSE, $9, $10)`,
			guide.ID, guide.UserID, pq.Array(guide.Languages), pq.Array(guide.Specialties),
			pq.Array(guide.CitiesCovered), guide.YearsOfExperience, guide.Bio,
			string(models.StatusPendingApproval), guide.CreatedAt, guide.UpdatedAt,
		)
		if err != nil {
			return fmt.Errorf("failed to create guide profile: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit user creation: %w", err)
	}
	return nil
}

// GetByEmail retrieves a user by email
func (r *UserRepository) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	var user models.User
	err := r.db.GetContext(ctx, &user, `SELECT `+userColumns+` FROM users WHERE LOWER(email) = LOWER($1)`, email)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get user by email: %w", err)
	}
	return &user, nil
}

// GetByID retrieves a user by ID
func (r *UserRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	var user models.User
	err := r.db.GetContext(ctx, &user, `SELECT `+userColumns+` FROM users WHERE id = $1`, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get user by id: %w", err)
	}
	return &user, nil
}

// UpdateLastLogin stamps a successful login
func (r *UserRepository) UpdateLastLogin(ctx context.Context, id uuid.UUID) error {
	_, err := r.db.ExecContext(ctx, `UPDATE users SET last_login_at = NOW(), updated_at = NOW() WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to update last login: %w", err)
	}
	return nil
}

// List returns users, optionally filtered by role, newest first
func (r *UserRepository) List(ctx context.Context, role string) ([]models.User, error) {
	users := []models.User{}
	var err error
	if role == "" {
		err = r.db.SelectContext(ctx, &users, `SELECT `+userColumns+` FROM users ORDER BY created_at DESC`)
	} else {
		err = r.db.SelectContext(ctx, &users, `SELECT `+userColumns+` FROM users WHERE role = $1 ORDER BY created_at DESC`, role)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}
	return users, nil
}

// SetActive toggles account activation and returns the updated user
func (r *UserRepository) SetActive(ctx context.Context, id uuid.UUID, active bool) (*models.User, error) {
	var user models.User
	err := r.db.GetContext(ctx, &user, `
		UPDATE users SET is_active = $2, updated_at = NOW()
		WHERE id = $1
		RETURNING `+userColumns, id, active)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to update user status: %w", err)
	}
	return &user, nil
}

// CountStats fills the user and guide counters of the admin dashboard
func (r *UserRepository) CountStats(ctx context.Context) (*models.AdminStats, error) {
	stats := &models.AdminStats{}

	err := r.db.GetContext(ctx, &stats.Users, `
		SELECT COUNT(*) AS total,
		       COUNT(*) FILTER (WHERE is_active) AS active,
		       COUNT(*) FILTER (WHERE NOT is_active) AS inactive
		FROM users`)
	if err != nil {
		return nil, fmt.Errorf("failed to count users: %w", err)
	}

	err = r.db.GetContext(ctx, &stats.Guides, `
		SELECT COUNT(*) AS total,
		       COUNT(*) FILTER (WHERE approval_status = 'pending_approval') AS pending,
		       COUNT(*) FILTER (WHERE approval_status = 'approved') AS approved,
		       COUNT(*) FILTER (WHERE approval_status = 'rejected') AS rejected
		FROM guides`)
	if err != nil {
		return nil, fmt.Errorf("failed to count guides: %w", err)
	}

	err = r.db.GetContext(ctx, &stats.Support, `
		SELECT COUNT(*) AS unresolved FROM support_messages WHERE NOT is_resolved`)
	if err != nil {
		return nil, fmt.Errorf("failed to count support messages: %w", err)
	}

	return stats, nil
}
