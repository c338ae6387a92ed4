package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/morchidhub/guide-backend/internal/models"
)

// SupportRepository handles support message database operations
type SupportRepository struct {
	db DB
}

// NewSupportRepository creates a new support repository
func NewSupportRepository(db DB) *SupportRepository {
	return &SupportRepository{db: db}
}

// Create stores a new support message
func (r *SupportRepository) Create(ctx context.Context, msg *models.SupportMessage) error {
	if msg.ID == uuid.Nil {
		msg.ID = uuid.New()
	}
	msg.IsResolved = false
	msg.CreatedAt = time.Now()

	_, err := r.db.ExecContext(ctx, `
		INSERT INTO support_messages (id, user_id, subject, message, is_resolved, created_at)
		VALUES ($1, $2, $3, $4, FALSE, $5)`,
		msg.ID, msg.UserID, msg.Subject, msg.Message, msg.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to create support message: %w", err)
	}
	return nil
}

// List returns messages with their sender, unresolved first then newest.
// A nil resolved returns every message.
func (r *SupportRepository) List(ctx context.Context, resolved *bool) ([]models.SupportMessageWithUser, error) {
	query := `
		SELECT m.id, m.user_id, m.subject, m.message, m.is_resolved, m.created_at, m.resolved_at,
		       u.full_name AS user_name, u.email AS user_email
		FROM support_messages m
		LEFT JOIN users u ON u.id = m.user_id`
	args := []interface{}{}
	if resolved != nil {
		query += ` WHERE m.is_resolved = $1`
		args = append(args, *resolved)
	}
	query += ` ORDER BY m.is_resolved ASC, m.created_at DESC`

	messages := []models.SupportMessageWithUser{}
	if err := r.db.SelectContext(ctx, &messages, query, args...); err != nil {
		return nil, fmt.Errorf("failed to list support messages: %w", err)
	}
	return messages, nil
}

// GetByID retrieves a message
func (r *SupportRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.SupportMessage, error) {
	var msg models.SupportMessage
	err := r.db.GetContext(ctx, &msg, `
		SELECT id, user_id, subject, message, is_resolved, created_at, resolved_at
		FROM support_messages WHERE id = $1`, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get support message: %w", err)
	}
	return &msg, nil
}

// Resolve marks an unresolved message as resolved. It returns false when the
// message was already resolved.
func (r *SupportRepository) Resolve(ctx context.Context, id uuid.UUID) (bool, error) {
	result, err := r.db.ExecContext(ctx, `
		UPDATE support_messages SET is_resolved = TRUE, resolved_at = NOW()
		WHERE id = $1 AND is_resolved = FALSE`, id)
	if err != nil {
		return false, fmt.Errorf("failed to resolve support message: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get rows affected: %w", err)
	}
	return n > 0, nil
}

// Delete removes a message
func (r *SupportRepository) Delete(ctx context.Context, id uuid.UUID) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM support_messages WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete support message: %w", err)
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
