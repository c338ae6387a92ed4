package services

import (
	"context"
	"fmt"
	"time"

	"github.com/morchidhub/guide-backend/internal/config"
	"github.com/morchidhub/guide-backend/internal/database"
)

// Rate limit identifier types
const (
	LimitByEmail = "email"
	LimitByIP    = "ip"
)

// RateLimitService handles login attempt rate limiting
type RateLimitService struct {
	db     database.DB
	config config.RateLimitConfig
}

// NewRateLimitService creates a new rate limit service
func NewRateLimitService(db database.DB, cfg config.RateLimitConfig) *RateLimitService {
	return &RateLimitService{
		db:     db,
		config: cfg,
	}
}

// RateLimitError represents a rate limit exceeded error
type RateLimitError struct {
	Message    string
	RetryAfter time.Time
	Type       string // "email" or "ip"
}

func (e *RateLimitError) Error() string {
	return e.Message
}

// CheckLoginRateLimit checks if an email or IP has exceeded the login attempt limits
func (s *RateLimitService) CheckLoginRateLimit(ctx context.Context, email, ip string) error {
	if email != "" {
		if err := s.check(ctx, email, LimitByEmail, s.config.MaxEmailAttempts, s.config.EmailWindow,
			"Too many login attempts for this account"); err != nil {
			return err
		}
	}

	if ip != "" {
		if err := s.check(ctx, ip, LimitByIP, s.config.MaxIPAttempts, s.config.IPWindow,
			"Too many login attempts from this IP address"); err != nil {
			return err
		}
	}

	return nil
}

func (s *RateLimitService) check(ctx context.Context, identifier, identifierType string, max int, window time.Duration, message string) error {
	count, oldest, err := s.getAttemptCount(ctx, identifier, identifierType, window)
	if err != nil {
		return fmt.Errorf("failed to check %s rate limit: %w", identifierType, err)
	}

	if count >= max {
		retryAfter := oldest.Add(window)
		return &RateLimitError{
			Message:    fmt.Sprintf("%s. Please try again after %s", message, retryAfter.Format("15:04:05")),
			RetryAfter: retryAfter,
			Type:       identifierType,
		}
	}

	return nil
}

// getAttemptCount returns the attempts within the window and the oldest of them
func (s *RateLimitService) getAttemptCount(ctx context.Context, identifier, identifierType string, window time.Duration) (int, time.Time, error) {
	windowStart := time.Now().Add(-window)

	query := `
		SELECT COUNT(*), COALESCE(MIN(created_at), NOW())
		FROM auth_rate_limits
		WHERE identifier = $1
		  AND identifier_type = $2
		  AND created_at > $3
	`

	var count int
	var oldest time.Time
	if err := s.db.QueryRowContext(ctx, query, identifier, identifierType, windowStart).Scan(&count, &oldest); err != nil {
		return 0, time.Time{}, err
	}

	return count, oldest, nil
}

// RecordLoginAttempt records a failed login attempt for rate limiting
func (s *RateLimitService) RecordLoginAttempt(ctx context.Context, email, ip string) error {
	if email != "" {
		if err := s.recordAttempt(ctx, email, LimitByEmail); err != nil {
			return fmt.Errorf("failed to record email attempt: %w", err)
		}
	}

	if ip != "" {
		if err := s.recordAttempt(ctx, ip, LimitByIP); err != nil {
			return fmt.Errorf("failed to record IP attempt: %w", err)
		}
	}

	return nil
}

func (s *RateLimitService) recordAttempt(ctx context.Context, identifier, identifierType string) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO auth_rate_limits (identifier, identifier_type, created_at)
		VALUES ($1, $2, NOW())
	`, identifier, identifierType)
	return err
}

// ResetEmail clears the attempts recorded for an email after a successful login
func (s *RateLimitService) ResetEmail(ctx context.Context, email string) error {
	_, err := s.db.ExecContext(ctx,
		`DELETE FROM auth_rate_limits WHERE identifier = $1 AND identifier_type = $2`,
		email, LimitByEmail)
	if err != nil {
		return fmt.Errorf("failed to reset email rate limit: %w", err)
	}
	return nil
}

// CleanupExpiredRateLimits removes records older than the longest window
func (s *RateLimitService) CleanupExpiredRateLimits(ctx context.Context) (int64, error) {
	maxWindow := s.config.IPWindow
	if s.config.EmailWindow > maxWindow {
		maxWindow = s.config.EmailWindow
	}

	cutoffTime := time.Now().Add(-maxWindow)

	result, err := s.db.ExecContext(ctx, `DELETE FROM auth_rate_limits WHERE created_at < $1`, cutoffTime)
	if err != nil {
		return 0, fmt.Errorf("failed to cleanup rate limits: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get rows affected: %w", err)
	}

	return rowsAffected, nil
}
