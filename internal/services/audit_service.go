package services

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/morchidhub/guide-backend/internal/database"
	"github.com/morchidhub/guide-backend/internal/models"
	"github.com/morchidhub/guide-backend/internal/utils"
)

// Audit actions
const (
	ActionLogin                 = "login"
	ActionLoginFailed           = "login_failed"
	ActionLogout                = "logout"
	ActionTokenRefresh          = "token_refresh"
	ActionRateLimitViolation    = "rate_limit_violation"
	ActionVerificationSubmitted = "guide_verification_submitted"
	ActionGuideApproved         = "guide_approved"
	ActionGuideRejected         = "guide_rejected"
	ActionReviewCreated         = "review_created"
	ActionReviewDeleted         = "review_deleted"
	ActionUserStatusChanged     = "user_status_changed"
)

// AuditService handles audit logging for security and moderation events
type AuditService struct {
	db database.DB
}

// NewAuditService creates a new audit service
func NewAuditService(db database.DB) *AuditService {
	return &AuditService{
		db: db,
	}
}

// AuditEvent represents an event to be logged
type AuditEvent struct {
	UserID     *uuid.UUID             // nil for pre-authentication events
	Action     string                 // one of the Action* constants
	EntityType string                 // user, guide, review, token, rate_limit
	EntityID   *uuid.UUID             // can be nil
	IPAddress  string                 // client IP address
	UserAgent  string                 // client user agent
	Details    map[string]interface{} // stored as JSONB
}

// LogLogin logs a login attempt
func (s *AuditService) LogLogin(ctx context.Context, userID *uuid.UUID, email, ipAddress, userAgent string, success bool, reason string) error {
	details := map[string]interface{}{
		"email":   email,
		"success": success,
	}
	if reason != "" {
		details["reason"] = reason
	}

	action := ActionLogin
	if !success {
		action = ActionLoginFailed
	}

	return s.LogEvent(ctx, AuditEvent{
		UserID:     userID,
		Action:     action,
		EntityType: "user",
		EntityID:   userID,
		IPAddress:  ipAddress,
		UserAgent:  userAgent,
		Details:    details,
	})
}

// LogLogout logs a logout event
func (s *AuditService) LogLogout(ctx context.Context, userID uuid.UUID, ipAddress, userAgent string) error {
	return s.LogEvent(ctx, AuditEvent{
		UserID:     &userID,
		Action:     ActionLogout,
		EntityType: "user",
		EntityID:   &userID,
		IPAddress:  ipAddress,
		UserAgent:  userAgent,
	})
}

// LogTokenRefresh logs a refresh token usage event
func (s *AuditService) LogTokenRefresh(ctx context.Context, userID uuid.UUID, ipAddress, userAgent string) error {
	return s.LogEvent(ctx, AuditEvent{
		UserID:     &userID,
		Action:     ActionTokenRefresh,
		EntityType: "token",
		IPAddress:  ipAddress,
		UserAgent:  userAgent,
	})
}

// LogRateLimitViolation logs a blocked login attempt
func (s *AuditService) LogRateLimitViolation(ctx context.Context, email, ipAddress, userAgent, limitType string, retryAfter time.Time) error {
	return s.LogEvent(ctx, AuditEvent{
		Action:     ActionRateLimitViolation,
		EntityType: "rate_limit",
		IPAddress:  ipAddress,
		UserAgent:  userAgent,
		Details: map[string]interface{}{
			"email":       email,
			"limit_type":  limitType, // "email" or "ip"
			"retry_after": retryAfter,
		},
	})
}

// LogVerificationSubmitted logs a guide uploading verification documents
func (s *AuditService) LogVerificationSubmitted(ctx context.Context, userID, guideID uuid.UUID, ipAddress, userAgent string) error {
	return s.LogEvent(ctx, AuditEvent{
		UserID:     &userID,
		Action:     ActionVerificationSubmitted,
		EntityType: "guide",
		EntityID:   &guideID,
		IPAddress:  ipAddress,
		UserAgent:  userAgent,
	})
}

// LogGuideDecision logs an admin approving or rejecting a guide
func (s *AuditService) LogGuideDecision(ctx context.Context, adminID, guideID uuid.UUID, status models.ApprovalStatus, reason, ipAddress, userAgent string) error {
	action := ActionGuideApproved
	details := map[string]interface{}{"status": status}
	if status == models.StatusRejected {
		action = ActionGuideRejected
		details["reason"] = reason
	}

	return s.LogEvent(ctx, AuditEvent{
		UserID:     &adminID,
		Action:     action,
		EntityType: "guide",
		EntityID:   &guideID,
		IPAddress:  ipAddress,
		UserAgent:  userAgent,
		Details:    details,
	})
}

// LogReview logs a review being created or deleted
func (s *AuditService) LogReview(ctx context.Context, userID uuid.UUID, review *models.Review, deleted bool, ipAddress, userAgent string) error {
	action := ActionReviewCreated
	if deleted {
		action = ActionReviewDeleted
	}

	return s.LogEvent(ctx, AuditEvent{
		UserID:     &userID,
		Action:     action,
		EntityType: "review",
		EntityID:   &review.ID,
		IPAddress:  ipAddress,
		UserAgent:  userAgent,
		Details: map[string]interface{}{
			"guide_id": review.GuideID,
			"rating":   review.Rating,
		},
	})
}

// LogUserStatusChange logs an admin activating or deactivating an account
func (s *AuditService) LogUserStatusChange(ctx context.Context, adminID, userID uuid.UUID, active bool, ipAddress, userAgent string) error {
	return s.LogEvent(ctx, AuditEvent{
		UserID:     &adminID,
		Action:     ActionUserStatusChanged,
		EntityType: "user",
		EntityID:   &userID,
		IPAddress:  ipAddress,
		UserAgent:  userAgent,
		Details:    map[string]interface{}{"is_active": active},
	})
}

// LogEvent writes one row to the audit_logs table
func (s *AuditService) LogEvent(ctx context.Context, event AuditEvent) error {
	details := event.Details
	if details == nil {
		details = make(map[string]interface{})
	}
	if event.UserAgent != "" {
		details["device_info"] = utils.ParseUserAgent(event.UserAgent)
	}

	payload, err := json.Marshal(details)
	if err != nil {
		return fmt.Errorf("failed to encode audit details: %w", err)
	}

	query := `
		INSERT INTO audit_logs (user_id, action, entity_type, entity_id, ip_address, user_agent, details, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, NOW())
	`

	_, err = s.db.ExecContext(ctx, query,
		event.UserID,
		event.Action,
		event.EntityType,
		event.EntityID,
		event.IPAddress,
		event.UserAgent,
		string(payload),
	)
	if err != nil {
		return fmt.Errorf("failed to log audit event: %w", err)
	}

	return nil
}

// ListUserEvents retrieves recent audit events performed by a user
func (s *AuditService) ListUserEvents(ctx context.Context, userID uuid.UUID, limit int) ([]models.AuditLog, error) {
	limit, _ = models.ClampPage(limit, 0)

	query := `
		SELECT id, user_id, action, entity_type, entity_id, ip_address, user_agent, details, created_at
		FROM audit_logs
		WHERE user_id = $1
		ORDER BY created_at DESC, id DESC
		LIMIT $2
	`

	events := []models.AuditLog{}
	if err := s.db.SelectContext(ctx, &events, query, userID, limit); err != nil {
		return nil, fmt.Errorf("failed to get recent events: %w", err)
	}

	return events, nil
}

// CleanupOldAuditLogs removes audit logs older than the specified duration
func (s *AuditService) CleanupOldAuditLogs(ctx context.Context, olderThan time.Duration) (int64, error) {
	cutoffTime := time.Now().Add(-olderThan)

	result, err := s.db.ExecContext(ctx, `DELETE FROM audit_logs WHERE created_at < $1`, cutoffTime)
	if err != nil {
		return 0, fmt.Errorf("failed to cleanup old audit logs: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get rows affected: %w", err)
	}

	return rowsAffected, nil
}
