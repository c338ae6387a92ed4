package services

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/morchidhub/guide-backend/internal/database"
	"github.com/morchidhub/guide-backend/internal/models"
	"github.com/sirupsen/logrus"
)

// AdminUserStore is the user administration surface of the user repository
type AdminUserStore interface {
	GetByID(ctx context.Context, id uuid.UUID) (*models.User, error)
	List(ctx context.Context, role string) ([]models.User, error)
	SetActive(ctx context.Context, id uuid.UUID, active bool) (*models.User, error)
	CountStats(ctx context.Context) (*models.AdminStats, error)
}

// AuditReader lists a user's audit trail
type AuditReader interface {
	ListUserEvents(ctx context.Context, userID uuid.UUID, limit int) ([]models.AuditLog, error)
}

// AdminService handles user moderation and the admin dashboard
type AdminService struct {
	users  AdminUserStore
	audit  AuditReader
	cache  CacheInvalidator
	logger logrus.FieldLogger
}

// NewAdminService creates a new admin service. cache may be nil.
func NewAdminService(users AdminUserStore, audit AuditReader, cache CacheInvalidator, logger logrus.FieldLogger) *AdminService {
	return &AdminService{
		users:  users,
		audit:  audit,
		cache:  cache,
		logger: logger,
	}
}

// ListUsers returns every user, or only those with role when it is set
func (s *AdminService) ListUsers(ctx context.Context, role string) ([]models.User, error) {
	switch role {
	case "", models.RoleTourist, models.RoleGuide, models.RoleAdmin:
	default:
		return nil, &ValidationError{Field: "role", Message: "Role must be tourist, guide or admin"}
	}
	return s.users.List(ctx, role)
}

// ToggleUserStatus flips a user's is_active flag. Admins cannot deactivate themselves.
func (s *AdminService) ToggleUserStatus(ctx context.Context, adminID, userID uuid.UUID) (*models.User, error) {
	if adminID == userID {
		return nil, &ValidationError{Field: "user_id", Message: "You cannot change the status of your own account"}
	}

	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return nil, mapUserErr(err)
	}

	updated, err := s.users.SetActive(ctx, userID, !user.IsActive)
	if err != nil {
		return nil, mapUserErr(err)
	}
	if updated.Role == models.RoleGuide && s.cache != nil {
		if err := s.cache.Invalidate(ctx); err != nil {
			s.logger.WithError(err).Warn("Failed to invalidate search cache")
		}
	}

	s.logger.WithFields(logrus.Fields{
		"admin_id":  adminID,
		"user_id":   userID,
		"is_active": updated.IsActive,
	}).Info("User status changed")
	return updated, nil
}

// Stats returns the dashboard counters
func (s *AdminService) Stats(ctx context.Context) (*models.AdminStats, error) {
	return s.users.CountStats(ctx)
}

// UserAuditLogs returns the most recent audit events of a user
func (s *AdminService) UserAuditLogs(ctx context.Context, userID uuid.UUID, limit int) ([]models.AuditLog, error) {
	if _, err := s.users.GetByID(ctx, userID); err != nil {
		return nil, mapUserErr(err)
	}
	return s.audit.ListUserEvents(ctx, userID, limit)
}

func mapUserErr(err error) error {
	if errors.Is(err, database.ErrNotFound) {
		return &NotFoundError{Entity: "user", Code: "USER_NOT_FOUND", Message: "User not found"}
	}
	return err
}
