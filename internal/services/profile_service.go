package services

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/morchidhub/guide-backend/internal/database"
	"github.com/morchidhub/guide-backend/internal/models"
	"github.com/sirupsen/logrus"
)

// GuideProfileStore reads and edits guide profiles
type GuideProfileStore interface {
	GetByID(ctx context.Context, id uuid.UUID) (*models.GuideProfile, error)
	GetByUserID(ctx context.Context, userID uuid.UUID) (*models.GuideProfile, error)
	UpdateProfile(ctx context.Context, g *models.GuideProfile) error
}

// MeResponse is the authenticated user's own account view
type MeResponse struct {
	User  *models.User          `json:"user"`
	Guide *models.GuideResponse `json:"guide,omitempty"`
}

// ProfileService serves account and guide profile views
type ProfileService struct {
	users  UserReader
	guides GuideProfileStore
	cache  CacheInvalidator
	logger logrus.FieldLogger
}

// NewProfileService creates a new profile service. cache may be nil.
func NewProfileService(users UserReader, guides GuideProfileStore, cache CacheInvalidator, logger logrus.FieldLogger) *ProfileService {
	return &ProfileService{
		users:  users,
		guides: guides,
		cache:  cache,
		logger: logger,
	}
}

// GetMe returns the caller's account and, for guides, their full guide profile
func (s *ProfileService) GetMe(ctx context.Context, userID uuid.UUID) (*MeResponse, error) {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return nil, mapUserErr(err)
	}

	resp := &MeResponse{User: user}
	if user.Role != models.RoleGuide {
		return resp, nil
	}

	guide, err := s.guides.GetByUserID(ctx, userID)
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			return resp, nil
		}
		return nil, err
	}
	resp.Guide = models.NewGuideResponse(guide, true)
	resp.Guide.FullName = user.FullName
	return resp, nil
}

// GetGuideProfile returns a guide profile. Identity documents and the
// rejection reason are only included for the owner and admins.
func (s *ProfileService) GetGuideProfile(ctx context.Context, guideID uuid.UUID, viewer *Caller) (*models.GuideResponse, error) {
	guide, err := s.guides.GetByID(ctx, guideID)
	if err != nil {
		return nil, mapGuideErr(err)
	}

	private := viewer != nil && (viewer.UserID == guide.UserID || viewer.HasRole(models.RoleAdmin))
	if !guide.IsVerified() && !private {
		return nil, mapGuideErr(database.ErrNotFound)
	}

	resp := models.NewGuideResponse(guide, private)
	if user, err := s.users.GetByID(ctx, guide.UserID); err == nil {
		resp.FullName = user.FullName
	}
	return resp, nil
}

// UpdateMyProfile edits the caller's professional details. The approval
// state is left untouched.
func (s *ProfileService) UpdateMyProfile(ctx context.Context, userID uuid.UUID, details GuideDetails) (*models.GuideResponse, error) {
	normalized, err := details.normalize()
	if err != nil {
		return nil, err
	}

	guide, err := s.guides.GetByUserID(ctx, userID)
	if err != nil {
		return nil, mapGuideErr(err)
	}

	normalized.applyTo(guide)
	if err := s.guides.UpdateProfile(ctx, guide); err != nil {
		return nil, mapGuideErr(err)
	}

	if guide.IsVerified() && s.cache != nil {
		if err := s.cache.Invalidate(ctx); err != nil {
			s.logger.WithError(err).Warn("Failed to invalidate search cache")
		}
	}

	s.logger.WithField("guide_id", guide.ID).Info("Guide profile updated")
	return models.NewGuideResponse(guide, true), nil
}
