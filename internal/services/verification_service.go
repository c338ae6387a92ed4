package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/morchidhub/guide-backend/internal/config"
	"github.com/morchidhub/guide-backend/internal/database"
	"github.com/morchidhub/guide-backend/internal/models"
	"github.com/morchidhub/guide-backend/internal/storage"
	"github.com/morchidhub/guide-backend/pkg/validator"
	"github.com/sirupsen/logrus"
)

// GuideStore is the persistence the verification workflow needs
type GuideStore interface {
	GetByID(ctx context.Context, id uuid.UUID) (*models.GuideProfile, error)
	GetByUserID(ctx context.Context, userID uuid.UUID) (*models.GuideProfile, error)
	ListByStatus(ctx context.Context, status models.ApprovalStatus) ([]*models.GuideProfile, error)
	UpdateLocked(ctx context.Context, id uuid.UUID, fn database.GuideMutation) (*models.GuideProfile, error)
}

// CacheInvalidator drops cached search results
type CacheInvalidator interface {
	Invalidate(ctx context.Context) error
}

// VerificationSubmission is what a guide uploads to get verified
type VerificationSubmission struct {
	CINENumber         string
	LicenseNumber      string
	HasOfficialLicense bool
	Documents          map[models.DocumentKind][]byte
}

// VerificationService runs the guide approval state machine
type VerificationService struct {
	guides    GuideStore
	documents storage.DocumentStore
	cache     CacheInvalidator
	rules     config.VerificationConfig
	maxUpload int64
	logger    logrus.FieldLogger
	now       func() time.Time
}

// NewVerificationService creates a new verification service. cache may be nil.
func NewVerificationService(
	guides GuideStore,
	documents storage.DocumentStore,
	cache CacheInvalidator,
	rules config.VerificationConfig,
	maxUpload int64,
	logger logrus.FieldLogger,
) *VerificationService {
	return &VerificationService{
		guides:    guides,
		documents: documents,
		cache:     cache,
		rules:     rules,
		maxUpload: maxUpload,
		logger:    logger,
		now:       time.Now,
	}
}

// GetGuide returns a guide profile
func (s *VerificationService) GetGuide(ctx context.Context, guideID uuid.UUID) (*models.GuideProfile, error) {
	guide, err := s.guides.GetByID(ctx, guideID)
	if err != nil {
		return nil, mapGuideErr(err)
	}
	return guide, nil
}

// ListPending returns guides awaiting a decision, newest first
func (s *VerificationService) ListPending(ctx context.Context) ([]*models.GuideProfile, error) {
	return s.guides.ListByStatus(ctx, models.StatusPendingApproval)
}

// SubmitVerification stores identity documents for the caller's own guide
// profile. A pending guide stays pending, a rejected guide goes back to
// pending with its rejection reason cleared, an approved guide cannot resubmit.
func (s *VerificationService) SubmitVerification(ctx context.Context, guideID, callerID uuid.UUID, sub VerificationSubmission) (*models.GuideProfile, error) {
	guide, err := s.guides.GetByID(ctx, guideID)
	if err != nil {
		return nil, mapGuideErr(err)
	}
	if guide.UserID != callerID {
		return nil, &AuthorizationError{Message: "You can only submit documents for your own guide profile"}
	}
	if guide.Approval.Status() == models.StatusApproved {
		return nil, errAlreadyApproved()
	}

	cine, err := validator.ValidateCINE(sub.CINENumber)
	if err != nil {
		return nil, &ValidationError{Field: "cine_number", Message: "Format CINE invalide (ex: AB123456)"}
	}

	license := strings.TrimSpace(sub.LicenseNumber)
	if utf8.RuneCountInString(license) < s.rules.MinLicenseLength {
		return nil, &ValidationError{
			Field:   "license_number",
			Message: fmt.Sprintf("License number must be at least %d characters", s.rules.MinLicenseLength),
		}
	}

	images := make(map[models.DocumentKind]*storage.Image, len(models.RequiredDocuments))
	for _, kind := range models.RequiredDocuments {
		data, ok := sub.Documents[kind]
		if !ok || len(data) == 0 {
			return nil, &ValidationError{Field: string(kind), Message: "Document is required"}
		}
		img, err := storage.InspectImage(data, s.maxUpload)
		if err != nil {
			return nil, &ValidationError{Field: string(kind), Message: err.Error()}
		}
		images[kind] = img
	}

	stored := make(map[models.DocumentKind]string, len(images))
	for _, kind := range models.RequiredDocuments {
		img := images[kind]
		key := fmt.Sprintf("guides/%s/%s-%s%s", guide.ID, kind, uuid.NewString(), img.Extension)
		ref, err := s.documents.Save(ctx, key, img.Data, img.ContentType)
		if err != nil {
			s.discard(ctx, stored)
			return nil, fmt.Errorf("failed to store %s: %w", kind, err)
		}
		stored[kind] = ref
	}

	var previous models.VerificationDocuments
	updated, err := s.guides.UpdateLocked(ctx, guideID, func(g *models.GuideProfile) (bool, error) {
		if g.Approval.Status() == models.StatusApproved {
			return false, errAlreadyApproved()
		}

		previous = g.Documents
		now := s.now()
		g.CINENumber = cine
		g.LicenseNumber = license
		g.HasOfficialLicense = sub.HasOfficialLicense
		for kind, ref := range stored {
			g.Documents.Set(kind, ref)
		}
		g.DocumentsSubmittedAt = &now
		g.Approval = models.PendingApproval()
		return true, nil
	})
	if err != nil {
		s.discard(ctx, stored)
		return nil, mapGuideErr(err)
	}

	s.discardReplaced(ctx, previous, updated.Documents)

	s.logger.WithFields(logrus.Fields{
		"guide_id": guideID,
		"status":   updated.Approval.Status(),
	}).Info("Guide verification documents submitted")

	return updated, nil
}

// Approve moves a pending guide with complete documents to approved.
// Approving an approved guide is a no-op and reports changed=false.
func (s *VerificationService) Approve(ctx context.Context, guideID, adminID uuid.UUID) (guide *models.GuideProfile, changed bool, err error) {
	guide, err = s.guides.UpdateLocked(ctx, guideID, func(g *models.GuideProfile) (bool, error) {
		switch g.Approval.Status() {
		case models.StatusApproved:
			return false, nil
		case models.StatusRejected:
			return false, &InvalidStateError{
				From:    string(models.StatusRejected),
				Action:  "approve",
				Message: "Guide was rejected and must resubmit documents before approval",
			}
		}

		if !g.Documents.Complete() {
			return false, &InvalidStateError{
				From:    string(models.StatusPendingApproval),
				Action:  "approve",
				Message: "Guide has not submitted all verification documents",
			}
		}

		now := s.now()
		g.Approval = models.Approved()
		g.ReviewedBy = &adminID
		g.ReviewedAt = &now
		changed = true
		return true, nil
	})
	if err != nil {
		return nil, false, mapGuideErr(err)
	}

	if changed {
		s.invalidateSearch(ctx)
		s.logger.WithFields(logrus.Fields{
			"guide_id": guideID,
			"admin_id": adminID,
		}).Info("Guide approved")
	}

	return guide, changed, nil
}

// Reject moves a pending guide to rejected with a reason
func (s *VerificationService) Reject(ctx context.Context, guideID, adminID uuid.UUID, reason string) (*models.GuideProfile, error) {
	reason = strings.TrimSpace(reason)
	length := utf8.RuneCountInString(reason)
	if length < s.rules.MinRejectionReasonLength {
		return nil, &ValidationError{
			Field:   "reason",
			Message: fmt.Sprintf("Rejection reason must be at least %d characters", s.rules.MinRejectionReasonLength),
		}
	}
	if s.rules.MaxRejectionReasonLength > 0 && length > s.rules.MaxRejectionReasonLength {
		return nil, &ValidationError{
			Field:   "reason",
			Message: fmt.Sprintf("Rejection reason must be at most %d characters", s.rules.MaxRejectionReasonLength),
		}
	}

	guide, err := s.guides.UpdateLocked(ctx, guideID, func(g *models.GuideProfile) (bool, error) {
		if status := g.Approval.Status(); status != models.StatusPendingApproval {
			return false, &InvalidStateError{
				From:    string(status),
				Action:  "reject",
				Message: fmt.Sprintf("Only pending guides can be rejected (current status: %s)", status),
			}
		}

		now := s.now()
		g.Approval = models.Rejected(reason)
		g.ReviewedBy = &adminID
		g.ReviewedAt = &now
		return true, nil
	})
	if err != nil {
		return nil, mapGuideErr(err)
	}

	s.logger.WithFields(logrus.Fields{
		"guide_id": guideID,
		"admin_id": adminID,
	}).Info("Guide rejected")

	return guide, nil
}

func (s *VerificationService) discard(ctx context.Context, refs map[models.DocumentKind]string) {
	for kind, ref := range refs {
		if err := s.documents.Delete(ctx, ref); err != nil {
			s.logger.WithError(err).WithField("document", kind).Warn("Failed to remove orphaned document")
		}
	}
}

func (s *VerificationService) discardReplaced(ctx context.Context, before, after models.VerificationDocuments) {
	pairs := [][2]string{
		{before.ProfilePhotoURL, after.ProfilePhotoURL},
		{before.LicenseCardURL, after.LicenseCardURL},
		{before.CINECardURL, after.CINECardURL},
	}
	for _, p := range pairs {
		if p[0] == "" || p[0] == p[1] {
			continue
		}
		if err := s.documents.Delete(ctx, p[0]); err != nil {
			s.logger.WithError(err).Warn("Failed to remove replaced document")
		}
	}
}

func (s *VerificationService) invalidateSearch(ctx context.Context) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Invalidate(ctx); err != nil {
		s.logger.WithError(err).Warn("Failed to invalidate search cache")
	}
}

func errAlreadyApproved() error {
	return &InvalidStateError{
		From:    string(models.StatusApproved),
		Action:  "resubmit",
		Message: "Guide is already approved",
	}
}

func mapGuideErr(err error) error {
	if errors.Is(err, database.ErrNotFound) {
		return &NotFoundError{Entity: "guide", Code: "GUIDE_NOT_FOUND", Message: "Guide not found"}
	}
	return err
}
