package handlers

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/morchidhub/guide-backend/internal/middleware"
	"github.com/morchidhub/guide-backend/internal/models"
	"github.com/morchidhub/guide-backend/internal/services"
	"github.com/sirupsen/logrus"
)

// GuideHandler serves guide profiles and the verification upload
type GuideHandler struct {
	verificationService *services.VerificationService
	profileService      *services.ProfileService
	audit               auditTrail
	maxUploadBytes      int64
	logger              logrus.FieldLogger
}

// NewGuideHandler creates a new guide handler. auditService may be nil.
func NewGuideHandler(
	verificationService *services.VerificationService,
	profileService *services.ProfileService,
	auditService *services.AuditService,
	maxUploadBytes int64,
	logger logrus.FieldLogger,
) *GuideHandler {
	return &GuideHandler{
		verificationService: verificationService,
		profileService:      profileService,
		audit:               auditTrail{service: auditService, logger: logger},
		maxUploadBytes:      maxUploadBytes,
		logger:              logger,
	}
}

// GetGuide handles GET /api/v1/guides/:id
func (h *GuideHandler) GetGuide(c *gin.Context) {
	guideID, ok := uuidParam(c, "id")
	if !ok {
		return
	}

	var viewer *services.Caller
	if userCtx, exists := middleware.GetUserContext(c); exists {
		caller := userCtx.Caller()
		viewer = &caller
	}

	guide, err := h.profileService.GetGuideProfile(c.Request.Context(), guideID, viewer)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, guide)
}

// UpdateMyProfile handles PUT /api/v1/guides/me
func (h *GuideHandler) UpdateMyProfile(c *gin.Context) {
	userCtx := middleware.MustGetUserContext(c)

	var req services.GuideDetails
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	guide, err := h.profileService.UpdateMyProfile(c.Request.Context(), userCtx.UserID, req)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Profile updated successfully",
		"guide":   guide,
	})
}

// SubmitVerification handles POST /api/v1/guides/:id/verification.
// Multipart form: cine_number, license_number, has_official_license and the
// files profile_photo, license_photo, cine_photo.
func (h *GuideHandler) SubmitVerification(c *gin.Context) {
	userCtx := middleware.MustGetUserContext(c)

	guideID, ok := uuidParam(c, "id")
	if !ok {
		return
	}

	hasLicense, err := strconv.ParseBool(c.DefaultPostForm("has_official_license", "false"))
	if err != nil {
		respondError(c, h.logger, &services.ValidationError{Field: "has_official_license", Message: "Must be true or false"})
		return
	}

	docs := make(map[models.DocumentKind][]byte, len(models.RequiredDocuments))
	for _, kind := range models.RequiredDocuments {
		fh, err := c.FormFile(string(kind))
		if err != nil {
			if errors.Is(err, http.ErrMissingFile) {
				continue
			}
			respondBindError(c, err)
			return
		}
		data, err := readUpload(fh, h.maxUploadBytes)
		if err != nil {
			respondError(c, h.logger, &services.ValidationError{Field: string(kind), Message: err.Error()})
			return
		}
		docs[kind] = data
	}

	guide, err := h.verificationService.SubmitVerification(c.Request.Context(), guideID, userCtx.UserID, services.VerificationSubmission{
		CINENumber:         c.PostForm("cine_number"),
		LicenseNumber:      c.PostForm("license_number"),
		HasOfficialLicense: hasLicense,
		Documents:          docs,
	})
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	client := requestClient(c)
	h.audit.record(c.Request.Context(), "LogVerificationSubmitted", func(ctx context.Context, s *services.AuditService) error {
		return s.LogVerificationSubmitted(ctx, userCtx.UserID, guideID, client.ip, client.userAgent)
	})

	c.JSON(http.StatusOK, gin.H{
		"message": "Documents submitted. Your profile is awaiting admin review.",
		"guide":   models.NewGuideResponse(guide, true),
	})
}

// readUpload reads at most limit+1 bytes so oversized files are detected
// without buffering them whole
func readUpload(fh *multipart.FileHeader, limit int64) ([]byte, error) {
	f, err := fh.Open()
	if err != nil {
		return nil, fmt.Errorf("failed to open upload: %w", err)
	}
	defer f.Close()

	var r io.Reader = f
	if limit > 0 {
		r = io.LimitReader(f, limit+1)
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read upload: %w", err)
	}
	return data, nil
}
