package handlers

import (
	"context"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/morchidhub/guide-backend/internal/middleware"
	"github.com/morchidhub/guide-backend/internal/models"
	"github.com/morchidhub/guide-backend/internal/services"
	"github.com/sirupsen/logrus"
)

// AdminHandler handles admin-related HTTP requests
type AdminHandler struct {
	adminService        *services.AdminService
	verificationService *services.VerificationService
	profileService      *services.ProfileService
	supportService      *services.SupportService
	audit               auditTrail
	logger              logrus.FieldLogger
}

// NewAdminHandler creates a new admin handler. auditService may be nil.
func NewAdminHandler(
	adminService *services.AdminService,
	verificationService *services.VerificationService,
	profileService *services.ProfileService,
	supportService *services.SupportService,
	auditService *services.AuditService,
	logger logrus.FieldLogger,
) *AdminHandler {
	return &AdminHandler{
		adminService:        adminService,
		verificationService: verificationService,
		profileService:      profileService,
		supportService:      supportService,
		audit:               auditTrail{service: auditService, logger: logger},
		logger:              logger,
	}
}

// RejectGuideRequest is the body of PUT /admin/guides/:id/reject
type RejectGuideRequest struct {
	Reason string `json:"reason" binding:"required"`
}

// ===================================================================
// GUIDE VERIFICATION
// ===================================================================

// GetPendingGuides handles GET /api/v1/admin/guides/pending
func (h *AdminHandler) GetPendingGuides(c *gin.Context) {
	guides, err := h.verificationService.ListPending(c.Request.Context())
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	resp := make([]*models.GuideResponse, 0, len(guides))
	for _, g := range guides {
		resp = append(resp, models.NewGuideResponse(g, true))
	}
	c.JSON(http.StatusOK, gin.H{"guides": resp, "count": len(resp)})
}

// GetGuideDetails handles GET /api/v1/admin/guides/:id
func (h *AdminHandler) GetGuideDetails(c *gin.Context) {
	userCtx := middleware.MustGetUserContext(c)

	guideID, ok := uuidParam(c, "id")
	if !ok {
		return
	}

	admin := userCtx.Caller()
	guide, err := h.profileService.GetGuideProfile(c.Request.Context(), guideID, &admin)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, guide)
}

// ApproveGuide handles PUT /api/v1/admin/guides/:id/approve
func (h *AdminHandler) ApproveGuide(c *gin.Context) {
	userCtx := middleware.MustGetUserContext(c)

	guideID, ok := uuidParam(c, "id")
	if !ok {
		return
	}

	guide, changed, err := h.verificationService.Approve(c.Request.Context(), guideID, userCtx.UserID)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	message := "Guide already approved"
	if changed {
		message = "Guide approved successfully"
		client := requestClient(c)
		h.audit.record(c.Request.Context(), "LogGuideDecision", func(ctx context.Context, s *services.AuditService) error {
			return s.LogGuideDecision(ctx, userCtx.UserID, guideID, models.StatusApproved, "", client.ip, client.userAgent)
		})
	}

	c.JSON(http.StatusOK, gin.H{
		"message": message,
		"data":    models.NewGuideResponse(guide, true),
	})
}

// RejectGuide handles PUT /api/v1/admin/guides/:id/reject
func (h *AdminHandler) RejectGuide(c *gin.Context) {
	userCtx := middleware.MustGetUserContext(c)

	guideID, ok := uuidParam(c, "id")
	if !ok {
		return
	}

	var req RejectGuideRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	guide, err := h.verificationService.Reject(c.Request.Context(), guideID, userCtx.UserID, req.Reason)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	reason, _ := guide.Approval.RejectionReason()
	client := requestClient(c)
	h.audit.record(c.Request.Context(), "LogGuideDecision", func(ctx context.Context, s *services.AuditService) error {
		return s.LogGuideDecision(ctx, userCtx.UserID, guideID, models.StatusRejected, reason, client.ip, client.userAgent)
	})

	c.JSON(http.StatusOK, gin.H{
		"message": "Guide rejected",
		"data":    models.NewGuideResponse(guide, true),
	})
}

// ===================================================================
// USERS
// ===================================================================

// ListUsers handles GET /api/v1/admin/users?role=
func (h *AdminHandler) ListUsers(c *gin.Context) {
	users, err := h.adminService.ListUsers(c.Request.Context(), c.Query("role"))
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"users": users, "count": len(users)})
}

// ToggleUserStatus handles PUT /api/v1/admin/users/:id/toggle-status
func (h *AdminHandler) ToggleUserStatus(c *gin.Context) {
	userCtx := middleware.MustGetUserContext(c)

	userID, ok := uuidParam(c, "id")
	if !ok {
		return
	}

	user, err := h.adminService.ToggleUserStatus(c.Request.Context(), userCtx.UserID, userID)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	client := requestClient(c)
	h.audit.record(c.Request.Context(), "LogUserStatusChange", func(ctx context.Context, s *services.AuditService) error {
		return s.LogUserStatusChange(ctx, userCtx.UserID, userID, user.IsActive, client.ip, client.userAgent)
	})

	c.JSON(http.StatusOK, gin.H{
		"message": "User status updated",
		"user":    user,
	})
}

// GetUserAuditLogs handles GET /api/v1/admin/users/:id/audit-logs
func (h *AdminHandler) GetUserAuditLogs(c *gin.Context) {
	userID, ok := uuidParam(c, "id")
	if !ok {
		return
	}
	limit, _, ok := pageParams(c)
	if !ok {
		return
	}

	events, err := h.adminService.UserAuditLogs(c.Request.Context(), userID, limit)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"audit_logs": events, "count": len(events)})
}

// GetDashboardStats handles GET /api/v1/admin/stats
func (h *AdminHandler) GetDashboardStats(c *gin.Context) {
	stats, err := h.adminService.Stats(c.Request.Context())
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, stats)
}

// ===================================================================
// SUPPORT INBOX
// ===================================================================

// ListSupportMessages handles GET /api/v1/admin/support/messages?resolved=
func (h *AdminHandler) ListSupportMessages(c *gin.Context) {
	var resolved *bool
	if raw := c.Query("resolved"); raw != "" {
		v, err := strconv.ParseBool(raw)
		if err != nil {
			respondError(c, h.logger, &services.ValidationError{Field: "resolved", Message: "Must be true or false"})
			return
		}
		resolved = &v
	}

	messages, err := h.supportService.List(c.Request.Context(), resolved)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"messages": messages, "count": len(messages)})
}

// ResolveSupportMessage handles PUT /api/v1/admin/support/messages/:id/resolve
func (h *AdminHandler) ResolveSupportMessage(c *gin.Context) {
	id, ok := uuidParam(c, "id")
	if !ok {
		return
	}

	msg, err := h.supportService.Resolve(c.Request.Context(), id)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Support message resolved", "data": msg})
}

// DeleteSupportMessage handles DELETE /api/v1/admin/support/messages/:id
func (h *AdminHandler) DeleteSupportMessage(c *gin.Context) {
	id, ok := uuidParam(c, "id")
	if !ok {
		return
	}

	if err := h.supportService.Delete(c.Request.Context(), id); err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Support message deleted"})
}
