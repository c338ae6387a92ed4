package handlers

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/morchidhub/guide-backend/internal/middleware"
	"github.com/morchidhub/guide-backend/internal/models"
	"github.com/morchidhub/guide-backend/internal/services"
	"github.com/sirupsen/logrus"
)

// AuthHandler handles authentication-related HTTP requests
type AuthHandler struct {
	authService    *services.AuthService
	profileService *services.ProfileService
	audit          auditTrail
	logger         logrus.FieldLogger
}

// NewAuthHandler creates a new auth handler. auditService may be nil.
func NewAuthHandler(
	authService *services.AuthService,
	profileService *services.ProfileService,
	auditService *services.AuditService,
	logger logrus.FieldLogger,
) *AuthHandler {
	return &AuthHandler{
		authService:    authService,
		profileService: profileService,
		audit:          auditTrail{service: auditService, logger: logger},
		logger:         logger,
	}
}

// RegisterRequest represents the registration body
type RegisterRequest struct {
	FullName     string                 `json:"full_name" binding:"required"`
	Email        string                 `json:"email" binding:"required"`
	Phone        string                 `json:"phone" binding:"required"`
	DateOfBirth  string                 `json:"date_of_birth" binding:"required"`
	Role         string                 `json:"role" binding:"required,oneof=tourist guide"`
	Password     string                 `json:"password" binding:"required"`
	GuideDetails *services.GuideDetails `json:"guide_details"`
}

// RegisterResponse represents the response after registration
type RegisterResponse struct {
	Message string                `json:"message"`
	User    *models.User          `json:"user"`
	Guide   *models.GuideResponse `json:"guide,omitempty"`
}

// LoginRequest represents the login body
type LoginRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// RefreshTokenRequest carries a refresh token
type RefreshTokenRequest struct {
	RefreshToken string `json:"refresh_token" binding:"required"`
}

// Register handles POST /api/v1/auth/register
func (h *AuthHandler) Register(c *gin.Context) {
	var req RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	user, guide, err := h.authService.Register(c.Request.Context(), services.RegisterInput{
		FullName:    req.FullName,
		Email:       req.Email,
		Phone:       req.Phone,
		DateOfBirth: req.DateOfBirth,
		Role:        req.Role,
		Password:    req.Password,
		Guide:       req.GuideDetails,
	})
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	resp := RegisterResponse{Message: "Account created successfully", User: user}
	if guide != nil {
		resp.Guide = models.NewGuideResponse(guide, true)
		resp.Guide.FullName = user.FullName
		resp.Message = "Guide account created. Submit your verification documents to get approved."
	}
	c.JSON(http.StatusCreated, resp)
}

// Login handles POST /api/v1/auth/login
func (h *AuthHandler) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	client := requestClient(c)
	pair, err := h.authService.Login(c.Request.Context(), req.Email, req.Password, services.ClientInfo{
		IPAddress: client.ip,
		UserAgent: client.userAgent,
	})
	if err != nil {
		var rateLimitErr *services.RateLimitError
		var authnErr *services.AuthenticationError
		switch {
		case errors.As(err, &rateLimitErr):
			h.audit.record(c.Request.Context(), "LogRateLimitViolation", func(ctx context.Context, s *services.AuditService) error {
				return s.LogRateLimitViolation(ctx, req.Email, client.ip, client.userAgent, rateLimitErr.Type, rateLimitErr.RetryAfter)
			})
		case errors.As(err, &authnErr):
			h.audit.record(c.Request.Context(), "LogLogin", func(ctx context.Context, s *services.AuditService) error {
				return s.LogLogin(ctx, nil, req.Email, client.ip, client.userAgent, false, authnErr.Message)
			})
		}
		respondError(c, h.logger, err)
		return
	}

	h.audit.record(c.Request.Context(), "LogLogin", func(ctx context.Context, s *services.AuditService) error {
		return s.LogLogin(ctx, &pair.User.ID, pair.User.Email, client.ip, client.userAgent, true, "")
	})

	c.JSON(http.StatusOK, pair)
}

// RefreshToken handles POST /api/v1/auth/refresh
func (h *AuthHandler) RefreshToken(c *gin.Context) {
	var req RefreshTokenRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	pair, err := h.authService.Refresh(c.Request.Context(), req.RefreshToken)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	client := requestClient(c)
	h.audit.record(c.Request.Context(), "LogTokenRefresh", func(ctx context.Context, s *services.AuditService) error {
		return s.LogTokenRefresh(ctx, pair.User.ID, client.ip, client.userAgent)
	})

	c.JSON(http.StatusOK, pair)
}

// Logout handles POST /api/v1/auth/logout
func (h *AuthHandler) Logout(c *gin.Context) {
	userCtx := middleware.MustGetUserContext(c)

	var req RefreshTokenRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	if err := h.authService.Logout(c.Request.Context(), req.RefreshToken); err != nil {
		respondError(c, h.logger, err)
		return
	}

	client := requestClient(c)
	h.audit.record(c.Request.Context(), "LogLogout", func(ctx context.Context, s *services.AuditService) error {
		return s.LogLogout(ctx, userCtx.UserID, client.ip, client.userAgent)
	})

	c.JSON(http.StatusOK, gin.H{"message": "Logged out successfully"})
}

// Me handles GET /api/v1/me
func (h *AuthHandler) Me(c *gin.Context) {
	userCtx := middleware.MustGetUserContext(c)

	me, err := h.profileService.GetMe(c.Request.Context(), userCtx.UserID)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, me)
}
