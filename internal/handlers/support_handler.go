package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/morchidhub/guide-backend/internal/middleware"
	"github.com/morchidhub/guide-backend/internal/models"
	"github.com/morchidhub/guide-backend/internal/services"
	"github.com/sirupsen/logrus"
)

// SupportHandler accepts support messages from any authenticated user
type SupportHandler struct {
	supportService *services.SupportService
	logger         logrus.FieldLogger
}

// NewSupportHandler creates a new support handler
func NewSupportHandler(supportService *services.SupportService, logger logrus.FieldLogger) *SupportHandler {
	return &SupportHandler{supportService: supportService, logger: logger}
}

// CreateMessage handles POST /api/v1/support/messages
func (h *SupportHandler) CreateMessage(c *gin.Context) {
	userCtx := middleware.MustGetUserContext(c)

	var req models.CreateSupportMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	msg, err := h.supportService.Submit(c.Request.Context(), userCtx.UserID, req.Subject, req.Message)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"message": "Your message has been sent to our team",
		"data":    msg,
	})
}
