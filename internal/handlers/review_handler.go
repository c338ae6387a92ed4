package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/morchidhub/guide-backend/internal/middleware"
	"github.com/morchidhub/guide-backend/internal/models"
	"github.com/morchidhub/guide-backend/internal/services"
	"github.com/sirupsen/logrus"
)

// ReviewHandler handles guide reviews
type ReviewHandler struct {
	reviewService *services.ReviewService
	audit         auditTrail
	logger        logrus.FieldLogger
}

// NewReviewHandler creates a new review handler. auditService may be nil.
func NewReviewHandler(reviewService *services.ReviewService, auditService *services.AuditService, logger logrus.FieldLogger) *ReviewHandler {
	return &ReviewHandler{
		reviewService: reviewService,
		audit:         auditTrail{service: auditService, logger: logger},
		logger:        logger,
	}
}

// CreateReviewRequest is the body of POST /api/v1/reviews. Rating bounds are
// checked by the service so that an out-of-range value gets a field error.
type CreateReviewRequest struct {
	GuideID string  `json:"guide_id" binding:"required,uuid"`
	Rating  int     `json:"rating"`
	Comment string  `json:"comment"`
	RouteID *string `json:"route_id" binding:"omitempty,uuid"`
}

// CreateReview handles POST /api/v1/reviews
func (h *ReviewHandler) CreateReview(c *gin.Context) {
	userCtx := middleware.MustGetUserContext(c)

	var req CreateReviewRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	input := services.ReviewInput{
		GuideID: uuid.MustParse(req.GuideID),
		Rating:  req.Rating,
		Comment: req.Comment,
	}
	if req.RouteID != nil {
		routeID := uuid.MustParse(*req.RouteID)
		input.RouteID = &routeID
	}

	review, err := h.reviewService.SubmitReview(c.Request.Context(), userCtx.Caller(), input)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	client := requestClient(c)
	h.audit.record(c.Request.Context(), "LogReview", func(ctx context.Context, s *services.AuditService) error {
		return s.LogReview(ctx, userCtx.UserID, &models.Review{
			ID:      review.ID,
			GuideID: review.GuideID,
			Rating:  review.Rating,
		}, false, client.ip, client.userAgent)
	})

	c.JSON(http.StatusCreated, review)
}

// ListGuideReviews handles GET /api/v1/guides/:id/reviews
func (h *ReviewHandler) ListGuideReviews(c *gin.Context) {
	guideID, ok := uuidParam(c, "id")
	if !ok {
		return
	}
	limit, offset, ok := pageParams(c)
	if !ok {
		return
	}

	resp, err := h.reviewService.ListReviews(c.Request.Context(), guideID, limit, offset)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// DeleteReview handles DELETE /api/v1/reviews/:id
func (h *ReviewHandler) DeleteReview(c *gin.Context) {
	userCtx := middleware.MustGetUserContext(c)

	reviewID, ok := uuidParam(c, "id")
	if !ok {
		return
	}

	review, err := h.reviewService.DeleteReview(c.Request.Context(), reviewID, userCtx.Caller())
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	client := requestClient(c)
	h.audit.record(c.Request.Context(), "LogReview", func(ctx context.Context, s *services.AuditService) error {
		return s.LogReview(ctx, userCtx.UserID, review, true, client.ip, client.userAgent)
	})

	c.JSON(http.StatusOK, gin.H{"message": "Review deleted successfully"})
}
