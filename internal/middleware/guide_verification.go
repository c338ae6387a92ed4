package middleware

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/morchidhub/guide-backend/internal/database"
	"github.com/morchidhub/guide-backend/internal/models"
	"github.com/sirupsen/logrus"
)

// GuideIDKey holds the caller's guide profile id once RequireApprovedGuide passed
const GuideIDKey = "guide_id"

// GuideLookup finds the guide profile of a user
type GuideLookup interface {
	GetByUserID(ctx context.Context, userID uuid.UUID) (*models.GuideProfile, error)
}

// RequireApprovedGuide checks that the caller owns an approved guide profile.
// Must be used after AuthMiddleware.
func RequireApprovedGuide(guides GuideLookup) gin.HandlerFunc {
	return func(c *gin.Context) {
		userCtx, exists := GetUserContext(c)
		if !exists {
			abortUnauthorized(c, "unauthorized", "User context not found", "MISSING_USER_CONTEXT")
			return
		}

		guide, err := guides.GetByUserID(c.Request.Context(), userCtx.UserID)
		if err != nil {
			if errors.Is(err, database.ErrNotFound) {
				c.JSON(http.StatusForbidden, gin.H{
					"error":   "not_guide",
					"message": "Guide profile not found",
					"code":    "GUIDE_NOT_FOUND",
				})
				c.Abort()
				return
			}
			logrus.WithError(err).WithField("user_id", userCtx.UserID).Error("Failed to load guide for verification check")
			c.JSON(http.StatusInternalServerError, gin.H{
				"error":   "database_error",
				"message": "Failed to verify guide status",
				"code":    "INTERNAL_ERROR",
			})
			c.Abort()
			return
		}

		if !guide.IsVerified() {
			c.JSON(http.StatusForbidden, gin.H{
				"error":           "not_verified",
				"message":         "Your guide account is not approved yet. Please wait for admin approval.",
				"code":            "GUIDE_NOT_APPROVED",
				"approval_status": guide.Approval.Status(),
			})
			c.Abort()
			return
		}

		c.Set(GuideIDKey, guide.ID)
		c.Next()
	}
}
