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

// UserLookup loads the account behind a token
type UserLookup interface {
	GetByID(ctx context.Context, id uuid.UUID) (*models.User, error)
}

// RequireActiveUser rejects tokens whose account was deleted or deactivated
// after the token was issued. Must be used after AuthMiddleware.
func RequireActiveUser(users UserLookup) gin.HandlerFunc {
	return func(c *gin.Context) {
		userCtx, exists := GetUserContext(c)
		if !exists {
			abortUnauthorized(c, "unauthorized", "User context not found", "MISSING_USER_CONTEXT")
			return
		}

		user, err := users.GetByID(c.Request.Context(), userCtx.UserID)
		if err != nil {
			if errors.Is(err, database.ErrNotFound) {
				abortUnauthorized(c, "unauthorized", "User not found", "USER_NOT_FOUND")
				return
			}
			logrus.WithError(err).WithField("user_id", userCtx.UserID).Error("Failed to load user for status check")
			c.JSON(http.StatusInternalServerError, gin.H{
				"error":   "database_error",
				"message": "Failed to verify account status",
				"code":    "INTERNAL_ERROR",
			})
			c.Abort()
			return
		}

		if !user.IsActive {
			c.JSON(http.StatusForbidden, gin.H{
				"error":   "account_disabled",
				"message": "Your account has been deactivated",
				"code":    "ACCOUNT_DISABLED",
			})
			c.Abort()
			return
		}

		c.Next()
	}
}
