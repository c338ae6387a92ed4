package handlers

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/morchidhub/guide-backend/internal/models"
	"github.com/morchidhub/guide-backend/internal/services"
	"github.com/sirupsen/logrus"
)

// ErrorResponse represents an error response
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
	Code    string `json:"code,omitempty"`
	Field   string `json:"field,omitempty"`
}

// respondError writes the status and body matching err's domain type.
// Unknown errors are logged and reported as 500 without detail.
func respondError(c *gin.Context, logger logrus.FieldLogger, err error) {
	var (
		validationErr *services.ValidationError
		authnErr      *services.AuthenticationError
		authzErr      *services.AuthorizationError
		notFoundErr   *services.NotFoundError
		conflictErr   *services.ConflictError
		stateErr      *services.InvalidStateError
		rateLimitErr  *services.RateLimitError
	)

	switch {
	case errors.As(err, &validationErr):
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "validation_error",
			Message: validationErr.Message,
			Code:    "VALIDATION_ERROR",
			Field:   validationErr.Field,
		})
	case errors.As(err, &authnErr):
		c.JSON(http.StatusUnauthorized, ErrorResponse{
			Error:   "unauthorized",
			Message: authnErr.Message,
			Code:    "AUTHENTICATION_FAILED",
		})
	case errors.As(err, &authzErr):
		c.JSON(http.StatusForbidden, ErrorResponse{
			Error:   "forbidden",
			Message: authzErr.Message,
			Code:    "FORBIDDEN",
		})
	case errors.As(err, &notFoundErr):
		c.JSON(http.StatusNotFound, ErrorResponse{
			Error:   "not_found",
			Message: notFoundErr.Error(),
			Code:    notFoundErr.Code,
		})
	case errors.As(err, &conflictErr):
		c.JSON(http.StatusConflict, ErrorResponse{
			Error:   "conflict",
			Message: conflictErr.Message,
			Code:    conflictErr.Code,
		})
	case errors.As(err, &stateErr):
		c.JSON(http.StatusConflict, ErrorResponse{
			Error:   "invalid_state",
			Message: stateErr.Error(),
			Code:    "INVALID_STATE",
		})
	case errors.As(err, &rateLimitErr):
		retryIn := int(time.Until(rateLimitErr.RetryAfter).Seconds())
		if retryIn < 1 {
			retryIn = 1
		}
		c.Header("Retry-After", strconv.Itoa(retryIn))
		c.JSON(http.StatusTooManyRequests, gin.H{
			"error":       "rate_limit_exceeded",
			"message":     rateLimitErr.Message,
			"code":        "RATE_LIMIT_EXCEEDED",
			"retry_after": rateLimitErr.RetryAfter,
			"type":        rateLimitErr.Type,
		})
	default:
		logger.WithError(err).WithFields(logrus.Fields{
			"method": c.Request.Method,
			"path":   c.FullPath(),
		}).Error("Request failed")
		c.JSON(http.StatusInternalServerError, ErrorResponse{
			Error:   "internal_error",
			Message: "An unexpected error occurred",
			Code:    "INTERNAL_ERROR",
		})
	}
}

func respondBindError(c *gin.Context, err error) {
	c.JSON(http.StatusBadRequest, ErrorResponse{
		Error:   "validation_error",
		Message: "Invalid request body: " + err.Error(),
		Code:    "VALIDATION_ERROR",
	})
}

// uuidParam parses the named path parameter, writing a 400 when it is not a UUID
func uuidParam(c *gin.Context, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param(name))
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "validation_error",
			Message: "Invalid " + name,
			Code:    "INVALID_ID",
			Field:   name,
		})
		return uuid.Nil, false
	}
	return id, true
}

// pageParams reads limit and offset query parameters. Missing values take the
// defaults and out-of-range values are clamped.
func pageParams(c *gin.Context) (limit, offset int, ok bool) {
	limit, err := strconv.Atoi(c.DefaultQuery("limit", strconv.Itoa(models.DefaultPageLimit)))
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error: "validation_error", Message: "limit must be an integer", Code: "VALIDATION_ERROR", Field: "limit",
		})
		return 0, 0, false
	}
	offset, err = strconv.Atoi(c.DefaultQuery("offset", "0"))
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error: "validation_error", Message: "offset must be an integer", Code: "VALIDATION_ERROR", Field: "offset",
		})
		return 0, 0, false
	}
	limit, offset = models.ClampPage(limit, offset)
	return limit, offset, true
}
