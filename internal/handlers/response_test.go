package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/morchidhub/guide-backend/internal/services"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRespondError(t *testing.T) {
	gin.SetMode(gin.TestMode)

	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantCode   string
	}{
		{"Validation", &services.ValidationError{Field: "rating", Message: "bad"}, http.StatusBadRequest, "VALIDATION_ERROR"},
		{"Authentication", &services.AuthenticationError{Message: "Invalid email or password"}, http.StatusUnauthorized, "AUTHENTICATION_FAILED"},
		{"Authorization", &services.AuthorizationError{Message: "no"}, http.StatusForbidden, "FORBIDDEN"},
		{"Not Found", &services.NotFoundError{Entity: "guide", Code: "GUIDE_NOT_FOUND", Message: "Guide not found"}, http.StatusNotFound, "GUIDE_NOT_FOUND"},
		{"Conflict", &services.ConflictError{Code: "REVIEW_ALREADY_EXISTS", Message: "dup"}, http.StatusConflict, "REVIEW_ALREADY_EXISTS"},
		{"Invalid State", &services.InvalidStateError{From: "rejected", Action: "approve", Message: "no"}, http.StatusConflict, "INVALID_STATE"},
		{"Wrapped", fmt.Errorf("submit: %w", &services.ValidationError{Field: "cine_number", Message: "bad"}), http.StatusBadRequest, "VALIDATION_ERROR"},
		{"Unknown", errors.New("connection refused"), http.StatusInternalServerError, "INTERNAL_ERROR"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			c, _ := gin.CreateTestContext(w)
			c.Request = httptest.NewRequest("GET", "/", nil)

			respondError(c, quietLogger(), tt.err)

			assert.Equal(t, tt.wantStatus, w.Code)
			var body ErrorResponse
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
			assert.Equal(t, tt.wantCode, body.Code)
			if tt.wantStatus == http.StatusInternalServerError {
				assert.NotContains(t, body.Message, "connection refused")
			}
		})
	}

	t.Run("Validation Carries Field", func(t *testing.T) {
		w := httptest.NewRecorder()
		c, _ := gin.CreateTestContext(w)
		c.Request = httptest.NewRequest("GET", "/", nil)

		respondError(c, quietLogger(), &services.ValidationError{Field: "reason", Message: "too short"})

		var body ErrorResponse
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
		assert.Equal(t, "reason", body.Field)
		assert.Equal(t, "too short", body.Message)
	})

	t.Run("Rate Limit Sets Retry-After", func(t *testing.T) {
		w := httptest.NewRecorder()
		c, _ := gin.CreateTestContext(w)
		c.Request = httptest.NewRequest("POST", "/", nil)

		respondError(c, quietLogger(), &services.RateLimitError{
			Message:    "Too many login attempts",
			RetryAfter: time.Now().Add(90 * time.Second),
			Type:       "ip",
		})

		assert.Equal(t, http.StatusTooManyRequests, w.Code)
		retry, err := strconv.Atoi(w.Header().Get("Retry-After"))
		require.NoError(t, err)
		assert.InDelta(t, 90, retry, 2)

		var body map[string]interface{}
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
		assert.Equal(t, "RATE_LIMIT_EXCEEDED", body["code"])
		assert.Equal(t, "ip", body["type"])
	})
}

func TestPageParams(t *testing.T) {
	gin.SetMode(gin.TestMode)

	tests := []struct {
		query      string
		wantLimit  int
		wantOffset int
		wantOK     bool
	}{
		{"", 20, 0, true},
		{"?limit=5&offset=10", 5, 10, true},
		{"?limit=1000", 100, 0, true},
		{"?limit=0&offset=-3", 20, 0, true},
		{"?limit=abc", 0, 0, false},
		{"?offset=x", 0, 0, false},
	}

	for _, tt := range tests {
		t.Run("query "+tt.query, func(t *testing.T) {
			w := httptest.NewRecorder()
			c, _ := gin.CreateTestContext(w)
			c.Request = httptest.NewRequest("GET", "/"+tt.query, nil)

			limit, offset, ok := pageParams(c)
			assert.Equal(t, tt.wantOK, ok)
			if !ok {
				assert.Equal(t, http.StatusBadRequest, w.Code)
				return
			}
			assert.Equal(t, tt.wantLimit, limit)
			assert.Equal(t, tt.wantOffset, offset)
		})
	}
}
