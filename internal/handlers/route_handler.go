package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/morchidhub/guide-backend/internal/middleware"
	"github.com/morchidhub/guide-backend/internal/models"
	"github.com/morchidhub/guide-backend/internal/services"
	"github.com/sirupsen/logrus"
)

// RouteHandler serves guide itineraries
type RouteHandler struct {
	routeService *services.RouteService
	logger       logrus.FieldLogger
}

// NewRouteHandler creates a new route handler
func NewRouteHandler(routeService *services.RouteService, logger logrus.FieldLogger) *RouteHandler {
	return &RouteHandler{routeService: routeService, logger: logger}
}

// SaveMyRoute handles PUT /api/v1/guides/me/route
func (h *RouteHandler) SaveMyRoute(c *gin.Context) {
	userCtx := middleware.MustGetUserContext(c)

	var req models.SaveGuideRouteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	route, err := h.routeService.SaveMyRoute(c.Request.Context(), userCtx.UserID, req)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Route saved successfully",
		"route":   route,
	})
}

// GetRoute handles GET /api/v1/guides/:id/route
func (h *RouteHandler) GetRoute(c *gin.Context) {
	guideID, ok := uuidParam(c, "id")
	if !ok {
		return
	}

	route, err := h.routeService.GetActiveRoute(c.Request.Context(), guideID)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, route)
}

// DeleteMyRoute handles DELETE /api/v1/guides/me/route
func (h *RouteHandler) DeleteMyRoute(c *gin.Context) {
	userCtx := middleware.MustGetUserContext(c)

	if err := h.routeService.DeleteMyRoute(c.Request.Context(), userCtx.UserID); err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Route deleted successfully"})
}

// Proximity handles GET /api/v1/guides/:id/route/proximity?lat=&lng=
func (h *RouteHandler) Proximity(c *gin.Context) {
	guideID, ok := uuidParam(c, "id")
	if !ok {
		return
	}

	lat, err := strconv.ParseFloat(c.Query("lat"), 64)
	if err != nil {
		respondError(c, h.logger, &services.ValidationError{Field: "lat", Message: "lat must be a number"})
		return
	}
	lng, err := strconv.ParseFloat(c.Query("lng"), 64)
	if err != nil {
		respondError(c, h.logger, &services.ValidationError{Field: "lng", Message: "lng must be a number"})
		return
	}

	proximity, err := h.routeService.Proximity(c.Request.Context(), guideID, lat, lng)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, proximity)
}
