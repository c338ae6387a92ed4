package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/morchidhub/guide-backend/internal/models"
	"github.com/morchidhub/guide-backend/internal/services"
	"github.com/sirupsen/logrus"
)

// SearchHandler handles HTTP requests for guide search
type SearchHandler struct {
	service *services.SearchService
	logger  logrus.FieldLogger
}

// NewSearchHandler creates a new search handler
func NewSearchHandler(service *services.SearchService, logger logrus.FieldLogger) *SearchHandler {
	return &SearchHandler{
		service: service,
		logger:  logger,
	}
}

// searchQuery is the query string of both search endpoints
type searchQuery struct {
	Query               string   `form:"q"`
	City                string   `form:"city"`
	Specialty           string   `form:"specialty"`
	Language            string   `form:"language"`
	MinExperience       *int     `form:"min_experience"`
	MinRating           *float64 `form:"min_rating"`
	MinEcoScore         *int     `form:"min_eco_score"`
	RouteQuery          string   `form:"route_query"`
	IncludeWithoutRoute bool     `form:"include_without_route"`
	Limit               int      `form:"limit"`
	Offset              int      `form:"offset"`
}

func (q searchQuery) filter() models.GuideSearchFilter {
	return models.GuideSearchFilter{
		Query:               q.Query,
		City:                q.City,
		Specialty:           q.Specialty,
		Language:            q.Language,
		MinExperience:       q.MinExperience,
		MinRating:           q.MinRating,
		MinEcoScore:         q.MinEcoScore,
		RouteQuery:          q.RouteQuery,
		IncludeWithoutRoute: q.IncludeWithoutRoute,
		Limit:               q.Limit,
		Offset:              q.Offset,
	}
}

// SearchGuides handles GET /api/v1/search/guides
func (h *SearchHandler) SearchGuides(c *gin.Context) {
	var q searchQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		respondBindError(c, err)
		return
	}

	resp, err := h.service.SearchGuides(c.Request.Context(), q.filter())
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// SearchGuidesWithRoutes handles GET /api/v1/search/guides-with-routes
func (h *SearchHandler) SearchGuidesWithRoutes(c *gin.Context) {
	var q searchQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		respondBindError(c, err)
		return
	}

	resp, err := h.service.SearchGuidesWithRoutes(c.Request.Context(), q.filter())
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// GetFilters handles GET /api/v1/search/filters
func (h *SearchHandler) GetFilters(c *gin.Context) {
	opts, err := h.service.AvailableFilters(c.Request.Context())
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, opts)
}
