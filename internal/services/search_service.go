package services

import (
	"context"
	"fmt"
	"time"
	"unicode/utf8"

	"github.com/morchidhub/guide-backend/internal/models"
	"github.com/sirupsen/logrus"
)

// Free text query bounds, in runes
const (
	MinSearchQueryLength = 2
	MaxSearchQueryLength = 100
)

// filtersCacheKey cannot collide with GuideSearchFilter.CacheKey, which always contains "|"
const filtersCacheKey = "filters"

// GuideSearcher runs search queries against the database
type GuideSearcher interface {
	SearchGuides(ctx context.Context, filter models.GuideSearchFilter) ([]models.GuideSearchResult, error)
	AvailableFilters(ctx context.Context) (*models.SearchFilterOptions, error)
}

// SearchCache stores search responses by filter key
type SearchCache interface {
	Get(ctx context.Context, key string, dest interface{}) (bool, error)
	Set(ctx context.Context, key string, value interface{}) error
}

// SearchService handles guide discovery
type SearchService struct {
	repo   GuideSearcher
	cache  SearchCache
	logger logrus.FieldLogger
}

// NewSearchService creates a new search service. cache may be nil.
func NewSearchService(repo GuideSearcher, cache SearchCache, logger logrus.FieldLogger) *SearchService {
	return &SearchService{
		repo:   repo,
		cache:  cache,
		logger: logger,
	}
}

// SearchGuides returns approved guides matching filter, best rated first
func (s *SearchService) SearchGuides(ctx context.Context, filter models.GuideSearchFilter) (*models.GuideSearchResponse, error) {
	filter.WithRoutes = false
	filter.RouteQuery = ""
	filter.IncludeWithoutRoute = false
	return s.search(ctx, filter)
}

// SearchGuidesWithRoutes is SearchGuides with each guide's active route
// attached. Guides without a route are dropped unless IncludeWithoutRoute is set.
func (s *SearchService) SearchGuidesWithRoutes(ctx context.Context, filter models.GuideSearchFilter) (*models.GuideSearchResponse, error) {
	filter.WithRoutes = true
	return s.search(ctx, filter)
}

func (s *SearchService) search(ctx context.Context, filter models.GuideSearchFilter) (*models.GuideSearchResponse, error) {
	startTime := time.Now()

	filter.Normalize()
	if err := validateSearchFilter(filter); err != nil {
		return nil, err
	}

	key := filter.CacheKey()
	if s.cache != nil {
		var cached models.GuideSearchResponse
		hit, err := s.cache.Get(ctx, key, &cached)
		if err != nil {
			s.logger.WithError(err).Warn("Search cache read failed")
		} else if hit {
			return &cached, nil
		}
	}

	results, err := s.repo.SearchGuides(ctx, filter)
	if err != nil {
		s.logger.WithError(err).Error("Error searching guides")
		return nil, fmt.Errorf("error searching guides: %w", err)
	}

	response := &models.GuideSearchResponse{
		Results: results,
		Count:   len(results),
		Limit:   filter.Limit,
		Offset:  filter.Offset,
	}

	if s.cache != nil {
		if err := s.cache.Set(ctx, key, response); err != nil {
			s.logger.WithError(err).Warn("Search cache write failed")
		}
	}

	s.logger.WithFields(logrus.Fields{
		"q":           filter.Query,
		"city":        filter.City,
		"with_routes": filter.WithRoutes,
		"results":     len(results),
		"response_ms": time.Since(startTime).Milliseconds(),
	}).Debug("Guide search completed")

	return response, nil
}

// AvailableFilters returns the cities, specialties and languages that
// currently match at least one searchable guide
func (s *SearchService) AvailableFilters(ctx context.Context) (*models.SearchFilterOptions, error) {
	if s.cache != nil {
		var cached models.SearchFilterOptions
		hit, err := s.cache.Get(ctx, filtersCacheKey, &cached)
		if err != nil {
			s.logger.WithError(err).Warn("Search cache read failed")
		} else if hit {
			return &cached, nil
		}
	}

	opts, err := s.repo.AvailableFilters(ctx)
	if err != nil {
		s.logger.WithError(err).Error("Error loading search filters")
		return nil, fmt.Errorf("error loading search filters: %w", err)
	}

	if s.cache != nil {
		if err := s.cache.Set(ctx, filtersCacheKey, opts); err != nil {
			s.logger.WithError(err).Warn("Search cache write failed")
		}
	}
	return opts, nil
}

func validateSearchFilter(f models.GuideSearchFilter) error {
	if f.Query != "" {
		n := utf8.RuneCountInString(f.Query)
		if n < MinSearchQueryLength || n > MaxSearchQueryLength {
			return &ValidationError{Field: "q", Message: "Search text must be between 2 and 100 characters"}
		}
	}
	if f.Specialty != "" && !isAllowedSpecialty(f.Specialty) {
		return &ValidationError{Field: "specialty", Message: "Unknown specialty"}
	}
	if f.MinExperience != nil && *f.MinExperience < 0 {
		return &ValidationError{Field: "min_experience", Message: "Minimum experience cannot be negative"}
	}
	if f.MinRating != nil && (*f.MinRating < models.MinRating || *f.MinRating > models.MaxRating) {
		return &ValidationError{Field: "min_rating", Message: "Minimum rating must be between 1 and 5"}
	}
	if f.MinEcoScore != nil && *f.MinEcoScore < 0 {
		return &ValidationError{Field: "min_eco_score", Message: "Minimum eco score cannot be negative"}
	}
	if utf8.RuneCountInString(f.RouteQuery) > MaxSearchQueryLength {
		return &ValidationError{Field: "route_query", Message: "Route search text must be at most 100 characters"}
	}
	return nil
}
