package services

import (
	"context"
	"errors"
	"strings"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/morchidhub/guide-backend/internal/database"
	"github.com/morchidhub/guide-backend/internal/models"
	"github.com/morchidhub/guide-backend/pkg/geo"
	"github.com/sirupsen/logrus"
)

// MaxAddressLength bounds route start and end addresses, in runes
const MaxAddressLength = 500

// RouteStore persists guide routes
type RouteStore interface {
	GetActive(ctx context.Context, guideID uuid.UUID) (*models.GuideRoute, error)
	ReplaceActive(ctx context.Context, route *models.GuideRoute) error
	Deactivate(ctx context.Context, guideID uuid.UUID) error
}

// RouteService manages the single active route of each guide
type RouteService struct {
	routes          RouteStore
	guides          GuideProfileStore
	cache           CacheInvalidator
	proximityMeters float64
	logger          logrus.FieldLogger
}

// NewRouteService creates a new route service. cache may be nil.
func NewRouteService(routes RouteStore, guides GuideProfileStore, cache CacheInvalidator, proximityMeters float64, logger logrus.FieldLogger) *RouteService {
	return &RouteService{
		routes:          routes,
		guides:          guides,
		cache:           cache,
		proximityMeters: proximityMeters,
		logger:          logger,
	}
}

// SaveMyRoute replaces the caller's active route. Only approved guides have routes.
func (s *RouteService) SaveMyRoute(ctx context.Context, userID uuid.UUID, req models.SaveGuideRouteRequest) (*models.GuideRoute, error) {
	if len(req.Coordinates) < 2 {
		return nil, &ValidationError{Field: "coordinates", Message: "A route needs at least two points"}
	}
	for _, c := range req.Coordinates {
		if !geo.ValidLatLng(c.Lat, c.Lng) {
			return nil, &ValidationError{Field: "coordinates", Message: "Latitude must be within [-90, 90] and longitude within [-180, 180]"}
		}
	}
	if req.DistanceKm <= 0 {
		return nil, &ValidationError{Field: "distance_km", Message: "Distance must be positive"}
	}
	if req.DurationMin <= 0 {
		return nil, &ValidationError{Field: "duration_min", Message: "Duration must be positive"}
	}

	startAddress := strings.TrimSpace(req.StartAddress)
	endAddress := strings.TrimSpace(req.EndAddress)
	if utf8.RuneCountInString(startAddress) > MaxAddressLength || utf8.RuneCountInString(endAddress) > MaxAddressLength {
		return nil, &ValidationError{Field: "address", Message: "Addresses must be at most 500 characters"}
	}

	guide, err := s.guides.GetByUserID(ctx, userID)
	if err != nil {
		return nil, mapGuideErr(err)
	}
	if !guide.IsVerified() {
		return nil, &AuthorizationError{Message: "Only approved guides can publish a route"}
	}

	first := req.Coordinates[0]
	last := req.Coordinates[len(req.Coordinates)-1]
	route := &models.GuideRoute{
		GuideID:     guide.ID,
		Coordinates: models.Coordinates(req.Coordinates),
		StartLat:    first.Lat,
		StartLng:    first.Lng,
		EndLat:      last.Lat,
		EndLng:      last.Lng,
		DistanceKm:  req.DistanceKm,
		DurationMin: req.DurationMin,
	}
	if startAddress != "" {
		route.StartAddress = models.NewNullString(startAddress)
	}
	if endAddress != "" {
		route.EndAddress = models.NewNullString(endAddress)
	}

	if err := s.routes.ReplaceActive(ctx, route); err != nil {
		return nil, mapGuideErr(err)
	}

	s.invalidateSearch(ctx)
	s.logger.WithFields(logrus.Fields{
		"guide_id": guide.ID,
		"route_id": route.ID,
		"points":   len(route.Coordinates),
	}).Info("Guide route saved")

	return route, nil
}

// GetActiveRoute returns a guide's active route
func (s *RouteService) GetActiveRoute(ctx context.Context, guideID uuid.UUID) (*models.GuideRoute, error) {
	route, err := s.routes.GetActive(ctx, guideID)
	if err != nil {
		return nil, mapRouteErr(err)
	}
	return route, nil
}

// DeleteMyRoute deactivates the caller's active route
func (s *RouteService) DeleteMyRoute(ctx context.Context, userID uuid.UUID) error {
	guide, err := s.guides.GetByUserID(ctx, userID)
	if err != nil {
		return mapGuideErr(err)
	}
	if err := s.routes.Deactivate(ctx, guide.ID); err != nil {
		return mapRouteErr(err)
	}
	s.invalidateSearch(ctx)
	return nil
}

// Proximity measures the great-circle distance from a point to the start and
// end of a guide's active route
func (s *RouteService) Proximity(ctx context.Context, guideID uuid.UUID, lat, lng float64) (*models.RouteProximity, error) {
	if !geo.ValidLatLng(lat, lng) {
		return nil, &ValidationError{Field: "lat", Message: "Latitude must be within [-90, 90] and longitude within [-180, 180]"}
	}

	route, err := s.GetActiveRoute(ctx, guideID)
	if err != nil {
		return nil, err
	}

	toStart := geo.DistanceMeters(lat, lng, route.StartLat, route.StartLng)
	toEnd := geo.DistanceMeters(lat, lng, route.EndLat, route.EndLng)

	return &models.RouteProximity{
		RouteID:          route.ID,
		DistanceToStartM: toStart,
		DistanceToEndM:   toEnd,
		NearStart:        toStart <= s.proximityMeters,
		NearEnd:          toEnd <= s.proximityMeters,
		ThresholdM:       s.proximityMeters,
	}, nil
}

func (s *RouteService) invalidateSearch(ctx context.Context) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Invalidate(ctx); err != nil {
		s.logger.WithError(err).Warn("Failed to invalidate search cache")
	}
}

func mapRouteErr(err error) error {
	if errors.Is(err, database.ErrNotFound) {
		return &NotFoundError{Entity: "route", Code: "ROUTE_NOT_FOUND", Message: "No active route for this guide"}
	}
	return err
}
