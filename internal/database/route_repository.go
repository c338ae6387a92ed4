package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/morchidhub/guide-backend/internal/models"
)

const routeColumns = `
	id, guide_id, coordinates, start_lat, start_lng, end_lat, end_lng,
	distance_km, duration_min, start_address, end_address, is_active,
	created_at, updated_at`

// RouteRepository handles guide route database operations
type RouteRepository struct {
	db DB
}

// NewRouteRepository creates a new route repository
func NewRouteRepository(db DB) *RouteRepository {
	return &RouteRepository{db: db}
}

// ReplaceActive deactivates the guide's current route and inserts route as
// the active one. The guide row is locked so replacements serialize.
func (r *RouteRepository) ReplaceActive(ctx context.Context, route *models.GuideRoute) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	var locked uuid.UUID
	if err := tx.QueryRowContext(ctx, `SELECT id FROM guides WHERE id = $1 FOR UPDATE`, route.GuideID).Scan(&locked); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return ErrNotFound
		}
		return fmt.Errorf("failed to lock guide: %w", err)
	}

	if _, err := tx.ExecContext(ctx, `
		UPDATE guide_routes SET is_active = FALSE, updated_at = NOW()
		WHERE guide_id = $1 AND is_active`, route.GuideID); err != nil {
		return fmt.Errorf("failed to deactivate previous route: %w", err)
	}

	now := time.Now()
	if route.ID == uuid.Nil {
		route.ID = uuid.New()
	}
	route.IsActive = true
	route.CreatedAt = now
	route.UpdatedAt = now

	_, err = tx.ExecContext(ctx, `
		INSERT INTO guide_routes (
			id, guide_id, coordinates, start_lat, start_lng, end_lat, end_lng,
			distance_km, duration_min, start_address, end_address, is_active,
			created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, TRUE, $12, $13)`,
		route.ID, route.GuideID, route.Coordinates,
		route.StartLat, route.StartLng, route.EndLat, route.EndLng,
		route.DistanceKm, route.DurationMin, route.StartAddress, route.EndAddress,
		route.CreatedAt, route.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert route: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit route: %w", err)
	}
	return nil
}

// GetActive returns the guide's active route
func (r *RouteRepository) GetActive(ctx context.Context, guideID uuid.UUID) (*models.GuideRoute, error) {
	var route models.GuideRoute
	err := r.db.GetContext(ctx, &route, `
		SELECT `+routeColumns+` FROM guide_routes
		WHERE guide_id = $1 AND is_active`, guideID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get active route: %w", err)
	}
	return &route, nil
}

// GetByID returns a route of any activity state
func (r *RouteRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.GuideRoute, error) {
	var route models.GuideRoute
	err := r.db.GetContext(ctx, &route, `SELECT `+routeColumns+` FROM guide_routes WHERE id = $1`, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get route: %w", err)
	}
	return &route, nil
}

// Deactivate switches off the guide's active route
func (r *RouteRepository) Deactivate(ctx context.Context, guideID uuid.UUID) error {
	result, err := r.db.ExecContext(ctx, `
		UPDATE guide_routes SET is_active = FALSE, updated_at = NOW()
		WHERE guide_id = $1 AND is_active`, guideID)
	if err != nil {
		return fmt.Errorf("failed to deactivate route: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}
