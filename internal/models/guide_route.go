package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Coordinate is a WGS84 point
type Coordinate struct {
	Lat float64 `json:"lat" binding:"gte=-90,lte=90"`
	Lng float64 `json:"lng" binding:"gte=-180,lte=180"`
}

// Coordinates is an ordered polyline stored as JSONB
type Coordinates []Coordinate

// Value implements the driver.Valuer interface
func (c Coordinates) Value() (driver.Value, error) {
	if c == nil {
		return "[]", nil
	}
	b, err := json.Marshal(c)
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

// Scan implements the sql.Scanner interface
func (c *Coordinates) Scan(src interface{}) error {
	if src == nil {
		*c = nil
		return nil
	}
	var data []byte
	switch v := src.(type) {
	case []byte:
		data = v
	case string:
		data = []byte(v)
	default:
		return fmt.Errorf("unsupported coordinates type %T", src)
	}
	return json.Unmarshal(data, c)
}

// GuideRoute is a guide's itinerary. A guide has at most one active route.
type GuideRoute struct {
	ID           uuid.UUID   `json:"id" db:"id"`
	GuideID      uuid.UUID   `json:"guide_id" db:"guide_id"`
	Coordinates  Coordinates `json:"coordinates" db:"coordinates"`
	StartLat     float64     `json:"start_lat" db:"start_lat"`
	StartLng     float64     `json:"start_lng" db:"start_lng"`
	EndLat       float64     `json:"end_lat" db:"end_lat"`
	EndLng       float64     `json:"end_lng" db:"end_lng"`
	DistanceKm   float64     `json:"distance_km" db:"distance_km"`
	DurationMin  float64     `json:"duration_min" db:"duration_min"`
	StartAddress NullString  `json:"start_address" db:"start_address"`
	EndAddress   NullString  `json:"end_address" db:"end_address"`
	IsActive     bool        `json:"is_active" db:"is_active"`
	CreatedAt    time.Time   `json:"created_at" db:"created_at"`
	UpdatedAt    time.Time   `json:"updated_at" db:"updated_at"`
}

// Start returns the first coordinate
func (r *GuideRoute) Start() Coordinate {
	return Coordinate{Lat: r.StartLat, Lng: r.StartLng}
}

// End returns the last coordinate
func (r *GuideRoute) End() Coordinate {
	return Coordinate{Lat: r.EndLat, Lng: r.EndLng}
}

// SaveGuideRouteRequest is the body of PUT /guides/me/route
type SaveGuideRouteRequest struct {
	Coordinates  []Coordinate `json:"coordinates" binding:"required,min=2,dive"`
	DistanceKm   float64      `json:"distance_km" binding:"required,gt=0"`
	DurationMin  float64      `json:"duration_min" binding:"required,gt=0"`
	StartAddress string       `json:"start_address" binding:"max=500"`
	EndAddress   string       `json:"end_address" binding:"max=500"`
}

// RouteProximity reports how far a point is from a route's endpoints
type RouteProximity struct {
	RouteID          uuid.UUID `json:"route_id"`
	DistanceToStartM float64   `json:"distance_to_start_m"`
	DistanceToEndM   float64   `json:"distance_to_end_m"`
	NearStart        bool      `json:"near_start"`
	NearEnd          bool      `json:"near_end"`
	ThresholdM       float64   `json:"threshold_m"`
}
