package database

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/lib/pq"
	"github.com/morchidhub/guide-backend/internal/models"
)

// SearchRepository runs guide search queries
type SearchRepository struct {
	db DB
}

// NewSearchRepository creates a new search repository
func NewSearchRepository(db DB) *SearchRepository {
	return &SearchRepository{db: db}
}

// routeJoinRow carries the optional active route of a search hit
type routeJoinRow struct {
	models.GuideSearchRow
	RouteID           sql.NullString     `db:"route_id"`
	RouteCoordinates  models.Coordinates `db:"route_coordinates"`
	RouteStartLat     sql.NullFloat64    `db:"route_start_lat"`
	RouteStartLng     sql.NullFloat64    `db:"route_start_lng"`
	RouteEndLat       sql.NullFloat64    `db:"route_end_lat"`
	RouteEndLng       sql.NullFloat64    `db:"route_end_lng"`
	RouteDistanceKm   sql.NullFloat64    `db:"route_distance_km"`
	RouteDurationMin  sql.NullFloat64    `db:"route_duration_min"`
	RouteStartAddress models.NullString  `db:"route_start_address"`
	RouteEndAddress   models.NullString  `db:"route_end_address"`
	RouteCreatedAt    models.NullTime    `db:"route_created_at"`
	RouteUpdatedAt    models.NullTime    `db:"route_updated_at"`
}

func (r *routeJoinRow) route() (*models.GuideRoute, error) {
	if !r.RouteID.Valid {
		return nil, nil
	}
	route := &models.GuideRoute{
		GuideID:      r.ID,
		Coordinates:  r.RouteCoordinates,
		StartLat:     r.RouteStartLat.Float64,
		StartLng:     r.RouteStartLng.Float64,
		EndLat:       r.RouteEndLat.Float64,
		EndLng:       r.RouteEndLng.Float64,
		DistanceKm:   r.RouteDistanceKm.Float64,
		DurationMin:  r.RouteDurationMin.Float64,
		StartAddress: r.RouteStartAddress,
		EndAddress:   r.RouteEndAddress,
		IsActive:     true,
		CreatedAt:    r.RouteCreatedAt.Time,
		UpdatedAt:    r.RouteUpdatedAt.Time,
	}
	if err := route.ID.Scan(r.RouteID.String); err != nil {
		return nil, fmt.Errorf("invalid route id: %w", err)
	}
	return route, nil
}

// SearchGuides returns approved guides of active accounts matching filter,
// best rated first. The filter must already be normalized.
func (r *SearchRepository) SearchGuides(ctx context.Context, filter models.GuideSearchFilter) ([]models.GuideSearchResult, error) {
	conditions := []string{"g.approval_status = 'approved'", "u.is_active"}
	args := []interface{}{}
	argCount := 1

	addArg := func(v interface{}) string {
		args = append(args, v)
		placeholder := fmt.Sprintf("$%d", argCount)
		argCount++
		return placeholder
	}

	if filter.Query != "" {
		p := addArg("%" + escapeLike(filter.Query) + "%")
		conditions = append(conditions, fmt.Sprintf("(u.full_name ILIKE %s OR g.bio ILIKE %s)", p, p))
	}
	if filter.City != "" {
		conditions = append(conditions, fmt.Sprintf(
			"EXISTS (SELECT 1 FROM unnest(g.cities_covered) AS c WHERE LOWER(c) = LOWER(%s))", addArg(filter.City)))
	}
	if filter.Specialty != "" {
		conditions = append(conditions, fmt.Sprintf(
			"EXISTS (SELECT 1 FROM unnest(g.specialties) AS s WHERE LOWER(s) = LOWER(%s))", addArg(filter.Specialty)))
	}
	if filter.Language != "" {
		conditions = append(conditions, fmt.Sprintf(
			"EXISTS (SELECT 1 FROM unnest(g.languages) AS l WHERE LOWER(l) = LOWER(%s))", addArg(filter.Language)))
	}
	if filter.MinExperience != nil {
		conditions = append(conditions, fmt.Sprintf("g.years_of_experience >= %s", addArg(*filter.MinExperience)))
	}
	if filter.MinRating != nil {
		conditions = append(conditions, fmt.Sprintf("ROUND(g.average_rating::numeric, 1) >= %s::numeric", addArg(*filter.MinRating)))
	}
	if filter.MinEcoScore != nil {
		conditions = append(conditions, fmt.Sprintf("g.eco_score >= %s", addArg(*filter.MinEcoScore)))
	}

	selectCols := guideColumns + `, u.full_name`
	from := `FROM guides g JOIN users u ON u.id = g.user_id`

	if filter.WithRoutes {
		selectCols += `,
			rt.id::text AS route_id, rt.coordinates AS route_coordinates,
			rt.start_lat AS route_start_lat, rt.start_lng AS route_start_lng,
			rt.end_lat AS route_end_lat, rt.end_lng AS route_end_lng,
			rt.distance_km AS route_distance_km, rt.duration_min AS route_duration_min,
			rt.start_address AS route_start_address, rt.end_address AS route_end_address,
			rt.created_at AS route_created_at, rt.updated_at AS route_updated_at`
		from += ` LEFT JOIN guide_routes rt ON rt.guide_id = g.id AND rt.is_active`

		routeMatch := "rt.id IS NOT NULL"
		if filter.RouteQuery != "" {
			p := addArg("%" + escapeLike(filter.RouteQuery) + "%")
			routeMatch = fmt.Sprintf("(rt.start_address ILIKE %s OR rt.end_address ILIKE %s)", p, p)
		}
		if filter.IncludeWithoutRoute {
			conditions = append(conditions, fmt.Sprintf("(rt.id IS NULL OR %s)", routeMatch))
		} else {
			conditions = append(conditions, routeMatch)
		}
	}

	query := fmt.Sprintf(`
		SELECT %s
		%s
		WHERE %s
		ORDER BY g.average_rating DESC, g.years_of_experience DESC, g.id
		LIMIT %s OFFSET %s`,
		selectCols, from, strings.Join(conditions, " AND "),
		addArg(filter.Limit), addArg(filter.Offset))

	results := []models.GuideSearchResult{}

	if !filter.WithRoutes {
		rows := []models.GuideSearchRow{}
		if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
			return nil, fmt.Errorf("failed to search guides: %w", err)
		}
		for i := range rows {
			g, err := rows[i].ToProfile()
			if err != nil {
				return nil, err
			}
			resp := models.NewGuideResponse(g, false)
			resp.FullName = rows[i].FullName
			results = append(results, models.GuideSearchResult{GuideResponse: resp})
		}
		return results, nil
	}

	rows := []routeJoinRow{}
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("failed to search guides with routes: %w", err)
	}
	for i := range rows {
		g, err := rows[i].ToProfile()
		if err != nil {
			return nil, err
		}
		route, err := rows[i].route()
		if err != nil {
			return nil, err
		}
		resp := models.NewGuideResponse(g, false)
		resp.FullName = rows[i].FullName
		results = append(results, models.GuideSearchResult{GuideResponse: resp, Route: route})
	}
	return results, nil
}

type filterOptionsRow struct {
	Cities      pq.StringArray `db:"cities"`
	Specialties pq.StringArray `db:"specialties"`
	Languages   pq.StringArray `db:"languages"`
	TotalGuides int64          `db:"total_guides"`
}

// AvailableFilters returns the sorted distinct cities, specialties and
// languages of the guides search can return
func (r *SearchRepository) AvailableFilters(ctx context.Context) (*models.SearchFilterOptions, error) {
	query := `
		WITH visible AS (
			SELECT g.cities_covered, g.specialties, g.languages
			FROM guides g
			JOIN users u ON u.id = g.user_id
			WHERE g.approval_status = 'approved' AND u.is_active
		)
		SELECT
			COALESCE((SELECT array_agg(DISTINCT c ORDER BY c) FROM visible, unnest(visible.cities_covered) AS c), '{}') AS cities,
			COALESCE((SELECT array_agg(DISTINCT s ORDER BY s) FROM visible, unnest(visible.specialties) AS s), '{}') AS specialties,
			COALESCE((SELECT array_agg(DISTINCT l ORDER BY l) FROM visible, unnest(visible.languages) AS l), '{}') AS languages,
			(SELECT COUNT(*) FROM visible) AS total_guides`

	var row filterOptionsRow
	if err := r.db.GetContext(ctx, &row, query); err != nil {
		return nil, fmt.Errorf("failed to load search filters: %w", err)
	}

	nonNil := func(a pq.StringArray) []string {
		if a == nil {
			return []string{}
		}
		return []string(a)
	}
	return &models.SearchFilterOptions{
		Cities:      nonNil(row.Cities),
		Specialties: nonNil(row.Specialties),
		Languages:   nonNil(row.Languages),
		TotalGuides: row.TotalGuides,
	}, nil
}

func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}
