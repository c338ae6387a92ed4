package models

import (
	"fmt"
	"strings"
)

// Search paging bounds
const (
	DefaultPageLimit = 20
	MaxPageLimit     = 100
)

// GuideSearchFilter holds the normalized search criteria
type GuideSearchFilter struct {
	Query         string   `json:"q,omitempty"`
	City          string   `json:"city,omitempty"`
	Specialty     string   `json:"specialty,omitempty"`
	Language      string   `json:"language,omitempty"`
	MinExperience *int     `json:"min_experience,omitempty"`
	MinRating     *float64 `json:"min_rating,omitempty"`
	MinEcoScore   *int     `json:"min_eco_score,omitempty"`

	// guides-with-routes only
	RouteQuery          string `json:"route_query,omitempty"`
	IncludeWithoutRoute bool   `json:"include_without_route,omitempty"`
	WithRoutes          bool   `json:"with_routes,omitempty"`

	Limit  int `json:"limit"`
	Offset int `json:"offset"`
}

// Normalize trims text filters and clamps paging
func (f *GuideSearchFilter) Normalize() {
	f.Query = strings.TrimSpace(f.Query)
	f.City = strings.TrimSpace(f.City)
	f.Specialty = strings.ToLower(strings.TrimSpace(f.Specialty))
	f.Language = strings.TrimSpace(f.Language)
	f.RouteQuery = strings.TrimSpace(f.RouteQuery)
	f.Limit, f.Offset = ClampPage(f.Limit, f.Offset)
}

// CacheKey is a stable key for the filter set
func (f GuideSearchFilter) CacheKey() string {
	intOrDash := func(p *int) string {
		if p == nil {
			return "-"
		}
		return fmt.Sprintf("%d", *p)
	}
	rating := "-"
	if f.MinRating != nil {
		rating = fmt.Sprintf("%g", *f.MinRating)
	}
	return strings.Join([]string{
		strings.ToLower(f.Query),
		strings.ToLower(f.City),
		f.Specialty,
		strings.ToLower(f.Language),
		intOrDash(f.MinExperience),
		rating,
		intOrDash(f.MinEcoScore),
		strings.ToLower(f.RouteQuery),
		fmt.Sprintf("%t", f.IncludeWithoutRoute),
		fmt.Sprintf("%t", f.WithRoutes),
		fmt.Sprintf("%d", f.Limit),
		fmt.Sprintf("%d", f.Offset),
	}, "|")
}

// ClampPage applies the default limit, clamps it to [1,100] and floors offset at 0
func ClampPage(limit, offset int) (int, int) {
	if limit <= 0 {
		limit = DefaultPageLimit
	}
	if limit > MaxPageLimit {
		limit = MaxPageLimit
	}
	if offset < 0 {
		offset = 0
	}
	return limit, offset
}

// GuideSearchRow is a guides row joined with the owner's name
type GuideSearchRow struct {
	GuideRow
	FullName string `db:"full_name"`
}

// GuideSearchResult is one search hit
type GuideSearchResult struct {
	*GuideResponse
	Route *GuideRoute `json:"route,omitempty"`
}

// GuideSearchResponse is the search payload
type GuideSearchResponse struct {
	Results []GuideSearchResult `json:"results"`
	Count   int                 `json:"count"`
	Limit   int                 `json:"limit"`
	Offset  int                 `json:"offset"`
}

// SearchFilterOptions lists the filter values present among searchable guides
type SearchFilterOptions struct {
	Cities      []string `json:"cities"`
	Specialties []string `json:"specialties"`
	Languages   []string `json:"languages"`
	TotalGuides int64    `json:"total_guides"`
}
