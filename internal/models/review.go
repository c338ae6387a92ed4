package models

import (
	"time"

	"github.com/google/uuid"
)

// Rating bounds
const (
	MinRating = 1
	MaxRating = 5
)

// Review is a tourist's rating of a guide. A tourist reviews a guide at most once.
type Review struct {
	ID        uuid.UUID     `json:"id" db:"id"`
	GuideID   uuid.UUID     `json:"guide_id" db:"guide_id"`
	TouristID uuid.UUID     `json:"tourist_id" db:"tourist_id"`
	RouteID   uuid.NullUUID `json:"route_id" db:"route_id"`
	Rating    int           `json:"rating" db:"rating"`
	Comment   NullString    `json:"comment" db:"comment"`
	CreatedAt time.Time     `json:"created_at" db:"created_at"`
}

// ReviewWithAuthor is a review joined with the tourist's display name
type ReviewWithAuthor struct {
	Review
	TouristName NullString `json:"-" db:"tourist_name"`
}

// AnonymousTouristName is shown when the author's name is unavailable
const AnonymousTouristName = "Touriste anonyme"

// ReviewResponse is the API representation of a review
type ReviewResponse struct {
	ID          uuid.UUID  `json:"id"`
	GuideID     uuid.UUID  `json:"guide_id"`
	TouristID   uuid.UUID  `json:"tourist_id"`
	TouristName string     `json:"tourist_name"`
	RouteID     *uuid.UUID `json:"route_id"`
	Rating      int        `json:"rating"`
	Comment     *string    `json:"comment"`
	CreatedAt   time.Time  `json:"created_at"`
}

// ToResponse converts a joined review row
func (r *ReviewWithAuthor) ToResponse() ReviewResponse {
	resp := ReviewResponse{
		ID:          r.ID,
		GuideID:     r.GuideID,
		TouristID:   r.TouristID,
		TouristName: AnonymousTouristName,
		Rating:      r.Rating,
		CreatedAt:   r.CreatedAt,
	}
	if r.TouristName.Valid && r.TouristName.String != "" {
		resp.TouristName = r.TouristName.String
	}
	if r.RouteID.Valid {
		id := r.RouteID.UUID
		resp.RouteID = &id
	}
	if r.Comment.Valid {
		c := r.Comment.String
		resp.Comment = &c
	}
	return resp
}

// GuideReviewsResponse is the reviews listing for one guide
type GuideReviewsResponse struct {
	GuideID       uuid.UUID        `json:"guide_id"`
	AverageRating float64          `json:"average_rating"`
	TotalReviews  int64            `json:"total_reviews"`
	Reviews       []ReviewResponse `json:"reviews"`
}
