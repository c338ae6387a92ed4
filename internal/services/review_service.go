package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/morchidhub/guide-backend/internal/database"
	"github.com/morchidhub/guide-backend/internal/models"
	"github.com/sirupsen/logrus"
)

// MaxCommentLength is the longest review comment accepted, in runes
const MaxCommentLength = 1000

// ReviewStore persists reviews together with the guide rating aggregate
type ReviewStore interface {
	CreateWithAggregate(ctx context.Context, review *models.Review) (models.RatingAggregate, error)
	Delete(ctx context.Context, review *models.Review) (models.RatingAggregate, error)
	GetByID(ctx context.Context, id uuid.UUID) (*models.Review, error)
	ListByGuide(ctx context.Context, guideID uuid.UUID, limit, offset int) ([]models.ReviewWithAuthor, error)
}

// GuideReader looks up guide profiles
type GuideReader interface {
	GetByID(ctx context.Context, id uuid.UUID) (*models.GuideProfile, error)
}

// RouteReader looks up guide routes
type RouteReader interface {
	GetByID(ctx context.Context, id uuid.UUID) (*models.GuideRoute, error)
}

// UserReader looks up user accounts
type UserReader interface {
	GetByID(ctx context.Context, id uuid.UUID) (*models.User, error)
}

// ReviewInput is a tourist's review submission
type ReviewInput struct {
	GuideID uuid.UUID
	Rating  int
	Comment string
	RouteID *uuid.UUID
}

// ReviewService handles reviews and keeps guide ratings consistent
type ReviewService struct {
	reviews ReviewStore
	guides  GuideReader
	routes  RouteReader
	users   UserReader
	cache   CacheInvalidator
	logger  logrus.FieldLogger
}

// NewReviewService creates a new review service. cache may be nil.
func NewReviewService(reviews ReviewStore, guides GuideReader, routes RouteReader, users UserReader, cache CacheInvalidator, logger logrus.FieldLogger) *ReviewService {
	return &ReviewService{
		reviews: reviews,
		guides:  guides,
		routes:  routes,
		users:   users,
		cache:   cache,
		logger:  logger,
	}
}

// SubmitReview records a tourist's rating of an approved guide and updates
// the guide's aggregate in the same transaction
func (s *ReviewService) SubmitReview(ctx context.Context, caller Caller, input ReviewInput) (*models.ReviewResponse, error) {
	if !caller.HasRole(models.RoleTourist) {
		return nil, &AuthorizationError{Message: "Only tourists can leave a review"}
	}
	if input.Rating < models.MinRating || input.Rating > models.MaxRating {
		return nil, &ValidationError{
			Field:   "rating",
			Message: fmt.Sprintf("Rating must be between %d and %d", models.MinRating, models.MaxRating),
		}
	}

	comment := strings.TrimSpace(input.Comment)
	if utf8.RuneCountInString(comment) > MaxCommentLength {
		return nil, &ValidationError{
			Field:   "comment",
			Message: fmt.Sprintf("Comment must be at most %d characters", MaxCommentLength),
		}
	}

	guide, err := s.guides.GetByID(ctx, input.GuideID)
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			return nil, errGuideNotReviewable()
		}
		return nil, err
	}
	if !guide.IsVerified() {
		return nil, errGuideNotReviewable()
	}
	if guide.UserID == caller.UserID {
		return nil, &ValidationError{Field: "guide_id", Message: "You cannot review yourself"}
	}

	review := &models.Review{
		GuideID:   input.GuideID,
		TouristID: caller.UserID,
		Rating:    input.Rating,
	}
	if comment != "" {
		review.Comment = models.NewNullString(comment)
	}

	if input.RouteID != nil {
		route, err := s.routes.GetByID(ctx, *input.RouteID)
		if err != nil && !errors.Is(err, database.ErrNotFound) {
			return nil, err
		}
		if route == nil || route.GuideID != input.GuideID {
			return nil, &NotFoundError{
				Entity:  "route",
				Code:    "ROUTE_NOT_FOUND",
				Message: "Route not found or does not belong to this guide",
			}
		}
		review.RouteID = uuid.NullUUID{UUID: route.ID, Valid: true}
	}

	agg, err := s.reviews.CreateWithAggregate(ctx, review)
	if err != nil {
		switch {
		case errors.Is(err, database.ErrDuplicateReview):
			return nil, &ConflictError{
				Code:    "REVIEW_ALREADY_EXISTS",
				Message: "You have already reviewed this guide",
			}
		case errors.Is(err, database.ErrNotFound):
			return nil, errGuideNotReviewable()
		}
		return nil, err
	}
	s.invalidateSearch(ctx)

	s.logger.WithFields(logrus.Fields{
		"guide_id":      review.GuideID,
		"review_id":     review.ID,
		"rating":        review.Rating,
		"total_reviews": agg.Count,
	}).Info("Review created")

	withAuthor := models.ReviewWithAuthor{Review: *review}
	if user, err := s.users.GetByID(ctx, caller.UserID); err == nil {
		withAuthor.TouristName = models.NewNullString(user.FullName)
	}
	resp := withAuthor.ToResponse()
	return &resp, nil
}

// ListReviews returns a guide's reviews newest first with the current rating
func (s *ReviewService) ListReviews(ctx context.Context, guideID uuid.UUID, limit, offset int) (*models.GuideReviewsResponse, error) {
	guide, err := s.guides.GetByID(ctx, guideID)
	if err != nil {
		return nil, mapGuideErr(err)
	}

	limit, offset = models.ClampPage(limit, offset)
	rows, err := s.reviews.ListByGuide(ctx, guideID, limit, offset)
	if err != nil {
		return nil, err
	}

	resp := &models.GuideReviewsResponse{
		GuideID:       guideID,
		AverageRating: models.DisplayRating(guide.Rating.Mean()),
		TotalReviews:  guide.Rating.Count,
		Reviews:       make([]models.ReviewResponse, 0, len(rows)),
	}
	for i := range rows {
		resp.Reviews = append(resp.Reviews, rows[i].ToResponse())
	}
	return resp, nil
}

// DeleteReview removes a review. Only its author or an admin may do so.
func (s *ReviewService) DeleteReview(ctx context.Context, reviewID uuid.UUID, caller Caller) (*models.Review, error) {
	review, err := s.reviews.GetByID(ctx, reviewID)
	if err != nil {
		return nil, mapReviewErr(err)
	}
	if review.TouristID != caller.UserID && !caller.HasRole(models.RoleAdmin) {
		return nil, &AuthorizationError{Message: "You can only delete your own reviews"}
	}

	agg, err := s.reviews.Delete(ctx, review)
	if err != nil {
		return nil, mapReviewErr(err)
	}
	s.invalidateSearch(ctx)

	s.logger.WithFields(logrus.Fields{
		"guide_id":      review.GuideID,
		"review_id":     review.ID,
		"deleted_by":    caller.UserID,
		"total_reviews": agg.Count,
	}).Info("Review deleted")

	return review, nil
}

func (s *ReviewService) invalidateSearch(ctx context.Context) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Invalidate(ctx); err != nil {
		s.logger.WithError(err).Warn("Failed to invalidate search cache")
	}
}

func errGuideNotReviewable() error {
	return &NotFoundError{
		Entity:  "guide",
		Code:    "GUIDE_NOT_FOUND",
		Message: "Guide not found or not approved",
	}
}

func mapReviewErr(err error) error {
	if errors.Is(err, database.ErrNotFound) {
		return &NotFoundError{Entity: "review", Code: "REVIEW_NOT_FOUND", Message: "Review not found"}
	}
	return err
}
