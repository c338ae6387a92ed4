package handlers

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/morchidhub/guide-backend/internal/config"
	"github.com/morchidhub/guide-backend/internal/database"
	"github.com/morchidhub/guide-backend/internal/models"
	"github.com/morchidhub/guide-backend/internal/services"
	"github.com/morchidhub/guide-backend/internal/storage"
	"github.com/morchidhub/guide-backend/pkg/jwt"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"
)

var pngHeader = []byte{0x89, 'P', 'N', 'G', '\r', '\n', 0x1a, '\n', 0, 0, 0, 0x0d, 'I', 'H', 'D', 'R'}

func quietLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}

// memStore backs guides, reviews and users behind one lock
type memStore struct {
	mu      sync.Mutex
	guides  map[uuid.UUID]*models.GuideProfile
	users   map[uuid.UUID]*models.User
	reviews map[uuid.UUID]*models.Review
	order   []uuid.UUID
}

func newMemStore() *memStore {
	return &memStore{
		guides:  make(map[uuid.UUID]*models.GuideProfile),
		users:   make(map[uuid.UUID]*models.User),
		reviews: make(map[uuid.UUID]*models.Review),
	}
}

func (s *memStore) addUser(role, name string) *models.User {
	s.mu.Lock()
	defer s.mu.Unlock()
	u := &models.User{ID: uuid.New(), FullName: name, Email: name + "@example.ma", Role: role, IsActive: true}
	s.users[u.ID] = u
	return u
}

func (s *memStore) addGuide(userID uuid.UUID, state models.ApprovalState, withDocs bool) *models.GuideProfile {
	s.mu.Lock()
	defer s.mu.Unlock()
	g := &models.GuideProfile{
		ID:        uuid.New(),
		UserID:    userID,
		Languages: []string{"fr", "ar"},
		Approval:  state,
		CreatedAt: time.Now(),
	}
	if withDocs {
		g.Documents = models.VerificationDocuments{
			ProfilePhotoURL: "/uploads/p.png",
			LicenseCardURL:  "/uploads/l.png",
			CINECardURL:     "/uploads/c.png",
		}
	}
	s.guides[g.ID] = g
	return g
}

func (s *memStore) setActive(userID uuid.UUID, active bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.users[userID].IsActive = active
}

func (s *memStore) guide(id uuid.UUID) models.GuideProfile {
	s.mu.Lock()
	defer s.mu.Unlock()
	return *s.guides[id]
}

func (s *memStore) GetByID(ctx context.Context, id uuid.UUID) (*models.GuideProfile, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	g, ok := s.guides[id]
	if !ok {
		return nil, database.ErrNotFound
	}
	cp := *g
	return &cp, nil
}

func (s *memStore) GetByUserID(ctx context.Context, userID uuid.UUID) (*models.GuideProfile, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, g := range s.guides {
		if g.UserID == userID {
			cp := *g
			return &cp, nil
		}
	}
	return nil, database.ErrNotFound
}

func (s *memStore) ListByStatus(ctx context.Context, status models.ApprovalStatus) ([]*models.GuideProfile, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*models.GuideProfile
	for _, g := range s.guides {
		if g.Approval.Status() == status {
			cp := *g
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (s *memStore) UpdateProfile(ctx context.Context, g *models.GuideProfile) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	stored, ok := s.guides[g.ID]
	if !ok {
		return database.ErrNotFound
	}
	stored.Languages = g.Languages
	stored.Specialties = g.Specialties
	stored.CitiesCovered = g.CitiesCovered
	stored.YearsOfExperience = g.YearsOfExperience
	stored.Bio = g.Bio
	return nil
}

func (s *memStore) UpdateLocked(ctx context.Context, id uuid.UUID, fn database.GuideMutation) (*models.GuideProfile, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	g, ok := s.guides[id]
	if !ok {
		return nil, database.ErrNotFound
	}
	cp := *g
	changed, err := fn(&cp)
	if err != nil {
		return nil, err
	}
	if changed {
		s.guides[id] = &cp
	}
	out := cp
	return &out, nil
}

// reviewStore adapts memStore to services.ReviewStore
type reviewStore struct{ *memStore }

func (s reviewStore) CreateWithAggregate(ctx context.Context, review *models.Review) (models.RatingAggregate, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	g, ok := s.guides[review.GuideID]
	if !ok || !g.IsVerified() {
		return models.RatingAggregate{}, database.ErrNotFound
	}
	for _, r := range s.reviews {
		if r.GuideID == review.GuideID && r.TouristID == review.TouristID {
			return models.RatingAggregate{}, database.ErrDuplicateReview
		}
	}
	review.ID = uuid.New()
	review.CreatedAt = time.Now()
	cp := *review
	s.reviews[review.ID] = &cp
	s.order = append(s.order, review.ID)
	g.Rating = g.Rating.Add(review.Rating)
	return g.Rating, nil
}

func (s reviewStore) Delete(ctx context.Context, review *models.Review) (models.RatingAggregate, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	stored, ok := s.reviews[review.ID]
	if !ok {
		return models.RatingAggregate{}, database.ErrNotFound
	}
	delete(s.reviews, review.ID)
	g := s.guides[stored.GuideID]
	g.Rating = g.Rating.Remove(stored.Rating)
	return g.Rating, nil
}

func (s reviewStore) GetByID(ctx context.Context, id uuid.UUID) (*models.Review, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.reviews[id]
	if !ok {
		return nil, database.ErrNotFound
	}
	cp := *r
	return &cp, nil
}

func (s reviewStore) ListByGuide(ctx context.Context, guideID uuid.UUID, limit, offset int) ([]models.ReviewWithAuthor, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.ReviewWithAuthor
	for i := len(s.order) - 1; i >= 0; i-- {
		r, ok := s.reviews[s.order[i]]
		if !ok || r.GuideID != guideID {
			continue
		}
		out = append(out, models.ReviewWithAuthor{Review: *r})
	}
	if offset >= len(out) {
		return nil, nil
	}
	out = out[offset:]
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// userStore adapts memStore to services.UserReader
type userStore struct{ *memStore }

func (s userStore) GetByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[id]
	if !ok {
		return nil, database.ErrNotFound
	}
	cp := *u
	return &cp, nil
}

// noRoutes has no stored routes
type noRoutes struct{}

func (noRoutes) GetByID(ctx context.Context, id uuid.UUID) (*models.GuideRoute, error) {
	return nil, database.ErrNotFound
}

func (noRoutes) GetActive(ctx context.Context, guideID uuid.UUID) (*models.GuideRoute, error) {
	return nil, database.ErrNotFound
}

func (noRoutes) ReplaceActive(ctx context.Context, route *models.GuideRoute) error {
	route.ID = uuid.New()
	route.IsActive = true
	return nil
}

func (noRoutes) Deactivate(ctx context.Context, guideID uuid.UUID) error {
	return database.ErrNotFound
}

// memSearcher answers filter lookups from the approved guides of active users
type memSearcher struct {
	*memStore
}

func (s memSearcher) SearchGuides(ctx context.Context, filter models.GuideSearchFilter) ([]models.GuideSearchResult, error) {
	return []models.GuideSearchResult{}, nil
}

func (s memSearcher) AvailableFilters(ctx context.Context) (*models.SearchFilterOptions, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	distinct := func(pick func(*models.GuideProfile) []string) []string {
		seen := map[string]bool{}
		out := []string{}
		for _, g := range s.guides {
			if !g.IsVerified() || !s.users[g.UserID].IsActive {
				continue
			}
			for _, v := range pick(g) {
				if !seen[v] {
					seen[v] = true
					out = append(out, v)
				}
			}
		}
		sort.Strings(out)
		return out
	}

	opts := &models.SearchFilterOptions{
		Cities:      distinct(func(g *models.GuideProfile) []string { return g.CitiesCovered }),
		Specialties: distinct(func(g *models.GuideProfile) []string { return g.Specialties }),
		Languages:   distinct(func(g *models.GuideProfile) []string { return g.Languages }),
	}
	for _, g := range s.guides {
		if g.IsVerified() && s.users[g.UserID].IsActive {
			opts.TotalGuides++
		}
	}
	return opts, nil
}

// testAPI is the full router over in-memory stores
type testAPI struct {
	router *gin.Engine
	store  *memStore
	jwt    *jwt.Service
	docs   *storage.LocalStore
}

func newTestAPI(t *testing.T) *testAPI {
	t.Helper()
	gin.SetMode(gin.TestMode)

	logger := quietLogger()
	store := newMemStore()
	jwtService := jwt.NewService(
		"test-access-secret-key-123456789",
		"test-refresh-secret-key-123456789",
		time.Hour,
		24*time.Hour,
	)
	docs, err := storage.NewLocalStore(t.TempDir(), "/uploads")
	require.NoError(t, err)

	rules := config.VerificationConfig{
		MinRejectionReasonLength: 10,
		MaxRejectionReasonLength: 500,
		MinLicenseLength:         5,
	}
	users := userStore{store}

	verificationService := services.NewVerificationService(store, docs, nil, rules, 1024, logger)
	profileService := services.NewProfileService(users, store, nil, logger)
	reviewService := services.NewReviewService(reviewStore{store}, store, noRoutes{}, users, nil, logger)
	routeService := services.NewRouteService(noRoutes{}, store, nil, 500, logger)
	searchService := services.NewSearchService(memSearcher{store}, nil, logger)

	router := gin.New()
	RegisterRoutes(router.Group("/api/v1"), Handlers{
		Auth:   NewAuthHandler(nil, profileService, nil, logger),
		Guide:  NewGuideHandler(verificationService, profileService, nil, 1024, logger),
		Route:  NewRouteHandler(routeService, logger),
		Review: NewReviewHandler(reviewService, nil, logger),
		Search: NewSearchHandler(searchService, logger),
		Admin:  NewAdminHandler(nil, verificationService, profileService, nil, nil, logger),
	}, jwtService, users, store)

	return &testAPI{router: router, store: store, jwt: jwtService, docs: docs}
}

func (a *testAPI) token(t *testing.T, u *models.User) string {
	t.Helper()
	token, err := a.jwt.GenerateAccessToken(u.ID, u.Email, u.Roles())
	require.NoError(t, err)
	return token
}

func (a *testAPI) do(req *http.Request, token string) *httptest.ResponseRecorder {
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	a.router.ServeHTTP(w, req)
	return w
}
