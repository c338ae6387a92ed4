package services

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/morchidhub/guide-backend/internal/database"
	"github.com/morchidhub/guide-backend/internal/models"
	"github.com/sirupsen/logrus"
)

var (
	pngHeader  = []byte{0x89, 'P', 'N', 'G', '\r', '\n', 0x1a, '\n', 0, 0, 0, 0x0d, 'I', 'H', 'D', 'R'}
	jpegHeader = []byte{0xff, 0xd8, 0xff, 0xe0, 0, 0x10, 'J', 'F', 'I', 'F', 0}
)

func quietLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}

// fakeGuideStore serializes UpdateLocked with a mutex, like the row lock
type fakeGuideStore struct {
	mu     sync.Mutex
	guides map[uuid.UUID]*models.GuideProfile
	writes int
}

func newFakeGuideStore(guides ...*models.GuideProfile) *fakeGuideStore {
	s := &fakeGuideStore{guides: make(map[uuid.UUID]*models.GuideProfile)}
	for _, g := range guides {
		s.guides[g.ID] = g
	}
	return s
}

func (s *fakeGuideStore) GetByID(ctx context.Context, id uuid.UUID) (*models.GuideProfile, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	g, ok := s.guides[id]
	if !ok {
		return nil, database.ErrNotFound
	}
	cp := *g
	return &cp, nil
}

func (s *fakeGuideStore) GetByUserID(ctx context.Context, userID uuid.UUID) (*models.GuideProfile, error) {
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

func (s *fakeGuideStore) ListByStatus(ctx context.Context, status models.ApprovalStatus) ([]*models.GuideProfile, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*models.GuideProfile
	for _, g := range s.guides {
		if g.Approval.Status() == status {
			cp := *g
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (s *fakeGuideStore) UpdateProfile(ctx context.Context, g *models.GuideProfile) error {
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

func (s *fakeGuideStore) UpdateLocked(ctx context.Context, id uuid.UUID, fn database.GuideMutation) (*models.GuideProfile, error) {
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
		s.writes++
	}
	out := cp
	return &out, nil
}

func (s *fakeGuideStore) get(id uuid.UUID) models.GuideProfile {
	s.mu.Lock()
	defer s.mu.Unlock()
	return *s.guides[id]
}

type fakeDocumentStore struct {
	mu      sync.Mutex
	docs    map[string][]byte
	failOn  int
	saves   int
	deleted []string
}

func newFakeDocumentStore() *fakeDocumentStore {
	return &fakeDocumentStore{docs: make(map[string][]byte)}
}

func (s *fakeDocumentStore) Save(ctx context.Context, key string, data []byte, contentType string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.saves++
	if s.failOn > 0 && s.saves == s.failOn {
		return "", errors.New("disk full")
	}
	ref := "/uploads/" + key
	s.docs[ref] = data
	return ref, nil
}

func (s *fakeDocumentStore) Delete(ctx context.Context, ref string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.docs, ref)
	s.deleted = append(s.deleted, ref)
	return nil
}

func (s *fakeDocumentStore) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.docs)
}

type fakeCache struct {
	mu          sync.Mutex
	entries     map[string][]byte
	invalidated int
	hits        int
	sets        int
}

func newFakeCache() *fakeCache {
	return &fakeCache{entries: make(map[string][]byte)}
}

func (c *fakeCache) Get(ctx context.Context, key string, dest interface{}) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	data, ok := c.entries[key]
	if !ok {
		return false, nil
	}
	c.hits++
	return true, json.Unmarshal(data, dest)
}

func (c *fakeCache) Set(ctx context.Context, key string, value interface{}) error {
	data, err := json.Marshal(value)
	if err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = data
	c.sets++
	return nil
}

func (c *fakeCache) Invalidate(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.invalidated++
	c.entries = make(map[string][]byte)
	return nil
}

// fakeReviewStore keeps the aggregate on the guide held by guides, under its lock
type fakeReviewStore struct {
	guides  *fakeGuideStore
	reviews map[uuid.UUID]*models.Review
	order   []uuid.UUID
}

func newFakeReviewStore(guides *fakeGuideStore) *fakeReviewStore {
	return &fakeReviewStore{guides: guides, reviews: make(map[uuid.UUID]*models.Review)}
}

func (s *fakeReviewStore) CreateWithAggregate(ctx context.Context, review *models.Review) (models.RatingAggregate, error) {
	s.guides.mu.Lock()
	defer s.guides.mu.Unlock()

	g, ok := s.guides.guides[review.GuideID]
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

func (s *fakeReviewStore) Delete(ctx context.Context, review *models.Review) (models.RatingAggregate, error) {
	s.guides.mu.Lock()
	defer s.guides.mu.Unlock()

	stored, ok := s.reviews[review.ID]
	if !ok {
		return models.RatingAggregate{}, database.ErrNotFound
	}
	delete(s.reviews, review.ID)
	g := s.guides.guides[stored.GuideID]
	g.Rating = g.Rating.Remove(stored.Rating)
	return g.Rating, nil
}

func (s *fakeReviewStore) GetByID(ctx context.Context, id uuid.UUID) (*models.Review, error) {
	s.guides.mu.Lock()
	defer s.guides.mu.Unlock()
	r, ok := s.reviews[id]
	if !ok {
		return nil, database.ErrNotFound
	}
	cp := *r
	return &cp, nil
}

func (s *fakeReviewStore) ListByGuide(ctx context.Context, guideID uuid.UUID, limit, offset int) ([]models.ReviewWithAuthor, error) {
	s.guides.mu.Lock()
	defer s.guides.mu.Unlock()
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

type fakeRouteStore struct {
	mu     sync.Mutex
	routes map[uuid.UUID]*models.GuideRoute
}

func newFakeRouteStore(routes ...*models.GuideRoute) *fakeRouteStore {
	s := &fakeRouteStore{routes: make(map[uuid.UUID]*models.GuideRoute)}
	for _, r := range routes {
		s.routes[r.ID] = r
	}
	return s
}

func (s *fakeRouteStore) GetByID(ctx context.Context, id uuid.UUID) (*models.GuideRoute, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.routes[id]
	if !ok {
		return nil, database.ErrNotFound
	}
	cp := *r
	return &cp, nil
}

func (s *fakeRouteStore) GetActive(ctx context.Context, guideID uuid.UUID) (*models.GuideRoute, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, r := range s.routes {
		if r.GuideID == guideID && r.IsActive {
			cp := *r
			return &cp, nil
		}
	}
	return nil, database.ErrNotFound
}

func (s *fakeRouteStore) ReplaceActive(ctx context.Context, route *models.GuideRoute) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, r := range s.routes {
		if r.GuideID == route.GuideID {
			r.IsActive = false
		}
	}
	route.ID = uuid.New()
	route.IsActive = true
	cp := *route
	s.routes[route.ID] = &cp
	return nil
}

func (s *fakeRouteStore) Deactivate(ctx context.Context, guideID uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, r := range s.routes {
		if r.GuideID == guideID && r.IsActive {
			r.IsActive = false
			n++
		}
	}
	if n == 0 {
		return database.ErrNotFound
	}
	return nil
}

func (s *fakeRouteStore) activeCount(guideID uuid.UUID) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, r := range s.routes {
		if r.GuideID == guideID && r.IsActive {
			n++
		}
	}
	return n
}

type fakeUserStore struct {
	mu    sync.Mutex
	users map[uuid.UUID]*models.User
}

func newFakeUserStore(users ...*models.User) *fakeUserStore {
	s := &fakeUserStore{users: make(map[uuid.UUID]*models.User)}
	for _, u := range users {
		s.users[u.ID] = u
	}
	return s
}

func (s *fakeUserStore) GetByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[id]
	if !ok {
		return nil, database.ErrNotFound
	}
	cp := *u
	return &cp, nil
}
