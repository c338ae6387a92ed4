package services

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/morchidhub/guide-backend/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func jemaaElFnaRoute() models.SaveGuideRouteRequest {
	return models.SaveGuideRouteRequest{
		Coordinates: []models.Coordinate{
			{Lat: 31.6258, Lng: -7.9891}, // Jemaa el-Fnaa
			{Lat: 31.6237, Lng: -7.9936},
			{Lat: 31.6181, Lng: -7.9891}, // Bahia Palace
		},
		DistanceKm:   1.4,
		DurationMin:  25,
		StartAddress: " Place Jemaa el-Fna ",
	}
}

func newRouteFixture(state models.ApprovalState) (*RouteService, *fakeRouteStore, *models.GuideProfile) {
	guide := pendingGuide(true)
	guide.Approval = state
	routes := newFakeRouteStore()
	svc := NewRouteService(routes, newFakeGuideStore(guide), nil, 50, quietLogger())
	return svc, routes, guide
}

func TestSaveMyRoute(t *testing.T) {
	ctx := context.Background()

	t.Run("Derives Endpoints", func(t *testing.T) {
		svc, _, guide := newRouteFixture(models.Approved())

		route, err := svc.SaveMyRoute(ctx, guide.UserID, jemaaElFnaRoute())
		require.NoError(t, err)
		assert.Equal(t, 31.6258, route.StartLat)
		assert.Equal(t, -7.9891, route.EndLng)
		assert.Equal(t, 31.6181, route.EndLat)
		assert.Equal(t, "Place Jemaa el-Fna", route.StartAddress.String)
		assert.False(t, route.EndAddress.Valid)
		assert.True(t, route.IsActive)
	})

	t.Run("At Most One Active", func(t *testing.T) {
		svc, routes, guide := newRouteFixture(models.Approved())

		var last *models.GuideRoute
		for i := 0; i < 4; i++ {
			route, err := svc.SaveMyRoute(ctx, guide.UserID, jemaaElFnaRoute())
			require.NoError(t, err)
			last = route
		}
		assert.Equal(t, 1, routes.activeCount(guide.ID))

		active, err := svc.GetActiveRoute(ctx, guide.ID)
		require.NoError(t, err)
		assert.Equal(t, last.ID, active.ID)
	})

	t.Run("Pending Guide Forbidden", func(t *testing.T) {
		svc, routes, guide := newRouteFixture(models.PendingApproval())

		_, err := svc.SaveMyRoute(ctx, guide.UserID, jemaaElFnaRoute())
		var authErr *AuthorizationError
		require.ErrorAs(t, err, &authErr)
		assert.Empty(t, routes.routes)
	})

	t.Run("Validation", func(t *testing.T) {
		svc, _, guide := newRouteFixture(models.Approved())

		single := jemaaElFnaRoute()
		single.Coordinates = single.Coordinates[:1]
		badLat := jemaaElFnaRoute()
		badLat.Coordinates[1].Lat = 91
		noDistance := jemaaElFnaRoute()
		noDistance.DistanceKm = 0

		for _, req := range []models.SaveGuideRouteRequest{single, badLat, noDistance} {
			_, err := svc.SaveMyRoute(ctx, guide.UserID, req)
			var valErr *ValidationError
			assert.ErrorAs(t, err, &valErr)
		}
	})
}

func TestDeleteMyRoute(t *testing.T) {
	ctx := context.Background()
	svc, routes, guide := newRouteFixture(models.Approved())

	_, err := svc.SaveMyRoute(ctx, guide.UserID, jemaaElFnaRoute())
	require.NoError(t, err)

	require.NoError(t, svc.DeleteMyRoute(ctx, guide.UserID))
	assert.Equal(t, 0, routes.activeCount(guide.ID))

	err = svc.DeleteMyRoute(ctx, guide.UserID)
	var notFound *NotFoundError
	assert.ErrorAs(t, err, &notFound)

	_, err = svc.GetActiveRoute(ctx, guide.ID)
	assert.ErrorAs(t, err, &notFound)
}

func TestProximity(t *testing.T) {
	ctx := context.Background()
	svc, _, guide := newRouteFixture(models.Approved())

	_, err := svc.SaveMyRoute(ctx, guide.UserID, jemaaElFnaRoute())
	require.NoError(t, err)

	t.Run("Near Start", func(t *testing.T) {
		p, err := svc.Proximity(ctx, guide.ID, 31.6259, -7.9890)
		require.NoError(t, err)
		assert.True(t, p.NearStart)
		assert.False(t, p.NearEnd)
		assert.Less(t, p.DistanceToStartM, 50.0)
		assert.InDelta(t, 860, p.DistanceToEndM, 30)
		assert.Equal(t, 50.0, p.ThresholdM)
	})

	t.Run("Invalid Point", func(t *testing.T) {
		_, err := svc.Proximity(ctx, guide.ID, 120, 0)
		var valErr *ValidationError
		assert.ErrorAs(t, err, &valErr)
	})

	t.Run("No Route", func(t *testing.T) {
		_, err := svc.Proximity(ctx, uuid.New(), 31.6, -7.9)
		var notFound *NotFoundError
		assert.ErrorAs(t, err, &notFound)
	})
}
