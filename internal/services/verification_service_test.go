package services

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/morchidhub/guide-backend/internal/config"
	"github.com/morchidhub/guide-backend/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testVerificationRules = config.VerificationConfig{
	MinRejectionReasonLength: 10,
	MaxRejectionReasonLength: 500,
	MinLicenseLength:         5,
}

func pendingGuide(withDocs bool) *models.GuideProfile {
	g := &models.GuideProfile{
		ID:        uuid.New(),
		UserID:    uuid.New(),
		Languages: []string{"fr", "ar"},
		Approval:  models.PendingApproval(),
		CreatedAt: time.Now(),
	}
	if withDocs {
		g.Documents = models.VerificationDocuments{
			ProfilePhotoURL: "/uploads/p.png",
			LicenseCardURL:  "/uploads/l.png",
			CINECardURL:     "/uploads/c.png",
		}
	}
	return g
}

func validSubmission() VerificationSubmission {
	return VerificationSubmission{
		CINENumber:         "ab123456",
		LicenseNumber:      " LIC-2024-001 ",
		HasOfficialLicense: true,
		Documents: map[models.DocumentKind][]byte{
			models.DocumentProfilePhoto: pngHeader,
			models.DocumentLicensePhoto: jpegHeader,
			models.DocumentCINEPhoto:    pngHeader,
		},
	}
}

func newTestVerificationService(store *fakeGuideStore, docs *fakeDocumentStore, cache *fakeCache) *VerificationService {
	return NewVerificationService(store, docs, cache, testVerificationRules, 1024, quietLogger())
}

func TestSubmitVerification(t *testing.T) {
	ctx := context.Background()

	t.Run("Pending Guide Stays Pending", func(t *testing.T) {
		guide := pendingGuide(false)
		store := newFakeGuideStore(guide)
		docs := newFakeDocumentStore()
		svc := newTestVerificationService(store, docs, nil)

		updated, err := svc.SubmitVerification(ctx, guide.ID, guide.UserID, validSubmission())
		require.NoError(t, err)
		assert.Equal(t, models.StatusPendingApproval, updated.Approval.Status())
		assert.Equal(t, "AB123456", updated.CINENumber)
		assert.Equal(t, "LIC-2024-001", updated.LicenseNumber)
		assert.True(t, updated.HasOfficialLicense)
		assert.True(t, updated.Documents.Complete())
		assert.True(t, strings.HasSuffix(updated.Documents.LicenseCardURL, ".jpg"))
		require.NotNil(t, updated.DocumentsSubmittedAt)
		assert.Equal(t, 3, docs.count())
	})

	t.Run("Rejected Guide Returns To Pending", func(t *testing.T) {
		guide := pendingGuide(true)
		guide.Approval = models.Rejected("Photo de la CINE illisible")
		store := newFakeGuideStore(guide)
		docs := newFakeDocumentStore()
		svc := newTestVerificationService(store, docs, nil)

		updated, err := svc.SubmitVerification(ctx, guide.ID, guide.UserID, validSubmission())
		require.NoError(t, err)
		assert.Equal(t, models.StatusPendingApproval, updated.Approval.Status())
		_, hasReason := updated.Approval.RejectionReason()
		assert.False(t, hasReason)
		assert.False(t, updated.IsVerified())

		// previous documents are removed once replaced
		assert.ElementsMatch(t, []string{"/uploads/p.png", "/uploads/l.png", "/uploads/c.png"}, docs.deleted)
	})

	t.Run("Approved Guide Cannot Resubmit", func(t *testing.T) {
		guide := pendingGuide(true)
		guide.Approval = models.Approved()
		store := newFakeGuideStore(guide)
		docs := newFakeDocumentStore()
		svc := newTestVerificationService(store, docs, nil)

		_, err := svc.SubmitVerification(ctx, guide.ID, guide.UserID, validSubmission())
		var stateErr *InvalidStateError
		require.ErrorAs(t, err, &stateErr)
		assert.Equal(t, "approved", stateErr.From)
		assert.Equal(t, 0, docs.count())
		assert.Equal(t, models.StatusApproved, store.get(guide.ID).Approval.Status())
	})

	t.Run("Other Users Guide", func(t *testing.T) {
		guide := pendingGuide(false)
		svc := newTestVerificationService(newFakeGuideStore(guide), newFakeDocumentStore(), nil)

		_, err := svc.SubmitVerification(ctx, guide.ID, uuid.New(), validSubmission())
		var authErr *AuthorizationError
		assert.ErrorAs(t, err, &authErr)
	})

	t.Run("Unknown Guide", func(t *testing.T) {
		svc := newTestVerificationService(newFakeGuideStore(), newFakeDocumentStore(), nil)

		_, err := svc.SubmitVerification(ctx, uuid.New(), uuid.New(), validSubmission())
		var notFound *NotFoundError
		assert.ErrorAs(t, err, &notFound)
	})

	t.Run("Validation", func(t *testing.T) {
		tests := []struct {
			name   string
			mutate func(*VerificationSubmission)
			field  string
		}{
			{"Bad CINE", func(s *VerificationSubmission) { s.CINENumber = "123" }, "cine_number"},
			{"Short License", func(s *VerificationSubmission) { s.LicenseNumber = " ab " }, "license_number"},
			{"Missing Photo", func(s *VerificationSubmission) { delete(s.Documents, models.DocumentCINEPhoto) }, "cine_photo"},
			{"Not An Image", func(s *VerificationSubmission) {
				s.Documents[models.DocumentProfilePhoto] = []byte("%PDF-1.7\n")
			}, "profile_photo"},
			{"Too Large", func(s *VerificationSubmission) {
				s.Documents[models.DocumentLicensePhoto] = append(append([]byte{}, pngHeader...), make([]byte, 2048)...)
			}, "license_photo"},
		}

		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				guide := pendingGuide(false)
				store := newFakeGuideStore(guide)
				docs := newFakeDocumentStore()
				svc := newTestVerificationService(store, docs, nil)

				sub := validSubmission()
				tt.mutate(&sub)

				_, err := svc.SubmitVerification(ctx, guide.ID, guide.UserID, sub)
				var valErr *ValidationError
				require.ErrorAs(t, err, &valErr)
				assert.Equal(t, tt.field, valErr.Field)
				assert.Equal(t, 0, docs.count())
				assert.Equal(t, 0, store.writes)
			})
		}
	})

	t.Run("Storage Failure Cleans Up", func(t *testing.T) {
		guide := pendingGuide(false)
		store := newFakeGuideStore(guide)
		docs := newFakeDocumentStore()
		docs.failOn = 3
		svc := newTestVerificationService(store, docs, nil)

		_, err := svc.SubmitVerification(ctx, guide.ID, guide.UserID, validSubmission())
		require.Error(t, err)
		assert.Equal(t, 0, docs.count())
		assert.Len(t, docs.deleted, 2)
		assert.Equal(t, 0, store.writes)
	})
}

func TestApprove(t *testing.T) {
	ctx := context.Background()
	adminID := uuid.New()

	t.Run("Pending With Documents", func(t *testing.T) {
		guide := pendingGuide(true)
		store := newFakeGuideStore(guide)
		cache := newFakeCache()
		svc := newTestVerificationService(store, newFakeDocumentStore(), cache)

		updated, changed, err := svc.Approve(ctx, guide.ID, adminID)
		require.NoError(t, err)
		assert.True(t, changed)
		assert.True(t, updated.IsVerified())
		assert.Equal(t, models.StatusApproved, updated.Approval.Status())
		require.NotNil(t, updated.ReviewedBy)
		assert.Equal(t, adminID, *updated.ReviewedBy)
		assert.NotNil(t, updated.ReviewedAt)
		assert.Equal(t, 1, cache.invalidated)
	})

	t.Run("Already Approved Is No-op", func(t *testing.T) {
		guide := pendingGuide(true)
		guide.Approval = models.Approved()
		store := newFakeGuideStore(guide)
		cache := newFakeCache()
		svc := newTestVerificationService(store, newFakeDocumentStore(), cache)

		updated, changed, err := svc.Approve(ctx, guide.ID, adminID)
		require.NoError(t, err)
		assert.False(t, changed)
		assert.True(t, updated.IsVerified())
		assert.Nil(t, updated.ReviewedBy)
		assert.Equal(t, 0, store.writes)
		assert.Equal(t, 0, cache.invalidated)
	})

	t.Run("Missing Documents", func(t *testing.T) {
		guide := pendingGuide(false)
		store := newFakeGuideStore(guide)
		svc := newTestVerificationService(store, newFakeDocumentStore(), nil)

		_, _, err := svc.Approve(ctx, guide.ID, adminID)
		var stateErr *InvalidStateError
		require.ErrorAs(t, err, &stateErr)
		assert.Equal(t, "approve", stateErr.Action)
		assert.Equal(t, models.StatusPendingApproval, store.get(guide.ID).Approval.Status())
	})

	t.Run("Rejected Must Resubmit", func(t *testing.T) {
		guide := pendingGuide(true)
		guide.Approval = models.Rejected("Licence expirée depuis 2022")
		store := newFakeGuideStore(guide)
		svc := newTestVerificationService(store, newFakeDocumentStore(), nil)

		_, _, err := svc.Approve(ctx, guide.ID, adminID)
		var stateErr *InvalidStateError
		require.ErrorAs(t, err, &stateErr)
		assert.Equal(t, "rejected", stateErr.From)

		reason, ok := store.get(guide.ID).Approval.RejectionReason()
		assert.True(t, ok)
		assert.Equal(t, "Licence expirée depuis 2022", reason)
	})

	t.Run("Unknown Guide", func(t *testing.T) {
		svc := newTestVerificationService(newFakeGuideStore(), newFakeDocumentStore(), nil)

		_, _, err := svc.Approve(ctx, uuid.New(), adminID)
		var notFound *NotFoundError
		assert.ErrorAs(t, err, &notFound)
	})
}

func TestReject(t *testing.T) {
	ctx := context.Background()
	adminID := uuid.New()

	t.Run("Pending Guide", func(t *testing.T) {
		guide := pendingGuide(true)
		store := newFakeGuideStore(guide)
		svc := newTestVerificationService(store, newFakeDocumentStore(), nil)

		updated, err := svc.Reject(ctx, guide.ID, adminID, "  La photo de la licence est floue  ")
		require.NoError(t, err)
		assert.Equal(t, models.StatusRejected, updated.Approval.Status())
		assert.False(t, updated.IsVerified())
		reason, ok := updated.Approval.RejectionReason()
		assert.True(t, ok)
		assert.Equal(t, "La photo de la licence est floue", reason)
		require.NotNil(t, updated.ReviewedBy)
		assert.Equal(t, adminID, *updated.ReviewedBy)
	})

	t.Run("Reason Length", func(t *testing.T) {
		guide := pendingGuide(true)
		store := newFakeGuideStore(guide)
		svc := newTestVerificationService(store, newFakeDocumentStore(), nil)

		for _, reason := range []string{"", "   court   ", strings.Repeat("x", 501)} {
			_, err := svc.Reject(ctx, guide.ID, adminID, reason)
			var valErr *ValidationError
			require.ErrorAs(t, err, &valErr)
			assert.Equal(t, "reason", valErr.Field)
		}
		assert.Equal(t, 0, store.writes)
	})

	t.Run("Counts Runes Not Bytes", func(t *testing.T) {
		guide := pendingGuide(true)
		store := newFakeGuideStore(guide)
		svc := newTestVerificationService(store, newFakeDocumentStore(), nil)

		// 9 runes, more than 10 bytes
		_, err := svc.Reject(ctx, guide.ID, adminID, "éééééé ée")
		var valErr *ValidationError
		assert.ErrorAs(t, err, &valErr)
	})

	t.Run("Approved Cannot Be Rejected", func(t *testing.T) {
		guide := pendingGuide(true)
		guide.Approval = models.Approved()
		store := newFakeGuideStore(guide)
		svc := newTestVerificationService(store, newFakeDocumentStore(), nil)

		_, err := svc.Reject(ctx, guide.ID, adminID, "Comportement signalé par des touristes")
		var stateErr *InvalidStateError
		require.ErrorAs(t, err, &stateErr)
		stored := store.get(guide.ID)
		assert.True(t, stored.IsVerified())
	})

	t.Run("Already Rejected", func(t *testing.T) {
		guide := pendingGuide(true)
		guide.Approval = models.Rejected("Documents incomplets fournis")
		store := newFakeGuideStore(guide)
		svc := newTestVerificationService(store, newFakeDocumentStore(), nil)

		_, err := svc.Reject(ctx, guide.ID, adminID, "Une deuxième raison de rejet")
		var stateErr *InvalidStateError
		require.ErrorAs(t, err, &stateErr)

		reason, _ := store.get(guide.ID).Approval.RejectionReason()
		assert.Equal(t, "Documents incomplets fournis", reason)
	})
}

func TestConcurrentDecisionsFirstWins(t *testing.T) {
	ctx := context.Background()

	for i := 0; i < 20; i++ {
		guide := pendingGuide(true)
		store := newFakeGuideStore(guide)
		svc := newTestVerificationService(store, newFakeDocumentStore(), nil)

		var wg sync.WaitGroup
		var approveErr, rejectErr error
		wg.Add(2)
		go func() {
			defer wg.Done()
			_, _, approveErr = svc.Approve(ctx, guide.ID, uuid.New())
		}()
		go func() {
			defer wg.Done()
			_, rejectErr = svc.Reject(ctx, guide.ID, uuid.New(), "Informations contradictoires")
		}()
		wg.Wait()

		final := store.get(guide.ID)
		switch final.Approval.Status() {
		case models.StatusApproved:
			assert.NoError(t, approveErr)
			assert.Error(t, rejectErr)
			assert.True(t, final.IsVerified())
		case models.StatusRejected:
			assert.NoError(t, rejectErr)
			assert.Error(t, approveErr)
			assert.False(t, final.IsVerified())
		default:
			t.Fatalf("unexpected final state %s", final.Approval.Status())
		}
		assert.Equal(t, 1, store.writes)
	}
}

func TestListPending(t *testing.T) {
	older := pendingGuide(true)
	older.CreatedAt = time.Now().Add(-time.Hour)
	newer := pendingGuide(false)
	approved := pendingGuide(true)
	approved.Approval = models.Approved()

	svc := newTestVerificationService(newFakeGuideStore(older, newer, approved), newFakeDocumentStore(), nil)

	guides, err := svc.ListPending(context.Background())
	require.NoError(t, err)
	require.Len(t, guides, 2)
	assert.Equal(t, newer.ID, guides[0].ID)
	assert.Equal(t, older.ID, guides[1].ID)
}
