package database

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/morchidhub/guide-backend/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSupportList(t *testing.T) {
	ctx := context.Background()
	columns := []string{"id", "user_id", "subject", "message", "is_resolved", "created_at", "resolved_at", "user_name", "user_email"}

	t.Run("All Messages", func(t *testing.T) {
		db, mock := newMockDB(t)
		repo := NewSupportRepository(db)

		mock.ExpectQuery(`FROM support_messages m LEFT JOIN users u ON u.id = m.user_id ORDER BY m.is_resolved ASC, m.created_at DESC`).
			WillReturnRows(sqlmock.NewRows(columns).
				AddRow(uuid.New().String(), uuid.New().String(), "Paiement", "Je n'arrive pas à payer", false, time.Now(), nil, "Amina", "amina@example.ma"))

		msgs, err := repo.List(ctx, nil)
		require.NoError(t, err)
		require.Len(t, msgs, 1)
		assert.Equal(t, "Amina", msgs[0].UserName.String)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("Resolved Filter", func(t *testing.T) {
		db, mock := newMockDB(t)
		repo := NewSupportRepository(db)

		resolved := true
		mock.ExpectQuery(`WHERE m.is_resolved = \$1`).
			WithArgs(true).
			WillReturnRows(sqlmock.NewRows(columns))

		msgs, err := repo.List(ctx, &resolved)
		require.NoError(t, err)
		assert.Empty(t, msgs)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestSupportResolve(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewSupportRepository(db)

	id := uuid.New()
	mock.ExpectExec(`UPDATE support_messages SET is_resolved = TRUE`).
		WithArgs(id).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`UPDATE support_messages SET is_resolved = TRUE`).
		WithArgs(id).
		WillReturnResult(sqlmock.NewResult(0, 0))

	ok, err := repo.Resolve(context.Background(), id)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = repo.Resolve(context.Background(), id)
	require.NoError(t, err)
	assert.False(t, ok)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSupportCreate(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewSupportRepository(db)

	msg := &models.SupportMessage{UserID: uuid.New(), Subject: "Compte", Message: "Mon compte est bloqué"}
	mock.ExpectExec(`INSERT INTO support_messages`).
		WithArgs(sqlmock.AnyArg(), msg.UserID, "Compte", "Mon compte est bloqué", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, repo.Create(context.Background(), msg))
	assert.False(t, msg.IsResolved)
	assert.NoError(t, mock.ExpectationsWereMet())
}
