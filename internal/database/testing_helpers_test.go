package database

import (
	"database/sql/driver"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

func newMockDB(t *testing.T) (*PostgresDB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return NewFromSQL(db), mock
}

var guideRowColumns = []string{
	"id", "user_id", "languages", "specialties", "cities_covered",
	"years_of_experience", "bio", "cine_number", "license_number",
	"has_official_license", "profile_photo_url", "license_card_url",
	"cine_card_url", "documents_submitted_at", "approval_status",
	"rejection_reason", "is_verified", "reviewed_by", "reviewed_at",
	"rating_sum", "total_reviews", "average_rating", "eco_score",
	"created_at", "updated_at",
}

type guideFixture struct {
	id       uuid.UUID
	userID   uuid.UUID
	status   string
	reason   interface{}
	withDocs bool
	sum      int64
	count    int64
}

func (f guideFixture) values() []driver.Value {
	now := time.Now()
	var profile, license, cine, submitted interface{}
	if f.withDocs {
		profile = "/uploads/p.jpg"
		license = "/uploads/l.jpg"
		cine = "/uploads/c.jpg"
		submitted = now
	}
	var avg float64
	if f.count > 0 {
		avg = float64(f.sum) / float64(f.count)
	}
	return []driver.Value{
		f.id.String(), f.userID.String(), []byte("{fr,ar}"), []byte("{culture}"), []byte("{Fes}"),
		4, "bio", "AB123456", "LIC-12345",
		true, profile, license,
		cine, submitted, f.status,
		f.reason, f.status == "approved", nil, nil,
		f.sum, f.count, avg, 10,
		now, now,
	}
}

func guideRows(fixtures ...guideFixture) *sqlmock.Rows {
	rows := sqlmock.NewRows(guideRowColumns)
	for _, f := range fixtures {
		rows.AddRow(f.values()...)
	}
	return rows
}
