package database

import (
	"errors"

	"github.com/lib/pq"
)

var (
	// ErrNotFound is returned when a lookup matches no row
	ErrNotFound = errors.New("record not found")

	// ErrDuplicateReview is returned when a tourist already reviewed the guide
	ErrDuplicateReview = errors.New("review already exists for this tourist and guide")

	// ErrDuplicateEmail is returned when an account with the email exists
	ErrDuplicateEmail = errors.New("email already registered")
)

const uniqueViolation = "23505"

// isUniqueViolation reports whether err is a postgres unique constraint violation,
// optionally on the named constraint
func isUniqueViolation(err error, constraint string) bool {
	var pqErr *pq.Error
	if !errors.As(err, &pqErr) {
		return false
	}
	if pqErr.Code != uniqueViolation {
		return false
	}
	return constraint == "" || pqErr.Constraint == constraint
}
