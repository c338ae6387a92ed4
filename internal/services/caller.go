package services

import "github.com/google/uuid"

// Caller identifies the authenticated user behind a request
type Caller struct {
	UserID uuid.UUID
	Roles  []string
}

// HasRole reports whether the caller carries role
func (c Caller) HasRole(role string) bool {
	for _, r := range c.Roles {
		if r == role {
			return true
		}
	}
	return false
}
