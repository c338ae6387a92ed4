package models

import (
	"time"

	"github.com/google/uuid"
)

// SupportMessage is a ticket sent by a user to the admins
type SupportMessage struct {
	ID         uuid.UUID `json:"id" db:"id"`
	UserID     uuid.UUID `json:"user_id" db:"user_id"`
	Subject    string    `json:"subject" db:"subject"`
	Message    string    `json:"message" db:"message"`
	IsResolved bool      `json:"is_resolved" db:"is_resolved"`
	CreatedAt  time.Time `json:"created_at" db:"created_at"`
	ResolvedAt NullTime  `json:"resolved_at" db:"resolved_at"`
}

// SupportMessageWithUser adds the sender's identity for the admin inbox
type SupportMessageWithUser struct {
	SupportMessage
	UserName  NullString `json:"user_name" db:"user_name"`
	UserEmail NullString `json:"user_email" db:"user_email"`
}

// CreateSupportMessageRequest is the body of POST /support/messages
type CreateSupportMessageRequest struct {
	Subject string `json:"subject" binding:"required,min=5,max=200"`
	Message string `json:"message" binding:"required,min=10,max=2000"`
}

// AdminStats is the dashboard summary
type AdminStats struct {
	Users struct {
		Total    int64 `json:"total" db:"total"`
		Active   int64 `json:"active" db:"active"`
		Inactive int64 `json:"inactive" db:"inactive"`
	} `json:"users"`
	Guides struct {
		Total    int64 `json:"total" db:"total"`
		Pending  int64 `json:"pending" db:"pending"`
		Approved int64 `json:"approved" db:"approved"`
		Rejected int64 `json:"rejected" db:"rejected"`
	} `json:"guides"`
	Support struct {
		Unresolved int64 `json:"unresolved" db:"unresolved"`
	} `json:"support"`
}
