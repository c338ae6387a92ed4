package services

import (
	"context"
	"errors"
	"strings"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/morchidhub/guide-backend/internal/database"
	"github.com/morchidhub/guide-backend/internal/models"
	"github.com/sirupsen/logrus"
)

// SupportStore persists support messages
type SupportStore interface {
	Create(ctx context.Context, msg *models.SupportMessage) error
	List(ctx context.Context, resolved *bool) ([]models.SupportMessageWithUser, error)
	GetByID(ctx context.Context, id uuid.UUID) (*models.SupportMessage, error)
	Resolve(ctx context.Context, id uuid.UUID) (bool, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

// SupportService handles the user to admin support inbox
type SupportService struct {
	store  SupportStore
	logger logrus.FieldLogger
}

// NewSupportService creates a new support service
func NewSupportService(store SupportStore, logger logrus.FieldLogger) *SupportService {
	return &SupportService{store: store, logger: logger}
}

// Submit stores a message from userID
func (s *SupportService) Submit(ctx context.Context, userID uuid.UUID, subject, message string) (*models.SupportMessage, error) {
	subject = strings.TrimSpace(subject)
	message = strings.TrimSpace(message)

	if n := utf8.RuneCountInString(subject); n < 5 || n > 200 {
		return nil, &ValidationError{Field: "subject", Message: "Subject must be between 5 and 200 characters"}
	}
	if n := utf8.RuneCountInString(message); n < 10 || n > 2000 {
		return nil, &ValidationError{Field: "message", Message: "Message must be between 10 and 2000 characters"}
	}

	msg := &models.SupportMessage{UserID: userID, Subject: subject, Message: message}
	if err := s.store.Create(ctx, msg); err != nil {
		return nil, err
	}

	s.logger.WithFields(logrus.Fields{
		"message_id": msg.ID,
		"user_id":    userID,
	}).Info("Support message received")
	return msg, nil
}

// List returns the inbox, optionally filtered by resolution
func (s *SupportService) List(ctx context.Context, resolved *bool) ([]models.SupportMessageWithUser, error) {
	return s.store.List(ctx, resolved)
}

// Resolve closes a message. Resolving twice is a conflict.
func (s *SupportService) Resolve(ctx context.Context, id uuid.UUID) (*models.SupportMessage, error) {
	ok, err := s.store.Resolve(ctx, id)
	if err != nil {
		return nil, err
	}

	msg, err := s.store.GetByID(ctx, id)
	if err != nil {
		return nil, mapSupportErr(err)
	}
	if !ok {
		return nil, &ConflictError{Code: "ALREADY_RESOLVED", Message: "Support message is already resolved"}
	}
	return msg, nil
}

// Delete removes a message
func (s *SupportService) Delete(ctx context.Context, id uuid.UUID) error {
	return mapSupportErr(s.store.Delete(ctx, id))
}

func mapSupportErr(err error) error {
	if errors.Is(err, database.ErrNotFound) {
		return &NotFoundError{Entity: "support_message", Code: "MESSAGE_NOT_FOUND", Message: "Support message not found"}
	}
	return err
}
