package services

import (
	"context"
	"errors"
	"strings"
	"unicode/utf8"

	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/tbourn/service-connect/internal/domain"
	"github.com/tbourn/service-connect/internal/repo"
)

// ContactNotifier is told about each stored contact message.
type ContactNotifier interface {
	ContactReceived(ctx context.Context, m *domain.ContactMessage) error
}

// ContactInput is a public contact-form submission.
type ContactInput struct {
	Name    string
	Email   string
	Subject string
	Message string
}

// ContactService stores contact-form messages and forwards them to support.
type ContactService struct {
	DB       *gorm.DB
	Notifier ContactNotifier // optional
}

// NewContactService constructs a ContactService. n may be nil.
func NewContactService(db *gorm.DB, n ContactNotifier) *ContactService {
	return &ContactService{DB: db, Notifier: n}
}

// Submit validates and stores in. A failed notification is logged but does
// not fail the submission; the message is already persisted.
func (s *ContactService) Submit(ctx context.Context, in ContactInput) (*domain.ContactMessage, error) {
	name := normalizeName(in.Name)
	email := repo.NormalizeEmail(in.Email)
	subject := strings.TrimSpace(in.Subject)
	message := strings.TrimSpace(in.Message)

	switch {
	case name == "" || subject == "" || message == "":
		return nil, validationErr("name, subject and message are required", nil)
	case !emailRE.MatchString(email):
		return nil, validationErr("invalid email address", nil)
	case utf8.RuneCountInString(name) > maxNameRunes, utf8.RuneCountInString(subject) > maxNameRunes:
		return nil, validationErr("name or subject is too long", nil)
	case utf8.RuneCountInString(message) > maxBioRunes:
		return nil, validationErr("message is too long", nil)
	}

	m, err := repo.CreateContactMessage(ctx, s.DB, name, email, subject, message)
	if err != nil {
		return nil, storageErr("contact.create", err)
	}
	if s.Notifier != nil {
		if err := s.Notifier.ContactReceived(ctx, m); err != nil {
			zerolog.Ctx(ctx).Warn().Err(err).Uint("contact_id", m.ID).Msg("contact notification failed")
		}
	}
	return m, nil
}

// List returns contact messages for admins, optionally filtered by status
// ("Unread" or "Read").
func (s *ContactService) List(ctx context.Context, actor domain.Actor, status string) ([]domain.ContactMessage, error) {
	if !actor.Is(domain.RoleAdmin) {
		return nil, forbiddenErr("admin only", nil)
	}
	if status != "" && status != repo.ContactUnread && status != repo.ContactRead {
		return nil, validationErr("status must be Unread or Read", nil)
	}
	out, err := repo.ListContactMessages(ctx, s.DB, status)
	if err != nil {
		return nil, storageErr("contact.list", err)
	}
	return out, nil
}

// MarkRead flags one contact message as handled.
func (s *ContactService) MarkRead(ctx context.Context, actor domain.Actor, id uint) error {
	if !actor.Is(domain.RoleAdmin) {
		return forbiddenErr("admin only", nil)
	}
	err := repo.MarkContactRead(ctx, s.DB, id)
	if errors.Is(err, repo.ErrNotFound) {
		return notFoundErr("contact message not found")
	}
	if err != nil {
		return storageErr("contact.mark_read", err)
	}
	return nil
}
