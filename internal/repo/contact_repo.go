package repo

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/tbourn/service-connect/internal/domain"
)

// Contact message statuses.
const (
	ContactUnread = "Unread"
	ContactRead   = "Read"
)

// CreateContactMessage stores a contact-form submission as Unread.
func CreateContactMessage(ctx context.Context, db *gorm.DB, name, email, subject, message string) (*domain.ContactMessage, error) {
	m := &domain.ContactMessage{
		Name:      name,
		Email:     email,
		Subject:   subject,
		Message:   message,
		Status:    ContactUnread,
		CreatedAt: time.Now().UTC(),
	}
	if err := db.WithContext(ctx).Create(m).Error; err != nil {
		return nil, err
	}
	return m, nil
}

// ListContactMessages returns submissions newest first, optionally filtered
// by status.
func ListContactMessages(ctx context.Context, db *gorm.DB, status string) ([]domain.ContactMessage, error) {
	q := db.WithContext(ctx).Model(&domain.ContactMessage{})
	if status != "" {
		q = q.Where("status = ?", status)
	}
	var out []domain.ContactMessage
	err := q.Order("created_at desc").Order("id desc").Find(&out).Error
	return out, err
}

// MarkContactRead flips one submission to Read. Returns ErrNotFound when id
// does not exist.
func MarkContactRead(ctx context.Context, db *gorm.DB, id uint) error {
	res := db.WithContext(ctx).
		Model(&domain.ContactMessage{}).
		Where("id = ?", id).
		Update("status", ContactRead)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}
