package repo

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/tbourn/service-connect/internal/domain"
)

// ReplaceAssignment clears any assignment for orderID and inserts one for
// technicianID. It also touches the order's updated_at so listings keyed on
// it (ETags) see the new technician. All statements run in a single
// transaction; if db is already a transaction they join it.
func ReplaceAssignment(ctx context.Context, db *gorm.DB, orderID string, technicianID uint) (*domain.TechnicianAssignment, error) {
	a := &domain.TechnicianAssignment{
		OrderID:      orderID,
		TechnicianID: technicianID,
		AssignedAt:   time.Now().UTC(),
	}
	err := db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("order_id = ?", orderID).Delete(&domain.TechnicianAssignment{}).Error; err != nil {
			return err
		}
		if err := tx.Omit("Order", "Technician").Create(a).Error; err != nil {
			return err
		}
		return tx.Model(&domain.Order{}).
			Where("id = ?", orderID).
			UpdateColumn("updated_at", a.AssignedAt).Error
	})
	if err != nil {
		if isUniqueViolation(err) {
			return nil, ErrDuplicate
		}
		return nil, err
	}
	return a, nil
}

// GetAssignment returns the assignment for orderID, or ErrNotFound when the
// order is unassigned.
func GetAssignment(ctx context.Context, db *gorm.DB, orderID string) (*domain.TechnicianAssignment, error) {
	var a domain.TechnicianAssignment
	if err := db.WithContext(ctx).Where("order_id = ?", orderID).First(&a).Error; err != nil {
		return nil, err
	}
	return &a, nil
}

// CountAssignments returns how many assignment rows exist for orderID.
func CountAssignments(ctx context.Context, db *gorm.DB, orderID string) (int64, error) {
	var n int64
	err := db.WithContext(ctx).
		Model(&domain.TechnicianAssignment{}).
		Where("order_id = ?", orderID).
		Count(&n).Error
	return n, err
}
