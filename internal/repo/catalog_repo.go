package repo

import (
	"context"
	"strings"

	"gorm.io/gorm"

	"github.com/tbourn/service-connect/internal/domain"
)

// AllCategories is the pseudo-category that disables the category filter.
const AllCategories = "All"

// ListServices returns catalog entries, optionally restricted to one
// category. An empty category or "All" returns everything.
func ListServices(ctx context.Context, db *gorm.DB, category string) ([]domain.Service, error) {
	q := db.WithContext(ctx).Model(&domain.Service{})
	if c := strings.TrimSpace(category); c != "" && !strings.EqualFold(c, AllCategories) {
		q = q.Where("LOWER(category) = ?", strings.ToLower(c))
	}
	var out []domain.Service
	err := q.Order("id asc").Find(&out).Error
	return out, err
}

// ListCategories returns the distinct catalog categories in name order.
func ListCategories(ctx context.Context, db *gorm.DB) ([]string, error) {
	var out []string
	err := db.WithContext(ctx).
		Model(&domain.Service{}).
		Distinct("category").
		Order("category asc").
		Pluck("category", &out).Error
	return out, err
}

// GetService fetches a catalog entry by id, or ErrNotFound.
func GetService(ctx context.Context, db *gorm.DB, id uint) (*domain.Service, error) {
	var s domain.Service
	if err := db.WithContext(ctx).First(&s, id).Error; err != nil {
		return nil, err
	}
	return &s, nil
}

// CountServices returns the size of the catalog.
func CountServices(ctx context.Context, db *gorm.DB) (int64, error) {
	var n int64
	err := db.WithContext(ctx).Model(&domain.Service{}).Count(&n).Error
	return n, err
}
