package repo

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/tbourn/service-connect/internal/domain"
)

// DefaultCatalog is the reference catalog seeded into an empty database.
func DefaultCatalog() []domain.Service {
	svc := func(name, category string, price int64, desc, icon string, rating float64) domain.Service {
		return domain.Service{
			Name:        name,
			Category:    category,
			Price:       decimal.NewFromInt(price),
			Description: desc,
			Icon:        icon,
			Rating:      rating,
		}
	}
	return []domain.Service{
		svc("House Cleaning", "Home", 50, "Deep cleaning service for your entire home", "🧹", 4.7),
		svc("Plumbing Repair", "Maintenance", 80, "Fix leaks and drainage issues", "🔧", 4.8),
		svc("Tech Support", "Tech", 60, "Computer troubleshooting and setup", "💻", 4.9),
		svc("Mobile Mechanic", "Auto", 90, "Car repair at your location", "🚗", 4.6),
		svc("Locksmith", "Maintenance", 60, "Lock replacement and key making", "🔑", 4.8),
		svc("Lighting Install", "Maintenance", 80, "Professional light fixture installation", "💡", 4.7),
		svc("Air Conditioning", "Home", 120, "AC installation and repair", "❄️", 4.9),
		svc("Electrical Wiring", "Maintenance", 100, "Safe electrical wiring solutions", "⚡", 4.8),
		svc("Carpet Cleaning", "Home", 70, "Deep carpet cleaning and stain removal", "🧽", 4.6),
		svc("Painting Service", "Home", 200, "Interior and exterior painting", "🎨", 4.7),
	}
}

// SeedServices inserts services when the catalog is empty and returns how
// many rows were written. A negative price aborts the whole seed.
func SeedServices(ctx context.Context, db *gorm.DB, services []domain.Service) (int, error) {
	for _, s := range services {
		if s.Price.IsNegative() {
			return 0, fmt.Errorf("seed service %q: negative price %s", s.Name, s.Price)
		}
	}
	n, err := CountServices(ctx, db)
	if err != nil {
		return 0, err
	}
	if n > 0 || len(services) == 0 {
		return 0, nil
	}
	rows := make([]domain.Service, len(services))
	copy(rows, services)
	if err := db.WithContext(ctx).Create(&rows).Error; err != nil {
		return 0, err
	}
	return len(rows), nil
}

// SeedUsers inserts each user whose email is not yet registered and returns
// how many rows were written. PasswordHash must already be set.
func SeedUsers(ctx context.Context, db *gorm.DB, users []domain.User) (int, error) {
	created := 0
	for i := range users {
		u := users[i]
		exists, err := EmailExists(ctx, db, u.Email)
		if err != nil {
			return created, err
		}
		if exists {
			continue
		}
		if err := CreateUser(ctx, db, &u); err != nil {
			return created, err
		}
		created++
	}
	return created, nil
}
