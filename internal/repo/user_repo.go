package repo

import (
	"context"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/tbourn/service-connect/internal/domain"
)

// CreateUser inserts u. A second account with the same email yields
// ErrDuplicate; the existing row is left untouched.
func CreateUser(ctx context.Context, db *gorm.DB, u *domain.User) error {
	u.Email = NormalizeEmail(u.Email)
	if err := db.WithContext(ctx).Create(u).Error; err != nil {
		if isUniqueViolation(err) {
			return ErrDuplicate
		}
		return err
	}
	return nil
}

// NormalizeEmail lower-cases and trims an address so that uniqueness is
// case-insensitive.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// GetUser fetches a user by id, or ErrNotFound.
func GetUser(ctx context.Context, db *gorm.DB, id uint) (*domain.User, error) {
	var u domain.User
	if err := db.WithContext(ctx).First(&u, id).Error; err != nil {
		return nil, err
	}
	return &u, nil
}

// GetUserByEmail fetches a user by normalized email, or ErrNotFound.
func GetUserByEmail(ctx context.Context, db *gorm.DB, email string) (*domain.User, error) {
	var u domain.User
	err := db.WithContext(ctx).
		Where("email = ?", NormalizeEmail(email)).
		First(&u).Error
	if err != nil {
		return nil, err
	}
	return &u, nil
}

// EmailExists reports whether an account already uses email.
func EmailExists(ctx context.Context, db *gorm.DB, email string) (bool, error) {
	var n int64
	err := db.WithContext(ctx).
		Model(&domain.User{}).
		Where("email = ?", NormalizeEmail(email)).
		Count(&n).Error
	return n > 0, err
}

// TouchLastLogin records a successful login.
func TouchLastLogin(ctx context.Context, db *gorm.DB, id uint, at time.Time) error {
	return db.WithContext(ctx).
		Model(&domain.User{}).
		Where("id = ?", id).
		Update("last_login", at.UTC()).Error
}

// UpdateProfile changes the mutable profile fields. Role and email are never
// touched. Returns ErrNotFound when id does not exist.
func UpdateProfile(ctx context.Context, db *gorm.DB, id uint, name string, phone, bio *string) error {
	res := db.WithContext(ctx).
		Model(&domain.User{}).
		Where("id = ?", id).
		Updates(map[string]any{"name": name, "phone": phone, "bio": bio})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// ListActiveTechnicians returns active technicians ordered by name.
func ListActiveTechnicians(ctx context.Context, db *gorm.DB) ([]domain.User, error) {
	var out []domain.User
	err := db.WithContext(ctx).
		Where("role = ? AND active = ?", domain.RoleTechnician, true).
		Order("name asc").
		Order("id asc").
		Find(&out).Error
	return out, err
}

// CountUsersByRole returns the number of accounts per role.
func CountUsersByRole(ctx context.Context, db *gorm.DB) (map[domain.Role]int64, error) {
	var rows []struct {
		Role  domain.Role
		Count int64
	}
	err := db.WithContext(ctx).
		Model(&domain.User{}).
		Select("role, COUNT(*) AS count").
		Group("role").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	out := make(map[domain.Role]int64, len(rows))
	for _, r := range rows {
		out[r.Role] = r.Count
	}
	return out, nil
}

// CountUsers returns the total number of accounts.
func CountUsers(ctx context.Context, db *gorm.DB) (int64, error) {
	var n int64
	err := db.WithContext(ctx).Model(&domain.User{}).Count(&n).Error
	return n, err
}
