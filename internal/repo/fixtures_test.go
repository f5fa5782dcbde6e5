package repo

import (
	"context"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/tbourn/service-connect/internal/domain"
)

func ctxT() context.Context { return context.Background() }

// newRepoDB opens a fully migrated file-backed SQLite database with foreign
// keys enforced on every connection.
func newRepoDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := OpenSQLite(filepath.Join(t.TempDir(), "repo.db"))
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	// Ensure the file handle is released before TempDir cleanup (Windows needs this).
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})
	db = db.Session(&gorm.Session{Logger: logger.Default.LogMode(logger.Silent)})
	if err := AutoMigrate(db); err != nil {
		t.Fatalf("automigrate: %v", err)
	}
	return db
}

func mkUser(t *testing.T, db *gorm.DB, name string, role domain.Role) *domain.User {
	t.Helper()
	u := &domain.User{
		Email:        fmt.Sprintf("%s-%s@example.com", name, uuid.NewString()[:8]),
		PasswordHash: "x",
		Name:         name,
		Role:         role,
		Active:       true,
	}
	if err := CreateUser(ctxT(), db, u); err != nil {
		t.Fatalf("create user %s: %v", name, err)
	}
	return u
}

func mkService(t *testing.T, db *gorm.DB, name string, price int64) *domain.Service {
	t.Helper()
	s := &domain.Service{Name: name, Category: "Home", Price: decimal.NewFromInt(price), Icon: "🧹", Rating: 4.5}
	if err := db.Create(s).Error; err != nil {
		t.Fatalf("create service: %v", err)
	}
	return s
}

func mkOrder(t *testing.T, db *gorm.DB, client *domain.User, svc *domain.Service, createdAt time.Time) *domain.Order {
	t.Helper()
	o := &domain.Order{
		ID:            uuid.NewString(),
		ClientID:      client.ID,
		ServiceID:     svc.ID,
		BookingDate:   "2030-01-01",
		Status:        domain.StatusPending,
		PaymentMethod: "Cash",
		Price:         svc.Price,
		Version:       1,
		CreatedAt:     createdAt,
		UpdatedAt:     createdAt,
	}
	if err := CreateOrder(ctxT(), db, o); err != nil {
		t.Fatalf("create order: %v", err)
	}
	return o
}

func mkMessage(t *testing.T, db *gorm.DB, orderID string, sender uint, body string, at time.Time) *domain.ChatMessage {
	t.Helper()
	m := &domain.ChatMessage{OrderID: orderID, SenderID: sender, Body: body, CreatedAt: at}
	if err := db.Omit("Order", "Sender").Create(m).Error; err != nil {
		t.Fatalf("create message: %v", err)
	}
	return m
}
