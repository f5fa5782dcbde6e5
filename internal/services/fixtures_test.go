package services

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/tbourn/service-connect/internal/domain"
	"github.com/tbourn/service-connect/internal/repo"
)

func ctxT() context.Context { return context.Background() }

func newServiceDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := repo.OpenSQLite(filepath.Join(t.TempDir(), "services.db"))
	require.NoError(t, err)
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})
	db = db.Session(&gorm.Session{Logger: logger.Default.LogMode(logger.Silent)})
	require.NoError(t, repo.AutoMigrate(db))
	return db
}

// plainHasher stores passwords with a visible prefix; good enough for tests.
type plainHasher struct{}

func (plainHasher) Hash(p string) (string, error) { return "plain:" + p, nil }

func (plainHasher) Compare(hash, p string) error {
	if hash != "plain:"+p {
		return errors.New("mismatch")
	}
	return nil
}

func mkUser(t *testing.T, db *gorm.DB, name string, role domain.Role) domain.Actor {
	t.Helper()
	u := &domain.User{
		Email:        fmt.Sprintf("%s-%s@example.com", name, uuid.NewString()[:8]),
		PasswordHash: "plain:secret",
		Name:         name,
		Role:         role,
		Active:       true,
	}
	require.NoError(t, repo.CreateUser(ctxT(), db, u))
	return domain.Actor{UserID: u.ID, Role: role, Name: name}
}

func mkService(t *testing.T, db *gorm.DB, name string, price int64) *domain.Service {
	t.Helper()
	s := &domain.Service{Name: name, Category: "Home", Price: decimal.NewFromInt(price), Icon: "🧹", Rating: 4.5}
	require.NoError(t, db.Create(s).Error)
	return s
}

func tomorrow() string { return time.Now().UTC().Add(24 * time.Hour).Format("2006-01-02") }

// world is a small marketplace: one client, two technicians, an admin and
// one catalog entry priced at 50.
type world struct {
	db     *gorm.DB
	client domain.Actor
	tech   domain.Actor
	tech2  domain.Actor
	admin  domain.Actor
	svc    *domain.Service

	orders *OrderService
	chat   *ChatService
	assign *AssignmentService
}

func newWorld(t *testing.T) *world {
	t.Helper()
	db := newServiceDB(t)
	return &world{
		db:     db,
		client: mkUser(t, db, "client", domain.RoleClient),
		tech:   mkUser(t, db, "tech", domain.RoleTechnician),
		tech2:  mkUser(t, db, "tech2", domain.RoleTechnician),
		admin:  mkUser(t, db, "admin", domain.RoleAdmin),
		svc:    mkService(t, db, "House Cleaning", 50),
		orders: NewOrderService(db, time.Hour),
		chat:   NewChatService(db, 0),
		assign: NewAssignmentService(db),
	}
}

func (w *world) book(t *testing.T) *repo.OrderRow {
	t.Helper()
	row, _, err := w.orders.Create(ctxT(), w.client, CreateOrderInput{
		ServiceID:     w.svc.ID,
		BookingDate:   tomorrow(),
		PaymentMethod: "Cash",
	})
	require.NoError(t, err)
	return row
}
