// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides repository functions for the Order
// ledger: creation, the joined listing views used by clients, technicians
// and admins, and the compare-and-set status update.
//
// All functions are context-aware and accept a *gorm.DB handle, making them
// safe for use within transactions.
package repo

import (
	"context"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/tbourn/service-connect/internal/domain"
)

// OrderRow is an Order joined with its service, client and (optional)
// assigned technician, as returned by the listing queries.
type OrderRow struct {
	ID            string             `json:"id"`
	ClientID      uint               `json:"client_id"`
	ServiceID     uint               `json:"service_id"`
	BookingDate   string             `json:"booking_date"`
	Status        domain.OrderStatus `json:"status"`
	PaymentMethod string             `json:"payment_method"`
	Notes         string             `json:"notes"`
	Price         decimal.Decimal    `json:"price"`
	Version       int                `json:"version"`
	CreatedAt     time.Time          `json:"created_at"`
	UpdatedAt     time.Time          `json:"updated_at"`

	ServiceName     string `json:"service_name"`
	ServiceIcon     string `json:"service_icon"`
	ServiceCategory string `json:"service_category"`

	ClientName  string  `json:"client_name"`
	ClientEmail string  `json:"client_email"`
	ClientPhone *string `json:"client_phone,omitempty"`

	TechnicianID   *uint   `json:"technician_id,omitempty"`
	TechnicianName *string `json:"technician_name,omitempty"`
}

// OrderFilter narrows the admin listing. Zero values disable a filter.
type OrderFilter struct {
	Status      domain.OrderStatus
	ServiceName string
	BookingDate string // YYYY-MM-DD
	ClientID    uint
	Offset      int
	Limit       int
}

const orderRowColumns = `orders.id, orders.client_id, orders.service_id, orders.booking_date,
	orders.status, orders.payment_method, orders.notes, orders.price, orders.version,
	orders.created_at, orders.updated_at,
	services.name AS service_name, services.icon AS service_icon, services.category AS service_category,
	clients.name AS client_name, clients.email AS client_email, clients.phone AS client_phone,
	technician_assignments.technician_id AS technician_id, techs.name AS technician_name`

func orderRows(ctx context.Context, db *gorm.DB) *gorm.DB {
	return db.WithContext(ctx).
		Table("orders").
		Select(orderRowColumns).
		Joins("JOIN services ON services.id = orders.service_id").
		Joins("JOIN users AS clients ON clients.id = orders.client_id").
		Joins("LEFT JOIN technician_assignments ON technician_assignments.order_id = orders.id").
		Joins("LEFT JOIN users AS techs ON techs.id = technician_assignments.technician_id")
}

func newestFirst(q *gorm.DB) *gorm.DB {
	return q.Order("orders.created_at desc").Order("orders.id desc")
}

// CreateOrder inserts o. The caller sets ID, status and the price snapshot.
func CreateOrder(ctx context.Context, db *gorm.DB, o *domain.Order) error {
	return db.WithContext(ctx).Omit("Client", "Service").Create(o).Error
}

// GetOrder fetches the bare order row, or ErrNotFound.
func GetOrder(ctx context.Context, db *gorm.DB, id string) (*domain.Order, error) {
	var o domain.Order
	if err := db.WithContext(ctx).Where("id = ?", id).First(&o).Error; err != nil {
		return nil, err
	}
	return &o, nil
}

// GetOrderRow fetches one order with its joined identities, or ErrNotFound.
func GetOrderRow(ctx context.Context, db *gorm.DB, id string) (*OrderRow, error) {
	var rows []OrderRow
	if err := orderRows(ctx, db).Where("orders.id = ?", id).Limit(1).Scan(&rows).Error; err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, gorm.ErrRecordNotFound
	}
	return &rows[0], nil
}

// ListOrdersForClient returns a client's orders, newest first.
func ListOrdersForClient(ctx context.Context, db *gorm.DB, clientID uint) ([]OrderRow, error) {
	var out []OrderRow
	err := newestFirst(orderRows(ctx, db).Where("orders.client_id = ?", clientID)).Scan(&out).Error
	return out, err
}

// ListPendingOrders returns every Pending order system-wide, newest first.
func ListPendingOrders(ctx context.Context, db *gorm.DB) ([]OrderRow, error) {
	var out []OrderRow
	err := newestFirst(orderRows(ctx, db).Where("orders.status = ?", domain.StatusPending)).Scan(&out).Error
	return out, err
}

// ListOrdersAssignedTo returns orders assigned to technicianID in any status,
// newest first.
func ListOrdersAssignedTo(ctx context.Context, db *gorm.DB, technicianID uint) ([]OrderRow, error) {
	var out []OrderRow
	err := newestFirst(orderRows(ctx, db).Where("technician_assignments.technician_id = ?", technicianID)).Scan(&out).Error
	return out, err
}

func applyOrderFilter(q *gorm.DB, f OrderFilter) *gorm.DB {
	if f.Status != "" {
		q = q.Where("orders.status = ?", f.Status)
	}
	if s := strings.TrimSpace(f.ServiceName); s != "" {
		q = q.Where("services.name = ?", s)
	}
	if d := strings.TrimSpace(f.BookingDate); d != "" {
		q = q.Where("orders.booking_date = ?", d)
	}
	if f.ClientID != 0 {
		q = q.Where("orders.client_id = ?", f.ClientID)
	}
	return q
}

// ListOrders returns the filtered admin listing, newest first. A Limit of
// zero returns every matching row.
func ListOrders(ctx context.Context, db *gorm.DB, f OrderFilter) ([]OrderRow, error) {
	q := newestFirst(applyOrderFilter(orderRows(ctx, db), f))
	if f.Offset > 0 {
		q = q.Offset(f.Offset)
	}
	if f.Limit > 0 {
		q = q.Limit(f.Limit)
	}
	var out []OrderRow
	err := q.Scan(&out).Error
	return out, err
}

// CountOrders returns the number of orders matching f (paging ignored).
func CountOrders(ctx context.Context, db *gorm.DB, f OrderFilter) (int64, error) {
	var n int64
	q := db.WithContext(ctx).
		Table("orders").
		Joins("JOIN services ON services.id = orders.service_id")
	err := applyOrderFilter(q, f).Count(&n).Error
	return n, err
}

// CompareAndSetStatus moves an order from -> to only if it is still in
// state from at the given version, bumping the version. It reports whether
// the row was changed; false means a concurrent writer got there first.
func CompareAndSetStatus(ctx context.Context, db *gorm.DB, id string, from, to domain.OrderStatus, version int) (bool, error) {
	res := db.WithContext(ctx).
		Model(&domain.Order{}).
		Where("id = ? AND status = ? AND version = ?", id, from, version).
		Updates(map[string]any{
			"status":     to,
			"version":    gorm.Expr("version + 1"),
			"updated_at": time.Now().UTC(),
		})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

// CountOrdersByStatus returns the number of orders per status.
func CountOrdersByStatus(ctx context.Context, db *gorm.DB) (map[domain.OrderStatus]int64, error) {
	var rows []struct {
		Status domain.OrderStatus
		Count  int64
	}
	err := db.WithContext(ctx).
		Model(&domain.Order{}).
		Select("status, COUNT(*) AS count").
		Group("status").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	out := make(map[domain.OrderStatus]int64, len(rows))
	for _, r := range rows {
		out[r.Status] = r.Count
	}
	return out, nil
}

// SumOrderPrices adds up the price snapshots of orders in status.
func SumOrderPrices(ctx context.Context, db *gorm.DB, status domain.OrderStatus) (decimal.Decimal, error) {
	var prices []decimal.Decimal
	err := db.WithContext(ctx).
		Model(&domain.Order{}).
		Where("status = ?", status).
		Pluck("price", &prices).Error
	if err != nil {
		return decimal.Zero, err
	}
	return decimal.Sum(decimal.Zero, prices...), nil
}
