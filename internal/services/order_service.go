// Package services – OrderService
//
// This file implements the order ledger: booking a catalog service, the
// client / technician / admin listings, and status transitions guarded by
// the transition table and an optimistic compare-and-set on the order
// version.
//
// Observability: mutating methods are OpenTelemetry-instrumented and bump
// the domain Prometheus counters in internal/observability.
package services

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/gorm"

	"github.com/tbourn/service-connect/internal/domain"
	"github.com/tbourn/service-connect/internal/observability"
	"github.com/tbourn/service-connect/internal/repo"
)

// IdempotencyScopeOrders scopes Idempotency-Key records for order creation.
const IdempotencyScopeOrders = "orders"

const (
	bookingDateLayout = "2006-01-02"
	maxNotesRunes     = 2000
)

// PaymentMethods are the accepted payment labels. No payment is processed.
var PaymentMethods = []string{"Credit Card", "Cash", "Digital Wallet", "Bank Transfer"}

// CreateOrderInput is the booking payload.
type CreateOrderInput struct {
	ServiceID     uint
	BookingDate   string
	PaymentMethod string
	Notes         string
	// Price overrides the snapshot; nil takes the live catalog price.
	Price *decimal.Decimal
	// IdempotencyKey makes retries return the first order when set.
	IdempotencyKey string
}

// PendingOrder is a Pending order annotated with the requester's unread
// message count.
type PendingOrder struct {
	repo.OrderRow
	Unread int64 `json:"unread"`
}

// OrderPage is one page of the admin listing.
type OrderPage struct {
	Items []repo.OrderRow `json:"items"`
	Total int64           `json:"total"`
}

// OrderService owns the order ledger.
type OrderService struct {
	DB             *gorm.DB
	IdempotencyTTL time.Duration
	Now            func() time.Time
}

// NewOrderService constructs an OrderService.
func NewOrderService(db *gorm.DB, idemTTL time.Duration) *OrderService {
	return &OrderService{DB: db, IdempotencyTTL: idemTTL, Now: time.Now}
}

func (s *OrderService) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

// Create books a service for a client. It reports whether the order was
// replayed from an earlier request carrying the same idempotency key.
func (s *OrderService) Create(ctx context.Context, actor domain.Actor, in CreateOrderInput) (*repo.OrderRow, bool, error) {
	tr := otel.Tracer("services/OrderService")
	ctx, span := tr.Start(ctx, "Create",
		trace.WithAttributes(
			attribute.Int64("user.id", int64(actor.UserID)),
			attribute.Int64("service.id", int64(in.ServiceID)),
		),
	)
	defer span.End()

	if !actor.Is(domain.RoleClient) {
		return nil, false, forbiddenErr("only clients can book services", nil)
	}
	if err := s.validateCreate(in); err != nil {
		return nil, false, err
	}

	key := strings.TrimSpace(in.IdempotencyKey)
	if key != "" {
		if row, ok, err := s.replay(ctx, actor.UserID, key); err != nil || ok {
			span.SetAttributes(attribute.Bool("idempotent.replay", ok))
			return row, ok, err
		}
	}

	svc, err := repo.GetService(ctx, s.DB, in.ServiceID)
	if errors.Is(err, repo.ErrNotFound) {
		return nil, false, notFoundErr("service not found")
	}
	if err != nil {
		return nil, false, storageErr("order.create.service", err)
	}

	price := svc.Price
	if in.Price != nil {
		price = *in.Price
	}
	o := &domain.Order{
		ID:            uuid.NewString(),
		ClientID:      actor.UserID,
		ServiceID:     svc.ID,
		BookingDate:   in.BookingDate,
		Status:        domain.StatusPending,
		PaymentMethod: in.PaymentMethod,
		Notes:         strings.TrimSpace(in.Notes),
		Price:         price,
		Version:       1,
	}

	err = s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := repo.CreateOrder(ctx, tx, o); err != nil {
			return err
		}
		if key == "" {
			return nil
		}
		_, err := repo.CreateIdempotency(ctx, tx, actor.UserID, IdempotencyScopeOrders, key, o.ID, http.StatusCreated, s.IdempotencyTTL)
		return err
	})
	if errors.Is(err, repo.ErrDuplicate) {
		// A concurrent request with the same key committed first.
		if row, ok, rerr := s.replay(ctx, actor.UserID, key); rerr != nil || ok {
			return row, ok, rerr
		}
	}
	if err != nil {
		if repo.IsForeignKeyViolation(err) {
			return nil, false, validationErr("client or service does not exist", err)
		}
		return nil, false, storageErr("order.create", err)
	}

	observability.OrdersCreated.Inc()
	span.SetAttributes(attribute.String("order.id", o.ID))

	row, err := repo.GetOrderRow(ctx, s.DB, o.ID)
	if err != nil {
		return nil, false, storageErr("order.create.reload", err)
	}
	return row, false, nil
}

func (s *OrderService) validateCreate(in CreateOrderInput) error {
	if in.ServiceID == 0 {
		return validationErr("service_id is required", nil)
	}
	day, err := time.Parse(bookingDateLayout, strings.TrimSpace(in.BookingDate))
	if err != nil {
		return validationErr("booking_date must be YYYY-MM-DD", nil)
	}
	today := s.now().UTC().Truncate(24 * time.Hour)
	if day.Before(today) {
		return validationErr("booking_date must not be in the past", nil)
	}
	if !validPaymentMethod(in.PaymentMethod) {
		return validationErr("unknown payment method", nil)
	}
	if utf8.RuneCountInString(in.Notes) > maxNotesRunes {
		return validationErr("notes are too long", nil)
	}
	if in.Price != nil && in.Price.IsNegative() {
		return validationErr("price must not be negative", nil)
	}
	return nil
}

func validPaymentMethod(m string) bool {
	for _, p := range PaymentMethods {
		if m == p {
			return true
		}
	}
	return false
}

func (s *OrderService) replay(ctx context.Context, userID uint, key string) (*repo.OrderRow, bool, error) {
	rec, err := repo.GetIdempotency(ctx, s.DB, userID, IdempotencyScopeOrders, key, s.now().UTC())
	if errors.Is(err, repo.ErrNotFound) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, storageErr("order.idempotency.get", err)
	}
	row, err := repo.GetOrderRow(ctx, s.DB, rec.ResourceID)
	if err != nil {
		return nil, false, storageErr("order.idempotency.reload", err)
	}
	return row, true, nil
}

// ListForClient returns the actor's own orders, newest first.
func (s *OrderService) ListForClient(ctx context.Context, actor domain.Actor) ([]repo.OrderRow, error) {
	if !actor.Is(domain.RoleClient) {
		return nil, forbiddenErr("only clients have bookings", nil)
	}
	rows, err := repo.ListOrdersForClient(ctx, s.DB, actor.UserID)
	if err != nil {
		return nil, storageErr("order.list_client", err)
	}
	return rows, nil
}

// ListPending returns every Pending order system-wide, newest first, each
// annotated with the number of unread messages the requester did not send.
func (s *OrderService) ListPending(ctx context.Context, actor domain.Actor) ([]PendingOrder, error) {
	ctx, span := otel.Tracer("services/OrderService").Start(ctx, "ListPending",
		trace.WithAttributes(attribute.Int64("user.id", int64(actor.UserID))))
	defer span.End()

	if !actor.Is(domain.RoleTechnician) && !actor.Is(domain.RoleAdmin) {
		return nil, forbiddenErr("only technicians and admins can view the pending queue", nil)
	}
	rows, err := repo.ListPendingOrders(ctx, s.DB)
	if err != nil {
		return nil, storageErr("order.list_pending", err)
	}
	ids := make([]string, len(rows))
	for i := range rows {
		ids[i] = rows[i].ID
	}
	unread, err := repo.UnreadByOrder(ctx, s.DB, actor.UserID, ids)
	if err != nil {
		return nil, storageErr("order.list_pending.unread", err)
	}
	out := make([]PendingOrder, len(rows))
	for i := range rows {
		out[i] = PendingOrder{OrderRow: rows[i], Unread: unread[rows[i].ID]}
	}
	return out, nil
}

// ListAll is the admin listing with filters and paging.
func (s *OrderService) ListAll(ctx context.Context, actor domain.Actor, f repo.OrderFilter) (*OrderPage, error) {
	if !actor.Is(domain.RoleAdmin) {
		return nil, forbiddenErr("admin only", nil)
	}
	if f.BookingDate != "" {
		if _, err := time.Parse(bookingDateLayout, f.BookingDate); err != nil {
			return nil, validationErr("booking_date must be YYYY-MM-DD", nil)
		}
	}
	total, err := repo.CountOrders(ctx, s.DB, f)
	if err != nil {
		return nil, storageErr("order.list_all.count", err)
	}
	items, err := repo.ListOrders(ctx, s.DB, f)
	if err != nil {
		return nil, storageErr("order.list_all", err)
	}
	if items == nil {
		items = []repo.OrderRow{}
	}
	return &OrderPage{Items: items, Total: total}, nil
}

// Details returns the order joined with client and technician identity.
func (s *OrderService) Details(ctx context.Context, actor domain.Actor, orderID string) (*repo.OrderRow, error) {
	acc, err := loadOrderAccess(ctx, s.DB, orderID)
	if err != nil {
		return nil, err
	}
	if !acc.canView(actor) {
		return nil, forbiddenErr("not allowed to view this order", ErrNotEligible)
	}
	row, err := repo.GetOrderRow(ctx, s.DB, orderID)
	if err != nil {
		return nil, storageErr("order.details", err)
	}
	return row, nil
}

// SetStatus moves an order to status to.
//
// Only Pending->Done and Pending->Cancelled are legal; writing the current
// status again is a no-op that returns the order unchanged for anyone who can
// view it. A non-zero
// expectedVersion must match the stored version. Done is reserved for an
// eligible technician (who thereby claims an unassigned order) or an admin;
// Cancelled for the owning client or an admin.
func (s *OrderService) SetStatus(ctx context.Context, actor domain.Actor, orderID string, to domain.OrderStatus, expectedVersion int) (*repo.OrderRow, error) {
	tr := otel.Tracer("services/OrderService")
	ctx, span := tr.Start(ctx, "SetStatus",
		trace.WithAttributes(
			attribute.String("order.id", orderID),
			attribute.String("order.to", string(to)),
			attribute.Int("order.expected_version", expectedVersion),
		),
	)
	defer span.End()

	switch to {
	case domain.StatusPending, domain.StatusDone, domain.StatusCancelled:
	default:
		return nil, validationErr("unknown status", nil)
	}

	acc, err := loadOrderAccess(ctx, s.DB, orderID)
	if err != nil {
		return nil, err
	}
	if !acc.canView(actor) {
		return nil, forbiddenErr("not allowed to change this order", ErrNotEligible)
	}

	o := acc.order
	if expectedVersion != 0 && expectedVersion != o.Version {
		return nil, conflictErr("order was modified concurrently", ErrStaleVersion)
	}
	// Anyone who can see the order may restate its status.
	if o.Status == to {
		return s.reload(ctx, orderID)
	}
	if err := authorizeTransition(actor, acc, to); err != nil {
		return nil, err
	}
	if !domain.CanTransition(o.Status, to) {
		return nil, validationErr("cannot move order from "+string(o.Status)+" to "+string(to), ErrIllegalTransition)
	}

	claim := to == domain.StatusDone && actor.Is(domain.RoleTechnician) && acc.assignedTo == 0
	var applied bool
	err = s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		ok, err := repo.CompareAndSetStatus(ctx, tx, orderID, o.Status, to, o.Version)
		if err != nil || !ok {
			return err
		}
		applied = true
		if claim {
			_, err = repo.ReplaceAssignment(ctx, tx, orderID, actor.UserID)
		}
		return err
	})
	if err != nil {
		return nil, storageErr("order.set_status", err)
	}
	if !applied {
		return nil, conflictErr("order was modified concurrently", ErrStaleVersion)
	}

	observability.StatusTransitions.WithLabelValues(string(to)).Inc()
	if claim {
		observability.AssignmentsReplaced.Inc()
	}
	return s.reload(ctx, orderID)
}

func authorizeTransition(actor domain.Actor, acc *orderAccess, to domain.OrderStatus) error {
	if actor.Is(domain.RoleAdmin) {
		return nil
	}
	switch to {
	case domain.StatusDone:
		if acc.technicianEligible(actor) {
			return nil
		}
		if actor.Is(domain.RoleTechnician) && acc.assignedTo != 0 {
			return forbiddenErr("order is assigned to another technician", ErrAlreadyAssigned)
		}
		return forbiddenErr("only technicians can complete orders", ErrNotEligible)
	case domain.StatusCancelled:
		if acc.ownedBy(actor) {
			return nil
		}
		return forbiddenErr("only the client who booked can cancel", ErrNotEligible)
	}
	return forbiddenErr("admin only", nil)
}

func (s *OrderService) reload(ctx context.Context, orderID string) (*repo.OrderRow, error) {
	row, err := repo.GetOrderRow(ctx, s.DB, orderID)
	if err != nil {
		return nil, storageErr("order.reload", err)
	}
	return row, nil
}

// Complete is the technician-facing "complete" action: Pending -> Done,
// claiming the order when nobody holds it.
func (s *OrderService) Complete(ctx context.Context, actor domain.Actor, orderID string) (*repo.OrderRow, error) {
	return s.SetStatus(ctx, actor, orderID, domain.StatusDone, 0)
}

// Cancel moves a Pending order to Cancelled.
func (s *OrderService) Cancel(ctx context.Context, actor domain.Actor, orderID string) (*repo.OrderRow, error) {
	return s.SetStatus(ctx, actor, orderID, domain.StatusCancelled, 0)
}

// Stats returns the count and newest update of the actor's orders, used
// for conditional GETs.
func (s *OrderService) Stats(ctx context.Context, actor domain.Actor) (int64, *time.Time, error) {
	n, latest, err := repo.OrdersStats(ctx, s.DB, actor.UserID)
	if err != nil {
		return 0, nil, storageErr("order.stats", err)
	}
	return n, latest, nil
}
