// Package services – ReportService
//
// Admin-facing aggregates over the order ledger: the dashboard counters,
// the analytics breakdown and the CSV export of the filtered order listing.
// Money is summed with shopspring/decimal so revenue never drifts through
// float rounding.
package services

import (
	"context"
	"encoding/csv"
	"io"
	"time"

	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel"
	"gorm.io/gorm"

	"github.com/tbourn/service-connect/internal/domain"
	"github.com/tbourn/service-connect/internal/repo"
)

// Dashboard is the admin overview.
type Dashboard struct {
	TotalClients     int64           `json:"total_clients"`
	TotalTechnicians int64           `json:"total_technicians"`
	TotalOrders      int64           `json:"total_orders"`
	PendingOrders    int64           `json:"pending_orders"`
	CompletedOrders  int64           `json:"completed_orders"`
	CancelledOrders  int64           `json:"cancelled_orders"`
	TotalServices    int64           `json:"total_services"`
	Revenue          decimal.Decimal `json:"revenue"`
	AvgOrderValue    decimal.Decimal `json:"avg_order_value"`
	CompletionRate   float64         `json:"completion_rate"` // percent, 0..100
}

// Analytics breaks revenue and order counts down by status.
type Analytics struct {
	Revenue struct {
		Completed decimal.Decimal `json:"completed"`
		Pending   decimal.Decimal `json:"pending"`
		Total     decimal.Decimal `json:"total"`
	} `json:"revenue"`
	Orders map[domain.OrderStatus]int64 `json:"orders"`
}

// CSVHeader is the column order of the order export.
var CSVHeader = []string{"id", "service_name", "client_name", "status", "booking_date", "price", "created_at"}

// ReportService computes admin reports.
type ReportService struct {
	DB *gorm.DB
}

// NewReportService constructs a ReportService.
func NewReportService(db *gorm.DB) *ReportService {
	return &ReportService{DB: db}
}

// Dashboard returns the admin overview counters. The average order value
// and completion rate divide by at least one so an empty ledger yields zero.
func (s *ReportService) Dashboard(ctx context.Context, actor domain.Actor) (*Dashboard, error) {
	if !actor.Is(domain.RoleAdmin) {
		return nil, forbiddenErr("admin only", nil)
	}
	return s.Snapshot(ctx)
}

// Snapshot computes the dashboard without an actor check; it backs the
// scheduled report log.
func (s *ReportService) Snapshot(ctx context.Context) (*Dashboard, error) {
	ctx, span := otel.Tracer("services/ReportService").Start(ctx, "Snapshot")
	defer span.End()

	roles, err := repo.CountUsersByRole(ctx, s.DB)
	if err != nil {
		return nil, storageErr("report.users", err)
	}
	statuses, err := repo.CountOrdersByStatus(ctx, s.DB)
	if err != nil {
		return nil, storageErr("report.orders", err)
	}
	services, err := repo.CountServices(ctx, s.DB)
	if err != nil {
		return nil, storageErr("report.services", err)
	}
	revenue, err := repo.SumOrderPrices(ctx, s.DB, domain.StatusDone)
	if err != nil {
		return nil, storageErr("report.revenue", err)
	}

	d := &Dashboard{
		TotalClients:     roles[domain.RoleClient],
		TotalTechnicians: roles[domain.RoleTechnician],
		PendingOrders:    statuses[domain.StatusPending],
		CompletedOrders:  statuses[domain.StatusDone],
		CancelledOrders:  statuses[domain.StatusCancelled],
		TotalServices:    services,
		Revenue:          revenue,
	}
	for _, n := range statuses {
		d.TotalOrders += n
	}
	d.AvgOrderValue = revenue.Div(decimal.NewFromInt(max(1, d.CompletedOrders))).Round(2)
	d.CompletionRate = float64(d.CompletedOrders) / float64(max(1, d.TotalOrders)) * 100
	return d, nil
}

// Analytics returns revenue split into completed and still-pending value,
// and the order count per status.
func (s *ReportService) Analytics(ctx context.Context, actor domain.Actor) (*Analytics, error) {
	if !actor.Is(domain.RoleAdmin) {
		return nil, forbiddenErr("admin only", nil)
	}
	done, err := repo.SumOrderPrices(ctx, s.DB, domain.StatusDone)
	if err != nil {
		return nil, storageErr("report.analytics.done", err)
	}
	pending, err := repo.SumOrderPrices(ctx, s.DB, domain.StatusPending)
	if err != nil {
		return nil, storageErr("report.analytics.pending", err)
	}
	statuses, err := repo.CountOrdersByStatus(ctx, s.DB)
	if err != nil {
		return nil, storageErr("report.analytics.orders", err)
	}
	for _, st := range []domain.OrderStatus{domain.StatusPending, domain.StatusDone, domain.StatusCancelled} {
		if _, ok := statuses[st]; !ok {
			statuses[st] = 0
		}
	}

	a := &Analytics{Orders: statuses}
	a.Revenue.Completed = done
	a.Revenue.Pending = pending
	a.Revenue.Total = done.Add(pending)
	return a, nil
}

// ExportCSV writes the filtered admin listing as CSV, newest first. Paging
// in f is ignored; the export always covers every matching order.
func (s *ReportService) ExportCSV(ctx context.Context, actor domain.Actor, f repo.OrderFilter, w io.Writer) (int, error) {
	if !actor.Is(domain.RoleAdmin) {
		return 0, forbiddenErr("admin only", nil)
	}
	f.Offset, f.Limit = 0, 0
	rows, err := repo.ListOrders(ctx, s.DB, f)
	if err != nil {
		return 0, storageErr("report.export", err)
	}

	cw := csv.NewWriter(w)
	if err := cw.Write(CSVHeader); err != nil {
		return 0, err
	}
	for _, r := range rows {
		rec := []string{
			r.ID,
			r.ServiceName,
			r.ClientName,
			string(r.Status),
			r.BookingDate,
			r.Price.StringFixed(2),
			r.CreatedAt.UTC().Format(time.RFC3339),
		}
		if err := cw.Write(rec); err != nil {
			return 0, err
		}
	}
	cw.Flush()
	return len(rows), cw.Error()
}
