// Package handlers exposes the marketplace over REST.
//
// Handlers are transport-thin: they bind and validate input, read the
// authenticated actor, call a service and translate the result (including
// conditional 304 responses) into HTTP. Every dependency is an interface
// declared here so tests can substitute fakes.
package handlers

import (
	"context"
	"io"
	"time"

	"github.com/tbourn/service-connect/internal/assistant"
	"github.com/tbourn/service-connect/internal/auth"
	"github.com/tbourn/service-connect/internal/domain"
	"github.com/tbourn/service-connect/internal/repo"
	"github.com/tbourn/service-connect/internal/services"
)

// IdentityService manages accounts and credentials.
type IdentityService interface {
	Register(ctx context.Context, in services.RegisterInput) (*domain.User, error)
	VerifyCredentials(ctx context.Context, email, password string) (*domain.User, error)
	Profile(ctx context.Context, userID uint) (*domain.User, error)
	UpdateProfile(ctx context.Context, userID uint, in services.ProfileInput) (*domain.User, error)
}

// SessionIssuer signs session tokens.
type SessionIssuer interface {
	Issue(u *domain.User) (string, time.Time, error)
}

// CatalogService reads the service catalog.
type CatalogService interface {
	List(ctx context.Context, category string) ([]domain.Service, error)
	Categories(ctx context.Context) ([]string, error)
	Get(ctx context.Context, id uint) (*domain.Service, error)
	Search(ctx context.Context, query string, k int) ([]services.SearchHit, error)
}

// OrderService owns the order lifecycle.
type OrderService interface {
	Create(ctx context.Context, actor domain.Actor, in services.CreateOrderInput) (*repo.OrderRow, bool, error)
	ListForClient(ctx context.Context, actor domain.Actor) ([]repo.OrderRow, error)
	ListPending(ctx context.Context, actor domain.Actor) ([]services.PendingOrder, error)
	ListAll(ctx context.Context, actor domain.Actor, f repo.OrderFilter) (*services.OrderPage, error)
	Details(ctx context.Context, actor domain.Actor, orderID string) (*repo.OrderRow, error)
	SetStatus(ctx context.Context, actor domain.Actor, orderID string, to domain.OrderStatus, expectedVersion int) (*repo.OrderRow, error)
	Complete(ctx context.Context, actor domain.Actor, orderID string) (*repo.OrderRow, error)
	Cancel(ctx context.Context, actor domain.Actor, orderID string) (*repo.OrderRow, error)
	Stats(ctx context.Context, actor domain.Actor) (int64, *time.Time, error)
}

// AssignmentService records which technician serves an order.
type AssignmentService interface {
	Assign(ctx context.Context, actor domain.Actor, orderID string, technicianID uint) (*domain.TechnicianAssignment, error)
	Current(ctx context.Context, orderID string) (*domain.TechnicianAssignment, error)
	AvailableTechnicians(ctx context.Context) ([]domain.User, error)
}

// ChatService is the per-order messaging log.
type ChatService interface {
	Append(ctx context.Context, actor domain.Actor, orderID, body string) (*domain.ChatMessage, error)
	List(ctx context.Context, actor domain.Actor, orderID string) ([]repo.MessageRow, error)
	MarkRead(ctx context.Context, actor domain.Actor, orderID string) (int64, error)
	UnreadCount(ctx context.Context, actor domain.Actor) (int64, error)
	Conversations(ctx context.Context, actor domain.Actor) ([]services.Conversation, error)
	Stats(ctx context.Context, actor domain.Actor, orderID string) (*services.ChatStats, error)
}

// ReportService computes admin reports.
type ReportService interface {
	Dashboard(ctx context.Context, actor domain.Actor) (*services.Dashboard, error)
	Analytics(ctx context.Context, actor domain.Actor) (*services.Analytics, error)
	ExportCSV(ctx context.Context, actor domain.Actor, f repo.OrderFilter, w io.Writer) (int, error)
}

// ContactService stores "contact us" messages.
type ContactService interface {
	Submit(ctx context.Context, in services.ContactInput) (*domain.ContactMessage, error)
	List(ctx context.Context, actor domain.Actor, status string) ([]domain.ContactMessage, error)
	MarkRead(ctx context.Context, actor domain.Actor, id uint) error
}

// Assistant answers navigation questions.
type Assistant interface {
	Respond(req assistant.Request) assistant.Reply
}

// Deps bundles the services the handlers call.
type Deps struct {
	Identity    IdentityService
	Sessions    SessionIssuer
	Revoker     auth.Revoker
	Catalog     CatalogService
	Orders      OrderService
	Assignments AssignmentService
	Chat        ChatService
	Reports     ReportService
	Contact     ContactService
	Assistant   Assistant
}

// Handlers groups every HTTP endpoint.
type Handlers struct {
	identity    IdentityService
	sessions    SessionIssuer
	revoker     auth.Revoker
	catalog     CatalogService
	orders      OrderService
	assignments AssignmentService
	chat        ChatService
	reports     ReportService
	contact     ContactService
	assistant   Assistant
}

// New constructs Handlers bound to d.
func New(d Deps) *Handlers {
	return &Handlers{
		identity:    d.Identity,
		sessions:    d.Sessions,
		revoker:     d.Revoker,
		catalog:     d.Catalog,
		orders:      d.Orders,
		assignments: d.Assignments,
		chat:        d.Chat,
		reports:     d.Reports,
		contact:     d.Contact,
		assistant:   d.Assistant,
	}
}
