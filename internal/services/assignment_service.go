package services

import (
	"context"
	"errors"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/gorm"

	"github.com/tbourn/service-connect/internal/domain"
	"github.com/tbourn/service-connect/internal/observability"
	"github.com/tbourn/service-connect/internal/repo"
)

// AssignmentService links Pending orders to technicians. At most one
// technician holds an order; a new assignment replaces the old one.
type AssignmentService struct {
	DB *gorm.DB
}

// NewAssignmentService constructs an AssignmentService.
func NewAssignmentService(db *gorm.DB) *AssignmentService {
	return &AssignmentService{DB: db}
}

// Assign makes technicianID the sole technician of orderID. Admins may
// assign any active technician; a technician may only claim an order for
// themself while it is unassigned or already theirs.
func (s *AssignmentService) Assign(ctx context.Context, actor domain.Actor, orderID string, technicianID uint) (*domain.TechnicianAssignment, error) {
	tr := otel.Tracer("services/AssignmentService")
	ctx, span := tr.Start(ctx, "Assign",
		trace.WithAttributes(
			attribute.String("order.id", orderID),
			attribute.Int64("technician.id", int64(technicianID)),
		),
	)
	defer span.End()

	switch actor.Role {
	case domain.RoleAdmin:
	case domain.RoleTechnician:
		if technicianID != actor.UserID {
			return nil, forbiddenErr("technicians can only claim orders for themselves", nil)
		}
	default:
		return nil, forbiddenErr("only technicians and admins can assign orders", nil)
	}

	acc, err := loadOrderAccess(ctx, s.DB, orderID)
	if err != nil {
		return nil, err
	}
	if !acc.pending() {
		return nil, validationErr("only pending orders can be assigned", ErrIllegalTransition)
	}
	if actor.Is(domain.RoleTechnician) && acc.assignedTo != 0 && acc.assignedTo != actor.UserID {
		return nil, forbiddenErr("order is assigned to another technician", ErrAlreadyAssigned)
	}

	tech, err := repo.GetUser(ctx, s.DB, technicianID)
	if errors.Is(err, repo.ErrNotFound) {
		return nil, notFoundErr("technician not found")
	}
	if err != nil {
		return nil, storageErr("assignment.technician", err)
	}
	if tech.Role != domain.RoleTechnician || !tech.Active {
		return nil, validationErr("user is not an active technician", nil)
	}

	a, err := repo.ReplaceAssignment(ctx, s.DB, orderID, technicianID)
	if err != nil {
		if errors.Is(err, repo.ErrDuplicate) {
			return nil, conflictErr("order was assigned concurrently", err)
		}
		return nil, storageErr("assignment.replace", err)
	}
	observability.AssignmentsReplaced.Inc()
	return a, nil
}

// Current returns the technician assignment of orderID, or nil when the
// order is unassigned.
func (s *AssignmentService) Current(ctx context.Context, orderID string) (*domain.TechnicianAssignment, error) {
	a, err := repo.GetAssignment(ctx, s.DB, orderID)
	if errors.Is(err, repo.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, storageErr("assignment.get", err)
	}
	return a, nil
}

// AvailableTechnicians lists active technicians ordered by name.
func (s *AssignmentService) AvailableTechnicians(ctx context.Context) ([]domain.User, error) {
	techs, err := repo.ListActiveTechnicians(ctx, s.DB)
	if err != nil {
		return nil, storageErr("assignment.technicians", err)
	}
	return techs, nil
}
