package services

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/tbourn/service-connect/internal/domain"
	"github.com/tbourn/service-connect/internal/repo"
)

// orderAccess is an order together with its current assignment, loaded once
// per operation to evaluate the relationship rules below.
type orderAccess struct {
	order      *domain.Order
	assignedTo uint // 0 when unassigned
}

func loadOrderAccess(ctx context.Context, db *gorm.DB, orderID string) (*orderAccess, error) {
	o, err := repo.GetOrder(ctx, db, orderID)
	if errors.Is(err, repo.ErrNotFound) {
		return nil, notFoundErr("order not found")
	}
	if err != nil {
		return nil, storageErr("order.load", err)
	}
	acc := &orderAccess{order: o}
	a, err := repo.GetAssignment(ctx, db, orderID)
	switch {
	case err == nil:
		acc.assignedTo = a.TechnicianID
	case errors.Is(err, repo.ErrNotFound):
	default:
		return nil, storageErr("order.load.assignment", err)
	}
	return acc, nil
}

func (a *orderAccess) ownedBy(actor domain.Actor) bool {
	return actor.Is(domain.RoleClient) && a.order.ClientID == actor.UserID
}

func (a *orderAccess) pending() bool { return a.order.Status == domain.StatusPending }

// technicianEligible: assigned to the actor, or still Pending with nobody
// assigned (the shared queue).
func (a *orderAccess) technicianEligible(actor domain.Actor) bool {
	if !actor.Is(domain.RoleTechnician) {
		return false
	}
	if a.assignedTo == actor.UserID {
		return true
	}
	return a.assignedTo == 0 && a.pending()
}

// canView: admins, the owning client, and technicians who can see the order
// in the pending queue or hold it.
func (a *orderAccess) canView(actor domain.Actor) bool {
	switch actor.Role {
	case domain.RoleAdmin:
		return true
	case domain.RoleClient:
		return a.ownedBy(actor)
	case domain.RoleTechnician:
		return a.pending() || a.assignedTo == actor.UserID
	}
	return false
}

// canPost: the owning client or an eligible technician. Admins read only.
func (a *orderAccess) canPost(actor domain.Actor) bool {
	return a.ownedBy(actor) || a.technicianEligible(actor)
}

// canReadChat: anyone who may post, plus admins.
func (a *orderAccess) canReadChat(actor domain.Actor) bool {
	return actor.Is(domain.RoleAdmin) || a.canPost(actor)
}
