package domain

import "strings"

// Role is the closed set of account roles.
type Role string

const (
	RoleClient     Role = "client"
	RoleTechnician Role = "technician"
	RoleAdmin      Role = "admin"
)

// ParseRole maps user input to a Role. The legacy labels "user" and
// "technical" are accepted as aliases for client and technician.
func ParseRole(s string) (Role, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "client", "user":
		return RoleClient, true
	case "technician", "technical", "tech":
		return RoleTechnician, true
	case "admin":
		return RoleAdmin, true
	}
	return "", false
}

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	switch r {
	case RoleClient, RoleTechnician, RoleAdmin:
		return true
	}
	return false
}

// OrderStatus is the lifecycle state of an Order.
type OrderStatus string

const (
	StatusPending   OrderStatus = "Pending"
	StatusDone      OrderStatus = "Done"
	StatusCancelled OrderStatus = "Cancelled"
)

// ParseOrderStatus is case-insensitive.
func ParseOrderStatus(s string) (OrderStatus, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "pending":
		return StatusPending, true
	case "done", "completed":
		return StatusDone, true
	case "cancelled", "canceled":
		return StatusCancelled, true
	}
	return "", false
}

// transitions lists the legal status changes. Done and Cancelled are terminal.
var transitions = map[OrderStatus][]OrderStatus{
	StatusPending: {StatusDone, StatusCancelled},
}

// CanTransition reports whether from -> to is a legal status change.
// A same-state write is not a transition.
func CanTransition(from, to OrderStatus) bool {
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// Terminal reports whether no further transition leaves s.
func (s OrderStatus) Terminal() bool { return len(transitions[s]) == 0 }

// Actor is the authenticated identity a request acts on behalf of. It is
// passed explicitly into every service operation.
type Actor struct {
	UserID uint
	Role   Role
	Name   string
}

// Is reports whether the actor holds role r.
func (a Actor) Is(r Role) bool { return a.Role == r }
