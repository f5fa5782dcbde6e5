// Order HTTP handlers.
//
// This file exposes the booking lifecycle:
//   - POST /orders                     (book a service, Idempotency-Key aware)
//   - GET  /orders                     (client's own orders, ETag support)
//   - GET  /orders/pending             (technician work queue)
//   - GET  /orders/{id}                (details)
//   - PUT  /orders/{id}/status         (compare-and-set transition)
//   - POST /orders/{id}/complete
//   - POST /orders/{id}/cancel
//   - PUT  /orders/{id}/assignment     (admin assigns, technician claims)
//   - GET  /orders/{id}/assignment
//   - GET  /admin/technicians          (assignable technicians)
package handlers

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"github.com/tbourn/service-connect/internal/domain"
	"github.com/tbourn/service-connect/internal/http/middleware"
	"github.com/tbourn/service-connect/internal/repo"
	"github.com/tbourn/service-connect/internal/services"
)

// HeaderIdempotencyReplayed marks a response served from a stored result.
const HeaderIdempotencyReplayed = "Idempotency-Replayed"

// CreateOrderRequest is the booking payload.
type CreateOrderRequest struct {
	ServiceID     uint   `json:"service_id" binding:"required" example:"3"`
	BookingDate   string `json:"booking_date" binding:"required" example:"2026-11-02"`
	PaymentMethod string `json:"payment_method" example:"Cash"`
	Notes         string `json:"notes" example:"Second floor, ring twice"`
	// Price overrides the catalog price snapshot when present.
	Price *decimal.Decimal `json:"price,omitempty" swaggertype:"string" example:"45.00"`
}

// UpdateStatusRequest moves an order to a new status. ExpectedVersion, when
// non-zero, must equal the order's current version.
type UpdateStatusRequest struct {
	Status          string `json:"status" binding:"required" example:"Done"`
	ExpectedVersion int    `json:"expected_version" example:"1"`
}

// AssignRequest names the technician to serve an order.
type AssignRequest struct {
	TechnicianID uint `json:"technician_id" binding:"required" example:"7"`
}

// ListOrdersResponse wraps a caller's orders.
type ListOrdersResponse struct {
	Orders []repo.OrderRow `json:"orders"`
}

// PendingOrdersResponse wraps the technician queue.
type PendingOrdersResponse struct {
	Orders []services.PendingOrder `json:"orders"`
}

// CreateOrder godoc
// @ID          createOrder
// @Summary     Book a catalog service
// @Description Creates a Pending order priced from the catalog. Retrying with the same
// @Description Idempotency-Key returns the original order with Idempotency-Replayed: true.
// @Tags        Orders
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       Idempotency-Key  header    string                       false  "Retry key"  example(7a8d9f4c-1b2a-4c3d-8e9f-0123456789ab)
// @Param       body             body      handlers.CreateOrderRequest  true   "Booking"
// @Success     201              {object}  repo.OrderRow
// @Success     200              {object}  repo.OrderRow  "Replayed"
// @Failure     400              {object}  handlers.ErrorResponse
// @Failure     403              {object}  handlers.ErrorResponse
// @Failure     404              {object}  handlers.ErrorResponse
// @Router      /orders [post]
func (h *Handlers) CreateOrder(c *gin.Context) {
	a, found := actor(c)
	if !found {
		return
	}
	var req CreateOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "service_id and booking_date are required")
		return
	}
	key, _ := middleware.GetIdempotencyKey(c)

	row, replayed, err := h.orders.Create(c.Request.Context(), a, services.CreateOrderInput{
		ServiceID:      req.ServiceID,
		BookingDate:    req.BookingDate,
		PaymentMethod:  req.PaymentMethod,
		Notes:          req.Notes,
		Price:          req.Price,
		IdempotencyKey: key,
	})
	if err != nil {
		failErr(c, err)
		return
	}
	if replayed {
		c.Header(HeaderIdempotencyReplayed, "true")
		ok(c, http.StatusOK, row)
		return
	}
	c.Header("Location", "/orders/"+row.ID)
	ok(c, http.StatusCreated, row)
}

// ListMyOrders godoc
// @ID          listMyOrders
// @Summary     The client's orders, newest first
// @Description Supports a weak ETag via If-None-Match and may return 304.
// @Tags        Orders
// @Produce     json
// @Security    BearerAuth
// @Param       If-None-Match  header    string  false  "Return 304 if ETag matches"
// @Success     200            {object}  handlers.ListOrdersResponse
// @Header      200            {string}  ETag  "Weak ETag for current result"
// @Success     304            {string}  string  "Not Modified"
// @Router      /orders [get]
func (h *Handlers) ListMyOrders(c *gin.Context) {
	a, found := actor(c)
	if !found {
		return
	}
	ctx := c.Request.Context()

	// ETag pre-check (best effort).
	if count, latest, err := h.orders.Stats(ctx, a); err == nil {
		var ts int64
		if latest != nil {
			ts = latest.UnixNano()
		}
		etag := fmt.Sprintf(`W/"orders:%d:%d:%d"`, a.UserID, count, ts)
		c.Header("ETag", etag)
		if inm := c.GetHeader("If-None-Match"); inm != "" && inm == etag {
			c.Status(http.StatusNotModified)
			return
		}
	}

	items, err := h.orders.ListForClient(ctx, a)
	if err != nil {
		failErr(c, err)
		return
	}
	ok(c, http.StatusOK, ListOrdersResponse{Orders: items})
}

// ListPendingOrders godoc
// @ID          listPendingOrders
// @Summary     Pending orders with unread counts
// @Tags        Orders
// @Produce     json
// @Security    BearerAuth
// @Success     200  {object}  handlers.PendingOrdersResponse
// @Failure     403  {object}  handlers.ErrorResponse
// @Router      /orders/pending [get]
func (h *Handlers) ListPendingOrders(c *gin.Context) {
	a, found := actor(c)
	if !found {
		return
	}
	items, err := h.orders.ListPending(c.Request.Context(), a)
	if err != nil {
		failErr(c, err)
		return
	}
	ok(c, http.StatusOK, PendingOrdersResponse{Orders: items})
}

// GetOrder godoc
// @ID          getOrder
// @Summary     Order details
// @Tags        Orders
// @Produce     json
// @Security    BearerAuth
// @Param       id   path      string  true  "Order ID"  format(uuid)
// @Success     200  {object}  repo.OrderRow
// @Failure     403  {object}  handlers.ErrorResponse
// @Failure     404  {object}  handlers.ErrorResponse
// @Router      /orders/{id} [get]
func (h *Handlers) GetOrder(c *gin.Context) {
	a, found := actor(c)
	if !found {
		return
	}
	id, valid := orderIDParam(c)
	if !valid {
		return
	}
	row, err := h.orders.Details(c.Request.Context(), a, id)
	if err != nil {
		failErr(c, err)
		return
	}
	ok(c, http.StatusOK, row)
}

// UpdateOrderStatus godoc
// @ID          updateOrderStatus
// @Summary     Transition an order
// @Description Pending may move to Done or Cancelled. Done and Cancelled are terminal;
// @Description a request for the current status is a no-op.
// @Tags        Orders
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       id    path      string                        true  "Order ID"  format(uuid)
// @Param       body  body      handlers.UpdateStatusRequest  true  "Target status"
// @Success     200   {object}  repo.OrderRow
// @Failure     400   {object}  handlers.ErrorResponse  "Unknown status or illegal transition"
// @Failure     403   {object}  handlers.ErrorResponse
// @Failure     409   {object}  handlers.ErrorResponse  "Stale expected_version"
// @Router      /orders/{id}/status [put]
func (h *Handlers) UpdateOrderStatus(c *gin.Context) {
	a, found := actor(c)
	if !found {
		return
	}
	id, valid := orderIDParam(c)
	if !valid {
		return
	}
	var req UpdateStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "status is required")
		return
	}
	to, known := domain.ParseOrderStatus(req.Status)
	if !known {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "status must be Pending, Done or Cancelled")
		return
	}
	row, err := h.orders.SetStatus(c.Request.Context(), a, id, to, req.ExpectedVersion)
	if err != nil {
		failErr(c, err)
		return
	}
	ok(c, http.StatusOK, row)
}

// CompleteOrder godoc
// @ID          completeOrder
// @Summary     Mark an order Done
// @Tags        Orders
// @Produce     json
// @Security    BearerAuth
// @Param       id   path      string  true  "Order ID"  format(uuid)
// @Success     200  {object}  repo.OrderRow
// @Failure     400  {object}  handlers.ErrorResponse  "Order is not Pending"
// @Failure     403  {object}  handlers.ErrorResponse
// @Router      /orders/{id}/complete [post]
func (h *Handlers) CompleteOrder(c *gin.Context) {
	a, found := actor(c)
	if !found {
		return
	}
	id, valid := orderIDParam(c)
	if !valid {
		return
	}
	row, err := h.orders.Complete(c.Request.Context(), a, id)
	if err != nil {
		failErr(c, err)
		return
	}
	ok(c, http.StatusOK, row)
}

// CancelOrder godoc
// @ID          cancelOrder
// @Summary     Cancel an order
// @Tags        Orders
// @Produce     json
// @Security    BearerAuth
// @Param       id   path      string  true  "Order ID"  format(uuid)
// @Success     200  {object}  repo.OrderRow
// @Failure     400  {object}  handlers.ErrorResponse  "Order is not Pending"
// @Failure     403  {object}  handlers.ErrorResponse
// @Router      /orders/{id}/cancel [post]
func (h *Handlers) CancelOrder(c *gin.Context) {
	a, found := actor(c)
	if !found {
		return
	}
	id, valid := orderIDParam(c)
	if !valid {
		return
	}
	row, err := h.orders.Cancel(c.Request.Context(), a, id)
	if err != nil {
		failErr(c, err)
		return
	}
	ok(c, http.StatusOK, row)
}

// AssignTechnician godoc
// @ID          assignTechnician
// @Summary     Assign (or reassign) a technician
// @Tags        Orders
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       id    path      string                  true  "Order ID"  format(uuid)
// @Param       body  body      handlers.AssignRequest  true  "Technician"
// @Success     200   {object}  domain.TechnicianAssignment
// @Failure     400   {object}  handlers.ErrorResponse
// @Failure     403   {object}  handlers.ErrorResponse
// @Failure     404   {object}  handlers.ErrorResponse
// @Router      /orders/{id}/assignment [put]
func (h *Handlers) AssignTechnician(c *gin.Context) {
	a, found := actor(c)
	if !found {
		return
	}
	id, valid := orderIDParam(c)
	if !valid {
		return
	}
	var req AssignRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "technician_id is required")
		return
	}
	asg, err := h.assignments.Assign(c.Request.Context(), a, id, req.TechnicianID)
	if err != nil {
		failErr(c, err)
		return
	}
	ok(c, http.StatusOK, asg)
}

// GetAssignment godoc
// @ID          getAssignment
// @Summary     Current technician assignment
// @Tags        Orders
// @Produce     json
// @Security    BearerAuth
// @Param       id   path      string  true  "Order ID"  format(uuid)
// @Success     200  {object}  domain.TechnicianAssignment
// @Failure     404  {object}  handlers.ErrorResponse  "Order not found or unassigned"
// @Router      /orders/{id}/assignment [get]
func (h *Handlers) GetAssignment(c *gin.Context) {
	a, found := actor(c)
	if !found {
		return
	}
	id, valid := orderIDParam(c)
	if !valid {
		return
	}
	ctx := c.Request.Context()
	// Visibility follows the order itself.
	if _, err := h.orders.Details(ctx, a, id); err != nil {
		failErr(c, err)
		return
	}
	asg, err := h.assignments.Current(ctx, id)
	if err != nil {
		failErr(c, err)
		return
	}
	if asg == nil {
		fail(c, http.StatusNotFound, ErrCodeNotFound, "order is not assigned")
		return
	}
	ok(c, http.StatusOK, asg)
}

// ListTechnicians godoc
// @ID          listTechnicians
// @Summary     Active technicians available for assignment
// @Tags        Admin
// @Produce     json
// @Security    BearerAuth
// @Success     200  {array}  domain.User
// @Router      /admin/technicians [get]
func (h *Handlers) ListTechnicians(c *gin.Context) {
	users, err := h.assignments.AvailableTechnicians(c.Request.Context())
	if err != nil {
		failErr(c, err)
		return
	}
	ok(c, http.StatusOK, users)
}
