// Admin HTTP handlers. Every route here sits behind RequireRole(admin); the
// services re-check the role.
//
//   - GET  /admin/dashboard
//   - GET  /admin/analytics
//   - GET  /admin/orders                 (filtered, paginated)
//   - GET  /admin/orders/export          (CSV)
//   - GET  /admin/contacts
//   - POST /admin/contacts/{id}/read
package handlers

import (
	"bytes"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/service-connect/internal/domain"
	"github.com/tbourn/service-connect/internal/repo"
	"github.com/tbourn/service-connect/internal/utils"
)

// Pagination carries pagination metadata for list responses.
type Pagination struct {
	Page       int   `json:"page"`
	PageSize   int   `json:"page_size"`
	Total      int64 `json:"total"`
	TotalPages int   `json:"total_pages"`
	HasNext    bool  `json:"has_next"`
}

// AdminOrdersResponse wraps a page of the admin order listing.
type AdminOrdersResponse struct {
	Orders     []repo.OrderRow `json:"orders"`
	Pagination Pagination      `json:"pagination"`
}

// ContactsResponse wraps contact-form messages.
type ContactsResponse struct {
	Messages []domain.ContactMessage `json:"messages"`
}

// orderFilter reads status, service and date query parameters. An unknown
// status writes 400 and reports false.
func orderFilter(c *gin.Context) (repo.OrderFilter, bool) {
	f := repo.OrderFilter{
		ServiceName: strings.TrimSpace(c.Query("service")),
		BookingDate: strings.TrimSpace(c.Query("date")),
	}
	if raw := c.Query("status"); raw != "" && !strings.EqualFold(raw, "all") {
		st, known := domain.ParseOrderStatus(raw)
		if !known {
			fail(c, http.StatusBadRequest, ErrCodeBadRequest, "status must be Pending, Done or Cancelled")
			return f, false
		}
		f.Status = st
	}
	return f, true
}

// Dashboard godoc
// @ID          adminDashboard
// @Summary     Overview counters and revenue
// @Tags        Admin
// @Produce     json
// @Security    BearerAuth
// @Success     200  {object}  services.Dashboard
// @Failure     403  {object}  handlers.ErrorResponse
// @Router      /admin/dashboard [get]
func (h *Handlers) Dashboard(c *gin.Context) {
	a, found := actor(c)
	if !found {
		return
	}
	d, err := h.reports.Dashboard(c.Request.Context(), a)
	if err != nil {
		failErr(c, err)
		return
	}
	ok(c, http.StatusOK, d)
}

// Analytics godoc
// @ID          adminAnalytics
// @Summary     Revenue and order counts by status
// @Tags        Admin
// @Produce     json
// @Security    BearerAuth
// @Success     200  {object}  services.Analytics
// @Router      /admin/analytics [get]
func (h *Handlers) Analytics(c *gin.Context) {
	a, found := actor(c)
	if !found {
		return
	}
	out, err := h.reports.Analytics(c.Request.Context(), a)
	if err != nil {
		failErr(c, err)
		return
	}
	ok(c, http.StatusOK, out)
}

// ListAllOrders godoc
// @ID          adminListOrders
// @Summary     Every order, filtered and paginated
// @Tags        Admin
// @Produce     json
// @Security    BearerAuth
// @Param       status     query     string  false  "Pending, Done, Cancelled or all"
// @Param       service    query     string  false  "Exact service name"
// @Param       date       query     string  false  "Booking date"  example(2026-11-02)
// @Param       page       query     int     false  "Page number"     minimum(1) default(1)
// @Param       page_size  query     int     false  "Items per page"  minimum(1) maximum(100) default(20)
// @Success     200        {object}  handlers.AdminOrdersResponse
// @Failure     400        {object}  handlers.ErrorResponse
// @Router      /admin/orders [get]
func (h *Handlers) ListAllOrders(c *gin.Context) {
	a, found := actor(c)
	if !found {
		return
	}
	f, valid := orderFilter(c)
	if !valid {
		return
	}
	p := utils.ParsePage(c.Query("page"), c.Query("page_size"))
	f.Offset, f.Limit = p.Offset(), p.Size

	page, err := h.orders.ListAll(c.Request.Context(), a, f)
	if err != nil {
		failErr(c, err)
		return
	}
	totalPages := p.TotalPages(page.Total)
	ok(c, http.StatusOK, AdminOrdersResponse{
		Orders: page.Items,
		Pagination: Pagination{
			Page:       p.Number,
			PageSize:   p.Size,
			Total:      page.Total,
			TotalPages: totalPages,
			HasNext:    p.Number < totalPages,
		},
	})
}

// ExportOrders godoc
// @ID          adminExportOrders
// @Summary     Download the filtered order listing as CSV
// @Tags        Admin
// @Produce     text/csv
// @Security    BearerAuth
// @Param       status   query  string  false  "Pending, Done, Cancelled or all"
// @Param       service  query  string  false  "Exact service name"
// @Param       date     query  string  false  "Booking date"
// @Success     200      {string}  string  "CSV"
// @Router      /admin/orders/export [get]
func (h *Handlers) ExportOrders(c *gin.Context) {
	a, found := actor(c)
	if !found {
		return
	}
	f, valid := orderFilter(c)
	if !valid {
		return
	}
	// Buffer so a mid-stream failure still yields a JSON error.
	var buf bytes.Buffer
	if _, err := h.reports.ExportCSV(c.Request.Context(), a, f, &buf); err != nil {
		failErr(c, err)
		return
	}
	name := fmt.Sprintf("orders-%s.csv", time.Now().UTC().Format("20060102"))
	c.Header("Content-Disposition", `attachment; filename="`+name+`"`)
	c.Data(http.StatusOK, "text/csv; charset=utf-8", buf.Bytes())
}

// ListContacts godoc
// @ID          adminListContacts
// @Summary     Contact-form messages, newest first
// @Tags        Admin
// @Produce     json
// @Security    BearerAuth
// @Param       status  query     string  false  "Unread or Read"
// @Success     200     {object}  handlers.ContactsResponse
// @Router      /admin/contacts [get]
func (h *Handlers) ListContacts(c *gin.Context) {
	a, found := actor(c)
	if !found {
		return
	}
	msgs, err := h.contact.List(c.Request.Context(), a, c.Query("status"))
	if err != nil {
		failErr(c, err)
		return
	}
	ok(c, http.StatusOK, ContactsResponse{Messages: msgs})
}

// MarkContactRead godoc
// @ID          adminMarkContactRead
// @Summary     Flag a contact message as handled
// @Tags        Admin
// @Security    BearerAuth
// @Param       id   path  int  true  "Contact message ID"
// @Success     204
// @Failure     404  {object}  handlers.ErrorResponse
// @Router      /admin/contacts/{id}/read [post]
func (h *Handlers) MarkContactRead(c *gin.Context) {
	a, found := actor(c)
	if !found {
		return
	}
	id, valid := uintParam(c, "id")
	if !valid {
		return
	}
	if err := h.contact.MarkRead(c.Request.Context(), a, id); err != nil {
		failErr(c, err)
		return
	}
	noContent(c)
}
