// Catalog HTTP handlers (public).
//
//   - GET /services
//   - GET /services/categories
//   - GET /services/search
//   - GET /services/{id}
package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/service-connect/internal/domain"
	"github.com/tbourn/service-connect/internal/services"
	"github.com/tbourn/service-connect/internal/utils"
)

// ListServicesResponse wraps the catalog listing.
type ListServicesResponse struct {
	Services []domain.Service `json:"services"`
}

// SearchResponse wraps ranked catalog matches.
type SearchResponse struct {
	Query string               `json:"query"`
	Hits  []services.SearchHit `json:"hits"`
}

// ListServices godoc
// @ID          listServices
// @Summary     List catalog services
// @Tags        Catalog
// @Produce     json
// @Param       category  query     string  false  "Exact category filter"  example(Cleaning)
// @Success     200       {object}  handlers.ListServicesResponse
// @Failure     500       {object}  handlers.ErrorResponse
// @Router      /services [get]
func (h *Handlers) ListServices(c *gin.Context) {
	items, err := h.catalog.List(c.Request.Context(), c.Query("category"))
	if err != nil {
		failErr(c, err)
		return
	}
	ok(c, http.StatusOK, ListServicesResponse{Services: items})
}

// ListCategories godoc
// @ID          listCategories
// @Summary     Distinct catalog categories
// @Tags        Catalog
// @Produce     json
// @Success     200  {array}   string
// @Router      /services/categories [get]
func (h *Handlers) ListCategories(c *gin.Context) {
	cats, err := h.catalog.Categories(c.Request.Context())
	if err != nil {
		failErr(c, err)
		return
	}
	ok(c, http.StatusOK, cats)
}

// GetService godoc
// @ID          getService
// @Summary     One catalog service
// @Tags        Catalog
// @Produce     json
// @Param       id   path      int  true  "Service ID"
// @Success     200  {object}  domain.Service
// @Failure     404  {object}  handlers.ErrorResponse
// @Router      /services/{id} [get]
func (h *Handlers) GetService(c *gin.Context) {
	id, valid := uintParam(c, "id")
	if !valid {
		return
	}
	svc, err := h.catalog.Get(c.Request.Context(), id)
	if err != nil {
		failErr(c, err)
		return
	}
	ok(c, http.StatusOK, svc)
}

// SearchServices godoc
// @ID          searchServices
// @Summary     Ranked free-text catalog search
// @Tags        Catalog
// @Produce     json
// @Param       q    query     string  true   "Search text"  example(deep cleaning)
// @Param       k    query     int     false  "Max hits"     default(5)
// @Success     200  {object}  handlers.SearchResponse
// @Failure     400  {object}  handlers.ErrorResponse
// @Router      /services/search [get]
func (h *Handlers) SearchServices(c *gin.Context) {
	q := c.Query("q")
	hits, err := h.catalog.Search(c.Request.Context(), q, utils.AtoiDefault(c.Query("k"), 5))
	if err != nil {
		failErr(c, err)
		return
	}
	ok(c, http.StatusOK, SearchResponse{Query: q, Hits: hits})
}
