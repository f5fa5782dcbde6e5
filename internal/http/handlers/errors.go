// Package handlers defines HTTP-layer error codes used across all API endpoints.
//
// Codes are stable, lowercase snake_case strings that clients branch on.
// Service failures are translated by failErr, which maps each service error
// kind to one status and one code:
//
//	validation    -> 400 bad_request
//	not_found     -> 404 not_found
//	authorization -> 403 forbidden (401 unauthorized for bad credentials)
//	conflict      -> 409 conflict
//	storage       -> 500 internal_error
//
// Example response:
//
//	{
//	  "request_id": "e1b9be03-4999-4289-9f03-999b042d65d6",
//	  "code": "conflict",
//	  "message": "order was modified concurrently"
//	}
package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/service-connect/internal/services"
)

const (
	ErrCodeBadRequest       = "bad_request"
	ErrCodeUnauthorized     = "unauthorized"
	ErrCodeForbidden        = "forbidden"
	ErrCodeNotFound         = "not_found"
	ErrCodeConflict         = "conflict"
	ErrCodeRateLimited      = "too_many_requests"
	ErrCodeInternal         = "internal_error"
	ErrCodeMethodNotAllowed = "method_not_allowed"
)

// failErr writes the envelope for a service error.
func failErr(c *gin.Context, err error) {
	msg := services.DetailOf(err, "internal server error")
	switch services.KindOf(err) {
	case services.KindValidation:
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, msg)
	case services.KindNotFound:
		fail(c, http.StatusNotFound, ErrCodeNotFound, msg)
	case services.KindAuthorization:
		if errors.Is(err, services.ErrInvalidCredentials) {
			fail(c, http.StatusUnauthorized, ErrCodeUnauthorized, msg)
			return
		}
		fail(c, http.StatusForbidden, ErrCodeForbidden, msg)
	case services.KindConflict:
		fail(c, http.StatusConflict, ErrCodeConflict, msg)
	default:
		_ = c.Error(err)
		fail(c, http.StatusInternalServerError, ErrCodeInternal, "internal server error")
	}
}
