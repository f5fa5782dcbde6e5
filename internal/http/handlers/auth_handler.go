// Account HTTP handlers.
//
//   - POST /auth/register
//   - POST /auth/login
//   - POST /auth/logout
//   - GET  /me
//   - PUT  /me
package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/service-connect/internal/domain"
	"github.com/tbourn/service-connect/internal/http/middleware"
	"github.com/tbourn/service-connect/internal/services"
)

// RegisterRequest is the self-registration payload. Role is "client" or
// "technician" ("user" and "technical" are accepted aliases).
type RegisterRequest struct {
	Email    string `json:"email" binding:"required" example:"ann@example.com"`
	Password string `json:"password" binding:"required" example:"secret123"`
	Name     string `json:"name" binding:"required" example:"Ann Client"`
	Role     string `json:"role" binding:"required" example:"client"`
	Phone    string `json:"phone" example:"+201234567890"`
	Bio      string `json:"bio"`
}

// LoginRequest carries credentials.
type LoginRequest struct {
	Email    string `json:"email" binding:"required" example:"ann@example.com"`
	Password string `json:"password" binding:"required" example:"secret123"`
}

// SessionResponse is returned on register and login.
type SessionResponse struct {
	Token     string       `json:"token"`
	ExpiresAt time.Time    `json:"expires_at"`
	User      *domain.User `json:"user"`
}

// ProfileRequest updates the mutable profile fields. Empty phone or bio
// clears them.
type ProfileRequest struct {
	Name  string `json:"name" binding:"required" example:"Ann Client"`
	Phone string `json:"phone"`
	Bio   string `json:"bio"`
}

func (h *Handlers) session(c *gin.Context, status int, u *domain.User) {
	tok, exp, err := h.sessions.Issue(u)
	if err != nil {
		_ = c.Error(err)
		fail(c, http.StatusInternalServerError, ErrCodeInternal, "could not issue session")
		return
	}
	ok(c, status, SessionResponse{Token: tok, ExpiresAt: exp, User: u})
}

// Register godoc
// @ID          register
// @Summary     Register a client or technician
// @Tags        Auth
// @Accept      json
// @Produce     json
// @Param       body  body      handlers.RegisterRequest  true  "Account"
// @Success     201   {object}  handlers.SessionResponse
// @Failure     400   {object}  handlers.ErrorResponse
// @Router      /auth/register [post]
func (h *Handlers) Register(c *gin.Context) {
	var req RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "email, password, name and role are required")
		return
	}
	role, known := domain.ParseRole(req.Role)
	if !known || role == domain.RoleAdmin {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "role must be client or technician")
		return
	}
	u, err := h.identity.Register(c.Request.Context(), services.RegisterInput{
		Email:    req.Email,
		Password: req.Password,
		Name:     req.Name,
		Role:     role,
		Phone:    req.Phone,
		Bio:      req.Bio,
	})
	if err != nil {
		failErr(c, err)
		return
	}
	h.session(c, http.StatusCreated, u)
}

// Login godoc
// @ID          login
// @Summary     Exchange credentials for a session token
// @Tags        Auth
// @Accept      json
// @Produce     json
// @Param       body  body      handlers.LoginRequest  true  "Credentials"
// @Success     200   {object}  handlers.SessionResponse
// @Failure     400   {object}  handlers.ErrorResponse
// @Failure     401   {object}  handlers.ErrorResponse
// @Router      /auth/login [post]
func (h *Handlers) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "email and password are required")
		return
	}
	u, err := h.identity.VerifyCredentials(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		failErr(c, err)
		return
	}
	h.session(c, http.StatusOK, u)
}

// Logout godoc
// @ID          logout
// @Summary     Revoke the current session token
// @Tags        Auth
// @Security    BearerAuth
// @Success     204
// @Failure     401  {object}  handlers.ErrorResponse
// @Router      /auth/logout [post]
func (h *Handlers) Logout(c *gin.Context) {
	claims, found := middleware.ClaimsFrom(c)
	if !found {
		fail(c, http.StatusUnauthorized, ErrCodeUnauthorized, "authentication required")
		return
	}
	if h.revoker != nil && claims.ExpiresAt != nil {
		if err := h.revoker.Revoke(c.Request.Context(), claims.ID, claims.ExpiresAt.Time); err != nil {
			_ = c.Error(err)
			fail(c, http.StatusInternalServerError, ErrCodeInternal, "could not revoke session")
			return
		}
	}
	noContent(c)
}

// Me godoc
// @ID          me
// @Summary     Current user's profile
// @Tags        Auth
// @Produce     json
// @Security    BearerAuth
// @Success     200  {object}  domain.User
// @Failure     401  {object}  handlers.ErrorResponse
// @Router      /me [get]
func (h *Handlers) Me(c *gin.Context) {
	a, found := actor(c)
	if !found {
		return
	}
	u, err := h.identity.Profile(c.Request.Context(), a.UserID)
	if err != nil {
		failErr(c, err)
		return
	}
	ok(c, http.StatusOK, u)
}

// UpdateMe godoc
// @ID          updateMe
// @Summary     Update name, phone and bio
// @Tags        Auth
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       body  body      handlers.ProfileRequest  true  "Profile"
// @Success     200   {object}  domain.User
// @Failure     400   {object}  handlers.ErrorResponse
// @Router      /me [put]
func (h *Handlers) UpdateMe(c *gin.Context) {
	a, found := actor(c)
	if !found {
		return
	}
	var req ProfileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "name is required")
		return
	}
	u, err := h.identity.UpdateProfile(c.Request.Context(), a.UserID, services.ProfileInput{
		Name:  req.Name,
		Phone: req.Phone,
		Bio:   req.Bio,
	})
	if err != nil {
		failErr(c, err)
		return
	}
	ok(c, http.StatusOK, u)
}
