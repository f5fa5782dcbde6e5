// Package middleware contains shared Gin middleware used by the HTTP layer.
//
// This file authenticates bearer session tokens and enforces role gates.
// The resolved domain.Actor is stored in the Gin context; handlers read it
// with ActorFrom and pass it explicitly to the services.
package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/service-connect/internal/auth"
	"github.com/tbourn/service-connect/internal/domain"
)

// TokenParser verifies a raw session token.
type TokenParser interface {
	Parse(raw string) (*auth.Claims, error)
}

const (
	ctxKeyActor  = "auth.actor"
	ctxKeyClaims = "auth.claims"
)

// Authenticate requires a valid, unrevoked "Authorization: Bearer <token>"
// header and stores the actor. Requests without one get 401.
func Authenticate(p TokenParser, rev auth.Revoker) gin.HandlerFunc {
	return authenticate(p, rev, true)
}

// OptionalAuth resolves the actor when a valid token is present and lets
// anonymous requests through. A present but invalid token is still 401.
func OptionalAuth(p TokenParser, rev auth.Revoker) gin.HandlerFunc {
	return authenticate(p, rev, false)
}

func authenticate(p TokenParser, rev auth.Revoker, required bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		raw, present := bearerToken(c.GetHeader("Authorization"))
		if !present {
			if required {
				abortJSON(c, http.StatusUnauthorized, "unauthorized", "missing bearer token")
				return
			}
			c.Next()
			return
		}

		claims, err := p.Parse(raw)
		if err != nil {
			abortJSON(c, http.StatusUnauthorized, "unauthorized", "invalid or expired token")
			return
		}
		if rev != nil {
			revoked, err := rev.IsRevoked(c.Request.Context(), claims.ID)
			if err != nil {
				LoggerFrom(c).Error().Err(err).Msg("revocation lookup failed")
				abortJSON(c, http.StatusInternalServerError, "internal_error", "session store unavailable")
				return
			}
			if revoked {
				abortJSON(c, http.StatusUnauthorized, "unauthorized", "token has been revoked")
				return
			}
		}

		c.Set(ctxKeyClaims, claims)
		c.Set(ctxKeyActor, claims.Actor())
		c.Next()
	}
}

// RequireRole lets the request through only when the actor holds one of
// roles. Anonymous requests get 401, other roles 403.
func RequireRole(roles ...domain.Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		a, ok := ActorFrom(c)
		if !ok {
			abortJSON(c, http.StatusUnauthorized, "unauthorized", "authentication required")
			return
		}
		for _, r := range roles {
			if a.Is(r) {
				c.Next()
				return
			}
		}
		abortJSON(c, http.StatusForbidden, "forbidden", "insufficient role")
	}
}

// ActorFrom returns the authenticated actor, if any.
func ActorFrom(c *gin.Context) (domain.Actor, bool) {
	v, ok := c.Get(ctxKeyActor)
	if !ok {
		return domain.Actor{}, false
	}
	a, ok := v.(domain.Actor)
	return a, ok
}

// ClaimsFrom returns the verified token claims, if any.
func ClaimsFrom(c *gin.Context) (*auth.Claims, bool) {
	v, ok := c.Get(ctxKeyClaims)
	if !ok {
		return nil, false
	}
	cl, ok := v.(*auth.Claims)
	return cl, ok && cl != nil
}

// SetActor stores a as the request actor. Tests and internal callers use it
// to bypass token parsing.
func SetActor(c *gin.Context, a domain.Actor) {
	c.Set(ctxKeyActor, a)
}

func bearerToken(h string) (string, bool) {
	h = strings.TrimSpace(h)
	if h == "" {
		return "", false
	}
	scheme, tok, found := strings.Cut(h, " ")
	if !found || !strings.EqualFold(scheme, "Bearer") {
		return "", true
	}
	return strings.TrimSpace(tok), true
}

// abortJSON writes the standard error envelope. It mirrors handlers.Fail,
// which this package cannot import.
func abortJSON(c *gin.Context, status int, code, msg string) {
	c.AbortWithStatusJSON(status, gin.H{
		"request_id": c.Writer.Header().Get(requestIDHeader),
		"code":       code,
		"message":    msg,
	})
}
