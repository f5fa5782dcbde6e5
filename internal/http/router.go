// Package httpapi wires the HTTP transport (Gin) to application services,
// middleware, and route handlers. It centralizes cross-cutting concerns such
// as tracing, correlation IDs, logging/redaction, panic recovery, metrics,
// compression, CORS, security headers, authentication, idempotency, and rate
// limiting.
//
// Design goals:
//   - Put observability first (OTel + Prometheus)
//   - Safe-by-default middleware ordering (RequestID → logging → recovery)
//   - Deterministic router setup; all infrastructure injected
//   - Role gates at the edge, ownership checks in the services
package httpapi

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"gorm.io/gorm"

	"github.com/tbourn/service-connect/docs"
	"github.com/tbourn/service-connect/internal/assistant"
	"github.com/tbourn/service-connect/internal/auth"
	"github.com/tbourn/service-connect/internal/config"
	"github.com/tbourn/service-connect/internal/domain"
	"github.com/tbourn/service-connect/internal/http/handlers"
	"github.com/tbourn/service-connect/internal/http/middleware"
	"github.com/tbourn/service-connect/internal/repo"
	"github.com/tbourn/service-connect/internal/services"
)

// Runtime carries the process-level collaborators the routes need beyond
// the database.
type Runtime struct {
	Tokens   *auth.TokenIssuer
	Revoker  auth.Revoker
	Hasher   services.PasswordHasher
	Notifier services.ContactNotifier // optional
}

// Credential endpoints get their own, tighter per-IP bucket.
const (
	authRateRPS   = 0.5
	authRateBurst = 5
)

// idempotencyLookup adapts repo.GetIdempotency to the middleware contract.
func idempotencyLookup(db *gorm.DB) middleware.IdempotencyLookup {
	return func(ctx context.Context, userID uint, scope, key string, now time.Time) (bool, error) {
		_, err := repo.GetIdempotency(ctx, db, userID, scope, key, now)
		switch {
		case errors.Is(err, repo.ErrNotFound):
			return false, nil
		case err != nil:
			return false, err
		}
		return true, nil
	}
}

// newAssistant seeds the assistant with the current catalog. An unreadable
// catalog degrades to generic answers.
func newAssistant(db *gorm.DB) *assistant.Assistant {
	catalog, err := repo.ListServices(context.Background(), db, "")
	if err != nil {
		log.Warn().Err(err).Msg("assistant: catalog unavailable")
	}
	return assistant.New(catalog)
}

// RegisterRoutes attaches all middleware and HTTP endpoints to the given Gin
// engine. It configures observability (tracing, metrics), compression, CORS
// and security headers, health and metrics endpoints, and then mounts the
// versioned API under cfg.APIBasePath.
//
// Middleware order matters:
//  1. OpenTelemetry: trace everything
//  2. RequestID: generate/propagate correlation id
//  3. RedactingLogger: structured logs with PII scrubbing
//  4. Recovery: capture panics after logger
//  5. Body size limiter
//  6. Metrics
//  7. gzip
//  8. CORS and Security headers
//
// Per group: Authenticate → (Idempotency validator) → rate limiter →
// RequireRole. The validator precedes the limiter so replays bypass it.
func RegisterRoutes(r *gin.Engine, db *gorm.DB, cfg config.Config, rt Runtime) {
	r.HandleMethodNotAllowed = true

	// 1) Trace all HTTP requests
	r.Use(otelgin.Middleware(cfg.OTEL.ServiceName))

	// 2) Correlate requests and logs
	r.Use(middleware.RequestID())

	// 3) Structured logging with redaction
	r.Use(middleware.RedactingLogger(middleware.RedactOptions{
		MaskHeaders: []string{middleware.HeaderIdempotencyKey},
	}))

	// 4) Panic recovery to JSON 500 (with request id)
	r.Use(middleware.Recovery())

	// 5) Global body size limit (1 MiB)
	r.Use(limitBody(1 << 20))

	// 6) Prometheus metrics and /metrics endpoint
	r.Use(middleware.Metrics())
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// 7) Compress JSON and CSV responses
	r.Use(gzip.Gzip(gzip.DefaultCompression))

	// 8) CORS posture (safe defaults: allow all if none configured)
	allowHeaders := []string{"Origin", "Content-Type", "Accept", "Authorization", "If-None-Match", middleware.HeaderIdempotencyKey}
	exposeHeaders := []string{"X-Request-ID", "Content-Length", "ETag", "Location", handlers.HeaderIdempotencyReplayed}
	if len(cfg.CORS.AllowedOrigins) == 0 {
		r.Use(cors.New(cors.Config{
			AllowAllOrigins:  true,
			AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
			AllowHeaders:     allowHeaders,
			ExposeHeaders:    exposeHeaders,
			AllowCredentials: false, // must remain false with AllowAllOrigins
			MaxAge:           12 * time.Hour,
		}))
	} else {
		r.Use(cors.New(cors.Config{
			AllowOrigins:     cfg.CORS.AllowedOrigins,
			AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
			AllowHeaders:     allowHeaders,
			ExposeHeaders:    exposeHeaders,
			AllowCredentials: true,
			MaxAge:           12 * time.Hour,
		}))
	}

	// Security headers (HSTS only when enabled and request is HTTPS)
	r.Use(middleware.SecurityHeaders(middleware.SecurityOptions{
		EnableHSTS:           cfg.Security.EnableHSTS,
		HSTSMaxAge:           cfg.Security.HSTSMaxAge,
		NoStoreAuthenticated: true,
		EnablePolicy:         true,
	}))

	// Fallbacks
	r.NoRoute(func(c *gin.Context) {
		handlers.Fail(c, http.StatusNotFound, handlers.ErrCodeNotFound, "route not found")
	})
	r.NoMethod(func(c *gin.Context) {
		handlers.Fail(c, http.StatusMethodNotAllowed, handlers.ErrCodeMethodNotAllowed, "method not allowed")
	})

	// Liveness/health
	r.GET("/health", func(c *gin.Context) {
		sqlDB, err := db.DB()
		if err == nil {
			err = sqlDB.PingContext(c.Request.Context())
		}
		if err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "degraded"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	if cfg.SwaggerEnabled {
		docs.SwaggerInfo.BasePath = cfg.APIBasePath
		r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	// Dependency injection: services ← repo/db
	h := handlers.New(handlers.Deps{
		Identity:    services.NewIdentityService(db, rt.Hasher),
		Sessions:    rt.Tokens,
		Revoker:     rt.Revoker,
		Catalog:     services.NewCatalogService(db),
		Orders:      services.NewOrderService(db, cfg.IdempotencyTTL),
		Assignments: services.NewAssignmentService(db),
		Chat:        services.NewChatService(db, cfg.MaxMessageRunes),
		Reports:     services.NewReportService(db),
		Contact:     services.NewContactService(db, rt.Notifier),
		Assistant:   newAssistant(db),
	})

	publicRL := middleware.NewRateLimiter(cfg.RateRPS, cfg.RateBurst, middleware.KeyByIP())
	authRL := middleware.NewRateLimiter(authRateRPS, authRateBurst, middleware.KeyByIP())
	userRL := middleware.NewRateLimiter(cfg.RateRPS, cfg.RateBurst, middleware.KeyByUserOrIP())

	authn := middleware.Authenticate(rt.Tokens, rt.Revoker)
	idem := middleware.IdempotencyValidator(middleware.IdempotencyOptions{
		Scope:  services.IdempotencyScopeOrders,
		MaxLen: 200,
	}, idempotencyLookup(db))

	client := middleware.RequireRole(domain.RoleClient, domain.RoleAdmin)
	tech := middleware.RequireRole(domain.RoleTechnician, domain.RoleAdmin)

	api := groupWithPrefix(r, cfg.APIBasePath)

	// Public
	public := api.Group("", publicRL.Handler())
	{
		public.GET("/services", h.ListServices)
		public.GET("/services/categories", h.ListCategories)
		public.GET("/services/search", h.SearchServices)
		public.GET("/services/:id", h.GetService)
		public.POST("/contact", h.SubmitContact)
		public.POST("/assistant", middleware.OptionalAuth(rt.Tokens, rt.Revoker), h.Ask)
	}

	// Credentials
	creds := api.Group("/auth", authRL.Handler())
	{
		creds.POST("/register", h.Register)
		creds.POST("/login", h.Login)
	}

	// Booking: replays skip the limiter
	api.POST("/orders", authn, idem, userRL.Handler(), middleware.RequireRole(domain.RoleClient), h.CreateOrder)

	// Authenticated
	authed := api.Group("", authn, userRL.Handler())
	{
		authed.POST("/auth/logout", h.Logout)
		authed.GET("/me", h.Me)
		authed.PUT("/me", h.UpdateMe)

		authed.GET("/orders", middleware.RequireRole(domain.RoleClient), h.ListMyOrders)
		authed.GET("/orders/pending", tech, h.ListPendingOrders)
		authed.GET("/orders/:id", h.GetOrder)
		authed.PUT("/orders/:id/status", h.UpdateOrderStatus)
		authed.POST("/orders/:id/complete", tech, h.CompleteOrder)
		authed.POST("/orders/:id/cancel", client, h.CancelOrder)
		authed.GET("/orders/:id/assignment", h.GetAssignment)
		authed.PUT("/orders/:id/assignment", tech, h.AssignTechnician)

		authed.GET("/orders/:id/messages", h.ListMessages)
		authed.POST("/orders/:id/messages", h.PostMessage)
		authed.POST("/orders/:id/messages/read", h.MarkMessagesRead)
		authed.GET("/chats", h.ListConversations)
		authed.GET("/chats/unread", h.UnreadCount)
	}

	// Admin
	admin := authed.Group("/admin", middleware.RequireRole(domain.RoleAdmin))
	{
		admin.GET("/dashboard", h.Dashboard)
		admin.GET("/analytics", h.Analytics)
		admin.GET("/orders", h.ListAllOrders)
		admin.GET("/orders/export", h.ExportOrders)
		admin.GET("/technicians", h.ListTechnicians)
		admin.GET("/contacts", h.ListContacts)
		admin.POST("/contacts/:id/read", h.MarkContactRead)
	}
}

// limitBody returns a Gin middleware that caps the request body size for all
// endpoints to maxBytes using http.MaxBytesReader. Requests exceeding the cap
// will cause downstream body reads to error.
func limitBody(maxBytes int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxBytes)
		c.Next()
	}
}

// groupWithPrefix mounts a group at prefix, treating "/" (or empty) as root.
func groupWithPrefix(r *gin.Engine, prefix string) *gin.RouterGroup {
	if prefix == "" || prefix == "/" {
		return r.Group("")
	}
	return r.Group(prefix)
}
