// Command server runs the Service Connect HTTP API.
//
// @title                      Service Connect API
// @version                    1.0
// @description                Home-services marketplace: catalog, bookings, technician assignment and per-order chat.
// @BasePath                   /api/v1
// @securityDefinitions.apikey BearerAuth
// @in                         header
// @name                       Authorization
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"github.com/tbourn/service-connect/internal/auth"
	"github.com/tbourn/service-connect/internal/config"
	"github.com/tbourn/service-connect/internal/domain"
	httpapi "github.com/tbourn/service-connect/internal/http"
	"github.com/tbourn/service-connect/internal/jobs"
	"github.com/tbourn/service-connect/internal/notify"
	"github.com/tbourn/service-connect/internal/observability"
	"github.com/tbourn/service-connect/internal/repo"
	"github.com/tbourn/service-connect/internal/services"
	"github.com/tbourn/service-connect/internal/sysutil"
)

// version is stamped at build time with -ldflags "-X main.version=...".
var version = "dev"

const shutdownGrace = 15 * time.Second

func main() {
	loaded := config.LoadDotenv()
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("config")
	}

	logger := sysutil.SetupLogger(cfg.LogLevel, cfg.LogPretty, os.Stdout, cfg.OTEL.ServiceName, version)
	if len(loaded) > 0 {
		logger.Info().Strs("files", loaded).Msg("dotenv loaded")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdownTracing, err := observability.Setup(ctx, cfg.OTEL, observability.Build{
		Version:     version,
		Environment: sysutil.FirstNonEmpty(os.Getenv("APP_ENV"), "development"),
	})
	if err != nil {
		logger.Fatal().Err(err).Msg("otel setup")
	}

	db, err := repo.Open(repo.Options{
		Driver:  cfg.DBDriver,
		Path:    cfg.DBPath,
		DSN:     cfg.DatabaseURL,
		Tracing: cfg.OTEL.Enabled,
		Debug:   cfg.LogLevel == "debug",
	})
	if err != nil {
		logger.Fatal().Err(err).Str("driver", cfg.DBDriver).Msg("open database")
	}

	hasher := auth.NewBcryptHasher(bcrypt.DefaultCost)
	if cfg.Seed.Enabled {
		seed(ctx, db, cfg.Seed, hasher)
	}

	revoker, closeRevoker := newRevoker(ctx, cfg.Redis)
	defer closeRevoker()

	var notifier services.ContactNotifier = notify.Nop{}
	switch m, err := notify.New(cfg.SMTP); {
	case err == nil:
		notifier = m
	case errors.Is(err, notify.ErrNotConfigured):
		logger.Info().Msg("smtp not configured; contact notifications disabled")
	default:
		logger.Fatal().Err(err).Msg("smtp config")
	}

	housekeeper := jobs.New(db, services.NewReportService(db), logger.With().Str("component", "jobs").Logger())
	scheduler, err := housekeeper.Start(cfg.HousekeepingSchedule)
	if err != nil {
		logger.Fatal().Err(err).Str("schedule", cfg.HousekeepingSchedule).Msg("schedule housekeeping")
	}

	gin.SetMode(cfg.GinMode)
	r := gin.New()
	httpapi.RegisterRoutes(r, db, cfg, httpapi.Runtime{
		Tokens:   auth.NewTokenIssuer(cfg.Auth.JWTSecret, cfg.Auth.TokenTTL, cfg.Auth.Issuer),
		Revoker:  revoker,
		Hasher:   hasher,
		Notifier: notifier,
	})

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           r,
		ReadTimeout:       cfg.ReadTimeout,
		ReadHeaderTimeout: cfg.ReadHeaderTimeout,
		WriteTimeout:      cfg.WriteTimeout,
		IdleTimeout:       cfg.IdleTimeout,
		MaxHeaderBytes:    cfg.MaxHeaderBytes,
	}

	go func() {
		logger.Info().Str("addr", srv.Addr).Str("version", version).Msg("listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal().Err(err).Msg("listen")
		}
	}()

	<-ctx.Done()
	logger.Info().Msg("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("http shutdown")
	}
	<-scheduler.Stop().Done()
	if err := shutdownTracing(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("otel shutdown")
	}
	if sqlDB, err := db.DB(); err == nil {
		_ = sqlDB.Close()
	}
}

// seed bootstraps the catalog and accounts on an empty database. Existing
// rows are left alone, so it is safe on every start.
func seed(ctx context.Context, db *gorm.DB, sc config.SeedConfig, hasher services.PasswordHasher) {
	n, err := services.NewCatalogService(db).Seed(ctx, repo.DefaultCatalog())
	if err != nil {
		log.Fatal().Err(err).Msg("seed catalog")
	}
	if n > 0 {
		log.Info().Int("services", n).Msg("catalog seeded")
	}

	var accounts []services.SeedAccount
	if sc.AdminEmail != "" && sc.AdminPassword != "" {
		accounts = append(accounts, services.SeedAccount{
			Email:    sc.AdminEmail,
			Password: sc.AdminPassword,
			Name:     "Administrator",
			Role:     domain.RoleAdmin,
		})
	}
	if sc.DemoAccounts {
		accounts = append(accounts, services.DemoAccounts()...)
	}
	if len(accounts) == 0 {
		return
	}
	n, err = services.NewIdentityService(db, hasher).SeedAccounts(ctx, accounts)
	if err != nil {
		log.Fatal().Err(err).Msg("seed accounts")
	}
	if n > 0 {
		log.Info().Int("accounts", n).Msg("accounts seeded")
	}
}

// newRevoker selects Redis when configured, otherwise the in-process list.
// The returned func releases the Redis client.
func newRevoker(ctx context.Context, rc config.RedisConfig) (auth.Revoker, func()) {
	if rc.Addr == "" {
		log.Info().Msg("token revocation: in-memory")
		return auth.NewMemoryRevoker(), func() {}
	}
	client, err := auth.NewRedisClient(ctx, rc.Addr, rc.Password, rc.DB)
	if err != nil {
		log.Fatal().Err(err).Str("addr", rc.Addr).Msg("redis")
	}
	log.Info().Str("addr", rc.Addr).Msg("token revocation: redis")
	return auth.NewRedisRevoker(client), func() { _ = client.Close() }
}
