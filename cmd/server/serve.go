package main

import (
	"context"
	"errors"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"user_management/internal/config"
	"user_management/internal/logger"
	"user_management/internal/ratelimit"
	"user_management/internal/repository"
	"user_management/internal/router"
	"user_management/internal/service"
	"user_management/internal/validation"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

// bootstrap loads the configuration, builds the logger and connects to the
// database with the schema applied.
func bootstrap(ctx context.Context) (*config.Config, *logrus.Logger, *pgxpool.Pool, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, nil, err
	}
	log := logger.New(cfg.Log.Level, cfg.Log.Format)

	dbPool, err := config.ConnectDB(ctx, cfg.DB, log)
	if err != nil {
		return nil, nil, nil, err
	}

	// --- Auto Migration ---
	if err := config.AutoMigrate(ctx, dbPool, log); err != nil {
		dbPool.Close()
		return nil, nil, nil, err
	}
	return cfg, log, dbPool, nil
}

func runMigrate(cmd *cobra.Command, _ []string) error {
	_, log, dbPool, err := bootstrap(cmd.Context())
	if err != nil {
		return err
	}
	defer dbPool.Close()
	log.Info("schema applied")
	return nil
}

func runServe(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	cfg, log, dbPool, err := bootstrap(ctx)
	if err != nil {
		return err
	}
	defer dbPool.Close()

	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	// --- Initialize Repositories ---
	userRepo := repository.NewUserRepository(dbPool, cfg.StoreTimeout)
	tokenRepo := repository.NewTokenRepository(dbPool, cfg.StoreTimeout)

	// --- Initialize Services ---
	var resolver validation.DomainResolver
	if cfg.EmailDNSCheck {
		resolver = net.DefaultResolver
	}
	validator := validation.NewValidator(userRepo, resolver)
	audit := service.NewLogAuditHook(log)
	issuer := service.NewTokenIssuer(tokenRepo, userRepo, cfg.TokenTTL, log)
	authService := service.NewAuthService(userRepo, issuer, validator, audit, cfg.BcryptCost)
	userService := service.NewUserService(userRepo, issuer, validator, audit, cfg.BcryptCost)

	limiter := newLimiter(ctx, cfg, log)

	// --- Setup Gin Router ---
	handler := router.New(router.Deps{
		AuthService:  authService,
		UserService:  userService,
		Limiter:      limiter,
		DB:           dbPool,
		Logger:       log,
		APIPrefix:    cfg.APIPrefix,
		MaxBodyBytes: cfg.MaxBodyBytes,
		PingTimeout:  cfg.StoreTimeout,
	})

	// --- Start Server ---
	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.WithField("port", cfg.Port).Info("server starting")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	// --- Graceful Shutdown ---
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case err := <-errCh:
		return err
	case <-quit:
	}
	log.Info("shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.WithError(err).Error("server forced to shutdown")
		return err
	}

	log.Info("server exiting")
	return nil
}

// newLimiter builds the rate limiter from the configuration. It returns nil
// when rate limiting is disabled.
func newLimiter(ctx context.Context, cfg *config.Config, log logrus.FieldLogger) *ratelimit.Limiter {
	if !cfg.RateLimit.Enabled {
		log.Warn("rate limiting disabled")
		return nil
	}

	memory := ratelimit.NewMemoryStore(time.Now)
	var store ratelimit.Store = memory
	if cfg.RateLimit.Backend == "redis" {
		if rdb := config.NewRedisClient(ctx, cfg.Redis, log); rdb != nil {
			store = ratelimit.NewRedisStore(rdb, memory, log)
		} else {
			log.Warn("redis unavailable, rate limiting in memory")
		}
	}
	return ratelimit.New(cfg.RateLimit.Tiers, store, cfg.RateLimit.Prefix)
}
