package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/reelcraft/reelcraft-server/internal/auth"
	"github.com/reelcraft/reelcraft-server/internal/config"
	"github.com/reelcraft/reelcraft-server/internal/db"
	admin "github.com/reelcraft/reelcraft-server/internal/http/api/admin"
	"github.com/reelcraft/reelcraft-server/internal/http/api/front"
	"github.com/reelcraft/reelcraft-server/internal/ledger"
	"github.com/reelcraft/reelcraft-server/internal/provider"
	"github.com/reelcraft/reelcraft-server/internal/quota"
	"github.com/reelcraft/reelcraft-server/internal/ratelimit"
	internalsettings "github.com/reelcraft/reelcraft-server/internal/settings"
	"github.com/reelcraft/reelcraft-server/internal/webhook"
	log "github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// shutdownTimeout bounds graceful drain on exit.
const shutdownTimeout = 10 * time.Second

// Migrate opens the database and runs migrations.
func Migrate(ctx context.Context, cfg config.AppConfig) error {
	conn, err := db.Open(cfg.DatabaseDSN)
	if err != nil {
		return err
	}
	return db.Migrate(conn)
}

// RunServer boots the API server with database-backed components and
// blocks until ctx is cancelled or the listener fails.
func RunServer(ctx context.Context, cfg config.AppConfig, defaultPort int) error {
	conn, err := db.Open(cfg.DatabaseDSN)
	if err != nil {
		return err
	}
	if errMigrate := db.Migrate(conn); errMigrate != nil {
		return errMigrate
	}
	internalsettings.RegisterDB(conn)
	if errAdmin := EnsureBootstrapAdmin(conn); errAdmin != nil {
		return errAdmin
	}

	engine := BuildEngine(conn, cfg)

	port := cfg.Port
	if port <= 0 {
		port = defaultPort
	}
	if port <= 0 {
		port = 8318
	}

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", port),
		Handler: engine,
	}

	errCh := make(chan error, 1)
	go func() {
		log.WithField("port", port).Info("server listening")
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if errShutdown := srv.Shutdown(shutdownCtx); errShutdown != nil {
			return errShutdown
		}
		return nil
	case errServe := <-errCh:
		if errors.Is(errServe, http.ErrServerClosed) {
			return nil
		}
		return errServe
	}
}

// BuildEngine assembles the gin engine with all routes registered.
func BuildEngine(conn *gorm.DB, cfg config.AppConfig) *gin.Engine {
	engine := gin.New()
	engine.Use(gin.Recovery())

	gateway := auth.NewGateway(conn, cfg.Auth.JWTSecret)
	quotaSvc := quota.NewService(conn, nil)
	limiter := ratelimit.NewManager(nil, nil, nil)
	usageLedger := ledger.NewLedger(conn)
	grok := provider.NewGrokClient(cfg.Providers.GrokAPIKey, cfg.Providers.GrokBaseURL)
	gemini := provider.NewGeminiClient(cfg.Providers.GeminiAPIKey, cfg.Providers.GeminiBaseURL)

	verifier := webhook.NewVerifier(cfg.TiloPay.APIKey)
	dispatcher := webhook.NewDispatcher(conn)
	webhookHandler := webhook.NewHandler(verifier, dispatcher)

	front.RegisterFrontRoutes(engine, front.Deps{
		DB:                     conn,
		Gateway:                gateway,
		Quota:                  quotaSvc,
		Limiter:                limiter,
		Ledger:                 usageLedger,
		Grok:                   grok,
		Gemini:                 gemini,
		Webhook:                webhookHandler,
		RateLimitMaxRequests:   cfg.RateLimit.MaxRequests,
		RateLimitWindowSeconds: cfg.RateLimit.WindowSeconds,
	})
	admin.RegisterAdminRoutes(engine, conn, cfg.AdminJWT)

	return engine
}
