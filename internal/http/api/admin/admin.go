package admin

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/reelcraft/reelcraft-server/internal/config"
	handlers "github.com/reelcraft/reelcraft-server/internal/http/api/admin/handlers"
	"github.com/reelcraft/reelcraft-server/internal/models"
	"github.com/reelcraft/reelcraft-server/internal/security"
	"gorm.io/gorm"
)

// RegisterAdminRoutes registers admin routes, middleware, and handlers.
func RegisterAdminRoutes(r *gin.Engine, db *gorm.DB, jwtCfg config.AdminJWTConfig) {
	if r == nil || db == nil {
		return
	}

	healthHandler := handlers.NewHealthHandler(db)
	r.GET("/healthz", healthHandler.Healthz)

	adminGroup := r.Group("/v0/admin")

	authHandler := handlers.NewAuthHandler(db, jwtCfg)
	adminGroup.POST("/login", authHandler.Login)

	authed := adminGroup.Group("")
	authed.Use(adminAuthMiddleware(db, jwtCfg))

	planLimitHandler := handlers.NewPlanLimitHandler(db)
	authed.POST("/plan-limits", planLimitHandler.Create)
	authed.GET("/plan-limits", planLimitHandler.List)
	authed.GET("/plan-limits/:plan", planLimitHandler.Get)
	authed.PUT("/plan-limits/:plan", planLimitHandler.Update)
	authed.DELETE("/plan-limits/:plan", planLimitHandler.Delete)

	subscriptionHandler := handlers.NewSubscriptionHandler(db)
	authed.GET("/subscriptions", subscriptionHandler.List)
	authed.GET("/subscriptions/:user_id", subscriptionHandler.Get)
	authed.PUT("/subscriptions/:user_id", subscriptionHandler.Update)

	usageLogHandler := handlers.NewUsageLogHandler(db)
	authed.GET("/usage-logs", usageLogHandler.List)

	webhookEventHandler := handlers.NewWebhookEventHandler(db)
	authed.GET("/webhook-events", webhookEventHandler.List)

	settingHandler := handlers.NewSettingHandler(db)
	authed.POST("/settings", settingHandler.Create)
	authed.GET("/settings", settingHandler.List)
	authed.GET("/settings/:key", settingHandler.Get)
	authed.PUT("/settings/:key", settingHandler.Update)
	authed.DELETE("/settings/:key", settingHandler.Delete)
}

// adminAuthMiddleware validates admin JWTs and loads admin context.
func adminAuthMiddleware(db *gorm.DB, jwtCfg config.AdminJWTConfig) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing authorization header"})
			return
		}

		token := strings.TrimPrefix(authHeader, "Bearer ")
		if token == authHeader {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid authorization format"})
			return
		}
		token = strings.TrimSpace(token)
		if token == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "empty token"})
			return
		}

		claims, errJWT := security.ParseAdminToken(jwtCfg.Secret, token)
		if errJWT != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
			return
		}

		var admin models.Admin
		if errFind := db.WithContext(c.Request.Context()).First(&admin, claims.AdminID).Error; errFind != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "admin not found"})
			return
		}
		if !admin.Active {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "admin disabled"})
			return
		}

		c.Set("adminID", admin.ID)
		c.Set("adminUsername", admin.Username)
		c.Next()
	}
}
