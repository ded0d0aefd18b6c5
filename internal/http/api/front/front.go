package front

import (
	"github.com/gin-gonic/gin"
	"github.com/reelcraft/reelcraft-server/internal/auth"
	handlers "github.com/reelcraft/reelcraft-server/internal/http/api/front/handlers"
	"github.com/reelcraft/reelcraft-server/internal/ledger"
	"github.com/reelcraft/reelcraft-server/internal/provider"
	"github.com/reelcraft/reelcraft-server/internal/quota"
	"github.com/reelcraft/reelcraft-server/internal/ratelimit"
	"github.com/reelcraft/reelcraft-server/internal/webhook"
	"gorm.io/gorm"
)

// Deps carries the services the user-facing API is built from.
type Deps struct {
	DB      *gorm.DB
	Gateway *auth.Gateway
	Quota   *quota.Service
	Limiter *ratelimit.Manager
	Ledger  *ledger.Ledger
	Grok    *provider.GrokClient
	Gemini  *provider.GeminiClient
	Webhook *webhook.Handler

	RateLimitMaxRequests   int
	RateLimitWindowSeconds int
}

// RegisterFrontRoutes registers the user-facing API routes.
func RegisterFrontRoutes(r *gin.Engine, deps Deps) {
	if r == nil || deps.DB == nil {
		return
	}

	// Webhook endpoints authenticate by signature, not bearer token.
	if deps.Webhook != nil {
		r.GET("/v1/webhooks/tilopay", deps.Webhook.Challenge)
		r.POST("/v1/webhooks/tilopay", deps.Webhook.Receive)
	}

	plansHandler := handlers.NewPlansHandler(deps.DB)
	r.GET("/v1/plans", plansHandler.List)

	authed := r.Group("/v1")
	authed.Use(auth.RequireAuth(deps.Gateway))

	usageHandler := handlers.NewUsageHandler(deps.Quota)
	authed.GET("/usage", usageHandler.Summary)

	generateHandler := handlers.NewGenerateHandler(deps.Quota, deps.Limiter, deps.Ledger, deps.Grok, deps.Gemini, deps.RateLimitMaxRequests, deps.RateLimitWindowSeconds)
	authed.POST("/generate/script", generateHandler.Script)
	authed.POST("/generate/description", generateHandler.Description)
	authed.POST("/generate/image", generateHandler.Image)
	authed.POST("/generate/video", generateHandler.Video)
}
