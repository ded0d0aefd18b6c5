package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/reelcraft/reelcraft-server/internal/auth"
	"github.com/reelcraft/reelcraft-server/internal/ledger"
	"github.com/reelcraft/reelcraft-server/internal/models"
	"github.com/reelcraft/reelcraft-server/internal/provider"
	"github.com/reelcraft/reelcraft-server/internal/quota"
	"github.com/reelcraft/reelcraft-server/internal/ratelimit"
	log "github.com/sirupsen/logrus"
)

// GenerateHandler serves the content generation endpoints. Every request
// walks the same admission pipeline: rate limit, monthly quota, provider
// call, ledger record, quota increment.
type GenerateHandler struct {
	quota   *quota.Service
	limiter *ratelimit.Manager
	ledger  *ledger.Ledger
	grok    *provider.GrokClient
	gemini  *provider.GeminiClient

	maxRequests int
	window      time.Duration
}

// NewGenerateHandler constructs a GenerateHandler.
func NewGenerateHandler(quotaSvc *quota.Service, limiter *ratelimit.Manager, usageLedger *ledger.Ledger, grok *provider.GrokClient, gemini *provider.GeminiClient, maxRequests, windowSeconds int) *GenerateHandler {
	return &GenerateHandler{
		quota:       quotaSvc,
		limiter:     limiter,
		ledger:      usageLedger,
		grok:        grok,
		gemini:      gemini,
		maxRequests: maxRequests,
		window:      time.Duration(windowSeconds) * time.Second,
	}
}

// admit runs the rate limit and quota gates. It writes the rejection
// response itself and reports whether the request may proceed.
func (h *GenerateHandler) admit(c *gin.Context, identity auth.Identity, kind models.ResourceKind) bool {
	maxRequests := h.maxRequests
	if limits, found, errLimits := h.quota.PlanLimits(c.Request.Context(), identity.Plan); errLimits == nil && found && limits.RateLimit > 0 {
		maxRequests = limits.RateLimit
	}

	result, errAllow := h.limiter.Allow(c.Request.Context(), ratelimit.KeyForUser(identity.UserID), maxRequests, h.window)
	if errAllow != nil {
		log.WithError(errAllow).Warn("generate: rate limit check failed, allowing")
	} else if !result.Allowed {
		c.JSON(http.StatusTooManyRequests, gin.H{
			"error":            ratelimit.ErrRateLimited.Error(),
			"remaining":        0,
			"reset_in_seconds": result.ResetIn(time.Now()),
		})
		return false
	}

	decision, errCheck := h.quota.CheckLimit(c.Request.Context(), identity.UserID, identity.Plan, kind)
	if errCheck != nil {
		// Unreachable store fails closed; unmetered spend is worse than
		// a temporary outage of the endpoint.
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "usage service unavailable"})
		return false
	}
	if !decision.Allowed {
		c.JSON(http.StatusTooManyRequests, gin.H{
			"error":     quota.ErrQuotaExceeded.Error(),
			"resource":  string(kind),
			"remaining": 0,
			"limit":     decision.Limit,
			"plan":      identity.Plan,
		})
		return false
	}
	return true
}

// settle records the call in the ledger and, on success, increments the
// monthly counter. The increment is attempted unconditionally on success;
// a missed ledger row is tolerable, a missed increment is not.
func (h *GenerateHandler) settle(c *gin.Context, identity auth.Identity, kind models.ResourceKind, model string, usage provider.TokenUsage, callErr error, metadata map[string]any) {
	entry := ledger.Entry{
		UserID:       identity.UserID,
		UserEmail:    identity.Email,
		Feature:      kind,
		Model:        model,
		InputTokens:  usage.InputTokens,
		OutputTokens: usage.OutputTokens,
		Success:      callErr == nil,
		Metadata:     metadata,
		Timestamp:    time.Now().UTC(),
	}
	if callErr != nil {
		entry.Error = callErr.Error()
	}
	h.ledger.Record(c.Request.Context(), entry)

	if callErr == nil {
		if errInc := h.quota.Increment(c.Request.Context(), identity.UserID, kind); errInc != nil {
			log.WithError(errInc).WithFields(log.Fields{
				"user_id": identity.UserID,
				"kind":    kind,
			}).Error("generate: usage increment failed")
		}
	}
}

type scriptRequest struct {
	Topic    string `json:"topic"`
	Platform string `json:"platform"`
	Tone     string `json:"tone"`
	Model    string `json:"model"`
}

// Script generates a short-form marketing script.
func (h *GenerateHandler) Script(c *gin.Context) {
	identity, ok := auth.IdentityFromContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "not authenticated"})
		return
	}

	var req scriptRequest
	if errBind := c.ShouldBindJSON(&req); errBind != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": errBind.Error()})
		return
	}
	if strings.TrimSpace(req.Topic) == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "topic is required"})
		return
	}
	if !h.admit(c, identity, models.ResourceScript) {
		return
	}

	prompt := fmt.Sprintf("Write a short-form video marketing script about: %s.", req.Topic)
	if strings.TrimSpace(req.Platform) != "" {
		prompt += fmt.Sprintf(" Target platform: %s.", req.Platform)
	}
	if strings.TrimSpace(req.Tone) != "" {
		prompt += fmt.Sprintf(" Tone: %s.", req.Tone)
	}

	completion, errComplete := h.grok.Complete(c.Request.Context(), provider.CompletionRequest{
		Model:  req.Model,
		System: "You are a marketing copywriter for short-form video.",
		Prompt: prompt,
	})
	h.settle(c, identity, models.ResourceScript, completion.Model, completion.Usage, errComplete, map[string]any{"platform": req.Platform})
	if errComplete != nil {
		respondProviderError(c, errComplete)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"script": completion.Text,
		"model":  completion.Model,
	})
}

type descriptionRequest struct {
	Product  string `json:"product"`
	Keywords string `json:"keywords"`
	Model    string `json:"model"`
}

// Description generates a product description.
func (h *GenerateHandler) Description(c *gin.Context) {
	identity, ok := auth.IdentityFromContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "not authenticated"})
		return
	}

	var req descriptionRequest
	if errBind := c.ShouldBindJSON(&req); errBind != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": errBind.Error()})
		return
	}
	if strings.TrimSpace(req.Product) == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "product is required"})
		return
	}
	if !h.admit(c, identity, models.ResourceDescription) {
		return
	}

	prompt := fmt.Sprintf("Write a persuasive product description for: %s.", req.Product)
	if strings.TrimSpace(req.Keywords) != "" {
		prompt += fmt.Sprintf(" Work in these keywords naturally: %s.", req.Keywords)
	}

	completion, errComplete := h.grok.Complete(c.Request.Context(), provider.CompletionRequest{
		Model:  req.Model,
		System: "You are an e-commerce copywriter.",
		Prompt: prompt,
	})
	h.settle(c, identity, models.ResourceDescription, completion.Model, completion.Usage, errComplete, nil)
	if errComplete != nil {
		respondProviderError(c, errComplete)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"description": completion.Text,
		"model":       completion.Model,
	})
}

type imageRequest struct {
	Prompt string `json:"prompt"`
	Model  string `json:"model"`
}

// Image generates a marketing image.
func (h *GenerateHandler) Image(c *gin.Context) {
	identity, ok := auth.IdentityFromContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "not authenticated"})
		return
	}

	var req imageRequest
	if errBind := c.ShouldBindJSON(&req); errBind != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": errBind.Error()})
		return
	}
	if strings.TrimSpace(req.Prompt) == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "prompt is required"})
		return
	}
	if !h.admit(c, identity, models.ResourceImage) {
		return
	}

	result, errGenerate := h.gemini.GenerateImage(c.Request.Context(), req.Model, req.Prompt)
	h.settle(c, identity, models.ResourceImage, resolvedModel(result.Model, req.Model, provider.DefaultGeminiImageModel), provider.TokenUsage{}, errGenerate, nil)
	if errGenerate != nil {
		respondProviderError(c, errGenerate)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"image":     result.Data,
		"mime_type": result.MimeType,
		"model":     result.Model,
	})
}

type videoRequest struct {
	Prompt          string  `json:"prompt"`
	DurationSeconds float64 `json:"duration_seconds"`
	Model           string  `json:"model"`
}

// Video starts a video generation job.
func (h *GenerateHandler) Video(c *gin.Context) {
	identity, ok := auth.IdentityFromContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "not authenticated"})
		return
	}

	var req videoRequest
	if errBind := c.ShouldBindJSON(&req); errBind != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": errBind.Error()})
		return
	}
	if strings.TrimSpace(req.Prompt) == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "prompt is required"})
		return
	}
	if !h.admit(c, identity, models.ResourceVideo) {
		return
	}

	result, errGenerate := h.gemini.GenerateVideo(c.Request.Context(), req.Model, req.Prompt, req.DurationSeconds)
	metadata := map[string]any{"duration_seconds": result.DurationSeconds}
	h.settle(c, identity, models.ResourceVideo, resolvedModel(result.Model, req.Model, provider.DefaultGeminiVideoModel), provider.TokenUsage{}, errGenerate, metadata)
	if errGenerate != nil {
		respondProviderError(c, errGenerate)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"operation_id":     result.OperationID,
		"duration_seconds": result.DurationSeconds,
		"model":            result.Model,
	})
}

// resolvedModel picks the model name the ledger should price against when
// the provider call failed before resolving one.
func resolvedModel(actual, requested, fallback string) string {
	if strings.TrimSpace(actual) != "" {
		return actual
	}
	if strings.TrimSpace(requested) != "" {
		return requested
	}
	return fallback
}

// respondProviderError maps provider failures to HTTP statuses.
func respondProviderError(c *gin.Context, err error) {
	if errors.Is(err, provider.ErrConfiguration) {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "generation provider not configured"})
		return
	}
	c.JSON(http.StatusBadGateway, gin.H{"error": "generation failed"})
}
