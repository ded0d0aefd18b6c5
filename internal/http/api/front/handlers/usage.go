package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/reelcraft/reelcraft-server/internal/auth"
	"github.com/reelcraft/reelcraft-server/internal/models"
	"github.com/reelcraft/reelcraft-server/internal/quota"
)

// UsageHandler serves the current-period usage summary.
type UsageHandler struct {
	quota *quota.Service
}

// NewUsageHandler constructs a UsageHandler.
func NewUsageHandler(quotaSvc *quota.Service) *UsageHandler {
	return &UsageHandler{quota: quotaSvc}
}

// Summary reports per-resource consumption against the caller's plan for
// the current billing month.
func (h *UsageHandler) Summary(c *gin.Context) {
	identity, ok := auth.IdentityFromContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "not authenticated"})
		return
	}

	usage, errUsage := h.quota.CurrentUsage(c.Request.Context(), identity.UserID)
	if errUsage != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "usage service unavailable"})
		return
	}
	limits, haveLimits, errLimits := h.quota.PlanLimits(c.Request.Context(), identity.Plan)
	if errLimits != nil {
		haveLimits = false
	}

	resources := gin.H{}
	for _, kind := range models.AllResourceKinds() {
		used := usage.CountFor(kind)
		entry := gin.H{"used": used}
		if haveLimits {
			limit := limits.LimitFor(kind)
			entry["limit"] = limit
			if limit == models.UnlimitedQuota {
				entry["remaining"] = models.UnlimitedQuota
			} else {
				// Display-side clamp only; admission math keeps the raw value.
				remaining := limit - used
				if remaining < 0 {
					remaining = 0
				}
				entry["remaining"] = remaining
			}
		}
		resources[string(kind)] = entry
	}

	c.JSON(http.StatusOK, gin.H{
		"plan":         identity.Plan,
		"period_start": usage.PeriodStart,
		"resources":    resources,
	})
}
