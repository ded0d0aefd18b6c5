package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/reelcraft/reelcraft-server/internal/models"
	"gorm.io/gorm"
)

// PlansHandler serves the public plan catalog.
type PlansHandler struct {
	db *gorm.DB
}

// NewPlansHandler constructs a PlansHandler.
func NewPlansHandler(db *gorm.DB) *PlansHandler {
	return &PlansHandler{db: db}
}

// List returns every configured plan with its monthly allowances.
func (h *PlansHandler) List(c *gin.Context) {
	var limits []models.PlanLimit
	if errFind := h.db.WithContext(c.Request.Context()).Order("plan").Find(&limits).Error; errFind != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "plan catalog unavailable"})
		return
	}

	plans := make([]gin.H, 0, len(limits))
	for _, limit := range limits {
		plans = append(plans, gin.H{
			"plan":                   limit.Plan,
			"scripts_per_month":      limit.ScriptsPerMonth,
			"images_per_month":       limit.ImagesPerMonth,
			"videos_per_month":       limit.VideosPerMonth,
			"descriptions_per_month": limit.DescriptionsPerMonth,
			"rate_limit":             limit.RateLimit,
		})
	}

	c.JSON(http.StatusOK, gin.H{"plans": plans})
}
