package handlers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/reelcraft/reelcraft-server/internal/models"
	"gorm.io/gorm"
)

// PlanLimitHandler manages the plan allowance catalog.
type PlanLimitHandler struct {
	db *gorm.DB
}

// NewPlanLimitHandler constructs a PlanLimitHandler.
func NewPlanLimitHandler(db *gorm.DB) *PlanLimitHandler {
	return &PlanLimitHandler{db: db}
}

// planLimitRequest defines the request body for creating or updating a plan.
type planLimitRequest struct {
	Plan                 string `json:"plan"`
	ScriptsPerMonth      *int   `json:"scripts_per_month"`
	ImagesPerMonth       *int   `json:"images_per_month"`
	VideosPerMonth       *int   `json:"videos_per_month"`
	DescriptionsPerMonth *int   `json:"descriptions_per_month"`
	RateLimit            *int   `json:"rate_limit"`
}

func validLimit(v *int) bool {
	return v == nil || *v >= models.UnlimitedQuota
}

// Create inserts a new plan's allowances.
func (h *PlanLimitHandler) Create(c *gin.Context) {
	var body planLimitRequest
	if errBind := c.ShouldBindJSON(&body); errBind != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	plan := strings.ToLower(strings.TrimSpace(body.Plan))
	if plan == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "plan is required"})
		return
	}
	if !validLimit(body.ScriptsPerMonth) || !validLimit(body.ImagesPerMonth) ||
		!validLimit(body.VideosPerMonth) || !validLimit(body.DescriptionsPerMonth) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "limits must be -1 or greater"})
		return
	}

	var existing models.PlanLimit
	if errFind := h.db.WithContext(c.Request.Context()).Where("plan = ?", plan).First(&existing).Error; errFind == nil {
		c.JSON(http.StatusConflict, gin.H{"error": "plan already exists"})
		return
	}

	limit := models.PlanLimit{Plan: plan}
	applyLimitFields(&limit, body)
	if errCreate := h.db.WithContext(c.Request.Context()).Create(&limit).Error; errCreate != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "create plan failed"})
		return
	}
	c.JSON(http.StatusCreated, formatPlanLimit(&limit))
}

// List returns every plan's allowances.
func (h *PlanLimitHandler) List(c *gin.Context) {
	var rows []models.PlanLimit
	if errFind := h.db.WithContext(c.Request.Context()).Order("plan ASC").Find(&rows).Error; errFind != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "list plans failed"})
		return
	}
	out := make([]gin.H, 0, len(rows))
	for _, row := range rows {
		out = append(out, formatPlanLimit(&row))
	}
	c.JSON(http.StatusOK, gin.H{"plans": out})
}

// Get returns one plan's allowances by name.
func (h *PlanLimitHandler) Get(c *gin.Context) {
	plan := strings.ToLower(strings.TrimSpace(c.Param("plan")))
	if plan == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid plan"})
		return
	}
	var limit models.PlanLimit
	if errFind := h.db.WithContext(c.Request.Context()).Where("plan = ?", plan).First(&limit).Error; errFind != nil {
		if errors.Is(errFind, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "query failed"})
		return
	}
	c.JSON(http.StatusOK, formatPlanLimit(&limit))
}

// Update changes a plan's allowances. Omitted fields keep their value.
func (h *PlanLimitHandler) Update(c *gin.Context) {
	plan := strings.ToLower(strings.TrimSpace(c.Param("plan")))
	if plan == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid plan"})
		return
	}
	var body planLimitRequest
	if errBind := c.ShouldBindJSON(&body); errBind != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	if !validLimit(body.ScriptsPerMonth) || !validLimit(body.ImagesPerMonth) ||
		!validLimit(body.VideosPerMonth) || !validLimit(body.DescriptionsPerMonth) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "limits must be -1 or greater"})
		return
	}

	var limit models.PlanLimit
	if errFind := h.db.WithContext(c.Request.Context()).Where("plan = ?", plan).First(&limit).Error; errFind != nil {
		if errors.Is(errFind, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "query failed"})
		return
	}

	applyLimitFields(&limit, body)
	if errSave := h.db.WithContext(c.Request.Context()).Save(&limit).Error; errSave != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "update plan failed"})
		return
	}
	c.JSON(http.StatusOK, formatPlanLimit(&limit))
}

// Delete removes a plan from the catalog. Users still on the plan fall
// back to unlimited on the next check, so deletion is admin-gated.
func (h *PlanLimitHandler) Delete(c *gin.Context) {
	plan := strings.ToLower(strings.TrimSpace(c.Param("plan")))
	if plan == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid plan"})
		return
	}
	res := h.db.WithContext(c.Request.Context()).Where("plan = ?", plan).Delete(&models.PlanLimit{})
	if res.Error != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "delete plan failed"})
		return
	}
	if res.RowsAffected == 0 {
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
		return
	}
	c.Status(http.StatusNoContent)
}

func applyLimitFields(limit *models.PlanLimit, body planLimitRequest) {
	if body.ScriptsPerMonth != nil {
		limit.ScriptsPerMonth = *body.ScriptsPerMonth
	}
	if body.ImagesPerMonth != nil {
		limit.ImagesPerMonth = *body.ImagesPerMonth
	}
	if body.VideosPerMonth != nil {
		limit.VideosPerMonth = *body.VideosPerMonth
	}
	if body.DescriptionsPerMonth != nil {
		limit.DescriptionsPerMonth = *body.DescriptionsPerMonth
	}
	if body.RateLimit != nil && *body.RateLimit >= 0 {
		limit.RateLimit = *body.RateLimit
	}
}

func formatPlanLimit(limit *models.PlanLimit) gin.H {
	return gin.H{
		"plan":                   limit.Plan,
		"scripts_per_month":      limit.ScriptsPerMonth,
		"images_per_month":       limit.ImagesPerMonth,
		"videos_per_month":       limit.VideosPerMonth,
		"descriptions_per_month": limit.DescriptionsPerMonth,
		"rate_limit":             limit.RateLimit,
		"updated_at":             limit.UpdatedAt,
	}
}
