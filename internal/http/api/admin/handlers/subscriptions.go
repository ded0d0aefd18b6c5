package handlers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	dbutil "github.com/reelcraft/reelcraft-server/internal/db"
	"github.com/reelcraft/reelcraft-server/internal/models"
	"gorm.io/gorm"
)

// SubscriptionHandler manages billing relationships between users and plans.
type SubscriptionHandler struct {
	db *gorm.DB
}

// NewSubscriptionHandler constructs a SubscriptionHandler.
func NewSubscriptionHandler(db *gorm.DB) *SubscriptionHandler {
	return &SubscriptionHandler{db: db}
}

// List returns subscriptions with optional filters.
func (h *SubscriptionHandler) List(c *gin.Context) {
	var (
		userQ   = strings.TrimSpace(c.Query("user_id"))
		planQ   = strings.TrimSpace(c.Query("plan"))
		statusQ = strings.TrimSpace(c.Query("status"))
	)

	q := h.db.WithContext(c.Request.Context()).Model(&models.Subscription{})
	if userQ != "" {
		pattern := dbutil.NormalizeLikePattern(h.db, "%"+userQ+"%")
		q = q.Where(dbutil.CaseInsensitiveLikeExpr(h.db, "user_id"), pattern)
	}
	if planQ != "" {
		q = q.Where("plan = ?", strings.ToLower(planQ))
	}
	if statusQ != "" {
		q = q.Where("status = ?", strings.ToLower(statusQ))
	}

	var rows []models.Subscription
	if errFind := q.Order("updated_at DESC").Find(&rows).Error; errFind != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "list subscriptions failed"})
		return
	}
	out := make([]gin.H, 0, len(rows))
	for _, row := range rows {
		out = append(out, formatSubscription(&row))
	}
	c.JSON(http.StatusOK, gin.H{"subscriptions": out})
}

// Get returns one user's subscription.
func (h *SubscriptionHandler) Get(c *gin.Context) {
	userID := strings.TrimSpace(c.Param("user_id"))
	if userID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid user id"})
		return
	}
	var sub models.Subscription
	if errFind := h.db.WithContext(c.Request.Context()).Where("user_id = ?", userID).First(&sub).Error; errFind != nil {
		if errors.Is(errFind, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "query failed"})
		return
	}
	c.JSON(http.StatusOK, formatSubscription(&sub))
}

// updateSubscriptionRequest defines the request body for a manual override.
type updateSubscriptionRequest struct {
	Plan   string `json:"plan"`
	Status string `json:"status"`
}

// Update sets a user's plan or status, creating the row if absent. This is
// the manual override path; webhooks are the normal source of changes.
func (h *SubscriptionHandler) Update(c *gin.Context) {
	userID := strings.TrimSpace(c.Param("user_id"))
	if userID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid user id"})
		return
	}
	var body updateSubscriptionRequest
	if errBind := c.ShouldBindJSON(&body); errBind != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	plan := strings.ToLower(strings.TrimSpace(body.Plan))
	status := strings.ToLower(strings.TrimSpace(body.Status))
	if plan == "" && status == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "plan or status is required"})
		return
	}
	switch status {
	case "", models.SubscriptionStatusActive, models.SubscriptionStatusPastDue, models.SubscriptionStatusCancelled:
	default:
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid status"})
		return
	}

	var sub models.Subscription
	errFind := h.db.WithContext(c.Request.Context()).Where("user_id = ?", userID).First(&sub).Error
	if errFind != nil && !errors.Is(errFind, gorm.ErrRecordNotFound) {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "query failed"})
		return
	}
	if errors.Is(errFind, gorm.ErrRecordNotFound) {
		sub = models.Subscription{UserID: userID, Plan: models.PlanFree, Status: models.SubscriptionStatusActive}
	}
	if plan != "" {
		sub.Plan = plan
	}
	if status != "" {
		sub.Status = status
	}

	if errSave := h.db.WithContext(c.Request.Context()).Save(&sub).Error; errSave != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "update subscription failed"})
		return
	}
	c.JSON(http.StatusOK, formatSubscription(&sub))
}

func formatSubscription(sub *models.Subscription) gin.H {
	return gin.H{
		"user_id":    sub.UserID,
		"plan":       sub.Plan,
		"status":     sub.Status,
		"updated_at": sub.UpdatedAt,
	}
}
