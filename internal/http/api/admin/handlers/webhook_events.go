package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/reelcraft/reelcraft-server/internal/models"
	"gorm.io/gorm"
)

// WebhookEventHandler exposes the payment webhook audit trail.
type WebhookEventHandler struct {
	db *gorm.DB
}

// NewWebhookEventHandler constructs a WebhookEventHandler.
func NewWebhookEventHandler(db *gorm.DB) *WebhookEventHandler {
	return &WebhookEventHandler{db: db}
}

// List returns received webhook events newest first.
func (h *WebhookEventHandler) List(c *gin.Context) {
	var (
		typeQ    = strings.TrimSpace(c.Query("event_type"))
		outcomeQ = strings.TrimSpace(c.Query("outcome"))
	)

	q := h.db.WithContext(c.Request.Context()).Model(&models.WebhookEvent{})
	if typeQ != "" {
		q = q.Where("event_type = ?", typeQ)
	}
	if outcomeQ != "" {
		q = q.Where("outcome = ?", strings.ToLower(outcomeQ))
	}

	var total int64
	if errCount := q.Count(&total).Error; errCount != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "count webhook events failed"})
		return
	}

	limit, offset := pageParams(c)
	var rows []models.WebhookEvent
	if errFind := q.Order("received_at DESC").Limit(limit).Offset(offset).Find(&rows).Error; errFind != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "list webhook events failed"})
		return
	}

	out := make([]gin.H, 0, len(rows))
	for _, row := range rows {
		out = append(out, gin.H{
			"event_id":    row.EventID,
			"event_type":  row.EventType,
			"payload":     row.Payload,
			"outcome":     row.Outcome,
			"error":       row.Error,
			"received_at": row.ReceivedAt,
		})
	}
	c.JSON(http.StatusOK, gin.H{"total": total, "events": out})
}
