package handlers

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	dbutil "github.com/reelcraft/reelcraft-server/internal/db"
	"github.com/reelcraft/reelcraft-server/internal/models"
	"gorm.io/gorm"
)

// UsageLogHandler exposes the provider-call ledger for billing review.
type UsageLogHandler struct {
	db *gorm.DB
}

// NewUsageLogHandler constructs a UsageLogHandler.
func NewUsageLogHandler(db *gorm.DB) *UsageLogHandler {
	return &UsageLogHandler{db: db}
}

const (
	defaultLogPageSize = 50
	maxLogPageSize     = 500
)

// List returns ledger rows newest first, with optional filters and paging.
func (h *UsageLogHandler) List(c *gin.Context) {
	var (
		userQ    = strings.TrimSpace(c.Query("user_id"))
		emailQ   = strings.TrimSpace(c.Query("email"))
		featureQ = strings.TrimSpace(c.Query("feature"))
		modelQ   = strings.TrimSpace(c.Query("model"))
		sinceQ   = strings.TrimSpace(c.Query("since"))
		untilQ   = strings.TrimSpace(c.Query("until"))
	)

	q := h.db.WithContext(c.Request.Context()).Model(&models.UsageLog{})
	if userQ != "" {
		q = q.Where("user_id = ?", userQ)
	}
	if emailQ != "" {
		pattern := dbutil.NormalizeLikePattern(h.db, "%"+emailQ+"%")
		q = q.Where(dbutil.CaseInsensitiveLikeExpr(h.db, "user_email"), pattern)
	}
	if featureQ != "" {
		q = q.Where("feature = ?", strings.ToLower(featureQ))
	}
	if modelQ != "" {
		pattern := dbutil.NormalizeLikePattern(h.db, "%"+modelQ+"%")
		q = q.Where(dbutil.CaseInsensitiveLikeExpr(h.db, "model"), pattern)
	}
	if since, errParse := time.Parse(time.RFC3339, sinceQ); sinceQ != "" && errParse == nil {
		q = q.Where("timestamp >= ?", since.UTC())
	}
	if until, errParse := time.Parse(time.RFC3339, untilQ); untilQ != "" && errParse == nil {
		q = q.Where("timestamp < ?", until.UTC())
	}

	var total int64
	if errCount := q.Count(&total).Error; errCount != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "count usage logs failed"})
		return
	}

	limit, offset := pageParams(c)
	var rows []models.UsageLog
	if errFind := q.Order("timestamp DESC").Limit(limit).Offset(offset).Find(&rows).Error; errFind != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "list usage logs failed"})
		return
	}

	out := make([]gin.H, 0, len(rows))
	for _, row := range rows {
		out = append(out, gin.H{
			"id":                 row.ID,
			"user_id":            row.UserID,
			"user_email":         row.UserEmail,
			"feature":            row.Feature,
			"model":              row.Model,
			"input_tokens":       row.InputTokens,
			"output_tokens":      row.OutputTokens,
			"total_tokens":       row.TotalTokens,
			"estimated_cost_usd": row.EstimatedCostUSD,
			"success":            row.Success,
			"error_message":      row.ErrorMessage,
			"metadata":           row.Metadata,
			"timestamp":          row.Timestamp,
		})
	}
	c.JSON(http.StatusOK, gin.H{"total": total, "logs": out})
}

// pageParams reads limit/offset query parameters with bounds applied.
func pageParams(c *gin.Context) (limit, offset int) {
	limit = defaultLogPageSize
	if raw := strings.TrimSpace(c.Query("limit")); raw != "" {
		if parsed, errParse := strconv.Atoi(raw); errParse == nil && parsed > 0 {
			limit = parsed
		}
	}
	if limit > maxLogPageSize {
		limit = maxLogPageSize
	}
	if raw := strings.TrimSpace(c.Query("offset")); raw != "" {
		if parsed, errParse := strconv.Atoi(raw); errParse == nil && parsed > 0 {
			offset = parsed
		}
	}
	return limit, offset
}
