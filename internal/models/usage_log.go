package models

import (
	"time"

	"gorm.io/datatypes"
)

// UsageLog is an append-only record of a provider call, written for billing
// reconciliation. Rows are never mutated or read back by the server.
type UsageLog struct {
	ID uint64 `gorm:"primaryKey;autoIncrement"` // Primary key.

	UserID    string `gorm:"type:text;not null;index"` // Identity provider user ID.
	UserEmail string `gorm:"type:text"`                // Email at time of call, if known.

	Feature string `gorm:"type:text;not null"` // Resource kind that triggered the call.
	Model   string `gorm:"type:text;not null"` // Provider model identifier.

	InputTokens  int `gorm:"not null;default:0"` // Prompt tokens reported by the provider.
	OutputTokens int `gorm:"not null;default:0"` // Completion tokens reported by the provider.
	TotalTokens  int `gorm:"not null;default:0"` // Sum, precomputed for analytics.

	EstimatedCostUSD float64 `gorm:"type:decimal(12,6);not null;default:0"` // Estimated cost in USD.

	// No column default on Success: gorm omits zero-valued fields that carry a
	// default tag on insert, which would flip failed calls to true.
	Success      bool   `gorm:"not null"`  // Whether the provider call succeeded.
	ErrorMessage string `gorm:"type:text"` // Provider error, if any.

	Metadata datatypes.JSON `gorm:"type:text"` // Free-form call metadata.

	Timestamp time.Time `gorm:"not null;index"` // Time of the provider call, UTC.
}

// TableName keeps the analytics-facing table name.
func (UsageLog) TableName() string { return "api_usage_logs" }
