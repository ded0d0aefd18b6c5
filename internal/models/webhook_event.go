package models

import (
	"time"

	"gorm.io/datatypes"
)

// Webhook event outcome values.
const (
	// WebhookOutcomeProcessed marks an event whose handler ran successfully.
	WebhookOutcomeProcessed = "processed"
	// WebhookOutcomeIgnored marks an event acknowledged without a handler.
	WebhookOutcomeIgnored = "ignored"
	// WebhookOutcomeFailed marks an event whose handler returned an error.
	WebhookOutcomeFailed = "failed"
)

// WebhookEvent is the stored envelope of a received payment-provider event,
// kept as an audit trail alongside the outcome of its dispatch.
type WebhookEvent struct {
	ID uint64 `gorm:"primaryKey;autoIncrement"` // Primary key.

	EventID   string         `gorm:"type:text;not null;uniqueIndex"` // Server-assigned event UUID.
	EventType string         `gorm:"type:text;not null;index"`       // Provider event type tag.
	Payload   datatypes.JSON `gorm:"type:text"`                      // Raw event data object.

	Outcome string `gorm:"type:text;not null"` // processed, ignored, or failed.
	Error   string `gorm:"type:text"`          // Handler error, if any.

	ReceivedAt time.Time `gorm:"not null;index"` // Receipt timestamp, UTC.
}
