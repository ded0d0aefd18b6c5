package models

import "time"

// Subscription plan names. Plans are open-ended strings in the database;
// these are the tiers seeded by default.
const (
	// PlanFree is the default tier for users without a subscription row.
	PlanFree = "free"
	// PlanStarter is the entry paid tier.
	PlanStarter = "starter"
	// PlanPro is the standard paid tier.
	PlanPro = "pro"
	// PlanEnterprise is the top tier.
	PlanEnterprise = "enterprise"
)

// Subscription status values.
const (
	// SubscriptionStatusActive marks a subscription in good standing.
	SubscriptionStatusActive = "active"
	// SubscriptionStatusPastDue marks a subscription with a failed renewal.
	SubscriptionStatusPastDue = "past_due"
	// SubscriptionStatusCancelled marks a cancelled subscription.
	SubscriptionStatusCancelled = "cancelled"
)

// Subscription maps an identity-provider user to their active plan.
// User accounts themselves live in the identity provider; this table only
// carries the billing relationship.
type Subscription struct {
	ID uint64 `gorm:"primaryKey;autoIncrement"` // Primary key.

	UserID string `gorm:"type:text;not null;uniqueIndex"`    // Identity provider user ID.
	Plan   string `gorm:"type:text;not null"`                // Active plan name.
	Status string `gorm:"type:text;not null;default:active"` // Subscription status.

	CreatedAt time.Time `gorm:"not null;autoCreateTime"` // Creation timestamp.
	UpdatedAt time.Time `gorm:"not null;autoUpdateTime"` // Last update timestamp.
}
