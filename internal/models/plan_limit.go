package models

import "time"

// UnlimitedQuota is the sentinel limit value meaning "no monthly cap".
// It is a marker, not a large number; quota checks must short-circuit on it.
const UnlimitedQuota = -1

// PlanLimit is the monthly allowance configuration for a plan.
// Reference data, looked up per request and mutated only by admins.
type PlanLimit struct {
	ID uint64 `gorm:"primaryKey;autoIncrement"` // Primary key.

	Plan string `gorm:"type:text;not null;uniqueIndex"` // Plan name.

	ScriptsPerMonth      int `gorm:"not null;default:0"` // Monthly script cap, -1 = unlimited.
	ImagesPerMonth       int `gorm:"not null;default:0"` // Monthly image cap, -1 = unlimited.
	VideosPerMonth       int `gorm:"not null;default:0"` // Monthly video cap, -1 = unlimited.
	DescriptionsPerMonth int `gorm:"not null;default:0"` // Monthly description cap, -1 = unlimited.

	RateLimit int `gorm:"not null;default:0"` // Requests per window override, 0 = use default.

	CreatedAt time.Time `gorm:"not null;autoCreateTime"` // Creation timestamp.
	UpdatedAt time.Time `gorm:"not null;autoUpdateTime"` // Last update timestamp.
}

// LimitFor returns the monthly cap for the given resource kind.
func (p PlanLimit) LimitFor(kind ResourceKind) int {
	switch kind {
	case ResourceScript:
		return p.ScriptsPerMonth
	case ResourceImage:
		return p.ImagesPerMonth
	case ResourceVideo:
		return p.VideosPerMonth
	case ResourceDescription:
		return p.DescriptionsPerMonth
	default:
		return 0
	}
}
