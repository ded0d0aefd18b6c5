package models

import "time"

// Usage is the per-user, per-calendar-month counter row.
// Rows are created implicitly on first use of a month (upsert) and roll
// over naturally as PeriodStart changes; nothing deletes them.
type Usage struct {
	ID uint64 `gorm:"primaryKey;autoIncrement"` // Primary key.

	UserID      string    `gorm:"type:text;not null;uniqueIndex:idx_usage_user_period"` // Identity provider user ID.
	PeriodStart time.Time `gorm:"not null;uniqueIndex:idx_usage_user_period"`           // First day of the month, UTC.

	ScriptsGenerated      int `gorm:"not null;default:0"` // Scripts generated this period.
	ImagesGenerated       int `gorm:"not null;default:0"` // Images generated this period.
	VideosGenerated       int `gorm:"not null;default:0"` // Videos generated this period.
	DescriptionsGenerated int `gorm:"not null;default:0"` // Descriptions generated this period.

	CreatedAt time.Time `gorm:"not null;autoCreateTime"` // Creation timestamp.
	UpdatedAt time.Time `gorm:"not null;autoUpdateTime"` // Last update timestamp.
}

// CountFor returns the counter value for the given resource kind.
func (u Usage) CountFor(kind ResourceKind) int {
	switch kind {
	case ResourceScript:
		return u.ScriptsGenerated
	case ResourceImage:
		return u.ImagesGenerated
	case ResourceVideo:
		return u.VideosGenerated
	case ResourceDescription:
		return u.DescriptionsGenerated
	default:
		return 0
	}
}

// UsageColumnFor returns the usage table column backing a resource kind.
func UsageColumnFor(kind ResourceKind) string {
	switch kind {
	case ResourceScript:
		return "scripts_generated"
	case ResourceImage:
		return "images_generated"
	case ResourceVideo:
		return "videos_generated"
	case ResourceDescription:
		return "descriptions_generated"
	default:
		return ""
	}
}
