package models

import (
	"time"

	"gorm.io/datatypes"
)

// Setting is a key/value configuration row with a JSON-encoded value.
type Setting struct {
	ID uint64 `gorm:"primaryKey;autoIncrement"` // Primary key.

	// Value uses a text column: sqlite gives JSON/JSONB declared types NUMERIC
	// affinity, so bare numbers like 50 would round-trip as int64 and fail the
	// datatypes.JSON scan.
	Key   string         `gorm:"type:text;not null;uniqueIndex"` // Config key.
	Value datatypes.JSON `gorm:"type:text"`                      // JSON-encoded value.

	CreatedAt time.Time `gorm:"not null;autoCreateTime"` // Creation timestamp.
	UpdatedAt time.Time `gorm:"not null;autoUpdateTime"` // Last update timestamp.
}
