package ledger

import (
	"context"
	"encoding/json"
	"time"

	"github.com/reelcraft/reelcraft-server/internal/models"
	log "github.com/sirupsen/logrus"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// writeTimeout bounds the ledger write independently of the request; the
// record should land even when the surrounding request was already
// answered or aborted.
const writeTimeout = 5 * time.Second

// Entry describes one provider call to be recorded.
type Entry struct {
	UserID       string
	UserEmail    string
	Feature      models.ResourceKind
	Model        string
	InputTokens  int
	OutputTokens int
	Success      bool
	Error        string
	Metadata     map[string]any
	Timestamp    time.Time
}

// Ledger appends provider-call records with estimated costs for billing
// reconciliation. Write-only; nothing in the server reads these rows back.
type Ledger struct {
	db *gorm.DB
}

// NewLedger constructs a Ledger.
func NewLedger(db *gorm.DB) *Ledger { return &Ledger{db: db} }

// Record writes one usage log row. Fire-and-forget: every failure is
// absorbed and logged locally, never surfaced to the caller, because
// logging must never be the reason a user-facing request fails.
func (l *Ledger) Record(_ context.Context, entry Entry) {
	if l == nil || l.db == nil {
		return
	}

	dbCtx, cancel := context.WithTimeout(context.Background(), writeTimeout)
	defer cancel()

	var metadataJSON datatypes.JSON
	if len(entry.Metadata) > 0 {
		encoded, errMarshal := json.Marshal(entry.Metadata)
		if errMarshal != nil {
			log.WithError(errMarshal).Warn("ledger: drop unencodable metadata")
		} else {
			metadataJSON = encoded
		}
	}

	cost := EstimateCost(entry.Model, entry.InputTokens, entry.OutputTokens, durationFromMetadata(entry.Metadata))

	row := models.UsageLog{
		UserID:           entry.UserID,
		UserEmail:        entry.UserEmail,
		Feature:          string(entry.Feature),
		Model:            entry.Model,
		InputTokens:      entry.InputTokens,
		OutputTokens:     entry.OutputTokens,
		TotalTokens:      entry.InputTokens + entry.OutputTokens,
		EstimatedCostUSD: cost,
		Success:          entry.Success,
		ErrorMessage:     entry.Error,
		Metadata:         metadataJSON,
		Timestamp:        normalizeTime(entry.Timestamp),
	}

	if errCreate := l.db.WithContext(dbCtx).Create(&row).Error; errCreate != nil {
		log.WithError(errCreate).WithField("user_id", entry.UserID).Warn("ledger: failed to persist usage log")
	}
}

// durationFromMetadata extracts a duration-seconds hint for per-second
// priced models. Accepts numeric or numeric-string values.
func durationFromMetadata(metadata map[string]any) float64 {
	if metadata == nil {
		return 0
	}
	raw, ok := metadata["duration_seconds"]
	if !ok {
		return 0
	}
	switch v := raw.(type) {
	case float64:
		return v
	case int:
		return float64(v)
	case json.Number:
		parsed, errParse := v.Float64()
		if errParse != nil {
			return 0
		}
		return parsed
	default:
		return 0
	}
}

// normalizeTime returns a UTC timestamp, defaulting to now if zero.
func normalizeTime(t time.Time) time.Time {
	if t.IsZero() {
		return time.Now().UTC()
	}
	return t.UTC()
}
