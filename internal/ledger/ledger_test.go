package ledger

import (
	"context"
	"math"
	"testing"

	"github.com/glebarez/sqlite"
	"github.com/reelcraft/reelcraft-server/internal/models"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func openTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	conn, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	// In-memory sqlite is per-connection; pin the pool to one.
	sqlDB, errDB := conn.DB()
	if errDB != nil {
		t.Fatalf("access pool: %v", errDB)
	}
	sqlDB.SetMaxOpenConns(1)
	if errMigrate := conn.AutoMigrate(&models.UsageLog{}); errMigrate != nil {
		t.Fatalf("migrate: %v", errMigrate)
	}
	return conn
}

func almostEqual(a, b float64) bool {
	return math.Abs(a-b) < 1e-9
}

func TestEstimateCostTokenModel(t *testing.T) {
	// 1M input tokens at $2.00/M, zero output.
	if cost := EstimateCost("grok-2-latest", 1_000_000, 0, 0); !almostEqual(cost, 2.00) {
		t.Fatalf("expected 2.00, got %f", cost)
	}
	// Mixed input and output.
	if cost := EstimateCost("grok-2-latest", 500_000, 100_000, 0); !almostEqual(cost, 1.00+1.00) {
		t.Fatalf("expected 2.00, got %f", cost)
	}
}

func TestEstimateCostPerUnitIgnoresTokens(t *testing.T) {
	if cost := EstimateCost("gemini-2.0-flash-image", 123456, 654321, 0); !almostEqual(cost, 0.02) {
		t.Fatalf("expected 0.02 regardless of tokens, got %f", cost)
	}
}

func TestEstimateCostPerSecondDefaultDuration(t *testing.T) {
	// No duration supplied: default 5 seconds at $0.07/s.
	if cost := EstimateCost("veo-3.0-fast", 0, 0, 0); !almostEqual(cost, 0.35) {
		t.Fatalf("expected 0.35, got %f", cost)
	}
	if cost := EstimateCost("veo-3.0-fast", 0, 0, 10); !almostEqual(cost, 0.70) {
		t.Fatalf("expected 0.70, got %f", cost)
	}
}

func TestEstimateCostUnknownModel(t *testing.T) {
	if cost := EstimateCost("mystery-model", 1_000_000, 1_000_000, 60); cost != 0 {
		t.Fatalf("expected zero cost for unknown model, got %f", cost)
	}
}

func TestRecordPersistsRow(t *testing.T) {
	conn := openTestDB(t)
	ledger := NewLedger(conn)

	ledger.Record(context.Background(), Entry{
		UserID:       "user-1",
		UserEmail:    "user@example.com",
		Feature:      models.ResourceScript,
		Model:        "grok-2-latest",
		InputTokens:  1_000_000,
		OutputTokens: 0,
		Success:      true,
		Metadata:     map[string]any{"prompt_kind": "hook"},
	})

	var row models.UsageLog
	if errFind := conn.Take(&row).Error; errFind != nil {
		t.Fatalf("expected a persisted row, got %v", errFind)
	}
	if row.UserID != "user-1" || row.Feature != "script" || row.Model != "grok-2-latest" {
		t.Fatalf("unexpected row: %+v", row)
	}
	if !almostEqual(row.EstimatedCostUSD, 2.00) {
		t.Fatalf("expected cost 2.00, got %f", row.EstimatedCostUSD)
	}
	if row.TotalTokens != 1_000_000 {
		t.Fatalf("expected total tokens precomputed, got %d", row.TotalTokens)
	}
	if row.Timestamp.IsZero() {
		t.Fatal("expected timestamp defaulted")
	}
}

func TestRecordUsesMetadataDuration(t *testing.T) {
	conn := openTestDB(t)
	ledger := NewLedger(conn)

	ledger.Record(context.Background(), Entry{
		UserID:   "user-1",
		Feature:  models.ResourceVideo,
		Model:    "veo-3.0-fast",
		Success:  true,
		Metadata: map[string]any{"duration_seconds": 8.0},
	})

	var row models.UsageLog
	if errFind := conn.Take(&row).Error; errFind != nil {
		t.Fatalf("expected a persisted row, got %v", errFind)
	}
	if !almostEqual(row.EstimatedCostUSD, 0.56) {
		t.Fatalf("expected cost 0.56, got %f", row.EstimatedCostUSD)
	}
}

func TestRecordAbsorbsWriteFailure(t *testing.T) {
	conn := openTestDB(t)
	// Dropping the table makes every insert fail.
	if errDrop := conn.Migrator().DropTable(&models.UsageLog{}); errDrop != nil {
		t.Fatalf("drop table: %v", errDrop)
	}
	ledger := NewLedger(conn)

	// Must not panic or return anything; the caller cannot observe it.
	ledger.Record(context.Background(), Entry{UserID: "user-1", Feature: models.ResourceScript, Model: "grok-2-latest"})
}
