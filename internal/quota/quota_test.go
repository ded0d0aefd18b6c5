package quota

import (
	"context"
	"testing"
	"time"

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
	if errMigrate := conn.AutoMigrate(&models.PlanLimit{}, &models.Usage{}); errMigrate != nil {
		t.Fatalf("migrate: %v", errMigrate)
	}
	return conn
}

func seedPlan(t *testing.T, conn *gorm.DB, limits models.PlanLimit) {
	t.Helper()
	if errCreate := conn.Create(&limits).Error; errCreate != nil {
		t.Fatalf("seed plan limits: %v", errCreate)
	}
}

func fixedNow() time.Time {
	return time.Date(2026, 3, 15, 10, 30, 0, 0, time.UTC)
}

func TestMonthStart(t *testing.T) {
	got := MonthStart(time.Date(2026, 3, 31, 23, 59, 59, 0, time.FixedZone("X", 3600)))
	want := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	if !got.Equal(want) {
		t.Fatalf("expected %s, got %s", want, got)
	}
}

func TestCheckLimitUnlimitedSentinel(t *testing.T) {
	conn := openTestDB(t)
	seedPlan(t, conn, models.PlanLimit{Plan: "enterprise", ScriptsPerMonth: models.UnlimitedQuota})
	svc := NewService(conn, fixedNow)

	// Recorded usage must not matter for unlimited plans.
	for i := 0; i < 3; i++ {
		if errInc := svc.Increment(context.Background(), "user-1", models.ResourceScript); errInc != nil {
			t.Fatalf("increment: %v", errInc)
		}
	}

	decision, err := svc.CheckLimit(context.Background(), "user-1", "enterprise", models.ResourceScript)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if !decision.Allowed || decision.Remaining != -1 || decision.Limit != -1 {
		t.Fatalf("expected unlimited decision, got %+v", decision)
	}
}

func TestCheckLimitFailsOpenWithoutConfiguration(t *testing.T) {
	conn := openTestDB(t)
	svc := NewService(conn, fixedNow)

	decision, err := svc.CheckLimit(context.Background(), "user-1", "unknown-plan", models.ResourceImage)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if !decision.Allowed || decision.Remaining != -1 || decision.Limit != -1 {
		t.Fatalf("expected fail-open decision, got %+v", decision)
	}
}

func TestCheckLimitBoundary(t *testing.T) {
	conn := openTestDB(t)
	seedPlan(t, conn, models.PlanLimit{Plan: "free", ScriptsPerMonth: 2})
	svc := NewService(conn, fixedNow)

	decision, err := svc.CheckLimit(context.Background(), "user-1", "free", models.ResourceScript)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if !decision.Allowed || decision.Remaining != 2 {
		t.Fatalf("expected allowed with remaining=2, got %+v", decision)
	}

	for i := 0; i < 2; i++ {
		if errInc := svc.Increment(context.Background(), "user-1", models.ResourceScript); errInc != nil {
			t.Fatalf("increment: %v", errInc)
		}
	}

	// Usage == limit is the exact rejection boundary.
	decision, err = svc.CheckLimit(context.Background(), "user-1", "free", models.ResourceScript)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if decision.Allowed {
		t.Fatalf("expected rejection at the boundary, got %+v", decision)
	}
	if decision.Remaining != 0 || decision.Limit != 2 {
		t.Fatalf("expected remaining=0 limit=2, got %+v", decision)
	}
}

func TestCheckLimitIdempotentWithoutIncrement(t *testing.T) {
	conn := openTestDB(t)
	seedPlan(t, conn, models.PlanLimit{Plan: "free", ImagesPerMonth: 3})
	svc := NewService(conn, fixedNow)

	var first Decision
	for i := 0; i < 5; i++ {
		decision, err := svc.CheckLimit(context.Background(), "user-1", "free", models.ResourceImage)
		if err != nil {
			t.Fatalf("check %d: %v", i+1, err)
		}
		if i == 0 {
			first = decision
			continue
		}
		if decision != first {
			t.Fatalf("check %d changed the decision: %+v vs %+v", i+1, decision, first)
		}
	}
}

func TestIncrementIsolatesKindsAndUsers(t *testing.T) {
	conn := openTestDB(t)
	seedPlan(t, conn, models.PlanLimit{Plan: "free", ScriptsPerMonth: 10, ImagesPerMonth: 10})
	svc := NewService(conn, fixedNow)

	if errInc := svc.Increment(context.Background(), "user-1", models.ResourceScript); errInc != nil {
		t.Fatalf("increment: %v", errInc)
	}
	if errInc := svc.Increment(context.Background(), "user-1", models.ResourceImage); errInc != nil {
		t.Fatalf("increment: %v", errInc)
	}
	if errInc := svc.Increment(context.Background(), "user-2", models.ResourceScript); errInc != nil {
		t.Fatalf("increment: %v", errInc)
	}

	usage, err := svc.CurrentUsage(context.Background(), "user-1")
	if err != nil {
		t.Fatalf("current usage: %v", err)
	}
	if usage.ScriptsGenerated != 1 || usage.ImagesGenerated != 1 || usage.VideosGenerated != 0 {
		t.Fatalf("unexpected counters: %+v", usage)
	}

	other, err := svc.CurrentUsage(context.Background(), "user-2")
	if err != nil {
		t.Fatalf("current usage: %v", err)
	}
	if other.ScriptsGenerated != 1 || other.ImagesGenerated != 0 {
		t.Fatalf("unexpected counters for user-2: %+v", other)
	}
}

func TestIncrementRollsOverByMonth(t *testing.T) {
	conn := openTestDB(t)
	seedPlan(t, conn, models.PlanLimit{Plan: "free", ScriptsPerMonth: 1})

	march := NewService(conn, fixedNow)
	if errInc := march.Increment(context.Background(), "user-1", models.ResourceScript); errInc != nil {
		t.Fatalf("increment: %v", errInc)
	}
	decision, err := march.CheckLimit(context.Background(), "user-1", "free", models.ResourceScript)
	if err != nil {
		t.Fatalf("check: %v", err)
	}
	if decision.Allowed {
		t.Fatalf("expected march allowance spent, got %+v", decision)
	}

	// The same user gets a fresh bucket in April without any reset step.
	april := NewService(conn, func() time.Time { return time.Date(2026, 4, 1, 0, 0, 1, 0, time.UTC) })
	decision, err = april.CheckLimit(context.Background(), "user-1", "free", models.ResourceScript)
	if err != nil {
		t.Fatalf("check: %v", err)
	}
	if !decision.Allowed || decision.Remaining != 1 {
		t.Fatalf("expected fresh april bucket, got %+v", decision)
	}
}

func TestIncrementConcurrentUpserts(t *testing.T) {
	conn := openTestDB(t)
	seedPlan(t, conn, models.PlanLimit{Plan: "free", ScriptsPerMonth: 100})
	svc := NewService(conn, fixedNow)

	const calls = 20
	done := make(chan error, calls)
	for i := 0; i < calls; i++ {
		go func() {
			done <- svc.Increment(context.Background(), "user-1", models.ResourceScript)
		}()
	}
	for i := 0; i < calls; i++ {
		if errInc := <-done; errInc != nil {
			t.Fatalf("concurrent increment: %v", errInc)
		}
	}

	usage, err := svc.CurrentUsage(context.Background(), "user-1")
	if err != nil {
		t.Fatalf("current usage: %v", err)
	}
	if usage.ScriptsGenerated != calls {
		t.Fatalf("expected %d scripts, got %d (lost updates)", calls, usage.ScriptsGenerated)
	}
}
