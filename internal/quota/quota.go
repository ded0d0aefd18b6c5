package quota

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/reelcraft/reelcraft-server/internal/models"
	log "github.com/sirupsen/logrus"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var (
	// ErrQuotaExceeded indicates the caller's monthly allowance is spent.
	ErrQuotaExceeded = errors.New("monthly quota exceeded")
	// ErrUpstreamUnavailable indicates the usage store could not be read.
	ErrUpstreamUnavailable = errors.New("quota: usage store unavailable")
)

// Decision is the outcome of a quota admission check. Remaining is not
// clamped at zero; only Allowed is authoritative and display layers clamp
// independently. Remaining and Limit are -1 when the plan is unlimited or
// has no limits configuration.
type Decision struct {
	Allowed   bool
	Remaining int
	Limit     int
}

// unlimitedDecision admits without metering.
var unlimitedDecision = Decision{Allowed: true, Remaining: models.UnlimitedQuota, Limit: models.UnlimitedQuota}

// Service enforces per-plan monthly usage limits backed by the database.
type Service struct {
	db    *gorm.DB
	nowFn func() time.Time
}

// NewService constructs a Service. nowFn defaults to time.Now.
func NewService(db *gorm.DB, nowFn func() time.Time) *Service {
	if nowFn == nil {
		nowFn = time.Now
	}
	return &Service{db: db, nowFn: nowFn}
}

// MonthStart truncates a time to the first day of its month in UTC. The
// same helper backs the check and increment paths; the bucket keys must
// match exactly or the counter silently desyncs.
func MonthStart(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, time.UTC)
}

// CheckLimit decides whether the user may perform one more action of the
// given kind this month. Two deliberately opposite failure directions:
//   - no limits configuration for the plan fails OPEN (misconfiguration
//     must not outage the product, at the cost of unmetered usage);
//   - an unreachable usage store fails CLOSED (unreachable infra must not
//     silently allow unmetered spend).
func (s *Service) CheckLimit(ctx context.Context, userID string, plan string, kind models.ResourceKind) (Decision, error) {
	if s == nil || s.db == nil {
		return Decision{}, ErrUpstreamUnavailable
	}
	if !kind.Valid() {
		return Decision{}, fmt.Errorf("quota: unknown resource kind %q", kind)
	}

	var limits models.PlanLimit
	errLimits := s.db.WithContext(ctx).Where("plan = ?", plan).Take(&limits).Error
	if errLimits != nil {
		if !errors.Is(errLimits, gorm.ErrRecordNotFound) {
			log.WithError(errLimits).WithField("plan", plan).Warn("quota: plan limits lookup failed, failing open")
		}
		return unlimitedDecision, nil
	}

	limit := limits.LimitFor(kind)
	if limit == models.UnlimitedQuota {
		return unlimitedDecision, nil
	}

	used, errUsage := s.currentMonthUsage(ctx, userID, kind)
	if errUsage != nil {
		return Decision{Allowed: false, Remaining: 0, Limit: 0}, ErrUpstreamUnavailable
	}

	remaining := limit - used
	return Decision{Allowed: remaining > 0, Remaining: remaining, Limit: limit}, nil
}

// Increment adds one successful action to the user's current-month counter.
// The add is pushed down to the store as a single conditional upsert so two
// concurrent requests can never both read-modify-write the same bucket.
func (s *Service) Increment(ctx context.Context, userID string, kind models.ResourceKind) error {
	if s == nil || s.db == nil {
		return ErrUpstreamUnavailable
	}
	column := models.UsageColumnFor(kind)
	if column == "" {
		return fmt.Errorf("quota: unknown resource kind %q", kind)
	}

	now := s.nowFn().UTC()
	row := models.Usage{
		UserID:      userID,
		PeriodStart: MonthStart(now),
	}
	switch kind {
	case models.ResourceScript:
		row.ScriptsGenerated = 1
	case models.ResourceImage:
		row.ImagesGenerated = 1
	case models.ResourceVideo:
		row.VideosGenerated = 1
	case models.ResourceDescription:
		row.DescriptionsGenerated = 1
	}

	if errUpsert := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "user_id"}, {Name: "period_start"}},
		DoUpdates: clause.Assignments(map[string]any{
			column:       gorm.Expr(column + " + 1"),
			"updated_at": now,
		}),
	}).Create(&row).Error; errUpsert != nil {
		return fmt.Errorf("quota: increment %s for %s: %w", kind, userID, errUpsert)
	}
	return nil
}

// CurrentUsage loads the user's counters for the current month. A missing
// row means zero usage for every kind.
func (s *Service) CurrentUsage(ctx context.Context, userID string) (models.Usage, error) {
	if s == nil || s.db == nil {
		return models.Usage{}, ErrUpstreamUnavailable
	}
	period := MonthStart(s.nowFn())
	var row models.Usage
	errFind := s.db.WithContext(ctx).
		Where("user_id = ? AND period_start = ?", userID, period).
		Take(&row).Error
	if errFind != nil {
		if errors.Is(errFind, gorm.ErrRecordNotFound) {
			return models.Usage{UserID: userID, PeriodStart: period}, nil
		}
		return models.Usage{}, ErrUpstreamUnavailable
	}
	return row, nil
}

// PlanLimits loads the limits row for a plan. The boolean is false when no
// configuration exists.
func (s *Service) PlanLimits(ctx context.Context, plan string) (models.PlanLimit, bool, error) {
	if s == nil || s.db == nil {
		return models.PlanLimit{}, false, ErrUpstreamUnavailable
	}
	var limits models.PlanLimit
	errFind := s.db.WithContext(ctx).Where("plan = ?", plan).Take(&limits).Error
	if errFind != nil {
		if errors.Is(errFind, gorm.ErrRecordNotFound) {
			return models.PlanLimit{}, false, nil
		}
		return models.PlanLimit{}, false, ErrUpstreamUnavailable
	}
	return limits, true, nil
}

func (s *Service) currentMonthUsage(ctx context.Context, userID string, kind models.ResourceKind) (int, error) {
	period := MonthStart(s.nowFn())
	var row models.Usage
	errFind := s.db.WithContext(ctx).
		Where("user_id = ? AND period_start = ?", userID, period).
		Take(&row).Error
	if errFind != nil {
		if errors.Is(errFind, gorm.ErrRecordNotFound) {
			return 0, nil
		}
		return 0, errFind
	}
	return row.CountFor(kind), nil
}
