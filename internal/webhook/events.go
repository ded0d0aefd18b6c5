package webhook

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/reelcraft/reelcraft-server/internal/models"
	log "github.com/sirupsen/logrus"
	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Payment provider event types. The set is closed for dispatch purposes,
// but unrecognized types are acknowledged rather than rejected so provider
// additions do not break the integration.
const (
	EventPaymentSucceeded      = "payment.succeeded"
	EventPaymentFailed         = "payment.failed"
	EventSubscriptionCreated   = "subscription.created"
	EventSubscriptionUpdated   = "subscription.updated"
	EventSubscriptionCancelled = "subscription.cancelled"
	EventSubscriptionPastDue   = "subscription.past_due"
	EventInvoicePaid           = "invoice.paid"
	EventInvoiceFailed         = "invoice.payment_failed"
	EventPlanCreated           = "plan.created"
	EventPlanUpdated           = "plan.updated"
)

// Event is the provider's webhook envelope.
type Event struct {
	Type      string          `json:"event_type"`
	Data      json.RawMessage `json:"data"`
	Timestamp string          `json:"timestamp"`
}

// subscriptionData maps the data object of subscription and payment events.
type subscriptionData struct {
	UserID string `json:"user_id"`
	Plan   string `json:"plan"`
	Status string `json:"status"`
}

// Dispatcher routes verified events to their handlers and keeps the
// webhook_events audit trail.
type Dispatcher struct {
	db *gorm.DB
}

// NewDispatcher constructs a Dispatcher.
func NewDispatcher(db *gorm.DB) *Dispatcher { return &Dispatcher{db: db} }

// Dispatch handles one verified event. The returned error is reserved for
// transient store failures: the HTTP layer maps it to a retryable status,
// while business-irrelevant events are acknowledged so the provider stops
// retrying them.
func (d *Dispatcher) Dispatch(ctx context.Context, event Event) error {
	if d == nil || d.db == nil {
		return fmt.Errorf("webhook: dispatcher not initialized")
	}

	outcome := models.WebhookOutcomeProcessed
	var handlerErr error

	switch event.Type {
	case EventPaymentSucceeded, EventSubscriptionCreated, EventSubscriptionUpdated:
		handlerErr = d.applySubscription(ctx, event, models.SubscriptionStatusActive)
	case EventPaymentFailed, EventSubscriptionPastDue:
		handlerErr = d.applySubscription(ctx, event, models.SubscriptionStatusPastDue)
	case EventSubscriptionCancelled:
		handlerErr = d.applySubscription(ctx, event, models.SubscriptionStatusCancelled)
	case EventInvoicePaid, EventInvoiceFailed, EventPlanCreated, EventPlanUpdated:
		// Recorded for the audit trail only; no local state to update.
	default:
		log.WithField("event_type", event.Type).Info("webhook: unhandled event type acknowledged")
		outcome = models.WebhookOutcomeIgnored
	}

	if handlerErr != nil {
		outcome = models.WebhookOutcomeFailed
	}
	d.persistEvent(ctx, event, outcome, handlerErr)
	return handlerErr
}

// applySubscription upserts the user's subscription row from the event
// data. Status transitions come from the event type, not the payload, so a
// replayed payload cannot resurrect a cancelled subscription with a stale
// status field.
func (d *Dispatcher) applySubscription(ctx context.Context, event Event, status string) error {
	var data subscriptionData
	if errUnmarshal := json.Unmarshal(event.Data, &data); errUnmarshal != nil {
		// Malformed data is not transient; acknowledge and log.
		log.WithError(errUnmarshal).WithField("event_type", event.Type).Warn("webhook: malformed event data")
		return nil
	}
	userID := strings.TrimSpace(data.UserID)
	if userID == "" {
		log.WithField("event_type", event.Type).Warn("webhook: event data missing user_id")
		return nil
	}

	plan := strings.TrimSpace(data.Plan)
	assignments := map[string]any{
		"status":     status,
		"updated_at": time.Now().UTC(),
	}
	row := models.Subscription{UserID: userID, Plan: plan, Status: status}
	if plan != "" {
		assignments["plan"] = plan
	} else {
		row.Plan = models.PlanFree
	}

	if errUpsert := d.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "user_id"}},
		DoUpdates: clause.Assignments(assignments),
	}).Create(&row).Error; errUpsert != nil {
		return fmt.Errorf("webhook: upsert subscription for %s: %w", userID, errUpsert)
	}
	return nil
}

// persistEvent appends the envelope and its outcome to the audit trail.
// Best-effort: an audit write failure never blocks the acknowledgement.
func (d *Dispatcher) persistEvent(ctx context.Context, event Event, outcome string, handlerErr error) {
	row := models.WebhookEvent{
		EventID:    uuid.NewString(),
		EventType:  event.Type,
		Payload:    datatypes.JSON(event.Data),
		Outcome:    outcome,
		ReceivedAt: time.Now().UTC(),
	}
	if handlerErr != nil {
		row.Error = handlerErr.Error()
	}
	if errCreate := d.db.WithContext(ctx).Create(&row).Error; errCreate != nil {
		log.WithError(errCreate).Warn("webhook: failed to persist event audit row")
	}
}
