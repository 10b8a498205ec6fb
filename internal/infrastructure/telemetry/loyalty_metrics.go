package telemetry

import (
	"context"
	"errors"

	"github.com/qualee/backend/internal/domain/loyalty"
	"github.com/qualee/backend/internal/domain/shared"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.uber.org/zap"
)

// ErrMeterNil is returned when no meter is supplied.
var ErrMeterNil = errors.New("telemetry: meter cannot be nil")

// LoyaltyMetrics counts committed loyalty activity. It subscribes to the
// event bus so that only committed changes are counted.
type LoyaltyMetrics struct {
	logger *zap.Logger

	accountsCreated     *Counter
	pointsAwarded       *Counter
	pointsRedeemed      *Counter
	pointsPerEntry      *Histogram
	redemptionsIssued   *Counter
	redemptionsResolved *Counter
	notificationsFailed *Counter
}

// NewLoyaltyMetrics registers the loyalty instruments on meter.
func NewLoyaltyMetrics(meter metric.Meter, logger *zap.Logger) (*LoyaltyMetrics, error) {
	if meter == nil {
		return nil, ErrMeterNil
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	m := &LoyaltyMetrics{logger: logger}
	var err error
	if m.accountsCreated, err = NewCounter(meter, "loyalty_accounts_created_total", "Loyalty accounts created", "{account}"); err != nil {
		return nil, err
	}
	if m.pointsAwarded, err = NewCounter(meter, "loyalty_points_awarded_total", "Points credited to client balances", "{point}"); err != nil {
		return nil, err
	}
	if m.pointsRedeemed, err = NewCounter(meter, "loyalty_points_redeemed_total", "Points debited from client balances", "{point}"); err != nil {
		return nil, err
	}
	if m.pointsPerEntry, err = NewHistogram(meter, "loyalty_points_per_entry", "Absolute points moved by one ledger entry", "{point}", PointsBuckets...); err != nil {
		return nil, err
	}
	if m.redemptionsIssued, err = NewCounter(meter, "loyalty_redemptions_issued_total", "Redemption codes issued", "{redemption}"); err != nil {
		return nil, err
	}
	if m.redemptionsResolved, err = NewCounter(meter, "loyalty_redemptions_resolved_total", "Redemption codes used or cancelled", "{redemption}"); err != nil {
		return nil, err
	}
	if m.notificationsFailed, err = NewCounter(meter, "loyalty_notifications_failed_total", "Notifications dropped or not delivered", "{message}"); err != nil {
		return nil, err
	}
	return m, nil
}

// EventTypes implements shared.EventHandler
func (m *LoyaltyMetrics) EventTypes() []string {
	return []string{
		loyalty.EventTypeAccountCreated,
		loyalty.EventTypePointsApplied,
		loyalty.EventTypeRewardRedeemed,
		loyalty.EventTypeRedemptionResolved,
	}
}

// Handle records the event. It never fails.
func (m *LoyaltyMetrics) Handle(ctx context.Context, ev shared.DomainEvent) error {
	merchant := AttrMerchantID.String(ev.MerchantID().String())

	switch e := ev.(type) {
	case *loyalty.AccountCreatedEvent:
		m.accountsCreated.Inc(ctx, merchant)
		if e.WelcomePoints > 0 {
			m.pointsAwarded.Add(ctx, e.WelcomePoints, merchant, AttrEntryType.String(string(loyalty.EntryTypeWelcome)))
		}
	case *loyalty.PointsAppliedEvent:
		m.recordDelta(ctx, e.PointsDelta, string(e.EntryType), merchant)
	case *loyalty.RewardRedeemedEvent:
		m.redemptionsIssued.Inc(ctx, merchant)
		m.recordDelta(ctx, -e.PointsSpent, string(loyalty.EntryTypeRedeem), merchant)
	case *loyalty.RedemptionResolvedEvent:
		m.redemptionsResolved.Inc(ctx, merchant, AttrAction.String(string(e.Action)))
		if e.RefundedPoints > 0 {
			m.recordDelta(ctx, e.RefundedPoints, string(loyalty.EntryTypeAdjustment), merchant)
		}
	default:
		m.logger.Debug("metrics ignoring event", zap.String("event_type", ev.EventType()))
	}
	return nil
}

func (m *LoyaltyMetrics) recordDelta(ctx context.Context, delta int64, entryType string, merchant attribute.KeyValue) {
	attrs := []attribute.KeyValue{merchant, AttrEntryType.String(entryType)}
	switch {
	case delta > 0:
		m.pointsAwarded.Add(ctx, delta, attrs...)
		m.pointsPerEntry.Observe(ctx, delta, attrs...)
	case delta < 0:
		m.pointsRedeemed.Add(ctx, -delta, attrs...)
		m.pointsPerEntry.Observe(ctx, -delta, attrs...)
	}
}

// RecordNotificationFailure counts a dropped or failed notification.
func (m *LoyaltyMetrics) RecordNotificationFailure(kind, reason string) {
	m.notificationsFailed.Inc(context.Background(), AttrKind.String(kind), AttrReason.String(reason))
}

var _ shared.EventHandler = (*LoyaltyMetrics)(nil)
