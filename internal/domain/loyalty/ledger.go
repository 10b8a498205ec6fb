package loyalty

import (
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// EntryType is the kind of point-affecting event recorded in the ledger.
type EntryType string

const (
	EntryTypeWelcome    EntryType = "welcome"
	EntryTypeEarn       EntryType = "earn"
	EntryTypeRedeem     EntryType = "redeem"
	EntryTypeBonus      EntryType = "bonus"
	EntryTypeAdjustment EntryType = "adjustment"
)

// IsValid checks if the entry type is known
func (t EntryType) IsValid() bool {
	switch t {
	case EntryTypeWelcome, EntryTypeEarn, EntryTypeRedeem, EntryTypeBonus, EntryTypeAdjustment:
		return true
	}
	return false
}

// PointsAction is a caller-requested balance change.
type PointsAction string

const (
	ActionEarn       PointsAction = "earn"
	ActionBonus      PointsAction = "bonus"
	ActionAdjustment PointsAction = "adjustment"
	ActionRedeem     PointsAction = "redeem"
)

// ParsePointsAction validates an action name.
func ParsePointsAction(s string) (PointsAction, error) {
	a := PointsAction(strings.ToLower(strings.TrimSpace(s)))
	switch a {
	case ActionEarn, ActionBonus, ActionAdjustment, ActionRedeem:
		return a, nil
	}
	return "", ErrInvalidAction
}

// EntryType maps the action to the ledger entry it produces.
func (a PointsAction) EntryType() EntryType {
	return EntryType(a)
}

// LedgerEntry is an immutable record of one balance change.
type LedgerEntry struct {
	ID             uuid.UUID
	AccountID      uuid.UUID
	MerchantID     uuid.UUID
	Type           EntryType
	PointsDelta    int64
	BalanceAfter   int64
	PurchaseAmount *decimal.Decimal
	Description    string
	ReferenceID    string
	CreatedAt      time.Time
}

// NewLedgerEntry records delta against the account. balanceAfter must be the
// account balance once the delta is applied.
func NewLedgerEntry(account *Account, entryType EntryType, delta, balanceAfter int64, now time.Time) (*LedgerEntry, error) {
	if !entryType.IsValid() {
		return nil, ErrInvalidAction
	}
	if balanceAfter < 0 {
		return nil, NegativeBalance(balanceAfter - delta)
	}
	return &LedgerEntry{
		ID:           uuid.New(),
		AccountID:    account.ID,
		MerchantID:   account.MerchantID,
		Type:         entryType,
		PointsDelta:  delta,
		BalanceAfter: balanceAfter,
		Description:  defaultDescription(entryType, delta),
		CreatedAt:    now,
	}, nil
}

// WithPurchaseAmount attaches the purchase that earned the points.
func (e *LedgerEntry) WithPurchaseAmount(amount decimal.Decimal) *LedgerEntry {
	e.PurchaseAmount = &amount
	return e
}

// WithDescription overrides the generated description when non-empty.
func (e *LedgerEntry) WithDescription(desc string) *LedgerEntry {
	if d := strings.TrimSpace(desc); d != "" {
		e.Description = d
	}
	return e
}

// WithReference links the entry to a redemption or external record.
func (e *LedgerEntry) WithReference(ref string) *LedgerEntry {
	e.ReferenceID = strings.TrimSpace(ref)
	return e
}

func defaultDescription(t EntryType, delta int64) string {
	switch t {
	case EntryTypeWelcome:
		return "Welcome bonus"
	case EntryTypeEarn:
		return fmt.Sprintf("Earned %d points", delta)
	case EntryTypeRedeem:
		return fmt.Sprintf("Redeemed %d points", -delta)
	case EntryTypeBonus:
		return fmt.Sprintf("Bonus of %d points", delta)
	default:
		return "Balance adjustment"
	}
}

// PointsRequest is the input of a balance change.
type PointsRequest struct {
	Action         PointsAction
	Points         *int64
	PurchaseAmount *decimal.Decimal
}

// ComputeDelta validates req against the current balance and returns the
// signed change to apply. The resulting balance is never negative.
func ComputeDelta(req PointsRequest, settings LoyaltySettings, currentBalance int64) (int64, error) {
	var delta int64
	switch req.Action {
	case ActionEarn:
		if req.PurchaseAmount == nil || !req.PurchaseAmount.IsPositive() {
			return 0, ErrInvalidPurchaseAmount
		}
		if req.PurchaseAmount.GreaterThan(MaxPurchaseAmount) {
			return 0, ErrInvalidPurchaseAmount.WithDetail("max", MaxPurchaseAmount.String())
		}
		var ok bool
		if delta, ok = settings.PointsForPurchase(*req.PurchaseAmount); !ok {
			return 0, ErrInvalidPurchaseAmount.WithDetail("reason", "points overflow")
		}
		if delta <= 0 {
			return 0, ErrBelowThreshold.
				WithDetail("threshold", settings.PurchaseThreshold.String())
		}
	case ActionBonus:
		if req.Points == nil || *req.Points <= 0 {
			return 0, ErrInvalidPoints
		}
		delta = *req.Points
	case ActionAdjustment:
		if req.Points == nil {
			return 0, ErrMissingPoints
		}
		delta = *req.Points
	case ActionRedeem:
		if req.Points == nil || *req.Points <= 0 {
			return 0, ErrInvalidPoints
		}
		if currentBalance < *req.Points {
			return 0, InsufficientPoints(*req.Points, currentBalance)
		}
		delta = -*req.Points
	default:
		return 0, ErrInvalidAction
	}

	if delta > 0 && currentBalance > math.MaxInt64-delta {
		return 0, ErrInvalidPoints.WithDetail("reason", "balance overflow")
	}
	if currentBalance+delta < 0 {
		return 0, NegativeBalance(currentBalance)
	}
	return delta, nil
}
