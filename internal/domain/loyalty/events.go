package loyalty

import (
	"time"

	"github.com/google/uuid"

	"github.com/qualee/backend/internal/domain/shared"
)

// Event types published after a committed loyalty change
const (
	EventTypeAccountCreated     = "loyalty.account.created"
	EventTypePointsApplied      = "loyalty.points.applied"
	EventTypeRewardRedeemed     = "loyalty.reward.redeemed"
	EventTypeRedemptionResolved = "loyalty.redemption.resolved"

	AggregateTypeAccount    = "LoyaltyAccount"
	AggregateTypeRedemption = "Redemption"
)

// Recipient is the contact snapshot notifications are addressed to.
type Recipient struct {
	AccountID uuid.UUID `json:"account_id"`
	Name      string    `json:"name,omitempty"`
	Phone     string    `json:"phone,omitempty"`
	Email     string    `json:"email,omitempty"`
	Language  string    `json:"language,omitempty"`
	CardID    string    `json:"card_id"`
}

// RecipientOf snapshots the contact fields of an account.
func RecipientOf(a *Account) Recipient {
	return Recipient{
		AccountID: a.ID,
		Name:      a.Name,
		Phone:     a.Phone,
		Email:     a.Email,
		Language:  a.PreferredLanguage,
		CardID:    a.CardID,
	}
}

// AccountCreatedEvent is raised when GetOrCreate inserts a new account.
type AccountCreatedEvent struct {
	shared.BaseDomainEvent
	Recipient     Recipient `json:"recipient"`
	BusinessName  string    `json:"business_name"`
	QRToken       string    `json:"qr_token"`
	WelcomePoints int64     `json:"welcome_points"`
}

// NewAccountCreatedEvent builds the event for a freshly created account.
func NewAccountCreatedEvent(a *Account, businessName string) *AccountCreatedEvent {
	return &AccountCreatedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeAccountCreated, AggregateTypeAccount, a.ID, a.MerchantID),
		Recipient:       RecipientOf(a),
		BusinessName:    businessName,
		QRToken:         a.QRToken,
		WelcomePoints:   a.Points,
	}
}

// PointsAppliedEvent is raised after a ledger entry is committed.
type PointsAppliedEvent struct {
	shared.BaseDomainEvent
	Recipient   Recipient `json:"recipient"`
	EntryType   EntryType `json:"entry_type"`
	PointsDelta int64     `json:"points_delta"`
	NewBalance  int64     `json:"new_balance"`
}

// NewPointsAppliedEvent builds the event for a committed ledger entry.
func NewPointsAppliedEvent(a *Account, e *LedgerEntry) *PointsAppliedEvent {
	return &PointsAppliedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypePointsApplied, AggregateTypeAccount, a.ID, a.MerchantID),
		Recipient:       RecipientOf(a),
		EntryType:       e.Type,
		PointsDelta:     e.PointsDelta,
		NewBalance:      e.BalanceAfter,
	}
}

// RewardRedeemedEvent is raised when a redemption code is issued.
type RewardRedeemedEvent struct {
	shared.BaseDomainEvent
	Recipient   Recipient `json:"recipient"`
	Code        string    `json:"code"`
	RewardName  string    `json:"reward_name"`
	PointsSpent int64     `json:"points_spent"`
	NewBalance  int64     `json:"new_balance"`
	ExpiresAt   time.Time `json:"expires_at"`
}

// NewRewardRedeemedEvent builds the event for an issued redemption.
func NewRewardRedeemedEvent(a *Account, r *Redemption, newBalance int64) *RewardRedeemedEvent {
	return &RewardRedeemedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeRewardRedeemed, AggregateTypeRedemption, r.ID, r.MerchantID),
		Recipient:       RecipientOf(a),
		Code:            r.Code,
		RewardName:      r.RewardName,
		PointsSpent:     r.PointsSpent,
		NewBalance:      newBalance,
		ExpiresAt:       r.ExpiresAt,
	}
}

// RedemptionResolvedEvent is raised when a code is used or cancelled.
type RedemptionResolvedEvent struct {
	shared.BaseDomainEvent
	Recipient      Recipient     `json:"recipient"`
	Code           string        `json:"code"`
	RewardName     string        `json:"reward_name"`
	Action         ResolveAction `json:"action"`
	RefundedPoints int64         `json:"refunded_points"`
}

// NewRedemptionResolvedEvent builds the event for a resolved code.
func NewRedemptionResolvedEvent(a *Account, r *Redemption, action ResolveAction) *RedemptionResolvedEvent {
	ev := &RedemptionResolvedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeRedemptionResolved, AggregateTypeRedemption, r.ID, r.MerchantID),
		Recipient:       RecipientOf(a),
		Code:            r.Code,
		RewardName:      r.RewardName,
		Action:          action,
	}
	if action == ResolveCancel {
		ev.RefundedPoints = r.PointsSpent
	}
	return ev
}
