// Package notification delivers short best-effort messages to loyalty
// clients when their account changes.
package notification

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/qualee/backend/internal/domain/loyalty"
	"github.com/qualee/backend/internal/domain/shared"
)

// Kind classifies a rendered message
type Kind string

const (
	KindWelcome            Kind = "welcome"
	KindPointsUpdate       Kind = "points_update"
	KindRedemptionCode     Kind = "redemption_code"
	KindRedemptionResolved Kind = "redemption_resolved"
)

// Message is one outbound text addressed to a client phone
type Message struct {
	ID         uuid.UUID `json:"id"`
	Kind       Kind      `json:"kind"`
	MerchantID uuid.UUID `json:"merchant_id"`
	AccountID  uuid.UUID `json:"account_id"`
	To         string    `json:"to"`
	Body       string    `json:"body"`
	CreatedAt  time.Time `json:"created_at"`
}

// Render turns a loyalty event into a message. It returns false when the
// event is not a loyalty event or the recipient has no phone.
func Render(ev shared.DomainEvent) (Message, bool) {
	var (
		kind      Kind
		recipient loyalty.Recipient
		body      string
	)

	switch e := ev.(type) {
	case *loyalty.AccountCreatedEvent:
		kind, recipient = KindWelcome, e.Recipient
		body = fmt.Sprintf("%s, welcome to the %s loyalty program! You start with %d points. Card: %s",
			greetingName(e.Recipient), e.BusinessName, e.WelcomePoints, e.Recipient.CardID)
	case *loyalty.PointsAppliedEvent:
		kind, recipient = KindPointsUpdate, e.Recipient
		body = fmt.Sprintf("%s, %s. Your balance is now %d points.",
			greetingName(e.Recipient), describeDelta(e.PointsDelta), e.NewBalance)
	case *loyalty.RewardRedeemedEvent:
		kind, recipient = KindRedemptionCode, e.Recipient
		body = fmt.Sprintf("Your code for %s is %s (valid until %s). %d points used, %d left.",
			e.RewardName, e.Code, e.ExpiresAt.Format(time.DateOnly), e.PointsSpent, e.NewBalance)
	case *loyalty.RedemptionResolvedEvent:
		kind, recipient = KindRedemptionResolved, e.Recipient
		if e.Action == loyalty.ResolveCancel {
			body = fmt.Sprintf("Code %s for %s was cancelled and %d points were returned to your card.",
				e.Code, e.RewardName, e.RefundedPoints)
		} else {
			body = fmt.Sprintf("Code %s for %s has been used. Enjoy!", e.Code, e.RewardName)
		}
	default:
		return Message{}, false
	}

	if recipient.Phone == "" {
		return Message{}, false
	}
	return Message{
		ID:         ev.EventID(),
		Kind:       kind,
		MerchantID: ev.MerchantID(),
		AccountID:  recipient.AccountID,
		To:         recipient.Phone,
		Body:       body,
		CreatedAt:  ev.OccurredAt(),
	}, true
}

func greetingName(r loyalty.Recipient) string {
	if r.Name == "" {
		return "Hello"
	}
	return "Hi " + r.Name
}

func describeDelta(delta int64) string {
	switch {
	case delta > 0:
		return fmt.Sprintf("you earned %d points", delta)
	case delta < 0:
		return fmt.Sprintf("%d points were deducted", -delta)
	default:
		return "your card was updated"
	}
}
