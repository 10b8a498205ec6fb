package loyalty

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/qualee/backend/internal/domain/shared"
)

// DefaultRedemptionTTL is how long an issued code stays valid.
const DefaultRedemptionTTL = 30 * 24 * time.Hour

// RedemptionStatus is the lifecycle state of an issued code.
type RedemptionStatus string

const (
	RedemptionStatusPending   RedemptionStatus = "pending"
	RedemptionStatusUsed      RedemptionStatus = "used"
	RedemptionStatusCancelled RedemptionStatus = "cancelled"
	RedemptionStatusExpired   RedemptionStatus = "expired"
)

// IsValid checks if the status is known
func (s RedemptionStatus) IsValid() bool {
	switch s {
	case RedemptionStatusPending, RedemptionStatusUsed, RedemptionStatusCancelled, RedemptionStatusExpired:
		return true
	}
	return false
}

// IsTerminal reports whether no further transition is allowed.
func (s RedemptionStatus) IsTerminal() bool {
	return s != RedemptionStatusPending
}

// ParseRedemptionStatus validates a status filter.
func ParseRedemptionStatus(s string) (RedemptionStatus, error) {
	st := RedemptionStatus(strings.ToLower(strings.TrimSpace(s)))
	if !st.IsValid() {
		return "", ErrInvalidRequest.WithDetail("field", "status")
	}
	return st, nil
}

// ResolveAction is what a merchant does with a presented code.
type ResolveAction string

const (
	ResolveUse    ResolveAction = "use"
	ResolveCancel ResolveAction = "cancel"
)

// ParseResolveAction validates a resolve action.
func ParseResolveAction(s string) (ResolveAction, error) {
	a := ResolveAction(strings.ToLower(strings.TrimSpace(s)))
	switch a {
	case ResolveUse, ResolveCancel:
		return a, nil
	}
	return "", ErrInvalidResolveAction
}

// Redemption is one claim of a reward. Name, value and cost are copied from
// the reward when issued and never follow later catalog edits.
type Redemption struct {
	shared.BaseEntity
	AccountID   uuid.UUID
	RewardID    uuid.UUID
	MerchantID  uuid.UUID
	RewardName  string
	RewardValue string
	PointsSpent int64
	Code        string
	Status      RedemptionStatus
	ExpiresAt   time.Time
	UsedAt      *time.Time
	CancelledAt *time.Time
}

// NewRedemption issues a pending redemption valid for ttl.
func NewRedemption(account *Account, reward *Reward, code string, now time.Time, ttl time.Duration) (*Redemption, error) {
	if !IsRedemptionCode(code) {
		return nil, fmt.Errorf("malformed redemption code %q", code)
	}
	if ttl <= 0 {
		ttl = DefaultRedemptionTTL
	}
	return &Redemption{
		BaseEntity:  shared.NewBaseEntityAt(now),
		AccountID:   account.ID,
		RewardID:    reward.ID,
		MerchantID:  reward.MerchantID,
		RewardName:  reward.Name,
		RewardValue: reward.Value,
		PointsSpent: reward.PointsCost,
		Code:        code,
		Status:      RedemptionStatusPending,
		ExpiresAt:   now.Add(ttl),
	}, nil
}

// IsPastExpiry reports whether a pending code has outlived its validity.
func (r *Redemption) IsPastExpiry(now time.Time) bool {
	return now.After(r.ExpiresAt)
}

// CheckResolvable fails with a status-specific error unless the redemption
// is still pending.
func (r *Redemption) CheckResolvable() error {
	switch r.Status {
	case RedemptionStatusPending:
		return nil
	case RedemptionStatusUsed:
		return CodeAlreadyUsed(r.UsedAt)
	case RedemptionStatusCancelled:
		return ErrCodeAlreadyCancelled
	case RedemptionStatusExpired:
		return ErrCodeExpired
	}
	return shared.ErrInvalidState
}

// Use marks the code as fulfilled.
func (r *Redemption) Use(now time.Time) error {
	if err := r.CheckResolvable(); err != nil {
		return err
	}
	r.Status = RedemptionStatusUsed
	r.UsedAt = &now
	r.Touch(now)
	return nil
}

// Cancel marks the code as cancelled. The caller refunds PointsSpent.
func (r *Redemption) Cancel(now time.Time) error {
	if err := r.CheckResolvable(); err != nil {
		return err
	}
	r.Status = RedemptionStatusCancelled
	r.CancelledAt = &now
	r.Touch(now)
	return nil
}

// Expire records that the code lapsed.
func (r *Redemption) Expire(now time.Time) error {
	if err := r.CheckResolvable(); err != nil {
		return err
	}
	r.Status = RedemptionStatusExpired
	r.Touch(now)
	return nil
}
