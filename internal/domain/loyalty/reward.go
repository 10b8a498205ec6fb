package loyalty

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/qualee/backend/internal/domain/shared"
)

// RewardType classifies what a reward grants.
type RewardType string

const (
	RewardTypeDiscount RewardType = "discount"
	RewardTypeProduct  RewardType = "product"
	RewardTypeService  RewardType = "service"
	RewardTypeCashback RewardType = "cashback"
)

// IsValid checks if the reward type is known
func (t RewardType) IsValid() bool {
	switch t {
	case RewardTypeDiscount, RewardTypeProduct, RewardTypeService, RewardTypeCashback:
		return true
	}
	return false
}

// Reward is a merchant catalog item redeemable for points.
// A nil QuantityAvailable means unlimited stock.
type Reward struct {
	shared.BaseEntity
	MerchantID        uuid.UUID
	Name              string
	Description       string
	Type              RewardType
	Value             string
	PointsCost        int64
	QuantityAvailable *int64
	IsActive          bool
	SortOrder         int
	ValidUntil        *time.Time
}

// RewardInput holds the fields of a new reward.
type RewardInput struct {
	Name              string
	Description       string
	Type              string
	Value             string
	PointsCost        int64
	QuantityAvailable *int64
	ValidUntil        *time.Time
	IsActive          *bool
}

// NewReward validates input and creates an active reward at sortOrder.
func NewReward(merchantID uuid.UUID, in RewardInput, sortOrder int, now time.Time) (*Reward, error) {
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return nil, ErrInvalidRewardName
	}
	rt := RewardType(strings.ToLower(strings.TrimSpace(in.Type)))
	if !rt.IsValid() {
		return nil, ErrInvalidRewardType
	}
	if in.PointsCost <= 0 {
		return nil, ErrInvalidCost
	}
	if in.QuantityAvailable != nil && *in.QuantityAvailable < 0 {
		return nil, ErrInvalidQuantity
	}
	active := true
	if in.IsActive != nil {
		active = *in.IsActive
	}
	return &Reward{
		BaseEntity:        shared.NewBaseEntityAt(now),
		MerchantID:        merchantID,
		Name:              name,
		Description:       strings.TrimSpace(in.Description),
		Type:              rt,
		Value:             strings.TrimSpace(in.Value),
		PointsCost:        in.PointsCost,
		QuantityAvailable: in.QuantityAvailable,
		IsActive:          active,
		SortOrder:         sortOrder,
		ValidUntil:        in.ValidUntil,
	}, nil
}

// RewardPatch carries a partial reward update. ClearQuantity and
// ClearValidUntil reset the optional fields to unlimited / open-ended.
type RewardPatch struct {
	Name              *string
	Description       *string
	Type              *string
	Value             *string
	PointsCost        *int64
	QuantityAvailable *int64
	ClearQuantity     bool
	IsActive          *bool
	SortOrder         *int
	ValidUntil        *time.Time
	ClearValidUntil   bool
}

// Apply validates and applies a reward patch.
func (r *Reward) Apply(p RewardPatch, now time.Time) error {
	next := *r
	if p.Name != nil {
		next.Name = strings.TrimSpace(*p.Name)
		if next.Name == "" {
			return ErrInvalidRewardName
		}
	}
	if p.Description != nil {
		next.Description = strings.TrimSpace(*p.Description)
	}
	if p.Type != nil {
		rt := RewardType(strings.ToLower(strings.TrimSpace(*p.Type)))
		if !rt.IsValid() {
			return ErrInvalidRewardType
		}
		next.Type = rt
	}
	if p.Value != nil {
		next.Value = strings.TrimSpace(*p.Value)
	}
	if p.PointsCost != nil {
		if *p.PointsCost <= 0 {
			return ErrInvalidCost
		}
		next.PointsCost = *p.PointsCost
	}
	switch {
	case p.ClearQuantity:
		next.QuantityAvailable = nil
	case p.QuantityAvailable != nil:
		if *p.QuantityAvailable < 0 {
			return ErrInvalidQuantity
		}
		q := *p.QuantityAvailable
		next.QuantityAvailable = &q
	}
	if p.IsActive != nil {
		next.IsActive = *p.IsActive
	}
	if p.SortOrder != nil {
		next.SortOrder = *p.SortOrder
	}
	switch {
	case p.ClearValidUntil:
		next.ValidUntil = nil
	case p.ValidUntil != nil:
		v := *p.ValidUntil
		next.ValidUntil = &v
	}
	next.Touch(now)
	*r = next
	return nil
}

// HasFiniteStock reports whether redemptions consume stock.
func (r *Reward) HasFiniteStock() bool {
	return r.QuantityAvailable != nil
}

// CheckRedeemable rejects inactive, lapsed and sold-out rewards.
func (r *Reward) CheckRedeemable(now time.Time) error {
	if !r.IsActive {
		return ErrRewardInactive
	}
	if r.ValidUntil != nil && now.After(*r.ValidUntil) {
		return ErrRewardExpired
	}
	if r.QuantityAvailable != nil && *r.QuantityAvailable <= 0 {
		return ErrOutOfStock
	}
	return nil
}
