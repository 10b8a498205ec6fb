package loyalty

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/qualee/backend/internal/domain/shared"
	"github.com/shopspring/decimal"
)

// MerchantRepository loads merchants and their program settings
type MerchantRepository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*Merchant, error)
	Save(ctx context.Context, merchant *Merchant) error
}

// BalanceChange describes an atomic points update.
type BalanceChange struct {
	Delta          int64
	PurchaseAmount *decimal.Decimal
	At             time.Time
}

// AccountRepository persists loyalty accounts. Not-found lookups return
// shared.ErrNotFound.
type AccountRepository interface {
	FindByID(ctx context.Context, merchantID, id uuid.UUID) (*Account, error)
	// FindByIDAnyMerchant is used by public card views that carry no merchant.
	FindByIDAnyMerchant(ctx context.Context, id uuid.UUID) (*Account, error)
	// FindByIDForUpdate locks the row for the rest of the transaction.
	FindByIDForUpdate(ctx context.Context, merchantID, id uuid.UUID) (*Account, error)
	FindByQRToken(ctx context.Context, qrToken string) (*Account, error)
	FindByPhone(ctx context.Context, merchantID uuid.UUID, phone string) (*Account, error)
	FindByEmail(ctx context.Context, merchantID uuid.UUID, email string) (*Account, error)
	List(ctx context.Context, merchantID uuid.UUID, page shared.Page) ([]Account, int64, error)
	// Create inserts a new account. Duplicate phone/email yields ErrContactInUse,
	// duplicate card id ErrCardIDCollision.
	Create(ctx context.Context, account *Account) error
	// SaveProfile writes profile fields and visit data, never points.
	SaveProfile(ctx context.Context, account *Account) error
	// ApplyBalanceChange adds change.Delta to points only if the result stays
	// non-negative and returns the new balance. Earn changes also bump the
	// purchase counters. Fails with ErrNegativeBalance when the guard rejects.
	ApplyBalanceChange(ctx context.Context, merchantID, id uuid.UUID, change BalanceChange) (int64, error)
}

// LedgerRepository appends and reads ledger entries. There is no update or
// delete.
type LedgerRepository interface {
	Create(ctx context.Context, entry *LedgerEntry) error
	// ListByAccount returns entries newest first. A nil merchantID skips the
	// merchant filter.
	ListByAccount(ctx context.Context, accountID uuid.UUID, merchantID *uuid.UUID, page shared.Page) ([]LedgerEntry, int64, error)
}

// RewardFilter narrows catalog listings
type RewardFilter struct {
	ActiveOnly bool
}

// RewardRepository persists the reward catalog
type RewardRepository interface {
	FindByID(ctx context.Context, merchantID, id uuid.UUID) (*Reward, error)
	// List orders by sort order then points cost.
	List(ctx context.Context, merchantID uuid.UUID, filter RewardFilter) ([]Reward, error)
	MaxSortOrder(ctx context.Context, merchantID uuid.UUID) (int, error)
	Create(ctx context.Context, reward *Reward) error
	Save(ctx context.Context, reward *Reward) error
	// Delete is scoped to the merchant; deleting another merchant's reward is a no-op.
	Delete(ctx context.Context, merchantID, id uuid.UUID) error
	// DecrementStock takes one unit of finite stock, failing with ErrOutOfStock
	// when none is left. Returns the remaining quantity.
	DecrementStock(ctx context.Context, merchantID, id uuid.UUID) (int64, error)
}

// RedemptionFilter narrows redemption listings
type RedemptionFilter struct {
	AccountID *uuid.UUID
	Status    *RedemptionStatus
}

// RedemptionRepository persists issued redemptions
type RedemptionRepository interface {
	// Create inserts a redemption; a duplicate code yields ErrCodeCollision.
	Create(ctx context.Context, redemption *Redemption) error
	FindByCode(ctx context.Context, code string) (*Redemption, error)
	FindByCodeForMerchant(ctx context.Context, merchantID uuid.UUID, code string) (*Redemption, error)
	FindByCodeForUpdate(ctx context.Context, merchantID uuid.UUID, code string) (*Redemption, error)
	List(ctx context.Context, merchantID uuid.UUID, filter RedemptionFilter, page shared.Page) ([]Redemption, int64, error)
	CountByReward(ctx context.Context, merchantID uuid.UUID, rewardIDs []uuid.UUID) (map[uuid.UUID]int64, error)
	// UpdateStatus persists a transition out of from; fails with
	// shared.ErrConcurrencyConflict when the row is no longer in that state.
	UpdateStatus(ctx context.Context, redemption *Redemption, from RedemptionStatus) error
}
