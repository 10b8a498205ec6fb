package persistence

import (
	"context"

	apployalty "github.com/qualee/backend/internal/application/loyalty"
	"github.com/qualee/backend/internal/domain/loyalty"
	"gorm.io/gorm"
)

// GormTransactionScope implements TransactionScope using GORM transactions.
type GormTransactionScope struct {
	db *gorm.DB
}

// NewGormTransactionScope creates a new GormTransactionScope.
func NewGormTransactionScope(db *gorm.DB) *GormTransactionScope {
	return &GormTransactionScope{db: db}
}

// Execute runs fn within a database transaction, committing when fn
// returns nil and rolling back otherwise.
func (s *GormTransactionScope) Execute(ctx context.Context, fn func(repos apployalty.TransactionalRepositories) error) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&gormTransactionalRepositories{tx: tx})
	})
}

// gormTransactionalRepositories hands out repositories bound to one transaction.
type gormTransactionalRepositories struct {
	tx *gorm.DB
}

func (r *gormTransactionalRepositories) Accounts() loyalty.AccountRepository {
	return NewGormAccountRepository(r.tx)
}

func (r *gormTransactionalRepositories) Ledger() loyalty.LedgerRepository {
	return NewGormLedgerRepository(r.tx)
}

func (r *gormTransactionalRepositories) Rewards() loyalty.RewardRepository {
	return NewGormRewardRepository(r.tx)
}

func (r *gormTransactionalRepositories) Redemptions() loyalty.RedemptionRepository {
	return NewGormRedemptionRepository(r.tx)
}

var (
	_ apployalty.TransactionScope          = (*GormTransactionScope)(nil)
	_ apployalty.TransactionalRepositories = (*gormTransactionalRepositories)(nil)
)
