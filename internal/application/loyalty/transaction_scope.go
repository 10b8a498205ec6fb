package loyalty

import (
	"context"

	"github.com/qualee/backend/internal/domain/loyalty"
)

// TransactionScope runs a unit of work atomically. If fn returns an error
// every write made through the provided repositories is rolled back.
type TransactionScope interface {
	Execute(ctx context.Context, fn func(repos TransactionalRepositories) error) error
}

// TransactionalRepositories exposes repositories bound to one transaction.
type TransactionalRepositories interface {
	Accounts() loyalty.AccountRepository
	Ledger() loyalty.LedgerRepository
	Rewards() loyalty.RewardRepository
	Redemptions() loyalty.RedemptionRepository
}
