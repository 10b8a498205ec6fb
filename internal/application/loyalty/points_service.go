package loyalty

import (
	"context"
	"errors"
	"time"

	"github.com/qualee/backend/internal/domain/loyalty"
	"github.com/qualee/backend/internal/domain/shared"
	"github.com/qualee/backend/internal/infrastructure/telemetry"
	"go.uber.org/zap"
)

// PointsService applies balance changes and serves ledger history
type PointsService struct {
	merchants loyalty.MerchantRepository
	accounts  loyalty.AccountRepository
	ledger    loyalty.LedgerRepository
	txScope   TransactionScope
	publisher shared.EventPublisher
	cfg       Config
	logger    *zap.Logger
	now       func() time.Time
}

// NewPointsService creates a new PointsService
func NewPointsService(
	merchants loyalty.MerchantRepository,
	accounts loyalty.AccountRepository,
	ledger loyalty.LedgerRepository,
	txScope TransactionScope,
	publisher shared.EventPublisher,
	cfg Config,
	logger *zap.Logger,
	opts ...Option,
) *PointsService {
	o := buildOptions(opts)
	if logger == nil {
		logger = zap.NewNop()
	}
	return &PointsService{
		merchants: merchants,
		accounts:  accounts,
		ledger:    ledger,
		txScope:   txScope,
		publisher: publisher,
		cfg:       cfg.normalized(),
		logger:    logger,
		now:       o.now,
	}
}

// Apply validates the action against the locked account, writes the ledger
// entry and updates the balance in one transaction.
func (s *PointsService) Apply(ctx context.Context, req ApplyPointsRequest) (*ApplyPointsResult, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "points", "apply")
	defer span.End()
	telemetry.SetAttributes(span,
		"merchant_id", req.MerchantID.String(),
		"client_id", req.ClientID.String(),
		"action", req.Action,
	)

	res, err := s.apply(ctx, req)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}
	telemetry.SetAttribute(span, "balance", res.NewBalance)
	return res, nil
}

func (s *PointsService) apply(ctx context.Context, req ApplyPointsRequest) (*ApplyPointsResult, error) {
	action, err := loyalty.ParsePointsAction(req.Action)
	if err != nil {
		return nil, err
	}

	merchant, err := s.merchants.FindByID(ctx, req.MerchantID)
	if err != nil {
		return nil, mapNotFound(err, loyalty.ErrMerchantNotFound)
	}
	settings := merchant.Settings(s.cfg.Defaults)
	if !settings.Enabled && action == loyalty.ActionEarn {
		return nil, loyalty.ErrLoyaltyDisabled
	}

	now := s.now()
	var (
		account *loyalty.Account
		entry   *loyalty.LedgerEntry
	)
	err = s.txScope.Execute(ctx, func(repos TransactionalRepositories) error {
		acc, err := repos.Accounts().FindByIDForUpdate(ctx, merchant.ID, req.ClientID)
		if err != nil {
			return mapNotFound(err, loyalty.ErrAccountNotFound)
		}
		if !acc.IsActive() && action != loyalty.ActionAdjustment {
			return loyalty.ErrAccountInactive
		}

		delta, err := loyalty.ComputeDelta(loyalty.PointsRequest{
			Action:         action,
			Points:         req.Points,
			PurchaseAmount: req.PurchaseAmount,
		}, settings, acc.Points)
		if err != nil {
			return err
		}

		change := loyalty.BalanceChange{Delta: delta, At: now}
		if action == loyalty.ActionEarn {
			change.PurchaseAmount = req.PurchaseAmount
		}
		newBalance, err := repos.Accounts().ApplyBalanceChange(ctx, merchant.ID, acc.ID, change)
		if err != nil {
			if errors.Is(err, loyalty.ErrNegativeBalance) && action == loyalty.ActionRedeem {
				return loyalty.InsufficientPoints(-delta, acc.Points)
			}
			return err
		}

		e, err := loyalty.NewLedgerEntry(acc, action.EntryType(), delta, newBalance, now)
		if err != nil {
			return err
		}
		e.WithDescription(req.Description).WithReference(req.ReferenceID)
		if action == loyalty.ActionEarn {
			e.WithPurchaseAmount(*req.PurchaseAmount)
		}
		if err := repos.Ledger().Create(ctx, e); err != nil {
			return err
		}

		acc.Points = newBalance
		acc.LastVisit = now
		account, entry = acc, e
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("Points applied",
		zap.String("client_id", account.ID.String()),
		zap.String("merchant_id", merchant.ID.String()),
		zap.String("action", string(action)),
		zap.Int64("delta", entry.PointsDelta),
		zap.Int64("balance", entry.BalanceAfter),
	)
	publishEvents(ctx, s.publisher, s.logger, loyalty.NewPointsAppliedEvent(account, entry))

	return &ApplyPointsResult{
		Transaction: ToLedgerEntryResponse(entry),
		NewBalance:  entry.BalanceAfter,
		PointsAdded: entry.PointsDelta,
	}, nil
}

// History returns ledger entries newest first with the current balance.
// Without a merchant the lookup serves the public card view.
func (s *PointsService) History(ctx context.Context, q HistoryQuery) (*HistoryResult, error) {
	var (
		account *loyalty.Account
		err     error
	)
	if q.MerchantID != nil {
		account, err = s.accounts.FindByID(ctx, *q.MerchantID, q.ClientID)
	} else {
		account, err = s.accounts.FindByIDAnyMerchant(ctx, q.ClientID)
	}
	if err != nil {
		return nil, mapNotFound(err, loyalty.ErrAccountNotFound)
	}

	page := shared.Page{Limit: q.Limit, Offset: q.Offset}.Normalize(s.cfg.HistoryLimit, s.cfg.MaxPageSize)
	entries, total, err := s.ledger.ListByAccount(ctx, account.ID, q.MerchantID, page)
	if err != nil {
		return nil, err
	}

	out := make([]LedgerEntryResponse, len(entries))
	for i := range entries {
		out[i] = ToLedgerEntryResponse(&entries[i])
	}
	return &HistoryResult{
		Transactions:   out,
		Total:          total,
		CurrentBalance: account.Points,
	}, nil
}
