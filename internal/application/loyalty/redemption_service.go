package loyalty

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/qualee/backend/internal/domain/loyalty"
	"github.com/qualee/backend/internal/domain/shared"
	"github.com/qualee/backend/internal/infrastructure/telemetry"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// RedemptionService issues and resolves reward codes
type RedemptionService struct {
	accounts    loyalty.AccountRepository
	rewards     loyalty.RewardRepository
	redemptions loyalty.RedemptionRepository
	txScope     TransactionScope
	publisher   shared.EventPublisher
	cfg         Config
	logger      *zap.Logger
	now         func() time.Time
	codeGen     loyalty.CodeGenerator
}

// NewRedemptionService creates a new RedemptionService
func NewRedemptionService(
	accounts loyalty.AccountRepository,
	rewards loyalty.RewardRepository,
	redemptions loyalty.RedemptionRepository,
	txScope TransactionScope,
	publisher shared.EventPublisher,
	cfg Config,
	logger *zap.Logger,
	opts ...Option,
) *RedemptionService {
	o := buildOptions(opts)
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RedemptionService{
		accounts:    accounts,
		rewards:     rewards,
		redemptions: redemptions,
		txScope:     txScope,
		publisher:   publisher,
		cfg:         cfg.normalized(),
		logger:      logger,
		now:         o.now,
		codeGen:     o.codeGen,
	}
}

// Redeem spends a client's points on a catalog reward and issues a code.
// The debit, ledger entry, redemption row and stock decrement commit
// together or not at all.
func (s *RedemptionService) Redeem(ctx context.Context, req RedeemRequest) (*RedeemResult, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "redemption", "redeem")
	defer span.End()
	telemetry.SetAttributes(span,
		"merchant_id", req.MerchantID.String(),
		"reward_id", req.RewardID.String(),
	)

	res, err := s.redeem(ctx, req)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}
	telemetry.SetAttribute(span, "redemption_code", res.RedemptionCode)
	return res, nil
}

func (s *RedemptionService) redeem(ctx context.Context, req RedeemRequest) (*RedeemResult, error) {
	var (
		account *loyalty.Account
		reward  *loyalty.Reward
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		a, err := s.accounts.FindByID(gctx, req.MerchantID, req.ClientID)
		if err != nil {
			return mapNotFound(err, loyalty.ErrAccountNotFound)
		}
		account = a
		return nil
	})
	g.Go(func() error {
		r, err := s.rewards.FindByID(gctx, req.MerchantID, req.RewardID)
		if err != nil {
			return mapNotFound(err, loyalty.ErrRewardNotFound)
		}
		reward = r
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	now := s.now()
	if err := reward.CheckRedeemable(now); err != nil {
		return nil, err
	}
	if !account.IsActive() {
		return nil, loyalty.ErrAccountInactive
	}
	if account.Points < reward.PointsCost {
		return nil, loyalty.InsufficientPoints(reward.PointsCost, account.Points)
	}

	var (
		redemption *loyalty.Redemption
		newBalance int64
	)
	for attempt := 1; ; attempt++ {
		code, err := s.codeGen()
		if err != nil {
			return nil, err
		}
		redemption, newBalance, err = s.issue(ctx, req, code, now)
		if err == nil {
			break
		}
		if !errors.Is(err, loyalty.ErrCodeCollision) {
			return nil, err
		}
		s.logger.Warn("Redemption code collision",
			zap.String("code", code),
			zap.Int("attempt", attempt),
		)
		if attempt >= s.cfg.CodeAttempts {
			return nil, loyalty.ErrCodeGenerationFailed.WithDetail("attempts", attempt)
		}
	}

	account.Points = newBalance
	s.logger.Info("Reward redeemed",
		zap.String("client_id", account.ID.String()),
		zap.String("reward_id", reward.ID.String()),
		zap.String("code", redemption.Code),
		zap.Int64("points_spent", redemption.PointsSpent),
		zap.Int64("balance", newBalance),
	)
	publishEvents(ctx, s.publisher, s.logger, loyalty.NewRewardRedeemedEvent(account, redemption, newBalance))

	return &RedeemResult{
		RedeemedReward: ToRedemptionResponse(redemption),
		NewBalance:     newBalance,
		RedemptionCode: redemption.Code,
	}, nil
}

// issue runs one attempt of the redeem transaction with the given code.
// State is re-checked under the account lock since the pre-fetch may be stale.
func (s *RedemptionService) issue(ctx context.Context, req RedeemRequest, code string, now time.Time) (*loyalty.Redemption, int64, error) {
	var (
		redemption *loyalty.Redemption
		newBalance int64
	)
	err := s.txScope.Execute(ctx, func(repos TransactionalRepositories) error {
		account, err := repos.Accounts().FindByIDForUpdate(ctx, req.MerchantID, req.ClientID)
		if err != nil {
			return mapNotFound(err, loyalty.ErrAccountNotFound)
		}
		if !account.IsActive() {
			return loyalty.ErrAccountInactive
		}
		reward, err := repos.Rewards().FindByID(ctx, req.MerchantID, req.RewardID)
		if err != nil {
			return mapNotFound(err, loyalty.ErrRewardNotFound)
		}
		if err := reward.CheckRedeemable(now); err != nil {
			return err
		}
		if account.Points < reward.PointsCost {
			return loyalty.InsufficientPoints(reward.PointsCost, account.Points)
		}

		r, err := loyalty.NewRedemption(account, reward, code, now, s.cfg.RedemptionTTL)
		if err != nil {
			return err
		}
		if err := repos.Redemptions().Create(ctx, r); err != nil {
			return err
		}

		balance, err := repos.Accounts().ApplyBalanceChange(ctx, req.MerchantID, account.ID, loyalty.BalanceChange{
			Delta: -reward.PointsCost,
			At:    now,
		})
		if err != nil {
			if errors.Is(err, loyalty.ErrNegativeBalance) {
				return loyalty.InsufficientPoints(reward.PointsCost, account.Points)
			}
			return err
		}

		entry, err := loyalty.NewLedgerEntry(account, loyalty.EntryTypeRedeem, -reward.PointsCost, balance, now)
		if err != nil {
			return err
		}
		entry.WithDescription("Redeemed: " + reward.Name).WithReference(r.ID.String())
		if err := repos.Ledger().Create(ctx, entry); err != nil {
			return err
		}

		if reward.HasFiniteStock() {
			if _, err := repos.Rewards().DecrementStock(ctx, req.MerchantID, reward.ID); err != nil {
				return err
			}
		}

		redemption, newBalance = r, balance
		return nil
	})
	return redemption, newBalance, err
}

// ValidateCode looks a code up without changing it. With a merchant the
// lookup is scoped to that merchant's codes.
func (s *RedemptionService) ValidateCode(ctx context.Context, code string, merchantID *uuid.UUID) (*ValidateCodeResult, error) {
	code = loyalty.NormalizeRedemptionCode(code)
	if code == "" {
		return nil, loyalty.ErrInvalidRequest.WithDetail("field", "code")
	}

	var (
		redemption *loyalty.Redemption
		err        error
	)
	if merchantID != nil {
		redemption, err = s.redemptions.FindByCodeForMerchant(ctx, *merchantID, code)
	} else {
		redemption, err = s.redemptions.FindByCode(ctx, code)
	}
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return nil, loyalty.ErrCodeNotFound.WithDetail("found", false)
		}
		return nil, err
	}

	resp := ToRedemptionResponse(redemption)
	owner, err := s.accounts.FindByIDAnyMerchant(ctx, redemption.AccountID)
	switch {
	case err == nil:
		resp.Client = &ClientSummary{
			Name:   owner.Name,
			Phone:  owner.Phone,
			Email:  owner.Email,
			CardID: owner.CardID,
		}
	case !errors.Is(err, shared.ErrNotFound):
		return nil, err
	}
	return &ValidateCodeResult{RedeemedReward: resp, Found: true}, nil
}

// Resolve uses or cancels a pending code. A code found past its expiry is
// marked expired and the call fails with ErrCodeExpired. Cancelling refunds
// the points but leaves reward stock as is.
func (s *RedemptionService) Resolve(ctx context.Context, req ResolveRedemptionRequest) (*ResolveResult, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "redemption", "resolve",
		telemetry.WithAttribute("merchant_id", req.MerchantID.String()),
		telemetry.WithAttribute("action", req.Action),
	)
	defer span.End()

	res, err := s.resolve(ctx, req)
	if err != nil {
		telemetry.RecordError(span, err)
	}
	return res, err
}

func (s *RedemptionService) resolve(ctx context.Context, req ResolveRedemptionRequest) (*ResolveResult, error) {
	action, err := loyalty.ParseResolveAction(req.Action)
	if err != nil {
		return nil, err
	}
	code := loyalty.NormalizeRedemptionCode(req.RedemptionCode)

	now := s.now()
	var (
		redemption *loyalty.Redemption
		account    *loyalty.Account
		expired    bool
	)
	err = s.txScope.Execute(ctx, func(repos TransactionalRepositories) error {
		r, err := repos.Redemptions().FindByCodeForUpdate(ctx, req.MerchantID, code)
		if err != nil {
			return mapNotFound(err, loyalty.ErrCodeNotFound)
		}
		if err := r.CheckResolvable(); err != nil {
			return err
		}

		if r.IsPastExpiry(now) {
			if err := r.Expire(now); err != nil {
				return err
			}
			if err := repos.Redemptions().UpdateStatus(ctx, r, loyalty.RedemptionStatusPending); err != nil {
				return err
			}
			// Commit the expiry, then report it.
			redemption, expired = r, true
			return nil
		}

		switch action {
		case loyalty.ResolveUse:
			if err := r.Use(now); err != nil {
				return err
			}
			if err := repos.Redemptions().UpdateStatus(ctx, r, loyalty.RedemptionStatusPending); err != nil {
				return err
			}
			acc, err := repos.Accounts().FindByID(ctx, r.MerchantID, r.AccountID)
			if err != nil && !errors.Is(err, shared.ErrNotFound) {
				return err
			}
			account = acc
		case loyalty.ResolveCancel:
			if err := r.Cancel(now); err != nil {
				return err
			}
			if err := repos.Redemptions().UpdateStatus(ctx, r, loyalty.RedemptionStatusPending); err != nil {
				return err
			}
			acc, err := s.refund(ctx, repos, r, now)
			if err != nil {
				return err
			}
			account = acc
		}
		redemption = r
		return nil
	})
	if err != nil {
		return nil, err
	}
	if expired {
		s.logger.Info("Redemption code expired on resolve",
			zap.String("code", redemption.Code),
			zap.Time("expires_at", redemption.ExpiresAt),
		)
		return nil, loyalty.ErrCodeExpired
	}

	s.logger.Info("Redemption resolved",
		zap.String("code", redemption.Code),
		zap.String("action", string(action)),
		zap.String("merchant_id", redemption.MerchantID.String()),
	)
	if account != nil {
		publishEvents(ctx, s.publisher, s.logger, loyalty.NewRedemptionResolvedEvent(account, redemption, action))
	}

	return &ResolveResult{
		RedeemedReward: ToRedemptionResponse(redemption),
		Action:         string(action),
		Success:        true,
	}, nil
}

// refund credits PointsSpent back with an adjustment entry.
func (s *RedemptionService) refund(ctx context.Context, repos TransactionalRepositories, r *loyalty.Redemption, now time.Time) (*loyalty.Account, error) {
	account, err := repos.Accounts().FindByIDForUpdate(ctx, r.MerchantID, r.AccountID)
	if err != nil {
		return nil, mapNotFound(err, loyalty.ErrAccountNotFound)
	}
	balance, err := repos.Accounts().ApplyBalanceChange(ctx, r.MerchantID, account.ID, loyalty.BalanceChange{
		Delta: r.PointsSpent,
		At:    now,
	})
	if err != nil {
		return nil, err
	}
	entry, err := loyalty.NewLedgerEntry(account, loyalty.EntryTypeAdjustment, r.PointsSpent, balance, now)
	if err != nil {
		return nil, err
	}
	entry.WithDescription("Refund for cancelled redemption " + r.Code).WithReference(r.ID.String())
	if err := repos.Ledger().Create(ctx, entry); err != nil {
		return nil, err
	}
	account.Points = balance
	return account, nil
}

// List returns a merchant's redemptions newest first.
func (s *RedemptionService) List(ctx context.Context, q ListRedemptionsQuery) (*ListRedemptionsResult, error) {
	filter := loyalty.RedemptionFilter{AccountID: q.ClientID}
	if q.Status != "" {
		st, err := loyalty.ParseRedemptionStatus(q.Status)
		if err != nil {
			return nil, err
		}
		filter.Status = &st
	}

	page := shared.Page{Limit: q.Limit, Offset: q.Offset}.Normalize(s.cfg.HistoryLimit, s.cfg.MaxPageSize)
	redemptions, total, err := s.redemptions.List(ctx, q.MerchantID, filter, page)
	if err != nil {
		return nil, err
	}
	out := make([]RedemptionResponse, len(redemptions))
	for i := range redemptions {
		out[i] = ToRedemptionResponse(&redemptions[i])
	}
	return &ListRedemptionsResult{RedeemedRewards: out, Total: total}, nil
}
