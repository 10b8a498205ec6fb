package loyalty

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/qualee/backend/internal/domain/loyalty"
	"go.uber.org/zap"
)

// RewardService manages merchant reward catalogs
type RewardService struct {
	merchants   loyalty.MerchantRepository
	rewards     loyalty.RewardRepository
	redemptions loyalty.RedemptionRepository
	logger      *zap.Logger
	now         func() time.Time
}

// NewRewardService creates a new RewardService
func NewRewardService(
	merchants loyalty.MerchantRepository,
	rewards loyalty.RewardRepository,
	redemptions loyalty.RedemptionRepository,
	logger *zap.Logger,
	opts ...Option,
) *RewardService {
	o := buildOptions(opts)
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RewardService{
		merchants:   merchants,
		rewards:     rewards,
		redemptions: redemptions,
		logger:      logger,
		now:         o.now,
	}
}

// List returns the catalog ordered by sort order then cost. With
// IncludeStats each reward carries the number of redemptions issued for it.
func (s *RewardService) List(ctx context.Context, merchantID uuid.UUID, q ListRewardsQuery) ([]RewardResponse, error) {
	rewards, err := s.rewards.List(ctx, merchantID, loyalty.RewardFilter{ActiveOnly: q.ActiveOnly})
	if err != nil {
		return nil, err
	}

	out := make([]RewardResponse, len(rewards))
	for i := range rewards {
		out[i] = ToRewardResponse(&rewards[i])
	}
	if !q.IncludeStats || len(rewards) == 0 {
		return out, nil
	}

	ids := make([]uuid.UUID, len(rewards))
	for i := range rewards {
		ids[i] = rewards[i].ID
	}
	counts, err := s.redemptions.CountByReward(ctx, merchantID, ids)
	if err != nil {
		return nil, err
	}
	for i := range out {
		n := counts[out[i].ID]
		out[i].TimesRedeemed = &n
	}
	return out, nil
}

// Get returns a single reward of the merchant.
func (s *RewardService) Get(ctx context.Context, merchantID, rewardID uuid.UUID) (*RewardResponse, error) {
	reward, err := s.rewards.FindByID(ctx, merchantID, rewardID)
	if err != nil {
		return nil, mapNotFound(err, loyalty.ErrRewardNotFound)
	}
	resp := ToRewardResponse(reward)
	return &resp, nil
}

// Create appends a reward to the end of the merchant's catalog.
func (s *RewardService) Create(ctx context.Context, req CreateRewardRequest) (*RewardResponse, error) {
	if _, err := s.merchants.FindByID(ctx, req.MerchantID); err != nil {
		return nil, mapNotFound(err, loyalty.ErrMerchantNotFound)
	}

	maxOrder, err := s.rewards.MaxSortOrder(ctx, req.MerchantID)
	if err != nil {
		return nil, err
	}
	reward, err := loyalty.NewReward(req.MerchantID, loyalty.RewardInput{
		Name:              req.Name,
		Description:       req.Description,
		Type:              req.Type,
		Value:             req.Value,
		PointsCost:        req.PointsCost,
		QuantityAvailable: req.QuantityAvailable,
		ValidUntil:        req.ValidUntil,
		IsActive:          req.IsActive,
	}, maxOrder+1, s.now())
	if err != nil {
		return nil, err
	}
	if err := s.rewards.Create(ctx, reward); err != nil {
		return nil, err
	}

	s.logger.Info("Reward created",
		zap.String("reward_id", reward.ID.String()),
		zap.String("merchant_id", reward.MerchantID.String()),
		zap.Int64("points_cost", reward.PointsCost),
	)
	resp := ToRewardResponse(reward)
	return &resp, nil
}

// Update patches a reward. Issued redemptions keep their snapshot.
func (s *RewardService) Update(ctx context.Context, req UpdateRewardRequest) (*RewardResponse, error) {
	reward, err := s.rewards.FindByID(ctx, req.MerchantID, req.RewardID)
	if err != nil {
		return nil, mapNotFound(err, loyalty.ErrRewardNotFound)
	}

	patch := loyalty.RewardPatch{
		Name:              req.Name,
		Description:       req.Description,
		Type:              req.Type,
		Value:             req.Value,
		PointsCost:        req.PointsCost,
		QuantityAvailable: req.QuantityAvailable.Ptr(),
		ClearQuantity:     req.QuantityAvailable.IsNull(),
		IsActive:          req.IsActive,
		SortOrder:         req.SortOrder,
		ValidUntil:        req.ValidUntil.Ptr(),
		ClearValidUntil:   req.ValidUntil.IsNull(),
	}
	if err := reward.Apply(patch, s.now()); err != nil {
		return nil, err
	}
	if err := s.rewards.Save(ctx, reward); err != nil {
		return nil, err
	}

	resp := ToRewardResponse(reward)
	return &resp, nil
}

// Delete removes a reward owned by the merchant. Other merchants' rewards
// are left untouched without error.
func (s *RewardService) Delete(ctx context.Context, merchantID, rewardID uuid.UUID) error {
	if err := s.rewards.Delete(ctx, merchantID, rewardID); err != nil {
		return err
	}
	s.logger.Info("Reward deleted",
		zap.String("reward_id", rewardID.String()),
		zap.String("merchant_id", merchantID.String()),
	)
	return nil
}
