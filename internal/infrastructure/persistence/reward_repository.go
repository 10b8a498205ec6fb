package persistence

import (
	"context"
	"database/sql"
	"errors"

	"github.com/google/uuid"
	"github.com/qualee/backend/internal/domain/loyalty"
	"github.com/qualee/backend/internal/domain/shared"
	"github.com/qualee/backend/internal/infrastructure/persistence/models"
	"gorm.io/gorm"
)

// GormRewardRepository implements RewardRepository using GORM
type GormRewardRepository struct {
	db *gorm.DB
}

// NewGormRewardRepository creates a new GormRewardRepository
func NewGormRewardRepository(db *gorm.DB) *GormRewardRepository {
	return &GormRewardRepository{db: db}
}

// FindByID finds a reward of a merchant
func (r *GormRewardRepository) FindByID(ctx context.Context, merchantID, id uuid.UUID) (*loyalty.Reward, error) {
	var model models.RewardModel
	if err := r.db.WithContext(ctx).
		Where("merchant_id = ? AND id = ?", merchantID, id).
		First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// List returns the catalog ordered by sort order, then points cost
func (r *GormRewardRepository) List(ctx context.Context, merchantID uuid.UUID, filter loyalty.RewardFilter) ([]loyalty.Reward, error) {
	query := r.db.WithContext(ctx).Where("merchant_id = ?", merchantID)
	if filter.ActiveOnly {
		query = query.Where("is_active = ?", true)
	}

	var rewardModels []models.RewardModel
	if err := query.Order("sort_order ASC").Order("points_cost ASC").Find(&rewardModels).Error; err != nil {
		return nil, err
	}

	rewards := make([]loyalty.Reward, len(rewardModels))
	for i := range rewardModels {
		rewards[i] = *rewardModels[i].ToDomain()
	}
	return rewards, nil
}

// MaxSortOrder returns the highest sort order in the catalog, 0 when empty
func (r *GormRewardRepository) MaxSortOrder(ctx context.Context, merchantID uuid.UUID) (int, error) {
	var maxOrder sql.NullInt64
	if err := r.db.WithContext(ctx).Model(&models.RewardModel{}).
		Where("merchant_id = ?", merchantID).
		Select("MAX(sort_order)").
		Row().Scan(&maxOrder); err != nil {
		return 0, err
	}
	return int(maxOrder.Int64), nil
}

// Create inserts a reward
func (r *GormRewardRepository) Create(ctx context.Context, reward *loyalty.Reward) error {
	return r.db.WithContext(ctx).Create(models.RewardModelFromDomain(reward)).Error
}

// Save writes every reward column, including cleared quantity and expiry
func (r *GormRewardRepository) Save(ctx context.Context, reward *loyalty.Reward) error {
	model := models.RewardModelFromDomain(reward)
	result := r.db.WithContext(ctx).Model(model).
		Where("merchant_id = ?", reward.MerchantID).
		Select("*").Omit("id", "merchant_id", "created_at").
		Updates(model)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return shared.ErrNotFound
	}
	return nil
}

// Delete hard-deletes a reward. The merchant filter turns cross-merchant
// deletes into no-ops.
func (r *GormRewardRepository) Delete(ctx context.Context, merchantID, id uuid.UUID) error {
	return r.db.WithContext(ctx).
		Where("merchant_id = ? AND id = ?", merchantID, id).
		Delete(&models.RewardModel{}).Error
}

// DecrementStock takes one unit from a finite stock
func (r *GormRewardRepository) DecrementStock(ctx context.Context, merchantID, id uuid.UUID) (int64, error) {
	result := r.db.WithContext(ctx).Model(&models.RewardModel{}).
		Where("merchant_id = ? AND id = ? AND quantity_available IS NOT NULL AND quantity_available > 0", merchantID, id).
		UpdateColumn("quantity_available", gorm.Expr("quantity_available - 1"))
	if result.Error != nil {
		return 0, result.Error
	}
	if result.RowsAffected == 0 {
		return 0, loyalty.ErrOutOfStock
	}

	var model models.RewardModel
	if err := r.db.WithContext(ctx).
		Select("quantity_available").
		Where("id = ?", id).
		Take(&model).Error; err != nil {
		return 0, err
	}
	if model.QuantityAvailable == nil {
		return 0, nil
	}
	return *model.QuantityAvailable, nil
}

var _ loyalty.RewardRepository = (*GormRewardRepository)(nil)
