package persistence

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/qualee/backend/internal/domain/loyalty"
	"github.com/qualee/backend/internal/domain/shared"
	"github.com/qualee/backend/internal/infrastructure/persistence/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GormRedemptionRepository implements RedemptionRepository using GORM
type GormRedemptionRepository struct {
	db *gorm.DB
}

// NewGormRedemptionRepository creates a new GormRedemptionRepository
func NewGormRedemptionRepository(db *gorm.DB) *GormRedemptionRepository {
	return &GormRedemptionRepository{db: db}
}

// Create inserts a redemption
func (r *GormRedemptionRepository) Create(ctx context.Context, redemption *loyalty.Redemption) error {
	err := r.db.WithContext(ctx).Create(models.RedemptionModelFromDomain(redemption)).Error
	if _, ok := uniqueViolation(err); ok {
		return loyalty.ErrCodeCollision
	}
	return err
}

func (r *GormRedemptionRepository) first(ctx context.Context, query *gorm.DB) (*loyalty.Redemption, error) {
	var model models.RedemptionModel
	if err := query.WithContext(ctx).First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindByCode finds a redemption by code across merchants
func (r *GormRedemptionRepository) FindByCode(ctx context.Context, code string) (*loyalty.Redemption, error) {
	return r.first(ctx, r.db.Where("code = ?", code))
}

// FindByCodeForMerchant finds a redemption by code within a merchant
func (r *GormRedemptionRepository) FindByCodeForMerchant(ctx context.Context, merchantID uuid.UUID, code string) (*loyalty.Redemption, error) {
	return r.first(ctx, r.db.Where("merchant_id = ? AND code = ?", merchantID, code))
}

// FindByCodeForUpdate finds and locks a merchant's redemption
func (r *GormRedemptionRepository) FindByCodeForUpdate(ctx context.Context, merchantID uuid.UUID, code string) (*loyalty.Redemption, error) {
	return r.first(ctx, r.db.
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("merchant_id = ? AND code = ?", merchantID, code))
}

// List returns a merchant's redemptions newest first
func (r *GormRedemptionRepository) List(ctx context.Context, merchantID uuid.UUID, filter loyalty.RedemptionFilter, page shared.Page) ([]loyalty.Redemption, int64, error) {
	scope := func(db *gorm.DB) *gorm.DB {
		db = db.Where("merchant_id = ?", merchantID)
		if filter.AccountID != nil {
			db = db.Where("account_id = ?", *filter.AccountID)
		}
		if filter.Status != nil {
			db = db.Where("status = ?", string(*filter.Status))
		}
		return db
	}

	var total int64
	if err := r.db.WithContext(ctx).Model(&models.RedemptionModel{}).
		Scopes(scope).
		Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var redemptionModels []models.RedemptionModel
	if err := r.db.WithContext(ctx).
		Scopes(scope).
		Order("created_at DESC").
		Limit(page.Limit).Offset(page.Offset).
		Find(&redemptionModels).Error; err != nil {
		return nil, 0, err
	}

	redemptions := make([]loyalty.Redemption, len(redemptionModels))
	for i := range redemptionModels {
		redemptions[i] = *redemptionModels[i].ToDomain()
	}
	return redemptions, total, nil
}

// CountByReward counts issued redemptions per reward
func (r *GormRedemptionRepository) CountByReward(ctx context.Context, merchantID uuid.UUID, rewardIDs []uuid.UUID) (map[uuid.UUID]int64, error) {
	counts := make(map[uuid.UUID]int64, len(rewardIDs))
	if len(rewardIDs) == 0 {
		return counts, nil
	}

	var rows []struct {
		RewardID uuid.UUID
		Total    int64
	}
	if err := r.db.WithContext(ctx).Model(&models.RedemptionModel{}).
		Select("reward_id, COUNT(*) AS total").
		Where("merchant_id = ? AND reward_id IN ?", merchantID, rewardIDs).
		Group("reward_id").
		Scan(&rows).Error; err != nil {
		return nil, err
	}
	for _, row := range rows {
		counts[row.RewardID] = row.Total
	}
	return counts, nil
}

// UpdateStatus moves a redemption out of the from state. Zero affected
// rows means another request resolved it first.
func (r *GormRedemptionRepository) UpdateStatus(ctx context.Context, redemption *loyalty.Redemption, from loyalty.RedemptionStatus) error {
	result := r.db.WithContext(ctx).Model(&models.RedemptionModel{}).
		Where("id = ? AND status = ?", redemption.ID, string(from)).
		UpdateColumns(map[string]any{
			"status":       string(redemption.Status),
			"used_at":      redemption.UsedAt,
			"cancelled_at": redemption.CancelledAt,
			"updated_at":   redemption.UpdatedAt,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return shared.ErrConcurrencyConflict
	}
	return nil
}

var _ loyalty.RedemptionRepository = (*GormRedemptionRepository)(nil)
