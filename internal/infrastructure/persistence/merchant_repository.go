package persistence

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/qualee/backend/internal/domain/loyalty"
	"github.com/qualee/backend/internal/domain/shared"
	"github.com/qualee/backend/internal/infrastructure/persistence/models"
	"gorm.io/gorm"
)

// GormMerchantRepository implements MerchantRepository using GORM
type GormMerchantRepository struct {
	db *gorm.DB
}

// NewGormMerchantRepository creates a new GormMerchantRepository
func NewGormMerchantRepository(db *gorm.DB) *GormMerchantRepository {
	return &GormMerchantRepository{db: db}
}

// FindByID finds a merchant by ID
func (r *GormMerchantRepository) FindByID(ctx context.Context, id uuid.UUID) (*loyalty.Merchant, error) {
	var model models.MerchantModel
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// Save creates or updates a merchant
func (r *GormMerchantRepository) Save(ctx context.Context, merchant *loyalty.Merchant) error {
	return r.db.WithContext(ctx).Save(models.MerchantModelFromDomain(merchant)).Error
}

var _ loyalty.MerchantRepository = (*GormMerchantRepository)(nil)
