package persistence

import (
	"context"

	"github.com/google/uuid"
	"github.com/qualee/backend/internal/domain/loyalty"
	"github.com/qualee/backend/internal/domain/shared"
	"github.com/qualee/backend/internal/infrastructure/persistence/models"
	"gorm.io/gorm"
)

// GormLedgerRepository implements LedgerRepository using GORM
type GormLedgerRepository struct {
	db *gorm.DB
}

// NewGormLedgerRepository creates a new GormLedgerRepository
func NewGormLedgerRepository(db *gorm.DB) *GormLedgerRepository {
	return &GormLedgerRepository{db: db}
}

// Create appends a ledger entry
func (r *GormLedgerRepository) Create(ctx context.Context, entry *loyalty.LedgerEntry) error {
	return r.db.WithContext(ctx).Create(models.LedgerEntryModelFromDomain(entry)).Error
}

// ListByAccount returns an account's entries newest first
func (r *GormLedgerRepository) ListByAccount(ctx context.Context, accountID uuid.UUID, merchantID *uuid.UUID, page shared.Page) ([]loyalty.LedgerEntry, int64, error) {
	scope := func(db *gorm.DB) *gorm.DB {
		db = db.Where("account_id = ?", accountID)
		if merchantID != nil {
			db = db.Where("merchant_id = ?", *merchantID)
		}
		return db
	}

	var total int64
	if err := r.db.WithContext(ctx).Model(&models.LedgerEntryModel{}).
		Scopes(scope).
		Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var entryModels []models.LedgerEntryModel
	if err := r.db.WithContext(ctx).
		Scopes(scope).
		Order("created_at DESC").
		Limit(page.Limit).Offset(page.Offset).
		Find(&entryModels).Error; err != nil {
		return nil, 0, err
	}

	entries := make([]loyalty.LedgerEntry, len(entryModels))
	for i := range entryModels {
		entries[i] = *entryModels[i].ToDomain()
	}
	return entries, total, nil
}

var _ loyalty.LedgerRepository = (*GormLedgerRepository)(nil)
