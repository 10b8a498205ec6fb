package persistence

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
	"github.com/qualee/backend/internal/domain/loyalty"
	"github.com/qualee/backend/internal/domain/shared"
	"github.com/qualee/backend/internal/infrastructure/persistence/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GormAccountRepository implements AccountRepository using GORM
type GormAccountRepository struct {
	db *gorm.DB
}

// NewGormAccountRepository creates a new GormAccountRepository
func NewGormAccountRepository(db *gorm.DB) *GormAccountRepository {
	return &GormAccountRepository{db: db}
}

func (r *GormAccountRepository) first(ctx context.Context, query *gorm.DB) (*loyalty.Account, error) {
	var model models.AccountModel
	if err := query.WithContext(ctx).First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindByID finds an account of a merchant
func (r *GormAccountRepository) FindByID(ctx context.Context, merchantID, id uuid.UUID) (*loyalty.Account, error) {
	return r.first(ctx, r.db.Where("merchant_id = ? AND id = ?", merchantID, id))
}

// FindByIDAnyMerchant finds an account by ID alone
func (r *GormAccountRepository) FindByIDAnyMerchant(ctx context.Context, id uuid.UUID) (*loyalty.Account, error) {
	return r.first(ctx, r.db.Where("id = ?", id))
}

// FindByIDForUpdate finds an account and locks its row until the
// surrounding transaction ends
func (r *GormAccountRepository) FindByIDForUpdate(ctx context.Context, merchantID, id uuid.UUID) (*loyalty.Account, error) {
	return r.first(ctx, r.db.
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("merchant_id = ? AND id = ?", merchantID, id))
}

// FindByQRToken finds an account by its card QR token
func (r *GormAccountRepository) FindByQRToken(ctx context.Context, qrToken string) (*loyalty.Account, error) {
	return r.first(ctx, r.db.Where("qr_token = ?", strings.TrimSpace(qrToken)))
}

// FindByPhone finds an account by normalized phone within a merchant
func (r *GormAccountRepository) FindByPhone(ctx context.Context, merchantID uuid.UUID, phone string) (*loyalty.Account, error) {
	return r.first(ctx, r.db.Where("merchant_id = ? AND phone = ?", merchantID, phone))
}

// FindByEmail finds an account by normalized email within a merchant
func (r *GormAccountRepository) FindByEmail(ctx context.Context, merchantID uuid.UUID, email string) (*loyalty.Account, error) {
	return r.first(ctx, r.db.Where("merchant_id = ? AND email = ?", merchantID, email))
}

// List returns a page of a merchant's accounts, most recent visit first
// unless the page asks for another AccountSortFields order
func (r *GormAccountRepository) List(ctx context.Context, merchantID uuid.UUID, page shared.Page) ([]loyalty.Account, int64, error) {
	var total int64
	if err := r.db.WithContext(ctx).Model(&models.AccountModel{}).
		Where("merchant_id = ?", merchantID).
		Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var accountModels []models.AccountModel
	if err := r.db.WithContext(ctx).
		Where("merchant_id = ?", merchantID).
		Order(orderClause(page, AccountSortFields, "last_visit")).Order("created_at DESC").
		Limit(page.Limit).Offset(page.Offset).
		Find(&accountModels).Error; err != nil {
		return nil, 0, err
	}

	accounts := make([]loyalty.Account, len(accountModels))
	for i := range accountModels {
		accounts[i] = *accountModels[i].ToDomain()
	}
	return accounts, total, nil
}

// Create inserts a new account
func (r *GormAccountRepository) Create(ctx context.Context, account *loyalty.Account) error {
	err := r.db.WithContext(ctx).Create(models.AccountModelFromDomain(account)).Error
	return translateAccountConflict(err)
}

// SaveProfile writes the profile and visit columns. Balance and purchase
// counters are left to ApplyBalanceChange.
func (r *GormAccountRepository) SaveProfile(ctx context.Context, account *loyalty.Account) error {
	model := models.AccountModelFromDomain(account)
	result := r.db.WithContext(ctx).Model(model).
		Select("name", "phone", "email", "external_ref", "birthday", "status", "preferred_language", "last_visit", "updated_at").
		Updates(model)
	if result.Error != nil {
		return translateAccountConflict(result.Error)
	}
	if result.RowsAffected == 0 {
		return shared.ErrNotFound
	}
	return nil
}

// ApplyBalanceChange adds the delta in a single conditional UPDATE so the
// balance cannot go below zero whatever runs concurrently.
func (r *GormAccountRepository) ApplyBalanceChange(ctx context.Context, merchantID, id uuid.UUID, change loyalty.BalanceChange) (int64, error) {
	updates := map[string]any{
		"points":     gorm.Expr("points + ?", change.Delta),
		"last_visit": change.At,
		"updated_at": change.At,
	}
	if change.PurchaseAmount != nil {
		updates["total_purchases"] = gorm.Expr("total_purchases + 1")
		updates["total_spent"] = gorm.Expr("total_spent + ?", *change.PurchaseAmount)
	}

	result := r.db.WithContext(ctx).Model(&models.AccountModel{}).
		Where("id = ? AND merchant_id = ? AND points + ? >= 0", id, merchantID, change.Delta).
		UpdateColumns(updates)
	if result.Error != nil {
		return 0, result.Error
	}

	var model models.AccountModel
	if err := r.db.WithContext(ctx).
		Select("points").
		Where("id = ? AND merchant_id = ?", id, merchantID).
		Take(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return 0, shared.ErrNotFound
		}
		return 0, err
	}
	if result.RowsAffected == 0 {
		return 0, loyalty.NegativeBalance(model.Points)
	}
	return model.Points, nil
}

func translateAccountConflict(err error) error {
	constraint, ok := uniqueViolation(err)
	if !ok {
		return err
	}
	if strings.Contains(constraint, "card_id") || strings.Contains(constraint, "qr_token") {
		return loyalty.ErrCardIDCollision
	}
	return loyalty.ErrContactInUse
}

var _ loyalty.AccountRepository = (*GormAccountRepository)(nil)
