package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/qualee/backend/internal/domain/loyalty"
	"github.com/shopspring/decimal"
)

// MerchantModel is the persistence model for Merchant.
type MerchantModel struct {
	BaseModel
	BusinessName            string           `gorm:"type:varchar(200);not null"`
	LogoURL                 string           `gorm:"type:varchar(500)"`
	PrimaryColor            string           `gorm:"type:varchar(20)"`
	LoyaltyEnabled          bool             `gorm:"not null;default:false"`
	WelcomePoints           *int64
	PointsPerPurchase       *int64
	PurchaseAmountThreshold *decimal.Decimal `gorm:"type:decimal(18,2)"`
}

// TableName returns the table name for GORM
func (MerchantModel) TableName() string {
	return "merchants"
}

// ToDomain converts the model to a domain Merchant
func (m *MerchantModel) ToDomain() *loyalty.Merchant {
	return &loyalty.Merchant{
		BaseEntity:        m.BaseModel.ToDomain(),
		BusinessName:      m.BusinessName,
		LogoURL:           m.LogoURL,
		PrimaryColor:      m.PrimaryColor,
		LoyaltyEnabled:    m.LoyaltyEnabled,
		WelcomePoints:     m.WelcomePoints,
		PointsPerPurchase: m.PointsPerPurchase,
		PurchaseThreshold: m.PurchaseAmountThreshold,
	}
}

// MerchantModelFromDomain creates a model from a domain Merchant
func MerchantModelFromDomain(m *loyalty.Merchant) *MerchantModel {
	model := &MerchantModel{
		BusinessName:            m.BusinessName,
		LogoURL:                 m.LogoURL,
		PrimaryColor:            m.PrimaryColor,
		LoyaltyEnabled:          m.LoyaltyEnabled,
		WelcomePoints:           m.WelcomePoints,
		PointsPerPurchase:       m.PointsPerPurchase,
		PurchaseAmountThreshold: m.PurchaseThreshold,
	}
	model.FromDomainBaseEntity(m.BaseEntity)
	return model
}

// AccountModel is the persistence model for a loyalty Account.
// Phone and email are nullable so the per-merchant unique indexes only
// apply to supplied values.
type AccountModel struct {
	BaseModel
	MerchantID        uuid.UUID       `gorm:"type:uuid;not null;index;uniqueIndex:idx_loyalty_accounts_merchant_phone,priority:1;uniqueIndex:idx_loyalty_accounts_merchant_email,priority:1"`
	CardID            string          `gorm:"type:varchar(32);not null;uniqueIndex:idx_loyalty_accounts_card_id"`
	QRToken           string          `gorm:"type:varchar(64);not null;uniqueIndex:idx_loyalty_accounts_qr_token"`
	Name              string          `gorm:"type:varchar(200)"`
	Phone             *string         `gorm:"type:varchar(32);uniqueIndex:idx_loyalty_accounts_merchant_phone,priority:2"`
	Email             *string         `gorm:"type:varchar(254);uniqueIndex:idx_loyalty_accounts_merchant_email,priority:2"`
	ExternalRef       string          `gorm:"type:varchar(128)"`
	Birthday          string          `gorm:"type:varchar(10)"`
	Points            int64           `gorm:"not null;default:0;check:chk_loyalty_accounts_points,points >= 0"`
	TotalPurchases    int64           `gorm:"not null;default:0"`
	TotalSpent        decimal.Decimal `gorm:"type:decimal(18,2);not null;default:0"`
	Status            string          `gorm:"type:varchar(20);not null;default:'active'"`
	PreferredLanguage string          `gorm:"type:varchar(35)"`
	LastVisit         time.Time       `gorm:"not null"`
}

// TableName returns the table name for GORM
func (AccountModel) TableName() string {
	return "loyalty_accounts"
}

// ToDomain converts the model to a domain Account
func (m *AccountModel) ToDomain() *loyalty.Account {
	return &loyalty.Account{
		BaseEntity:        m.BaseModel.ToDomain(),
		MerchantID:        m.MerchantID,
		CardID:            m.CardID,
		QRToken:           m.QRToken,
		Name:              m.Name,
		Phone:             derefString(m.Phone),
		Email:             derefString(m.Email),
		ExternalRef:       m.ExternalRef,
		Birthday:          m.Birthday,
		Points:            m.Points,
		TotalPurchases:    m.TotalPurchases,
		TotalSpent:        m.TotalSpent,
		Status:            loyalty.AccountStatus(m.Status),
		PreferredLanguage: m.PreferredLanguage,
		LastVisit:         m.LastVisit,
	}
}

// AccountModelFromDomain creates a model from a domain Account
func AccountModelFromDomain(a *loyalty.Account) *AccountModel {
	model := &AccountModel{
		MerchantID:        a.MerchantID,
		CardID:            a.CardID,
		QRToken:           a.QRToken,
		Name:              a.Name,
		Phone:             nullString(a.Phone),
		Email:             nullString(a.Email),
		ExternalRef:       a.ExternalRef,
		Birthday:          a.Birthday,
		Points:            a.Points,
		TotalPurchases:    a.TotalPurchases,
		TotalSpent:        a.TotalSpent,
		Status:            string(a.Status),
		PreferredLanguage: a.PreferredLanguage,
		LastVisit:         a.LastVisit,
	}
	model.FromDomainBaseEntity(a.BaseEntity)
	return model
}

// LedgerEntryModel is the persistence model for a LedgerEntry. Rows are
// only ever inserted.
type LedgerEntryModel struct {
	ID             uuid.UUID        `gorm:"type:uuid;primaryKey"`
	AccountID      uuid.UUID        `gorm:"type:uuid;not null;index:idx_loyalty_ledger_account_created,priority:1"`
	MerchantID     uuid.UUID        `gorm:"type:uuid;not null;index"`
	Type           string           `gorm:"type:varchar(20);not null"`
	PointsDelta    int64            `gorm:"not null"`
	BalanceAfter   int64            `gorm:"not null"`
	PurchaseAmount *decimal.Decimal `gorm:"type:decimal(18,2)"`
	Description    string           `gorm:"type:varchar(500)"`
	ReferenceID    string           `gorm:"type:varchar(128)"`
	CreatedAt      time.Time        `gorm:"not null;index:idx_loyalty_ledger_account_created,priority:2"`
}

// TableName returns the table name for GORM
func (LedgerEntryModel) TableName() string {
	return "loyalty_ledger_entries"
}

// ToDomain converts the model to a domain LedgerEntry
func (m *LedgerEntryModel) ToDomain() *loyalty.LedgerEntry {
	return &loyalty.LedgerEntry{
		ID:             m.ID,
		AccountID:      m.AccountID,
		MerchantID:     m.MerchantID,
		Type:           loyalty.EntryType(m.Type),
		PointsDelta:    m.PointsDelta,
		BalanceAfter:   m.BalanceAfter,
		PurchaseAmount: m.PurchaseAmount,
		Description:    m.Description,
		ReferenceID:    m.ReferenceID,
		CreatedAt:      m.CreatedAt,
	}
}

// LedgerEntryModelFromDomain creates a model from a domain LedgerEntry
func LedgerEntryModelFromDomain(e *loyalty.LedgerEntry) *LedgerEntryModel {
	return &LedgerEntryModel{
		ID:             e.ID,
		AccountID:      e.AccountID,
		MerchantID:     e.MerchantID,
		Type:           string(e.Type),
		PointsDelta:    e.PointsDelta,
		BalanceAfter:   e.BalanceAfter,
		PurchaseAmount: e.PurchaseAmount,
		Description:    e.Description,
		ReferenceID:    e.ReferenceID,
		CreatedAt:      e.CreatedAt,
	}
}

// RewardModel is the persistence model for a catalog Reward.
type RewardModel struct {
	BaseModel
	MerchantID        uuid.UUID  `gorm:"type:uuid;not null;index:idx_rewards_merchant_sort,priority:1"`
	Name              string     `gorm:"type:varchar(200);not null"`
	Description       string     `gorm:"type:text"`
	Type              string     `gorm:"type:varchar(20);not null"`
	Value             string     `gorm:"type:varchar(200)"`
	PointsCost        int64      `gorm:"not null"`
	QuantityAvailable *int64
	IsActive          bool       `gorm:"not null"`
	SortOrder         int        `gorm:"not null;default:0;index:idx_rewards_merchant_sort,priority:2"`
	ValidUntil        *time.Time
}

// TableName returns the table name for GORM
func (RewardModel) TableName() string {
	return "rewards"
}

// ToDomain converts the model to a domain Reward
func (m *RewardModel) ToDomain() *loyalty.Reward {
	return &loyalty.Reward{
		BaseEntity:        m.BaseModel.ToDomain(),
		MerchantID:        m.MerchantID,
		Name:              m.Name,
		Description:       m.Description,
		Type:              loyalty.RewardType(m.Type),
		Value:             m.Value,
		PointsCost:        m.PointsCost,
		QuantityAvailable: m.QuantityAvailable,
		IsActive:          m.IsActive,
		SortOrder:         m.SortOrder,
		ValidUntil:        m.ValidUntil,
	}
}

// RewardModelFromDomain creates a model from a domain Reward
func RewardModelFromDomain(r *loyalty.Reward) *RewardModel {
	model := &RewardModel{
		MerchantID:        r.MerchantID,
		Name:              r.Name,
		Description:       r.Description,
		Type:              string(r.Type),
		Value:             r.Value,
		PointsCost:        r.PointsCost,
		QuantityAvailable: r.QuantityAvailable,
		IsActive:          r.IsActive,
		SortOrder:         r.SortOrder,
		ValidUntil:        r.ValidUntil,
	}
	model.FromDomainBaseEntity(r.BaseEntity)
	return model
}

// RedemptionModel is the persistence model for an issued Redemption.
type RedemptionModel struct {
	BaseModel
	AccountID   uuid.UUID  `gorm:"type:uuid;not null;index"`
	RewardID    uuid.UUID  `gorm:"type:uuid;not null;index"`
	MerchantID  uuid.UUID  `gorm:"type:uuid;not null;index"`
	RewardName  string     `gorm:"type:varchar(200);not null"`
	RewardValue string     `gorm:"type:varchar(200)"`
	PointsSpent int64      `gorm:"not null"`
	Code        string     `gorm:"type:varchar(16);not null;uniqueIndex:idx_redemptions_code"`
	Status      string     `gorm:"type:varchar(20);not null;default:'pending'"`
	ExpiresAt   time.Time  `gorm:"not null"`
	UsedAt      *time.Time
	CancelledAt *time.Time
}

// TableName returns the table name for GORM
func (RedemptionModel) TableName() string {
	return "redemptions"
}

// ToDomain converts the model to a domain Redemption
func (m *RedemptionModel) ToDomain() *loyalty.Redemption {
	return &loyalty.Redemption{
		BaseEntity:  m.BaseModel.ToDomain(),
		AccountID:   m.AccountID,
		RewardID:    m.RewardID,
		MerchantID:  m.MerchantID,
		RewardName:  m.RewardName,
		RewardValue: m.RewardValue,
		PointsSpent: m.PointsSpent,
		Code:        m.Code,
		Status:      loyalty.RedemptionStatus(m.Status),
		ExpiresAt:   m.ExpiresAt,
		UsedAt:      m.UsedAt,
		CancelledAt: m.CancelledAt,
	}
}

// RedemptionModelFromDomain creates a model from a domain Redemption
func RedemptionModelFromDomain(r *loyalty.Redemption) *RedemptionModel {
	model := &RedemptionModel{
		AccountID:   r.AccountID,
		RewardID:    r.RewardID,
		MerchantID:  r.MerchantID,
		RewardName:  r.RewardName,
		RewardValue: r.RewardValue,
		PointsSpent: r.PointsSpent,
		Code:        r.Code,
		Status:      string(r.Status),
		ExpiresAt:   r.ExpiresAt,
		UsedAt:      r.UsedAt,
		CancelledAt: r.CancelledAt,
	}
	model.FromDomainBaseEntity(r.BaseEntity)
	return model
}

// AllModels lists every model for AutoMigrate in tests and tooling.
func AllModels() []any {
	return []any{
		&MerchantModel{},
		&AccountModel{},
		&LedgerEntryModel{},
		&RewardModel{},
		&RedemptionModel{},
	}
}
