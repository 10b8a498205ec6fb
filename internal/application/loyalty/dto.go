package loyalty

import (
	"bytes"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/qualee/backend/internal/domain/loyalty"
	"github.com/shopspring/decimal"
)

// ClientResponse represents a loyalty account in API responses
type ClientResponse struct {
	ID                uuid.UUID       `json:"id"`
	MerchantID        uuid.UUID       `json:"merchantId"`
	CardID            string          `json:"cardId"`
	QRToken           string          `json:"qrToken"`
	Name              string          `json:"name,omitempty"`
	Phone             string          `json:"phone,omitempty"`
	Email             string          `json:"email,omitempty"`
	ExternalRef       string          `json:"externalRef,omitempty"`
	Birthday          string          `json:"birthday,omitempty"`
	Points            int64           `json:"points"`
	TotalPurchases    int64           `json:"totalPurchases"`
	TotalSpent        decimal.Decimal `json:"totalSpent"`
	Status            string          `json:"status"`
	PreferredLanguage string          `json:"preferredLanguage,omitempty"`
	LastVisit         time.Time       `json:"lastVisit"`
	CreatedAt         time.Time       `json:"createdAt"`
	UpdatedAt         time.Time       `json:"updatedAt"`
}

// ToClientResponse converts a domain Account to ClientResponse
func ToClientResponse(a *loyalty.Account) ClientResponse {
	return ClientResponse{
		ID:                a.ID,
		MerchantID:        a.MerchantID,
		CardID:            a.CardID,
		QRToken:           a.QRToken,
		Name:              a.Name,
		Phone:             a.Phone,
		Email:             a.Email,
		ExternalRef:       a.ExternalRef,
		Birthday:          a.Birthday,
		Points:            a.Points,
		TotalPurchases:    a.TotalPurchases,
		TotalSpent:        a.TotalSpent,
		Status:            string(a.Status),
		PreferredLanguage: a.PreferredLanguage,
		LastVisit:         a.LastVisit,
		CreatedAt:         a.CreatedAt,
		UpdatedAt:         a.UpdatedAt,
	}
}

// ToClientResponses converts a slice of accounts
func ToClientResponses(accounts []loyalty.Account) []ClientResponse {
	out := make([]ClientResponse, len(accounts))
	for i := range accounts {
		out[i] = ToClientResponse(&accounts[i])
	}
	return out
}

// ClientSummary is the denormalized owner view attached to a redemption
type ClientSummary struct {
	Name   string `json:"name,omitempty"`
	Phone  string `json:"phone,omitempty"`
	Email  string `json:"email,omitempty"`
	CardID string `json:"cardId"`
}

// MerchantBrandingResponse is the public merchant view on a card page
type MerchantBrandingResponse struct {
	ID           uuid.UUID `json:"id"`
	BusinessName string    `json:"businessName"`
	LogoURL      string    `json:"logoUrl,omitempty"`
	PrimaryColor string    `json:"primaryColor,omitempty"`
}

// ToMerchantBrandingResponse converts merchant branding
func ToMerchantBrandingResponse(b loyalty.MerchantBranding) *MerchantBrandingResponse {
	return &MerchantBrandingResponse{
		ID:           b.ID,
		BusinessName: b.BusinessName,
		LogoURL:      b.LogoURL,
		PrimaryColor: b.PrimaryColor,
	}
}

// LedgerEntryResponse represents a points transaction
type LedgerEntryResponse struct {
	ID             uuid.UUID        `json:"id"`
	ClientID       uuid.UUID        `json:"clientId"`
	MerchantID     uuid.UUID        `json:"merchantId"`
	Type           string           `json:"type"`
	PointsDelta    int64            `json:"pointsDelta"`
	BalanceAfter   int64            `json:"balanceAfter"`
	PurchaseAmount *decimal.Decimal `json:"purchaseAmount,omitempty"`
	Description    string           `json:"description,omitempty"`
	ReferenceID    string           `json:"referenceId,omitempty"`
	CreatedAt      time.Time        `json:"createdAt"`
}

// ToLedgerEntryResponse converts a ledger entry
func ToLedgerEntryResponse(e *loyalty.LedgerEntry) LedgerEntryResponse {
	return LedgerEntryResponse{
		ID:             e.ID,
		ClientID:       e.AccountID,
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

// RewardResponse represents a catalog reward
type RewardResponse struct {
	ID                uuid.UUID  `json:"id"`
	MerchantID        uuid.UUID  `json:"merchantId"`
	Name              string     `json:"name"`
	Description       string     `json:"description,omitempty"`
	Type              string     `json:"type"`
	Value             string     `json:"value,omitempty"`
	PointsCost        int64      `json:"pointsCost"`
	QuantityAvailable *int64     `json:"quantityAvailable"`
	IsActive          bool       `json:"isActive"`
	SortOrder         int        `json:"sortOrder"`
	ValidUntil        *time.Time `json:"validUntil"`
	TimesRedeemed     *int64     `json:"timesRedeemed,omitempty"`
	CreatedAt         time.Time  `json:"createdAt"`
	UpdatedAt         time.Time  `json:"updatedAt"`
}

// ToRewardResponse converts a domain Reward
func ToRewardResponse(r *loyalty.Reward) RewardResponse {
	return RewardResponse{
		ID:                r.ID,
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
		CreatedAt:         r.CreatedAt,
		UpdatedAt:         r.UpdatedAt,
	}
}

// RedemptionResponse represents an issued reward code
type RedemptionResponse struct {
	ID          uuid.UUID      `json:"id"`
	ClientID    uuid.UUID      `json:"clientId"`
	RewardID    uuid.UUID      `json:"rewardId"`
	MerchantID  uuid.UUID      `json:"merchantId"`
	RewardName  string         `json:"rewardName"`
	RewardValue string         `json:"rewardValue,omitempty"`
	PointsSpent int64          `json:"pointsSpent"`
	Code        string         `json:"code"`
	Status      string         `json:"status"`
	ExpiresAt   time.Time      `json:"expiresAt"`
	UsedAt      *time.Time     `json:"usedAt,omitempty"`
	CancelledAt *time.Time     `json:"cancelledAt,omitempty"`
	CreatedAt   time.Time      `json:"createdAt"`
	Client      *ClientSummary `json:"client,omitempty"`
}

// ToRedemptionResponse converts a domain Redemption
func ToRedemptionResponse(r *loyalty.Redemption) RedemptionResponse {
	return RedemptionResponse{
		ID:          r.ID,
		ClientID:    r.AccountID,
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
		CreatedAt:   r.CreatedAt,
	}
}

// SettingsResponse is a merchant's resolved program settings
type SettingsResponse struct {
	MerchantID              uuid.UUID       `json:"merchantId"`
	BusinessName            string          `json:"businessName"`
	LoyaltyEnabled          bool            `json:"loyaltyEnabled"`
	WelcomePoints           int64           `json:"welcomePoints"`
	PointsPerPurchase       int64           `json:"pointsPerPurchase"`
	PurchaseAmountThreshold decimal.Decimal `json:"purchaseAmountThreshold"`
}

// ========== Requests ==========

// GetOrCreateClientRequest identifies a client by contact for a merchant
type GetOrCreateClientRequest struct {
	MerchantID uuid.UUID `json:"merchantId" binding:"required"`
	Name       string    `json:"name" binding:"max=200"`
	Phone      string    `json:"phone" binding:"omitempty,max=32"`
	Email      string    `json:"email" binding:"omitempty,max=254"`
	UserToken  string    `json:"userToken" binding:"max=128"`
	Language   string    `json:"language" binding:"max=35"`
}

// LookupClientQuery selects a single client. QRCode needs no merchant.
type LookupClientQuery struct {
	MerchantID *uuid.UUID
	ClientID   *uuid.UUID
	QRCode     string
	Phone      string
	Email      string
}

// ClientUpdates lists the profile fields a PATCH may carry. Anything else in
// the payload is ignored.
type ClientUpdates struct {
	Name              *string `json:"name"`
	Phone             *string `json:"phone"`
	Email             *string `json:"email"`
	Birthday          *string `json:"birthday"`
	Status            *string `json:"status"`
	PreferredLanguage *string `json:"preferredLanguage"`
}

// UpdateClientRequest addresses a client by clientId+merchantId or qrCode
type UpdateClientRequest struct {
	ClientID   *uuid.UUID    `json:"clientId"`
	MerchantID *uuid.UUID    `json:"merchantId"`
	QRCode     string        `json:"qrCode"`
	Updates    ClientUpdates `json:"updates"`
}

// ApplyPointsRequest changes a client's balance
type ApplyPointsRequest struct {
	ClientID       uuid.UUID        `json:"clientId" binding:"required"`
	MerchantID     uuid.UUID        `json:"merchantId" binding:"required"`
	Action         string           `json:"action" binding:"required,points_action"`
	Points         *int64           `json:"points"`
	PurchaseAmount *decimal.Decimal `json:"purchaseAmount"`
	Description    string           `json:"description" binding:"max=500"`
	ReferenceID    string           `json:"referenceId" binding:"max=128"`
}

// HistoryQuery pages through a client's ledger
type HistoryQuery struct {
	ClientID   uuid.UUID
	MerchantID *uuid.UUID
	Limit      int
	Offset     int
}

// ListClientsQuery pages through a merchant's clients
type ListClientsQuery struct {
	MerchantID uuid.UUID
	Limit      int
	Offset     int
	SortBy     string
	SortOrder  string
}

// ListRewardsQuery filters the catalog
type ListRewardsQuery struct {
	ActiveOnly   bool
	IncludeStats bool
}

// CreateRewardRequest adds a reward to a merchant catalog
type CreateRewardRequest struct {
	MerchantID        uuid.UUID  `json:"merchantId" binding:"required"`
	Name              string     `json:"name" binding:"max=200"`
	Description       string     `json:"description" binding:"max=2000"`
	Type              string     `json:"type" binding:"required,reward_type"`
	Value             string     `json:"value" binding:"max=200"`
	PointsCost        int64      `json:"pointsCost"`
	QuantityAvailable *int64     `json:"quantityAvailable"`
	ValidUntil        *time.Time `json:"validUntil"`
	IsActive          *bool      `json:"isActive"`
}

// UpdateRewardRequest patches a reward. quantityAvailable and validUntil
// accept an explicit null to clear the limit.
type UpdateRewardRequest struct {
	RewardID          uuid.UUID           `json:"rewardId" binding:"required"`
	MerchantID        uuid.UUID           `json:"merchantId" binding:"required"`
	Name              *string             `json:"name"`
	Description       *string             `json:"description"`
	Type              *string             `json:"type" binding:"omitempty,reward_type"`
	Value             *string             `json:"value"`
	PointsCost        *int64              `json:"pointsCost"`
	QuantityAvailable Nullable[int64]     `json:"quantityAvailable"`
	IsActive          *bool               `json:"isActive"`
	SortOrder         *int                `json:"sortOrder"`
	ValidUntil        Nullable[time.Time] `json:"validUntil"`
}

// RedeemRequest claims a reward for a client
type RedeemRequest struct {
	ClientID   uuid.UUID `json:"clientId" binding:"required"`
	MerchantID uuid.UUID `json:"merchantId" binding:"required"`
	RewardID   uuid.UUID `json:"rewardId" binding:"required"`
}

// ResolveRedemptionRequest consumes or cancels a code
type ResolveRedemptionRequest struct {
	RedemptionCode string    `json:"redemptionCode" binding:"required"`
	MerchantID     uuid.UUID `json:"merchantId" binding:"required"`
	Action         string    `json:"action" binding:"required,resolve_action"`
}

// ListRedemptionsQuery filters a merchant's redemptions
type ListRedemptionsQuery struct {
	MerchantID uuid.UUID
	ClientID   *uuid.UUID
	Status     string
	Limit      int
	Offset     int
}

// UpdateSettingsRequest patches a merchant's program settings
type UpdateSettingsRequest struct {
	MerchantID              uuid.UUID        `json:"merchantId" binding:"required"`
	LoyaltyEnabled          *bool            `json:"loyaltyEnabled"`
	WelcomePoints           *int64           `json:"welcomePoints"`
	PointsPerPurchase       *int64           `json:"pointsPerPurchase"`
	PurchaseAmountThreshold *decimal.Decimal `json:"purchaseAmountThreshold"`
}

// ========== Results ==========

// GetOrCreateClientResult is returned by AccountService.GetOrCreate
type GetOrCreateClientResult struct {
	Client        ClientResponse `json:"client"`
	IsNew         bool           `json:"isNew"`
	WelcomePoints *int64         `json:"welcomePoints,omitempty"`
	CardURL       string         `json:"cardUrl"`
}

// LookupClientResult is returned by AccountService.Lookup
type LookupClientResult struct {
	Client   ClientResponse            `json:"client"`
	Merchant *MerchantBrandingResponse `json:"merchant,omitempty"`
}

// ListClientsResult is returned by AccountService.List
type ListClientsResult struct {
	Clients []ClientResponse `json:"clients"`
	Total   int64            `json:"total"`
}

// ApplyPointsResult is returned by PointsService.Apply
type ApplyPointsResult struct {
	Transaction LedgerEntryResponse `json:"transaction"`
	NewBalance  int64               `json:"newBalance"`
	PointsAdded int64               `json:"pointsAdded"`
}

// HistoryResult is returned by PointsService.History
type HistoryResult struct {
	Transactions   []LedgerEntryResponse `json:"transactions"`
	Total          int64                 `json:"total"`
	CurrentBalance int64                 `json:"currentBalance"`
}

// RedeemResult is returned by RedemptionService.Redeem
type RedeemResult struct {
	RedeemedReward RedemptionResponse `json:"redeemedReward"`
	NewBalance     int64              `json:"newBalance"`
	RedemptionCode string             `json:"redemptionCode"`
}

// ValidateCodeResult is returned by RedemptionService.ValidateCode
type ValidateCodeResult struct {
	RedeemedReward RedemptionResponse `json:"redeemedReward"`
	Found          bool               `json:"found"`
}

// ResolveResult is returned by RedemptionService.Resolve
type ResolveResult struct {
	RedeemedReward RedemptionResponse `json:"redeemedReward"`
	Action         string             `json:"action"`
	Success        bool               `json:"success"`
}

// ListRedemptionsResult is returned by RedemptionService.List
type ListRedemptionsResult struct {
	RedeemedRewards []RedemptionResponse `json:"redeemedRewards"`
	Total           int64                `json:"total"`
}

// Nullable distinguishes an absent JSON field from an explicit null.
type Nullable[T any] struct {
	Set   bool
	Valid bool
	Value T
}

// UnmarshalJSON records that the field was present.
func (n *Nullable[T]) UnmarshalJSON(data []byte) error {
	n.Set = true
	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		n.Valid = false
		return nil
	}
	if err := json.Unmarshal(data, &n.Value); err != nil {
		return err
	}
	n.Valid = true
	return nil
}

// IsNull reports an explicit null.
func (n Nullable[T]) IsNull() bool {
	return n.Set && !n.Valid
}

// Ptr returns the value when one was supplied.
func (n Nullable[T]) Ptr() *T {
	if !n.Valid {
		return nil
	}
	v := n.Value
	return &v
}
