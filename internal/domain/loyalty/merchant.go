package loyalty

import (
	"math"
	"time"

	"github.com/google/uuid"
	"github.com/qualee/backend/internal/domain/shared"
	"github.com/shopspring/decimal"
)

// Program defaults used when a merchant has not configured a value.
const (
	DefaultWelcomePoints     int64 = 50
	DefaultPointsPerPurchase int64 = 10
	DefaultPurchaseThreshold int64 = 1000

	// MaxPointsPerPurchase caps the points a merchant may award per threshold unit.
	MaxPointsPerPurchase int64 = 1_000_000
)

// MaxPurchaseAmount is the largest amount a decimal(18,2) column holds.
var MaxPurchaseAmount = decimal.RequireFromString("9999999999999999.99")

// LoyaltySettings is the resolved earning policy of a merchant.
type LoyaltySettings struct {
	Enabled           bool
	WelcomePoints     int64
	PointsPerPurchase int64
	PurchaseThreshold decimal.Decimal
}

// DefaultLoyaltySettings returns the program defaults.
func DefaultLoyaltySettings() LoyaltySettings {
	return LoyaltySettings{
		Enabled:           true,
		WelcomePoints:     DefaultWelcomePoints,
		PointsPerPurchase: DefaultPointsPerPurchase,
		PurchaseThreshold: decimal.NewFromInt(DefaultPurchaseThreshold),
	}
}

// PointsForPurchase returns floor(amount / threshold) * pointsPerPurchase.
// ok is false when the result does not fit in an int64.
func (s LoyaltySettings) PointsForPurchase(amount decimal.Decimal) (points int64, ok bool) {
	if !amount.IsPositive() || !s.PurchaseThreshold.IsPositive() || s.PointsPerPurchase <= 0 {
		return 0, true
	}
	units := amount.Div(s.PurchaseThreshold).Floor()
	if units.GreaterThan(decimal.NewFromInt(math.MaxInt64 / s.PointsPerPurchase)) {
		return 0, false
	}
	return units.IntPart() * s.PointsPerPurchase, true
}

// MerchantBranding is the public projection shown on a loyalty card.
type MerchantBranding struct {
	ID           uuid.UUID
	BusinessName string
	LogoURL      string
	PrimaryColor string
}

// Merchant is the business running a loyalty program. Nil settings fall back
// to the configured defaults.
type Merchant struct {
	shared.BaseEntity
	BusinessName      string
	LogoURL           string
	PrimaryColor      string
	LoyaltyEnabled    bool
	WelcomePoints     *int64
	PointsPerPurchase *int64
	PurchaseThreshold *decimal.Decimal
}

// NewMerchant creates a merchant with loyalty disabled and default settings.
func NewMerchant(businessName string) (*Merchant, error) {
	if businessName == "" {
		return nil, ErrInvalidRequest.WithDetail("field", "businessName")
	}
	return &Merchant{
		BaseEntity:   shared.NewBaseEntity(),
		BusinessName: businessName,
	}, nil
}

// Settings resolves the merchant's settings against defaults.
func (m *Merchant) Settings(defaults LoyaltySettings) LoyaltySettings {
	s := LoyaltySettings{
		Enabled:           m.LoyaltyEnabled,
		WelcomePoints:     defaults.WelcomePoints,
		PointsPerPurchase: defaults.PointsPerPurchase,
		PurchaseThreshold: defaults.PurchaseThreshold,
	}
	if m.WelcomePoints != nil && *m.WelcomePoints >= 0 {
		s.WelcomePoints = *m.WelcomePoints
	}
	if m.PointsPerPurchase != nil && *m.PointsPerPurchase > 0 {
		s.PointsPerPurchase = *m.PointsPerPurchase
	}
	if m.PurchaseThreshold != nil && m.PurchaseThreshold.IsPositive() {
		s.PurchaseThreshold = *m.PurchaseThreshold
	}
	return s
}

// Branding returns the public card projection.
func (m *Merchant) Branding() MerchantBranding {
	return MerchantBranding{
		ID:           m.ID,
		BusinessName: m.BusinessName,
		LogoURL:      m.LogoURL,
		PrimaryColor: m.PrimaryColor,
	}
}

// SettingsPatch carries a partial settings update.
type SettingsPatch struct {
	LoyaltyEnabled    *bool
	WelcomePoints     *int64
	PointsPerPurchase *int64
	PurchaseThreshold *decimal.Decimal
}

// ApplySettings validates and applies a settings patch.
func (m *Merchant) ApplySettings(p SettingsPatch, now time.Time) error {
	if p.WelcomePoints != nil && *p.WelcomePoints < 0 {
		return ErrInvalidSettings.WithDetail("field", "welcomePoints")
	}
	if p.PointsPerPurchase != nil && (*p.PointsPerPurchase <= 0 || *p.PointsPerPurchase > MaxPointsPerPurchase) {
		return ErrInvalidSettings.WithDetail("field", "pointsPerPurchase")
	}
	if p.PurchaseThreshold != nil && (!p.PurchaseThreshold.IsPositive() || p.PurchaseThreshold.GreaterThan(MaxPurchaseAmount)) {
		return ErrInvalidSettings.WithDetail("field", "purchaseAmountThreshold")
	}

	if p.LoyaltyEnabled != nil {
		m.LoyaltyEnabled = *p.LoyaltyEnabled
	}
	if p.WelcomePoints != nil {
		v := *p.WelcomePoints
		m.WelcomePoints = &v
	}
	if p.PointsPerPurchase != nil {
		v := *p.PointsPerPurchase
		m.PointsPerPurchase = &v
	}
	if p.PurchaseThreshold != nil {
		v := *p.PurchaseThreshold
		m.PurchaseThreshold = &v
	}
	m.Touch(now)
	return nil
}
