package loyalty

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/qualee/backend/internal/domain/loyalty"
	"go.uber.org/zap"
)

// MerchantService reads and updates program settings
type MerchantService struct {
	merchants loyalty.MerchantRepository
	cfg       Config
	logger    *zap.Logger
	now       func() time.Time
}

// NewMerchantService creates a new MerchantService
func NewMerchantService(merchants loyalty.MerchantRepository, cfg Config, logger *zap.Logger, opts ...Option) *MerchantService {
	o := buildOptions(opts)
	if logger == nil {
		logger = zap.NewNop()
	}
	return &MerchantService{
		merchants: merchants,
		cfg:       cfg.normalized(),
		logger:    logger,
		now:       o.now,
	}
}

// GetSettings returns the merchant's settings resolved against defaults.
func (s *MerchantService) GetSettings(ctx context.Context, merchantID uuid.UUID) (*SettingsResponse, error) {
	merchant, err := s.merchants.FindByID(ctx, merchantID)
	if err != nil {
		return nil, mapNotFound(err, loyalty.ErrMerchantNotFound)
	}
	return s.toSettingsResponse(merchant), nil
}

// UpdateSettings patches the merchant's program settings.
func (s *MerchantService) UpdateSettings(ctx context.Context, req UpdateSettingsRequest) (*SettingsResponse, error) {
	merchant, err := s.merchants.FindByID(ctx, req.MerchantID)
	if err != nil {
		return nil, mapNotFound(err, loyalty.ErrMerchantNotFound)
	}
	if err := merchant.ApplySettings(loyalty.SettingsPatch{
		LoyaltyEnabled:    req.LoyaltyEnabled,
		WelcomePoints:     req.WelcomePoints,
		PointsPerPurchase: req.PointsPerPurchase,
		PurchaseThreshold: req.PurchaseAmountThreshold,
	}, s.now()); err != nil {
		return nil, err
	}
	if err := s.merchants.Save(ctx, merchant); err != nil {
		return nil, err
	}

	s.logger.Info("Loyalty settings updated",
		zap.String("merchant_id", merchant.ID.String()),
		zap.Bool("enabled", merchant.LoyaltyEnabled),
	)
	return s.toSettingsResponse(merchant), nil
}

func (s *MerchantService) toSettingsResponse(m *loyalty.Merchant) *SettingsResponse {
	settings := m.Settings(s.cfg.Defaults)
	return &SettingsResponse{
		MerchantID:              m.ID,
		BusinessName:            m.BusinessName,
		LoyaltyEnabled:          settings.Enabled,
		WelcomePoints:           settings.WelcomePoints,
		PointsPerPurchase:       settings.PointsPerPurchase,
		PurchaseAmountThreshold: settings.PurchaseThreshold,
	}
}
