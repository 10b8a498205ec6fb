package handler

import (
	"context"

	"github.com/google/uuid"
	apployalty "github.com/qualee/backend/internal/application/loyalty"
	"github.com/stretchr/testify/mock"
)

type mockDirectory struct{ mock.Mock }

func (m *mockDirectory) GetOrCreate(ctx context.Context, req apployalty.GetOrCreateClientRequest) (*apployalty.GetOrCreateClientResult, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*apployalty.GetOrCreateClientResult), args.Error(1)
}

func (m *mockDirectory) Lookup(ctx context.Context, q apployalty.LookupClientQuery) (*apployalty.LookupClientResult, error) {
	args := m.Called(ctx, q)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*apployalty.LookupClientResult), args.Error(1)
}

func (m *mockDirectory) List(ctx context.Context, q apployalty.ListClientsQuery) (*apployalty.ListClientsResult, error) {
	args := m.Called(ctx, q)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*apployalty.ListClientsResult), args.Error(1)
}

func (m *mockDirectory) Update(ctx context.Context, req apployalty.UpdateClientRequest) (*apployalty.ClientResponse, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*apployalty.ClientResponse), args.Error(1)
}

type mockLedger struct{ mock.Mock }

func (m *mockLedger) Apply(ctx context.Context, req apployalty.ApplyPointsRequest) (*apployalty.ApplyPointsResult, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*apployalty.ApplyPointsResult), args.Error(1)
}

func (m *mockLedger) History(ctx context.Context, q apployalty.HistoryQuery) (*apployalty.HistoryResult, error) {
	args := m.Called(ctx, q)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*apployalty.HistoryResult), args.Error(1)
}

type mockRedemptions struct{ mock.Mock }

func (m *mockRedemptions) Redeem(ctx context.Context, req apployalty.RedeemRequest) (*apployalty.RedeemResult, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*apployalty.RedeemResult), args.Error(1)
}

func (m *mockRedemptions) ValidateCode(ctx context.Context, code string, merchantID *uuid.UUID) (*apployalty.ValidateCodeResult, error) {
	args := m.Called(ctx, code, merchantID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*apployalty.ValidateCodeResult), args.Error(1)
}

func (m *mockRedemptions) Resolve(ctx context.Context, req apployalty.ResolveRedemptionRequest) (*apployalty.ResolveResult, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*apployalty.ResolveResult), args.Error(1)
}

func (m *mockRedemptions) List(ctx context.Context, q apployalty.ListRedemptionsQuery) (*apployalty.ListRedemptionsResult, error) {
	args := m.Called(ctx, q)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*apployalty.ListRedemptionsResult), args.Error(1)
}

type mockCatalog struct{ mock.Mock }

func (m *mockCatalog) List(ctx context.Context, merchantID uuid.UUID, q apployalty.ListRewardsQuery) ([]apployalty.RewardResponse, error) {
	args := m.Called(ctx, merchantID, q)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]apployalty.RewardResponse), args.Error(1)
}

func (m *mockCatalog) Get(ctx context.Context, merchantID, rewardID uuid.UUID) (*apployalty.RewardResponse, error) {
	args := m.Called(ctx, merchantID, rewardID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*apployalty.RewardResponse), args.Error(1)
}

func (m *mockCatalog) Create(ctx context.Context, req apployalty.CreateRewardRequest) (*apployalty.RewardResponse, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*apployalty.RewardResponse), args.Error(1)
}

func (m *mockCatalog) Update(ctx context.Context, req apployalty.UpdateRewardRequest) (*apployalty.RewardResponse, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*apployalty.RewardResponse), args.Error(1)
}

func (m *mockCatalog) Delete(ctx context.Context, merchantID, rewardID uuid.UUID) error {
	return m.Called(ctx, merchantID, rewardID).Error(0)
}

type mockSettings struct{ mock.Mock }

func (m *mockSettings) GetSettings(ctx context.Context, merchantID uuid.UUID) (*apployalty.SettingsResponse, error) {
	args := m.Called(ctx, merchantID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*apployalty.SettingsResponse), args.Error(1)
}

func (m *mockSettings) UpdateSettings(ctx context.Context, req apployalty.UpdateSettingsRequest) (*apployalty.SettingsResponse, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*apployalty.SettingsResponse), args.Error(1)
}
