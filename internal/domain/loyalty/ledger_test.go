package loyalty

import (
	"math"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/qualee/backend/internal/domain/shared"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func int64Ptr(v int64) *int64 { return &v }

func decimalPtr(s string) *decimal.Decimal {
	d := decimal.RequireFromString(s)
	return &d
}

func TestParsePointsAction(t *testing.T) {
	for _, s := range []string{"earn", "bonus", "adjustment", "redeem", " EARN "} {
		_, err := ParsePointsAction(s)
		assert.NoError(t, err, s)
	}

	_, err := ParsePointsAction("refund")
	assert.ErrorIs(t, err, ErrInvalidAction)
}

func TestLoyaltySettings_PointsForPurchase(t *testing.T) {
	s := DefaultLoyaltySettings()
	points := func(amount decimal.Decimal) int64 {
		t.Helper()
		p, ok := s.PointsForPurchase(amount)
		require.True(t, ok)
		return p
	}

	assert.Equal(t, int64(20), points(decimal.NewFromInt(2500)))
	assert.Equal(t, int64(10), points(decimal.NewFromInt(1000)))
	assert.Equal(t, int64(0), points(decimal.NewFromInt(999)))
	assert.Equal(t, int64(0), points(decimal.NewFromInt(-5)))

	s.PurchaseThreshold = decimal.RequireFromString("500.50")
	assert.Equal(t, int64(20), points(decimal.NewFromInt(1001)))
}

func TestLoyaltySettings_PointsForPurchaseOverflow(t *testing.T) {
	s := LoyaltySettings{Enabled: true, PointsPerPurchase: 20000, PurchaseThreshold: decimal.NewFromInt(1)}

	_, ok := s.PointsForPurchase(decimal.RequireFromString("1000000000000000"))
	assert.False(t, ok, "2e19 points does not fit in int64")

	limit := decimal.NewFromInt(math.MaxInt64 / 20000)
	p, ok := s.PointsForPurchase(limit)
	require.True(t, ok)
	assert.Equal(t, limit.IntPart()*20000, p)

	_, ok = s.PointsForPurchase(limit.Add(decimal.NewFromInt(1)))
	assert.False(t, ok)
}

func TestComputeDelta_RejectsOversizedValues(t *testing.T) {
	t.Run("amount beyond column precision", func(t *testing.T) {
		_, err := ComputeDelta(PointsRequest{Action: ActionEarn, PurchaseAmount: decimalPtr("1e22")}, DefaultLoyaltySettings(), 0)
		assert.ErrorIs(t, err, ErrInvalidPurchaseAmount)
	})

	t.Run("points product beyond int64", func(t *testing.T) {
		settings := LoyaltySettings{Enabled: true, PointsPerPurchase: 20000, PurchaseThreshold: decimal.NewFromInt(1)}
		delta, err := ComputeDelta(PointsRequest{Action: ActionEarn, PurchaseAmount: decimalPtr("1000000000000000")}, settings, 0)
		assert.ErrorIs(t, err, ErrInvalidPurchaseAmount)
		assert.Zero(t, delta)
	})

	t.Run("credit would overflow the balance", func(t *testing.T) {
		_, err := ComputeDelta(PointsRequest{Action: ActionBonus, Points: int64Ptr(10)}, DefaultLoyaltySettings(), math.MaxInt64-5)
		assert.ErrorIs(t, err, ErrInvalidPoints)
	})

	t.Run("largest storable amount is accepted", func(t *testing.T) {
		delta, err := ComputeDelta(PointsRequest{Action: ActionEarn, PurchaseAmount: &MaxPurchaseAmount}, DefaultLoyaltySettings(), 0)
		require.NoError(t, err)
		assert.Equal(t, int64(99999999999990), delta)
	})
}

func TestComputeDelta(t *testing.T) {
	settings := DefaultLoyaltySettings()

	tests := []struct {
		name    string
		req     PointsRequest
		balance int64
		want    int64
		wantErr *shared.DomainError
	}{
		{
			name:    "earn floors purchase into threshold units",
			req:     PointsRequest{Action: ActionEarn, PurchaseAmount: decimalPtr("2500")},
			balance: 0,
			want:    20,
		},
		{
			name:    "earn below threshold",
			req:     PointsRequest{Action: ActionEarn, PurchaseAmount: decimalPtr("999.99")},
			wantErr: ErrBelowThreshold,
		},
		{
			name:    "earn without amount",
			req:     PointsRequest{Action: ActionEarn},
			wantErr: ErrInvalidPurchaseAmount,
		},
		{
			name:    "earn with zero amount",
			req:     PointsRequest{Action: ActionEarn, PurchaseAmount: decimalPtr("0")},
			wantErr: ErrInvalidPurchaseAmount,
		},
		{
			name: "bonus adds exact amount",
			req:  PointsRequest{Action: ActionBonus, Points: int64Ptr(15)},
			want: 15,
		},
		{
			name:    "bonus must be positive",
			req:     PointsRequest{Action: ActionBonus, Points: int64Ptr(0)},
			wantErr: ErrInvalidPoints,
		},
		{
			name:    "adjustment may be negative",
			req:     PointsRequest{Action: ActionAdjustment, Points: int64Ptr(-30)},
			balance: 40,
			want:    -30,
		},
		{
			name:    "adjustment cannot go below zero",
			req:     PointsRequest{Action: ActionAdjustment, Points: int64Ptr(-50)},
			balance: 40,
			wantErr: ErrNegativeBalance,
		},
		{
			name:    "adjustment requires points",
			req:     PointsRequest{Action: ActionAdjustment},
			wantErr: ErrMissingPoints,
		},
		{
			name:    "redeem subtracts",
			req:     PointsRequest{Action: ActionRedeem, Points: int64Ptr(40)},
			balance: 100,
			want:    -40,
		},
		{
			name:    "redeem more than balance",
			req:     PointsRequest{Action: ActionRedeem, Points: int64Ptr(60)},
			balance: 40,
			wantErr: ErrInsufficientPoints,
		},
		{
			name:    "unknown action",
			req:     PointsRequest{Action: PointsAction("gift")},
			wantErr: ErrInvalidAction,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ComputeDelta(tt.req, settings, tt.balance)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestComputeDelta_ErrorDetails(t *testing.T) {
	settings := DefaultLoyaltySettings()

	t.Run("insufficient points carries required and available", func(t *testing.T) {
		_, err := ComputeDelta(PointsRequest{Action: ActionRedeem, Points: int64Ptr(60)}, settings, 40)

		var de *shared.DomainError
		require.ErrorAs(t, err, &de)
		assert.Equal(t, int64(60), de.Details["required"])
		assert.Equal(t, int64(40), de.Details["available"])
	})

	t.Run("negative balance carries current balance", func(t *testing.T) {
		_, err := ComputeDelta(PointsRequest{Action: ActionAdjustment, Points: int64Ptr(-41)}, settings, 40)

		var de *shared.DomainError
		require.ErrorAs(t, err, &de)
		assert.Equal(t, int64(40), de.Details["currentBalance"])
	})

	t.Run("sentinels stay untouched", func(t *testing.T) {
		assert.Nil(t, ErrInsufficientPoints.Details)
		assert.Nil(t, ErrNegativeBalance.Details)
	})
}

func TestNewLedgerEntry(t *testing.T) {
	now := time.Now()
	account := &Account{MerchantID: uuid.New()}
	account.ID = uuid.New()

	t.Run("defaults description from type", func(t *testing.T) {
		entry, err := NewLedgerEntry(account, EntryTypeWelcome, 50, 50, now)
		require.NoError(t, err)

		assert.Equal(t, account.ID, entry.AccountID)
		assert.Equal(t, account.MerchantID, entry.MerchantID)
		assert.Equal(t, EntryTypeWelcome, entry.Type)
		assert.Equal(t, int64(50), entry.PointsDelta)
		assert.Equal(t, int64(50), entry.BalanceAfter)
		assert.Equal(t, "Welcome bonus", entry.Description)
	})

	t.Run("builder methods", func(t *testing.T) {
		entry, err := NewLedgerEntry(account, EntryTypeEarn, 20, 70, now)
		require.NoError(t, err)

		entry.WithPurchaseAmount(decimal.NewFromInt(2500)).
			WithDescription("  In-store purchase ").
			WithReference("receipt-42")

		require.NotNil(t, entry.PurchaseAmount)
		assert.True(t, entry.PurchaseAmount.Equal(decimal.NewFromInt(2500)))
		assert.Equal(t, "In-store purchase", entry.Description)
		assert.Equal(t, "receipt-42", entry.ReferenceID)
	})

	t.Run("empty description keeps default", func(t *testing.T) {
		entry, err := NewLedgerEntry(account, EntryTypeRedeem, -60, 40, now)
		require.NoError(t, err)
		entry.WithDescription("   ")
		assert.Equal(t, "Redeemed 60 points", entry.Description)
	})

	t.Run("rejects negative snapshot", func(t *testing.T) {
		_, err := NewLedgerEntry(account, EntryTypeAdjustment, -10, -1, now)
		assert.ErrorIs(t, err, ErrNegativeBalance)
	})

	t.Run("rejects unknown type", func(t *testing.T) {
		_, err := NewLedgerEntry(account, EntryType("gift"), 1, 1, now)
		assert.Error(t, err)
	})
}
