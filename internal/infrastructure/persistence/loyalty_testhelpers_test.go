package persistence

import (
	"context"
	"testing"
	"time"

	"github.com/qualee/backend/internal/domain/loyalty"
	"github.com/qualee/backend/internal/infrastructure/persistence/models"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

// setupLoyaltyTestDB opens an in-memory SQLite database with the loyalty
// schema. A single connection keeps every query on the same database.
func setupLoyaltyTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	require.NoError(t, db.AutoMigrate(models.AllModels()...))
	return db
}

func seedMerchant(t *testing.T, db *gorm.DB, name string) *loyalty.Merchant {
	t.Helper()
	m, err := loyalty.NewMerchant(name)
	require.NoError(t, err)
	m.LoyaltyEnabled = true
	require.NoError(t, NewGormMerchantRepository(db).Save(context.Background(), m))
	return m
}

func seedAccount(t *testing.T, db *gorm.DB, m *loyalty.Merchant, phone string, points int64) *loyalty.Account {
	t.Helper()
	acc, err := loyalty.NewAccount(m, loyalty.Contact{Name: "Ana", Phone: phone}, points, time.Now().UTC())
	require.NoError(t, err)
	require.NoError(t, NewGormAccountRepository(db).Create(context.Background(), acc))
	return acc
}

func seedReward(t *testing.T, db *gorm.DB, m *loyalty.Merchant, cost int64, qty *int64) *loyalty.Reward {
	t.Helper()
	r, err := loyalty.NewReward(m.ID, loyalty.RewardInput{
		Name:              "Free coffee",
		Type:              "product",
		PointsCost:        cost,
		QuantityAvailable: qty,
	}, 1, time.Now().UTC())
	require.NoError(t, err)
	require.NoError(t, NewGormRewardRepository(db).Create(context.Background(), r))
	return r
}

func int64Ptr(v int64) *int64 { return &v }
