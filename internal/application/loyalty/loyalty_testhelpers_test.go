package loyalty_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	apployalty "github.com/qualee/backend/internal/application/loyalty"
	"github.com/qualee/backend/internal/domain/loyalty"
	"github.com/qualee/backend/internal/domain/shared"
	"github.com/qualee/backend/internal/infrastructure/persistence"
	"github.com/qualee/backend/internal/infrastructure/persistence/models"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

// stepClock returns a strictly increasing time so ledger entries have a
// stable creation order.
type stepClock struct {
	mu  sync.Mutex
	now time.Time
}

func newStepClock() *stepClock {
	return &stepClock{now: time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)}
}

func (c *stepClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(time.Second)
	return c.now
}

func (c *stepClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []shared.DomainEvent
}

func (p *recordingPublisher) Publish(_ context.Context, events ...shared.DomainEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, events...)
	return nil
}

func (p *recordingPublisher) Types() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, len(p.events))
	for i, ev := range p.events {
		out[i] = ev.EventType()
	}
	return out
}

type testEnv struct {
	db          *gorm.DB
	merchant    *loyalty.Merchant
	merchants   *persistence.GormMerchantRepository
	accounts    *persistence.GormAccountRepository
	ledger      *persistence.GormLedgerRepository
	rewards     *persistence.GormRewardRepository
	redemptions *persistence.GormRedemptionRepository
	txScope     *persistence.GormTransactionScope
	clock       *stepClock
	events      *recordingPublisher
	cfg         apployalty.Config
}

// newTestEnv opens an in-memory SQLite store with one loyalty-enabled
// merchant using the default program settings.
func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })
	require.NoError(t, db.AutoMigrate(models.AllModels()...))

	env := &testEnv{
		db:          db,
		merchants:   persistence.NewGormMerchantRepository(db),
		accounts:    persistence.NewGormAccountRepository(db),
		ledger:      persistence.NewGormLedgerRepository(db),
		rewards:     persistence.NewGormRewardRepository(db),
		redemptions: persistence.NewGormRedemptionRepository(db),
		txScope:     persistence.NewGormTransactionScope(db),
		clock:       newStepClock(),
		events:      &recordingPublisher{},
		cfg:         apployalty.DefaultConfig(),
	}
	env.cfg.PublicURL = "https://cards.example.com/"
	env.merchant = env.seedMerchant(t, "Glow Studio")
	return env
}

func (e *testEnv) seedMerchant(t *testing.T, name string) *loyalty.Merchant {
	t.Helper()
	m, err := loyalty.NewMerchant(name)
	require.NoError(t, err)
	m.LoyaltyEnabled = true
	require.NoError(t, e.merchants.Save(context.Background(), m))
	return m
}

func (e *testEnv) opts(extra ...apployalty.Option) []apployalty.Option {
	return append([]apployalty.Option{apployalty.WithClock(e.clock.Now)}, extra...)
}

func (e *testEnv) accountService() *apployalty.AccountService {
	return apployalty.NewAccountService(e.merchants, e.accounts, e.txScope, e.events, e.cfg, zap.NewNop(), e.opts()...)
}

func (e *testEnv) pointsService() *apployalty.PointsService {
	return apployalty.NewPointsService(e.merchants, e.accounts, e.ledger, e.txScope, e.events, e.cfg, zap.NewNop(), e.opts()...)
}

func (e *testEnv) redemptionService(extra ...apployalty.Option) *apployalty.RedemptionService {
	return apployalty.NewRedemptionService(e.accounts, e.rewards, e.redemptions, e.txScope, e.events, e.cfg, zap.NewNop(), e.opts(extra...)...)
}

func (e *testEnv) rewardService() *apployalty.RewardService {
	return apployalty.NewRewardService(e.merchants, e.rewards, e.redemptions, zap.NewNop(), e.opts()...)
}

func (e *testEnv) merchantService() *apployalty.MerchantService {
	return apployalty.NewMerchantService(e.merchants, e.cfg, zap.NewNop(), e.opts()...)
}

// newClient registers a client through the directory and returns its ID.
func (e *testEnv) newClient(t *testing.T, phone string) uuid.UUID {
	t.Helper()
	res, err := e.accountService().GetOrCreate(context.Background(), apployalty.GetOrCreateClientRequest{
		MerchantID: e.merchant.ID,
		Phone:      phone,
	})
	require.NoError(t, err)
	return res.Client.ID
}

// clientWithBalance registers a client and brings its balance to points
// with an adjustment.
func (e *testEnv) clientWithBalance(t *testing.T, phone string, points int64) uuid.UUID {
	t.Helper()
	id := e.newClient(t, phone)
	if diff := points - e.balance(t, id); diff != 0 {
		_, err := e.pointsService().Apply(context.Background(), apployalty.ApplyPointsRequest{
			ClientID:   id,
			MerchantID: e.merchant.ID,
			Action:     "adjustment",
			Points:     &diff,
		})
		require.NoError(t, err)
	}
	return id
}

func (e *testEnv) newReward(t *testing.T, cost int64, qty *int64) uuid.UUID {
	t.Helper()
	res, err := e.rewardService().Create(context.Background(), apployalty.CreateRewardRequest{
		MerchantID:        e.merchant.ID,
		Name:              "Free blow-dry",
		Type:              "service",
		PointsCost:        cost,
		QuantityAvailable: qty,
	})
	require.NoError(t, err)
	return res.ID
}

func (e *testEnv) account(t *testing.T, id uuid.UUID) *loyalty.Account {
	t.Helper()
	acc, err := e.accounts.FindByID(context.Background(), e.merchant.ID, id)
	require.NoError(t, err)
	return acc
}

func (e *testEnv) balance(t *testing.T, id uuid.UUID) int64 {
	t.Helper()
	return e.account(t, id).Points
}

func (e *testEnv) stock(t *testing.T, rewardID uuid.UUID) *int64 {
	t.Helper()
	r, err := e.rewards.FindByID(context.Background(), e.merchant.ID, rewardID)
	require.NoError(t, err)
	return r.QuantityAvailable
}

// entries returns the account's ledger oldest first.
func (e *testEnv) entries(t *testing.T, id uuid.UUID) []loyalty.LedgerEntry {
	t.Helper()
	newestFirst, _, err := e.ledger.ListByAccount(context.Background(), id, nil, shared.Page{Limit: 1000})
	require.NoError(t, err)
	out := make([]loyalty.LedgerEntry, len(newestFirst))
	for i := range newestFirst {
		out[len(newestFirst)-1-i] = newestFirst[i]
	}
	return out
}

// requireLedgerConsistent replays the ledger and checks every running sum
// against balanceAfter and the final sum against the stored balance.
func (e *testEnv) requireLedgerConsistent(t *testing.T, id uuid.UUID) {
	t.Helper()
	var sum int64
	for i, entry := range e.entries(t, id) {
		sum += entry.PointsDelta
		require.Equalf(t, sum, entry.BalanceAfter, "entry %d (%s)", i, entry.Type)
		require.GreaterOrEqual(t, entry.BalanceAfter, int64(0))
	}
	require.Equal(t, sum, e.balance(t, id))
}

func int64Ptr(v int64) *int64 { return &v }
