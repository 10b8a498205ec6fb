package router

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	apployalty "github.com/qualee/backend/internal/application/loyalty"
	"github.com/qualee/backend/internal/domain/loyalty"
	"github.com/qualee/backend/internal/domain/shared"
	"github.com/qualee/backend/internal/infrastructure/cache"
	"github.com/qualee/backend/internal/infrastructure/persistence"
	"github.com/qualee/backend/internal/infrastructure/persistence/models"
	"github.com/qualee/backend/internal/interfaces/http/dto"
	"github.com/qualee/backend/internal/interfaces/http/handler"
	"github.com/qualee/backend/internal/interfaces/http/middleware"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

type testServer struct {
	engine   *gin.Engine
	merchant *loyalty.Merchant
}

// newTestServer wires the full HTTP stack over in-memory SQLite. A nil db
// wires it the way the server starts without database configuration.
func newTestServer(t *testing.T, withDB bool) *testServer {
	t.Helper()
	log := zap.NewNop()

	var (
		database *persistence.Database
		db       *gorm.DB
	)
	if withDB {
		var err error
		db, err = gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
		require.NoError(t, err)
		sqlDB, err := db.DB()
		require.NoError(t, err)
		sqlDB.SetMaxOpenConns(1)
		t.Cleanup(func() { _ = sqlDB.Close() })
		require.NoError(t, db.AutoMigrate(models.AllModels()...))
		database = &persistence.Database{DB: db}
	}
	probe := persistence.NewAvailabilityProbe(database, "")

	handlers := LoyaltyHandlers{}
	var merchant *loyalty.Merchant
	if withDB {
		merchants := persistence.NewGormMerchantRepository(db)
		accounts := persistence.NewGormAccountRepository(db)
		ledger := persistence.NewGormLedgerRepository(db)
		rewards := persistence.NewGormRewardRepository(db)
		redemptions := persistence.NewGormRedemptionRepository(db)
		txScope := persistence.NewGormTransactionScope(db)
		cfg := apployalty.DefaultConfig()
		cfg.PublicURL = "https://cards.example.com"

		handlers.Client = handler.NewClientHandler(
			apployalty.NewAccountService(merchants, accounts, txScope, nil, cfg, log), probe)
		handlers.Points = handler.NewPointsHandler(
			apployalty.NewPointsService(merchants, accounts, ledger, txScope, nil, cfg, log), probe)
		handlers.Redemption = handler.NewRedemptionHandler(
			apployalty.NewRedemptionService(accounts, rewards, redemptions, txScope, nil, cfg, log), probe)
		handlers.Reward = handler.NewRewardHandler(
			apployalty.NewRewardService(merchants, rewards, redemptions, log), probe)
		handlers.Settings = handler.NewSettingsHandler(apployalty.NewMerchantService(merchants, cfg, log))

		var err error
		merchant, err = loyalty.NewMerchant("Salon Lumiere")
		require.NoError(t, err)
		merchant.LoyaltyEnabled = true
		require.NoError(t, merchants.Save(context.Background(), merchant))
	} else {
		handlers.Client = handler.NewClientHandler(nil, probe)
		handlers.Points = handler.NewPointsHandler(nil, probe)
		handlers.Redemption = handler.NewRedemptionHandler(nil, probe)
		handlers.Reward = handler.NewRewardHandler(nil, probe)
		handlers.Settings = handler.NewSettingsHandler(nil)
	}

	store := cache.NewInMemoryIdempotencyStore(time.Minute)
	t.Cleanup(func() { _ = store.Close() })

	engine := NewEngine(EngineConfig{
		Logger:      log,
		CORS:        middleware.DefaultCORSConfig(),
		Security:    middleware.DefaultSecurityConfig(),
		MaxBodySize: 1 << 20,
	})
	system := handler.NewSystemHandler("test", probe)
	engine.GET("/health", system.Health)

	NewRouter(engine).
		Register(NewLoyaltyRoutes(handlers,
			middleware.RequireAvailable(probe),
			middleware.Idempotency(store, shared.IdempotencyConfig{Enabled: true, TTL: time.Hour}, log),
		)).
		Register(NewSystemRoutes(system)).
		Setup()

	return &testServer{engine: engine, merchant: merchant}
}

func (s *testServer) do(t *testing.T, method, path string, body any, headers ...string) (int, map[string]any) {
	t.Helper()
	var req *http.Request
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		req = httptest.NewRequest(method, path, strings.NewReader(string(raw)))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	w := httptest.NewRecorder()
	s.engine.ServeHTTP(w, req)

	var out map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out), w.Body.String())
	return w.Code, out
}

func data(t *testing.T, body map[string]any) map[string]any {
	t.Helper()
	require.Equal(t, true, body["success"], body)
	d, ok := body["data"].(map[string]any)
	require.True(t, ok)
	return d
}

func errCode(t *testing.T, body map[string]any) string {
	t.Helper()
	require.Equal(t, false, body["success"], body)
	return body["error"].(map[string]any)["code"].(string)
}

func TestLoyaltyRoutes_EarnRedeemCancel(t *testing.T) {
	s := newTestServer(t, true)
	merchantID := s.merchant.ID.String()

	status, body := s.do(t, http.MethodPost, "/api/v1/loyalty/client", map[string]any{
		"merchantId": merchantID, "phone": "+33600000001", "name": "Ana",
	})
	require.Equal(t, http.StatusCreated, status, body)
	created := data(t, body)
	assert.Equal(t, true, created["isNew"])
	assert.EqualValues(t, 50, created["welcomePoints"])
	client := created["client"].(map[string]any)
	clientID := client["id"].(string)
	assert.Regexp(t, `^SALO-\d{4}-`, client["cardId"])
	assert.Equal(t, "https://cards.example.com/card/"+client["qrToken"].(string), created["cardUrl"])

	status, body = s.do(t, http.MethodPost, "/api/v1/loyalty/client", map[string]any{
		"merchantId": merchantID, "phone": "+33600000001",
	})
	require.Equal(t, http.StatusOK, status, body)
	assert.Equal(t, false, data(t, body)["isNew"])

	status, body = s.do(t, http.MethodPost, "/api/v1/loyalty/points", map[string]any{
		"clientId": clientID, "merchantId": merchantID, "action": "earn", "purchaseAmount": "2500",
	})
	require.Equal(t, http.StatusOK, status, body)
	assert.EqualValues(t, 20, data(t, body)["pointsAdded"])
	assert.EqualValues(t, 70, data(t, body)["newBalance"])

	status, body = s.do(t, http.MethodPost, "/api/v1/loyalty/rewards", map[string]any{
		"merchantId": merchantID, "name": "Free blow-dry", "type": "service", "pointsCost": 60, "quantityAvailable": 1,
	})
	require.Equal(t, http.StatusCreated, status, body)
	rewardID := data(t, body)["reward"].(map[string]any)["id"].(string)

	status, body = s.do(t, http.MethodPost, "/api/v1/loyalty/redeem", map[string]any{
		"clientId": clientID, "merchantId": merchantID, "rewardId": rewardID,
	})
	require.Equal(t, http.StatusCreated, status, body)
	redeemed := data(t, body)
	assert.EqualValues(t, 10, redeemed["newBalance"])
	code := redeemed["redemptionCode"].(string)
	assert.True(t, loyalty.IsRedemptionCode(code), code)

	status, body = s.do(t, http.MethodPost, "/api/v1/loyalty/redeem", map[string]any{
		"clientId": clientID, "merchantId": merchantID, "rewardId": rewardID,
	})
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "OUT_OF_STOCK", errCode(t, body))

	status, body = s.do(t, http.MethodGet, "/api/v1/loyalty/redeem?code="+code, nil)
	require.Equal(t, http.StatusOK, status, body)
	assert.Equal(t, true, data(t, body)["found"])

	status, body = s.do(t, http.MethodPatch, "/api/v1/loyalty/redeem", map[string]any{
		"redemptionCode": code, "merchantId": merchantID, "action": "cancel",
	})
	require.Equal(t, http.StatusOK, status, body)
	assert.Equal(t, "cancelled", data(t, body)["redeemedReward"].(map[string]any)["status"])

	status, body = s.do(t, http.MethodPatch, "/api/v1/loyalty/redeem", map[string]any{
		"redemptionCode": code, "merchantId": merchantID, "action": "use",
	})
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "CODE_ALREADY_CANCELLED", errCode(t, body))

	status, body = s.do(t, http.MethodGet, "/api/v1/loyalty/points?clientId="+clientID+"&merchantId="+merchantID, nil)
	require.Equal(t, http.StatusOK, status, body)
	history := data(t, body)
	assert.EqualValues(t, 70, history["currentBalance"])
	assert.EqualValues(t, 4, history["total"])
	entries := history["transactions"].([]any)
	require.Len(t, entries, 4)
	newest := entries[0].(map[string]any)
	assert.Equal(t, "adjustment", newest["type"])
	assert.EqualValues(t, 70, newest["balanceAfter"])

	status, body = s.do(t, http.MethodGet, "/api/v1/loyalty/rewards?merchantId="+merchantID+"&includeStats=true", nil)
	require.Equal(t, http.StatusOK, status, body)
	rewards := data(t, body)["rewards"].([]any)
	require.Len(t, rewards, 1)
	assert.EqualValues(t, 0, rewards[0].(map[string]any)["quantityAvailable"])
	assert.EqualValues(t, 1, rewards[0].(map[string]any)["timesRedeemed"])
}

func TestLoyaltyRoutes_IdempotencyKey(t *testing.T) {
	s := newTestServer(t, true)
	merchantID := s.merchant.ID.String()

	_, body := s.do(t, http.MethodPost, "/api/v1/loyalty/client", map[string]any{
		"merchantId": merchantID, "email": "Ana@Example.com",
	})
	clientID := data(t, body)["client"].(map[string]any)["id"].(string)

	bonus := map[string]any{"clientId": clientID, "merchantId": merchantID, "action": "bonus", "points": 15}
	status, body := s.do(t, http.MethodPost, "/api/v1/loyalty/points", bonus, middleware.IdempotencyKeyHeader, "visit-42")
	require.Equal(t, http.StatusOK, status, body)
	assert.EqualValues(t, 65, data(t, body)["newBalance"])

	status, body = s.do(t, http.MethodPost, "/api/v1/loyalty/points", bonus, middleware.IdempotencyKeyHeader, "visit-42")
	assert.Equal(t, http.StatusConflict, status)
	assert.Equal(t, dto.ErrCodeDuplicateRequest, errCode(t, body))

	_, body = s.do(t, http.MethodGet, "/api/v1/loyalty/points?clientId="+clientID, nil)
	assert.EqualValues(t, 65, data(t, body)["currentBalance"])
}

func TestLoyaltyRoutes_Settings(t *testing.T) {
	s := newTestServer(t, true)
	merchantID := s.merchant.ID.String()

	status, body := s.do(t, http.MethodPut, "/api/v1/loyalty/settings", map[string]any{
		"merchantId": merchantID, "welcomePoints": 0, "pointsPerPurchase": 5, "purchaseAmountThreshold": "100",
	})
	require.Equal(t, http.StatusOK, status, body)

	status, body = s.do(t, http.MethodGet, "/api/v1/loyalty/settings?merchantId="+merchantID, nil)
	require.Equal(t, http.StatusOK, status, body)
	settings := data(t, body)["settings"].(map[string]any)
	assert.EqualValues(t, 0, settings["welcomePoints"])
	assert.EqualValues(t, 5, settings["pointsPerPurchase"])

	status, body = s.do(t, http.MethodPost, "/api/v1/loyalty/client", map[string]any{
		"merchantId": merchantID, "phone": "+33600000002",
	})
	require.Equal(t, http.StatusCreated, status, body)
	assert.EqualValues(t, 0, data(t, body)["welcomePoints"])
	assert.EqualValues(t, 0, data(t, body)["client"].(map[string]any)["points"])
}

func TestLoyaltyRoutes_Misconfigured(t *testing.T) {
	s := newTestServer(t, false)
	merchantID := "0b8e7a52-3c1d-4e6f-8a9b-1c2d3e4f5a6b"

	t.Run("reads degrade", func(t *testing.T) {
		status, body := s.do(t, http.MethodGet, "/api/v1/loyalty/rewards?merchantId="+merchantID, nil)
		require.Equal(t, http.StatusOK, status)
		d := data(t, body)
		assert.Empty(t, d["rewards"])
		assert.Equal(t, "misconfigured", d["availability"].(map[string]any)["status"])
	})

	t.Run("writes fail loudly", func(t *testing.T) {
		status, body := s.do(t, http.MethodPost, "/api/v1/loyalty/points", map[string]any{
			"clientId": merchantID, "merchantId": merchantID, "action": "bonus", "points": 1,
		})
		assert.Equal(t, http.StatusInternalServerError, status)
		assert.Equal(t, dto.ErrCodeServiceMisconfigured, errCode(t, body))
	})

	t.Run("settings read is guarded", func(t *testing.T) {
		status, body := s.do(t, http.MethodGet, "/api/v1/loyalty/settings?merchantId="+merchantID, nil)
		assert.Equal(t, http.StatusInternalServerError, status)
		assert.Equal(t, dto.ErrCodeServiceMisconfigured, errCode(t, body))
	})

	t.Run("health reports unhealthy", func(t *testing.T) {
		status, body := s.do(t, http.MethodGet, "/health", nil)
		assert.Equal(t, http.StatusServiceUnavailable, status)
		assert.Equal(t, "unhealthy", body["status"])
	})
}
