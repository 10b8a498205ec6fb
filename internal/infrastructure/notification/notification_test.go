package notification

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/qualee/backend/internal/domain/loyalty"
	"github.com/qualee/backend/internal/domain/shared"
	"github.com/qualee/backend/internal/infrastructure/config"
	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func testAccount(phone string) *loyalty.Account {
	now := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	return &loyalty.Account{
		BaseEntity: shared.NewBaseEntityAt(now),
		MerchantID: uuid.New(),
		CardID:     "CAFE-2603-AB12",
		Name:       "Ana",
		Phone:      phone,
		Points:     60,
		Status:     loyalty.AccountStatusActive,
	}
}

func testRedemption(a *loyalty.Account) *loyalty.Redemption {
	now := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	return &loyalty.Redemption{
		BaseEntity:  shared.NewBaseEntityAt(now),
		AccountID:   a.ID,
		MerchantID:  a.MerchantID,
		RewardName:  "Free coffee",
		PointsSpent: 50,
		Code:        "RWD-ABC123",
		Status:      loyalty.RedemptionStatusPending,
		ExpiresAt:   now.Add(30 * 24 * time.Hour),
	}
}

func TestRender(t *testing.T) {
	a := testAccount("+33600000000")
	r := testRedemption(a)

	t.Run("welcome", func(t *testing.T) {
		msg, ok := Render(loyalty.NewAccountCreatedEvent(a, "Cafe Bleu"))
		require.True(t, ok)
		assert.Equal(t, KindWelcome, msg.Kind)
		assert.Equal(t, "+33600000000", msg.To)
		assert.Equal(t, a.ID, msg.AccountID)
		assert.Equal(t, a.MerchantID, msg.MerchantID)
		assert.Contains(t, msg.Body, "Cafe Bleu")
		assert.Contains(t, msg.Body, "60 points")
	})

	t.Run("points update", func(t *testing.T) {
		entry := &loyalty.LedgerEntry{Type: loyalty.EntryTypeEarn, PointsDelta: 10, BalanceAfter: 70}
		msg, ok := Render(loyalty.NewPointsAppliedEvent(a, entry))
		require.True(t, ok)
		assert.Equal(t, KindPointsUpdate, msg.Kind)
		assert.Contains(t, msg.Body, "earned 10 points")
		assert.Contains(t, msg.Body, "70 points")
	})

	t.Run("deduction", func(t *testing.T) {
		entry := &loyalty.LedgerEntry{Type: loyalty.EntryTypeAdjustment, PointsDelta: -5, BalanceAfter: 55}
		msg, ok := Render(loyalty.NewPointsAppliedEvent(a, entry))
		require.True(t, ok)
		assert.Contains(t, msg.Body, "5 points were deducted")
	})

	t.Run("redemption code", func(t *testing.T) {
		msg, ok := Render(loyalty.NewRewardRedeemedEvent(a, r, 10))
		require.True(t, ok)
		assert.Equal(t, KindRedemptionCode, msg.Kind)
		assert.Contains(t, msg.Body, "RWD-ABC123")
		assert.Contains(t, msg.Body, "2026-03-31")
	})

	t.Run("cancelled code mentions refund", func(t *testing.T) {
		msg, ok := Render(loyalty.NewRedemptionResolvedEvent(a, r, loyalty.ResolveCancel))
		require.True(t, ok)
		assert.Equal(t, KindRedemptionResolved, msg.Kind)
		assert.Contains(t, msg.Body, "cancelled")
		assert.Contains(t, msg.Body, "50 points")
	})

	t.Run("used code", func(t *testing.T) {
		msg, ok := Render(loyalty.NewRedemptionResolvedEvent(a, r, loyalty.ResolveUse))
		require.True(t, ok)
		assert.Contains(t, msg.Body, "has been used")
	})

	t.Run("no phone renders nothing", func(t *testing.T) {
		_, ok := Render(loyalty.NewAccountCreatedEvent(testAccount(""), "Cafe Bleu"))
		assert.False(t, ok)
	})
}

type recordingSender struct {
	mu     sync.Mutex
	sent   []Message
	err    error
	block  chan struct{}
	closes int
}

func (s *recordingSender) Send(_ context.Context, msg Message) error {
	if s.block != nil {
		<-s.block
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	s.sent = append(s.sent, msg)
	return nil
}

func (s *recordingSender) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closes++
	return nil
}

func (s *recordingSender) closeCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closes
}

func (s *recordingSender) messages() []Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Message(nil), s.sent...)
}

func TestDispatcher_DeliversAndDrains(t *testing.T) {
	sender := &recordingSender{}
	d := NewDispatcher(sender, 2, 10, zap.NewNop())
	d.Start()

	for i := 0; i < 5; i++ {
		assert.True(t, d.Enqueue(Message{Kind: KindWelcome, To: "+1"}))
	}
	require.NoError(t, d.Stop(context.Background()))

	assert.Len(t, sender.messages(), 5)
	assert.Equal(t, int64(5), d.Stats().Sent)
	assert.Equal(t, 1, sender.closeCount())

	require.NoError(t, d.Stop(context.Background()))
	assert.Equal(t, 1, sender.closeCount(), "a second Stop must not close the transport again")
}

func TestDispatcher_StopTimeoutStillClosesSender(t *testing.T) {
	sender := &recordingSender{block: make(chan struct{})}
	d := NewDispatcher(sender, 1, 4, zap.NewNop())
	d.Start()
	require.True(t, d.Enqueue(Message{Kind: KindWelcome, To: "+1"}))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, d.Stop(ctx), context.Canceled)
	assert.Equal(t, 1, sender.closeCount())

	close(sender.block)
}

func TestDispatcher_FullQueueDropsAndReports(t *testing.T) {
	core, logs := observer.New(zap.WarnLevel)
	var mu sync.Mutex
	var reasons []string
	d := NewDispatcher(&recordingSender{}, 1, 1, zap.New(core), WithFailureHook(func(_ Kind, reason string) {
		mu.Lock()
		reasons = append(reasons, reason)
		mu.Unlock()
	}))

	// Not started: the single slot fills and the next message is dropped.
	assert.True(t, d.Enqueue(Message{Kind: KindWelcome}))
	assert.False(t, d.Enqueue(Message{Kind: KindPointsUpdate}))

	assert.Equal(t, int64(1), d.Stats().Dropped)
	assert.Equal(t, 1, d.Stats().Queued)
	assert.Equal(t, []string{ReasonQueueFull}, reasons)
	assert.Equal(t, 1, logs.FilterMessage("Notification dropped").Len())
}

func TestDispatcher_SendFailureIsCounted(t *testing.T) {
	core, logs := observer.New(zap.WarnLevel)
	var failures int
	var mu sync.Mutex
	d := NewDispatcher(&recordingSender{err: errors.New("boom")}, 1, 4, zap.New(core), WithFailureHook(func(_ Kind, reason string) {
		mu.Lock()
		defer mu.Unlock()
		if reason == ReasonSend {
			failures++
		}
	}))
	d.Start()
	d.Enqueue(Message{Kind: KindWelcome})
	require.NoError(t, d.Stop(context.Background()))

	assert.Equal(t, int64(1), d.Stats().Failed)
	assert.Equal(t, 1, failures)
	assert.Equal(t, 1, logs.FilterMessage("Notification delivery failed").Len())
}

func TestDispatcher_EnqueueAfterStop(t *testing.T) {
	d := NewDispatcher(&recordingSender{}, 1, 4, zap.NewNop())
	d.Start()
	require.NoError(t, d.Stop(context.Background()))
	require.NoError(t, d.Stop(context.Background()))

	assert.False(t, d.Enqueue(Message{}))
	assert.Equal(t, int64(1), d.Stats().Dropped)
}

func TestDispatcher_StopHonoursContext(t *testing.T) {
	sender := &recordingSender{block: make(chan struct{})}
	d := NewDispatcher(sender, 1, 4, zap.NewNop())
	d.Start()
	d.Enqueue(Message{})

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	err := d.Stop(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	close(sender.block)
}

func TestHandler_EnqueuesOnlyForPhones(t *testing.T) {
	sender := &recordingSender{}
	d := NewDispatcher(sender, 1, 10, zap.NewNop())
	h := NewHandler(d)
	d.Start()

	ctx := context.Background()
	require.NoError(t, h.Handle(ctx, loyalty.NewAccountCreatedEvent(testAccount("+34600111222"), "Cafe")))
	require.NoError(t, h.Handle(ctx, loyalty.NewAccountCreatedEvent(testAccount(""), "Cafe")))
	require.NoError(t, d.Stop(ctx))

	msgs := sender.messages()
	require.Len(t, msgs, 1)
	assert.Equal(t, "+34600111222", msgs[0].To)
	assert.Len(t, h.EventTypes(), 4)
}

func TestGatewaySender_Send(t *testing.T) {
	var (
		gotPath string
		gotForm url.Values
		gotUser string
		gotPass string
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotUser, gotPass, _ = r.BasicAuth()
		_ = r.ParseForm()
		gotForm = r.PostForm
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"sid":"SM1"}`))
	}))
	defer srv.Close()

	s := NewGatewaySender(config.GatewayConfig{
		BaseURL:    srv.URL + "/",
		AccountSID: "AC123",
		AuthToken:  "token",
		FromNumber: "+14155238886",
	}, srv.Client())

	err := s.Send(context.Background(), Message{To: "+33600000000", Body: "hello"})
	require.NoError(t, err)

	assert.Equal(t, "/2010-04-01/Accounts/AC123/Messages.json", gotPath)
	assert.Equal(t, "AC123", gotUser)
	assert.Equal(t, "token", gotPass)
	assert.Equal(t, "whatsapp:+33600000000", gotForm.Get("To"))
	assert.Equal(t, "whatsapp:+14155238886", gotForm.Get("From"))
	assert.Equal(t, "hello", gotForm.Get("Body"))
	require.NoError(t, s.Close())
}

func TestGatewaySender_ErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.Copy(io.Discard, r.Body)
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"message":"invalid To"}`))
	}))
	defer srv.Close()

	s := NewGatewaySender(config.GatewayConfig{BaseURL: srv.URL, AccountSID: "AC1"}, srv.Client())
	err := s.Send(context.Background(), Message{To: "+1", Body: "x"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "400")
	assert.Contains(t, err.Error(), "invalid To")
}

type fakeWriter struct {
	msgs   []kafka.Message
	err    error
	closed bool
}

func (w *fakeWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	if w.err != nil {
		return w.err
	}
	w.msgs = append(w.msgs, msgs...)
	return nil
}

func (w *fakeWriter) Close() error {
	w.closed = true
	return nil
}

func TestKafkaSender_Send(t *testing.T) {
	w := &fakeWriter{}
	s := NewKafkaSender(w)
	msg := Message{
		ID:         uuid.New(),
		Kind:       KindRedemptionCode,
		MerchantID: uuid.New(),
		AccountID:  uuid.New(),
		To:         "+1",
		Body:       "code RWD-ABC123",
		CreatedAt:  time.Now().UTC(),
	}

	require.NoError(t, s.Send(context.Background(), msg))
	require.Len(t, w.msgs, 1)
	rec := w.msgs[0]
	assert.Equal(t, msg.AccountID.String(), string(rec.Key))

	var decoded Message
	require.NoError(t, json.Unmarshal(rec.Value, &decoded))
	assert.Equal(t, msg.Body, decoded.Body)
	assert.Equal(t, "kind", rec.Headers[0].Key)
	assert.Equal(t, string(KindRedemptionCode), string(rec.Headers[0].Value))

	require.NoError(t, s.Close())
	assert.True(t, w.closed)
}

func TestKafkaSender_WrapsWriteError(t *testing.T) {
	s := NewKafkaSender(&fakeWriter{err: errors.New("broker down")})
	err := s.Send(context.Background(), Message{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "broker down")
}

func TestNewSender(t *testing.T) {
	s, err := NewSender(config.NotificationConfig{Transport: config.TransportLog}, zap.NewNop())
	require.NoError(t, err)
	assert.IsType(t, &LogSender{}, s)

	s, err = NewSender(config.NotificationConfig{Transport: config.TransportGateway}, zap.NewNop())
	require.NoError(t, err)
	assert.IsType(t, &GatewaySender{}, s)

	_, err = NewSender(config.NotificationConfig{Transport: config.TransportKafka}, zap.NewNop())
	assert.Error(t, err)

	s, err = NewSender(config.NotificationConfig{
		Transport: config.TransportKafka,
		Kafka:     config.KafkaConfig{Brokers: []string{"localhost:9092"}, Topic: "t"},
	}, zap.NewNop())
	require.NoError(t, err)
	assert.IsType(t, &KafkaSender{}, s)
	require.NoError(t, s.Close())

	_, err = NewSender(config.NotificationConfig{Transport: "fax"}, zap.NewNop())
	assert.Error(t, err)
}
