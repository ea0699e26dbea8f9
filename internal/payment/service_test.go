// AngelaMos | 2026
// service_test.go

package payment

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/carterperez-dev/flashdeck/internal/core"
	"github.com/carterperez-dev/flashdeck/internal/mail"
	"github.com/carterperez-dev/flashdeck/internal/user"
)

// serialTx runs transactions one at a time, standing in for row locks.
type serialTx struct{ mu sync.Mutex }

func (s *serialTx) InTx(_ context.Context, fn func(tx core.DBTX) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return fn(nil)
}

type memRepo struct {
	mu       sync.Mutex
	payments map[string]*Payment
	events   map[string]bool
}

func newMemRepo() *memRepo {
	return &memRepo{payments: make(map[string]*Payment), events: make(map[string]bool)}
}

func (m *memRepo) WithTx(core.DBTX) Repository { return m }

func (m *memRepo) Create(_ context.Context, p *Payment) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *p
	m.payments[p.ID] = &cp
	return nil
}

func (m *memRepo) GetByOrderForUpdate(_ context.Context, gateway, orderID string) (*Payment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, p := range m.payments {
		if p.Gateway == gateway && p.OrderID == orderID {
			cp := *p
			return &cp, nil
		}
	}
	return nil, fmt.Errorf("get payment by order: %w", core.ErrNotFound)
}

func (m *memRepo) SetStatus(_ context.Context, id, status string, gatewayPaymentID *string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.payments[id]
	if !ok {
		return fmt.Errorf("set payment status: %w", core.ErrNotFound)
	}
	p.Status = status
	if gatewayPaymentID != nil {
		p.GatewayPaymentID = gatewayPaymentID
	}
	return nil
}

func (m *memRepo) ListByUser(context.Context, ListPaymentsParams) ([]Payment, int, error) {
	return nil, 0, nil
}

func (m *memRepo) CountByStatus(context.Context) (map[string]int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	counts := map[string]int{}
	for _, p := range m.payments {
		counts[p.Status]++
	}
	return counts, nil
}

func (m *memRepo) RecordEvent(_ context.Context, gateway, eventID, _ string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	key := gateway + ":" + eventID
	if m.events[key] {
		return false, nil
	}
	m.events[key] = true
	return true, nil
}

func (m *memRepo) PurgeEvents(context.Context, time.Time) (int64, error) { return 0, nil }

func (m *memRepo) only(t *testing.T) *Payment {
	t.Helper()
	m.mu.Lock()
	defer m.mu.Unlock()
	require.Len(t, m.payments, 1)
	for _, p := range m.payments {
		return p
	}
	return nil
}

type memUsers struct {
	user.Repository
	mu          sync.Mutex
	users       map[string]*user.User
	activations int
}

func (m *memUsers) WithTx(core.DBTX) user.Repository { return m }

func (m *memUsers) GetByID(_ context.Context, id string) (*user.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[id]
	if !ok {
		return nil, fmt.Errorf("get user: %w", core.ErrNotFound)
	}
	cp := *u
	return &cp, nil
}

func (m *memUsers) ActivateSubscription(_ context.Context, id, plan, cycle string, startedAt, endsAt time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	u := m.users[id]
	u.Plan = plan
	u.SubscriptionStatus = user.StatusActive
	u.BillingCycle = &cycle
	u.SubscriptionStartedAt = &startedAt
	u.SubscriptionEndsAt = &endsAt
	m.activations++
	return nil
}

type stubEnsurer struct{ result user.SyncResult }

func (s stubEnsurer) EnsureUser(context.Context, string, string) user.SyncResult { return s.result }

type memClaims struct {
	mu   sync.Mutex
	keys map[string]bool
}

func (m *memClaims) Claim(_ context.Context, key string, _ time.Duration) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.keys[key] {
		return false, nil
	}
	m.keys[key] = true
	return true, nil
}

func (m *memClaims) Release(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.keys, key)
	return nil
}

type recordingMailer struct {
	mu   sync.Mutex
	sent []mail.Message
}

func (r *recordingMailer) Send(_ context.Context, msg mail.Message) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sent = append(r.sent, msg)
	return nil
}

// fakeGateway treats the body as the event id and the header "X-Kind" as
// the event kind. A header "X-Forged" fails verification.
type fakeGateway struct {
	orderErr error
}

func (f *fakeGateway) Name() string     { return GatewayRazorpay }
func (f *fakeGateway) Currency() string { return "INR" }

func (f *fakeGateway) CreateOrder(_ context.Context, req OrderRequest) (*Order, error) {
	if f.orderErr != nil {
		return nil, f.orderErr
	}
	return &Order{ID: "order_1", Amount: req.Amount, Currency: "INR"}, nil
}

func (f *fakeGateway) ParseWebhook(header http.Header, body []byte) (*Event, error) {
	if header.Get("X-Forged") != "" {
		return nil, fmt.Errorf("verify signature: %w", core.ErrSignatureInvalid)
	}
	kind := EventPaid
	if header.Get("X-Kind") == "failed" {
		kind = EventFailed
	}
	return &Event{ID: string(body), Type: "payment.test", Kind: kind, OrderID: "order_1", PaymentID: "pay_1"}, nil
}

type harness struct {
	svc    *Service
	repo   *memRepo
	users  *memUsers
	mailer *recordingMailer
	gw     *fakeGateway
	now    time.Time
}

func newHarness(ensured user.SyncResult) *harness {
	now := time.Date(2026, 6, 1, 12, 0, 0, 0, time.UTC)
	h := &harness{
		repo: newMemRepo(),
		users: &memUsers{users: map[string]*user.User{
			"user_1": {ID: "user_1", Email: "a@example.com", Plan: user.PlanFree, SubscriptionStatus: user.StatusInactive},
		}},
		mailer: &recordingMailer{},
		gw:     &fakeGateway{},
		now:    now,
	}

	h.svc = NewService(ServiceConfig{
		DB:             &serialTx{},
		Repo:           h.repo,
		Users:          h.users,
		Ensurer:        stubEnsurer{result: ensured},
		Gateways:       []Gateway{h.gw},
		DefaultGateway: GatewayRazorpay,
		Claims:         &memClaims{keys: map[string]bool{}},
		Mailer:         h.mailer,
	})
	h.svc.now = func() time.Time { return now }
	return h
}

func (h *harness) order(t *testing.T) *OrderResponse {
	t.Helper()
	resp, err := h.svc.CreateOrder(context.Background(), "user_1", "a@example.com", CreateOrderRequest{
		Plan:         user.PlanPro,
		BillingCycle: user.CycleMonthly,
	})
	require.NoError(t, err)
	return resp
}

func appStatus(t *testing.T, err error) int {
	t.Helper()
	var appErr *core.AppError
	require.True(t, errors.As(err, &appErr), "expected AppError, got %v", err)
	return appErr.StatusCode
}

func TestCreateOrderRecordsPending(t *testing.T) {
	h := newHarness(user.SyncResult{Outcome: user.OutcomeApplied})

	resp := h.order(t)

	assert.Equal(t, "order_1", resp.OrderID)
	assert.Equal(t, int64(79900), resp.Amount)
	assert.Equal(t, "INR", resp.Currency)
	assert.Contains(t, resp.Receipt, "rcpt_")

	p := h.repo.only(t)
	assert.Equal(t, StatusPending, p.Status)
	assert.Equal(t, user.PlanPro, p.Plan)
	assert.Equal(t, resp.Receipt, p.Receipt)
}

func TestCreateOrderProceedsAfterPartialUserSync(t *testing.T) {
	h := newHarness(user.SyncResult{Outcome: user.OutcomePartial, Err: errors.New("email conflict")})

	resp := h.order(t)
	assert.NotEmpty(t, resp.PaymentID)
}

func TestCreateOrderStopsWhenUserSyncFails(t *testing.T) {
	h := newHarness(user.SyncResult{Outcome: user.OutcomeFailed, Err: errors.New("db down")})

	_, err := h.svc.CreateOrder(context.Background(), "user_1", "", CreateOrderRequest{
		Plan:         user.PlanPro,
		BillingCycle: user.CycleMonthly,
	})
	require.Error(t, err)
	assert.Empty(t, h.repo.payments)
}

func TestCreateOrderGatewayFailure(t *testing.T) {
	h := newHarness(user.SyncResult{Outcome: user.OutcomeApplied})
	h.gw.orderErr = errors.New("connection reset")

	_, err := h.svc.CreateOrder(context.Background(), "user_1", "", CreateOrderRequest{
		Plan:         user.PlanBasic,
		BillingCycle: user.CycleYearly,
	})
	require.ErrorIs(t, err, core.ErrUpstream)
	assert.Equal(t, http.StatusInternalServerError, appStatus(t, err))
	assert.Empty(t, h.repo.payments)
}

func TestCreateOrderUnknownGateway(t *testing.T) {
	h := newHarness(user.SyncResult{Outcome: user.OutcomeApplied})

	_, err := h.svc.CreateOrder(context.Background(), "user_1", "", CreateOrderRequest{
		Plan:         user.PlanPro,
		BillingCycle: user.CycleMonthly,
		Gateway:      GatewayStripe,
	})
	assert.Equal(t, http.StatusBadRequest, appStatus(t, err))
}

func TestWebhookRejectsUnverifiedPayload(t *testing.T) {
	h := newHarness(user.SyncResult{Outcome: user.OutcomeApplied})
	h.order(t)

	header := http.Header{}
	header.Set("X-Forged", "1")

	_, err := h.svc.HandleWebhook(context.Background(), GatewayRazorpay, header, []byte("evt_1"))
	assert.Equal(t, http.StatusUnauthorized, appStatus(t, err))
	assert.Equal(t, StatusPending, h.repo.only(t).Status)
	assert.Zero(t, h.users.activations)
}

func TestWebhookPaidActivatesSubscription(t *testing.T) {
	h := newHarness(user.SyncResult{Outcome: user.OutcomeApplied})
	h.order(t)

	result, err := h.svc.HandleWebhook(context.Background(), GatewayRazorpay, http.Header{}, []byte("evt_1"))
	require.NoError(t, err)
	assert.Equal(t, OutcomeCompleted, result.Outcome)

	p := h.repo.only(t)
	assert.Equal(t, StatusCompleted, p.Status)
	require.NotNil(t, p.GatewayPaymentID)
	assert.Equal(t, "pay_1", *p.GatewayPaymentID)

	u := h.users.users["user_1"]
	assert.Equal(t, user.PlanPro, u.Plan)
	assert.Equal(t, user.StatusActive, u.SubscriptionStatus)
	require.NotNil(t, u.SubscriptionEndsAt)
	assert.Equal(t, h.now.AddDate(0, 1, 0), *u.SubscriptionEndsAt)

	require.Len(t, h.mailer.sent, 1)
	assert.Equal(t, "a@example.com", h.mailer.sent[0].To)
	assert.Contains(t, h.mailer.sent[0].TextBody, "INR 799.00")
}

func TestWebhookRedeliveryIsDuplicate(t *testing.T) {
	h := newHarness(user.SyncResult{Outcome: user.OutcomeApplied})
	h.order(t)
	ctx := context.Background()

	_, err := h.svc.HandleWebhook(ctx, GatewayRazorpay, http.Header{}, []byte("evt_1"))
	require.NoError(t, err)

	again, err := h.svc.HandleWebhook(ctx, GatewayRazorpay, http.Header{}, []byte("evt_1"))
	require.NoError(t, err)
	assert.Equal(t, OutcomeDuplicate, again.Outcome)

	// A different event for an already completed order is also a no-op.
	other, err := h.svc.HandleWebhook(ctx, GatewayRazorpay, http.Header{}, []byte("evt_2"))
	require.NoError(t, err)
	assert.Equal(t, OutcomeDuplicate, other.Outcome)

	assert.Equal(t, 1, h.users.activations)
	assert.Len(t, h.mailer.sent, 1)
}

func TestWebhookConcurrentDeliveriesActivateOnce(t *testing.T) {
	h := newHarness(user.SyncResult{Outcome: user.OutcomeApplied})
	h.order(t)

	var wg sync.WaitGroup
	var mu sync.Mutex
	outcomes := map[string]int{}

	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			// Half reuse one event id, half carry distinct ids.
			id := "evt_same"
			if i%2 == 1 {
				id = fmt.Sprintf("evt_%d", i)
			}
			res, err := h.svc.HandleWebhook(context.Background(), GatewayRazorpay, http.Header{}, []byte(id))
			assert.NoError(t, err)
			mu.Lock()
			outcomes[res.Outcome]++
			mu.Unlock()
		}(i)
	}
	wg.Wait()

	assert.Equal(t, 1, outcomes[OutcomeCompleted])
	assert.Equal(t, 9, outcomes[OutcomeDuplicate])
	assert.Equal(t, 1, h.users.activations)
}

func TestWebhookFailedMarksPayment(t *testing.T) {
	h := newHarness(user.SyncResult{Outcome: user.OutcomeApplied})
	h.order(t)

	header := http.Header{}
	header.Set("X-Kind", "failed")

	result, err := h.svc.HandleWebhook(context.Background(), GatewayRazorpay, header, []byte("evt_f"))
	require.NoError(t, err)
	assert.Equal(t, OutcomeFailed, result.Outcome)
	assert.Equal(t, StatusFailed, h.repo.only(t).Status)
	assert.Zero(t, h.users.activations)
	assert.Empty(t, h.mailer.sent)
}

func TestWebhookPaidForDeletedUserIsAcknowledged(t *testing.T) {
	h := newHarness(user.SyncResult{Outcome: user.OutcomeApplied})
	h.order(t)
	delete(h.users.users, "user_1")
	ctx := context.Background()

	result, err := h.svc.HandleWebhook(ctx, GatewayRazorpay, http.Header{}, []byte("evt_1"))
	require.NoError(t, err)
	assert.Equal(t, OutcomeIgnored, result.Outcome)
	assert.Equal(t, StatusCompleted, h.repo.only(t).Status)
	assert.Zero(t, h.users.activations)
	assert.Empty(t, h.mailer.sent)

	again, err := h.svc.HandleWebhook(ctx, GatewayRazorpay, http.Header{}, []byte("evt_2"))
	require.NoError(t, err)
	assert.Equal(t, OutcomeDuplicate, again.Outcome)
}

func TestWebhookUnknownGateway(t *testing.T) {
	h := newHarness(user.SyncResult{Outcome: user.OutcomeApplied})

	_, err := h.svc.HandleWebhook(context.Background(), GatewayStripe, http.Header{}, []byte("evt"))
	assert.Equal(t, http.StatusNotFound, appStatus(t, err))
}
