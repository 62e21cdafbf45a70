package sessionclient

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/coinflow/pss/internal/domain"
)

type fakeClock struct {
	mu  sync.Mutex
	cur time.Time
}

func newFakeClock(t time.Time) *fakeClock {
	return &fakeClock{cur: t}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.cur
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.cur = c.cur.Add(d)
}

type fakeAPI struct {
	mu          sync.Mutex
	createResp  *domain.CreatePaymentResponse
	createErr   error
	verifyFn    func() (bool, error)
	verifyCalls int
}

func (f *fakeAPI) CreatePayment(ctx context.Context, req *domain.CreatePaymentRequest) (*domain.CreatePaymentResponse, error) {
	return f.createResp, f.createErr
}

func (f *fakeAPI) VerifyPayment(ctx context.Context, paymentID, walletAddress string) (bool, error) {
	f.mu.Lock()
	f.verifyCalls++
	fn := f.verifyFn
	f.mu.Unlock()
	if fn == nil {
		return false, nil
	}
	return fn()
}

func (f *fakeAPI) GetExchangeRates(ctx context.Context) (domain.RateTable, error) {
	return nil, nil
}

func (f *fakeAPI) calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.verifyCalls
}

type eventRecorder struct {
	mu         sync.Mutex
	statuses   []Status
	countdowns []string
	messages   []string
	completes  []string
}

func (r *eventRecorder) events() Events {
	return Events{
		OnStatus: func(s Status) {
			r.mu.Lock()
			r.statuses = append(r.statuses, s)
			r.mu.Unlock()
		},
		OnCountdown: func(remaining string) {
			r.mu.Lock()
			r.countdowns = append(r.countdowns, remaining)
			r.mu.Unlock()
		},
		OnPaymentComplete: func(paymentID string) {
			r.mu.Lock()
			r.completes = append(r.completes, paymentID)
			r.mu.Unlock()
		},
		OnMessage: func(msg string) {
			r.mu.Lock()
			r.messages = append(r.messages, msg)
			r.mu.Unlock()
		},
	}
}

func (r *eventRecorder) lastStatus() Status {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.statuses) == 0 {
		return ""
	}
	return r.statuses[len(r.statuses)-1]
}

func (r *eventRecorder) firstCountdown() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.countdowns) == 0 {
		return ""
	}
	return r.countdowns[0]
}

func (r *eventRecorder) hasCountdown(want string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, c := range r.countdowns {
		if c == want {
			return true
		}
	}
	return false
}

func (r *eventRecorder) hasMessage(want string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, m := range r.messages {
		if m == want {
			return true
		}
	}
	return false
}

func (r *eventRecorder) completeCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.completes)
}

func sessionResponse(expiresAt time.Time) *domain.CreatePaymentResponse {
	return &domain.CreatePaymentResponse{
		Success:       true,
		WalletAddress: "bc1qexample",
		PaymentID:     "pay_abc",
		QRCode:        "bitcoin:bc1qexample?amount=0.00200000",
		Amount:        0.002,
		Currency:      "BTC",
		ExpiresAt:     expiresAt,
	}
}

func newTestManager(api IPaymentAPI, rec *eventRecorder, clock *fakeClock) *Manager {
	m := NewManager(api, rec.events(), zerolog.Nop())
	m.now = clock.Now
	m.tickInterval = 5 * time.Millisecond
	return m
}

func TestCreatePayment_StartsPendingWithCountdown(t *testing.T) {
	t0 := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	clock := newFakeClock(t0)
	api := &fakeAPI{createResp: sessionResponse(t0.Add(125 * time.Second))}
	rec := &eventRecorder{}
	m := newTestManager(api, rec, clock)
	defer m.Close()

	resp, err := m.CreatePayment(context.Background(), 100, "BTC", "user@example.com", "subscription")
	require.NoError(t, err)
	require.NotNil(t, resp)

	assert.Equal(t, StatusPending, m.Status())
	assert.True(t, m.Session().ExpiresAt.After(clock.Now()))
	assert.Equal(t, "pay_abc", m.Session().PaymentID)

	// The first countdown emit happens synchronously at creation.
	assert.Equal(t, "2:05", rec.firstCountdown())
	assert.Equal(t, 125*time.Second, m.Remaining())
}

func TestCreatePayment_FailureEmitsMessage(t *testing.T) {
	clock := newFakeClock(time.Now())
	api := &fakeAPI{createErr: fmt.Errorf("%w: gateway down", domain.ErrPaymentServiceUnavailable)}
	rec := &eventRecorder{}
	m := newTestManager(api, rec, clock)

	_, err := m.CreatePayment(context.Background(), 100, "BTC", "user@example.com", "subscription")
	require.ErrorIs(t, err, domain.ErrPaymentServiceUnavailable)

	assert.Equal(t, StatusIdle, m.Status())
	assert.Nil(t, m.Session())
	assert.True(t, rec.hasMessage(MsgPaymentCreationFailed))
}

func TestVerifyPayment_NoActiveSession(t *testing.T) {
	m := newTestManager(&fakeAPI{}, &eventRecorder{}, newFakeClock(time.Now()))

	_, err := m.VerifyPayment(context.Background())
	assert.ErrorIs(t, err, domain.ErrNoActiveSession)
}

func TestVerifyPayment_NotFoundKeepsSessionPayable(t *testing.T) {
	t0 := time.Now()
	clock := newFakeClock(t0)
	api := &fakeAPI{createResp: sessionResponse(t0.Add(20 * time.Minute))}
	rec := &eventRecorder{}
	m := newTestManager(api, rec, clock)
	defer m.Close()

	_, err := m.CreatePayment(context.Background(), 100, "BTC", "user@example.com", "subscription")
	require.NoError(t, err)

	sessionBefore := *m.Session()

	// Not paid yet: twice in a row, each check lands back on pending.
	for i := 0; i < 2; i++ {
		verified, err := m.VerifyPayment(context.Background())
		require.NoError(t, err)
		assert.False(t, verified)
		assert.Equal(t, StatusPending, m.Status())
	}

	assert.Equal(t, sessionBefore, *m.Session())
	assert.True(t, rec.hasMessage(MsgPaymentNotFound))
	assert.Equal(t, 2, api.calls())

	// The payment lands; the same session confirms.
	api.mu.Lock()
	api.verifyFn = func() (bool, error) { return true, nil }
	api.mu.Unlock()

	verified, err := m.VerifyPayment(context.Background())
	require.NoError(t, err)
	assert.True(t, verified)
	assert.Equal(t, StatusConfirmed, m.Status())
}

func TestVerifyPayment_TransportErrorKeepsSessionPayable(t *testing.T) {
	t0 := time.Now()
	clock := newFakeClock(t0)
	api := &fakeAPI{
		createResp: sessionResponse(t0.Add(20 * time.Minute)),
		verifyFn: func() (bool, error) {
			return false, fmt.Errorf("%w: gateway down", domain.ErrVerificationUnavailable)
		},
	}
	rec := &eventRecorder{}
	m := newTestManager(api, rec, clock)
	defer m.Close()

	_, err := m.CreatePayment(context.Background(), 100, "BTC", "user@example.com", "subscription")
	require.NoError(t, err)

	verified, err := m.VerifyPayment(context.Background())
	require.ErrorIs(t, err, domain.ErrVerificationUnavailable)
	assert.False(t, verified)
	assert.Equal(t, StatusPending, m.Status())
	assert.True(t, rec.hasMessage(MsgVerificationFailed))
}

func TestVerifyPayment_ConfirmedIsTerminal(t *testing.T) {
	t0 := time.Now()
	clock := newFakeClock(t0)
	api := &fakeAPI{
		createResp: sessionResponse(t0.Add(20 * time.Minute)),
		verifyFn:   func() (bool, error) { return true, nil },
	}
	rec := &eventRecorder{}
	m := newTestManager(api, rec, clock)
	defer m.Close()

	_, err := m.CreatePayment(context.Background(), 100, "BTC", "user@example.com", "subscription")
	require.NoError(t, err)

	verified, err := m.VerifyPayment(context.Background())
	require.NoError(t, err)
	assert.True(t, verified)
	assert.Equal(t, StatusConfirmed, m.Status())

	// A confirmed session stays confirmed even past its deadline, and
	// re-verifying does not go back to the server.
	clock.Advance(21 * time.Minute)
	verified, err = m.VerifyPayment(context.Background())
	require.NoError(t, err)
	assert.True(t, verified)
	assert.Equal(t, StatusConfirmed, m.Status())
	assert.Equal(t, 1, api.calls())

	assert.Equal(t, 1, rec.completeCount())
}

func TestCountdown_ExpiresSession(t *testing.T) {
	t0 := time.Now()
	clock := newFakeClock(t0)
	api := &fakeAPI{createResp: sessionResponse(t0.Add(125 * time.Second))}
	rec := &eventRecorder{}
	m := newTestManager(api, rec, clock)
	defer m.Close()

	_, err := m.CreatePayment(context.Background(), 100, "BTC", "user@example.com", "subscription")
	require.NoError(t, err)

	clock.Advance(126 * time.Second)

	require.Eventually(t, func() bool {
		return m.Status() == StatusExpired
	}, time.Second, time.Millisecond, "session should expire once the deadline passes")

	assert.True(t, rec.hasCountdown("0:00"))
	assert.True(t, rec.hasMessage(MsgSessionExpired))
	assert.Equal(t, StatusExpired, rec.lastStatus())
	assert.Equal(t, time.Duration(0), m.Remaining())

	// An expired session refuses verification without a server round trip.
	verified, err := m.VerifyPayment(context.Background())
	assert.ErrorIs(t, err, domain.ErrSessionExpired)
	assert.False(t, verified)
	assert.Equal(t, 0, api.calls())
}

func TestVerifyPayment_ExpiryDominatesInFlightResult(t *testing.T) {
	t0 := time.Now()
	clock := newFakeClock(t0)
	release := make(chan struct{})
	api := &fakeAPI{
		createResp: sessionResponse(t0.Add(125 * time.Second)),
		verifyFn: func() (bool, error) {
			<-release
			return true, nil
		},
	}
	rec := &eventRecorder{}
	m := newTestManager(api, rec, clock)
	defer m.Close()

	_, err := m.CreatePayment(context.Background(), 100, "BTC", "user@example.com", "subscription")
	require.NoError(t, err)

	type result struct {
		verified bool
		err      error
	}
	done := make(chan result, 1)
	go func() {
		verified, err := m.VerifyPayment(context.Background())
		done <- result{verified, err}
	}()

	require.Eventually(t, func() bool {
		return m.Status() == StatusVerifying
	}, time.Second, time.Millisecond)

	// The deadline passes while the verification request is in flight.
	clock.Advance(126 * time.Second)
	require.Eventually(t, func() bool {
		return m.Status() == StatusExpired
	}, time.Second, time.Millisecond)

	// The late positive answer must not resurrect the session.
	close(release)
	res := <-done
	assert.ErrorIs(t, res.err, domain.ErrSessionExpired)
	assert.False(t, res.verified)
	assert.Equal(t, StatusExpired, m.Status())
	assert.Equal(t, 0, rec.completeCount())
}

func TestCreatePayment_ReplacesExpiredSession(t *testing.T) {
	t0 := time.Now()
	clock := newFakeClock(t0)
	api := &fakeAPI{createResp: sessionResponse(t0.Add(time.Second))}
	rec := &eventRecorder{}
	m := newTestManager(api, rec, clock)
	defer m.Close()

	_, err := m.CreatePayment(context.Background(), 100, "BTC", "user@example.com", "subscription")
	require.NoError(t, err)

	clock.Advance(2 * time.Second)
	require.Eventually(t, func() bool {
		return m.Status() == StatusExpired
	}, time.Second, time.Millisecond)

	// Starting over gets a fresh payable session.
	api.createResp = sessionResponse(clock.Now().Add(20 * time.Minute))
	resp, err := m.CreatePayment(context.Background(), 100, "BTC", "user@example.com", "subscription")
	require.NoError(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, StatusPending, m.Status())
	assert.True(t, m.Remaining() > 0)
}

func TestFormatRemaining(t *testing.T) {
	cases := []struct {
		d    time.Duration
		want string
	}{
		{125 * time.Second, "2:05"},
		{20 * time.Minute, "20:00"},
		{59 * time.Second, "0:59"},
		{time.Second, "0:01"},
		{0, "0:00"},
		{-5 * time.Second, "0:00"},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, FormatRemaining(tc.d), "duration %s", tc.d)
	}
}

func TestQuoteAmount(t *testing.T) {
	rates := domain.RateTable{
		domain.CurrencyBTC:  decimal.NewFromInt(50000),
		domain.CurrencyETH:  decimal.NewFromInt(2500),
		domain.CurrencyUSDC: decimal.NewFromInt(1),
		domain.CurrencyUSDT: decimal.NewFromInt(1),
	}

	got, err := QuoteAmount(100, "BTC", rates)
	require.NoError(t, err)
	assert.Equal(t, "0.00200000", got)

	got, err = QuoteAmount(29.99, "USDC", rates)
	require.NoError(t, err)
	assert.Equal(t, "29.99", got)

	_, err = QuoteAmount(100, "DOGE", rates)
	assert.ErrorIs(t, err, domain.ErrUnsupportedCurrency)
}
