package sessionclient

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/coinflow/pss/internal/domain"
	"github.com/coinflow/pss/pkg/currency"
)

// Status is the client-side lifecycle state of a payment session.
type Status string

const (
	StatusIdle      Status = "idle"
	StatusPending   Status = "pending"
	StatusVerifying Status = "verifying"
	StatusConfirmed Status = "confirmed"
	StatusExpired   Status = "expired"
)

// User-facing messages emitted through Events.OnMessage.
const (
	MsgPaymentCreationFailed = "Payment Creation Failed"
	MsgPaymentNotFound       = "Payment Not Found"
	MsgVerificationFailed    = "Verification Failed"
	MsgSessionExpired        = "Payment session expired"
)

var ErrVerificationInProgress = errors.New("verification already in progress")

// Events are the manager's callbacks. All of them are optional and are
// invoked outside the manager's lock, so they may call back into it.
type Events struct {
	OnStatus          func(status Status)
	OnCountdown       func(remaining string)
	OnPaymentComplete func(paymentID string)
	OnMessage         func(message string)
}

// ActiveSession is the manager's snapshot of the session it is driving.
type ActiveSession struct {
	PaymentID     string
	WalletAddress string
	Currency      string
	Amount        float64
	QRCode        string
	ExpiresAt     time.Time
}

// Manager drives one payment session at a time through
// pending -> verifying -> confirmed/expired, emitting a countdown tick while
// the session is still payable. Confirmed and expired are terminal for the
// session; creating a new payment replaces it.
type Manager struct {
	api    IPaymentAPI
	events Events
	logger zerolog.Logger

	mu            sync.Mutex
	status        Status
	session       *ActiveSession
	gen           uint64
	completeFired bool
	stop          chan struct{}

	now          func() time.Time
	tickInterval time.Duration
}

func NewManager(api IPaymentAPI, events Events, logger zerolog.Logger) *Manager {
	return &Manager{
		api:          api,
		events:       events,
		logger:       logger.With().Str("component", "session_manager").Logger(),
		status:       StatusIdle,
		now:          time.Now,
		tickInterval: time.Second,
	}
}

// CreatePayment requests a new session from the server and starts the
// countdown. Any previous session is abandoned, whatever its state.
func (m *Manager) CreatePayment(ctx context.Context, amount float64, currencyCode, clientEmail, serviceType string) (*domain.CreatePaymentResponse, error) {
	req := &domain.CreatePaymentRequest{
		Amount:      amount,
		Currency:    currencyCode,
		ClientEmail: clientEmail,
		ServiceType: serviceType,
	}

	resp, err := m.api.CreatePayment(ctx, req)
	if err != nil {
		m.logger.Error().Err(err).Msg("Payment creation failed")
		m.emitMessage(MsgPaymentCreationFailed)
		return nil, err
	}

	m.mu.Lock()
	if m.stop != nil {
		close(m.stop)
	}
	m.gen++
	gen := m.gen
	m.stop = make(chan struct{})
	m.completeFired = false
	m.status = StatusPending
	m.session = &ActiveSession{
		PaymentID:     resp.PaymentID,
		WalletAddress: resp.WalletAddress,
		Currency:      resp.Currency,
		Amount:        resp.Amount,
		QRCode:        resp.QRCode,
		ExpiresAt:     resp.ExpiresAt,
	}
	stop := m.stop
	m.mu.Unlock()

	m.emitStatus(StatusPending)
	go m.runCountdown(gen, stop)
	m.tick(gen)

	return resp, nil
}

// VerifyPayment asks the server whether the active session has been paid.
// A negative answer leaves the session payable; expiry always wins over a
// verification result that arrives after the deadline.
func (m *Manager) VerifyPayment(ctx context.Context) (bool, error) {
	m.mu.Lock()
	if m.session == nil {
		m.mu.Unlock()
		return false, domain.ErrNoActiveSession
	}
	switch m.status {
	case StatusConfirmed:
		m.mu.Unlock()
		return true, nil
	case StatusExpired:
		m.mu.Unlock()
		return false, domain.ErrSessionExpired
	case StatusVerifying:
		m.mu.Unlock()
		return false, ErrVerificationInProgress
	}
	gen := m.gen
	paymentID := m.session.PaymentID
	wallet := m.session.WalletAddress
	m.status = StatusVerifying
	m.mu.Unlock()

	m.emitStatus(StatusVerifying)

	verified, err := m.api.VerifyPayment(ctx, paymentID, wallet)

	m.mu.Lock()
	if gen != m.gen {
		// A newer session replaced this one mid-flight.
		m.mu.Unlock()
		return false, domain.ErrNoActiveSession
	}
	if m.status == StatusExpired || errors.Is(err, domain.ErrSessionExpired) {
		expired := m.status != StatusExpired
		if expired {
			m.status = StatusExpired
			if m.stop != nil {
				close(m.stop)
				m.stop = nil
			}
		}
		m.mu.Unlock()
		if expired {
			m.emitStatus(StatusExpired)
			m.emitMessage(MsgSessionExpired)
		}
		return false, domain.ErrSessionExpired
	}

	if err != nil {
		m.status = StatusPending
		m.mu.Unlock()
		m.logger.Error().Err(err).Str("payment_id", paymentID).Msg("Verification request failed")
		m.emitStatus(StatusPending)
		m.emitMessage(MsgVerificationFailed)
		return false, err
	}

	if !verified {
		m.status = StatusPending
		m.mu.Unlock()
		m.emitStatus(StatusPending)
		m.emitMessage(MsgPaymentNotFound)
		return false, nil
	}

	m.status = StatusConfirmed
	fireComplete := !m.completeFired
	m.completeFired = true
	if m.stop != nil {
		close(m.stop)
		m.stop = nil
	}
	m.mu.Unlock()

	m.emitStatus(StatusConfirmed)
	if fireComplete && m.events.OnPaymentComplete != nil {
		m.events.OnPaymentComplete(paymentID)
	}
	return true, nil
}

// Status returns the current lifecycle state.
func (m *Manager) Status() Status {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.status
}

// Session returns a copy of the active session, or nil when there is none.
func (m *Manager) Session() *ActiveSession {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.session == nil {
		return nil
	}
	s := *m.session
	return &s
}

// Remaining reports how long the active session stays payable.
func (m *Manager) Remaining() time.Duration {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.session == nil || m.status == StatusConfirmed || m.status == StatusExpired {
		return 0
	}
	remaining := m.session.ExpiresAt.Sub(m.now())
	if remaining < 0 {
		return 0
	}
	return remaining
}

// Close abandons the active session and stops the countdown.
func (m *Manager) Close() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.stop != nil {
		close(m.stop)
		m.stop = nil
	}
	m.gen++
	m.session = nil
	m.status = StatusIdle
}

func (m *Manager) runCountdown(gen uint64, stop <-chan struct{}) {
	ticker := time.NewTicker(m.tickInterval)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			if !m.tick(gen) {
				return
			}
		}
	}
}

// tick emits one countdown update and flips the session to expired when the
// deadline has passed. It reports whether the countdown should keep running.
func (m *Manager) tick(gen uint64) bool {
	m.mu.Lock()
	if gen != m.gen || m.session == nil || m.status == StatusConfirmed || m.status == StatusExpired {
		m.mu.Unlock()
		return false
	}

	remaining := m.session.ExpiresAt.Sub(m.now())
	if remaining <= 0 {
		m.status = StatusExpired
		if m.stop != nil {
			close(m.stop)
			m.stop = nil
		}
		m.mu.Unlock()

		m.emitCountdown(FormatRemaining(0))
		m.emitStatus(StatusExpired)
		m.emitMessage(MsgSessionExpired)
		return false
	}
	m.mu.Unlock()

	m.emitCountdown(FormatRemaining(remaining))
	return true
}

func (m *Manager) emitStatus(status Status) {
	if m.events.OnStatus != nil {
		m.events.OnStatus(status)
	}
}

func (m *Manager) emitCountdown(remaining string) {
	if m.events.OnCountdown != nil {
		m.events.OnCountdown(remaining)
	}
}

func (m *Manager) emitMessage(message string) {
	if m.events.OnMessage != nil {
		m.events.OnMessage(message)
	}
}

// FormatRemaining renders a countdown as M:SS, clamping at 0:00.
func FormatRemaining(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	total := int(d.Round(time.Second).Seconds())
	return fmt.Sprintf("%d:%02d", total/60, total%60)
}

// QuoteAmount converts a fiat amount into its display string for the given
// currency at the supplied rates, e.g. 100 USD at a 50000 BTC rate is
// "0.00200000".
func QuoteAmount(fiatAmount float64, currencyCode string, rates domain.RateTable) (string, error) {
	cur, err := domain.ParseCurrency(currencyCode)
	if err != nil {
		return "", err
	}
	amount, err := currency.Convert(decimal.NewFromFloat(fiatAmount), cur, rates)
	if err != nil {
		return "", err
	}
	return currency.Format(amount, cur), nil
}
