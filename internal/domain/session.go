package domain

import (
	"encoding/json"
	"time"

	"github.com/shopspring/decimal"
)

type SessionStatus string

const (
	SessionStatusPending   SessionStatus = "pending"
	SessionStatusVerifying SessionStatus = "verifying"
	SessionStatusConfirmed SessionStatus = "confirmed"
	SessionStatusExpired   SessionStatus = "expired"
)

// PaymentSession is the bounded-lifetime record of one checkout attempt
// against a specific receiving address. Currency, amounts and expiry are
// fixed at creation; only the status moves afterwards.
type PaymentSession struct {
	ID            string          `json:"id" db:"id"`
	PaymentID     string          `json:"payment_id" db:"payment_id"`
	WalletAddress string          `json:"wallet_address" db:"wallet_address"`
	Currency      Currency        `json:"currency" db:"currency"`
	FiatAmount    decimal.Decimal `json:"fiat_amount" db:"fiat_amount"`
	CryptoAmount  decimal.Decimal `json:"crypto_amount" db:"crypto_amount"`
	ClientEmail   string          `json:"client_email" db:"client_email"`
	ServiceType   string          `json:"service_type" db:"service_type"`
	QRCode        string          `json:"qr_code" db:"qr_code"`
	Status        SessionStatus   `json:"status" db:"status"`
	Metadata      json.RawMessage `json:"metadata,omitempty" db:"metadata"`
	ErrorMessage  string          `json:"error_message,omitempty" db:"error_message"`
	ExpiresAt     time.Time       `json:"expires_at" db:"expires_at"`
	CreatedAt     time.Time       `json:"created_at" db:"created_at"`
	UpdatedAt     time.Time       `json:"updated_at" db:"updated_at"`
}

// PastExpiry reports whether the deadline has passed. A confirmed session
// never expires.
func (s *PaymentSession) PastExpiry(now time.Time) bool {
	if s.Status == SessionStatusConfirmed {
		return false
	}
	return !now.Before(s.ExpiresAt)
}

// Terminal reports whether no further transitions are allowed.
func (s *PaymentSession) Terminal() bool {
	return s.Status == SessionStatusConfirmed || s.Status == SessionStatusExpired
}
