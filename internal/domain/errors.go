package domain

import "errors"

var (
	// ErrPaymentServiceUnavailable means the issuing call failed and no
	// session was created.
	ErrPaymentServiceUnavailable = errors.New("payment service unavailable")

	// ErrVerificationUnavailable means the verification call failed at the
	// transport or server level, as opposed to a legitimate negative answer.
	ErrVerificationUnavailable = errors.New("verification unavailable")

	// ErrSessionExpired means the payment deadline passed before the session
	// was confirmed. The only recovery is a new session.
	ErrSessionExpired = errors.New("payment session expired")

	ErrSessionNotFound     = errors.New("payment session not found")
	ErrUnsupportedCurrency = errors.New("unsupported currency")
	ErrInvalidAmount       = errors.New("amount must be greater than zero")
	ErrNoActiveSession     = errors.New("no active payment session")
)
