package paymentservice

import (
	"context"

	"github.com/coinflow/pss/internal/domain"
)

// SessionBroadcaster pushes session state changes to connected clients.
type SessionBroadcaster interface {
	BroadcastPaymentSession(session domain.PaymentSession)
}

// RateSource resolves the current USD rate table.
type RateSource interface {
	GetRates(ctx context.Context) (domain.RateTable, error)
}

type IPaymentService interface {
	// CreatePayment issues a new payment session for the requested fiat
	// amount. The crypto amount is priced at the creation-time rate and
	// never re-priced.
	CreatePayment(ctx context.Context, req *domain.CreatePaymentRequest) (*domain.CreatePaymentResponse, error)

	// VerifyPayment checks whether the session's address has been paid.
	// Confirmed sessions short-circuit to true; expired sessions are
	// rejected regardless of any on-chain state.
	VerifyPayment(ctx context.Context, paymentID, walletAddress string) (bool, error)

	// GetExchangeRates returns the current rate table, cached or fresh.
	GetExchangeRates(ctx context.Context) (domain.RateTable, error)

	// StartExpirySweeper runs until ctx is done, periodically expiring
	// pending sessions whose deadline has passed.
	StartExpirySweeper(ctx context.Context) error
}
