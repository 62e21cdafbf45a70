package sessionrepo

import (
	"context"
	"time"

	"github.com/coinflow/pss/internal/domain"
)

type ISessionRepository interface {
	// Create persists a freshly issued pending session.
	Create(ctx context.Context, session domain.PaymentSession) error

	// GetByPaymentID returns domain.ErrSessionNotFound for unknown IDs.
	GetByPaymentID(ctx context.Context, paymentID string) (domain.PaymentSession, error)

	// UpdateStatus moves a session to the given status.
	UpdateStatus(ctx context.Context, paymentID string, status domain.SessionStatus, errorMessage string) error

	// ExpireStale marks every pending session whose deadline has passed as
	// expired and returns the sessions it transitioned.
	ExpireStale(ctx context.Context, now time.Time) ([]domain.PaymentSession, error)
}
