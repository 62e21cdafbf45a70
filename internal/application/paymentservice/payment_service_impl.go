package paymentservice

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/coinflow/pss/internal/domain"
	"github.com/coinflow/pss/internal/infrastructure/cache"
	"github.com/coinflow/pss/internal/infrastructure/clients"
	"github.com/coinflow/pss/internal/repositories/sessionrepo"
	"github.com/coinflow/pss/pkg/config"
	"github.com/coinflow/pss/pkg/currency"
)

type paymentService struct {
	sessionRepo   sessionrepo.ISessionRepository
	rateClient    RateSource
	ratesCache    *cache.RatesCache
	chainObserver clients.IChainObserver
	wsHub         SessionBroadcaster
	cfg           config.PaymentConfig
	logger        zerolog.Logger
	now           func() time.Time
}

func New(
	sessionRepo sessionrepo.ISessionRepository,
	rateClient RateSource,
	ratesCache *cache.RatesCache,
	chainObserver clients.IChainObserver,
	wsHub SessionBroadcaster,
	cfg config.PaymentConfig,
	logger zerolog.Logger,
) IPaymentService {
	return &paymentService{
		sessionRepo:   sessionRepo,
		rateClient:    rateClient,
		ratesCache:    ratesCache,
		chainObserver: chainObserver,
		wsHub:         wsHub,
		cfg:           cfg,
		logger:        logger.With().Str("component", "payment_service").Logger(),
		now:           time.Now,
	}
}

func (s *paymentService) CreatePayment(ctx context.Context, req *domain.CreatePaymentRequest) (*domain.CreatePaymentResponse, error) {
	if req.Amount <= 0 {
		return nil, domain.ErrInvalidAmount
	}
	cur, err := domain.ParseCurrency(req.Currency)
	if err != nil {
		return nil, err
	}
	if req.ClientEmail == "" {
		return nil, fmt.Errorf("client email is required")
	}

	wallet, ok := s.cfg.Wallets[string(cur)]
	if !ok || wallet == "" {
		s.logger.Error().Str("currency", string(cur)).Msg("No receiving wallet configured for currency")
		return nil, domain.ErrPaymentServiceUnavailable
	}

	rates, err := s.GetExchangeRates(ctx)
	if err != nil {
		s.logger.Error().Err(err).Msg("Failed to fetch exchange rates for payment creation")
		return nil, fmt.Errorf("%w: %v", domain.ErrPaymentServiceUnavailable, err)
	}

	fiat := decimal.NewFromFloat(req.Amount)
	cryptoAmount, err := currency.Convert(fiat, cur, rates)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrPaymentServiceUnavailable, err)
	}

	now := s.now().UTC()
	session := domain.PaymentSession{
		ID:            uuid.New().String(),
		PaymentID:     "pay_" + uuid.New().String(),
		WalletAddress: wallet,
		Currency:      cur,
		FiatAmount:    fiat,
		CryptoAmount:  cryptoAmount,
		ClientEmail:   req.ClientEmail,
		ServiceType:   req.ServiceType,
		QRCode:        currency.PaymentURI(cur, wallet, cryptoAmount),
		Status:        domain.SessionStatusPending,
		ExpiresAt:     now.Add(s.cfg.ValidityWindow),
		CreatedAt:     now,
		UpdatedAt:     now,
	}

	if err := s.sessionRepo.Create(ctx, session); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrPaymentServiceUnavailable, err)
	}

	s.logger.Info().
		Str("payment_id", session.PaymentID).
		Str("currency", string(cur)).
		Str("crypto_amount", currency.Format(cryptoAmount, cur)).
		Time("expires_at", session.ExpiresAt).
		Msg("Payment session created")

	amount, _ := cryptoAmount.Round(currency.Decimals(cur)).Float64()
	return &domain.CreatePaymentResponse{
		Success:       true,
		WalletAddress: session.WalletAddress,
		PaymentID:     session.PaymentID,
		QRCode:        session.QRCode,
		Amount:        amount,
		Currency:      string(cur),
		ExpiresAt:     session.ExpiresAt,
	}, nil
}

func (s *paymentService) VerifyPayment(ctx context.Context, paymentID, walletAddress string) (bool, error) {
	session, err := s.sessionRepo.GetByPaymentID(ctx, paymentID)
	if err != nil {
		return false, err
	}
	if session.WalletAddress != walletAddress {
		return false, domain.ErrSessionNotFound
	}

	// Re-verifying a confirmed session is a no-op.
	if session.Status == domain.SessionStatusConfirmed {
		return true, nil
	}

	// Expiry dominates: a session past its deadline can never confirm,
	// even if a matching transaction lands later.
	if session.Status == domain.SessionStatusExpired || session.PastExpiry(s.now()) {
		if session.Status != domain.SessionStatusExpired {
			if err := s.sessionRepo.UpdateStatus(ctx, paymentID, domain.SessionStatusExpired, "Session expired"); err != nil {
				s.logger.Error().Err(err).Str("payment_id", paymentID).Msg("Failed to mark session as expired")
			} else {
				session.Status = domain.SessionStatusExpired
				s.wsHub.BroadcastPaymentSession(session)
			}
		}
		return false, domain.ErrSessionExpired
	}

	observed, err := s.chainObserver.AddressReceived(ctx, session.Currency, session.WalletAddress, session.CryptoAmount)
	if err != nil {
		s.logger.Error().Err(err).Str("payment_id", paymentID).Msg("Chain observer query failed")
		return false, fmt.Errorf("%w: %v", domain.ErrVerificationUnavailable, err)
	}

	if !observed {
		s.logger.Info().Str("payment_id", paymentID).Msg("Payment not yet observed on chain")
		return false, nil
	}

	if err := s.sessionRepo.UpdateStatus(ctx, paymentID, domain.SessionStatusConfirmed, ""); err != nil {
		return false, fmt.Errorf("%w: %v", domain.ErrVerificationUnavailable, err)
	}
	session.Status = domain.SessionStatusConfirmed
	s.wsHub.BroadcastPaymentSession(session)

	s.logger.Info().
		Str("payment_id", paymentID).
		Str("currency", string(session.Currency)).
		Msg("Payment confirmed")

	return true, nil
}

func (s *paymentService) GetExchangeRates(ctx context.Context) (domain.RateTable, error) {
	if s.ratesCache != nil {
		if rates, ok := s.ratesCache.Get(ctx); ok {
			return rates, nil
		}
	}

	rates, err := s.rateClient.GetRates(ctx)
	if err != nil {
		return nil, err
	}

	if s.ratesCache != nil {
		if err := s.ratesCache.Set(ctx, rates); err != nil {
			s.logger.Warn().Err(err).Msg("Failed to cache exchange rates")
		}
	}

	return rates, nil
}

func (s *paymentService) StartExpirySweeper(ctx context.Context) error {
	s.logger.Info().Dur("interval", s.cfg.ExpirySweepInterval).Msg("Starting session expiry sweeper")

	ticker := time.NewTicker(s.cfg.ExpirySweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.logger.Info().Msg("Session expiry sweeper stopped")
			return ctx.Err()
		case <-ticker.C:
			expired, err := s.sessionRepo.ExpireStale(ctx, s.now().UTC())
			if err != nil {
				s.logger.Error().Err(err).Msg("Failed to expire stale sessions")
				continue
			}
			for _, session := range expired {
				s.wsHub.BroadcastPaymentSession(session)
			}
			if len(expired) > 0 {
				s.logger.Info().Int("count", len(expired)).Msg("Expired stale payment sessions")
			}
		}
	}
}
