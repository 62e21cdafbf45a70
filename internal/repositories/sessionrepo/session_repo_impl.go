package sessionrepo

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/sqlc-dev/pqtype"

	"github.com/coinflow/pss/internal/domain"
	"github.com/coinflow/pss/internal/infrastructure/database"
)

type sessionRepositoryImpl struct {
	db     *sql.DB
	logger zerolog.Logger
}

func New(db *database.DBManager, logger zerolog.Logger) ISessionRepository {
	return &sessionRepositoryImpl{
		db:     db.Db,
		logger: logger,
	}
}

const sessionColumns = `id, payment_id, wallet_address, currency, fiat_amount, crypto_amount,
	client_email, service_type, qr_code, status, metadata, error_message,
	expires_at, created_at, updated_at`

func (r *sessionRepositoryImpl) Create(ctx context.Context, session domain.PaymentSession) error {
	query := `INSERT INTO payment_sessions (` + sessionColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)`

	metadata := pqtype.NullRawMessage{RawMessage: session.Metadata, Valid: session.Metadata != nil}
	errorMessage := sql.NullString{String: session.ErrorMessage, Valid: session.ErrorMessage != ""}

	_, err := r.db.ExecContext(ctx, query,
		session.ID,
		session.PaymentID,
		session.WalletAddress,
		string(session.Currency),
		session.FiatAmount.String(),
		session.CryptoAmount.String(),
		session.ClientEmail,
		session.ServiceType,
		session.QRCode,
		string(session.Status),
		metadata,
		errorMessage,
		session.ExpiresAt,
		session.CreatedAt,
		session.UpdatedAt,
	)
	if err != nil {
		r.logger.Error().Err(err).Str("payment_id", session.PaymentID).Msg("Failed to create payment session")
		return fmt.Errorf("failed to create payment session: %w", err)
	}

	return nil
}

func (r *sessionRepositoryImpl) GetByPaymentID(ctx context.Context, paymentID string) (domain.PaymentSession, error) {
	query := `SELECT ` + sessionColumns + ` FROM payment_sessions WHERE payment_id = $1`

	row := r.db.QueryRowContext(ctx, query, paymentID)
	session, err := r.scanSession(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.PaymentSession{}, domain.ErrSessionNotFound
		}
		r.logger.Error().Err(err).Str("payment_id", paymentID).Msg("Failed to get payment session")
		return domain.PaymentSession{}, fmt.Errorf("failed to get payment session: %w", err)
	}

	return session, nil
}

func (r *sessionRepositoryImpl) UpdateStatus(ctx context.Context, paymentID string, status domain.SessionStatus, errorMessage string) error {
	query := `UPDATE payment_sessions
		SET status = $2, error_message = $3, updated_at = $4
		WHERE payment_id = $1`

	res, err := r.db.ExecContext(ctx, query,
		paymentID,
		string(status),
		sql.NullString{String: errorMessage, Valid: errorMessage != ""},
		time.Now().UTC(),
	)
	if err != nil {
		r.logger.Error().Err(err).Str("payment_id", paymentID).Str("status", string(status)).Msg("Failed to update payment session status")
		return fmt.Errorf("failed to update payment session status: %w", err)
	}

	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return domain.ErrSessionNotFound
	}

	return nil
}

func (r *sessionRepositoryImpl) ExpireStale(ctx context.Context, now time.Time) ([]domain.PaymentSession, error) {
	query := `UPDATE payment_sessions
		SET status = 'expired', error_message = 'Session expired', updated_at = $1
		WHERE status = 'pending' AND expires_at <= $1
		RETURNING ` + sessionColumns

	rows, err := r.db.QueryContext(ctx, query, now)
	if err != nil {
		r.logger.Error().Err(err).Msg("Failed to expire stale payment sessions")
		return nil, fmt.Errorf("failed to expire stale payment sessions: %w", err)
	}
	defer rows.Close()

	var expired []domain.PaymentSession
	for rows.Next() {
		session, err := r.scanSession(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan expired session: %w", err)
		}
		expired = append(expired, session)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read expired sessions: %w", err)
	}

	return expired, nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func (r *sessionRepositoryImpl) scanSession(row rowScanner) (domain.PaymentSession, error) {
	var (
		session      domain.PaymentSession
		currency     string
		fiatAmount   string
		cryptoAmount string
		status       string
		metadata     pqtype.NullRawMessage
		errorMessage sql.NullString
	)

	if err := row.Scan(
		&session.ID,
		&session.PaymentID,
		&session.WalletAddress,
		&currency,
		&fiatAmount,
		&cryptoAmount,
		&session.ClientEmail,
		&session.ServiceType,
		&session.QRCode,
		&status,
		&metadata,
		&errorMessage,
		&session.ExpiresAt,
		&session.CreatedAt,
		&session.UpdatedAt,
	); err != nil {
		return domain.PaymentSession{}, err
	}

	fiat, err := decimal.NewFromString(fiatAmount)
	if err != nil {
		return domain.PaymentSession{}, fmt.Errorf("invalid fiat amount %q: %w", fiatAmount, err)
	}
	crypto, err := decimal.NewFromString(cryptoAmount)
	if err != nil {
		return domain.PaymentSession{}, fmt.Errorf("invalid crypto amount %q: %w", cryptoAmount, err)
	}

	session.Currency = domain.Currency(currency)
	session.FiatAmount = fiat
	session.CryptoAmount = crypto
	session.Status = domain.SessionStatus(status)
	session.Metadata = metadata.RawMessage
	session.ErrorMessage = errorMessage.String

	return session, nil
}
