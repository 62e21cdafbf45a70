package sessionclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/coinflow/pss/internal/domain"
)

// IPaymentAPI is the client-side view of the crypto payment endpoints.
type IPaymentAPI interface {
	CreatePayment(ctx context.Context, req *domain.CreatePaymentRequest) (*domain.CreatePaymentResponse, error)
	VerifyPayment(ctx context.Context, paymentID, walletAddress string) (bool, error)
	GetExchangeRates(ctx context.Context) (domain.RateTable, error)
}

type apiClient struct {
	baseURL    string
	httpClient *http.Client
	logger     zerolog.Logger
}

func NewAPIClient(baseURL string, timeout time.Duration, logger zerolog.Logger) IPaymentAPI {
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &apiClient{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: timeout},
		logger:     logger.With().Str("component", "payment_api_client").Logger(),
	}
}

func (c *apiClient) CreatePayment(ctx context.Context, req *domain.CreatePaymentRequest) (*domain.CreatePaymentResponse, error) {
	var resp domain.CreatePaymentResponse
	status, err := c.postJSON(ctx, "/api/crypto/create-payment", req, &resp)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrPaymentServiceUnavailable, err)
	}
	if status != http.StatusOK {
		return nil, fmt.Errorf("%w: create-payment returned status %d", domain.ErrPaymentServiceUnavailable, status)
	}
	if !resp.Success || resp.PaymentID == "" || resp.WalletAddress == "" {
		return nil, fmt.Errorf("%w: create-payment returned incomplete session", domain.ErrPaymentServiceUnavailable)
	}
	return &resp, nil
}

func (c *apiClient) VerifyPayment(ctx context.Context, paymentID, walletAddress string) (bool, error) {
	req := domain.VerifyPaymentRequest{
		PaymentID:     paymentID,
		WalletAddress: walletAddress,
	}

	var resp domain.VerifyPaymentResponse
	status, err := c.postJSON(ctx, "/api/crypto/verify-payment", req, &resp)
	if err != nil {
		return false, fmt.Errorf("%w: %v", domain.ErrVerificationUnavailable, err)
	}

	switch status {
	case http.StatusOK:
		return resp.Verified, nil
	case http.StatusNotFound:
		return false, domain.ErrSessionNotFound
	case http.StatusGone:
		return false, domain.ErrSessionExpired
	default:
		return false, fmt.Errorf("%w: verify-payment returned status %d", domain.ErrVerificationUnavailable, status)
	}
}

func (c *apiClient) GetExchangeRates(ctx context.Context) (domain.RateTable, error) {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/api/crypto/exchange-rates", nil)
	if err != nil {
		return nil, err
	}

	httpResp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrPaymentServiceUnavailable, err)
	}
	defer httpResp.Body.Close()

	if httpResp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: exchange-rates returned status %d", domain.ErrPaymentServiceUnavailable, httpResp.StatusCode)
	}

	var wire domain.ExchangeRates
	if err := json.NewDecoder(httpResp.Body).Decode(&wire); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrPaymentServiceUnavailable, err)
	}
	return domain.RatesFromWire(wire), nil
}

// postJSON sends the payload and decodes a 2xx/4xx JSON body into out when it
// matches. The HTTP status is always returned so callers can map it.
func (c *apiClient) postJSON(ctx context.Context, path string, payload, out interface{}) (int, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return 0, err
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return 0, err
	}
	httpReq.Header.Set("Content-Type", "application/json")

	httpResp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return 0, err
	}
	defer httpResp.Body.Close()

	raw, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return httpResp.StatusCode, err
	}

	if httpResp.StatusCode == http.StatusOK {
		if err := json.Unmarshal(raw, out); err != nil {
			return httpResp.StatusCode, err
		}
	} else {
		c.logger.Debug().
			Int("status", httpResp.StatusCode).
			Str("path", path).
			Str("body", string(raw)).
			Msg("API request failed")
	}

	return httpResp.StatusCode, nil
}
