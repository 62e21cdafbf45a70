package clients

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/coinflow/pss/internal/domain"
	"github.com/coinflow/pss/pkg/config"
)

// IChainObserver answers whether a receiving address has been paid. The
// chain-watching itself (indexers, RPC nodes) lives behind this boundary.
type IChainObserver interface {
	// AddressReceived reports whether the address has received at least
	// minAmount of the given currency.
	AddressReceived(ctx context.Context, currency domain.Currency, address string, minAmount decimal.Decimal) (bool, error)
}

type chainObserverClient struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	maxRetries int
	retryDelay time.Duration
	logger     zerolog.Logger
}

func NewChainObserverClient(cfg config.ChainObserverConfig, logger zerolog.Logger) IChainObserver {
	return &chainObserverClient{
		baseURL: cfg.BaseURL,
		apiKey:  cfg.APIKey,
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
		},
		maxRetries: cfg.MaxRetries,
		retryDelay: cfg.RetryDelay,
		logger:     logger.With().Str("component", "chain_observer_client").Logger(),
	}
}

func (c *chainObserverClient) AddressReceived(ctx context.Context, currency domain.Currency, address string, minAmount decimal.Decimal) (bool, error) {
	endpoint := fmt.Sprintf("/v1/address/%s/%s/received", currency, address)

	var response struct {
		Address  string `json:"address"`
		Currency string `json:"currency"`
		Received string `json:"received"`
	}
	if err := c.makeRequest(ctx, "GET", endpoint, &response); err != nil {
		return false, fmt.Errorf("failed to query received amount for %s: %w", address, err)
	}

	received, err := decimal.NewFromString(response.Received)
	if err != nil {
		return false, fmt.Errorf("invalid received amount %q: %w", response.Received, err)
	}

	return received.GreaterThanOrEqual(minAmount), nil
}

// makeRequest makes an HTTP request with retries
func (c *chainObserverClient) makeRequest(ctx context.Context, method, endpoint string, response interface{}) error {
	fullURL := c.baseURL + endpoint

	var lastErr error

	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(c.retryDelay * time.Duration(1<<(attempt-1))): // Exponential backoff
			}
		}

		req, err := http.NewRequestWithContext(ctx, method, fullURL, nil)
		if err != nil {
			lastErr = fmt.Errorf("failed to create request: %w", err)
			continue
		}

		req.Header.Set("Content-Type", "application/json")
		if c.apiKey != "" {
			req.Header.Set("X-API-Key", c.apiKey)
		}

		resp, err := c.httpClient.Do(req)
		if err != nil {
			lastErr = fmt.Errorf("request failed: %w", err)
			c.logger.Warn().Err(err).Int("attempt", attempt+1).Str("url", fullURL).Msg("Chain observer request failed, retrying")
			continue
		}

		body, readErr := io.ReadAll(resp.Body)
		resp.Body.Close()
		if readErr != nil {
			lastErr = fmt.Errorf("failed to read response body: %w", readErr)
			continue
		}

		if resp.StatusCode >= 200 && resp.StatusCode < 300 {
			if err := json.Unmarshal(body, response); err != nil {
				lastErr = fmt.Errorf("failed to unmarshal response: %w", err)
				continue
			}
			return nil
		}

		if resp.StatusCode >= 500 {
			lastErr = fmt.Errorf("server error (status %d): %s", resp.StatusCode, string(body))
			c.logger.Warn().Int("status", resp.StatusCode).Int("attempt", attempt+1).Str("url", fullURL).Msg("Chain observer server error, retrying")
			continue
		}

		// Client errors (4xx) - don't retry
		return fmt.Errorf("client error (status %d): %s", resp.StatusCode, string(body))
	}

	c.logger.Error().Err(lastErr).Str("url", fullURL).Int("max_retries", c.maxRetries).Msg("Chain observer request failed after all retries")
	return fmt.Errorf("request failed after %d retries: %w", c.maxRetries, lastErr)
}
