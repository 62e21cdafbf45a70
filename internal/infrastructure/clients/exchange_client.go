package clients

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/coinflow/pss/internal/domain"
	"github.com/coinflow/pss/pkg/config"
)

// ExchangeAPIClient fetches USD prices from a CoinCap-compatible asset API.
type ExchangeAPIClient struct {
	baseURL    string
	httpClient *http.Client
	config     *config.ExchangeAPIConfig
	logger     zerolog.Logger
}

func NewExchangeAPIClient(cfg *config.ExchangeAPIConfig, logger zerolog.Logger) *ExchangeAPIClient {
	return &ExchangeAPIClient{
		baseURL: cfg.BaseURL,
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
			Transport: &http.Transport{
				MaxIdleConns:        10,
				IdleConnTimeout:     30 * time.Second,
				MaxIdleConnsPerHost: 10,
			},
		},
		config: cfg,
		logger: logger.With().Str("component", "exchange_api_client").Logger(),
	}
}

// GetRates fetches the USD price of every supported currency. A failure on
// any single asset fails the whole table: pricing a payment off a partial
// table would silently misquote.
func (c *ExchangeAPIClient) GetRates(ctx context.Context) (domain.RateTable, error) {
	rates := make(domain.RateTable, len(domain.SupportedCurrencies()))

	for _, cur := range domain.SupportedCurrencies() {
		rate, err := c.getRateWithRetry(ctx, cur, 0)
		if err != nil {
			return nil, fmt.Errorf("fetching rate for %s: %w", cur, err)
		}
		rates[cur] = rate
	}

	return rates, nil
}

func (c *ExchangeAPIClient) getRateWithRetry(ctx context.Context, cur domain.Currency, attempt int) (decimal.Decimal, error) {
	u, err := url.Parse(c.baseURL)
	if err != nil {
		return decimal.Zero, fmt.Errorf("invalid base URL: %w", err)
	}
	u.Path = fmt.Sprintf("/v3/assets/%s", assetID(cur))

	req, err := http.NewRequestWithContext(ctx, "GET", u.String(), nil)
	if err != nil {
		return decimal.Zero, fmt.Errorf("creating request failed: %w", err)
	}

	if c.config.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.config.APIKey)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if shouldRetry(err) && attempt < c.config.MaxRetries {
			if err := c.backoff(ctx, attempt); err != nil {
				return decimal.Zero, err
			}
			return c.getRateWithRetry(ctx, cur, attempt+1)
		}
		return decimal.Zero, fmt.Errorf("HTTP request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		if shouldRetryStatusCode(resp.StatusCode) && attempt < c.config.MaxRetries {
			c.logger.Warn().
				Int("status_code", resp.StatusCode).
				Int("attempt", attempt+1).
				Str("currency", string(cur)).
				Msg("Received non-200 status, retrying after backoff")
			if err := c.backoff(ctx, attempt); err != nil {
				return decimal.Zero, err
			}
			return c.getRateWithRetry(ctx, cur, attempt+1)
		}
		body, _ := io.ReadAll(resp.Body)
		return decimal.Zero, fmt.Errorf("HTTP error %d: %s", resp.StatusCode, string(body))
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return decimal.Zero, fmt.Errorf("reading response body failed: %w", err)
	}

	return parseAssetPrice(body)
}

func (c *ExchangeAPIClient) backoff(ctx context.Context, attempt int) error {
	delay := c.config.RetryDelay * time.Duration(1<<attempt)
	if delay > 30*time.Second {
		delay = 30 * time.Second
	}
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(delay):
		return nil
	}
}

func parseAssetPrice(body []byte) (decimal.Decimal, error) {
	var response struct {
		Data      domain.CoinCapAsset `json:"data"`
		Timestamp int64               `json:"timestamp"`
	}

	if err := json.Unmarshal(body, &response); err != nil {
		return decimal.Zero, fmt.Errorf("parsing JSON response failed: %w", err)
	}

	price, err := decimal.NewFromString(response.Data.PriceUSD)
	if err != nil {
		return decimal.Zero, fmt.Errorf("invalid price format: %w", err)
	}

	return price, nil
}

func assetID(cur domain.Currency) string {
	switch cur {
	case domain.CurrencyBTC:
		return "bitcoin"
	case domain.CurrencyETH:
		return "ethereum"
	case domain.CurrencyUSDC:
		return "usd-coin"
	case domain.CurrencyUSDT:
		return "tether"
	}
	return string(cur)
}

func shouldRetry(err error) bool {
	if err, ok := err.(interface{ Timeout() bool }); ok && err.Timeout() {
		return true
	}
	if err, ok := err.(interface{ Temporary() bool }); ok && err.Temporary() {
		return true
	}
	return false
}

func shouldRetryStatusCode(statusCode int) bool {
	return statusCode == http.StatusTooManyRequests ||
		statusCode == http.StatusInternalServerError ||
		statusCode == http.StatusBadGateway ||
		statusCode == http.StatusServiceUnavailable ||
		statusCode == http.StatusGatewayTimeout
}
