package cache

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/coinflow/pss/internal/domain"
)

const ratesKey = "crypto:exchange_rates"

// RatesCache keeps the upstream rate table in Redis so every session
// creation does not hit the rate API. Redis failures degrade to a miss.
type RatesCache struct {
	rdb    *redis.Client
	ttl    time.Duration
	logger zerolog.Logger
}

func NewRatesCache(rdb *redis.Client, ttl time.Duration, logger zerolog.Logger) *RatesCache {
	return &RatesCache{
		rdb:    rdb,
		ttl:    ttl,
		logger: logger.With().Str("component", "rates_cache").Logger(),
	}
}

func (c *RatesCache) Get(ctx context.Context) (domain.RateTable, bool) {
	raw, err := c.rdb.Get(ctx, ratesKey).Result()
	if err == redis.Nil {
		return nil, false
	}
	if err != nil {
		c.logger.Warn().Err(err).Msg("Failed to read cached rates, treating as miss")
		return nil, false
	}

	var stored map[string]string
	if err := json.Unmarshal([]byte(raw), &stored); err != nil {
		c.logger.Warn().Err(err).Msg("Cached rates are malformed, treating as miss")
		return nil, false
	}

	rates := make(domain.RateTable, len(stored))
	for code, price := range stored {
		cur, err := domain.ParseCurrency(code)
		if err != nil {
			continue
		}
		d, err := decimal.NewFromString(price)
		if err != nil {
			c.logger.Warn().Err(err).Str("currency", code).Msg("Cached rate is malformed, treating as miss")
			return nil, false
		}
		rates[cur] = d
	}

	if len(rates) != len(domain.SupportedCurrencies()) {
		return nil, false
	}
	return rates, true
}

func (c *RatesCache) Set(ctx context.Context, rates domain.RateTable) error {
	stored := make(map[string]string, len(rates))
	for cur, price := range rates {
		stored[string(cur)] = price.String()
	}

	raw, err := json.Marshal(stored)
	if err != nil {
		return err
	}

	if err := c.rdb.Set(ctx, ratesKey, raw, c.ttl).Err(); err != nil {
		c.logger.Warn().Err(err).Msg("Failed to cache rates")
		return err
	}
	return nil
}
