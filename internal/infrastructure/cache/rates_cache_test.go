package cache

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/go-redis/redismock/v9"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/coinflow/pss/internal/domain"
)

func fullRates() domain.RateTable {
	return domain.RateTable{
		domain.CurrencyBTC:  decimal.NewFromInt(50000),
		domain.CurrencyETH:  decimal.NewFromInt(2500),
		domain.CurrencyUSDC: decimal.NewFromInt(1),
		domain.CurrencyUSDT: decimal.NewFromInt(1),
	}
}

func TestRatesCache_Miss(t *testing.T) {
	rdb, mock := redismock.NewClientMock()
	c := NewRatesCache(rdb, time.Minute, zerolog.Nop())

	mock.ExpectGet("crypto:exchange_rates").RedisNil()

	_, ok := c.Get(context.Background())
	assert.False(t, ok)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestRatesCache_SetThenGet(t *testing.T) {
	rdb, mock := redismock.NewClientMock()
	c := NewRatesCache(rdb, time.Minute, zerolog.Nop())

	rates := fullRates()
	stored := map[string]string{"BTC": "50000", "ETH": "2500", "USDC": "1", "USDT": "1"}
	raw, err := json.Marshal(stored)
	require.NoError(t, err)

	mock.ExpectSet("crypto:exchange_rates", raw, time.Minute).SetVal("OK")
	require.NoError(t, c.Set(context.Background(), rates))

	mock.ExpectGet("crypto:exchange_rates").SetVal(string(raw))
	got, ok := c.Get(context.Background())
	require.True(t, ok)
	assert.True(t, got[domain.CurrencyBTC].Equal(decimal.NewFromInt(50000)))
	assert.True(t, got[domain.CurrencyUSDT].Equal(decimal.NewFromInt(1)))

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestRatesCache_PartialTableIsMiss(t *testing.T) {
	rdb, mock := redismock.NewClientMock()
	c := NewRatesCache(rdb, time.Minute, zerolog.Nop())

	raw, err := json.Marshal(map[string]string{"BTC": "50000"})
	require.NoError(t, err)
	mock.ExpectGet("crypto:exchange_rates").SetVal(string(raw))

	_, ok := c.Get(context.Background())
	assert.False(t, ok)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestRatesCache_MalformedIsMiss(t *testing.T) {
	rdb, mock := redismock.NewClientMock()
	c := NewRatesCache(rdb, time.Minute, zerolog.Nop())

	mock.ExpectGet("crypto:exchange_rates").SetVal("not json")

	_, ok := c.Get(context.Background())
	assert.False(t, ok)
	require.NoError(t, mock.ExpectationsWereMet())
}
