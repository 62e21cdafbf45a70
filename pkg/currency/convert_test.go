package currency

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/coinflow/pss/internal/domain"
)

func testRates() domain.RateTable {
	return domain.RateTable{
		domain.CurrencyBTC:  decimal.NewFromInt(50000),
		domain.CurrencyETH:  decimal.NewFromInt(2500),
		domain.CurrencyUSDC: decimal.NewFromInt(1),
		domain.CurrencyUSDT: decimal.NewFromInt(1),
	}
}

func TestConvert_BTC(t *testing.T) {
	got, err := Convert(decimal.NewFromInt(100), domain.CurrencyBTC, testRates())
	require.NoError(t, err)
	assert.Equal(t, "0.00200000", Format(got, domain.CurrencyBTC))
}

func TestConvert_ETH(t *testing.T) {
	got, err := Convert(decimal.NewFromInt(50), domain.CurrencyETH, testRates())
	require.NoError(t, err)
	assert.Equal(t, "0.020000", Format(got, domain.CurrencyETH))
}

func TestConvert_StablecoinIsOneToOne(t *testing.T) {
	fiat := decimal.RequireFromString("29.99")

	got, err := Convert(fiat, domain.CurrencyUSDC, testRates())
	require.NoError(t, err)
	assert.Equal(t, "29.99", Format(got, domain.CurrencyUSDC))

	// stablecoins never consult the rate table
	got, err = Convert(fiat, domain.CurrencyUSDT, domain.RateTable{})
	require.NoError(t, err)
	assert.Equal(t, "29.99", Format(got, domain.CurrencyUSDT))
}

func TestConvert_MissingRate(t *testing.T) {
	_, err := Convert(decimal.NewFromInt(100), domain.CurrencyBTC, domain.RateTable{})
	assert.Error(t, err)

	_, err = Convert(decimal.NewFromInt(100), domain.CurrencyETH, domain.RateTable{
		domain.CurrencyETH: decimal.Zero,
	})
	assert.Error(t, err)
}

func TestPaymentURI(t *testing.T) {
	amt := decimal.RequireFromString("0.002")
	assert.Equal(t, "bitcoin:bc1qtest?amount=0.00200000", PaymentURI(domain.CurrencyBTC, "bc1qtest", amt))

	uri := PaymentURI(domain.CurrencyUSDC, "0xabc", decimal.RequireFromString("29.99"))
	assert.Equal(t, "ethereum:0xabc?token=USDC&amount=29.99", uri)
}
