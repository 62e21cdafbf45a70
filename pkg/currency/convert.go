package currency

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/coinflow/pss/internal/domain"
)

// Decimals is the display precision for a currency: 8 for BTC, 6 for ETH,
// 2 for USD-pegged stablecoins.
func Decimals(c domain.Currency) int32 {
	switch c {
	case domain.CurrencyBTC:
		return 8
	case domain.CurrencyETH:
		return 6
	default:
		return 2
	}
}

// Convert prices a fiat amount in the given currency using the creation-time
// rate table. Stablecoins convert 1:1; everything else divides by the USD
// price per unit. The result is not re-priced later, so the session carries
// exchange-rate drift between creation and payment.
func Convert(fiat decimal.Decimal, c domain.Currency, rates domain.RateTable) (decimal.Decimal, error) {
	if c.Stablecoin() {
		return fiat, nil
	}

	rate, ok := rates[c]
	if !ok || rate.IsZero() {
		return decimal.Zero, fmt.Errorf("no exchange rate for %s", c)
	}

	return fiat.Div(rate), nil
}

// Format renders an amount at the currency's display precision.
func Format(amount decimal.Decimal, c domain.Currency) string {
	return amount.StringFixed(Decimals(c))
}

// PaymentURI builds the wallet-app deep link encoded into the session QR code.
func PaymentURI(c domain.Currency, address string, amount decimal.Decimal) string {
	switch c {
	case domain.CurrencyBTC:
		return fmt.Sprintf("bitcoin:%s?amount=%s", address, Format(amount, c))
	case domain.CurrencyETH:
		return fmt.Sprintf("ethereum:%s?value=%s", address, Format(amount, c))
	default:
		// stablecoins settle on Ethereum; the token is named in the query
		return fmt.Sprintf("ethereum:%s?token=%s&amount=%s", address, string(c), Format(amount, c))
	}
}
