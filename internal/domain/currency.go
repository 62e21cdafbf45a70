package domain

import "fmt"

// Currency is a supported settlement cryptocurrency.
type Currency string

const (
	CurrencyBTC  Currency = "BTC"
	CurrencyETH  Currency = "ETH"
	CurrencyUSDC Currency = "USDC"
	CurrencyUSDT Currency = "USDT"
)

func SupportedCurrencies() []Currency {
	return []Currency{CurrencyBTC, CurrencyETH, CurrencyUSDC, CurrencyUSDT}
}

// ParseCurrency validates a wire-format currency code.
func ParseCurrency(s string) (Currency, error) {
	switch Currency(s) {
	case CurrencyBTC, CurrencyETH, CurrencyUSDC, CurrencyUSDT:
		return Currency(s), nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnsupportedCurrency, s)
	}
}

// Stablecoin reports whether the currency is pegged 1:1 to USD.
func (c Currency) Stablecoin() bool {
	return c == CurrencyUSDC || c == CurrencyUSDT
}
