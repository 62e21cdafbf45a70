package domain

import "github.com/shopspring/decimal"

// RateTable maps a currency to its USD price per unit. It is the divisor in
// the fiat-to-crypto conversion.
type RateTable map[Currency]decimal.Decimal

// ExchangeRates is the wire shape of GET /api/crypto/exchange-rates.
type ExchangeRates struct {
	BTC  float64 `json:"BTC"`
	ETH  float64 `json:"ETH"`
	USDC float64 `json:"USDC"`
	USDT float64 `json:"USDT"`
}

func (t RateTable) Wire() ExchangeRates {
	f := func(c Currency) float64 {
		v, _ := t[c].Float64()
		return v
	}
	return ExchangeRates{BTC: f(CurrencyBTC), ETH: f(CurrencyETH), USDC: f(CurrencyUSDC), USDT: f(CurrencyUSDT)}
}

func RatesFromWire(w ExchangeRates) RateTable {
	return RateTable{
		CurrencyBTC:  decimal.NewFromFloat(w.BTC),
		CurrencyETH:  decimal.NewFromFloat(w.ETH),
		CurrencyUSDC: decimal.NewFromFloat(w.USDC),
		CurrencyUSDT: decimal.NewFromFloat(w.USDT),
	}
}

// CoinCapAsset is the asset record returned by the upstream rate API.
type CoinCapAsset struct {
	ID                string `json:"id"`
	Rank              string `json:"rank"`
	Symbol            string `json:"symbol"`
	Name              string `json:"name"`
	Supply            string `json:"supply"`
	MaxSupply         string `json:"maxSupply"`
	MarketCapUSD      string `json:"marketCapUsd"`
	VolumeUSD24Hr     string `json:"volumeUsd24Hr"`
	PriceUSD          string `json:"priceUsd"`
	ChangePercent24Hr string `json:"changePercent24Hr"`
	VWAP24Hr          string `json:"vwap24Hr"`
}
