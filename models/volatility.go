package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// VolatilityEstimate is either a single implied volatility figure with the
// source that produced it, or no estimate at all (Found == false).
type VolatilityEstimate struct {
	Symbol     string          `json:"symbol"`
	Found      bool            `json:"found"`
	Value      decimal.Decimal `json:"value"`
	Source     string          `json:"source,omitempty"`
	Expiration *time.Time      `json:"expiration,omitempty"`
	Contracts  int             `json:"contracts,omitempty"`
}

// NoEstimate returns the empty outcome for symbol
func NoEstimate(symbol string) VolatilityEstimate {
	return VolatilityEstimate{Symbol: symbol}
}

// Percent renders the estimate as a percentage (0.32 -> 32)
func (v VolatilityEstimate) Percent() decimal.Decimal {
	return v.Value.Mul(decimal.NewFromInt(100))
}
