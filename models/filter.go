package models

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// Moneyness restricts results by strike relative to the underlying price
type Moneyness string

const (
	MoneynessAny Moneyness = "any"
	MoneynessOTM Moneyness = "otm"
	MoneynessITM Moneyness = "itm"
)

// ParseMoneyness accepts the short names plus the long "OTM only" style labels
func ParseMoneyness(s string) (Moneyness, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "any":
		return MoneynessAny, nil
	case "otm", "otm only", "out-of-the-money":
		return MoneynessOTM, nil
	case "itm", "itm only", "in-the-money":
		return MoneynessITM, nil
	}
	return "", fmt.Errorf("unknown moneyness %q (want any, otm or itm)", s)
}

// FilterConfig holds the predicates applied to derived metric rows
type FilterConfig struct {
	TargetPct       decimal.Decimal `json:"target_pct"`
	MinDTE          int             `json:"min_dte"`
	MaxDTE          int             `json:"max_dte"`
	MinBid          decimal.Decimal `json:"min_bid"`
	MinOpenInterest int64           `json:"min_open_interest"`
	MinVolume       int64           `json:"min_volume"`
	Moneyness       Moneyness       `json:"moneyness"`
	UseMid          bool            `json:"use_mid"`
	MaxRows         int             `json:"max_rows"` // 0 means unlimited
}

// DefaultFilterConfig returns the scanner's stock filter settings
func DefaultFilterConfig() FilterConfig {
	return FilterConfig{
		TargetPct:       decimal.NewFromInt(10),
		MinDTE:          7,
		MaxDTE:          45,
		MinBid:          decimal.RequireFromString("0.10"),
		MinOpenInterest: 50,
		MinVolume:       0,
		Moneyness:       MoneynessAny,
		UseMid:          true,
		MaxRows:         1000,
	}
}

// Validate checks that the configuration is internally consistent
func (f FilterConfig) Validate() error {
	if f.TargetPct.IsNegative() {
		return fmt.Errorf("target pct must not be negative, got %s", f.TargetPct)
	}
	if f.MinDTE < 0 {
		return fmt.Errorf("min DTE must not be negative, got %d", f.MinDTE)
	}
	if f.MaxDTE < f.MinDTE {
		return fmt.Errorf("max DTE (%d) must be >= min DTE (%d)", f.MaxDTE, f.MinDTE)
	}
	if f.MinBid.IsNegative() {
		return fmt.Errorf("min bid must not be negative, got %s", f.MinBid)
	}
	if f.MinOpenInterest < 0 || f.MinVolume < 0 {
		return fmt.Errorf("liquidity minimums must not be negative")
	}
	if f.MaxRows < 0 {
		return fmt.Errorf("max rows must not be negative, got %d", f.MaxRows)
	}
	if _, err := ParseMoneyness(string(f.Moneyness)); err != nil {
		return err
	}
	return nil
}
