package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// ContractTypePut is the only contract type the scanner collects
const ContractTypePut = "put"

// QuoteSource identifies which upstream call produced a quote's bid and ask
type QuoteSource string

const (
	QuoteSourceChain     QuoteSource = "chain"
	QuoteSourceNBBO      QuoteSource = "nbbo"
	QuoteSourceSnapshot  QuoteSource = "snapshot"
	QuoteSourceLastTrade QuoteSource = "last_trade"
	QuoteSourcePrevClose QuoteSource = "prev_close"
	QuoteSourceCSV       QuoteSource = "csv"
	QuoteSourceNone      QuoteSource = "none"
)

// OptionQuote is one normalized put quote from any provider
type OptionQuote struct {
	Provider        string              `json:"provider"`
	OptionSymbol    string              `json:"option_symbol"`
	Underlying      string              `json:"underlying"`
	ContractType    string              `json:"type"`
	Strike          decimal.Decimal     `json:"strike"`
	Expiration      time.Time           `json:"expiration"`
	Bid             decimal.Decimal     `json:"bid"`
	Ask             decimal.Decimal     `json:"ask"`
	Last            decimal.NullDecimal `json:"last"`
	Volume          *int64              `json:"volume,omitempty"`
	OpenInterest    *int64              `json:"open_interest,omitempty"`
	UnderlyingPrice decimal.NullDecimal `json:"underlying_price"`
	Exchange        string              `json:"exchange,omitempty"`
	UpdatedAt       *time.Time          `json:"updated,omitempty"`
	QuoteSource     QuoteSource         `json:"quote_source,omitempty"`
}

// HasQuote reports whether either side of the market is non-zero
func (q OptionQuote) HasQuote() bool {
	return q.Bid.IsPositive() || q.Ask.IsPositive()
}

// Mid returns the midpoint of bid and ask
func (q OptionQuote) Mid() decimal.Decimal {
	return q.Bid.Add(q.Ask).Div(decimal.NewFromInt(2))
}

// VolumeOrZero returns the volume, treating a missing value as zero
func (q OptionQuote) VolumeOrZero() int64 {
	if q.Volume == nil {
		return 0
	}
	return *q.Volume
}

// OpenInterestOrZero returns the open interest, treating a missing value as zero
func (q OptionQuote) OpenInterestOrZero() int64 {
	if q.OpenInterest == nil {
		return 0
	}
	return *q.OpenInterest
}

// Int64Ptr returns a pointer to v
func Int64Ptr(v int64) *int64 {
	return &v
}

// NullDecimalFromFloat wraps f as a present value
func NullDecimalFromFloat(f float64) decimal.NullDecimal {
	return decimal.NewNullDecimal(decimal.NewFromFloat(f))
}

// PositiveNullDecimal returns a present value only when f > 0. Upstreams
// report "no data" as zero for prices.
func PositiveNullDecimal(f float64) decimal.NullDecimal {
	if f <= 0 {
		return decimal.NullDecimal{}
	}
	return NullDecimalFromFloat(f)
}

// MetricsRow is an OptionQuote with the derived richness metrics attached
type MetricsRow struct {
	OptionQuote
	EffectiveBid decimal.Decimal `json:"effective_bid"`
	BidStrikePct decimal.Decimal `json:"bid_strike_pct"`
	DTE          int             `json:"dte"`
}
