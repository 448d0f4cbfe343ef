package screener

import (
	"time"

	"github.com/shopspring/decimal"

	"inflated-puts/marketclock"
	"inflated-puts/models"
)

var hundred = decimal.NewFromInt(100)

// EffectiveBid is the price a put seller can expect: the bid, else the
// bid/ask midpoint when useMid is set and an ask exists, else the last
// trade, else zero.
func EffectiveBid(q models.OptionQuote, useMid bool) decimal.Decimal {
	if q.Bid.IsPositive() {
		return q.Bid
	}
	if useMid && q.Ask.IsPositive() {
		return q.Mid()
	}
	if q.Last.Valid && q.Last.Decimal.IsPositive() {
		return q.Last.Decimal
	}
	return decimal.Zero
}

// BidStrikePct returns bid / strike * 100, or zero for a non-positive strike
func BidStrikePct(bid, strike decimal.Decimal) decimal.Decimal {
	if !strike.IsPositive() {
		return decimal.Zero
	}
	return bid.Div(strike).Mul(hundred)
}

// ComputeMetrics derives a MetricsRow for every quote. today is the
// exchange calendar date the DTE is counted from.
func ComputeMetrics(quotes []models.OptionQuote, useMid bool, today time.Time) []models.MetricsRow {
	rows := make([]models.MetricsRow, 0, len(quotes))
	for _, q := range quotes {
		eff := EffectiveBid(q, useMid)
		rows = append(rows, models.MetricsRow{
			OptionQuote:  q,
			EffectiveBid: eff,
			BidStrikePct: BidStrikePct(eff, q.Strike),
			DTE:          marketclock.DaysBetween(today, q.Expiration),
		})
	}
	return rows
}
