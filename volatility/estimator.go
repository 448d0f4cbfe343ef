// Package volatility produces a rough single-number implied volatility per
// symbol from whichever source can answer first.
package volatility

import (
	"context"
	"math"
	"sort"
	"strings"
	"time"

	"github.com/montanaflynn/stats"
	"github.com/shopspring/decimal"

	"inflated-puts/marketclock"
	"inflated-puts/models"
	"inflated-puts/observability"
	"inflated-puts/quotes"
	"inflated-puts/services"
)

// Source labels for estimates
const (
	SourceTradierChain = "tradier_chain"
	SourceAlpacaChain  = "alpaca_chain"
	SourceYahooSummary = "yahoo_summary"
	SourceYahooOptions = "yahoo_options"
)

const (
	// TargetDTE is the expiration the chain strategies aim for
	TargetDTE = 30
	// MoneynessBand keeps contracts with |strike/underlying - 1| within it
	MoneynessBand = 0.02
)

// Estimator tries the configured sources in order: Tradier chain, Alpaca
// chain, Yahoo summary, Yahoo options
type Estimator struct {
	tradier services.TradierServiceInterface
	alpaca  services.AlpacaServiceInterface
	yahoo   services.YahooServiceInterface
	clock   marketclock.Clock
}

// NewEstimator creates an Estimator. Any service may be nil; a nil clock
// uses the system clock.
func NewEstimator(tradier services.TradierServiceInterface, alpaca services.AlpacaServiceInterface, yahoo services.YahooServiceInterface, clock marketclock.Clock) *Estimator {
	if clock == nil {
		clock = marketclock.SystemClock{}
	}
	return &Estimator{tradier: tradier, alpaca: alpaca, yahoo: yahoo, clock: clock}
}

type strategy struct {
	name string
	run  func(ctx context.Context, symbol string) (models.VolatilityEstimate, bool, error)
}

func (e *Estimator) strategies() []strategy {
	var out []strategy
	if e.tradier != nil && e.tradier.Configured() {
		out = append(out, strategy{SourceTradierChain, e.fromTradier})
	}
	if e.alpaca != nil && e.alpaca.Configured() {
		out = append(out, strategy{SourceAlpacaChain, e.fromAlpaca})
	}
	if e.yahoo != nil {
		out = append(out,
			strategy{SourceYahooSummary, e.fromYahooSummary},
			strategy{SourceYahooOptions, e.fromYahooOptions},
		)
	}
	return out
}

// Estimate returns the first usable IV figure for symbol. When nothing
// answers the result has Found == false; that is not an error.
func (e *Estimator) Estimate(ctx context.Context, symbol string) models.VolatilityEstimate {
	symbol = strings.ToUpper(strings.TrimSpace(symbol))
	metrics := observability.GetMetrics()

	for _, s := range e.strategies() {
		if ctx.Err() != nil {
			break
		}
		est, ok, err := s.run(ctx, symbol)
		if err != nil {
			observability.WithSource(s.name).Warn("volatility source failed", "symbol", symbol, "error", err)
			continue
		}
		if !ok {
			observability.WithSource(s.name).Debug("volatility source had no figure", "symbol", symbol)
			continue
		}
		est.Symbol = symbol
		est.Found = true
		est.Source = s.name
		metrics.RecordVolatilityEstimate(s.name)
		return est
	}

	metrics.RecordVolatilityEstimate("")
	return models.NoEstimate(symbol)
}

// EstimateAll estimates each symbol in order
func (e *Estimator) EstimateAll(ctx context.Context, symbols []string) []models.VolatilityEstimate {
	out := make([]models.VolatilityEstimate, 0, len(symbols))
	for _, s := range symbols {
		out = append(out, e.Estimate(ctx, s))
	}
	return out
}

// ClosestExpiration picks the expiration whose DTE is nearest TargetDTE,
// preferring the earlier date on a tie. ok is false for an empty list.
func ClosestExpiration(expirations []time.Time, now time.Time) (time.Time, bool) {
	if len(expirations) == 0 {
		return time.Time{}, false
	}
	sorted := append([]time.Time(nil), expirations...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Before(sorted[j]) })

	best := sorted[0]
	bestDist := distance(best, now)
	for _, exp := range sorted[1:] {
		if d := distance(exp, now); d < bestDist {
			best, bestDist = exp, d
		}
	}
	return best, true
}

func distance(exp, now time.Time) int {
	d := marketclock.DTE(exp, now) - TargetDTE
	if d < 0 {
		return -d
	}
	return d
}

// nearMoney reports whether strike lies within MoneynessBand of underlying
func nearMoney(strike, underlying float64) bool {
	if strike <= 0 || underlying <= 0 {
		return false
	}
	return math.Abs(strike/underlying-1) <= MoneynessBand
}

// medianIV returns the median of the non-zero values
func medianIV(values []float64) (float64, bool) {
	nonZero := make([]float64, 0, len(values))
	for _, v := range values {
		if v > 0 && !math.IsNaN(v) {
			nonZero = append(nonZero, v)
		}
	}
	if len(nonZero) == 0 {
		return 0, false
	}
	m, err := stats.Median(nonZero)
	if err != nil {
		return 0, false
	}
	return m, true
}

func chainEstimate(values []float64, expiration time.Time) (models.VolatilityEstimate, bool) {
	m, ok := medianIV(values)
	if !ok {
		return models.VolatilityEstimate{}, false
	}
	exp := expiration
	return models.VolatilityEstimate{
		Value:      decimal.NewFromFloat(m),
		Expiration: &exp,
		Contracts:  countPositive(values),
	}, true
}

func countPositive(values []float64) int {
	n := 0
	for _, v := range values {
		if v > 0 {
			n++
		}
	}
	return n
}

func (e *Estimator) fromTradier(ctx context.Context, symbol string) (models.VolatilityEstimate, bool, error) {
	raw, err := e.tradier.GetExpirations(ctx, symbol)
	if err != nil {
		return models.VolatilityEstimate{}, false, err
	}
	var exps []time.Time
	for _, r := range raw {
		if t, err := marketclock.ParseDate(r); err == nil {
			exps = append(exps, t)
		}
	}
	exp, ok := ClosestExpiration(exps, e.clock.Now())
	if !ok {
		return models.VolatilityEstimate{}, false, nil
	}

	chain, err := e.tradier.GetChain(ctx, symbol, marketclock.FormatDate(exp), true)
	if err != nil {
		return models.VolatilityEstimate{}, false, err
	}

	underlying := 0.0
	for _, opt := range chain {
		if opt.UnderlyingPrice != nil && *opt.UnderlyingPrice > 0 {
			underlying = *opt.UnderlyingPrice
			break
		}
	}
	if underlying == 0 {
		rows, err := e.tradier.GetQuotes(ctx, symbol)
		if err != nil {
			return models.VolatilityEstimate{}, false, err
		}
		for _, q := range rows {
			if strings.EqualFold(q.Symbol, symbol) && q.Last != nil {
				underlying = *q.Last
			}
		}
	}

	var values []float64
	for _, opt := range chain {
		if opt.Greeks == nil || !nearMoney(opt.Strike, underlying) {
			continue
		}
		iv := opt.Greeks.MidIV
		if iv <= 0 {
			iv = opt.Greeks.SmvVol
		}
		values = append(values, iv)
	}

	est, ok := chainEstimate(values, exp)
	return est, ok, nil
}

func (e *Estimator) fromAlpaca(ctx context.Context, symbol string) (models.VolatilityEstimate, bool, error) {
	chain, err := e.alpaca.GetOptionChain(ctx, symbol)
	if err != nil {
		return models.VolatilityEstimate{}, false, err
	}

	type contract struct {
		strike float64
		iv     float64
	}
	byExp := make(map[time.Time][]contract)
	var exps []time.Time
	for _, snap := range chain {
		occ, err := quotes.ParseOCC(snap.Symbol)
		if err != nil {
			continue
		}
		if _, seen := byExp[occ.Expiration]; !seen {
			exps = append(exps, occ.Expiration)
		}
		strike, _ := occ.Strike.Float64()
		byExp[occ.Expiration] = append(byExp[occ.Expiration], contract{strike, snap.ImpliedVolatility})
	}

	exp, ok := ClosestExpiration(exps, e.clock.Now())
	if !ok {
		return models.VolatilityEstimate{}, false, nil
	}

	underlying, err := e.alpaca.GetLatestPrice(ctx, symbol)
	if err != nil {
		return models.VolatilityEstimate{}, false, err
	}

	var values []float64
	for _, c := range byExp[exp] {
		if nearMoney(c.strike, underlying) {
			values = append(values, c.iv)
		}
	}

	est, ok := chainEstimate(values, exp)
	return est, ok, nil
}

func (e *Estimator) fromYahooSummary(ctx context.Context, symbol string) (models.VolatilityEstimate, bool, error) {
	summary, err := e.yahoo.GetSummary(ctx, symbol)
	if err != nil {
		return models.VolatilityEstimate{}, false, err
	}
	if summary.ImpliedVolatility <= 0 {
		return models.VolatilityEstimate{}, false, nil
	}
	return models.VolatilityEstimate{Value: decimal.NewFromFloat(summary.ImpliedVolatility)}, true, nil
}

// fromYahooOptions takes the IV of the put whose strike is nearest the
// underlying price in Yahoo's front-month chain
func (e *Estimator) fromYahooOptions(ctx context.Context, symbol string) (models.VolatilityEstimate, bool, error) {
	chain, err := e.yahoo.GetOptions(ctx, symbol)
	if err != nil {
		return models.VolatilityEstimate{}, false, err
	}
	if chain.UnderlyingPrice <= 0 {
		return models.VolatilityEstimate{}, false, nil
	}

	var best *services.YahooOptionContract
	for i := range chain.Puts {
		p := &chain.Puts[i]
		if p.ImpliedVolatility <= 0 {
			continue
		}
		if best == nil || math.Abs(p.Strike-chain.UnderlyingPrice) < math.Abs(best.Strike-chain.UnderlyingPrice) {
			best = p
		}
	}
	if best == nil {
		return models.VolatilityEstimate{}, false, nil
	}

	est := models.VolatilityEstimate{Value: decimal.NewFromFloat(best.ImpliedVolatility), Contracts: 1}
	if !chain.Expiration.IsZero() {
		exp := chain.Expiration
		est.Expiration = &exp
	}
	return est, true, nil
}
