// Package quotes turns upstream option chains into normalized put quotes.
//
// Each Provider walks a symbol's expirations inside a DTE window, prices every
// put contract from its primary quote, and falls back through snapshot, last
// trade and previous close when the primary market is empty. Upstream
// failures are logged and skipped: a provider returns whatever it collected,
// and only reports an error when it cannot run at all (no credential).
package quotes

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"inflated-puts/marketclock"
	"inflated-puts/models"
	"inflated-puts/observability"
)

// Provider fetches normalized put quotes for one underlying
type Provider interface {
	Name() string
	GetPutQuotes(ctx context.Context, symbol string, minDTE, maxDTE int) ([]models.OptionQuote, error)
}

// Provider names as they appear on quotes and in metrics
const (
	ProviderTradier = "tradier"
	ProviderPolygon = "polygon"
	ProviderAlpaca  = "alpaca"
)

// fallback describes the rungs below a contract's primary quote. Any field
// may be nil; the ladder skips missing rungs.
type fallback struct {
	snapshot  func(context.Context) (Snapshot, error)
	lastTrade func(context.Context) (float64, error)
	prevClose func(context.Context) (float64, error)
}

// ladder resolves empty markets and owns the per-adapter snapshot cache
type ladder struct {
	provider string
	cache    *Cache
	clock    marketclock.Clock
}

func newLadder(provider string, clock marketclock.Clock) ladder {
	if clock == nil {
		clock = marketclock.SystemClock{}
	}
	return ladder{
		provider: provider,
		cache:    NewCache(DefaultCacheTTL),
		clock:    clock,
	}
}

// snapshot returns the cached snapshot for a contract, fetching it once
func (l ladder) snapshot(ctx context.Context, optionSymbol string, fetch func(context.Context) (Snapshot, error)) (Snapshot, bool) {
	if fetch == nil {
		return l.cache.Get(optionSymbol)
	}
	snap, err := l.cache.GetOrFetch(ctx, optionSymbol, fetch)
	if err != nil {
		observability.Debug("snapshot unavailable",
			"provider", l.provider, "option", optionSymbol, "error", err)
		return Snapshot{}, false
	}
	return snap, true
}

// resolve fills q's market when both bid and ask are zero. The first rung
// that yields a positive bid/ask or price wins; the row's own last trade
// counts as the last-trade rung. A price alone is copied into
// bid and ask only outside the regular session; during the session it is
// kept as the last price and the market stays empty.
func (l ladder) resolve(ctx context.Context, q *models.OptionQuote, fb fallback) {
	if q.HasQuote() {
		return
	}

	snap, haveSnap := l.snapshot(ctx, q.OptionSymbol, fb.snapshot)
	if haveSnap && snap.HasQuote() {
		q.Bid = decimal.NewFromFloat(snap.Bid)
		q.Ask = decimal.NewFromFloat(snap.Ask)
		if snap.Last > 0 && !q.Last.Valid {
			q.Last = models.NullDecimalFromFloat(snap.Last)
		}
		q.QuoteSource = models.QuoteSourceSnapshot
		return
	}

	price, source := l.price(ctx, q, snap, fb)
	if price <= 0 {
		q.QuoteSource = models.QuoteSourceNone
		return
	}

	q.QuoteSource = source
	q.Last = models.NullDecimalFromFloat(price)
	if !marketclock.InSession(l.clock.Now()) {
		q.Bid = decimal.NewFromFloat(price)
		q.Ask = decimal.NewFromFloat(price)
	}
}

func (l ladder) price(ctx context.Context, q *models.OptionQuote, snap Snapshot, fb fallback) (float64, models.QuoteSource) {
	optionSymbol := q.OptionSymbol
	if snap.Last > 0 {
		return snap.Last, models.QuoteSourceLastTrade
	}
	// last trade already carried on the primary row
	if q.Last.Valid && q.Last.Decimal.IsPositive() {
		return q.Last.Decimal.InexactFloat64(), models.QuoteSourceLastTrade
	}
	if fb.lastTrade != nil {
		if p, err := fb.lastTrade(ctx); err == nil && p > 0 {
			return p, models.QuoteSourceLastTrade
		} else if err != nil {
			observability.Debug("last trade unavailable",
				"provider", l.provider, "option", optionSymbol, "error", err)
		}
	}
	if snap.PrevClose > 0 {
		return snap.PrevClose, models.QuoteSourcePrevClose
	}
	if fb.prevClose != nil {
		if p, err := fb.prevClose(ctx); err == nil && p > 0 {
			return p, models.QuoteSourcePrevClose
		} else if err != nil {
			observability.Debug("previous close unavailable",
				"provider", l.provider, "option", optionSymbol, "error", err)
		}
	}
	return 0, models.QuoteSourceNone
}

// inWindow reports whether expiration's DTE lies in [minDTE, maxDTE]
func inWindow(expiration, now time.Time, minDTE, maxDTE int) bool {
	dte := marketclock.DTE(expiration, now)
	return dte >= minDTE && dte <= maxDTE
}

func timePtr(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	return &t
}
