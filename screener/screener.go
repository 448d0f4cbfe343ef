// Package screener derives richness metrics from put quotes and keeps the
// rows that clear every configured threshold.
package screener

import (
	"context"
	"fmt"
	"sort"
	"time"

	"inflated-puts/marketclock"
	"inflated-puts/models"
	"inflated-puts/observability"
	"inflated-puts/quotes"
)

// Filter computes metrics for quotes and returns the rows that satisfy every
// predicate in cfg, richest first. The input slice is not modified.
func Filter(in []models.OptionQuote, cfg models.FilterConfig, today time.Time) []models.MetricsRow {
	rows := ComputeMetrics(in, cfg.UseMid, today)

	// Moneyness only applies once the feed carries an underlying price
	moneyness := cfg.Moneyness
	if moneyness != models.MoneynessAny && !anyUnderlyingPrice(rows) {
		moneyness = models.MoneynessAny
	}

	out := make([]models.MetricsRow, 0, len(rows))
	for _, r := range rows {
		if matches(r, cfg, moneyness) {
			out = append(out, r)
		}
	}

	sort.SliceStable(out, func(i, j int) bool {
		if c := out[i].BidStrikePct.Cmp(out[j].BidStrikePct); c != 0 {
			return c > 0
		}
		if c := out[i].EffectiveBid.Cmp(out[j].EffectiveBid); c != 0 {
			return c > 0
		}
		return out[i].OptionSymbol < out[j].OptionSymbol
	})

	if cfg.MaxRows > 0 && len(out) > cfg.MaxRows {
		out = out[:cfg.MaxRows]
	}
	return out
}

func matches(r models.MetricsRow, cfg models.FilterConfig, moneyness models.Moneyness) bool {
	if r.BidStrikePct.LessThan(cfg.TargetPct) {
		return false
	}
	if r.DTE < cfg.MinDTE || r.DTE > cfg.MaxDTE {
		return false
	}
	if r.EffectiveBid.LessThan(cfg.MinBid) {
		return false
	}
	if r.OpenInterestOrZero() < cfg.MinOpenInterest || r.VolumeOrZero() < cfg.MinVolume {
		return false
	}

	switch moneyness {
	case models.MoneynessOTM:
		return r.UnderlyingPrice.Valid && r.Strike.LessThan(r.UnderlyingPrice.Decimal)
	case models.MoneynessITM:
		return r.UnderlyingPrice.Valid && r.Strike.GreaterThanOrEqual(r.UnderlyingPrice.Decimal)
	}
	return true
}

func anyUnderlyingPrice(rows []models.MetricsRow) bool {
	for _, r := range rows {
		if r.UnderlyingPrice.Valid {
			return true
		}
	}
	return false
}

// PutScreener runs a live scan: fetch quotes through one provider, then filter
type PutScreener struct {
	provider quotes.Provider
	limit    int
	clock    marketclock.Clock
}

// NewPutScreener creates a PutScreener. symbolLimit caps the symbols scanned
// (0 means no cap); a nil clock uses the system clock.
func NewPutScreener(provider quotes.Provider, symbolLimit int, clock marketclock.Clock) *PutScreener {
	if clock == nil {
		clock = marketclock.SystemClock{}
	}
	return &PutScreener{provider: provider, limit: symbolLimit, clock: clock}
}

// RunScan fetches puts for symbols within the filter's DTE window and returns
// the matching rows together with the run diagnostics
func (s *PutScreener) RunScan(ctx context.Context, symbols []string, cfg models.FilterConfig) (*models.ScanResult, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid filter: %w", err)
	}

	startTime := time.Now()
	metrics := observability.GetMetrics()

	fetched, run, err := quotes.NewAggregator(s.provider, s.limit).Fetch(ctx, symbols, cfg.MinDTE, cfg.MaxDTE)
	if err != nil {
		metrics.RecordScan(s.provider.Name(), string(models.ScanRunStatusFailed), time.Since(startTime), len(run.Failures), 0)
		return nil, err
	}

	rows := Filter(fetched, cfg, marketclock.Today(s.clock.Now()))
	run.RowsMatched = len(rows)

	metrics.RecordScan(run.Provider, string(run.Status), time.Since(startTime), len(run.Failures), len(rows))
	observability.Info("scan completed",
		"provider", run.Provider,
		"symbols", len(run.Symbols),
		"records", run.RecordsFetched,
		"matched", len(rows),
		"failures", len(run.Failures))

	return &models.ScanResult{Run: run, Filter: cfg, Quotes: fetched, Rows: rows}, nil
}

// FilterQuotes applies cfg to quotes that did not come from a live provider,
// such as a CSV import
func (s *PutScreener) FilterQuotes(in []models.OptionQuote, cfg models.FilterConfig) (*models.ScanResult, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid filter: %w", err)
	}
	run := models.NewScanRun("csv", nil)
	rows := Filter(in, cfg, marketclock.Today(s.clock.Now()))
	run.Complete(0, len(in))
	run.RowsMatched = len(rows)
	return &models.ScanResult{Run: run, Filter: cfg, Quotes: in, Rows: rows}, nil
}
