package quotes

import (
	"context"
	"errors"
	"time"

	"inflated-puts/models"
	"inflated-puts/observability"
	"inflated-puts/services"
)

// ErrNoData is recorded for a symbol that produced no quotes
var ErrNoData = errors.New("no data")

// Aggregator drives one Provider across a symbol list
type Aggregator struct {
	provider Provider
	limit    int
}

// NewAggregator creates an Aggregator. limit caps how many symbols are
// scanned; 0 scans them all.
func NewAggregator(provider Provider, limit int) *Aggregator {
	return &Aggregator{provider: provider, limit: limit}
}

// Fetch calls the provider once per symbol, in order, and concatenates the
// results. Per-symbol errors are recorded on the run and never abort the
// scan. The only returned error is a missing credential, which would fail
// every symbol the same way.
func (a *Aggregator) Fetch(ctx context.Context, symbols []string, minDTE, maxDTE int) ([]models.OptionQuote, *models.ScanRun, error) {
	if a.limit > 0 && len(symbols) > a.limit {
		symbols = symbols[:a.limit]
	}

	name := a.provider.Name()
	run := models.NewScanRun(name, symbols)
	start := time.Now()
	metrics := observability.GetMetrics()

	var out []models.OptionQuote
	for _, symbol := range symbols {
		if err := ctx.Err(); err != nil {
			run.AddFailure(symbol, err)
			continue
		}

		quotes, err := a.provider.GetPutQuotes(ctx, symbol, minDTE, maxDTE)
		if err != nil {
			if errors.Is(err, services.ErrMissingCredential) {
				run.Fail(err.Error(), time.Since(start).Milliseconds())
				return nil, run, err
			}
			observability.WithProvider(name).Warn("symbol failed", "symbol", symbol, "error", err)
			run.AddFailure(symbol, err)
			continue
		}
		if len(quotes) == 0 {
			run.AddFailure(symbol, ErrNoData)
			continue
		}

		for _, q := range quotes {
			metrics.RecordQuoteSource(name, string(q.QuoteSource))
		}
		out = append(out, quotes...)
	}

	run.Complete(time.Since(start).Milliseconds(), len(out))
	observability.WithProvider(name).Info("quote fetch complete",
		"symbols", len(symbols), "records", len(out), "failures", len(run.Failures))
	return out, run, nil
}
