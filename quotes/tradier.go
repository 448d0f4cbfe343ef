package quotes

import (
	"context"
	"sort"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"inflated-puts/marketclock"
	"inflated-puts/models"
	"inflated-puts/observability"
	"inflated-puts/services"
)

// TradierProvider prices puts from Tradier option chains
type TradierProvider struct {
	svc services.TradierServiceInterface
	ladder
}

// NewTradierProvider creates a Tradier adapter. A nil clock uses the system clock.
func NewTradierProvider(svc services.TradierServiceInterface, clock marketclock.Clock) *TradierProvider {
	return &TradierProvider{
		svc:    svc,
		ladder: newLadder(ProviderTradier, clock),
	}
}

// Name returns the provider name
func (p *TradierProvider) Name() string {
	return ProviderTradier
}

// GetPutQuotes returns put quotes for symbol with DTE in [minDTE, maxDTE]
func (p *TradierProvider) GetPutQuotes(ctx context.Context, symbol string, minDTE, maxDTE int) ([]models.OptionQuote, error) {
	if !p.svc.Configured() {
		return nil, services.MissingCredential(ProviderTradier)
	}

	log := observability.WithProvider(ProviderTradier).With("symbol", symbol)
	now := p.clock.Now()

	expirations, err := p.svc.GetExpirations(ctx, symbol)
	if err != nil {
		log.Warn("failed to list expirations", "error", err)
		return nil, nil
	}

	dates := make([]time.Time, 0, len(expirations))
	for _, raw := range expirations {
		exp, err := marketclock.ParseDate(raw)
		if err != nil {
			log.Debug("skipping unparseable expiration", "expiration", raw)
			continue
		}
		if inWindow(exp, now, minDTE, maxDTE) {
			dates = append(dates, exp)
		}
	}
	sort.Slice(dates, func(i, j int) bool { return dates[i].Before(dates[j]) })

	var out []models.OptionQuote
	var underlyingPrice decimal.NullDecimal
	priced := false

	for _, exp := range dates {
		if ctx.Err() != nil {
			return out, nil
		}

		chain, err := p.svc.GetChain(ctx, symbol, marketclock.FormatDate(exp), false)
		if err != nil {
			log.Warn("failed to fetch chain", "expiration", marketclock.FormatDate(exp), "error", err)
			continue
		}

		for _, opt := range chain {
			if !strings.EqualFold(opt.OptionType, models.ContractTypePut) || opt.Strike <= 0 {
				continue
			}
			if !priced {
				underlyingPrice = p.underlyingPrice(ctx, symbol)
				priced = true
			}

			q := models.OptionQuote{
				Provider:        ProviderTradier,
				OptionSymbol:    opt.Symbol,
				Underlying:      symbol,
				ContractType:    models.ContractTypePut,
				Strike:          decimal.NewFromFloat(opt.Strike),
				Expiration:      exp,
				Bid:             floatOrZero(opt.Bid),
				Ask:             floatOrZero(opt.Ask),
				Last:            nullFromPtr(opt.Last),
				Volume:          nonNegative(opt.Volume),
				OpenInterest:    nonNegative(opt.OpenInterest),
				UnderlyingPrice: underlyingPrice,
				Exchange:        opt.RootSymbol,
				UpdatedAt:       timePtr(millisTime(opt.BidDate)),
				QuoteSource:     models.QuoteSourceChain,
			}
			if opt.UnderlyingPrice != nil && *opt.UnderlyingPrice > 0 {
				q.UnderlyingPrice = models.NullDecimalFromFloat(*opt.UnderlyingPrice)
			}

			p.resolve(ctx, &q, p.fallbackFor(opt.Symbol))
			out = append(out, q)
		}
	}

	return out, nil
}

// fallbackFor prices an empty chain row from the option's own quote: its
// bid/ask, then its last trade, then its previous close
func (p *TradierProvider) fallbackFor(optionSymbol string) fallback {
	return fallback{
		snapshot: func(ctx context.Context) (Snapshot, error) {
			quotes, err := p.svc.GetQuotes(ctx, optionSymbol)
			if err != nil {
				return Snapshot{}, err
			}
			for _, q := range quotes {
				if q.Symbol != optionSymbol {
					continue
				}
				return Snapshot{
					Bid:          ptrValue(q.Bid),
					Ask:          ptrValue(q.Ask),
					Last:         ptrValue(q.Last),
					PrevClose:    ptrValue(q.PrevClose),
					Volume:       q.Volume,
					OpenInterest: q.OpenInt,
					UpdatedAt:    millisTime(q.BidDate),
				}, nil
			}
			return Snapshot{}, nil
		},
	}
}

func (p *TradierProvider) underlyingPrice(ctx context.Context, symbol string) decimal.NullDecimal {
	quotes, err := p.svc.GetQuotes(ctx, symbol)
	if err != nil {
		observability.WithProvider(ProviderTradier).Debug("underlying quote unavailable", "symbol", symbol, "error", err)
		return decimal.NullDecimal{}
	}
	for _, q := range quotes {
		if !strings.EqualFold(q.Symbol, symbol) {
			continue
		}
		if last := ptrValue(q.Last); last > 0 {
			return models.NullDecimalFromFloat(last)
		}
		return models.PositiveNullDecimal(ptrValue(q.PrevClose))
	}
	return decimal.NullDecimal{}
}

func ptrValue(f *float64) float64 {
	if f == nil {
		return 0
	}
	return *f
}

func floatOrZero(f *float64) decimal.Decimal {
	if f == nil || *f < 0 {
		return decimal.Zero
	}
	return decimal.NewFromFloat(*f)
}

func nullFromPtr(f *float64) decimal.NullDecimal {
	if f == nil {
		return decimal.NullDecimal{}
	}
	return models.NullDecimalFromFloat(*f)
}

func nonNegative(v *int64) *int64 {
	if v == nil || *v < 0 {
		return nil
	}
	return models.Int64Ptr(*v)
}

func millisTime(ms int64) time.Time {
	if ms <= 0 {
		return time.Time{}
	}
	return time.UnixMilli(ms).UTC()
}
