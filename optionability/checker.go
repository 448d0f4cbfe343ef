// Package optionability answers whether a symbol has listed options, with an
// explicit unknown for "could not verify".
package optionability

import (
	"context"
	"fmt"
	"strings"

	"inflated-puts/models"
	"inflated-puts/observability"
	"inflated-puts/quotes"
	"inflated-puts/services"
)

// Checker probes one provider for listed options
type Checker struct {
	provider string
	probe    func(ctx context.Context, symbol string) (int, error)
	ready    func() bool
}

// NewTradierChecker counts Tradier expirations
func NewTradierChecker(svc services.TradierServiceInterface) *Checker {
	return &Checker{
		provider: quotes.ProviderTradier,
		ready:    svc.Configured,
		probe: func(ctx context.Context, symbol string) (int, error) {
			exps, err := svc.GetExpirations(ctx, symbol)
			return len(exps), err
		},
	}
}

// NewPolygonChecker asks Polygon for a single put contract
func NewPolygonChecker(svc services.PolygonServiceInterface) *Checker {
	return &Checker{
		provider: quotes.ProviderPolygon,
		ready:    svc.Configured,
		probe: func(ctx context.Context, symbol string) (int, error) {
			contracts, err := svc.ListPutContracts(ctx, symbol, 1)
			if err != nil {
				return 0, err
			}
			expirations := make(map[string]bool)
			for _, c := range contracts {
				expirations[c.Expiration.Format("2006-01-02")] = true
			}
			return len(expirations), nil
		},
	}
}

// NewAlpacaChecker counts the distinct expirations in the Alpaca chain
func NewAlpacaChecker(svc services.AlpacaServiceInterface) *Checker {
	return &Checker{
		provider: quotes.ProviderAlpaca,
		ready:    svc.Configured,
		probe: func(ctx context.Context, symbol string) (int, error) {
			chain, err := svc.GetOptionChain(ctx, symbol)
			if err != nil {
				return 0, err
			}
			expirations := make(map[string]bool)
			for _, snap := range chain {
				occ, err := quotes.ParseOCC(snap.Symbol)
				if err != nil {
					continue
				}
				expirations[occ.Expiration.Format("2006-01-02")] = true
			}
			return len(expirations), nil
		},
	}
}

// Provider returns the provider name
func (c *Checker) Provider() string {
	return c.provider
}

// Check probes symbol. Without a credential the result is unknown and no
// request is made; a failed probe is also unknown.
func (c *Checker) Check(ctx context.Context, symbol string) models.OptionabilityResult {
	symbol = strings.ToUpper(strings.TrimSpace(symbol))
	result := models.OptionabilityResult{
		Symbol:   symbol,
		Provider: c.provider,
		Status:   models.OptionableUnknown,
	}
	defer func() {
		observability.GetMetrics().RecordOptionabilityCheck(c.provider, string(result.Status))
	}()

	if !c.ready() {
		result.Reason = fmt.Sprintf("no %s credential configured", c.provider)
		return result
	}

	n, err := c.probe(ctx, symbol)
	if err != nil {
		observability.WithProvider(c.provider).Warn("optionability probe failed", "symbol", symbol, "error", err)
		result.Reason = err.Error()
		return result
	}

	result.Expirations = n
	if n > 0 {
		result.Status = models.OptionableYes
	} else {
		result.Status = models.OptionableNo
		result.Reason = "no listed expirations"
	}
	return result
}

// CheckAll probes each symbol in order
func (c *Checker) CheckAll(ctx context.Context, symbols []string) []models.OptionabilityResult {
	out := make([]models.OptionabilityResult, 0, len(symbols))
	for _, s := range symbols {
		out = append(out, c.Check(ctx, s))
	}
	return out
}
