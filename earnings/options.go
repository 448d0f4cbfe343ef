package earnings

import (
	"context"

	"inflated-puts/models"
)

// OptionabilityChecker probes whether a symbol has listed options
type OptionabilityChecker interface {
	Check(ctx context.Context, symbol string) models.OptionabilityResult
}

// WithOptions annotates calendar events with optionability. Each symbol is
// probed once however many events it has.
func WithOptions(ctx context.Context, events []models.EarningsEvent, checker OptionabilityChecker) []models.CalendarOptionRow {
	cache := make(map[string]models.OptionabilityResult)
	out := make([]models.CalendarOptionRow, 0, len(events))
	for _, e := range events {
		res, ok := cache[e.Symbol]
		if !ok {
			res = checker.Check(ctx, e.Symbol)
			cache[e.Symbol] = res
		}
		out = append(out, models.CalendarOptionRow{EarningsEvent: e, Optionable: res})
	}
	return out
}
