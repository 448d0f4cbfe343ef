package csvio

import (
	"fmt"
	"io"
	"strconv"

	"github.com/gocarina/gocsv"
	"github.com/shopspring/decimal"

	"inflated-puts/marketclock"
	"inflated-puts/models"
)

type quoteRow struct {
	Provider        string `csv:"provider"`
	OptionSymbol    string `csv:"option_symbol"`
	Underlying      string `csv:"underlying"`
	Type            string `csv:"type"`
	Strike          string `csv:"strike"`
	Expiration      string `csv:"expiration"`
	DTE             int    `csv:"dte"`
	Bid             string `csv:"bid"`
	Ask             string `csv:"ask"`
	Last            string `csv:"last"`
	EffectiveBid    string `csv:"effective_bid"`
	BidStrikePct    string `csv:"bid_strike_pct"`
	Volume          string `csv:"volume"`
	OpenInterest    string `csv:"open_interest"`
	UnderlyingPrice string `csv:"underlying_price"`
	QuoteSource     string `csv:"quote_source"`
}

type calendarRow struct {
	Symbol  string `csv:"symbol"`
	Date    string `csv:"date"`
	Session string `csv:"session"`
	Source  string `csv:"source"`
}

type calendarOptionRow struct {
	Symbol      string `csv:"symbol"`
	Date        string `csv:"date"`
	Session     string `csv:"session"`
	Source      string `csv:"source"`
	Optionable  string `csv:"optionable"`
	Provider    string `csv:"provider"`
	Expirations int    `csv:"expirations"`
}

// WriteRows writes filtered metric rows as CSV
func WriteRows(w io.Writer, rows []models.MetricsRow) error {
	out := make([]quoteRow, 0, len(rows))
	for _, r := range rows {
		out = append(out, quoteRow{
			Provider:        r.Provider,
			OptionSymbol:    r.OptionSymbol,
			Underlying:      r.Underlying,
			Type:            r.ContractType,
			Strike:          r.Strike.String(),
			Expiration:      marketclock.FormatDate(r.Expiration),
			DTE:             r.DTE,
			Bid:             r.Bid.String(),
			Ask:             r.Ask.String(),
			Last:            nullString(r.Last),
			EffectiveBid:    r.EffectiveBid.String(),
			BidStrikePct:    r.BidStrikePct.StringFixed(2),
			Volume:          intString(r.Volume),
			OpenInterest:    intString(r.OpenInterest),
			UnderlyingPrice: nullString(r.UnderlyingPrice),
			QuoteSource:     string(r.QuoteSource),
		})
	}
	return marshal(w, &out)
}

// WriteCalendar writes earnings calendar events as CSV
func WriteCalendar(w io.Writer, events []models.EarningsEvent) error {
	out := make([]calendarRow, 0, len(events))
	for _, e := range events {
		out = append(out, calendarRow{
			Symbol:  e.Symbol,
			Date:    marketclock.FormatDate(e.Date),
			Session: string(e.Session),
			Source:  e.Source,
		})
	}
	return marshal(w, &out)
}

// WriteCalendarWithOptions writes calendar events with their optionability
func WriteCalendarWithOptions(w io.Writer, rows []models.CalendarOptionRow) error {
	out := make([]calendarOptionRow, 0, len(rows))
	for _, r := range rows {
		out = append(out, calendarOptionRow{
			Symbol:      r.Symbol,
			Date:        marketclock.FormatDate(r.Date),
			Session:     string(r.Session),
			Source:      r.Source,
			Optionable:  string(r.Optionable.Status),
			Provider:    r.Optionable.Provider,
			Expirations: r.Optionable.Expirations,
		})
	}
	return marshal(w, &out)
}

func marshal(w io.Writer, rows any) error {
	if err := gocsv.Marshal(rows, w); err != nil {
		return fmt.Errorf("failed to write csv: %w", err)
	}
	return nil
}

func nullString(d decimal.NullDecimal) string {
	if !d.Valid {
		return ""
	}
	return d.Decimal.String()
}

func intString(v *int64) string {
	if v == nil {
		return ""
	}
	return strconv.FormatInt(*v, 10)
}
