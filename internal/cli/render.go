package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/olekukonko/tablewriter"
	"github.com/shopspring/decimal"

	"inflated-puts/marketclock"
	"inflated-puts/models"
)

// Output formats accepted by --format
const (
	formatTable = "table"
	formatCSV   = "csv"
	formatJSON  = "json"
)

func checkFormat(format string) error {
	switch format {
	case formatTable, formatCSV, formatJSON:
		return nil
	}
	return fmt.Errorf("unknown format %q (want table, csv or json)", format)
}

func newTable(out io.Writer, header ...string) *tablewriter.Table {
	table := tablewriter.NewWriter(out)
	table.SetHeader(header)
	table.SetAutoFormatHeaders(false)
	table.SetAutoWrapText(false)
	table.SetBorder(false)
	table.SetColumnSeparator("")
	table.SetHeaderAlignment(tablewriter.ALIGN_LEFT)
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	return table
}

func writeJSON(out io.Writer, v any) error {
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// withOutput runs write against path, or against out when path is empty
func withOutput(out io.Writer, path string, write func(io.Writer) error) error {
	if path == "" {
		return write(out)
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	if err := write(f); err != nil {
		f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return err
	}
	fmt.Fprintf(out, "wrote %s\n", path)
	return nil
}

func renderRows(out io.Writer, rows []models.MetricsRow) {
	table := newTable(out, "OPTION", "UNDERLYING", "STRIKE", "EXPIRATION", "DTE", "BID", "ASK", "EFF BID", "BID/STRIKE %", "OI", "VOL", "SOURCE")
	for _, r := range rows {
		table.Append([]string{
			r.OptionSymbol,
			r.Underlying,
			r.Strike.StringFixed(2),
			marketclock.FormatDate(r.Expiration),
			strconv.Itoa(r.DTE),
			r.Bid.StringFixed(2),
			r.Ask.StringFixed(2),
			r.EffectiveBid.StringFixed(2),
			r.BidStrikePct.StringFixed(2),
			optionalInt(r.OpenInterest),
			optionalInt(r.Volume),
			string(r.QuoteSource),
		})
	}
	table.Render()
}

func renderScanSummary(out io.Writer, run *models.ScanRun) {
	fmt.Fprintf(out, "%s: %d symbols, %d quotes, %d matched, %d failed (%dms)\n",
		run.Provider, len(run.Symbols), run.RecordsFetched, run.RowsMatched, len(run.Failures), run.DurationMs)
	for _, f := range run.Failures {
		fmt.Fprintf(out, "  %s: %s\n", f.Symbol, f.Error)
	}
}

func renderEvents(out io.Writer, events []models.EarningsEvent) {
	table := newTable(out, "SYMBOL", "DATE", "SESSION", "SOURCE")
	for _, e := range events {
		table.Append([]string{e.Symbol, marketclock.FormatDate(e.Date), string(e.Session), e.Source})
	}
	table.Render()
}

func renderCalendarOptions(out io.Writer, rows []models.CalendarOptionRow) {
	table := newTable(out, "SYMBOL", "DATE", "SESSION", "SOURCE", "OPTIONABLE", "EXPIRATIONS")
	for _, r := range rows {
		table.Append([]string{
			r.Symbol,
			marketclock.FormatDate(r.Date),
			string(r.Session),
			r.Source,
			string(r.Optionable.Status),
			strconv.Itoa(r.Optionable.Expirations),
		})
	}
	table.Render()
}

func renderSources(out io.Writer, reports []models.SourceReport) {
	table := newTable(out, "SOURCE", "ROWS", "ERROR")
	for _, r := range reports {
		table.Append([]string{r.Source, strconv.Itoa(r.Count), r.Error})
	}
	table.Render()
}

func renderOptionability(out io.Writer, results []models.OptionabilityResult) {
	table := newTable(out, "SYMBOL", "PROVIDER", "OPTIONABLE", "EXPIRATIONS", "REASON")
	for _, r := range results {
		table.Append([]string{r.Symbol, r.Provider, string(r.Status), strconv.Itoa(r.Expirations), r.Reason})
	}
	table.Render()
}

func renderVolatility(out io.Writer, estimates []models.VolatilityEstimate) {
	table := newTable(out, "SYMBOL", "IV %", "SOURCE", "EXPIRATION", "CONTRACTS")
	for _, e := range estimates {
		if !e.Found {
			table.Append([]string{e.Symbol, "n/a", "", "", ""})
			continue
		}
		exp := ""
		if e.Expiration != nil {
			exp = marketclock.FormatDate(*e.Expiration)
		}
		table.Append([]string{e.Symbol, e.Percent().StringFixed(1), e.Source, exp, strconv.Itoa(e.Contracts)})
	}
	table.Render()
}

func optionalInt(v *int64) string {
	if v == nil {
		return "-"
	}
	return strconv.FormatInt(*v, 10)
}

func decimalFlag(v float64) decimal.Decimal {
	return decimal.NewFromFloat(v)
}
