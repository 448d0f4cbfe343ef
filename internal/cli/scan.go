package cli

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"inflated-puts/csvio"
	"inflated-puts/models"
	"inflated-puts/universe"
)

type scanFlags struct {
	provider     string
	universeFile string
	csvFile      string
	symbols      string
	format       string
	outFile      string

	targetPct float64
	minDTE    int
	maxDTE    int
	minBid    float64
	minOI     int64
	minVolume int64
	moneyness string
	useMid    bool
	maxRows   int
}

func newScanCommand(build AppBuilder) *cobra.Command {
	var f scanFlags

	cmd := &cobra.Command{
		Use:   "scan [SYMBOL...]",
		Short: "Scan put chains and list the richest bids",
		Long: `Scan fetches puts for each symbol from one provider, derives bid/strike
percentage and DTE, and prints the rows that pass every filter.

Symbols come from the arguments, --symbols, --universe, or the first universe
file discovered in the working directory or ~/` + universe.TrackerDir + `.
With --csv the quotes are read from a file instead of a provider.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := checkFormat(f.format); err != nil {
				return err
			}
			a, err := build()
			if err != nil {
				return err
			}

			filter, err := f.filter(cmd, a.DefaultFilter())
			if err != nil {
				return err
			}

			var result *models.ScanResult
			if f.csvFile != "" {
				quotes, err := readQuotes(f.csvFile)
				if err != nil {
					return err
				}
				result, err = a.ScanQuotes(quotes, filter)
				if err != nil {
					return err
				}
			} else {
				symbols, err := f.resolveSymbols(args)
				if err != nil {
					return err
				}
				result, err = a.Scan(cmd.Context(), f.provider, symbols, filter)
				if err != nil {
					return err
				}
			}

			out := cmd.OutOrStdout()
			return withOutput(out, f.outFile, func(w io.Writer) error {
				switch f.format {
				case formatCSV:
					return csvio.WriteRows(w, result.Rows)
				case formatJSON:
					return writeJSON(w, result)
				}
				renderScanSummary(w, result.Run)
				renderRows(w, result.Rows)
				return nil
			})
		},
	}

	fl := cmd.Flags()
	fl.StringVarP(&f.provider, "provider", "p", "", "quote provider: tradier, polygon or alpaca (default from SCAN_PROVIDER)")
	fl.StringVar(&f.symbols, "symbols", "", "comma or space separated symbols")
	fl.StringVarP(&f.universeFile, "universe", "u", "", "symbol list or Nasdaq listing file")
	fl.StringVar(&f.csvFile, "csv", "", "filter quotes from a CSV file instead of a provider")
	fl.StringVarP(&f.format, "format", "f", formatTable, "output format: table, csv or json")
	fl.StringVarP(&f.outFile, "out", "o", "", "write output to a file")

	fl.Float64Var(&f.targetPct, "target-pct", 10, "minimum bid/strike percentage")
	fl.IntVar(&f.minDTE, "min-dte", 7, "minimum days to expiration")
	fl.IntVar(&f.maxDTE, "max-dte", 45, "maximum days to expiration")
	fl.Float64Var(&f.minBid, "min-bid", 0.10, "minimum effective bid")
	fl.Int64Var(&f.minOI, "min-oi", 50, "minimum open interest")
	fl.Int64Var(&f.minVolume, "min-volume", 0, "minimum volume")
	fl.StringVar(&f.moneyness, "moneyness", "any", "any, otm or itm")
	fl.BoolVar(&f.useMid, "use-mid", true, "use the mid price when the bid is zero")
	fl.IntVar(&f.maxRows, "max-rows", 1000, "maximum rows to print (0 for all)")

	return cmd
}

// filter overlays the flags the user set on the configured defaults
func (f scanFlags) filter(cmd *cobra.Command, base models.FilterConfig) (models.FilterConfig, error) {
	changed := cmd.Flags().Changed

	if changed("target-pct") {
		base.TargetPct = decimalFlag(f.targetPct)
	}
	if changed("min-dte") {
		base.MinDTE = f.minDTE
	}
	if changed("max-dte") {
		base.MaxDTE = f.maxDTE
	}
	if changed("min-bid") {
		base.MinBid = decimalFlag(f.minBid)
	}
	if changed("min-oi") {
		base.MinOpenInterest = f.minOI
	}
	if changed("min-volume") {
		base.MinVolume = f.minVolume
	}
	if changed("moneyness") {
		m, err := models.ParseMoneyness(f.moneyness)
		if err != nil {
			return base, err
		}
		base.Moneyness = m
	}
	if changed("use-mid") {
		base.UseMid = f.useMid
	}
	if changed("max-rows") {
		base.MaxRows = f.maxRows
	}
	return base, base.Validate()
}

func (f scanFlags) resolveSymbols(args []string) ([]string, error) {
	if len(args) > 0 || f.symbols != "" {
		text := strings.Join(args, ",") + "," + f.symbols
		return universe.ParseSymbols(text), nil
	}

	path := f.universeFile
	if path == "" {
		found := universe.Discover(universe.SearchDirs())
		if len(found) == 0 {
			return nil, fmt.Errorf("no symbols given and no universe file found (looked for %s)",
				strings.Join(universe.Candidates, ", "))
		}
		path = found[0]
	}

	symbols, err := universe.LoadFile(path)
	if err != nil {
		return nil, err
	}
	if len(symbols) == 0 {
		return nil, fmt.Errorf("%s contains no symbols", path)
	}
	return symbols, nil
}

func readQuotes(path string) ([]models.OptionQuote, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer file.Close()
	return csvio.ImportQuotes(file)
}
