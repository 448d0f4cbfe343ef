package cli

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"inflated-puts/csvio"
	"inflated-puts/marketclock"
	"inflated-puts/universe"
)

func newEarningsCommand(build AppBuilder) *cobra.Command {
	var format string

	cmd := &cobra.Command{
		Use:   "earnings SYMBOL",
		Short: "Show earnings dates for a symbol from every source",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := checkFormat(format); err != nil {
				return err
			}
			a, err := build()
			if err != nil {
				return err
			}

			lookup, err := a.Earnings(cmd.Context(), args[0])
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			switch format {
			case formatJSON:
				return writeJSON(out, lookup)
			case formatCSV:
				return csvio.WriteCalendar(out, lookup.Events)
			}

			if next, ok := lookup.Next(marketclock.Today(a.Now())); ok {
				fmt.Fprintf(out, "%s next reports %s (%s, via %s)\n\n",
					lookup.Symbol, marketclock.FormatDate(next.Date), next.Session, next.Source)
			} else {
				fmt.Fprintf(out, "%s: no upcoming earnings date found\n\n", lookup.Symbol)
			}
			renderEvents(out, lookup.Raw)
			fmt.Fprintln(out)
			renderSources(out, lookup.Sources)
			return nil
		},
	}
	cmd.Flags().StringVarP(&format, "format", "f", formatTable, "output format: table, csv or json")
	return cmd
}

func newCalendarCommand(build AppBuilder) *cobra.Command {
	var (
		start, end  string
		withOptions bool
		provider    string
		format      string
		outFile     string
	)

	cmd := &cobra.Command{
		Use:   "calendar",
		Short: "List every symbol reporting earnings in a date range",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := checkFormat(format); err != nil {
				return err
			}
			a, err := build()
			if err != nil {
				return err
			}

			from := marketclock.Today(a.Now())
			if start != "" {
				if from, err = marketclock.ParseDate(start); err != nil {
					return fmt.Errorf("invalid --start: %w", err)
				}
			}
			to := from
			if end != "" {
				if to, err = marketclock.ParseDate(end); err != nil {
					return fmt.Errorf("invalid --end: %w", err)
				}
			}

			out := cmd.OutOrStdout()
			if !withOptions {
				cal, err := a.Calendar(cmd.Context(), from, to)
				if err != nil {
					return err
				}
				return withOutput(out, outFile, func(w io.Writer) error {
					switch format {
					case formatCSV:
						return csvio.WriteCalendar(w, cal.Events)
					case formatJSON:
						return writeJSON(w, cal)
					}
					renderEvents(w, cal.Events)
					fmt.Fprintln(w)
					renderSources(w, cal.Sources)
					return nil
				})
			}

			cal, rows, err := a.CalendarWithOptions(cmd.Context(), from, to, provider)
			if err != nil {
				return err
			}
			return withOutput(out, outFile, func(w io.Writer) error {
				switch format {
				case formatCSV:
					return csvio.WriteCalendarWithOptions(w, rows)
				case formatJSON:
					return writeJSON(w, rows)
				}
				renderCalendarOptions(w, rows)
				fmt.Fprintln(w)
				renderSources(w, cal.Sources)
				return nil
			})
		},
	}

	fl := cmd.Flags()
	fl.StringVar(&start, "start", "", "first day, YYYY-MM-DD (default today)")
	fl.StringVar(&end, "end", "", "last day, YYYY-MM-DD (default --start)")
	fl.BoolVar(&withOptions, "with-options", false, "check whether each symbol has listed options")
	fl.StringVarP(&provider, "provider", "p", "", "provider for --with-options (default from SCAN_PROVIDER)")
	fl.StringVarP(&format, "format", "f", formatTable, "output format: table, csv or json")
	fl.StringVarP(&outFile, "out", "o", "", "write output to a file")
	return cmd
}

func newOptionableCommand(build AppBuilder) *cobra.Command {
	var provider, format string

	cmd := &cobra.Command{
		Use:   "optionable SYMBOL...",
		Short: "Check whether options are listed for each symbol",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := checkFormat(format); err != nil {
				return err
			}
			a, err := build()
			if err != nil {
				return err
			}

			results, err := a.Optionable(cmd.Context(), provider, universe.ParseSymbols(strings.Join(args, ",")))
			if err != nil {
				return err
			}
			if format == formatJSON {
				return writeJSON(cmd.OutOrStdout(), results)
			}
			renderOptionability(cmd.OutOrStdout(), results)
			return nil
		},
	}
	cmd.Flags().StringVarP(&provider, "provider", "p", "", "tradier, polygon or alpaca (default from SCAN_PROVIDER)")
	cmd.Flags().StringVarP(&format, "format", "f", formatTable, "output format: table or json")
	return cmd
}

func newIVCommand(build AppBuilder) *cobra.Command {
	var format string

	cmd := &cobra.Command{
		Use:   "iv SYMBOL...",
		Short: "Estimate ~30 day at-the-money implied volatility",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := checkFormat(format); err != nil {
				return err
			}
			a, err := build()
			if err != nil {
				return err
			}

			estimates := a.ImpliedVolatility(cmd.Context(), universe.ParseSymbols(strings.Join(args, ",")))
			if format == formatJSON {
				return writeJSON(cmd.OutOrStdout(), estimates)
			}
			renderVolatility(cmd.OutOrStdout(), estimates)
			return nil
		},
	}
	cmd.Flags().StringVarP(&format, "format", "f", formatTable, "output format: table or json")
	return cmd
}

func newUniverseCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "universe [FILE...]",
		Short: "List universe files and how many symbols each holds",
		RunE: func(cmd *cobra.Command, args []string) error {
			files := args
			if len(files) == 0 {
				files = universe.Discover(universe.SearchDirs())
			}
			out := cmd.OutOrStdout()
			if len(files) == 0 {
				fmt.Fprintf(out, "no universe files found (looked for %s in . and ~/%s)\n",
					strings.Join(universe.Candidates, ", "), universe.TrackerDir)
				return nil
			}

			table := newTable(out, "FILE", "SYMBOLS", "SAMPLE")
			for _, path := range files {
				symbols, err := universe.LoadFile(path)
				if err != nil {
					table.Append([]string{path, "error", err.Error()})
					continue
				}
				sample := symbols
				if len(sample) > 5 {
					sample = sample[:5]
				}
				table.Append([]string{path, fmt.Sprint(len(symbols)), strings.Join(sample, " ")})
			}
			table.Render()
			return nil
		},
	}
}
