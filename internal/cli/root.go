// Package cli implements the putscanner command line.
package cli

import (
	"fmt"
	"io"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"inflated-puts/config"
	"inflated-puts/internal/app"
	"inflated-puts/observability"
)

// AppBuilder constructs the App a command runs against
type AppBuilder func() (*app.App, error)

// DefaultBuilder loads .env and the environment, initialises logging and
// metrics, and wires the real upstream clients
func DefaultBuilder() (*app.App, error) {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	observability.InitLoggerWithLevel(cfg.Log.Production, observability.ParseLevel(cfg.Log.Level))
	observability.GetMetrics()

	return app.New(cfg, app.NewServices(cfg), nil), nil
}

// NewRootCommand returns the putscanner command tree. Results are written to out.
func NewRootCommand(out io.Writer, build AppBuilder) *cobra.Command {
	root := &cobra.Command{
		Use:           "putscanner",
		Short:         "Find puts whose bid is a large fraction of the strike",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.SetOut(out)

	root.AddCommand(
		newScanCommand(build),
		newEarningsCommand(build),
		newCalendarCommand(build),
		newOptionableCommand(build),
		newIVCommand(build),
		newUniverseCommand(),
		newServeCommand(build),
	)
	return root
}
