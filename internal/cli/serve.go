package cli

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"inflated-puts/internal/api"
	"inflated-puts/observability"
)

func newServeCommand(build AppBuilder) *cobra.Command {
	var port int

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the scanner over HTTP",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := build()
			if err != nil {
				return err
			}
			cfg := a.Config()
			if cmd.Flags().Changed("port") {
				cfg.HTTP.Port = port
			}

			server := &http.Server{
				Addr:         fmt.Sprintf(":%d", cfg.HTTP.Port),
				Handler:      api.NewRouter(api.NewHandler(a, cfg), cfg),
				ReadTimeout:  30 * time.Second,
				WriteTimeout: time.Duration(cfg.HTTP.RequestTimeoutSec+10) * time.Second,
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			errCh := make(chan error, 1)
			go func() {
				observability.Info("starting HTTP server", "port", cfg.HTTP.Port, "provider", cfg.Scan.Provider)
				errCh <- server.ListenAndServe()
			}()

			select {
			case err := <-errCh:
				if errors.Is(err, http.ErrServerClosed) {
					return nil
				}
				return err
			case <-ctx.Done():
			}

			observability.Info("shutting down HTTP server")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			return server.Shutdown(shutdownCtx)
		},
	}
	cmd.Flags().IntVar(&port, "port", 8080, "listen port (default from HTTP_PORT)")
	return cmd
}
