// Package main provides a standalone HTTP server for E2E testing.
// It serves the same routes and handlers as `putscanner serve`, but every
// upstream API is answered by an in-process mock and the clock is pinned, so
// browser or script driven tests see stable results.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"inflated-puts/e2e"
	"inflated-puts/e2e/mocks"
	"inflated-puts/internal/api"
	"inflated-puts/internal/app"
	"inflated-puts/marketclock"
	"inflated-puts/observability"
)

func main() {
	// Initialize logger in development mode for tests
	observability.InitLogger(false)
	observability.GetMetrics()

	port := os.Getenv("E2E_SERVER_PORT")
	if port == "" {
		port = "9090"
	}

	now := e2e.InSession
	if v := os.Getenv("E2E_NOW"); v != "" {
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			observability.Fatal("E2E_NOW must be RFC3339", "value", v, "error", err)
		}
		now = t
	}

	upstream := mocks.NewMockServer()
	defer upstream.Close()
	seedFixtures(upstream)
	observability.Info("mock upstream started", "url", upstream.URL())

	cfg := e2e.MockConfig(upstream.URL())
	application := app.New(cfg, app.NewServices(cfg), marketclock.FixedClock{T: now})

	// Create HTTP router
	handler := api.NewHandler(application, cfg)
	router := api.NewRouter(handler, cfg)

	server := &http.Server{
		Addr:         ":" + port,
		Handler:      router,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
	}

	go func() {
		observability.Info("starting E2E test server", "port", port, "url", fmt.Sprintf("http://localhost:%s", port), "now", now)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			observability.Fatal("server error", "error", err)
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	observability.Info("shutting down E2E test server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		observability.Fatal("server forced to shutdown", "error", err)
	}
	observability.Info("E2E test server stopped")
}
