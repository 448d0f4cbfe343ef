package api

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/sony/gobreaker/v2"

	"inflated-puts/earnings"
	"inflated-puts/internal/app"
	"inflated-puts/services"
)

func TestErrorStatus(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"missing credential", services.MissingCredential("tradier"), http.StatusServiceUnavailable},
		{"wrapped missing credential", fmt.Errorf("scan: %w", services.ErrMissingCredential), http.StatusServiceUnavailable},
		{"open breaker", fmt.Errorf("service tradier unavailable: %w", gobreaker.ErrOpenState), http.StatusServiceUnavailable},
		{"half-open breaker", fmt.Errorf("service tradier unavailable: %w", gobreaker.ErrTooManyRequests), http.StatusServiceUnavailable},
		{"busy", app.ErrBusy, http.StatusTooManyRequests},
		{"unknown provider", fmt.Errorf("%w: %q", app.ErrUnknownProvider, "bogus"), http.StatusBadRequest},
		{"range", earnings.ErrInvalidRange, http.StatusBadRequest},
		{"other", errors.New("boom"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := errorStatus(tt.err); got != tt.want {
				t.Errorf("errorStatus(%v) = %d, want %d", tt.err, got, tt.want)
			}
		})
	}
}
