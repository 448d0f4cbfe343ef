package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"regexp"
	"strconv"
	"strings"
	"time"

	"inflated-puts/config"
	"inflated-puts/csvio"
	"inflated-puts/earnings"
	"inflated-puts/internal/app"
	"inflated-puts/marketclock"
	"inflated-puts/models"
	"inflated-puts/observability"
	"inflated-puts/services"
	"inflated-puts/universe"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
	"github.com/sony/gobreaker/v2"
)

const (
	maxScanSymbols = 500
	maxUploadBytes = 32 << 20
)

var symbolPattern = regexp.MustCompile(`^[A-Z0-9.-]+$`)

// Handler handles HTTP API requests
type Handler struct {
	app      *app.App
	cfg      *config.Config
	validate *validator.Validate
}

// NewHandler creates a new Handler
func NewHandler(application *app.App, cfg *config.Config) *Handler {
	return &Handler{app: application, cfg: cfg, validate: validator.New()}
}

// HandleHealth reports which upstreams are configured and the breaker states
func (h *Handler) HandleHealth(w http.ResponseWriter, r *http.Request) {
	status := map[string]interface{}{
		"status":           "ok",
		"default_provider": h.cfg.Scan.Provider,
		"providers": map[string]bool{
			config.ProviderTradier: h.cfg.HasTradier(),
			config.ProviderPolygon: h.cfg.HasPolygon(),
			config.ProviderAlpaca:  h.cfg.HasAlpaca(),
		},
		"earnings_sources": map[string]bool{
			"fmp":           h.cfg.HasFMP(),
			"alpha_vantage": h.cfg.HasAlphaVantage(),
			"scrape":        h.cfg.Scrape.Enabled,
		},
	}

	cbStatus := services.GetGlobalRegistry().Status()
	status["circuit_breakers"] = cbStatus

	for _, cb := range cbStatus {
		if cb.State == "open" {
			status["status"] = "degraded"
			break
		}
	}

	h.jsonResponse(w, status)
}

// scanRequest is the body of POST /api/scan. Filter fields left out fall
// back to the configured defaults.
type scanRequest struct {
	Symbols         []string `json:"symbols" validate:"required,min=1,dive,required"`
	Provider        string   `json:"provider" validate:"omitempty,oneof=tradier polygon alpaca"`
	TargetPct       *float64 `json:"target_pct" validate:"omitempty,gte=0,lte=100"`
	MinDTE          *int     `json:"min_dte" validate:"omitempty,gte=0"`
	MaxDTE          *int     `json:"max_dte" validate:"omitempty,gte=0"`
	MinBid          *float64 `json:"min_bid" validate:"omitempty,gte=0"`
	MinOpenInterest *int64   `json:"min_open_interest" validate:"omitempty,gte=0"`
	MinVolume       *int64   `json:"min_volume" validate:"omitempty,gte=0"`
	Moneyness       string   `json:"moneyness"`
	UseMid          *bool    `json:"use_mid"`
	MaxRows         *int     `json:"max_rows" validate:"omitempty,gte=0"`
}

func (req scanRequest) apply(f models.FilterConfig) (models.FilterConfig, error) {
	if req.TargetPct != nil {
		f.TargetPct = decimal.NewFromFloat(*req.TargetPct)
	}
	if req.MinDTE != nil {
		f.MinDTE = *req.MinDTE
	}
	if req.MaxDTE != nil {
		f.MaxDTE = *req.MaxDTE
	}
	if req.MinBid != nil {
		f.MinBid = decimal.NewFromFloat(*req.MinBid)
	}
	if req.MinOpenInterest != nil {
		f.MinOpenInterest = *req.MinOpenInterest
	}
	if req.MinVolume != nil {
		f.MinVolume = *req.MinVolume
	}
	if req.Moneyness != "" {
		m, err := models.ParseMoneyness(req.Moneyness)
		if err != nil {
			return f, err
		}
		f.Moneyness = m
	}
	if req.UseMid != nil {
		f.UseMid = *req.UseMid
	}
	if req.MaxRows != nil {
		f.MaxRows = *req.MaxRows
	}
	return f, f.Validate()
}

// HandleScan runs a live scan over the requested symbols
func (h *Handler) HandleScan(w http.ResponseWriter, r *http.Request) {
	var req scanRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.jsonError(w, "Invalid JSON request", http.StatusBadRequest)
		return
	}

	req.Symbols = universe.ParseSymbols(strings.Join(req.Symbols, ","))
	if err := h.validate.Struct(req); err != nil {
		h.jsonError(w, fmt.Sprintf("invalid scan request: %v", err), http.StatusBadRequest)
		return
	}
	if len(req.Symbols) > maxScanSymbols {
		h.jsonError(w, fmt.Sprintf("too many symbols (max %d)", maxScanSymbols), http.StatusBadRequest)
		return
	}
	for _, s := range req.Symbols {
		if err := h.ValidateSymbol(s); err != nil {
			h.jsonError(w, fmt.Sprintf("%s: %v", s, err), http.StatusBadRequest)
			return
		}
	}

	filter, err := req.apply(h.app.DefaultFilter())
	if err != nil {
		h.jsonError(w, err.Error(), http.StatusBadRequest)
		return
	}

	result, err := h.app.Scan(r.Context(), req.Provider, req.Symbols, filter)
	if err != nil {
		h.errorResponse(w, err)
		return
	}

	h.scanResponse(w, r, result)
}

// HandleScanCSV filters quotes from an uploaded CSV file (form field "file").
// Filter overrides come from the query string.
func (h *Handler) HandleScanCSV(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		h.jsonError(w, "Failed to parse upload", http.StatusBadRequest)
		return
	}
	file, _, err := r.FormFile("file")
	if err != nil {
		h.jsonError(w, "CSV file is required", http.StatusBadRequest)
		return
	}
	defer file.Close()

	req, err := scanRequestFromQuery(r)
	if err != nil {
		h.jsonError(w, err.Error(), http.StatusBadRequest)
		return
	}
	filter, err := req.apply(h.app.DefaultFilter())
	if err != nil {
		h.jsonError(w, err.Error(), http.StatusBadRequest)
		return
	}

	in, err := csvio.ImportQuotes(file)
	if err != nil {
		h.jsonError(w, err.Error(), http.StatusBadRequest)
		return
	}

	result, err := h.app.ScanQuotes(in, filter)
	if err != nil {
		h.errorResponse(w, err)
		return
	}

	h.scanResponse(w, r, result)
}

func scanRequestFromQuery(r *http.Request) (scanRequest, error) {
	q := r.URL.Query()
	var req scanRequest
	var err error

	parseFloat := func(key string) *float64 {
		if err != nil || q.Get(key) == "" {
			return nil
		}
		v, perr := strconv.ParseFloat(q.Get(key), 64)
		if perr != nil {
			err = fmt.Errorf("invalid %s: %q", key, q.Get(key))
			return nil
		}
		return &v
	}
	parseInt := func(key string) *int {
		if err != nil || q.Get(key) == "" {
			return nil
		}
		v, perr := strconv.Atoi(q.Get(key))
		if perr != nil {
			err = fmt.Errorf("invalid %s: %q", key, q.Get(key))
			return nil
		}
		return &v
	}
	parseInt64 := func(key string) *int64 {
		if v := parseInt(key); v != nil {
			n := int64(*v)
			return &n
		}
		return nil
	}

	req.TargetPct = parseFloat("target_pct")
	req.MinBid = parseFloat("min_bid")
	req.MinDTE = parseInt("min_dte")
	req.MaxDTE = parseInt("max_dte")
	req.MaxRows = parseInt("max_rows")
	req.MinOpenInterest = parseInt64("min_oi")
	req.MinVolume = parseInt64("min_volume")
	req.Moneyness = q.Get("moneyness")
	if raw := q.Get("use_mid"); raw != "" && err == nil {
		v, perr := strconv.ParseBool(raw)
		if perr != nil {
			return req, fmt.Errorf("invalid use_mid: %q", raw)
		}
		req.UseMid = &v
	}
	return req, err
}

func (h *Handler) scanResponse(w http.ResponseWriter, r *http.Request, result *models.ScanResult) {
	if wantsCSV(r) {
		h.csvResponse(w, "scan.csv", func(out io.Writer) error {
			return csvio.WriteRows(out, result.Rows)
		})
		return
	}
	h.jsonResponse(w, result)
}

// HandleEarnings returns the merged earnings dates for one symbol
func (h *Handler) HandleEarnings(w http.ResponseWriter, r *http.Request) {
	symbol, ok := h.symbolParam(w, r)
	if !ok {
		return
	}

	lookup, err := h.app.Earnings(r.Context(), symbol)
	if err != nil {
		h.errorResponse(w, err)
		return
	}

	resp := map[string]interface{}{"lookup": lookup}
	if next, found := lookup.Next(marketclock.Today(h.app.Now())); found {
		resp["next"] = next
	}
	h.jsonResponse(w, resp)
}

// HandleCalendar returns the earnings calendar for ?start=&end=, optionally
// annotated with optionability (?with_options=true&provider=)
func (h *Handler) HandleCalendar(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	today := marketclock.Today(h.app.Now())

	start, err := dateParam(q.Get("start"), today)
	if err != nil {
		h.jsonError(w, "invalid start date (want YYYY-MM-DD)", http.StatusBadRequest)
		return
	}
	end, err := dateParam(q.Get("end"), start)
	if err != nil {
		h.jsonError(w, "invalid end date (want YYYY-MM-DD)", http.StatusBadRequest)
		return
	}

	withOptions, _ := strconv.ParseBool(q.Get("with_options"))
	if !withOptions {
		cal, err := h.app.Calendar(r.Context(), start, end)
		if err != nil {
			h.errorResponse(w, err)
			return
		}
		if wantsCSV(r) {
			h.csvResponse(w, "earnings.csv", func(out io.Writer) error {
				return csvio.WriteCalendar(out, cal.Events)
			})
			return
		}
		h.jsonResponse(w, cal)
		return
	}

	cal, rows, err := h.app.CalendarWithOptions(r.Context(), start, end, q.Get("provider"))
	if err != nil {
		h.errorResponse(w, err)
		return
	}
	if wantsCSV(r) {
		h.csvResponse(w, "earnings.csv", func(out io.Writer) error {
			return csvio.WriteCalendarWithOptions(out, rows)
		})
		return
	}
	h.jsonResponse(w, map[string]interface{}{
		"start":   cal.Start,
		"end":     cal.End,
		"events":  rows,
		"sources": cal.Sources,
	})
}

// HandleOptionable probes option listings for one symbol
func (h *Handler) HandleOptionable(w http.ResponseWriter, r *http.Request) {
	symbol, ok := h.symbolParam(w, r)
	if !ok {
		return
	}

	results, err := h.app.Optionable(r.Context(), r.URL.Query().Get("provider"), []string{symbol})
	if err != nil {
		h.errorResponse(w, err)
		return
	}
	h.jsonResponse(w, results[0])
}

// HandleImpliedVolatility estimates IV for one symbol
func (h *Handler) HandleImpliedVolatility(w http.ResponseWriter, r *http.Request) {
	symbol, ok := h.symbolParam(w, r)
	if !ok {
		return
	}

	estimates := h.app.ImpliedVolatility(r.Context(), []string{symbol})
	est := estimates[0]
	resp := map[string]interface{}{"estimate": est}
	if est.Found {
		resp["percent"] = est.Percent().StringFixed(2)
	}
	h.jsonResponse(w, resp)
}

// Helper functions

func (h *Handler) symbolParam(w http.ResponseWriter, r *http.Request) (string, bool) {
	symbol := strings.ToUpper(strings.TrimSpace(chi.URLParam(r, "symbol")))
	if err := h.ValidateSymbol(symbol); err != nil {
		h.jsonError(w, err.Error(), http.StatusBadRequest)
		return "", false
	}
	return symbol, true
}

// ValidateSymbol validates a stock symbol
func (h *Handler) ValidateSymbol(symbol string) error {
	if symbol == "" {
		return fmt.Errorf("symbol is required")
	}

	if len(symbol) > 10 {
		return fmt.Errorf("symbol too long (max 10 characters)")
	}

	if !symbolPattern.MatchString(symbol) {
		return fmt.Errorf("invalid symbol format (alphanumeric, dots, and dashes only)")
	}

	return nil
}

func dateParam(raw string, fallback time.Time) (time.Time, error) {
	if raw == "" {
		return fallback, nil
	}
	return marketclock.ParseDate(raw)
}

func wantsCSV(r *http.Request) bool {
	return strings.EqualFold(r.URL.Query().Get("format"), "csv")
}

// errorStatus maps domain errors to HTTP status codes
func errorStatus(err error) int {
	switch {
	case errors.Is(err, app.ErrBusy):
		return http.StatusTooManyRequests
	case errors.Is(err, app.ErrUnknownProvider), errors.Is(err, earnings.ErrInvalidRange):
		return http.StatusBadRequest
	case errors.Is(err, services.ErrMissingCredential),
		errors.Is(err, gobreaker.ErrOpenState),
		errors.Is(err, gobreaker.ErrTooManyRequests):
		return http.StatusServiceUnavailable
	}
	return http.StatusInternalServerError
}

func (h *Handler) errorResponse(w http.ResponseWriter, err error) {
	status := errorStatus(err)
	if status == http.StatusInternalServerError {
		observability.Error("request failed", "error", err)
	}
	h.jsonError(w, err.Error(), status)
}

func (h *Handler) csvResponse(w http.ResponseWriter, filename string, write func(io.Writer) error) {
	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	if err := write(w); err != nil {
		observability.Error("failed to write CSV response", "error", err)
	}
}

func (h *Handler) jsonResponse(w http.ResponseWriter, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(data)
}

func (h *Handler) jsonError(w http.ResponseWriter, message string, status int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"error": message})
}
