// Package mocks provides an HTTP server that stands in for every upstream
// market data API during E2E tests.
package mocks

import (
	"encoding/json"
	"fmt"
	"html"
	"net/http"
	"net/http/httptest"
	"sort"
	"strings"
	"sync"
	"time"
)

// Upstream names accepted by SetError
const (
	Tradier       = "tradier"
	Yahoo         = "yahoo"
	FMP           = "fmp"
	Nasdaq        = "nasdaq"
	AlphaVantage  = "alphavantage"
	YahooCalendar = "yahoo_calendar"
	MarketBeat    = "marketbeat"
)

// FMPPrefix is the path prefix FMP requests arrive under, matching the
// production base URL layout
const FMPPrefix = "/api/v3"

// MockServer provides configurable upstream responses keyed by symbol or day.
type MockServer struct {
	mu     sync.RWMutex
	server *httptest.Server

	// Response configurations
	tradierExpirations map[string][]string
	tradierChains      map[string][]TradierContract // key: SYMBOL|YYYY-MM-DD
	tradierQuotes      map[string]TradierQuote
	yahoo              map[string]YahooSymbol
	fmpCalendar        []FMPEarning
	fmpHistory         map[string][]FMPEarning
	nasdaqCalendar     map[string][]NasdaqEarning // key: YYYY-MM-DD
	nasdaqAnnouncement map[string]string
	alphaVantage       []AlphaVantageEarning
	yahooCalendar      map[string][]CalendarRow // key: YYYY-MM-DD
	marketBeat         map[string][]string      // key: EXCHANGE/SYMBOL

	// Error injection: upstream name -> HTTP status
	errors map[string]int

	// Request tracking for assertions
	requestLog []RequestLog
}

// RequestLog records incoming requests for test assertions.
type RequestLog struct {
	Method string
	Path   string
	Query  string
}

// NewMockServer creates a new mock server with default responses.
func NewMockServer() *MockServer {
	m := &MockServer{
		requestLog: make([]RequestLog, 0),
		errors:     make(map[string]int),
	}
	m.setDefaults()
	m.server = httptest.NewServer(m)
	return m
}

// URL returns the mock server's base URL.
func (m *MockServer) URL() string {
	return m.server.URL
}

// Close shuts down the mock server.
func (m *MockServer) Close() {
	m.server.Close()
}

// ServeHTTP implements http.Handler to route requests to appropriate mock handlers.
func (m *MockServer) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	m.mu.Lock()
	m.requestLog = append(m.requestLog, RequestLog{
		Method: r.Method,
		Path:   r.URL.Path,
		Query:  r.URL.RawQuery,
	})
	m.mu.Unlock()

	path := r.URL.Path

	var upstream string
	var handle func(http.ResponseWriter, *http.Request)

	// Route to appropriate handler based on path
	switch {
	case path == "/v1/markets/options/expirations":
		upstream, handle = Tradier, m.handleTradierExpirations
	case path == "/v1/markets/options/chains":
		upstream, handle = Tradier, m.handleTradierChain
	case path == "/v1/markets/quotes":
		upstream, handle = Tradier, m.handleTradierQuotes
	case path == "/v7/finance/quote":
		upstream, handle = Yahoo, m.handleYahooQuote
	case strings.HasPrefix(path, "/v10/finance/quoteSummary/"):
		upstream, handle = Yahoo, m.handleYahooSummary
	case strings.HasPrefix(path, "/v7/finance/options/"):
		upstream, handle = Yahoo, m.handleYahooOptions
	case path == FMPPrefix+"/earning_calendar":
		upstream, handle = FMP, m.handleFMPCalendar
	case strings.HasPrefix(path, FMPPrefix+"/historical/earning_calendar/"):
		upstream, handle = FMP, m.handleFMPHistory
	case path == "/api/calendar/earnings":
		upstream, handle = Nasdaq, m.handleNasdaqCalendar
	case strings.HasPrefix(path, "/api/analyst/"):
		upstream, handle = Nasdaq, m.handleNasdaqAnnouncement
	case path == "/query":
		upstream, handle = AlphaVantage, m.handleAlphaVantage
	case path == "/calendar/earnings":
		upstream, handle = YahooCalendar, m.handleYahooCalendar
	case strings.HasPrefix(path, "/stocks/"):
		upstream, handle = MarketBeat, m.handleMarketBeat
	default:
		http.Error(w, "not found", http.StatusNotFound)
		return
	}

	m.mu.RLock()
	status := m.errors[upstream]
	m.mu.RUnlock()
	if status != 0 {
		http.Error(w, fmt.Sprintf("%s unavailable", upstream), status)
		return
	}
	handle(w, r)
}

// GetRequestLog returns all logged requests for assertions.
func (m *MockServer) GetRequestLog() []RequestLog {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]RequestLog{}, m.requestLog...)
}

// ClearRequestLog clears the request log.
func (m *MockServer) ClearRequestLog() {
	m.mu.Lock()
	m.requestLog = make([]RequestLog, 0)
	m.mu.Unlock()
}

// CountRequests returns how many logged requests had a path starting with prefix.
func (m *MockServer) CountRequests(prefix string) int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	n := 0
	for _, r := range m.requestLog {
		if strings.HasPrefix(r.Path, prefix) {
			n++
		}
	}
	return n
}

// SetError makes every request to upstream answer with status. Zero clears it.
func (m *MockServer) SetError(upstream string, status int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if status == 0 {
		delete(m.errors, upstream)
		return
	}
	m.errors[upstream] = status
}

// SetTradierChain replaces the chain served for symbol on expiration and
// lists the expiration if it is new.
func (m *MockServer) SetTradierChain(symbol, expiration string, chain []TradierContract) {
	m.mu.Lock()
	defer m.mu.Unlock()
	symbol = strings.ToUpper(symbol)
	m.tradierChains[symbol+"|"+expiration] = chain
	for _, e := range m.tradierExpirations[symbol] {
		if e == expiration {
			return
		}
	}
	m.tradierExpirations[symbol] = append(m.tradierExpirations[symbol], expiration)
	sort.Strings(m.tradierExpirations[symbol])
}

// SetTradierQuote sets the quote served for a stock or option symbol.
func (m *MockServer) SetTradierQuote(q TradierQuote) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.tradierQuotes[q.Symbol] = q
}

// SetYahooSymbol replaces the Yahoo data served for symbol.
func (m *MockServer) SetYahooSymbol(symbol string, data YahooSymbol) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.yahoo[strings.ToUpper(symbol)] = data
}

// SetFMPCalendar replaces the FMP range calendar rows.
func (m *MockServer) SetFMPCalendar(rows []FMPEarning) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.fmpCalendar = rows
}

// SetNasdaqDay replaces the Nasdaq calendar rows for day (YYYY-MM-DD).
func (m *MockServer) SetNasdaqDay(day string, rows []NasdaqEarning) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nasdaqCalendar[day] = rows
}

// SetYahooCalendarDay replaces the scraped Yahoo calendar rows for day.
func (m *MockServer) SetYahooCalendarDay(day string, rows []CalendarRow) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.yahooCalendar[day] = rows
}

// SetAlphaVantageCalendar replaces the Alpha Vantage CSV rows.
func (m *MockServer) SetAlphaVantageCalendar(rows []AlphaVantageEarning) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.alphaVantage = rows
}

// setDefaults seeds ABC: a 50 strike put bidding 12% of strike expiring
// 2024-06-21, a near-money chain on 2024-07-05 for IV, and earnings dates
// from every source.
func (m *MockServer) setDefaults() {
	m.tradierExpirations = map[string][]string{
		"ABC": {"2024-06-21", "2024-07-05"},
	}
	m.tradierChains = map[string][]TradierContract{
		"ABC|2024-06-21": {
			put("ABC240621P00050000", "2024-06-21", 50, 6, 6.4, 300),
			put("ABC240621P00040000", "2024-06-21", 40, 1, 1.2, 300),
			{Symbol: "ABC240621C00050000", OptionType: "call", RootSymbol: "ABC", Strike: 50,
				ExpirationDate: "2024-06-21", Bid: f64(4), Ask: f64(4.2)},
		},
		"ABC|2024-07-05": {
			withIV(put("ABC240705P00051000", "2024-07-05", 51, 1.5, 1.7, 120), 0.30),
			withIV(put("ABC240705P00052000", "2024-07-05", 52, 2.0, 2.2, 120), 0.32),
			withIV(put("ABC240705P00053000", "2024-07-05", 53, 2.5, 2.7, 120), 0.34),
			withIV(put("ABC240705P00040000", "2024-07-05", 40, 0.2, 0.3, 120), 0.80),
		},
	}
	m.tradierQuotes = map[string]TradierQuote{
		"ABC": {Symbol: "ABC", Last: f64(52), PrevClose: f64(51.5)},
	}

	earnings := time.Date(2024, 6, 12, 20, 0, 0, 0, time.UTC).Unix()
	m.yahoo = map[string]YahooSymbol{
		"ABC": {
			Price:              52,
			EarningsTimestamps: []int64{earnings},
			QuoteEarningsAt:    earnings,
			ImpliedVolatility:  0.28,
			OptionsExpiration:  time.Date(2024, 7, 5, 0, 0, 0, 0, time.UTC).Unix(),
			Puts: []YahooPut{
				{ContractSymbol: "ABC240705P00052000", Strike: 52, Bid: 2, Ask: 2.2, ImpliedVolatility: 0.31},
			},
		},
	}
	m.fmpCalendar = []FMPEarning{
		{Date: "2024-06-12", Symbol: "ABC", Time: "amc"},
		{Date: "2024-06-13", Symbol: "XYZ", Time: "bmo"},
	}
	m.fmpHistory = map[string][]FMPEarning{
		"ABC": {
			{Date: "2024-06-12", Symbol: "ABC", Time: "amc"},
			{Date: "2024-03-13", Symbol: "ABC", Time: "amc"},
		},
	}
	m.nasdaqCalendar = map[string][]NasdaqEarning{
		"2024-06-12": {{Symbol: "ABC", Name: "ABC Corp", Time: "time-after-hours"}},
		"2024-06-13": {{Symbol: "XYZ", Name: "XYZ Inc", Time: "time-pre-market"}},
	}
	m.nasdaqAnnouncement = map[string]string{
		"abc": "Earnings announcement* for ABC: Jun 12, 2024",
	}
	m.alphaVantage = []AlphaVantageEarning{
		{Symbol: "XYZ", Name: "XYZ Inc", ReportDate: "2024-06-13", TimeOfTheDay: "pre-market"},
		{Symbol: "LATE", Name: "Late Co", ReportDate: "2024-09-30", TimeOfTheDay: "post-market"},
	}
	m.yahooCalendar = map[string][]CalendarRow{
		"2024-06-12": {{Symbol: "ABC", Company: "ABC Corp", CallTime: "After Market Close"}},
	}
	m.marketBeat = map[string][]string{
		"NYSE/ABC": {"6/12/2024", "3/13/2024"},
	}
}

func f64(v float64) *float64 { return &v }
func i64(v int64) *int64     { return &v }

func put(symbol, expiration string, strike, bid, ask float64, oi int64) TradierContract {
	return TradierContract{
		Symbol:         symbol,
		OptionType:     "put",
		RootSymbol:     symbol[:strings.IndexAny(symbol, "0123456789")],
		Strike:         strike,
		ExpirationDate: expiration,
		Bid:            f64(bid),
		Ask:            f64(ask),
		Last:           f64((bid + ask) / 2),
		Volume:         i64(25),
		OpenInterest:   i64(oi),
	}
}

func withIV(c TradierContract, iv float64) TradierContract {
	c.Greeks = &TradierGreeks{MidIV: iv, SmvVol: iv}
	return c
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(v)
}

func (m *MockServer) handleTradierExpirations(w http.ResponseWriter, r *http.Request) {
	m.mu.RLock()
	dates := m.tradierExpirations[strings.ToUpper(r.URL.Query().Get("symbol"))]
	m.mu.RUnlock()

	if len(dates) == 0 {
		writeJSON(w, map[string]any{"expirations": nil})
		return
	}
	writeJSON(w, map[string]any{"expirations": map[string]any{"date": dates}})
}

func (m *MockServer) handleTradierChain(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	key := strings.ToUpper(q.Get("symbol")) + "|" + q.Get("expiration")

	m.mu.RLock()
	chain := m.tradierChains[key]
	m.mu.RUnlock()

	if len(chain) == 0 {
		writeJSON(w, map[string]any{"options": nil})
		return
	}
	writeJSON(w, map[string]any{"options": map[string]any{"option": chain}})
}

func (m *MockServer) handleTradierQuotes(w http.ResponseWriter, r *http.Request) {
	m.mu.RLock()
	var rows []TradierQuote
	for _, s := range strings.Split(r.URL.Query().Get("symbols"), ",") {
		if q, ok := m.tradierQuotes[strings.ToUpper(strings.TrimSpace(s))]; ok {
			rows = append(rows, q)
		}
	}
	m.mu.RUnlock()

	if len(rows) == 0 {
		writeJSON(w, map[string]any{"quotes": map[string]any{"unmatched_symbols": r.URL.Query().Get("symbols")}})
		return
	}
	writeJSON(w, map[string]any{"quotes": map[string]any{"quote": rows}})
}

func (m *MockServer) yahooSymbol(symbol string) (YahooSymbol, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	data, ok := m.yahoo[strings.ToUpper(symbol)]
	return data, ok
}

func yahooNotFound(w http.ResponseWriter, root, symbol string) {
	w.WriteHeader(http.StatusNotFound)
	writeJSON(w, map[string]any{root: map[string]any{
		"result": nil,
		"error":  map[string]string{"code": "Not Found", "description": "No data found for " + symbol},
	}})
}

func (m *MockServer) handleYahooQuote(w http.ResponseWriter, r *http.Request) {
	symbol := strings.ToUpper(r.URL.Query().Get("symbols"))
	results := []map[string]any{}
	if data, ok := m.yahooSymbol(symbol); ok {
		results = append(results, map[string]any{
			"symbol":             symbol,
			"regularMarketPrice": data.Price,
			"earningsTimestamp":  data.QuoteEarningsAt,
		})
	}
	writeJSON(w, map[string]any{"quoteResponse": map[string]any{"result": results, "error": nil}})
}

func (m *MockServer) handleYahooSummary(w http.ResponseWriter, r *http.Request) {
	symbol := strings.TrimPrefix(r.URL.Path, "/v10/finance/quoteSummary/")
	data, ok := m.yahooSymbol(symbol)
	if !ok {
		yahooNotFound(w, "quoteSummary", symbol)
		return
	}

	dates := make([]map[string]any, 0, len(data.EarningsTimestamps))
	for _, ts := range data.EarningsTimestamps {
		dates = append(dates, map[string]any{"raw": ts, "fmt": time.Unix(ts, 0).UTC().Format("2006-01-02")})
	}
	writeJSON(w, map[string]any{"quoteSummary": map[string]any{
		"result": []map[string]any{{
			"calendarEvents": map[string]any{"earnings": map[string]any{"earningsDate": dates}},
			"summaryDetail":  map[string]any{"impliedVolatility": map[string]any{"raw": data.ImpliedVolatility}},
		}},
		"error": nil,
	}})
}

func (m *MockServer) handleYahooOptions(w http.ResponseWriter, r *http.Request) {
	symbol := strings.TrimPrefix(r.URL.Path, "/v7/finance/options/")
	data, ok := m.yahooSymbol(symbol)
	if !ok {
		yahooNotFound(w, "optionChain", symbol)
		return
	}

	puts := make([]YahooPut, len(data.Puts))
	for i, p := range data.Puts {
		p.Expiration = data.OptionsExpiration
		puts[i] = p
	}
	writeJSON(w, map[string]any{"optionChain": map[string]any{
		"result": []map[string]any{{
			"quote":   map[string]any{"regularMarketPrice": data.Price},
			"options": []map[string]any{{"expirationDate": data.OptionsExpiration, "puts": puts}},
		}},
		"error": nil,
	}})
}

func (m *MockServer) handleFMPCalendar(w http.ResponseWriter, r *http.Request) {
	from, to := r.URL.Query().Get("from"), r.URL.Query().Get("to")

	m.mu.RLock()
	rows := []FMPEarning{}
	for _, e := range m.fmpCalendar {
		if e.Date >= from && e.Date <= to {
			rows = append(rows, e)
		}
	}
	m.mu.RUnlock()

	writeJSON(w, rows)
}

func (m *MockServer) handleFMPHistory(w http.ResponseWriter, r *http.Request) {
	symbol := strings.ToUpper(strings.TrimPrefix(r.URL.Path, FMPPrefix+"/historical/earning_calendar/"))

	m.mu.RLock()
	rows := m.fmpHistory[symbol]
	m.mu.RUnlock()

	if rows == nil {
		rows = []FMPEarning{}
	}
	writeJSON(w, rows)
}

func (m *MockServer) handleNasdaqCalendar(w http.ResponseWriter, r *http.Request) {
	m.mu.RLock()
	rows := m.nasdaqCalendar[r.URL.Query().Get("date")]
	m.mu.RUnlock()

	if rows == nil {
		rows = []NasdaqEarning{}
	}
	writeJSON(w, map[string]any{"data": map[string]any{"rows": rows}})
}

func (m *MockServer) handleNasdaqAnnouncement(w http.ResponseWriter, r *http.Request) {
	symbol := strings.TrimSuffix(strings.TrimPrefix(r.URL.Path, "/api/analyst/"), "/earnings-date")

	m.mu.RLock()
	text := m.nasdaqAnnouncement[strings.ToLower(symbol)]
	m.mu.RUnlock()

	writeJSON(w, map[string]any{"data": map[string]any{"announcement": text, "reportText": ""}})
}

func (m *MockServer) handleAlphaVantage(w http.ResponseWriter, r *http.Request) {
	if r.URL.Query().Get("function") != "EARNINGS_CALENDAR" {
		writeJSON(w, map[string]string{"Information": "unsupported function"})
		return
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	w.Header().Set("Content-Type", "text/csv")
	fmt.Fprintln(w, "symbol,name,reportDate,fiscalDateEnding,estimate,currency,timeOfTheDay")
	for _, e := range m.alphaVantage {
		fmt.Fprintf(w, "%s,%s,%s,,,USD,%s\n", e.Symbol, e.Name, e.ReportDate, e.TimeOfTheDay)
	}
}

func (m *MockServer) handleYahooCalendar(w http.ResponseWriter, r *http.Request) {
	m.mu.RLock()
	rows := m.yahooCalendar[r.URL.Query().Get("day")]
	m.mu.RUnlock()

	var b strings.Builder
	b.WriteString("<html><body><table><thead><tr><th>Symbol</th><th>Company</th><th>Earnings Call Time</th></tr></thead><tbody>")
	for _, row := range rows {
		fmt.Fprintf(&b, "<tr><td><a href=\"/quote/%[1]s\">%[1]s</a></td><td>%s</td><td>%s</td></tr>",
			html.EscapeString(row.Symbol), html.EscapeString(row.Company), html.EscapeString(row.CallTime))
	}
	b.WriteString("</tbody></table></body></html>")

	w.Header().Set("Content-Type", "text/html")
	fmt.Fprint(w, b.String())
}

func (m *MockServer) handleMarketBeat(w http.ResponseWriter, r *http.Request) {
	// /stocks/{EXCHANGE}/{SYMBOL}/earnings/
	parts := strings.Split(strings.Trim(r.URL.Path, "/"), "/")
	if len(parts) != 4 || parts[3] != "earnings" {
		http.Error(w, "not found", http.StatusNotFound)
		return
	}

	m.mu.RLock()
	dates, ok := m.marketBeat[parts[1]+"/"+strings.ToUpper(parts[2])]
	m.mu.RUnlock()
	if !ok {
		http.Error(w, "not found", http.StatusNotFound)
		return
	}

	var b strings.Builder
	b.WriteString("<html><body><table><thead><tr><th>Date</th><th>Quarter</th></tr></thead><tbody>")
	for _, d := range dates {
		fmt.Fprintf(&b, "<tr><td>%s</td><td>Q</td></tr>", html.EscapeString(d))
	}
	b.WriteString("</tbody></table></body></html>")

	w.Header().Set("Content-Type", "text/html")
	fmt.Fprint(w, b.String())
}
