package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strings"
)

// TradierService talks to the Tradier brokerage market-data REST API
type TradierService struct {
	token string
	http  *httpClient
}

// NewTradierService creates a new Tradier client. An empty token yields a
// client whose calls all fail with ErrMissingCredential.
func NewTradierService(token, baseURL string, opts ...ClientOption) *TradierService {
	if baseURL == "" {
		baseURL = "https://api.tradier.com"
	}
	return &TradierService{
		token: token,
		http:  newHTTPClient(BreakerTradier, baseURL, opts...),
	}
}

// TradierOption is one row of an options chain
type TradierOption struct {
	Symbol          string         `json:"symbol"`
	Description     string         `json:"description"`
	Exchange        string         `json:"exch"`
	Type            string         `json:"type"`
	Last            *float64       `json:"last"`
	Bid             *float64       `json:"bid"`
	Ask             *float64       `json:"ask"`
	PrevClose       *float64       `json:"prevclose"`
	Volume          *int64         `json:"volume"`
	OpenInterest    *int64         `json:"open_interest"`
	Underlying      string         `json:"underlying"`
	Strike          float64        `json:"strike"`
	ExpirationDate  string         `json:"expiration_date"`
	OptionType      string         `json:"option_type"`
	RootSymbol      string         `json:"root_symbol"`
	UnderlyingPrice *float64       `json:"underlying_price"`
	BidDate         int64          `json:"bid_date"`
	TradeDate       int64          `json:"trade_date"`
	Greeks          *TradierGreeks `json:"greeks"`
}

// TradierGreeks holds the implied volatility figures of a chain row
type TradierGreeks struct {
	Delta  float64 `json:"delta"`
	MidIV  float64 `json:"mid_iv"`
	BidIV  float64 `json:"bid_iv"`
	AskIV  float64 `json:"ask_iv"`
	SmvVol float64 `json:"smv_vol"`
}

// TradierQuote is one row from the quotes endpoint (equities and options)
type TradierQuote struct {
	Symbol     string   `json:"symbol"`
	Type       string   `json:"type"`
	Last       *float64 `json:"last"`
	Bid        *float64 `json:"bid"`
	Ask        *float64 `json:"ask"`
	PrevClose  *float64 `json:"prevclose"`
	Close      *float64 `json:"close"`
	Volume     *int64   `json:"volume"`
	OpenInt    *int64   `json:"open_interest"`
	BidDate    int64    `json:"bid_date"`
	TradeDate  int64    `json:"trade_date"`
	RootSymbol string   `json:"root_symbol"`
}

// oneOrMany decodes Tradier's habit of returning a bare object when a list
// has a single element, and "null" when it has none.
type oneOrMany[T any] []T

func (o *oneOrMany[T]) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*o = nil
		return nil
	}
	if data[0] == '[' {
		var many []T
		if err := json.Unmarshal(data, &many); err != nil {
			return err
		}
		*o = many
		return nil
	}
	var one T
	if err := json.Unmarshal(data, &one); err != nil {
		return err
	}
	*o = []T{one}
	return nil
}

// nullableObject tolerates "null" or a string where an object is expected
// (Tradier answers {"expirations": null} for unknown symbols).
func nullableObject(data []byte) bool {
	data = bytes.TrimSpace(data)
	return len(data) == 0 || data[0] != '{'
}

type tradierExpirations struct {
	Dates oneOrMany[string] `json:"date"`
}

func (e *tradierExpirations) UnmarshalJSON(data []byte) error {
	if nullableObject(data) {
		return nil
	}
	type alias tradierExpirations
	return json.Unmarshal(data, (*alias)(e))
}

type tradierChain struct {
	Options oneOrMany[TradierOption] `json:"option"`
}

func (c *tradierChain) UnmarshalJSON(data []byte) error {
	if nullableObject(data) {
		return nil
	}
	type alias tradierChain
	return json.Unmarshal(data, (*alias)(c))
}

type tradierQuotes struct {
	Quotes oneOrMany[TradierQuote] `json:"quote"`
}

func (q *tradierQuotes) UnmarshalJSON(data []byte) error {
	if nullableObject(data) {
		return nil
	}
	type alias tradierQuotes
	return json.Unmarshal(data, (*alias)(q))
}

func (s *TradierService) getJSON(ctx context.Context, operation, path string, params url.Values, result any) error {
	if s.token == "" {
		return MissingCredential("tradier")
	}
	body, err := s.http.get(ctx, operation, path, params, map[string]string{
		"Authorization": "Bearer " + s.token,
	})
	if err != nil {
		return err
	}
	if err := json.Unmarshal(body, result); err != nil {
		return fmt.Errorf("failed to decode tradier %s response: %w", operation, err)
	}
	return nil
}

// GetExpirations returns every listed expiration (YYYY-MM-DD) for symbol,
// across all option roots.
func (s *TradierService) GetExpirations(ctx context.Context, symbol string) ([]string, error) {
	params := url.Values{}
	params.Set("symbol", symbol)
	params.Set("includeAllRoots", "true")
	params.Set("strikes", "false")

	var result struct {
		Expirations tradierExpirations `json:"expirations"`
	}
	if err := s.getJSON(ctx, "expirations", "/v1/markets/options/expirations", params, &result); err != nil {
		return nil, fmt.Errorf("failed to get expirations for %s: %w", symbol, err)
	}

	return []string(result.Expirations.Dates), nil
}

// GetChain returns the options chain for one expiration
func (s *TradierService) GetChain(ctx context.Context, symbol, expiration string, greeks bool) ([]TradierOption, error) {
	params := url.Values{}
	params.Set("symbol", symbol)
	params.Set("expiration", expiration)
	params.Set("greeks", fmt.Sprintf("%t", greeks))

	var result struct {
		Options tradierChain `json:"options"`
	}
	if err := s.getJSON(ctx, "chains", "/v1/markets/options/chains", params, &result); err != nil {
		return nil, fmt.Errorf("failed to get %s chain for %s: %w", expiration, symbol, err)
	}

	return []TradierOption(result.Options.Options), nil
}

// GetQuotes returns quotes for equity or OCC option symbols
func (s *TradierService) GetQuotes(ctx context.Context, symbols ...string) ([]TradierQuote, error) {
	if len(symbols) == 0 {
		return nil, nil
	}
	params := url.Values{}
	params.Set("symbols", strings.Join(symbols, ","))
	params.Set("greeks", "false")

	var result struct {
		Quotes tradierQuotes `json:"quotes"`
	}
	if err := s.getJSON(ctx, "quotes", "/v1/markets/quotes", params, &result); err != nil {
		return nil, fmt.Errorf("failed to get quotes: %w", err)
	}

	return []TradierQuote(result.Quotes.Quotes), nil
}

// Configured reports whether a token is present
func (s *TradierService) Configured() bool {
	return s.token != ""
}
