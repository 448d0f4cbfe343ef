package services

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"
)

// DefaultUserAgent is sent to the unauthenticated JSON and HTML endpoints,
// which reject the Go default agent
const DefaultUserAgent = "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0 Safari/537.36"

// YahooService reads Yahoo Finance's public quote, quoteSummary and options endpoints
type YahooService struct {
	http *httpClient
}

// NewYahooService creates a new Yahoo Finance client
func NewYahooService(baseURL string, opts ...ClientOption) *YahooService {
	if baseURL == "" {
		baseURL = "https://query1.finance.yahoo.com"
	}
	opts = append([]ClientOption{WithUserAgent(DefaultUserAgent)}, opts...)
	return &YahooService{
		http: newHTTPClient(BreakerYahoo, baseURL, opts...),
	}
}

type yahooError struct {
	Code        string `json:"code"`
	Description string `json:"description"`
}

func (e *yahooError) err() error {
	if e == nil {
		return nil
	}
	if strings.EqualFold(e.Code, "Not Found") {
		return fmt.Errorf("yahoo: %s: %w", e.Description, ErrNotFound)
	}
	return fmt.Errorf("yahoo: %s: %s", e.Code, e.Description)
}

type yahooRaw struct {
	Raw float64 `json:"raw"`
	Fmt string  `json:"fmt"`
}

// YahooQuote is one row from the v7 quote endpoint
type YahooQuote struct {
	Symbol                 string  `json:"symbol"`
	RegularMarketPrice     float64 `json:"regularMarketPrice"`
	EarningsTimestamp      int64   `json:"earningsTimestamp"`
	EarningsTimestampStart int64   `json:"earningsTimestampStart"`
	EarningsTimestampEnd   int64   `json:"earningsTimestampEnd"`
}

// EarningsTimes returns the quote's earnings time: earningsTimestamp, or the
// start of the estimate window when that is absent. The window end is never
// reported as a separate date.
func (q YahooQuote) EarningsTimes() []time.Time {
	ts := q.EarningsTimestamp
	if ts <= 0 {
		ts = q.EarningsTimestampStart
	}
	if ts <= 0 {
		return nil
	}
	return []time.Time{time.Unix(ts, 0).UTC()}
}

// YahooSummary holds the quoteSummary fields used for earnings and IV lookups
type YahooSummary struct {
	EarningsDates     []time.Time
	ImpliedVolatility float64
}

type yahooSummaryResponse struct {
	QuoteSummary struct {
		Result []struct {
			CalendarEvents *struct {
				Earnings struct {
					EarningsDate []yahooRaw `json:"earningsDate"`
				} `json:"earnings"`
			} `json:"calendarEvents"`
			SummaryDetail *struct {
				ImpliedVolatility yahooRaw `json:"impliedVolatility"`
			} `json:"summaryDetail"`
			DefaultKeyStatistics *struct {
				ImpliedVolatility yahooRaw `json:"impliedVolatility"`
			} `json:"defaultKeyStatistics"`
		} `json:"result"`
		Error *yahooError `json:"error"`
	} `json:"quoteSummary"`
}

// YahooOptionContract is one contract from the v7 options endpoint
type YahooOptionContract struct {
	ContractSymbol    string  `json:"contractSymbol"`
	Strike            float64 `json:"strike"`
	Bid               float64 `json:"bid"`
	Ask               float64 `json:"ask"`
	LastPrice         float64 `json:"lastPrice"`
	ImpliedVolatility float64 `json:"impliedVolatility"`
	Expiration        int64   `json:"expiration"`
}

// YahooOptionChain is the nearest-expiration chain returned by the options endpoint
type YahooOptionChain struct {
	UnderlyingPrice float64
	Expiration      time.Time
	Puts            []YahooOptionContract
}

type yahooOptionsResponse struct {
	OptionChain struct {
		Result []struct {
			Quote struct {
				RegularMarketPrice float64 `json:"regularMarketPrice"`
			} `json:"quote"`
			Options []struct {
				ExpirationDate int64                 `json:"expirationDate"`
				Puts           []YahooOptionContract `json:"puts"`
			} `json:"options"`
		} `json:"result"`
		Error *yahooError `json:"error"`
	} `json:"optionChain"`
}

// GetQuote returns the v7 quote for symbol
func (s *YahooService) GetQuote(ctx context.Context, symbol string) (*YahooQuote, error) {
	params := url.Values{}
	params.Set("symbols", symbol)

	var resp struct {
		QuoteResponse struct {
			Result []YahooQuote `json:"result"`
			Error  *yahooError  `json:"error"`
		} `json:"quoteResponse"`
	}
	if err := s.http.getJSON(ctx, "quote", "/v7/finance/quote", params, &resp); err != nil {
		return nil, err
	}
	if err := resp.QuoteResponse.Error.err(); err != nil {
		return nil, err
	}
	for _, q := range resp.QuoteResponse.Result {
		if strings.EqualFold(q.Symbol, symbol) {
			return &q, nil
		}
	}
	return nil, fmt.Errorf("yahoo quote %s: %w", symbol, ErrNotFound)
}

// GetSummary returns earnings dates and the summary implied volatility for symbol
func (s *YahooService) GetSummary(ctx context.Context, symbol string) (*YahooSummary, error) {
	params := url.Values{}
	params.Set("modules", "calendarEvents,summaryDetail,defaultKeyStatistics")

	var resp yahooSummaryResponse
	path := "/v10/finance/quoteSummary/" + url.PathEscape(symbol)
	if err := s.http.getJSON(ctx, "quote_summary", path, params, &resp); err != nil {
		return nil, err
	}
	if err := resp.QuoteSummary.Error.err(); err != nil {
		return nil, err
	}
	if len(resp.QuoteSummary.Result) == 0 {
		return nil, fmt.Errorf("yahoo quoteSummary %s: %w", symbol, ErrNotFound)
	}

	r := resp.QuoteSummary.Result[0]
	summary := &YahooSummary{}
	if r.CalendarEvents != nil {
		for _, d := range r.CalendarEvents.Earnings.EarningsDate {
			if d.Raw > 0 {
				summary.EarningsDates = append(summary.EarningsDates, time.Unix(int64(d.Raw), 0).UTC())
			}
		}
	}
	if r.SummaryDetail != nil && r.SummaryDetail.ImpliedVolatility.Raw > 0 {
		summary.ImpliedVolatility = r.SummaryDetail.ImpliedVolatility.Raw
	} else if r.DefaultKeyStatistics != nil && r.DefaultKeyStatistics.ImpliedVolatility.Raw > 0 {
		summary.ImpliedVolatility = r.DefaultKeyStatistics.ImpliedVolatility.Raw
	}

	return summary, nil
}

// GetOptions returns the nearest-expiration put chain for symbol
func (s *YahooService) GetOptions(ctx context.Context, symbol string) (*YahooOptionChain, error) {
	var resp yahooOptionsResponse
	path := "/v7/finance/options/" + url.PathEscape(symbol)
	if err := s.http.getJSON(ctx, "options", path, nil, &resp); err != nil {
		return nil, err
	}
	if err := resp.OptionChain.Error.err(); err != nil {
		return nil, err
	}
	if len(resp.OptionChain.Result) == 0 {
		return nil, fmt.Errorf("yahoo options %s: %w", symbol, ErrNotFound)
	}

	r := resp.OptionChain.Result[0]
	chain := &YahooOptionChain{UnderlyingPrice: r.Quote.RegularMarketPrice}
	if len(r.Options) > 0 {
		chain.Expiration = time.Unix(r.Options[0].ExpirationDate, 0).UTC()
		chain.Puts = r.Options[0].Puts
	}
	return chain, nil
}
