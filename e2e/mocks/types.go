package mocks

// TradierContract is one option chain row as Tradier serves it.
type TradierContract struct {
	Symbol         string         `json:"symbol"`
	OptionType     string         `json:"option_type"`
	RootSymbol     string         `json:"root_symbol"`
	Strike         float64        `json:"strike"`
	ExpirationDate string         `json:"expiration_date"`
	Bid            *float64       `json:"bid"`
	Ask            *float64       `json:"ask"`
	Last           *float64       `json:"last"`
	PrevClose      *float64       `json:"prevclose"`
	Volume         *int64         `json:"volume"`
	OpenInterest   *int64         `json:"open_interest"`
	Greeks         *TradierGreeks `json:"greeks,omitempty"`
}

// TradierGreeks carries the implied volatility figures of a chain row.
type TradierGreeks struct {
	MidIV  float64 `json:"mid_iv"`
	SmvVol float64 `json:"smv_vol"`
}

// TradierQuote is a stock or option quote row.
type TradierQuote struct {
	Symbol    string   `json:"symbol"`
	Last      *float64 `json:"last"`
	Bid       *float64 `json:"bid,omitempty"`
	Ask       *float64 `json:"ask,omitempty"`
	PrevClose *float64 `json:"prevclose,omitempty"`
}

// YahooSymbol holds the Yahoo Finance data served for one symbol.
type YahooSymbol struct {
	Price              float64
	EarningsTimestamps []int64 // quoteSummary calendarEvents
	QuoteEarningsAt    int64   // v7 quote earningsTimestamp
	ImpliedVolatility  float64 // quoteSummary summaryDetail
	OptionsExpiration  int64
	Puts               []YahooPut
}

// YahooPut is one put from the v7 options endpoint.
type YahooPut struct {
	ContractSymbol    string  `json:"contractSymbol"`
	Strike            float64 `json:"strike"`
	Bid               float64 `json:"bid"`
	Ask               float64 `json:"ask"`
	LastPrice         float64 `json:"lastPrice"`
	ImpliedVolatility float64 `json:"impliedVolatility"`
	Expiration        int64   `json:"expiration"`
}

// FMPEarning is a row from the FMP earnings calendar endpoints.
type FMPEarning struct {
	Date   string `json:"date"`
	Symbol string `json:"symbol"`
	Time   string `json:"time"`
}

// NasdaqEarning is a row from the Nasdaq daily earnings calendar.
type NasdaqEarning struct {
	Symbol string `json:"symbol"`
	Name   string `json:"name"`
	Time   string `json:"time"`
}

// AlphaVantageEarning is a row of the Alpha Vantage earnings calendar CSV.
type AlphaVantageEarning struct {
	Symbol       string
	Name         string
	ReportDate   string
	TimeOfTheDay string
}

// CalendarRow is a row of the Yahoo earnings calendar HTML page.
type CalendarRow struct {
	Symbol   string
	Company  string
	CallTime string
}
