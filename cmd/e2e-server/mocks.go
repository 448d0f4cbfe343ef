package main

import (
	"fmt"
	"strings"

	"inflated-puts/e2e/mocks"
)

func f64(v float64) *float64 { return &v }
func i64(v int64) *int64     { return &v }

// fixture describes one extra underlying served next to the mock defaults:
// a ladder of puts around price on a single expiration.
type fixture struct {
	symbol     string
	company    string
	price      float64
	expiration string // YYYY-MM-DD
	strikes    []float64
	bidPct     float64 // bid as a percentage of strike at the money
	reportDay  string
	session    string
}

var fixtures = []fixture{
	{"JNJ", "Johnson & Johnson", 155.5, "2024-06-21", []float64{140, 150, 155, 160}, 2.5, "2024-06-11", "bmo"},
	{"KO", "Coca-Cola Company", 61.2, "2024-06-28", []float64{55, 60, 62.5}, 3, "2024-06-13", "bmo"},
	{"MEME", "Meme Holdings", 8.4, "2024-06-21", []float64{5, 7.5, 10}, 14, "2024-06-12", "amc"},
}

// seedFixtures adds the fixture symbols to every upstream the mock serves
func seedFixtures(m *mocks.MockServer) {
	var fmp []mocks.FMPEarning
	nasdaq := map[string][]mocks.NasdaqEarning{
		"2024-06-12": {{Symbol: "ABC", Name: "ABC Corp", Time: "time-after-hours"}},
		"2024-06-13": {{Symbol: "XYZ", Name: "XYZ Inc", Time: "time-pre-market"}},
	}

	for _, f := range fixtures {
		var chain []mocks.TradierContract
		for _, strike := range f.strikes {
			// richer the deeper in the money
			bid := strike * f.bidPct / 100 * (strike / f.price)
			chain = append(chain, mocks.TradierContract{
				Symbol:         occSymbol(f.symbol, f.expiration, strike),
				OptionType:     "put",
				RootSymbol:     f.symbol,
				Strike:         strike,
				ExpirationDate: f.expiration,
				Bid:            f64(round2(bid)),
				Ask:            f64(round2(bid * 1.05)),
				Volume:         i64(40),
				OpenInterest:   i64(500),
				Greeks:         &mocks.TradierGreeks{MidIV: f.bidPct / 10, SmvVol: f.bidPct / 10},
			})
		}
		m.SetTradierChain(f.symbol, f.expiration, chain)
		m.SetTradierQuote(mocks.TradierQuote{Symbol: f.symbol, Last: f64(f.price)})
		m.SetYahooSymbol(f.symbol, mocks.YahooSymbol{Price: f.price, ImpliedVolatility: f.bidPct / 10})

		fmp = append(fmp, mocks.FMPEarning{Date: f.reportDay, Symbol: f.symbol, Time: f.session})
		nasdaq[f.reportDay] = append(nasdaq[f.reportDay], mocks.NasdaqEarning{Symbol: f.symbol, Name: f.company})
	}

	m.SetFMPCalendar(append([]mocks.FMPEarning{
		{Date: "2024-06-12", Symbol: "ABC", Time: "amc"},
		{Date: "2024-06-13", Symbol: "XYZ", Time: "bmo"},
	}, fmp...))
	for day, rows := range nasdaq {
		m.SetNasdaqDay(day, rows)
	}
}

// occSymbol builds ROOT + YYMMDD + P + strike*1000 padded to eight digits
func occSymbol(root, expiration string, strike float64) string {
	date := strings.ReplaceAll(expiration, "-", "")[2:]
	return fmt.Sprintf("%s%sP%08d", root, date, int64(strike*1000+0.5))
}

func round2(v float64) float64 {
	return float64(int64(v*100+0.5)) / 100
}
