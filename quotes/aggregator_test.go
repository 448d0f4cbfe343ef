package quotes

import (
	"context"
	"errors"
	"testing"

	"github.com/shopspring/decimal"

	"inflated-puts/models"
	"inflated-puts/services"
)

type stubProvider struct {
	results map[string][]models.OptionQuote
	errs    map[string]error
	calls   []string
}

func (s *stubProvider) Name() string { return "stub" }

func (s *stubProvider) GetPutQuotes(ctx context.Context, symbol string, minDTE, maxDTE int) ([]models.OptionQuote, error) {
	s.calls = append(s.calls, symbol)
	return s.results[symbol], s.errs[symbol]
}

func stubQuote(symbol string) models.OptionQuote {
	return models.OptionQuote{
		Provider:     "stub",
		OptionSymbol: symbol + "240621P00050000",
		Underlying:   symbol,
		Strike:       decimal.NewFromInt(50),
		Bid:          decimal.NewFromInt(1),
		QuoteSource:  models.QuoteSourceChain,
	}
}

func TestAggregator_Fetch(t *testing.T) {
	stub := &stubProvider{
		results: map[string][]models.OptionQuote{
			"AAA": {stubQuote("AAA"), stubQuote("AAA")},
			"CCC": {stubQuote("CCC")},
		},
		errs: map[string]error{"BBB": errUpstream},
	}
	agg := NewAggregator(stub, 0)

	quotes, run, err := agg.Fetch(context.Background(), []string{"AAA", "BBB", "CCC", "DDD"}, 0, 60)
	if err != nil {
		t.Fatalf("Fetch() error = %v", err)
	}
	if len(quotes) != 3 {
		t.Errorf("len(quotes) = %d, want 3", len(quotes))
	}
	if quotes[0].Underlying != "AAA" || quotes[2].Underlying != "CCC" {
		t.Errorf("quotes not in symbol order: %s .. %s", quotes[0].Underlying, quotes[2].Underlying)
	}

	if run.Status != models.ScanRunStatusCompleted {
		t.Errorf("Status = %s, want completed", run.Status)
	}
	if run.RecordsFetched != 3 {
		t.Errorf("RecordsFetched = %d, want 3", run.RecordsFetched)
	}
	if len(run.Failures) != 2 {
		t.Fatalf("len(Failures) = %d, want 2: %+v", len(run.Failures), run.Failures)
	}
	if run.Failures[0].Symbol != "BBB" || run.Failures[0].Error != errUpstream.Error() {
		t.Errorf("Failures[0] = %+v", run.Failures[0])
	}
	if run.Failures[1].Symbol != "DDD" || run.Failures[1].Error != ErrNoData.Error() {
		t.Errorf("Failures[1] = %+v", run.Failures[1])
	}
}

func TestAggregator_EmptyInput(t *testing.T) {
	agg := NewAggregator(&stubProvider{}, 0)

	quotes, run, err := agg.Fetch(context.Background(), nil, 0, 60)
	if err != nil {
		t.Fatalf("Fetch() error = %v", err)
	}
	if len(quotes) != 0 || len(run.Failures) != 0 {
		t.Errorf("got %d quotes, %d failures; want 0, 0", len(quotes), len(run.Failures))
	}
}

func TestAggregator_AllFail(t *testing.T) {
	stub := &stubProvider{errs: map[string]error{"AAA": errUpstream, "BBB": errUpstream}}
	agg := NewAggregator(stub, 0)

	quotes, run, err := agg.Fetch(context.Background(), []string{"AAA", "BBB"}, 0, 60)
	if err != nil {
		t.Fatalf("Fetch() error = %v", err)
	}
	if len(quotes) != 0 {
		t.Errorf("len(quotes) = %d, want 0", len(quotes))
	}
	if len(run.Failures) != 2 {
		t.Errorf("len(Failures) = %d, want 2", len(run.Failures))
	}
}

func TestAggregator_MissingCredentialAborts(t *testing.T) {
	stub := &stubProvider{errs: map[string]error{"AAA": services.MissingCredential("stub")}}
	agg := NewAggregator(stub, 0)

	_, run, err := agg.Fetch(context.Background(), []string{"AAA", "BBB"}, 0, 60)
	if !errors.Is(err, services.ErrMissingCredential) {
		t.Fatalf("error = %v, want ErrMissingCredential", err)
	}
	if run.Status != models.ScanRunStatusFailed {
		t.Errorf("Status = %s, want failed", run.Status)
	}
	if len(stub.calls) != 1 {
		t.Errorf("provider called %d times, want 1", len(stub.calls))
	}
}

func TestAggregator_Limit(t *testing.T) {
	stub := &stubProvider{}
	agg := NewAggregator(stub, 2)

	_, run, _ := agg.Fetch(context.Background(), []string{"AAA", "BBB", "CCC"}, 0, 60)
	if len(stub.calls) != 2 {
		t.Errorf("provider called %d times, want 2", len(stub.calls))
	}
	if len(run.Symbols) != 2 {
		t.Errorf("len(Symbols) = %d, want 2", len(run.Symbols))
	}
}

func TestAggregator_CancelledContext(t *testing.T) {
	stub := &stubProvider{}
	agg := NewAggregator(stub, 0)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	quotes, run, err := agg.Fetch(ctx, []string{"AAA", "BBB"}, 0, 60)
	if err != nil {
		t.Fatalf("Fetch() error = %v", err)
	}
	if len(quotes) != 0 || len(stub.calls) != 0 {
		t.Errorf("got %d quotes after %d calls, want none", len(quotes), len(stub.calls))
	}
	if len(run.Failures) != 2 {
		t.Errorf("len(Failures) = %d, want 2", len(run.Failures))
	}
}
