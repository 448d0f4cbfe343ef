package models

import (
	"testing"

	"github.com/shopspring/decimal"
)

func TestParseMoneyness(t *testing.T) {
	tests := []struct {
		in      string
		want    Moneyness
		wantErr bool
	}{
		{"", MoneynessAny, false},
		{"Any", MoneynessAny, false},
		{"otm", MoneynessOTM, false},
		{"OTM only", MoneynessOTM, false},
		{"ITM only", MoneynessITM, false},
		{"in-the-money", MoneynessITM, false},
		{"sideways", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseMoneyness(tt.in)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseMoneyness(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("ParseMoneyness(%q) = %v, want %v", tt.in, got, tt.want)
			}
		})
	}
}

func TestDefaultFilterConfig(t *testing.T) {
	f := DefaultFilterConfig()

	if !f.TargetPct.Equal(decimal.NewFromInt(10)) {
		t.Errorf("TargetPct = %v, want 10", f.TargetPct)
	}
	if f.MinDTE != 7 || f.MaxDTE != 45 {
		t.Errorf("DTE window = [%d, %d], want [7, 45]", f.MinDTE, f.MaxDTE)
	}
	if !f.MinBid.Equal(decimal.RequireFromString("0.10")) {
		t.Errorf("MinBid = %v, want 0.10", f.MinBid)
	}
	if f.MinOpenInterest != 50 {
		t.Errorf("MinOpenInterest = %v, want 50", f.MinOpenInterest)
	}
	if !f.UseMid {
		t.Error("UseMid should default to true")
	}
	if f.MaxRows != 1000 {
		t.Errorf("MaxRows = %v, want 1000", f.MaxRows)
	}
	if err := f.Validate(); err != nil {
		t.Errorf("default config should validate, got %v", err)
	}
}

func TestFilterConfig_Validate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*FilterConfig)
	}{
		{"negative target", func(f *FilterConfig) { f.TargetPct = decimal.NewFromInt(-1) }},
		{"negative min DTE", func(f *FilterConfig) { f.MinDTE = -1 }},
		{"inverted DTE window", func(f *FilterConfig) { f.MinDTE = 30; f.MaxDTE = 10 }},
		{"negative min bid", func(f *FilterConfig) { f.MinBid = decimal.NewFromFloat(-0.05) }},
		{"negative open interest", func(f *FilterConfig) { f.MinOpenInterest = -5 }},
		{"negative max rows", func(f *FilterConfig) { f.MaxRows = -1 }},
		{"bad moneyness", func(f *FilterConfig) { f.Moneyness = "sideways" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := DefaultFilterConfig()
			tt.mutate(&f)
			if err := f.Validate(); err == nil {
				t.Error("Validate() should fail")
			}
		})
	}
}

func TestOptionQuote_Helpers(t *testing.T) {
	q := OptionQuote{
		Bid: decimal.Zero,
		Ask: decimal.NewFromInt(4),
	}

	if !q.HasQuote() {
		t.Error("HasQuote() = false with a positive ask")
	}
	if !q.Mid().Equal(decimal.NewFromInt(2)) {
		t.Errorf("Mid() = %v, want 2", q.Mid())
	}
	if q.VolumeOrZero() != 0 || q.OpenInterestOrZero() != 0 {
		t.Error("missing liquidity fields should read as zero")
	}

	q.OpenInterest = Int64Ptr(120)
	if q.OpenInterestOrZero() != 120 {
		t.Errorf("OpenInterestOrZero() = %v, want 120", q.OpenInterestOrZero())
	}

	if PositiveNullDecimal(0).Valid {
		t.Error("PositiveNullDecimal(0) should be null")
	}
	if !PositiveNullDecimal(1.5).Valid {
		t.Error("PositiveNullDecimal(1.5) should be present")
	}
}
