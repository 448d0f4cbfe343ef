package earnings

import (
	"testing"
	"time"
)

func TestParseDate(t *testing.T) {
	want := time.Date(2024, 4, 30, 0, 0, 0, 0, time.UTC)

	tests := []struct {
		raw string
		ok  bool
	}{
		{"2024-04-30", true},
		{"2024-04-30T20:00:00Z", true},
		{"4/30/2024", true},
		{"04/30/2024", true},
		{"Apr 30, 2024", true},
		{"April 30, 2024", true},
		{"Tue, Apr 30, 2024", true},
		{"  Apr 30,   2024 (Estimated) ", true},
		{"", false},
		{"TBD", false},
		{"N/A", false},
	}

	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			got, ok := ParseDate(tt.raw)
			if ok != tt.ok {
				t.Fatalf("ParseDate(%q) ok = %v, want %v", tt.raw, ok, tt.ok)
			}
			if ok && !got.Equal(want) {
				t.Errorf("ParseDate(%q) = %v, want %v", tt.raw, got, want)
			}
		})
	}
}
