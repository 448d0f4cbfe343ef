package models

import (
	"time"

	"github.com/google/uuid"
)

// ScanRunStatus represents the status of a scan
type ScanRunStatus string

const (
	ScanRunStatusRunning   ScanRunStatus = "running"
	ScanRunStatusCompleted ScanRunStatus = "completed"
	ScanRunStatusFailed    ScanRunStatus = "failed"
)

// SymbolFailure records why one symbol contributed no rows
type SymbolFailure struct {
	Symbol string `json:"symbol"`
	Error  string `json:"error"`
}

// ScanRun describes a single pass of a provider over a symbol list
type ScanRun struct {
	ID             uuid.UUID       `json:"id"`
	Provider       string          `json:"provider"`
	Symbols        []string        `json:"symbols"`
	StartedAt      time.Time       `json:"started_at"`
	DurationMs     int64           `json:"duration_ms"`
	RecordsFetched int             `json:"records_fetched"`
	RowsMatched    int             `json:"rows_matched"`
	Failures       []SymbolFailure `json:"failures"`
	Status         ScanRunStatus   `json:"status"`
	Error          string          `json:"error,omitempty"`
}

// NewScanRun creates a running ScanRun
func NewScanRun(provider string, symbols []string) *ScanRun {
	return &ScanRun{
		ID:        uuid.New(),
		Provider:  provider,
		Symbols:   symbols,
		StartedAt: time.Now(),
		Failures:  []SymbolFailure{},
		Status:    ScanRunStatusRunning,
	}
}

// AddFailure records a per-symbol failure
func (r *ScanRun) AddFailure(symbol string, err error) {
	r.Failures = append(r.Failures, SymbolFailure{Symbol: symbol, Error: err.Error()})
}

// Complete marks the scan as completed
func (r *ScanRun) Complete(durationMs int64, fetched int) {
	r.Status = ScanRunStatusCompleted
	r.DurationMs = durationMs
	r.RecordsFetched = fetched
}

// Fail marks the scan as failed
func (r *ScanRun) Fail(errMsg string, durationMs int64) {
	r.Status = ScanRunStatusFailed
	r.Error = errMsg
	r.DurationMs = durationMs
}

// IsComplete returns true if the scan finished, successfully or not
func (r *ScanRun) IsComplete() bool {
	return r.Status == ScanRunStatusCompleted || r.Status == ScanRunStatusFailed
}

// ScanResult bundles a run with the quotes it fetched and the rows that matched
type ScanResult struct {
	Run    *ScanRun      `json:"run"`
	Filter FilterConfig  `json:"filter"`
	Quotes []OptionQuote `json:"-"`
	Rows   []MetricsRow  `json:"rows"`
}
