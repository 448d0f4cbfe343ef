package models

import (
	"time"
)

// Session marks when an earnings release happens relative to the trading day
type Session string

const (
	SessionBeforeOpen Session = "before-open"
	SessionAfterClose Session = "after-close"
	SessionUnknown    Session = "unknown"
)

// EarningsEvent is one reported earnings date from one source
type EarningsEvent struct {
	Symbol  string    `json:"symbol"`
	Date    time.Time `json:"date"`
	Source  string    `json:"source"`
	Session Session   `json:"session"`
}

// SourceReport summarises what a single earnings source returned
type SourceReport struct {
	Source string `json:"source"`
	Count  int    `json:"count"`
	Error  string `json:"error,omitempty"`
}

// EarningsLookup is the merged single-symbol result. Raw keeps one row per
// (date, source); Events keeps one row per date.
type EarningsLookup struct {
	Symbol  string          `json:"symbol"`
	Raw     []EarningsEvent `json:"raw"`
	Events  []EarningsEvent `json:"events"`
	Sources []SourceReport  `json:"sources"`
}

// Next returns the earliest event on or after the given date
func (l *EarningsLookup) Next(from time.Time) (EarningsEvent, bool) {
	for _, e := range l.Events {
		if !e.Date.Before(from) {
			return e, true
		}
	}
	return EarningsEvent{}, false
}

// EarningsCalendar is the merged result for a date range
type EarningsCalendar struct {
	Start   time.Time       `json:"start"`
	End     time.Time       `json:"end"`
	Events  []EarningsEvent `json:"events"`
	Sources []SourceReport  `json:"sources"`
}

// CalendarOptionRow is a calendar event annotated with optionability
type CalendarOptionRow struct {
	EarningsEvent
	Optionable OptionabilityResult `json:"optionable"`
}
