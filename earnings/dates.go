package earnings

import (
	"regexp"
	"strings"
	"time"

	"github.com/jinzhu/now"

	"inflated-puts/marketclock"
)

// textLayouts covers the date formats seen on scraped earnings pages
var textLayouts = []string{
	"1/2/2006",
	"01/02/2006",
	"Jan 2, 2006",
	"January 2, 2006",
	"Jan 2 2006",
	"2 Jan 2006",
	"Mon, Jan 2, 2006",
	"Monday, January 2, 2006",
	"2006/01/02",
}

var dateParser = &now.Config{
	TimeLocation: time.UTC,
	TimeFormats:  textLayouts,
}

var (
	parenthetical = regexp.MustCompile(`\([^)]*\)`)
	spaces        = regexp.MustCompile(`\s+`)
)

// ParseDate parses an earnings date as reported by any source and returns the
// calendar date. ok is false when the value cannot be read as a date.
func ParseDate(raw string) (time.Time, bool) {
	s := strings.TrimSpace(parenthetical.ReplaceAllString(raw, ""))
	s = spaces.ReplaceAllString(s, " ")
	if s == "" {
		return time.Time{}, false
	}
	if t, err := marketclock.ParseDate(s); err == nil {
		return t, true
	}
	t, err := dateParser.Parse(s)
	if err != nil {
		return time.Time{}, false
	}
	return marketclock.Date(t), true
}
