package quotes

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// OCCSymbol is a parsed OCC option symbol, e.g. ABC240621P00050000
type OCCSymbol struct {
	Root       string
	Expiration time.Time
	Put        bool
	Strike     decimal.Decimal
}

// ParseOCC parses an OCC-format option symbol. A leading "O:" (Polygon's
// prefix) and padding spaces in the root are tolerated.
func ParseOCC(symbol string) (OCCSymbol, error) {
	s := strings.TrimPrefix(strings.TrimSpace(symbol), "O:")
	if len(s) < 16 {
		return OCCSymbol{}, fmt.Errorf("option symbol %q too short", symbol)
	}

	tail := s[len(s)-15:]
	root := strings.TrimSpace(s[:len(s)-15])
	if root == "" {
		return OCCSymbol{}, fmt.Errorf("option symbol %q has no root", symbol)
	}

	expiration, err := time.Parse("060102", tail[:6])
	if err != nil {
		return OCCSymbol{}, fmt.Errorf("option symbol %q has bad expiration: %w", symbol, err)
	}

	var put bool
	switch tail[6] {
	case 'P':
		put = true
	case 'C':
	default:
		return OCCSymbol{}, fmt.Errorf("option symbol %q has bad type %q", symbol, tail[6])
	}

	milli, err := strconv.ParseInt(tail[7:], 10, 64)
	if err != nil {
		return OCCSymbol{}, fmt.Errorf("option symbol %q has bad strike: %w", symbol, err)
	}

	return OCCSymbol{
		Root:       root,
		Expiration: expiration,
		Put:        put,
		Strike:     decimal.New(milli, -3),
	}, nil
}
