// Package csvio reads option quote CSVs and writes result tables as CSV.
package csvio

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/gocarina/gocsv"
	"github.com/shopspring/decimal"

	"inflated-puts/marketclock"
	"inflated-puts/models"
)

// ErrMissingColumns is returned when an import lacks the bid or strike column
var ErrMissingColumns = errors.New("csv must contain bid and strike columns")

// headerReader lower-cases and trims the header row before gocsv maps it to
// struct tags. It keeps the matching local to this import instead of using
// gocsv's process-wide header normalizer.
type headerReader struct {
	*csv.Reader
	seenHeader bool
}

func normalizeHeader(h string) string {
	return strings.ToLower(strings.TrimSpace(h))
}

func (r *headerReader) Read() ([]string, error) {
	record, err := r.Reader.Read()
	if err != nil || r.seenHeader {
		return record, err
	}
	r.seenHeader = true
	for i, h := range record {
		record[i] = normalizeHeader(h)
	}
	return record, nil
}

func (r *headerReader) ReadAll() ([][]string, error) {
	var records [][]string
	for {
		record, err := r.Read()
		if err == io.EOF {
			return records, nil
		}
		if err != nil {
			return nil, err
		}
		records = append(records, record)
	}
}

// quoteRecord is the import shape. Every field is read as text so that bad
// numbers coerce to zero instead of failing the file.
type quoteRecord struct {
	OptionSymbol    string `csv:"option_symbol,symbol,contract"`
	Underlying      string `csv:"underlying,root,ticker"`
	Type            string `csv:"type,option_type,contract_type"`
	Strike          string `csv:"strike"`
	Expiration      string `csv:"expiration,expiry,expiration_date"`
	Bid             string `csv:"bid"`
	Ask             string `csv:"ask"`
	Last            string `csv:"last"`
	Volume          string `csv:"volume"`
	OpenInterest    string `csv:"open_interest,oi"`
	UnderlyingPrice string `csv:"underlying_price"`
	Provider        string `csv:"provider"`
}

// ImportQuotes reads option quotes from r. Headers are matched trimmed and
// case-insensitively; bid and strike are required. When a type column exists
// only puts are kept.
func ImportQuotes(r io.Reader) ([]models.OptionQuote, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read csv: %w", err)
	}

	header, err := csv.NewReader(bytes.NewReader(data)).Read()
	if err != nil {
		return nil, fmt.Errorf("failed to read csv header: %w", err)
	}
	columns := make(map[string]bool, len(header))
	for _, h := range header {
		columns[normalizeHeader(strings.TrimPrefix(h, "\ufeff"))] = true
	}
	if !columns["bid"] || !columns["strike"] {
		return nil, ErrMissingColumns
	}
	hasType := columns["type"] || columns["option_type"] || columns["contract_type"]

	reader := csv.NewReader(bytes.NewReader(bytes.TrimPrefix(data, []byte("\ufeff"))))
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	var records []quoteRecord
	if err := gocsv.UnmarshalCSV(&headerReader{Reader: reader}, &records); err != nil {
		return nil, fmt.Errorf("failed to parse csv: %w", err)
	}

	out := make([]models.OptionQuote, 0, len(records))
	for _, rec := range records {
		if hasType && !isPut(rec.Type) {
			continue
		}
		out = append(out, rec.toQuote())
	}
	return out, nil
}

func isPut(t string) bool {
	switch strings.ToLower(strings.TrimSpace(t)) {
	case "put", "p", "puts":
		return true
	}
	return false
}

func (r quoteRecord) toQuote() models.OptionQuote {
	q := models.OptionQuote{
		Provider:        strings.TrimSpace(r.Provider),
		OptionSymbol:    strings.TrimSpace(r.OptionSymbol),
		Underlying:      strings.ToUpper(strings.TrimSpace(r.Underlying)),
		ContractType:    models.ContractTypePut,
		Strike:          number(r.Strike),
		Bid:             number(r.Bid),
		Ask:             number(r.Ask),
		Last:            optionalNumber(r.Last),
		Volume:          optionalInt(r.Volume),
		OpenInterest:    optionalInt(r.OpenInterest),
		UnderlyingPrice: optionalNumber(r.UnderlyingPrice),
		QuoteSource:     models.QuoteSourceCSV,
	}
	if q.Provider == "" {
		q.Provider = "csv"
	}
	if exp, err := marketclock.ParseDate(strings.TrimSpace(r.Expiration)); err == nil {
		q.Expiration = exp
	}
	return q
}

// number parses s, coercing anything unreadable to zero
func number(s string) decimal.Decimal {
	d, err := decimal.NewFromString(strings.TrimSpace(strings.ReplaceAll(s, "$", "")))
	if err != nil {
		return decimal.Zero
	}
	return d
}

func optionalNumber(s string) decimal.NullDecimal {
	d, err := decimal.NewFromString(strings.TrimSpace(strings.ReplaceAll(s, "$", "")))
	if err != nil {
		return decimal.NullDecimal{}
	}
	return decimal.NewNullDecimal(d)
}

func optionalInt(s string) *int64 {
	s = strings.ReplaceAll(strings.TrimSpace(s), ",", "")
	if s == "" {
		return nil
	}
	if v, err := strconv.ParseInt(s, 10, 64); err == nil && v >= 0 {
		return &v
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil && f >= 0 {
		v := int64(f)
		return &v
	}
	return nil
}
