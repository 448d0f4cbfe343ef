// Package universe turns pasted text and listing files into symbol lists.
package universe

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/gocarina/gocsv"
)

// Candidates are the universe file names looked for, in priority order
var Candidates = []string{
	"universe_all.txt",
	"universe.txt",
	"symbols.txt",
	"nasdaqlisted.txt",
	"otherlisted.txt",
}

// TrackerDir is the per-user folder searched after the working directory
const TrackerDir = "Documents/inflated-puts-tracker"

// ParseSymbols uppercases text, splits it on commas and whitespace, and
// returns the distinct symbols sorted
func ParseSymbols(text string) []string {
	fields := strings.FieldsFunc(strings.ToUpper(text), func(r rune) bool {
		return r == ',' || r == ' ' || r == '\t' || r == '\n' || r == '\r' || r == ';'
	})
	return dedupe(fields)
}

func dedupe(symbols []string) []string {
	seen := make(map[string]bool, len(symbols))
	out := make([]string, 0, len(symbols))
	for _, s := range symbols {
		s = strings.TrimSpace(s)
		if s == "" || seen[s] {
			continue
		}
		seen[s] = true
		out = append(out, s)
	}
	sort.Strings(out)
	return out
}

// SearchDirs returns the working directory and the tracker folder under home
func SearchDirs() []string {
	dirs := []string{"."}
	if home, err := os.UserHomeDir(); err == nil {
		dirs = append(dirs, filepath.Join(home, TrackerDir))
	}
	return dirs
}

// Discover returns every candidate file that exists in dirs, in directory
// then candidate order
func Discover(dirs []string) []string {
	var found []string
	for _, dir := range dirs {
		for _, name := range Candidates {
			path := filepath.Join(dir, name)
			if info, err := os.Stat(path); err == nil && !info.IsDir() {
				found = append(found, path)
			}
		}
	}
	return found
}

// LoadFile reads a symbol list. Nasdaq Trader listing files
// (Symbol|Security Name|...) are recognised by their pipe-delimited header.
func LoadFile(path string) ([]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read universe file: %w", err)
	}
	text := string(data)
	if isListingFile(text) {
		return parseListing(strings.NewReader(text))
	}
	return ParseSymbols(text), nil
}

func isListingFile(text string) bool {
	first, _, _ := strings.Cut(text, "\n")
	first = strings.TrimSpace(first)
	return strings.Contains(first, "|") && strings.Contains(strings.ToLower(first), "symbol")
}

// listingRow covers both nasdaqlisted.txt and otherlisted.txt headers
type listingRow struct {
	Symbol    string `csv:"Symbol"`
	ACTSymbol string `csv:"ACT Symbol"`
	TestIssue string `csv:"Test Issue"`
}

func parseListing(r io.Reader) ([]string, error) {
	reader := csv.NewReader(r)
	reader.Comma = '|'
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true

	var rows []listingRow
	if err := gocsv.UnmarshalCSV(reader, &rows); err != nil {
		return nil, fmt.Errorf("failed to parse listing file: %w", err)
	}

	symbols := make([]string, 0, len(rows))
	for _, row := range rows {
		sym := row.Symbol
		if sym == "" {
			sym = row.ACTSymbol
		}
		if sym == "" || strings.HasPrefix(sym, "File Creation Time") {
			continue
		}
		if strings.EqualFold(strings.TrimSpace(row.TestIssue), "Y") {
			continue
		}
		symbols = append(symbols, strings.ToUpper(sym))
	}
	return dedupe(symbols), nil
}
