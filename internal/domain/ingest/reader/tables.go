package reader

import (
	"math"
	"strings"
	"sync"

	"github.com/cloudflare/ahocorasick"

	"github.com/FACorreiaa/sales-insights/internal/domain/sales/dataset"
	"github.com/FACorreiaa/sales-insights/internal/domain/sales/schema"
)

var (
	headerMatcherOnce sync.Once
	headerMatcher     *ahocorasick.Matcher
)

// knownHeaders matches the lowercased contract column names inside a row.
func knownHeaders() *ahocorasick.Matcher {
	headerMatcherOnce.Do(func() {
		var words []string
		for _, c := range append(schema.RequiredColumns(), schema.NumericVariables()...) {
			words = append(words, strings.ToLower(c))
		}
		headerMatcher = ahocorasick.NewStringMatcher(words)
	})
	return headerMatcher
}

// assembleTables turns raw extracted tables into one dataset. Tables sharing the
// most common header are stacked; when every header is unique the largest
// table (rows x columns) wins.
func assembleTables(tables [][][]string) (*dataset.Dataset, error) {
	type group struct {
		parts []*dataset.Dataset
	}
	var (
		order  []string
		groups = map[string]*group{}
	)

	for _, raw := range tables {
		rows := cleanTable(raw)
		h := headerIndex(rows)
		if h < 0 || h == len(rows)-1 {
			continue
		}
		ds, err := dataset.FromRecords(rows[h:])
		if err != nil {
			continue
		}
		sig := strings.Join(ds.Columns(), "\x1f")
		g, ok := groups[sig]
		if !ok {
			g = &group{}
			groups[sig] = g
			order = append(order, sig)
		}
		g.parts = append(g.parts, ds)
	}

	if len(order) == 0 {
		return nil, ErrNoTables
	}

	common := order[0]
	for _, sig := range order[1:] {
		if len(groups[sig].parts) > len(groups[common].parts) {
			common = sig
		}
	}
	if parts := groups[common].parts; len(parts) > 1 {
		return dataset.Concat(parts...)
	}

	var largest *dataset.Dataset
	size := -1
	for _, sig := range order {
		for _, ds := range groups[sig].parts {
			if s := ds.Len() * len(ds.Columns()); s > size {
				largest, size = ds, s
			}
		}
	}
	return largest, nil
}

// cleanTable drops rows and columns that are entirely empty.
func cleanTable(raw [][]string) [][]string {
	width := 0
	var rows [][]string
	for _, r := range raw {
		if blankRow(r) {
			continue
		}
		trimmed := make([]string, len(r))
		for i, c := range r {
			trimmed[i] = strings.TrimSpace(c)
		}
		rows = append(rows, trimmed)
		if len(r) > width {
			width = len(r)
		}
	}

	keep := make([]int, 0, width)
	for c := 0; c < width; c++ {
		for _, r := range rows {
			if c < len(r) && r[c] != "" {
				keep = append(keep, c)
				break
			}
		}
	}

	out := make([][]string, len(rows))
	for i, r := range rows {
		row := make([]string, len(keep))
		for j, c := range keep {
			if c < len(r) {
				row[j] = r[c]
			}
		}
		out[i] = row
	}
	return out
}

// headerIndex picks the header row: the first row naming two or more contract
// columns, else the first row with at least two non-numeric text cells.
func headerIndex(rows [][]string) int {
	first := -1
	for i, r := range rows {
		text := 0
		for _, c := range r {
			if c != "" && !isNumeric(c) {
				text++
			}
		}
		if text < 2 {
			continue
		}
		if len(knownHeaders().Match([]byte(strings.ToLower(strings.Join(r, "\x1f"))))) >= 2 {
			return i
		}
		if first < 0 {
			first = i
		}
	}
	return first
}

func isNumeric(s string) bool {
	cleaned := strings.NewReplacer(",", "", " ", "", "L", "", "$", "", "%", "").Replace(s)
	return cleaned != "" && !math.IsNaN(dataset.ParseNumber(cleaned))
}
