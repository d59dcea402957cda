// Package export writes analysis results as delimited text, key-value reports
// and ZIP bundles.
package export

import (
	"encoding/csv"
	"fmt"
	"io"

	"github.com/gocarina/gocsv"

	"github.com/FACorreiaa/sales-insights/internal/domain/insights"
)

// Table is anything that renders as a header row followed by data rows.
type Table interface {
	Records() [][]string
}

// WriteCSV writes the table as comma-delimited text, header first, column order
// preserved. Missing numbers are written as empty cells.
func WriteCSV(w io.Writer, t Table) error {
	return WriteDelimited(w, t, ',')
}

// WriteDelimited writes the table with the given field delimiter.
func WriteDelimited(w io.Writer, t Table, delimiter rune) error {
	cw := csv.NewWriter(w)
	cw.Comma = delimiter
	if err := cw.WriteAll(t.Records()); err != nil {
		return fmt.Errorf("write delimited table: %w", err)
	}
	return nil
}

// WriteCategories writes category aggregates as CSV, one row per category.
func WriteCategories(w io.Writer, rows []insights.CategoryAggregate) error {
	if err := gocsv.Marshal(rows, w); err != nil {
		return fmt.Errorf("write categories: %w", err)
	}
	return nil
}

