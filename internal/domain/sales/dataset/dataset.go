// Package dataset holds the normalized tabular structure every reader produces.
// It wraps a gota DataFrame so readers, validators, aggregations and the ML
// adapters all share one column-oriented representation.
package dataset

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/go-gota/gota/dataframe"
	"github.com/go-gota/gota/series"
)

var (
	ErrNoColumns       = errors.New("dataset has no columns")
	ErrNoRows          = errors.New("dataset has no data rows")
	ErrColumnNotFound  = errors.New("column not found")
	ErrColumnsMismatch = errors.New("datasets have different columns")
)

// Dataset is an ordered collection of named, row-aligned columns.
// Values are either strings or float64; a missing number is NaN.
type Dataset struct {
	df dataframe.DataFrame
}

// Column describes one column when building a dataset in code.
type Column struct {
	Name   string
	Values any // []string or []float64
}

// StringColumn builds a text column.
func StringColumn(name string, values ...string) Column {
	return Column{Name: name, Values: values}
}

// FloatColumn builds a numeric column.
func FloatColumn(name string, values ...float64) Column {
	return Column{Name: name, Values: values}
}

// New builds a dataset from explicit columns. All columns must have the same length.
func New(columns ...Column) (*Dataset, error) {
	if len(columns) == 0 {
		return nil, ErrNoColumns
	}

	all := make([]series.Series, 0, len(columns))
	length := -1
	for _, c := range columns {
		var s series.Series
		switch v := c.Values.(type) {
		case []string:
			s = series.New(v, series.String, c.Name)
		case []float64:
			s = series.New(v, series.Float, c.Name)
		default:
			return nil, fmt.Errorf("column %q: unsupported value type %T", c.Name, c.Values)
		}
		if length >= 0 && s.Len() != length {
			return nil, fmt.Errorf("column %q has %d values, expected %d", c.Name, s.Len(), length)
		}
		length = s.Len()
		all = append(all, s)
	}

	df := dataframe.New(all...)
	if df.Err != nil {
		return nil, fmt.Errorf("build dataframe: %w", df.Err)
	}
	return &Dataset{df: df}, nil
}

// FromRecords builds an all-text dataset. The first record is the header row.
// Header cells are trimmed, blanks are named "Unnamed: <i>" and duplicates get
// a ".<n>" suffix. Short rows are padded and long rows truncated to the header width.
func FromRecords(records [][]string) (*Dataset, error) {
	if len(records) == 0 || len(records[0]) == 0 {
		return nil, ErrNoColumns
	}
	if len(records) < 2 {
		return nil, ErrNoRows
	}

	header := NormalizeHeader(records[0])
	width := len(header)

	columns := make([][]string, width)
	for i := range columns {
		columns[i] = make([]string, 0, len(records)-1)
	}
	for _, row := range records[1:] {
		for i := 0; i < width; i++ {
			v := ""
			if i < len(row) {
				v = row[i]
			}
			columns[i] = append(columns[i], v)
		}
	}

	all := make([]series.Series, width)
	for i, name := range header {
		all[i] = series.New(columns[i], series.String, name)
	}

	df := dataframe.New(all...)
	if df.Err != nil {
		return nil, fmt.Errorf("build dataframe: %w", df.Err)
	}
	return &Dataset{df: df}, nil
}

// NormalizeHeader cleans header cells so every column has a unique, non-empty name.
func NormalizeHeader(cells []string) []string {
	header := make([]string, len(cells))
	seen := make(map[string]int, len(cells))
	for i, cell := range cells {
		name := strings.TrimSpace(cell)
		if i == 0 {
			name = strings.TrimPrefix(name, "\uFEFF")
		}
		if name == "" {
			name = fmt.Sprintf("Unnamed: %d", i)
		}
		if n, ok := seen[name]; ok {
			seen[name] = n + 1
			name = fmt.Sprintf("%s.%d", name, n+1)
		} else {
			seen[name] = 0
		}
		header[i] = name
	}
	return header
}

// Columns returns the column names in order.
func (d *Dataset) Columns() []string {
	return d.df.Names()
}

// Len returns the number of rows.
func (d *Dataset) Len() int {
	return d.df.Nrow()
}

// Has reports whether a column with the exact name exists.
func (d *Dataset) Has(name string) bool {
	for _, n := range d.df.Names() {
		if n == name {
			return true
		}
	}
	return false
}

// IsNumeric reports whether the column is stored as float64.
func (d *Dataset) IsNumeric(name string) bool {
	if !d.Has(name) {
		return false
	}
	return d.df.Col(name).Type() == series.Float
}

// Strings returns the column as text. Numeric NaN values become empty strings.
func (d *Dataset) Strings(name string) ([]string, error) {
	if !d.Has(name) {
		return nil, fmt.Errorf("%w: %s", ErrColumnNotFound, name)
	}
	s := d.df.Col(name)
	out := make([]string, s.Len())
	if s.Type() == series.Float {
		for i, f := range s.Float() {
			out[i] = FormatFloat(f)
		}
		return out, nil
	}
	for i := 0; i < s.Len(); i++ {
		out[i] = s.Elem(i).String()
	}
	return out, nil
}

// Floats returns the column as numbers. Text columns are parsed with the same
// rules Coerce uses, so unparseable cells come back as NaN.
func (d *Dataset) Floats(name string) ([]float64, error) {
	if !d.Has(name) {
		return nil, fmt.Errorf("%w: %s", ErrColumnNotFound, name)
	}
	s := d.df.Col(name)
	if s.Type() == series.Float {
		return s.Float(), nil
	}
	out := make([]float64, s.Len())
	for i := 0; i < s.Len(); i++ {
		out[i] = ParseNumber(s.Elem(i).String())
	}
	return out, nil
}

// Records returns the header followed by every row as text.
func (d *Dataset) Records() [][]string {
	names := d.Columns()
	cols := make([][]string, len(names))
	for i, name := range names {
		cols[i], _ = d.Strings(name)
	}

	records := make([][]string, 0, d.Len()+1)
	records = append(records, append([]string(nil), names...))
	for r := 0; r < d.Len(); r++ {
		row := make([]string, len(names))
		for c := range names {
			row[c] = cols[c][r]
		}
		records = append(records, row)
	}
	return records
}

// Concat appends datasets that share an identical column tuple.
func Concat(parts ...*Dataset) (*Dataset, error) {
	if len(parts) == 0 {
		return nil, ErrNoColumns
	}
	df := parts[0].df.Copy()
	want := strings.Join(parts[0].Columns(), "\x00")
	for _, p := range parts[1:] {
		if strings.Join(p.Columns(), "\x00") != want {
			return nil, ErrColumnsMismatch
		}
		df = df.RBind(p.df)
		if df.Err != nil {
			return nil, fmt.Errorf("concat rows: %w", df.Err)
		}
	}
	return &Dataset{df: df}, nil
}

// FormatFloat renders a number the way exports expect: shortest exact
// representation, empty for NaN.
func FormatFloat(f float64) string {
	if math.IsNaN(f) {
		return ""
	}
	return strconv.FormatFloat(f, 'f', -1, 64)
}
