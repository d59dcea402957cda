// Package insights computes the executive metrics, monthly series, category
// aggregates and descriptive statistics of a sales dataset.
package insights

import (
	"math"
	"strconv"

	"github.com/shopspring/decimal"
)

// Number is a float64 whose missing value (NaN) serializes as null in JSON
// and as an empty cell in CSV.
type Number float64

// NaN returns the missing Number.
func NaN() Number { return Number(math.NaN()) }

// IsNaN reports whether n is missing.
func (n Number) IsNaN() bool { return math.IsNaN(float64(n)) }

func (n Number) MarshalJSON() ([]byte, error) {
	if n.IsNaN() || math.IsInf(float64(n), 0) {
		return []byte("null"), nil
	}
	return strconv.AppendFloat(nil, float64(n), 'f', -1, 64), nil
}

func (n *Number) UnmarshalJSON(b []byte) error {
	if string(b) == "null" {
		*n = NaN()
		return nil
	}
	f, err := strconv.ParseFloat(string(b), 64)
	if err != nil {
		return err
	}
	*n = Number(f)
	return nil
}

// MarshalCSV lets gocsv write the value.
func (n Number) MarshalCSV() (string, error) {
	if n.IsNaN() {
		return "", nil
	}
	return strconv.FormatFloat(float64(n), 'f', -1, 64), nil
}

// round rounds half away from zero to the given places. NaN stays NaN.
func round(f float64, places int32) float64 {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return f
	}
	r, _ := decimal.NewFromFloat(f).Round(places).Float64()
	return r
}
