package dataset

import (
	"math"
	"strconv"
	"strings"

	"github.com/go-gota/gota/series"
)

// missingTokens are read as a missing number rather than a parse failure.
var missingTokens = map[string]struct{}{
	"":     {},
	"nan":  {},
	"na":   {},
	"n/a":  {},
	"null": {},
	"none": {},
	"-":    {},
}

// Coerce returns a copy of d in which every named column that exists is numeric.
// Values that cannot be parsed become NaN instead of failing; names that are not
// columns of d are skipped. d itself is never modified.
func Coerce(d *Dataset, cols []string) *Dataset {
	df := d.df.Copy()
	for _, name := range cols {
		if !d.Has(name) {
			continue
		}
		values, _ := d.Floats(name)
		df = df.Mutate(series.New(values, series.Float, name))
	}
	return &Dataset{df: df}
}

// ParseNumber converts a cell to float64. A decimal comma is accepted when the
// value has no dot; anything else that does not parse yields NaN.
func ParseNumber(raw string) float64 {
	s := strings.TrimSpace(raw)
	if _, missing := missingTokens[strings.ToLower(s)]; missing {
		return math.NaN()
	}
	if strings.Contains(s, ",") && !strings.Contains(s, ".") && strings.Count(s, ",") == 1 {
		s = strings.Replace(s, ",", ".", 1)
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return math.NaN()
	}
	if math.IsInf(f, 0) {
		return math.NaN()
	}
	return f
}
