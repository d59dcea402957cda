package insights

import (
	"fmt"
	"math"
	"sort"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"github.com/FACorreiaa/sales-insights/internal/domain/sales/dataset"
)

// ColumnStats is the descriptive summary of one numeric column.
type ColumnStats struct {
	Column string `json:"column"`
	Count  int    `json:"count"`
	Mean   Number `json:"mean"`
	Std    Number `json:"std"`
	Min    Number `json:"min"`
	Q25    Number `json:"q25"`
	Median Number `json:"median"`
	Q75    Number `json:"q75"`
	Max    Number `json:"max"`
}

// Describe summarizes each listed column that exists in ds: non-missing count,
// mean, sample standard deviation, min, quartiles and max, rounded to 2
// decimals. Quartiles interpolate linearly between closest ranks.
func Describe(ds *dataset.Dataset, cols []string) ([]ColumnStats, error) {
	var out []ColumnStats
	for _, col := range cols {
		if !ds.Has(col) {
			continue
		}
		values, err := ds.Floats(col)
		if err != nil {
			return nil, fmt.Errorf("describe %s: %w", col, err)
		}
		out = append(out, describeColumn(col, finite(values)))
	}
	return out, nil
}

func describeColumn(col string, values []float64) ColumnStats {
	s := ColumnStats{Column: col, Count: len(values)}
	if len(values) == 0 {
		s.Mean, s.Std, s.Min, s.Q25, s.Median, s.Q75, s.Max = NaN(), NaN(), NaN(), NaN(), NaN(), NaN(), NaN()
		return s
	}

	sorted := append([]float64(nil), values...)
	sort.Float64s(sorted)

	mean, std := stat.MeanStdDev(sorted, nil)
	if len(sorted) < 2 {
		std = math.NaN()
	}

	s.Mean = Number(round(mean, 2))
	s.Std = Number(round(std, 2))
	s.Min = Number(round(floats.Min(sorted), 2))
	s.Q25 = Number(round(quantile(sorted, 0.25), 2))
	s.Median = Number(round(quantile(sorted, 0.5), 2))
	s.Q75 = Number(round(quantile(sorted, 0.75), 2))
	s.Max = Number(round(floats.Max(sorted), 2))
	return s
}

// quantile interpolates linearly at position q*(n-1) of sorted values.
func quantile(sorted []float64, q float64) float64 {
	if len(sorted) == 0 {
		return math.NaN()
	}
	if q <= 0 {
		return sorted[0]
	}
	if q >= 1 {
		return sorted[len(sorted)-1]
	}
	pos := q * float64(len(sorted)-1)
	lo := int(math.Floor(pos))
	hi := int(math.Ceil(pos))
	if lo == hi {
		return sorted[lo]
	}
	w := pos - float64(lo)
	return sorted[lo]*(1-w) + sorted[hi]*w
}

// Correlation strength labels.
const (
	StrengthStrongPositive = "fuerte positiva"
	StrengthStrongNegative = "fuerte negativa"
	StrengthModerate       = "moderada"
	StrengthWeak           = "débil"
)

// CorrelationPair is one off-diagonal entry of the correlation matrix.
type CorrelationPair struct {
	A        string  `json:"a"`
	B        string  `json:"b"`
	R        float64 `json:"r"`
	Strength string  `json:"strength"`
}

// CorrelationMatrix is a symmetric Pearson matrix over Columns.
type CorrelationMatrix struct {
	Columns []string          `json:"columns"`
	Values  [][]Number        `json:"values"`
	Pairs   []CorrelationPair `json:"pairs"`
}

// Strength labels a correlation coefficient.
func Strength(r float64) string {
	switch {
	case r > 0.7:
		return StrengthStrongPositive
	case r < -0.7:
		return StrengthStrongNegative
	case math.Abs(r) > 0.3:
		return StrengthModerate
	default:
		return StrengthWeak
	}
}

// Correlation computes Pearson coefficients between every pair of listed
// columns present in ds, each pair over the rows where both values exist.
// Pairs holds the top coefficients by absolute value (all of them when top <= 0);
// undefined coefficients are NaN in the matrix and absent from Pairs.
func Correlation(ds *dataset.Dataset, cols []string, top int) (CorrelationMatrix, error) {
	var (
		names  []string
		series [][]float64
	)
	for _, col := range cols {
		if !ds.Has(col) {
			continue
		}
		values, err := ds.Floats(col)
		if err != nil {
			return CorrelationMatrix{}, fmt.Errorf("correlation %s: %w", col, err)
		}
		names = append(names, col)
		series = append(series, values)
	}

	m := CorrelationMatrix{Columns: names, Values: make([][]Number, len(names))}
	for i := range names {
		m.Values[i] = make([]Number, len(names))
	}
	for i := range names {
		for j := i; j < len(names); j++ {
			r := pairwise(series[i], series[j])
			m.Values[i][j], m.Values[j][i] = Number(r), Number(r)
			if i != j && !math.IsNaN(r) {
				m.Pairs = append(m.Pairs, CorrelationPair{
					A: names[i], B: names[j], R: round(r, 4), Strength: Strength(r),
				})
			}
		}
	}

	sort.SliceStable(m.Pairs, func(a, b int) bool {
		return math.Abs(m.Pairs[a].R) > math.Abs(m.Pairs[b].R)
	})
	if top > 0 && len(m.Pairs) > top {
		m.Pairs = m.Pairs[:top]
	}
	return m, nil
}

func pairwise(x, y []float64) float64 {
	var xs, ys []float64
	for i := range x {
		if math.IsNaN(x[i]) || math.IsNaN(y[i]) {
			continue
		}
		xs = append(xs, x[i])
		ys = append(ys, y[i])
	}
	if len(xs) < 2 {
		return math.NaN()
	}
	if stat.Variance(xs, nil) == 0 || stat.Variance(ys, nil) == 0 {
		return math.NaN()
	}
	return stat.Correlation(xs, ys, nil)
}

// OutlierStats counts the values outside the interquartile fences of a column.
type OutlierStats struct {
	Column  string  `json:"column"`
	Count   int     `json:"count"`
	Percent float64 `json:"percent"`
	Lower   Number  `json:"lower"`
	Upper   Number  `json:"upper"`
}

// Outliers applies the IQR rule (below Q1-1.5*IQR or above Q3+1.5*IQR) to each
// listed column present in ds. Percent is relative to the non-missing values.
func Outliers(ds *dataset.Dataset, cols []string) ([]OutlierStats, error) {
	var out []OutlierStats
	for _, col := range cols {
		if !ds.Has(col) {
			continue
		}
		values, err := ds.Floats(col)
		if err != nil {
			return nil, fmt.Errorf("outliers %s: %w", col, err)
		}
		sorted := finite(values)
		sort.Float64s(sorted)

		s := OutlierStats{Column: col, Lower: NaN(), Upper: NaN()}
		if len(sorted) > 0 {
			q1, q3 := quantile(sorted, 0.25), quantile(sorted, 0.75)
			iqr := q3 - q1
			lower, upper := q1-1.5*iqr, q3+1.5*iqr
			for _, v := range sorted {
				if v < lower || v > upper {
					s.Count++
				}
			}
			s.Lower, s.Upper = Number(lower), Number(upper)
			s.Percent = round(float64(s.Count)/float64(len(sorted))*100, 2)
		}
		out = append(out, s)
	}
	return out, nil
}
