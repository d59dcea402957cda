package insights

import (
	"math"
	"strings"

	"github.com/FACorreiaa/sales-insights/internal/domain/sales/dataset"
	"github.com/FACorreiaa/sales-insights/internal/domain/sales/schema"
)

// Series names.
const (
	SeriesIngresos = "ingresos"
	SeriesISV      = "isv"
)

// MonthlySeries holds revenue and tax totals over the twelve canonical months.
// Values line up with Months; a month with no rows is NaN.
type MonthlySeries struct {
	Months   []string `json:"months"`
	Ingresos []Number `json:"ingresos"`
	ISV      []Number `json:"isv"`
}

// Get returns a series by name.
func (m MonthlySeries) Get(name string) ([]Number, bool) {
	switch name {
	case SeriesIngresos:
		return m.Ingresos, true
	case SeriesISV:
		return m.ISV, true
	}
	return nil, false
}

// Records renders the series as a header plus one row per month.
func (m MonthlySeries) Records() [][]string {
	out := [][]string{{schema.ColMes, SeriesIngresos, SeriesISV}}
	for i, month := range m.Months {
		out = append(out, []string{
			month,
			dataset.FormatFloat(float64(m.Ingresos[i])),
			dataset.FormatFloat(float64(m.ISV[i])),
		})
	}
	return out
}

// Monthly groups revenue and tax by month and reindexes both on the canonical
// month order. Rows whose month is not a canonical name are dropped by the
// reindex. Inside a month, NaN values are skipped.
func Monthly(ds *dataset.Dataset) (MonthlySeries, error) {
	if err := schema.Validate(ds); err != nil {
		return MonthlySeries{}, err
	}

	meses, err := ds.Strings(schema.ColMes)
	if err != nil {
		return MonthlySeries{}, err
	}
	ingresos, err := ds.Floats(schema.ColIngresoTotal)
	if err != nil {
		return MonthlySeries{}, err
	}
	isv, err := ds.Floats(schema.ColISV)
	if err != nil {
		return MonthlySeries{}, err
	}

	months := schema.Months()
	out := MonthlySeries{
		Months:   months,
		Ingresos: make([]Number, len(months)),
		ISV:      make([]Number, len(months)),
	}
	seen := make([]bool, len(months))
	for i, m := range meses {
		idx := schema.MonthIndex(strings.TrimSpace(m))
		if idx < 0 {
			continue
		}
		seen[idx] = true
		out.Ingresos[idx] += skipNaN(ingresos[i])
		out.ISV[idx] += skipNaN(isv[i])
	}
	for i := range months {
		if !seen[i] {
			out.Ingresos[i] = NaN()
			out.ISV[i] = NaN()
		}
	}
	return out, nil
}

func skipNaN(f float64) Number {
	if math.IsNaN(f) {
		return 0
	}
	return Number(f)
}
