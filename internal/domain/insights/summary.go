package insights

import (
	"math"
	"strings"

	"github.com/FACorreiaa/sales-insights/internal/domain/sales/dataset"
	"github.com/FACorreiaa/sales-insights/internal/domain/sales/schema"
)

// Metric keys, in presentation order.
const (
	MetricTotalIngresos    = "total_ingresos"
	MetricTotalISV         = "total_isv"
	MetricUtilidadPromedio = "utilidad_promedio"
	MetricTotalVentas      = "total_ventas"
	MetricCategoriasUnicas = "categorias_unicas"
	MetricMesesActivos     = "meses_activos"
)

// Summary holds the six executive metrics of a dataset.
type Summary struct {
	TotalIngresos    Number `json:"total_ingresos"`
	TotalISV         Number `json:"total_isv"`
	UtilidadPromedio Number `json:"utilidad_promedio"`
	TotalVentas      Number `json:"total_ventas"`
	CategoriasUnicas int    `json:"categorias_unicas"`
	MesesActivos     int    `json:"meses_activos"`
}

// Metric is one named value of a Summary.
type Metric struct {
	Name  string
	Value float64
	Count bool // true for distinct counts
}

// Metrics returns the summary as an ordered list.
func (s Summary) Metrics() []Metric {
	return []Metric{
		{Name: MetricTotalIngresos, Value: float64(s.TotalIngresos)},
		{Name: MetricTotalISV, Value: float64(s.TotalISV)},
		{Name: MetricUtilidadPromedio, Value: float64(s.UtilidadPromedio)},
		{Name: MetricTotalVentas, Value: float64(s.TotalVentas)},
		{Name: MetricCategoriasUnicas, Value: float64(s.CategoriasUnicas), Count: true},
		{Name: MetricMesesActivos, Value: float64(s.MesesActivos), Count: true},
	}
}

// Summarize computes the executive metrics. Sums and the mean skip NaN; a
// column with no numeric value yields NaN. Distinct counts ignore blanks.
func Summarize(ds *dataset.Dataset) (Summary, error) {
	if err := schema.Validate(ds); err != nil {
		return Summary{}, err
	}

	ingresos, err := ds.Floats(schema.ColIngresoTotal)
	if err != nil {
		return Summary{}, err
	}
	isv, err := ds.Floats(schema.ColISV)
	if err != nil {
		return Summary{}, err
	}
	utilidad, err := ds.Floats(schema.ColUtilidadBruta)
	if err != nil {
		return Summary{}, err
	}
	ventas, err := ds.Floats(schema.ColCantidadVendida)
	if err != nil {
		return Summary{}, err
	}
	categorias, err := ds.Strings(schema.ColCategoria)
	if err != nil {
		return Summary{}, err
	}
	meses, err := ds.Strings(schema.ColMes)
	if err != nil {
		return Summary{}, err
	}

	return Summary{
		TotalIngresos:    Number(nanSum(ingresos)),
		TotalISV:         Number(nanSum(isv)),
		UtilidadPromedio: Number(nanMean(utilidad)),
		TotalVentas:      Number(nanSum(ventas)),
		CategoriasUnicas: distinct(categorias),
		MesesActivos:     distinct(meses),
	}, nil
}

// nanSum adds the non-NaN values. NaN when there are none.
func nanSum(values []float64) float64 {
	sum, n := 0.0, 0
	for _, v := range values {
		if math.IsNaN(v) {
			continue
		}
		sum += v
		n++
	}
	if n == 0 {
		return math.NaN()
	}
	return sum
}

func nanMean(values []float64) float64 {
	sum, n := 0.0, 0
	for _, v := range values {
		if math.IsNaN(v) {
			continue
		}
		sum += v
		n++
	}
	if n == 0 {
		return math.NaN()
	}
	return sum / float64(n)
}

// finite returns the non-NaN values.
func finite(values []float64) []float64 {
	out := make([]float64, 0, len(values))
	for _, v := range values {
		if !math.IsNaN(v) {
			out = append(out, v)
		}
	}
	return out
}

// blank reports whether a text cell counts as missing.
func blank(v string) bool {
	v = strings.TrimSpace(v)
	return v == "" || strings.EqualFold(v, "nan")
}

func distinct(values []string) int {
	seen := make(map[string]struct{}, len(values))
	for _, v := range values {
		if blank(v) {
			continue
		}
		v = strings.TrimSpace(v)
		seen[v] = struct{}{}
	}
	return len(seen)
}
