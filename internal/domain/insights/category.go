package insights

import (
	"math"
	"sort"
	"strings"

	"github.com/FACorreiaa/sales-insights/internal/domain/sales/dataset"
	"github.com/FACorreiaa/sales-insights/internal/domain/sales/schema"
)

// CategoryAggregate is the per-category rollup.
type CategoryAggregate struct {
	Categoria        string `json:"categoria" csv:"Categoría"`
	CantidadVendida  Number `json:"cantidad_vendida" csv:"Cantidad Vendida"`
	UtilidadPromedio Number `json:"utilidad_promedio" csv:"Utilidad Promedio"`
	UtilidadTotal    Number `json:"utilidad_total" csv:"Utilidad Total"`
}

// Categories groups rows by category: total units sold, plus the mean and the
// sum of gross profit rounded to 2 decimals. Results are sorted by category
// name; blank categories are left out.
func Categories(ds *dataset.Dataset) ([]CategoryAggregate, error) {
	if err := schema.Validate(ds); err != nil {
		return nil, err
	}

	cats, err := ds.Strings(schema.ColCategoria)
	if err != nil {
		return nil, err
	}
	ventas, err := ds.Floats(schema.ColCantidadVendida)
	if err != nil {
		return nil, err
	}
	utilidad, err := ds.Floats(schema.ColUtilidadBruta)
	if err != nil {
		return nil, err
	}

	type acc struct {
		ventas   float64
		utilSum  float64
		utilSeen int
	}
	groups := map[string]*acc{}
	for i, c := range cats {
		if blank(c) {
			continue
		}
		c = strings.TrimSpace(c)
		g, ok := groups[c]
		if !ok {
			g = &acc{}
			groups[c] = g
		}
		if !math.IsNaN(ventas[i]) {
			g.ventas += ventas[i]
		}
		if !math.IsNaN(utilidad[i]) {
			g.utilSum += utilidad[i]
			g.utilSeen++
		}
	}

	names := make([]string, 0, len(groups))
	for name := range groups {
		names = append(names, name)
	}
	sort.Strings(names)

	out := make([]CategoryAggregate, 0, len(names))
	for _, name := range names {
		g := groups[name]
		mean := math.NaN()
		if g.utilSeen > 0 {
			mean = g.utilSum / float64(g.utilSeen)
		}
		out = append(out, CategoryAggregate{
			Categoria:        name,
			CantidadVendida:  Number(g.ventas),
			UtilidadPromedio: Number(round(mean, 2)),
			UtilidadTotal:    Number(round(g.utilSum, 2)),
		})
	}
	return out, nil
}
