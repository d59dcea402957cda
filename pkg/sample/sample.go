// Package sample generates a reproducible synthetic sales dataset used as a
// demo and as the fallback when an upload cannot be read.
package sample

import (
	"fmt"
	"io"

	"github.com/brianvoe/gofakeit/v6"
	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"

	"github.com/FACorreiaa/sales-insights/internal/domain/sales/schema"
	"github.com/FACorreiaa/sales-insights/pkg/money"
)

// DefaultSeed makes the bundled sample identical across runs.
const DefaultSeed int64 = 42

// Categories sold in the sample store.
var Categories = []string{
	"Accesorios",
	"Blusas",
	"Camisas",
	"Chaquetas",
	"Faldas",
	"Pantalones",
	"Suéteres",
	"Zapatos",
}

// Row is one generated sale
type Row struct {
	Mes             string  `csv:"Mes"`
	Categoria       string  `csv:"Categoría"`
	CantidadVendida int     `csv:"Cantidad Vendida"`
	PrecioUnitario  float64 `csv:"Precio Unitario"`
	IngresoTotal    float64 `csv:"Ingreso Total"`
	CostoUnitario   float64 `csv:"Costo Unitario"`
	CostoTotal      float64 `csv:"Costo Total"`
	UtilidadBruta   float64 `csv:"Utilidad Bruta"`
	ISV             float64 `csv:"ISV"`
	IngresoNeto     float64 `csv:"Ingreso Neto"`
}

// Header returns the column names in the order WriteXLSX writes them.
func Header() []string {
	return []string{
		schema.ColMes,
		schema.ColCategoria,
		schema.ColCantidadVendida,
		schema.ColPrecioUnitario,
		schema.ColIngresoTotal,
		schema.ColCostoUnitario,
		schema.ColCostoTotal,
		schema.ColUtilidadBruta,
		schema.ColISV,
		schema.ColIngresoNeto,
	}
}

// Generator generates realistic sales rows using gofakeit.
type Generator struct {
	faker *gofakeit.Faker
	price map[string]float64
	cost  map[string]float64
}

// NewGenerator creates a generator with a specific seed for reproducibility.
func NewGenerator(seed int64) *Generator {
	g := &Generator{
		faker: gofakeit.New(seed),
		price: make(map[string]float64, len(Categories)),
		cost:  make(map[string]float64, len(Categories)),
	}
	for _, cat := range Categories {
		p := g.faker.Float64Range(180, 950)
		g.price[cat] = p
		g.cost[cat] = p * g.faker.Float64Range(0.55, 0.8)
	}
	return g
}

// Rows generates n rows walking months in order and every category per month.
func (g *Generator) Rows(n int) []Row {
	months := schema.Months()
	rows := make([]Row, 0, n)
	for i := 0; i < n; i++ {
		cat := Categories[i%len(Categories)]
		mes := months[(i/len(Categories))%len(months)]
		rows = append(rows, g.row(mes, cat))
	}
	return rows
}

func (g *Generator) row(mes, cat string) Row {
	qty := g.faker.IntRange(20, 160)
	unitPrice := round2(g.price[cat] * g.faker.Float64Range(0.8, 1.2))
	unitCost := round2(min(g.cost[cat]*g.faker.Float64Range(0.8, 1.15), unitPrice*0.9))

	revenue := money.NewFromFloat(float64(qty)*unitPrice, money.HNL)
	cost := money.NewFromFloat(float64(qty)*unitCost, money.HNL)
	tax := revenue.Tax(money.ISVRate)
	profit, _ := revenue.Subtract(cost)
	net, _ := revenue.Subtract(tax)

	return Row{
		Mes:             mes,
		Categoria:       cat,
		CantidadVendida: qty,
		PrecioUnitario:  unitPrice,
		IngresoTotal:    revenue.ToFloat64(),
		CostoUnitario:   unitCost,
		CostoTotal:      cost.ToFloat64(),
		UtilidadBruta:   profit.ToFloat64(),
		ISV:             tax.ToFloat64(),
		IngresoNeto:     net.ToFloat64(),
	}
}

// WriteXLSX writes one sheet per entry of sheets, in the given order.
func WriteXLSX(w io.Writer, names []string, sheets map[string][]Row) error {
	f := excelize.NewFile()
	defer f.Close()

	for i, name := range names {
		if i == 0 {
			if err := f.SetSheetName("Sheet1", name); err != nil {
				return fmt.Errorf("rename sheet: %w", err)
			}
		} else if _, err := f.NewSheet(name); err != nil {
			return fmt.Errorf("create sheet %s: %w", name, err)
		}

		for r, record := range xlsxRows(sheets[name]) {
			cell, err := excelize.CoordinatesToCellName(1, r+1)
			if err != nil {
				return err
			}
			if err := f.SetSheetRow(name, cell, &record); err != nil {
				return fmt.Errorf("write sheet %s: %w", name, err)
			}
		}
	}

	if _, err := f.WriteTo(w); err != nil {
		return fmt.Errorf("write workbook: %w", err)
	}
	return nil
}

func xlsxRows(rows []Row) [][]any {
	header := Header()
	out := make([][]any, 0, len(rows)+1)
	h := make([]any, len(header))
	for i, c := range header {
		h[i] = c
	}
	out = append(out, h)
	for _, r := range rows {
		out = append(out, []any{
			r.Mes, r.Categoria, r.CantidadVendida, r.PrecioUnitario, r.IngresoTotal,
			r.CostoUnitario, r.CostoTotal, r.UtilidadBruta, r.ISV, r.IngresoNeto,
		})
	}
	return out
}

func round2(f float64) float64 {
	return decimal.NewFromFloat(f).Round(2).InexactFloat64()
}
