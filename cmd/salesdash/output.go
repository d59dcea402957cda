package main

import (
	"fmt"
	"io"
	"strconv"

	"github.com/fatih/color"
	"github.com/olekukonko/tablewriter"

	"github.com/FACorreiaa/sales-insights/internal/domain/export"
	"github.com/FACorreiaa/sales-insights/internal/domain/insights"
)

var (
	titleColor = color.New(color.FgCyan, color.Bold)
	warnColor  = color.New(color.FgYellow)
	okColor    = color.New(color.FgGreen)
)

func title(w io.Writer, s string) {
	titleColor.Fprintf(w, "\n%s\n", s)
}

func newTable(w io.Writer, header ...string) *tablewriter.Table {
	table := tablewriter.NewWriter(w)
	table.SetHeader(header)
	table.SetAutoFormatHeaders(false)
	table.SetAlignment(tablewriter.ALIGN_RIGHT)
	return table
}

func renderRecords(w io.Writer, records [][]string) {
	if len(records) == 0 {
		return
	}
	table := newTable(w, records[0]...)
	table.AppendBulk(records[1:])
	table.Render()
}

func renderReport(w io.Writer, r *export.Report) {
	table := newTable(w, "Métrica", "Valor")
	for _, e := range r.Metrics {
		table.Append([]string{e.Key, e.Value})
	}
	table.Render()
	for _, note := range r.Notes {
		warnColor.Fprintln(w, "⚠", note)
	}
}

func renderCategories(w io.Writer, rows []insights.CategoryAggregate) {
	table := newTable(w, "Categoría", "Cantidad Vendida", "Utilidad Promedio", "Utilidad Total")
	for _, c := range rows {
		table.Append([]string{c.Categoria, num(c.CantidadVendida), num(c.UtilidadPromedio), num(c.UtilidadTotal)})
	}
	table.Render()
}

func renderDescribe(w io.Writer, stats []insights.ColumnStats) {
	table := newTable(w, "Columna", "count", "mean", "std", "min", "25%", "50%", "75%", "max")
	for _, s := range stats {
		table.Append([]string{
			s.Column, strconv.Itoa(s.Count), num(s.Mean), num(s.Std), num(s.Min),
			num(s.Q25), num(s.Median), num(s.Q75), num(s.Max),
		})
	}
	table.Render()
}

func renderPairs(w io.Writer, pairs []insights.CorrelationPair) {
	table := newTable(w, "Variable A", "Variable B", "r", "Fuerza")
	for _, p := range pairs {
		table.Append([]string{p.A, p.B, float(p.R), p.Strength})
	}
	table.Render()
}

func renderOutliers(w io.Writer, stats []insights.OutlierStats) {
	table := newTable(w, "Columna", "Atípicos", "%", "Límite inferior", "Límite superior")
	for _, s := range stats {
		table.Append([]string{s.Column, strconv.Itoa(s.Count), strconv.FormatFloat(s.Percent, 'f', 2, 64), num(s.Lower), num(s.Upper)})
	}
	table.Render()
}

func num(n insights.Number) string {
	if n.IsNaN() {
		return export.MissingValue
	}
	return strconv.FormatFloat(float64(n), 'f', -1, 64)
}

func float(f float64) string {
	return strconv.FormatFloat(f, 'f', 4, 64)
}

func percent(f float64) string {
	return fmt.Sprintf("%.2f%%", f*100)
}
