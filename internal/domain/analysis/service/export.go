package service

import (
	"bytes"
	"context"
	"fmt"
	"time"

	"github.com/FACorreiaa/sales-insights/internal/domain/export"
	"github.com/FACorreiaa/sales-insights/pkg/apperr"
	"github.com/FACorreiaa/sales-insights/pkg/money"
)

// Export kinds.
const (
	ExportDataset    = "dataset.csv"
	ExportCategories = "categories.csv"
	ExportSeries     = "series.csv"
	ExportReportYAML = "report.yaml"
	ExportReportJSON = "report.json"
)

const reportTitle = "Resumen de ventas"

// ExportKinds lists every kind Export accepts.
func ExportKinds() []string {
	return []string{ExportDataset, ExportCategories, ExportSeries, ExportReportYAML, ExportReportJSON}
}

// Export renders one artifact of the analysis and returns it with its
// content type. Unknown kinds are a not-found error.
func Export(ctx context.Context, a Analyzer, in Input, kind string) ([]byte, string, error) {
	var buf bytes.Buffer

	switch kind {
	case ExportDataset:
		loaded, err := a.Load(ctx, in)
		if err != nil {
			return nil, "", err
		}
		if err := export.WriteCSV(&buf, loaded.Dataset); err != nil {
			return nil, "", err
		}
		return buf.Bytes(), "text/csv; charset=utf-8", nil

	case ExportCategories, ExportSeries, ExportReportYAML, ExportReportJSON:
	default:
		return nil, "", apperr.NotFound(fmt.Sprintf("Exportación desconocida: %s", kind))
	}

	dash, err := a.Dashboard(ctx, in)
	if err != nil {
		return nil, "", err
	}

	switch kind {
	case ExportCategories:
		err = export.WriteCategories(&buf, dash.Categories)
		return buf.Bytes(), "text/csv; charset=utf-8", err
	case ExportSeries:
		err = export.WriteCSV(&buf, dash.Series)
		return buf.Bytes(), "text/csv; charset=utf-8", err
	}

	report := export.NewReport(reportTitle, dash.Metrics, money.DefaultCurrency, time.Now()).
		WithCategories(dash.Categories, money.DefaultCurrency)
	if dash.Origin == OriginSample {
		report = report.WithNote("Datos de ejemplo")
	}

	if kind == ExportReportJSON {
		err = report.Write(&buf, export.FormatJSON)
		return buf.Bytes(), "application/json", err
	}
	err = report.Write(&buf, export.FormatYAML)
	return buf.Bytes(), "application/yaml", err
}
