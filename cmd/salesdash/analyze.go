package main

import (
	"time"

	"github.com/spf13/cobra"

	"github.com/FACorreiaa/sales-insights/internal/domain/analysis/service"
	"github.com/FACorreiaa/sales-insights/internal/domain/export"
	"github.com/FACorreiaa/sales-insights/pkg/money"
)

var summaryFlags, describeFlags inputFlags

var summaryCmd = &cobra.Command{
	Use:   "summary <file>",
	Short: "Print executive metrics, the monthly series and category aggregates",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		in, err := summaryFlags.input(args[0])
		if err != nil {
			return err
		}
		dash, err := newAnalysisService().Dashboard(cmd.Context(), in)
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		report := export.NewReport("Resumen de ventas", dash.Metrics, money.DefaultCurrency, time.Now())
		if dash.Origin == service.OriginSample {
			report.WithNote("Datos de ejemplo: el archivo no se pudo leer")
		}

		title(out, "Métricas")
		renderReport(out, report)

		title(out, "Serie mensual")
		renderRecords(out, dash.Series.Records())

		title(out, "Categorías")
		renderCategories(out, dash.Categories)
		return nil
	},
}

var describeCmd = &cobra.Command{
	Use:   "describe <file>",
	Short: "Print descriptive statistics, strongest correlations and outliers",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		in, err := describeFlags.input(args[0])
		if err != nil {
			return err
		}
		dash, err := newAnalysisService().Dashboard(cmd.Context(), in)
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		title(out, "Estadística descriptiva")
		renderDescribe(out, dash.Describe)

		title(out, "Correlaciones")
		renderPairs(out, dash.Correlation.Pairs)

		title(out, "Valores atípicos (IQR)")
		renderOutliers(out, dash.Outliers)
		return nil
	},
}

func init() {
	summaryFlags.register(summaryCmd)
	describeFlags.register(describeCmd)
}
