package main

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/gocarina/gocsv"
	"github.com/spf13/cobra"

	"github.com/FACorreiaa/sales-insights/internal/domain/analysis/service"
	"github.com/FACorreiaa/sales-insights/internal/domain/ingest/reader"
	"github.com/FACorreiaa/sales-insights/pkg/sample"
)

var (
	exportFlags inputFlags
	exportKind  string
	exportOut   string

	sampleRows  int
	sampleSeed  int64
	sampleOut   string
	sampleYears []string
)

var sheetsCmd = &cobra.Command{
	Use:   "sheets <file>",
	Short: "List the worksheets of an Excel workbook",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		data, err := os.ReadFile(args[0])
		if err != nil {
			return fmt.Errorf("read %s: %w", args[0], err)
		}
		names, err := reader.ListSheets(data)
		if err != nil {
			return err
		}
		table := newTable(cmd.OutOrStdout(), "#", "Hoja")
		for i, name := range names {
			table.Append([]string{strconv.Itoa(i), name})
		}
		table.Render()
		return nil
	},
}

var exportCmd = &cobra.Command{
	Use:   "export <file>",
	Short: "Write one analysis artifact (dataset, categories, series or report)",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		in, err := exportFlags.input(args[0])
		if err != nil {
			return err
		}
		data, _, err := service.Export(cmd.Context(), newAnalysisService(), in, exportKind)
		if err != nil {
			return err
		}
		return writeOutput(cmd, exportOut, data)
	},
}

var sampleCmd = &cobra.Command{
	Use:   "sample",
	Short: "Generate the synthetic sales dataset as CSV or Excel",
	Long: `sample writes reproducible synthetic sales rows. With --out ending in .xlsx
one worksheet is written per --years entry, each generated from its own seed.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		if sampleRows < 1 {
			return fmt.Errorf("--rows must be positive, got %d", sampleRows)
		}
		seed := sampleSeed
		if !cmd.Flags().Changed("seed") {
			seed = cfg.Analysis.SampleSeed
		}

		var buf bytes.Buffer
		if isXLSX(sampleOut) {
			if len(sampleYears) == 0 {
				return fmt.Errorf("--years needs at least one sheet name")
			}
			sheets := make(map[string][]sample.Row, len(sampleYears))
			for i, year := range sampleYears {
				sheets[year] = sample.NewGenerator(seed + int64(i)).Rows(sampleRows)
			}
			if err := sample.WriteXLSX(&buf, sampleYears, sheets); err != nil {
				return err
			}
		} else {
			rows := sample.NewGenerator(seed).Rows(sampleRows)
			if err := gocsv.Marshal(rows, &buf); err != nil {
				return fmt.Errorf("write sample: %w", err)
			}
		}
		return writeOutput(cmd, sampleOut, buf.Bytes())
	},
}

// writeOutput writes to path, or to the command's stdout when path is empty or "-".
func writeOutput(cmd *cobra.Command, path string, data []byte) error {
	if path == "" || path == "-" {
		_, err := io.Copy(cmd.OutOrStdout(), bytes.NewReader(data))
		return err
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	logger.Info("file written", "path", path, "bytes", len(data))
	return nil
}

func isXLSX(path string) bool {
	return strings.EqualFold(filepath.Ext(path), ".xlsx")
}

func init() {
	exportFlags.register(exportCmd)
	exportCmd.Flags().StringVar(&exportKind, "kind", service.ExportReportYAML, fmt.Sprintf("artifact to write, one of %v", service.ExportKinds()))
	exportCmd.Flags().StringVarP(&exportOut, "out", "o", "", "output file (default stdout)")

	sampleCmd.Flags().IntVar(&sampleRows, "rows", 240, "rows per sheet")
	sampleCmd.Flags().Int64Var(&sampleSeed, "seed", sample.DefaultSeed, "random seed")
	sampleCmd.Flags().StringVarP(&sampleOut, "out", "o", "", "output file; .xlsx writes a workbook, anything else CSV (default stdout)")
	sampleCmd.Flags().StringSliceVar(&sampleYears, "years", []string{"2023", "2024", "2025"}, "worksheet names for .xlsx output")
}
