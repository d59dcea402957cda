package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/FACorreiaa/sales-insights/internal/domain/analysis/service"
)

// inputFlags are the reader hints shared by every command that analyzes a file.
type inputFlags struct {
	delimiter      string
	sheet          string
	sheetIndex     int
	sampleFallback bool
}

func (f *inputFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.delimiter, "delimiter", "", "field delimiter for text files: , ; | or tab (default comma)")
	cmd.Flags().StringVar(&f.sheet, "sheet", "", "worksheet name for spreadsheets")
	cmd.Flags().IntVar(&f.sheetIndex, "sheet-index", 0, "0-based worksheet index when --sheet is empty")
	cmd.Flags().BoolVar(&f.sampleFallback, "sample-fallback", false, "analyze the bundled sample when the file cannot be read")
}

func (f *inputFlags) input(path string) (service.Input, error) {
	delim, err := parseDelimiter(f.delimiter)
	if err != nil {
		return service.Input{}, err
	}
	return service.Input{
		Path:             path,
		Delimiter:        delim,
		Sheet:            f.sheet,
		SheetIndex:       f.sheetIndex,
		FallbackToSample: f.sampleFallback || cfg.Analysis.SampleFallback,
	}, nil
}

func parseDelimiter(raw string) (rune, error) {
	switch raw {
	case "":
		return 0, nil
	case ",", ";", "|":
		return rune(raw[0]), nil
	case "\t", `\t`, "tab":
		return '\t', nil
	default:
		return 0, fmt.Errorf("unsupported --delimiter: %s", raw)
	}
}
