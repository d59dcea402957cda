package reader

import (
	"bytes"
	"errors"
	"fmt"

	"github.com/extrame/xls"
	"github.com/xuri/excelize/v2"

	"github.com/FACorreiaa/sales-insights/internal/domain/sales/dataset"
	"github.com/FACorreiaa/sales-insights/pkg/apperr"
)

// pickSheet resolves the sheet hint against the workbook's sheet list.
func pickSheet(sheets []string, opts Options) (string, error) {
	if len(sheets) == 0 {
		return "", ErrNoSheets
	}
	if opts.Sheet != "" {
		for _, s := range sheets {
			if s == opts.Sheet {
				return s, nil
			}
		}
		return "", fmt.Errorf("%w: %q", ErrUnknownSheet, opts.Sheet)
	}
	if opts.SheetIndex < 0 || opts.SheetIndex >= len(sheets) {
		return "", fmt.Errorf("%w: index %d of %d", ErrUnknownSheet, opts.SheetIndex, len(sheets))
	}
	return sheets[opts.SheetIndex], nil
}

// parseExcel reads the selected sheet in one pass. Cells come back as raw
// values, so a number styled "#,##0.00" reads as 1234.5, not "1,234.50".
func parseExcel(data []byte, opts Options) (*dataset.Dataset, error) {
	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to open Excel file: %w", err)
	}
	defer f.Close()

	sheet, err := pickSheet(f.GetSheetList(), opts)
	if err != nil {
		return nil, err
	}

	rows, err := f.GetRows(sheet, excelize.Options{RawCellValue: true})
	if err != nil {
		return nil, fmt.Errorf("failed to read sheet %s: %w", sheet, err)
	}
	return finish(rows)
}

// parseExcelStream iterates rows one at a time, which survives workbooks
// whose shared-string or style parts GetRows cannot load in full.
func parseExcelStream(data []byte, opts Options) (*dataset.Dataset, error) {
	f, err := excelize.OpenReader(bytes.NewReader(data), excelize.Options{RawCellValue: true})
	if err != nil {
		return nil, fmt.Errorf("failed to open Excel file: %w", err)
	}
	defer f.Close()

	sheet, err := pickSheet(f.GetSheetList(), opts)
	if err != nil {
		return nil, err
	}

	rows, err := f.Rows(sheet)
	if err != nil {
		return nil, fmt.Errorf("failed to create row iterator: %w", err)
	}
	defer rows.Close()

	var records [][]string
	for rows.Next() {
		row, err := rows.Columns()
		if err != nil {
			return nil, fmt.Errorf("read row %d: %w", len(records)+1, err)
		}
		records = append(records, row)
	}
	if err := rows.Error(); err != nil {
		return nil, fmt.Errorf("iterate rows: %w", err)
	}
	return finish(records)
}

// parseXLS reads legacy BIFF workbooks.
func parseXLS(data []byte, opts Options) (ds *dataset.Dataset, err error) {
	defer func() {
		if r := recover(); r != nil {
			ds, err = nil, fmt.Errorf("read xls sheet: %v", r)
		}
	}()

	wb, err := openXLS(data)
	if err != nil {
		return nil, err
	}

	names := xlsSheetNames(wb)
	sheet, err := pickSheet(names, opts)
	if err != nil {
		return nil, err
	}

	var ws *xls.WorkSheet
	for i := 0; i < wb.NumSheets(); i++ {
		if s := wb.GetSheet(i); s != nil && s.Name == sheet {
			ws = s
			break
		}
	}
	if ws == nil {
		return nil, fmt.Errorf("%w: %q", ErrUnknownSheet, sheet)
	}

	var records [][]string
	for i := 0; i <= int(ws.MaxRow); i++ {
		row := ws.Row(i)
		if row == nil {
			records = append(records, nil)
			continue
		}
		cells := make([]string, 0, row.LastCol()+1)
		for j := 0; j <= row.LastCol(); j++ {
			cells = append(cells, row.Col(j))
		}
		records = append(records, cells)
	}
	return finish(records)
}

// openXLS opens a BIFF workbook. The decoder panics on some malformed input,
// so panics are turned into errors.
func openXLS(data []byte) (wb *xls.WorkBook, err error) {
	defer func() {
		if r := recover(); r != nil {
			wb, err = nil, fmt.Errorf("failed to open xls file: %v", r)
		}
	}()
	wb, err = xls.OpenReader(bytes.NewReader(data), "utf-8")
	if err != nil {
		return nil, fmt.Errorf("failed to open xls file: %w", err)
	}
	return wb, nil
}

func xlsSheetNames(wb *xls.WorkBook) []string {
	names := make([]string, 0, wb.NumSheets())
	for i := 0; i < wb.NumSheets(); i++ {
		if s := wb.GetSheet(i); s != nil {
			names = append(names, s.Name)
		}
	}
	return names
}

// ListSheets returns the worksheet names of a workbook, in workbook order.
func ListSheets(data []byte) ([]string, error) {
	var causes []error

	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err == nil {
		defer f.Close()
		if sheets := f.GetSheetList(); len(sheets) > 0 {
			return sheets, nil
		}
		causes = append(causes, fmt.Errorf("excel: %w", ErrNoSheets))
	} else {
		causes = append(causes, fmt.Errorf("excel: %w", err))
	}

	wb, err := openXLS(data)
	if err == nil {
		if sheets := xlsSheetNames(wb); len(sheets) > 0 {
			return sheets, nil
		}
		causes = append(causes, fmt.Errorf("xls: %w", ErrNoSheets))
	} else {
		causes = append(causes, err)
	}

	return nil, apperr.FileIO(ReadFailedMessage, errors.Join(causes...))
}
