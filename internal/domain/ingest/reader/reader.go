// Package reader turns an uploaded file into a normalized dataset.
// It tries an ordered chain of parsing strategies and returns the first
// dataset one of them produces.
package reader

import (
	"bytes"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/FACorreiaa/sales-insights/internal/domain/ingest/sniffer"
	"github.com/FACorreiaa/sales-insights/internal/domain/sales/dataset"
	"github.com/FACorreiaa/sales-insights/pkg/apperr"
)

// ReadFailedMessage is the message of every File I/O error raised by the reader.
const ReadFailedMessage = "No se pudo leer el archivo"

var (
	ErrEmptyInput    = errors.New("input is empty")
	ErrUnknownSheet  = errors.New("sheet not found")
	ErrNoSheets      = errors.New("workbook has no sheets")
	ErrBinaryContent = errors.New("content is not delimited text")
	ErrInvalidUTF8   = errors.New("content is not valid UTF-8")
	ErrNoTables      = errors.New("no tables found")
	ErrUnsupported   = errors.New("unsupported file format")
)

// Options carries the optional hints a caller can give the reader.
type Options struct {
	// Delimiter for delimited text. Zero means sniff (byte input) or comma (path input).
	Delimiter rune
	// Sheet selects a worksheet by name. Takes precedence over SheetIndex.
	Sheet string
	// SheetIndex selects a worksheet by 0-based position when Sheet is empty.
	SheetIndex int
	// FileName is an optional name hint for byte input; its extension routes
	// the bytes the same way a path would.
	FileName string
}

// Strategy is one way of parsing raw bytes into a dataset.
type Strategy struct {
	Name  string
	Parse func(data []byte, opts Options) (*dataset.Dataset, error)
}

// Observer is notified after every strategy attempt. err is nil on success.
type Observer func(strategy string, err error)

// Reader runs strategy chains.
type Reader struct {
	logger   *slog.Logger
	observer Observer
}

// New creates a reader
func New(logger *slog.Logger) *Reader {
	if logger == nil {
		logger = slog.Default()
	}
	return &Reader{logger: logger}
}

// WithObserver registers a callback invoked after each strategy attempt.
func (r *Reader) WithObserver(o Observer) *Reader {
	r.observer = o
	return r
}

var (
	csvUTF8     = Strategy{Name: "csv", Parse: parseDelimited}
	csvLatin1   = Strategy{Name: "csv_latin1", Parse: parseDelimitedLatin1}
	excelRows   = Strategy{Name: "excel", Parse: parseExcel}
	excelStream = Strategy{Name: "excel_stream", Parse: parseExcelStream}
	legacyXLS   = Strategy{Name: "xls", Parse: parseXLS}
	parquetFile = Strategy{Name: "parquet", Parse: parseParquet}
	pdfTables   = Strategy{Name: "pdf", Parse: parsePDF}
)

// unsupported fails every input with the extension it was routed by.
func unsupported(ext string) Strategy {
	return Strategy{Name: "unsupported", Parse: func([]byte, Options) (*dataset.Dataset, error) {
		return nil, fmt.Errorf("%w: %s", ErrUnsupported, ext)
	}}
}

func spreadsheetChain() []Strategy {
	return []Strategy{excelRows, excelStream, legacyXLS}
}

func delimitedChain() []Strategy {
	return []Strategy{csvUTF8, csvLatin1}
}

// chainForExtension returns the strategies for a known extension, or nil.
func chainForExtension(ext string) []Strategy {
	switch strings.ToLower(ext) {
	case ".xlsx", ".xls", ".xlsm":
		return spreadsheetChain()
	case ".xlsb", ".ods":
		return []Strategy{unsupported(strings.ToLower(ext))}
	case ".parquet":
		return []Strategy{parquetFile}
	case ".pdf":
		return []Strategy{pdfTables}
	}
	return nil
}

// Read loads a file from disk. The extension alone picks the parser; anything
// not recognized is read as delimited text using opts.Delimiter or a comma.
func (r *Reader) Read(path string, opts Options) (*dataset.Dataset, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, apperr.FileIO(ReadFailedMessage, err)
	}

	chain := chainForExtension(filepath.Ext(path))
	if chain == nil {
		if opts.Delimiter == 0 {
			opts.Delimiter = ','
		}
		chain = delimitedChain()
	}
	return r.run(data, opts, chain)
}

// ReadBytes loads an in-memory upload. Without a recognizable file-name hint,
// non-PDF bytes are tried as delimited text (UTF-8, then Latin-1) and then as
// a spreadsheet; PDF bytes go to table extraction.
func (r *Reader) ReadBytes(data []byte, opts Options) (*dataset.Dataset, error) {
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, apperr.FileIO(ReadFailedMessage, ErrEmptyInput)
	}

	chain, delimited := chainFor(data, opts)
	if delimited && opts.Delimiter == 0 {
		opts.Delimiter = sniffer.SniffOrDefault(data)
	}
	return r.run(data, opts, chain)
}

// chainFor picks the strategies for byte input and reports whether the chain
// starts with delimited text.
func chainFor(data []byte, opts Options) ([]Strategy, bool) {
	if opts.FileName != "" {
		if chain := chainForExtension(filepath.Ext(opts.FileName)); chain != nil {
			return chain, false
		}
	}
	switch {
	case IsPDF(data):
		return []Strategy{pdfTables}, false
	case isParquet(data):
		return []Strategy{parquetFile}, false
	}
	return append(delimitedChain(), spreadsheetChain()...), true
}

func (r *Reader) run(data []byte, opts Options, chain []Strategy) (*dataset.Dataset, error) {
	var causes []error
	for _, s := range chain {
		ds, err := s.Parse(data, opts)
		if r.observer != nil {
			r.observer(s.Name, err)
		}
		if err == nil {
			r.logger.Debug("file parsed", slog.String("strategy", s.Name),
				slog.Int("rows", ds.Len()), slog.Int("columns", len(ds.Columns())))
			return ds, nil
		}
		r.logger.Debug("parse strategy failed", slog.String("strategy", s.Name), slog.Any("error", err))
		causes = append(causes, fmt.Errorf("%s: %w", s.Name, err))
	}
	return nil, apperr.FileIO(ReadFailedMessage, errors.Join(causes...))
}

// IsPDF reports whether data starts with the PDF magic bytes.
func IsPDF(data []byte) bool {
	return bytes.HasPrefix(data, []byte("%PDF-"))
}

func isParquet(data []byte) bool {
	return len(data) >= 8 && bytes.HasPrefix(data, []byte("PAR1")) && bytes.HasSuffix(data, []byte("PAR1"))
}

// finish builds a dataset from raw rows, dropping blank rows first.
func finish(records [][]string) (*dataset.Dataset, error) {
	kept := records[:0:0]
	for _, row := range records {
		if !blankRow(row) {
			kept = append(kept, row)
		}
	}
	if len(kept) == 0 {
		return nil, ErrEmptyInput
	}
	ds, err := dataset.FromRecords(kept)
	if err != nil {
		return nil, err
	}
	return ds, nil
}

func blankRow(row []string) bool {
	for _, c := range row {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}
