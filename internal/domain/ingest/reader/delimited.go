package reader

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"io"
	"unicode/utf8"

	"golang.org/x/text/encoding/charmap"

	"github.com/FACorreiaa/sales-insights/internal/domain/ingest/sniffer"
	"github.com/FACorreiaa/sales-insights/internal/domain/sales/dataset"
)

var utf8BOM = []byte("\xef\xbb\xbf")

func parseDelimited(data []byte, opts Options) (*dataset.Dataset, error) {
	if bytes.IndexByte(data, 0) >= 0 {
		return nil, ErrBinaryContent
	}
	data = bytes.TrimPrefix(data, utf8BOM)
	if !utf8.Valid(data) {
		return nil, ErrInvalidUTF8
	}
	return readDelimited(bytes.NewReader(data), opts.Delimiter)
}

// parseDelimitedLatin1 decodes the bytes as ISO-8859-1 before parsing.
func parseDelimitedLatin1(data []byte, opts Options) (*dataset.Dataset, error) {
	if bytes.IndexByte(data, 0) >= 0 {
		return nil, ErrBinaryContent
	}
	decoded, err := charmap.ISO8859_1.NewDecoder().Bytes(data)
	if err != nil {
		return nil, fmt.Errorf("decode latin-1: %w", err)
	}
	return readDelimited(bytes.NewReader(decoded), opts.Delimiter)
}

func readDelimited(in io.Reader, delimiter rune) (*dataset.Dataset, error) {
	if delimiter == 0 {
		delimiter = ','
	}
	r := csv.NewReader(in)
	r.Comma = delimiter
	r.LazyQuotes = true
	r.TrimLeadingSpace = true
	r.FieldsPerRecord = -1

	records, err := r.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("parse delimited text: %w", err)
	}
	// report titles above the header
	if i := sniffer.HeaderRow(records); i > 0 {
		records = records[i:]
	}
	return finish(records)
}
