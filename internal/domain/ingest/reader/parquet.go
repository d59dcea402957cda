package reader

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/parquet-go/parquet-go"

	"github.com/FACorreiaa/sales-insights/internal/domain/sales/dataset"
)

const parquetBatch = 256

// parseParquet reads every row group of a flat parquet file into text records.
func parseParquet(data []byte, _ Options) (*dataset.Dataset, error) {
	f, err := parquet.OpenFile(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("open parquet: %w", err)
	}

	paths := f.Schema().Columns()
	if len(paths) == 0 {
		return nil, dataset.ErrNoColumns
	}
	header := make([]string, len(paths))
	for i, p := range paths {
		header[i] = strings.Join(p, ".")
	}

	records := [][]string{header}
	buf := make([]parquet.Row, parquetBatch)
	for _, rg := range f.RowGroups() {
		rows := rg.Rows()
		for {
			n, err := rows.ReadRows(buf)
			for _, row := range buf[:n] {
				records = append(records, parquetRecord(row, len(header)))
			}
			if errors.Is(err, io.EOF) {
				break
			}
			if err != nil {
				rows.Close()
				return nil, fmt.Errorf("read parquet rows: %w", err)
			}
		}
		rows.Close()
	}
	return finish(records)
}

func parquetRecord(row parquet.Row, width int) []string {
	out := make([]string, width)
	for _, v := range row {
		col := v.Column()
		if col < 0 || col >= width || v.IsNull() {
			continue
		}
		out[col] = parquetString(v)
	}
	return out
}

func parquetString(v parquet.Value) string {
	switch v.Kind() {
	case parquet.Boolean:
		return strconv.FormatBool(v.Boolean())
	case parquet.Int32:
		return strconv.FormatInt(int64(v.Int32()), 10)
	case parquet.Int64:
		return strconv.FormatInt(v.Int64(), 10)
	case parquet.Float:
		return strconv.FormatFloat(float64(v.Float()), 'f', -1, 32)
	case parquet.Double:
		return strconv.FormatFloat(v.Double(), 'f', -1, 64)
	case parquet.ByteArray, parquet.FixedLenByteArray:
		return string(v.ByteArray())
	default:
		return v.String()
	}
}
