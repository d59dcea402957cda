package reader

import (
	"bytes"
	"testing"

	"github.com/go-pdf/fpdf"
	"github.com/ledongthuc/pdf"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/FACorreiaa/sales-insights/pkg/apperr"
)

func TestAssembleTables(t *testing.T) {
	header := []string{"Mes", "Categoría", "Ingreso Total"}

	t.Run("tables sharing a header are stacked", func(t *testing.T) {
		ds, err := assembleTables([][][]string{
			{header, {"Enero", "A", "100"}},
			{{"Notas", "", ""}, {"", "", ""}},
			{header, {"Febrero", "B", "200"}, {"Marzo", "C", "300"}},
		})
		require.NoError(t, err)
		assert.Equal(t, 3, ds.Len())
		assert.Equal(t, header, ds.Columns())
	})

	t.Run("unrelated tables keep the largest", func(t *testing.T) {
		ds, err := assembleTables([][][]string{
			{{"Producto", "Precio"}, {"X", "1"}},
			{header, {"Enero", "A", "100"}, {"Febrero", "B", "200"}},
		})
		require.NoError(t, err)
		assert.Equal(t, header, ds.Columns())
		assert.Equal(t, 2, ds.Len())
	})

	t.Run("title rows above the header are skipped", func(t *testing.T) {
		ds, err := assembleTables([][][]string{{
			{"Reporte", "2024", ""},
			{"Mes", "Categoría", "Ingreso Total"},
			{"Enero", "A", "100"},
		}})
		require.NoError(t, err)
		assert.Equal(t, header, ds.Columns())
		assert.Equal(t, 1, ds.Len())
	})

	t.Run("empty columns are dropped", func(t *testing.T) {
		ds, err := assembleTables([][][]string{{
			{"Mes", "", "ISV"},
			{"Enero", "", "15"},
		}})
		require.NoError(t, err)
		assert.Equal(t, []string{"Mes", "ISV"}, ds.Columns())
	})

	t.Run("no usable table", func(t *testing.T) {
		_, err := assembleTables([][][]string{{{"1", "2"}, {"3", "4"}}})
		assert.ErrorIs(t, err, ErrNoTables)

		_, err = assembleTables(nil)
		assert.ErrorIs(t, err, ErrNoTables)
	})
}

func TestHeaderIndex(t *testing.T) {
	rows := [][]string{
		{"Ventas", "Zambranos"},
		{"Mes", "ISV"},
		{"Enero", "15"},
	}
	assert.Equal(t, 1, headerIndex(rows))
	assert.Equal(t, 0, headerIndex([][]string{{"a", "b"}, {"1", "2"}}))
	assert.Equal(t, -1, headerIndex([][]string{{"1", "2"}}))
}

func TestSplitCells(t *testing.T) {
	line := pdf.TextHorizontal{
		{X: 10, W: 20, FontSize: 10, S: "Ingreso"},
		{X: 32, W: 15, FontSize: 10, S: "Total"},
		{X: 120, W: 15, FontSize: 10, S: "ISV"},
	}
	cells := splitCells(line)
	require.Len(t, cells, 2)
	assert.Equal(t, "Ingreso Total", cells[0].Text)
	assert.Equal(t, "ISV", cells[1].Text)
	assert.Equal(t, 120.0, cells[1].X)
}

func TestSplitCells_WithoutWidths(t *testing.T) {
	// Standard fonts carry no width table: every glyph of a shown string
	// sits at the string's X.
	var line []pdf.Text
	for _, run := range []struct {
		x float64
		s string
	}{{31.2, "Ingreso Total"}, {158.7, "ISV"}} {
		for _, r := range run.s {
			line = append(line, pdf.Text{X: run.x, Y: 552.6, FontSize: 9, S: string(r)})
		}
	}

	cells := splitCells(line)
	require.Len(t, cells, 2)
	assert.Equal(t, "Ingreso Total", cells[0].Text)
	assert.Equal(t, "ISV", cells[1].Text)
}

func TestTextLines(t *testing.T) {
	lines := textLines([]pdf.Text{
		{X: 10, Y: 500, FontSize: 10, S: "b"},
		{X: 10, Y: 700, FontSize: 10, S: "a"},
		{X: 50, Y: 501, FontSize: 10, S: "c"},
	})
	require.Len(t, lines, 2)
	assert.Equal(t, "a", lines[0][0].S)
	assert.Len(t, lines[1], 2)
}

var pdfHeader = []string{"Mes", "Categoria", "Cantidad Vendida", "Ingreso Total", "ISV", "Utilidad Bruta"}

// tablePDF renders one bordered table per page, with a title line above it.
func tablePDF(t *testing.T, pages ...[][]string) []byte {
	t.Helper()
	doc := fpdf.New("P", "mm", "A4", "")
	doc.SetFont("Helvetica", "", 9)
	for _, rows := range pages {
		doc.AddPage()
		doc.CellFormat(0, 8, "Reporte de ventas", "", 1, "L", false, 0, "")
		doc.Ln(4)
		for _, row := range append([][]string{pdfHeader}, rows...) {
			for _, cell := range row {
				doc.CellFormat(30, 7, cell, "1", 0, "L", false, 0, "")
			}
			doc.Ln(7)
		}
	}

	var buf bytes.Buffer
	require.NoError(t, doc.Output(&buf))
	return buf.Bytes()
}

func TestReadBytes_PDF(t *testing.T) {
	t.Run("single table", func(t *testing.T) {
		data := tablePDF(t, [][]string{
			{"Enero", "Camisas", "10", "100", "15", "20"},
			{"Febrero", "Zapatos", "20", "200", "30", "70"},
		})

		ds, err := newReader().ReadBytes(data, Options{FileName: "ventas.pdf"})
		require.NoError(t, err)
		assert.Equal(t, pdfHeader, ds.Columns())
		require.Equal(t, 2, ds.Len())

		col, err := ds.Strings("Ingreso Total")
		require.NoError(t, err)
		assert.Equal(t, []string{"100", "200"}, col)
	})

	t.Run("same header across pages is concatenated", func(t *testing.T) {
		data := tablePDF(t,
			[][]string{{"Enero", "Camisas", "10", "100", "15", "20"}},
			[][]string{
				{"Febrero", "Zapatos", "20", "200", "30", "70"},
				{"Marzo", "Faldas", "5", "50", "7.5", "10"},
			},
		)

		ds, err := newReader().ReadBytes(data, Options{})
		require.NoError(t, err)
		assert.Equal(t, pdfHeader, ds.Columns())
		require.Equal(t, 3, ds.Len())

		months, err := ds.Strings("Mes")
		require.NoError(t, err)
		assert.Equal(t, []string{"Enero", "Febrero", "Marzo"}, months)
	})
}

func TestAlignColumns(t *testing.T) {
	lines := [][]pdfCell{
		{{X: 10, Text: "Mes"}, {X: 100, Text: "Categoría"}, {X: 200, Text: "ISV"}},
		{{X: 11, Text: "Enero"}, {X: 198, Text: "15"}},
	}
	assert.Equal(t, [][]string{
		{"Mes", "Categoría", "ISV"},
		{"Enero", "", "15"},
	}, alignColumns(lines))
}

func TestReadBytes_BrokenPDF(t *testing.T) {
	_, err := New(nil).ReadBytes([]byte("%PDF-1.4\nnot really a pdf"), Options{})
	require.Error(t, err)
	assert.True(t, apperr.IsKind(err, apperr.KindFileIO))
}
