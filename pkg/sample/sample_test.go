package sample

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/FACorreiaa/sales-insights/internal/domain/sales/schema"
)

func TestRows_Deterministic(t *testing.T) {
	a := NewGenerator(DefaultSeed).Rows(30)
	b := NewGenerator(DefaultSeed).Rows(30)
	assert.Equal(t, a, b)

	c := NewGenerator(7).Rows(30)
	assert.NotEqual(t, a, c)
}

func TestRows_Consistency(t *testing.T) {
	rows := NewGenerator(DefaultSeed).Rows(len(Categories) * 12)
	require.Len(t, rows, 96)

	assert.Equal(t, "Enero", rows[0].Mes)
	assert.Equal(t, "Diciembre", rows[len(rows)-1].Mes)

	for _, r := range rows {
		assert.InDelta(t, r.IngresoTotal*0.15, r.ISV, 0.01)
		assert.InDelta(t, r.IngresoTotal-r.CostoTotal, r.UtilidadBruta, 0.01)
		assert.InDelta(t, r.IngresoTotal-r.ISV, r.IngresoNeto, 0.01)
		assert.LessOrEqual(t, r.CostoUnitario, r.PrecioUnitario)
		assert.GreaterOrEqual(t, schema.MonthIndex(r.Mes), 0)
	}
}

func TestWriteXLSX(t *testing.T) {
	g := NewGenerator(DefaultSeed)
	sheets := map[string][]Row{"2023": g.Rows(5), "2024": g.Rows(2)}

	var buf bytes.Buffer
	require.NoError(t, WriteXLSX(&buf, []string{"2023", "2024"}, sheets))

	f, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer f.Close()

	assert.Equal(t, []string{"2023", "2024"}, f.GetSheetList())
	rows, err := f.GetRows("2024")
	require.NoError(t, err)
	assert.Len(t, rows, 3)
	assert.Equal(t, Header(), rows[0])
	for _, col := range schema.RequiredColumns() {
		assert.Contains(t, rows[0], col)
	}
}
