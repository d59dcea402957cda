package export

import (
	"archive/zip"
	"bytes"
	"encoding/json"
	"io"
	"math"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/FACorreiaa/sales-insights/internal/domain/insights"
	"github.com/FACorreiaa/sales-insights/internal/domain/sales/dataset"
	"github.com/FACorreiaa/sales-insights/pkg/money"
)

func TestWriteCSV(t *testing.T) {
	ds, err := dataset.New(
		dataset.StringColumn("Mes", "Enero", "Febrero"),
		dataset.FloatColumn("ISV", 15, math.NaN()),
	)
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, WriteCSV(&buf, ds))
	assert.Equal(t, "Mes,ISV\nEnero,15\nFebrero,\n", buf.String())

	buf.Reset()
	require.NoError(t, WriteDelimited(&buf, ds, ';'))
	assert.Equal(t, "Mes;ISV\nEnero;15\nFebrero;\n", buf.String())
}

func TestWriteCategories(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteCategories(&buf, []insights.CategoryAggregate{
		{Categoria: "A", CantidadVendida: 30, UtilidadPromedio: 1.5, UtilidadTotal: 3},
		{Categoria: "B", CantidadVendida: 5, UtilidadPromedio: insights.NaN(), UtilidadTotal: 0},
	}))

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 3)
	assert.Equal(t, "Categoría,Cantidad Vendida,Utilidad Promedio,Utilidad Total", lines[0])
	assert.Equal(t, "A,30,1.5,3", lines[1])
	assert.Equal(t, "B,5,,0", lines[2])
}

func TestReport(t *testing.T) {
	summary := insights.Summary{
		TotalIngresos:    300,
		TotalISV:         45,
		UtilidadPromedio: 45,
		TotalVentas:      30,
		CategoriasUnicas: 2,
		MesesActivos:     2,
	}
	now := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)

	r := NewReport("Ventas", summary, money.HNL, now).
		WithCategories([]insights.CategoryAggregate{{Categoria: "A", UtilidadTotal: 30}}, money.HNL).
		WithNote("datos de prueba")

	values := map[string]string{}
	for _, e := range r.Metrics {
		values[e.Key] = e.Value
	}
	assert.Equal(t, "L300.00", values["total_ingresos"])
	assert.Equal(t, "L45.00", values["total_isv"])
	assert.Equal(t, "30", values["total_ventas"])
	assert.Equal(t, "2", values["categorias_unicas"])
	assert.Equal(t, "15.00%", values["tasa_isv_efectiva"])
	assert.Equal(t, "total_ingresos", r.Metrics[0].Key)

	t.Run("yaml", func(t *testing.T) {
		var buf bytes.Buffer
		require.NoError(t, r.Write(&buf, FormatYAML))

		var back Report
		require.NoError(t, yaml.Unmarshal(buf.Bytes(), &back))
		assert.Equal(t, "Ventas", back.Title)
		assert.Equal(t, r.Metrics, back.Metrics)
		assert.Equal(t, []string{"datos de prueba"}, back.Notes)
	})

	t.Run("json", func(t *testing.T) {
		var buf bytes.Buffer
		require.NoError(t, r.Write(&buf, FormatJSON))
		var back Report
		require.NoError(t, json.Unmarshal(buf.Bytes(), &back))
		assert.Equal(t, "L30.00", back.Categories[0].Value)
	})

	t.Run("unknown format", func(t *testing.T) {
		assert.Error(t, r.Write(io.Discard, "docx"))
	})

	t.Run("categories total", func(t *testing.T) {
		r := NewReport("x", summary, money.HNL, now).WithCategories([]insights.CategoryAggregate{
			{Categoria: "A", UtilidadTotal: 30.1},
			{Categoria: "B", UtilidadTotal: 0.2},
			{Categoria: "C", UtilidadTotal: insights.NaN()},
		}, money.HNL)
		require.Len(t, r.Categories, 3)
		assert.Equal(t, MissingValue, r.Categories[2].Value)
		assert.Equal(t, "L30.30", r.CategoriesTotal)

		assert.Empty(t, NewReport("x", summary, money.HNL, now).WithCategories(nil, money.HNL).CategoriesTotal)
	})

	t.Run("missing metric", func(t *testing.T) {
		s := summary
		s.TotalIngresos = insights.NaN()
		r := NewReport("x", s, money.HNL, now)
		assert.Equal(t, MissingValue, r.Metrics[0].Value)
		assert.Len(t, r.Metrics, 6)
	})
}

func TestBundle(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Bundle(&buf, map[string][]byte{
		"b.csv":       []byte("x\n1\n"),
		"a/report.md": []byte("# hola"),
	}))

	zr, err := zip.NewReader(bytes.NewReader(buf.Bytes()), int64(buf.Len()))
	require.NoError(t, err)
	require.Len(t, zr.File, 2)
	assert.Equal(t, "a/report.md", zr.File[0].Name)
	assert.Equal(t, "b.csv", zr.File[1].Name)

	rc, err := zr.File[1].Open()
	require.NoError(t, err)
	defer rc.Close()
	data, err := io.ReadAll(rc)
	require.NoError(t, err)
	assert.Equal(t, "x\n1\n", string(data))
}
