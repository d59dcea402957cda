package schema

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/FACorreiaa/sales-insights/internal/domain/sales/dataset"
	"github.com/FACorreiaa/sales-insights/pkg/apperr"
)

func validDataset(t *testing.T, extra ...dataset.Column) *dataset.Dataset {
	t.Helper()
	cols := []dataset.Column{
		dataset.StringColumn(ColMes, "Enero", "Febrero"),
		dataset.StringColumn(ColCategoria, "A", "B"),
		dataset.FloatColumn(ColCantidadVendida, 10, 20),
		dataset.FloatColumn(ColIngresoTotal, 100, 200),
		dataset.FloatColumn(ColISV, 15, 30),
		dataset.FloatColumn(ColUtilidadBruta, 30, 60),
	}
	ds, err := dataset.New(append(cols, extra...)...)
	require.NoError(t, err)
	return ds
}

func TestContractLists(t *testing.T) {
	assert.Equal(t, []string{"Mes", "Categoría", "Cantidad Vendida", "Ingreso Total", "ISV", "Utilidad Bruta"}, RequiredColumns())
	assert.Len(t, NumericVariables(), 8)
	assert.Len(t, Months(), 12)
	assert.Equal(t, 0, MonthIndex("Enero"))
	assert.Equal(t, 11, MonthIndex("Diciembre"))
	assert.Equal(t, -1, MonthIndex("enero"))

	t.Run("returned slices are copies", func(t *testing.T) {
		req := RequiredColumns()
		req[0] = "changed"
		assert.Equal(t, "Mes", RequiredColumns()[0])
	})
}

func TestValidate(t *testing.T) {
	t.Run("all required present", func(t *testing.T) {
		assert.NoError(t, Validate(validDataset(t)))
	})

	t.Run("extra columns allowed", func(t *testing.T) {
		ds := validDataset(t, dataset.FloatColumn("Descuento", 1, 2))
		assert.NoError(t, Validate(ds))
	})

	t.Run("missing columns listed in contract order", func(t *testing.T) {
		ds, err := dataset.New(
			dataset.StringColumn(ColMes, "Enero"),
			dataset.FloatColumn(ColIngresoTotal, 1),
		)
		require.NoError(t, err)

		err = Validate(ds)
		require.Error(t, err)
		assert.True(t, apperr.IsKind(err, apperr.KindValidation))

		var appErr *apperr.Error
		require.ErrorAs(t, err, &appErr)
		assert.Equal(t, "Faltan columnas requeridas: Categoría, Cantidad Vendida, ISV, Utilidad Bruta", appErr.Message)
		assert.Contains(t, appErr.Detail, "Requeridas:")
		assert.Contains(t, appErr.Detail, "Utilidad Bruta")
	})

	t.Run("accent is significant", func(t *testing.T) {
		ds, err := dataset.New(
			dataset.StringColumn(ColMes, "Enero"),
			dataset.StringColumn("Categoria", "A"),
			dataset.FloatColumn(ColCantidadVendida, 1),
			dataset.FloatColumn(ColIngresoTotal, 1),
			dataset.FloatColumn(ColISV, 1),
			dataset.FloatColumn(ColUtilidadBruta, 1),
		)
		require.NoError(t, err)
		err = Validate(ds)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "Categoría")
	})

	t.Run("single column from a semicolon file read with commas", func(t *testing.T) {
		ds, err := dataset.FromRecords([][]string{
			{"Mes;Categoría;Cantidad Vendida;Ingreso Total;ISV;Utilidad Bruta"},
			{"Enero;A;10;100;15;30"},
		})
		require.NoError(t, err)
		err = Validate(ds)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "Mes")
	})
}

func TestSuggestions(t *testing.T) {
	ds, err := dataset.New(
		dataset.StringColumn(ColMes, "Enero"),
		dataset.StringColumn("categoria", "A"),
		dataset.FloatColumn("Cantidad vendida", 1),
		dataset.FloatColumn(ColIngresoTotal, 1),
		dataset.FloatColumn(ColISV, 1),
		dataset.FloatColumn(ColUtilidadBruta, 1),
	)
	require.NoError(t, err)

	got := Suggestions(ds)
	assert.Equal(t, []string{"categoria"}, got[ColCategoria])
	assert.Equal(t, []string{"Cantidad vendida"}, got[ColCantidadVendida])

	assert.Nil(t, Suggestions(validDataset(t)))
}
