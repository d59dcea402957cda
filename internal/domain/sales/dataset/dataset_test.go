package dataset

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFromRecords(t *testing.T) {
	t.Run("builds text columns from header and rows", func(t *testing.T) {
		ds, err := FromRecords([][]string{
			{"Mes", "Categoría", "Ingreso Total"},
			{"Enero", "A", "100"},
			{"Febrero", "B", "200"},
		})
		require.NoError(t, err)

		assert.Equal(t, []string{"Mes", "Categoría", "Ingreso Total"}, ds.Columns())
		assert.Equal(t, 2, ds.Len())
		assert.False(t, ds.IsNumeric("Ingreso Total"))

		mes, err := ds.Strings("Mes")
		require.NoError(t, err)
		assert.Equal(t, []string{"Enero", "Febrero"}, mes)
	})

	t.Run("pads short rows and truncates long ones", func(t *testing.T) {
		ds, err := FromRecords([][]string{
			{"a", "b"},
			{"1"},
			{"2", "3", "4"},
		})
		require.NoError(t, err)

		b, err := ds.Strings("b")
		require.NoError(t, err)
		assert.Equal(t, []string{"", "3"}, b)
	})

	t.Run("rejects header-only input", func(t *testing.T) {
		_, err := FromRecords([][]string{{"a", "b"}})
		assert.ErrorIs(t, err, ErrNoRows)
	})

	t.Run("rejects empty input", func(t *testing.T) {
		_, err := FromRecords(nil)
		assert.ErrorIs(t, err, ErrNoColumns)
	})
}

func TestNormalizeHeader(t *testing.T) {
	got := NormalizeHeader([]string{"\uFEFFMes ", "", "ISV", "ISV", " "})
	assert.Equal(t, []string{"Mes", "Unnamed: 1", "ISV", "ISV.1", "Unnamed: 4"}, got)
}

func TestConcat(t *testing.T) {
	a, err := FromRecords([][]string{{"x", "y"}, {"1", "2"}})
	require.NoError(t, err)
	b, err := FromRecords([][]string{{"x", "y"}, {"3", "4"}})
	require.NoError(t, err)
	c, err := FromRecords([][]string{{"x", "z"}, {"5", "6"}})
	require.NoError(t, err)

	joined, err := Concat(a, b)
	require.NoError(t, err)
	assert.Equal(t, 2, joined.Len())

	_, err = Concat(a, c)
	assert.ErrorIs(t, err, ErrColumnsMismatch)
}

func TestRecords(t *testing.T) {
	ds, err := New(
		StringColumn("Mes", "Enero", "Febrero"),
		FloatColumn("ISV", 1.5, math.NaN()),
	)
	require.NoError(t, err)

	assert.Equal(t, [][]string{
		{"Mes", "ISV"},
		{"Enero", "1.5"},
		{"Febrero", ""},
	}, ds.Records())
}

func TestNew_LengthMismatch(t *testing.T) {
	_, err := New(StringColumn("a", "x"), FloatColumn("b", 1, 2))
	assert.Error(t, err)
}
