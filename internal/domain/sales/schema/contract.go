// Package schema holds the column contract every sales dataset must satisfy
// and the validator enforcing it.
package schema

// Column names used across the analysis.
const (
	ColMes             = "Mes"
	ColCategoria       = "Categoría"
	ColCantidadVendida = "Cantidad Vendida"
	ColIngresoTotal    = "Ingreso Total"
	ColISV             = "ISV"
	ColUtilidadBruta   = "Utilidad Bruta"
	ColPrecioUnitario  = "Precio Unitario"
	ColCostoUnitario   = "Costo Unitario"
	ColCostoTotal      = "Costo Total"
	ColIngresoNeto     = "Ingreso Neto"
)

var requiredColumns = [...]string{
	ColMes,
	ColCategoria,
	ColCantidadVendida,
	ColIngresoTotal,
	ColISV,
	ColUtilidadBruta,
}

var numericVariables = [...]string{
	ColCantidadVendida,
	ColPrecioUnitario,
	ColIngresoTotal,
	ColCostoUnitario,
	ColCostoTotal,
	ColUtilidadBruta,
	ColISV,
	ColIngresoNeto,
}

var monthOrder = [...]string{
	"Enero", "Febrero", "Marzo", "Abril", "Mayo", "Junio",
	"Julio", "Agosto", "Septiembre", "Octubre", "Noviembre", "Diciembre",
}

// RequiredColumns returns the columns every dataset must contain, in contract order.
func RequiredColumns() []string {
	return append([]string(nil), requiredColumns[:]...)
}

// NumericVariables returns the columns eligible for numeric, statistical and ML treatment.
func NumericVariables() []string {
	return append([]string(nil), numericVariables[:]...)
}

// Months returns the canonical chronological month names.
func Months() []string {
	return append([]string(nil), monthOrder[:]...)
}

// MonthIndex returns the 0-based position of a canonical month name, or -1.
func MonthIndex(name string) int {
	for i, m := range monthOrder {
		if m == name {
			return i
		}
	}
	return -1
}
