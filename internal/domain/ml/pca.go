package ml

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"

	"github.com/FACorreiaa/sales-insights/internal/domain/sales/dataset"
)

var (
	ErrInvalidComponents = errors.New("invalid number of components")
	ErrZeroVariance      = errors.New("selected columns have no variance")
	ErrDecomposition     = errors.New("principal component decomposition failed")
)

// PCAResult is the projection of the complete rows onto the leading components.
type PCAResult struct {
	Columns    []string    `json:"columns"`
	Components [][]float64 `json:"components"` // rows x p
	Explained  []float64   `json:"explained"`  // length p, non-increasing
	Loadings   [][]float64 `json:"loadings"`   // p x len(Columns)
	RowIndex   []int       `json:"row_index"`
}

// RunPCA standardizes the selected columns, drops rows with missing values and
// projects them onto the top p principal directions. Each component is signed
// so its largest-magnitude loading is positive.
func RunPCA(ds *dataset.Dataset, cols []string, p int) (*PCAResult, error) {
	x, rowIndex, err := complete(ds, cols)
	if err != nil {
		return nil, processing("No se pudo ejecutar PCA", err)
	}
	if len(x) == 0 {
		return nil, processing("No se pudo ejecutar PCA", ErrNoCompleteRows)
	}
	if p < 1 || p > min(len(x), len(cols)) {
		return nil, processing("No se pudo ejecutar PCA",
			fmt.Errorf("%w: %d (rows %d, columns %d)", ErrInvalidComponents, p, len(x), len(cols)))
	}

	z := FitScaler(x).Transform(x)
	n, d := len(z), len(cols)
	data := mat.NewDense(n, d, nil)
	for i, row := range z {
		data.SetRow(i, row)
	}

	var pc stat.PC
	if ok := pc.PrincipalComponents(data, nil); !ok {
		return nil, processing("No se pudo ejecutar PCA", ErrDecomposition)
	}

	vars := pc.VarsTo(nil)
	total := 0.0
	for _, v := range vars {
		total += v
	}
	if total <= 0 || math.IsNaN(total) {
		return nil, processing("No se pudo ejecutar PCA", ErrZeroVariance)
	}

	var vecs mat.Dense
	pc.VectorsTo(&vecs)

	res := &PCAResult{
		Columns:   append([]string(nil), cols...),
		Explained: make([]float64, p),
		Loadings:  make([][]float64, p),
		RowIndex:  rowIndex,
	}
	for k := 0; k < p; k++ {
		res.Explained[k] = vars[k] / total

		loading := make([]float64, d)
		big := 0
		for j := 0; j < d; j++ {
			loading[j] = vecs.At(j, k)
			if math.Abs(loading[j]) > math.Abs(loading[big]) {
				big = j
			}
		}
		if loading[big] < 0 {
			for j := range loading {
				loading[j] = -loading[j]
			}
		}
		res.Loadings[k] = loading
	}

	res.Components = make([][]float64, n)
	for i, row := range z {
		comp := make([]float64, p)
		for k := 0; k < p; k++ {
			for j, v := range row {
				comp[k] += v * res.Loadings[k][j]
			}
		}
		res.Components[i] = comp
	}
	return res, nil
}

// Records renders the components with their original row index.
func (r *PCAResult) Records() [][]string {
	header := []string{"fila"}
	for k := range r.Explained {
		header = append(header, fmt.Sprintf("PC%d", k+1))
	}
	out := [][]string{header}
	for i, comp := range r.Components {
		row := []string{fmt.Sprint(r.RowIndex[i])}
		for _, v := range comp {
			row = append(row, dataset.FormatFloat(v))
		}
		out = append(out, row)
	}
	return out
}
