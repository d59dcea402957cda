// Package ml runs the unsupervised models of the dashboard: a standard
// scaler, principal component analysis and K-Means clustering.
package ml

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/stat"

	"github.com/FACorreiaa/sales-insights/internal/domain/sales/dataset"
	"github.com/FACorreiaa/sales-insights/pkg/apperr"
)

var (
	ErrNoColumnsSelected = errors.New("no columns selected")
	ErrNoCompleteRows    = errors.New("no rows without missing values")
)

// complete extracts the selected columns as a row-major matrix, keeping only
// rows with no missing value. rowIndex maps each kept row to its original index.
func complete(ds *dataset.Dataset, cols []string) (x [][]float64, rowIndex []int, err error) {
	if len(cols) == 0 {
		return nil, nil, ErrNoColumnsSelected
	}

	columns := make([][]float64, len(cols))
	for j, c := range cols {
		if !ds.Has(c) {
			return nil, nil, fmt.Errorf("%w: %s", dataset.ErrColumnNotFound, c)
		}
		columns[j], err = ds.Floats(c)
		if err != nil {
			return nil, nil, err
		}
	}

	for i := 0; i < ds.Len(); i++ {
		row := make([]float64, len(cols))
		ok := true
		for j := range cols {
			v := columns[j][i]
			if math.IsNaN(v) || math.IsInf(v, 0) {
				ok = false
				break
			}
			row[j] = v
		}
		if ok {
			x = append(x, row)
			rowIndex = append(rowIndex, i)
		}
	}
	return x, rowIndex, nil
}

// Scaler standardizes columns to zero mean and unit population variance.
type Scaler struct {
	Mean  []float64
	Scale []float64
}

// FitScaler learns column means and population standard deviations. A column
// with zero variance gets a scale of 1 so it maps to zeros.
func FitScaler(x [][]float64) Scaler {
	if len(x) == 0 {
		return Scaler{}
	}
	d := len(x[0])
	s := Scaler{Mean: make([]float64, d), Scale: make([]float64, d)}
	col := make([]float64, len(x))
	for j := 0; j < d; j++ {
		for i := range x {
			col[i] = x[i][j]
		}
		mean, variance := stat.PopMeanVariance(col, nil)
		s.Mean[j] = mean
		s.Scale[j] = math.Sqrt(variance)
		if s.Scale[j] == 0 || math.IsNaN(s.Scale[j]) {
			s.Scale[j] = 1
		}
	}
	return s
}

// Transform returns a standardized copy of x.
func (s Scaler) Transform(x [][]float64) [][]float64 {
	out := make([][]float64, len(x))
	for i, row := range x {
		out[i] = make([]float64, len(row))
		for j, v := range row {
			out[i][j] = (v - s.Mean[j]) / s.Scale[j]
		}
	}
	return out
}

func processing(message string, cause error) error {
	return apperr.Processing(message, cause)
}
