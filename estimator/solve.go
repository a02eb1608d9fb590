package estimator

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"
)

const pivotEps = 1e-12

// lstsq solves the ordinary least squares problem for the design matrix x and
// target y through the normal equations XᵗX·β = Xᵗy. The normal equations are
// solved with Gaussian elimination using partial pivoting since lag matrices
// of highly autocorrelated series are commonly ill conditioned.
func lstsq(x *mat.Dense, y []float64) ([]float64, error) {
	rows, cols := x.Dims()
	if rows < cols {
		return nil, fmt.Errorf("%d observations for %d coefficients, %w", rows, cols, ErrEstimationFailure)
	}

	var xtx mat.Dense
	xtx.Mul(x.T(), x)

	yMx := mat.NewDense(rows, 1, y)
	var xty mat.Dense
	xty.Mul(x.T(), yMx)

	a := make([][]float64, cols)
	b := make([]float64, cols)
	for i := 0; i < cols; i++ {
		a[i] = make([]float64, cols)
		for j := 0; j < cols; j++ {
			a[i][j] = xtx.At(i, j)
		}
		b[i] = xty.At(i, 0)
	}

	return solveLinear(a, b)
}

// solveLinear performs in-place Gaussian elimination with partial pivoting on
// the square system a·x = b.
func solveLinear(a [][]float64, b []float64) ([]float64, error) {
	n := len(b)

	for col := 0; col < n; col++ {
		// pick the row with the largest magnitude pivot
		pivotRow := col
		pivotVal := math.Abs(a[col][col])
		for row := col + 1; row < n; row++ {
			if v := math.Abs(a[row][col]); v > pivotVal {
				pivotVal = v
				pivotRow = row
			}
		}
		if pivotVal < pivotEps {
			return nil, fmt.Errorf("singular normal equations at column %d, %w", col, ErrEstimationFailure)
		}
		if pivotRow != col {
			a[col], a[pivotRow] = a[pivotRow], a[col]
			b[col], b[pivotRow] = b[pivotRow], b[col]
		}

		for row := col + 1; row < n; row++ {
			factor := a[row][col] / a[col][col]
			if factor == 0 {
				continue
			}
			for k := col; k < n; k++ {
				a[row][k] -= factor * a[col][k]
			}
			b[row] -= factor * b[col]
		}
	}

	x := make([]float64, n)
	for row := n - 1; row >= 0; row-- {
		sum := b[row]
		for col := row + 1; col < n; col++ {
			sum -= a[row][col] * x[col]
		}
		x[row] = sum / a[row][row]
	}

	for _, v := range x {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return nil, fmt.Errorf("non-finite solution coefficient, %w", ErrEstimationFailure)
		}
	}
	return x, nil
}
