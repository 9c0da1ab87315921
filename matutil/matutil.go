// Package matutil collects small matrix helpers shared by the model,
// filtering and fitting packages.
package matutil

import (
	"math"

	"gonum.org/v1/gonum/mat"
)

// Eye returns the (n by n) identity matrix.
func Eye(n int) *mat.Dense {
	data := make([]float64, n*n)
	for i := 0; i < n; i++ {
		data[i*n+i] = 1
	}
	return mat.NewDense(n, n, data)
}

// Symmetrize copies m into dst, averaging m with its transpose. Covariance
// recursions accumulate tiny asymmetries; all covariance outputs pass through
// here before they are handed to callers.
func Symmetrize(dst *mat.SymDense, m mat.Matrix) {
	r, c := m.Dims()
	if r != c || r != dst.SymmetricDim() {
		panic("matutil: dimension mismatch in Symmetrize")
	}
	for i := 0; i < r; i++ {
		for j := i; j < r; j++ {
			dst.SetSym(i, j, 0.5*(m.At(i, j)+m.At(j, i)))
		}
	}
}

// NaNOrInf reports whether any entry of m is NaN or infinite.
func NaNOrInf(m mat.Matrix) bool {
	r, c := m.Dims()
	for i := 0; i < r; i++ {
		for j := 0; j < c; j++ {
			if v := m.At(i, j); math.IsNaN(v) || math.IsInf(v, 0) {
				return true
			}
		}
	}
	return false
}
