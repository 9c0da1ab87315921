package ssm

import (
	"fmt"

	"gonum.org/v1/gonum/mat"

	"github.com/EduardoEstradaRs/PsychMeths2019-Developmental-Processes-ALD-DT-CT-LCS/matutil"
)

// Discretize maps the continuous-time dynamics (A, Q) onto an observation
// interval of length dt, returning the discrete transition matrix
//
//	Phi(dt) = e^(A dt)
//
// and the accumulated process noise covariance
//
//	Qd(dt) = int_0^dt e^(A s) Q e^(A^T s) ds.
//
// Both come out of a single matrix exponential of the stacked block system
//
//	M = [[-A, Q], [0, A^T]] dt,   e^M = [[.., E12], [0, E22]]
//
// for which Phi = E22^T and Qd = Phi E12 (Van Loan). When Q is structurally
// zero the off-diagonal block of e^M is exactly zero, so Qd = 0 exactly.
//
// dt must be non-negative; dt = 0 yields the identity transition and zero
// noise, covering a first observation that coincides with the time origin.
func Discretize(A, Q mat.Matrix, dt float64) (*mat.Dense, *mat.SymDense, error) {
	n, c := A.Dims()
	if n != c {
		return nil, nil, fmt.Errorf("ssm: drift matrix is %dx%d, want square", n, c)
	}
	if qr, qc := Q.Dims(); qr != n || qc != n {
		return nil, nil, fmt.Errorf("ssm: noise matrix is %dx%d, want %dx%d", qr, qc, n, n)
	}
	if dt < 0 {
		return nil, nil, fmt.Errorf("ssm: negative interval %v", dt)
	}
	phi := mat.NewDense(n, n, nil)
	qd := mat.NewSymDense(n, nil)
	if dt == 0 {
		phi.Copy(matutil.Eye(n))
		return phi, qd, nil
	}

	// Stack M = [[-A, Q], [0, A^T]] scaled by dt.
	m := mat.NewDense(2*n, 2*n, nil)
	tl := m.Slice(0, n, 0, n).(*mat.Dense)
	tr := m.Slice(0, n, n, 2*n).(*mat.Dense)
	br := m.Slice(n, 2*n, n, 2*n).(*mat.Dense)
	tl.Scale(-dt, A)
	tr.Scale(dt, Q)
	br.Scale(dt, A.T())

	var e mat.Dense
	e.Exp(m)
	if matutil.NaNOrInf(&e) {
		return nil, nil, fmt.Errorf("ssm: matrix exponential overflowed for interval %v", dt)
	}

	e12 := e.Slice(0, n, n, 2*n)
	e22 := e.Slice(n, 2*n, n, 2*n)
	phi.Copy(e22.T())

	var qdDense mat.Dense
	qdDense.Mul(phi, e12)
	matutil.Symmetrize(qd, &qdDense)
	return phi, qd, nil
}
