// Package mpc implements the linear-time-varying MPC controller:
// per-tick relinearization of the kinematic bicycle model
// (package vehicle) about a predicted rollout, condensing the resulting
// dynamics into a dense QP over the stacked control sequence, and solving
// it with an active-set-free ADMM iteration (gonum/mat has no QP solver of
// its own, see DESIGN.md).
package mpc

import (
	"math"

	"gonum.org/v1/gonum/mat"
)

// Status is the explicit solver outcome, carried instead of a bare
// error: "converged", "ran out of iterations but within a loose
// feasibility bound", and "unusable". The iterative relinearization loop
// acts only on StatusOptimal and treats the other two alike.
type Status int

const (
	// StatusOptimal means the ADMM residuals dropped below tolerance.
	StatusOptimal Status = iota
	// StatusOptimalInaccurate means the iteration budget was exhausted but
	// the last iterate still satisfies every constraint to a looser bound.
	StatusOptimalInaccurate
	// StatusFailed means the iterate violates constraints beyond the loose
	// bound, or the KKT factorization could not be formed.
	StatusFailed
)

func (s Status) String() string {
	switch s {
	case StatusOptimal:
		return "optimal"
	case StatusOptimalInaccurate:
		return "optimal-inaccurate"
	case StatusFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// QP is a condensed, dense quadratic program over the stacked control
// sequence u (length 2T): minimize u'Pu - 2*q'u subject to l <= A*u <= u.
// P is symmetric positive semi-definite by construction (sums of diagonal
// R/Rd/Q quadratic forms propagated through linear maps).
type QP struct {
	P    *mat.Dense
	Q    *mat.VecDense
	A    *mat.Dense
	L, U *mat.VecDense
}

// admmSolve solves qp by ADMM splitting on the linear constraint
// l <= A*u <= ubound (Boyd et al.'s "ADMM for QP", the box-constrained
// special case of OSQP without the sigma regularization/over-relaxation
// OSQP adds for ill-conditioned problems -- not needed at this problem
// size). rho is the penalty weight, maxIter/tol bound the iteration.
func admmSolve(qp *QP, rho float64, maxIter int, tol float64) (*mat.VecDense, Status) {
	n, _ := qp.P.Dims()
	m, _ := qp.A.Dims()

	// K = P + rho * A'A, constant across iterations: factor once.
	at := mat.DenseCopyOf(qp.A.T())
	ata := mat.NewDense(n, n, nil)
	ata.Mul(at, qp.A)
	k := mat.NewDense(n, n, nil)
	k.Scale(rho, ata)
	k.Add(k, qp.P)

	var chol mat.Cholesky
	if ok := chol.Factorize(mat.NewSymDense(n, symData(k, n))); !ok {
		return nil, StatusFailed
	}

	x := mat.NewVecDense(n, nil)
	z := mat.NewVecDense(m, nil)
	y := mat.NewVecDense(m, nil)

	rhs := mat.NewVecDense(n, nil)
	axv := mat.NewVecDense(m, nil)

	status := StatusOptimalInaccurate
	for iter := 0; iter < maxIter; iter++ {
		// x-update: solve K x = q + rho*A'(z - y/rho)
		tmp := mat.NewVecDense(m, nil)
		tmp.ScaleVec(1.0/rho, y)
		tmp.SubVec(z, tmp)
		rhs.MulVec(at, tmp)
		rhs.ScaleVec(rho, rhs)
		rhs.AddVec(rhs, qp.Q)
		if err := chol.SolveVecTo(x, rhs); err != nil {
			return nil, StatusFailed
		}

		// z-update: project A*x + y/rho onto [l, u].
		axv.MulVec(qp.A, x)
		zPrev := mat.VecDenseCopyOf(z)
		for i := 0; i < m; i++ {
			v := axv.AtVec(i) + y.AtVec(i)/rho
			z.SetVec(i, clampTo(v, qp.L.AtVec(i), qp.U.AtVec(i)))
		}

		// y-update: dual ascent.
		rPrimal := mat.NewVecDense(m, nil)
		rPrimal.SubVec(axv, z)
		scaled := mat.NewVecDense(m, nil)
		scaled.ScaleVec(rho, rPrimal)
		y.AddVec(y, scaled)

		primalResid := vecNorm(rPrimal)
		dualTmp := mat.NewVecDense(m, nil)
		dualTmp.SubVec(z, zPrev)
		dualResid := rho * vecNorm(dualTmp)

		if primalResid < tol && dualResid < tol {
			status = StatusOptimal
			break
		}
	}

	// Final feasibility check against a looser bound; catches divergence.
	axv.MulVec(qp.A, x)
	const slack = 1e-2
	for i := 0; i < m; i++ {
		if axv.AtVec(i) < qp.L.AtVec(i)-slack || axv.AtVec(i) > qp.U.AtVec(i)+slack {
			return x, StatusFailed
		}
	}
	return x, status
}

func clampTo(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func vecNorm(v *mat.VecDense) float64 {
	n := v.Len()
	sum := 0.0
	for i := 0; i < n; i++ {
		sum += v.AtVec(i) * v.AtVec(i)
	}
	return math.Sqrt(sum)
}

// symData reads back the symmetric dense matrix k into the packed slice
// gonum's mat.NewSymDense expects.
func symData(k *mat.Dense, n int) []float64 {
	data := make([]float64, n*n)
	for i := 0; i < n; i++ {
		for j := 0; j < n; j++ {
			data[i*n+j] = k.At(i, j)
		}
	}
	return data
}
