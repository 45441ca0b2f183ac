package mpc

import (
	"gonum.org/v1/gonum/mat"

	"github.com/wheelbase-labs/trajsim/reference"
	"github.com/wheelbase-labs/trajsim/simconfig"
	"github.com/wheelbase-labs/trajsim/vehicle"
)

// idx returns the stacked-vector offset of input component c (0 = accel,
// 1 = steer) at horizon step t.
func idx(t, c int) int { return 2*t + c }

// buildQP condenses the horizon dynamics and cost into a dense QP over
// the stacked input sequence, at the operating-point trajectory
// xbar (from vehicle.PredictMotion) and reference window w.
func buildQP(w reference.Window, xbar []vehicle.State, x0 vehicle.State, c *simconfig.Constants) *QP {
	t := c.Horizon
	n := 2 * t
	cd := condense(xbar, w.DRef, x0, c)

	p := mat.NewDense(n, n, nil)
	q := mat.NewVecDense(n, nil)

	addAt := func(i, j int, v float64) { p.Set(i, j, p.At(i, j)+v) }
	addQ := func(i int, v float64) { q.SetVec(i, q.AtVec(i)+v) }

	// Input cost: sum_t u_t' R u_t.
	for i := 0; i < t; i++ {
		addAt(idx(i, 0), idx(i, 0), c.R[0])
		addAt(idx(i, 1), idx(i, 1), c.R[1])
	}

	// Input-rate cost: sum_t (u_{t+1}-u_t)' Rd (u_{t+1}-u_t).
	for i := 0; i < t-1; i++ {
		for comp := 0; comp < 2; comp++ {
			rd := c.Rd[comp]
			a, b := idx(i, comp), idx(i+1, comp)
			addAt(a, a, rd)
			addAt(b, b, rd)
			addAt(a, b, -rd)
			addAt(b, a, -rd)
		}
	}

	// State tracking cost: sum_{i=1}^{T-1} (xref_i - x_i)' Q (xref_i - x_i),
	// plus the terminal Qf term at i=T.
	addStateCost := func(step int, weights [4]float64) {
		ref := refColumn(w, step)
		h := cd.h[step]
		r := mat.NewVecDense(4, nil)
		for d := 0; d < 4; d++ {
			r.SetVec(d, ref[d]-h.AtVec(d))
		}
		gs := cd.g[step]
		for j := 0; j < step; j++ {
			// linear term: q[j] += G_j' Q r
			gj := gs[j]
			for comp := 0; comp < 2; comp++ {
				sum := 0.0
				for d := 0; d < 4; d++ {
					sum += gj.At(d, comp) * weights[d] * r.AtVec(d)
				}
				addQ(idx(j, comp), sum)
			}
			for k := 0; k < step; k++ {
				gk := gs[k]
				for a := 0; a < 2; a++ {
					for b := 0; b < 2; b++ {
						sum := 0.0
						for d := 0; d < 4; d++ {
							sum += gj.At(d, a) * weights[d] * gk.At(d, b)
						}
						addAt(idx(j, a), idx(k, b), sum)
					}
				}
			}
		}
	}

	for i := 1; i < t; i++ {
		addStateCost(i, c.Q)
	}
	addStateCost(t, c.Qf)

	// Constraints: rows of A with two-sided bounds l <= A*u <= u.
	var rows [][]float64
	var lo, hi []float64

	// Direct box bounds on accel/steer, expressed as general rows so the
	// same ADMM projection handles every constraint uniformly.
	for i := 0; i < t; i++ {
		accelRow := make([]float64, n)
		accelRow[idx(i, 0)] = 1
		rows = append(rows, accelRow)
		lo = append(lo, -c.MaxAccel)
		hi = append(hi, c.MaxAccel)

		steerRow := make([]float64, n)
		steerRow[idx(i, 1)] = 1
		rows = append(rows, steerRow)
		lo = append(lo, -c.MaxSteer)
		hi = append(hi, c.MaxSteer)
	}

	// Speed box on x_{2,step} for step = 1..T (step 0 is fixed to x0, no
	// constraint on u is possible there).
	for step := 1; step <= t; step++ {
		row := make([]float64, n)
		for j := 0; j < step; j++ {
			gj := cd.g[step][j]
			row[idx(j, 0)] += gj.At(2, 0)
			row[idx(j, 1)] += gj.At(2, 1)
		}
		rows = append(rows, row)
		hv := cd.h[step].AtVec(2)
		lo = append(lo, c.MinSpeed-hv)
		hi = append(hi, c.MaxSpeed-hv)
	}

	// Steer-rate constraint between consecutive steps.
	for i := 0; i < t-1; i++ {
		row := make([]float64, n)
		row[idx(i+1, 1)] = 1
		row[idx(i, 1)] = -1
		rows = append(rows, row)
		lo = append(lo, -c.MaxDSteer*c.DT)
		hi = append(hi, c.MaxDSteer*c.DT)
	}

	m := len(rows)
	a := mat.NewDense(m, n, nil)
	l := mat.NewVecDense(m, nil)
	u := mat.NewVecDense(m, nil)
	for i, row := range rows {
		for j, v := range row {
			a.Set(i, j, v)
		}
		l.SetVec(i, lo[i])
		u.SetVec(i, hi[i])
	}

	return &QP{P: p, Q: q, A: a, L: l, U: u}
}
