package mpc

import (
	"gonum.org/v1/gonum/mat"

	"github.com/wheelbase-labs/trajsim/reference"
	"github.com/wheelbase-labs/trajsim/simconfig"
	"github.com/wheelbase-labs/trajsim/vehicle"
)

// condensed holds, for each horizon step t = 0..T, the affine expression of
// the predicted state x_t as a function of the stacked input u:
//
//	x_t = h[t] + sum_{j=0}^{t-1} g[t][j] * u_j
//
// built by propagating the per-step linear models (A_t, B_t, C_t) forward
// from x0, the standard "condensing" step that eliminates the state
// sequence from an MPC QP so only the input sequence remains as a decision
// variable (the dynamics equality constraints are satisfied exactly by
// substitution rather than carried as QP constraints).
type condensed struct {
	h      []*mat.VecDense // length T+1, h[t] is 4x1
	g      [][]*mat.Dense  // length T+1, g[t] has t entries, each 4x2
	models []vehicle.LinearModel
}

// condense builds the per-step linear models at the given operating-point
// trajectory xbar and reference steering dref, then propagates x0 forward.
func condense(xbar []vehicle.State, dref *mat.Dense, x0 vehicle.State, c *simconfig.Constants) condensed {
	t := c.Horizon
	models := make([]vehicle.LinearModel, t)
	for i := 0; i < t; i++ {
		models[i] = vehicle.Linearize(xbar[i].V, xbar[i].Yaw, dref.At(0, i), c)
	}

	h := make([]*mat.VecDense, t+1)
	g := make([][]*mat.Dense, t+1)
	h[0] = x0.Vec()
	g[0] = nil

	for i := 0; i < t; i++ {
		m := models[i]
		next := mat.NewVecDense(4, nil)
		next.MulVec(m.A, h[i])
		next.AddVec(next, m.C)
		h[i+1] = next

		g[i+1] = make([]*mat.Dense, i+1)
		for j := 0; j < i; j++ {
			prod := mat.NewDense(4, 2, nil)
			prod.Mul(m.A, g[i][j])
			g[i+1][j] = prod
		}
		g[i+1][i] = mat.DenseCopyOf(m.B)
	}

	return condensed{h: h, g: g, models: models}
}

// stateAt returns the predicted x_t as a function evaluator: given a
// candidate stacked input (flattened [a0,d0,a1,d1,...]), returns x_t.
func (cd condensed) stateAt(t int, u []float64) vehicle.State {
	v := mat.VecDenseCopyOf(cd.h[t])
	for j := 0; j < t; j++ {
		contrib := mat.NewVecDense(4, nil)
		uj := mat.NewVecDense(2, []float64{u[2*j], u[2*j+1]})
		contrib.MulVec(cd.g[t][j], uj)
		v.AddVec(v, contrib)
	}
	return vehicle.FromVec(v)
}

// refColumn extracts column i of window.XRef as a plain slice.
func refColumn(w reference.Window, i int) [4]float64 {
	return [4]float64{w.XRef.At(0, i), w.XRef.At(1, i), w.XRef.At(2, i), w.XRef.At(3, i)}
}
