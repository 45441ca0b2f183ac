package vehicle

import (
	"math"

	"gonum.org/v1/gonum/mat"

	"github.com/wheelbase-labs/trajsim/simconfig"
)

// LinearModel is the affine discretization x_{t+1} = A*x_t + B*u_t + C of
// the kinematic bicycle model about operating point (v, phi, delta), state
// ordered [x, y, v, yaw] and input ordered [a, delta].
type LinearModel struct {
	A *mat.Dense
	B *mat.Dense
	C *mat.VecDense
}

// Linearize computes the affine (A, B, C) triple at operating point
// (v, phi, delta). C carries the Taylor-expansion residual so the affine
// model is exact at the operating point.
//
// A division-by-zero is impossible here: cos(delta)^2 only vanishes at
// delta = +/- pi/2, far outside [-MAX_STEER, MAX_STEER] (45 degrees).
func Linearize(v, phi, delta float64, c *simconfig.Constants) LinearModel {
	a := mat.NewDense(4, 4, nil)
	a.Set(0, 0, 1)
	a.Set(1, 1, 1)
	a.Set(2, 2, 1)
	a.Set(3, 3, 1)
	a.Set(0, 2, c.DT*math.Cos(phi))
	a.Set(0, 3, -c.DT*v*math.Sin(phi))
	a.Set(1, 2, c.DT*math.Sin(phi))
	a.Set(1, 3, c.DT*v*math.Cos(phi))
	a.Set(3, 2, c.DT*math.Tan(delta)/c.WB)

	b := mat.NewDense(4, 2, nil)
	b.Set(2, 0, c.DT)
	cosDelta := math.Cos(delta)
	b.Set(3, 1, c.DT*v/(c.WB*cosDelta*cosDelta))

	cc := mat.NewVecDense(4, nil)
	cc.SetVec(0, c.DT*v*math.Sin(phi)*phi)
	cc.SetVec(1, -c.DT*v*math.Cos(phi)*phi)
	cc.SetVec(3, -c.DT*v*delta/(c.WB*cosDelta*cosDelta))

	return LinearModel{A: a, B: b, C: cc}
}

// Vec returns the state as the [x, y, v, yaw] column vector used throughout
// the linear algebra in package mpc.
func (s State) Vec() *mat.VecDense {
	return mat.NewVecDense(4, []float64{s.X, s.Y, s.V, s.Yaw})
}

// FromVec reconstructs a State from a [x, y, v, yaw] column vector.
func FromVec(v *mat.VecDense) State {
	return State{X: v.AtVec(0), Y: v.AtVec(1), V: v.AtVec(2), Yaw: v.AtVec(3)}
}
