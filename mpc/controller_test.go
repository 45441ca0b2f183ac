package mpc

import (
	"testing"

	"go.viam.com/test"

	"github.com/wheelbase-labs/trajsim/control"
	"github.com/wheelbase-labs/trajsim/reference"
	"github.com/wheelbase-labs/trajsim/simconfig"
	"github.com/wheelbase-labs/trajsim/vehicle"
)

func straightPath(n int, c *simconfig.Constants) reference.Path {
	x := make([]float64, n)
	y := make([]float64, n)
	for i := range x {
		x[i] = float64(i) * c.DL
	}
	return reference.Build(x, y, c, reference.DefaultBuilderOptions(c.Seed))
}

func TestBuildQPDimensions(t *testing.T) {
	c := simconfig.Default()
	p := straightPath(30, c)
	x0 := vehicle.State{X: 0, Y: 0, Yaw: 0, V: 0}
	w := reference.CalcRefTrajectory(p, x0, 0, c)
	xbar := vehicle.PredictMotion(x0, make([]float64, c.Horizon), make([]float64, c.Horizon), c)

	qp := buildQP(w, xbar, x0, c)
	n := 2 * c.Horizon
	rows, cols := qp.P.Dims()
	test.That(t, rows, test.ShouldEqual, n)
	test.That(t, cols, test.ShouldEqual, n)
	test.That(t, qp.Q.Len(), test.ShouldEqual, n)

	arows, acols := qp.A.Dims()
	test.That(t, acols, test.ShouldEqual, n)
	test.That(t, arows, test.ShouldEqual, qp.L.Len())
	test.That(t, arows, test.ShouldEqual, qp.U.Len())
}

func TestControllerSolveStraightLineDoesNotFail(t *testing.T) {
	c := simconfig.Default()
	p := straightPath(30, c)
	x0 := vehicle.State{X: 0, Y: 0, Yaw: 0, V: 0}
	w := reference.CalcRefTrajectory(p, x0, 0, c)

	ctl := NewController(c, nil)
	res := ctl.Solve(x0, w, control.Seed(c.Horizon))

	test.That(t, res.Status, test.ShouldNotEqual, StatusFailed)
	test.That(t, len(res.Trace.OA), test.ShouldEqual, c.Horizon)
	test.That(t, len(res.Trace.OD), test.ShouldEqual, c.Horizon)
	test.That(t, len(res.Xbar), test.ShouldEqual, c.Horizon+1)

	// Starting from rest with a forward target speed, the first planned
	// acceleration should be non-negative.
	test.That(t, res.Trace.OA[0], test.ShouldBeGreaterThanOrEqualTo, -1e-6)
}

func TestControllerSolveCollapsesOptimalInaccurateToCoastFallback(t *testing.T) {
	c := simconfig.Default()
	p := straightPath(30, c)
	x0 := vehicle.State{X: 0, Y: 0, Yaw: 0, V: c.TargetSpeed}
	w := reference.CalcRefTrajectory(p, x0, 0, c)

	ctl := NewController(c, nil)
	// Starving the ADMM inner solve of iterations forces it to exhaust its
	// budget short of tol, i.e. StatusOptimalInaccurate every relinearization
	// round; Solve must report that as StatusFailed and hold the warm trace
	// rather than act on the unconverged plan.
	ctl.Options.ADMMIter = 1

	warm := control.Seed(c.Horizon)
	warm.OA[0] = 0.42
	res := ctl.Solve(x0, w, warm)

	test.That(t, res.Status, test.ShouldEqual, StatusFailed)
	test.That(t, res.Trace, test.ShouldResemble, warm)
}

func TestControllerSolveRespectsSteerBounds(t *testing.T) {
	c := simconfig.Default()
	p := straightPath(30, c)
	x0 := vehicle.State{X: 0, Y: 0, Yaw: 0, V: c.TargetSpeed}
	w := reference.CalcRefTrajectory(p, x0, 0, c)

	ctl := NewController(c, nil)
	res := ctl.Solve(x0, w, control.Seed(c.Horizon))

	for _, d := range res.Trace.OD {
		test.That(t, d, test.ShouldBeLessThanOrEqualTo, c.MaxSteer+1e-2)
		test.That(t, d, test.ShouldBeGreaterThanOrEqualTo, -c.MaxSteer-1e-2)
	}
}
