package reference

import (
	"testing"

	"go.viam.com/test"

	"github.com/wheelbase-labs/trajsim/simconfig"
	"github.com/wheelbase-labs/trajsim/vehicle"
)

func straightLine(n int) ([]float64, []float64) {
	x := make([]float64, n)
	y := make([]float64, n)
	for i := range x {
		x[i] = float64(i)
		y[i] = 0
	}
	return x, y
}

func TestSanitizeTrimsSentinels(t *testing.T) {
	x := []float64{0, 1, 2, -1, -1}
	y := []float64{0, 1, 2, -1, -1}
	sx, sy := Sanitize(x, y, DefaultBuilderOptions(1))
	test.That(t, sx, test.ShouldResemble, []float64{0, 1, 2})
	test.That(t, sy, test.ShouldResemble, []float64{0, 1, 2})
}

func TestSanitizePadsShortPaths(t *testing.T) {
	x := []float64{0, 1}
	y := []float64{0, 1}
	sx, sy := Sanitize(x, y, DefaultBuilderOptions(42))
	test.That(t, len(sx), test.ShouldBeGreaterThanOrEqualTo, 3)
	test.That(t, len(sy), test.ShouldEqual, len(sx))
	// padded point strictly follows the last real one
	test.That(t, sx[2], test.ShouldBeGreaterThan, sx[1])
}

func TestSanitizeDeterministicWithSameSeed(t *testing.T) {
	x := []float64{0, 1}
	y := []float64{0, 1}
	sx1, sy1 := Sanitize(x, y, DefaultBuilderOptions(7))
	sx2, sy2 := Sanitize(x, y, DefaultBuilderOptions(7))
	test.That(t, sx1, test.ShouldResemble, sx2)
	test.That(t, sy1, test.ShouldResemble, sy2)
}

func TestBuildSpeedProfileEndsAtZero(t *testing.T) {
	x, y := straightLine(20)
	c := simconfig.Default()
	p := Build(x, y, c, DefaultBuilderOptions(c.Seed))
	test.That(t, p.SP[len(p.SP)-1], test.ShouldEqual, 0.0)
	for i := 0; i < len(p.SP)-1; i++ {
		test.That(t, p.SP[i], test.ShouldAlmostEqual, c.TargetSpeed)
	}
}

func TestCalcRefTrajectoryTargetIndexMonotonic(t *testing.T) {
	x, y := straightLine(50)
	c := simconfig.Default()
	p := Build(x, y, c, DefaultBuilderOptions(c.Seed))

	prevInd := 0
	s := vehicle.State{X: 0, Y: 0, Yaw: 0, V: c.TargetSpeed}
	for tick := 0; tick < 30; tick++ {
		w := CalcRefTrajectory(p, s, prevInd, c)
		test.That(t, w.TargetIndex, test.ShouldBeGreaterThanOrEqualTo, prevInd)
		prevInd = w.TargetIndex
		s.X += s.V * c.DT
	}
}

func TestCalcRefTrajectoryNeverOutOfBounds(t *testing.T) {
	x, y := straightLine(10)
	c := simconfig.Default()
	p := Build(x, y, c, DefaultBuilderOptions(c.Seed))
	s := vehicle.State{X: 9, Y: 0, Yaw: 0, V: c.MaxSpeed}
	w := CalcRefTrajectory(p, s, 9, c)
	_, cols := w.XRef.Dims()
	for i := 0; i < cols; i++ {
		test.That(t, w.XRef.At(0, i), test.ShouldAlmostEqual, p.CX[p.Len()-1])
	}
}
