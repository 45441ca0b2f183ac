package reference

import (
	"math"

	"gonum.org/v1/gonum/mat"

	"github.com/wheelbase-labs/trajsim/simconfig"
	"github.com/wheelbase-labs/trajsim/trajmath"
	"github.com/wheelbase-labs/trajsim/vehicle"
)

// Window is the per-tick MPC reference slice: xref spans [x,y,v,yaw] over
// the horizon, dref is the (always zero) reference steering, and
// TargetIndex is the monotonically non-decreasing cursor into the path.
type Window struct {
	XRef        *mat.Dense // 4 x (T+1)
	DRef        *mat.Dense // 1 x (T+1)
	TargetIndex int
}

// NearestIndex searches a bounded window [pind, pind+N) for the closest
// sample to state, returning a signed distance whose sign flips when the
// sample lies to the other side of the path's heading. It is also used
// to seed a vehicle's initial target index at setup.
func NearestIndex(p Path, s vehicle.State, pind, nSearch int) (ind int, signedDist float64) {
	end := pind + nSearch
	if end > p.Len() {
		end = p.Len()
	}
	minD := math.Inf(1)
	best := pind
	for i := pind; i < end; i++ {
		dx := s.X - p.CX[i]
		dy := s.Y - p.CY[i]
		d := dx*dx + dy*dy
		if d < minD {
			minD = d
			best = i
		}
	}
	mind := math.Sqrt(minD)
	dxl := p.CX[best] - s.X
	dyl := p.CY[best] - s.Y
	angle := trajmath.PI2PI(p.CYaw[best] - math.Atan2(dyl, dxl))
	if angle < 0 {
		mind *= -1
	}
	return best, mind
}

// CalcRefTrajectory builds the per-tick horizon window. The target index
// never decreases; xref/dref never index past the end of the path.
func CalcRefTrajectory(p Path, s vehicle.State, prevTargetInd int, c *simconfig.Constants) Window {
	ind, _ := NearestIndex(p, s, prevTargetInd, c.NIndexSearch)
	if prevTargetInd >= ind {
		ind = prevTargetInd
	}

	n := c.Horizon + 1
	xref := mat.NewDense(4, n, nil)
	dref := mat.NewDense(1, n, nil)

	ncourse := p.Len()
	travel := 0.0
	for i := 0; i < n; i++ {
		travel += math.Abs(s.V) * c.DT
		dind := int(math.Round(travel / c.DL))

		idx := ind + dind
		if idx >= ncourse {
			idx = ncourse - 1
		}
		xref.Set(0, i, p.CX[idx])
		xref.Set(1, i, p.CY[idx])
		xref.Set(2, i, p.SP[idx])
		xref.Set(3, i, p.CYaw[idx])
		dref.Set(0, i, 0.0)
	}

	return Window{XRef: xref, DRef: dref, TargetIndex: ind}
}
