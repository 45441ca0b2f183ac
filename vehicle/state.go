// Package vehicle implements the kinematic bicycle model: the non-linear
// forward step, its affine linearization about an operating point, and the
// non-linear rollout used to re-linearize the MPC horizon every iteration.
package vehicle

import (
	"math"

	"github.com/wheelbase-labs/trajsim/simconfig"
)

// State is the pose + speed carrier for one vehicle: x, y in metres, yaw in
// radians, v in m/s. Update computes the next State under the kinematic
// model; the scheduler's SDC playback sets it directly from the path.
type State struct {
	X, Y, Yaw, V float64
}

// Update advances State by one DT using the non-linear kinematic bicycle
// model, clamping steering and speed to the configured limits. The steer
// clamp happens first; the speed clamp happens after the integration
// step.
func Update(s State, a, delta float64, c *simconfig.Constants) State {
	delta = clampSteer(delta, c.MaxSteer)

	next := State{
		X:   s.X + s.V*math.Cos(s.Yaw)*c.DT,
		Y:   s.Y + s.V*math.Sin(s.Yaw)*c.DT,
		Yaw: s.Yaw + (s.V/c.WB)*math.Tan(delta)*c.DT,
		V:   s.V + a*c.DT,
	}
	if next.V > c.MaxSpeed {
		next.V = c.MaxSpeed
	} else if next.V < c.MinSpeed {
		next.V = c.MinSpeed
	}
	return next
}

func clampSteer(delta, maxSteer float64) float64 {
	if delta >= maxSteer {
		return maxSteer
	}
	if delta <= -maxSteer {
		return -maxSteer
	}
	return delta
}

// PredictMotion rolls the non-linear Update forward from x0 using a fixed
// open-loop (acceleration, steering) plan, producing the operating-point
// trajectory xbar used to relinearize the MPC horizon. The returned slices
// have length len(oa)+1, with index 0 equal to x0.
func PredictMotion(x0 State, oa, od []float64, c *simconfig.Constants) []State {
	xbar := make([]State, len(oa)+1)
	xbar[0] = x0
	state := x0
	for i := 0; i < len(oa); i++ {
		state = Update(state, oa[i], od[i], c)
		xbar[i+1] = state
	}
	return xbar
}
