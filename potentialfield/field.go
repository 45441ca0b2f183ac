// Package potentialfield implements the passive obstacle-avoidance
// layer: a per-tick repulsive force summed over nearby obstacles
// within a forward/backward bearing gate, blended with the MPC-intended
// velocity to nudge the commanded acceleration (and, behind an explicit
// flag, the steering) away from what the linear controller alone would
// command.
package potentialfield

import (
	"math"

	"github.com/golang/geo/r3"

	"github.com/wheelbase-labs/trajsim/trajmath"
	"github.com/wheelbase-labs/trajsim/vehicle"
)

// Options tunes the field's detection range and bearing gate.
// CommitSteerFusion controls whether the blended steering command is
// assigned back to the emitted delta; by default only the blended
// acceleration is committed and the steering fusion is computed then
// discarded.
type Options struct {
	DetectRatio       float64
	DetectFloor       float64 // below this speed, detect range uses DetectFloor*DetectRatio
	BearingGate       float64 // radians, half-width of the forward/backward cone
	AccelBlend        float64 // weight given to the MPC-planned accel vs. the PF-derived one
	SteerBlend        float64 // weight given to the MPC-planned steer vs. the PF-derived one
	CommitSteerFusion bool
}

// DefaultOptions returns the stock tuning: 1.25x detection ratio, 12 m/s
// floor, a 0.52 rad (~30 degree) bearing gate, and 0.9/0.5 blend weights.
func DefaultOptions() Options {
	return Options{
		DetectRatio:       1.25,
		DetectFloor:       12.0,
		BearingGate:       0.52,
		AccelBlend:        0.9,
		SteerBlend:        0.5,
		CommitSteerFusion: false,
	}
}

// detectRange returns the speed-scaled repulsion radius: a car going
// faster than DetectFloor gets a proportionally longer detection range,
// so braking distance scales with speed.
func detectRange(v float64, opts Options) float64 {
	if v <= opts.DetectFloor {
		return opts.DetectFloor * opts.DetectRatio
	}
	return v * opts.DetectRatio
}

// magnitude returns the repulsion magnitude for an obstacle at distance,
// zero once it falls outside the speed-scaled detection range.
func magnitude(distance, v float64, opts Options) float64 {
	r := detectRange(v, opts)
	if distance <= r {
		return r - distance
	}
	return 0
}

// Force sums the repulsive vector contributed by every obstacle within
// the forward/backward bearing gate of state's heading. obstacles are
// positions in the world frame (Z ignored); the caller is expected to have
// already excluded the vehicle's own position from the slice.
func Force(state vehicle.State, obstacles []r3.Vector, opts Options) r3.Vector {
	force := r3.Vector{}
	carYaw := trajmath.PI2PI(state.Yaw)
	for _, obs := range obstacles {
		dx := obs.X - state.X
		dy := obs.Y - state.Y
		distance := math.Hypot(dx, dy)
		if distance == 0 {
			continue
		}
		ux, uy := dx/distance, dy/distance

		bearing := trajmath.PI2PI(math.Atan2(uy, ux))
		delta := trajmath.PI2PI(bearing - carYaw)
		if math.Abs(delta) > opts.BearingGate && math.Abs(delta) < math.Pi-opts.BearingGate {
			continue
		}

		vv := magnitude(distance, state.V, opts)
		force.X += vv * ux
		force.Y += vv * uy
	}
	return force
}

// Blend folds the repulsive force into the MPC-planned (ai, di) pair.
// The force only ever perturbs acceleration; the blended steering command
// is computed but discarded unless opts.CommitSteerFusion is set.
func Blend(state vehicle.State, ai, di float64, force r3.Vector, dt float64, opts Options) (newAi, newDi float64) {
	if force.X == 0 && force.Y == 0 {
		return ai, di
	}

	pfVx, pfVy := -force.X, -force.Y
	mpcVx := (state.V + ai*dt) * math.Cos(state.Yaw)
	mpcVy := (state.V + ai*dt) * math.Sin(state.Yaw)
	vx, vy := pfVx+mpcVx, pfVy+mpcVy

	vv := math.Hypot(vx, vy)
	psi := trajmath.PI2PI(math.Atan2(vy, vx))
	carPsi := trajmath.PI2PI(state.Yaw)
	deltaPsi := trajmath.PI2PI(psi - carPsi)

	u0 := vv * math.Cos(deltaPsi)
	u1 := (di*opts.SteerBlend + deltaPsi*(1-opts.SteerBlend)) * 2

	newAi = ai*opts.AccelBlend + (u0-state.V)/dt*(1-opts.AccelBlend)
	if newAi < 0 {
		u1 = -u1
	}

	newDi = di
	if opts.CommitSteerFusion {
		newDi = u1
	}
	return newAi, newDi
}
