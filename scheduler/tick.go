package scheduler

import (
	"math"

	"github.com/golang/geo/r3"

	"github.com/wheelbase-labs/trajsim/mpc"
	"github.com/wheelbase-labs/trajsim/obstacle"
	"github.com/wheelbase-labs/trajsim/potentialfield"
	"github.com/wheelbase-labs/trajsim/reference"
	"github.com/wheelbase-labs/trajsim/simconfig"
	"github.com/wheelbase-labs/trajsim/vehicle"
)

// Tick advances v by one DT. obstacles is every other vehicle's predicted
// position for this round (already excluding v's own index, per
// obstacle.Cache.For). The returned done flag goes up once v sits within
// the XY goal tolerance or has run out of its time budget; ReachedGoal can
// latch earlier (close, stopped, near the path end) without ending the
// vehicle's run. A latched vehicle keeps ticking and braking until it
// drifts inside the tolerance or times out.
func (v *Vehicle) Tick(c *simconfig.Constants, ctl *mpc.Controller, pf potentialfield.Options, obstacles []r3.Vector) bool {
	if v.Time >= c.MaxTime {
		return true
	}
	if v.nearGoal(c) {
		v.ReachedGoal = true
		return true
	}

	if v.IsSDC {
		v.tickPlayback(c)
		return false
	}

	v.tickMPC(c, ctl, pf, obstacles)

	if checkGoal(v.State, v.Goal, v.TargetInd, v.Path.Len(), c) {
		v.ReachedGoal = true
	}
	if v.nearGoal(c) {
		v.ReachedGoal = true
	}
	return false
}

// tickMPC runs one round of the linear MPC + potential-field pipeline:
// recompute the reference window, resolve the controller, optionally blend
// in obstacle repulsion, integrate the kinematic model, and record history.
func (v *Vehicle) tickMPC(c *simconfig.Constants, ctl *mpc.Controller, pf potentialfield.Options, obstacles []r3.Vector) {
	w := reference.CalcRefTrajectory(v.Path, v.State, v.TargetInd, c)
	v.TargetInd = w.TargetIndex

	res := ctl.Solve(v.State, w, v.Trace)
	if res.Status != mpc.StatusFailed {
		v.Trace = res.Trace
		v.DI, v.AI = res.Trace.OD[0], res.Trace.OA[0]
	} else {
		v.DI, v.AI = 0, 0
	}

	if c.ObstacleAvoidance {
		if v.ReachedGoal {
			// Goal latched on an earlier tick: brake to zero and hold the
			// wheel straight until the done check above fires.
			v.AI = -v.State.V / c.DT
			v.DI = 0
		} else {
			force := potentialfield.Force(v.State, obstacles, pf)
			v.AI, v.DI = potentialfield.Blend(v.State, v.AI, v.DI, force, c.DT, pf)
		}
	}

	v.State = vehicle.Update(v.State, v.AI, v.DI, c)
	v.Time += c.DT

	velYaw := 0.0
	if v.DI != 0 {
		velYaw = v.State.V / v.Length / math.Tan(v.DI)
	}
	v.History.append(v.Time, v.State.X, v.State.Y, v.State.Yaw, v.State.V, v.AI, v.DI,
		v.State.V*math.Cos(v.State.Yaw), v.State.V*math.Sin(v.State.Yaw), velYaw)
}

// tickPlayback advances the SDC by one path index rather than running
// the controller: the main car replays its own recorded track verbatim
// instead of being driven by the MPC loop.
func (v *Vehicle) tickPlayback(c *simconfig.Constants) {
	n := v.Path.Len()
	if v.mainCarIndex >= n {
		v.ReachedGoal = true
		return
	}

	cx, cy := v.Path.CX, v.Path.CY
	i := v.mainCarIndex
	switch {
	case i < n-2:
		v.State.X = cx[i+1]
		v.State.Y = cy[i+1]
		v.State.Yaw = math.Atan2(cy[i+2]-cy[i+1], cx[i+2]-cx[i+1])
		v.State.V = math.Hypot(cx[i+1]-cx[i], cy[i+1]-cy[i]) / c.DT
	case i == n-2:
		v.State.X = cx[i+1]
		v.State.Y = cy[i+1]
		v.State.Yaw = math.Atan2(cy[i+1]-cy[i], cx[i+1]-cx[i])
		v.State.V = math.Hypot(cx[i+1]-cx[i], cy[i+1]-cy[i]) / c.DT
	default:
		v.State.X = cx[i]
		v.State.Y = cy[i]
		v.State.Yaw = math.Atan2(cy[i]-cy[i-1], cx[i]-cx[i-1])
		v.State.V = math.Hypot(cx[i]-cx[i-1], cy[i]-cy[i-1]) / c.DT
	}

	velYaw := (v.State.Yaw - v.velYawCache) / c.DT
	v.History.append(v.Time, v.State.X, v.State.Y, v.State.Yaw, v.State.V, 0, 0,
		v.State.V*math.Cos(v.State.Yaw), v.State.V*math.Sin(v.State.Yaw), velYaw)
	v.velYawCache = v.State.Yaw
	v.mainCarIndex++
}

// PredictPosition returns v's one-step-ahead dead-reckoned position, the
// value published to the shared obstacle.Cache for the next round.
func (v *Vehicle) PredictPosition(c *simconfig.Constants) r3.Vector {
	return obstacle.Predict(v.State.X, v.State.Y, v.State.Yaw, v.State.V, c.DT)
}
