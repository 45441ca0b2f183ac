// Package scheduler drives the multi-agent simulation loop: every
// vehicle ticks once per round, either under MPC+potential-field
// control or, for the one designated self-driving car, by replaying its own
// recorded waypoint track; predicted next positions are published to a
// shared obstacle.Cache each round for the next round's avoidance pass.
package scheduler

import (
	"math"

	"github.com/wheelbase-labs/trajsim/control"
	"github.com/wheelbase-labs/trajsim/dataset"
	"github.com/wheelbase-labs/trajsim/reference"
	"github.com/wheelbase-labs/trajsim/simconfig"
	"github.com/wheelbase-labs/trajsim/vehicle"
)

// History accumulates one vehicle's emitted trace across ticks, one
// parallel slice per output channel.
type History struct {
	T, X, Y, Yaw, V, A, D, VelX, VelY, VelYaw []float64
}

func (h *History) append(t, x, y, yaw, v, a, d, velX, velY, velYaw float64) {
	h.T = append(h.T, t)
	h.X = append(h.X, x)
	h.Y = append(h.Y, y)
	h.Yaw = append(h.Yaw, yaw)
	h.V = append(h.V, v)
	h.A = append(h.A, a)
	h.D = append(h.D, d)
	h.VelX = append(h.VelX, velX)
	h.VelY = append(h.VelY, velY)
	h.VelYaw = append(h.VelYaw, velYaw)
}

// Vehicle is the per-agent aggregate: its immutable reference path plus the
// mutable state, warm-start plan, and recorded history that advance tick
// by tick.
type Vehicle struct {
	ID    string
	IsSDC bool

	Length, Width float64

	// InputWaypoints is len(agent.FutureX) before sanitization, the W in
	// the W-1 output-history width contract.
	InputWaypoints int

	Path reference.Path
	Goal [2]float64

	State       vehicle.State
	TargetInd   int
	ReachedGoal bool
	Time        float64

	AI, DI float64
	Trace  control.Trace

	History History

	mainCarIndex int
	velYawCache  float64
}

func averagePositive(values []float64, fallback float64) float64 {
	sum, n := 0.0, 0
	for _, v := range values {
		if v > 0 {
			sum += v
			n++
		}
	}
	if n == 0 {
		return fallback
	}
	return sum / float64(n)
}

// NewVehicle builds a Vehicle from one dataset.Agent: the raw future track
// sanitized and differentiated into a reference.Path, the footprint
// averaged from past length/width samples, and an initial state taken from
// the path's first sample. The history buffers start seeded with the
// initial state so the emitted trace's first column is the pre-simulation
// pose.
func NewVehicle(agent dataset.Agent, c *simconfig.Constants, opts reference.BuilderOptions) *Vehicle {
	path := reference.Build(agent.FutureX, agent.FutureY, c, opts)

	var v0 float64
	if path.Len() >= 2 {
		vx := (path.CX[1] - path.CX[0]) / c.DT
		vy := (path.CY[1] - path.CY[0]) / c.DT
		v0 = math.Hypot(vx, vy) / 2.0
	}

	state := vehicle.State{X: path.CX[0], Y: path.CY[0], Yaw: path.CYaw[0], V: v0}

	// Initial yaw compensation: fold a near-pi misalignment between the
	// starting heading and the course heading into the same revolution so
	// the first tick's tracking error does not wrap.
	if state.Yaw-path.CYaw[0] >= math.Pi {
		state.Yaw -= 2.0 * math.Pi
	} else if state.Yaw-path.CYaw[0] <= -math.Pi {
		state.Yaw += 2.0 * math.Pi
	}

	targetInd, _ := reference.NearestIndex(path, state, 0, c.NIndexSearch)

	v := &Vehicle{
		ID:             agent.ID,
		IsSDC:          agent.IsSDC,
		Length:         averagePositive(agent.PastLength, 3.0),
		Width:          averagePositive(agent.PastWidth, 2.0),
		InputWaypoints: len(agent.FutureX),
		Path:           path,
		Goal:           [2]float64{path.CX[path.Len()-1], path.CY[path.Len()-1]},
		State:          state,
		TargetInd:      targetInd,
		Trace:          control.Seed(c.Horizon),
		History:        History{},
	}
	v.History.append(0, state.X, state.Y, state.Yaw, state.V, 0, 0,
		state.V*math.Cos(state.Yaw), state.V*math.Sin(state.Yaw), 0)
	return v
}

// nearGoal reports whether the vehicle is currently within goal
// tolerance, the early-exit check at the top of every tick.
func (v *Vehicle) nearGoal(c *simconfig.Constants) bool {
	dx := v.State.X - v.Goal[0]
	dy := v.State.Y - v.Goal[1]
	return math.Hypot(dx, dy) < c.XYGoalTolerance
}

// checkGoal is the combined proximity / near-path-end / low-speed goal
// test that latches ReachedGoal.
func checkGoal(state vehicle.State, goal [2]float64, targetInd, pathLen int, c *simconfig.Constants) bool {
	dx := state.X - goal[0]
	dy := state.Y - goal[1]
	isGoal := math.Hypot(dx, dy) <= c.GoalDistance
	if absInt(targetInd-pathLen) >= 5 {
		isGoal = false
	}
	isStop := math.Abs(state.V) <= c.StopSpeed
	return isGoal && isStop
}

func absInt(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
