package mpc

import (
	"github.com/edaniels/golog"

	"github.com/wheelbase-labs/trajsim/control"
	"github.com/wheelbase-labs/trajsim/reference"
	"github.com/wheelbase-labs/trajsim/simconfig"
	"github.com/wheelbase-labs/trajsim/vehicle"
)

// Result is the outcome of one tick's iterative relinearization solve.
// Carrying Status explicitly (rather than a bare error) lets
// scheduler decide whether to act on Xbar/Trace or fall back to holding
// the previous plan.
type Result struct {
	Status Status
	Trace  control.Trace
	Xbar   []vehicle.State // predicted rollout, length T+1
}

// Options tunes the ADMM inner solve; defaults are generous for a QP this
// small (at most a few dozen variables/constraints).
type Options struct {
	Rho      float64
	ADMMIter int
	ADMMTol  float64
}

// DefaultOptions returns ADMM tuning that converges well within budget
// for horizon-5 problem sizes.
func DefaultOptions() Options {
	return Options{Rho: 1.0, ADMMIter: 2000, ADMMTol: 1e-3}
}

// Controller runs the outer iterative relinearization loop: each
// round rolls the nonlinear model forward from the current warm start,
// linearizes about that rollout, solves the condensed QP, and checks the
// plan for convergence before accepting it.
type Controller struct {
	Constants *simconfig.Constants
	Options   Options
	Logger    golog.Logger
}

// NewController builds a Controller with default ADMM tuning.
func NewController(c *simconfig.Constants, logger golog.Logger) *Controller {
	return &Controller{Constants: c, Options: DefaultOptions(), Logger: logger}
}

// Solve runs the iterative loop starting from warm, returning the accepted
// plan and its status. Any non-optimal inner solve is reported as
// StatusFailed; Trace is then the unchanged warm start and Xbar the last
// rollout, and the scheduler applies zero acceleration and steering for
// that tick.
func (ctl *Controller) Solve(x0 vehicle.State, w reference.Window, warm control.Trace) Result {
	c := ctl.Constants
	trace := warm
	if !trace.Ready(c.Horizon) {
		trace = control.Seed(c.Horizon)
	}
	trace = trace.Clone()

	var xbar []vehicle.State
	status := StatusFailed

	for iter := 0; iter < c.MaxIter; iter++ {
		xbar = vehicle.PredictMotion(x0, trace.OA, trace.OD, c)
		qp := buildQP(w, xbar, x0, c)
		uOpt, qpStatus := admmSolve(qp, ctl.Options.Rho, ctl.Options.ADMMIter, ctl.Options.ADMMTol)
		if qpStatus != StatusOptimal {
			// An inaccurate solve is treated exactly like a failed one:
			// an unconverged plan must not drive the car any more than
			// an outright solver failure does.
			status = qpStatus
			break
		}

		nextOA := make([]float64, c.Horizon)
		nextOD := make([]float64, c.Horizon)
		du := 0.0
		for i := 0; i < c.Horizon; i++ {
			nextOA[i] = uOpt.AtVec(idx(i, 0))
			nextOD[i] = uOpt.AtVec(idx(i, 1))
			du += absf(nextOA[i]-trace.OA[i]) + absf(nextOD[i]-trace.OD[i])
		}
		trace.OA, trace.OD = nextOA, nextOD
		status = StatusOptimal

		if du <= c.DUThreshold {
			break
		}
	}

	if status != StatusOptimal {
		if ctl.Logger != nil {
			ctl.Logger.Debugw("mpc solve did not converge, holding previous plan", "status", status.String())
		}
		return Result{Status: StatusFailed, Trace: warm, Xbar: xbar}
	}

	return Result{Status: status, Trace: trace, Xbar: xbar}
}

func absf(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}
