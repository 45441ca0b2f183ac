// Package control holds the MPC open-loop warm-start plan: the last
// accepted acceleration/steering sequences, reused as
// the initial guess for the next tick's iterative relinearization.
package control

// Trace is the pair of open-loop plans (oa, od) threaded between ticks
// as a warm start. A zero-value Trace has nil slices; Seed initializes
// it to the zero plan of the given horizon.
type Trace struct {
	OA []float64
	OD []float64
}

// Seed returns a zeroed Trace of the given horizon length T, used when a
// vehicle is created and whenever the warm start handed to the solver does
// not hold a plan of that length. A solver failure keeps the previous
// warm start rather than reseeding it.
func Seed(horizon int) Trace {
	return Trace{OA: make([]float64, horizon), OD: make([]float64, horizon)}
}

// Ready reports whether the trace already holds a plan of the expected
// length, vs. needing to be (re)seeded.
func (t Trace) Ready(horizon int) bool {
	return len(t.OA) == horizon && len(t.OD) == horizon
}

// Clone returns an independent copy, since the iterative loop mutates its
// working copy of (oa, od) across relinearization rounds.
func (t Trace) Clone() Trace {
	return Trace{OA: append([]float64{}, t.OA...), OD: append([]float64{}, t.OD...)}
}
