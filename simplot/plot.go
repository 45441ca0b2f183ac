// Package simplot is a scheduler.Observer that renders a static
// end-of-run trace export: one PNG overlaying every vehicle's driven
// trace on its reference course.
package simplot

import (
	"github.com/pkg/errors"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"

	"github.com/wheelbase-labs/trajsim/reference"
	"github.com/wheelbase-labs/trajsim/scheduler"
)

// Recorder is a scheduler.Observer that accumulates every vehicle's driven
// (x, y) trace across the run, for export via Save once the run completes.
type Recorder struct {
	traces map[string]plotter.XYs
	order  []string
}

// New returns an empty Recorder.
func New() *Recorder {
	return &Recorder{traces: make(map[string]plotter.XYs)}
}

// OnTick implements scheduler.Observer: it appends this tick's position to
// each vehicle's accumulated trace.
func (r *Recorder) OnTick(tickIndex int, snapshots []scheduler.Snapshot) {
	for _, s := range snapshots {
		if _, ok := r.traces[s.ID]; !ok {
			r.order = append(r.order, s.ID)
		}
		r.traces[s.ID] = append(r.traces[s.ID], plotter.XY{X: s.X, Y: s.Y})
	}
}

// Save renders every recorded trace, plus the reference course for each
// vehicle (courses keyed identically to the Recorder's vehicle IDs), onto
// one scatter/line plot and writes it as a PNG to path.
func Save(path string, r *Recorder, courses map[string]reference.Path, width, height vg.Length) error {
	p := plot.New()
	p.Title.Text = "trajsim run"
	p.X.Label.Text = "x (m)"
	p.Y.Label.Text = "y (m)"

	for _, id := range r.order {
		course, ok := courses[id]
		if ok {
			ref := make(plotter.XYs, course.Len())
			for i := range course.CX {
				ref[i].X = course.CX[i]
				ref[i].Y = course.CY[i]
			}
			refLine, err := plotter.NewLine(ref)
			if err != nil {
				return errors.Wrapf(err, "simplot: reference line for %s", id)
			}
			refLine.Dashes = []vg.Length{vg.Points(3), vg.Points(3)}
			p.Add(refLine)
		}

		driven, err := plotter.NewLine(r.traces[id])
		if err != nil {
			return errors.Wrapf(err, "simplot: driven trace for %s", id)
		}
		p.Add(driven)
		p.Legend.Add(id, driven)
	}

	if err := p.Save(width, height, path); err != nil {
		return errors.Wrap(err, "simplot: saving plot")
	}
	return nil
}
