// Package simstats is a scheduler.Observer that aggregates run
// statistics: per-tick pairwise vehicle distance and per-vehicle speed
// samples, summarized with montanaflynn/stats at the end of a run.
package simstats

import (
	"math"

	"github.com/montanaflynn/stats"
	"github.com/pkg/errors"

	"github.com/wheelbase-labs/trajsim/scheduler"
)

// Collector is a scheduler.Observer that records the minimum pairwise
// distance between any two vehicles at every tick, plus every vehicle's
// speed at every tick, for end-of-run summarization.
type Collector struct {
	minPairwise []float64
	speeds      []float64
}

// New returns an empty Collector ready to register via
// scheduler.Scheduler.AddObserver.
func New() *Collector {
	return &Collector{}
}

// OnTick implements scheduler.Observer: it records this tick's minimum
// pairwise distance (math.Inf if fewer than two vehicles) and every
// vehicle's instantaneous speed.
func (c *Collector) OnTick(tickIndex int, snapshots []scheduler.Snapshot) {
	minDist := math.Inf(1)
	for i := 0; i < len(snapshots); i++ {
		for j := i + 1; j < len(snapshots); j++ {
			d := math.Hypot(snapshots[i].X-snapshots[j].X, snapshots[i].Y-snapshots[j].Y)
			if d < minDist {
				minDist = d
			}
		}
	}
	if len(snapshots) >= 2 {
		c.minPairwise = append(c.minPairwise, minDist)
	}
	for _, s := range snapshots {
		c.speeds = append(c.speeds, s.V)
	}
}

// Summary is the end-of-run aggregate computed from every recorded sample.
type Summary struct {
	MinPairwiseDistance float64
	MeanSpeed           float64
	MaxSpeed            float64
	SpeedStdDev         float64
}

// Summarize reduces every recorded tick into a Summary. It returns an
// error only if the underlying stats computation does. An empty run is
// not an error: it yields an infinite MinPairwiseDistance and zero speed
// statistics.
func (c *Collector) Summarize() (Summary, error) {
	var s Summary

	if len(c.minPairwise) > 0 {
		m, err := stats.Min(c.minPairwise)
		if err != nil {
			return s, errors.Wrap(err, "simstats: min pairwise distance")
		}
		s.MinPairwiseDistance = m
	} else {
		s.MinPairwiseDistance = math.Inf(1)
	}

	if len(c.speeds) > 0 {
		mean, err := stats.Mean(c.speeds)
		if err != nil {
			return s, errors.Wrap(err, "simstats: mean speed")
		}
		s.MeanSpeed = mean

		max, err := stats.Max(c.speeds)
		if err != nil {
			return s, errors.Wrap(err, "simstats: max speed")
		}
		s.MaxSpeed = max

		sd, err := stats.StandardDeviation(c.speeds)
		if err != nil {
			return s, errors.Wrap(err, "simstats: speed stddev")
		}
		s.SpeedStdDev = sd
	}

	return s, nil
}
