package simstats

import (
	"math"
	"testing"

	"go.viam.com/test"

	"github.com/wheelbase-labs/trajsim/scheduler"
)

func TestCollectorTracksMinPairwiseDistance(t *testing.T) {
	c := New()
	c.OnTick(0, []scheduler.Snapshot{{X: 0, Y: 0, V: 1}, {X: 3, Y: 4, V: 2}})
	c.OnTick(1, []scheduler.Snapshot{{X: 0, Y: 0, V: 1}, {X: 1, Y: 0, V: 2}})

	summary, err := c.Summarize()
	test.That(t, err, test.ShouldBeNil)
	test.That(t, summary.MinPairwiseDistance, test.ShouldAlmostEqual, 1.0)
	test.That(t, summary.MaxSpeed, test.ShouldAlmostEqual, 2.0)
}

func TestCollectorSingleVehicleHasNoDistanceSamples(t *testing.T) {
	c := New()
	c.OnTick(0, []scheduler.Snapshot{{X: 0, Y: 0, V: 5}})

	summary, err := c.Summarize()
	test.That(t, err, test.ShouldBeNil)
	test.That(t, math.IsInf(summary.MinPairwiseDistance, 1), test.ShouldBeTrue)
	test.That(t, summary.MeanSpeed, test.ShouldAlmostEqual, 5.0)
}
