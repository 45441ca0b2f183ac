package scheduler

import (
	"context"
	"math"
	"testing"

	"go.viam.com/test"

	"github.com/wheelbase-labs/trajsim/dataset"
	"github.com/wheelbase-labs/trajsim/reference"
	"github.com/wheelbase-labs/trajsim/simconfig"
	"github.com/wheelbase-labs/trajsim/simlog"
)

func TestRunSingleVehicleStraightLineReachesGoal(t *testing.T) {
	c := simconfig.Default()
	c.ObstacleAvoidance = false
	in := dataset.Synthetic(c.Seed, 1, 50)
	// Synthetic's lane-0 track is already a straight line at y=0; clear
	// the SDC flag so the vehicle is MPC-driven rather than played back.
	in.Agents[0].IsSDC = false

	s := New(in, c, simlog.Test(t))
	ticks, err := s.Run(context.Background())
	test.That(t, err, test.ShouldBeNil)
	test.That(t, ticks, test.ShouldBeGreaterThan, 0)
	test.That(t, s.Vehicles[0].ReachedGoal, test.ShouldBeTrue)
	test.That(t, float64(ticks)*c.DT, test.ShouldBeLessThanOrEqualTo, c.MaxTime+c.DT)
}

func TestRunDeterministic(t *testing.T) {
	c := simconfig.Default()
	in := dataset.Synthetic(7, 2, 30)
	in.Agents[0].IsSDC = false

	run := func() []Snapshot {
		s := New(in, c, simlog.Quiet())
		_, err := s.Run(context.Background())
		test.That(t, err, test.ShouldBeNil)
		snaps := make([]Snapshot, len(s.Vehicles))
		for i, v := range s.Vehicles {
			snaps[i] = Snapshot{ID: v.ID, X: v.State.X, Y: v.State.Y, Yaw: v.State.Yaw, V: v.State.V}
		}
		return snaps
	}

	a := run()
	b := run()
	test.That(t, a, test.ShouldResemble, b)
}

func TestRunMainCarPlaybackFreezesAtEnd(t *testing.T) {
	c := simconfig.Default()
	in := dataset.Synthetic(c.Seed, 2, 20)
	in.Agents[0].IsSDC = true

	s := New(in, c, nil)
	_, err := s.Run(context.Background())
	test.That(t, err, test.ShouldBeNil)
	test.That(t, s.Vehicles[0].ReachedGoal, test.ShouldBeTrue)
}

func TestRunUTurnTracksSemicircle(t *testing.T) {
	c := simconfig.Default()
	c.ObstacleAvoidance = false
	c.TargetSpeed = 20.0 / 3.6
	n := 40
	fx := make([]float64, n)
	fy := make([]float64, n)
	for i := 0; i < n; i++ {
		th := math.Pi * float64(i) / float64(n-1)
		fx[i] = 10.0 * math.Sin(th)
		fy[i] = 10.0 * (1.0 - math.Cos(th))
	}
	in := dataset.Input{Agents: []dataset.Agent{{ID: "uturn", FutureX: fx, FutureY: fy}}}

	s := New(in, c, simlog.Test(t))
	bounds := &speedBoundsObserver{}
	s.AddObserver(bounds)

	_, err := s.Run(context.Background())
	test.That(t, err, test.ShouldBeNil)

	v := s.Vehicles[0]
	test.That(t, v.ReachedGoal, test.ShouldBeTrue)
	dist := math.Hypot(v.State.X-fx[n-1], v.State.Y-fy[n-1])
	test.That(t, dist, test.ShouldBeLessThanOrEqualTo, c.GoalDistance)
	test.That(t, bounds.maxV, test.ShouldBeLessThanOrEqualTo, c.MaxSpeed+1e-9)
	test.That(t, bounds.minV, test.ShouldBeGreaterThanOrEqualTo, c.MinSpeed-1e-9)
}

func TestRunTimesOutOnOverlongCourse(t *testing.T) {
	c := simconfig.Default()
	c.ObstacleAvoidance = false
	n := 400
	fx := make([]float64, n)
	fy := make([]float64, n)
	for i := range fx {
		fx[i] = float64(i)
	}
	in := dataset.Input{Agents: []dataset.Agent{{ID: "long", FutureX: fx, FutureY: fy}}}

	s := New(in, c, nil)
	ticks, err := s.Run(context.Background())
	test.That(t, err, test.ShouldBeNil)

	// One tick per DT of simulated time, plus the final round that
	// observes the exhausted budget and reports done.
	expected := int(c.MaxTime / c.DT)
	test.That(t, ticks, test.ShouldBeBetweenOrEqual, expected, expected+2)
	test.That(t, s.Vehicles[0].ReachedGoal, test.ShouldBeFalse)
	test.That(t, s.Vehicles[0].Time, test.ShouldBeGreaterThanOrEqualTo, c.MaxTime-c.DT/2)
}

// headOnInput builds two straight references sharing the y=0 line in
// opposite directions, so the cars meet near (25, 0) with identical ETAs.
func headOnInput() dataset.Input {
	n := 51
	ax := make([]float64, n)
	ay := make([]float64, n)
	bx := make([]float64, n)
	by := make([]float64, n)
	for i := 0; i < n; i++ {
		ax[i] = float64(i)
		bx[i] = float64(n - 1 - i)
	}
	return dataset.Input{Agents: []dataset.Agent{
		{ID: "east", FutureX: ax, FutureY: ay},
		{ID: "west", FutureX: bx, FutureY: by},
	}}
}

func minPairwiseDistance(s *Scheduler) *minDistObserver {
	obs := &minDistObserver{min: math.Inf(1)}
	s.AddObserver(obs)
	return obs
}

type minDistObserver struct {
	min float64
}

func (m *minDistObserver) OnTick(tickIndex int, snapshots []Snapshot) {
	for i := 0; i < len(snapshots); i++ {
		for j := i + 1; j < len(snapshots); j++ {
			d := math.Hypot(snapshots[i].X-snapshots[j].X, snapshots[i].Y-snapshots[j].Y)
			if d < m.min {
				m.min = d
			}
		}
	}
}

type speedBoundsObserver struct {
	minV, maxV float64
}

func (o *speedBoundsObserver) OnTick(tickIndex int, snapshots []Snapshot) {
	for _, s := range snapshots {
		if s.V > o.maxV {
			o.maxV = s.V
		}
		if s.V < o.minV {
			o.minV = s.V
		}
	}
}

func TestRunCollisionCourseAvoidanceKeepsSeparation(t *testing.T) {
	runOnce := func(avoidance bool) float64 {
		c := simconfig.Default()
		c.ObstacleAvoidance = avoidance
		s := New(headOnInput(), c, nil)
		obs := minPairwiseDistance(s)
		_, err := s.Run(context.Background())
		test.That(t, err, test.ShouldBeNil)
		return obs.min
	}

	withAvoidance := runOnce(true)
	withoutAvoidance := runOnce(false)

	test.That(t, withAvoidance, test.ShouldBeGreaterThanOrEqualTo, 1.0)
	test.That(t, withoutAvoidance, test.ShouldBeLessThan, withAvoidance)
}

func TestRunDegenerateWaypointsTerminatesImmediately(t *testing.T) {
	c := simconfig.Default()
	in := dataset.Input{Agents: []dataset.Agent{{
		ID:      "degenerate",
		FutureX: []float64{3, -1, -1},
		FutureY: []float64{4, -1, -1},
	}}}

	s := New(in, c, nil)
	ticks, err := s.Run(context.Background())
	test.That(t, err, test.ShouldBeNil)

	// The padded course spans under two metres, so the vehicle starts
	// inside the goal tolerance and finishes on the first round.
	test.That(t, ticks, test.ShouldBeLessThanOrEqualTo, 2)
	test.That(t, s.Vehicles[0].ReachedGoal, test.ShouldBeTrue)
}

func TestNewVehicleSeedsHistoryWithInitialState(t *testing.T) {
	c := simconfig.Default()
	in := dataset.Synthetic(c.Seed, 1, 30)
	v := NewVehicle(in.Agents[0], c, reference.DefaultBuilderOptions(c.Seed))

	test.That(t, len(v.History.X), test.ShouldEqual, 1)
	test.That(t, v.History.X[0], test.ShouldAlmostEqual, v.State.X)
	test.That(t, v.History.Y[0], test.ShouldAlmostEqual, v.State.Y)
	test.That(t, v.History.T[0], test.ShouldEqual, 0.0)
	test.That(t, v.History.VelYaw[0], test.ShouldEqual, 0.0)
}

type recordingObserver struct {
	ticks int
}

func (r *recordingObserver) OnTick(tickIndex int, snapshots []Snapshot) {
	r.ticks++
}

func TestResultsNormalizesHistoryToInputWidthMinusOne(t *testing.T) {
	c := simconfig.Default()
	c.ObstacleAvoidance = false
	in := dataset.Synthetic(c.Seed, 2, 50)
	in.Agents[0].IsSDC = false

	s := New(in, c, nil)
	_, err := s.Run(context.Background())
	test.That(t, err, test.ShouldBeNil)

	out := s.Results()
	test.That(t, len(out.Agents), test.ShouldEqual, len(s.Vehicles))
	for i, agent := range out.Agents {
		wantLen := s.Vehicles[i].InputWaypoints - 1
		test.That(t, agent.ID, test.ShouldEqual, s.Vehicles[i].ID)
		test.That(t, len(agent.FutureX), test.ShouldEqual, wantLen)
		test.That(t, len(agent.FutureY), test.ShouldEqual, wantLen)
		test.That(t, len(agent.BBoxYaw), test.ShouldEqual, wantLen)
		test.That(t, len(agent.VelYaw), test.ShouldEqual, wantLen)
		test.That(t, len(agent.VelocityX), test.ShouldEqual, wantLen)
		test.That(t, len(agent.VelocityY), test.ShouldEqual, wantLen)
	}
}

func TestObserverReceivesOneCallPerTick(t *testing.T) {
	c := simconfig.Default()
	in := dataset.Synthetic(c.Seed, 1, 20)

	s := New(in, c, nil)
	obs := &recordingObserver{}
	s.AddObserver(obs)

	ticks, err := s.Run(context.Background())
	test.That(t, err, test.ShouldBeNil)
	test.That(t, obs.ticks, test.ShouldEqual, ticks)
}
