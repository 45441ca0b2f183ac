package scheduler

import (
	"context"
	"time"

	"github.com/edaniels/golog"
	"github.com/golang/geo/r3"
	"go.viam.com/utils"
	"golang.org/x/sync/errgroup"

	"github.com/wheelbase-labs/trajsim/dataset"
	"github.com/wheelbase-labs/trajsim/mpc"
	"github.com/wheelbase-labs/trajsim/obstacle"
	"github.com/wheelbase-labs/trajsim/potentialfield"
	"github.com/wheelbase-labs/trajsim/reference"
	"github.com/wheelbase-labs/trajsim/simconfig"
)

// Snapshot is the read-only per-tick view of one vehicle handed to an
// Observer, the thin hook that keeps rendering and statistics out of the
// control loop.
type Snapshot struct {
	ID           string
	IsSDC        bool
	X, Y, Yaw, V float64
	ReachedGoal  bool
}

// Observer receives one Snapshot per vehicle per tick. Implementations
// must not block the scheduler loop for long; simstats and simplot are the
// two Observer implementations shipped alongside the core.
type Observer interface {
	OnTick(tickIndex int, snapshots []Snapshot)
}

// Scheduler owns every Vehicle aggregate for one simulation run and the
// shared ObstacleCache they publish predictions into.
type Scheduler struct {
	Constants *simconfig.Constants
	Logger    golog.Logger

	Vehicles []*Vehicle
	cache    *obstacle.Cache

	pf        potentialfield.Options
	observers []Observer

	// Parallel, when true, ticks vehicles concurrently within a round via
	// errgroup since no vehicle reads another's current-tick state (only
	// the previous round's published ObstacleCache). This
	// is an optimization, not a contract; sequential ticking is equally
	// correct and is the default.
	Parallel bool

	// RealTime, when true, paces the loop at one tick per DT of wall-clock
	// time so attached observers can render at simulation speed.
	RealTime bool
}

// New builds a Scheduler from a dataset.Input: one Vehicle per agent, with
// the designated is_sdc agent (if any) switched to waypoint playback and
// obstacle avoidance disabled for it.
func New(in dataset.Input, c *simconfig.Constants, logger golog.Logger) *Scheduler {
	opts := reference.DefaultBuilderOptions(c.Seed)
	vehicles := make([]*Vehicle, len(in.Agents))
	for i, agent := range in.Agents {
		vehicles[i] = NewVehicle(agent, c, opts)
	}
	return &Scheduler{
		Constants: c,
		Logger:    logger,
		Vehicles:  vehicles,
		cache:     obstacle.New(len(vehicles)),
		pf:        potentialfield.DefaultOptions(),
	}
}

// AddObserver registers an Observer invoked at the end of every tick.
func (s *Scheduler) AddObserver(o Observer) {
	s.observers = append(s.observers, o)
}

// Run ticks every vehicle until either every vehicle reports done in the
// same round or ctx is cancelled. It returns the number of ticks
// executed.
func (s *Scheduler) Run(ctx context.Context) (int, error) {
	ctl := mpc.NewController(s.Constants, s.Logger)
	ticks := 0

	for {
		select {
		case <-ctx.Done():
			return ticks, ctx.Err()
		default:
		}

		doneCount, err := s.tickAll(ctl)
		if err != nil {
			return ticks, err
		}
		ticks++

		s.publish()
		s.notify(ticks)

		if doneCount == len(s.Vehicles) {
			return ticks, nil
		}

		if s.RealTime {
			if !utils.SelectContextOrWait(ctx, time.Duration(float64(time.Second)*s.Constants.DT)) {
				return ticks, ctx.Err()
			}
		}
	}
}

// tickAll advances every vehicle by one DT against the obstacle view
// published at the end of the previous tick, returning how many reported
// done this round. Each controller's view has its own index removed;
// tick 0 sees an empty cache for every vehicle.
func (s *Scheduler) tickAll(ctl *mpc.Controller) (int, error) {
	dones := make([]bool, len(s.Vehicles))

	if !s.Parallel {
		for i, v := range s.Vehicles {
			dones[i] = v.Tick(s.Constants, ctl, s.pf, s.cache.For(i))
		}
	} else {
		g := new(errgroup.Group)
		for i, v := range s.Vehicles {
			i, v := i, v
			g.Go(func() error {
				dones[i] = v.Tick(s.Constants, ctl, s.pf, s.cache.For(i))
				return nil
			})
		}
		if err := g.Wait(); err != nil {
			return 0, err
		}
	}

	doneCount := 0
	for _, d := range dones {
		if d {
			doneCount++
		}
	}
	return doneCount, nil
}

// publish rebuilds the shared ObstacleCache from every vehicle's one-step
// dead-reckoned prediction.
func (s *Scheduler) publish() {
	positions := make([]r3.Vector, len(s.Vehicles))
	for i, v := range s.Vehicles {
		positions[i] = v.PredictPosition(s.Constants)
	}
	s.cache.Rebuild(positions)
}

// Results assembles every vehicle's recorded History into the output
// record: one OutputAgent per vehicle with all six channels (x, y,
// bbox yaw, yaw rate, and the two velocity components) normalized to
// exactly W-1 entries, where W is that vehicle's input waypoint count.
// Each vehicle's own InputWaypoints sizes its own channels, even though a
// scenario's vehicles typically share one W.
func (s *Scheduler) Results() dataset.Output {
	out := dataset.Output{Agents: make([]dataset.OutputAgent, len(s.Vehicles))}
	for i, v := range s.Vehicles {
		width := v.InputWaypoints - 1
		if width < 0 {
			width = 0
		}
		raw := dataset.Output{Agents: []dataset.OutputAgent{{
			ID:        v.ID,
			FutureX:   v.History.X,
			FutureY:   v.History.Y,
			BBoxYaw:   v.History.Yaw,
			VelYaw:    v.History.VelYaw,
			VelocityX: v.History.VelX,
			VelocityY: v.History.VelY,
		}}}
		out.Agents[i] = dataset.Normalize(raw, width).Agents[0]
	}
	return out
}

func (s *Scheduler) notify(tick int) {
	if len(s.observers) == 0 {
		return
	}
	snaps := make([]Snapshot, len(s.Vehicles))
	for i, v := range s.Vehicles {
		snaps[i] = Snapshot{
			ID: v.ID, IsSDC: v.IsSDC,
			X: v.State.X, Y: v.State.Y, Yaw: v.State.Yaw, V: v.State.V,
			ReachedGoal: v.ReachedGoal,
		}
	}
	for _, o := range s.observers {
		o.OnTick(tick, snaps)
	}
}
