// Package simconfig holds the tunable constant table shared by every
// simulator package, loadable from YAML.
package simconfig

import (
	"math"
	"os"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

// Constants is the full set of recognized simulation options. Q, Qf, R,
// Rd are stored as their diagonal entries; every cost matrix here is
// diagonal.
type Constants struct {
	Horizon      int     `yaml:"horizon"` // T
	DT           float64 `yaml:"dt"`      // s
	DL           float64 `yaml:"dl"`      // m, course tick
	NIndexSearch int     `yaml:"n_ind_search"`
	MaxIter      int     `yaml:"max_iter"`
	DUThreshold  float64 `yaml:"du_threshold"`

	Q  [4]float64 `yaml:"q"`
	Qf [4]float64 `yaml:"qf"`
	R  [2]float64 `yaml:"r"`
	Rd [2]float64 `yaml:"rd"`

	TargetSpeed float64 `yaml:"target_speed"`
	MaxSpeed    float64 `yaml:"max_speed"`
	MinSpeed    float64 `yaml:"min_speed"`
	MaxAccel    float64 `yaml:"max_accel"`

	MaxSteer  float64 `yaml:"max_steer"`
	MaxDSteer float64 `yaml:"max_dsteer"`
	Wheelbase float64 `yaml:"wheelbase"`
	WB        float64 `yaml:"-"` // alias of Wheelbase, kept for formula readability in vehicle/mpc

	GoalDistance    float64 `yaml:"goal_distance"`
	XYGoalTolerance float64 `yaml:"xy_goal_tolerance"`
	StopSpeed       float64 `yaml:"stop_speed"`
	MaxTime         float64 `yaml:"max_time"`

	ObstacleAvoidance bool  `yaml:"obstacle_avoidance"`
	Seed              int64 `yaml:"seed"`
}

// Default returns the reference defaults.
func Default() *Constants {
	c := &Constants{
		Horizon:      5,
		DT:           0.2,
		DL:           1.0,
		NIndexSearch: 10,
		MaxIter:      2,
		DUThreshold:  0.1,

		Q:  [4]float64{1.0, 1.0, 0.5, 1.0},
		R:  [2]float64{0.1, 0.1},
		Rd: [2]float64{0.1, 1.0},

		TargetSpeed: 40.0 / 3.6,
		MaxSpeed:    60.0 / 3.6,
		MinSpeed:    0.0,
		MaxAccel:    1.0,

		MaxSteer:  45.0 * math.Pi / 180.0,
		MaxDSteer: 30.0 * math.Pi / 180.0,
		Wheelbase: 2.5,

		GoalDistance: 5.0,
		StopSpeed:    0.5 / 3.6,
		MaxTime:      20.0,

		ObstacleAvoidance: true,
		Seed:              1,
	}
	c.Qf = c.Q
	c.XYGoalTolerance = c.GoalDistance
	c.WB = c.Wheelbase
	return c
}

// Load reads YAML overrides from path on top of Default().
func Load(path string) (*Constants, error) {
	c := Default()
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "reading simconfig file")
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return nil, errors.Wrap(err, "parsing simconfig yaml")
	}
	if c.Qf == [4]float64{} {
		c.Qf = c.Q
	}
	if c.XYGoalTolerance == 0 {
		c.XYGoalTolerance = c.GoalDistance
	}
	c.WB = c.Wheelbase
	return c, nil
}
