// Package dataset defines the Go-native shape of the simulator's
// external input/output records: a per-agent future waypoint track going
// in, a per-agent future kinematic trace coming out. Callers holding a
// dict-of-lists record (keys like "state/future/x" mapping to per-agent
// arrays) convert through FromRecord/ToRecord.
package dataset

import (
	"math/rand"
	"strconv"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/samber/lo"
)

// Agent is one vehicle's input track: a future waypoint list (which may
// contain (-1,-1) sentinel pairs once the real track ends) and the
// historical length/width samples averaged to size the vehicle's
// footprint.
type Agent struct {
	ID         string
	IsSDC      bool
	FutureX    []float64
	FutureY    []float64
	PastLength []float64
	PastWidth  []float64
}

// Input is the full per-scenario record: one Agent per tracked vehicle.
type Input struct {
	Agents []Agent
}

// OutputAgent is one vehicle's emitted trace, each slice length W-1
// where W is the number of input waypoints.
type OutputAgent struct {
	ID        string
	FutureX   []float64
	FutureY   []float64
	BBoxYaw   []float64
	VelYaw    []float64
	VelocityX []float64
	VelocityY []float64
}

// Output is the full per-scenario result: one OutputAgent per input Agent.
type Output struct {
	Agents []OutputAgent
}

// FromRecord converts a map[string]any record (e.g. unmarshalled from JSON
// with top-level keys "state/future/x", "state/future/y",
// "state/past/length", "state/past/width", each a [][]float64 indexed by
// agent) into an Input. Agent identifiers come from "state/id" when
// present (fresh UUIDs otherwise), and the playback SDC from the first
// non-zero entry of "state/is_sdc"; sdcIndex overrides that choice when
// non-negative.
func FromRecord(record map[string]any, sdcIndex int) (Input, error) {
	fx, err := floatMatrix(record, "state/future/x")
	if err != nil {
		return Input{}, err
	}
	fy, err := floatMatrix(record, "state/future/y")
	if err != nil {
		return Input{}, err
	}
	pl, err := floatMatrix(record, "state/past/length")
	if err != nil {
		return Input{}, err
	}
	pw, err := floatMatrix(record, "state/past/width")
	if err != nil {
		return Input{}, err
	}
	if len(fx) != len(fy) {
		return Input{}, errors.Errorf("dataset: future/x has %d agents, future/y has %d", len(fx), len(fy))
	}

	ids := idList(record, len(fx))
	if sdcIndex < 0 {
		sdcIndex = sdcFromRecord(record)
	}

	agents := make([]Agent, len(fx))
	for i := range fx {
		var length, width []float64
		if i < len(pl) {
			length = pl[i]
		}
		if i < len(pw) {
			width = pw[i]
		}
		agents[i] = Agent{
			ID:         ids[i],
			IsSDC:      i == sdcIndex,
			FutureX:    fx[i],
			FutureY:    fy[i],
			PastLength: length,
			PastWidth:  width,
		}
	}
	return Input{Agents: agents}, nil
}

// idList reads "state/id" if present, stringifying numeric identifiers
// (they are opaque to the simulator), and backfills fresh UUIDs for any
// agent the record does not cover.
func idList(record map[string]any, n int) []string {
	ids := make([]string, n)
	raw, ok := record["state/id"].([]any)
	for i := 0; i < n; i++ {
		if ok && i < len(raw) {
			switch v := raw[i].(type) {
			case string:
				ids[i] = v
			case float64:
				ids[i] = strconv.FormatFloat(v, 'f', -1, 64)
			}
		}
		if ids[i] == "" {
			ids[i] = uuid.NewString()
		}
	}
	return ids
}

// sdcFromRecord returns the index of the first non-zero "state/is_sdc"
// flag, or -1 when the record designates no playback agent.
func sdcFromRecord(record map[string]any) int {
	switch flags := record["state/is_sdc"].(type) {
	case []any:
		for i, f := range flags {
			if v, ok := f.(float64); ok && v != 0 {
				return i
			}
		}
	case []float64:
		for i, v := range flags {
			if v != 0 {
				return i
			}
		}
	}
	return -1
}

// ToRecord converts an Output back into the dict-of-lists shape, padding
// or truncating every per-agent slice to exactly width entries: short
// traces are padded by repeating their last value, long ones cut.
func ToRecord(out Output, width int) map[string]any {
	fx := lo.Map(out.Agents, func(a OutputAgent, _ int) []float64 { return fitWidth(a.FutureX, width) })
	fy := lo.Map(out.Agents, func(a OutputAgent, _ int) []float64 { return fitWidth(a.FutureY, width) })
	yaw := lo.Map(out.Agents, func(a OutputAgent, _ int) []float64 { return fitWidth(a.BBoxYaw, width) })
	velYaw := lo.Map(out.Agents, func(a OutputAgent, _ int) []float64 { return fitWidth(a.VelYaw, width) })
	velX := lo.Map(out.Agents, func(a OutputAgent, _ int) []float64 { return fitWidth(a.VelocityX, width) })
	velY := lo.Map(out.Agents, func(a OutputAgent, _ int) []float64 { return fitWidth(a.VelocityY, width) })

	return map[string]any{
		"state/future/x":          fx,
		"state/future/y":          fy,
		"state/future/bbox_yaw":   yaw,
		"state/future/vel_yaw":    velYaw,
		"state/future/velocity_x": velX,
		"state/future/velocity_y": velY,
	}
}

// Normalize returns a copy of out with every agent's six output channels
// padded or truncated to exactly width entries, the in-process
// equivalent of what ToRecord applies on its way out to the
// dict-of-lists shape. Scheduler assemblers use this to fix every output
// history at exactly W-1 entries before any marshalling.
func Normalize(out Output, width int) Output {
	normalized := Output{Agents: make([]OutputAgent, len(out.Agents))}
	for i, a := range out.Agents {
		normalized.Agents[i] = OutputAgent{
			ID:        a.ID,
			FutureX:   fitWidth(a.FutureX, width),
			FutureY:   fitWidth(a.FutureY, width),
			BBoxYaw:   fitWidth(a.BBoxYaw, width),
			VelYaw:    fitWidth(a.VelYaw, width),
			VelocityX: fitWidth(a.VelocityX, width),
			VelocityY: fitWidth(a.VelocityY, width),
		}
	}
	return normalized
}

// fitWidth right-pads by repeating s's last value (not zero), or
// truncates, to exactly width entries.
func fitWidth(s []float64, width int) []float64 {
	if len(s) >= width {
		return append([]float64{}, s[:width]...)
	}
	out := make([]float64, width)
	copy(out, s)
	last := 0.0
	if len(s) > 0 {
		last = s[len(s)-1]
	}
	for i := len(s); i < width; i++ {
		out[i] = last
	}
	return out
}

// Synthetic builds a deterministic Input for tests and CLI demo mode:
// agents straight-line tracks on parallel lanes, seeded so repeated calls
// with the same seed produce the same scenario.
func Synthetic(seed int64, agents int, waypoints int) Input {
	rng := rand.New(rand.NewSource(seed))
	in := Input{Agents: make([]Agent, agents)}
	for i := 0; i < agents; i++ {
		lane := float64(i) * 4.0
		fx := make([]float64, waypoints)
		fy := make([]float64, waypoints)
		for j := 0; j < waypoints; j++ {
			fx[j] = float64(j) + rng.Float64()*0.01
			fy[j] = lane
		}
		in.Agents[i] = Agent{
			ID:         uuid.NewSHA1(uuid.NameSpaceOID, []byte(strconv.FormatInt(seed, 10)+"/"+strconv.Itoa(i))).String(),
			IsSDC:      i == 0,
			FutureX:    fx,
			FutureY:    fy,
			PastLength: []float64{4.5},
			PastWidth:  []float64{1.8},
		}
	}
	return in
}

func floatMatrix(record map[string]any, key string) ([][]float64, error) {
	raw, ok := record[key]
	if !ok {
		return nil, nil
	}
	switch v := raw.(type) {
	case [][]float64:
		return v, nil
	case []any:
		out := make([][]float64, len(v))
		for i, row := range v {
			r, ok := row.([]any)
			if !ok {
				return nil, errors.Errorf("dataset: %s[%d] is not an array", key, i)
			}
			out[i] = make([]float64, len(r))
			for j, val := range r {
				f, ok := val.(float64)
				if !ok {
					return nil, errors.Errorf("dataset: %s[%d][%d] is not a number", key, i, j)
				}
				out[i][j] = f
			}
		}
		return out, nil
	default:
		return nil, errors.Errorf("dataset: %s has unsupported type %T", key, raw)
	}
}
