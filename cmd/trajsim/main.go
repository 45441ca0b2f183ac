// Command trajsim runs the multi-vehicle MPC trajectory simulator end to
// end: load a dataset record, build a scheduler, tick it to completion,
// and print a per-vehicle summary table.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/charmbracelet/huh"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/pkg/errors"
	"github.com/samber/lo"
	"github.com/urfave/cli/v2"
	"gonum.org/v1/plot/vg"

	"github.com/wheelbase-labs/trajsim/dataset"
	"github.com/wheelbase-labs/trajsim/reference"
	"github.com/wheelbase-labs/trajsim/scheduler"
	"github.com/wheelbase-labs/trajsim/simconfig"
	"github.com/wheelbase-labs/trajsim/simlog"
	"github.com/wheelbase-labs/trajsim/simplot"
	"github.com/wheelbase-labs/trajsim/simstats"
)

func main() {
	app := &cli.App{
		Name:  "trajsim",
		Usage: "run the multi-vehicle MPC trajectory simulator",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "input", Aliases: []string{"i"}, Usage: "path to a JSON dataset record; omit to run a synthetic scenario"},
			&cli.StringFlag{Name: "config", Aliases: []string{"c"}, Usage: "path to a YAML simconfig override file"},
			&cli.StringFlag{Name: "plot", Usage: "path to write a PNG trace overlay of the run"},
			&cli.StringFlag{Name: "output", Aliases: []string{"o"}, Usage: "path to write the simulated trajectory record as JSON"},
			&cli.BoolFlag{Name: "interactive", Usage: "prompt for missing input/config paths instead of defaulting"},
			&cli.BoolFlag{Name: "realtime", Usage: "pace the simulation at one tick per DT of wall-clock time"},
			&cli.IntFlag{Name: "synthetic-agents", Value: 3, Usage: "agent count for the synthetic scenario when --input is omitted"},
			&cli.IntFlag{Name: "synthetic-waypoints", Value: 60, Usage: "waypoint count for the synthetic scenario"},
		},
		Action: run,
	}
	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(cctx *cli.Context) error {
	logger := simlog.New("trajsim")

	inputPath := cctx.String("input")
	configPath := cctx.String("config")

	if cctx.Bool("interactive") {
		if err := promptPaths(&inputPath, &configPath); err != nil {
			return errors.Wrap(err, "trajsim: interactive prompt")
		}
	}

	c := simconfig.Default()
	if configPath != "" {
		loaded, err := simconfig.Load(configPath)
		if err != nil {
			return err
		}
		c = loaded
	}

	in, err := loadInput(inputPath, c, int(cctx.Int("synthetic-agents")), int(cctx.Int("synthetic-waypoints")))
	if err != nil {
		return err
	}

	s := scheduler.New(in, c, logger)
	s.RealTime = cctx.Bool("realtime")
	stats := simstats.New()
	s.AddObserver(stats)

	var plotRecorder *simplot.Recorder
	if cctx.String("plot") != "" {
		plotRecorder = simplot.New()
		s.AddObserver(plotRecorder)
	}

	ticks, err := s.Run(context.Background())
	if err != nil {
		return errors.Wrap(err, "trajsim: run")
	}

	printSummary(s, ticks)

	summary, err := stats.Summarize()
	if err != nil {
		return err
	}
	fmt.Printf("min pairwise distance: %.3f m, mean speed: %.3f m/s\n", summary.MinPairwiseDistance, summary.MeanSpeed)

	if plotRecorder != nil {
		if err := simplot.Save(cctx.String("plot"), plotRecorder, pathsOf(s), 8*vg.Inch, 8*vg.Inch); err != nil {
			return err
		}
	}

	if outPath := cctx.String("output"); outPath != "" {
		if err := writeOutput(outPath, s); err != nil {
			return err
		}
	}

	return nil
}

// writeOutput marshals the scheduler's per-agent result histories
// (already normalized to each agent's own W-1 by Scheduler.Results) to
// path as JSON, in the same dict-of-lists shape dataset.ToRecord
// produces for the input record.
func writeOutput(path string, s *scheduler.Scheduler) error {
	out := s.Results()
	record := map[string]any{
		"state/future/x":          lo.Map(out.Agents, func(a dataset.OutputAgent, _ int) []float64 { return a.FutureX }),
		"state/future/y":          lo.Map(out.Agents, func(a dataset.OutputAgent, _ int) []float64 { return a.FutureY }),
		"state/future/bbox_yaw":   lo.Map(out.Agents, func(a dataset.OutputAgent, _ int) []float64 { return a.BBoxYaw }),
		"state/future/vel_yaw":    lo.Map(out.Agents, func(a dataset.OutputAgent, _ int) []float64 { return a.VelYaw }),
		"state/future/velocity_x": lo.Map(out.Agents, func(a dataset.OutputAgent, _ int) []float64 { return a.VelocityX }),
		"state/future/velocity_y": lo.Map(out.Agents, func(a dataset.OutputAgent, _ int) []float64 { return a.VelocityY }),
	}
	data, err := json.MarshalIndent(record, "", "  ")
	if err != nil {
		return errors.Wrap(err, "trajsim: marshalling output record")
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return errors.Wrap(err, "trajsim: writing output record")
	}
	return nil
}

func pathsOf(s *scheduler.Scheduler) map[string]reference.Path {
	paths := make(map[string]reference.Path, len(s.Vehicles))
	for _, v := range s.Vehicles {
		paths[v.ID] = v.Path
	}
	return paths
}

func promptPaths(inputPath, configPath *string) error {
	form := huh.NewForm(
		huh.NewGroup(
			huh.NewInput().Title("dataset path (blank for synthetic)").Value(inputPath),
			huh.NewInput().Title("simconfig path (blank for defaults)").Value(configPath),
		),
	)
	return form.Run()
}

func loadInput(path string, c *simconfig.Constants, agents, waypoints int) (dataset.Input, error) {
	if path == "" {
		return dataset.Synthetic(c.Seed, agents, waypoints), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return dataset.Input{}, errors.Wrap(err, "trajsim: reading dataset")
	}
	var record map[string]any
	if err := json.Unmarshal(data, &record); err != nil {
		return dataset.Input{}, errors.Wrap(err, "trajsim: parsing dataset json")
	}
	return dataset.FromRecord(record, -1)
}

func printSummary(s *scheduler.Scheduler, ticks int) {
	t := table.NewWriter()
	t.SetOutputMirror(os.Stdout)
	t.AppendHeader(table.Row{"agent", "sdc", "x", "y", "yaw", "v", "reached goal"})
	for _, v := range s.Vehicles {
		t.AppendRow(table.Row{v.ID, v.IsSDC, round3(v.State.X), round3(v.State.Y), round3(v.State.Yaw), round3(v.State.V), v.ReachedGoal})
	}
	t.AppendFooter(table.Row{"ticks", ticks})
	t.Render()
}

func round3(f float64) float64 {
	return float64(int(f*1000)) / 1000
}
