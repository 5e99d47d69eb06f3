package cmd

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/kilianp07/blackout/core/cascade"
	"github.com/kilianp07/blackout/core/dispatch"
	"github.com/kilianp07/blackout/infra/logger"
	"github.com/kilianp07/blackout/infra/topology"
	"github.com/kilianp07/blackout/pkg/export"
)

var dispatchOpts struct {
	file     string
	scenario string
	hour     int
	storm    bool
	step     time.Duration
	maxSteps int
	format   string
}

var dispatchCmd = &cobra.Command{
	Use:   "dispatch",
	Short: "Replay crew dispatch over a simulated clock until every failed node is repaired",
	RunE:  replayDispatch,
}

func init() {
	f := dispatchCmd.Flags()
	f.StringVarP(&dispatchOpts.file, "scenario-file", "f", "", "scenario file (defaults to simulation.scenario_file)")
	f.StringVarP(&dispatchOpts.scenario, "scenario", "s", "", "scenario name (defaults to simulation.default_scenario)")
	f.IntVar(&dispatchOpts.hour, "hour", -1, "forecast hour (defaults to simulation.default_forecast_hour)")
	f.BoolVar(&dispatchOpts.storm, "storm", false, "use storm travel speed")
	f.DurationVar(&dispatchOpts.step, "step", 10*time.Minute, "simulated time between ticks")
	f.IntVar(&dispatchOpts.maxSteps, "max-steps", 1000, "stop after this many ticks")
	f.StringVar(&dispatchOpts.format, "format", "json", "output format: json or csv")
	rootCmd.AddCommand(dispatchCmd)
}

func replayDispatch(cmd *cobra.Command, args []string) error {
	if dispatchOpts.format != "json" && dispatchOpts.format != "csv" {
		return fmt.Errorf("unknown format %q", dispatchOpts.format)
	}
	if dispatchOpts.step <= 0 {
		return fmt.Errorf("step must be positive")
	}
	cfg, err := loadOffline()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if err := logger.Configure(cfg.Logging.Logger()); err != nil {
		return err
	}
	log := logger.New("dispatch-replay")
	file := orDefault(dispatchOpts.file, cfg.Simulation.ScenarioFile)
	name := orDefault(dispatchOpts.scenario, cfg.Simulation.DefaultScenario)
	hour := dispatchOpts.hour
	if hour < 0 {
		hour = cfg.Simulation.DefaultForecastHour
	}

	sc, err := topology.LoadScenario(file)
	if err != nil {
		return err
	}
	multipliers, err := sc.Multipliers(name, hour)
	if err != nil {
		return err
	}
	weather, err := sc.Weather(name)
	if err != nil {
		return err
	}

	clock := time.Now().UTC().Truncate(time.Minute)
	now := func() time.Time { return clock }
	res := cascade.NewEngine(cfg.Cascade, cascade.WithClock(now)).Run(sc.Snapshot, multipliers, name, hour, weather)

	dcfg := cfg.Dispatch
	dcfg.StormMode = dispatchOpts.storm
	sch := dispatch.NewScheduler(dcfg,
		dispatch.WithClock(now),
		dispatch.WithLogger(logger.New("dispatch")),
		dispatch.WithSessionID("replay"))
	sch.LoadCrews(sc.CrewRoster())
	failed := sch.LoadFailedNodes(res, sc.Snapshot.Attributes())
	log.Infof("scenario %s hour %d: %d failed nodes, %d crews", name, hour, len(failed), len(sc.Crews))

	var st dispatch.Status
	steps := 0
	for ; steps < dispatchOpts.maxSteps; steps++ {
		if out := sch.DispatchAll(sch.RecommendDispatch()); len(out) > 0 {
			log.Infof("t+%s: dispatched %d crews", clock.Sub(res.CompletedAt), len(out))
		}
		st = sch.Status()
		if len(st.RepairedNodes) == len(failed) || idle(st) {
			break
		}
		clock = clock.Add(dispatchOpts.step)
		sch.Tick()
	}
	log.Infof("replay finished after %d ticks (%s simulated): %d/%d nodes repaired",
		steps, clock.Sub(res.CompletedAt), len(st.RepairedNodes), len(failed))

	if dispatchOpts.format == "csv" {
		return export.WriteAssignmentsCSV(os.Stdout, st.Assignments)
	}
	return export.WriteJSON(os.Stdout, st)
}

// idle reports whether no assignment is in progress after dispatching,
// meaning no crew can take the remaining nodes.
func idle(st dispatch.Status) bool {
	for _, a := range st.Assignments {
		if a.Status.Active() {
			return false
		}
	}
	return true
}
