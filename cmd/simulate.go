package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/kilianp07/blackout/core/cascade"
	"github.com/kilianp07/blackout/infra/logger"
	"github.com/kilianp07/blackout/infra/topology"
	"github.com/kilianp07/blackout/pkg/export"
)

var simOpts struct {
	file     string
	scenario string
	hour     int
	format   string
}

var simulateCmd = &cobra.Command{
	Use:   "simulate",
	Short: "Run a cascade simulation and print the result",
	RunE:  simulate,
}

func init() {
	f := simulateCmd.Flags()
	f.StringVarP(&simOpts.file, "scenario-file", "f", "", "scenario file (defaults to simulation.scenario_file)")
	f.StringVarP(&simOpts.scenario, "scenario", "s", "", "scenario name (defaults to simulation.default_scenario)")
	f.IntVar(&simOpts.hour, "hour", -1, "forecast hour (defaults to simulation.default_forecast_hour)")
	f.StringVar(&simOpts.format, "format", "json", "output format: json or csv")
	rootCmd.AddCommand(simulateCmd)
}

func simulate(cmd *cobra.Command, args []string) error {
	if simOpts.format != "json" && simOpts.format != "csv" {
		return fmt.Errorf("unknown format %q", simOpts.format)
	}
	cfg, err := loadOffline()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if err := logger.Configure(cfg.Logging.Logger()); err != nil {
		return err
	}
	file := orDefault(simOpts.file, cfg.Simulation.ScenarioFile)
	name := orDefault(simOpts.scenario, cfg.Simulation.DefaultScenario)
	hour := simOpts.hour
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
	engine := cascade.NewEngine(cfg.Cascade, cascade.WithLogger(logger.New("cascade")))
	res := engine.Run(sc.Snapshot, multipliers, name, hour, weather)

	if simOpts.format == "csv" {
		return export.WriteStepsCSV(os.Stdout, res)
	}
	return export.WriteJSON(os.Stdout, res)
}

func orDefault(v, def string) string {
	if v == "" {
		return def
	}
	return v
}
