// Package topology decodes scenario files into grid snapshots, demand
// multipliers, zone weather and crew rosters.
package topology

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/kilianp07/blackout/core/model"
)

// ErrUnknownScenario is returned when a demand scenario is not defined.
var ErrUnknownScenario = errors.New("unknown scenario")

// Demand describes the load stress and weather of one named scenario.
type Demand struct {
	// Multipliers apply to every forecast hour.
	Multipliers map[string]float64 `json:"multipliers" yaml:"multipliers"`
	// HourlyMultipliers override Multipliers node by node for a given hour.
	HourlyMultipliers map[int]map[string]float64   `json:"hourly_multipliers" yaml:"hourly_multipliers"`
	Weather           map[string]model.ZoneWeather `json:"weather" yaml:"weather"`
	// DeriveDemand computes multipliers from Weather and the hour of day for
	// nodes without an explicit multiplier.
	DeriveDemand bool `json:"derive_demand" yaml:"derive_demand"`
}

// File is the on-disk layout of a scenario file.
type File struct {
	Nodes     []model.GridNode  `json:"nodes" yaml:"nodes"`
	Edges     []model.GridEdge  `json:"edges" yaml:"edges"`
	Crews     []model.Crew      `json:"crews" yaml:"crews"`
	Scenarios map[string]Demand `json:"scenarios" yaml:"scenarios"`
}

// Scenario is a validated scenario file.
type Scenario struct {
	Snapshot *model.Snapshot
	Crews    []model.Crew
	demands  map[string]Demand
}

// LoadScenario reads the file at path. The format is chosen from the
// extension.
func LoadScenario(path string) (*Scenario, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer func() { _ = f.Close() }()
	ext := strings.TrimPrefix(strings.ToLower(filepath.Ext(path)), ".")
	sc, err := DecodeScenario(f, ext)
	if err != nil {
		return nil, fmt.Errorf("load scenario %s: %w", path, err)
	}
	return sc, nil
}

// DecodeScenario reads from r to decode a scenario in format "json" or "yaml".
func DecodeScenario(r io.Reader, format string) (*Scenario, error) {
	var file File
	switch strings.ToLower(format) {
	case "yaml", "yml":
		if err := yaml.NewDecoder(r).Decode(&file); err != nil {
			return nil, err
		}
	case "json":
		if err := json.NewDecoder(r).Decode(&file); err != nil {
			return nil, err
		}
	default:
		return nil, fmt.Errorf("unsupported scenario format: %s", format)
	}
	return Build(file)
}

// Build validates file and returns the scenario.
func Build(file File) (*Scenario, error) {
	snap, err := model.NewSnapshot(file.Nodes, file.Edges)
	if err != nil {
		return nil, err
	}
	seen := make(map[string]bool, len(file.Crews))
	crews := make([]model.Crew, 0, len(file.Crews))
	for _, c := range file.Crews {
		if c.ID == "" {
			return nil, fmt.Errorf("crew without crew_id")
		}
		if seen[c.ID] {
			return nil, fmt.Errorf("duplicate crew %s", c.ID)
		}
		seen[c.ID] = true
		if c.Status == "" {
			c.Status = model.CrewStandby
		}
		crews = append(crews, c)
	}
	demands := file.Scenarios
	if demands == nil {
		demands = map[string]Demand{}
	}
	for name, d := range demands {
		for hour := range d.HourlyMultipliers {
			if hour < 0 {
				return nil, fmt.Errorf("scenario %s: negative forecast hour %d", name, hour)
			}
		}
	}
	return &Scenario{Snapshot: snap, Crews: crews, demands: demands}, nil
}

// Names lists the demand scenarios in lexical order.
func (s *Scenario) Names() []string {
	out := make([]string, 0, len(s.demands))
	for name := range s.demands {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// Multipliers returns the demand multipliers of scenario at forecastHour.
func (s *Scenario) Multipliers(scenario string, forecastHour int) (map[string]float64, error) {
	d, ok := s.demands[scenario]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownScenario, scenario)
	}
	out := make(map[string]float64, len(d.Multipliers))
	for id, m := range d.Multipliers {
		out[id] = m
	}
	for id, m := range d.HourlyMultipliers[forecastHour] {
		out[id] = m
	}
	if d.DeriveDemand {
		for id, m := range DemandMultipliers(s.Snapshot, d.Weather, forecastHour) {
			if _, set := out[id]; !set {
				out[id] = m
			}
		}
	}
	return out, nil
}

// Weather returns the zone weather of scenario, or nil when none is set.
func (s *Scenario) Weather(scenario string) (map[string]model.ZoneWeather, error) {
	d, ok := s.demands[scenario]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownScenario, scenario)
	}
	if len(d.Weather) == 0 {
		return nil, nil
	}
	out := make(map[string]model.ZoneWeather, len(d.Weather))
	for z, w := range d.Weather {
		out[z] = w
	}
	return out, nil
}

// CrewRoster returns a copy of the crews defined in the file.
func (s *Scenario) CrewRoster() []model.Crew {
	out := make([]model.Crew, len(s.Crews))
	copy(out, s.Crews)
	return out
}
