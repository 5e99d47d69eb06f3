// Package export renders cascade results and dispatch assignments for
// offline analysis.
package export

import (
	"encoding/csv"
	"encoding/json"
	"io"
	"strconv"

	"github.com/kilianp07/blackout/core/cascade"
	"github.com/kilianp07/blackout/core/dispatch"
)

// WriteJSON writes v to w as indented JSON.
func WriteJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// WriteStepsCSV writes one row per node failure of the cascade, in step
// order. The weather stage is reported as step -1.
func WriteStepsCSV(w io.Writer, res cascade.Result) error {
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"step", "node_id", "lat", "lon", "load_mw", "capacity_mw", "total_failed", "total_load_shed_mw"}); err != nil {
		return err
	}
	for _, s := range res.Steps {
		for _, f := range s.NewFailures {
			rec := []string{
				strconv.Itoa(s.Step),
				f.ID,
				ftoa(f.Lat),
				ftoa(f.Lon),
				ftoa(f.LoadMW),
				ftoa(f.CapacityMW),
				strconv.Itoa(s.TotalFailed),
				ftoa(s.TotalLoadShedMW),
			}
			if err := cw.Write(rec); err != nil {
				return err
			}
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteAssignmentsCSV writes the assignments of a dispatch session.
func WriteAssignmentsCSV(w io.Writer, assignments []dispatch.Assignment) error {
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"assignment_id", "crew_id", "node_id", "failure_type", "match", "distance_km", "eta_minutes", "status"}); err != nil {
		return err
	}
	for _, a := range assignments {
		rec := []string{
			a.ID,
			a.CrewID,
			a.TargetNodeID,
			string(a.FailureType),
			string(a.SpecialtyMatch),
			ftoa(a.DistanceKm),
			strconv.Itoa(a.ETAMinutes),
			string(a.Status),
		}
		if err := cw.Write(rec); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

func ftoa(v float64) string { return strconv.FormatFloat(v, 'f', -1, 64) }
