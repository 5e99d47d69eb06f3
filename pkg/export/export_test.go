package export

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/kilianp07/blackout/core/cascade"
	"github.com/kilianp07/blackout/core/dispatch"
	"github.com/kilianp07/blackout/core/model"
)

func sampleResult() cascade.Result {
	return cascade.Result{
		Scenario: "peak",
		Steps: []cascade.Step{
			{Step: cascade.WeatherStep, NewFailures: []cascade.Failure{{ID: "W", Lat: 1, Lon: 2, CapacityMW: 600}}, TotalFailed: 1},
			{Step: 0, NewFailures: []cascade.Failure{{ID: "A", Lat: 30.5, Lon: -97.25, LoadMW: 150, CapacityMW: 100}}, TotalFailed: 2, TotalLoadShedMW: 150},
		},
	}
}

func TestWriteStepsCSV(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteStepsCSV(&buf, sampleResult()); err != nil {
		t.Fatalf("write: %v", err)
	}
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 3 {
		t.Fatalf("expected header and 2 rows, got %d", len(lines))
	}
	if lines[0] != "step,node_id,lat,lon,load_mw,capacity_mw,total_failed,total_load_shed_mw" {
		t.Fatalf("unexpected header %q", lines[0])
	}
	if lines[1] != "-1,W,1,2,0,600,1,0" {
		t.Fatalf("unexpected weather row %q", lines[1])
	}
	if lines[2] != "0,A,30.5,-97.25,150,100,2,150" {
		t.Fatalf("unexpected row %q", lines[2])
	}
}

func TestWriteAssignmentsCSV(t *testing.T) {
	var buf bytes.Buffer
	as := []dispatch.Assignment{{
		ID: "DISP-0001", CrewID: "C1", TargetNodeID: "A",
		FailureType: dispatch.FailureTransmission, SpecialtyMatch: dispatch.MatchExact,
		DistanceKm: 12.25, ETAMinutes: 10, Status: model.CrewEnRoute,
	}}
	if err := WriteAssignmentsCSV(&buf, as); err != nil {
		t.Fatalf("write: %v", err)
	}
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 2 || lines[1] != "DISP-0001,C1,A,transmission,exact,12.25,10,en_route" {
		t.Fatalf("unexpected output %q", buf.String())
	}
}

func TestWriteJSON(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteJSON(&buf, sampleResult()); err != nil {
		t.Fatalf("write: %v", err)
	}
	var got cascade.Result
	if err := json.Unmarshal(buf.Bytes(), &got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got.Scenario != "peak" || len(got.Steps) != 2 {
		t.Fatalf("unexpected result %+v", got)
	}
}
