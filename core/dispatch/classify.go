package dispatch

import "github.com/kilianp07/blackout/core/model"

// FailureType categorises a failed node by the kind of repair it needs.
type FailureType string

const (
	FailureTransmission FailureType = "transmission"
	FailureSubstation   FailureType = "substation"
	FailureDistribution FailureType = "distribution"
	FailureGeneration   FailureType = "generation"
	FailureUnknown      FailureType = "unknown"
)

const (
	transmissionKV = 200.0
	substationKV   = 69.0
	generationMW   = 200.0
)

// ClassifyFailure derives the failure type from static node attributes. A node
// whose capacity exceeds twice its base load and 200 MW is assumed to host
// generation; otherwise the voltage class decides.
func ClassifyFailure(a model.NodeAttributes) FailureType {
	if a.CapacityMW > 2*a.BaseLoadMW && a.CapacityMW > generationMW {
		return FailureGeneration
	}
	switch {
	case a.VoltageKV >= transmissionKV:
		return FailureTransmission
	case a.VoltageKV >= substationKV:
		return FailureSubstation
	}
	return FailureDistribution
}

// IdealSpecialty is the crew specialty best suited to the failure.
func (f FailureType) IdealSpecialty() model.Specialty {
	switch f {
	case FailureTransmission:
		return model.SpecialtyLineRepair
	case FailureSubstation:
		return model.SpecialtySubstation
	case FailureGeneration:
		return model.SpecialtyGeneration
	}
	return model.SpecialtyDistribution
}

// RepairMinutes is the fixed on-site repair duration for the failure type.
func (f FailureType) RepairMinutes() int {
	switch f {
	case FailureTransmission:
		return 180
	case FailureSubstation:
		return 120
	case FailureDistribution:
		return 60
	case FailureGeneration:
		return 240
	}
	return 90
}

// Match labels how well a crew's specialty fits a failure.
type Match string

const (
	MatchExact    Match = "exact"
	MatchPartial  Match = "partial"
	MatchMismatch Match = "mismatch"
)

const (
	exactMultiplier    = 2.0
	partialMultiplier  = 1.0
	mismatchMultiplier = 0.3
)

var adjacentSkills = map[model.Specialty][]model.Specialty{
	model.SpecialtyLineRepair:   {model.SpecialtySubstation},
	model.SpecialtySubstation:   {model.SpecialtyLineRepair, model.SpecialtyDistribution},
	model.SpecialtyDistribution: {model.SpecialtySubstation},
	model.SpecialtyGeneration:   nil,
}

// SpecialtyMatch scores a crew specialty against the ideal one.
func SpecialtyMatch(crew, ideal model.Specialty) (float64, Match) {
	if crew == ideal {
		return exactMultiplier, MatchExact
	}
	for _, s := range adjacentSkills[crew] {
		if s == ideal {
			return partialMultiplier, MatchPartial
		}
	}
	return mismatchMultiplier, MatchMismatch
}

// matchScore weighs the specialty fit and the failure severity against the
// distance to travel.
func matchScore(mult, loadMW, distanceKm float64) float64 {
	severity := loadMW / 500
	if severity > 5 {
		severity = 5
	}
	if severity < 0.5 {
		severity = 0.5
	}
	return mult * severity / (distanceKm + 1) * 1000
}
