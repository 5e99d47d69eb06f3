package cascade

import (
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

func summarize(pcts []float64, stressedPct float64) LoadStats {
	if len(pcts) == 0 {
		return LoadStats{}
	}
	mean, std := stat.MeanStdDev(pcts, nil)
	if len(pcts) == 1 {
		std = 0
	}
	stressed := 0
	for _, p := range pcts {
		if p > stressedPct {
			stressed++
		}
	}
	return LoadStats{
		MeanPct:   round1(mean),
		StdDevPct: round1(std),
		MaxPct:    round1(floats.Max(pcts)),
		Stressed:  stressed,
	}
}
