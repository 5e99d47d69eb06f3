package topology

import (
	"math"

	"github.com/kilianp07/blackout/core/model"
)

// Diurnal load curve, peak in the evening and trough before dawn.
var todCurve = [24]float64{
	0.65, 0.60, 0.58, 0.57, 0.57, 0.60,
	0.70, 0.80, 0.90, 0.95, 0.98, 1.00,
	1.02, 1.03, 1.05, 1.05, 1.08, 1.10,
	1.15, 1.15, 1.12, 1.05, 0.90, 0.78,
}

const (
	heatSensitivity = 0.05
	coolSensitivity = 0.03
	heatBaseF       = 65.0
	coolBaseF       = 75.0
	neutralTempF    = 65.0
)

// DemandMultipliers derives a multiplier per node from the temperature of its
// weather zone and the time of day:
//
//	tod(hour) * (1 + heat*max(0, 65-T) + cool*max(0, T-75))
//
// Nodes in zones without weather use a neutral temperature. Values are
// rounded to 4 decimals.
func DemandMultipliers(snap *model.Snapshot, weather map[string]model.ZoneWeather, forecastHour int) map[string]float64 {
	if snap == nil {
		return map[string]float64{}
	}
	tod := todCurve[((forecastHour%24)+24)%24]
	out := make(map[string]float64, snap.Len())
	for _, n := range snap.Nodes() {
		temp := neutralTempF
		if w, ok := weather[n.WeatherZone]; ok {
			temp = w.TempF
		}
		hdh := math.Max(0, heatBaseF-temp)
		cdh := math.Max(0, temp-coolBaseF)
		m := tod * (1 + heatSensitivity*hdh + coolSensitivity*cdh)
		out[n.ID] = math.Round(m*1e4) / 1e4
	}
	return out
}
