package events

import "time"

// CascadeEvent is published once a cascade run has been computed. Cached
// results are not republished.
type CascadeEvent struct {
	Scenario        string
	ForecastHour    int
	TotalNodes      int
	FailedNodes     int
	Depth           int
	WeatherFailures int
	LoadShedMW      float64
	Converged       bool
	Duration        time.Duration
	Time            time.Time
}
