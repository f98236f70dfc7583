package streams

import "time"

// SessionSummary carries pre-aggregated totals decoded alongside a recording.
// Zero fields mean the recording did not report that total; consumers prefer
// these over re-aggregating streams when set.
type SessionSummary struct {
	StartTime      time.Time `json:"start_time,omitzero"`
	Sport          string    `json:"sport,omitempty"`
	TotalDistanceM float64   `json:"total_distance_m,omitempty"`
	TotalTimerSec  float64   `json:"total_timer_sec,omitempty"`
	AvgSpeedMps    float64   `json:"avg_speed_mps,omitempty"`
	TotalAscentM   float64   `json:"total_ascent_m,omitempty"`
	TotalDescentM  float64   `json:"total_descent_m,omitempty"`
	AvgHeartrate   float64   `json:"avg_heart_rate,omitempty"`
	MaxHeartrate   float64   `json:"max_heart_rate,omitempty"`
	AvgPower       float64   `json:"avg_power,omitempty"`
	MaxPower       float64   `json:"max_power,omitempty"`
	AvgCadence     float64   `json:"avg_cadence,omitempty"`
	MaxCadence     float64   `json:"max_cadence,omitempty"`
}
