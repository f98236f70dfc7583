package analysis

import (
	"math"

	"powerlab/internal/streams"
)

const (
	// Anything beyond 42 m/s (~150 km/h) is GPS noise for a bicycle.
	maxValidSpeed = 42.0
	// Below 0.5 m/s the rider is considered stopped.
	movingSpeedFloor = 0.5
)

// SpeedSummary aggregates the velocity stream.
type SpeedSummary struct {
	AvgKmh        float64 `json:"avg_kmh"`
	MaxKmh        float64 `json:"max_kmh"`
	AvgMovingKmh  float64 `json:"avg_moving_kmh"`
	MovingTimeSec int     `json:"moving_time_sec"`
	StoppedSec    int     `json:"stopped_time_sec"`
	DistanceKm    float64 `json:"distance_km"`
}

// SpeedMetrics filters the velocity stream and aggregates it. Moving time
// counts seconds above the stopped floor; stopped time is the remainder of
// the elapsed span. Nil when no usable samples exist.
func SpeedMetrics(t []int, speed, dist []float64) *SpeedSummary {
	var sum, movingSum, max float64
	var count, moving int
	for i, v := range speed {
		if streams.IsMissing(v) || v < 0 || v > maxValidSpeed {
			continue
		}
		sum += v
		count++
		if v > max {
			max = v
		}
		if v > movingSpeedFloor {
			movingSum += v
			if i > 0 {
				moving += t[i] - t[i-1]
			} else {
				moving++
			}
		}
	}
	if count == 0 {
		return nil
	}
	elapsed := 0
	if len(t) > 0 {
		elapsed = t[len(t)-1] - t[0] + 1
	}
	stopped := elapsed - moving
	if stopped < 0 {
		stopped = 0
	}

	var avgMoving float64
	if moving > 0 {
		avgMoving = movingSum / float64(moving)
	}
	return &SpeedSummary{
		AvgKmh:        kmh1(sum / float64(count)),
		MaxKmh:        kmh1(max),
		AvgMovingKmh:  kmh1(avgMoving),
		MovingTimeSec: moving,
		StoppedSec:    stopped,
		DistanceKm:    TotalDistanceKm(dist),
	}
}

// TotalDistanceKm reads the last recorded cumulative distance, km 2 decimals.
func TotalDistanceKm(dist []float64) float64 {
	for i := len(dist) - 1; i >= 0; i-- {
		if !streams.IsMissing(dist[i]) && dist[i] > 0 {
			return math.Round(dist[i]/10) / 100
		}
	}
	return 0
}

func kmh1(mps float64) float64 {
	return math.Round(mps*3.6*10) / 10
}
