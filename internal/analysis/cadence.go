package analysis

import (
	"math"

	"powerlab/internal/streams"
)

// CadenceSummary aggregates the cadence stream.
type CadenceSummary struct {
	Avg         int      `json:"avg"`
	Max         int      `json:"max"`
	CoastingPct float64  `json:"coasting_pct"`
	AvgTorque   *float64 `json:"avg_torque,omitempty"`
	AvgSPI      *float64 `json:"avg_spi,omitempty"`
}

// CadenceMetrics averages non-zero cadence and reports how much of the
// moving time was spent coasting. Torque and SPI averages are attached when
// the derived columns exist. Nil when the stream carries no data.
func CadenceMetrics(cadence, speed, torque, spi []float64) *CadenceSummary {
	var sum, max float64
	var nonZero int
	var movingSamples, coasting int
	for i, c := range cadence {
		isMoving := i < len(speed) && !streams.IsMissing(speed[i]) && speed[i] > movingSpeedFloor
		if isMoving {
			movingSamples++
		}
		if streams.IsMissing(c) || c <= 0 {
			if isMoving {
				coasting++
			}
			continue
		}
		sum += c
		nonZero++
		if c > max {
			max = c
		}
	}
	if nonZero == 0 {
		return nil
	}

	out := &CadenceSummary{
		Avg: int(math.Round(sum / float64(nonZero))),
		Max: int(math.Round(max)),
	}
	if movingSamples > 0 {
		out.CoastingPct = math.Round(float64(coasting)/float64(movingSamples)*1000) / 10
	}
	if avg := meanNonZero(torque); avg > 0 {
		v := math.Round(avg*10) / 10
		out.AvgTorque = &v
	}
	if avg := meanNonZero(spi); avg > 0 {
		v := math.Round(avg*100) / 100
		out.AvgSPI = &v
	}
	return out
}

// TempSummary aggregates the temperature stream.
type TempSummary struct {
	Min float64 `json:"min"`
	Avg float64 `json:"avg"`
	Max float64 `json:"max"`
}

// TempMetrics reports min/avg/max over recorded temperature samples, nil
// when the stream carries no data.
func TempMetrics(temp []float64) *TempSummary {
	var sum float64
	var count int
	var min, max float64
	for _, v := range temp {
		if streams.IsMissing(v) {
			continue
		}
		if count == 0 {
			min, max = v, v
		} else {
			if v < min {
				min = v
			}
			if v > max {
				max = v
			}
		}
		sum += v
		count++
	}
	if count == 0 {
		return nil
	}
	return &TempSummary{
		Min: min,
		Avg: math.Round(sum/float64(count)*10) / 10,
		Max: max,
	}
}

func meanNonZero(xs []float64) float64 {
	var sum float64
	var count int
	for _, v := range xs {
		if streams.IsMissing(v) || v <= 0 {
			continue
		}
		sum += v
		count++
	}
	if count == 0 {
		return 0
	}
	return sum / float64(count)
}
