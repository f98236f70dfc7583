package analysis

import (
	"math"

	"powerlab/internal/streams"
)

const (
	maxValidAltitude = 5000.0
	minValidAltitude = -500.0
	maxAltitudeJump  = 100.0
	gradeWindow      = 5
)

// FilterAltitude keeps plausible altitude samples: gaps are dropped, values
// above 5000 m or below -500 m are dropped, and a step of more than 100 m
// from the previous kept sample is treated as a barometric glitch.
func FilterAltitude(alt []float64) []float64 {
	out := make([]float64, 0, len(alt))
	for _, v := range alt {
		if streams.IsMissing(v) || v > maxValidAltitude || v < minValidAltitude {
			continue
		}
		if len(out) > 0 && math.Abs(v-out[len(out)-1]) > maxAltitudeJump {
			continue
		}
		out = append(out, v)
	}
	return out
}

// ElevationGain sums the positive successive deltas of the filtered series.
func ElevationGain(valid []float64) float64 {
	var gain float64
	for i := 1; i < len(valid); i++ {
		if d := valid[i] - valid[i-1]; d > 0 {
			gain += d
		}
	}
	return math.Round(gain*10) / 10
}

// TotalDescent walks the filtered series collecting strictly decreasing runs
// and sums the drop of each run, including a run still open at the end.
func TotalDescent(valid []float64) float64 {
	if len(valid) < 2 {
		return 0
	}
	var total float64
	runStart := valid[0]
	descending := false
	for i := 1; i < len(valid); i++ {
		if valid[i] < valid[i-1] {
			if !descending {
				runStart = valid[i-1]
				descending = true
			}
			continue
		}
		if descending {
			total += runStart - valid[i-1]
			descending = false
		}
	}
	if descending {
		total += runStart - valid[len(valid)-1]
	}
	return math.Round(total*10) / 10
}

// MaxAltitude returns the highest filtered sample, 0 when empty.
func MaxAltitude(valid []float64) float64 {
	if len(valid) == 0 {
		return 0
	}
	best := valid[0]
	for _, v := range valid[1:] {
		if v > best {
			best = v
		}
	}
	return best
}

// MinAltitude returns the lowest filtered sample, 0 when empty.
func MinAltitude(valid []float64) float64 {
	if len(valid) == 0 {
		return 0
	}
	low := valid[0]
	for _, v := range valid[1:] {
		if v < low {
			low = v
		}
	}
	return low
}

// gradePoint is one usable altitude+distance pair.
type gradePoint struct {
	alt  float64
	dist float64
}

func gradePoints(alt, dist []float64) []gradePoint {
	n := len(alt)
	if len(dist) < n {
		n = len(dist)
	}
	pts := make([]gradePoint, 0, n)
	for i := 0; i < n; i++ {
		a, d := alt[i], dist[i]
		if streams.IsMissing(a) || streams.IsMissing(d) {
			continue
		}
		if a > maxValidAltitude || a < minValidAltitude {
			continue
		}
		pts = append(pts, gradePoint{alt: a, dist: d})
	}
	return pts
}

// MaxGrade scans a five-sample window over aligned altitude and distance and
// returns the steepest grade percentage seen. Windows shorter than 50 m or
// longer than 1 km of travel are skipped, as are grades beyond ±50%.
func MaxGrade(alt, dist []float64) float64 {
	pts := gradePoints(alt, dist)
	var best float64
	for i := gradeWindow; i < len(pts); i++ {
		dd := pts[i].dist - pts[i-gradeWindow].dist
		if dd <= 50 || dd >= 1000 {
			continue
		}
		g := (pts[i].alt - pts[i-gradeWindow].alt) / dd * 100
		if math.Abs(g) > 50 {
			continue
		}
		if math.Abs(g) > math.Abs(best) {
			best = g
		}
	}
	return math.Round(best*10) / 10
}

// ClimbDistances accumulates the distance ridden while climbing or
// descending over the same five-sample window: a window gaining more than
// 1 m counts as uphill, losing more than 1 m as downhill. Both are kilometers
// with two decimals.
func ClimbDistances(alt, dist []float64) (uphillKm, downhillKm float64) {
	pts := gradePoints(alt, dist)
	var up, down float64
	for i := gradeWindow; i < len(pts); i += gradeWindow {
		dd := pts[i].dist - pts[i-gradeWindow].dist
		if dd <= 0 {
			continue
		}
		da := pts[i].alt - pts[i-gradeWindow].alt
		if da > 1 {
			up += dd
		} else if da < -1 {
			down += dd
		}
	}
	return math.Round(up/10) / 100, math.Round(down/10) / 100
}
