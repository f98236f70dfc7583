package analysis

import (
	"fmt"
	"math"

	"powerlab/internal/streams"
)

const (
	minValidHR   = 30
	maxValidHR   = 220
	maxHRJump    = 50
	hrRecoverWin = 60
)

// FilterHeartrate returns the valid samples of a heart-rate series: gaps and
// non-positive readings are dropped, values outside [30, 220] are dropped,
// and a sample differing from the previous kept one by more than 50 bpm is
// treated as a sensor spike and dropped.
func FilterHeartrate(hr []float64) []float64 {
	out := make([]float64, 0, len(hr))
	for _, v := range hr {
		if streams.IsMissing(v) || v <= 0 || v < minValidHR || v > maxValidHR {
			continue
		}
		if len(out) > 0 && math.Abs(v-out[len(out)-1]) > maxHRJump {
			continue
		}
		out = append(out, v)
	}
	return out
}

// AvgHeartrate is the mean of the filtered series, 0 when empty.
func AvgHeartrate(valid []float64) float64 {
	if len(valid) == 0 {
		return 0
	}
	var sum float64
	for _, v := range valid {
		sum += v
	}
	return sum / float64(len(valid))
}

// MaxHeartrate returns the highest filtered sample.
func MaxHeartrate(valid []float64) float64 {
	var best float64
	for _, v := range valid {
		if v > best {
			best = v
		}
	}
	return best
}

// MinHeartrate returns the lowest filtered sample, 0 when empty.
func MinHeartrate(valid []float64) float64 {
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

// RecoveryRate is the largest heart-rate drop across any 60-second window of
// the filtered series, as a non-negative integer.
func RecoveryRate(valid []float64) int {
	best := 0.0
	for i := 0; i+hrRecoverWin < len(valid); i++ {
		if drop := valid[i] - valid[i+hrRecoverWin]; drop > best {
			best = drop
		}
	}
	return int(math.Round(best))
}

// EfficiencyIndex relates normalized power to average heart rate, two
// decimals. Nil when either input is empty.
func EfficiencyIndex(watts, hr []float64) *float64 {
	valid := FilterHeartrate(hr)
	if len(valid) == 0 || len(watts) == 0 {
		return nil
	}
	np := NormalizedPower(watts)
	if np <= 0 {
		return nil
	}
	avg := AvgHeartrate(valid)
	if avg <= 0 {
		return nil
	}
	ei := math.Round(float64(np)/avg*100) / 100
	return &ei
}

// alignedPairs keeps the indexes where both power and heart rate are usable.
func alignedPairs(watts, hr []float64) (p, h []float64) {
	n := len(watts)
	if len(hr) < n {
		n = len(hr)
	}
	for i := 0; i < n; i++ {
		pw, hv := watts[i], hr[i]
		if streams.IsMissing(pw) || pw < 0 {
			continue
		}
		if streams.IsMissing(hv) || hv < minValidHR || hv > maxValidHR {
			continue
		}
		p = append(p, pw)
		h = append(h, hv)
	}
	return p, h
}

// DecouplingRate compares the power-to-heart-rate ratio of the first and
// second halves of the ride and reports the drift as a percentage string
// ("4.2%"). Nil when there is too little data or the result exceeds ±30%
// (spurious).
func DecouplingRate(watts, hr []float64) *string {
	p, h := alignedPairs(watts, hr)
	n := len(p)
	if n < 4 {
		return nil
	}
	half := n / 2
	r1 := ratioOf(p[:half], h[:half])
	r2 := ratioOf(p[half:], h[half:])
	if r1 == 0 {
		return nil
	}
	drift := (r1 - r2) / r1 * 100
	if math.Abs(drift) > 30 {
		return nil
	}
	s := fmt.Sprintf("%.1f%%", drift)
	return &s
}

func ratioOf(p, h []float64) float64 {
	var sp, sh float64
	for i := range p {
		sp += p[i]
		sh += h[i]
	}
	if sh == 0 {
		return 0
	}
	return sp / sh
}

// HRLag estimates how many seconds heart rate trails power via the peak of
// the full cross-correlation of the normalized series. Nil when the peak is
// weaker than 0.3·n, meaning the two signals don't track each other.
func HRLag(watts, hr []float64) *int {
	p, h := alignedPairs(watts, hr)
	n := len(p)
	if n < 2 {
		return nil
	}
	a := normalize(p)
	b := normalize(h)
	if a == nil || b == nil {
		return nil
	}

	bestVal := math.Inf(-1)
	bestM := 0
	for m := 0; m < 2*n-1; m++ {
		lag := m - (n - 1)
		var sum float64
		for i := 0; i < n; i++ {
			j := i + lag
			if j < 0 || j >= n {
				continue
			}
			sum += a[i] * b[j]
		}
		if sum > bestVal {
			bestVal = sum
			bestM = m
		}
	}
	if bestVal < 0.3*float64(n) {
		return nil
	}
	lag := bestM - (n - 1)
	if lag < 0 {
		lag = -lag
	}
	return &lag
}

// normalize mean-centers and scales to unit variance; nil for a flat series.
func normalize(xs []float64) []float64 {
	n := float64(len(xs))
	var mean float64
	for _, v := range xs {
		mean += v
	}
	mean /= n
	var variance float64
	for _, v := range xs {
		d := v - mean
		variance += d * d
	}
	variance /= n
	if variance == 0 {
		return nil
	}
	std := math.Sqrt(variance)
	out := make([]float64, len(xs))
	for i, v := range xs {
		out[i] = (v - mean) / std
	}
	return out
}
