package intervals

import (
	"math"
	"sort"
)

// resample projects samples onto a uniform 1 Hz timeline with zero-order
// hold. When no usable time column is given the series is assumed to be
// 1 Hz already and is copied as-is.
func resample(timeSec []int, vals []float64) []float64 {
	if len(vals) == 0 {
		return nil
	}
	if len(timeSec) != len(vals) {
		out := make([]float64, len(vals))
		copy(out, vals)
		return out
	}
	span := timeSec[len(timeSec)-1] - timeSec[0] + 1
	if span <= 0 {
		out := make([]float64, len(vals))
		copy(out, vals)
		return out
	}
	out := make([]float64, span)
	j := 0
	for s := 0; s < span; s++ {
		for j+1 < len(timeSec) && timeSec[j+1] <= timeSec[0]+s {
			j++
		}
		out[s] = vals[j]
	}
	return out
}

// clipPower replaces unusable samples with zero and caps spikes.
func clipPower(vals []float64) {
	for i, v := range vals {
		switch {
		case math.IsNaN(v) || v < 0:
			vals[i] = 0
		case v > maxPowerClip:
			vals[i] = maxPowerClip
		}
	}
}

// fillZeroRuns patches short dropouts (runs of zeros up to three samples)
// with the nearest neighbor value.
func fillZeroRuns(vals []float64) {
	n := len(vals)
	i := 0
	for i < n {
		if vals[i] != 0 {
			i++
			continue
		}
		j := i
		for j < n && vals[j] == 0 {
			j++
		}
		if j-i <= zeroFillMaxRun {
			var fill float64
			if i > 0 {
				fill = vals[i-1]
			} else if j < n {
				fill = vals[j]
			}
			if fill != 0 {
				for k := i; k < j; k++ {
					vals[k] = fill
				}
			}
		}
		i = j
	}
}

// centeredMean is a centered moving average whose window shrinks at the
// series edges.
func centeredMean(vals []float64, window int) []float64 {
	n := len(vals)
	out := make([]float64, n)
	if n == 0 {
		return out
	}
	pre := make([]float64, n+1)
	for i, v := range vals {
		pre[i+1] = pre[i] + v
	}
	left := (window - 1) / 2
	right := window / 2
	for i := 0; i < n; i++ {
		lo := i - left
		if lo < 0 {
			lo = 0
		}
		hi := i + right
		if hi > n-1 {
			hi = n - 1
		}
		out[i] = (pre[hi+1] - pre[lo]) / float64(hi-lo+1)
	}
	return out
}

// centeredMedian is a centered rolling median with the same shrinking-edge
// semantics. The window is maintained as a sorted buffer; both bounds move
// monotonically so each sample enters and leaves once.
func centeredMedian(vals []float64, window int) []float64 {
	n := len(vals)
	out := make([]float64, n)
	if n == 0 {
		return out
	}
	left := (window - 1) / 2
	right := window / 2
	buf := make([]float64, 0, window+1)
	lo, hi := 0, -1
	for i := 0; i < n; i++ {
		wantLo := i - left
		if wantLo < 0 {
			wantLo = 0
		}
		wantHi := i + right
		if wantHi > n-1 {
			wantHi = n - 1
		}
		for hi < wantHi {
			hi++
			idx := sort.SearchFloat64s(buf, vals[hi])
			buf = append(buf, 0)
			copy(buf[idx+1:], buf[idx:])
			buf[idx] = vals[hi]
		}
		for lo < wantLo {
			idx := sort.SearchFloat64s(buf, vals[lo])
			buf = append(buf[:idx], buf[idx+1:]...)
			lo++
		}
		m := len(buf)
		if m%2 == 1 {
			out[i] = buf[m/2]
		} else {
			out[i] = (buf[m/2-1] + buf[m/2]) / 2
		}
	}
	return out
}

// detectionThreshold derives the hysteresis threshold from the spread of
// the fast channel around the baseline, floored at 20% of FTP.
func detectionThreshold(fast, baseline []float64, ftp float64) float64 {
	n := len(fast)
	if n == 0 {
		return 0.2 * ftp
	}
	var sum, sumSq float64
	for i := range fast {
		d := fast[i] - baseline[i]
		sum += d
		sumSq += d * d
	}
	mean := sum / float64(n)
	variance := sumSq/float64(n) - mean*mean
	if variance < 0 {
		variance = 0
	}
	th := 0.75 * math.Sqrt(variance)
	if floor := 0.2 * ftp; th < floor {
		th = floor
	}
	return th
}

func meanRange(vals []float64, start, end int) float64 {
	if start < 0 {
		start = 0
	}
	if end > len(vals) {
		end = len(vals)
	}
	if end <= start {
		return 0
	}
	var sum float64
	for _, v := range vals[start:end] {
		sum += v
	}
	return sum / float64(end-start)
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
