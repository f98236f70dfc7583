package analysis

import (
	"math"

	"powerlab/internal/streams"
)

const npWindowSec = 30

// NormalizedPower computes NP over a 1 Hz power series: 30-second rolling
// mean (window grows until full at the start), mean of fourth powers, fourth
// root, rounded to the nearest watt. Returns 0 for an empty series.
func NormalizedPower(watts []float64) int {
	n := len(watts)
	if n == 0 {
		return 0
	}
	var sum, total float64
	for i := 0; i < n; i++ {
		sum += powerAt(watts, i)
		if i >= npWindowSec {
			sum -= powerAt(watts, i-npWindowSec)
		}
		win := i + 1
		if win > npWindowSec {
			win = npWindowSec
		}
		roll := sum / float64(win)
		total += roll * roll * roll * roll
	}
	return int(math.Round(math.Pow(total/float64(n), 0.25)))
}

func powerAt(watts []float64, i int) float64 {
	v := watts[i]
	if streams.IsMissing(v) || v < 0 {
		return 0
	}
	return v
}

// prefixSums returns S where S[i] is the sum of the first i samples.
func prefixSums(watts []float64) []float64 {
	pre := make([]float64, len(watts)+1)
	for i := range watts {
		pre[i+1] = pre[i] + powerAt(watts, i)
	}
	return pre
}

// BestWindowAverage returns the highest mean power over any contiguous window
// of w samples, or 0 when the series is shorter than w.
func BestWindowAverage(watts []float64, w int) float64 {
	n := len(watts)
	if w <= 0 || n < w {
		return 0
	}
	pre := prefixSums(watts)
	best := 0.0
	for i := 0; i+w <= n; i++ {
		if avg := (pre[i+w] - pre[i]) / float64(w); avg > best {
			best = avg
		}
	}
	return best
}

// BestPowerCurve returns, for every window length w in [1, n], the highest
// mean power sustained over any w consecutive seconds. Index w-1 holds the
// value for window w. Built on prefix sums so each window length is a single
// pass over contiguous memory.
func BestPowerCurve(watts []float64) []int {
	n := len(watts)
	if n == 0 {
		return nil
	}
	pre := prefixSums(watts)
	curve := make([]int, n)
	for w := 1; w <= n; w++ {
		best := 0.0
		for i := 0; i+w <= n; i++ {
			if s := pre[i+w] - pre[i]; s > best {
				best = s
			}
		}
		curve[w-1] = int(math.Round(best / float64(w)))
	}
	return curve
}

// WorkKJ is the total mechanical work in kilojoules, truncated.
func WorkKJ(watts []float64) int {
	var sum float64
	for i := range watts {
		sum += powerAt(watts, i)
	}
	return int(sum / 1000)
}

// WorkAboveFTPKJ sums power in excess of FTP, in kilojoules, truncated.
func WorkAboveFTPKJ(watts []float64, ftp float64) int {
	return int(anaerobicCapacityKJ(watts, ftp))
}

// anaerobicCapacityKJ is the un-truncated work above FTP in kJ.
func anaerobicCapacityKJ(watts []float64, ftp float64) float64 {
	if ftp <= 0 {
		return 0
	}
	var sum float64
	for i := range watts {
		if p := powerAt(watts, i); p > ftp {
			sum += p - ftp
		}
	}
	return sum / 1000
}

// WBalanceDecline reports how far the W' reserve dropped from its starting
// value: first sample minus series minimum, one decimal, in the unit of the
// input series (kJ).
func WBalanceDecline(balance []float64) float64 {
	if len(balance) == 0 {
		return 0
	}
	first := balance[0]
	low := first
	for _, v := range balance[1:] {
		if v < low {
			low = v
		}
	}
	return math.Round((first-low)*10) / 10
}

// AvgPower is the mean over the whole series with gaps counted as zero.
func AvgPower(watts []float64) float64 {
	if len(watts) == 0 {
		return 0
	}
	var sum float64
	for i := range watts {
		sum += powerAt(watts, i)
	}
	return sum / float64(len(watts))
}

// MaxPower returns the highest sample.
func MaxPower(watts []float64) float64 {
	var best float64
	for i := range watts {
		if p := powerAt(watts, i); p > best {
			best = p
		}
	}
	return best
}

// IntensityFactor is NP relative to FTP, two decimals. 0 when FTP is unset.
func IntensityFactor(np int, ftp float64) float64 {
	if ftp <= 0 || np <= 0 {
		return 0
	}
	return math.Round(float64(np)/ftp*100) / 100
}

// VariabilityIndex is NP over average power, two decimals.
func VariabilityIndex(np int, avg float64) float64 {
	if avg <= 0 || np <= 0 {
		return 0
	}
	return math.Round(float64(np)/avg*100) / 100
}
