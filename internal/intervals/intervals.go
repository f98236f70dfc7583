// Package intervals detects structured efforts in a 1 Hz power series: a
// baseline-relative hysteresis segmenter finds sustained efforts, sprint
// overrides catch short bursts the smoothed channels blur away, and a zone
// ladder fills the remaining samples so the final intervals partition the
// whole activity.
package intervals

import (
	"math"

	"powerlab/internal/analysis"
)

// Interval classifications, ordered by intensity.
const (
	ClassRecovery  = "recovery"
	ClassEndurance = "endurance"
	ClassTempo     = "tempo"
	ClassThreshold = "threshold"
	ClassVO2Max    = "vo2max"
	ClassAnaerobic = "anaerobic"
	ClassSprint    = "sprint"
	ClassRepeats   = "z2-z1-repeats"
)

// classPriority ranks labels for sample painting; lower wins.
var classPriority = map[string]int{
	ClassSprint:    0,
	ClassAnaerobic: 1,
	ClassVO2Max:    2,
	ClassThreshold: 3,
	ClassTempo:     4,
	ClassEndurance: 5,
	ClassRecovery:  6,
}

// Segment sources carried through to interval metadata.
const (
	sourcePower  = "power"
	sourceSprint = "sprint"
	sourceRatio  = "ratio"
)

const (
	maxPowerClip   = 1600
	zeroFillMaxRun = 3

	fastWindow     = 7
	slowWindow     = 30
	baselineWindow = 150

	openRunLen     = 5
	closeRunLen    = 9
	closeSlowRatio = 0.85

	sprintTriggerFrac  = 1.5
	sprintExtendFrac   = 0.8
	sprintHighFrac     = 1.8
	sprintTriggerCount = 6
	sprintHighCount    = 3

	mergeMaxGapSec = 10
	mergeMeanFrac  = 0.10
	nudgeMaxStep   = 4
	ratioHoleMax   = 5
	minRunSec      = 60
)

// ratioLadder maps the slow channel to zone labels, highest intensity
// first; anything below the last rung is recovery.
var ratioLadder = []struct {
	label string
	min   float64
}{
	{ClassAnaerobic, 1.21},
	{ClassVO2Max, 1.06},
	{ClassThreshold, 0.95},
	{ClassTempo, 0.76},
	{ClassEndurance, 0.56},
}

func ladderLabel(ratio float64) string {
	for _, rung := range ratioLadder {
		if ratio >= rung.min {
			return rung.label
		}
	}
	return ClassRecovery
}

// Interval is one classified effort. Start/End are closed-open second
// offsets from the beginning of the series.
type Interval struct {
	Start           int               `json:"start"`
	End             int               `json:"end"`
	DurationSec     int               `json:"duration"`
	Classification  string            `json:"classification"`
	AvgPower        float64           `json:"avg_power"`
	PeakPower       float64           `json:"peak_power"`
	NormalizedPower int               `json:"normalized_power"`
	IntensityFactor float64           `json:"intensity_factor"`
	PowerRatio      float64           `json:"power_ratio"`
	TimeAbove95     float64           `json:"time_above_95"`
	TimeAbove106    float64           `json:"time_above_106"`
	TimeAbove120    float64           `json:"time_above_120"`
	TimeAbove150    float64           `json:"time_above_150"`
	HeartRateAvg    *float64          `json:"heart_rate_avg,omitempty"`
	HeartRateMax    *float64          `json:"heart_rate_max,omitempty"`
	HeartRateSlope  *float64          `json:"heart_rate_slope,omitempty"`
	Metadata        map[string]string `json:"metadata,omitempty"`
}

// Repeat is a detected block of alternating Z2/Z1 legs.
type Repeat struct {
	Start          int     `json:"start"`
	End            int     `json:"end"`
	Cycles         int     `json:"cycles"`
	Z2MeanRatio    float64 `json:"z2_mean_ratio"`
	Z1MeanRatio    float64 `json:"z1_mean_ratio"`
	Classification string  `json:"classification"`
}

// Result is the complete detection output. Intervals partition
// [0, Duration) contiguously; Repeats are supplementary blocks.
type Result struct {
	FTP       int        `json:"ftp"`
	Duration  int        `json:"duration"`
	Intervals []Interval `json:"intervals"`
	Repeats   []Repeat   `json:"repeats"`
}

type segment struct {
	start, end int
	source     string
}

// summarize computes the per-interval stats and classification for one
// candidate range.
func summarize(seg segment, power, hr []float64, ftp float64) Interval {
	start, end := seg.start, seg.end
	if start < 0 {
		start = 0
	}
	if end > len(power) {
		end = len(power)
	}
	dur := end - start
	window := power[start:end]

	var sum, peak float64
	var above95, above106, above120, above150 int
	for _, p := range window {
		sum += p
		if p > peak {
			peak = p
		}
		if p >= 0.95*ftp {
			above95++
		}
		if p >= 1.06*ftp {
			above106++
		}
		if p >= 1.20*ftp {
			above120++
		}
		if p >= 1.50*ftp {
			above150++
		}
	}
	avg := sum / float64(dur)
	np := analysis.NormalizedPower(window)
	ratio := avg / ftp
	peakRatio := peak / ftp

	iv := Interval{
		Start:           start,
		End:             end,
		DurationSec:     dur,
		Classification:  classify(dur, ratio, peakRatio, above95, above106, above120, above150),
		AvgPower:        round2(avg),
		PeakPower:       peak,
		NormalizedPower: np,
		IntensityFactor: round2(float64(np) / ftp),
		PowerRatio:      round2(ratio),
		TimeAbove95:     round2(float64(above95) / float64(dur)),
		TimeAbove106:    round2(float64(above106) / float64(dur)),
		TimeAbove120:    round2(float64(above120) / float64(dur)),
		TimeAbove150:    round2(float64(above150) / float64(dur)),
		Metadata:        map[string]string{"source": seg.source},
	}
	fillHeartRate(&iv, hr, start, end)
	return iv
}

// classify maps interval stats to a zone label. Sprint has three entry
// points: a very high peak, a short very hard average, or a sustained burst
// of time above 150% within a short effort.
func classify(dur int, ratio, peakRatio float64, above95, above106, above120, above150 int) string {
	d := float64(dur)
	switch {
	case peakRatio >= 1.8 && dur >= 3,
		ratio >= 1.6 && dur >= 3 && dur <= 15,
		above150 >= 6 && dur <= 40 && ratio >= 1.3:
		return ClassSprint
	}
	switch {
	case ratio >= 1.21 || float64(above120)/d >= 0.70:
		return ClassAnaerobic
	case ratio >= 1.06 || float64(above106)/d >= 0.60:
		return ClassVO2Max
	case ratio >= 0.95 || float64(above95)/d >= 0.70:
		return ClassThreshold
	case ratio >= 0.76:
		return ClassTempo
	case ratio >= 0.56:
		return ClassEndurance
	}
	return ClassRecovery
}

func fillHeartRate(iv *Interval, hr []float64, start, end int) {
	if len(hr) == 0 {
		return
	}
	if end > len(hr) {
		end = len(hr)
	}
	if end <= start {
		return
	}
	var sum, max float64
	var xs, ys []float64
	for i := start; i < end; i++ {
		v := hr[i]
		if math.IsNaN(v) || v < 30 || v > 220 {
			continue
		}
		sum += v
		if v > max {
			max = v
		}
		xs = append(xs, float64(i-start))
		ys = append(ys, v)
	}
	if len(ys) == 0 {
		return
	}
	avg := math.Round(sum/float64(len(ys))*10) / 10
	iv.HeartRateAvg = &avg
	iv.HeartRateMax = &max
	if slope, ok := linearSlope(xs, ys); ok {
		// bpm per minute
		s := round2(slope * 60)
		iv.HeartRateSlope = &s
	}
}

// linearSlope is the least-squares slope of y over x, per unit of x.
func linearSlope(xs, ys []float64) (float64, bool) {
	n := float64(len(xs))
	if n < 2 {
		return 0, false
	}
	var sumX, sumY, sumXY, sumXX float64
	for i := range xs {
		sumX += xs[i]
		sumY += ys[i]
		sumXY += xs[i] * ys[i]
		sumXX += xs[i] * xs[i]
	}
	denom := n*sumXX - sumX*sumX
	if denom == 0 {
		return 0, false
	}
	return (n*sumXY - sumX*sumY) / denom, true
}
