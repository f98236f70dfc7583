package intervals

import "math"

const (
	z2LowRatio  = 0.58
	z2HighRatio = 0.78
	z1LowRatio  = 0.38
	z1HighRatio = 0.60

	maxLegGapSec      = 60
	minRepeatPairs    = 2
	maxLegDurationCV  = 0.25
	minZoneSeparation = 0.10
)

// detectRepeats looks for alternating Z2/Z1 chains on the candidate list
// before painting. Legs must last a minute, follow each other within a
// minute, and the chain must be regular: duration CV of each side within
// bounds and a clear ratio separation between the zones.
func detectRepeats(summaries []Interval) []Repeat {
	inZ2 := func(r float64) bool { return r >= z2LowRatio && r <= z2HighRatio }
	inZ1 := func(r float64) bool { return r >= z1LowRatio && r <= z1HighRatio }
	qualifies := func(s Interval, wantZ2 bool) bool {
		if s.DurationSec < minRunSec {
			return false
		}
		if wantZ2 {
			return inZ2(s.PowerRatio)
		}
		return inZ1(s.PowerRatio)
	}

	var repeats []Repeat
	for i := 0; i < len(summaries); i++ {
		if !qualifies(summaries[i], true) {
			continue
		}
		chain := []int{i}
		wantZ2 := false
		last := i
		for j := i + 1; j < len(summaries); j++ {
			if summaries[j].Start-summaries[last].End > maxLegGapSec {
				break
			}
			if !qualifies(summaries[j], wantZ2) {
				continue
			}
			chain = append(chain, j)
			last = j
			wantZ2 = !wantZ2
		}

		pairs := len(chain) / 2
		if pairs < minRepeatPairs {
			continue
		}

		var z2Durs, z1Durs, z2Ratios, z1Ratios []float64
		for k := 0; k < pairs*2; k++ {
			s := summaries[chain[k]]
			if k%2 == 0 {
				z2Durs = append(z2Durs, float64(s.DurationSec))
				z2Ratios = append(z2Ratios, s.PowerRatio)
			} else {
				z1Durs = append(z1Durs, float64(s.DurationSec))
				z1Ratios = append(z1Ratios, s.PowerRatio)
			}
		}
		if coefVariation(z2Durs) > maxLegDurationCV || coefVariation(z1Durs) > maxLegDurationCV {
			continue
		}
		if mean(z2Ratios)-mean(z1Ratios) < minZoneSeparation {
			continue
		}

		lastLeg := summaries[chain[pairs*2-1]]
		repeats = append(repeats, Repeat{
			Start:          summaries[chain[0]].Start,
			End:            lastLeg.End,
			Cycles:         pairs,
			Z2MeanRatio:    round2(mean(z2Ratios)),
			Z1MeanRatio:    round2(mean(z1Ratios)),
			Classification: ClassRepeats,
		})
		i = chain[pairs*2-1]
	}
	if repeats == nil {
		return []Repeat{}
	}
	return repeats
}

func mean(vals []float64) float64 {
	if len(vals) == 0 {
		return 0
	}
	var sum float64
	for _, v := range vals {
		sum += v
	}
	return sum / float64(len(vals))
}

func coefVariation(vals []float64) float64 {
	m := mean(vals)
	if m == 0 || len(vals) == 0 {
		return 0
	}
	var sq float64
	for _, v := range vals {
		d := v - m
		sq += d * d
	}
	return math.Sqrt(sq/float64(len(vals))) / m
}
