package intervals

import (
	"math"
	"sort"
)

// Detect runs the full pipeline over a power series. timeSec may be nil
// when the series is already 1 Hz; heartrate is optional. A non-positive
// FTP or an empty series yields an empty result, never an error.
func Detect(timeSec []int, power, heartrate []float64, ftp float64) Result {
	empty := Result{Intervals: []Interval{}, Repeats: []Repeat{}}
	if ftp <= 0 || len(power) == 0 {
		return empty
	}

	p := resample(timeSec, power)
	clipPower(p)
	fillZeroRuns(p)
	n := len(p)
	if n == 0 {
		return empty
	}
	hr := alignHeartrate(timeSec, heartrate, n)

	fast := centeredMean(p, fastWindow)
	slow := centeredMean(p, slowWindow)
	baseline := centeredMedian(p, baselineWindow)
	theta := detectionThreshold(fast, baseline, ftp)

	segs := hysteresisSegments(fast, slow, baseline, ftp, theta)
	segs = append(segs, sprintSegments(p, ftp)...)
	segs = mergeAndTune(segs, p, slow, ftp)

	ladder := make([]string, n)
	for i := range slow {
		ladder[i] = ladderLabel(slow[i] / ftp)
	}
	candidates := append(segs, ratioFill(segs, ladder, n)...)
	sort.Slice(candidates, func(a, b int) bool {
		if candidates[a].start != candidates[b].start {
			return candidates[a].start < candidates[b].start
		}
		return candidates[a].end < candidates[b].end
	})

	summaries := make([]Interval, len(candidates))
	for i, seg := range candidates {
		summaries[i] = summarize(seg, p, hr, ftp)
	}

	labels, sources := paint(candidates, summaries, ladder, n)
	mergeShortRuns(labels)

	finals := make([]Interval, 0, 8)
	for _, r := range buildRuns(labels) {
		iv := summarize(segment{start: r.start, end: r.end, source: dominantSource(sources, r)}, p, hr, ftp)
		iv.Classification = r.label
		finals = append(finals, iv)
	}

	return Result{
		FTP:       int(math.Round(ftp)),
		Duration:  n,
		Intervals: finals,
		Repeats:   detectRepeats(summaries),
	}
}

// alignHeartrate resamples HR onto the power timeline and pads or trims it
// to the same length.
func alignHeartrate(timeSec []int, hr []float64, n int) []float64 {
	if len(hr) == 0 {
		return nil
	}
	out := resample(timeSec, hr)
	if len(out) >= n {
		return out[:n]
	}
	padded := make([]float64, n)
	copy(padded, out)
	for i := len(out); i < n; i++ {
		padded[i] = math.NaN()
	}
	return padded
}

// hysteresisSegments walks E = fast - (baseline + theta). Five consecutive
// positive samples open a segment; nine consecutive samples that are both
// well below the threshold and under 85% of FTP on the slow channel close
// it at the first sample of the closing run.
func hysteresisSegments(fast, slow, baseline []float64, ftp, theta float64) []segment {
	var segs []segment
	inSeg := false
	start := 0
	openRun, closeRun := 0, 0
	for i := range fast {
		e := fast[i] - (baseline[i] + theta)
		if !inSeg {
			if e > 0 {
				openRun++
				if openRun >= openRunLen {
					inSeg = true
					start = i - openRunLen + 1
					closeRun = 0
				}
			} else {
				openRun = 0
			}
			continue
		}
		if e < -0.5*theta && slow[i]/ftp < closeSlowRatio {
			closeRun++
			if closeRun >= closeRunLen {
				segs = append(segs, segment{start: start, end: i - closeRunLen + 1, source: sourcePower})
				inSeg = false
				openRun = 0
			}
		} else {
			closeRun = 0
		}
	}
	if inSeg {
		segs = append(segs, segment{start: start, end: len(fast), source: sourcePower})
	}
	return segs
}

// sprintSegments catches bursts the smoothed channels miss: a sample at
// 150% of FTP opens a window that extends while power holds 80%, and the
// window is kept if it contains six samples over 150% or three over 180%.
func sprintSegments(power []float64, ftp float64) []segment {
	var segs []segment
	n := len(power)
	trigger := sprintTriggerFrac * ftp
	extend := sprintExtendFrac * ftp
	high := sprintHighFrac * ftp
	for i := 0; i < n; {
		if power[i] < trigger {
			i++
			continue
		}
		j := i
		for j < n && power[j] >= extend {
			j++
		}
		var cTrigger, cHigh int
		for k := i; k < j; k++ {
			if power[k] >= trigger {
				cTrigger++
			}
			if power[k] >= high {
				cHigh++
			}
		}
		if cTrigger >= sprintTriggerCount || cHigh >= sprintHighCount {
			segs = append(segs, segment{start: i, end: j, source: sourceSprint})
		}
		i = j
	}
	return segs
}

// mergeAndTune sorts segments, merges near-adjacent ones with similar mean
// power, and snaps non-sprint endpoints onto nearby minima of the slow
// channel. Sprint windows keep their exact sample bounds.
func mergeAndTune(segs []segment, power, slow []float64, ftp float64) []segment {
	if len(segs) == 0 {
		return segs
	}
	sort.Slice(segs, func(a, b int) bool {
		if segs[a].start != segs[b].start {
			return segs[a].start < segs[b].start
		}
		return segs[a].end < segs[b].end
	})

	merged := []segment{segs[0]}
	for _, s := range segs[1:] {
		last := &merged[len(merged)-1]
		gap := s.start - last.end
		diff := math.Abs(meanRange(power, last.start, last.end) - meanRange(power, s.start, s.end))
		if gap < mergeMaxGapSec && diff <= mergeMeanFrac*ftp {
			if s.end > last.end {
				last.end = s.end
			}
			if s.source != last.source {
				last.source = sourcePower
			}
			continue
		}
		merged = append(merged, s)
	}

	for i := range merged {
		if merged[i].source == sourceSprint {
			continue
		}
		start := nudgeToMin(merged[i].start, slow)
		end := nudgeToMin(merged[i].end-1, slow) + 1
		if start < end {
			merged[i].start, merged[i].end = start, end
		}
	}
	return merged
}

// nudgeToMin walks an endpoint up to four steps toward the lower slow
// channel neighbor, stopping at a local minimum.
func nudgeToMin(idx int, slow []float64) int {
	if idx < 0 {
		idx = 0
	}
	if idx > len(slow)-1 {
		idx = len(slow) - 1
	}
	best := idx
	for step := 0; step < nudgeMaxStep; step++ {
		cand := best
		if best > 0 && slow[best-1] < slow[cand] {
			cand = best - 1
		}
		if best+1 < len(slow) && slow[best+1] < slow[cand] {
			cand = best + 1
		}
		if cand == best {
			break
		}
		best = cand
	}
	return best
}

// ratioFill covers samples no power segment claimed. Per zone label from
// the most intense down, contiguous runs of uncovered same-label samples
// become segments, with holes up to five samples bridged.
func ratioFill(segs []segment, ladder []string, n int) []segment {
	claimed := make([]bool, n)
	for _, s := range segs {
		for i := max(s.start, 0); i < min(s.end, n); i++ {
			claimed[i] = true
		}
	}

	var out []segment
	labels := make([]string, 0, len(ratioLadder)+1)
	for _, rung := range ratioLadder {
		labels = append(labels, rung.label)
	}
	labels = append(labels, ClassRecovery)

	for _, label := range labels {
		var runs []segment
		inRun := false
		start := 0
		for i := 0; i < n; i++ {
			hit := !claimed[i] && ladder[i] == label
			if hit && !inRun {
				inRun = true
				start = i
			}
			if !hit && inRun {
				inRun = false
				runs = append(runs, segment{start: start, end: i, source: sourceRatio})
			}
		}
		if inRun {
			runs = append(runs, segment{start: start, end: n, source: sourceRatio})
		}

		// bridge short holes between runs of the same label
		var bridged []segment
		for _, r := range runs {
			if len(bridged) > 0 && r.start-bridged[len(bridged)-1].end <= ratioHoleMax {
				bridged[len(bridged)-1].end = r.end
				continue
			}
			bridged = append(bridged, r)
		}
		for _, r := range bridged {
			for i := r.start; i < r.end; i++ {
				claimed[i] = true
			}
			out = append(out, r)
		}
	}
	return out
}

// paint labels every sample with the highest-priority candidate covering
// it, falling back to the per-sample zone ladder.
func paint(candidates []segment, summaries []Interval, ladder []string, n int) (labels, sources []string) {
	labels = make([]string, n)
	sources = make([]string, n)
	best := make([]int, n)
	for i := range best {
		best[i] = len(classPriority) + 1
	}
	for ci, seg := range candidates {
		pri := classPriority[summaries[ci].Classification]
		for i := max(seg.start, 0); i < min(seg.end, n); i++ {
			if pri < best[i] {
				best[i] = pri
				labels[i] = summaries[ci].Classification
				sources[i] = seg.source
			}
		}
	}
	for i := range labels {
		if labels[i] == "" {
			labels[i] = ladder[i]
			sources[i] = sourceRatio
		}
	}
	return labels, sources
}

type labelRun struct {
	start, end int
	label      string
}

func buildRuns(labels []string) []labelRun {
	var runs []labelRun
	for i := 0; i < len(labels); {
		j := i
		for j < len(labels) && labels[j] == labels[i] {
			j++
		}
		runs = append(runs, labelRun{start: i, end: j, label: labels[i]})
		i = j
	}
	return runs
}

// mergeShortRuns relabels runs shorter than a minute into their longer
// neighbor until stable. Sprint runs are never absorbed and never absorb:
// a detected burst must survive at its exact bounds.
func mergeShortRuns(labels []string) {
	for {
		runs := buildRuns(labels)
		if len(runs) <= 1 {
			return
		}
		merged := false
		for idx, r := range runs {
			if r.label == ClassSprint || r.end-r.start >= minRunSec {
				continue
			}
			tgt := pickNeighbor(runs, idx)
			if tgt < 0 {
				continue
			}
			for i := r.start; i < r.end; i++ {
				labels[i] = runs[tgt].label
			}
			merged = true
			break
		}
		if !merged {
			return
		}
	}
}

func pickNeighbor(runs []labelRun, idx int) int {
	left, right := -1, -1
	if idx > 0 && runs[idx-1].label != ClassSprint {
		left = idx - 1
	}
	if idx < len(runs)-1 && runs[idx+1].label != ClassSprint {
		right = idx + 1
	}
	switch {
	case left >= 0 && right >= 0:
		if runs[left].end-runs[left].start >= runs[right].end-runs[right].start {
			return left
		}
		return right
	case left >= 0:
		return left
	default:
		return right
	}
}

func dominantSource(sources []string, r labelRun) string {
	var power, sprint, ratio int
	for i := r.start; i < r.end && i < len(sources); i++ {
		switch sources[i] {
		case sourcePower:
			power++
		case sourceSprint:
			sprint++
		default:
			ratio++
		}
	}
	switch {
	case sprint > 0 && sprint >= power && sprint >= ratio:
		return sourceSprint
	case power > 0 && power >= ratio:
		return sourcePower
	default:
		return sourceRatio
	}
}
