package analysis

import "math"

// ftpFromBest20 scales the best 20-minute effort down to a one-hour estimate.
const ftpFromBest20 = 0.95

// EstimateFTPFromCurve derives FTP from a best-power curve as 95% of the best
// 20-minute average. Returns 0 when the curve holds no 20-minute window.
func EstimateFTPFromCurve(curve []int) int {
	const twentyMin = 20 * 60
	if len(curve) < twentyMin {
		return 0
	}
	best20 := curve[twentyMin-1]
	if best20 <= 0 {
		return 0
	}
	return int(math.Round(float64(best20) * ftpFromBest20))
}

// cpFitWindows are the curve durations sampled for the critical-power fit.
var cpFitWindows = []int{120, 180, 240, 300, 360, 420, 480, 540, 600, 720, 900, 1200}

// CriticalPowerFit fits the two-parameter model W(t) = CP·t + W' by linear
// regression of work against duration over the 2-20 minute range of the
// curve. Returns (0, 0) when fewer than three windows are available or the
// fit degenerates.
func CriticalPowerFit(curve []int) (cp float64, wPrimeJ float64) {
	var xs, ys []float64
	for _, w := range cpFitWindows {
		if w > len(curve) {
			break
		}
		p := curve[w-1]
		if p <= 0 {
			continue
		}
		xs = append(xs, float64(w))
		ys = append(ys, float64(p)*float64(w))
	}
	if len(xs) < 3 {
		return 0, 0
	}

	n := float64(len(xs))
	var sumX, sumY, sumXY, sumXX float64
	for i := range xs {
		sumX += xs[i]
		sumY += ys[i]
		sumXY += xs[i] * ys[i]
		sumXX += xs[i] * xs[i]
	}
	den := n*sumXX - sumX*sumX
	if den == 0 {
		return 0, 0
	}
	cp = (n*sumXY - sumX*sumY) / den
	wPrimeJ = (sumY - cp*sumX) / n
	if cp <= 0 {
		return 0, 0
	}
	if wPrimeJ < 0 {
		wPrimeJ = 0
	}
	return math.Round(cp), math.Round(wPrimeJ)
}
