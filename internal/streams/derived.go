package streams

import "math"

const (
	// Skiba W' recovery time constant in seconds.
	wBalanceTau = 546.0

	vamWindowSec  = 50
	vamMultiplier = 1.4
	vamClamp      = 5000.0
)

// EnrichParams carries the athlete inputs the derived columns depend on.
type EnrichParams struct {
	FTP     float64 // critical power for the W' model, watts
	WPrimeJ float64 // anaerobic reserve, joules
}

// Enrich computes the derived columns that have inputs available and are not
// already attached. Base columns are never touched.
func Enrich(t *Table, p EnrichParams) {
	if t == nil || t.Len() == 0 {
		return
	}
	if len(t.PowerHRRatio) == 0 && t.HasWatts() && t.HasHeartrate() {
		t.PowerHRRatio = powerHRRatio(t.Watts, t.Heartrate)
	}
	if len(t.SPI) == 0 && t.HasWatts() && t.HasCadence() {
		t.SPI = strokePowerIndex(t.Watts, t.Cadence)
	}
	if len(t.Torque) == 0 && t.HasWatts() && t.HasCadence() {
		t.Torque = torque(t.Watts, t.Cadence)
	}
	if len(t.VAM) == 0 && t.HasAltitude() {
		t.VAM = verticalAscentRate(t.Time, t.Altitude)
	}
	if len(t.WBalance) == 0 && t.HasWatts() && p.FTP > 0 {
		t.WBalance = wPrimeBalance(t.Watts, p.FTP, p.WPrimeJ)
	}
}

func powerHRRatio(watts, hr []float64) []float64 {
	out := make([]float64, len(watts))
	for i := range watts {
		p, h := watts[i], hr[i]
		if !IsMissing(p) && !IsMissing(h) && p > 0 && h > 0 {
			out[i] = round2(p / h)
		}
	}
	return out
}

func strokePowerIndex(watts, cadence []float64) []float64 {
	out := make([]float64, len(watts))
	for i := range watts {
		p, c := watts[i], cadence[i]
		if !IsMissing(p) && !IsMissing(c) && p > 0 && c > 0 {
			out[i] = round2(p / c)
		}
	}
	return out
}

// torque derives crank torque in Nm from power and cadence.
func torque(watts, cadence []float64) []float64 {
	out := make([]float64, len(watts))
	for i := range watts {
		p, c := watts[i], cadence[i]
		if !IsMissing(p) && !IsMissing(c) && p > 0 && c > 0 {
			out[i] = math.Round(p / (c * 2 * math.Pi / 60))
		}
	}
	return out
}

// verticalAscentRate computes VAM in m/h over a trailing window of up to
// vamWindowSec seconds, clamped to ±vamClamp.
func verticalAscentRate(t []int, alt []float64) []float64 {
	out := make([]float64, len(t))
	j := 0
	for i := range t {
		for j < i && t[i]-t[j] > vamWindowSec {
			j++
		}
		dt := t[i] - t[j]
		if j >= i || dt <= 0 || IsMissing(alt[i]) || IsMissing(alt[j]) {
			continue
		}
		vam := (alt[i] - alt[j]) / (float64(dt) / 3600) * vamMultiplier
		if vam > vamClamp {
			vam = vamClamp
		} else if vam < -vamClamp {
			vam = -vamClamp
		}
		out[i] = math.Round(vam)
	}
	return out
}

// wPrimeBalance integrates the Skiba balance model at 1 Hz. Above 1.05·CP the
// reserve drains by (p-CP) joules per second; below 0.95·CP it recovers toward
// W' with time constant wBalanceTau. Output is kJ with one decimal. A
// non-positive W' yields an all-zero column.
func wPrimeBalance(watts []float64, cp, wPrime float64) []float64 {
	out := make([]float64, len(watts))
	if wPrime <= 0 {
		return out
	}
	bal := wPrime
	for i, p := range watts {
		if IsMissing(p) {
			p = 0
		}
		switch {
		case p > 1.05*cp:
			bal -= p - cp
		case p < 0.95*cp:
			bal += (wPrime - bal) / wBalanceTau
		}
		if bal < 0 {
			bal = 0
		} else if bal > wPrime {
			bal = wPrime
		}
		out[i] = round1(bal / 1000)
	}
	return out
}

func round1(v float64) float64 { return math.Round(v*10) / 10 }
func round2(v float64) float64 { return math.Round(v*100) / 100 }
