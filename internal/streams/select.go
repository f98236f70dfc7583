package streams

import "fmt"

// targetLen returns how many points a resolution keeps for n samples.
func targetLen(n int, res Resolution) int {
	switch res {
	case ResolutionMedium:
		return n * 25 / 100
	case ResolutionLow:
		return n * 5 / 100
	default:
		return n
	}
}

// strideIndexes returns the sample indexes kept at the given resolution:
// stride max(1, n/target), truncated to the target length.
func strideIndexes(n int, res Resolution) []int {
	target := targetLen(n, res)
	if target <= 0 {
		target = 1
	}
	if target >= n {
		idx := make([]int, n)
		for i := range idx {
			idx[i] = i
		}
		return idx
	}
	stride := n / target
	if stride < 1 {
		stride = 1
	}
	idx := make([]int, 0, target)
	for i := 0; i < n && len(idx) < target; i += stride {
		idx = append(idx, i)
	}
	return idx
}

func sampleFloats(col []float64, idx []int) []any {
	out := make([]any, len(idx))
	for k, i := range idx {
		if IsMissing(col[i]) {
			out[k] = nil
		} else {
			out[k] = col[i]
		}
	}
	return out
}

func sampleInts(col []int, idx []int) []any {
	out := make([]any, len(idx))
	for k, i := range idx {
		out[k] = col[i]
	}
	return out
}

func sampleBools(col []bool, idx []int) []any {
	out := make([]any, len(idx))
	for k, i := range idx {
		out[k] = col[i]
	}
	return out
}

func sampleLatlng(lat, lng []float64, idx []int) []any {
	out := make([]any, len(idx))
	for k, i := range idx {
		if IsMissing(lat[i]) || IsMissing(lng[i]) {
			out[k] = nil
		} else {
			out[k] = [2]float64{lat[i], lng[i]}
		}
	}
	return out
}

// Stream returns one column as JSON-ready data at the requested resolution.
// Missing values become nulls. The best_power column ignores the resolution
// and is always returned whole.
func (t *Table) Stream(key string, res Resolution) ([]any, error) {
	n := t.Len()
	idx := strideIndexes(n, res)
	switch key {
	case KeyTime:
		return sampleInts(t.Time, idx), nil
	case KeyDistance:
		return sampleColumn(t.Distance, idx)
	case KeyLatlng:
		if len(t.Lat) == 0 || len(t.Lng) == 0 {
			return nil, nil
		}
		return sampleLatlng(t.Lat, t.Lng, idx), nil
	case KeyAltitude:
		return sampleColumn(t.Altitude, idx)
	case KeyVelocitySmooth:
		return sampleColumn(t.VelocitySmooth, idx)
	case KeyHeartrate:
		return sampleColumn(t.Heartrate, idx)
	case KeyCadence:
		return sampleColumn(t.Cadence, idx)
	case KeyWatts:
		return sampleColumn(t.Watts, idx)
	case KeyTemp:
		return sampleColumn(t.Temp, idx)
	case KeyMoving:
		if len(t.Moving) == 0 {
			return nil, nil
		}
		return sampleBools(t.Moving, idx), nil
	case KeyGradeSmooth:
		return sampleColumn(t.GradeSmooth, idx)
	case KeyBestPower:
		if len(t.BestPower) == 0 {
			return nil, nil
		}
		return sampleInts(t.BestPower, allIndexes(len(t.BestPower))), nil
	case KeyTorque:
		return sampleColumn(t.Torque, idx)
	case KeySPI:
		return sampleColumn(t.SPI, idx)
	case KeyPowerHRRatio:
		return sampleColumn(t.PowerHRRatio, idx)
	case KeyWBalance:
		return sampleColumn(t.WBalance, idx)
	case KeyVAM:
		return sampleColumn(t.VAM, idx)
	}
	return nil, fmt.Errorf("unknown stream key %q", key)
}

func sampleColumn(col []float64, idx []int) ([]any, error) {
	if len(col) == 0 {
		return nil, nil
	}
	return sampleFloats(col, idx), nil
}

func allIndexes(n int) []int {
	idx := make([]int, n)
	for i := range idx {
		idx[i] = i
	}
	return idx
}

// SelectStreams resolves a set of keys at a resolution. Unknown keys error;
// known keys with no data are skipped.
func (t *Table) SelectStreams(keys []string, res Resolution) (map[string][]any, error) {
	out := make(map[string][]any, len(keys))
	for _, key := range keys {
		if !ValidKey(key) {
			return nil, fmt.Errorf("unknown stream key %q", key)
		}
		data, err := t.Stream(key, res)
		if err != nil {
			return nil, err
		}
		if data != nil {
			out[key] = data
		}
	}
	return out, nil
}
