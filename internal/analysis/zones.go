package analysis

import (
	"fmt"
	"math"

	"powerlab/internal/streams"
)

// powerZoneBounds are the upper bounds of power zones 1-6 as fractions of
// FTP; zone 7 is open-ended.
var powerZoneBounds = []float64{0.55, 0.75, 0.90, 1.05, 1.20, 1.50}

// hrMaxZoneBounds are the upper bounds of the five max-HR bands.
var hrMaxZoneBounds = []float64{0.60, 0.70, 0.80, 0.90}

// hrThresholdZoneBounds are the upper bounds of the seven LTHR bands.
var hrThresholdZoneBounds = []float64{0.85, 0.90, 0.95, 1.00, 1.03, 1.07}

// ZoneBucket is one band of a zone distribution.
type ZoneBucket struct {
	Zone                int     `json:"zone"`
	Min                 int     `json:"min"`
	Max                 int     `json:"max"` // -1 when open-ended
	TimeSec             int     `json:"time_sec"`
	TimeFormatted       string  `json:"time_formatted"`
	Percentage          float64 `json:"percentage"`
	PercentageFormatted string  `json:"percentage_formatted"`
}

// ZoneDistribution is the full set of buckets for one input stream.
type ZoneDistribution struct {
	Key     string       `json:"key"`
	Buckets []ZoneBucket `json:"distribution_buckets"`
}

// PowerZones buckets power samples into the seven FTP-relative bands.
// Samples that are missing or non-positive are dropped from the denominator.
// Nil when FTP is unset or no sample lands anywhere.
func PowerZones(watts []float64, ftp float64) *ZoneDistribution {
	if ftp <= 0 {
		return nil
	}
	bounds := make([]float64, len(powerZoneBounds))
	for i, b := range powerZoneBounds {
		bounds[i] = b * ftp
	}
	buckets := bucketize(watts, bounds)
	if buckets == nil {
		return nil
	}
	return &ZoneDistribution{Key: "power", Buckets: buckets}
}

// HRZones buckets heart-rate samples. With an active threshold setting the
// seven-band LTHR ladder is used, otherwise the five-band max-HR ladder.
func HRZones(hr []float64, maxHR, thresholdHR float64, thresholdActive bool) *ZoneDistribution {
	var bounds []float64
	switch {
	case thresholdActive && thresholdHR > 0:
		bounds = make([]float64, len(hrThresholdZoneBounds))
		for i, b := range hrThresholdZoneBounds {
			bounds[i] = b * thresholdHR
		}
	case maxHR > 0:
		bounds = make([]float64, len(hrMaxZoneBounds))
		for i, b := range hrMaxZoneBounds {
			bounds[i] = b * maxHR
		}
	default:
		return nil
	}
	buckets := bucketize(hr, bounds)
	if buckets == nil {
		return nil
	}
	return &ZoneDistribution{Key: "heartrate", Buckets: buckets}
}

// bucketize assigns samples to len(bounds)+1 bands. bounds are the band
// upper limits; the final band is open.
func bucketize(vals []float64, bounds []float64) []ZoneBucket {
	counts := make([]int, len(bounds)+1)
	total := 0
	for _, v := range vals {
		if streams.IsMissing(v) || v <= 0 {
			continue
		}
		zone := len(bounds)
		for k, upper := range bounds {
			if v < upper {
				zone = k
				break
			}
		}
		counts[zone]++
		total++
	}
	if total == 0 {
		return nil
	}

	buckets := make([]ZoneBucket, len(counts))
	for k := range counts {
		min := 0
		if k > 0 {
			min = int(bounds[k-1])
		}
		max := -1
		if k < len(bounds) {
			max = int(bounds[k])
		}
		pct := float64(counts[k]) / float64(total) * 100
		buckets[k] = ZoneBucket{
			Zone:                k + 1,
			Min:                 min,
			Max:                 max,
			TimeSec:             counts[k],
			TimeFormatted:       FormatZoneTime(counts[k]),
			Percentage:          math.Round(pct*10) / 10,
			PercentageFormatted: fmt.Sprintf("%.1f%%", pct),
		}
	}
	return buckets
}

// FormatZoneTime renders seconds as "45s", "12:30" or "1:05:00".
func FormatZoneTime(sec int) string {
	if sec < 60 {
		return fmt.Sprintf("%ds", sec)
	}
	if sec < 3600 {
		return fmt.Sprintf("%d:%02d", sec/60, sec%60)
	}
	return fmt.Sprintf("%d:%02d:%02d", sec/3600, (sec%3600)/60, sec%60)
}

// zonePercents extracts the per-band percentages (index 0 = zone 1).
func zonePercents(d *ZoneDistribution) []float64 {
	if d == nil {
		return nil
	}
	out := make([]float64, len(d.Buckets))
	for i, b := range d.Buckets {
		out[i] = b.Percentage
	}
	return out
}

// zoneMinutes extracts the per-band durations in minutes.
func zoneMinutes(d *ZoneDistribution) []float64 {
	if d == nil {
		return nil
	}
	out := make([]float64, len(d.Buckets))
	for i, b := range d.Buckets {
		out[i] = float64(b.TimeSec) / 60
	}
	return out
}
