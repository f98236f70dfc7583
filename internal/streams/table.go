package streams

import (
	"errors"
	"fmt"
	"math"
)

// Stream keys accepted by the HTTP surface and used as column names.
const (
	KeyTime           = "time"
	KeyDistance       = "distance"
	KeyLatlng         = "latlng"
	KeyAltitude       = "altitude"
	KeyVelocitySmooth = "velocity_smooth"
	KeyHeartrate      = "heartrate"
	KeyCadence        = "cadence"
	KeyWatts          = "watts"
	KeyTemp           = "temp"
	KeyMoving         = "moving"
	KeyGradeSmooth    = "grade_smooth"
	KeyBestPower      = "best_power"
	KeyTorque         = "torque"
	KeySPI            = "spi"
	KeyPowerHRRatio   = "power_hr_ratio"
	KeyWBalance       = "w_balance"
	KeyVAM            = "vam"
)

// BaseKeys are the columns an ingest may populate.
var BaseKeys = []string{
	KeyTime, KeyDistance, KeyLatlng, KeyAltitude, KeyVelocitySmooth,
	KeyHeartrate, KeyCadence, KeyWatts, KeyTemp, KeyMoving, KeyGradeSmooth,
}

// DerivedKeys are the columns computed after ingest.
var DerivedKeys = []string{
	KeyBestPower, KeyTorque, KeySPI, KeyPowerHRRatio, KeyWBalance, KeyVAM,
}

// ValidKey reports whether key names a known stream column.
func ValidKey(key string) bool {
	for _, k := range BaseKeys {
		if k == key {
			return true
		}
	}
	for _, k := range DerivedKeys {
		if k == key {
			return true
		}
	}
	return false
}

// Resolution selects how many points a stream response carries.
type Resolution string

const (
	ResolutionLow    Resolution = "low"
	ResolutionMedium Resolution = "medium"
	ResolutionHigh   Resolution = "high"
)

// ParseResolution maps a query value onto a Resolution, defaulting to high.
func ParseResolution(s string) (Resolution, error) {
	switch s {
	case "", string(ResolutionHigh):
		return ResolutionHigh, nil
	case string(ResolutionMedium):
		return ResolutionMedium, nil
	case string(ResolutionLow):
		return ResolutionLow, nil
	}
	return "", fmt.Errorf("unknown resolution %q", s)
}

// Missing marks an absent value inside an otherwise present float column.
var Missing = math.NaN()

// IsMissing reports whether v is the missing-value marker.
func IsMissing(v float64) bool { return math.IsNaN(v) }

// Table is the canonical per-second columnar view of one activity.
//
// Time is always present and strictly increasing from 0. Every other column is
// either nil (not recorded) or exactly len(Time) long, with Missing marking
// gaps inside float columns. Base columns are read-only once an ingest has
// built the table; derived columns are attached once by the enrichment pass.
type Table struct {
	Time           []int
	Distance       []float64
	Altitude       []float64
	VelocitySmooth []float64
	Heartrate      []float64
	Cadence        []float64
	Watts          []float64
	Temp           []float64
	Lat            []float64
	Lng            []float64
	Moving         []bool
	GradeSmooth    []float64

	BestPower    []int
	Torque       []float64
	SPI          []float64
	PowerHRRatio []float64
	WBalance     []float64
	VAM          []float64
}

// ErrEmptyTable is returned when an ingest produced no samples.
var ErrEmptyTable = errors.New("sample table has no samples")

// New validates column lengths and time ordering and returns the table.
func New(t *Table) (*Table, error) {
	n := len(t.Time)
	if n == 0 {
		return nil, ErrEmptyTable
	}
	for i := 1; i < n; i++ {
		if t.Time[i] <= t.Time[i-1] {
			return nil, fmt.Errorf("time column not strictly increasing at index %d", i)
		}
	}
	cols := map[string]int{
		KeyDistance:       len(t.Distance),
		KeyAltitude:       len(t.Altitude),
		KeyVelocitySmooth: len(t.VelocitySmooth),
		KeyHeartrate:      len(t.Heartrate),
		KeyCadence:        len(t.Cadence),
		KeyWatts:          len(t.Watts),
		KeyTemp:           len(t.Temp),
		"lat":             len(t.Lat),
		"lng":             len(t.Lng),
		KeyMoving:         len(t.Moving),
		KeyGradeSmooth:    len(t.GradeSmooth),
	}
	for name, l := range cols {
		if l != 0 && l != n {
			return nil, fmt.Errorf("column %s has %d samples, want %d", name, l, n)
		}
	}
	return t, nil
}

// Len returns the sample count.
func (t *Table) Len() int { return len(t.Time) }

// Duration returns the elapsed seconds covered by the table.
func (t *Table) Duration() int {
	if len(t.Time) == 0 {
		return 0
	}
	return t.Time[len(t.Time)-1] - t.Time[0]
}

// hasValues reports whether a float column holds at least one non-zero,
// non-missing value.
func hasValues(col []float64) bool {
	for _, v := range col {
		if !IsMissing(v) && v != 0 {
			return true
		}
	}
	return false
}

func hasTrue(col []bool) bool {
	for _, v := range col {
		if v {
			return true
		}
	}
	return false
}

func hasInts(col []int) bool {
	for _, v := range col {
		if v != 0 {
			return true
		}
	}
	return false
}

// HasWatts reports whether the power column carries data.
func (t *Table) HasWatts() bool { return hasValues(t.Watts) }

// HasHeartrate reports whether the heart-rate column carries data.
func (t *Table) HasHeartrate() bool { return hasValues(t.Heartrate) }

// HasCadence reports whether the cadence column carries data.
func (t *Table) HasCadence() bool { return hasValues(t.Cadence) }

// HasAltitude reports whether the altitude column carries data.
func (t *Table) HasAltitude() bool { return hasValues(t.Altitude) }

// AvailableStreams lists every column with non-trivial data. Derived columns
// are listed only when their inputs are present: power_hr_ratio needs power
// and heart rate, spi and torque need power and cadence, w_balance and
// best_power need power, vam needs altitude.
func (t *Table) AvailableStreams() []string {
	var out []string
	if len(t.Time) > 0 {
		out = append(out, KeyTime)
	}
	base := []struct {
		key string
		ok  bool
	}{
		{KeyDistance, hasValues(t.Distance)},
		{KeyLatlng, hasValues(t.Lat) || hasValues(t.Lng)},
		{KeyAltitude, t.HasAltitude()},
		{KeyVelocitySmooth, hasValues(t.VelocitySmooth)},
		{KeyHeartrate, t.HasHeartrate()},
		{KeyCadence, t.HasCadence()},
		{KeyWatts, t.HasWatts()},
		{KeyTemp, hasValues(t.Temp)},
		{KeyMoving, hasTrue(t.Moving)},
		{KeyGradeSmooth, hasValues(t.GradeSmooth)},
	}
	for _, c := range base {
		if c.ok {
			out = append(out, c.key)
		}
	}
	derived := []struct {
		key  string
		data bool
		deps bool
	}{
		{KeyBestPower, hasInts(t.BestPower), t.HasWatts()},
		{KeyTorque, hasValues(t.Torque), t.HasWatts() && t.HasCadence()},
		{KeySPI, hasValues(t.SPI), t.HasWatts() && t.HasCadence()},
		{KeyPowerHRRatio, hasValues(t.PowerHRRatio), t.HasWatts() && t.HasHeartrate()},
		{KeyWBalance, hasValues(t.WBalance), t.HasWatts()},
		{KeyVAM, hasValues(t.VAM), t.HasAltitude()},
	}
	for _, c := range derived {
		if c.data && c.deps {
			out = append(out, c.key)
		}
	}
	return out
}

// SetBestPower attaches the best-power curve. The curve keeps full resolution
// regardless of the requested response resolution.
func (t *Table) SetBestPower(curve []int) {
	if len(t.BestPower) == 0 {
		t.BestPower = curve
	}
}
