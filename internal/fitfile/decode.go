package fitfile

import (
	"fmt"
	"io"
	"math"
	"sort"
	"time"

	"github.com/tormoder/fit"

	"powerlab/internal/streams"
)

// Decode parses a FIT activity recording. The returned summary is nil
// when the file carries no session message.
func Decode(r io.Reader) (*streams.Table, *streams.SessionSummary, error) {
	decoded, err := fit.Decode(r)
	if err != nil {
		return nil, nil, fmt.Errorf("decoding recording: %w", err)
	}
	activity, err := decoded.Activity()
	if err != nil {
		return nil, nil, fmt.Errorf("recording is not an activity file: %w", err)
	}
	tbl, err := buildTable(activity.Records)
	if err != nil {
		return nil, nil, err
	}
	return tbl, buildSession(activity.Sessions), nil
}

// buildTable turns record messages into the canonical per-second table.
// The time axis restarts at zero from the first valid timestamp. Records
// that land in an already-occupied second are dropped so the axis stays
// strictly increasing.
func buildTable(records []*fit.RecordMsg) (*streams.Table, error) {
	type sample struct {
		t   int
		rec *fit.RecordMsg
	}

	rows := make([]sample, 0, len(records))
	for _, rec := range records {
		if rec == nil || rec.Timestamp.IsZero() || fit.IsBaseTime(rec.Timestamp) {
			continue
		}
		rows = append(rows, sample{rec: rec})
	}
	if len(rows) == 0 {
		return nil, streams.ErrEmptyTable
	}
	sort.SliceStable(rows, func(i, j int) bool {
		return rows[i].rec.Timestamp.Before(rows[j].rec.Timestamp)
	})

	t0 := rows[0].rec.Timestamp
	n := 0
	last := -1
	for _, r := range rows {
		t := int(r.rec.Timestamp.Sub(t0) / time.Second)
		if t <= last {
			continue
		}
		rows[n] = sample{t: t, rec: r.rec}
		n++
		last = t
	}
	rows = rows[:n]

	tbl := &streams.Table{
		Time:           make([]int, n),
		Distance:       make([]float64, n),
		Altitude:       make([]float64, n),
		VelocitySmooth: make([]float64, n),
		Heartrate:      make([]float64, n),
		Cadence:        make([]float64, n),
		Watts:          make([]float64, n),
		Temp:           make([]float64, n),
		Lat:            make([]float64, n),
		Lng:            make([]float64, n),
	}
	for i, r := range rows {
		rec := r.rec
		tbl.Time[i] = r.t
		tbl.Distance[i] = rec.GetDistanceScaled()
		tbl.Altitude[i] = altitudeOf(rec)
		tbl.VelocitySmooth[i] = speedOf(rec)
		tbl.Heartrate[i] = sentinelUint8(rec.HeartRate)
		tbl.Cadence[i] = cadenceOf(rec)
		tbl.Watts[i] = sentinelUint16(rec.Power)
		tbl.Temp[i] = temperatureOf(rec)
		tbl.Lat[i] = rec.PositionLat.Degrees()
		tbl.Lng[i] = rec.PositionLong.Degrees()
	}

	tbl.Distance = dropEmpty(tbl.Distance)
	tbl.Altitude = dropEmpty(tbl.Altitude)
	tbl.VelocitySmooth = dropEmpty(tbl.VelocitySmooth)
	tbl.Heartrate = dropEmpty(tbl.Heartrate)
	tbl.Cadence = dropEmpty(tbl.Cadence)
	tbl.Watts = dropEmpty(tbl.Watts)
	tbl.Temp = dropEmpty(tbl.Temp)
	tbl.Lat = dropEmpty(tbl.Lat)
	tbl.Lng = dropEmpty(tbl.Lng)

	return streams.New(tbl)
}

// buildSession maps the first session message onto the summary totals,
// zeroing sentinel-invalid fields.
func buildSession(sessions []*fit.SessionMsg) *streams.SessionSummary {
	if len(sessions) == 0 || sessions[0] == nil {
		return nil
	}
	s := sessions[0]

	sum := &streams.SessionSummary{
		Sport:          fmt.Sprint(s.Sport),
		TotalDistanceM: positive(s.GetTotalDistanceScaled()),
		TotalTimerSec:  positive(s.GetTotalTimerTimeScaled()),
		TotalAscentM:   float64(validUint16(s.TotalAscent)),
		TotalDescentM:  float64(validUint16(s.TotalDescent)),
		AvgHeartrate:   float64(validUint8(s.AvgHeartRate)),
		MaxHeartrate:   float64(validUint8(s.MaxHeartRate)),
		AvgPower:       float64(validUint16(s.AvgPower)),
		MaxPower:       float64(validUint16(s.MaxPower)),
		AvgCadence:     cadenceValue(s.GetAvgCadence()),
		MaxCadence:     cadenceValue(s.GetMaxCadence()),
	}
	if !s.StartTime.IsZero() && !fit.IsBaseTime(s.StartTime) {
		sum.StartTime = s.StartTime.UTC()
	}
	sum.AvgSpeedMps = positive(s.GetEnhancedAvgSpeedScaled())
	if sum.AvgSpeedMps == 0 {
		sum.AvgSpeedMps = positive(s.GetAvgSpeedScaled())
	}
	return sum
}

func altitudeOf(rec *fit.RecordMsg) float64 {
	if v := rec.GetEnhancedAltitudeScaled(); !math.IsNaN(v) {
		return v
	}
	// NaN from the scaled getter doubles as the missing marker.
	return rec.GetAltitudeScaled()
}

func speedOf(rec *fit.RecordMsg) float64 {
	if v := rec.GetEnhancedSpeedScaled(); !math.IsNaN(v) {
		return v
	}
	return rec.GetSpeedScaled()
}

func cadenceOf(rec *fit.RecordMsg) float64 {
	if v := rec.GetCadence256Scaled(); !math.IsNaN(v) && v > 0 {
		return v
	}
	return sentinelUint8(rec.Cadence)
}

func temperatureOf(rec *fit.RecordMsg) float64 {
	if rec.Temperature == math.MaxInt8 {
		return streams.Missing
	}
	return float64(rec.Temperature)
}

func sentinelUint8(v uint8) float64 {
	if v == math.MaxUint8 {
		return streams.Missing
	}
	return float64(v)
}

func sentinelUint16(v uint16) float64 {
	if v == math.MaxUint16 {
		return streams.Missing
	}
	return float64(v)
}

// dropEmpty nils out a column no record carried a value for.
func dropEmpty(col []float64) []float64 {
	for _, v := range col {
		if !math.IsNaN(v) {
			return col
		}
	}
	return nil
}

func positive(v float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) || v <= 0 {
		return 0
	}
	return v
}

func validUint8(v uint8) uint8 {
	if v == math.MaxUint8 {
		return 0
	}
	return v
}

func validUint16(v uint16) uint16 {
	if v == math.MaxUint16 {
		return 0
	}
	return v
}

// cadenceValue handles the interface-typed session cadence accessors,
// which surface uint8 or uint16 depending on sport profile.
func cadenceValue(v any) float64 {
	switch x := v.(type) {
	case uint8:
		if x == math.MaxUint8 {
			return 0
		}
		return float64(x)
	case uint16:
		if x == math.MaxUint16 {
			return 0
		}
		return float64(x)
	case float64:
		return positive(x)
	default:
		return 0
	}
}
