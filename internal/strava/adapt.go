package strava

import (
	"powerlab/internal/streams"
)

// lowResThreshold is the average inter-sample gap, in seconds, past which a
// stream set counts as low resolution.
const lowResThreshold = 5.0

// LowResolution reports whether the time axis averages more than five
// seconds between samples.
func LowResolution(times []int) bool {
	if len(times) < 2 {
		return false
	}
	span := times[len(times)-1] - times[0]
	return float64(span)/float64(len(times)-1) > lowResThreshold
}

// Upsample stretches every stream to one sample per second over
// [0, movingTime] using zero-order hold, so each second carries the last
// recorded value. movingTime <= 0 leaves the set untouched; aborted
// activities report zero moving time and must pass through unchanged.
func (s *StreamSet) Upsample(movingTime int) {
	if s == nil || s.Time == nil || len(s.Time.Data) == 0 || movingTime <= 0 {
		return
	}
	times := s.Time.Data

	s.Distance = holdStream(times, s.Distance, movingTime)
	s.Latlng = holdStream(times, s.Latlng, movingTime)
	s.Altitude = holdStream(times, s.Altitude, movingTime)
	s.VelocitySmooth = holdStream(times, s.VelocitySmooth, movingTime)
	s.Heartrate = holdStream(times, s.Heartrate, movingTime)
	s.Cadence = holdStream(times, s.Cadence, movingTime)
	s.Watts = holdStream(times, s.Watts, movingTime)
	s.Temp = holdStream(times, s.Temp, movingTime)
	s.Moving = holdStream(times, s.Moving, movingTime)
	s.GradeSmooth = holdStream(times, s.GradeSmooth, movingTime)

	axis := make([]int, movingTime+1)
	for i := range axis {
		axis[i] = i
	}
	s.Time.Data = axis
}

// holdStream applies zero-order hold to one stream. Streams whose length
// disagrees with the time axis are left alone and caught by table
// validation later.
func holdStream[T any](times []int, sd *StreamData[T], movingTime int) *StreamData[T] {
	if sd == nil || len(sd.Data) != len(times) {
		return sd
	}
	out := make([]T, movingTime+1)
	j := 0
	for t := 0; t <= movingTime; t++ {
		for j+1 < len(times) && times[j+1] <= t {
			j++
		}
		out[t] = sd.Data[j]
	}
	sd.Data = out
	return sd
}

// BuildTable adapts a provider stream set to the canonical sample table.
// Low-resolution sets are upsampled to one sample per second first.
func BuildTable(s *StreamSet, movingTime int) (*streams.Table, error) {
	if s.Len() == 0 {
		return nil, streams.ErrEmptyTable
	}
	if LowResolution(s.Time.Data) {
		s.Upsample(movingTime)
	}

	t := &streams.Table{Time: s.Time.Data}
	if s.Distance != nil {
		t.Distance = s.Distance.Data
	}
	if s.Altitude != nil {
		t.Altitude = s.Altitude.Data
	}
	if s.VelocitySmooth != nil {
		t.VelocitySmooth = s.VelocitySmooth.Data
	}
	if s.Heartrate != nil {
		t.Heartrate = s.Heartrate.Data
	}
	if s.Cadence != nil {
		t.Cadence = s.Cadence.Data
	}
	if s.Watts != nil {
		t.Watts = s.Watts.Data
	}
	if s.Temp != nil {
		t.Temp = s.Temp.Data
	}
	if s.Moving != nil {
		t.Moving = s.Moving.Data
	}
	if s.GradeSmooth != nil {
		t.GradeSmooth = s.GradeSmooth.Data
	}
	if s.Latlng != nil {
		t.Lat = make([]float64, len(s.Latlng.Data))
		t.Lng = make([]float64, len(s.Latlng.Data))
		for i, ll := range s.Latlng.Data {
			t.Lat[i] = ll[0]
			t.Lng[i] = ll[1]
		}
	}
	return streams.New(t)
}
