package strava

import (
	"errors"
	"testing"

	"powerlab/internal/streams"
)

func floatStream(vals ...float64) *StreamData[float64] {
	return &StreamData[float64]{Data: vals, SeriesType: "time", OriginalSize: len(vals), Resolution: "high"}
}

func timeStream(vals ...int) *StreamData[int] {
	return &StreamData[int]{Data: vals, SeriesType: "time", OriginalSize: len(vals), Resolution: "high"}
}

func TestLowResolution(t *testing.T) {
	tests := []struct {
		name  string
		times []int
		want  bool
	}{
		{"nil", nil, false},
		{"single sample", []int{0}, false},
		{"five second gap", []int{0, 5}, false},
		{"six second gap", []int{0, 6}, true},
		{"per second", []int{0, 1, 2, 3}, false},
		{"summary samples", []int{0, 30, 60}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := LowResolution(tt.times); got != tt.want {
				t.Errorf("LowResolution(%v) = %v, want %v", tt.times, got, tt.want)
			}
		})
	}
}

func TestUpsample_ZeroOrderHold(t *testing.T) {
	s := &StreamSet{
		Time:   timeStream(0, 10, 20),
		Watts:  floatStream(100, 200, 300),
		Moving: &StreamData[bool]{Data: []bool{true, false, true}},
		Latlng: &StreamData[[2]float64]{Data: [][2]float64{{1, 2}, {3, 4}, {5, 6}}},
	}
	s.Upsample(20)

	if len(s.Time.Data) != 21 {
		t.Fatalf("time samples = %d, want 21", len(s.Time.Data))
	}
	for i, v := range s.Time.Data {
		if v != i {
			t.Fatalf("time[%d] = %d, want one sample per second", i, v)
		}
	}

	// Each second holds the last recorded value.
	checks := []struct {
		at   int
		want float64
	}{
		{0, 100}, {9, 100}, {10, 200}, {19, 200}, {20, 300},
	}
	for _, c := range checks {
		if got := s.Watts.Data[c.at]; got != c.want {
			t.Errorf("watts[%d] = %v, want %v", c.at, got, c.want)
		}
	}
	if s.Moving.Data[5] != true || s.Moving.Data[15] != false {
		t.Errorf("moving = %v/%v at 5/15, want true/false", s.Moving.Data[5], s.Moving.Data[15])
	}
	if s.Latlng.Data[15] != [2]float64{3, 4} || s.Latlng.Data[20] != [2]float64{5, 6} {
		t.Errorf("latlng = %v/%v at 15/20", s.Latlng.Data[15], s.Latlng.Data[20])
	}
}

func TestUpsample_ZeroMovingTime(t *testing.T) {
	s := &StreamSet{
		Time:  timeStream(0, 10, 20),
		Watts: floatStream(100, 200, 300),
	}
	s.Upsample(0)

	if len(s.Time.Data) != 3 || len(s.Watts.Data) != 3 {
		t.Errorf("lengths = %d/%d, want the set untouched", len(s.Time.Data), len(s.Watts.Data))
	}
}

func TestUpsample_MismatchedStreamLeftAlone(t *testing.T) {
	s := &StreamSet{
		Time:      timeStream(0, 10, 20),
		Watts:     floatStream(100, 200, 300),
		Heartrate: floatStream(120, 130),
	}
	s.Upsample(20)

	if len(s.Watts.Data) != 21 {
		t.Errorf("watts samples = %d, want 21", len(s.Watts.Data))
	}
	if len(s.Heartrate.Data) != 2 {
		t.Errorf("heartrate samples = %d, want the mismatched stream unchanged", len(s.Heartrate.Data))
	}
}

func TestBuildTable(t *testing.T) {
	s := &StreamSet{
		Time:      timeStream(0, 1, 2, 3),
		Watts:     floatStream(200, 210, 220, 230),
		Heartrate: floatStream(120, 121, 122, 123),
		Latlng:    &StreamData[[2]float64]{Data: [][2]float64{{1, 2}, {3, 4}, {5, 6}, {7, 8}}},
	}
	tbl, err := BuildTable(s, 3)
	if err != nil {
		t.Fatalf("BuildTable failed: %v", err)
	}
	if tbl.Len() != 4 {
		t.Fatalf("Len = %d, want 4", tbl.Len())
	}
	if !tbl.HasWatts() || !tbl.HasHeartrate() {
		t.Error("expected watts and heartrate columns")
	}
	if tbl.Lat[2] != 5 || tbl.Lng[2] != 6 {
		t.Errorf("lat/lng[2] = %v/%v, want 5/6", tbl.Lat[2], tbl.Lng[2])
	}
}

func TestBuildTable_UpsamplesLowRes(t *testing.T) {
	s := &StreamSet{
		Time:  timeStream(0, 30, 60),
		Watts: floatStream(100, 200, 300),
	}
	tbl, err := BuildTable(s, 60)
	if err != nil {
		t.Fatalf("BuildTable failed: %v", err)
	}
	if tbl.Len() != 61 {
		t.Fatalf("Len = %d, want 61 after upsampling", tbl.Len())
	}
	if tbl.Watts[29] != 100 || tbl.Watts[30] != 200 {
		t.Errorf("watts[29]/[30] = %v/%v, want 100/200", tbl.Watts[29], tbl.Watts[30])
	}
	if tbl.Duration() != 60 {
		t.Errorf("Duration = %d, want 60", tbl.Duration())
	}
}

func TestBuildTable_Empty(t *testing.T) {
	if _, err := BuildTable(&StreamSet{}, 0); !errors.Is(err, streams.ErrEmptyTable) {
		t.Errorf("BuildTable = %v, want ErrEmptyTable", err)
	}
}
