package analysis

import (
	"math"
	"testing"

	"powerlab/internal/streams"
)

func TestFilterAltitude(t *testing.T) {
	tests := []struct {
		name     string
		alt      []float64
		expected []float64
	}{
		{
			name:     "drops out of range",
			alt:      []float64{100, 6000, -800, 110},
			expected: []float64{100, 110},
		},
		{
			name:     "drops glitch jump",
			alt:      []float64{100, 350, 105},
			expected: []float64{100, 105},
		},
		{
			name:     "drops gaps",
			alt:      []float64{100, streams.Missing, 102},
			expected: []float64{100, 102},
		},
		{
			name:     "negative but plausible kept",
			alt:      []float64{-10, -5, 0},
			expected: []float64{-10, -5, 0},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := FilterAltitude(tt.alt)
			if len(got) != len(tt.expected) {
				t.Fatalf("FilterAltitude() = %v, want %v", got, tt.expected)
			}
			for i := range got {
				if got[i] != tt.expected[i] {
					t.Errorf("sample %d = %v, want %v", i, got[i], tt.expected[i])
				}
			}
		})
	}
}

func TestElevationGain(t *testing.T) {
	tests := []struct {
		name     string
		alt      []float64
		expected float64
	}{
		{name: "empty", alt: nil, expected: 0},
		{name: "flat", alt: []float64{100, 100, 100}, expected: 0},
		{name: "single climb", alt: []float64{100, 150, 200}, expected: 100},
		{name: "rolling terrain", alt: []float64{100, 150, 120, 170}, expected: 100},
		{name: "descent only", alt: []float64{200, 150, 100}, expected: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ElevationGain(tt.alt); math.Abs(got-tt.expected) > 0.001 {
				t.Errorf("ElevationGain() = %v, want %v", got, tt.expected)
			}
		})
	}
}

func TestTotalDescent(t *testing.T) {
	tests := []struct {
		name     string
		alt      []float64
		expected float64
	}{
		{name: "empty", alt: nil, expected: 0},
		{name: "climb only", alt: []float64{100, 150, 200}, expected: 0},
		{name: "one closed run", alt: []float64{200, 180, 150, 150, 160}, expected: 50},
		{name: "two runs", alt: []float64{200, 150, 180, 140, 140}, expected: 90},
		{name: "trailing open run counted", alt: []float64{100, 150, 120, 90}, expected: 60},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := TotalDescent(tt.alt); math.Abs(got-tt.expected) > 0.001 {
				t.Errorf("TotalDescent() = %v, want %v", got, tt.expected)
			}
		})
	}
}

func TestMaxGrade(t *testing.T) {
	// 10 m up over each 100 m of travel: 10% grade
	n := 30
	alt := make([]float64, n)
	dist := make([]float64, n)
	for i := 0; i < n; i++ {
		alt[i] = 100 + float64(i)*2
		dist[i] = float64(i) * 20
	}
	got := MaxGrade(alt, dist)
	if math.Abs(got-10.0) > 0.2 {
		t.Errorf("MaxGrade() = %v, want ~10", got)
	}
}

func TestMaxGradeGuards(t *testing.T) {
	tests := []struct {
		name string
		alt  func(i int) float64
		dist func(i int) float64
		want float64
	}{
		{
			name: "window too short is skipped",
			alt:  func(i int) float64 { return 100 + float64(i)*5 },
			dist: func(i int) float64 { return float64(i) * 5 }, // 25 m per window
			want: 0,
		},
		{
			name: "absurd grade is skipped",
			alt:  func(i int) float64 { return 100 + float64(i)*15 }, // 75 m up per 60 m
			dist: func(i int) float64 { return float64(i) * 12 },
			want: 0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			n := 20
			alt := make([]float64, n)
			dist := make([]float64, n)
			for i := 0; i < n; i++ {
				alt[i] = tt.alt(i)
				dist[i] = tt.dist(i)
			}
			if got := MaxGrade(alt, dist); got != tt.want {
				t.Errorf("MaxGrade() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestClimbDistances(t *testing.T) {
	// first half climbs 2 m per sample, second half descends
	n := 40
	alt := make([]float64, n)
	dist := make([]float64, n)
	for i := 0; i < n; i++ {
		dist[i] = float64(i) * 10
		if i < 20 {
			alt[i] = 100 + float64(i)*2
		} else {
			alt[i] = 140 - float64(i-20)*2
		}
	}
	up, down := ClimbDistances(alt, dist)
	if up < 0.1 || up > 0.25 {
		t.Errorf("uphill = %v km, want ~0.15-0.2", up)
	}
	if down < 0.1 || down > 0.25 {
		t.Errorf("downhill = %v km, want ~0.15-0.2", down)
	}
}
