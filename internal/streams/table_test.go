package streams

import (
	"math"
	"testing"
)

func seq(n int) []int {
	out := make([]int, n)
	for i := range out {
		out[i] = i
	}
	return out
}

func constCol(n int, v float64) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = v
	}
	return out
}

func TestNewValidation(t *testing.T) {
	tests := []struct {
		name    string
		table   *Table
		wantErr bool
	}{
		{
			name:    "empty table",
			table:   &Table{},
			wantErr: true,
		},
		{
			name:    "valid minimal",
			table:   &Table{Time: seq(10)},
			wantErr: false,
		},
		{
			name:    "column length mismatch",
			table:   &Table{Time: seq(10), Watts: constCol(5, 100)},
			wantErr: true,
		},
		{
			name:    "time not increasing",
			table:   &Table{Time: []int{0, 1, 1, 2}},
			wantErr: true,
		},
		{
			name: "all columns aligned",
			table: &Table{
				Time:      seq(4),
				Watts:     constCol(4, 200),
				Heartrate: constCol(4, 140),
			},
			wantErr: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New(tt.table)
			if (err != nil) != tt.wantErr {
				t.Errorf("New() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestAvailableStreams(t *testing.T) {
	tests := []struct {
		name  string
		table *Table
		want  []string
	}{
		{
			name:  "time only",
			table: &Table{Time: seq(5)},
			want:  []string{"time"},
		},
		{
			name:  "all zero watts not available",
			table: &Table{Time: seq(5), Watts: constCol(5, 0)},
			want:  []string{"time"},
		},
		{
			name: "watts and heartrate",
			table: &Table{
				Time:      seq(5),
				Watts:     constCol(5, 210),
				Heartrate: constCol(5, 150),
			},
			want: []string{"time", "heartrate", "watts"},
		},
		{
			name: "derived needs inputs",
			table: &Table{
				Time:     seq(5),
				WBalance: constCol(5, 10),
				VAM:      constCol(5, 300),
			},
			// no watts, no altitude: derived columns stay hidden
			want: []string{"time"},
		},
		{
			name: "derived listed with inputs",
			table: &Table{
				Time:     seq(5),
				Watts:    constCol(5, 210),
				Altitude: constCol(5, 120),
				WBalance: constCol(5, 10),
				VAM:      constCol(5, 300),
			},
			want: []string{"time", "altitude", "watts", "w_balance", "vam"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := tt.table.AvailableStreams()
			if len(got) != len(tt.want) {
				t.Fatalf("AvailableStreams() = %v, want %v", got, tt.want)
			}
			for i := range got {
				if got[i] != tt.want[i] {
					t.Errorf("AvailableStreams()[%d] = %s, want %s", i, got[i], tt.want[i])
				}
			}
		})
	}
}

func TestEnrichRatios(t *testing.T) {
	table := &Table{
		Time:      seq(4),
		Watts:     []float64{250, 0, 300, Missing},
		Heartrate: []float64{125, 140, 150, 160},
		Cadence:   []float64{90, 90, 0, 85},
	}
	Enrich(table, EnrichParams{FTP: 250, WPrimeJ: 20000})

	wantRatio := []float64{2.0, 0, 2.0, 0}
	for i, want := range wantRatio {
		if math.Abs(table.PowerHRRatio[i]-want) > 0.001 {
			t.Errorf("PowerHRRatio[%d] = %v, want %v", i, table.PowerHRRatio[i], want)
		}
	}

	wantSPI := []float64{2.78, 0, 0, 0}
	for i, want := range wantSPI {
		if math.Abs(table.SPI[i]-want) > 0.001 {
			t.Errorf("SPI[%d] = %v, want %v", i, table.SPI[i], want)
		}
	}

	// torque = p / (cad * 2π/60), rounded
	wantTorque := math.Round(250 / (90 * 2 * math.Pi / 60))
	if table.Torque[0] != wantTorque {
		t.Errorf("Torque[0] = %v, want %v", table.Torque[0], wantTorque)
	}
}

func TestVerticalAscentRate(t *testing.T) {
	// 10 m gained over 50 s -> 720 m/h * 1.4 = 1008
	n := 60
	tm := seq(n)
	alt := make([]float64, n)
	for i := range alt {
		alt[i] = 100 + float64(i)*0.2
	}
	got := verticalAscentRate(tm, alt)

	if got[0] != 0 {
		t.Errorf("vam[0] = %v, want 0 (no window)", got[0])
	}
	want := math.Round((0.2 * 50) / (50.0 / 3600) * 1.4)
	if math.Abs(got[55]-want) > 1 {
		t.Errorf("vam[55] = %v, want %v", got[55], want)
	}
}

func TestVerticalAscentRateClamp(t *testing.T) {
	tm := []int{0, 1, 2}
	alt := []float64{0, 50, 100}
	got := verticalAscentRate(tm, alt)
	for i := 1; i < len(got); i++ {
		if got[i] > 5000 || got[i] < -5000 {
			t.Errorf("vam[%d] = %v outside clamp", i, got[i])
		}
	}
}

func TestWPrimeBalance(t *testing.T) {
	tests := []struct {
		name   string
		watts  []float64
		cp     float64
		wPrime float64
		check  func(t *testing.T, out []float64)
	}{
		{
			name:   "drains above cp",
			watts:  constCol(10, 300),
			cp:     200,
			wPrime: 20000,
			check: func(t *testing.T, out []float64) {
				// 100 J per second off a 20 kJ reserve
				if math.Abs(out[9]-19.0) > 0.05 {
					t.Errorf("balance after 10s = %v, want 19.0", out[9])
				}
			},
		},
		{
			name:   "recovers below cp",
			watts:  append(constCol(60, 400), constCol(60, 100)...),
			cp:     250,
			wPrime: 20000,
			check: func(t *testing.T, out []float64) {
				if out[119] <= out[59] {
					t.Errorf("balance should recover: %v -> %v", out[59], out[119])
				}
			},
		},
		{
			name:   "clamped at zero",
			watts:  constCol(600, 500),
			cp:     200,
			wPrime: 10000,
			check: func(t *testing.T, out []float64) {
				if out[599] != 0 {
					t.Errorf("balance = %v, want 0", out[599])
				}
			},
		},
		{
			name:   "zero w prime yields zeros",
			watts:  constCol(10, 300),
			cp:     200,
			wPrime: 0,
			check: func(t *testing.T, out []float64) {
				for i, v := range out {
					if v != 0 {
						t.Errorf("out[%d] = %v, want 0", i, v)
					}
				}
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out := wPrimeBalance(tt.watts, tt.cp, tt.wPrime)
			tt.check(t, out)
		})
	}
}

func TestStrideIndexes(t *testing.T) {
	tests := []struct {
		name    string
		n       int
		res     Resolution
		wantLen int
	}{
		{name: "high keeps all", n: 1000, res: ResolutionHigh, wantLen: 1000},
		{name: "medium keeps quarter", n: 1000, res: ResolutionMedium, wantLen: 250},
		{name: "low keeps one in twenty", n: 1000, res: ResolutionLow, wantLen: 50},
		{name: "tiny series keeps at least one", n: 3, res: ResolutionLow, wantLen: 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			idx := strideIndexes(tt.n, tt.res)
			if len(idx) != tt.wantLen {
				t.Errorf("len = %d, want %d", len(idx), tt.wantLen)
			}
			for i := 1; i < len(idx); i++ {
				if idx[i] <= idx[i-1] {
					t.Fatalf("indexes not increasing at %d", i)
				}
			}
		})
	}
}

func TestStreamBestPowerFullResolution(t *testing.T) {
	table := &Table{Time: seq(100), Watts: constCol(100, 200)}
	curve := make([]int, 100)
	for i := range curve {
		curve[i] = 300 - i
	}
	table.SetBestPower(curve)

	data, err := table.Stream(KeyBestPower, ResolutionLow)
	if err != nil {
		t.Fatalf("Stream() error = %v", err)
	}
	if len(data) != 100 {
		t.Errorf("best_power at low resolution has %d points, want 100", len(data))
	}
}

func TestStreamMissingBecomesNull(t *testing.T) {
	table := &Table{Time: seq(3), Heartrate: []float64{140, Missing, 150}}
	data, err := table.Stream(KeyHeartrate, ResolutionHigh)
	if err != nil {
		t.Fatalf("Stream() error = %v", err)
	}
	if data[1] != nil {
		t.Errorf("missing sample = %v, want nil", data[1])
	}
	if data[0] != 140.0 {
		t.Errorf("data[0] = %v, want 140", data[0])
	}
}

func TestSelectStreamsUnknownKey(t *testing.T) {
	table := &Table{Time: seq(3)}
	if _, err := table.SelectStreams([]string{"power"}, ResolutionHigh); err == nil {
		t.Error("expected error for unknown key")
	}
}
