package records

import (
	"os"
	"slices"
	"testing"

	"powerlab/internal/store"
)

func newTestManager(t *testing.T) *Manager {
	t.Helper()
	return NewManager(store.NewTestStore(t), t.TempDir())
}

func slot(value float64, activityID int64) store.RecordSlot {
	return store.RecordSlot{Value: value, ActivityID: activityID}
}

func TestPlaceRecord(t *testing.T) {
	seeded := [3]store.RecordSlot{slot(890, 1), slot(850, 2), slot(820, 3)}

	tests := []struct {
		name         string
		trio         [3]store.RecordSlot
		value        float64
		wantRank     int
		wantPrevious float64
		wantPromoted bool
		wantTrio     [3]store.RecordSlot
	}{
		{
			name:         "empty trio takes rank 1",
			value:        300,
			wantRank:     1,
			wantPromoted: true,
			wantTrio:     [3]store.RecordSlot{slot(300, 9)},
		},
		{
			name:         "beats rank 1",
			trio:         seeded,
			value:        900,
			wantRank:     1,
			wantPrevious: 890,
			wantPromoted: true,
			wantTrio:     [3]store.RecordSlot{slot(900, 9), slot(890, 1), slot(850, 2)},
		},
		{
			name:         "beats rank 2",
			trio:         seeded,
			value:        860,
			wantRank:     2,
			wantPrevious: 850,
			wantPromoted: true,
			wantTrio:     [3]store.RecordSlot{slot(890, 1), slot(860, 9), slot(850, 2)},
		},
		{
			name:         "beats rank 3",
			trio:         seeded,
			value:        830,
			wantRank:     3,
			wantPrevious: 820,
			wantPromoted: true,
			wantTrio:     [3]store.RecordSlot{slot(890, 1), slot(850, 2), slot(830, 9)},
		},
		{
			name:     "below all ranks",
			trio:     seeded,
			value:    800,
			wantTrio: seeded,
		},
		{
			name:     "equal value keeps incumbent",
			trio:     seeded,
			value:    850,
			wantTrio: seeded,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			trio := tt.trio
			rank, previous, promoted := placeRecord(&trio, tt.value, 9)
			if promoted != tt.wantPromoted {
				t.Fatalf("promoted = %v, want %v", promoted, tt.wantPromoted)
			}
			if rank != tt.wantRank {
				t.Errorf("rank = %d, want %d", rank, tt.wantRank)
			}
			if previous != tt.wantPrevious {
				t.Errorf("previous = %v, want %v", previous, tt.wantPrevious)
			}
			if trio != tt.wantTrio {
				t.Errorf("trio = %v, want %v", trio, tt.wantTrio)
			}
		})
	}
}

func TestUpdateBestPowers_FirstRun(t *testing.T) {
	m := newTestManager(t)

	promotions, err := m.UpdateBestPowers(7, map[string]int{"5s": 600, "1m": 420, "5m": 310}, 11)
	if err != nil {
		t.Fatalf("UpdateBestPowers failed: %v", err)
	}
	if len(promotions) != 3 {
		t.Fatalf("got %d promotions, want 3", len(promotions))
	}

	// Promotions follow window order, shortest first.
	wantKeys := []string{"5s", "1m", "5m"}
	wantValues := []float64{600, 420, 310}
	for i, p := range promotions {
		if p.Key != wantKeys[i] {
			t.Errorf("promotion %d key = %q, want %q", i, p.Key, wantKeys[i])
		}
		if p.Rank != 1 {
			t.Errorf("promotion %d rank = %d, want 1", i, p.Rank)
		}
		if p.Value != wantValues[i] || p.PreviousRecord != 0 || p.Improvement != wantValues[i] {
			t.Errorf("promotion %d = %+v, want value %v over empty slot", i, p, wantValues[i])
		}
		if p.ActivityID != 11 {
			t.Errorf("promotion %d activity = %d, want 11", i, p.ActivityID)
		}
	}

	row, err := m.db.GetPowerRecords(7)
	if err != nil {
		t.Fatalf("GetPowerRecords failed: %v", err)
	}
	if row.Powers["5s"][0] != slot(600, 11) {
		t.Errorf("stored 5s rank 1 = %v, want {600 11}", row.Powers["5s"][0])
	}
}

func TestUpdateBestPowers_Idempotent(t *testing.T) {
	m := newTestManager(t)
	bests := map[string]int{"5s": 600, "1m": 420}

	if _, err := m.UpdateBestPowers(7, bests, 11); err != nil {
		t.Fatalf("first UpdateBestPowers failed: %v", err)
	}

	// A repeat of the same activity changes nothing.
	promotions, err := m.UpdateBestPowers(7, bests, 11)
	if err != nil {
		t.Fatalf("second UpdateBestPowers failed: %v", err)
	}
	if len(promotions) != 0 {
		t.Fatalf("repeat run promoted %d records, want 0", len(promotions))
	}

	// An equal value from another activity keeps the incumbent.
	promotions, err = m.UpdateBestPowers(7, bests, 12)
	if err != nil {
		t.Fatalf("third UpdateBestPowers failed: %v", err)
	}
	if len(promotions) != 0 {
		t.Fatalf("tie promoted %d records, want 0", len(promotions))
	}

	row, err := m.db.GetPowerRecords(7)
	if err != nil {
		t.Fatalf("GetPowerRecords failed: %v", err)
	}
	if row.Powers["5s"][0] != slot(600, 11) {
		t.Errorf("stored 5s rank 1 = %v, want {600 11}", row.Powers["5s"][0])
	}
	if row.Powers["5s"][1] != slot(0, 0) {
		t.Errorf("stored 5s rank 2 = %v, want empty", row.Powers["5s"][1])
	}
}

func TestUpdateBestPowers_ShiftsRanksDown(t *testing.T) {
	m := newTestManager(t)

	steps := []struct {
		activityID      int64
		value           int
		wantRank        int
		wantPrevious    float64
		wantImprovement float64
	}{
		{11, 600, 1, 0, 600},
		{12, 650, 1, 600, 50},
		{13, 620, 2, 600, 20},
		{14, 610, 3, 600, 10},
	}
	for _, s := range steps {
		promotions, err := m.UpdateBestPowers(7, map[string]int{"5s": s.value}, s.activityID)
		if err != nil {
			t.Fatalf("UpdateBestPowers(%d) failed: %v", s.value, err)
		}
		if len(promotions) != 1 {
			t.Fatalf("UpdateBestPowers(%d) promoted %d records, want 1", s.value, len(promotions))
		}
		p := promotions[0]
		if p.Rank != s.wantRank || p.PreviousRecord != s.wantPrevious || p.Improvement != s.wantImprovement {
			t.Errorf("promotion for %d = %+v, want rank %d previous %v improvement %v",
				s.value, p, s.wantRank, s.wantPrevious, s.wantImprovement)
		}
	}

	row, err := m.db.GetPowerRecords(7)
	if err != nil {
		t.Fatalf("GetPowerRecords failed: %v", err)
	}
	want := [3]store.RecordSlot{slot(650, 12), slot(620, 13), slot(610, 14)}
	if row.Powers["5s"] != want {
		t.Errorf("stored 5s trio = %v, want %v", row.Powers["5s"], want)
	}
}

func TestUpdateLongestRide(t *testing.T) {
	m := newTestManager(t)

	p, err := m.UpdateLongestRide(7, 152000, 14)
	if err != nil {
		t.Fatalf("UpdateLongestRide failed: %v", err)
	}
	if p == nil {
		t.Fatal("expected a promotion for the first ride")
	}
	if p.Key != "longest_ride" || p.Rank != 1 || p.Value != 152000 {
		t.Errorf("promotion = %+v, want longest_ride rank 1 at 152000", p)
	}

	// Shorter ride slots in below.
	p, err = m.UpdateLongestRide(7, 98000, 15)
	if err != nil {
		t.Fatalf("UpdateLongestRide failed: %v", err)
	}
	if p == nil || p.Rank != 2 {
		t.Fatalf("promotion = %+v, want rank 2", p)
	}

	// Equal distance from another activity keeps the incumbent.
	p, err = m.UpdateLongestRide(7, 152000, 16)
	if err != nil {
		t.Fatalf("UpdateLongestRide failed: %v", err)
	}
	if p != nil {
		t.Fatalf("tie promoted %+v, want nil", p)
	}

	row, err := m.db.GetPowerRecords(7)
	if err != nil {
		t.Fatalf("GetPowerRecords failed: %v", err)
	}
	if row.LongestRide[0] != slot(152000, 14) {
		t.Errorf("longest ride rank 1 = %v, want {152000 14}", row.LongestRide[0])
	}
}

func TestUpdateMaxElevationGain(t *testing.T) {
	m := newTestManager(t)

	if _, err := m.UpdateMaxElevationGain(7, 2400, 15); err != nil {
		t.Fatalf("UpdateMaxElevationGain failed: %v", err)
	}
	p, err := m.UpdateMaxElevationGain(7, 1800, 14)
	if err != nil {
		t.Fatalf("UpdateMaxElevationGain failed: %v", err)
	}
	if p == nil || p.Key != "max_elevation" || p.Rank != 2 || p.PreviousRecord != 0 {
		t.Fatalf("promotion = %+v, want max_elevation rank 2 over empty slot", p)
	}

	// Zero ascent never promotes.
	p, err = m.UpdateMaxElevationGain(7, 0, 16)
	if err != nil {
		t.Fatalf("UpdateMaxElevationGain failed: %v", err)
	}
	if p != nil {
		t.Fatalf("zero ascent promoted %+v, want nil", p)
	}
}

func TestMergeCurves(t *testing.T) {
	tests := []struct {
		name             string
		stored, incoming []int
		want             []int
	}{
		{
			name:     "no stored curve",
			incoming: []int{600, 580},
			want:     []int{600, 580},
		},
		{
			name:     "element-wise max",
			stored:   []int{600, 580, 400},
			incoming: []int{550, 590},
			want:     []int{600, 590, 400},
		},
		{
			name:     "incoming extends stored",
			stored:   []int{500},
			incoming: []int{450, 440, 430},
			want:     []int{500, 440, 430},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := MergeCurves(tt.stored, tt.incoming)
			if !slices.Equal(got, tt.want) {
				t.Errorf("MergeCurves = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestUpdateBestPowerCurve_MergesAcrossActivities(t *testing.T) {
	m := newTestManager(t)

	first := make([]int, 300)
	first[4], first[59], first[299] = 600, 420, 310
	if _, err := m.UpdateBestPowerCurve(7, first); err != nil {
		t.Fatalf("first UpdateBestPowerCurve failed: %v", err)
	}

	second := make([]int, 300)
	second[4], second[59], second[299] = 550, 440, 305
	merged, err := m.UpdateBestPowerCurve(7, second)
	if err != nil {
		t.Fatalf("second UpdateBestPowerCurve failed: %v", err)
	}

	if len(merged) != 300 {
		t.Fatalf("merged length = %d, want 300", len(merged))
	}
	if merged[4] != 600 || merged[59] != 440 || merged[299] != 310 {
		t.Errorf("merged[4,59,299] = %d,%d,%d, want 600,440,310",
			merged[4], merged[59], merged[299])
	}

	stored, err := m.LoadBestPowerCurve(7)
	if err != nil {
		t.Fatalf("LoadBestPowerCurve failed: %v", err)
	}
	if !slices.Equal(stored, merged) {
		t.Errorf("stored curve differs from merged result")
	}
}

func TestUpdateBestPowerCurve_SkipsUnchangedWrite(t *testing.T) {
	m := newTestManager(t)

	curve := []int{700, 650, 600}
	if _, err := m.UpdateBestPowerCurve(7, curve); err != nil {
		t.Fatalf("UpdateBestPowerCurve failed: %v", err)
	}
	before, err := os.ReadFile(m.curvePath(7))
	if err != nil {
		t.Fatalf("reading curve file failed: %v", err)
	}

	if _, err := m.UpdateBestPowerCurve(7, curve); err != nil {
		t.Fatalf("repeat UpdateBestPowerCurve failed: %v", err)
	}
	after, err := os.ReadFile(m.curvePath(7))
	if err != nil {
		t.Fatalf("rereading curve file failed: %v", err)
	}
	if string(before) != string(after) {
		t.Error("curve file rewritten for an unchanged merge")
	}
}

func TestLoadBestPowerCurve_Missing(t *testing.T) {
	m := newTestManager(t)

	curve, err := m.LoadBestPowerCurve(404)
	if err != nil {
		t.Fatalf("LoadBestPowerCurve failed: %v", err)
	}
	if curve != nil {
		t.Errorf("curve = %v, want nil for missing file", curve)
	}
}

func TestWindowBests(t *testing.T) {
	curve := make([]int, 120)
	for i := range curve {
		curve[i] = 400 - i
	}

	bests := WindowBests(curve)

	want := map[string]int{
		"5s":  curve[4],
		"15s": curve[14],
		"30s": curve[29],
		"1m":  curve[59],
		"2m":  curve[119],
	}
	if len(bests) != len(want) {
		t.Fatalf("got %d windows %v, want %d", len(bests), bests, len(want))
	}
	for key, value := range want {
		if bests[key] != value {
			t.Errorf("bests[%q] = %d, want %d", key, bests[key], value)
		}
	}
}
