package store

import (
	"errors"
	"testing"
)

func TestUpsertAthlete_RoundTrip(t *testing.T) {
	db := NewTestStore(t)

	ftp := 250
	wbal := 20000
	maxHR := 190
	weight := 70.5
	a := &Athlete{
		ID:           7,
		FTP:          &ftp,
		WBalance:     &wbal,
		MaxHeartrate: &maxHR,
		Weight:       &weight,
	}
	if err := db.UpsertAthlete(a); err != nil {
		t.Fatalf("UpsertAthlete failed: %v", err)
	}

	got, err := db.GetAthlete(7)
	if err != nil {
		t.Fatalf("GetAthlete failed: %v", err)
	}
	if got.FTP == nil || *got.FTP != 250 {
		t.Errorf("Expected FTP 250, got %v", got.FTP)
	}
	if got.WBalance == nil || *got.WBalance != 20000 {
		t.Errorf("Expected w_balance 20000, got %v", got.WBalance)
	}
	if got.ThresholdHeartrate != nil {
		t.Errorf("Expected nil threshold HR, got %v", *got.ThresholdHeartrate)
	}
	if got.IsThresholdActive {
		t.Error("Expected threshold inactive")
	}
	if got.ATL != 0 || got.CTL != 0 || got.TSB != 0 {
		t.Errorf("Expected zero rollup state, got atl=%d ctl=%d tsb=%d", got.ATL, got.CTL, got.TSB)
	}
}

func TestGetAthlete_NotFound(t *testing.T) {
	db := NewTestStore(t)

	_, err := db.GetAthlete(999)
	if !errors.Is(err, ErrAthleteNotFound) {
		t.Errorf("Expected ErrAthleteNotFound, got %v", err)
	}
}

func TestUpsertAthlete_PreservesRollup(t *testing.T) {
	db := NewTestStore(t)

	ftp := 250
	db.UpsertAthlete(&Athlete{ID: 7, FTP: &ftp})
	if err := db.UpdateAthleteRollup(7, 55, 62, 7); err != nil {
		t.Fatalf("UpdateAthleteRollup failed: %v", err)
	}

	// Profile refresh must not wipe the rollup state
	newFTP := 260
	if err := db.UpsertAthlete(&Athlete{ID: 7, FTP: &newFTP}); err != nil {
		t.Fatalf("Second UpsertAthlete failed: %v", err)
	}

	got, err := db.GetAthlete(7)
	if err != nil {
		t.Fatalf("GetAthlete failed: %v", err)
	}
	if got.FTP == nil || *got.FTP != 260 {
		t.Errorf("Expected FTP 260, got %v", got.FTP)
	}
	if got.ATL != 55 || got.CTL != 62 || got.TSB != 7 {
		t.Errorf("Expected rollup 55/62/7, got %d/%d/%d", got.ATL, got.CTL, got.TSB)
	}
}

func TestUpdateAthleteRollup_NotFound(t *testing.T) {
	db := NewTestStore(t)

	err := db.UpdateAthleteRollup(999, 1, 2, 1)
	if !errors.Is(err, ErrAthleteNotFound) {
		t.Errorf("Expected ErrAthleteNotFound, got %v", err)
	}
}

func TestDailyState_UpsertAndReplace(t *testing.T) {
	db := NewTestStore(t)

	s := &DailyState{AthleteID: 7, Date: "2024-06-30", Fitness: 62, Fatigue: 55, DailyStatus: 7}
	if err := db.UpsertDailyState(s); err != nil {
		t.Fatalf("UpsertDailyState failed: %v", err)
	}

	s.Fitness = 63
	s.Fatigue = 58
	s.DailyStatus = 5
	if err := db.UpsertDailyState(s); err != nil {
		t.Fatalf("Second UpsertDailyState failed: %v", err)
	}

	got, err := db.GetDailyState(7, "2024-06-30")
	if err != nil {
		t.Fatalf("GetDailyState failed: %v", err)
	}
	if got == nil {
		t.Fatal("Expected a daily state row")
	}
	if got.Fitness != 63 || got.Fatigue != 58 || got.DailyStatus != 5 {
		t.Errorf("Expected 63/58/5, got %d/%d/%d", got.Fitness, got.Fatigue, got.DailyStatus)
	}

	missing, err := db.GetDailyState(7, "2024-07-01")
	if err != nil {
		t.Fatalf("GetDailyState failed: %v", err)
	}
	if missing != nil {
		t.Error("Expected nil for a day without a row")
	}
}
