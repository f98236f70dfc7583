package store

import (
	"errors"
	"math"
	"testing"
	"time"
)

func TestUpsertActivity_RoundTrip(t *testing.T) {
	db := NewTestStore(t)

	start := time.Date(2024, 6, 1, 8, 30, 0, 0, time.UTC)
	a := &Activity{
		ID:           101,
		ExternalID:   "ext-101",
		AthleteID:    7,
		UploadFitURL: "https://uploads.example.com/101.fit",
		StartDate:    start,
	}
	if err := db.UpsertActivity(a); err != nil {
		t.Fatalf("UpsertActivity failed: %v", err)
	}

	got, err := db.GetActivity(101)
	if err != nil {
		t.Fatalf("GetActivity failed: %v", err)
	}
	if got.ExternalID != "ext-101" {
		t.Errorf("Expected external ID ext-101, got %q", got.ExternalID)
	}
	if got.AthleteID != 7 {
		t.Errorf("Expected athlete 7, got %d", got.AthleteID)
	}
	if !got.StartDate.Equal(start) {
		t.Errorf("Expected start date %v, got %v", start, got.StartDate)
	}
	if got.TSS != 0 || got.TSSUpdated {
		t.Errorf("Expected fresh activity without TSS, got tss=%d updated=%v", got.TSS, got.TSSUpdated)
	}
	if got.EfficiencyFactor != nil {
		t.Errorf("Expected nil efficiency factor, got %v", *got.EfficiencyFactor)
	}
}

func TestUpsertActivity_PreservesTSS(t *testing.T) {
	db := NewTestStore(t)

	a := &Activity{ID: 1, AthleteID: 7, StartDate: time.Date(2024, 6, 1, 8, 0, 0, 0, time.UTC)}
	if err := db.UpsertActivity(a); err != nil {
		t.Fatalf("UpsertActivity failed: %v", err)
	}
	if err := db.UpdateActivityTSS(1, 85); err != nil {
		t.Fatalf("UpdateActivityTSS failed: %v", err)
	}

	// Re-upsert as a repeated provider fetch would
	if err := db.UpsertActivity(a); err != nil {
		t.Fatalf("Second UpsertActivity failed: %v", err)
	}

	got, err := db.GetActivity(1)
	if err != nil {
		t.Fatalf("GetActivity failed: %v", err)
	}
	if got.TSS != 85 {
		t.Errorf("Expected TSS 85 after re-upsert, got %d", got.TSS)
	}
	if !got.TSSUpdated {
		t.Error("Expected tss_updated to stay set")
	}
}

func TestUpdateActivityTSS_NotFound(t *testing.T) {
	db := NewTestStore(t)

	err := db.UpdateActivityTSS(999, 50)
	if !errors.Is(err, ErrActivityNotFound) {
		t.Errorf("Expected ErrActivityNotFound, got %v", err)
	}
}

func TestUpdateActivityEfficiencyFactor(t *testing.T) {
	db := NewTestStore(t)

	db.UpsertActivity(&Activity{ID: 1, AthleteID: 7, StartDate: time.Date(2024, 6, 1, 8, 0, 0, 0, time.UTC)})
	if err := db.UpdateActivityEfficiencyFactor(1, 1.43); err != nil {
		t.Fatalf("UpdateActivityEfficiencyFactor failed: %v", err)
	}

	got, err := db.GetActivity(1)
	if err != nil {
		t.Fatalf("GetActivity failed: %v", err)
	}
	if got.EfficiencyFactor == nil || math.Abs(*got.EfficiencyFactor-1.43) > 1e-9 {
		t.Errorf("Expected efficiency factor 1.43, got %v", got.EfficiencyFactor)
	}
}

func TestGetActivity_NotFound(t *testing.T) {
	db := NewTestStore(t)

	_, err := db.GetActivity(999)
	if !errors.Is(err, ErrActivityNotFound) {
		t.Errorf("Expected ErrActivityNotFound, got %v", err)
	}
}

func TestSumTSS(t *testing.T) {
	db := NewTestStore(t)

	ref := time.Date(2024, 6, 30, 12, 0, 0, 0, time.UTC)
	rides := []struct {
		id      int64
		daysAgo int
		tss     int
	}{
		{1, 1, 60},
		{2, 6, 40},
		{3, 8, 100}, // outside the 7-day window
		{4, 40, 70}, // inside 42 days only
		{5, 43, 90}, // outside both windows
		{6, 2, 0},   // zero TSS never counts
	}
	for _, r := range rides {
		if err := db.UpsertActivity(&Activity{ID: r.id, AthleteID: 7, StartDate: ref.AddDate(0, 0, -r.daysAgo)}); err != nil {
			t.Fatalf("UpsertActivity %d failed: %v", r.id, err)
		}
		if r.tss > 0 {
			if err := db.UpdateActivityTSS(r.id, r.tss); err != nil {
				t.Fatalf("UpdateActivityTSS %d failed: %v", r.id, err)
			}
		}
	}

	// Another athlete's ride never counts
	db.UpsertActivity(&Activity{ID: 9, AthleteID: 8, StartDate: ref.AddDate(0, 0, -1)})
	db.UpdateActivityTSS(9, 500)

	sum7, err := db.SumTSS(7, ref.AddDate(0, 0, -7), ref)
	if err != nil {
		t.Fatalf("SumTSS failed: %v", err)
	}
	if sum7 != 100 {
		t.Errorf("Expected 7-day sum 100, got %d", sum7)
	}

	sum42, err := db.SumTSS(7, ref.AddDate(0, 0, -42), ref)
	if err != nil {
		t.Fatalf("SumTSS failed: %v", err)
	}
	if sum42 != 270 {
		t.Errorf("Expected 42-day sum 270, got %d", sum42)
	}
}
