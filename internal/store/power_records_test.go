package store

import (
	"errors"
	"testing"
)

func TestGetPowerRecords_Empty(t *testing.T) {
	db := NewTestStore(t)

	_, err := db.GetPowerRecords(7)
	if !errors.Is(err, ErrNoRecords) {
		t.Errorf("Expected ErrNoRecords, got %v", err)
	}
}

func TestPowerRecords_RoundTrip(t *testing.T) {
	db := NewTestStore(t)

	r := &PowerRecords{
		AthleteID: 7,
		Powers: map[string][3]RecordSlot{
			"5s":  {{Value: 890, ActivityID: 11}, {Value: 850, ActivityID: 12}, {Value: 820, ActivityID: 11}},
			"20m": {{Value: 265, ActivityID: 13}},
		},
		LongestRide:  [3]RecordSlot{{Value: 152000, ActivityID: 14}},
		MaxElevation: [3]RecordSlot{{Value: 2400, ActivityID: 15}, {Value: 1800, ActivityID: 14}},
	}
	if err := db.SavePowerRecords(r); err != nil {
		t.Fatalf("SavePowerRecords failed: %v", err)
	}

	got, err := db.GetPowerRecords(7)
	if err != nil {
		t.Fatalf("GetPowerRecords failed: %v", err)
	}

	fives := got.Powers["5s"]
	if fives[0].Value != 890 || fives[0].ActivityID != 11 {
		t.Errorf("Unexpected 5s rank 1: %+v", fives[0])
	}
	if fives[2].Value != 820 || fives[2].ActivityID != 11 {
		t.Errorf("Unexpected 5s rank 3: %+v", fives[2])
	}

	twenties := got.Powers["20m"]
	if twenties[0].Value != 265 {
		t.Errorf("Unexpected 20m rank 1: %+v", twenties[0])
	}
	if twenties[1].Value != 0 || twenties[1].ActivityID != 0 {
		t.Errorf("Expected empty 20m rank 2, got %+v", twenties[1])
	}

	if got.LongestRide[0].Value != 152000 || got.LongestRide[0].ActivityID != 14 {
		t.Errorf("Unexpected longest ride: %+v", got.LongestRide[0])
	}
	if got.MaxElevation[1].Value != 1800 || got.MaxElevation[1].ActivityID != 14 {
		t.Errorf("Unexpected max elevation rank 2: %+v", got.MaxElevation[1])
	}

	// Windows never written come back zeroed
	if got.Powers["60m"][0].Value != 0 {
		t.Errorf("Expected empty 60m slots, got %+v", got.Powers["60m"])
	}
}

func TestPowerRecords_Replace(t *testing.T) {
	db := NewTestStore(t)

	r := &PowerRecords{
		AthleteID: 7,
		Powers:    map[string][3]RecordSlot{"1m": {{Value: 400, ActivityID: 1}}},
	}
	if err := db.SavePowerRecords(r); err != nil {
		t.Fatalf("SavePowerRecords failed: %v", err)
	}

	r.Powers["1m"] = [3]RecordSlot{{Value: 420, ActivityID: 2}, {Value: 400, ActivityID: 1}}
	if err := db.SavePowerRecords(r); err != nil {
		t.Fatalf("Second SavePowerRecords failed: %v", err)
	}

	got, err := db.GetPowerRecords(7)
	if err != nil {
		t.Fatalf("GetPowerRecords failed: %v", err)
	}
	m := got.Powers["1m"]
	if m[0].Value != 420 || m[0].ActivityID != 2 {
		t.Errorf("Unexpected 1m rank 1 after replace: %+v", m[0])
	}
	if m[1].Value != 400 || m[1].ActivityID != 1 {
		t.Errorf("Unexpected 1m rank 2 after replace: %+v", m[1])
	}
}
