package service

import (
	"fmt"
	"math"
	"time"

	"powerlab/internal/store"
)

// Rolling training-load windows in days.
const (
	fatigueWindowDays = 7
	fitnessWindowDays = 42
)

// UpdateDailyState recomputes the athlete's rolling training load as of ref
// and persists it on the athlete row and as that day's state row. Only
// activities with a positive stress score contribute.
func (s *ActivityService) UpdateDailyState(athleteID int64, ref time.Time) (*store.DailyState, error) {
	ref = ref.UTC()
	sum7, err := s.db.SumTSS(athleteID, ref.AddDate(0, 0, -fatigueWindowDays), ref)
	if err != nil {
		return nil, fmt.Errorf("summing short window tss: %w", err)
	}
	sum42, err := s.db.SumTSS(athleteID, ref.AddDate(0, 0, -fitnessWindowDays), ref)
	if err != nil {
		return nil, fmt.Errorf("summing long window tss: %w", err)
	}

	atl := int(math.Round(float64(sum7) / fatigueWindowDays))
	ctl := int(math.Round(float64(sum42) / fitnessWindowDays))
	tsb := ctl - atl

	if err := s.db.UpdateAthleteRollup(athleteID, atl, ctl, tsb); err != nil {
		return nil, fmt.Errorf("updating athlete rollup: %w", err)
	}
	state := &store.DailyState{
		AthleteID:   athleteID,
		Date:        ref.Format("2006-01-02"),
		Fitness:     ctl,
		Fatigue:     atl,
		DailyStatus: tsb,
	}
	if err := s.db.UpsertDailyState(state); err != nil {
		return nil, fmt.Errorf("saving daily state: %w", err)
	}
	return state, nil
}
