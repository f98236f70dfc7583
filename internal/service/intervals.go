package service

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"powerlab/internal/intervals"
)

// ErrNoIntervals means no prior analysis has stored intervals for the
// activity.
var ErrNoIntervals = errors.New("no intervals stored for activity")

// IntervalsResponse is the document written after interval detection and
// served by the intervals endpoint.
type IntervalsResponse struct {
	ActivityID int64                `json:"activity_id"`
	FTP        int                  `json:"ftp"`
	Duration   int                  `json:"duration"`
	ComputedAt time.Time            `json:"computed_at"`
	Intervals  []intervals.Interval `json:"intervals"`
	Repeats    []intervals.Repeat   `json:"repeats"`
}

// SimpleInterval is the reduced per-interval view.
type SimpleInterval struct {
	Start          int     `json:"start"`
	End            int     `json:"end"`
	Duration       int     `json:"duration"`
	Classification string  `json:"classification"`
	AvgPower       float64 `json:"avg_power"`
	PowerRatio     float64 `json:"power_ratio"`
}

func (s *ActivityService) intervalsPath(activityID int64) string {
	return filepath.Join(s.dataDir, "intervals", fmt.Sprintf("%d.json", activityID))
}

// writeIntervals persists a detection result for the intervals endpoints.
func (s *ActivityService) writeIntervals(activityID int64, det intervals.Result) error {
	doc := IntervalsResponse{
		ActivityID: activityID,
		FTP:        det.FTP,
		Duration:   det.Duration,
		ComputedAt: s.now().UTC(),
		Intervals:  det.Intervals,
		Repeats:    det.Repeats,
	}
	data, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("encoding intervals: %w", err)
	}

	path := s.intervalsPath(activityID)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("creating intervals dir: %w", err)
	}
	// Write-temp-and-rename so readers never see a partial document.
	tmp := path + "." + uuid.NewString() + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("writing intervals file: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("replacing intervals file: %w", err)
	}
	return nil
}

// Intervals returns the stored detection document verbatim.
func (s *ActivityService) Intervals(activityID int64) (json.RawMessage, error) {
	data, err := os.ReadFile(s.intervalsPath(activityID))
	if errors.Is(err, os.ErrNotExist) {
		return nil, ErrNoIntervals
	}
	if err != nil {
		return nil, fmt.Errorf("reading intervals file: %w", err)
	}
	return json.RawMessage(data), nil
}

// SimpleIntervals reduces the stored intervals to their headline numbers,
// rounded to two decimals.
func (s *ActivityService) SimpleIntervals(activityID int64) ([]SimpleInterval, error) {
	data, err := s.Intervals(activityID)
	if err != nil {
		return nil, err
	}
	var doc IntervalsResponse
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("decoding intervals file: %w", err)
	}

	out := make([]SimpleInterval, 0, len(doc.Intervals))
	for _, iv := range doc.Intervals {
		out = append(out, SimpleInterval{
			Start:          iv.Start,
			End:            iv.End,
			Duration:       iv.DurationSec,
			Classification: iv.Classification,
			AvgPower:       round2(iv.AvgPower),
			PowerRatio:     round2(iv.PowerRatio),
		})
	}
	return out, nil
}

func round2(v float64) float64 { return math.Round(v*100) / 100 }
