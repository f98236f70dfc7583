package records

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"time"

	"github.com/google/uuid"

	"powerlab/internal/store"
)

// Manager maintains an athlete's all-time records: the ranked top-3 rows in
// the database and the per-athlete best power curve file on disk.
type Manager struct {
	db      *store.DB
	baseDir string
}

// NewManager creates a records manager. Curve files are written under
// dataDir/best_power.
func NewManager(db *store.DB, dataDir string) *Manager {
	return &Manager{db: db, baseDir: dataDir}
}

// Promotion describes one record improvement contributed by an activity.
type Promotion struct {
	Key            string  `json:"key"`
	Rank           int     `json:"rank"`
	Value          float64 `json:"value"`
	PreviousRecord float64 `json:"previous_record"`
	Improvement    float64 `json:"improvement"`
	ActivityID     int64   `json:"activity_id"`
}

// UpdateBestPowers compares per-window best powers against the stored top-3
// and shifts lower ranks down on each improvement. An equal value keeps the
// stored entry, so re-running the same activity promotes nothing.
func (m *Manager) UpdateBestPowers(athleteID int64, bests map[string]int, activityID int64) ([]Promotion, error) {
	row, err := m.loadRow(athleteID)
	if err != nil {
		return nil, err
	}

	var promotions []Promotion
	for _, w := range store.PowerRecordWindows {
		value, ok := bests[w.Key]
		if !ok || value <= 0 {
			continue
		}
		trio := row.Powers[w.Key]
		rank, previous, promoted := placeRecord(&trio, float64(value), activityID)
		if !promoted {
			continue
		}
		row.Powers[w.Key] = trio
		promotions = append(promotions, Promotion{
			Key:            w.Key,
			Rank:           rank,
			Value:          float64(value),
			PreviousRecord: previous,
			Improvement:    float64(value) - previous,
			ActivityID:     activityID,
		})
	}

	if len(promotions) == 0 {
		return nil, nil
	}
	if err := m.db.SavePowerRecords(row); err != nil {
		return nil, fmt.Errorf("saving power records: %w", err)
	}
	return promotions, nil
}

// UpdateLongestRide records ride distance in meters with the same top-3
// semantics as the power windows.
func (m *Manager) UpdateLongestRide(athleteID int64, meters float64, activityID int64) (*Promotion, error) {
	return m.updateGroup(athleteID, "longest_ride", meters, activityID)
}

// UpdateMaxElevationGain records total ascent in meters.
func (m *Manager) UpdateMaxElevationGain(athleteID int64, meters float64, activityID int64) (*Promotion, error) {
	return m.updateGroup(athleteID, "max_elevation", meters, activityID)
}

func (m *Manager) updateGroup(athleteID int64, key string, meters float64, activityID int64) (*Promotion, error) {
	if meters <= 0 {
		return nil, nil
	}
	row, err := m.loadRow(athleteID)
	if err != nil {
		return nil, err
	}

	trio := &row.LongestRide
	if key == "max_elevation" {
		trio = &row.MaxElevation
	}
	rank, previous, promoted := placeRecord(trio, meters, activityID)
	if !promoted {
		return nil, nil
	}
	if err := m.db.SavePowerRecords(row); err != nil {
		return nil, fmt.Errorf("saving power records: %w", err)
	}
	return &Promotion{
		Key:            key,
		Rank:           rank,
		Value:          meters,
		PreviousRecord: previous,
		Improvement:    meters - previous,
		ActivityID:     activityID,
	}, nil
}

// loadRow fetches the athlete's records row, starting an empty one for
// athletes with no records yet.
func (m *Manager) loadRow(athleteID int64) (*store.PowerRecords, error) {
	row, err := m.db.GetPowerRecords(athleteID)
	if errors.Is(err, store.ErrNoRecords) {
		return &store.PowerRecords{
			AthleteID: athleteID,
			Powers:    make(map[string][3]store.RecordSlot),
		}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("loading power records: %w", err)
	}
	return row, nil
}

// placeRecord walks the trio from first to third rank. The value takes the
// first rank it strictly beats, pushing lower ranks down; the third falls
// off. An equal value ends the walk and keeps the stored entry along with
// its source activity. Rank is 1-based.
func placeRecord(trio *[3]store.RecordSlot, value float64, activityID int64) (rank int, previous float64, promoted bool) {
	for i := range trio {
		if value == trio[i].Value {
			return 0, 0, false
		}
		if value > trio[i].Value {
			prev := trio[i].Value
			copy(trio[i+1:], trio[i:2])
			trio[i] = store.RecordSlot{Value: value, ActivityID: activityID}
			return i + 1, prev, true
		}
	}
	return 0, 0, false
}

// bestCurveFile is the on-disk JSON document for an athlete's best curve.
type bestCurveFile struct {
	AthleteID int64  `json:"athlete_id"`
	UpdatedAt string `json:"updated_at"`
	BestCurve []int  `json:"best_curve"`
}

func (m *Manager) curvePath(athleteID int64) string {
	return filepath.Join(m.baseDir, "best_power", fmt.Sprintf("%d.json", athleteID))
}

// LoadBestPowerCurve reads the stored per-athlete curve. A missing file
// yields nil with no error.
func (m *Manager) LoadBestPowerCurve(athleteID int64) ([]int, error) {
	data, err := os.ReadFile(m.curvePath(athleteID))
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading best power curve: %w", err)
	}

	var doc bestCurveFile
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("decoding best power curve: %w", err)
	}
	return doc.BestCurve, nil
}

// UpdateBestPowerCurve merges an activity curve into the stored one and
// persists the result, returning the merged curve. The file is left alone
// when the merge changes nothing.
func (m *Manager) UpdateBestPowerCurve(athleteID int64, curve []int) ([]int, error) {
	stored, err := m.LoadBestPowerCurve(athleteID)
	if err != nil {
		return nil, err
	}

	merged := MergeCurves(stored, curve)
	if stored != nil && slices.Equal(merged, stored) {
		return merged, nil
	}

	payload, err := json.Marshal(bestCurveFile{
		AthleteID: athleteID,
		UpdatedAt: time.Now().UTC().Format(time.RFC3339),
		BestCurve: merged,
	})
	if err != nil {
		return nil, fmt.Errorf("encoding best power curve: %w", err)
	}

	path := m.curvePath(athleteID)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("creating best power dir: %w", err)
	}

	// Write-temp-and-rename so readers never see a partial document.
	tmp := filepath.Join(filepath.Dir(path), fmt.Sprintf("%d.%s.tmp", athleteID, uuid.NewString()))
	if err := os.WriteFile(tmp, payload, 0o644); err != nil {
		return nil, fmt.Errorf("writing best power curve: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return nil, fmt.Errorf("replacing best power curve: %w", err)
	}
	return merged, nil
}

// MergeCurves takes the element-wise max of two curves, extended to the
// longer length. Missing indices count as zero.
func MergeCurves(stored, incoming []int) []int {
	merged := make([]int, max(len(stored), len(incoming)))
	for i := range merged {
		var s, c int
		if i < len(stored) {
			s = stored[i]
		}
		if i < len(incoming) {
			c = incoming[i]
		}
		merged[i] = max(s, c)
	}
	return merged
}

// WindowBests extracts the record-window values from a power curve. Windows
// longer than the curve are skipped, as are zero values.
func WindowBests(curve []int) map[string]int {
	bests := make(map[string]int, len(store.PowerRecordWindows))
	for _, w := range store.PowerRecordWindows {
		if w.Seconds > len(curve) {
			continue
		}
		if v := curve[w.Seconds-1]; v > 0 {
			bests[w.Key] = v
		}
	}
	return bests
}
