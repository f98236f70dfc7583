package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"powerlab/internal/analysis"
	"powerlab/internal/cache"
	"powerlab/internal/records"
	"powerlab/internal/store"
	"powerlab/internal/streams"
)

// Composite is the full analysis document served by the all-data endpoint
// and cached verbatim. Section pointers stay nil when their input stream is
// absent so they serialize as null.
type Composite struct {
	ActivityID       int64                           `json:"activity_id"`
	ComputedAt       time.Time                       `json:"computed_at"`
	Resolution       string                          `json:"resolution"`
	AvailableStreams []string                        `json:"available_streams"`
	Overall          *analysis.OverallSummary        `json:"overall"`
	Power            *analysis.PowerSummary          `json:"power"`
	Heartrate        *analysis.HeartrateSummary      `json:"heartrate"`
	Cadence          *analysis.CadenceSummary        `json:"cadence"`
	Speed            *analysis.SpeedSummary          `json:"speed"`
	Altitude         *analysis.AltitudeSummary       `json:"altitude"`
	Temp             *analysis.TempSummary           `json:"temp"`
	TrainingEffect   *analysis.TrainingEffectSummary `json:"training_effect"`
	BestPower        *BestPowerSummary               `json:"best_power"`
	Zones            *analysis.ZoneSet               `json:"zones"`
	Streams          map[string][]any                `json:"streams"`
}

// BestPowerSummary reports this activity's power curve against the
// athlete's stored records.
type BestPowerSummary struct {
	Curve      []int               `json:"curve"`
	Windows    map[string]int      `json:"windows"`
	Promotions []records.Promotion `json:"promotions"`
}

// MetricNames are the composite sections addressable by name.
var MetricNames = []string{
	"overall", "power", "heartrate", "cadence", "speed", "altitude",
	"temp", "training_effect", "best_power", "zones",
}

// ValidMetric reports whether name addresses a composite section.
func ValidMetric(name string) bool {
	for _, m := range MetricNames {
		if m == name {
			return true
		}
	}
	return false
}

// Metric returns one section of the composite document, serving the cached
// copy unless force requests a recompute. A null section is returned as
// JSON null, not an error.
func (s *ActivityService) Metric(ctx context.Context, req Request, name string, force bool) (json.RawMessage, error) {
	if !force {
		doc, err := s.results.CachedMetric(req.ActivityID, name)
		if err != nil {
			s.log.Warn().Err(err).Int64("activity_id", req.ActivityID).Msg("metric cache read failed")
		}
		if doc != nil {
			return doc, nil
		}
	}

	data, err := s.compute(ctx, req, cache.GenerateKey(req.ActivityID, req.Keys, req.Resolution))
	if err != nil {
		return nil, err
	}
	var sections map[string]json.RawMessage
	if err := json.Unmarshal(data, &sections); err != nil {
		return nil, fmt.Errorf("decoding composite response: %w", err)
	}
	return sections[name], nil
}

type zoneSide struct {
	Buckets json.RawMessage `json:"distribution_buckets"`
}

// ZoneBuckets returns the distribution buckets for one side of the zones
// section, which must be "power" or "heartrate".
func (s *ActivityService) ZoneBuckets(ctx context.Context, req Request, which string, force bool) (json.RawMessage, error) {
	doc, err := s.Metric(ctx, req, "zones", force)
	if err != nil {
		return nil, err
	}
	var set struct {
		Power     *zoneSide `json:"power"`
		Heartrate *zoneSide `json:"heartrate"`
	}
	if len(doc) > 0 {
		if err := json.Unmarshal(doc, &set); err != nil {
			return nil, fmt.Errorf("decoding zones section: %w", err)
		}
	}
	switch which {
	case "power":
		if set.Power != nil {
			return set.Power.Buckets, nil
		}
	case "heartrate":
		if set.Heartrate != nil {
			return set.Heartrate.Buckets, nil
		}
	}
	return nil, nil
}

// StreamPayload is one stream in a streams response.
type StreamPayload struct {
	Type string `json:"type"`
	Data []any  `json:"data"`
}

// enrichedTable returns the activity's table with derived columns attached,
// using whatever profile data is stored for the owner.
func (s *ActivityService) enrichedTable(ctx context.Context, activityID int64) (*streams.Table, error) {
	table, err := s.streams.GetTable(ctx, activityID)
	if err != nil {
		return nil, fmt.Errorf("loading sample table: %w", err)
	}
	ath, err := s.streams.GetAthlete(ctx, activityID)
	if err != nil && !errors.Is(err, store.ErrAthleteNotFound) {
		s.log.Warn().Err(err).Int64("activity_id", activityID).Msg("loading athlete failed")
	}
	params := paramsFromRow(ath)
	if ath != nil {
		s.fillWPrime(ath.ID, &params)
	}
	streams.Enrich(table, streams.EnrichParams{FTP: params.FTP, WPrimeJ: params.WPrimeJ})
	if table.HasWatts() && len(table.BestPower) == 0 {
		table.SetBestPower(analysis.BestPowerCurve(table.Watts))
	}
	return table, nil
}

// Available lists the streams carrying data for an activity.
func (s *ActivityService) Available(ctx context.Context, activityID int64) ([]string, error) {
	table, err := s.enrichedTable(ctx, activityID)
	if err != nil {
		return nil, err
	}
	return table.AvailableStreams(), nil
}

// Stream returns a single stream at the requested resolution. A stream with
// no data yields an empty payload.
func (s *ActivityService) Stream(ctx context.Context, activityID int64, key string, res streams.Resolution) (*StreamPayload, error) {
	table, err := s.enrichedTable(ctx, activityID)
	if err != nil {
		return nil, err
	}
	data, err := table.Stream(key, res)
	if err != nil {
		return nil, err
	}
	if data == nil {
		data = []any{}
	}
	return &StreamPayload{Type: key, Data: data}, nil
}

// MultiStreams returns several streams in request order, skipping keys with
// no data.
func (s *ActivityService) MultiStreams(ctx context.Context, activityID int64, keys []string, res streams.Resolution) ([]StreamPayload, error) {
	table, err := s.enrichedTable(ctx, activityID)
	if err != nil {
		return nil, err
	}
	out := make([]StreamPayload, 0, len(keys))
	for _, key := range keys {
		data, err := table.Stream(key, res)
		if err != nil {
			return nil, err
		}
		if data == nil {
			continue
		}
		out = append(out, StreamPayload{Type: key, Data: data})
	}
	return out, nil
}
