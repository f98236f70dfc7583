// Package service orchestrates per-activity analytics: it resolves the
// sample source, runs the metric and interval computations, persists the
// side effects and assembles the composite response document.
package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"powerlab/internal/analysis"
	"powerlab/internal/cache"
	"powerlab/internal/intervals"
	"powerlab/internal/records"
	"powerlab/internal/store"
	"powerlab/internal/strava"
	"powerlab/internal/streams"
)

// ErrInsufficientHistory means the athlete has no usable FTP and no stored
// best-power curve to estimate one from.
var ErrInsufficientHistory = errors.New("not enough power history to estimate ftp")

// longRideCutoffSec is the moving time above which the default stream
// resolution drops to medium.
const longRideCutoffSec = 10000

// Deps carries the collaborators an ActivityService is wired from.
type Deps struct {
	DB       *store.DB
	Provider *strava.Client
	Tokens   *strava.DeviceTokens
	Streams  *cache.StreamCache
	Results  *cache.ResultCache
	Records  *records.Manager
	DataDir  string
	Log      zerolog.Logger
}

// ActivityService is the single entry point for activity analytics. The
// service itself holds no per-request state; side effects are serialized
// by the stores they go through.
type ActivityService struct {
	db       *store.DB
	provider *strava.Client
	tokens   *strava.DeviceTokens
	streams  *cache.StreamCache
	results  *cache.ResultCache
	records  *records.Manager
	dataDir  string
	log      zerolog.Logger
	now      func() time.Time
}

// NewActivityService creates the orchestrator.
func NewActivityService(d Deps) *ActivityService {
	return &ActivityService{
		db:       d.DB,
		provider: d.Provider,
		tokens:   d.Tokens,
		streams:  d.Streams,
		results:  d.Results,
		records:  d.Records,
		dataDir:  d.DataDir,
		log:      d.Log,
		now:      time.Now,
	}
}

// Request identifies one analysis request. AccessToken selects the provider
// source; DeviceID does the same through the stored token for that device.
// With neither, the activity's recorded binary is the source.
type Request struct {
	ActivityID  int64
	AccessToken string
	DeviceID    string
	Keys        []string
	Resolution  string
}

// GetAllData returns the composite analysis document for one activity,
// serving the cached copy when one matches the request shape.
func (s *ActivityService) GetAllData(ctx context.Context, req Request) (json.RawMessage, error) {
	key := cache.GenerateKey(req.ActivityID, req.Keys, req.Resolution)
	doc, err := s.results.Get(req.ActivityID, key)
	if err != nil {
		s.log.Warn().Err(err).Int64("activity_id", req.ActivityID).Msg("result cache read failed")
	}
	if doc != nil {
		return doc, nil
	}
	return s.compute(ctx, req, key)
}

// compute runs the full analysis and stores the encoded document under
// cacheKey. A cache write failure is logged, never surfaced.
func (s *ActivityService) compute(ctx context.Context, req Request, cacheKey string) (json.RawMessage, error) {
	comp, err := s.analyze(ctx, req)
	if err != nil {
		return nil, err
	}
	data, err := json.Marshal(comp)
	if err != nil {
		return nil, fmt.Errorf("encoding composite response: %w", err)
	}

	meta := "resolution=" + comp.Resolution
	if len(req.Keys) > 0 {
		meta += " keys=" + strings.Join(req.Keys, ",")
	}
	if err := s.results.Set(req.ActivityID, cacheKey, json.RawMessage(data), meta); err != nil {
		s.log.Error().Err(err).Int64("activity_id", req.ActivityID).Msg("result cache write failed")
	}
	return data, nil
}

// analyze builds the sample table from the resolved source, computes every
// metric section, and applies the per-activity side effects. Records, score
// and rollup writes are best-effort; a failure there is logged and the
// response is still produced.
func (s *ActivityService) analyze(ctx context.Context, req Request) (*Composite, error) {
	src, err := s.resolveSource(ctx, req)
	if err != nil {
		return nil, err
	}
	res := pickResolution(req.Resolution, src.movingTime)

	streams.Enrich(src.table, streams.EnrichParams{FTP: src.params.FTP, WPrimeJ: src.params.WPrimeJ})
	metrics := analysis.Assemble(src.table, src.session, src.params)

	det := intervals.Detect(src.table.Time, src.table.Watts, src.table.Heartrate, src.params.FTP)
	if len(det.Intervals) > 0 {
		if err := s.writeIntervals(req.ActivityID, det); err != nil {
			s.log.Error().Err(err).Int64("activity_id", req.ActivityID).Msg("writing intervals file failed")
		}
	}

	best := s.mergeRecords(req.ActivityID, src.athleteID, metrics)
	s.persistScores(req.ActivityID, src.act, metrics)
	if src.athleteID != 0 {
		if _, err := s.UpdateDailyState(src.athleteID, src.startDate); err != nil {
			s.log.Error().Err(err).Int64("athlete_id", src.athleteID).Msg("athlete rollup failed")
		}
	}

	keys := req.Keys
	if len(keys) == 0 {
		keys = metrics.Available
	}
	selected, err := src.table.SelectStreams(keys, res)
	if err != nil {
		return nil, err
	}

	return &Composite{
		ActivityID:       req.ActivityID,
		ComputedAt:       s.now().UTC(),
		Resolution:       string(res),
		AvailableStreams: metrics.Available,
		Overall:          metrics.Overall,
		Power:            metrics.Power,
		Heartrate:        metrics.Heartrate,
		Cadence:          metrics.Cadence,
		Speed:            metrics.Speed,
		Altitude:         metrics.Altitude,
		Temp:             metrics.Temp,
		TrainingEffect:   metrics.TrainingEffect,
		BestPower:        best,
		Zones:            metrics.Zones,
		Streams:          selected,
	}, nil
}

// sourceData is one activity's analysis input after source resolution.
type sourceData struct {
	act        *store.Activity // stored row, nil on first provider sight
	table      *streams.Table
	session    *streams.SessionSummary
	athleteID  int64
	startDate  time.Time
	movingTime int
	params     analysis.AthleteParams
}

func (s *ActivityService) resolveSource(ctx context.Context, req Request) (*sourceData, error) {
	act, err := s.db.GetActivity(req.ActivityID)
	if err != nil && !errors.Is(err, store.ErrActivityNotFound) {
		return nil, fmt.Errorf("loading activity: %w", err)
	}

	token := req.AccessToken
	if token == "" && req.DeviceID != "" {
		token, err = s.tokens.Token(ctx, req.DeviceID)
		if err != nil {
			return nil, fmt.Errorf("resolving device token: %w", err)
		}
	}
	if token != "" {
		return s.providerSource(ctx, req.ActivityID, token, act)
	}
	if act == nil {
		return nil, store.ErrActivityNotFound
	}
	return s.nativeSource(ctx, act)
}

func (s *ActivityService) providerSource(ctx context.Context, activityID int64, token string, prior *store.Activity) (*sourceData, error) {
	pact, err := s.provider.GetActivity(ctx, token, activityID)
	if err != nil {
		return nil, fmt.Errorf("fetching provider activity: %w", err)
	}
	set, err := s.provider.GetStreams(ctx, token, activityID, nil)
	if err != nil {
		return nil, fmt.Errorf("fetching provider streams: %w", err)
	}
	profile, err := s.provider.GetAthlete(ctx, token)
	if err != nil {
		return nil, fmt.Errorf("fetching provider athlete: %w", err)
	}

	table, err := strava.BuildTable(set, pact.MovingTime)
	if err != nil {
		return nil, fmt.Errorf("building sample table: %w", err)
	}

	row := &store.Activity{
		ID:         activityID,
		ExternalID: pact.ExternalID,
		AthleteID:  pact.Athlete.ID,
		StartDate:  pact.StartDate,
	}
	if prior != nil {
		row.UploadFitURL = prior.UploadFitURL
	}
	if err := s.db.UpsertActivity(row); err != nil {
		s.log.Error().Err(err).Int64("activity_id", activityID).Msg("updating activity index failed")
	}

	params, err := s.athleteParams(pact.Athlete.ID)
	if err != nil {
		return nil, err
	}
	// The provider profile fills FTP and weight for this run only; the
	// stored profile is never overwritten from it.
	if params.FTP <= 0 && profile.FTP > 0 {
		params.FTP = float64(profile.FTP)
	}
	if params.WeightKg <= 0 && profile.Weight > 0 {
		params.WeightKg = profile.Weight
	}
	s.fillWPrime(pact.Athlete.ID, &params)

	sport := pact.SportType
	if sport == "" {
		sport = pact.Type
	}
	session := &streams.SessionSummary{
		StartTime:      pact.StartDate,
		Sport:          sport,
		TotalDistanceM: pact.Distance,
		TotalTimerSec:  float64(pact.MovingTime),
		TotalAscentM:   pact.TotalElevationGain,
	}
	if pact.MovingTime > 0 && pact.Distance > 0 {
		session.AvgSpeedMps = pact.Distance / float64(pact.MovingTime)
	}
	if pact.DeviceWatts && pact.AverageWatts > 0 {
		session.AvgPower = pact.AverageWatts
	}

	return &sourceData{
		act:        prior,
		table:      table,
		session:    session,
		athleteID:  pact.Athlete.ID,
		startDate:  pact.StartDate,
		movingTime: pact.MovingTime,
		params:     params,
	}, nil
}

func (s *ActivityService) nativeSource(ctx context.Context, act *store.Activity) (*sourceData, error) {
	table, err := s.streams.GetTable(ctx, act.ID)
	if err != nil {
		return nil, fmt.Errorf("loading sample table: %w", err)
	}
	session, err := s.streams.GetSession(ctx, act.ID, act.UploadFitURL)
	if err != nil {
		s.log.Warn().Err(err).Int64("activity_id", act.ID).Msg("loading session summary failed")
		session = nil
	}

	var params analysis.AthleteParams
	ath, err := s.streams.GetAthlete(ctx, act.ID)
	switch {
	case errors.Is(err, store.ErrAthleteNotFound):
	case err != nil:
		return nil, fmt.Errorf("loading athlete: %w", err)
	default:
		params = paramsFromRow(ath)
	}

	if params.FTP <= 0 {
		curve, err := s.records.LoadBestPowerCurve(act.AthleteID)
		if err != nil {
			return nil, fmt.Errorf("loading best power curve: %w", err)
		}
		est := analysis.EstimateFTPFromCurve(curve)
		if est <= 0 {
			return nil, ErrInsufficientHistory
		}
		params.FTP = float64(est)
	}
	s.fillWPrime(act.AthleteID, &params)

	return &sourceData{
		act:        act,
		table:      table,
		session:    session,
		athleteID:  act.AthleteID,
		startDate:  act.StartDate,
		movingTime: table.Duration(),
		params:     params,
	}, nil
}

// fillWPrime estimates the anaerobic reserve from the athlete's stored
// best-power curve when the profile does not carry one. The w_balance
// stream needs both FTP and W' to mean anything, so a missing FTP skips
// the fit.
func (s *ActivityService) fillWPrime(athleteID int64, params *analysis.AthleteParams) {
	if athleteID == 0 || params.FTP <= 0 || params.WPrimeJ > 0 {
		return
	}
	curve, err := s.records.LoadBestPowerCurve(athleteID)
	if err != nil {
		s.log.Warn().Err(err).Int64("athlete_id", athleteID).Msg("loading best power curve failed")
		return
	}
	if _, wPrime := analysis.CriticalPowerFit(curve); wPrime > 0 {
		params.WPrimeJ = wPrime
	}
}

// athleteParams loads the stored profile; a missing row is not an error.
func (s *ActivityService) athleteParams(athleteID int64) (analysis.AthleteParams, error) {
	ath, err := s.db.GetAthlete(athleteID)
	if errors.Is(err, store.ErrAthleteNotFound) {
		return analysis.AthleteParams{}, nil
	}
	if err != nil {
		return analysis.AthleteParams{}, fmt.Errorf("loading athlete: %w", err)
	}
	return paramsFromRow(ath), nil
}

func paramsFromRow(ath *store.Athlete) analysis.AthleteParams {
	var p analysis.AthleteParams
	if ath == nil {
		return p
	}
	if ath.FTP != nil {
		p.FTP = float64(*ath.FTP)
	}
	if ath.WBalance != nil {
		p.WPrimeJ = float64(*ath.WBalance)
	}
	if ath.MaxHeartrate != nil {
		p.MaxHR = float64(*ath.MaxHeartrate)
	}
	if ath.ThresholdHeartrate != nil {
		p.ThresholdHR = float64(*ath.ThresholdHeartrate)
	}
	p.ThresholdActive = ath.IsThresholdActive
	if ath.Weight != nil {
		p.WeightKg = *ath.Weight
	}
	return p
}

// pickResolution honors an explicit valid choice and otherwise degrades
// long rides to medium so stream payloads stay bounded.
func pickResolution(requested string, movingTime int) streams.Resolution {
	if requested != "" {
		if res, err := streams.ParseResolution(requested); err == nil {
			return res
		}
	}
	if movingTime > longRideCutoffSec {
		return streams.ResolutionMedium
	}
	return streams.ResolutionHigh
}

// mergeRecords folds the activity into the athlete's records and returns
// the best-power section. Record writes never fail the analysis.
func (s *ActivityService) mergeRecords(activityID, athleteID int64, m *analysis.Metrics) *BestPowerSummary {
	var summary *BestPowerSummary
	if len(m.BestCurve) > 0 {
		summary = &BestPowerSummary{
			Curve:      m.BestCurve,
			Windows:    records.WindowBests(m.BestCurve),
			Promotions: []records.Promotion{},
		}
	}
	if athleteID == 0 {
		return summary
	}

	if summary != nil {
		proms, err := s.records.UpdateBestPowers(athleteID, summary.Windows, activityID)
		if err != nil {
			s.log.Error().Err(err).Int64("activity_id", activityID).Msg("updating best powers failed")
		} else {
			summary.Promotions = append(summary.Promotions, proms...)
		}
		if _, err := s.records.UpdateBestPowerCurve(athleteID, m.BestCurve); err != nil {
			s.log.Error().Err(err).Int64("athlete_id", athleteID).Msg("updating best power curve failed")
		}
	}

	if m.Overall != nil && m.Overall.DistanceKm > 0 {
		p, err := s.records.UpdateLongestRide(athleteID, m.Overall.DistanceKm*1000, activityID)
		if err != nil {
			s.log.Error().Err(err).Int64("activity_id", activityID).Msg("updating longest ride failed")
		} else if p != nil && summary != nil {
			summary.Promotions = append(summary.Promotions, *p)
		}
	}
	if m.Altitude != nil && m.Altitude.ElevationGainM > 0 {
		p, err := s.records.UpdateMaxElevationGain(athleteID, m.Altitude.ElevationGainM, activityID)
		if err != nil {
			s.log.Error().Err(err).Int64("activity_id", activityID).Msg("updating max elevation failed")
		} else if p != nil && summary != nil {
			summary.Promotions = append(summary.Promotions, *p)
		}
	}
	return summary
}

// persistScores writes tss and the efficiency factor onto the activity row.
// The tss write is skipped when the value is non-positive or unchanged.
func (s *ActivityService) persistScores(activityID int64, prior *store.Activity, m *analysis.Metrics) {
	if m.Overall != nil && m.Overall.TSS > 0 && (prior == nil || m.Overall.TSS != prior.TSS) {
		if err := s.db.UpdateActivityTSS(activityID, m.Overall.TSS); err != nil {
			s.log.Error().Err(err).Int64("activity_id", activityID).Msg("persisting tss failed")
		}
	}
	if m.Heartrate != nil && m.Heartrate.EfficiencyIndex != nil {
		if err := s.db.UpdateActivityEfficiencyFactor(activityID, *m.Heartrate.EfficiencyIndex); err != nil {
			s.log.Error().Err(err).Int64("activity_id", activityID).Msg("persisting efficiency factor failed")
		}
	}
}
