package analysis

import (
	"math"

	"powerlab/internal/streams"
)

// AthleteParams are the athlete settings the metric computations depend on.
type AthleteParams struct {
	FTP             float64
	WPrimeJ         float64
	MaxHR           float64
	ThresholdHR     float64
	ThresholdActive bool
	WeightKg        float64
}

// PowerSummary is the power section of the composite response.
type PowerSummary struct {
	Avg              float64 `json:"avg"`
	Max              float64 `json:"max"`
	NormalizedPower  int     `json:"normalized_power"`
	IntensityFactor  float64 `json:"intensity_factor"`
	VariabilityIndex float64 `json:"variability_index"`
	WorkKJ           int     `json:"work_kj"`
	WorkAboveFTPKJ   int     `json:"work_above_ftp_kj"`
	WPrimeDeclineKJ  float64 `json:"w_prime_decline_kj"`
	FTP              int     `json:"ftp"`
}

// HeartrateSummary is the heartrate section of the composite response.
type HeartrateSummary struct {
	Avg             float64  `json:"avg"`
	Max             float64  `json:"max"`
	Min             float64  `json:"min"`
	RecoveryRate    int      `json:"recovery_rate"`
	EfficiencyIndex *float64 `json:"efficiency_index"`
	Decoupling      *string  `json:"decoupling"`
	HRLagSec        *int     `json:"hr_lag_sec"`
}

// AltitudeSummary is the altitude section of the composite response.
type AltitudeSummary struct {
	ElevationGainM float64 `json:"elevation_gain_m"`
	TotalDescentM  float64 `json:"total_descent_m"`
	MaxAltitudeM   float64 `json:"max_altitude_m"`
	MinAltitudeM   float64 `json:"min_altitude_m"`
	MaxGradePct    float64 `json:"max_grade_pct"`
	UphillKm       float64 `json:"uphill_km"`
	DownhillKm     float64 `json:"downhill_km"`
}

// OverallSummary is the overall section of the composite response.
type OverallSummary struct {
	DistanceKm       float64  `json:"distance_km"`
	DurationSec      int      `json:"duration_sec"`
	ElapsedSec       int      `json:"elapsed_sec"`
	AvgSpeedKmh      float64  `json:"avg_speed_kmh"`
	ElevationGainM   float64  `json:"elevation_gain_m"`
	WorkKJ           int      `json:"work_kj"`
	Calories         int      `json:"calories"`
	NormalizedPower  int      `json:"normalized_power"`
	IntensityFactor  float64  `json:"intensity_factor"`
	TSS              int      `json:"tss"`
	EfficiencyFactor *float64 `json:"efficiency_factor"`
}

// ZoneSet groups the power and heart-rate distributions.
type ZoneSet struct {
	Power     *ZoneDistribution `json:"power"`
	Heartrate *ZoneDistribution `json:"heartrate"`
}

// Metrics is everything the assembler derives from one activity's table.
type Metrics struct {
	Available      []string               `json:"available_streams"`
	Overall        *OverallSummary        `json:"overall"`
	Power          *PowerSummary          `json:"power"`
	Heartrate      *HeartrateSummary      `json:"heartrate"`
	Cadence        *CadenceSummary        `json:"cadence"`
	Speed          *SpeedSummary          `json:"speed"`
	Altitude       *AltitudeSummary       `json:"altitude"`
	Temp           *TempSummary           `json:"temp"`
	TrainingEffect *TrainingEffectSummary `json:"training_effect"`
	Zones          *ZoneSet               `json:"zones"`

	// BestCurve is the full best-power curve of this activity, also attached
	// to the table as its best_power column.
	BestCurve []int `json:"-"`
}

// Assemble runs every per-domain computation over the table. Sections whose
// input stream is absent come back nil. Session totals, when provided, take
// precedence over stream re-aggregation for the plain aggregates.
func Assemble(t *streams.Table, session *streams.SessionSummary, ath AthleteParams) *Metrics {
	if t == nil || t.Len() == 0 {
		return &Metrics{}
	}

	m := &Metrics{}
	elapsed := t.Duration()
	duration := elapsed
	if session != nil && session.TotalTimerSec > 0 {
		duration = int(session.TotalTimerSec)
	}

	if t.HasWatts() {
		m.BestCurve = BestPowerCurve(t.Watts)
		t.SetBestPower(m.BestCurve)
		m.Power = powerSection(t, session, ath, duration)
	}
	if t.HasHeartrate() {
		m.Heartrate = heartrateSection(t, session)
	}
	m.Speed = SpeedMetrics(t.Time, t.VelocitySmooth, t.Distance)
	if t.HasCadence() {
		m.Cadence = CadenceMetrics(t.Cadence, t.VelocitySmooth, t.Torque, t.SPI)
	}
	if t.HasAltitude() {
		m.Altitude = altitudeSection(t, session)
	}
	m.Temp = TempMetrics(t.Temp)
	m.Zones = zoneSection(t, ath)
	if m.Power != nil {
		m.TrainingEffect = trainingEffectSection(t, m, ath, duration)
	}
	m.Overall = overallSection(t, m, session, ath, duration, elapsed)
	m.Available = t.AvailableStreams()
	return m
}

func powerSection(t *streams.Table, session *streams.SessionSummary, ath AthleteParams, duration int) *PowerSummary {
	avg := AvgPower(t.Watts)
	max := MaxPower(t.Watts)
	if session != nil {
		if session.AvgPower > 0 {
			avg = session.AvgPower
		}
		if session.MaxPower > 0 {
			max = session.MaxPower
		}
	}
	np := NormalizedPower(t.Watts)
	return &PowerSummary{
		Avg:              math.Round(avg*10) / 10,
		Max:              math.Round(max),
		NormalizedPower:  np,
		IntensityFactor:  IntensityFactor(np, ath.FTP),
		VariabilityIndex: VariabilityIndex(np, AvgPower(t.Watts)),
		WorkKJ:           WorkKJ(t.Watts),
		WorkAboveFTPKJ:   WorkAboveFTPKJ(t.Watts, ath.FTP),
		WPrimeDeclineKJ:  WBalanceDecline(t.WBalance),
		FTP:              int(ath.FTP),
	}
}

func heartrateSection(t *streams.Table, session *streams.SessionSummary) *HeartrateSummary {
	valid := FilterHeartrate(t.Heartrate)
	if len(valid) == 0 {
		return nil
	}
	avg := AvgHeartrate(valid)
	max := MaxHeartrate(valid)
	if session != nil {
		if session.AvgHeartrate > 0 {
			avg = session.AvgHeartrate
		}
		if session.MaxHeartrate > 0 {
			max = session.MaxHeartrate
		}
	}
	return &HeartrateSummary{
		Avg:             math.Round(avg*10) / 10,
		Max:             max,
		Min:             MinHeartrate(valid),
		RecoveryRate:    RecoveryRate(valid),
		EfficiencyIndex: EfficiencyIndex(t.Watts, t.Heartrate),
		Decoupling:      DecouplingRate(t.Watts, t.Heartrate),
		HRLagSec:        HRLag(t.Watts, t.Heartrate),
	}
}

func altitudeSection(t *streams.Table, session *streams.SessionSummary) *AltitudeSummary {
	valid := FilterAltitude(t.Altitude)
	if len(valid) == 0 {
		return nil
	}
	gain := ElevationGain(valid)
	descent := TotalDescent(valid)
	if session != nil {
		if session.TotalAscentM > 0 {
			gain = session.TotalAscentM
		}
		if session.TotalDescentM > 0 {
			descent = session.TotalDescentM
		}
	}
	up, down := ClimbDistances(t.Altitude, t.Distance)
	return &AltitudeSummary{
		ElevationGainM: gain,
		TotalDescentM:  descent,
		MaxAltitudeM:   MaxAltitude(valid),
		MinAltitudeM:   MinAltitude(valid),
		MaxGradePct:    MaxGrade(t.Altitude, t.Distance),
		UphillKm:       up,
		DownhillKm:     down,
	}
}

func zoneSection(t *streams.Table, ath AthleteParams) *ZoneSet {
	var set ZoneSet
	if t.HasWatts() {
		set.Power = PowerZones(t.Watts, ath.FTP)
	}
	if t.HasHeartrate() {
		set.Heartrate = HRZones(t.Heartrate, ath.MaxHR, ath.ThresholdHR, ath.ThresholdActive)
	}
	if set.Power == nil && set.Heartrate == nil {
		return nil
	}
	return &set
}

func trainingEffectSection(t *streams.Table, m *Metrics, ath AthleteParams, duration int) *TrainingEffectSummary {
	if ath.FTP <= 0 {
		return nil
	}
	np := m.Power.NormalizedPower
	aerobic := AerobicEffect(np, ath.FTP, duration)
	anaerobic := AnaerobicEffect(t.Watts, ath.FTP)
	primary, secondary := PrimaryBenefit(BenefitInputs{
		ZonePct:     zonePercents(zoneOrNil(m.Zones)),
		ZoneMinutes: zoneMinutes(zoneOrNil(m.Zones)),
		DurationMin: float64(duration) / 60,
		Aerobic:     aerobic,
		Anaerobic:   anaerobic,
		FTP:         ath.FTP,
		MaxPower:    m.Power.Max,
	})
	te := &TrainingEffectSummary{
		TSS:             TrainingStressScore(AvgPower(t.Watts), ath.FTP, duration),
		IntensityFactor: IntensityFactor(np, ath.FTP),
		AerobicEffect:   aerobic,
		AnaerobicEffect: anaerobic,
		PrimaryBenefit:  primary,
		SecondaryBenefits: func() []string {
			if secondary == nil {
				return []string{}
			}
			return secondary
		}(),
	}
	if len(m.BestCurve) >= 300 {
		te.VO2MaxEstimate = VO2MaxEstimate(float64(m.BestCurve[299]), ath.WeightKg)
	}
	return te
}

func zoneOrNil(set *ZoneSet) *ZoneDistribution {
	if set == nil {
		return nil
	}
	return set.Power
}

func overallSection(t *streams.Table, m *Metrics, session *streams.SessionSummary, ath AthleteParams, duration, elapsed int) *OverallSummary {
	o := &OverallSummary{
		DurationSec: duration,
		ElapsedSec:  elapsed,
		DistanceKm:  TotalDistanceKm(t.Distance),
	}
	if session != nil && session.TotalDistanceM > 0 {
		o.DistanceKm = math.Round(session.TotalDistanceM/10) / 100
	}
	switch {
	case session != nil && session.AvgSpeedMps > 0:
		o.AvgSpeedKmh = kmh1(session.AvgSpeedMps)
	case m.Speed != nil:
		o.AvgSpeedKmh = m.Speed.AvgKmh
	case o.DistanceKm > 0 && duration > 0:
		o.AvgSpeedKmh = math.Round(o.DistanceKm/(float64(duration)/3600)*10) / 10
	}
	if m.Altitude != nil {
		o.ElevationGainM = m.Altitude.ElevationGainM
	}
	if m.Power != nil {
		o.WorkKJ = m.Power.WorkKJ
		o.Calories = m.Power.WorkKJ
		o.NormalizedPower = m.Power.NormalizedPower
		o.IntensityFactor = m.Power.IntensityFactor
		o.TSS = TrainingStressScore(AvgPower(t.Watts), ath.FTP, duration)
	}
	if m.Heartrate != nil {
		o.EfficiencyFactor = m.Heartrate.EfficiencyIndex
	}
	return o
}
