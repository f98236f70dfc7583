package analysis

import "math"

// BenefitTooShort is returned when an activity is under five minutes and no
// benefit classification is meaningful.
const BenefitTooShort = "时间过短, 无法判断"

// BenefitMixed is returned when no rule matches.
const BenefitMixed = "Mixed"

// TrainingEffectSummary is the training_effect section of the composite
// response.
type TrainingEffectSummary struct {
	TSS               int      `json:"tss"`
	IntensityFactor   float64  `json:"intensity_factor"`
	AerobicEffect     float64  `json:"aerobic_effect"`
	AnaerobicEffect   float64  `json:"anaerobic_effect"`
	PrimaryBenefit    string   `json:"primary_benefit"`
	SecondaryBenefits []string `json:"secondary_benefits"`
	VO2MaxEstimate    *float64 `json:"vo2max_estimate,omitempty"`
}

// TrainingStressScore computes TSS from average power: (avg/ftp)² scaled by
// hours and 100. Zero when either input is unusable.
func TrainingStressScore(avgPower, ftp float64, durationSec int) int {
	if avgPower <= 0 || ftp <= 0 || durationSec <= 0 {
		return 0
	}
	intensity := avgPower / ftp
	return int(math.Round(intensity * intensity * (float64(durationSec) / 3600) * 100))
}

// AerobicEffect scores the aerobic load on a 0-5 scale from the NP-based
// intensity factor and duration, one decimal.
func AerobicEffect(np int, ftp float64, durationSec int) float64 {
	if np <= 0 || ftp <= 0 || durationSec <= 0 {
		return 0
	}
	hours := float64(durationSec) / 3600
	effect := float64(np)/ftp*hours + 0.5
	if effect > 5.0 {
		effect = 5.0
	}
	return math.Round(effect*10) / 10
}

// AnaerobicEffect scores the anaerobic load on a 0-4 scale from the peak
// 30-second effort and the total work above FTP, one decimal.
func AnaerobicEffect(watts []float64, ftp float64) float64 {
	if ftp <= 0 || len(watts) == 0 {
		return 0
	}
	peak30 := BestWindowAverage(watts, npWindowSec)
	capacity := anaerobicCapacityKJ(watts, ftp)
	effect := 0.1*peak30/ftp + 0.05*capacity
	if effect > 4.0 {
		effect = 4.0
	}
	return math.Round(effect*10) / 10
}

// BenefitInputs feed the primary-benefit ruleset. ZonePct and ZoneMinutes
// are the seven power bands, zone 1 first.
type BenefitInputs struct {
	ZonePct     []float64
	ZoneMinutes []float64
	DurationMin float64
	Aerobic     float64
	Anaerobic   float64
	FTP         float64
	MaxPower    float64
}

func (in BenefitInputs) zp(zone int) float64 {
	if zone < 1 || zone > len(in.ZonePct) {
		return 0
	}
	return in.ZonePct[zone-1]
}

func (in BenefitInputs) zm(zone int) float64 {
	if zone < 1 || zone > len(in.ZoneMinutes) {
		return 0
	}
	return in.ZoneMinutes[zone-1]
}

type benefitRule struct {
	name  string
	need  int
	conds []func(BenefitInputs) bool
}

func (r benefitRule) matches(in BenefitInputs) bool {
	hit := 0
	for _, cond := range r.conds {
		if cond(in) {
			hit++
		}
	}
	return hit >= r.need
}

// benefitRules is evaluated in order; the first matching rule is the primary
// benefit, any further matches become secondary.
var benefitRules = []benefitRule{
	{
		name: "Recovery", need: 3,
		conds: []func(BenefitInputs) bool{
			func(in BenefitInputs) bool { return in.zp(1)+in.zp(2) >= 80 },
			func(in BenefitInputs) bool { return in.DurationMin <= 90 },
			func(in BenefitInputs) bool { return in.Aerobic <= 2.0 },
			func(in BenefitInputs) bool { return in.MaxPower < 1.5*in.FTP },
		},
	},
	{
		name: "LSD", need: 3,
		conds: []func(BenefitInputs) bool{
			func(in BenefitInputs) bool { return in.zp(2)+in.zp(3) >= 60 },
			func(in BenefitInputs) bool { return in.DurationMin >= 90 },
			func(in BenefitInputs) bool { return in.Aerobic >= 2.0 },
			func(in BenefitInputs) bool { return in.Anaerobic < 1.0 },
		},
	},
	{
		name: "Tempo", need: 2,
		conds: []func(BenefitInputs) bool{
			func(in BenefitInputs) bool { return in.zp(3)+in.zp(4) >= 40 },
			func(in BenefitInputs) bool { return in.zm(3)+in.zm(4) >= 20 },
			func(in BenefitInputs) bool { return in.Aerobic >= 2.5 },
		},
	},
	{
		name: "Threshold", need: 2,
		conds: []func(BenefitInputs) bool{
			func(in BenefitInputs) bool { return in.zp(4)+in.zp(5) >= 30 },
			func(in BenefitInputs) bool { return in.zm(4)+in.zm(5) >= 10 },
			func(in BenefitInputs) bool { return in.Aerobic >= 3.0 },
		},
	},
	{
		name: "VO2Max", need: 2,
		conds: []func(BenefitInputs) bool{
			func(in BenefitInputs) bool { return in.zp(5)+in.zp(6) >= 15 },
			func(in BenefitInputs) bool { return in.zm(5)+in.zm(6) >= 6 },
			func(in BenefitInputs) bool { return in.Anaerobic >= 2.0 },
		},
	},
	{
		name: "Anaerobic", need: 2,
		conds: []func(BenefitInputs) bool{
			func(in BenefitInputs) bool { return in.zp(6)+in.zp(7) >= 10 },
			func(in BenefitInputs) bool { return in.Anaerobic >= 2.5 },
			func(in BenefitInputs) bool { return in.MaxPower >= 1.5*in.FTP },
		},
	},
	{
		name: "Sprint", need: 2,
		conds: []func(BenefitInputs) bool{
			func(in BenefitInputs) bool { return in.zp(7) >= 3 },
			func(in BenefitInputs) bool { return in.MaxPower >= 2.0*in.FTP },
			func(in BenefitInputs) bool { return in.Anaerobic >= 3.0 },
		},
	},
}

// PrimaryBenefit classifies the session. Activities under five minutes are
// rejected outright; when nothing matches the session is "Mixed".
func PrimaryBenefit(in BenefitInputs) (primary string, secondary []string) {
	if in.DurationMin < 5 {
		return BenefitTooShort, nil
	}
	for _, rule := range benefitRules {
		if !rule.matches(in) {
			continue
		}
		if primary == "" {
			primary = rule.name
		} else {
			secondary = append(secondary, rule.name)
		}
	}
	if primary == "" {
		return BenefitMixed, nil
	}
	return primary, secondary
}

// VO2MaxEstimate approximates aerobic capacity in ml/kg/min from the best
// five-minute power and body weight. Nil when either input is missing.
func VO2MaxEstimate(best5MinW, weightKg float64) *float64 {
	if best5MinW <= 0 || weightKg <= 0 {
		return nil
	}
	v := math.Round((10.8*best5MinW/weightKg+7)*10) / 10
	return &v
}
