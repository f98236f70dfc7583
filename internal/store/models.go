package store

import "time"

// Activity is the per-activity index row
type Activity struct {
	ID               int64     `db:"id"`
	ExternalID       string    `db:"external_id"`
	AthleteID        int64     `db:"athlete_id"`
	UploadFitURL     string    `db:"upload_fit_url"`
	TSS              int       `db:"tss"`
	TSSUpdated       bool      `db:"tss_updated"`
	EfficiencyFactor *float64  `db:"efficiency_factor"` // nullable
	StartDate        time.Time `db:"start_date"`
}

// Athlete holds the profile fields the analytics read plus the rolling
// fitness state written back by the rollup
type Athlete struct {
	ID                 int64    `db:"id"`
	FTP                *int     `db:"ftp"`                 // watts, nullable
	WBalance           *int     `db:"w_balance"`           // joules, nullable
	MaxHeartrate       *int     `db:"max_heartrate"`       // bpm, nullable
	ThresholdHeartrate *int     `db:"threshold_heartrate"` // bpm, nullable
	IsThresholdActive  bool     `db:"is_threshold_active"`
	Weight             *float64 `db:"weight"` // kg, nullable
	ATL                int      `db:"atl"`
	CTL                int      `db:"ctl"`
	TSB                int      `db:"tsb"`
}

// DailyState is one athlete-day of rollup output
type DailyState struct {
	AthleteID   int64  `db:"athlete_id"`
	Date        string `db:"date"` // YYYY-MM-DD
	Fitness     int    `db:"fitness"`
	Fatigue     int    `db:"fatigue"`
	DailyStatus int    `db:"daily_status"`
}

// RecordSlot is one ranked entry in the personal records row. Value is watts
// for power windows and meters for the distance and elevation groups.
type RecordSlot struct {
	Value      float64
	ActivityID int64
}

// PowerRecords is the wide per-athlete records row: three ranked slots per
// power window, plus longest ride and max elevation gain
type PowerRecords struct {
	AthleteID    int64
	Powers       map[string][3]RecordSlot // keyed by window key, e.g. "5s"
	LongestRide  [3]RecordSlot
	MaxElevation [3]RecordSlot
}

// CacheEntry indexes one result-cache file on disk
type CacheEntry struct {
	ID         int64      `db:"id"`
	ActivityID int64      `db:"activity_id"`
	CacheKey   string     `db:"cache_key"`
	FilePath   string     `db:"file_path"`
	FileSize   int64      `db:"file_size"`
	CreatedAt  time.Time  `db:"created_at"`
	UpdatedAt  time.Time  `db:"updated_at"`
	ExpiresAt  *time.Time `db:"expires_at"` // nullable
	IsActive   bool       `db:"is_active"`
	Metadata   string     `db:"cache_metadata"`
}

// OAuthToken holds the provider tokens for one client device
type OAuthToken struct {
	DeviceID     string    `db:"device_id"`
	AccessToken  string    `db:"access_token"`
	RefreshToken string    `db:"refresh_token"`
	UpdateTime   time.Time `db:"update_time"`
}
