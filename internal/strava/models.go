package strava

import "time"

// Activity is the provider's activity document, trimmed to the fields the
// analytics consume.
type Activity struct {
	ID                 int64      `json:"id"`
	Athlete            AthleteRef `json:"athlete"`
	Name               string     `json:"name"`
	Type               string     `json:"type"`
	SportType          string     `json:"sport_type"`
	StartDate          time.Time  `json:"start_date"`
	Distance           float64    `json:"distance"`             // meters
	MovingTime         int        `json:"moving_time"`          // seconds
	ElapsedTime        int        `json:"elapsed_time"`         // seconds
	TotalElevationGain float64    `json:"total_elevation_gain"` // meters
	AverageWatts       float64    `json:"average_watts"`
	DeviceWatts        bool       `json:"device_watts"`
	ExternalID         string     `json:"external_id"`
}

// AthleteRef is the minimal athlete object embedded in an activity.
type AthleteRef struct {
	ID int64 `json:"id"`
}

// Athlete is the provider's athlete profile. FTP and Weight are the fields
// adopted when the local profile leaves them unset; a null in the payload
// decodes to zero, which downstream code treats as absent.
type Athlete struct {
	ID     int64   `json:"id"`
	FTP    int     `json:"ftp"`
	Weight float64 `json:"weight"` // kg
}

// StreamData is one typed stream in a key_by_type response.
type StreamData[T any] struct {
	Data         []T    `json:"data"`
	SeriesType   string `json:"series_type"`
	OriginalSize int    `json:"original_size"`
	Resolution   string `json:"resolution"`
}

// StreamSet is the key_by_type=true streams response. Numeric streams
// decode as float64 so embedded nulls become zeros instead of errors.
type StreamSet struct {
	Time           *StreamData[int]        `json:"time"`
	Distance       *StreamData[float64]    `json:"distance"`
	Latlng         *StreamData[[2]float64] `json:"latlng"`
	Altitude       *StreamData[float64]    `json:"altitude"`
	VelocitySmooth *StreamData[float64]    `json:"velocity_smooth"`
	Heartrate      *StreamData[float64]    `json:"heartrate"`
	Cadence        *StreamData[float64]    `json:"cadence"`
	Watts          *StreamData[float64]    `json:"watts"`
	Temp           *StreamData[float64]    `json:"temp"`
	Moving         *StreamData[bool]       `json:"moving"`
	GradeSmooth    *StreamData[float64]    `json:"grade_smooth"`
}

// Len returns the sample count, 0 when the time stream is absent.
func (s *StreamSet) Len() int {
	if s == nil || s.Time == nil {
		return 0
	}
	return len(s.Time.Data)
}

// HasWatts reports whether the set carries any power data.
func (s *StreamSet) HasWatts() bool {
	return s != nil && s.Watts != nil && len(s.Watts.Data) > 0
}
