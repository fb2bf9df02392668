package strava

import (
	"strconv"
	"time"
)

// Activity is the slim view of a Strava run that the streak engine
// consumes. StartDate is epoch milliseconds UTC.
type Activity struct {
	ID                 string  `json:"id"`
	StartDate          int64   `json:"start_date"`
	Distance           float64 `json:"distance"`             // meters
	MovingTime         int64   `json:"moving_time"`          // sec
	ElapsedTime        int64   `json:"elapsed_time"`         // sec
	AverageSpeed       float64 `json:"average_speed"`        // m/s
	MaxSpeed           float64 `json:"max_speed"`            // m/s
	TotalElevationGain float64 `json:"total_elevation_gain"` // meters
}

// Athlete is the profile subset we keep for display.
type Athlete struct {
	ID        int64  `json:"id"`
	FirstName string `json:"firstname"`
	LastName  string `json:"lastname"`
	Sex       string `json:"sex"`
}

// apiActivity is the wire shape returned by /athlete/activities.
type apiActivity struct {
	ID                 int64   `json:"id"`
	SportType          string  `json:"sport_type"`
	StartDate          string  `json:"start_date"` // RFC3339, e.g. "2023-10-01T10:00:00Z"
	Distance           float64 `json:"distance"`
	MovingTime         int64   `json:"moving_time"`
	ElapsedTime        int64   `json:"elapsed_time"`
	AverageSpeed       float64 `json:"average_speed"`
	MaxSpeed           float64 `json:"max_speed"`
	TotalElevationGain float64 `json:"total_elevation_gain"`
}

// toActivity maps the API payload onto the slim model. A start date that
// fails to parse yields a zero StartDate; callers drop such records.
func (a apiActivity) toActivity() Activity {
	var startMillis int64
	if t, err := time.Parse(time.RFC3339, a.StartDate); err == nil {
		startMillis = t.UnixMilli()
	}
	return Activity{
		ID:                 strconv.FormatInt(a.ID, 10),
		StartDate:          startMillis,
		Distance:           a.Distance,
		MovingTime:         a.MovingTime,
		ElapsedTime:        a.ElapsedTime,
		AverageSpeed:       a.AverageSpeed,
		MaxSpeed:           a.MaxSpeed,
		TotalElevationGain: a.TotalElevationGain,
	}
}
