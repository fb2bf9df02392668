package streak

import (
	"fmt"
	"sort"
	"time"

	"github.com/cedarbaum/runstreak.app/settings"
	"github.com/cedarbaum/runstreak.app/strava"
	"github.com/cedarbaum/runstreak.app/units"
)

// Granularity is a calendar bucket size for time-series aggregation.
type Granularity int

const (
	Day Granularity = iota
	Week
	Month
	Year
)

// String implements fmt.Stringer.
func (g Granularity) String() string {
	switch g {
	case Day:
		return "day"
	case Week:
		return "week"
	case Month:
		return "month"
	case Year:
		return "year"
	}
	return fmt.Sprintf("Granularity(%d)", int(g))
}

// ParseGranularity parses the wire form produced by String.
func ParseGranularity(s string) (Granularity, error) {
	switch s {
	case "day":
		return Day, nil
	case "week":
		return Week, nil
	case "month":
		return Month, nil
	case "year":
		return Year, nil
	}
	return 0, fmt.Errorf("unknown bucket granularity %q", s)
}

// DefaultGranularity picks the chart default for a streak: daily points for
// short streaks, weekly beyond a month.
func DefaultGranularity(s *Streak) Granularity {
	if s.StreakLength < 30 {
		return Day
	}
	return Week
}

// Bucket is one calendar window of a streak's activities.
type Bucket struct {
	// Start is the bucket's start-of-period instant, epoch millis.
	Start int64 `json:"bucketStart"`
	Label string `json:"label"`
	// Activities in input (ascending start-date) order.
	Activities []strava.Activity `json:"activities"`
}

// GroupActivitiesByBucket assigns each activity to the calendar bucket
// containing its start date in the configured timezone. Only buckets with
// at least one activity appear, sorted ascending by bucket start.
func GroupActivitiesByBucket(activities []strava.Activity, g Granularity, set settings.Settings) ([]Bucket, error) {
	loc, err := set.Location()
	if err != nil {
		return nil, err
	}

	type bucketKey struct {
		start int64
		label string
	}
	index := make(map[bucketKey]int)
	var buckets []Bucket

	for _, a := range activities {
		start, label := bucketFor(units.FromMillis(a.StartDate, loc), g, loc)
		k := bucketKey{start: start, label: label}
		if i, ok := index[k]; ok {
			buckets[i].Activities = append(buckets[i].Activities, a)
			continue
		}
		index[k] = len(buckets)
		buckets = append(buckets, Bucket{
			Start:      start,
			Label:      label,
			Activities: []strava.Activity{a},
		})
	}

	// Numeric sort on the start instant: labels like "12/2022" and
	// "1/2023" would misorder lexicographically.
	sort.Slice(buckets, func(i, j int) bool {
		return buckets[i].Start < buckets[j].Start
	})
	return buckets, nil
}

func bucketFor(t time.Time, g Granularity, loc *time.Location) (int64, string) {
	switch g {
	case Week:
		start := units.StartOfWeek(t, loc)
		ms := units.ToMillis(start)
		return ms, units.FormatDate(ms, loc)
	case Month:
		start := units.StartOfMonth(t, loc)
		return units.ToMillis(start), start.Format("01/2006")
	case Year:
		start := units.StartOfYear(t, loc)
		return units.ToMillis(start), start.Format("2006")
	default:
		start := units.StartOfDay(t, loc)
		ms := units.ToMillis(start)
		return ms, units.FormatDate(ms, loc)
	}
}

// TimeseriesPoint is one charted value.
type TimeseriesPoint struct {
	Start int64   `json:"bucketStart"`
	Label string  `json:"label"`
	Value float64 `json:"value"`
}

// StatTimeseries evaluates a statistic over each calendar bucket of a
// streak, treating the bucket's activities as a sub-streak spanning the
// days between its first and last activity.
func StatTimeseries(stat Statistic, s *Streak, g Granularity, set settings.Settings) ([]TimeseriesPoint, error) {
	loc, err := set.Location()
	if err != nil {
		return nil, err
	}

	buckets, err := GroupActivitiesByBucket(s.Activities, g, set)
	if err != nil {
		return nil, err
	}

	points := make([]TimeseriesPoint, 0, len(buckets))
	for _, b := range buckets {
		first := units.FromMillis(b.Activities[0].StartDate, loc)
		last := units.FromMillis(b.Activities[len(b.Activities)-1].StartDate, loc)

		sub := Streak{
			Activities:   b.Activities,
			StreakLength: units.DaysBetween(last, first, loc) + 1,
			StartTime:    units.ToMillis(units.StartOfDay(first, loc)),
			EndTime:      units.ToMillis(units.StartOfDay(last, loc)),
		}
		v, err := stat.Calc(&sub, set)
		if err != nil {
			return nil, err
		}
		points = append(points, TimeseriesPoint{Start: b.Start, Label: b.Label, Value: v})
	}
	return points, nil
}
