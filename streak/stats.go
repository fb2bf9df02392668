package streak

import (
	"errors"
	"fmt"
	"math"
	"strconv"

	"github.com/cedarbaum/runstreak.app/settings"
	"github.com/cedarbaum/runstreak.app/units"
)

// ErrNoActivities is returned when a statistic is computed over a streak
// with an empty activity list. The calculator never produces such streaks,
// but a caller constructing one by hand must not get NaN back.
var ErrNoActivities = errors.New("streak has no activities")

// Statistic is a named, unit-aware metric over a streak. Calc returns the
// raw numeric value; Format renders it for display.
type Statistic struct {
	Name   string
	Calc   func(s *Streak, set settings.Settings) (float64, error)
	Format func(s *Streak, set settings.Settings) (string, error)
	Unit   func(set settings.Settings) string
}

// StreakStats are statistics over the streak itself.
var StreakStats = []Statistic{
	{
		Name: "Streak length:",
		Calc: func(s *Streak, _ settings.Settings) (float64, error) {
			return float64(s.StreakLength), nil
		},
		Format: func(s *Streak, _ settings.Settings) (string, error) {
			return strconv.Itoa(s.StreakLength), nil
		},
		Unit: func(_ settings.Settings) string { return "" },
	},
}

// ActivityStats are statistics aggregated over a streak's activities.
var ActivityStats = []Statistic{
	{
		Name: "Avg. distance:",
		Calc: func(s *Streak, set settings.Settings) (float64, error) {
			if len(s.Activities) == 0 {
				return 0, ErrNoActivities
			}
			d := units.Distance(s.TotalDistance(), set.DistanceUnit)
			return round2(d / float64(len(s.Activities))), nil
		},
		Format: func(s *Streak, set settings.Settings) (string, error) {
			if len(s.Activities) == 0 {
				return "", ErrNoActivities
			}
			d := units.Distance(s.TotalDistance(), set.DistanceUnit)
			return fmt.Sprintf("%.2f", d/float64(len(s.Activities))), nil
		},
		Unit: distanceUnit,
	},
	{
		Name: "Avg. speed:",
		Calc: func(s *Streak, set settings.Settings) (float64, error) {
			minutes, err := avgPaceMinutes(s, set)
			if err != nil {
				return 0, err
			}
			return round2(minutes), nil
		},
		Format: func(s *Streak, set settings.Settings) (string, error) {
			minutes, err := avgPaceMinutes(s, set)
			if err != nil {
				return "", err
			}
			return units.FormatMinSec(minutes), nil
		},
		Unit: func(set settings.Settings) string {
			return units.PaceUnit(set.DistanceUnit)
		},
	},
	{
		Name: "Avg. moving time:",
		Calc: func(s *Streak, set settings.Settings) (float64, error) {
			seconds, err := avgMovingSeconds(s)
			if err != nil {
				return 0, err
			}
			return round2(seconds / 60), nil
		},
		Format: func(s *Streak, set settings.Settings) (string, error) {
			seconds, err := avgMovingSeconds(s)
			if err != nil {
				return "", err
			}
			return units.FormatHMS(seconds), nil
		},
		Unit: func(_ settings.Settings) string { return "" },
	},
	{
		Name: "Total distance:",
		Calc: func(s *Streak, set settings.Settings) (float64, error) {
			if len(s.Activities) == 0 {
				return 0, ErrNoActivities
			}
			return round2(units.Distance(s.TotalDistance(), set.DistanceUnit)), nil
		},
		Format: func(s *Streak, set settings.Settings) (string, error) {
			if len(s.Activities) == 0 {
				return "", ErrNoActivities
			}
			return fmt.Sprintf("%.2f", units.Distance(s.TotalDistance(), set.DistanceUnit)), nil
		},
		Unit: distanceUnit,
	},
}

// AllStats is the table layout used by the streaks leaderboard: the streak
// statistic followed by the activity statistics.
func AllStats() []Statistic {
	out := make([]Statistic, 0, len(StreakStats)+len(ActivityStats))
	out = append(out, StreakStats...)
	out = append(out, ActivityStats...)
	return out
}

// StatByName finds a statistic in the full catalog.
func StatByName(name string) (Statistic, bool) {
	for _, st := range AllStats() {
		if st.Name == name {
			return st, true
		}
	}
	return Statistic{}, false
}

func avgPaceMinutes(s *Streak, set settings.Settings) (float64, error) {
	if len(s.Activities) == 0 {
		return 0, ErrNoActivities
	}
	var totalSpeed float64
	for _, a := range s.Activities {
		totalSpeed += a.AverageSpeed
	}
	avgSpeed := totalSpeed / float64(len(s.Activities))
	return units.PaceMinutes(avgSpeed, set.DistanceUnit), nil
}

func avgMovingSeconds(s *Streak) (float64, error) {
	if len(s.Activities) == 0 {
		return 0, ErrNoActivities
	}
	var total int64
	for _, a := range s.Activities {
		total += a.MovingTime
	}
	return float64(total) / float64(len(s.Activities)), nil
}

func distanceUnit(set settings.Settings) string {
	return set.DistanceUnit
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
