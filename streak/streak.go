// Package streak is the computational core of runstreak: it partitions a
// run history into maximal runs of consecutive calendar days, derives
// per-streak statistics, buckets a streak's activities into calendar
// windows for charting, and ranks streaks for leaderboards.
//
// Everything here is a pure function of its inputs. The evaluation instant
// is always an explicit parameter, never the system clock.
package streak

import (
	"fmt"
	"time"

	"github.com/cedarbaum/runstreak.app/settings"
	"github.com/cedarbaum/runstreak.app/strava"
	"github.com/cedarbaum/runstreak.app/units"
)

// Streak is a maximal run of consecutive calendar days, each with at least
// one qualifying activity. Streaks are recomputed on every call and carry
// no identity across recomputations.
type Streak struct {
	// Activities in ascending start-date order. Never empty.
	Activities []strava.Activity `json:"activities"`

	// StreakLength counts the distinct consecutive calendar days spanned,
	// not the activity count: two runs on one day count once.
	StreakLength int `json:"streakLength"`

	// StartTime and EndTime are the start-of-day epoch millis of the
	// earliest and latest activity days, in the evaluation timezone.
	StartTime int64 `json:"startTime"`
	EndTime   int64 `json:"endTime"`
}

// TotalDistance sums activity distances in meters.
func (s *Streak) TotalDistance() float64 {
	var total float64
	for _, a := range s.Activities {
		total += a.Distance
	}
	return total
}

// Calculate partitions activities into day-over-day streaks.
//
// Activities are assumed ascending by start date. Any activity shorter
// than minDistanceMeters is ignored. Only streaks strictly longer than
// minStreakLength days are returned, so the conventional call with
// minStreakLength=1 excludes single-day streaks. Returned streaks are
// ordered most recent first.
func Calculate(now time.Time, tz string, activities []strava.Activity, minStreakLength int, minDistanceMeters float64) ([]Streak, error) {
	loc, err := time.LoadLocation(tz)
	if err != nil {
		return []Streak{}, fmt.Errorf("%w: %q", settings.ErrInvalidTimezone, tz)
	}

	qualifying := make([]strava.Activity, 0, len(activities))
	for _, a := range activities {
		if a.Distance >= minDistanceMeters {
			qualifying = append(qualifying, a)
		}
	}

	var streaks []Streak
	var current []strava.Activity // newest first while scanning
	days := 0

	closeOut := func() {
		if len(current) == 0 {
			return
		}
		asc := make([]strava.Activity, len(current))
		for i, a := range current {
			asc[len(current)-1-i] = a
		}
		streaks = append(streaks, Streak{
			Activities:   asc,
			StreakLength: days,
			StartTime:    dayStartMillis(asc[0].StartDate, loc),
			EndTime:      dayStartMillis(asc[len(asc)-1].StartDate, loc),
		})
		current = nil
		days = 0
	}

	// Scan backward from the most recent activity, tracking the calendar
	// day anchoring the current streak.
	refDay := units.StartOfDay(now, loc)
	for i := len(qualifying) - 1; i >= 0; i-- {
		a := qualifying[i]
		day := units.StartOfDay(units.FromMillis(a.StartDate, loc), loc)

		switch units.DaysBetween(refDay, day, loc) {
		case 0:
			// Same day as the anchor: the day is only counted once.
			if len(current) == 0 {
				days = 1
			}
			current = append(current, a)
		case 1:
			// Extends the streak back by exactly one day.
			if len(current) == 0 {
				days = 1
			} else {
				days++
			}
			current = append(current, a)
		default:
			// Gap of two or more days breaks the streak.
			closeOut()
			current = append(current, a)
			days = 1
		}

		refDay = day
	}
	closeOut()

	out := make([]Streak, 0, len(streaks))
	for _, s := range streaks {
		if s.StreakLength > minStreakLength {
			out = append(out, s)
		}
	}
	return out, nil
}

// Current returns the streak still alive as of now: the one whose last
// activity day is today or yesterday. Nil when no streak is current.
func Current(streaks []Streak, now time.Time, tz string) (*Streak, error) {
	loc, err := time.LoadLocation(tz)
	if err != nil {
		return nil, fmt.Errorf("%w: %q", settings.ErrInvalidTimezone, tz)
	}

	today := units.StartOfDay(now, loc)
	for i := range streaks {
		end := units.FromMillis(streaks[i].EndTime, loc)
		if units.DaysBetween(today, end, loc) < 2 {
			return &streaks[i], nil
		}
	}
	return nil, nil
}

func dayStartMillis(ms int64, loc *time.Location) int64 {
	return units.ToMillis(units.StartOfDay(units.FromMillis(ms, loc), loc))
}
