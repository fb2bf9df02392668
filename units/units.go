// Package units converts between the metric quantities Strava reports
// (meters, m/s, seconds) and the display units runners actually think in
// (miles or kilometers, min/mi or min/km pace), and normalizes instants to
// calendar boundaries in a given timezone.
package units

import (
	"fmt"
	"math"
	"time"
)

// Distance unit identifiers as stored in user settings.
const (
	UnitMiles      = "mi"
	UnitKilometers = "km"
)

const (
	// MetersPerMile is used when converting a user-entered minimum
	// distance back into meters.
	MetersPerMile = 1609.34

	metersToMiles = 0.000621371
	metersToKm    = 0.001

	// Minutes needed to cover one unit of distance at 1 m/s.
	paceConstMile = 26.8224
	paceConstKm   = 16.666667
)

// Distance converts meters into the given display unit.
func Distance(meters float64, unit string) float64 {
	if unit == UnitKilometers {
		return meters * metersToKm
	}
	return meters * metersToMiles
}

// PaceMinutes converts an average speed in m/s into minutes per unit of
// distance. A non-positive speed yields +Inf pace, which callers are
// expected to have filtered out before display.
func PaceMinutes(metersPerSecond float64, unit string) float64 {
	c := paceConstMile
	if unit == UnitKilometers {
		c = paceConstKm
	}
	return c / metersPerSecond
}

// PaceUnit returns the pace unit label for a distance unit, e.g. "min/mi".
func PaceUnit(unit string) string {
	if unit == UnitKilometers {
		return "min/km"
	}
	return "min/mi"
}

// FormatMinSec renders a minute quantity as mm:ss. Minutes are not capped
// at 60, so 75.5 minutes renders as "75:30".
func FormatMinSec(minutes float64) string {
	total := int64(math.Round(minutes * 60))
	if total < 0 {
		total = 0
	}
	return fmt.Sprintf("%02d:%02d", total/60, total%60)
}

// FormatHMS renders a second quantity as hh:mm:ss.
func FormatHMS(seconds float64) string {
	total := int64(math.Round(seconds))
	if total < 0 {
		total = 0
	}
	h := total / 3600
	m := (total % 3600) / 60
	s := total % 60
	return fmt.Sprintf("%02d:%02d:%02d", h, m, s)
}

// FromMillis converts epoch milliseconds to a time in loc.
func FromMillis(ms int64, loc *time.Location) time.Time {
	return time.UnixMilli(ms).In(loc)
}

// ToMillis converts a time to epoch milliseconds.
func ToMillis(t time.Time) int64 {
	return t.UnixMilli()
}

// StartOfDay returns midnight of t's calendar day in loc.
func StartOfDay(t time.Time, loc *time.Location) time.Time {
	t = t.In(loc)
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, loc)
}

// StartOfWeek returns midnight of the Monday beginning t's ISO week.
func StartOfWeek(t time.Time, loc *time.Location) time.Time {
	d := StartOfDay(t, loc)
	offset := (int(d.Weekday()) + 6) % 7 // Monday=0 ... Sunday=6
	return d.AddDate(0, 0, -offset)
}

// StartOfMonth returns midnight of the first day of t's month.
func StartOfMonth(t time.Time, loc *time.Location) time.Time {
	t = t.In(loc)
	return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, loc)
}

// StartOfYear returns midnight of January 1st of t's year.
func StartOfYear(t time.Time, loc *time.Location) time.Time {
	t = t.In(loc)
	return time.Date(t.Year(), time.January, 1, 0, 0, 0, 0, loc)
}

// DaysBetween returns the number of calendar days from b's day to a's day
// in loc. Positive when a is later. Rounding keeps DST-shortened or
// -lengthened days counting as exactly one day.
func DaysBetween(a, b time.Time, loc *time.Location) int {
	da := StartOfDay(a, loc)
	db := StartOfDay(b, loc)
	return int(math.Round(da.Sub(db).Hours() / 24))
}

// FormatDate renders epoch milliseconds as a short calendar date in loc,
// e.g. "1/2/2006".
func FormatDate(ms int64, loc *time.Location) string {
	return FromMillis(ms, loc).Format("1/2/2006")
}
