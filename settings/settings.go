// Package settings holds per-athlete display preferences. Defaults are
// applied once at the boundary via Normalize so the computational packages
// never have to reason about missing fields.
package settings

import (
	"errors"
	"fmt"
	"time"

	"github.com/cedarbaum/runstreak.app/units"
)

// ErrInvalidTimezone is returned when a settings timezone does not resolve
// to a known IANA zone.
var ErrInvalidTimezone = errors.New("invalid timezone")

// Settings are the user preferences threaded through streak and stat
// calculations.
type Settings struct {
	DistanceUnit string  `json:"distance_unit"` // "mi" or "km"
	Timezone     string  `json:"timezone"`      // IANA zone name
	MinDistance  float64 `json:"min_distance"`  // in DistanceUnit
}

// Default returns settings with all defaults applied: miles, the local
// system zone, no minimum distance.
func Default() Settings {
	return Settings{
		DistanceUnit: units.UnitMiles,
		Timezone:     time.Local.String(),
		MinDistance:  0,
	}
}

// Normalize fills in defaults for any unset field and rejects malformed
// values. Callers apply it once when settings enter the system.
func (s Settings) Normalize() (Settings, error) {
	if s.DistanceUnit == "" {
		s.DistanceUnit = units.UnitMiles
	}
	if s.DistanceUnit != units.UnitMiles && s.DistanceUnit != units.UnitKilometers {
		return s, fmt.Errorf("unknown distance unit %q", s.DistanceUnit)
	}
	if s.Timezone == "" {
		s.Timezone = time.Local.String()
	}
	if _, err := s.Location(); err != nil {
		return s, err
	}
	if s.MinDistance < 0 {
		return s, fmt.Errorf("minimum distance must not be negative, got %v", s.MinDistance)
	}
	return s, nil
}

// Location resolves the configured timezone.
func (s Settings) Location() (*time.Location, error) {
	loc, err := time.LoadLocation(s.Timezone)
	if err != nil {
		return nil, fmt.Errorf("%w: %q", ErrInvalidTimezone, s.Timezone)
	}
	return loc, nil
}

// MinDistanceMeters converts the configured minimum distance into meters.
func (s Settings) MinDistanceMeters() float64 {
	if s.DistanceUnit == units.UnitKilometers {
		return s.MinDistance * 1000
	}
	return s.MinDistance * units.MetersPerMile
}
