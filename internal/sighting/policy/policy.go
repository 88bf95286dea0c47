// Package policy holds the pure time-window and geospatial rules of the
// sighting lifecycle. Every predicate takes an explicit "now" so evaluation is
// deterministic under a frozen clock; nothing here reads an ambient clock or
// touches storage.
package policy

import (
	"time"

	"rangerwatch/internal/sighting/models"
)

const (
	// VisibilityWindow bounds how long a sighting is publicly visible and
	// matchable as a duplicate, measured from its creation timestamp.
	VisibilityWindow = 90 * time.Minute

	// CheckinWindow bounds how long check-ins stay open. Check-ins close
	// exactly when visibility ends.
	CheckinWindow = VisibilityWindow

	// CheckinCooldown is the minimum gap between two check-ins from the same
	// device on the same sighting.
	CheckinCooldown = 10 * time.Minute

	// RateLimitWindow is the rolling window for the per-device submission cap.
	RateLimitWindow = time.Hour

	// MaxSightingsPerWindow is the per-device submission cap within RateLimitWindow.
	MaxSightingsPerWindow = 3

	// DuplicateRadiusMeters is the great-circle radius within which a live
	// sighting makes a new submission a duplicate.
	DuplicateRadiusMeters = 25.0

	// MaxListResults bounds a single ListActive response.
	MaxListResults = 500

	// MaxDescriptionLength bounds the free-text note, in runes.
	MaxDescriptionLength = 500
)

// rangeLookback maps named range tokens to lookback durations.
var rangeLookback = map[models.FilterRange]time.Duration{
	models.Range24h: 24 * time.Hour,
	models.Range2d:  2 * 24 * time.Hour,
	models.Range3d:  3 * 24 * time.Hour,
	models.Range7d:  7 * 24 * time.Hour,
	models.Range30d: 30 * 24 * time.Hour,
	models.Range90d: 90 * 24 * time.Hour,
}

// IsVisible reports whether a sighting created at createdAt is still inside
// the public visibility window at now.
func IsVisible(createdAt, now time.Time) bool {
	return now.Sub(createdAt) <= VisibilityWindow
}

// IsCheckinOpen reports whether check-ins are still accepted for a sighting
// created at createdAt. Same rule as visibility.
func IsCheckinOpen(createdAt, now time.Time) bool {
	return now.Sub(createdAt) <= CheckinWindow
}

// InCooldown reports whether a device's most recent check-in on a sighting,
// at lastCheckinAt, still blocks another check-in at now. A zero
// lastCheckinAt means the device never checked in.
func InCooldown(lastCheckinAt, now time.Time) bool {
	if lastCheckinAt.IsZero() {
		return false
	}
	return now.Sub(lastCheckinAt) < CheckinCooldown
}

// Lookback resolves a list query to its lookback duration. Recently pins the
// window to the visibility window regardless of the named range; an unknown
// range token falls back to 24h rather than failing the read.
func Lookback(q models.ListQuery) time.Duration {
	if q.Recently {
		return VisibilityWindow
	}
	if d, ok := rangeLookback[q.Range]; ok {
		return d
	}
	return rangeLookback[models.Range24h]
}

// WithinRange reports whether ts falls inside the query's lookback window
// ending at now.
func WithinRange(q models.ListQuery, ts, now time.Time) bool {
	return !ts.Before(now.Add(-Lookback(q)))
}
