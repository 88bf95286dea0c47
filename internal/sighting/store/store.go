// Package store defines the persistence port of the sighting domain and
// provides memory and postgres implementations. Stores report infrastructure
// facts through pkg/sentinel errors; the service layer owns translation into
// coded domain errors.
package store

import (
	"context"
	"time"

	"rangerwatch/internal/sighting/models"
	id "rangerwatch/pkg/domain"
)

// Store is the single authoritative data store behind the rules engine. All
// mutation goes through atomic single-row inserts/updates; filtered scans and
// the nearest-match query run server-side over the full active set, never on a
// client-side page.
type Store interface {
	// InsertSighting persists a new sighting. The caller assigns id and
	// creation timestamp; both are immutable afterwards.
	InsertSighting(ctx context.Context, s *models.Sighting) error

	// GetSighting returns a non-deleted sighting, or sentinel.ErrNotFound.
	GetSighting(ctx context.Context, sightingID id.SightingID) (*models.Sighting, error)

	// GetAnySighting returns a sighting regardless of its deletion flag, or
	// sentinel.ErrNotFound. Serves the administrative direct lookup.
	GetAnySighting(ctx context.Context, sightingID id.SightingID) (*models.Sighting, error)

	// SoftDeleteSighting flips the deletion flag on a live sighting. Returns
	// sentinel.ErrNotFound when the sighting is missing or already deleted.
	SoftDeleteSighting(ctx context.Context, sightingID id.SightingID) error

	// CountRecentByDevice counts non-deleted sightings a device created at or
	// after since. Feeds the submission rate limit.
	CountRecentByDevice(ctx context.Context, deviceUUID string, since time.Time) (int, error)

	// FindNearbyActive returns the nearest non-deleted sighting within
	// radiusMeters of the coordinate created at or after since, or nil when
	// none qualifies.
	FindNearbyActive(ctx context.Context, lat, lng, radiusMeters float64, since time.Time) (*models.NearbyMatch, error)

	// ListActive returns non-deleted sightings created at or after since,
	// newest first, at most limit rows.
	ListActive(ctx context.Context, since time.Time, limit int) ([]*models.Sighting, error)

	// InsertCheckin persists a new check-in. Check-ins are immutable once
	// written.
	InsertCheckin(ctx context.Context, c *models.Checkin) error

	// LastCheckinByDevice returns the timestamp of the device's most recent
	// check-in on the sighting, or the zero time when there is none. Feeds
	// the cooldown rule.
	LastCheckinByDevice(ctx context.Context, sightingID id.SightingID, deviceUUID string) (time.Time, error)

	// AggregateCheckins recomputes {count, last timestamp} over all check-ins
	// of one sighting.
	AggregateCheckins(ctx context.Context, sightingID id.SightingID) (models.CheckinAggregate, error)

	// AggregateCheckinsMany recomputes aggregates for a set of sightings in
	// one pass. Sightings absent from the result have no check-ins.
	AggregateCheckinsMany(ctx context.Context, sightingIDs []id.SightingID) (map[id.SightingID]models.CheckinAggregate, error)
}
