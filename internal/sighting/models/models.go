// Package models holds the sighting domain entities and the request/response
// shapes exchanged with clients.
package models

import (
	"time"

	id "rangerwatch/pkg/domain"
)

// Tag is the closed category enumeration for a sighting.
type Tag string

const (
	TagSighting Tag = "Sighting" // plain observation
	TagWarning  Tag = "Warning"  // caution
	TagTicket   Tag = "Ticket"   // enforcement action observed
)

// ValidTags lists every accepted tag, in display order.
var ValidTags = []Tag{TagSighting, TagWarning, TagTicket}

// IsValid reports whether the tag is one of the closed set.
func (t Tag) IsValid() bool {
	switch t {
	case TagSighting, TagWarning, TagTicket:
		return true
	}
	return false
}

// FilterRange is a named lookback window token for listing sightings.
type FilterRange string

const (
	Range24h FilterRange = "24h"
	Range2d  FilterRange = "2d"
	Range3d  FilterRange = "3d"
	Range7d  FilterRange = "7d"
	Range30d FilterRange = "30d"
	Range90d FilterRange = "90d"
)

// Sighting is an observation anchored to a point in time and space. CreatedAt
// is immutable once assigned server-side; IsDeleted soft-deletes the row
// without removing it from storage.
type Sighting struct {
	ID             id.SightingID `json:"id"`
	CreatedAt      time.Time     `json:"created_at"`
	Tag            Tag           `json:"tag"`
	Description    string        `json:"description,omitempty"`
	MediaURL       string        `json:"media_url,omitempty"`
	Lat            float64       `json:"lat"`
	Lng            float64       `json:"lng"`
	DeviceUUID     string        `json:"device_uuid"`
	AnonUserNumber int64         `json:"anon_user_number"`
	IsDeleted      bool          `json:"is_deleted"`
}

// Checkin is a corroborating attestation that a sighting is still observed.
// Immutable once written.
type Checkin struct {
	ID             id.CheckinID
	SightingID     id.SightingID
	CreatedAt      time.Time
	DeviceUUID     string
	AnonUserNumber int64
}

// CheckinAggregate is the derived view over a sighting's check-ins. Always
// recomputed from the Checkin rows, never incrementally maintained.
type CheckinAggregate struct {
	CheckinCount  int        `json:"checkin_count"`
	LastCheckinAt *time.Time `json:"last_checkin_at"`
}

// EnrichedSighting is a sighting joined with its check-in aggregates, as
// served to clients.
type EnrichedSighting struct {
	ID            id.SightingID `json:"id"`
	CreatedAt     time.Time     `json:"created_at"`
	Tag           Tag           `json:"tag"`
	Description   *string       `json:"description"`
	MediaURL      *string       `json:"media_url"`
	Lat           float64       `json:"lat"`
	Lng           float64       `json:"lng"`
	CheckinCount  int           `json:"checkin_count"`
	LastCheckinAt *time.Time    `json:"last_checkin_at"`
}

// NearbyMatch is a proximity-index hit: the nearest live sighting and its
// great-circle distance in meters.
type NearbyMatch struct {
	ID       id.SightingID
	Distance float64
}

// CreateSightingRequest is the submission candidate as received from a client.
type CreateSightingRequest struct {
	Tag            string  `json:"tag"`
	Description    string  `json:"description,omitempty"`
	Lat            float64 `json:"lat"`
	Lng            float64 `json:"lng"`
	DeviceUUID     string  `json:"device_uuid"`
	AnonUserNumber int64   `json:"anon_user_number"`
	MediaURL       string  `json:"media_url,omitempty"`
}

// CheckinRequest is a corroboration request against an existing sighting.
// AnonUserNumber is a pointer so an absent field is distinguishable from 0
// and can be rejected.
type CheckinRequest struct {
	SightingID     string `json:"sighting_id"`
	DeviceUUID     string `json:"device_uuid"`
	AnonUserNumber *int64 `json:"anon_user_number"`
}

// ListQuery selects the lookback window for ListActive. Recently takes
// precedence over Range and pins the window to the visibility window.
type ListQuery struct {
	Range    FilterRange
	Recently bool
}

// NearbyResult is the client-facing answer of the pre-submission nearby check.
type NearbyResult struct {
	Duplicate          bool           `json:"duplicate"`
	ExistingSightingID *id.SightingID `json:"existing_sighting_id,omitempty"`
}

// Enrich joins a sighting with its aggregate for serving. Zero-value aggregate
// yields checkin_count 0 and a null last_checkin_at.
func Enrich(s *Sighting, agg CheckinAggregate) EnrichedSighting {
	e := EnrichedSighting{
		ID:            s.ID,
		CreatedAt:     s.CreatedAt,
		Tag:           s.Tag,
		Lat:           s.Lat,
		Lng:           s.Lng,
		CheckinCount:  agg.CheckinCount,
		LastCheckinAt: agg.LastCheckinAt,
	}
	if s.Description != "" {
		e.Description = &s.Description
	}
	if s.MediaURL != "" {
		e.MediaURL = &s.MediaURL
	}
	return e
}
