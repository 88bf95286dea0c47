// Package domain holds typed identifiers shared across packages. Distinct
// types keep sighting and check-in ids from being swapped at compile time.
package domain

import (
	"github.com/google/uuid"

	dErrors "rangerwatch/pkg/domain-errors"
)

type (
	// SightingID identifies a reported sighting.
	SightingID uuid.UUID

	// CheckinID identifies a corroborating check-in.
	CheckinID uuid.UUID
)

// NewSightingID returns a fresh random sighting id.
func NewSightingID() SightingID { return SightingID(uuid.New()) }

// NewCheckinID returns a fresh random check-in id.
func NewCheckinID() CheckinID { return CheckinID(uuid.New()) }

// ParseSightingID parses a sighting id from its string form. IDs must be
// valid, non-empty, non-nil UUIDs.
func ParseSightingID(s string) (SightingID, error) {
	u, err := parseUUID(s, "sighting_id")
	return SightingID(u), err
}

// ParseCheckinID parses a check-in id from its string form.
func ParseCheckinID(s string) (CheckinID, error) {
	u, err := parseUUID(s, "checkin_id")
	return CheckinID(u), err
}

func parseUUID(s, field string) (uuid.UUID, error) {
	if s == "" {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, field+" is required")
	}
	u, err := uuid.Parse(s)
	if err != nil {
		return uuid.Nil, dErrors.Wrap(err, dErrors.CodeInvalidInput, "invalid "+field)
	}
	if u == uuid.Nil {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, field+" must not be nil")
	}
	return u, nil
}

func (id SightingID) String() string { return uuid.UUID(id).String() }
func (id SightingID) IsNil() bool    { return uuid.UUID(id) == uuid.Nil }

// MarshalText lets typed ids serialize as their UUID string in JSON.
func (id SightingID) MarshalText() ([]byte, error) {
	return []byte(id.String()), nil
}

// UnmarshalText parses a typed id from its UUID string form.
func (id *SightingID) UnmarshalText(b []byte) error {
	parsed, err := ParseSightingID(string(b))
	if err != nil {
		return err
	}
	*id = parsed
	return nil
}

func (id CheckinID) String() string { return uuid.UUID(id).String() }
func (id CheckinID) IsNil() bool    { return uuid.UUID(id) == uuid.Nil }

func (id CheckinID) MarshalText() ([]byte, error) {
	return []byte(id.String()), nil
}

func (id *CheckinID) UnmarshalText(b []byte) error {
	parsed, err := ParseCheckinID(string(b))
	if err != nil {
		return err
	}
	*id = parsed
	return nil
}
