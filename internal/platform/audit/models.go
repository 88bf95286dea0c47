// Package audit captures sighting lifecycle events for abuse forensics.
// Events are emitted from domain logic, buffered in-process, and drained by a
// worker into a store (Kafka in production, memory in tests and dev).
package audit

import (
	"context"
	"time"
)

// Action names a lifecycle event.
type Action string

const (
	ActionSightingCreated  Action = "sighting_created"
	ActionSightingRejected Action = "sighting_rejected"
	ActionSightingDeleted  Action = "sighting_deleted"
	ActionCheckinCreated   Action = "checkin_created"
	ActionCheckinRejected  Action = "checkin_rejected"
	ActionDeviceRegistered Action = "device_registered"
)

// Event is emitted from domain logic to capture key actions. Transport
// agnostic so stores and sinks can fan out.
type Event struct {
	Timestamp  time.Time `json:"timestamp"`
	Action     Action    `json:"action"`
	SightingID string    `json:"sighting_id,omitempty"`
	DeviceUUID string    `json:"device_uuid,omitempty"`
	RequestID  string    `json:"request_id,omitempty"`
	ClientIP   string    `json:"client_ip,omitempty"`
	UserAgent  string    `json:"user_agent,omitempty"`
	// Reason carries the rejection code for *_rejected actions.
	Reason string `json:"reason,omitempty"`
}

// Store persists audit events.
type Store interface {
	Append(ctx context.Context, event Event) error
}
