// Package memory provides an in-memory audit store for tests and for dev
// servers running without Kafka.
package memory

import (
	"context"
	"sync"

	"rangerwatch/internal/platform/audit"
)

type Store struct {
	mu     sync.RWMutex
	events []audit.Event
}

var _ audit.Store = (*Store)(nil)

func New() *Store {
	return &Store{}
}

func (s *Store) Append(ctx context.Context, event audit.Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, event)
	return nil
}

// Events returns a snapshot of everything appended so far.
func (s *Store) Events() []audit.Event {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]audit.Event, len(s.events))
	copy(out, s.events)
	return out
}
