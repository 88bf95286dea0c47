// Package memory provides an in-process anonymous user counter for tests and
// single-instance dev servers.
package memory

import (
	"context"
	"sync/atomic"
)

type Store struct {
	counter atomic.Int64
}

func New() *Store {
	return &Store{}
}

func (s *Store) NextNumber(_ context.Context) (int64, error) {
	return s.counter.Add(1), nil
}
