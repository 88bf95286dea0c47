// Package store defines the device registration counter port.
package store

import "context"

// Store hands out anonymous user numbers. Every call returns a number strictly
// greater than any previously returned, across all server instances sharing
// the backing store.
type Store interface {
	NextNumber(ctx context.Context) (int64, error)
}
