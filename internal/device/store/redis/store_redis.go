// Package redis provides the Redis-backed anonymous user counter. This is the
// production implementation: INCR gives a strictly monotonic sequence shared
// by every server instance.
package redis

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
)

const counterKey = "rangerwatch:anon_user_counter"

type Store struct {
	client *redis.Client
}

func New(client *redis.Client) *Store {
	return &Store{client: client}
}

func (s *Store) NextNumber(ctx context.Context) (int64, error) {
	n, err := s.client.Incr(ctx, counterKey).Result()
	if err != nil {
		return 0, fmt.Errorf("incr anon counter: %w", err)
	}
	return n, nil
}
