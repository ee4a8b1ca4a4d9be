// Package redis provides the redis-backed dedup store used when several
// engine nodes consume the same event stream. A SETNX claim decides which
// node starts the execution.
package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	keyPrefix  = "relay:dedup:"
	defaultTTL = 24 * time.Hour
)

// DedupStore implements persistence.DedupStore on redis.
type DedupStore struct {
	client *redis.Client
	ttl    time.Duration
}

// NewDedupStore connects to the given redis URL. Claims expire after ttl;
// zero means the default of 24h, long enough to outlive any redelivery
// window of the bus.
func NewDedupStore(redisURL string, ttl time.Duration) (*DedupStore, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse redis URL: %w", err)
	}

	if ttl <= 0 {
		ttl = defaultTTL
	}

	return &DedupStore{
		client: redis.NewClient(opts),
		ttl:    ttl,
	}, nil
}

func (s *DedupStore) Claim(ctx context.Context, eventID, workflowID string) (bool, error) {
	key := keyPrefix + eventID + ":" + workflowID

	claimed, err := s.client.SetNX(ctx, key, 1, s.ttl).Result()
	if err != nil {
		return false, fmt.Errorf("failed to claim dedup key %s: %w", key, err)
	}

	return claimed, nil
}

func (s *DedupStore) Close(_ context.Context) error {
	err := s.client.Close()
	if err != nil {
		return fmt.Errorf("failed to close redis client: %w", err)
	}

	return nil
}
