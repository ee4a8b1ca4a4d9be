package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/dukex/relay/pkg/persistence"
	"github.com/dukex/relay/pkg/persistence/file"
	"github.com/dukex/relay/pkg/persistence/postgresql"
	"github.com/dukex/relay/pkg/persistence/redis"
)

const dedupTTL = 24 * time.Hour

// NewPersistence selects the storage backend from the URL scheme:
// postgres:// for PostgreSQL, anything else is treated as a file path.
func NewPersistence(ctx context.Context, logger *slog.Logger, databaseURL string) persistence.Persistence {
	switch {
	case strings.HasPrefix(databaseURL, "postgres://"),
		strings.HasPrefix(databaseURL, "postgresql://"):
		p, err := postgresql.NewPersistence(ctx, logger, databaseURL)
		if err != nil {
			panic(fmt.Errorf("failed to connect to PostgreSQL: %w", err))
		}

		return p
	default:
		return file.NewPersistence(strings.TrimPrefix(databaseURL, "file://"))
	}
}

// NewDedupStore returns the Redis-backed claim store when a URL is given,
// otherwise an in-memory one. The in-memory store does not survive restarts
// and is per-process; use Redis whenever more than one dispatcher runs.
func NewDedupStore(redisURL string) persistence.DedupStore {
	if redisURL == "" {
		return persistence.NewMemoryDedupStore()
	}

	store, err := redis.NewDedupStore(redisURL, dedupTTL)
	if err != nil {
		panic(fmt.Errorf("failed to connect to Redis: %w", err))
	}

	return store
}
