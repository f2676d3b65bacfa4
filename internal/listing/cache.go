package listing

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// CachedStore serves snapshots from Redis and falls back to Next on a miss.
// Cache errors never fail a lookup.
type CachedStore struct {
	Next   Store
	Client *redis.Client
	TTL    time.Duration
	Prefix string
	Logger zerolog.Logger
}

// Get implements Store.
func (c *CachedStore) Get(ctx context.Context, id uuid.UUID) (Snapshot, error) {
	if c.Next == nil {
		return Snapshot{}, errors.New("listing store not configured")
	}
	if c.Client == nil || c.TTL <= 0 {
		return c.Next.Get(ctx, id)
	}
	key := c.key(id)
	data, err := c.Client.Get(ctx, key).Bytes()
	switch {
	case err == nil:
		var snap Snapshot
		if err := json.Unmarshal(data, &snap); err == nil {
			return snap, nil
		}
		c.Logger.Warn().Str("key", key).Msg("discard malformed listing cache entry")
	case !errors.Is(err, redis.Nil):
		c.Logger.Warn().Err(err).Str("key", key).Msg("listing cache read failed")
	}

	snap, err := c.Next.Get(ctx, id)
	if err != nil {
		return Snapshot{}, err
	}
	if payload, err := json.Marshal(snap); err == nil {
		if err := c.Client.Set(ctx, key, payload, c.TTL).Err(); err != nil {
			c.Logger.Warn().Err(err).Str("key", key).Msg("listing cache write failed")
		}
	}
	return snap, nil
}

// Invalidate drops the cached snapshot so the next Get reads through.
func (c *CachedStore) Invalidate(ctx context.Context, id uuid.UUID) error {
	if c.Client == nil {
		return nil
	}
	return c.Client.Del(ctx, c.key(id)).Err()
}

func (c *CachedStore) key(id uuid.UUID) string {
	prefix := c.Prefix
	if prefix == "" {
		prefix = "listing:snapshot:"
	}
	return prefix + id.String()
}
