package updates

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// DefaultRedisKey is the set holding ids of users with pending news.
const DefaultRedisKey = "messageapp:updates:pending"

// RedisTracker keeps flags in a Redis set so several service instances share them.
type RedisTracker struct {
	client *redis.Client
	key    string
}

func NewRedisTracker(client *redis.Client, key string) *RedisTracker {
	if key == "" {
		key = DefaultRedisKey
	}
	return &RedisTracker{client: client, key: key}
}

func (t *RedisTracker) Mark(ctx context.Context, userIDs ...string) error {
	if len(userIDs) == 0 {
		return nil
	}
	members := make([]any, len(userIDs))
	for i, id := range userIDs {
		members[i] = id
	}
	if err := t.client.SAdd(ctx, t.key, members...).Err(); err != nil {
		return fmt.Errorf("mark updates: %w", err)
	}
	return nil
}

// Consume relies on SREM returning the number of members removed.
func (t *RedisTracker) Consume(ctx context.Context, userID string) (bool, error) {
	removed, err := t.client.SRem(ctx, t.key, userID).Result()
	if err != nil {
		return false, fmt.Errorf("consume updates: %w", err)
	}
	return removed > 0, nil
}
