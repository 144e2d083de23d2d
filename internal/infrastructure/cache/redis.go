// Package cache opens the Redis client shared by health stats, the analytics
// cache and the change relay.
package cache

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

// Open returns nil without error when url is empty; Redis-backed features
// then degrade to no-ops.
func Open(url string) (*redis.Client, error) {
	if url == "" {
		return nil, nil
	}
	opt, err := redis.ParseURL(url)
	if err != nil {
		return nil, err
	}
	return redis.NewClient(opt), nil
}

// Ping checks the connection with a short timeout.
func Ping(ctx context.Context, rdb *redis.Client) error {
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	return rdb.Ping(ctx).Err()
}
