package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	redisPingTimeout    = 5 * time.Second
	redisDialTimeout    = 5 * time.Second
	redisMinIdleConns   = 2
	errParseRedisURLFmt = "failed to parse redis url: %w"
	errPingRedisFmt     = "failed to ping redis: %w"
)

// NewRedisClient connects to the Redis instance at rawURL and verifies it
// answers a PING.
func NewRedisClient(ctx context.Context, rawURL string) (*redis.Client, error) {
	opts, err := redis.ParseURL(rawURL)
	if err != nil {
		return nil, fmt.Errorf(errParseRedisURLFmt, err)
	}
	opts.MinIdleConns = redisMinIdleConns
	opts.DialTimeout = redisDialTimeout

	client := redis.NewClient(opts)

	pingCtx, cancel := context.WithTimeout(ctx, redisPingTimeout)
	defer cancel()

	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf(errPingRedisFmt, err)
	}

	return client, nil
}
