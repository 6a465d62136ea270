package db

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/go-redis/redis/v8"
)

// RedisClient is a redis connection whose keys live under a shared prefix so
// several dashboards can use one server.
type RedisClient struct {
	*redis.Client
	prefix string
}

func NewRedisConnection(redisURL, keyPrefix string) (*RedisClient, error) {
	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse Redis URL: %w", err)
	}

	client := redis.NewClient(opt)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to ping Redis: %w", err)
	}

	return &RedisClient{Client: client, prefix: keyPrefix}, nil
}

// Key joins parts with ':' under the client prefix
func (r *RedisClient) Key(parts ...string) string {
	return r.prefix + strings.Join(parts, ":")
}

func (r *RedisClient) HealthCheck(ctx context.Context) error {
	return r.Ping(ctx).Err()
}
