package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/go-redis/redis/v8"

	"github.com/Jaiharishan/Split-Generator-Backend/internal/calculator"
)

// Redis is a shared summary cache. Redis failures are logged and treated
// as misses so a cache outage never fails a request.
type Redis struct {
	client *redis.Client
	ttl    time.Duration
	logger *slog.Logger
}

// NewRedisFromURL connects to Redis and checks the connection.
func NewRedisFromURL(ctx context.Context, url string, ttl time.Duration, logger *slog.Logger) (*Redis, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("invalid redis URL: %w", err)
	}
	opts.DialTimeout = 5 * time.Second
	opts.ReadTimeout = 3 * time.Second
	opts.WriteTimeout = 3 * time.Second

	client := redis.NewClient(opts)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	return NewRedis(client, ttl, logger), nil
}

// NewRedis wraps an existing client.
func NewRedis(client *redis.Client, ttl time.Duration, logger *slog.Logger) *Redis {
	if logger == nil {
		logger = slog.Default()
	}
	return &Redis{client: client, ttl: ttl, logger: logger}
}

// Get implements SummaryCache.
func (r *Redis) Get(ctx context.Context, billID string, revision int64) (*calculator.Summary, bool) {
	key := Key(billID, revision)

	data, err := r.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false
	}
	if err != nil {
		r.logger.Warn("Summary cache read failed", "key", key, "error", err)
		return nil, false
	}

	var summary calculator.Summary
	if err := json.Unmarshal(data, &summary); err != nil {
		r.logger.Warn("Dropping corrupt summary cache entry", "key", key, "error", err)
		r.client.Del(ctx, key)
		return nil, false
	}
	return &summary, true
}

// Set implements SummaryCache.
func (r *Redis) Set(ctx context.Context, summary *calculator.Summary) {
	key := Key(summary.BillID, summary.Revision)

	data, err := json.Marshal(summary)
	if err != nil {
		r.logger.Error("Failed to encode summary for cache", "key", key, "error", err)
		return
	}
	if err := r.client.Set(ctx, key, data, r.ttl).Err(); err != nil {
		r.logger.Warn("Summary cache write failed", "key", key, "error", err)
	}
}

// Close closes the Redis client.
func (r *Redis) Close() error {
	return r.client.Close()
}
