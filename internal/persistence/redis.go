package persistence

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/fleetops/workorder-service/internal/config"
)

// ErrRedisNotConfigured is returned by every operation on a nil client.
var ErrRedisNotConfigured = errors.New("redis client not configured")

// Redis wraps the go-redis client.
type Redis struct {
	Client *redis.Client
}

// NewRedis connects to Redis using the provided configuration.
func NewRedis(cfg config.RedisConfig, logger *zap.Logger) *Redis {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	if err := client.Ping(context.Background()).Err(); err != nil {
		logger.Warn("unable to reach redis", zap.Error(err))
	} else {
		logger.Info("connected to redis")
	}

	return &Redis{Client: client}
}

// Close closes the client.
func (r *Redis) Close() {
	if r != nil && r.Client != nil {
		_ = r.Client.Close()
	}
}

// Ping verifies Redis connectivity.
func (r *Redis) Ping(ctx context.Context) error {
	if r == nil || r.Client == nil {
		return ErrRedisNotConfigured
	}
	return r.Client.Ping(ctx).Err()
}

// SetNX stores value under key only when the key is absent.
func (r *Redis) SetNX(ctx context.Context, key string, value any, ttl time.Duration) (bool, error) {
	if r == nil || r.Client == nil {
		return false, ErrRedisNotConfigured
	}
	return r.Client.SetNX(ctx, key, value, ttl).Result()
}

// Get returns the string stored under key. A missing key yields redis.Nil.
func (r *Redis) Get(ctx context.Context, key string) (string, error) {
	if r == nil || r.Client == nil {
		return "", ErrRedisNotConfigured
	}
	return r.Client.Get(ctx, key).Result()
}

// Set stores value under key with the given expiry.
func (r *Redis) Set(ctx context.Context, key string, value any, ttl time.Duration) error {
	if r == nil || r.Client == nil {
		return ErrRedisNotConfigured
	}
	return r.Client.Set(ctx, key, value, ttl).Err()
}

// Del removes keys.
func (r *Redis) Del(ctx context.Context, keys ...string) error {
	if r == nil || r.Client == nil {
		return ErrRedisNotConfigured
	}
	return r.Client.Del(ctx, keys...).Err()
}
