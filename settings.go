package newsapi

import (
	"context"
	"errors"
	"fmt"

	"github.com/go-redis/redis/v8"
)

const (
	// SettingsNamespace is the config collection holding the API settings.
	SettingsNamespace = "news_api.settings"
	// AuthKeySetting is the shared secret clients send in the auth header.
	AuthKeySetting = "authkey"
)

// Settings reads and writes the news API settings through a SettingsStore.
type Settings struct {
	store SettingsStore
}

// NewSettings wraps store.
func NewSettings(store SettingsStore) *Settings {
	return &Settings{store: store}
}

// AuthKey returns the configured shared secret. An unset key is "".
func (s *Settings) AuthKey(ctx context.Context) (string, error) {
	return s.store.Get(ctx, SettingsNamespace, AuthKeySetting)
}

// SetAuthKey stores key verbatim. Any string is accepted, including "".
func (s *Settings) SetAuthKey(ctx context.Context, key string) error {
	return s.store.Set(ctx, SettingsNamespace, AuthKeySetting, key)
}

// RedisSettings keeps each namespace in a Redis hash named after it.
type RedisSettings struct {
	rdb *redis.Client
}

var _ SettingsStore = (*RedisSettings)(nil)

// NewRedisSettings connects to Redis and verifies the connection.
func NewRedisSettings(ctx context.Context, cfg SettingsConfig) (*RedisSettings, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
	if err := rdb.Ping(ctx).Err(); err != nil {
		rdb.Close()
		return nil, fmt.Errorf("ping redis %s: %w", cfg.RedisAddr, err)
	}
	return &RedisSettings{rdb: rdb}, nil
}

// Get returns "" when the field is missing.
func (r *RedisSettings) Get(ctx context.Context, namespace, key string) (string, error) {
	v, err := r.rdb.HGet(ctx, namespace, key).Result()
	if errors.Is(err, redis.Nil) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("hget %s %s: %w", namespace, key, err)
	}
	return v, nil
}

func (r *RedisSettings) Set(ctx context.Context, namespace, key, value string) error {
	if err := r.rdb.HSet(ctx, namespace, key, value).Err(); err != nil {
		return fmt.Errorf("hset %s %s: %w", namespace, key, err)
	}
	return nil
}

// Ping checks the Redis connection.
func (r *RedisSettings) Ping(ctx context.Context) error {
	return r.rdb.Ping(ctx).Err()
}

// Close closes the Redis client.
func (r *RedisSettings) Close() error {
	return r.rdb.Close()
}
