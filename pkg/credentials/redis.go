// SPDX-FileCopyrightText: Copyright 2025 Stacklok, Inc.
// SPDX-License-Identifier: Apache-2.0

package credentials

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Default timeouts for Redis operations.
const (
	DefaultRedisDialTimeout  = 5 * time.Second
	DefaultRedisReadTimeout  = 3 * time.Second
	DefaultRedisWriteTimeout = 3 * time.Second

	defaultRedisKeyPrefix = "mcpbridge:credentials:"
)

// RedisConfig holds Redis connection settings for the redis provider.
type RedisConfig struct {
	Addr      string
	Username  string
	Password  string
	DB        int
	KeyPrefix string
}

// RedisProvider stores each credential blob as a JSON string under
// {prefix}{service}:{userID}.
type RedisProvider struct {
	client    redis.UniversalClient
	keyPrefix string
}

// NewRedisProvider connects to Redis and verifies the connection.
func NewRedisProvider(ctx context.Context, cfg RedisConfig) (*RedisProvider, error) {
	if cfg.Addr == "" {
		return nil, errors.New("redis credential provider requires an address")
	}

	client := redis.NewClient(&redis.Options{
		Addr:         cfg.Addr,
		Username:     cfg.Username,
		Password:     cfg.Password,
		DB:           cfg.DB,
		DialTimeout:  DefaultRedisDialTimeout,
		ReadTimeout:  DefaultRedisReadTimeout,
		WriteTimeout: DefaultRedisWriteTimeout,
	})

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	return NewRedisProviderWithClient(client, cfg.KeyPrefix), nil
}

// NewRedisProviderWithClient wraps an existing client. Tests use it with
// miniredis.
func NewRedisProviderWithClient(client redis.UniversalClient, keyPrefix string) *RedisProvider {
	if keyPrefix == "" {
		keyPrefix = defaultRedisKeyPrefix
	}
	return &RedisProvider{client: client, keyPrefix: keyPrefix}
}

// GetCredentials implements Resolver.
func (p *RedisProvider) GetCredentials(ctx context.Context, service, userID string) (Credentials, error) {
	key, err := p.key(service, userID)
	if err != nil {
		return nil, err
	}
	data, err := p.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read credentials from redis: %w", err)
	}
	return decode(data)
}

// SaveCredentials implements Resolver.
func (p *RedisProvider) SaveCredentials(ctx context.Context, service, userID string, creds Credentials) error {
	key, err := p.key(service, userID)
	if err != nil {
		return err
	}
	data, err := json.Marshal(creds)
	if err != nil {
		return fmt.Errorf("failed to encode credentials: %w", err)
	}
	if err := p.client.Set(ctx, key, data, 0).Err(); err != nil {
		return fmt.Errorf("failed to write credentials to redis: %w", err)
	}
	return nil
}

// Close closes the Redis client connection.
func (p *RedisProvider) Close() error {
	return p.client.Close()
}

func (p *RedisProvider) key(service, userID string) (string, error) {
	if err := validatePathElement("service", service); err != nil {
		return "", err
	}
	if err := validatePathElement("user id", userID); err != nil {
		return "", err
	}
	return p.keyPrefix + service + ":" + userID, nil
}
