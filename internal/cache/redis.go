package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisClient implementa Client usando Redis (o Valkey).
type RedisClient struct {
	client *redis.Client
	prefix string
}

// NewRedisFromURL parsea una URL redis://, verifica conexión y crea el cliente.
func NewRedisFromURL(ctx context.Context, url, prefix string) (*RedisClient, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("cache: parse redis url: %w", err)
	}
	rdb := redis.NewClient(opts)

	pctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := rdb.Ping(pctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("cache: redis ping failed: %w", err)
	}
	return NewRedis(rdb, prefix), nil
}

// NewRedis envuelve un *redis.Client existente.
func NewRedis(rdb *redis.Client, prefix string) *RedisClient {
	return &RedisClient{client: rdb, prefix: prefix}
}

// Raw expone el cliente subyacente para compartir la conexión (rate limiter, eventos).
func (c *RedisClient) Raw() *redis.Client { return c.client }

func (c *RedisClient) Get(ctx context.Context, key string) (string, error) {
	val, err := c.client.Get(ctx, prefixed(c.prefix, key)).Result()
	if errors.Is(err, redis.Nil) {
		return "", ErrNotFound
	}
	return val, err
}

func (c *RedisClient) Set(ctx context.Context, key, value string, ttl time.Duration) error {
	if ttl <= 0 {
		return ErrInvalidTTL
	}
	return c.client.Set(ctx, prefixed(c.prefix, key), value, ttl).Err()
}

// Take usa GETDEL (Redis >= 6.2), atómico del lado del servidor.
func (c *RedisClient) Take(ctx context.Context, key string) (string, error) {
	val, err := c.client.GetDel(ctx, prefixed(c.prefix, key)).Result()
	if errors.Is(err, redis.Nil) {
		return "", ErrNotFound
	}
	return val, err
}

func (c *RedisClient) Delete(ctx context.Context, key string) error {
	return c.client.Del(ctx, prefixed(c.prefix, key)).Err()
}

func (c *RedisClient) Ping(ctx context.Context) error { return c.client.Ping(ctx).Err() }

func (c *RedisClient) Close() error { return c.client.Close() }
