// Package rate limita requests por clave (típicamente IP + endpoint).
package rate

import (
	"context"
	"fmt"
	"math"
	"strings"
	"time"

	rdb "github.com/redis/go-redis/v9"
)

type Result struct {
	Allowed     bool
	Limit       int64
	Remaining   int64
	RetryAfter  time.Duration
	WindowTTL   time.Duration
	CurrentHits int64
}

type Limiter interface {
	Allow(ctx context.Context, key string) (Result, error)
}

// RedisLimiter: fixed window (INCR + EXPIRE NX) compartido entre instancias.
type RedisLimiter struct {
	Client *rdb.Client
	Prefix string
	Max    int64
	Window time.Duration
}

func NewRedisLimiter(client *rdb.Client, prefix string, max int, window time.Duration) *RedisLimiter {
	if prefix == "" {
		prefix = "rl:"
	}
	return &RedisLimiter{
		Client: client,
		Prefix: prefix,
		Max:    int64(max),
		Window: window,
	}
}

// Allow cuenta el hit en la ventana actual. INCR y EXPIRE NX van en la misma
// transacción: una key nunca queda sin TTL.
func (l *RedisLimiter) Allow(ctx context.Context, key string) (Result, error) {
	bucket := time.Now().UTC().Truncate(l.Window).Unix()
	redisKey := fmt.Sprintf("%s%s:%d", l.Prefix, strings.ReplaceAll(key, " ", "_"), bucket)

	var (
		hits *rdb.IntCmd
		ttl  *rdb.DurationCmd
	)
	_, err := l.Client.TxPipelined(ctx, func(p rdb.Pipeliner) error {
		hits = p.Incr(ctx, redisKey)
		p.ExpireNX(ctx, redisKey, l.Window)
		ttl = p.TTL(ctx, redisKey)
		return nil
	})
	if err != nil {
		return Result{}, err
	}
	return fixedWindowResult(hits.Val(), l.Max, ttl.Val(), l.Window), nil
}

func fixedWindowResult(hits, max int64, ttl, window time.Duration) Result {
	res := Result{
		Allowed:     hits <= max,
		Limit:       max,
		Remaining:   max - hits,
		CurrentHits: hits,
		WindowTTL:   ttl,
	}
	if res.Remaining < 0 {
		res.Remaining = 0
	}
	if !res.Allowed {
		// Retry after: resto de la ventana
		res.RetryAfter = ttl
		if res.RetryAfter < 0 {
			res.RetryAfter = time.Duration(math.Ceil(window.Seconds())) * time.Second
		}
	}
	return res
}
