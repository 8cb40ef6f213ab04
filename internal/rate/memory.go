package rate

import (
	"context"
	"sync"
	"time"

	gocache "github.com/patrickmn/go-cache"
	xrate "golang.org/x/time/rate"
)

// MemoryLimiter es un token bucket por clave para una sola instancia.
// max requests por window, con ráfaga de max. Los buckets inactivos se
// descartan a las 2 ventanas.
type MemoryLimiter struct {
	max     int
	window  time.Duration
	mu      sync.Mutex
	buckets *gocache.Cache
	now     func() time.Time
}

func NewMemoryLimiter(max int, window time.Duration) *MemoryLimiter {
	if max <= 0 {
		max = 1
	}
	return &MemoryLimiter{
		max:     max,
		window:  window,
		buckets: gocache.New(2*window, window),
		now:     time.Now,
	}
}

func (l *MemoryLimiter) bucket(key string) *xrate.Limiter {
	l.mu.Lock()
	defer l.mu.Unlock()
	if v, ok := l.buckets.Get(key); ok {
		lim := v.(*xrate.Limiter)
		l.buckets.SetDefault(key, lim) // refresca la expiración
		return lim
	}
	lim := xrate.NewLimiter(xrate.Every(l.window/time.Duration(l.max)), l.max)
	l.buckets.SetDefault(key, lim)
	return lim
}

func (l *MemoryLimiter) Allow(_ context.Context, key string) (Result, error) {
	lim := l.bucket(key)
	now := l.now()
	res := Result{Limit: int64(l.max), WindowTTL: l.window}

	r := lim.ReserveN(now, 1)
	if delay := r.DelayFrom(now); delay > 0 {
		r.CancelAt(now)
		res.RetryAfter = delay
		return res, nil
	}
	res.Allowed = true
	if rem := int64(lim.TokensAt(now)); rem > 0 {
		res.Remaining = rem
	}
	res.CurrentHits = res.Limit - res.Remaining
	return res, nil
}
