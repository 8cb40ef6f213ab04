package middlewares

import (
	"net/http"
	"strconv"
	"time"

	"github.com/dropDatabas3/yesod/internal/http/errors"
	"github.com/dropDatabas3/yesod/internal/observability/logger"
	"github.com/dropDatabas3/yesod/internal/rate"
)

// ClientIP devuelve la IP que resolvió WithClientIP. Sin ese middleware usa
// el peer directo e ignora X-Forwarded-For.
func ClientIP(r *http.Request) string {
	if ip, _ := r.Context().Value(ctxClientIPKey).(string); ip != "" {
		return ip
	}
	return remoteHost(r)
}

// RateKeyFunc define cómo generar la clave de rate limiting.
type RateKeyFunc func(r *http.Request) string

// IPOnlyRateKey: solo IP. No lee el body.
func IPOnlyRateKey(r *http.Request) string {
	return ClientIP(r)
}

// ScopedIPKey separa los contadores por grupo de endpoints ("login", "refresh").
func ScopedIPKey(scope string) RateKeyFunc {
	return func(r *http.Request) string {
		return scope + "|" + ClientIP(r)
	}
}

// RateLimitConfig configura el comportamiento del middleware de rate limiting.
type RateLimitConfig struct {
	Limiter   rate.Limiter
	KeyFunc   RateKeyFunc
	Whitelist []string // paths excluidos (ej: /healthz)
}

// WithRateLimit corta con 429 cuando el limiter lo indica. Si el limiter
// falla, el request pasa.
func WithRateLimit(cfg RateLimitConfig) Middleware {
	if cfg.Limiter == nil {
		return func(next http.Handler) http.Handler { return next }
	}
	if cfg.KeyFunc == nil {
		cfg.KeyFunc = IPOnlyRateKey
	}

	whitelistSet := make(map[string]struct{}, len(cfg.Whitelist))
	for _, p := range cfg.Whitelist {
		whitelistSet[p] = struct{}{}
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if _, ok := whitelistSet[r.URL.Path]; ok {
				next.ServeHTTP(w, r)
				return
			}

			res, err := cfg.Limiter.Allow(r.Context(), cfg.KeyFunc(r))
			if err != nil {
				logger.From(r.Context()).Warn("rate limiter unavailable",
					logger.Component("rate"), logger.Err(err))
				next.ServeHTTP(w, r)
				return
			}

			h := w.Header()
			if res.Limit > 0 {
				h.Set("X-RateLimit-Limit", strconv.FormatInt(res.Limit, 10))
			}
			h.Set("X-RateLimit-Remaining", strconv.FormatInt(res.Remaining, 10))
			if res.WindowTTL > 0 {
				h.Set("X-RateLimit-Reset", strconv.FormatInt(time.Now().Add(res.WindowTTL).Unix(), 10))
			}

			if !res.Allowed {
				if res.RetryAfter > 0 {
					secs := int(res.RetryAfter.Round(time.Second) / time.Second)
					if secs < 1 {
						secs = 1
					}
					h.Set("Retry-After", strconv.Itoa(secs))
				}
				logger.From(r.Context()).Info("rate limit exceeded",
					logger.Component("rate"), logger.ClientIP(ClientIP(r)))
				errors.WriteError(w, errors.ErrRateLimitExceeded)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
