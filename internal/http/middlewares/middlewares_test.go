package middlewares

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dropDatabas3/yesod/internal/jwt"
	"github.com/dropDatabas3/yesod/internal/rate"
)

var okHandler = http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
})

func TestWithRecover(t *testing.T) {
	h := Chain(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic("boom")
	}), WithRecover())

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusInternalServerError, rr.Code)
	assert.Contains(t, rr.Body.String(), "INTERNAL_SERVER_ERROR")
}

func TestWithRequestID(t *testing.T) {
	var seen string
	h := Chain(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = GetRequestID(r.Context())
	}), WithRequestID())

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("X-Request-ID", "abc-123")
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	assert.Equal(t, "abc-123", seen)
	assert.Equal(t, "abc-123", rr.Header().Get("X-Request-ID"))

	rr = httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.NotEmpty(t, rr.Header().Get("X-Request-ID"))
	assert.Equal(t, seen, rr.Header().Get("X-Request-ID"))
}

type stubLimiter struct {
	res rate.Result
	err error
}

func (s stubLimiter) Allow(context.Context, string) (rate.Result, error) { return s.res, s.err }

func TestWithRateLimit(t *testing.T) {
	denied := WithRateLimit(RateLimitConfig{Limiter: stubLimiter{res: rate.Result{
		Allowed: false, Limit: 10, RetryAfter: 300 * time.Millisecond, WindowTTL: time.Second,
	}}})(okHandler)

	rr := httptest.NewRecorder()
	denied.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/api/v1/auth/github", nil))
	assert.Equal(t, http.StatusTooManyRequests, rr.Code)
	assert.Equal(t, "1", rr.Header().Get("Retry-After"))
	assert.Equal(t, "10", rr.Header().Get("X-RateLimit-Limit"))

	// un limiter caído no bloquea
	failing := WithRateLimit(RateLimitConfig{Limiter: stubLimiter{err: errors.New("redis down")}})(okHandler)
	rr = httptest.NewRecorder()
	failing.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusOK, rr.Code)
}

func resolvedIP(t *testing.T, tp *TrustedProxies, remote, xff string) string {
	t.Helper()
	var got string
	h := WithClientIP(tp)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = ClientIP(r)
	}))
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = remote
	if xff != "" {
		req.Header.Set("X-Forwarded-For", xff)
	}
	h.ServeHTTP(httptest.NewRecorder(), req)
	return got
}

func TestClientIP_IgnoresForwardedFromUntrustedPeer(t *testing.T) {
	tp, err := ParseTrustedProxies([]string{"10.0.0.0/8"})
	require.NoError(t, err)

	// el cliente inventa el header: no cambia la clave de rate limit
	assert.Equal(t, "198.51.100.9", resolvedIP(t, tp, "198.51.100.9:4000", "1.2.3.4"))
	assert.Equal(t, "198.51.100.9", resolvedIP(t, tp, "198.51.100.9:4000", "5.6.7.8"))
	assert.Equal(t, "198.51.100.9", resolvedIP(t, nil, "198.51.100.9:4000", "1.2.3.4"))

	// sin middleware tampoco se lee el header
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "198.51.100.9:4000"
	req.Header.Set("X-Forwarded-For", "1.2.3.4")
	assert.Equal(t, "198.51.100.9", ClientIP(req))
}

func TestClientIP_TrustedProxyChain(t *testing.T) {
	tp, err := ParseTrustedProxies([]string{"10.0.0.0/8", "192.0.2.1"})
	require.NoError(t, err)

	// hop más a la derecha no confiable; lo de la izquierda lo puso el cliente
	assert.Equal(t, "203.0.113.7", resolvedIP(t, tp, "10.0.0.2:443", "1.2.3.4, 203.0.113.7, 192.0.2.1"))
	assert.Equal(t, "203.0.113.7", resolvedIP(t, tp, "10.0.0.2:443", "203.0.113.7"))
	// todo confiable: el más a la izquierda
	assert.Equal(t, "10.1.1.1", resolvedIP(t, tp, "10.0.0.2:443", "10.1.1.1, 10.0.0.3"))
	// basura en el header: se queda con el último hop válido
	assert.Equal(t, "10.0.0.2", resolvedIP(t, tp, "10.0.0.2:443", "nonsense"))

	_, err = ParseTrustedProxies([]string{"not-an-ip"})
	assert.Error(t, err)
}

func TestScopedIPKey(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "203.0.113.7:1234"
	assert.Equal(t, "203.0.113.7", ClientIP(req))
	assert.Equal(t, "login|203.0.113.7", ScopedIPKey("login")(req))
	assert.NotEqual(t, ScopedIPKey("login")(req), ScopedIPKey("refresh")(req))
}

type stubVerifier struct{ claims *jwt.AccessClaims }

func (s stubVerifier) ParseAccess(raw string) (*jwt.AccessClaims, error) {
	if raw != "good" {
		return nil, jwt.ErrInvalidToken
	}
	return s.claims, nil
}

func TestRequireAuth(t *testing.T) {
	claims := &jwt.AccessClaims{Subject: "user-1", SessionID: "fam-1"}

	var gotUser string
	h := RequireAuth(stubVerifier{claims: claims})(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUser = GetUserID(r.Context())
	}))

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusUnauthorized, rr.Code)
	assert.NotEmpty(t, rr.Header().Get("WWW-Authenticate"))
	assert.Contains(t, rr.Body.String(), "TOKEN_MISSING")

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer bad")
	rr = httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	assert.Equal(t, http.StatusUnauthorized, rr.Code)
	assert.Contains(t, rr.Body.String(), "TOKEN_INVALID")

	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "bearer good")
	rr = httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "user-1", gotUser)
}

func TestWithCORS(t *testing.T) {
	h := WithCORS([]string{"https://app.test/"})(okHandler)

	req := httptest.NewRequest(http.MethodOptions, "/api/v1/auth/refresh", nil)
	req.Header.Set("Origin", "https://app.test")
	req.Header.Set("Access-Control-Request-Method", "POST")
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	assert.Equal(t, http.StatusNoContent, rr.Code)
	assert.Equal(t, "https://app.test", rr.Header().Get("Access-Control-Allow-Origin"))

	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Origin", "https://evil.test")
	rr = httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Empty(t, rr.Header().Get("Access-Control-Allow-Origin"))
}

func TestNoStore(t *testing.T) {
	rr := httptest.NewRecorder()
	WithNoStore()(okHandler).ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, "no-store", rr.Header().Get("Cache-Control"))
}
