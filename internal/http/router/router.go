// Package router arma el árbol de rutas HTTP sobre chi. Cada grupo declara su
// propia cadena de middlewares.
package router

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	accountctrl "github.com/dropDatabas3/yesod/internal/http/controllers/account"
	authctrl "github.com/dropDatabas3/yesod/internal/http/controllers/auth"
	healthctrl "github.com/dropDatabas3/yesod/internal/http/controllers/health"
	oidcctrl "github.com/dropDatabas3/yesod/internal/http/controllers/oidc"
	sessionctrl "github.com/dropDatabas3/yesod/internal/http/controllers/session"
	userctrl "github.com/dropDatabas3/yesod/internal/http/controllers/user"
	httperrors "github.com/dropDatabas3/yesod/internal/http/errors"
	mw "github.com/dropDatabas3/yesod/internal/http/middlewares"
	"github.com/dropDatabas3/yesod/internal/rate"
)

// Deps contiene los controllers y la infraestructura que necesitan las rutas.
type Deps struct {
	Auth    *authctrl.Controllers
	Account *accountctrl.AccountController
	Session *sessionctrl.SessionController
	User    *userctrl.UserController
	OIDC    *oidcctrl.OIDCController
	Health  *healthctrl.HealthController

	Verifier mw.AccessVerifier

	// Limiters opcionales (nil = sin límite).
	LoginLimiter   rate.Limiter
	RefreshLimiter rate.Limiter

	// Metrics nil deshabilita /metrics.
	Metrics        http.Handler
	DebugEndpoints bool
	CORSOrigins    []string
	// TrustedProxies nil ignora X-Forwarded-For.
	TrustedProxies *mw.TrustedProxies
}

// New devuelve el handler raíz.
func New(d Deps) http.Handler {
	r := chi.NewRouter()

	// Orden: recover es el más externo; logging ve el status final.
	r.Use(mw.Use(
		mw.WithRecover(),
		mw.WithRequestID(),
		mw.WithClientIP(d.TrustedProxies),
		mw.WithCORS(d.CORSOrigins),
		mw.WithMetrics(),
		mw.WithSecurityHeaders(),
		mw.WithLogging(),
	)...)

	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		httperrors.WriteError(w, httperrors.ErrRouteNotFound)
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, _ *http.Request) {
		httperrors.WriteError(w, httperrors.ErrMethodNotAllowed)
	})

	loginRate := mw.WithRateLimit(mw.RateLimitConfig{Limiter: d.LoginLimiter, KeyFunc: mw.ScopedIPKey("login")})
	refreshRate := mw.WithRateLimit(mw.RateLimitConfig{Limiter: d.RefreshLimiter, KeyFunc: mw.ScopedIPKey("refresh")})

	// Health y métricas
	r.Get("/healthz", d.Health.Healthz)
	r.Get("/readyz", d.Health.Readyz)
	if d.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", d.Metrics)
	}

	// Discovery y JWKS: cacheables por clientes y proxies.
	r.Group(func(r chi.Router) {
		r.Use(mw.WithCacheControl("public, max-age=300"))
		r.Get("/.well-known/openid-configuration", d.OIDC.Discovery)
		r.Get("/.well-known/jwks.json", d.OIDC.JWKS)
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Route("/auth", func(r chi.Router) {
			r.Get("/providers", d.Auth.Providers.List)

			r.Group(func(r chi.Router) {
				r.Use(mw.Use(mw.WithNoStore(), refreshRate)...)
				r.Post("/refresh", d.Auth.Session.Refresh)
				r.Post("/logout", d.Auth.Session.Logout)
			})

			r.Group(func(r chi.Router) {
				r.Use(mw.Use(mw.WithNoStore(), loginRate)...)
				r.Get("/{provider}", d.Auth.Login.Begin)
				r.Get("/{provider}/callback", d.Auth.Login.Callback)
			})
		})

		r.Group(func(r chi.Router) {
			r.Use(mw.Use(mw.WithNoStore(), mw.RequireAuth(d.Verifier))...)

			r.Get("/accounts", d.Account.List)
			r.With(loginRate).Get("/accounts/{provider}/link", d.Account.BeginLink)
			r.Delete("/accounts/{provider}", d.Account.Unlink)

			r.Get("/users/me", d.User.Me)
			r.Patch("/users/me", d.User.Update)
			r.Delete("/users/me", d.User.Delete)
			r.Post("/users/me/sync-from-provider", d.User.Sync)

			r.Get("/sessions", d.Session.List)
			r.Delete("/sessions", d.Session.RevokeAll)
			r.Delete("/sessions/{id}", d.Session.Revoke)
		})

		if d.DebugEndpoints {
			r.With(mw.WithNoStore()).Post("/oidc/verify", d.OIDC.Verify)
		}
	})

	return r
}
