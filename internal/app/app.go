// Package app arma el broker a partir de la configuración: stores, cache,
// claves, proveedores, servicios, controllers y router.
package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/dropDatabas3/yesod/internal/account"
	"github.com/dropDatabas3/yesod/internal/cache"
	"github.com/dropDatabas3/yesod/internal/config"
	"github.com/dropDatabas3/yesod/internal/domain/repository"
	"github.com/dropDatabas3/yesod/internal/events"
	accountctrl "github.com/dropDatabas3/yesod/internal/http/controllers/account"
	authctrl "github.com/dropDatabas3/yesod/internal/http/controllers/auth"
	healthctrl "github.com/dropDatabas3/yesod/internal/http/controllers/health"
	oidcctrl "github.com/dropDatabas3/yesod/internal/http/controllers/oidc"
	sessionctrl "github.com/dropDatabas3/yesod/internal/http/controllers/session"
	userctrl "github.com/dropDatabas3/yesod/internal/http/controllers/user"
	mw "github.com/dropDatabas3/yesod/internal/http/middlewares"
	"github.com/dropDatabas3/yesod/internal/http/router"
	healthsvc "github.com/dropDatabas3/yesod/internal/http/services/health"
	"github.com/dropDatabas3/yesod/internal/http/services/social"
	"github.com/dropDatabas3/yesod/internal/jwt"
	"github.com/dropDatabas3/yesod/internal/metrics"
	"github.com/dropDatabas3/yesod/internal/observability/logger"
	"github.com/dropDatabas3/yesod/internal/providers"
	"github.com/dropDatabas3/yesod/internal/rate"
	"github.com/dropDatabas3/yesod/internal/state"
	"github.com/dropDatabas3/yesod/internal/store/memory"
	"github.com/dropDatabas3/yesod/internal/store/pg"
	"github.com/dropDatabas3/yesod/internal/token"
)

// Version se sobreescribe con -ldflags al compilar.
var Version = "dev"

// Options permite reemplazar piezas en tests. Todo es opcional.
type Options struct {
	// Providers reemplaza el registry construido desde la config.
	Providers social.Adapters
	// Registry para métricas; nil = uno propio del App.
	Registry *prometheus.Registry
}

// App es el broker cableado.
type App struct {
	Config  *config.Config
	Handler http.Handler

	Issuer *jwt.Issuer
	Users  repository.UserRepository
	Tokens *token.Service
	Events events.Emitter

	closers []func()
}

type storage struct {
	users    repository.UserRepository
	accounts repository.AccountRepository
	tokens   repository.TokenRepository
	ping     healthsvc.Check
	close    func()
}

// New construye el App. Ante error libera lo que ya se haya abierto.
func New(ctx context.Context, cfg *config.Config, opts Options) (_ *App, err error) {
	log := logger.From(ctx).With(logger.Layer("app"), logger.Op("New"))

	a := &App{Config: cfg}
	defer func() {
		if err != nil {
			a.Close()
		}
	}()

	// ─── Claves ───
	issuer, err := buildIssuer(cfg, log)
	if err != nil {
		return nil, err
	}
	a.Issuer = issuer

	// ─── Storage ───
	st, err := openStorage(ctx, cfg)
	if err != nil {
		return nil, err
	}
	a.closers = append(a.closers, st.close)
	a.Users = st.users
	log.Info("storage ready", logger.String("driver", cfg.Storage.Driver))

	// ─── Cache ───
	kv, err := cache.New(ctx, cache.Config{Kind: cfg.Cache.Kind, URL: cfg.Cache.Redis.URL, Prefix: cfg.Cache.Redis.Prefix})
	if err != nil {
		return nil, fmt.Errorf("app: cache: %w", err)
	}
	a.closers = append(a.closers, func() { _ = kv.Close() })
	log.Info("cache ready", logger.String("kind", cfg.Cache.Kind))

	var rdb *redis.Client
	if rc, ok := kv.(*cache.RedisClient); ok {
		rdb = rc.Raw()
	}

	// ─── Eventos ───
	emitter, eventsCheck, err := a.buildEmitter(ctx, cfg, rdb)
	if err != nil {
		return nil, err
	}
	a.Events = emitter

	// ─── Métricas ───
	var metricsHandler http.Handler
	if cfg.Metrics.Enabled {
		reg := opts.Registry
		if reg == nil {
			reg = prometheus.NewRegistry()
		}
		if err := metrics.Register(reg); err != nil {
			return nil, fmt.Errorf("app: metrics: %w", err)
		}
		metricsHandler = metrics.Handler(reg)
	}

	// ─── Dominio ───
	var adapters social.Adapters = providers.NewRegistry(cfg.Providers)
	if opts.Providers != nil {
		adapters = opts.Providers
	}

	resolver := account.NewResolver(account.Deps{
		Users:                st.users,
		Accounts:             st.accounts,
		Events:               emitter,
		TrustUnverifiedEmail: cfg.Accounts.TrustUnverifiedEmail,
	})
	a.Tokens = token.NewService(token.Deps{
		Tokens:     st.tokens,
		Users:      st.users,
		Issuer:     issuer,
		RefreshTTL: cfg.JWT.RefreshTTL,
	})
	flow := social.NewService(social.Deps{
		Providers:   adapters,
		State:       state.NewStore(kv, cfg.State.TTL),
		Accounts:    resolver,
		Tokens:      a.Tokens,
		Events:      emitter,
		PublicURL:   cfg.Server.PublicURL,
		FrontendURL: cfg.Server.FrontendURL,
	})
	health := healthsvc.NewService(healthsvc.Deps{
		Issuer:  issuer,
		Store:   st.ping,
		Cache:   kv.Ping,
		Events:  eventsCheck,
		Version: Version,
	})

	profiles := account.NewProfiles(account.ProfileDeps{
		Users:    st.users,
		Accounts: st.accounts,
		Sessions: a.Tokens,
		Events:   emitter,
	})

	loginLimiter, refreshLimiter := buildLimiters(cfg, rdb)
	proxies, err := mw.ParseTrustedProxies(cfg.Server.TrustedProxies)
	if err != nil {
		return nil, fmt.Errorf("app: %w", err)
	}

	a.Handler = router.New(router.Deps{
		Auth:           authctrl.NewControllers(flow, a.Tokens, cfg.Server.PublicURL),
		Account:        accountctrl.NewAccountController(resolver, st.users, flow),
		Session:        sessionctrl.NewSessionController(a.Tokens),
		User:           userctrl.NewUserController(profiles),
		OIDC:           oidcctrl.NewOIDCController(issuer, cfg.Server.PublicURL),
		Health:         healthctrl.NewHealthController(health),
		Verifier:       issuer,
		LoginLimiter:   loginLimiter,
		RefreshLimiter: refreshLimiter,
		Metrics:        metricsHandler,
		DebugEndpoints: cfg.OIDC.DebugEndpoints,
		CORSOrigins:    cfg.Server.CORSOrigins,
		TrustedProxies: proxies,
	})

	var names []string
	for _, k := range adapters.Enabled() {
		names = append(names, k.String())
	}
	log.Info("app ready", logger.Any("providers", names), logger.KeyID(issuer.ActiveKID()))
	if len(names) == 0 {
		log.Warn("no providers configured; login is disabled")
	}
	return a, nil
}

// Close libera conexiones en orden inverso a su apertura.
func (a *App) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
	a.closers = nil
}

func buildIssuer(cfg *config.Config, log *zap.Logger) (*jwt.Issuer, error) {
	kp, generated, err := jwt.LoadOrGenerate(cfg.JWT.PrivateKeyPath)
	if err != nil {
		return nil, fmt.Errorf("app: signing key: %w", err)
	}
	if generated {
		log.Warn("no private_key_path configured; using an ephemeral signing key", logger.KeyID(kp.KID))
	}

	previous, err := jwt.LoadPublicKeys(cfg.JWT.PreviousPublicKeys)
	if err != nil {
		return nil, fmt.Errorf("app: previous keys: %w", err)
	}

	iss := jwt.NewIssuer(cfg.JWT.Issuer, cfg.JWT.Audience, jwt.NewKeystore(kp, previous...))
	iss.AccessTTL = cfg.JWT.AccessTTL
	iss.IDTokenTTL = cfg.JWT.IDTokenTTL
	iss.Leeway = cfg.JWT.Leeway
	return iss, nil
}

func openStorage(ctx context.Context, cfg *config.Config) (*storage, error) {
	switch cfg.Storage.Driver {
	case "postgres":
		s, err := pg.New(ctx, pg.Config{DSN: cfg.Storage.DSN, MaxConns: cfg.Storage.MaxConns})
		if err != nil {
			return nil, fmt.Errorf("app: postgres: %w", err)
		}
		return &storage{
			users:    s.Users(),
			accounts: s.Accounts(),
			tokens:   s.Tokens(),
			ping:     s.Ping,
			close:    s.Close,
		}, nil
	default:
		s := memory.New()
		return &storage{
			users:    s.Users(),
			accounts: s.Accounts(),
			tokens:   s.Tokens(),
			ping:     func(context.Context) error { return nil },
			close:    func() {},
		}, nil
	}
}

// buildEmitter elige el emisor de eventos. Con redis reusa el cliente del cache
// si existe; si no, abre uno propio contra la misma URL.
func (a *App) buildEmitter(ctx context.Context, cfg *config.Config, rdb *redis.Client) (events.Emitter, healthsvc.Check, error) {
	if cfg.Events.Kind != "redis" {
		return events.NewRecorder(), nil, nil
	}
	if rdb == nil {
		if cfg.Cache.Redis.URL == "" {
			return nil, nil, errors.New("app: events.kind=redis requires cache.redis.url")
		}
		rc, err := cache.NewRedisFromURL(ctx, cfg.Cache.Redis.URL, cfg.Cache.Redis.Prefix)
		if err != nil {
			return nil, nil, fmt.Errorf("app: events redis: %w", err)
		}
		a.closers = append(a.closers, func() { _ = rc.Close() })
		rdb = rc.Raw()
	}
	check := func(ctx context.Context) error { return rdb.Ping(ctx).Err() }
	return events.NewRedisEmitter(rdb, cfg.Events.Queue), check, nil
}

// buildLimiters devuelve nil cuando el rate limiting está apagado o el límite es 0.
func buildLimiters(cfg *config.Config, rdb *redis.Client) (login, refresh rate.Limiter) {
	if !cfg.Rate.Enabled {
		return nil, nil
	}
	mk := func(perMinute int) rate.Limiter {
		if perMinute <= 0 {
			return nil
		}
		if rdb != nil {
			return rate.NewRedisLimiter(rdb, "", perMinute, time.Minute)
		}
		return rate.NewMemoryLimiter(perMinute, time.Minute)
	}
	return mk(cfg.Rate.LoginPerMinute), mk(cfg.Rate.RefreshPerMinute)
}
