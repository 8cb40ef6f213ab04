// Package cache provee un key/value con TTL para estado compartido entre instancias.
//
// Soporta:
//   - memory (in-process, desarrollo/testing) sobre patrickmn/go-cache
//   - redis (distribuido, producción) sobre go-redis
//
// Take es el único primitivo con garantía de atomicidad: lectura+borrado en una
// sola operación, de modo que entre N llamadores concurrentes sobre la misma key
// exactamente uno obtiene el valor.
package cache

import (
	"context"
	"errors"
	"time"
)

// Client define las operaciones de cache.
type Client interface {
	// Get obtiene un valor. Retorna ErrNotFound si no existe o expiró.
	Get(ctx context.Context, key string) (string, error)

	// Set guarda un valor con TTL. ttl <= 0 no está permitido: todo expira.
	Set(ctx context.Context, key, value string, ttl time.Duration) error

	// Take obtiene y borra la key atómicamente. ErrNotFound si no existe.
	Take(ctx context.Context, key string) (string, error)

	// Delete elimina una key. No falla si no existe.
	Delete(ctx context.Context, key string) error

	Ping(ctx context.Context) error
	Close() error
}

// Config configuración para crear un cliente de cache.
type Config struct {
	Kind   string // "memory" | "redis"
	URL    string // redis://...
	Prefix string
}

var (
	ErrNotFound   = errors.New("cache: key not found")
	ErrInvalidTTL = errors.New("cache: ttl must be positive")
)

// IsNotFound verifica si el error es porque la key no existe.
func IsNotFound(err error) bool { return errors.Is(err, ErrNotFound) }

// New crea un cliente de cache según la configuración.
func New(ctx context.Context, cfg Config) (Client, error) {
	switch cfg.Kind {
	case "redis":
		return NewRedisFromURL(ctx, cfg.URL, cfg.Prefix)
	default:
		return NewMemory(cfg.Prefix), nil
	}
}

func prefixed(prefix, k string) string {
	if prefix == "" {
		return k
	}
	return prefix + ":" + k
}
